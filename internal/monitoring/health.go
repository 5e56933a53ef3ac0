package monitoring

import (
	"sync"
	"time"
)

// Health status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker tracks loop liveness and venue connectivity
type HealthChecker struct {
	mu           sync.RWMutex
	startTime    time.Time
	state        string
	isConnected  bool
	lastLoop     time.Time
	lastTrade    time.Time
	lastError    string
	openBreakers []string
	maxLoopAge   time.Duration
	now          func() time.Time
}

// HealthStatus is the JSON body of the health endpoint
type HealthStatus struct {
	Status       string    `json:"status"`
	State        string    `json:"state"`
	Timestamp    time.Time `json:"timestamp"`
	LastLoop     time.Time `json:"last_loop,omitempty"`
	LastTrade    time.Time `json:"last_trade,omitempty"`
	IsConnected  bool      `json:"is_connected"`
	Uptime       string    `json:"uptime"`
	LastError    string    `json:"last_error,omitempty"`
	OpenBreakers []string  `json:"open_breakers,omitempty"`
}

// NewHealthChecker reports degraded when no loop pass finished within maxLoopAge
func NewHealthChecker(maxLoopAge time.Duration) *HealthChecker {
	return &HealthChecker{
		startTime:  time.Now(),
		state:      "STOPPED",
		maxLoopAge: maxLoopAge,
		now:        time.Now,
	}
}

// SetClock replaces the time source
func (h *HealthChecker) SetClock(now func() time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = now
	h.startTime = now()
}

// SetState records the bot lifecycle state
func (h *HealthChecker) SetState(state string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = state
}

// SetConnected records the result of the last connectivity check
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// RecordLoop marks a finished loop pass; a nil err clears the last error
func (h *HealthChecker) RecordLoop(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastLoop = h.now()
	if err != nil {
		h.lastError = err.Error()
	} else {
		h.lastError = ""
	}
}

// RecordTrade marks the time of the last fill
func (h *HealthChecker) RecordTrade(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTrade = at
}

// SetOpenBreakers records which circuit breakers are open
func (h *HealthChecker) SetOpenBreakers(names []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.openBreakers = append([]string(nil), names...)
}

// Status evaluates the current health
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status := StatusHealthy
	switch {
	case h.state == "ERROR":
		status = StatusUnhealthy
	case h.state == "RUNNING" || h.state == "PAUSED":
		if !h.isConnected || len(h.openBreakers) > 0 || h.lastError != "" {
			status = StatusDegraded
		}
		if h.maxLoopAge > 0 && !h.lastLoop.IsZero() && now.Sub(h.lastLoop) > h.maxLoopAge {
			status = StatusDegraded
		}
	}

	return HealthStatus{
		Status:       status,
		State:        h.state,
		Timestamp:    now,
		LastLoop:     h.lastLoop,
		LastTrade:    h.lastTrade,
		IsConnected:  h.isConnected,
		Uptime:       now.Sub(h.startTime).Truncate(time.Second).String(),
		LastError:    h.lastError,
		OpenBreakers: append([]string(nil), h.openBreakers...),
	}
}
