package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthStatus(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tests := []struct {
		name    string
		prepare func(h *HealthChecker)
		want    string
	}{
		{"stopped is healthy", func(h *HealthChecker) {}, StatusHealthy},
		{"running and connected", func(h *HealthChecker) {
			h.SetState("RUNNING")
			h.SetConnected(true)
			h.RecordLoop(nil)
		}, StatusHealthy},
		{"running disconnected", func(h *HealthChecker) {
			h.SetState("RUNNING")
			h.RecordLoop(nil)
		}, StatusDegraded},
		{"last loop failed", func(h *HealthChecker) {
			h.SetState("RUNNING")
			h.SetConnected(true)
			h.RecordLoop(errors.New("fetch failed"))
		}, StatusDegraded},
		{"open breaker", func(h *HealthChecker) {
			h.SetState("PAUSED")
			h.SetConnected(true)
			h.SetOpenBreakers([]string{"trading"})
		}, StatusDegraded},
		{"error state", func(h *HealthChecker) { h.SetState("ERROR") }, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(15 * time.Minute)
			h.SetClock(clock)
			tt.prepare(h)
			assert.Equal(t, tt.want, h.Status().Status)
		})
	}
}

func TestHealthStaleLoop(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewHealthChecker(10 * time.Minute)
	h.SetClock(func() time.Time { return now })
	h.SetState("RUNNING")
	h.SetConnected(true)
	h.RecordLoop(nil)
	assert.Equal(t, StatusHealthy, h.Status().Status)

	now = now.Add(11 * time.Minute)
	st := h.Status()
	assert.Equal(t, StatusDegraded, st.Status)
	assert.Equal(t, "11m0s", st.Uptime)
}

func TestMetricsRecorded(t *testing.T) {
	RecordTrade("BTC/USDT", "BUY", 50)
	SetBotState("PAUSED")
	UpdatePortfolioRisk(12.5, 3)
	SetBreakerState("trading", 1)

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, line := range []string{
		`trading_bot_trades_total{side="BUY",symbol="BTC/USDT"} 1`,
		`trading_bot_state{state="PAUSED"} 1`,
		`trading_bot_state{state="RUNNING"} 0`,
		`trading_bot_paused 1`,
		`trading_bot_portfolio_risk_percent 12.5`,
		`trading_bot_risk_level 3`,
		`trading_bot_circuit_breaker_state{class="trading"} 1`,
	} {
		assert.True(t, strings.Contains(body, line), "missing %q", line)
	}
}
