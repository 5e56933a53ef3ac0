package recovery

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/multierr"

	"github.com/ducminhle1904/crypto-trading-bot/internal/errors"
	"github.com/ducminhle1904/crypto-trading-bot/internal/logger"
)

// BackoffConfig defines the delay between attempts
type BackoffConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool // randomize each delay between BaseDelay and its backed-off value
}

// DefaultBackoff suits short local operations such as store writes
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2,
		Jitter:      true,
	}
}

// RecoveryHandler retries operations whose errors categorize as recoverable
// and keeps statistics of everything it saw
type RecoveryHandler struct {
	cfg    BackoffConfig
	delays *backoff.Backoff
	stats  *errors.ErrorStats
	log    *logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRecoveryHandler creates a handler; log may be nil
func NewRecoveryHandler(cfg BackoffConfig, log *logger.Logger) *RecoveryHandler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if log == nil {
		log = logger.NewNop()
	}
	delays := &backoff.Backoff{
		Min:    cfg.BaseDelay,
		Max:    cfg.MaxDelay,
		Factor: cfg.Multiplier,
		Jitter: cfg.Jitter,
	}
	return &RecoveryHandler{
		cfg:    cfg,
		delays: delays,
		stats:  errors.NewErrorStats(50),
		log:    log,
		sleep:  sleepCtx,
	}
}

// ExecuteWithRecovery runs fn until it succeeds, its error calls for
// anything other than RETRY or WAIT, or the attempts run out. The last error
// is returned categorized.
func (rh *RecoveryHandler) ExecuteWithRecovery(ctx context.Context, component, operation string, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		botErr := errors.CategorizeError(err, component, operation)
		rh.stats.RecordError(botErr)

		action := botErr.GetRecoveryAction()
		if action != errors.RecoveryActionRetry && action != errors.RecoveryActionWait {
			return botErr
		}
		if attempt >= rh.cfg.MaxAttempts {
			return botErr
		}

		delay := rh.Delay(attempt)
		rh.log.LogWarning("Error Recovery", "%s/%s attempt %d failed (%s), retrying in %s: %v",
			component, operation, attempt, botErr.Category, delay, err)
		if serr := rh.sleep(ctx, delay); serr != nil {
			return multierr.Append(botErr, serr)
		}
	}
}

// Delay is the wait after the given failed attempt, counting from 1
func (rh *RecoveryHandler) Delay(attempt int) time.Duration {
	if rh.cfg.BaseDelay <= 0 {
		return 0
	}
	return rh.delays.ForAttempt(float64(attempt - 1))
}

// GetErrorStats returns the statistics of every failure seen
func (rh *RecoveryHandler) GetErrorStats() *errors.ErrorStats {
	return rh.stats
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
