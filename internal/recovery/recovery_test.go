package recovery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-bot/internal/errors"
)

func newTestHandler(attempts int) (*RecoveryHandler, *[]time.Duration) {
	rh := NewRecoveryHandler(BackoffConfig{MaxAttempts: attempts, BaseDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}, nil)
	var slept []time.Duration
	rh.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return rh, &slept
}

func TestExecuteWithRecovery(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
		category  errors.ErrorCategory
	}{
		{"succeeds first time", nil, 1, false, ""},
		{"recovers from a lock", []error{fmt.Errorf("database is locked")}, 2, false, ""},
		{"gives up after attempts", []error{fmt.Errorf("network down"), fmt.Errorf("network down"), fmt.Errorf("network down"), fmt.Errorf("network down")}, 3, true, errors.ErrorCategoryNetwork},
		{"skips validation errors", []error{fmt.Errorf("invalid quantity")}, 1, true, errors.ErrorCategoryValidation},
		{"stops on configuration errors", []error{errors.NewConfigurationError("store", "open", "bad path")}, 1, true, errors.ErrorCategoryConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rh, _ := newTestHandler(3)
			calls := 0
			err := rh.ExecuteWithRecovery(context.Background(), "store", "save", func(context.Context) error {
				calls++
				if calls <= len(tt.errs) {
					return tt.errs[calls-1]
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.category, errors.CategoryOf(err))
		})
	}
}

func TestDelayBacksOffToCap(t *testing.T) {
	rh, slept := newTestHandler(5)
	_ = rh.ExecuteWithRecovery(context.Background(), "data", "fetch", func(context.Context) error {
		return fmt.Errorf("connection reset")
	})
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, *slept)
	assert.Equal(t, 5, rh.GetErrorStats().TotalErrors)
	assert.Equal(t, 1.0, rh.GetErrorStats().GetErrorRate(errors.ErrorCategoryNetwork))
}

func TestCancelledWait(t *testing.T) {
	rh := NewRecoveryHandler(BackoffConfig{MaxAttempts: 3, BaseDelay: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rh.ExecuteWithRecovery(ctx, "data", "fetch", func(context.Context) error {
		return fmt.Errorf("timeout")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJitterStaysBetweenBaseAndBackoff(t *testing.T) {
	rh := NewRecoveryHandler(BackoffConfig{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: time.Minute, Multiplier: 2, Jitter: true}, nil)
	for i := 0; i < 20; i++ {
		d := rh.Delay(3)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 4*time.Second)
	}
}
