package domain

import (
	"fmt"
	"math"
	"time"
)

// RetryPolicy bounds how a lookup is retried. Both the Temporal workflow and
// the in-process orchestrator are driven by it.
type RetryPolicy struct {
	InitialInterval     time.Duration `mapstructure:"initial_interval"`
	BackoffCoefficient  float64       `mapstructure:"backoff_coefficient"`
	MaximumInterval     time.Duration `mapstructure:"maximum_interval"`
	MaximumAttempts     int           `mapstructure:"maximum_attempts"`
	StartToCloseTimeout time.Duration `mapstructure:"start_to_close_timeout"`
}

// DefaultRetryPolicy: 1s initial, x2, capped at 10s, 3 attempts in total, 60s
// per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval:     time.Second,
		BackoffCoefficient:  2.0,
		MaximumInterval:     10 * time.Second,
		MaximumAttempts:     3,
		StartToCloseTimeout: 60 * time.Second,
	}
}

func (p RetryPolicy) Validate() error {
	if p.MaximumAttempts < 1 {
		return fmt.Errorf("maximum_attempts must be at least 1, got %d", p.MaximumAttempts)
	}
	if p.InitialInterval < 0 || p.MaximumInterval < 0 {
		return fmt.Errorf("retry intervals must not be negative")
	}
	if p.BackoffCoefficient < 1 {
		return fmt.Errorf("backoff_coefficient must be at least 1, got %v", p.BackoffCoefficient)
	}
	if p.StartToCloseTimeout <= 0 {
		return fmt.Errorf("start_to_close_timeout must be positive")
	}
	return nil
}

// Backoff returns the wait after the given failed attempt (1-based):
// InitialInterval * BackoffCoefficient^(attempt-1), capped at MaximumInterval.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.InitialInterval) * math.Pow(p.BackoffCoefficient, float64(attempt-1))
	if p.MaximumInterval > 0 && d > float64(p.MaximumInterval) {
		d = float64(p.MaximumInterval)
	}
	return time.Duration(d)
}
