// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"time"
)

// Reset periods for sequence keys.
const (
	ResetNever = "never"
	ResetYear  = "year"
	ResetMonth = "month"
)

// DefaultPadWidth is the minimum number width when Config.PadWidth is zero.
const DefaultPadWidth = 4

// Config holds numbering configuration for one sequence domain.
type Config struct {
	// Prefix added to formatted numbers (e.g., "OS" -> "OS-0042"). Optional.
	Prefix string `yaml:"prefix"`

	// PadWidth is the minimum number width (default 4)
	PadWidth int `yaml:"pad_width"`

	// InitialValue is the counter value stored on initialization.
	// The first issued number is InitialValue+1.
	InitialValue int64 `yaml:"initial_value"`

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string `yaml:"reset_period"`
}

// DefaultConfig returns sensible defaults: 4 digits, seed 0, never reset.
func DefaultConfig() Config {
	return Config{
		PadWidth:    DefaultPadWidth,
		ResetPeriod: ResetNever,
	}
}

// RetryPolicy bounds how an allocation is retried on transient failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of transaction attempts (>= 1)
	MaxAttempts int

	// Backoff returns the delay before the given retry (attempt starts at 1).
	// Nil means no delay.
	Backoff BackoffFunc
}

// BackoffFunc computes the wait before retry number attempt.
type BackoffFunc func(attempt int) time.Duration

// DefaultRetryPolicy returns 3 attempts with a fixed 1s delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     FixedBackoff(time.Second),
	}
}

// Delay returns the wait before the given retry.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}

// Attempts returns MaxAttempts, treating non-positive values as 1.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// FixedBackoff waits the same duration before every retry.
func FixedBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff doubles the delay on each retry, capped at max.
func ExponentialBackoff(base, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		return d
	}
}
