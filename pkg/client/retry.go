package client

import (
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// InitialBackoff is the base delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration

	// JitterFactor J applies multiplicative jitter in [1-J, 1+J].
	JitterFactor float64
}

// DefaultRetryConfig returns the default retry configuration: 8 retries
// (9 attempts total) with exponential backoff capped at 30 seconds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     8,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		JitterFactor:   0.3,
	}
}

// withDefaults fills zero fields with defaults.
func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.JitterFactor <= 0 {
		c.JitterFactor = def.JitterFactor
	}
	return c
}

// backoffDelay computes the jittered delay before retry number attempt
// (0-based). A server-directed delay (Retry-After) replaces the exponential
// base when present; jitter applies either way.
func (c RetryConfig) backoffDelay(attempt int, serverDelay time.Duration, hasServerDelay bool) time.Duration {
	base := serverDelay
	if !hasServerDelay {
		base = time.Duration(float64(c.InitialBackoff) * math.Pow(2, float64(attempt)))
		if base > c.MaxBackoff || base <= 0 {
			base = c.MaxBackoff
		}
	}

	factor := 1 - c.JitterFactor + rand.Float64()*2*c.JitterFactor
	delay := time.Duration(float64(base) * factor)
	if delay < 0 {
		delay = 0
	}
	return delay
}
