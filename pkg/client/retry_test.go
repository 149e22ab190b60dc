package client

import (
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxRetries != 8 {
		t.Errorf("MaxRetries = %d, want 8", cfg.MaxRetries)
	}
	if cfg.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", cfg.InitialBackoff)
	}
	if cfg.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", cfg.MaxBackoff)
	}
	if cfg.JitterFactor != 0.3 {
		t.Errorf("JitterFactor = %v, want 0.3", cfg.JitterFactor)
	}
}

func TestRetryConfig_WithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   RetryConfig
		want RetryConfig
	}{
		{
			name: "zero value gets all defaults",
			in:   RetryConfig{},
			want: DefaultRetryConfig(),
		},
		{
			name: "explicit values survive",
			in: RetryConfig{
				MaxRetries:     2,
				InitialBackoff: 10 * time.Millisecond,
				MaxBackoff:     100 * time.Millisecond,
				JitterFactor:   0.1,
			},
			want: RetryConfig{
				MaxRetries:     2,
				InitialBackoff: 10 * time.Millisecond,
				MaxBackoff:     100 * time.Millisecond,
				JitterFactor:   0.1,
			},
		},
		{
			name: "partial config fills gaps only",
			in:   RetryConfig{MaxRetries: 3},
			want: RetryConfig{
				MaxRetries:     3,
				InitialBackoff: 1 * time.Second,
				MaxBackoff:     30 * time.Second,
				JitterFactor:   0.3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.withDefaults(); got != tt.want {
				t.Errorf("withDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBackoffDelay_ExponentialWithJitter(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		JitterFactor:   0.3,
	}

	tests := []struct {
		name    string
		attempt int
		base    time.Duration
	}{
		{name: "attempt 0", attempt: 0, base: 1 * time.Second},
		{name: "attempt 1", attempt: 1, base: 2 * time.Second},
		{name: "attempt 3", attempt: 3, base: 8 * time.Second},
		{name: "attempt 5 capped", attempt: 5, base: 30 * time.Second},
		{name: "attempt 10 capped", attempt: 10, base: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo := time.Duration(float64(tt.base) * (1 - cfg.JitterFactor))
			hi := time.Duration(float64(tt.base) * (1 + cfg.JitterFactor))

			// Jitter is random; sample enough times to catch a bounds bug.
			for i := 0; i < 100; i++ {
				delay := cfg.backoffDelay(tt.attempt, 0, false)
				if delay < lo || delay > hi {
					t.Fatalf("backoffDelay(%d) = %v, want in [%v, %v]", tt.attempt, delay, lo, hi)
				}
			}
		})
	}
}

func TestBackoffDelay_ServerDirected(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		JitterFactor:   0.3,
	}

	// Retry-After replaces the exponential base verbatim, even above the
	// backoff cap. Jitter still applies.
	serverDelay := 60 * time.Second
	lo := time.Duration(float64(serverDelay) * (1 - cfg.JitterFactor))
	hi := time.Duration(float64(serverDelay) * (1 + cfg.JitterFactor))

	for i := 0; i < 100; i++ {
		delay := cfg.backoffDelay(7, serverDelay, true)
		if delay < lo || delay > hi {
			t.Fatalf("backoffDelay with Retry-After = %v, want in [%v, %v]", delay, lo, hi)
		}
	}
}

func TestBackoffDelay_NeverNegative(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		JitterFactor:   0.3,
	}

	for attempt := 0; attempt < 64; attempt++ {
		if delay := cfg.backoffDelay(attempt, 0, false); delay < 0 {
			t.Fatalf("backoffDelay(%d) = %v, want >= 0", attempt, delay)
		}
	}
}
