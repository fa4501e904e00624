package resilience

import "time"

type Config struct {
	// MaxRetries is the number of attempts after the first one. Zero disables
	// retries; negative values fall back to the default.
	MaxRetries      int
	RetryBaseDelay  time.Duration
	RetryMaxBackoff time.Duration
	AttemptTimeout  time.Duration

	// RateLimitRPS throttles attempts before they are sent. Zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		RetryBaseDelay:  1 * time.Second,
		RetryMaxBackoff: 30 * time.Second,
		AttemptTimeout:  30 * time.Second,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.MaxRetries < 0 {
		out.MaxRetries = def.MaxRetries
	}
	if out.RetryBaseDelay <= 0 {
		out.RetryBaseDelay = def.RetryBaseDelay
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryBaseDelay {
		out.RetryMaxBackoff = out.RetryBaseDelay
	}
	if out.AttemptTimeout <= 0 {
		out.AttemptTimeout = def.AttemptTimeout
	}
	if out.RateLimitRPS > 0 && out.RateLimitBurst <= 0 {
		out.RateLimitBurst = 1
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}

// Backoff returns the wait before the retry that follows the given
// zero-indexed attempt: base * 2^attempt, capped at RetryMaxBackoff.
func (c Config) Backoff(attempt int) time.Duration {
	wait := c.RetryBaseDelay
	for i := 0; i < attempt; i++ {
		wait *= 2
		if wait >= c.RetryMaxBackoff {
			return c.RetryMaxBackoff
		}
	}
	if wait > c.RetryMaxBackoff {
		return c.RetryMaxBackoff
	}
	return wait
}
