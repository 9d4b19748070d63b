package publishing

import (
	"time"

	"Omnipost/internal/core/platforms"
)

// Config groups the dispatcher's tunable policy. Everything here is
// configuration, not behavior: retry counts, backoff shape, timeouts and
// pool size all come from the environment in cmd/server.
type Config struct {
	// Workers bounds how many jobs run concurrently across all accounts
	Workers int

	// MaxAttempts is the transient-failure retry budget per job
	MaxAttempts int

	// BaseBackoff and MaxBackoff shape the exponential retry delay
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// PollInterval is how often an idle worker loop looks for due jobs
	PollInterval time.Duration

	// SweepInterval is how often callback deadlines are checked
	SweepInterval time.Duration

	// CallbackTimeout is the default wait for an async platform's webhook.
	// These platforms legitimately take minutes.
	CallbackTimeout time.Duration

	// CallbackTimeoutByPlatform overrides the default per platform
	CallbackTimeoutByPlatform map[platforms.Platform]time.Duration

	// RatePerSecond and RateBurst bound outbound publish calls globally
	RatePerSecond float64
	RateBurst     int
}

// DefaultConfig returns the defaults used when the environment sets nothing
func DefaultConfig() Config {
	return Config{
		Workers:         8,
		MaxAttempts:     3,
		BaseBackoff:     2 * time.Second,
		MaxBackoff:      2 * time.Minute,
		PollInterval:    time.Second,
		SweepInterval:   30 * time.Second,
		CallbackTimeout: 15 * time.Minute,
		RatePerSecond:   10,
		RateBurst:       20,
	}
}

// callbackTimeout resolves the wait for one platform
func (c Config) callbackTimeout(p platforms.Platform) time.Duration {
	if t, ok := c.CallbackTimeoutByPlatform[p]; ok {
		return t
	}
	return c.CallbackTimeout
}
