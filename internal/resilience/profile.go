// Package resilience provides the per-environment tuning profiles, the
// process-wide circuit breaker, and the retrying orchestrator that wraps
// the delegation client
package resilience

import (
	"time"

	"authrelay/internal/platform/config"
	"authrelay/internal/platform/net/http/bind"
)

// Environment names a deployment tier
type Environment string

// Known environments, from most latency-sensitive to least
const (
	EnvProd    Environment = "prod"
	EnvStaging Environment = "staging"
	EnvDev     Environment = "dev"
	EnvLocal   Environment = "local"
)

// Profile is a named bundle of retry and timeout constants. Loaded once at
// startup and immutable thereafter; exact numbers are deployment tunables
// but the shape holds: the more latency-sensitive the environment, the
// fewer retries and the shorter the caps
type Profile struct {
	Environment Environment   `json:"environment" validate:"required"`
	MaxRetries  int           `json:"max_retries" validate:"min=0,max=10"`
	BaseDelay   time.Duration `json:"base_delay" validate:"gt=0"`
	MaxDelay    time.Duration `json:"max_delay" validate:"gtefield=BaseDelay"`

	ConnectTimeout time.Duration `json:"connect_timeout" validate:"gt=0"`
	ReadTimeout    time.Duration `json:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `json:"write_timeout" validate:"gt=0"`
	PoolTimeout    time.Duration `json:"pool_timeout" validate:"gt=0"`
}

// registry holds the built-in defaults per environment.
// prod fails fast: retries multiply worst-case latency by
// (maxRetries+1) x timeout plus backoff, so high-volume tiers
// get few attempts and tight caps
var registry = map[Environment]Profile{
	EnvProd: {
		Environment:    EnvProd,
		MaxRetries:     1,
		BaseDelay:      50 * time.Millisecond,
		MaxDelay:       250 * time.Millisecond,
		ConnectTimeout: 1 * time.Second,
		ReadTimeout:    2 * time.Second,
		WriteTimeout:   2 * time.Second,
		PoolTimeout:    60 * time.Second,
	},
	EnvStaging: {
		Environment:    EnvStaging,
		MaxRetries:     2,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       1 * time.Second,
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    3 * time.Second,
		WriteTimeout:   3 * time.Second,
		PoolTimeout:    90 * time.Second,
	},
	EnvDev: {
		Environment:    EnvDev,
		MaxRetries:     3,
		BaseDelay:      250 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		PoolTimeout:    90 * time.Second,
	},
	EnvLocal: {
		Environment:    EnvLocal,
		MaxRetries:     3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		PoolTimeout:    120 * time.Second,
	},
}

// ProfileFor returns the built-in profile for env, falling back to dev for
// unknown names
func ProfileFor(env Environment) Profile {
	if p, ok := registry[env]; ok {
		return p
	}
	p := registry[EnvDev]
	p.Environment = env
	return p
}

// ProfileFromConfig resolves the environment from cfg and applies per-key
// overrides (cfg scoped to the resilience namespace, e.g. AUTH_RESILIENCE_).
// The result is validated; an invalid override set is an error, not a
// silent fallback
func ProfileFromConfig(cfg config.Conf) (Profile, error) {
	env := Environment(cfg.MayString("ENV", string(EnvDev)))
	p := ProfileFor(env)

	p.MaxRetries = cfg.MayInt("MAX_RETRIES", p.MaxRetries)
	p.BaseDelay = cfg.MayDuration("BASE_DELAY", p.BaseDelay)
	p.MaxDelay = cfg.MayDuration("MAX_DELAY", p.MaxDelay)
	p.ConnectTimeout = cfg.MayDuration("CONNECT_TIMEOUT", p.ConnectTimeout)
	p.ReadTimeout = cfg.MayDuration("READ_TIMEOUT", p.ReadTimeout)
	p.WriteTimeout = cfg.MayDuration("WRITE_TIMEOUT", p.WriteTimeout)
	p.PoolTimeout = cfg.MayDuration("POOL_TIMEOUT", p.PoolTimeout)

	if err := bind.Struct(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Backoff returns the delay before the given retry attempt (0-based):
// min(base * 2^attempt, cap)
func (p Profile) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// shift with overflow guard
	if attempt > 32 {
		return p.MaxDelay
	}
	d := p.BaseDelay << uint(attempt)
	if d > p.MaxDelay || d <= 0 {
		return p.MaxDelay
	}
	return d
}
