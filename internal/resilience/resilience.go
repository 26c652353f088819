package resilience

import (
	"context"
	"time"

	"authrelay/internal/authority"
	perr "authrelay/internal/platform/errors"
	"authrelay/internal/platform/logger"
	"authrelay/internal/tokencache"
)

// Orchestrator wraps the delegation client with the token cache, the
// circuit breaker, and profile-driven retry/backoff. Each validation runs
// on its caller's goroutine; backoff sleeps are local to the call and
// honor context cancellation
type Orchestrator struct {
	auth    authority.Authority
	cache   tokencache.Cache
	breaker *Breaker
	profile Profile
	log     logger.Logger

	sleep func(ctx context.Context, d time.Duration) error // seam for tests
}

// NewOrchestrator wires the resilience layer. cache may be nil to disable caching
func NewOrchestrator(auth authority.Authority, cache tokencache.Cache, breaker *Breaker, profile Profile) *Orchestrator {
	if cache == nil {
		cache = tokencache.Nop{}
	}
	if breaker == nil {
		breaker = NewBreaker(BreakerOptions{})
	}
	return &Orchestrator{
		auth:    auth,
		cache:   cache,
		breaker: breaker,
		profile: profile,
		log:     *logger.Named("resilience"),
		sleep:   sleepCtx,
	}
}

// Profile returns the active resilience profile
func (o *Orchestrator) Profile() Profile { return o.profile }

// Breaker exposes the breaker for health snapshots
func (o *Orchestrator) Breaker() *Breaker { return o.breaker }

// Validate resolves a user token to a validation result, consulting the
// cache first. attempts reports remote calls made: 0 on a cache hit
func (o *Orchestrator) Validate(ctx context.Context, token string) (authority.ValidationResult, int, error) {
	key := tokencache.Key(token)
	return o.validate(ctx, key, func(ctx context.Context) (authority.ValidationResult, error) {
		return o.auth.Validate(ctx, token)
	})
}

// ValidateService resolves a service token on the authority's service
// endpoint, sharing the same cache, breaker, and retry semantics
func (o *Orchestrator) ValidateService(ctx context.Context, token, serviceName string) (authority.ValidationResult, int, error) {
	key := tokencache.ServiceKey(serviceName, token)
	return o.validate(ctx, key, func(ctx context.Context) (authority.ValidationResult, error) {
		return o.auth.ValidateService(ctx, token, serviceName)
	})
}

// validate is the shared retry loop. Retryable failures back off
// exponentially up to profile.MaxRetries; rejections return immediately.
// Only valid results are cached
func (o *Orchestrator) validate(
	ctx context.Context,
	key string,
	call func(ctx context.Context) (authority.ValidationResult, error),
) (authority.ValidationResult, int, error) {
	if res, ok := o.cache.Get(ctx, key); ok {
		return res, 0, nil
	}

	attempts := 0
	for {
		var res authority.ValidationResult
		err := o.breaker.Do(func() error {
			var callErr error
			res, callErr = call(ctx)
			return callErr
		})
		attempts++

		if err == nil {
			if res.Valid {
				o.cache.Put(ctx, key, res)
			}
			return res, attempts, nil
		}

		if !perr.Retryable(err) || attempts > o.profile.MaxRetries {
			return authority.ValidationResult{}, attempts, err
		}

		back := o.profile.Backoff(attempts - 1)
		o.log.Warn().
			Dur("retry_in", back).
			Int("attempt", attempts).
			Str("code", perr.CodeOf(err).String()).
			Msg("validation failed, retrying")
		if serr := o.sleep(ctx, back); serr != nil {
			return authority.ValidationResult{}, attempts, perr.Wrap(serr, perr.ErrorCodeTimeout, "validation canceled during backoff")
		}
	}
}

// CreateToken delegates token creation behind the breaker (no retries:
// minting is not known to be idempotent)
func (o *Orchestrator) CreateToken(ctx context.Context, claims map[string]any) (authority.TokenGrant, error) {
	var grant authority.TokenGrant
	err := o.breaker.Do(func() error {
		var callErr error
		grant, callErr = o.auth.CreateToken(ctx, claims)
		return callErr
	})
	return grant, err
}

// Refresh delegates token refresh behind the breaker
func (o *Orchestrator) Refresh(ctx context.Context, refreshToken string) (authority.TokenGrant, error) {
	var grant authority.TokenGrant
	err := o.breaker.Do(func() error {
		var callErr error
		grant, callErr = o.auth.Refresh(ctx, refreshToken)
		return callErr
	})
	return grant, err
}

// Revoke revokes the token remotely and drops it from the cache so a
// cached "valid" can never outlive an explicit revoke
func (o *Orchestrator) Revoke(ctx context.Context, token, sessionID string) error {
	err := o.breaker.Do(func() error {
		return o.auth.Revoke(ctx, token, sessionID)
	})
	o.cache.Invalidate(ctx, tokencache.Key(token))
	return err
}

// Ping probes the authority directly, bypassing cache and retries
func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.auth.Ping(ctx)
}

// sleepCtx sleeps for d unless ctx is done first
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
