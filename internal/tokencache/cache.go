// Package tokencache provides the short-TTL store mapping a token to its
// last validation result. Keys are non-reversible digests; the cache never
// holds a raw credential
package tokencache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"authrelay/internal/authority"
)

// Cache is the token cache contract. TTL is fixed per deployment and owned
// by the implementation. A miss (or a broken backend) is never an error:
// callers fall through to a fresh remote validation
type Cache interface {
	Get(ctx context.Context, key string) (authority.ValidationResult, bool)
	Put(ctx context.Context, key string, res authority.ValidationResult)
	Invalidate(ctx context.Context, key string)
}

// Key derives the non-reversible cache key for a user token
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ServiceKey derives the cache key for a service token, namespaced by the
// service name so results for different services never collide
func ServiceKey(serviceName, token string) string {
	sum := sha256.Sum256([]byte("svc\x00" + serviceName + "\x00" + token))
	return hex.EncodeToString(sum[:])
}

// Nop is the cache used when caching is disabled by configuration
type Nop struct{}

var _ Cache = Nop{}

// Get always misses
func (Nop) Get(context.Context, string) (authority.ValidationResult, bool) {
	return authority.ValidationResult{}, false
}

// Put discards the result
func (Nop) Put(context.Context, string, authority.ValidationResult) {}

// Invalidate is a no-op
func (Nop) Invalidate(context.Context, string) {}
