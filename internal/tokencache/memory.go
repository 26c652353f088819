package tokencache

import (
	"context"
	"time"

	"authrelay/internal/authority"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMemorySize = 4096
	defaultMemoryTTL  = 30 * time.Second
)

// Memory is the in-process token cache backed by an expirable LRU.
// Reads never block writes to unrelated keys beyond the LRU's own lock,
// and expired entries are evicted lazily on read plus by the LRU's sweep
type Memory struct {
	lru *expirable.LRU[string, authority.ValidationResult]
}

var _ Cache = (*Memory)(nil)

// NewMemory builds an in-memory cache. size bounds resident entries, ttl is
// the deployment-fixed freshness window; zero values get defaults
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = defaultMemorySize
	}
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}
	return &Memory{lru: expirable.NewLRU[string, authority.ValidationResult](size, nil, ttl)}
}

// Get returns the cached result for key if present and fresh
func (m *Memory) Get(_ context.Context, key string) (authority.ValidationResult, bool) {
	return m.lru.Get(key)
}

// Put stores the result under key; last writer wins
func (m *Memory) Put(_ context.Context, key string, res authority.ValidationResult) {
	m.lru.Add(key, res)
}

// Invalidate drops key so a revoked token cannot outlive its revocation
func (m *Memory) Invalidate(_ context.Context, key string) {
	m.lru.Remove(key)
}
