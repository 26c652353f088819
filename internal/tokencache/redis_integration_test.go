//go:build integration_redis
// +build integration_redis

package tokencache

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"authrelay/internal/authority"
)

func startRedis(t *testing.T) (addr string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start redis container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "6379/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	addr = fmt.Sprintf("%s:%s", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return addr, stop
}

func TestRedisCache_RoundTrip_Integration(t *testing.T) {
	addr, stop := startRedis(t)
	defer stop()

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	cache := NewRedis(RedisOptions{Client: client, TTL: time.Minute})
	defer func() { _ = cache.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := Key("some.user.token")
	want := authority.ValidationResult{
		Valid:       true,
		UserID:      "u-1",
		Email:       "u@example.com",
		Permissions: []string{"read", "write"},
	}

	if _, ok := cache.Get(ctx, key); ok {
		t.Fatal("empty cache reported a hit")
	}

	cache.Put(ctx, key, want)
	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatal("expected a hit after put")
	}
	if got.UserID != want.UserID || got.Email != want.Email || len(got.Permissions) != 2 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}

	// distinct tokens never share an entry
	if _, ok := cache.Get(ctx, Key("another.user.token")); ok {
		t.Fatal("hit for a key that was never stored")
	}

	cache.Invalidate(ctx, key)
	if _, ok := cache.Get(ctx, key); ok {
		t.Fatal("hit after invalidate")
	}
}

func TestRedisCache_TTLExpiry_Integration(t *testing.T) {
	addr, stop := startRedis(t)
	defer stop()

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	cache := NewRedis(RedisOptions{Client: client, TTL: time.Second})
	defer func() { _ = cache.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := Key("expiring.user.token")
	cache.Put(ctx, key, authority.ValidationResult{Valid: true, UserID: "u-1"})

	if _, ok := cache.Get(ctx, key); !ok {
		t.Fatal("expected a hit inside the ttl window")
	}

	time.Sleep(1500 * time.Millisecond)
	if _, ok := cache.Get(ctx, key); ok {
		t.Fatal("hit after the ttl elapsed")
	}
}

func TestRedisCache_KeyPrefixNamespacing_Integration(t *testing.T) {
	addr, stop := startRedis(t)
	defer stop()

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	a := NewRedis(RedisOptions{Client: client, KeyPrefix: "a:", TTL: time.Minute})
	b := NewRedis(RedisOptions{Client: client, KeyPrefix: "b:", TTL: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := Key("shared.user.token")
	a.Put(ctx, key, authority.ValidationResult{Valid: true, UserID: "u-a"})

	if _, ok := b.Get(ctx, key); ok {
		t.Fatal("prefixes must isolate entries")
	}
	if got, ok := a.Get(ctx, key); !ok || got.UserID != "u-a" {
		t.Fatalf("owner prefix lost its entry: %+v", got)
	}
}

func TestRedisCache_BackendErrorDegradesToMiss_Integration(t *testing.T) {
	addr, stop := startRedis(t)

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	cache := NewRedis(RedisOptions{Client: client, TTL: time.Minute})
	defer func() { _ = cache.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := Key("soon.orphaned.token")
	cache.Put(ctx, key, authority.ValidationResult{Valid: true, UserID: "u-1"})

	// kill the backend out from under the cache
	stop()

	if _, ok := cache.Get(ctx, key); ok {
		t.Fatal("dead backend must read as a miss, not a hit")
	}
	// writes against the dead backend are swallowed, never an error or panic
	cache.Put(ctx, key, authority.ValidationResult{Valid: true, UserID: "u-2"})
	cache.Invalidate(ctx, key)
}
