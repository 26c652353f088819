package tokencache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"authrelay/internal/authority"
)

func TestKeyIsNonReversibleAndDistinct(t *testing.T) {
	k1 := Key("token-a")
	k2 := Key("token-b")
	if k1 == k2 {
		t.Fatalf("distinct tokens produced the same key")
	}
	if len(k1) != 64 {
		t.Fatalf("key length = %d, want 64 hex chars", len(k1))
	}
	if strings.Contains(k1, "token-a") {
		t.Fatalf("key leaks token material")
	}
	if Key("token-a") != k1 {
		t.Fatalf("key not deterministic")
	}
}

func TestServiceKeyNamespacing(t *testing.T) {
	if ServiceKey("billing", "tok") == ServiceKey("search", "tok") {
		t.Fatalf("same token for different services collided")
	}
	if ServiceKey("billing", "tok") == Key("tok") {
		t.Fatalf("service key collided with user key")
	}
}

func TestMemoryGetPutInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16, time.Minute)

	if _, ok := m.Get(ctx, Key("missing")); ok {
		t.Fatalf("unexpected hit")
	}

	res := authority.ValidationResult{Valid: true, UserID: "u1", Permissions: []string{"read"}}
	m.Put(ctx, Key("tok-a"), res)

	got, ok := m.Get(ctx, Key("tok-a"))
	if !ok || got.UserID != "u1" || !got.Valid {
		t.Fatalf("hit = %v %+v", ok, got)
	}

	// strict key correctness: a cached result for A is never returned for B
	if _, ok := m.Get(ctx, Key("tok-b")); ok {
		t.Fatalf("result for tok-a returned for tok-b")
	}

	m.Invalidate(ctx, Key("tok-a"))
	if _, ok := m.Get(ctx, Key("tok-a")); ok {
		t.Fatalf("hit after invalidate")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16, 50*time.Millisecond)

	m.Put(ctx, Key("tok"), authority.ValidationResult{Valid: true, UserID: "u1"})
	if _, ok := m.Get(ctx, Key("tok")); !ok {
		t.Fatalf("expected hit before expiry")
	}

	time.Sleep(80 * time.Millisecond)
	if _, ok := m.Get(ctx, Key("tok")); ok {
		t.Fatalf("hit after TTL elapsed")
	}
}

func TestMemoryConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(64, time.Minute)
	key := Key("shared")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Put(ctx, key, authority.ValidationResult{Valid: true, UserID: "u1"})
		}()
		go func() {
			defer wg.Done()
			if res, ok := m.Get(ctx, key); ok && res.UserID != "u1" {
				t.Errorf("read a result for a different token: %+v", res)
			}
		}()
	}
	wg.Wait()
}

func TestNopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}
	c.Put(ctx, "k", authority.ValidationResult{Valid: true})
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("nop cache returned a hit")
	}
}
