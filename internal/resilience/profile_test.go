package resilience

import (
	"testing"
	"time"

	"authrelay/internal/platform/config"
)

func TestProfileShapeAcrossEnvironments(t *testing.T) {
	prod := ProfileFor(EnvProd)
	local := ProfileFor(EnvLocal)

	// latency-sensitive tiers fail fast
	if prod.MaxRetries >= local.MaxRetries {
		t.Fatalf("prod retries (%d) should be fewer than local (%d)", prod.MaxRetries, local.MaxRetries)
	}
	if prod.MaxDelay >= local.MaxDelay {
		t.Fatalf("prod delay cap (%v) should be shorter than local (%v)", prod.MaxDelay, local.MaxDelay)
	}
	if prod.ReadTimeout >= local.ReadTimeout {
		t.Fatalf("prod read timeout (%v) should be shorter than local (%v)", prod.ReadTimeout, local.ReadTimeout)
	}
}

func TestProfileForUnknownEnvFallsBackToDev(t *testing.T) {
	p := ProfileFor("qa-17")
	if p.Environment != "qa-17" {
		t.Fatalf("environment = %q", p.Environment)
	}
	dev := ProfileFor(EnvDev)
	if p.MaxRetries != dev.MaxRetries || p.BaseDelay != dev.BaseDelay {
		t.Fatalf("fallback profile differs from dev: %+v", p)
	}
}

func TestBackoffExponentialWithCap(t *testing.T) {
	p := Profile{BaseDelay: 100 * time.Millisecond, MaxDelay: 1 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second}, // capped
		{10, 1 * time.Second},
		{64, 1 * time.Second}, // overflow guard
		{-1, 100 * time.Millisecond},
	}
	for _, c := range cases {
		if got := p.Backoff(c.attempt); got != c.want {
			t.Fatalf("Backoff(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestProfileFromConfigOverrides(t *testing.T) {
	t.Setenv("TESTRES_ENV", "prod")
	t.Setenv("TESTRES_MAX_RETRIES", "4")
	t.Setenv("TESTRES_MAX_DELAY", "2s")

	p, err := ProfileFromConfig(config.New().Prefix("TESTRES_"))
	if err != nil {
		t.Fatalf("ProfileFromConfig: %v", err)
	}
	if p.Environment != EnvProd {
		t.Fatalf("environment = %q", p.Environment)
	}
	if p.MaxRetries != 4 {
		t.Fatalf("max retries = %d", p.MaxRetries)
	}
	if p.MaxDelay != 2*time.Second {
		t.Fatalf("max delay = %v", p.MaxDelay)
	}
	// untouched keys keep the prod defaults
	if p.ConnectTimeout != ProfileFor(EnvProd).ConnectTimeout {
		t.Fatalf("connect timeout = %v", p.ConnectTimeout)
	}
}

func TestProfileFromConfigRejectsInvalidOverrides(t *testing.T) {
	t.Setenv("TESTBAD_ENV", "prod")
	t.Setenv("TESTBAD_MAX_RETRIES", "99")

	if _, err := ProfileFromConfig(config.New().Prefix("TESTBAD_")); err == nil {
		t.Fatalf("expected validation error for max_retries=99")
	}
}
