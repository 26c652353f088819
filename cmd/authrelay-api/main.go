package main

import (
	"context"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"authrelay/internal/platform/config"
	"authrelay/internal/platform/logger"
	pnet "authrelay/internal/platform/net"
	phttp "authrelay/internal/platform/net/http"
	"authrelay/internal/platform/net/middleware"

	"authrelay/internal/authority"
	"authrelay/internal/relay"
	"authrelay/internal/resilience"
	"authrelay/internal/services/api/authx"
	"authrelay/internal/tokencache"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("AUTH_API_") // AUTH_API_PORT etc

	l := logger.Get()

	profile, err := resilience.ProfileFromConfig(root.Prefix("AUTH_RESILIENCE_"))
	if err != nil {
		l.Panic().Err(err).Msg("invalid resilience configuration")
	}
	l.Info().
		Str("environment", string(profile.Environment)).
		Int("max_retries", profile.MaxRetries).
		Msg("resilience profile loaded")

	auth := buildAuthority(root, profile)
	defer auth.Close()

	cache := buildCache(root)
	defer closeCache(cache)

	breakerCfg := root.Prefix("AUTH_BREAKER_")
	breaker := resilience.NewBreaker(resilience.BreakerOptions{
		FailureThreshold: breakerCfg.MayInt("FAILURE_THRESHOLD", 0),
		Cooldown:         breakerCfg.MayDuration("COOLDOWN", 0),
		HalfOpenProbes:   breakerCfg.MayInt("HALF_OPEN_PROBES", 0),
	})

	orch := resilience.NewOrchestrator(auth, cache, breaker, profile)
	rl := relay.New(orch, relay.NewStats(prometheus.DefaultRegisterer))

	middleware.RegisterHTTPMetrics(prometheus.DefaultRegisterer)

	srv := phttp.NewServer(apiCfg, func(m *chi.Mux) {
		for _, mw := range middleware.Defaults() {
			m.Use(mw)
		}
		m.Use(middleware.CORS(middleware.CORSOptions{}))
		m.Use(middleware.AccessLogZerolog(middleware.AccessLogOptions{
			Slow: apiCfg.MayDuration("SLOW_REQUEST", 2*time.Second),
		}))
		m.Use(middleware.Instrument)
		m.Use(middleware.Heartbeat("/ping"))

		m.Handle("/metrics", middleware.MetricsHandler())

		authx.New(rl).Mount(m)

		// sample protected surface showing the facade as HTTP middleware
		m.Group(func(g chi.Router) {
			g.Use(middleware.Auth(rl, phttp.JSON))
			g.Get("/me", whoami)
		})
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case <-ctx.Done():
		l.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			l.Panic().Err(err).Msg("http server stopped")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// buildAuthority selects the live client or disabled mode from config
func buildAuthority(root config.Conf, profile resilience.Profile) authority.Authority {
	cfg := root.Prefix("AUTH_AUTHORITY_")
	l := logger.Get()

	if !cfg.MayBool("ENABLED", true) {
		l.Warn().Msg("authority disabled; every credential will be rejected")
		return authority.Disabled{}
	}

	cfg.Require("SERVICE_ID", "SERVICE_SECRET")
	client, err := authority.NewClient(authority.Options{
		BaseURL:        cfg.MustURL("URL").String(),
		ServiceID:      cfg.MayString("SERVICE_ID", ""),
		ServiceSecret:  cfg.MayString("SERVICE_SECRET", ""),
		HealthPath:     cfg.MayString("HEALTH_PATH", ""),
		ConnectTimeout: profile.ConnectTimeout,
		ReadTimeout:    profile.ReadTimeout,
		WriteTimeout:   profile.WriteTimeout,
		PoolTimeout:    profile.PoolTimeout,
	})
	if err != nil {
		l.Panic().Err(err).Msg("authority client configuration invalid")
	}
	return client
}

// buildCache selects the token cache backend (AUTH_CACHE_BACKEND: memory|redis|off)
func buildCache(root config.Conf) tokencache.Cache {
	cfg := root.Prefix("AUTH_CACHE_")
	l := logger.Get()

	ttl := cfg.MayDuration("TTL", 30*time.Second)
	switch backend := cfg.MayString("BACKEND", "memory"); backend {
	case "off":
		return tokencache.Nop{}
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.MustString("REDIS_ADDR"),
			Password: cfg.MayString("REDIS_PASSWORD", ""),
			DB:       cfg.MayInt("REDIS_DB", 0),
		})
		return tokencache.NewRedis(tokencache.RedisOptions{
			Client:    rdb,
			KeyPrefix: cfg.MayString("REDIS_PREFIX", ""),
			TTL:       ttl,
		})
	case "memory":
		return tokencache.NewMemory(cfg.MayInt("SIZE", 4096), ttl)
	default:
		l.Panic().Str("backend", backend).Msg("unknown cache backend")
		return nil
	}
}

// closeCache releases backends that hold connections (Redis); in-memory
// and nop caches have nothing to release
func closeCache(c tokencache.Cache) {
	if closer, ok := c.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Get().Error().Err(err).Msg("token cache close failed")
		}
	}
}

// whoami echoes the identity the auth middleware put on context
func whoami(w http.ResponseWriter, r *http.Request) {
	phttp.RespondOK(w, r, map[string]any{
		"user_id": pnet.UserID(r.Context()),
		"run_id":  pnet.RunID(r.Context()),
	})
}
