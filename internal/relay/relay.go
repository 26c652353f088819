// Package relay is the unified authentication facade. Every transport
// (REST handler, WebSocket upgrade, GraphQL resolver, RPC interceptor,
// internal service call) funnels its raw credential through here and gets
// back one normalized outcome plus a derived execution context. The facade
// owns format pre-checks, token extraction, statistics, and health; the
// actual credential decision is always delegated to the remote authority
package relay

import (
	"context"
	"net/http"
	"strings"
	"time"

	"authrelay/internal/authority"
	perr "authrelay/internal/platform/errors"
	"authrelay/internal/platform/logger"
	"authrelay/internal/resilience"
)

// Transport declares the wire context a credential arrived on
type Transport string

// Supported transports
const (
	TransportREST      Transport = "rest_api"
	TransportWebSocket Transport = "websocket"
	TransportGraphQL   Transport = "graphql"
	TransportRPC       Transport = "rpc"
	TransportInternal  Transport = "internal_service"
)

// Metadata carries per-call diagnostics on an outcome
type Metadata struct {
	Transport Transport     `json:"transport"`
	Method    string        `json:"method"`
	Attempts  int           `json:"attempts"`
	CacheHit  bool          `json:"cache_hit"`
	Elapsed   time.Duration `json:"elapsed"`
	// Checked lists the extraction methods tried on the WebSocket path
	Checked []string `json:"checked,omitempty"`
}

// Outcome is the facade-level result. Authentication failure is a normal,
// typed return, never a panic or a raw error to the original caller
type Outcome struct {
	Success     bool           `json:"success"`
	UserID      string         `json:"user_id,omitempty"`
	Email       string         `json:"email,omitempty"`
	Permissions []string       `json:"permissions,omitempty"`
	Code        perr.ErrorCode `json:"-"`
	CodeName    string         `json:"error_code,omitempty"`
	// Reason is the authority-supplied rejection code, when present
	Reason   string   `json:"reason,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Health is the facade health report
type Health struct {
	Status             string                  `json:"status"` // healthy|degraded|unhealthy
	AuthorityReachable bool                    `json:"authority_reachable"`
	Circuit            resilience.CircuitState `json:"circuit"`
	Timestamp          time.Time               `json:"timestamp"`
}

// Relay is the facade. Construct once at startup and share
type Relay struct {
	orch  *resilience.Orchestrator
	stats *Stats
	log   logger.Logger
}

// New builds the facade over an orchestrator. stats may be nil for callers
// that do not export metrics
func New(orch *resilience.Orchestrator, stats *Stats) *Relay {
	if stats == nil {
		stats = NewStats(nil)
	}
	return &Relay{
		orch:  orch,
		stats: stats,
		log:   *logger.Named("relay"),
	}
}

// WellFormed reports whether a credential has the minimal structural shape
// of a compact token: three non-empty dot-separated segments. This is a
// shape check only; no claim is ever decoded locally
func WellFormed(credential string) bool {
	if credential == "" {
		return false
	}
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// Authenticate validates a raw credential for the declared transport.
// The derived context is non-nil exactly when the outcome is a success
func (rl *Relay) Authenticate(ctx context.Context, credential string, transport Transport) (Outcome, *Derived) {
	out := rl.validate(ctx, credential, transport, "authenticate", nil)
	if !out.Success {
		return out, nil
	}
	return out, newDerived(out.UserID)
}

// AuthenticateWebSocket authenticates a WebSocket upgrade request, trying
// header, subprotocol, and query extraction in order. The derived context
// carries a connection id for the socket's lifetime
func (rl *Relay) AuthenticateWebSocket(ctx context.Context, r *http.Request) (Outcome, *Derived) {
	start := time.Now()
	token, method, checked := ExtractToken(r, WebSocketExtractors())
	if token == "" {
		out := rl.fail(perr.ErrorCodeNoToken, "", Metadata{
			Transport: TransportWebSocket,
			Method:    "authenticate_websocket",
			Checked:   checked,
			Elapsed:   time.Since(start),
		})
		rl.log.Warn().
			Strs("checked", checked).
			Msg("websocket upgrade carried no credential")
		return out, nil
	}

	out := rl.validate(ctx, token, TransportWebSocket, method, checked)
	if !out.Success {
		return out, nil
	}
	return out, newDerivedWS(out.UserID)
}

// ValidateServiceToken validates a service token for serviceName on the
// authority's service endpoint, sharing the resilience wrapper and the
// error taxonomy with the user path
func (rl *Relay) ValidateServiceToken(ctx context.Context, token, serviceName string) Outcome {
	start := time.Now()
	meta := Metadata{Transport: TransportInternal, Method: "validate_service_token"}

	if !WellFormed(token) {
		meta.Elapsed = time.Since(start)
		return rl.fail(perr.ErrorCodeInvalidFormat, "", meta)
	}

	res, attempts, err := rl.orch.ValidateService(ctx, token, serviceName)
	meta.Attempts = attempts
	meta.CacheHit = attempts == 0
	meta.Elapsed = time.Since(start)
	return rl.finish(res, err, meta, serviceName)
}

// CreateToken delegates token creation to the authority
func (rl *Relay) CreateToken(ctx context.Context, claims map[string]any) (authority.TokenGrant, error) {
	return rl.orch.CreateToken(ctx, claims)
}

// RefreshToken exchanges a refresh token for a new access token
func (rl *Relay) RefreshToken(ctx context.Context, refreshToken string) (authority.TokenGrant, error) {
	return rl.orch.Refresh(ctx, refreshToken)
}

// Logout revokes the token remotely and invalidates its cache entry
func (rl *Relay) Logout(ctx context.Context, token, sessionID string) error {
	return rl.orch.Revoke(ctx, token, sessionID)
}

// Stats returns a snapshot of the facade counters
func (rl *Relay) Stats() Snapshot { return rl.stats.Snapshot() }

// HealthCheck probes the authority and reports breaker state. An
// unreachable authority is unhealthy; a reachable one behind a non-closed
// breaker is degraded
func (rl *Relay) HealthCheck(ctx context.Context) Health {
	circuit := rl.orch.Breaker().State()
	reachable := rl.orch.Ping(ctx) == nil

	status := "healthy"
	switch {
	case !reachable:
		status = "unhealthy"
	case circuit.Phase != resilience.PhaseClosed:
		status = "degraded"
	}
	return Health{
		Status:             status,
		AuthorityReachable: reachable,
		Circuit:            circuit,
		Timestamp:          time.Now().UTC(),
	}
}

// Parse implements the HTTP auth middleware port: bearer extraction plus
// authentication on the REST transport
func (rl *Relay) Parse(ctx context.Context, r *http.Request) (string, string, error) {
	token := BearerFromHeader(r)
	if token == "" {
		rl.stats.record(TransportREST, "authenticate", false)
		return "", "", perr.NoTokenf("missing bearer token")
	}
	out, derived := rl.Authenticate(ctx, token, TransportREST)
	if !out.Success {
		return "", "", perr.New(out.Code, "authentication failed")
	}
	return derived.UserID, derived.RunID, nil
}

// validate is the shared pre-check + orchestrator + bookkeeping path
func (rl *Relay) validate(ctx context.Context, credential string, transport Transport, method string, checked []string) Outcome {
	start := time.Now()
	meta := Metadata{Transport: transport, Method: method, Checked: checked}

	if !WellFormed(credential) {
		meta.Elapsed = time.Since(start)
		return rl.fail(perr.ErrorCodeInvalidFormat, "", meta)
	}

	res, attempts, err := rl.orch.Validate(ctx, credential)
	meta.Attempts = attempts
	meta.CacheHit = attempts == 0
	meta.Elapsed = time.Since(start)
	return rl.finish(res, err, meta, "")
}

// finish folds the orchestrator result into an outcome and records stats
func (rl *Relay) finish(res authority.ValidationResult, err error, meta Metadata, subject string) Outcome {
	if err != nil {
		code := perr.CodeOf(err)
		rl.log.Error().
			Str("transport", string(meta.Transport)).
			Str("method", meta.Method).
			Str("code", code.String()).
			Int("attempts", meta.Attempts).
			Err(err).
			Msg("authentication errored")
		return rl.fail(code, "", meta)
	}
	if !res.Valid {
		return rl.fail(perr.ErrorCodeUnauthorized, res.ErrorCode, meta)
	}

	rl.stats.record(meta.Transport, meta.Method, true)
	return Outcome{
		Success:     true,
		UserID:      res.UserID,
		Email:       res.Email,
		Permissions: res.Permissions,
		Metadata:    meta,
	}
}

// fail builds a failure outcome and records stats
func (rl *Relay) fail(code perr.ErrorCode, reason string, meta Metadata) Outcome {
	rl.stats.record(meta.Transport, meta.Method, false)
	return Outcome{
		Success:  false,
		Code:     code,
		CodeName: code.String(),
		Reason:   reason,
		Metadata: meta,
	}
}
