// Package authority implements the delegation client for the remote
// authentication authority. The client builds one HTTPS call per operation,
// signs it with service credentials, and parses the JSON envelope into a
// typed result. It never verifies a signature or decodes a claim locally
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	stdnet "net"
	"net/http"
	"time"

	perr "authrelay/internal/platform/errors"
	"authrelay/internal/platform/logger"
)

const (
	defaultUA             = "authrelay"
	defaultConnectTimeout = 2 * time.Second
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 5 * time.Second
	defaultPoolTimeout    = 90 * time.Second
	defaultHealthPath     = "/health"
)

// authority endpoints per the remote contract
const (
	pathValidate        = "/validate"
	pathValidateService = "/validate/service"
	pathToken           = "/token"
	pathRefresh         = "/refresh"
	pathLogout          = "/logout"
)

// service identity headers attached to every outbound call
const (
	headerServiceID     = "X-Service-ID"
	headerServiceSecret = "X-Service-Secret"
)

// Options configures the Client
type Options struct {
	// BaseURL of the authority, e.g. https://auth.internal:8443
	BaseURL string

	// ServiceID and ServiceSecret identify this process to the authority.
	// Both are required; user tokens are never used for service identity
	ServiceID     string
	ServiceSecret string

	UserAgent  string
	HealthPath string

	// Timeout budgets, normally taken from the active resilience profile
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PoolTimeout    time.Duration
}

// Client is the HTTP delegation client. One instance per process; safe for
// concurrent use. Retries are the resilience orchestrator's job, every
// method here issues exactly one remote call
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

var _ Authority = (*Client)(nil)

// NewClient builds a Client or fails with a NotConfigured error when the
// authority URL or the service credentials are missing. Misconfiguration is
// surfaced at construction, never silently degraded
func NewClient(o Options) (*Client, error) {
	if o.BaseURL == "" {
		return nil, perr.NotConfiguredf("authority base URL not configured")
	}
	if o.ServiceID == "" || o.ServiceSecret == "" {
		return nil, perr.NotConfiguredf("service credentials not configured")
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.HealthPath == "" {
		o.HealthPath = defaultHealthPath
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.PoolTimeout <= 0 {
		o.PoolTimeout = defaultPoolTimeout
	}

	transport := &http.Transport{
		DialContext: (&stdnet.Dialer{
			Timeout: o.ConnectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: o.ReadTimeout,
		TLSHandshakeTimeout:   o.ConnectTimeout,
		IdleConnTimeout:       o.PoolTimeout,
		MaxIdleConnsPerHost:   8,
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   o.ConnectTimeout + o.ReadTimeout + o.WriteTimeout,
		},
		opts: o,
		log:  *logger.Named("authority"),
	}, nil
}

// Validate asks the authority to validate a user token.
// A reachable authority that rejects the token yields Valid=false, not an error
func (c *Client) Validate(ctx context.Context, token string) (ValidationResult, error) {
	var env validateResponse
	if err := c.do(ctx, pathValidate, validateRequest{Token: token}, &env); err != nil {
		return ValidationResult{}, perr.WithOp(err, "validate")
	}
	return fromEnvelope(env), nil
}

// ValidateService validates a service token for serviceName on a distinct endpoint
func (c *Client) ValidateService(ctx context.Context, token, serviceName string) (ValidationResult, error) {
	var env validateResponse
	req := serviceValidateRequest{Token: token, Service: serviceName}
	if err := c.do(ctx, pathValidateService, req, &env); err != nil {
		return ValidationResult{}, perr.WithOp(err, "validate_service")
	}
	return fromEnvelope(env), nil
}

// CreateToken asks the authority to mint a token for the given claims
func (c *Client) CreateToken(ctx context.Context, claims map[string]any) (TokenGrant, error) {
	var grant TokenGrant
	if err := c.do(ctx, pathToken, claims, &grant); err != nil {
		return TokenGrant{}, perr.WithOp(err, "create_token")
	}
	return grant, nil
}

// Refresh exchanges a refresh token for a new access token
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenGrant, error) {
	var grant TokenGrant
	if err := c.do(ctx, pathRefresh, refreshRequest{RefreshToken: refreshToken}, &grant); err != nil {
		return TokenGrant{}, perr.WithOp(err, "refresh")
	}
	return grant, nil
}

// Revoke invalidates a token (and optionally a session) at the authority
func (c *Client) Revoke(ctx context.Context, token, sessionID string) error {
	if err := c.do(ctx, pathLogout, logoutRequest{Token: token, SessionID: sessionID}, nil); err != nil {
		return perr.WithOp(err, "revoke")
	}
	return nil
}

// Ping probes authority reachability with a single GET
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+c.opts.HealthPath, nil)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "authority ping request failed")
	}
	c.sign(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode >= 500 {
		return perr.Unavailablef("authority unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Close releases pooled connections on shutdown
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// do issues one signed POST and decodes the response envelope into out.
// Classification is structural: transport and 5xx failures are retryable
// codes, 4xx is a rejection, malformed bodies are JSON errors
func (c *Client) do(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "authority request encode failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "authority request build failed")
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	lat := time.Since(start)
	if err != nil {
		return classifyTransport(err)
	}
	defer drainAndClose(resp.Body)

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Msg("authority response")

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
			return perr.Wrap(err, perr.ErrorCodeJSON, "authority envelope malformed")
		}
		return nil
	case resp.StatusCode == http.StatusRequestTimeout:
		return perr.Timeoutf("authority timed out the request")
	case resp.StatusCode == http.StatusTooManyRequests:
		return perr.Newf(perr.ErrorCodeTooManyRequests, "authority rate limited")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return perr.Unauthorizedf("authority rejected the request: status %d", resp.StatusCode)
	default:
		return perr.Unavailablef("authority server error: status %d", resp.StatusCode)
	}
}

// sign attaches the service identity headers and user agent
func (c *Client) sign(req *http.Request) {
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set(headerServiceID, c.opts.ServiceID)
	req.Header.Set(headerServiceSecret, c.opts.ServiceSecret)
}

// classifyTransport maps transport failures onto retryable codes
func classifyTransport(err error) error {
	var ne stdnet.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return perr.Wrap(err, perr.ErrorCodeTimeout, "authority call timed out")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return perr.Wrap(err, perr.ErrorCodeTimeout, "authority call timed out")
	}
	return perr.Wrap(err, perr.ErrorCodeUnavailable, "authority unreachable")
}

func fromEnvelope(env validateResponse) ValidationResult {
	return ValidationResult{
		Valid:       env.Valid,
		UserID:      env.UserID,
		Email:       env.Email,
		Permissions: env.Permissions,
		ErrorCode:   env.Error,
		RawClaims:   env.Claims,
	}
}

func drainAndClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 4096))
	_ = rc.Close()
}
