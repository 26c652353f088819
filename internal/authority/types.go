package authority

import "context"

// ValidationResult is the outcome of validating one token with the authority.
// Immutable once returned; safe to cache and share
type ValidationResult struct {
	Valid       bool           `json:"valid"`
	UserID      string         `json:"user_id,omitempty"`
	Email       string         `json:"email,omitempty"`
	Permissions []string       `json:"permissions,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"`
	RawClaims   map[string]any `json:"raw_claims,omitempty"`
}

// TokenGrant is an access token issued or refreshed by the authority
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Authority is the delegation seam. Every credential decision is made by the
// remote authentication authority; nothing behind this interface verifies
// signatures or inspects claims locally
type Authority interface {
	// Validate asks the authority to validate a user token
	Validate(ctx context.Context, token string) (ValidationResult, error)
	// ValidateService asks the authority to validate a service token for serviceName
	ValidateService(ctx context.Context, token, serviceName string) (ValidationResult, error)
	// CreateToken asks the authority to mint a token for the given claims
	CreateToken(ctx context.Context, claims map[string]any) (TokenGrant, error)
	// Refresh exchanges a refresh token for a new access token
	Refresh(ctx context.Context, refreshToken string) (TokenGrant, error)
	// Revoke invalidates a token (and optionally a session) at the authority
	Revoke(ctx context.Context, token, sessionID string) error
	// Ping reports whether the authority is reachable
	Ping(ctx context.Context) error
	// Close releases pooled connections
	Close()
}

// wire envelopes for the authority's JSON contract

type validateRequest struct {
	Token string `json:"token"`
}

type serviceValidateRequest struct {
	Token   string `json:"token"`
	Service string `json:"service"`
}

type validateResponse struct {
	Valid       bool           `json:"valid"`
	UserID      string         `json:"user_id,omitempty"`
	Email       string         `json:"email,omitempty"`
	Permissions []string       `json:"permissions,omitempty"`
	Error       string         `json:"error,omitempty"`
	Claims      map[string]any `json:"claims,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id,omitempty"`
}
