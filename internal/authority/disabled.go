package authority

import (
	"context"

	perr "authrelay/internal/platform/errors"
	"authrelay/internal/platform/logger"
)

// Disabled is the configuration-gated stand-in for environments without a
// real authority (local dev, CI). Every validation is deterministically
// invalid and lifecycle operations fail with NotConfigured, so a disabled
// deployment can never mint or accept credentials by accident
type Disabled struct{}

var _ Authority = Disabled{}

// NewDisabled returns the disabled-mode authority and logs loudly about it
func NewDisabled() Disabled {
	logger.Named("authority").Warn().Msg("authority disabled; all validations return invalid")
	return Disabled{}
}

// Validate always reports the token invalid
func (Disabled) Validate(context.Context, string) (ValidationResult, error) {
	return ValidationResult{Valid: false, ErrorCode: "authority_disabled"}, nil
}

// ValidateService always reports the token invalid
func (Disabled) ValidateService(context.Context, string, string) (ValidationResult, error) {
	return ValidationResult{Valid: false, ErrorCode: "authority_disabled"}, nil
}

// CreateToken is unavailable in disabled mode
func (Disabled) CreateToken(context.Context, map[string]any) (TokenGrant, error) {
	return TokenGrant{}, perr.NotConfiguredf("authority disabled")
}

// Refresh is unavailable in disabled mode
func (Disabled) Refresh(context.Context, string) (TokenGrant, error) {
	return TokenGrant{}, perr.NotConfiguredf("authority disabled")
}

// Revoke is a no-op in disabled mode
func (Disabled) Revoke(context.Context, string, string) error { return nil }

// Ping reports the authority as unreachable
func (Disabled) Ping(context.Context) error {
	return perr.NotConfiguredf("authority disabled")
}

// Close is a no-op
func (Disabled) Close() {}
