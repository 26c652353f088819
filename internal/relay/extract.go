package relay

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// wsProtocolPrefix marks the subprotocol entry carrying a base64url token
// during a WebSocket upgrade, e.g. "bearer.eyJhbGciOi..."
const wsProtocolPrefix = "bearer."

// wsQueryParam is the query-string fallback for clients that cannot set headers
const wsQueryParam = "access_token"

// Extractor pulls a token out of an upgrade/request, returning "" on no match.
// Extractors are tried in order; the first non-empty token wins
type Extractor struct {
	Name string
	Fn   func(r *http.Request) string
}

// ExtractToken runs the extractors in order. checked always lists every
// method name tried up to and including the winner, for diagnostics
func ExtractToken(r *http.Request, extractors []Extractor) (token, method string, checked []string) {
	for _, ex := range extractors {
		checked = append(checked, ex.Name)
		if tok := ex.Fn(r); tok != "" {
			return tok, ex.Name, checked
		}
	}
	return "", "", checked
}

// WebSocketExtractors returns the ordered extraction chain for upgrade
// requests: standard bearer header, then subprotocol, then query parameter
func WebSocketExtractors() []Extractor {
	return []Extractor{
		{Name: "authorization_header", Fn: BearerFromHeader},
		{Name: "subprotocol", Fn: tokenFromSubprotocol},
		{Name: "query_param", Fn: tokenFromQuery},
	}
}

// BearerFromHeader returns the bearer token from the Authorization header,
// or "" when the header is missing or not a bearer scheme
func BearerFromHeader(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return ""
	}
	const prefix = "bearer "
	if len(authz) < len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authz[len(prefix):])
}

// tokenFromSubprotocol scans Sec-WebSocket-Protocol entries for the
// recognizable prefix and base64url-decodes the remainder
func tokenFromSubprotocol(r *http.Request) string {
	for _, header := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, proto := range strings.Split(header, ",") {
			proto = strings.TrimSpace(proto)
			if !strings.HasPrefix(proto, wsProtocolPrefix) {
				continue
			}
			raw, err := base64.RawURLEncoding.DecodeString(proto[len(wsProtocolPrefix):])
			if err != nil {
				continue
			}
			if tok := strings.TrimSpace(string(raw)); tok != "" {
				return tok
			}
		}
	}
	return ""
}

// tokenFromQuery is the last-resort extraction for clients that can set
// neither headers nor subprotocols
func tokenFromQuery(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get(wsQueryParam))
}
