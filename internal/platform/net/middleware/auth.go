package middleware

import (
	"context"
	"net/http"

	pnet "authrelay/internal/platform/net"
)

// AuthPort is the seam the authentication facade implements for HTTP traffic.
// Parse returns the authenticated user id and a fresh run id for the request
type AuthPort interface {
	Parse(ctx context.Context, r *http.Request) (userID string, runID string, err error)
}

// Auth guards routes behind the port. Requests the port rejects are answered
// with the mapped error envelope; accepted ones continue with identity on context
func Auth(p AuthPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			uid, runID, err := p.Parse(r.Context(), r)
			if err != nil {
				status, body := pnet.Error(err, pnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			ctx := pnet.WithUser(r.Context(), uid)
			ctx = pnet.WithRun(ctx, runID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
