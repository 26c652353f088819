// Package authx exposes the authentication facade over HTTP: credential
// validation, token lifecycle, health, and counters. Mounted under /auth
package authx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	perr "authrelay/internal/platform/errors"
	phttp "authrelay/internal/platform/net/http"
	"authrelay/internal/platform/net/http/bind"
	"authrelay/internal/relay"
)

// Module holds the handler set
type Module struct {
	relay *relay.Relay
}

// New builds the auth HTTP module over the facade
func New(rl *relay.Relay) *Module {
	return &Module{relay: rl}
}

// Mount registers the module's routes on r under /auth
func (m *Module) Mount(r chi.Router) {
	r.Route("/auth", func(rr chi.Router) {
		rr.Post("/validate", m.validate)
		rr.Post("/validate/service", m.validateService)
		rr.Post("/token", m.createToken)
		rr.Post("/refresh", m.refresh)
		rr.Post("/logout", m.logout)
		rr.Get("/health", m.health)
		rr.Get("/stats", m.stats)
	})
}

type validateReq struct {
	Token     string `json:"token" validate:"required"`
	Transport string `json:"transport"`
}

type validateServiceReq struct {
	Token   string `json:"token" validate:"required"`
	Service string `json:"service" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutReq struct {
	Token     string `json:"token" validate:"required"`
	SessionID string `json:"session_id"`
}

func (m *Module) validate(w http.ResponseWriter, r *http.Request) {
	req, err := bind.ParseJSON[validateReq](r)
	if err != nil {
		phttp.RespondErr(w, r, err)
		return
	}
	transport := relay.Transport(req.Transport)
	if transport == "" {
		transport = relay.TransportREST
	}

	out, derived := m.relay.Authenticate(r.Context(), req.Token, transport)
	phttp.RespondOK(w, r, map[string]any{
		"outcome": out,
		"context": derived,
	})
}

func (m *Module) validateService(w http.ResponseWriter, r *http.Request) {
	req, err := bind.ParseJSON[validateServiceReq](r)
	if err != nil {
		phttp.RespondErr(w, r, err)
		return
	}
	out := m.relay.ValidateServiceToken(r.Context(), req.Token, req.Service)
	phttp.RespondOK(w, r, out)
}

func (m *Module) createToken(w http.ResponseWriter, r *http.Request) {
	claims, err := bind.ParseJSON[map[string]any](r)
	if err != nil {
		phttp.RespondErr(w, r, err)
		return
	}
	grant, err := m.relay.CreateToken(r.Context(), claims)
	if err != nil {
		phttp.RespondErr(w, r, err)
		return
	}
	phttp.RespondOK(w, r, grant)
}

func (m *Module) refresh(w http.ResponseWriter, r *http.Request) {
	req, err := bind.ParseJSON[refreshReq](r)
	if err != nil {
		phttp.RespondErr(w, r, err)
		return
	}
	grant, err := m.relay.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		phttp.RespondErr(w, r, err)
		return
	}
	phttp.RespondOK(w, r, grant)
}

func (m *Module) logout(w http.ResponseWriter, r *http.Request) {
	req, err := bind.ParseJSON[logoutReq](r)
	if err != nil {
		phttp.RespondErr(w, r, err)
		return
	}
	if err := m.relay.Logout(r.Context(), req.Token, req.SessionID); err != nil {
		phttp.RespondErr(w, r, err)
		return
	}
	phttp.RespondNoContent(w, r)
}

func (m *Module) health(w http.ResponseWriter, r *http.Request) {
	h := m.relay.HealthCheck(r.Context())
	if h.Status == "unhealthy" {
		phttp.RespondErr(w, r, perr.Unavailablef("authority unreachable"))
		return
	}
	phttp.RespondOK(w, r, h)
}

func (m *Module) stats(w http.ResponseWriter, r *http.Request) {
	phttp.RespondOK(w, r, m.relay.Stats())
}
