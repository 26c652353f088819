package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	perr "authrelay/internal/platform/errors"
	pnet "authrelay/internal/platform/net"
)

type fakePort struct {
	userID string
	runID  string
	err    error
}

func (p fakePort) Parse(context.Context, *http.Request) (string, string, error) {
	return p.userID, p.runID, p.err
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestAuthPutsIdentityOnContext(t *testing.T) {
	var gotUser, gotRun string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = pnet.UserID(r.Context())
		gotRun = pnet.RunID(r.Context())
	})

	h := Auth(fakePort{userID: "u-1", runID: "run-1"}, writeJSON)(next)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotUser != "u-1" || gotRun != "run-1" {
		t.Fatalf("context identity = (%q, %q)", gotUser, gotRun)
	}
}

func TestAuthRejectsWithMappedStatus(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	h := Auth(fakePort{err: perr.NoTokenf("missing bearer token")}, writeJSON)(next)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	if called {
		t.Fatal("next handler must not run on rejection")
	}
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body pnet.Wire
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != perr.ErrorCodeNoToken {
		t.Fatalf("wire code = %v", body.Code)
	}
}

func TestHeartbeat(t *testing.T) {
	h := Heartbeat("/ping")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("heartbeat must short-circuit before the handler")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRecoverJSON(t *testing.T) {
	h := RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
}
