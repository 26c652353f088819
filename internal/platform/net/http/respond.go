package http

import (
	"encoding/json"
	stdhttp "net/http"

	pnet "authrelay/internal/platform/net"
)

// JSON writes v as application/json with the given status
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondOK writes a 200 envelope with data
func RespondOK(w stdhttp.ResponseWriter, r *stdhttp.Request, data any) {
	status, body := pnet.OK(data, pnet.RequestID(r.Context()))
	JSON(w, status, body)
}

// RespondNoContent answers operations with no result body; 204 carries
// no payload so only the status is written
func RespondNoContent(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	status, _ := pnet.NoContent(pnet.RequestID(r.Context()))
	w.WriteHeader(status)
}

// RespondErr maps a project error to an envelope and writes it
func RespondErr(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	status, body := pnet.Error(err, pnet.RequestID(r.Context()))
	JSON(w, status, body)
}
