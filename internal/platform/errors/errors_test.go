package errors

import (
	stderrs "errors"
	"net/http"
	"testing"
)

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeUnauthorized, http.StatusUnauthorized},
		{ErrorCodeInvalidFormat, http.StatusUnauthorized},
		{ErrorCodeNoToken, http.StatusUnauthorized},
		{ErrorCodeForbidden, http.StatusForbidden},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeJSON, http.StatusBadRequest},
		{ErrorCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeCircuitOpen, http.StatusServiceUnavailable},
		{ErrorCodeTimeout, http.StatusGatewayTimeout},
		{ErrorCodeNotConfigured, http.StatusInternalServerError},
		{ErrorCodePanic, http.StatusInternalServerError},
		{ErrorCodeUnknown, http.StatusInternalServerError},
		{9999, http.StatusInternalServerError}, // default branch
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestErrorTypeAndMethods(t *testing.T) {
	// nil *Error should render "<nil>"
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil *Error render = %q, want <nil>", e.Error())
	}

	e1 := New(ErrorCodeInvalidFormat, "bad shape")
	if CodeOf(e1) != ErrorCodeInvalidFormat {
		t.Fatalf("CodeOf(New) = %v", CodeOf(e1))
	}
	e2 := Newf(ErrorCodeJSON, "bad json %d", 12)
	if got := e2.Error(); got != "bad json 12" {
		t.Fatalf("Newf().Error = %q", got)
	}

	src := stderrs.New("root")
	e3 := Wrap(src, ErrorCodeUnavailable, "authority down")
	if u := stderrs.Unwrap(e3); u == nil || u.Error() != "root" {
		t.Fatalf("Wrap did not keep orig")
	}
	if CodeOf(e3) != ErrorCodeUnavailable {
		t.Fatalf("CodeOf(Wrap) = %v", CodeOf(e3))
	}
	e4 := Wrapf(src, ErrorCodeTimeout, "nope %s", "here")
	if want := "nope here: root"; e4.Error() != want {
		t.Fatalf("Wrapf().Error = %q, want %q", e4.Error(), want)
	}

	if got, ok := As(e4); !ok || got.Code() != ErrorCodeTimeout {
		t.Fatalf("As() failed for our error")
	}
	if _, ok := As(src); ok {
		t.Fatalf("As() true for foreign error")
	}

	// WithOp is copy-on-write
	e5 := WithOp(e3, "validate")
	if got, _ := As(e5); got.Op() != "validate" {
		t.Fatalf("WithOp not applied")
	}
	if got, _ := As(e3); got.Op() != "" {
		t.Fatalf("WithOp mutated original")
	}
	if WithOp(src, "x") != src {
		t.Fatalf("WithOp changed a foreign error")
	}
}

func TestWireFromAndHTTP(t *testing.T) {
	if w := WireFrom(nil); w.Code != ErrorCodeUnknown || w.Message != "" {
		t.Fatalf("WireFrom(nil) = %+v", w)
	}
	w := WireFrom(Unauthorizedf("expired"))
	if w.Code != ErrorCodeUnauthorized || w.Message != "expired" {
		t.Fatalf("WireFrom = %+v", w)
	}
	w = WireFrom(stderrs.New("foreign"))
	if w.Code != ErrorCodeUnknown || w.Message != "foreign" {
		t.Fatalf("WireFrom foreign = %+v", w)
	}

	status, wire := HTTP(CircuitOpenf("open"))
	if status != http.StatusServiceUnavailable || wire.Code != ErrorCodeCircuitOpen {
		t.Fatalf("HTTP() = %d %+v", status, wire)
	}
	status, _ = HTTP(nil)
	if status != http.StatusOK {
		t.Fatalf("HTTP(nil) = %d", status)
	}
}

func TestRetryableIsPureOverCodes(t *testing.T) {
	retry := []error{
		Unavailablef("down"),
		Timeoutf("slow"),
		CircuitOpenf("open"),
		Newf(ErrorCodeTooManyRequests, "slow down"),
		Wrap(stderrs.New("x"), ErrorCodeUnavailable, "wrapped"),
	}
	for _, err := range retry {
		if !Retryable(err) {
			t.Fatalf("Retryable(%v) = false, want true", err)
		}
	}
	fatal := []error{
		Unauthorizedf("bad signature"),
		InvalidFormatf("no segments"),
		NoTokenf("nothing"),
		NotConfiguredf("missing creds"),
		stderrs.New("foreign"),
		nil,
	}
	for _, err := range fatal {
		if Retryable(err) {
			t.Fatalf("Retryable(%v) = true, want false", err)
		}
	}
}

func TestCodeStringNames(t *testing.T) {
	cases := map[ErrorCode]string{
		ErrorCodeInvalidFormat: "invalid_format",
		ErrorCodeNoToken:       "no_token",
		ErrorCodeUnauthorized:  "validation_failed",
		ErrorCodeUnavailable:   "service_unavailable",
		ErrorCodeCircuitOpen:   "circuit_open",
		ErrorCodeNotConfigured: "service_not_configured",
		ErrorCodeUnknown:       "unexpected_error",
		9999:                   "unexpected_error",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Fatalf("ErrorCode(%d).String() = %q, want %q", code, got, want)
		}
	}
}
