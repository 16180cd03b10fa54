package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewSetsStatusCodeFromKind(t *testing.T) {
	cases := map[Kind]int{
		KindBadRequest:        http.StatusBadRequest,
		KindUnauthorized:      http.StatusUnauthorized,
		KindUpstreamFailure:   http.StatusBadGateway,
		KindEmptyResponse:     http.StatusRequestTimeout,
		KindStreamIdleTimeout: http.StatusRequestTimeout,
		KindCancelled:         0,
		KindInternal:          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := New(kind, "x").StatusCode; got != want {
			t.Errorf("kind %s: expected status %d, got %d", kind, want, got)
		}
	}
}

func TestOnlyEmptyResponseIsRetryable(t *testing.T) {
	for kind := range map[Kind]bool{
		KindBadRequest: false, KindUnauthorized: false, KindUpstreamFailure: false,
		KindEmptyResponse: true, KindStreamIdleTimeout: false, KindCancelled: false, KindInternal: false,
	} {
		want := kind == KindEmptyResponse
		if got := New(kind, "x").IsRetryable(); got != want {
			t.Errorf("kind %s: expected retryable=%v, got %v", kind, want, got)
		}
	}
}

func TestToWireErrorShape(t *testing.T) {
	pe := NewBadRequest("bad input")
	wire := pe.ToWireError()
	if wire["type"] != "error" {
		t.Errorf("expected top-level type=error, got %v", wire["type"])
	}
	inner := wire["error"].(map[string]interface{})
	if inner["type"] != "invalid_request_error" {
		t.Errorf("expected invalid_request_error, got %v", inner["type"])
	}
	if inner["message"] != "bad input" {
		t.Errorf("expected message to round-trip, got %v", inner["message"])
	}
}

func TestWithCauseIsChainable(t *testing.T) {
	cause := errors.New("network reset")
	pe := NewUpstreamFailure("call failed").WithCause(cause)
	if pe.Unwrap() != cause {
		t.Errorf("expected Unwrap to return the cause")
	}
	if pe.Error() == "" {
		t.Error("expected non-empty error string")
	}
}

func TestWrapPreservesExistingProxyErrorKind(t *testing.T) {
	original := NewUnauthorized("invalid key")
	pe := Wrap(original, "auth check")
	if pe.Kind != KindUnauthorized {
		t.Errorf("expected Kind to be preserved, got %v", pe.Kind)
	}
}

func TestWrapPlainErrorBecomesInternal(t *testing.T) {
	pe := Wrap(errors.New("boom"), "context")
	if pe.Kind != KindInternal {
		t.Errorf("expected plain error to wrap as internal, got %v", pe.Kind)
	}
}

func TestFromHTTPStatusClassification(t *testing.T) {
	if k := FromHTTPStatus(401, "").Kind; k != KindUnauthorized {
		t.Errorf("expected 401 -> unauthorized, got %v", k)
	}
	if k := FromHTTPStatus(429, "").Kind; k != KindBadRequest {
		t.Errorf("expected 429 -> bad_request, got %v", k)
	}
	if k := FromHTTPStatus(503, "").Kind; k != KindUpstreamFailure {
		t.Errorf("expected 503 -> upstream_failure, got %v", k)
	}
}

func TestNewStreamIdleTimeoutCarriesDiagnostics(t *testing.T) {
	pe := NewStreamIdleTimeout(181.5, 42, 8192)
	if pe.Duration != 181.5 || pe.ChunkCount != 42 || pe.ByteCount != 8192 {
		t.Errorf("expected diagnostics to be carried, got %+v", pe)
	}
	if pe.Kind != KindStreamIdleTimeout {
		t.Errorf("expected KindStreamIdleTimeout, got %v", pe.Kind)
	}
}
