// Package errors provides the proxy's structured error type and the
// translation between it and the Anthropic/OpenAI wire error formats.
package errors

import (
	"fmt"
	"net/http"
)

// Kind is the taxonomy of error causes the proxy can raise, independent
// of which wire dialect eventually renders it.
type Kind string

const (
	KindBadRequest       Kind = "bad_request"
	KindUnauthorized     Kind = "unauthorized"
	KindUpstreamFailure  Kind = "upstream_failure"
	KindEmptyResponse    Kind = "empty_response"
	KindStreamIdleTimeout Kind = "stream_idle_timeout"
	KindCancelled        Kind = "cancelled"
	KindInternal         Kind = "internal"
)

// statusForKind is the fixed HTTP status table from the error handling
// design: 400/401/408/502/500, with EmptyResponse and StreamIdleTimeout
// both mapping to 408 (client should treat the exchange as a timed-out
// turn), and Cancelled having no HTTP representation since it is only
// ever raised mid-stream where no status line remains to be sent.
func statusForKind(k Kind) int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstreamFailure:
		return http.StatusBadGateway
	case KindEmptyResponse, KindStreamIdleTimeout:
		return http.StatusRequestTimeout
	case KindCancelled:
		return 0
	default:
		return http.StatusInternalServerError
	}
}

// ProxyError is the proxy's single error type, carrying enough context to
// render either the Anthropic or the OpenAI error envelope.
type ProxyError struct {
	Kind       Kind
	Message    string
	StatusCode int
	Cause      error

	// Streaming diagnostics, populated by the SSE pipeline when a
	// StreamIdleTimeout fires mid-stream.
	Duration   float64
	ChunkCount int
	ByteCount  int
}

func (e *ProxyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProxyError) Unwrap() error { return e.Cause }

// ToWireError renders the {type, error:{type, message}} envelope shared
// by both the Anthropic and OpenAI-facing surfaces (OpenAI clients only
// look at error.message in practice, so one shape serves both).
func (e *ProxyError) ToWireError() map[string]interface{} {
	return map[string]interface{}{
		"type": "error",
		"error": map[string]interface{}{
			"type":    e.wireType(),
			"message": e.Message,
		},
	}
}

func (e *ProxyError) wireType() string {
	switch e.Kind {
	case KindBadRequest:
		return "invalid_request_error"
	case KindUnauthorized:
		return "authentication_error"
	case KindUpstreamFailure:
		return "api_error"
	case KindEmptyResponse, KindStreamIdleTimeout:
		return "timeout_error"
	default:
		return "api_error"
	}
}

func (e *ProxyError) WithCause(cause error) *ProxyError {
	e.Cause = cause
	return e
}

func New(kind Kind, message string) *ProxyError {
	return &ProxyError{Kind: kind, Message: message, StatusCode: statusForKind(kind)}
}

func NewBadRequest(message string) *ProxyError      { return New(KindBadRequest, message) }
func NewUnauthorized(message string) *ProxyError    { return New(KindUnauthorized, message) }
func NewUpstreamFailure(message string) *ProxyError { return New(KindUpstreamFailure, message) }
func NewEmptyResponse(message string) *ProxyError   { return New(KindEmptyResponse, message) }
func NewCancelled(message string) *ProxyError       { return New(KindCancelled, message) }
func NewInternal(message string) *ProxyError        { return New(KindInternal, message) }

// NewStreamIdleTimeout attaches diagnostics: total stream duration,
// chunk count and byte count observed before the supervisor cancelled
// the upstream read.
func NewStreamIdleTimeout(duration float64, chunks, bytes int) *ProxyError {
	e := New(KindStreamIdleTimeout, "upstream idle for too long")
	e.Duration = duration
	e.ChunkCount = chunks
	e.ByteCount = bytes
	return e
}

// FromHTTPStatus classifies a non-2xx upstream response into a ProxyError,
// used when the Cloud Code upstream itself fails.
func FromHTTPStatus(statusCode int, body string) *ProxyError {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return New(KindUnauthorized, body)
	}
	if statusCode >= 400 && statusCode < 500 {
		return New(KindBadRequest, body)
	}
	return New(KindUpstreamFailure, body)
}

// Wrap attaches a cause without changing Kind; unwraps an existing
// ProxyError instead of double-wrapping it.
func Wrap(err error, message string) *ProxyError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*ProxyError); ok {
		pe.Message = message + ": " + pe.Message
		return pe
	}
	return NewInternal(message).WithCause(err)
}

func (e *ProxyError) IsRetryable() bool {
	return e.Kind == KindEmptyResponse
}
