package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloudcode-proxy/internal/cache"
	"cloudcode-proxy/internal/config"
	"cloudcode-proxy/internal/metrics"
	"cloudcode-proxy/internal/router"
	"cloudcode-proxy/internal/upstream"
)

func testDeps(proxyAPIKey string) *Deps {
	return &Deps{
		Cfg:      &config.Config{ProxyAPIKey: proxyAPIKey, DefaultModel: "gemini-3-pro-preview"},
		Router:   router.New(),
		SigCache: cache.New(),
		Upstream: upstream.New("test-key", ""),
		Metrics:  metrics.New(),
	}
}

func TestHealthEndpointIsUnauthenticated(t *testing.T) {
	app := BuildApp(testDeps("secret"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpointIsUnauthenticated(t *testing.T) {
	app := BuildApp(testDeps("secret"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMessagesEndpointRejectsMissingAPIKey(t *testing.T) {
	app := BuildApp(testDeps("secret"))

	body := bytes.NewBufferString(`{"model":"claude-opus-4-5","messages":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestMessagesEndpointAcceptsValidAPIKey(t *testing.T) {
	app := BuildApp(testDeps("secret"))

	body := bytes.NewBufferString(`{"model":"","messages":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", "secret")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Empty model is a 400, not a 401 -- proves auth passed and the
	// request reached the handler.
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing model, got %d", resp.StatusCode)
	}
}

func TestAuthDisabledWhenNoProxyAPIKeyConfigured(t *testing.T) {
	app := BuildApp(testDeps(""))

	body := bytes.NewBufferString(`{"model":"","messages":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.Error("expected auth to be a no-op when ProxyAPIKey is empty")
	}
}

func TestCountTokensReturnsPositiveEstimate(t *testing.T) {
	app := BuildApp(testDeps(""))

	body := bytes.NewBufferString(`{"model":"claude-opus-4-5","messages":[{"role":"user","content":"hello there"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages/count_tokens", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	tokens, ok := out["input_tokens"].(float64)
	if !ok || tokens < 1 {
		t.Errorf("expected positive input_tokens, got %v", out["input_tokens"])
	}
}

// TestStreamingMessagesSurfacesPreStreamUpstreamFailureAsHTTPError
// guards the pre-header dispatch fix: an upstream failure that happens
// before any content is produced must come back as an ordinary HTTP
// error response, not a 200 with an SSE error frame in the body.
func TestStreamingMessagesSurfacesPreStreamUpstreamFailureAsHTTPError(t *testing.T) {
	upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer upstreamServer.Close()

	deps := testDeps("")
	deps.Upstream = upstream.New("test-key", upstreamServer.URL)
	app := BuildApp(deps)

	body := bytes.NewBufferString(`{"model":"claude-opus-4-5","stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("expected a non-200 HTTP status for a pre-stream upstream failure, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct == "text/event-stream" {
		t.Errorf("expected a plain JSON error response, got SSE content-type %q", ct)
	}
}

func TestChatCompletionsRejectsMissingModel(t *testing.T) {
	app := BuildApp(testDeps(""))

	body := bytes.NewBufferString(`{"messages":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing model, got %d", resp.StatusCode)
	}
}
