// Package upstream is the HTTP transport to the single Google Cloud Code
// backend: a concrete client exposing endpoint construction, header
// injection, error classification and timeout handling for the one
// backend this proxy ever talks to. There is no provider-selection
// registry here, because there is nothing left to select between.
package upstream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloudcode-proxy/pkg/errors"
	"cloudcode-proxy/pkg/json"
	"cloudcode-proxy/pkg/models"
)

const (
	defaultTimeout       = 90 * time.Second
	defaultStreamTimeout = 300 * time.Second
	defaultBaseURL       = "https://cloudcode-pa.googleapis.com/v1internal"
)

// Client is the Cloud Code upstream transport: one API key, one base URL,
// shared across every request the proxy translates.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New builds a Client. baseURL defaults to the public Cloud Code endpoint
// when empty.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultStreamTimeout},
	}
}

func (c *Client) endpoint(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", c.baseURL, model, method)
}

func (c *Client) addHeaders(httpReq *http.Request) {
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)
}

// GetTimeout returns the timeout budget for the non-streaming call path.
func (c *Client) GetTimeout() time.Duration { return defaultTimeout }

// GetStreamTimeout is the outer ceiling on a streaming call, distinct
// from the SSE pipeline's own idle-timeout supervision.
func (c *Client) GetStreamTimeout() time.Duration { return defaultStreamTimeout }

// Generate performs a non-streaming Cloud Code call.
func (c *Client) Generate(ctx context.Context, model string, req *models.GoogleRequest) (*models.GoogleGenerateContentResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.NewInternal("failed to encode upstream request").WithCause(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.GetTimeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model, "generateContent"), bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewInternal("failed to build upstream request").WithCause(err)
	}
	c.addHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.NewUpstreamFailure("upstream request failed").WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewUpstreamFailure("failed to read upstream response").WithCause(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.FromHTTPStatus(resp.StatusCode, string(respBody))
	}

	var result models.GoogleGenerateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, errors.NewInternal("failed to decode upstream response").WithCause(err)
	}
	return &result, nil
}

// StreamHandle is a live SSE read from the upstream: decoded envelopes,
// a read error, and a function that cancels the read.
type StreamHandle struct {
	Events    <-chan models.GoogleStreamEnvelope
	Errs      <-chan error
	CloseFunc func()
}

// GenerateStream performs a streaming Cloud Code call and hands back a
// channel of decoded envelopes. Framing and decoding happen on a
// background goroutine so the SSE pipeline never blocks on network I/O
// while also running its own idle-timeout ticker.
func (c *Client) GenerateStream(ctx context.Context, model string, req *models.GoogleRequest) (*StreamHandle, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.NewInternal("failed to encode upstream request").WithCause(err)
	}

	ctx, cancel := context.WithCancel(ctx)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model, "streamGenerateContent")+"?alt=sse", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, errors.NewInternal("failed to build upstream request").WithCause(err)
	}
	c.addHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, errors.NewUpstreamFailure("upstream request failed").WithCause(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		defer cancel()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.FromHTTPStatus(resp.StatusCode, string(respBody))
	}

	events := make(chan models.GoogleStreamEnvelope)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" || payload == "[DONE]" {
				continue
			}

			var envelope models.GoogleStreamEnvelope
			if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
				select {
				case errs <- errors.NewUpstreamFailure("malformed upstream event").WithCause(err):
				case <-ctx.Done():
				}
				return
			}

			select {
			case events <- envelope:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case errs <- errors.NewUpstreamFailure("upstream stream read failed").WithCause(err):
			default:
			}
		}
	}()

	return &StreamHandle{Events: events, Errs: errs, CloseFunc: cancel}, nil
}
