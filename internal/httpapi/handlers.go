package httpapi

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"cloudcode-proxy/internal/converter"
	"cloudcode-proxy/internal/router"
	"cloudcode-proxy/internal/sse"
	"cloudcode-proxy/internal/upstream"
	"cloudcode-proxy/pkg/constants"
	"cloudcode-proxy/pkg/errors"
	"cloudcode-proxy/pkg/json"
	"cloudcode-proxy/pkg/models"
)

// handleMessages is the Anthropic-dialect entry point.
func handleMessages(c *fiber.Ctx, deps *Deps) error {
	if deps.Cfg.Debug {
		fmt.Printf("\n=== request ===\n%s\n===============\n", string(c.Body()))
	}

	var req models.AnthropicRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return writeError(c, errors.NewBadRequest(fmt.Sprintf("invalid request body: %v", err)))
	}
	if req.Model == "" {
		return writeError(c, errors.NewBadRequest("model is required"))
	}

	route := deps.Router.Resolve(req.Model)
	if !route.Resolved {
		return writeError(c, errors.NewBadRequest(fmt.Sprintf("unknown model: %s", req.Model)))
	}
	greq, err := converter.AnthropicToGoogle(&req, route, deps.SigCache)
	if err != nil {
		return writeError(c, asProxyError(err))
	}

	if req.Stream {
		return streamAnthropic(c, deps, route, req.Model, greq)
	}
	return respondAnthropic(c, deps, route, req.Model, greq)
}

// handleChatCompletions is the OpenAI-dialect entry point: translate
// into the Anthropic intermediate form and otherwise share the same
// pipeline as handleMessages.
func handleChatCompletions(c *fiber.Ctx, deps *Deps) error {
	var oreq models.OpenAIRequest
	if err := json.Unmarshal(c.Body(), &oreq); err != nil {
		return writeError(c, errors.NewBadRequest(fmt.Sprintf("invalid request body: %v", err)))
	}
	if oreq.Model == "" {
		return writeError(c, errors.NewBadRequest("model is required"))
	}

	areq, err := converter.OpenAIToAnthropic(&oreq)
	if err != nil {
		return writeError(c, asProxyError(err))
	}

	route := deps.Router.Resolve(oreq.Model)
	if !route.Resolved {
		return writeError(c, errors.NewBadRequest(fmt.Sprintf("unknown model: %s", oreq.Model)))
	}
	greq, err := converter.AnthropicToGoogle(areq, route, deps.SigCache)
	if err != nil {
		return writeError(c, asProxyError(err))
	}

	if oreq.Stream {
		return streamOpenAI(c, deps, route, oreq.Model, greq)
	}
	return respondOpenAI(c, deps, route, oreq.Model, greq)
}

// handleCountTokens is a heuristic stand-in for a real tokenizer: the
// upstream has no counting endpoint of its own, so this approximates
// from serialized request size rather than performing an actual model
// call.
func handleCountTokens(c *fiber.Ctx, deps *Deps) error {
	var req models.AnthropicRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return writeError(c, errors.NewBadRequest(fmt.Sprintf("invalid request body: %v", err)))
	}

	raw, _ := json.Marshal(req.Messages)
	estimate := len(raw) / 4
	if estimate < 1 {
		estimate = 1
	}

	return c.JSON(fiber.Map{"input_tokens": estimate})
}

func respondAnthropic(c *fiber.Ctx, deps *Deps, route router.Route, requestedModel string, greq *models.GoogleRequest) error {
	start := time.Now()
	resp, err := generateWithRetry(c.Context(), deps.Upstream, route.UpstreamID, greq)
	if err != nil {
		pe := asProxyError(err)
		deps.Metrics.ObserveRequest("anthropic", route.Family, pe.StatusCode, time.Since(start))
		return writeError(c, pe)
	}

	anthResp, err := converter.GoogleToAnthropic(resp, requestedModel, deps.SigCache, route.Family)
	if err != nil {
		if deps.Cfg.Fallback {
			anthResp = fallbackAnthropicResponse(requestedModel)
		} else {
			pe := asProxyError(err)
			deps.Metrics.ObserveRequest("anthropic", route.Family, pe.StatusCode, time.Since(start))
			return writeError(c, pe)
		}
	}

	deps.Metrics.ObserveRequest("anthropic", route.Family, 200, time.Since(start))
	logSimpleSummary(deps, requestedModel, anthResp.Usage.InputTokens, anthResp.Usage.OutputTokens, start)
	return c.JSON(anthResp)
}

func respondOpenAI(c *fiber.Ctx, deps *Deps, route router.Route, requestedModel string, greq *models.GoogleRequest) error {
	start := time.Now()
	resp, err := generateWithRetry(c.Context(), deps.Upstream, route.UpstreamID, greq)
	if err != nil {
		pe := asProxyError(err)
		deps.Metrics.ObserveRequest("openai", route.Family, pe.StatusCode, time.Since(start))
		return writeError(c, pe)
	}

	anthResp, err := converter.GoogleToAnthropic(resp, requestedModel, deps.SigCache, route.Family)
	if err != nil {
		if deps.Cfg.Fallback {
			anthResp = fallbackAnthropicResponse(requestedModel)
		} else {
			pe := asProxyError(err)
			deps.Metrics.ObserveRequest("openai", route.Family, pe.StatusCode, time.Since(start))
			return writeError(c, pe)
		}
	}

	oResp := converter.AnthropicToOpenAI(anthResp, requestedModel)
	oResp.Created = start.Unix()

	deps.Metrics.ObserveRequest("openai", route.Family, 200, time.Since(start))
	logSimpleSummary(deps, requestedModel, oResp.Usage.PromptTokens, oResp.Usage.CompletionTokens, start)
	return c.JSON(oResp)
}

// generateWithRetry retries a non-streaming call exactly once, silently,
// against a fresh upstream call when the first attempt comes back with
// no candidates.
func generateWithRetry(ctx context.Context, client *upstream.Client, model string, greq *models.GoogleRequest) (*models.GoogleGenerateContentResponse, error) {
	resp, err := client.Generate(ctx, model, greq)
	if err == nil && len(resp.Candidates) == 0 {
		err = errors.NewEmptyResponse("upstream returned no candidates")
	}
	if pe, ok := err.(*errors.ProxyError); ok && pe.IsRetryable() {
		return client.Generate(ctx, model, greq)
	}
	return resp, err
}

// streamAnthropic opens the upstream stream before committing any
// response headers: a failure to open (bad upstream auth, 502,
// malformed request) surfaces as a normal HTTP error response rather
// than an SSE error frame, since no bytes of an event-stream body have
// been promised to the client yet. Only once a live handle exists does
// it commit to a 200 text/event-stream and start writing.
func streamAnthropic(c *fiber.Ctx, deps *Deps, route router.Route, requestedModel string, greq *models.GoogleRequest) error {
	start := time.Now()
	handle, err := deps.Upstream.GenerateStream(c.Context(), route.UpstreamID, greq)
	if err != nil {
		pe := asProxyError(err)
		deps.Metrics.ObserveStreamError(string(pe.Kind))
		deps.Metrics.ObserveRequest("anthropic", route.Family, pe.StatusCode, time.Since(start))
		return writeError(c, pe)
	}

	setSSEHeaders(c)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		status := runStreamWithRetry(c.Context(), deps, route, requestedModel, greq, handle, func(messageID string) sse.Sink {
			return sse.NewAnthropicSink(w)
		}, w)
		deps.Metrics.ObserveRequest("anthropic", route.Family, status, time.Since(start))
	})

	return nil
}

func streamOpenAI(c *fiber.Ctx, deps *Deps, route router.Route, requestedModel string, greq *models.GoogleRequest) error {
	start := time.Now()
	handle, err := deps.Upstream.GenerateStream(c.Context(), route.UpstreamID, greq)
	if err != nil {
		pe := asProxyError(err)
		deps.Metrics.ObserveStreamError(string(pe.Kind))
		deps.Metrics.ObserveRequest("openai", route.Family, pe.StatusCode, time.Since(start))
		return writeError(c, pe)
	}

	setSSEHeaders(c)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		id := "chatcmpl-" + fmt.Sprintf("%x", start.UnixNano())
		status := runStreamWithRetry(c.Context(), deps, route, requestedModel, greq, handle, func(messageID string) sse.Sink {
			return sse.NewOpenAISink(w, id, requestedModel, "", start.Unix())
		}, w)
		deps.Metrics.ObserveRequest("openai", route.Family, status, time.Since(start))
	})

	return nil
}

// runStreamWithRetry drains firstHandle, which the caller has already
// opened successfully, through a fresh Pipeline; on an EmptyResponse it
// opens one more upstream stream and retries, since the pipeline never
// wrote a byte to sink before detecting emptiness. That retry, and any
// other error, is written as a best-effort SSE error event, since HTTP
// headers are already committed by this point.
func runStreamWithRetry(ctx context.Context, deps *Deps, route router.Route, requestedModel string, greq *models.GoogleRequest, firstHandle *upstream.StreamHandle, newSink func(messageID string) sse.Sink, w *bufio.Writer) int {
	handle := firstHandle
	for attempt := 0; attempt < 2; attempt++ {
		if handle == nil {
			var err error
			handle, err = deps.Upstream.GenerateStream(ctx, route.UpstreamID, greq)
			if err != nil {
				pe := asProxyError(err)
				deps.Metrics.ObserveStreamError(string(pe.Kind))
				writeSSEError(w, pe)
				return pe.StatusCode
			}
		}

		messageID := "msg_" + fmt.Sprintf("%x", time.Now().UnixNano())
		pipeline := sse.New(newSink(messageID), deps.SigCache, route.Family, requestedModel, messageID)

		err := pipeline.Run(ctx, handle)
		handle.CloseFunc()
		handle = nil

		if err == nil {
			return 200
		}

		pe := asProxyError(err)
		deps.Metrics.ObserveStreamError(string(pe.Kind))
		if pe.Kind == errors.KindEmptyResponse && attempt == 0 {
			continue
		}
		if pe.Kind == errors.KindCancelled {
			return 0
		}
		writeSSEError(w, pe)
		return pe.StatusCode
	}
	return 200
}

// fallbackAnthropicResponse stands in for a failed Google->Anthropic
// translation when the caller has opted into --fallback: rather than
// surface the translation error, hand back a plain, empty end_turn
// message so a client sees a well-formed (if contentless) turn instead
// of a 5xx.
func fallbackAnthropicResponse(requestedModel string) *models.AnthropicResponse {
	stopReason := constants.StopReasonEndTurn
	return &models.AnthropicResponse{
		ID:         "msg_fallback",
		Type:       constants.MessageTypeMessage,
		Role:       constants.RoleAssistant,
		Model:      requestedModel,
		Content:    []models.ContentBlock{{Type: constants.ContentTypeText, Text: ""}},
		StopReason: &stopReason,
	}
}

func setSSEHeaders(c *fiber.Ctx) {
	c.Set(constants.HeaderContentType, constants.MIMETypeSSE)
	c.Set(constants.HeaderCacheControl, "no-cache")
	c.Set(constants.HeaderConnection, "keep-alive")
	c.Set(constants.HeaderXAccelBuffering, "no")
}

func writeSSEError(w *bufio.Writer, pe *errors.ProxyError) {
	data, _ := json.Marshal(pe.ToWireError())
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", constants.EventError, data)
	_ = w.Flush()
}

func writeError(c *fiber.Ctx, pe *errors.ProxyError) error {
	return c.Status(pe.StatusCode).JSON(pe.ToWireError())
}

func asProxyError(err error) *errors.ProxyError {
	if pe, ok := err.(*errors.ProxyError); ok {
		return pe
	}
	return errors.NewInternal(err.Error())
}

func logSimpleSummary(deps *Deps, model string, inputTokens, outputTokens int, start time.Time) {
	if !deps.Cfg.SimpleLog {
		return
	}
	duration := time.Since(start).Seconds()
	tokensPerSec := 0.0
	if duration > 0 && outputTokens > 0 {
		tokensPerSec = float64(outputTokens) / duration
	}
	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] model=%s input=%d output=%d tok/s=%.1f\n", timestamp, model, inputTokens, outputTokens, tokensPerSec)
}
