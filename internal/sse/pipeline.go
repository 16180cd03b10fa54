// Package sse implements the SSE pipeline: the primary Google->Anthropic
// streaming state machine, plus the OpenAI re-framing sub-state-machine
// in openai_sink.go that rides on top of the same event stream.
//
// The block-index bookkeeping lazily opens a block on its first content
// and closes every open block on finalize, driven from Google's
// candidates[].content.parts[] shape. Thinking-signature capture and
// idle-timeout supervision sit alongside that bookkeeping since a single
// upstream response can carry both.
package sse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloudcode-proxy/internal/cache"
	"cloudcode-proxy/internal/converter"
	"cloudcode-proxy/internal/upstream"
	"cloudcode-proxy/pkg/constants"
	"cloudcode-proxy/pkg/errors"
	"cloudcode-proxy/pkg/json"
	"cloudcode-proxy/pkg/models"
)

type toolCallState struct {
	id          string
	name        string
	claudeIndex int
}

// Pipeline drives one upstream stream to completion, emitting events to
// a Sink as it goes.
type Pipeline struct {
	sink           Sink
	sigCache       *cache.SignatureCache
	family         string
	requestedModel string
	messageID      string
	startTime      time.Time

	nextIndex        int
	textIndex        int
	textStarted      bool
	thinkingIndex    int
	thinkingStarted  bool
	toolCalls        []*toolCallState
	sawToolUse       bool
	finalStopReason  string
	messageStartSent bool

	usage map[string]interface{}

	mu            sync.Mutex
	lastEventTime time.Time
	chunkCount    int
	byteCount     int
}

// New builds a Pipeline. sigCache and family are used to capture and
// re-inject thinking signatures across turns.
func New(sink Sink, sigCache *cache.SignatureCache, family, requestedModel, messageID string) *Pipeline {
	return &Pipeline{
		sink:            sink,
		sigCache:        sigCache,
		family:          family,
		requestedModel:  requestedModel,
		messageID:       messageID,
		startTime:       time.Now(),
		textIndex:       -1,
		thinkingIndex:   -1,
		finalStopReason: constants.StopReasonEndTurn,
		usage: map[string]interface{}{
			"input_tokens":                0,
			"output_tokens":               0,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     0,
		},
	}
}

// Run drains handle to completion, translating every envelope into
// Anthropic-shaped Events. It returns an EmptyResponse ProxyError if the
// upstream closed the stream having emitted no content at all (the
// caller should retry once), or a StreamIdleTimeout ProxyError if the
// idle supervisor fired.
func (p *Pipeline) Run(ctx context.Context, handle *upstream.StreamHandle) error {
	p.touch()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	idleTimeout := make(chan struct{}, 1)
	var supervisorWG sync.WaitGroup
	supervisorWG.Add(1)
	go p.runIdleSupervisor(ctx, handle.CloseFunc, idleTimeout, &supervisorWG)
	defer supervisorWG.Wait()

	for {
		select {
		case envelope, ok := <-handle.Events:
			if !ok {
				return p.finish()
			}
			p.touch()
			if raw, err := json.Marshal(envelope); err == nil {
				p.mu.Lock()
				p.chunkCount++
				p.byteCount += len(raw)
				p.mu.Unlock()
			}
			resp := envelope.Resolve()
			if resp == nil {
				continue
			}
			if err := p.processResponse(resp); err != nil {
				return err
			}

		case err, ok := <-handle.Errs:
			if ok && err != nil {
				return err
			}

		case <-idleTimeout:
			duration, chunks, bytes := p.snapshot()
			return errors.NewStreamIdleTimeout(duration, chunks, bytes)

		case <-ctx.Done():
			return errors.NewCancelled("stream cancelled")
		}
	}
}

func (p *Pipeline) touch() {
	p.mu.Lock()
	p.lastEventTime = time.Now()
	p.mu.Unlock()
}

func (p *Pipeline) snapshot() (duration float64, chunks, bytes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.startTime).Seconds(), p.chunkCount, p.byteCount
}

// runIdleSupervisor polls every constants.IdleCheckInterval seconds and
// signals idleTimeout once the upstream has been silent for
// constants.IdleCancelAfter seconds, cancelling the upstream read at the
// same time so Run's select loop unblocks promptly.
func (p *Pipeline) runIdleSupervisor(ctx context.Context, cancelUpstream func(), idleTimeout chan<- struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(constants.IdleCheckInterval * time.Second)
	defer ticker.Stop()

	warned := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			silence := time.Since(p.lastEventTime).Seconds()
			p.mu.Unlock()

			if silence >= constants.IdleCancelAfter {
				cancelUpstream()
				select {
				case idleTimeout <- struct{}{}:
				default:
				}
				return
			}
			if silence >= constants.IdleWarnAfter && !warned {
				warned = true
				fmt.Printf("warning: upstream stream idle for %.0fs\n", silence)
			}
		}
	}
}

func (p *Pipeline) allocIndex() int {
	i := p.nextIndex
	p.nextIndex++
	return i
}

// ensureMessageStart lazily emits message_start (and the ping that
// follows it) on the first real piece of content, so a stream that
// turns out to be empty never writes a byte to the client and can be
// silently retried once.
func (p *Pipeline) ensureMessageStart() error {
	if p.messageStartSent {
		return nil
	}
	p.messageStartSent = true

	// Snapshot usage into a fresh map rather than handing the sink
	// p.usage directly: output/cache-creation tokens are still zero at
	// this point by construction (processResponse only folds them in
	// after this fires), but a later mutation of the shared map must
	// never retroactively change what was already reported here.
	usageSnapshot := map[string]interface{}{
		"input_tokens":                p.usage["input_tokens"],
		"output_tokens":               p.usage["output_tokens"],
		"cache_creation_input_tokens": p.usage["cache_creation_input_tokens"],
		"cache_read_input_tokens":     p.usage["cache_read_input_tokens"],
	}

	if err := p.sink.Send(Event{
		Name: constants.EventMessageStart,
		Payload: map[string]interface{}{
			"type": constants.EventMessageStart,
			"message": map[string]interface{}{
				"id":            p.messageID,
				"type":          constants.MessageTypeMessage,
				"role":          constants.RoleAssistant,
				"model":         p.requestedModel,
				"content":       []interface{}{},
				"stop_reason":   nil,
				"stop_sequence": nil,
				"usage":         usageSnapshot,
			},
		},
	}); err != nil {
		return err
	}

	return p.sink.Send(Event{
		Name:    constants.EventPing,
		Payload: map[string]interface{}{"type": constants.EventPing},
	})
}

// processResponse folds one upstream envelope into the running usage
// totals and emits its content parts. Usage arrives cumulative and
// non-decreasing on every chunk, including the first content-bearing
// one, so output/cache-creation tokens are only folded into p.usage
// after ensureMessageStart has already fired at least once: otherwise
// message_start's usage block would carry this chunk's own output
// count instead of the required zero. Input and cache-read tokens
// carry no such requirement and are applied immediately.
func (p *Pipeline) processResponse(resp *models.GoogleGenerateContentResponse) error {
	var outputTokens, cacheReadTokens int
	hasUsage := resp.UsageMetadata != nil
	if hasUsage {
		u := resp.UsageMetadata
		p.usage["input_tokens"] = u.PromptTokenCount - u.CachedContentTokenCount
		outputTokens = u.CandidatesTokenCount
		cacheReadTokens = u.CachedContentTokenCount
		p.usage["cache_read_input_tokens"] = cacheReadTokens
	}

	if len(resp.Candidates) == 0 {
		return nil
	}
	candidate := resp.Candidates[0]

	for _, part := range candidate.Content.Parts {
		if err := p.processPart(part); err != nil {
			return err
		}
	}

	if hasUsage && p.messageStartSent {
		p.usage["output_tokens"] = outputTokens
	}

	if candidate.FinishReason != "" {
		p.applyFinishReason(candidate.FinishReason)
	}
	return nil
}

func (p *Pipeline) processPart(part models.GooglePart) error {
	if !part.Thought && part.FunctionCall == nil && part.InlineData == nil && part.Text == "" {
		return nil
	}
	if err := p.ensureMessageStart(); err != nil {
		return err
	}
	switch {
	case part.Thought:
		return p.handleThinking(part)
	case part.FunctionCall != nil:
		if part.Text != "" {
			if err := p.handleText(part.Text); err != nil {
				return err
			}
		}
		return p.handleToolUse(part)
	case part.InlineData != nil:
		return p.handleImage(part)
	case part.Text != "":
		return p.handleText(part.Text)
	}
	return nil
}

// closeCurrentBlock emits content_block_stop for whichever text or
// thinking block is currently open, so a switch to a different block
// type never leaves index i dangling while index i+1 opens. Tool-use
// and image blocks open and close within a single handler call and
// never need this.
func (p *Pipeline) closeCurrentBlock() error {
	if p.textStarted {
		p.textStarted = false
		return p.sink.Send(Event{
			Name:    constants.EventContentBlockStop,
			Payload: map[string]interface{}{"type": constants.EventContentBlockStop, "index": p.textIndex},
		})
	}
	if p.thinkingStarted {
		p.thinkingStarted = false
		return p.sink.Send(Event{
			Name:    constants.EventContentBlockStop,
			Payload: map[string]interface{}{"type": constants.EventContentBlockStop, "index": p.thinkingIndex},
		})
	}
	return nil
}

func (p *Pipeline) handleThinking(part models.GooglePart) error {
	if !p.thinkingStarted {
		if err := p.closeCurrentBlock(); err != nil {
			return err
		}
		p.thinkingIndex = p.allocIndex()
		p.thinkingStarted = true
		if err := p.sink.Send(Event{
			Name: constants.EventContentBlockStart,
			Payload: map[string]interface{}{
				"type":  constants.EventContentBlockStart,
				"index": p.thinkingIndex,
				"content_block": map[string]interface{}{
					"type":      constants.ContentTypeThinking,
					"thinking":  "",
					"signature": "",
				},
			},
		}); err != nil {
			return err
		}
	}

	if part.Text != "" {
		if err := p.sink.Send(Event{
			Name: constants.EventContentBlockDelta,
			Payload: map[string]interface{}{
				"type":  constants.EventContentBlockDelta,
				"index": p.thinkingIndex,
				"delta": map[string]interface{}{
					"type":     constants.DeltaTypeThinkingDelta,
					"thinking": part.Text,
				},
			},
		}); err != nil {
			return err
		}
	}

	if len(part.ThoughtSignature) >= constants.MinSignatureLength {
		if p.family != "" {
			p.sigCache.PutByModelFamily(p.family, part.ThoughtSignature)
		}
		return p.sink.Send(Event{
			Name: constants.EventContentBlockDelta,
			Payload: map[string]interface{}{
				"type":  constants.EventContentBlockDelta,
				"index": p.thinkingIndex,
				"delta": map[string]interface{}{
					"type":      constants.DeltaTypeSignatureDelta,
					"signature": part.ThoughtSignature,
				},
			},
		})
	}
	return nil
}

func (p *Pipeline) handleText(text string) error {
	if !p.textStarted {
		if err := p.closeCurrentBlock(); err != nil {
			return err
		}
		p.textIndex = p.allocIndex()
		p.textStarted = true
		if err := p.sink.Send(Event{
			Name: constants.EventContentBlockStart,
			Payload: map[string]interface{}{
				"type":  constants.EventContentBlockStart,
				"index": p.textIndex,
				"content_block": map[string]interface{}{
					"type": constants.ContentTypeText,
					"text": "",
				},
			},
		}); err != nil {
			return err
		}
	}
	return p.sink.Send(Event{
		Name: constants.EventContentBlockDelta,
		Payload: map[string]interface{}{
			"type":  constants.EventContentBlockDelta,
			"index": p.textIndex,
			"delta": map[string]interface{}{
				"type": constants.DeltaTypeTextDelta,
				"text": text,
			},
		},
	})
}

// handleToolUse opens, fills and immediately closes a tool_use block:
// unlike OpenAI, the Google dialect delivers a functionCall's arguments
// whole in one part rather than as incremental JSON fragments.
func (p *Pipeline) handleToolUse(part models.GooglePart) error {
	if err := p.closeCurrentBlock(); err != nil {
		return err
	}
	p.sawToolUse = true
	id := part.FunctionCall.ID
	if id == "" {
		id = "toolu_" + time.Now().Format("20060102150405.000000000")
	}

	sig := part.ThoughtSignature
	if len(sig) >= constants.MinSignatureLength {
		p.sigCache.PutByToolID(id, sig)
	}

	index := p.allocIndex()
	p.toolCalls = append(p.toolCalls, &toolCallState{id: id, name: part.FunctionCall.Name, claudeIndex: index})

	if err := p.sink.Send(Event{
		Name: constants.EventContentBlockStart,
		Payload: map[string]interface{}{
			"type":  constants.EventContentBlockStart,
			"index": index,
			"content_block": map[string]interface{}{
				"type":  constants.ContentTypeToolUse,
				"id":    id,
				"name":  part.FunctionCall.Name,
				"input": map[string]interface{}{},
			},
		},
	}); err != nil {
		return err
	}

	args := converter.SanitizeToolArgs(part.FunctionCall.Name, part.FunctionCall.Args)
	argsJSON, err := json.Marshal(args)
	if err != nil {
		argsJSON = []byte("{}")
	}
	if err := p.sink.Send(Event{
		Name: constants.EventContentBlockDelta,
		Payload: map[string]interface{}{
			"type":  constants.EventContentBlockDelta,
			"index": index,
			"delta": map[string]interface{}{
				"type":         constants.DeltaTypeInputJSONDelta,
				"partial_json": string(argsJSON),
			},
		},
	}); err != nil {
		return err
	}

	return p.sink.Send(Event{
		Name:    constants.EventContentBlockStop,
		Payload: map[string]interface{}{"type": constants.EventContentBlockStop, "index": index},
	})
}

func (p *Pipeline) handleImage(part models.GooglePart) error {
	if err := p.closeCurrentBlock(); err != nil {
		return err
	}
	index := p.allocIndex()
	if err := p.sink.Send(Event{
		Name: constants.EventContentBlockStart,
		Payload: map[string]interface{}{
			"type":  constants.EventContentBlockStart,
			"index": index,
			"content_block": map[string]interface{}{
				"type": constants.ContentTypeImage,
				"source": map[string]interface{}{
					"type":       "base64",
					"media_type": part.InlineData.MimeType,
					"data":       part.InlineData.Data,
				},
			},
		},
	}); err != nil {
		return err
	}
	return p.sink.Send(Event{
		Name:    constants.EventContentBlockStop,
		Payload: map[string]interface{}{"type": constants.EventContentBlockStop, "index": index},
	})
}

// applyFinishReason implements the same tool-use-overrides-STOP rule as
// the non-streaming translator.
func (p *Pipeline) applyFinishReason(reason string) {
	if p.sawToolUse {
		p.finalStopReason = constants.StopReasonToolUse
		return
	}
	switch reason {
	case constants.GoogleFinishMaxTokens:
		p.finalStopReason = constants.StopReasonMaxTokens
	default:
		p.finalStopReason = constants.StopReasonEndTurn
	}
}

func (p *Pipeline) finish() error {
	if err := p.closeCurrentBlock(); err != nil {
		return err
	}

	if p.nextIndex == 0 {
		return errors.NewEmptyResponse("upstream stream produced no content")
	}

	if err := p.sink.Send(Event{
		Name: constants.EventMessageDelta,
		Payload: map[string]interface{}{
			"type": constants.EventMessageDelta,
			"delta": map[string]interface{}{
				"stop_reason":   p.finalStopReason,
				"stop_sequence": nil,
			},
			"usage": p.usage,
		},
	}); err != nil {
		return err
	}

	return p.sink.Send(Event{
		Name:    constants.EventMessageStop,
		Payload: map[string]interface{}{"type": constants.EventMessageStop},
	})
}
