package sse

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"cloudcode-proxy/pkg/constants"
)

func TestAnthropicSinkFramesAsSSE(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	sink := NewAnthropicSink(w)

	err := sink.Send(Event{Name: constants.EventMessageStop, Payload: map[string]interface{}{"type": constants.EventMessageStop}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "event: message_stop\n") {
		t.Errorf("expected event line, got %q", out)
	}
	if !strings.Contains(out, `data: {"type":"message_stop"}`) {
		t.Errorf("expected data line with payload, got %q", out)
	}
	if !strings.HasSuffix(out, "\n\n") {
		t.Errorf("expected trailing blank line, got %q", out)
	}
}

func TestOpenAISinkEmitsRoleDeltaOnMessageStart(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	sink := NewOpenAISink(w, "chatcmpl-1", "gpt-4", "fp_1", 1000)

	err := sink.Send(Event{Name: constants.EventMessageStart, Payload: map[string]interface{}{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"role":"assistant"`) {
		t.Errorf("expected role delta, got %q", out)
	}
	if !strings.Contains(out, `"chatcmpl-1"`) {
		t.Errorf("expected chunk id, got %q", out)
	}
}

func TestOpenAISinkTracksToolCallIndexAcrossBlocks(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	sink := NewOpenAISink(w, "chatcmpl-1", "gpt-4", "", 0)

	_ = sink.Send(Event{
		Name: constants.EventContentBlockStart,
		Payload: map[string]interface{}{
			"index": 0,
			"content_block": map[string]interface{}{
				"type": constants.ContentTypeToolUse,
				"id":   "toolu_1",
				"name": "get_weather",
			},
		},
	})
	buf.Reset()

	err := sink.Send(Event{
		Name: constants.EventContentBlockDelta,
		Payload: map[string]interface{}{
			"index": 0,
			"delta": map[string]interface{}{
				"type":         constants.DeltaTypeInputJSONDelta,
				"partial_json": `{"city":"nyc"}`,
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"arguments":"{\"city\":\"nyc\"}"`) {
		t.Errorf("expected tool call arguments to be forwarded, got %q", out)
	}
	if !strings.Contains(out, `"index":0`) {
		t.Errorf("expected tool_calls[0].index=0, got %q", out)
	}
}

func TestOpenAISinkEmitsDoneOnMessageStop(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	sink := NewOpenAISink(w, "chatcmpl-1", "gpt-4", "", 0)

	if err := sink.Send(Event{Name: constants.EventMessageStop}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "data: [DONE]") {
		t.Errorf("expected [DONE] sentinel, got %q", buf.String())
	}
}

func TestOpenAISinkDropsThinkingDelta(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	sink := NewOpenAISink(w, "chatcmpl-1", "gpt-4", "", 0)

	err := sink.Send(Event{
		Name: constants.EventContentBlockDelta,
		Payload: map[string]interface{}{
			"index": 0,
			"delta": map[string]interface{}{"type": constants.DeltaTypeThinkingDelta, "thinking": "..."},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for thinking_delta, got %q", buf.String())
	}
}
