package sse

import (
	"bufio"
	"fmt"

	"cloudcode-proxy/pkg/json"
)

// AnthropicSink serializes Events as-is onto the wire: this pipeline's
// internal event shape already is the Anthropic SSE shape, so this sink
// only has to frame it.
type AnthropicSink struct {
	writer *bufio.Writer
}

func NewAnthropicSink(w *bufio.Writer) *AnthropicSink {
	return &AnthropicSink{writer: w}
}

func (s *AnthropicSink) Send(evt Event) error {
	data, err := json.Marshal(evt.Payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.writer, "event: %s\ndata: %s\n\n", evt.Name, data); err != nil {
		return err
	}
	return s.writer.Flush()
}
