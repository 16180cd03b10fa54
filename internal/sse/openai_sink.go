package sse

import (
	"bufio"
	"fmt"

	"cloudcode-proxy/pkg/constants"
	"cloudcode-proxy/pkg/json"
	"cloudcode-proxy/pkg/models"
)

// OpenAISink is a re-framing sink: it consumes the same Anthropic-shaped
// Event stream the primary pipeline produces and re-emits it as OpenAI
// chat.completion.chunk objects, so a single pipeline run serves both
// facades without duplicating the Google-side state tracking.
type OpenAISink struct {
	writer  *bufio.Writer
	id      string
	model   string
	fp      string
	created int64

	nextToolIndex int
	blockToTool   map[int]int // Anthropic content-block index -> OpenAI tool_calls[] index
}

func NewOpenAISink(w *bufio.Writer, id, model, systemFingerprint string, created int64) *OpenAISink {
	return &OpenAISink{
		writer:      w,
		id:          id,
		model:       model,
		fp:          systemFingerprint,
		created:     created,
		blockToTool: make(map[int]int),
	}
}

func (s *OpenAISink) Send(evt Event) error {
	switch evt.Name {
	case constants.EventMessageStart:
		empty := ""
		return s.writeChunk(models.OpenAIChunkDelta{Role: constants.RoleAssistant, Content: &empty}, nil, nil)

	case constants.EventContentBlockStart:
		block, _ := evt.Payload["content_block"].(map[string]interface{})
		index, _ := evt.Payload["index"].(int)
		if block["type"] == constants.ContentTypeToolUse {
			toolIndex := s.nextToolIndex
			s.nextToolIndex++
			s.blockToTool[index] = toolIndex

			id, _ := block["id"].(string)
			name, _ := block["name"].(string)
			return s.writeChunk(models.OpenAIChunkDelta{
				ToolCalls: []models.OpenAIChunkToolCall{{
					Index:    toolIndex,
					ID:       id,
					Type:     constants.ToolTypeFunction,
					Function: &models.OpenAIChunkToolCallFunc{Name: name},
				}},
			}, nil, nil)
		}
		return nil

	case constants.EventContentBlockDelta:
		delta, _ := evt.Payload["delta"].(map[string]interface{})
		index, _ := evt.Payload["index"].(int)
		switch delta["type"] {
		case constants.DeltaTypeTextDelta:
			text, _ := delta["text"].(string)
			return s.writeChunk(models.OpenAIChunkDelta{Content: &text}, nil, nil)

		case constants.DeltaTypeInputJSONDelta:
			toolIndex, ok := s.blockToTool[index]
			if !ok {
				return nil
			}
			partial, _ := delta["partial_json"].(string)
			return s.writeChunk(models.OpenAIChunkDelta{
				ToolCalls: []models.OpenAIChunkToolCall{{
					Index:    toolIndex,
					Function: &models.OpenAIChunkToolCallFunc{Arguments: partial},
				}},
			}, nil, nil)

		default:
			// thinking_delta / signature_delta carry no OpenAI analogue.
			return nil
		}

	case constants.EventContentBlockStop:
		return nil

	case constants.EventMessageDelta:
		delta, _ := evt.Payload["delta"].(map[string]interface{})
		stopReason, _ := delta["stop_reason"].(string)
		finishReason := mapStopReasonToFinishReason(stopReason)

		var usage *models.OpenAIUsage
		if raw, ok := evt.Payload["usage"].(map[string]interface{}); ok {
			usage = &models.OpenAIUsage{}
			if v, ok := raw["input_tokens"].(int); ok {
				usage.PromptTokens = v
			}
			if v, ok := raw["output_tokens"].(int); ok {
				usage.CompletionTokens = v
			}
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		}
		return s.writeChunk(models.OpenAIChunkDelta{}, &finishReason, usage)

	case constants.EventMessageStop:
		if _, err := fmt.Fprint(s.writer, "data: [DONE]\n\n"); err != nil {
			return err
		}
		return s.writer.Flush()

	default:
		return nil
	}
}

func (s *OpenAISink) writeChunk(delta models.OpenAIChunkDelta, finishReason *string, usage *models.OpenAIUsage) error {
	chunk := models.OpenAIChunk{
		ID:                s.id,
		Object:            "chat.completion.chunk",
		Created:           s.created,
		Model:             s.model,
		SystemFingerprint: s.fp,
		Choices: []models.OpenAIChunkChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finishReason,
		}},
		Usage: usage,
	}
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.writer, "data: %s\n\n", data); err != nil {
		return err
	}
	return s.writer.Flush()
}

func mapStopReasonToFinishReason(stopReason string) string {
	switch stopReason {
	case constants.StopReasonToolUse:
		return constants.FinishReasonToolCalls
	case constants.StopReasonMaxTokens:
		return constants.FinishReasonLength
	default:
		return constants.FinishReasonStop
	}
}
