package converter

import (
	"testing"

	"cloudcode-proxy/internal/cache"
	"cloudcode-proxy/internal/router"
	"cloudcode-proxy/pkg/constants"
	"cloudcode-proxy/pkg/errors"
	"cloudcode-proxy/pkg/models"
)

func TestOpenAIToAnthropicSplitsSystemMessage(t *testing.T) {
	req := &models.OpenAIRequest{
		Model: "gpt-4",
		Messages: []models.OpenAIMessage{
			{Role: constants.RoleSystem, Content: "be helpful"},
			{Role: constants.RoleUser, Content: "hi"},
		},
	}
	out, err := OpenAIToAnthropic(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.System != "be helpful" {
		t.Errorf("expected system prefix, got %v", out.System)
	}
	if len(out.Messages) != 1 || out.Messages[0].Role != constants.RoleUser {
		t.Errorf("expected single user message, got %+v", out.Messages)
	}
}

func TestOpenAIToAnthropicReRolesToolMessage(t *testing.T) {
	req := &models.OpenAIRequest{
		Model: "gpt-4",
		Messages: []models.OpenAIMessage{
			{Role: constants.RoleTool, ToolCallID: "call_1", Content: "42"},
		},
	}
	out, err := OpenAIToAnthropic(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Messages) != 1 || out.Messages[0].Role != constants.RoleUser {
		t.Fatalf("expected tool message re-roled to user, got %+v", out.Messages)
	}
	blocks := out.Messages[0].Content.([]models.ContentBlock)
	if blocks[0].Type != constants.ContentTypeToolResult || blocks[0].ToolUseID != "call_1" {
		t.Errorf("expected tool_result block referencing call_1, got %+v", blocks[0])
	}
}

func TestOpenAIToAnthropicExpandsToolCalls(t *testing.T) {
	req := &models.OpenAIRequest{
		Model: "gpt-4",
		Messages: []models.OpenAIMessage{
			{
				Role: constants.RoleAssistant,
				ToolCalls: []models.OpenAIToolCall{
					{ID: "call_1", Type: constants.ToolTypeFunction, Function: models.OpenAIFunctionCall{Name: "get_weather", Arguments: `{"city":"nyc"}`}},
				},
			},
		},
	}
	out, err := OpenAIToAnthropic(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blocks := out.Messages[0].Content.([]models.ContentBlock)
	if len(blocks) != 1 || blocks[0].Type != constants.ContentTypeToolUse {
		t.Fatalf("expected single tool_use block, got %+v", blocks)
	}
	if blocks[0].ID != "call_1" || blocks[0].Name != "get_weather" {
		t.Errorf("unexpected tool_use block: %+v", blocks[0])
	}
}

func TestOpenAIToAnthropicRejectsMalformedToolArguments(t *testing.T) {
	req := &models.OpenAIRequest{
		Model: "gpt-4",
		Messages: []models.OpenAIMessage{
			{
				Role: constants.RoleAssistant,
				ToolCalls: []models.OpenAIToolCall{
					{ID: "call_1", Function: models.OpenAIFunctionCall{Name: "f", Arguments: "{not json"}},
				},
			},
		},
	}
	if _, err := OpenAIToAnthropic(req); err == nil {
		t.Fatal("expected error for malformed tool arguments")
	}
}

func TestOpenAIToAnthropicForceEnablesThinkingForGemini3(t *testing.T) {
	req := &models.OpenAIRequest{
		Model:    "gemini-3-pro-preview",
		Messages: []models.OpenAIMessage{{Role: constants.RoleUser, Content: "hi"}},
	}
	out, err := OpenAIToAnthropic(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Thinking == nil || out.Thinking.Type != "enabled" {
		t.Errorf("expected thinking force-enabled for gemini-3 model, got %+v", out.Thinking)
	}
}

func TestAnthropicToGoogleBuildsSystemInstruction(t *testing.T) {
	req := &models.AnthropicRequest{
		Model:  "claude-opus-4-5",
		System: "be concise",
		Messages: []models.AnthropicMessage{
			{Role: constants.RoleUser, Content: "hello"},
		},
	}
	route := router.Route{UpstreamID: "gemini-3-pro-preview", Family: "gemini-3"}
	out, err := AnthropicToGoogle(req, route, cache.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SystemInstruction == nil || out.SystemInstruction.Parts[0].Text != "be concise" {
		t.Errorf("expected system instruction, got %+v", out.SystemInstruction)
	}
	if len(out.Contents) != 1 || out.Contents[0].Role != constants.RoleUser {
		t.Errorf("expected single user content, got %+v", out.Contents)
	}
}

func TestAnthropicToGoogleMapsAssistantRoleToModel(t *testing.T) {
	req := &models.AnthropicRequest{
		Model: "claude-opus-4-5",
		Messages: []models.AnthropicMessage{
			{Role: constants.RoleAssistant, Content: "hi there"},
		},
	}
	out, err := AnthropicToGoogle(req, router.Route{UpstreamID: "gemini-3-pro-preview"}, cache.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Contents[0].Role != constants.RoleModel {
		t.Errorf("expected role model, got %s", out.Contents[0].Role)
	}
}

func TestAnthropicToGoogleRejectsDanglingToolResult(t *testing.T) {
	req := &models.AnthropicRequest{
		Model: "claude-opus-4-5",
		Messages: []models.AnthropicMessage{
			{Role: constants.RoleUser, Content: []models.ContentBlock{
				{Type: constants.ContentTypeToolResult, ToolUseID: "", Content: "x"},
			}},
		},
	}
	if _, err := AnthropicToGoogle(req, router.Route{}, cache.New()); err == nil {
		t.Fatal("expected error for dangling tool_result")
	}
}

func TestAnthropicToGoogleRejectsNonBase64Image(t *testing.T) {
	req := &models.AnthropicRequest{
		Model: "claude-opus-4-5",
		Messages: []models.AnthropicMessage{
			{Role: constants.RoleUser, Content: []models.ContentBlock{
				{Type: constants.ContentTypeImage, Source: &models.ImageSource{Type: "url", URL: "https://example.com/x.png"}},
			}},
		},
	}
	if _, err := AnthropicToGoogle(req, router.Route{}, cache.New()); err == nil {
		t.Fatal("expected error rejecting url image source")
	}
}

func TestAnthropicToGoogleReinjectsCachedSignature(t *testing.T) {
	sigCache := cache.New()
	sigCache.PutByToolID("toolu_1", "a-long-enough-cached-signature")

	req := &models.AnthropicRequest{
		Model: "claude-opus-4-5",
		Messages: []models.AnthropicMessage{
			{Role: constants.RoleAssistant, Content: []models.ContentBlock{
				{Type: constants.ContentTypeToolUse, ID: "toolu_1", Name: "f", Input: map[string]interface{}{}},
			}},
		},
	}
	out, err := AnthropicToGoogle(req, router.Route{Family: "gemini-3"}, sigCache)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	part := out.Contents[0].Parts[0]
	if part.ThoughtSignature != "a-long-enough-cached-signature" {
		t.Errorf("expected cached signature to be re-injected, got %q", part.ThoughtSignature)
	}
}

func TestAnthropicToGoogleThinkingBudgetFromRouteWhenRequestSilent(t *testing.T) {
	req := &models.AnthropicRequest{
		Model:    "claude-opus-4-5",
		Messages: []models.AnthropicMessage{{Role: constants.RoleUser, Content: "hi"}},
	}
	route := router.Route{UpstreamID: "gemini-3-pro-preview", EnableThinking: true}
	out, err := AnthropicToGoogle(req, route, cache.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.GenerationConfig.ThinkingConfig == nil {
		t.Fatal("expected route-forced thinking to set ThinkingConfig")
	}
	if out.GenerationConfig.ThinkingConfig.ThinkingBudget != constants.ThinkingBudgetTokens {
		t.Errorf("expected default thinking budget, got %d", out.GenerationConfig.ThinkingConfig.ThinkingBudget)
	}
}

func TestGoogleToAnthropicEmptyCandidatesIsRetryable(t *testing.T) {
	resp := &models.GoogleGenerateContentResponse{}
	_, err := GoogleToAnthropic(resp, "claude-opus-4-5", cache.New(), "gemini-3")
	if err == nil {
		t.Fatal("expected error for empty candidates")
	}
	if pe, ok := err.(*errors.ProxyError); !ok || !pe.IsRetryable() {
		t.Errorf("expected a retryable error for empty candidates, got %v", err)
	}
}

func TestGoogleToAnthropicToolUseOverridesStop(t *testing.T) {
	resp := &models.GoogleGenerateContentResponse{
		Candidates: []models.GoogleCandidate{{
			Content: models.GoogleContent{Parts: []models.GooglePart{
				{FunctionCall: &models.GoogleFunctionCall{Name: "f", Args: map[string]interface{}{}}},
			}},
			FinishReason: constants.GoogleFinishStop,
		}},
	}
	out, err := GoogleToAnthropic(resp, "claude-opus-4-5", cache.New(), "gemini-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.StopReason == nil || *out.StopReason != constants.StopReasonToolUse {
		t.Errorf("expected tool_use to override STOP, got %v", out.StopReason)
	}
}

func TestGoogleToAnthropicCapturesToolSignature(t *testing.T) {
	sigCache := cache.New()
	resp := &models.GoogleGenerateContentResponse{
		Candidates: []models.GoogleCandidate{{
			Content: models.GoogleContent{Parts: []models.GooglePart{
				{FunctionCall: &models.GoogleFunctionCall{ID: "toolu_9", Name: "f", Args: map[string]interface{}{}}, ThoughtSignature: "a-long-enough-signature-value"},
			}},
			FinishReason: constants.GoogleFinishStop,
		}},
	}
	if _, err := GoogleToAnthropic(resp, "claude-opus-4-5", sigCache, "gemini-3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sigCache.GetByToolID("toolu_9"); !ok {
		t.Error("expected tool signature to be cached")
	}
}

func TestAnthropicToOpenAIMapsToolUseToToolCalls(t *testing.T) {
	stopReason := constants.StopReasonToolUse
	resp := &models.AnthropicResponse{
		Content: []models.ContentBlock{
			{Type: constants.ContentTypeToolUse, ID: "toolu_1", Name: "f", Input: map[string]interface{}{"x": 1.0}},
		},
		StopReason: &stopReason,
	}
	out := AnthropicToOpenAI(resp, "gpt-4")
	choice := out.Choices[0]
	if len(choice.Message.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %+v", choice.Message.ToolCalls)
	}
	if *choice.FinishReason != constants.FinishReasonToolCalls {
		t.Errorf("expected finish_reason tool_calls, got %s", *choice.FinishReason)
	}
}

func TestSanitizeToolArgsRemapsBareQueryToRequiredParam(t *testing.T) {
	out := SanitizeToolArgs("Bash", map[string]interface{}{"query": "ls -la"})
	if out["command"] != "ls -la" {
		t.Errorf("expected query remapped to command, got %+v", out)
	}
	if _, ok := out["query"]; ok {
		t.Errorf("expected query key removed, got %+v", out)
	}
}

func TestSanitizeToolArgsMergesJSONEncodedQuery(t *testing.T) {
	out := SanitizeToolArgs("Edit", map[string]interface{}{
		"query": `{"file_path":"a.go","old_string":"foo","new_string":"bar"}`,
	})
	if out["file_path"] != "a.go" || out["old_string"] != "foo" || out["new_string"] != "bar" {
		t.Errorf("expected JSON-encoded query merged in, got %+v", out)
	}
}

func TestSanitizeToolArgsRestoresQueryForSearchTools(t *testing.T) {
	out := SanitizeToolArgs("WebSearch", map[string]interface{}{"query": "weather today"})
	if out["query"] != "weather today" {
		t.Errorf("expected query restored for a search tool, got %+v", out)
	}
}

func TestSanitizeToolArgsLeavesWellFormedArgsAlone(t *testing.T) {
	out := SanitizeToolArgs("Read", map[string]interface{}{"file_path": "a.go"})
	if len(out) != 1 || out["file_path"] != "a.go" {
		t.Errorf("expected well-formed args untouched, got %+v", out)
	}
}

func TestSanitizeToolArgsNilInputReturnsEmptyMap(t *testing.T) {
	out := SanitizeToolArgs("Bash", nil)
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty map for nil input, got %+v", out)
	}
}

func TestGoogleToAnthropicSanitizesToolArgs(t *testing.T) {
	resp := &models.GoogleGenerateContentResponse{
		Candidates: []models.GoogleCandidate{{
			Content: models.GoogleContent{Parts: []models.GooglePart{
				{FunctionCall: &models.GoogleFunctionCall{Name: "Bash", Args: map[string]interface{}{"query": "ls -la"}}},
			}},
			FinishReason: constants.GoogleFinishStop,
		}},
	}
	out, err := GoogleToAnthropic(resp, "claude-opus-4-5", cache.New(), "gemini-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	input, ok := out.Content[0].Input.(map[string]interface{})
	if !ok || input["command"] != "ls -la" {
		t.Errorf("expected sanitized command argument, got %+v", out.Content[0].Input)
	}
}
