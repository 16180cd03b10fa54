// Package converter implements the request and non-streaming response
// translators: OpenAI->Anthropic and Anthropic->Google on the request
// side, Google->Anthropic and Anthropic->OpenAI on the response side.
//
// Each direction dispatches on a content block's "type" field while
// walking []interface{}/map[string]interface{} shapes rather than
// fully-typed structs, since request bodies arrive as loosely-typed
// JSON from three different client dialects.
package converter

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cloudcode-proxy/internal/cache"
	"cloudcode-proxy/internal/router"
	"cloudcode-proxy/internal/schema"
	"cloudcode-proxy/pkg/constants"
	"cloudcode-proxy/pkg/errors"
	"cloudcode-proxy/pkg/json"
	"cloudcode-proxy/pkg/models"
)

// GenerateToolID mints a Claude-style tool-use id. The nanosecond-plus-
// index scheme (rather than a UUID) is intentional: it preserves call
// ordering within a single response, a property callers rely on when
// several tool calls land in the same turn.
func GenerateToolID(index ...int) string {
	if len(index) > 0 {
		return fmt.Sprintf("%s%d_%d", constants.ToolIDPrefix, time.Now().UnixNano(), index[0])
	}
	return fmt.Sprintf("%s%d", constants.ToolIDPrefix, time.Now().UnixNano())
}

func newMessageID() string {
	return "msg_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newChatCompletionID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newSystemFingerprint() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "fp_" + hex.EncodeToString(buf)
}

// -----------------------------------------------------------------------
// OpenAI → Anthropic (request)
// -----------------------------------------------------------------------

// OpenAIToAnthropic converts an OpenAI-dialect request into its Anthropic
// equivalent: split off the system prefix, re-role tool/function messages
// to user, and expand tool_calls into tool_use blocks.
func OpenAIToAnthropic(req *models.OpenAIRequest) (*models.AnthropicRequest, error) {
	var systemParts []string
	var messages []models.AnthropicMessage

	for _, msg := range req.Messages {
		switch msg.Role {
		case constants.RoleSystem:
			systemParts = append(systemParts, contentToText(msg.Content))

		case constants.RoleTool, "function":
			toolUseID := msg.ToolCallID
			if toolUseID == "" {
				toolUseID = msg.Name
			}
			if toolUseID == "" {
				toolUseID = GenerateToolID()
			}
			messages = append(messages, models.AnthropicMessage{
				Role: constants.RoleUser,
				Content: []models.ContentBlock{{
					Type:      constants.ContentTypeToolResult,
					ToolUseID: toolUseID,
					Content:   contentToText(msg.Content),
				}},
			})

		case constants.RoleAssistant:
			blocks, err := assistantMessageToBlocks(msg)
			if err != nil {
				return nil, err
			}
			messages = append(messages, models.AnthropicMessage{Role: constants.RoleAssistant, Content: blocks})

		default: // user
			messages = append(messages, models.AnthropicMessage{
				Role:    constants.RoleUser,
				Content: userContentToBlocks(msg.Content),
			})
		}
	}

	maxTokens := req.MaxCompletionTokens
	if maxTokens == 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 4096
	}

	anthReq := &models.AnthropicRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      req.Stream,
	}

	if len(systemParts) > 0 {
		anthReq.System = strings.Join(systemParts, "\n\n")
	}

	if stopStr, ok := req.Stop.(string); ok && stopStr != "" {
		anthReq.StopSequences = []string{stopStr}
	} else if stopArr, ok := req.Stop.([]interface{}); ok {
		for _, s := range stopArr {
			if str, ok := s.(string); ok {
				anthReq.StopSequences = append(anthReq.StopSequences, str)
			}
		}
	}

	tools := req.Tools
	if len(tools) == 0 && len(req.Functions) > 0 {
		tools = legacyFunctionsToTools(req.Functions)
	}
	if len(tools) > 0 {
		anthReq.Tools = make([]models.AnthropicTool, len(tools))
		for i, t := range tools {
			anthReq.Tools[i] = models.AnthropicTool{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				InputSchema: t.Function.Parameters,
			}
		}
	}

	toolChoice := req.ToolChoice
	if toolChoice == nil {
		toolChoice = req.FunctionCall
	}
	if tc := mapOpenAIToolChoice(toolChoice); tc != nil {
		anthReq.ToolChoice = tc
	}

	lowerModel := strings.ToLower(req.Model)
	if strings.Contains(lowerModel, "thinking") || strings.Contains(lowerModel, "gemini-3") {
		anthReq.Thinking = &models.AnthropicThinking{Type: "enabled", BudgetTokens: constants.ThinkingBudgetTokens}
	}

	return anthReq, nil
}

func legacyFunctionsToTools(fns []models.OpenAILegacyFunction) []models.OpenAITool {
	out := make([]models.OpenAITool, len(fns))
	for i, f := range fns {
		out[i] = models.OpenAITool{
			Type: constants.ToolTypeFunction,
			Function: models.OpenAIToolFunction{
				Name:        f.Name,
				Description: f.Description,
				Parameters:  f.Parameters,
			},
		}
	}
	return out
}

// mapOpenAIToolChoice maps an OpenAI tool_choice value onto its Anthropic
// equivalent: "none" collapses to tools being omitted entirely (nil),
// "required" maps to "any", "auto" maps to "auto", a named function
// choice maps to {tool, name}; anything else (including an absent
// choice) also yields nil, leaving tool_choice unset.
func mapOpenAIToolChoice(choice interface{}) *models.AnthropicToolChoice {
	switch v := choice.(type) {
	case string:
		switch v {
		case constants.ToolChoiceNone:
			return nil
		case constants.ToolChoiceRequired:
			return &models.AnthropicToolChoice{Type: constants.ToolChoiceAny}
		case constants.ToolChoiceAuto:
			return &models.AnthropicToolChoice{Type: constants.ToolChoiceAuto}
		}
	case map[string]interface{}:
		if fn, ok := v["function"].(map[string]interface{}); ok {
			if name, ok := fn["name"].(string); ok {
				return &models.AnthropicToolChoice{Type: constants.ToolChoiceTool, Name: name}
			}
		}
	}
	return nil
}

func contentToText(content interface{}) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []interface{}:
		var b strings.Builder
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok && m["type"] == "text" {
				if t, ok := m["text"].(string); ok {
					b.WriteString(t)
				}
			}
		}
		return b.String()
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}

// userContentToBlocks handles a user message's content, which may be a
// plain string or a multimodal array of text/image_url parts.
func userContentToBlocks(content interface{}) interface{} {
	arr, ok := content.([]interface{})
	if !ok {
		return content // plain string, or nil
	}

	var blocks []models.ContentBlock
	for _, raw := range arr {
		part, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		switch part["type"] {
		case "text":
			if t, ok := part["text"].(string); ok {
				blocks = append(blocks, models.ContentBlock{Type: constants.ContentTypeText, Text: t})
			}
		case "image_url":
			if imgURL, ok := part["image_url"].(map[string]interface{}); ok {
				if url, ok := imgURL["url"].(string); ok {
					blocks = append(blocks, imageBlockFromURL(url))
				}
			}
		}
	}
	return blocks
}

// imageBlockFromURL decodes a data: URI into a base64 source; any other
// URL is passed through as a URL source and rejected later, in the
// Anthropic->Google step, since the upstream only accepts inline bytes.
func imageBlockFromURL(url string) models.ContentBlock {
	if strings.HasPrefix(url, "data:") {
		// data:<mediatype>;base64,<data>
		if idx := strings.Index(url, ","); idx != -1 {
			header := url[5:idx]
			data := url[idx+1:]
			mediaType := strings.TrimSuffix(header, ";base64")
			return models.ContentBlock{
				Type:   constants.ContentTypeImage,
				Source: &models.ImageSource{Type: "base64", MediaType: mediaType, Data: data},
			}
		}
	}
	return models.ContentBlock{
		Type:   constants.ContentTypeImage,
		Source: &models.ImageSource{Type: "url", URL: url},
	}
}

// assistantMessageToBlocks expands an OpenAI assistant message (plain
// text and/or tool_calls) into the Anthropic [text?, tool_use...] block
// sequence.
func assistantMessageToBlocks(msg models.OpenAIMessage) ([]models.ContentBlock, error) {
	var blocks []models.ContentBlock

	if text := contentToText(msg.Content); text != "" {
		blocks = append(blocks, models.ContentBlock{Type: constants.ContentTypeText, Text: text})
	}

	calls := msg.ToolCalls
	if len(calls) == 0 && msg.FunctionCall != nil {
		calls = []models.OpenAIToolCall{{ID: "", Type: constants.ToolTypeFunction, Function: *msg.FunctionCall}}
	}

	for i, call := range calls {
		id := call.ID
		if id == "" {
			id = GenerateToolID(i)
		}

		input, err := parseToolArguments(call.Function.Arguments)
		if err != nil {
			return nil, errors.NewBadRequest("invalid_tool_arguments: " + err.Error()).WithCause(err)
		}

		blocks = append(blocks, models.ContentBlock{
			Type:  constants.ContentTypeToolUse,
			ID:    id,
			Name:  call.Function.Name,
			Input: input,
		})
	}

	return blocks, nil
}

func parseToolArguments(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var input map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, err
	}
	return input, nil
}

// -----------------------------------------------------------------------
// Anthropic → Google (request)
// -----------------------------------------------------------------------

// AnthropicToGoogle converts an Anthropic-dialect request into the
// upstream Google request shape. sigCache re-injects a stripped
// thoughtSignature onto tool_use blocks; route.Family is this request's
// resolved model family, used as the fallback cache namespace when no
// tool_use id match exists.
func AnthropicToGoogle(req *models.AnthropicRequest, route router.Route, sigCache *cache.SignatureCache) (*models.GoogleRequest, error) {
	contents := make([]models.GoogleContent, 0, len(req.Messages))

	for _, msg := range req.Messages {
		parts, err := anthropicContentToGoogleParts(msg.Content, sigCache, route.Family)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			continue
		}
		role := constants.RoleUser
		if msg.Role == constants.RoleAssistant {
			role = constants.RoleModel
		}
		contents = append(contents, models.GoogleContent{Role: role, Parts: parts})
	}

	greq := &models.GoogleRequest{
		Model:    route.UpstreamID,
		Contents: contents,
	}

	if sysText := anthropicSystemText(req.System); sysText != "" {
		greq.SystemInstruction = &models.GoogleContent{Parts: []models.GooglePart{{Text: sysText}}}
	}

	if len(req.Tools) > 0 {
		decls := make([]models.GoogleFunctionDeclaration, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = models.GoogleFunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema.Sanitize(t.InputSchema),
			}
		}
		greq.Tools = []models.GoogleTool{{FunctionDeclarations: decls}}
	}

	if req.ToolChoice != nil {
		greq.ToolConfig = mapAnthropicToolChoice(req.ToolChoice)
	}

	genConfig := &models.GoogleGenerationConfig{
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxTokens,
		StopSequences:   req.StopSequences,
	}
	if requestWantsThinking(req, route) {
		budget := constants.ThinkingBudgetTokens
		if req.Thinking != nil && req.Thinking.BudgetTokens > 0 {
			budget = req.Thinking.BudgetTokens
		}
		genConfig.ThinkingConfig = &models.GoogleThinkingConfig{ThinkingBudget: budget}
	}
	greq.GenerationConfig = genConfig

	return greq, nil
}

// requestWantsThinking is true when the caller explicitly enabled
// thinking, or when the resolved route force-enables it because the
// model name contains "thinking" or "gemini-3".
func requestWantsThinking(req *models.AnthropicRequest, route router.Route) bool {
	if req.Thinking != nil {
		return req.Thinking.Type == "enabled"
	}
	return route.EnableThinking
}

func anthropicSystemText(system interface{}) string {
	switch v := system.(type) {
	case string:
		return v
	case []models.ContentBlock:
		var parts []string
		for _, b := range v {
			if b.Type == constants.ContentTypeText {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	case []interface{}:
		var parts []string
		for _, raw := range v {
			if m, ok := raw.(map[string]interface{}); ok && m["type"] == "text" {
				if t, ok := m["text"].(string); ok {
					parts = append(parts, t)
				}
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

func mapAnthropicToolChoice(tc *models.AnthropicToolChoice) *models.GoogleToolConfig {
	switch tc.Type {
	case constants.ToolChoiceAny:
		return &models.GoogleToolConfig{FunctionCallingConfig: &models.GoogleFunctionCallingConfig{Mode: constants.GoogleFunctionCallingAny}}
	case constants.ToolChoiceTool:
		return &models.GoogleToolConfig{FunctionCallingConfig: &models.GoogleFunctionCallingConfig{
			Mode:                 constants.GoogleFunctionCallingAny,
			AllowedFunctionNames: []string{tc.Name},
		}}
	default:
		return &models.GoogleToolConfig{FunctionCallingConfig: &models.GoogleFunctionCallingConfig{Mode: constants.GoogleFunctionCallingAuto}}
	}
}

// anthropicContentToGoogleParts converts one message's content (string or
// block array) into Google parts. A tool_result block's tool_use_id is
// used as functionResponse.name; the name of the referenced tool is not
// looked up.
func anthropicContentToGoogleParts(content interface{}, sigCache *cache.SignatureCache, family string) ([]models.GooglePart, error) {
	if text, ok := content.(string); ok {
		if text == "" {
			return nil, nil
		}
		return []models.GooglePart{{Text: text}}, nil
	}

	blocks, ok := content.([]models.ContentBlock)
	if !ok {
		return nil, nil
	}

	var parts []models.GooglePart
	for _, b := range blocks {
		switch b.Type {
		case constants.ContentTypeText:
			if b.Text != "" {
				parts = append(parts, models.GooglePart{Text: b.Text})
			}

		case constants.ContentTypeToolUse:
			args, ok := b.Input.(map[string]interface{})
			if !ok {
				args = map[string]interface{}{}
			}
			sig := ""
			if b.Signature != nil {
				sig = *b.Signature
			}
			if len(sig) < constants.MinSignatureLength {
				if cached, ok := sigCache.Resolve(b.ID, family); ok {
					sig = cached
				}
			}
			parts = append(parts, models.GooglePart{
				FunctionCall:     &models.GoogleFunctionCall{ID: b.ID, Name: b.Name, Args: args},
				ThoughtSignature: sig,
			})

		case constants.ContentTypeToolResult:
			if b.ToolUseID == "" {
				return nil, errors.NewBadRequest("dangling_tool_result")
			}
			content := map[string]interface{}{"content": stringifyToolResultContent(b.Content)}
			parts = append(parts, models.GooglePart{
				FunctionResponse: &models.GoogleFunctionResponse{Name: b.ToolUseID, Response: content},
			})

		case constants.ContentTypeImage:
			if b.Source == nil {
				continue
			}
			switch b.Source.Type {
			case "base64":
				parts = append(parts, models.GooglePart{InlineData: &models.GoogleBlob{MimeType: b.Source.MediaType, Data: b.Source.Data}})
			default:
				return nil, errors.NewBadRequest("image url inputs are not supported by the upstream")
			}

		case constants.ContentTypeThinking:
			// Thinking blocks are streaming-constructed and never
			// round-trip back into a request; dropped with no warning
			// since the client is not expected to resend them.

		default:
			// unrecognised block type: dropped silently.
		}
	}
	return parts, nil
}

func stringifyToolResultContent(content interface{}) string {
	switch v := content.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}

// -----------------------------------------------------------------------
// Google → Anthropic (non-streaming response)
// -----------------------------------------------------------------------

// GoogleToAnthropic converts a non-streaming Google response into its
// Anthropic-dialect equivalent, taking only candidates[0].
func GoogleToAnthropic(resp *models.GoogleGenerateContentResponse, requestedModel string, sigCache *cache.SignatureCache, family string) (*models.AnthropicResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, errors.NewEmptyResponse("upstream returned no candidates")
	}
	candidate := resp.Candidates[0]

	var blocks []models.ContentBlock
	sawToolUse := false

	for _, part := range candidate.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			sawToolUse = true
			if part.Text != "" {
				blocks = append(blocks, models.ContentBlock{Type: constants.ContentTypeText, Text: part.Text})
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = GenerateToolID()
			}
			if len(part.ThoughtSignature) >= constants.MinSignatureLength {
				sigCache.PutByToolID(id, part.ThoughtSignature)
			}
			blocks = append(blocks, models.ContentBlock{
				Type:  constants.ContentTypeToolUse,
				ID:    id,
				Name:  part.FunctionCall.Name,
				Input: SanitizeToolArgs(part.FunctionCall.Name, part.FunctionCall.Args),
			})

		case part.InlineData != nil:
			blocks = append(blocks, models.ContentBlock{
				Type:   constants.ContentTypeImage,
				Source: &models.ImageSource{Type: "base64", MediaType: part.InlineData.MimeType, Data: part.InlineData.Data},
			})

		case part.Thought:
			if len(part.ThoughtSignature) >= constants.MinSignatureLength && family != "" {
				sigCache.PutByModelFamily(family, part.ThoughtSignature)
			}
			sig := part.ThoughtSignature
			blocks = append(blocks, models.ContentBlock{
				Type:      constants.ContentTypeThinking,
				Thinking:  part.Text,
				Signature: &sig,
			})

		case part.Text != "":
			blocks = append(blocks, models.ContentBlock{Type: constants.ContentTypeText, Text: part.Text})
		}
	}

	stopReason := mapGoogleFinishReason(candidate.FinishReason, sawToolUse)

	usage := models.AnthropicUsage{}
	if resp.UsageMetadata != nil {
		u := resp.UsageMetadata
		usage.InputTokens = u.PromptTokenCount - u.CachedContentTokenCount
		usage.CacheReadInputTokens = u.CachedContentTokenCount
		usage.OutputTokens = u.CandidatesTokenCount
	}

	return &models.AnthropicResponse{
		ID:         newMessageID(),
		Type:       constants.MessageTypeMessage,
		Role:       constants.RoleAssistant,
		Model:      requestedModel,
		Content:    blocks,
		StopReason: &stopReason,
		Usage:      usage,
	}, nil
}

// mapGoogleFinishReason maps a Google finish reason onto an Anthropic
// stop_reason, with tool-call presence overriding STOP: a candidate
// that emitted a function call always reports tool_use regardless of
// what finish reason Google attached to it.
func mapGoogleFinishReason(reason string, sawToolUse bool) string {
	if sawToolUse {
		return constants.StopReasonToolUse
	}
	switch reason {
	case constants.GoogleFinishMaxTokens:
		return constants.StopReasonMaxTokens
	case constants.GoogleFinishSafety, constants.GoogleFinishRecite:
		return constants.StopReasonEndTurn
	default:
		return constants.StopReasonEndTurn
	}
}

// -----------------------------------------------------------------------
// Anthropic → OpenAI (non-streaming response)
// -----------------------------------------------------------------------

// AnthropicToOpenAI converts an already-built Anthropic response into
// its OpenAI chat-completion equivalent.
func AnthropicToOpenAI(resp *models.AnthropicResponse, requestedModel string) *models.OpenAIResponse {
	var textParts []string
	var toolCalls []models.OpenAIToolCall

	for _, b := range resp.Content {
		switch b.Type {
		case constants.ContentTypeText:
			textParts = append(textParts, b.Text)
		case constants.ContentTypeToolUse:
			argsJSON, _ := json.Marshal(b.Input)
			toolCalls = append(toolCalls, models.OpenAIToolCall{
				ID:   b.ID,
				Type: constants.ToolTypeFunction,
				Function: models.OpenAIFunctionCall{
					Name:      b.Name,
					Arguments: string(argsJSON),
				},
			})
		}
	}

	var content interface{}
	if len(textParts) > 0 {
		content = strings.Join(textParts, "")
	} else {
		content = nil
	}

	finishReason := "stop"
	if resp.StopReason != nil {
		finishReason = mapAnthropicStopReasonToFinishReason(*resp.StopReason)
	}

	return &models.OpenAIResponse{
		ID:                newChatCompletionID(),
		Object:            "chat.completion",
		Created:           0, // stamped by the caller, which knows wall-clock time
		Model:             requestedModel,
		SystemFingerprint: newSystemFingerprint(),
		Choices: []models.OpenAIChoice{{
			Index: 0,
			Message: models.OpenAIMessage{
				Role:      constants.RoleAssistant,
				Content:   content,
				ToolCalls: toolCalls,
			},
			FinishReason: &finishReason,
		}},
		Usage: models.OpenAIUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}

func mapAnthropicStopReasonToFinishReason(stopReason string) string {
	switch stopReason {
	case constants.StopReasonToolUse:
		return constants.FinishReasonToolCalls
	case constants.StopReasonMaxTokens:
		return constants.FinishReasonLength
	default:
		return constants.FinishReasonStop
	}
}

// SanitizeToolArgs fixes up tool call arguments by removing a stray
// "query" argument and remapping its content onto the tool's actual
// required parameters. Exported so both the non-streaming translator
// and the streaming pipeline can call it.
//
// It handles three shapes coming back from the model:
//  1. the model sends {"query": "..."} instead of the real parameters
//  2. the model sends {"query": "{...}"} containing JSON-encoded
//     parameters
//  3. the model sends correct parameters alongside a spurious "query"
func SanitizeToolArgs(toolName string, input map[string]interface{}) map[string]interface{} {
	if input == nil {
		return map[string]interface{}{}
	}

	toolNameLower := strings.ToLower(toolName)

	var queryContent string
	var queryMap map[string]interface{}
	for key, val := range input {
		if strings.ToLower(key) == "query" {
			switch v := val.(type) {
			case string:
				queryContent = v
			case map[string]interface{}:
				queryMap = v
			}
			delete(input, key)
		}
	}

	if queryMap != nil {
		for k, v := range queryMap {
			if _, exists := input[k]; !exists {
				input[k] = v
			}
		}
		if hasRequiredParams(toolNameLower, input) {
			return input
		}
	}

	if queryContent == "" {
		return input
	}

	// query may itself be a JSON object carrying the real parameters.
	if strings.HasPrefix(strings.TrimSpace(queryContent), "{") {
		var parsedQuery map[string]interface{}
		if err := json.Unmarshal([]byte(queryContent), &parsedQuery); err == nil {
			for k, v := range parsedQuery {
				if _, exists := input[k]; !exists {
					input[k] = v
				}
			}
			if hasRequiredParams(toolNameLower, input) {
				return input
			}
		}
	}

	// Fall back to mapping the raw query string onto the parameter this
	// tool actually needs, matched fuzzily so variants like
	// "mcp__xxx__Edit" still classify correctly.
	switch {
	case strings.Contains(toolNameLower, "edit"):
		setIfAbsent(input, "file_path", queryContent)
		setIfAbsent(input, "old_string", queryContent)
		setIfAbsent(input, "new_string", queryContent)

	case strings.Contains(toolNameLower, "grep"):
		setIfAbsent(input, "pattern", queryContent)
		setIfAbsent(input, "path", ".")

	case strings.Contains(toolNameLower, "bash"):
		setIfAbsent(input, "command", queryContent)

	case strings.Contains(toolNameLower, "read"):
		setIfAbsent(input, "file_path", queryContent)

	case strings.Contains(toolNameLower, "write"):
		setIfAbsent(input, "file_path", queryContent)
		setIfAbsent(input, "content", queryContent)

	case strings.Contains(toolNameLower, "glob"):
		setIfAbsent(input, "pattern", queryContent)

	case strings.Contains(toolNameLower, "lsp"):
		setIfAbsent(input, "filePath", queryContent)

	case strings.Contains(toolNameLower, "task") && !strings.Contains(toolNameLower, "todo"):
		setIfAbsent(input, "prompt", queryContent)

	case strings.Contains(toolNameLower, "todo"):
		if _, ok := input["todos"]; !ok && strings.HasPrefix(strings.TrimSpace(queryContent), "[") {
			var todos []interface{}
			if err := json.Unmarshal([]byte(queryContent), &todos); err == nil {
				input["todos"] = todos
			}
		}

	case strings.Contains(toolNameLower, "webfetch") || strings.Contains(toolNameLower, "fetch"):
		setIfAbsent(input, "url", queryContent)

	case strings.Contains(toolNameLower, "websearch") || strings.Contains(toolNameLower, "search"):
		// this tool's real parameter name is "query" -- restore it.
		input["query"] = queryContent

	case strings.Contains(toolNameLower, "skill"):
		setIfAbsent(input, "skill", queryContent)

	case strings.Contains(toolNameLower, "askuserquestion") || strings.Contains(toolNameLower, "ask"):
		if _, ok := input["questions"]; !ok && strings.HasPrefix(strings.TrimSpace(queryContent), "[") {
			var questions []interface{}
			if err := json.Unmarshal([]byte(queryContent), &questions); err == nil {
				input["questions"] = questions
			}
		}

	case strings.Contains(toolNameLower, "notebook"):
		setIfAbsent(input, "notebook_path", queryContent)
	}

	return input
}

func setIfAbsent(input map[string]interface{}, key, value string) {
	if _, ok := input[key]; !ok {
		input[key] = value
	}
}

// hasRequiredParams reports whether input already carries the minimum
// parameters a tool of this name needs, so a fuzzy query remap can be
// skipped once merging query content already satisfied them.
func hasRequiredParams(toolNameLower string, input map[string]interface{}) bool {
	switch {
	case strings.Contains(toolNameLower, "edit"):
		_, hasFilePath := input["file_path"]
		_, hasOldString := input["old_string"]
		_, hasNewString := input["new_string"]
		return hasFilePath && hasOldString && hasNewString
	case strings.Contains(toolNameLower, "bash"):
		_, ok := input["command"]
		return ok
	case strings.Contains(toolNameLower, "read"):
		_, ok := input["file_path"]
		return ok
	case strings.Contains(toolNameLower, "grep"):
		_, ok := input["pattern"]
		return ok
	case strings.Contains(toolNameLower, "glob"):
		_, ok := input["pattern"]
		return ok
	case strings.Contains(toolNameLower, "write"):
		_, hasFilePath := input["file_path"]
		_, hasContent := input["content"]
		return hasFilePath && hasContent
	case strings.Contains(toolNameLower, "todo"):
		_, ok := input["todos"]
		return ok
	case strings.Contains(toolNameLower, "skill"):
		_, ok := input["skill"]
		return ok
	default:
		return false
	}
}
