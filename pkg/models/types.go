// Package models defines the wire types for all three protocol dialects
// the proxy speaks: Anthropic Messages, OpenAI Chat Completions, and the
// Google Generative AI dialect spoken by the Cloud Code upstream.
package models

// -----------------------------------------------------------------------
// Anthropic dialect
// -----------------------------------------------------------------------

// AnthropicMessage is one entry of an Anthropic-form request's message
// list. Content is either a plain string or a []ContentBlock — kept as
// interface{} because that duality is exactly what the wire format does.
type AnthropicMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// ContentBlock is the tagged union of everything that can appear inside
// Anthropic message content or a non-streaming response. Type is the wire
// discriminator; only the fields relevant to that Type are populated.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// thinking
	Thinking  string  `json:"thinking,omitempty"`
	Signature *string `json:"signature,omitempty"`

	// tool_use
	ID               string      `json:"id,omitempty"`
	Name             string      `json:"name,omitempty"`
	Input            interface{} `json:"input,omitempty"`
	ThoughtSignature string      `json:"-"` // internal only, never serialized directly

	// tool_result
	ToolUseID string      `json:"tool_use_id,omitempty"`
	Content   interface{} `json:"content,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource is Anthropic's discriminated image payload: either an
// inline base64 blob or a remote URL.
type ImageSource struct {
	Type      string `json:"type"` // "base64" | "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// AnthropicTool is a tool definition in the Anthropic dialect.
type AnthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// AnthropicToolChoice is the {auto} | {any} | {tool, name} union.
type AnthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// AnthropicThinking configures extended thinking on the request.
type AnthropicThinking struct {
	Type         string `json:"type"` // "enabled" | "disabled"
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

// AnthropicRequest is the full request shape accepted by /v1/messages and
// produced as the intermediate form of an OpenAI→Anthropic translation.
type AnthropicRequest struct {
	Model         string                `json:"model"`
	Messages      []AnthropicMessage    `json:"messages"`
	System        interface{}           `json:"system,omitempty"` // string or []ContentBlock
	MaxTokens     int                   `json:"max_tokens"`
	Temperature   *float64              `json:"temperature,omitempty"`
	TopP          *float64              `json:"top_p,omitempty"`
	StopSequences []string              `json:"stop_sequences,omitempty"`
	Tools         []AnthropicTool       `json:"tools,omitempty"`
	ToolChoice    *AnthropicToolChoice  `json:"tool_choice,omitempty"`
	Thinking      *AnthropicThinking    `json:"thinking,omitempty"`
	Stream        bool                  `json:"stream"`
}

// AnthropicResponse is the non-streaming response body.
type AnthropicResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Model        string         `json:"model"`
	Content      []ContentBlock `json:"content"`
	StopReason   *string        `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        AnthropicUsage `json:"usage"`
}

// AnthropicUsage carries cache-aware token accounting: input/output
// counts plus the cache-creation and cache-read breakdowns.
type AnthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// -----------------------------------------------------------------------
// OpenAI dialect
// -----------------------------------------------------------------------

// OpenAIMessage is one entry of an OpenAI-form request's message list.
type OpenAIMessage struct {
	Role       string           `json:"role"`
	Content    interface{}      `json:"content,omitempty"` // string, []OpenAIContentPart, or null
	Name       string           `json:"name,omitempty"`
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	// FunctionCall is the legacy (pre-tools) single function-call shape.
	FunctionCall *OpenAIFunctionCall `json:"function_call,omitempty"`
}

// OpenAIContentPart is one element of a multimodal OpenAI message content
// array — either {type:"text", text} or {type:"image_url", image_url:{url}}.
type OpenAIContentPart struct {
	Type     string             `json:"type"`
	Text     string             `json:"text,omitempty"`
	ImageURL *OpenAIImageURLRef `json:"image_url,omitempty"`
}

type OpenAIImageURLRef struct {
	URL string `json:"url"`
}

type OpenAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OpenAIToolCall is one entry of an assistant message's tool_calls array.
type OpenAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function OpenAIFunctionCall `json:"function"`
}

// OpenAITool is a tool definition in the OpenAI dialect.
type OpenAITool struct {
	Type     string             `json:"type"`
	Function OpenAIToolFunction `json:"function"`
}

type OpenAIToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// OpenAILegacyFunction is the pre-"tools" function definition shape,
// still sent by some older clients alongside function_call.
type OpenAILegacyFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// OpenAIRequest is the request shape accepted by /v1/chat/completions.
type OpenAIRequest struct {
	Model               string                  `json:"model"`
	Messages            []OpenAIMessage         `json:"messages"`
	MaxTokens           int                     `json:"max_tokens,omitempty"`
	MaxCompletionTokens int                     `json:"max_completion_tokens,omitempty"`
	Temperature         *float64                `json:"temperature,omitempty"`
	TopP                *float64                `json:"top_p,omitempty"`
	Stop                interface{}             `json:"stop,omitempty"` // string or []string
	Stream              bool                    `json:"stream,omitempty"`
	Tools               []OpenAITool            `json:"tools,omitempty"`
	ToolChoice          interface{}             `json:"tool_choice,omitempty"` // "auto"|"required"|"none"|{type,function:{name}}
	Functions           []OpenAILegacyFunction  `json:"functions,omitempty"`
	FunctionCall        interface{}             `json:"function_call,omitempty"`
}

// OpenAIResponse is the non-streaming response body.
type OpenAIResponse struct {
	ID                string         `json:"id"`
	Object            string         `json:"object"`
	Created           int64          `json:"created"`
	Model             string         `json:"model"`
	Choices           []OpenAIChoice `json:"choices"`
	Usage             OpenAIUsage    `json:"usage"`
	SystemFingerprint string         `json:"system_fingerprint,omitempty"`
}

type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason *string       `json:"finish_reason"`
}

type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAIChunk is one streaming chunk emitted from the C5 OpenAI
// re-framing state machine.
type OpenAIChunk struct {
	ID                string              `json:"id"`
	Object            string              `json:"object"`
	Created           int64               `json:"created"`
	Model             string              `json:"model"`
	SystemFingerprint string              `json:"system_fingerprint,omitempty"`
	Choices           []OpenAIChunkChoice `json:"choices"`
	Usage             *OpenAIUsage        `json:"usage,omitempty"`
}

type OpenAIChunkChoice struct {
	Index        int              `json:"index"`
	Delta        OpenAIChunkDelta `json:"delta"`
	FinishReason *string          `json:"finish_reason"`
}

type OpenAIChunkDelta struct {
	Role      string                  `json:"role,omitempty"`
	Content   *string                 `json:"content,omitempty"`
	ToolCalls []OpenAIChunkToolCall   `json:"tool_calls,omitempty"`
}

type OpenAIChunkToolCall struct {
	Index    int                        `json:"index"`
	ID       string                     `json:"id,omitempty"`
	Type     string                     `json:"type,omitempty"`
	Function *OpenAIChunkToolCallFunc   `json:"function,omitempty"`
}

type OpenAIChunkToolCallFunc struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// -----------------------------------------------------------------------
// Google Generative AI ("Cloud Code") dialect
// -----------------------------------------------------------------------

// GoogleRequest is the body posted to the Cloud Code upstream.
type GoogleRequest struct {
	Model             string                 `json:"model,omitempty"`
	Contents          []GoogleContent        `json:"contents"`
	SystemInstruction *GoogleContent         `json:"systemInstruction,omitempty"`
	Tools             []GoogleTool           `json:"tools,omitempty"`
	ToolConfig        *GoogleToolConfig      `json:"toolConfig,omitempty"`
	GenerationConfig  *GoogleGenerationConfig `json:"generationConfig,omitempty"`
}

type GoogleContent struct {
	Role  string       `json:"role,omitempty"` // "user" | "model"
	Parts []GooglePart `json:"parts"`
}

// GooglePart is the tagged union of upstream content: text (optionally a
// thought), an image blob, a function call, or a function response. The
// zero value of any field not populated for this part's kind is omitted.
type GooglePart struct {
	Text             string                 `json:"text,omitempty"`
	Thought          bool                   `json:"thought,omitempty"`
	ThoughtSignature string                 `json:"thoughtSignature,omitempty"`
	InlineData       *GoogleBlob            `json:"inlineData,omitempty"`
	FunctionCall     *GoogleFunctionCall    `json:"functionCall,omitempty"`
	FunctionResponse *GoogleFunctionResponse `json:"functionResponse,omitempty"`
}

type GoogleBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type GoogleFunctionCall struct {
	ID   string                 `json:"id,omitempty"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type GoogleFunctionResponse struct {
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

type GoogleTool struct {
	FunctionDeclarations []GoogleFunctionDeclaration `json:"functionDeclarations"`
}

type GoogleFunctionDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type GoogleToolConfig struct {
	FunctionCallingConfig *GoogleFunctionCallingConfig `json:"functionCallingConfig,omitempty"`
}

type GoogleFunctionCallingConfig struct {
	Mode                 string   `json:"mode"` // AUTO | ANY | NONE
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

type GoogleThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type GoogleGenerationConfig struct {
	Temperature      *float64              `json:"temperature,omitempty"`
	TopP             *float64              `json:"topP,omitempty"`
	MaxOutputTokens  int                   `json:"maxOutputTokens,omitempty"`
	StopSequences    []string              `json:"stopSequences,omitempty"`
	ThinkingConfig   *GoogleThinkingConfig `json:"thinkingConfig,omitempty"`
}

// GoogleGenerateContentResponse is the non-streaming response, and also
// the shape nested under "response" in each streaming envelope.
type GoogleGenerateContentResponse struct {
	Candidates    []GoogleCandidate `json:"candidates"`
	UsageMetadata *GoogleUsage      `json:"usageMetadata,omitempty"`
}

type GoogleCandidate struct {
	Content      GoogleContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type GoogleUsage struct {
	PromptTokenCount        int `json:"promptTokenCount"`
	CandidatesTokenCount    int `json:"candidatesTokenCount"`
	TotalTokenCount         int `json:"totalTokenCount"`
	CachedContentTokenCount int `json:"cachedContentTokenCount"`
}

// GoogleStreamEnvelope is the shape of one SSE `data:` payload from the
// upstream: either {response: GoogleGenerateContentResponse} or the
// response body directly. Candidates/UsageMetadata are only populated by
// the direct-body form; callers should prefer Response when it is
// non-nil.
type GoogleStreamEnvelope struct {
	Response      *GoogleGenerateContentResponse `json:"response,omitempty"`
	Candidates    []GoogleCandidate              `json:"candidates,omitempty"`
	UsageMetadata *GoogleUsage                   `json:"usageMetadata,omitempty"`
}

// Resolve returns the effective response body regardless of which of the
// two envelope shapes the upstream used for this chunk.
func (e *GoogleStreamEnvelope) Resolve() *GoogleGenerateContentResponse {
	if e.Response != nil {
		return e.Response
	}
	if e.Candidates != nil || e.UsageMetadata != nil {
		return &GoogleGenerateContentResponse{Candidates: e.Candidates, UsageMetadata: e.UsageMetadata}
	}
	return nil
}
