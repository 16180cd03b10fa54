// Package constants centralizes the magic strings shared by the
// translator, the SSE pipeline and the HTTP surface so the wire
// vocabulary for all three dialects lives in one place.
package constants

// Content block types (Anthropic wire dialect).
const (
	ContentTypeText       = "text"
	ContentTypeThinking   = "thinking"
	ContentTypeToolUse    = "tool_use"
	ContentTypeToolResult = "tool_result"
	ContentTypeImage      = "image"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleModel     = "model" // Google dialect's name for the assistant role
)

// Anthropic stop reasons.
const (
	StopReasonEndTurn      = "end_turn"
	StopReasonToolUse      = "tool_use"
	StopReasonMaxTokens    = "max_tokens"
	StopReasonStopSequence = "stop_sequence"
)

// OpenAI finish reasons.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonFunctionCall  = "function_call"
	FinishReasonContentFilter = "content_filter"
)

// Google candidate finish reasons.
const (
	GoogleFinishStop      = "STOP"
	GoogleFinishMaxTokens = "MAX_TOKENS"
	GoogleFinishSafety    = "SAFETY"
	GoogleFinishRecite    = "RECITATION"
)

// Anthropic SSE event names.
const (
	EventMessageStart      = "message_start"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventPing              = "ping"
	EventError             = "error"
)

// Anthropic content_block_delta.delta.type values.
const (
	DeltaTypeTextDelta      = "text_delta"
	DeltaTypeThinkingDelta  = "thinking_delta"
	DeltaTypeSignatureDelta = "signature_delta"
	DeltaTypeInputJSONDelta = "input_json_delta"
)

// HTTP endpoint paths.
const (
	EndpointChatCompletions = "/v1/chat/completions"
	EndpointMessages        = "/v1/messages"
	EndpointCountTokens     = "/v1/messages/count_tokens"
	EndpointHealth          = "/health"
	EndpointMetrics         = "/metrics"
)

// HTTP header names.
const (
	HeaderContentType     = "Content-Type"
	HeaderAuthorization   = "Authorization"
	HeaderXAPIKey         = "x-api-key"
	HeaderXGoogAPIKey     = "x-goog-api-key"
	HeaderCacheControl    = "Cache-Control"
	HeaderConnection      = "Connection"
	HeaderXAccelBuffering = "X-Accel-Buffering"
)

// MIME types.
const (
	MIMETypeJSON = "application/json"
	MIMETypeSSE  = "text/event-stream"
)

// Tool wire constants.
const (
	ToolTypeFunction = "function"
	ToolIDPrefix     = "toolu_"
)

// Message envelope types.
const (
	MessageTypeMessage = "message"
	MessageTypeError   = "error"
)

// Error type strings surfaced in the {type, error:{type, message}} body.
const (
	ErrorTypeInvalidRequest   = "invalid_request_error"
	ErrorTypeAuthentication   = "authentication_error"
	ErrorTypeAPIError         = "api_error"
	ErrorTypeUpstream         = "upstream_error"
	ErrorTypeTimeout          = "timeout_error"
	ErrorTypeOverloaded       = "overloaded_error"
)

// Tool choice modes (Anthropic wire dialect).
const (
	ToolChoiceAuto     = "auto"
	ToolChoiceAny      = "any"
	ToolChoiceTool     = "tool"
	ToolChoiceRequired = "required" // OpenAI spelling, collapses to ToolChoiceAny
	ToolChoiceNone     = "none"
)

// Google functionCallingConfig.mode values.
const (
	GoogleFunctionCallingAuto = "AUTO"
	GoogleFunctionCallingAny  = "ANY"
	GoogleFunctionCallingNone = "NONE"
)

// Google part field names — kept as named constants because the SSE
// pipeline and the request translator both need to agree on the exact
// JSON keys the upstream uses.
const (
	GoogleFieldText             = "text"
	GoogleFieldThought          = "thought"
	GoogleFieldThoughtSignature = "thoughtSignature"
	GoogleFieldFunctionCall     = "functionCall"
	GoogleFieldFunctionResponse = "functionResponse"
	GoogleFieldInlineData       = "inlineData"
)

// Signature cache tuning.
const (
	// MinSignatureLength is the minimum byte length a thinking signature
	// must have to be cached or re-injected; shorter values are treated
	// as noise, not real signatures.
	MinSignatureLength = 8
	// MaxSignatureCacheEntries bounds each of the cache's two namespaces;
	// the least recently inserted or read entry is evicted on overflow.
	MaxSignatureCacheEntries = 1024
)

// Idle-timeout supervision for the streaming pipeline.
const (
	IdleCheckInterval = 5  // seconds between supervisor polls
	IdleWarnAfter     = 120 // seconds of silence before a warning is logged
	IdleCancelAfter   = 180 // seconds of silence before the read is cancelled
)

// MaxRequestBodyBytes is the 32 MiB cutoff past which the HTTP surface
// answers 413 without parsing the body.
const MaxRequestBodyBytes = 32 * 1024 * 1024

// ThinkingBudgetTokens is the token budget applied when thinking is on
// without an explicit budget, e.g. when a model name (the caller's, or the
// routed upstream ID) contains "thinking" or "gemini-3".
const ThinkingBudgetTokens = 16000
