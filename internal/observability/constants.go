package observability

const (
	AttrServiceName      = "service.name"
	AttrServiceVersion   = "service.version"
	AttrAgentName        = "agent.name"
	AttrAgentLLM         = "agent.llm"
	AttrToolName         = "tool.name"
	AttrLLMModel         = "llm.model"
	AttrLLMTokensInput   = "llm.tokens.input"
	AttrLLMTokensOutput  = "llm.tokens.output"
	AttrErrorType        = "error.type"
	AttrStatusCode       = "http.status_code"
	AttrHTTPMethod       = "http.method"
	AttrHTTPPath         = "http.path"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPResponseSize = "http.response_size"
	AttrEventID          = "polwatch.event_id"

	AttrAgentType      = "agent.type"
	AttrSessionID      = "session.id"
	AttrUserID         = "user.id"
	AttrInvocationID   = "invocation.id"
	AttrErrorMessage   = "error.message"

	AttrGenAIOperationName = "gen_ai.operation.name"
	OpChat                 = "chat"
	OpToolCall             = "execute_tool"

	AttrLLMMaxTokens    = "llm.max_tokens"
	AttrLLMTemperature  = "llm.temperature"
	AttrLLMTopP         = "llm.top_p"
	AttrLLMFinishReason = "llm.finish_reason"
	AttrLLMRequestBody  = "llm.request.body"
	AttrLLMResponseBody = "llm.response.body"

	AttrToolDescription  = "tool.description"
	AttrToolCallID       = "tool.call_id"
	AttrToolArgsBody     = "tool.args.body"
	AttrToolResponseBody = "tool.response.body"

	SpanAgentRun      = "agent.run"
	SpanLLMCall       = "agent.llm_request"
	SpanToolExecution = "agent.tool_execution"
	SpanHTTPRequest   = "http.request"

	DefaultServiceName  = "polwatch"
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultSamplingRate = 1.0
	DefaultMetricsPath  = "/metrics"
)
