package models

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
	Debug   map[string]any    `json:"debug,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeUpstreamFailed   = "UPSTREAM_FAILED"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Messages returned to browsers verbatim.
const (
	MsgInternalFailure   = "处理Dify请求时发生错误"
	MsgInputsRequired    = "所有字段都需要填写"
	MsgTopicRequired     = "主题是必需的"
	MsgTextRequired      = "文本内容是必需的"
	MsgStreamEmpty       = "未能从流式响应中获取有效内容"
	MsgNotPublishedHint  = "没有已发布的工作流，请先在Dify平台上创建并发布工作流。"
	MsgStreamRetryAnswer = "生成过程中发生错误，请重试。"
	MsgStreamErrorPrefix = "流处理错误: "
)
