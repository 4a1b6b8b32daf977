package models

// ResponseMode selects how the upstream returns its result.
type ResponseMode string

const (
	ResponseModeBlocking  ResponseMode = "blocking"
	ResponseModeStreaming ResponseMode = "streaming"
)

// KeyClass names which upstream credential an invocation uses.
type KeyClass string

const (
	KeyClassWorkflow   KeyClass = "workflow"
	KeyClassAPI        KeyClass = "api"
	KeyClassChat       KeyClass = "chat"
	KeyClassCompletion KeyClass = "completion"
)

// InvocationRequest is the body of POST /api/dify.
type InvocationRequest struct {
	Inputs       map[string]string `json:"inputs"`
	ResponseMode ResponseMode      `json:"responseMode,omitempty"`
	Debug        bool              `json:"debug,omitempty"`
	KeyType      KeyClass          `json:"keyType,omitempty"`
}

// InvocationResponse is the blocking-mode result returned to the browser.
type InvocationResponse struct {
	Answer         string         `json:"answer"`
	OriginalAnswer string         `json:"originalAnswer,omitempty"`
	Debug          map[string]any `json:"debug,omitempty"`
}

// ConfigEcho is the body of GET /api/dify.
type ConfigEcho struct {
	Status      string          `json:"status"`
	Time        string          `json:"time"`
	Environment string          `json:"environment"`
	Config      ConfigEchoEntry `json:"config"`
	DebugMode   bool            `json:"debug_mode"`
	Message     string          `json:"message"`
	Note        string          `json:"note"`
}

// ConfigEchoEntry describes the resolved upstream configuration without secrets.
type ConfigEchoEntry struct {
	APIURL        string `json:"api_url"`
	APIKeyType    string `json:"api_key_type"`
	APIKeyPreview string `json:"api_key_preview"`
}
