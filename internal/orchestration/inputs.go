package orchestration

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/bizmatters/design-research-gateway/internal/models"
)

// invocationSchema describes the POST /api/dify body.
const invocationSchema = `{
	"type": "object",
	"required": ["inputs"],
	"properties": {
		"inputs": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"responseMode": {"type": "string", "enum": ["blocking", "streaming"]},
		"debug": {"type": "boolean"},
		"keyType": {"type": "string"}
	}
}`

// RequestValidator checks invocation bodies before anything is sent upstream.
type RequestValidator struct {
	schema         *gojsonschema.Schema
	requiredInputs []string
}

// NewRequestValidator compiles the request schema. requiredInputs must be
// present and non-blank in every request.
func NewRequestValidator(requiredInputs []string) (*RequestValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(invocationSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile invocation schema: %w", err)
	}
	return &RequestValidator{schema: schema, requiredInputs: requiredInputs}, nil
}

// Decode validates body and returns the request with defaults applied.
func (v *RequestValidator) Decode(body []byte) (*models.InvocationRequest, error) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, &ValidationError{Message: "请求体不是有效的JSON"}
	}
	if !result.Valid() {
		fields := make(map[string]string, len(result.Errors()))
		for _, desc := range result.Errors() {
			fields[desc.Field()] = desc.Description()
		}
		return nil, &ValidationError{Message: "请求格式无效", Fields: fields}
	}

	var req models.InvocationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &ValidationError{Message: "请求格式无效"}
	}
	if req.ResponseMode == "" {
		req.ResponseMode = models.ResponseModeBlocking
	}
	if req.KeyType == "" {
		req.KeyType = models.KeyClassWorkflow
	}

	if err := v.CheckInputs(req.Inputs); err != nil {
		return nil, err
	}
	return &req, nil
}

// CheckInputs rejects blank values and missing required inputs.
func (v *RequestValidator) CheckInputs(inputs map[string]string) error {
	fields := make(map[string]string)
	for name, value := range inputs {
		if strings.TrimSpace(value) == "" {
			fields[name] = "must not be blank"
		}
	}
	for _, name := range v.requiredInputs {
		if name == "" {
			continue
		}
		if _, ok := inputs[name]; !ok {
			fields[name] = "is required"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Message: models.MsgInputsRequired, Fields: fields}
	}
	return nil
}

// PrepareInputs copies inputs and synthesizes a title from the topic when
// the title is missing or empty.
func PrepareInputs(inputs map[string]string) map[string]string {
	prepared := make(map[string]string, len(inputs)+1)
	for k, v := range inputs {
		prepared[k] = v
	}
	if prepared["title"] == "" && prepared["topic"] != "" {
		prepared["title"] = prepared["topic"] + "研究"
	}
	return prepared
}
