package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/extract"
	"github.com/bizmatters/design-research-gateway/internal/metrics"
	"github.com/bizmatters/design-research-gateway/internal/models"
)

// Extraction outcome labels reported in debug output.
const (
	extractionSucceeded = "提取成功"
	extractionFailed    = "无法提取内容"
)

// Service turns invocation requests into upstream calls and extracted answers
type Service struct {
	client    WorkflowClientInterface
	keys      *KeyResolver
	validator *RequestValidator
	extractor *extract.Extractor
	metrics   *metrics.InvocationMetrics
	logger    *zap.Logger
}

// NewService creates a new orchestration service. metrics may be nil.
func NewService(
	client WorkflowClientInterface,
	keys *KeyResolver,
	validator *RequestValidator,
	extractor *extract.Extractor,
	m *metrics.InvocationMetrics,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		client:    client,
		keys:      keys,
		validator: validator,
		extractor: extractor,
		metrics:   m,
		logger:    log,
	}
}

// Decode validates a raw request body
func (s *Service) Decode(body []byte) (*models.InvocationRequest, error) {
	return s.validator.Decode(body)
}

// Keys exposes the key resolver for the configuration echo
func (s *Service) Keys() *KeyResolver {
	return s.keys
}

// Metrics returns the invocation metrics, which may be nil
func (s *Service) Metrics() *metrics.InvocationMetrics {
	return s.metrics
}

// RunBlocking invokes the workflow, extracts the answer and normalizes it
func (s *Service) RunBlocking(ctx context.Context, req *models.InvocationRequest) (*models.InvocationResponse, error) {
	start := time.Now()
	runReq := s.runRequest(req)

	s.logger.Info("Invoking workflow",
		zap.String("response_mode", string(models.ResponseModeBlocking)),
		zap.String("key_class", string(req.KeyType)),
		zap.Bool("debug", req.Debug),
		zap.Int("inputs", len(runReq.Inputs)))

	result, err := s.client.Run(ctx, runReq)
	if err != nil {
		s.recordFailure(ctx, models.ResponseModeBlocking, req.KeyType, err, time.Since(start))
		return nil, err
	}

	extracted := s.extractor.Extract(result.Raw)
	if !extracted.Found {
		s.logger.Warn("No content field recognised, using raw JSON", zap.Int("bytes", len(result.Raw)))
		if s.metrics != nil {
			s.metrics.RecordExtractionFallback(ctx, string(req.KeyType))
		}
	}

	normalized := extract.Normalize(extract.Unwrap(extracted.Answer))
	resp := &models.InvocationResponse{
		Answer:         normalized.Text,
		OriginalAnswer: normalized.Original,
	}

	if req.Debug {
		resp.Debug = map[string]any{
			"request_time":          start.UnixMilli(),
			"response_time":         time.Now().UnixMilli(),
			"duration_ms":           time.Since(start).Milliseconds(),
			"extraction_path":       extractionLabel(extracted.Found),
			"extraction_matcher":    extracted.Path,
			"content_length":        utf8.RuneCountInString(extracted.Answer),
			"original_data_summary": summarize(result.Raw),
		}
	}

	if s.metrics != nil {
		s.metrics.RecordInvocation(ctx, string(models.ResponseModeBlocking), string(req.KeyType), time.Since(start))
	}
	s.logger.Info("Workflow invocation completed",
		zap.String("extraction", extracted.Path),
		zap.Int("answer_length", utf8.RuneCountInString(resp.Answer)),
		zap.Duration("duration", time.Since(start)))

	return resp, nil
}

// OpenStream starts a streaming invocation. The caller relays and closes the body.
func (s *Service) OpenStream(ctx context.Context, req *models.InvocationRequest) (io.ReadCloser, error) {
	start := time.Now()
	runReq := s.runRequest(req)

	s.logger.Info("Invoking workflow",
		zap.String("response_mode", string(models.ResponseModeStreaming)),
		zap.String("key_class", string(req.KeyType)),
		zap.Bool("debug", req.Debug),
		zap.Int("inputs", len(runReq.Inputs)))

	body, err := s.client.Stream(ctx, runReq)
	if err != nil {
		s.recordFailure(ctx, models.ResponseModeStreaming, req.KeyType, err, time.Since(start))
		return nil, err
	}
	return body, nil
}

// IsHealthy reports whether the upstream is accepting calls
func (s *Service) IsHealthy(ctx context.Context) bool {
	return s.client.IsHealthy(ctx)
}

func (s *Service) runRequest(req *models.InvocationRequest) RunRequest {
	inputs := PrepareInputs(req.Inputs)
	if inputs["title"] != req.Inputs["title"] {
		s.logger.Debug("Synthesized title from topic", zap.String("title", inputs["title"]))
	}
	return RunRequest{
		Inputs:   inputs,
		APIKey:   s.keys.Resolve(req.KeyType),
		KeyClass: req.KeyType,
	}
}

func (s *Service) recordFailure(ctx context.Context, mode models.ResponseMode, class models.KeyClass, err error, d time.Duration) {
	errorType := "transport_error"
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		errorType = fmt.Sprintf("upstream_%d", upstreamErr.StatusCode)
	}
	s.logger.Error("Workflow invocation failed",
		zap.String("response_mode", string(mode)),
		zap.String("error_type", errorType),
		zap.Error(err))
	if s.metrics != nil {
		s.metrics.RecordFailure(ctx, string(mode), string(class), errorType, d)
	}
}

func extractionLabel(found bool) string {
	if found {
		return extractionSucceeded
	}
	return extractionFailed
}

// summarize describes the response shape without its content
func summarize(raw []byte) map[string]any {
	root := gjson.ParseBytes(raw)
	keys := []string{}
	structure := map[string]any{}
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		keys = append(keys, name)
		switch {
		case value.IsObject():
			var children []string
			value.ForEach(func(k, _ gjson.Result) bool {
				children = append(children, k.String())
				return true
			})
			structure[name] = children
		case value.IsArray():
			structure[name] = fmt.Sprintf("[数组，长度: %d]", len(value.Array()))
		case value.Type == gjson.String:
			structure[name] = fmt.Sprintf("[字符串，长度: %d]", utf8.RuneCountInString(value.Str))
		default:
			structure[name] = jsonTypeName(value)
		}
		return true
	})

	structureJSON, _ := json.MarshalIndent(structure, "", "  ")
	return map[string]any{
		"keys":               keys,
		"has_data":           truthyPath(root, "data"),
		"has_outputs":        truthyPath(root, "outputs") || truthyPath(root, "data.outputs"),
		"has_answer":         truthyPath(root, "answer"),
		"response_structure": string(structureJSON),
	}
}

func truthyPath(root gjson.Result, path string) bool {
	v := root.Get(path)
	switch v.Type {
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}

func jsonTypeName(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "boolean"
	default:
		return "null"
	}
}
