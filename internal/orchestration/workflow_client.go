package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/config"
	"github.com/bizmatters/design-research-gateway/internal/models"
)

// WorkflowClientInterface defines the interface for the workflow-execution API client
type WorkflowClientInterface interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
	Stream(ctx context.Context, req RunRequest) (io.ReadCloser, error)
	IsHealthy(ctx context.Context) bool
}

// RunRequest is one workflow invocation
type RunRequest struct {
	Inputs   map[string]string
	APIKey   string
	KeyClass models.KeyClass
}

// RunResult is a successful blocking response
type RunResult struct {
	Raw        []byte
	StatusCode int
	Duration   time.Duration
}

// WorkflowClient posts to {baseURL}/workflows/run
type WorkflowClient struct {
	baseURL      string
	user         string
	httpClient   *http.Client
	streamClient *http.Client
	tracer       trace.Tracer
	breaker      *gobreaker.CircuitBreaker
	logger       *zap.Logger
}

// NewWorkflowClient creates a new workflow client
func NewWorkflowClient(cfg config.UpstreamConfig, log *zap.Logger) *WorkflowClient {
	if log == nil {
		log = zap.NewNop()
	}

	// Only transport failures and 5xx count as breaker failures
	settings := gobreaker.Settings{
		Name:        "workflow-api",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.Breaker.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var upstreamErr *UpstreamError
			if errors.As(err, &upstreamErr) {
				return !upstreamErr.Temporary()
			}
			return false
		},
	}

	return &WorkflowClient{
		baseURL: cfg.BaseURL,
		user:    cfg.User,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		// streams stay open as long as the upstream keeps sending
		streamClient: &http.Client{},
		tracer:       otel.Tracer("workflow-client"),
		breaker:      gobreaker.NewCircuitBreaker(settings),
		logger:       log,
	}
}

// SetBaseURL sets the base URL for testing purposes
func (c *WorkflowClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Run executes the workflow in blocking mode and returns the raw JSON body
func (c *WorkflowClient) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	ctx, span := c.tracer.Start(ctx, "workflow.run")
	defer span.End()

	span.SetAttributes(
		attribute.String("response_mode", string(models.ResponseModeBlocking)),
		attribute.String("key_class", string(req.KeyClass)),
		attribute.Int("inputs.count", len(req.Inputs)),
	)

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.dispatch(ctx, c.httpClient, req, models.ResponseModeBlocking)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("failed to decode response: body is not valid JSON")
		}
		return &RunResult{Raw: body, StatusCode: resp.StatusCode}, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, c.wrap(err)
	}

	run := result.(*RunResult)
	run.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("response.bytes", len(run.Raw)))
	return run, nil
}

// Stream executes the workflow in streaming mode. The caller owns the
// returned body and must close it.
func (c *WorkflowClient) Stream(ctx context.Context, req RunRequest) (io.ReadCloser, error) {
	ctx, span := c.tracer.Start(ctx, "workflow.stream")
	defer span.End()

	span.SetAttributes(
		attribute.String("response_mode", string(models.ResponseModeStreaming)),
		attribute.String("key_class", string(req.KeyClass)),
		attribute.Int("inputs.count", len(req.Inputs)),
	)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.dispatch(ctx, c.streamClient, req, models.ResponseModeStreaming)
	})
	if err != nil {
		span.RecordError(err)
		return nil, c.wrap(err)
	}

	return result.(*http.Response).Body, nil
}

// dispatch sends the run request and converts non-2xx answers to *UpstreamError
func (c *WorkflowClient) dispatch(ctx context.Context, client *http.Client, req RunRequest, mode models.ResponseMode) (*http.Response, error) {
	jsonData, err := json.Marshal(models.WorkflowRunRequest{
		Inputs:       req.Inputs,
		ResponseMode: mode,
		User:         c.user,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/workflows/run", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	// Inject trace context
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("workflow API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		upstreamErr := ParseUpstreamError(resp.StatusCode, bodyBytes)
		c.logger.Warn("Workflow API returned an error",
			zap.Int("status", upstreamErr.StatusCode),
			zap.String("code", upstreamErr.Code),
			zap.String("message", upstreamErr.Message))
		return nil, upstreamErr
	}

	return resp, nil
}

// wrap keeps *UpstreamError unwrapped so callers can forward its status
func (c *WorkflowClient) wrap(err error) error {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr
	}
	return fmt.Errorf("failed to invoke workflow API: %w", err)
}

// ParseUpstreamError extracts the best available detail from an error body.
// The not-published code always maps to the fixed publishing hint.
func ParseUpstreamError(status int, body []byte) *UpstreamError {
	upstreamErr := &UpstreamError{
		StatusCode: status,
		Message:    string(body),
		Body:       string(body),
	}

	// code and message are read independently of any other field
	if !gjson.ValidBytes(body) {
		return upstreamErr
	}
	if code := gjson.GetBytes(body, "code"); code.Type == gjson.String {
		upstreamErr.Code = code.Str
	}
	if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String && msg.Str != "" {
		upstreamErr.Message = msg.Str
	}
	if upstreamErr.Code == models.CodeWorkflowNotPublished {
		upstreamErr.Message = models.MsgNotPublishedHint
	}
	return upstreamErr
}

// IsHealthy reports false while the circuit breaker is open
func (c *WorkflowClient) IsHealthy(ctx context.Context) bool {
	_, span := c.tracer.Start(ctx, "workflow.health_check")
	defer span.End()

	if c.breaker.State() == gobreaker.StateOpen {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "circuit_breaker_open"))
		return false
	}

	span.SetAttributes(attribute.Bool("healthy", true))
	return true
}
