package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/auth"
	"github.com/bizmatters/design-research-gateway/internal/extract"
	"github.com/bizmatters/design-research-gateway/internal/models"
	"github.com/bizmatters/design-research-gateway/internal/orchestration"
	"github.com/bizmatters/design-research-gateway/internal/relay"
)

// maxInvocationBody caps POST /api/dify bodies.
const maxInvocationBody = 1 << 20

// errStreamEvent marks streams that ended with an in-band error event.
var errStreamEvent = errors.New("stream carried an error event")

// Messages of the configuration echo.
const (
	echoMessage = "调试端点正常工作"
	echoNote    = "这是一个仅用于调试的端点，用于测试API配置是否正确"
)

// Invoke godoc
// @Summary Run the design-research workflow
// @Description Proxies the request to the workflow API. Blocking mode returns the extracted answer; streaming mode relays the upstream event stream verbatim. A session token, when presented, receives the final text.
// @Tags dify
// @Accept json
// @Produce json
// @Produce text/event-stream
// @Param request body models.InvocationRequest true "Workflow inputs"
// @Success 200 {object} models.InvocationResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /dify [post]
func (h *Handler) Invoke(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "gateway.invoke")
	defer span.End()

	start := time.Now()
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxInvocationBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request",
			Code:  models.ErrCodeInvalidRequest,
		})
		return
	}

	req, err := h.orchestrationService.Decode(body)
	if err != nil {
		span.RecordError(err)
		h.logger.Warn("Rejected invocation request", zap.Error(err))
		h.respondInvocationError(c, err, nil)
		return
	}

	span.SetAttributes(
		attribute.String("response_mode", string(req.ResponseMode)),
		attribute.String("key_class", string(req.KeyType)),
		attribute.Bool("debug", req.Debug),
	)
	sessionID, _ := auth.SessionID(c)

	if req.ResponseMode == models.ResponseModeStreaming {
		h.streamInvocation(ctx, c, req, sessionID)
		return
	}

	resp, err := h.orchestrationService.RunBlocking(ctx, req)
	if err != nil {
		span.RecordError(err)
		h.respondInvocationError(c, err, errorDebug(req, start, err))
		return
	}

	h.saveSession(ctx, sessionID, orchestration.PrepareInputs(req.Inputs)["title"], resp.Answer, resp.OriginalAnswer)
	c.JSON(http.StatusOK, resp)
}

// streamInvocation relays the upstream stream and tees it into an
// accumulator so the finished text can be stored in the caller's session.
func (h *Handler) streamInvocation(ctx context.Context, c *gin.Context, req *models.InvocationRequest, sessionID string) {
	start := time.Now()

	body, err := h.orchestrationService.OpenStream(ctx, req)
	if err != nil {
		h.respondInvocationError(c, err, errorDebug(req, start, err))
		return
	}
	defer body.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()

	acc := extract.NewAccumulator()
	if m := h.orchestrationService.Metrics(); m != nil {
		m.StreamStarted(ctx, string(req.KeyType))
	}

	stats, relayErr := h.relay.Run(ctx, body, c.Writer, relay.Options{Debug: req.Debug, Observer: acc.Feed})
	if _, err := h.finishStream(ctx, req, sessionID, acc, stats, relayErr, start); err != nil {
		h.logger.Warn("Streamed result not stored", zap.Error(err), zap.Int("chunks", stats.Chunks))
	}
}

// finishStream records stream metrics and stores the accumulated text in the
// caller's session. The normalized text is returned only for streams that
// completed without an error event.
func (h *Handler) finishStream(
	ctx context.Context,
	req *models.InvocationRequest,
	sessionID string,
	acc *extract.Accumulator,
	stats relay.Stats,
	relayErr error,
	start time.Time,
) (extract.Normalized, error) {
	// the request context is done once the client leaves
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionSaveTimeout)
	defer cancel()

	keyClass := string(req.KeyType)
	if m := h.orchestrationService.Metrics(); m != nil {
		m.StreamFinished(bg, keyClass, stats.Chunks)
		if relayErr == nil && stats.ReadErr == nil {
			m.RecordInvocation(bg, string(models.ResponseModeStreaming), keyClass, time.Since(start))
		}
	}

	if relayErr != nil {
		return extract.Normalized{}, fmt.Errorf("stream relay stopped: %w", relayErr)
	}
	if msg := acc.StreamError(); msg != "" {
		return extract.Normalized{}, fmt.Errorf("%w: %s", errStreamEvent, msg)
	}

	result, err := acc.Finish()
	if err != nil {
		return extract.Normalized{}, err
	}
	h.saveSession(bg, sessionID, orchestration.PrepareInputs(req.Inputs)["title"], result.Text, result.Original)
	return result, nil
}

// DescribeConfig godoc
// @Summary Echo the upstream configuration
// @Description Debug endpoint reporting the upstream URL and a masked preview of the selected key
// @Tags dify
// @Produce json
// @Param debug query bool false "Echo debug mode"
// @Param keyType query string false "Key class" Enums(workflow, api, chat, completion)
// @Param X-Diagnostics-Token header string false "Diagnostics token"
// @Success 200 {object} models.ConfigEcho
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /dify [get]
func (h *Handler) DescribeConfig(c *gin.Context) {
	keyType := c.Query("keyType")
	if keyType == "" {
		keyType = string(models.KeyClassWorkflow)
	}
	key := h.orchestrationService.Keys().Resolve(models.KeyClass(keyType))

	c.JSON(http.StatusOK, models.ConfigEcho{
		Status:      "ok",
		Time:        time.Now().UTC().Format(time.RFC3339Nano),
		Environment: h.cfg.Environment,
		Config: models.ConfigEchoEntry{
			APIURL:        h.cfg.Upstream.BaseURL,
			APIKeyType:    keyType,
			APIKeyPreview: orchestration.PreviewKey(key),
		},
		DebugMode: c.Query("debug") == "true",
		Message:   echoMessage,
		Note:      echoNote,
	})
}

// errorDebug builds the diagnostics attached to failed debug-mode invocations
func errorDebug(req *models.InvocationRequest, start time.Time, err error) map[string]any {
	if req == nil || !req.Debug {
		return nil
	}
	return map[string]any{
		"request_time":  start.UnixMilli(),
		"error_time":    time.Now().UnixMilli(),
		"duration_ms":   time.Since(start).Milliseconds(),
		"error_message": err.Error(),
	}
}
