package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/auth"
	"github.com/bizmatters/design-research-gateway/internal/config"
	"github.com/bizmatters/design-research-gateway/internal/models"
	"github.com/bizmatters/design-research-gateway/internal/orchestration"
	"github.com/bizmatters/design-research-gateway/internal/relay"
	"github.com/bizmatters/design-research-gateway/internal/research"
	"github.com/bizmatters/design-research-gateway/internal/session"
)

// sessionSaveTimeout bounds the write that follows a finished stream, when
// the request context may already be gone.
const sessionSaveTimeout = 5 * time.Second

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	cfg                  *config.Config
	orchestrationService *orchestration.Service
	relay                *relay.Relay
	sessions             session.Store
	jwtManager           *auth.JWTManager
	research             research.ClientInterface
	tracer               trace.Tracer
	logger               *zap.Logger
}

// NewHandler creates a new gateway handler. sessions and jwtManager are nil
// when sessions are disabled.
func NewHandler(
	cfg *config.Config,
	orchestrationService *orchestration.Service,
	sessions session.Store,
	jwtManager *auth.JWTManager,
	researchClient research.ClientInterface,
	log *zap.Logger,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		cfg:                  cfg,
		orchestrationService: orchestrationService,
		relay:                relay.New(log.Named("relay")),
		sessions:             sessions,
		jwtManager:           jwtManager,
		research:             researchClient,
		tracer:               otel.Tracer("gateway"),
		logger:               log,
	}
}

// sessionsEnabled reports whether session routes and persistence are active
func (h *Handler) sessionsEnabled() bool {
	return h.sessions != nil && h.jwtManager != nil
}

// respondInvocationError maps invocation failures onto HTTP responses
func (h *Handler) respondInvocationError(c *gin.Context, err error, debug map[string]any) {
	var validationErr *orchestration.ValidationError
	var upstreamErr *orchestration.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   validationErr.Message,
			Code:    models.ErrCodeValidationFailed,
			Details: validationErr.Fields,
		})
	case errors.As(err, &upstreamErr):
		if debug != nil {
			debug["upstream_status"] = upstreamErr.StatusCode
			debug["upstream_code"] = upstreamErr.Code
			debug["error_text"] = upstreamErr.Body
		}
		c.JSON(upstreamErr.StatusCode, models.ErrorResponse{
			Error: upstreamErr.Error(),
			Code:  models.ErrCodeUpstreamFailed,
			Debug: debug,
		})
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   models.MsgInternalFailure,
			Code:    models.ErrCodeUnavailable,
			Message: err.Error(),
			Debug:   debug,
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   models.MsgInternalFailure,
			Code:    models.ErrCodeInternalError,
			Message: err.Error(),
			Debug:   debug,
		})
	}
}

// saveSession overwrites the caller's research record. Failures are logged
// and never change the response.
func (h *Handler) saveSession(ctx context.Context, sessionID, title, text, original string) {
	if !h.sessionsEnabled() || sessionID == "" {
		return
	}
	rec := &models.ResearchSession{
		ID:           sessionID,
		Title:        title,
		ResearchText: text,
		OriginalText: original,
	}
	if err := h.sessions.Save(ctx, rec); err != nil {
		h.logger.Error("Failed to save session", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	h.logger.Debug("Session updated", zap.String("session_id", sessionID))
}

// Health godoc
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Ready godoc
// @Summary Readiness check
// @Description Reports not ready while the upstream circuit breaker is open or the session store is unreachable
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *Handler) Ready(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.orchestrationService.IsHealthy(ctx) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "upstream circuit breaker open"})
		return
	}
	if h.sessions != nil {
		if err := h.sessions.Ping(ctx); err != nil {
			h.logger.Warn("Session store not reachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "session store unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
