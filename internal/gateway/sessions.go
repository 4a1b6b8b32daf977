package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/auth"
	"github.com/bizmatters/design-research-gateway/internal/models"
	"github.com/bizmatters/design-research-gateway/internal/session"
)

// CreateSession godoc
// @Summary Issue a session token
// @Description Creates a new research session. A still-valid token in the Authorization header is refreshed instead, keeping its session.
// @Tags sessions
// @Produce json
// @Success 201 {object} models.CreateSessionResponse
// @Success 200 {object} models.CreateSessionResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()

	if token, ok := bearerToken(c); ok {
		refreshed, claims, err := h.jwtManager.RefreshToken(ctx, token)
		if err == nil {
			c.JSON(http.StatusOK, models.CreateSessionResponse{
				Token:     refreshed,
				SessionID: claims.SessionID,
				ExpiresAt: claims.ExpiresAt.Time,
			})
			return
		}
		h.logger.Debug("Presented token not refreshable, issuing a new session", zap.Error(err))
	}

	token, claims, err := h.jwtManager.GenerateToken(ctx, "")
	if err != nil {
		h.logger.Error("Failed to generate session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to generate token",
			Code:  models.ErrCodeInternalError,
		})
		return
	}

	h.logger.Info("Session created", zap.String("session_id", claims.SessionID))
	c.JSON(http.StatusCreated, models.CreateSessionResponse{
		Token:     token,
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

// GetResearch godoc
// @Summary Get the session's research text
// @Tags sessions
// @Produce json
// @Success 200 {object} models.ResearchSession
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/research [get]
func (h *Handler) GetResearch(c *gin.Context) {
	sessionID, _ := auth.SessionID(c)

	rec, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: "No research saved for this session",
				Code:  models.ErrCodeNotFound,
			})
			return
		}
		h.logger.Error("Failed to load session", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to load session",
			Code:  models.ErrCodeInternalError,
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// UpdateResearch godoc
// @Summary Replace the session's research text
// @Description Stores text edited in the browser so the image and export pages see it
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body models.UpdateResearchRequest true "Research text"
// @Success 200 {object} models.ResearchSession
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/research [put]
func (h *Handler) UpdateResearch(c *gin.Context) {
	var req models.UpdateResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Code:    models.ErrCodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	sessionID, _ := auth.SessionID(c)
	rec := &models.ResearchSession{ID: sessionID, Title: req.Title, ResearchText: req.ResearchText}

	// edits keep the last upstream original for comparison
	if existing, err := h.sessions.Get(ctx, sessionID); err == nil {
		rec.OriginalText = existing.OriginalText
		if rec.Title == "" {
			rec.Title = existing.Title
		}
	}

	if err := h.sessions.Save(ctx, rec); err != nil {
		h.logger.Error("Failed to save session", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to save session",
			Code:  models.ErrCodeInternalError,
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func bearerToken(c *gin.Context) (string, bool) {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", false
	}
	return header[len(prefix):], true
}
