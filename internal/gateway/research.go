package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/auth"
	"github.com/bizmatters/design-research-gateway/internal/models"
)

// Research godoc
// @Summary Write a research report
// @Description Generates a report on the topic with the OpenAI API. Without a configured key, or when the API fails, a mock report is returned with a matching source.
// @Tags research
// @Accept json
// @Produce json
// @Param request body models.ResearchRequest true "Research topic"
// @Success 200 {object} models.ResearchResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /research [post]
func (h *Handler) Research(c *gin.Context) {
	var req models.ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.MsgTopicRequired,
			Code:  models.ErrCodeValidationFailed,
		})
		return
	}

	ctx := c.Request.Context()
	report, err := h.research.Research(ctx, req.Topic)
	if err != nil {
		h.logger.Error("Research failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "研究过程中发生错误",
			Code:    models.ErrCodeInternalError,
			Message: err.Error(),
		})
		return
	}

	sessionID, _ := auth.SessionID(c)
	h.saveSession(ctx, sessionID, req.Topic, report.Research, "")
	c.JSON(http.StatusOK, report)
}

// GenerateImage godoc
// @Summary Generate a concept image
// @Description Extracts design keywords from the text and renders a concept image. An empty text falls back to the research saved in the caller's session.
// @Tags research
// @Accept json
// @Produce json
// @Param request body models.ImageRequest true "Source text"
// @Success 200 {object} models.ImageResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /generate-image [post]
func (h *Handler) GenerateImage(c *gin.Context) {
	var req models.ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.MsgTextRequired,
			Code:  models.ErrCodeInvalidRequest,
		})
		return
	}

	ctx := c.Request.Context()
	text := req.Text
	if strings.TrimSpace(text) == "" && h.sessionsEnabled() {
		if sessionID, ok := auth.SessionID(c); ok {
			if rec, err := h.sessions.Get(ctx, sessionID); err == nil {
				text = rec.ResearchText
			}
		}
	}
	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.MsgTextRequired,
			Code:  models.ErrCodeValidationFailed,
		})
		return
	}

	image, err := h.research.GenerateImage(ctx, text)
	if err != nil {
		h.logger.Error("Concept image generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "生成图片时发生错误",
			Code:    models.ErrCodeInternalError,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, image)
}
