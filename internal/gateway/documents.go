package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/auth"
	"github.com/bizmatters/design-research-gateway/internal/export"
	"github.com/bizmatters/design-research-gateway/internal/extract"
	"github.com/bizmatters/design-research-gateway/internal/models"
)

// Export godoc
// @Summary Export research text as a document
// @Description Renders the normalized text as txt, docx or html and returns it as an attachment named `<title>-结果.<ext>`
// @Tags export
// @Accept json
// @Produce octet-stream
// @Param request body models.ExportRequest true "Text and format"
// @Success 200 {file} file
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /export [post]
func (h *Handler) Export(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   models.MsgTextRequired,
			Code:    models.ErrCodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: err.Error(),
			Code:  models.ErrCodeValidationFailed,
		})
		return
	}

	file, err := export.Render(format, export.Document{
		Title:  req.Title,
		Text:   extract.Normalize(req.Text).Text,
		Header: req.Header,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, export.ErrUnsupportedFormat) {
			status = http.StatusBadRequest
		}
		h.logger.Error("Failed to render export", zap.String("format", string(format)), zap.Error(err))
		c.JSON(status, models.ErrorResponse{
			Error: "Failed to render document",
			Code:  models.ErrCodeInternalError,
		})
		return
	}

	sessionID, _ := auth.SessionID(c)
	h.logger.Info("Document exported",
		zap.String("format", string(format)),
		zap.Int("bytes", len(file.Data)),
		zap.String("session_id", sessionID))

	c.Header("Content-Disposition", contentDisposition(file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// contentDisposition carries the UTF-8 filename in filename* and an ASCII
// fallback for clients that ignore it.
func contentDisposition(name string) string {
	fallback := strings.Map(func(r rune) rune {
		if r > 0x7e || r < 0x20 || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, fallback, url.PathEscape(name))
}
