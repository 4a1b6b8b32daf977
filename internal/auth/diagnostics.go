package auth

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizmatters/design-research-gateway/internal/models"
)

// DiagnosticsHeader carries the plaintext diagnostics token.
const DiagnosticsHeader = "X-Diagnostics-Token"

// HashToken returns the bcrypt hash stored in DIAGNOSTICS_TOKEN_HASH.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

// RequireDiagnosticsToken guards diagnostic endpoints. With an empty hash the
// endpoint stays open.
func RequireDiagnosticsToken(tokenHash string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenHash == "" {
			c.Next()
			return
		}

		token := c.GetHeader(DiagnosticsHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Missing diagnostics token",
				Code:  models.ErrCodeUnauthorized,
			})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
			log.Warn("Rejected diagnostics token", zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Error: "Invalid diagnostics token",
				Code:  models.ErrCodeForbidden,
			})
			return
		}
		c.Next()
	}
}
