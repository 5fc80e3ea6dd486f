package middleware

import (
	"crypto/subtle"
	"strings"

	"siliconflow-balance-plugin/internal/models"
	"siliconflow-balance-plugin/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const bearerPrefix = "bearer "

// AuthMiddleware requires "Authorization: Bearer <token>" matching the
// configured static token. An empty token disables the check.
func AuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		log := logger.GetLogger().WithContext(c.Request.Context())

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			log.Warn("Missing token in Authorization header",
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			models.HandleError(c, models.NewAppErrorWithDetails(
				models.ErrorCodeMissingToken,
				"Token is required",
				"Provide a bearer token in the Authorization header",
			), log)
			c.Abort()
			return
		}

		// Accept both "Bearer <token>" and a bare token
		presented := authHeader
		if len(presented) > len(bearerPrefix) && strings.EqualFold(presented[:len(bearerPrefix)], bearerPrefix) {
			presented = strings.TrimSpace(presented[len(bearerPrefix):])
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			log.Warn("Invalid token",
				zap.String("client_ip", c.ClientIP()),
			)
			models.HandleError(c, models.NewAppError(models.ErrorCodeInvalidToken, "Invalid token"), log)
			c.Abort()
			return
		}

		c.Next()
	}
}
