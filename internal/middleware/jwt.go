package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storyline-app/storyline-api/internal/service"
	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
	"github.com/storyline-app/storyline-api/pkg/response"
)

// ContextAdminKey is the gin context key storing the admin JWT claims.
const ContextAdminKey = "currentAdmin"

// AdminJWT protects moderation routes by requiring a valid admin token.
func AdminJWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "Missing token"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextAdminKey, claims)
		c.Next()
	}
}
