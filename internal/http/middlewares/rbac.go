package middlewares

import (
	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok {
			handlers.RespondUnauthorized(c, "Missing identity context")
			c.Abort()
			return
		}

		if role != required {
			handlers.RespondForbidden(c, string(required)+" role required")
			c.Abort()
			return
		}

		c.Next()
	}
}
