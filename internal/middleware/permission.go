package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
)

// RequirePermission allows the request when the user's role grants permission
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if !user.HasPermission(permission) {
			apierrors.MissingPermission(c, permission)
			c.Abort()
			return
		}

		c.Next()
	}
}
