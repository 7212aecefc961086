package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/singalong/internal/utils"
)

const RoleAdmin = "admin"

// RequireRole must run after JWTAuth, which sets "role" on the context.
// Role names compare case-insensitively.
func RequireRole(allowed ...string) gin.HandlerFunc {
	allow := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if a = normalizeRole(a); a != "" {
			allow[a] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		if _, ok := allow[normalizeRole(c.GetString("role"))]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{
				Code:    utils.CodeForbidden,
				Message: "forbidden",
			})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc { return RequireRole(RoleAdmin) }

func normalizeRole(r string) string { return strings.ToLower(strings.TrimSpace(r)) }
