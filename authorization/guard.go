package authorization

import (
	"fmt"
	"net/http"
	"strings"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
)

// Guard packages the JWT middleware as route-level requirements.
type Guard struct {
	jwt *jwt.GinJWTMiddleware
}

// Guard exposes the module's shared guard instance.
func (m *Module) Guard() *Guard {
	if m == nil || m.jwtMiddleware == nil {
		return nil
	}
	return &Guard{jwt: m.jwtMiddleware}
}

// RequireAuthenticated admits only requests carrying a valid token. A nil
// guard rejects everything rather than failing open.
func (g *Guard) RequireAuthenticated() gin.HandlerFunc {
	if g == nil || g.jwt == nil {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		}
	}
	return g.jwt.MiddlewareFunc()
}

// RequireAnyRole admits the request when its claims hold at least one of
// the listed roles. Matching is case-insensitive.
func (g *Guard) RequireAnyRole(roles ...string) gin.HandlerFunc {
	wanted := make([]string, 0, len(roles))
	for _, role := range roles {
		if trimmed := strings.TrimSpace(role); trimmed != "" {
			wanted = append(wanted, trimmed)
		}
	}
	if len(wanted) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		claims := jwt.ExtractClaims(c)
		if len(claims) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		for _, held := range claimRoles(claims) {
			for _, want := range wanted {
				if strings.EqualFold(strings.TrimSpace(held), want) {
					c.Next()
					return
				}
			}
		}

		message := fmt.Sprintf("one of [%s] roles required", strings.Join(wanted, ", "))
		if len(wanted) == 1 {
			message = fmt.Sprintf("%s role required", wanted[0])
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
	}
}

// RequireRole admits the request only with the given role.
func (g *Guard) RequireRole(role string) gin.HandlerFunc {
	return g.RequireAnyRole(role)
}
