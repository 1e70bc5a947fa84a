package hr

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hrassist_back/authorization"
)

// RegisterRoutes exposes the dashboard outside the chat loop so frontends
// can render it without spending a model turn.
func (r *Registry) RegisterRoutes(router *gin.Engine, guard *authorization.Guard) {
	if router == nil {
		return
	}

	group := router.Group("/hr")
	if guard != nil {
		group.Use(guard.RequireAuthenticated())
	}

	group.GET("/dashboard", func(c *gin.Context) {
		stats := r.Dispatch(c.Request.Context(), "get_dashboard_stats", Args{})
		if _, failed := stats["error"]; failed {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": stats["error"]})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
	})
}
