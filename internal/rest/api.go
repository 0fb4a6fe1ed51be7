package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApi wires the post routes, health check, and metrics endpoint onto the
// router.
func NewApi(router *gin.Engine, posts *PostsHandler, version string) {
	api := router.Group("/api")
	{
		api.GET("/posts", posts.List)
		api.GET("/posts/published", posts.ListPublished)
		api.GET("/posts/featured", posts.ListFeatured)
		api.GET("/posts/search", posts.Search)
		api.GET("/posts/:postId", posts.GetByID)
		api.GET("/posts/slug/:slug", posts.GetBySlug)
		api.POST("/posts", posts.Create)
		api.PUT("/posts/:postId", posts.Update)
		api.DELETE("/posts/:postId", posts.Delete)
		api.POST("/posts/bulk-delete", posts.BulkDelete)
		api.GET("/health", health(version))
	}

	// Root alias for load balancer probes.
	router.GET("/health", health(version))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func health(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"version":   version,
		})
	}
}
