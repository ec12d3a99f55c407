// Package handlers exposes the category service over HTTP with gin.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ammiranda/treepath/service"
)

// NewRouter builds the HTTP API. When gatherer is non-nil its metrics are
// served on /metrics.
func NewRouter(svc *service.CategoryService, logger *zap.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	h := NewCategoryHandler(svc, logger)

	// API routes
	api := r.Group("/api")
	{
		api.GET("/tree", h.GetTree)

		categories := api.Group("/categories")
		categories.GET("/roots", h.GetRoots)
		categories.POST("", h.CreateCategory)
		categories.GET("/:id", h.GetCategory)
		categories.PATCH("/:id", h.RenameCategory)
		categories.DELETE("/:id", h.DeleteCategory)
		categories.GET("/:id/ancestors", h.GetAncestors)
		categories.GET("/:id/descendants", h.GetDescendants)
		categories.GET("/:id/children", h.GetChildren)
		categories.GET("/:id/siblings", h.GetSiblings)
		categories.GET("/:id/parent", h.GetParent)
		categories.PUT("/:id/parent", h.MoveCategory)
		categories.GET("/:id/path", h.GetPath)
		categories.GET("/:id/subtree", h.GetSubtree)
		categories.POST("/:id/detach", h.DetachCategory)
	}

	return r
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
