// Package httpapi serves the extraction pipeline over HTTP with gin.
//
// # Endpoints
//
//   - POST /api/stamp/process: multipart upload, returns stamps as PNG data URLs
//   - GET /health: liveness
//   - GET /version: build information
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ironsheep/stamp-tools-mcp/internal/cache"
	"github.com/ironsheep/stamp-tools-mcp/internal/config"
)

// BuildInfo is reported by /health and /version.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// NewRouter builds the gin engine. The caller chooses the gin mode.
func NewRouter(cfg *config.Config, results *cache.Cache, logger *zap.Logger, info BuildInfo) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Upload.MaxSize
	r.Use(gin.Recovery(), Logger(logger), CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": info.Version,
		})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	})

	h := NewStampHandler(cfg, results, logger)
	api := r.Group("/api/stamp")
	{
		api.POST("/process", h.Process)
	}

	return r
}
