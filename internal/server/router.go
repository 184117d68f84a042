package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"wealthlens/internal/handlers"
	"wealthlens/internal/metrics"
	"wealthlens/internal/middleware"
)

// RouterConfig holds the HTTP-level settings of the router.
type RouterConfig struct {
	AuthJWTSecret  string
	PipelineAPIKey string
	// HealthCheck reports whether backing stores are reachable; nil always reports ok.
	HealthCheck func(ctx context.Context) error
}

// NewRouter builds the gin engine with middleware and all API routes.
func NewRouter(svc *Services, cfg RouterConfig) *gin.Engine {
	holdingHandler := handlers.NewHoldingHandler(svc.Assets, svc.Audit)
	schemeHandler := handlers.NewSchemeHandler(svc.Schemes, svc.NAVs, svc.Backfill)
	portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio, svc.Snapshots)
	pipelineHandler := handlers.NewPipelineHandler(svc.Backfill, svc.NAVUpdate, svc.Schemes, svc.Snapshots, svc.Calendar)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", metrics.Handler())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		if cfg.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.HealthCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(cfg.AuthJWTSecret))

	holdings := protected.Group("/holdings")
	holdings.POST("", holdingHandler.AddHolding)
	holdings.GET("", holdingHandler.GetHoldings)
	holdings.GET("/:id", holdingHandler.GetHolding)
	holdings.PUT("/:id", holdingHandler.UpdateHolding)
	holdings.DELETE("/:id", holdingHandler.DeleteHolding)

	schemes := protected.Group("/schemes")
	schemes.GET("", schemeHandler.SearchSchemes)
	schemes.GET("/match", schemeHandler.MatchScheme)
	schemes.GET("/:code", schemeHandler.GetScheme)
	schemes.GET("/:code/nav", schemeHandler.GetLatestNAV)
	schemes.GET("/:code/navs", schemeHandler.GetNAVHistory)

	portfolio := protected.Group("/portfolio")
	portfolio.GET("/summary", portfolioHandler.GetSummary)
	portfolio.GET("/snapshots", portfolioHandler.GetSnapshots)

	// Pipeline routes, called by the scheduler host or operators
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(cfg.PipelineAPIKey))
	pipeline.POST("/isin-backfill", pipelineHandler.RunISINBackfill)
	pipeline.POST("/nav-update", pipelineHandler.RunNAVUpdate)
	pipeline.POST("/schemes/refresh", pipelineHandler.RefreshSchemeMaster)
	pipeline.POST("/snapshots", pipelineHandler.RecordSnapshots)

	return router
}
