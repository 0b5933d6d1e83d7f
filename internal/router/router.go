package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "taxrecon/docs"
	"taxrecon/internal/handler"
	"taxrecon/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Analysis  *handler.AnalysisHandler
	Compare   *handler.CompareHandler
	Telemetry *handler.TelemetryHandler
	Health    *handler.HealthHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(h Handlers, allowedOrigins []string, maxUploadBytes int64) *gin.Engine {
	r := gin.New()
	if maxUploadBytes > 0 {
		r.MaxMultipartMemory = maxUploadBytes
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	// API docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	v1.POST("/analyze", h.Analysis.Analyze)
	v1.POST("/analyze/batch", h.Analysis.AnalyzeBatch)
	v1.POST("/reconcile", h.Analysis.Reconcile)
	v1.POST("/compare", h.Compare.Compare)
	v1.POST("/insights", h.Compare.Insights)
	v1.GET("/telemetry", h.Telemetry.Recent)

	return r
}
