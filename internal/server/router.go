package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/handlers"
)

type RouterConfig struct {
	ServiceName          string
	TurnHandler          *handlers.TurnHandler
	ComplianceHandler    *handlers.ComplianceHandler
	ClarificationHandler *handlers.ClarificationHandler
	TranscriptHandler    *handlers.TranscriptHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:8501",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/turn", cfg.TurnHandler.ProcessTurn)
		api.GET("/compliance/verify", cfg.ComplianceHandler.Verify)
		api.GET("/clarifications/lookup", cfg.ClarificationHandler.Lookup)
		api.POST("/clarifications/reconcile", cfg.ClarificationHandler.Reconcile)
		api.GET("/transcripts", cfg.TranscriptHandler.GetBySession)
	}

	return router
}
