package main

import (
	"database/sql"
	"net/http"
	"time"

	"healthmate/internal/httpapi"
	"healthmate/internal/ultravox"
	"healthmate/pkg/logger"
	"healthmate/pkg/utils"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	DB          *sql.DB
	Ultravox    ultravox.Handlers
	API         httpapi.Handlers
	Credentials gin.HandlerFunc
	CallTicket  gin.HandlerFunc
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.DB, 2*time.Second); err != nil {
			logger.FromGin(c).Warn("health check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Call routes refuse to run without the voice credentials.
	uv := api.Group("/ultravox")
	uv.Use(d.Credentials)
	{
		uv.POST("", d.Ultravox.CreateCall)
		uv.GET("/calls/:call_id", d.Ultravox.GetCall)
		uv.GET("/calls/:call_id/events", d.Ultravox.CallEvents)
		uv.GET("/calls/:call_id/stream", d.CallTicket, d.Ultravox.StreamCall)
	}

	// Operator report over calls and audit events.
	api.GET("/reports", d.Credentials, d.API.Report)

	d.API.Register(api)
}
