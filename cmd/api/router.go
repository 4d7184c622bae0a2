package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"photobooth-backend/internal/shared/middleware"
	"photobooth-backend/pkg/container"

	"github.com/gin-gonic/gin"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// rate limiter key theo ClientIP, chỉ tin X-Forwarded-For từ proxies đã khai báo
	if err := router.SetTrustedProxies(c.Config.App.TrustedProxies); err != nil {
		log.Fatalf("❌ Invalid APP_TRUSTED_PROXIES: %v", err)
	}

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	// multipart parts lớn hơn ngưỡng này được spill ra temp file
	router.MaxMultipartMemory = c.Config.Event.MaxUploadBytes + (1 << 20)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupEventRoutes(v1, c)
	}

	return router
}

// ========================================
// EVENT ROUTES (guest + owner)
// ========================================
func setupEventRoutes(v1 *gin.RouterGroup, c *container.Container) {
	uploadLimiter := middleware.RateLimit(c.Cache, "upload", c.Config.Event.UploadRatePerMinute)
	c.EventHandler.RegisterRoutes(v1, uploadLimiter)
}

// ========================================
// HEALTH CHECK
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		checks := appCtx.HealthCheck(ctx)

		status := http.StatusOK
		if checks["database"] != "ok" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"status":      http.StatusText(status),
			"service":     appCtx.Config.App.Name,
			"version":     appCtx.Config.App.Version,
			"environment": appCtx.Config.App.Environment,
			"storage":     appCtx.Config.Storage.Backend,
			"checks":      checks,
			"timestamp":   time.Now().UTC(),
		}
		if appCtx.DB != nil {
			if stats := appCtx.DB.Stats(); stats != nil {
				body["pool"] = gin.H{
					"total_connections":    stats.TotalConns,
					"idle_connections":     stats.IdleConns,
					"acquired_connections": stats.AcquiredConns,
					"max_connections":      stats.MaxConns,
					"avg_acquire":          stats.AvgAcquireDuration().String(),
				}
			}
		}

		c.JSON(status, body)
	}
}
