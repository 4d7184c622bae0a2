package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photobooth-backend/internal/domains/event/job"
	"photobooth-backend/pkg/container"
)

func Serve() {
	// ========================================
	// 1. BUILD DI CONTAINER
	// ========================================
	appContainer, err := container.NewContainer()
	if err != nil {
		log.Fatalf("❌ Failed to initialize container: %v", err)
	}
	defer appContainer.Cleanup()

	cfg := appContainer.Config

	// ========================================
	// 2. BACKGROUND LOOPS
	// ========================================
	// Hub, pool monitor và in-process sweeper dừng khi bgCtx bị cancel
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	go appContainer.Hub.Run(bgCtx)

	if appContainer.DB != nil {
		go appContainer.DB.MonitorPoolHealth(bgCtx, time.Minute)
	}

	if cfg.Sweeper.InProcess {
		log.Printf("🧹 In-process sweeper enabled (every %s)", cfg.Sweeper.Interval)
		go job.RunEvery(bgCtx, appContainer.EventService, cfg.Sweeper.Interval)
	}

	// ========================================
	// 3. CONFIGURE HTTP SERVER
	// ========================================
	router := SetupRouter(appContainer)

	port := cfg.App.Port
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// uploads bị giới hạn bởi UploadTimeout trong handler,
		// ZIP downloads có thể stream lâu
		ReadTimeout:    cfg.Event.UploadTimeout + 10*time.Second,
		WriteTimeout:   15 * time.Minute,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// ========================================
	// 4. START SERVER (NON-BLOCKING)
	// ========================================
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%s", port)
		log.Printf("📸 Public URL: %s", cfg.App.PublicURL)
		log.Printf("💚 Health Check: http://localhost:%s/api/v1/health", port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	// ========================================
	// 5. GRACEFUL SHUTDOWN
	// ========================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}
	stopBackground()

	log.Println("✅ Server exited gracefully")
}
