package main

import (
	"context"
	stdlog "log"

	"photobooth-backend/internal/shared"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// asynqServer wraps asynq.Server with additional functionality
type asynqServer struct {
	*asynq.Server
}

// setupAsynqServer creates and configures the Asynq server
func setupAsynqServer(cfg *Config, handlers *HandlerRegistry) *asynqServer {
	// Create ServeMux
	mux := asynq.NewServeMux()

	// Register all handlers
	handlers.RegisterHandlers(mux)

	// Create server with configuration
	srv := asynq.NewServer(
		cfg.Redis,
		asynq.Config{
			Queues: map[string]int{
				shared.QueueMaintenance: 5,
				shared.QueueDefault:     10,
			},
			Concurrency: cfg.Concurrency,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				log.Error().
					Err(err).
					Str("task_type", task.Type()).
					Int("retried", retried).
					Int("max_retry", maxRetry).
					Msg("[Asynq] Task failed")
			}),
		},
	)

	// Start server in goroutine
	go func() {
		stdlog.Println("[Worker] Starting...")
		if err := srv.Run(mux); err != nil {
			stdlog.Fatalf("[Worker] Failed: %v", err)
		}
	}()

	return &asynqServer{Server: srv}
}

// Shutdown đợi các task đang chạy xong (asynq ShutdownTimeout mặc định 8s)
func (s *asynqServer) Shutdown() {
	stdlog.Println("[Worker] Shutting down...")
	s.Server.Shutdown()
	stdlog.Println("[Worker] ✓ Gracefully stopped")
}
