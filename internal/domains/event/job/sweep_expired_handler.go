package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

// Sweeper là phần của event service mà job cần
type Sweeper interface {
	SweepExpired(ctx context.Context) (*model.SweepResult, error)
}

type SweepExpiredPayload struct {
	// Trigger: "scheduler" hoặc "manual", chỉ dùng cho log
	Trigger  string    `json:"trigger,omitempty"`
	QueuedAt time.Time `json:"queued_at,omitempty"`
}

// ================================================
// SWEEP EXPIRED EVENTS JOB HANDLER
// ================================================

type SweepExpiredHandler struct {
	sweeper Sweeper
}

func NewSweepExpiredHandler(sweeper Sweeper) *SweepExpiredHandler {
	return &SweepExpiredHandler{sweeper: sweeper}
}

func (h *SweepExpiredHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload SweepExpiredPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Error("Unmarshal sweep payload failed", err)
			return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
		}
	}

	logger.Info("Starting SweepExpired job", map[string]interface{}{
		"trigger": payload.Trigger,
	})

	result, err := h.sweeper.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweep expired events: %w", err)
	}

	logger.Info("Completed SweepExpired job", map[string]interface{}{
		"scanned":        result.Scanned,
		"swept":          result.Swept,
		"failed":         result.Failed,
		"photos_deleted": result.PhotosDeleted,
	})
	return nil
}
