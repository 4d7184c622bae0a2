// internal/infrastructure/email/job/owner_link_handler.go
package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"photobooth-backend/internal/infrastructure/email"
)

// ============================================
// Owner Link Email Handler
// ============================================

type OwnerLinkEmailHandler struct {
	emailService email.EmailService
}

func NewOwnerLinkEmailHandler(emailService email.EmailService) *OwnerLinkEmailHandler {
	return &OwnerLinkEmailHandler{
		emailService: emailService,
	}
}

func (h *OwnerLinkEmailHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload email.OwnerLinkData
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal OwnerLink payload")
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	if err := h.emailService.SendOwnerLink(ctx, payload); err != nil {
		log.Error().Err(err).Msg("Failed to send owner link email")
		return fmt.Errorf("send owner link email: %w", err)
	}

	// Không log địa chỉ email và owner URL
	taskID, _ := asynq.GetTaskID(ctx)
	log.Info().Str("task_id", taskID).Msg("Owner link email sent")
	return nil
}
