package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"photobooth-backend/internal/infrastructure/email"
	"photobooth-backend/internal/shared"

	"github.com/hibiken/asynq"
)

// TaskClient enqueue background tasks cho worker
type TaskClient struct {
	client *asynq.Client
}

func NewTaskClient(redis asynq.RedisClientOpt) *TaskClient {
	return &TaskClient{client: asynq.NewClient(redis)}
}

// EnqueueOwnerLink gửi owner link qua email ở worker
func (c *TaskClient) EnqueueOwnerLink(ctx context.Context, data email.OwnerLinkData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal owner link payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeSendOwnerLink, payload)
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		// task chứa owner URL, không giữ lại sau khi xong
		asynq.Retention(0),
	)
	if err != nil {
		return fmt.Errorf("enqueue owner link email: %w", err)
	}
	return nil
}

func (c *TaskClient) Close() error {
	return c.client.Close()
}
