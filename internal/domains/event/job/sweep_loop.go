package job

import (
	"context"
	"time"

	"photobooth-backend/pkg/logger"
)

// RunEvery chạy sweeper ngay khi start rồi lặp lại theo interval cho tới khi ctx bị cancel.
// Dùng khi API chạy một mình, không có worker + Redis.
func RunEvery(ctx context.Context, sweeper Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := sweeper.SweepExpired(ctx); err != nil && ctx.Err() == nil {
			logger.Error("In-process sweep failed", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
