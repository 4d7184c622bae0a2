package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"photobooth-backend/internal/config"
	"photobooth-backend/internal/domains/event/job"
	"photobooth-backend/internal/shared"
	"photobooth-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

const sweepTimeout = 10 * time.Minute

type Scheduler struct {
	scheduler *asynq.Scheduler
	sweeper   config.SweeperConfig
}

func NewScheduler(redis asynq.RedisClientOpt, sweeper config.SweeperConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redis,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		sweeper:   sweeper,
	}
}

// RegisterJobs đăng ký tất cả periodic tasks
func (s *Scheduler) RegisterJobs() error {
	return s.registerSweepExpiredJob()
}

// ================================================
// JOB: Sweep Expired Events (SWEEPER_CRON, mặc định mỗi giờ)
// ================================================
// MaxRetry thấp vì lần chạy kế tiếp sẽ xử lý lại các event lỗi
func (s *Scheduler) registerSweepExpiredJob() error {
	task, err := NewSweepExpiredTask("scheduler")
	if err != nil {
		return err
	}

	_, err = s.scheduler.Register(
		s.sweeper.Cron,
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(sweepTimeout),
		// Không để hai lần sweep chồng lên nhau trong queue
		asynq.Unique(sweepTimeout),
	)
	if err != nil {
		logger.Error("Failed to register SweepExpired job", err)
		return err
	}

	logger.Info("✓ Registered SweepExpired", map[string]interface{}{
		"cron":  s.sweeper.Cron,
		"queue": shared.QueueMaintenance,
	})
	return nil
}

// NewSweepExpiredTask tạo task sweep với trigger dùng cho log
func NewSweepExpiredTask(trigger string) (*asynq.Task, error) {
	payload, err := json.Marshal(job.SweepExpiredPayload{Trigger: trigger, QueuedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshal sweep payload: %w", err)
	}
	return asynq.NewTask(shared.TypeSweepExpiredEvents, payload), nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
