package main

import (
	"log"

	"photobooth-backend/internal/config"

	"github.com/hibiken/asynq"
)

// Config holds all configuration for the worker
type Config struct {
	Redis       asynq.RedisClientOpt
	Concurrency int
	HealthPort  string
	Sweeper     config.SweeperConfig

	EmailEnabled bool
}

// loadConfig lấy phần config worker cần từ app config
func loadConfig(app *config.Config) *Config {
	cfg := &Config{
		Redis: asynq.RedisClientOpt{
			Addr:     app.Redis.Host,
			Password: app.Redis.Password,
			DB:       app.Redis.DB,
		},
		Concurrency:  app.Worker.Concurrency,
		HealthPort:   app.Worker.HealthPort,
		Sweeper:      app.Sweeper,
		EmailEnabled: app.SMTP.Enabled(),
	}

	log.Printf("[Config] Redis: %s, Concurrency: %d, Sweep cron: %q, Email: %t",
		cfg.Redis.Addr, cfg.Concurrency, cfg.Sweeper.Cron, cfg.EmailEnabled)

	return cfg
}
