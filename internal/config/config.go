package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config chứa toàn bộ application configuration
// Struct này được populate từ environment variables
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Event    EventConfig
	Storage  StorageConfig
	Sweeper  SweeperConfig
	Worker   WorkerConfig
	SMTP     SMTPConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	PublicURL   string // base URL dùng để build guest/owner links

	// proxies được tin X-Forwarded-For; rỗng = dùng RemoteAddr
	TrustedProxies []string
}

type DatabaseConfig struct {
	Driver   string // postgres, memory
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int

	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	MaxRetries        int
	RetryDelay        time.Duration // nhân đôi sau mỗi lần thử
	ConnectTimeout    time.Duration
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

// EventConfig - lifecycle và upload rules của một event
type EventConfig struct {
	Retention           time.Duration // mặc định 30 ngày
	MaxUploadBytes      int64
	AllowedContentTypes []string
	UploadTimeout       time.Duration
	UploadRatePerMinute int // 0 = tắt rate limit
}

type StorageConfig struct {
	Backend   string // local, minio, s3
	LocalPath string
	MinIO     MinIOConfig
	S3        S3Config
}

type MinIOConfig struct {
	Endpoint  string // localhost:9000
	AccessKey string // minioadmin
	SecretKey string // minioadmin
	Bucket    string // photobooth
	UseSSL    bool   // false for local
}

type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string // để trống → default credential chain
	SecretKey string
	Endpoint  string // optional, cho S3-compatible endpoints
}

type SweeperConfig struct {
	Cron      string // cron expression cho asynq scheduler
	BatchSize int
	InProcess bool          // chạy sweeper bằng ticker trong API process
	Interval  time.Duration // interval cho in-process mode
}

type WorkerConfig struct {
	Concurrency int
	HealthPort  string
}

// SMTPConfig cho email owner link. Host rỗng = tắt
type SMTPConfig struct {
	Host string
	Port string
	From string
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

// Load đọc config từ environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Photobooth API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			PublicURL:   strings.TrimRight(getEnv("APP_PUBLIC_URL", "http://localhost:8080"), "/"),

			TrustedProxies: getEnvList("APP_TRUSTED_PROXIES", nil),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "photobooth"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),

			MaxConnLifetime:   getEnvDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvDuration("DB_MAX_CONN_IDLE_TIME", time.Minute),
			HealthCheckPeriod: getEnvDuration("DB_HEALTH_CHECK_PERIOD", time.Minute),
			MaxRetries:        getEnvInt("DB_MAX_RETRIES", 5),
			RetryDelay:        getEnvDuration("DB_RETRY_DELAY", time.Second),
			ConnectTimeout:    getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Event: EventConfig{
			Retention:           getEnvDuration("EVENT_RETENTION", 30*24*time.Hour),
			MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 10)) * 1024 * 1024,
			AllowedContentTypes: getEnvList("ALLOWED_IMAGE_TYPES", []string{"image/jpeg", "image/png", "image/jpg"}),
			UploadTimeout:       getEnvDuration("UPLOAD_TIMEOUT", 60*time.Second),
			UploadRatePerMinute: getEnvInt("UPLOAD_RATE_LIMIT_PER_MINUTE", 30),
		},
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./data/photos"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
				SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
				Bucket:    getEnv("MINIO_BUCKET", "photobooth"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Bucket:    getEnv("S3_BUCKET", ""),
				Region:    getEnv("S3_REGION", "us-east-1"),
				AccessKey: getEnv("S3_ACCESS_KEY_ID", ""),
				SecretKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
				Endpoint:  getEnv("S3_ENDPOINT", ""),
			},
		},
		Sweeper: SweeperConfig{
			Cron:      getEnv("SWEEPER_CRON", "0 * * * *"), // mỗi giờ, phút 0
			BatchSize: getEnvInt("SWEEPER_BATCH_SIZE", 100),
			InProcess: getEnvBool("SWEEPER_IN_PROCESS", false),
			Interval:  getEnvDuration("SWEEPER_INTERVAL", time.Hour),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 5),
			HealthPort:  getEnv("WORKER_HEALTH_PORT", "9999"),
		},
		SMTP: SMTPConfig{
			Host: getEnv("SMTP_HOST", ""),
			Port: getEnv("SMTP_PORT", "25"),
			From: getEnv("SMTP_FROM", "photobooth@localhost"),
		},
	}

	// Validate critical config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate kiểm tra config có hợp lệ không
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or memory, got %q", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && (c.Database.MaxConns <= 0 || c.Database.MinConns > c.Database.MaxConns) {
		return fmt.Errorf("DB_MAX_CONNS must be positive and not below DB_MIN_CONNS")
	}

	if c.Event.Retention <= 0 {
		return fmt.Errorf("EVENT_RETENTION must be positive")
	}
	if c.Event.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be positive")
	}
	if len(c.Event.AllowedContentTypes) == 0 {
		return fmt.Errorf("ALLOWED_IMAGE_TYPES must list at least one type")
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("STORAGE_LOCAL_PATH must be set for local storage")
		}
	case "minio":
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET must be set for minio storage")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set for s3 storage")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be local, minio or s3, got %q", c.Storage.Backend)
	}

	if _, err := cron.ParseStandard(c.Sweeper.Cron); err != nil {
		return fmt.Errorf("invalid SWEEPER_CRON %q: %w", c.Sweeper.Cron, err)
	}
	if c.Sweeper.BatchSize <= 0 {
		return fmt.Errorf("SWEEPER_BATCH_SIZE must be positive")
	}
	if c.Sweeper.InProcess && c.Sweeper.Interval <= 0 {
		return fmt.Errorf("SWEEPER_INTERVAL must be positive when SWEEPER_IN_PROCESS is enabled")
	}

	if c.SMTP.Enabled() && c.Database.Driver == "memory" {
		return fmt.Errorf("SMTP_HOST requires DB_DRIVER=postgres (emails are sent by the worker)")
	}

	// Production environment không được chạy memory store
	if c.App.Environment == "production" {
		if c.Database.Driver == "memory" {
			return fmt.Errorf("DB_DRIVER=memory is not allowed in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvList parse comma-separated list, bỏ qua phần tử rỗng
func getEnvList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, strings.ToLower(part))
		}
	}
	return values
}
