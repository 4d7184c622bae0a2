package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "APP_PUBLIC_URL", "DB_DRIVER", "DB_PASSWORD", "EVENT_RETENTION",
		"MAX_UPLOAD_SIZE_MB", "ALLOWED_IMAGE_TYPES", "STORAGE_BACKEND", "S3_BUCKET",
		"SWEEPER_CRON", "SWEEPER_BATCH_SIZE", "SWEEPER_IN_PROCESS", "SWEEPER_INTERVAL", "SMTP_HOST",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*24*time.Hour, cfg.Event.Retention)
	assert.Equal(t, int64(10*1024*1024), cfg.Event.MaxUploadBytes)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "0 * * * *", cfg.Sweeper.Cron)
	assert.False(t, cfg.SMTP.Enabled())
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PUBLIC_URL", "https://photos.example.com/")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("EVENT_RETENTION", "48h")
	t.Setenv("ALLOWED_IMAGE_TYPES", " image/JPEG, ,image/webp")
	t.Setenv("SWEEPER_IN_PROCESS", "true")
	t.Setenv("SWEEPER_INTERVAL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://photos.example.com", cfg.App.PublicURL)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 48*time.Hour, cfg.Event.Retention)
	assert.Equal(t, []string{"image/jpeg", "image/webp"}, cfg.Event.AllowedContentTypes)
	assert.True(t, cfg.Sweeper.InProcess)
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.Interval)
}

func TestLoad_MalformedNumbersFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWEEPER_BATCH_SIZE", "lots")
	t.Setenv("EVENT_RETENTION", "a month")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Sweeper.BatchSize)
	assert.Equal(t, 30*24*time.Hour, cfg.Event.Retention)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"negative retention", map[string]string{"EVENT_RETENTION": "-1h"}, "EVENT_RETENTION"},
		{"zero upload size", map[string]string{"MAX_UPLOAD_SIZE_MB": "0"}, "MAX_UPLOAD_SIZE_MB"},
		{"unknown storage", map[string]string{"STORAGE_BACKEND": "ftp"}, "STORAGE_BACKEND"},
		{"s3 without bucket", map[string]string{"STORAGE_BACKEND": "s3"}, "S3_BUCKET"},
		{"bad cron", map[string]string{"SWEEPER_CRON": "every hour"}, "SWEEPER_CRON"},
		{"memory in production", map[string]string{"APP_ENV": "production", "DB_DRIVER": "memory"}, "not allowed in production"},
		{"production without password", map[string]string{"APP_ENV": "production"}, "DB_PASSWORD"},
		{"smtp with memory driver", map[string]string{"DB_DRIVER": "memory", "SMTP_HOST": "mail"}, "SMTP_HOST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_PoolConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_CONNS", "40")
	t.Setenv("DB_RETRY_DELAY", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	pool := cfg.Database.PoolConfig()
	assert.Equal(t, "db.internal", pool.Host)
	assert.Equal(t, int32(40), pool.MaxConns)
	assert.Equal(t, int32(5), pool.MinConns)
	assert.Equal(t, 250*time.Millisecond, pool.RetryDelay)
	assert.Equal(t, 10*time.Second, pool.ConnectTimeout)
}
