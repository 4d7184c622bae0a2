package config

import "photobooth-backend/internal/infrastructure/database"

// PoolConfig chuyển DatabaseConfig sang DBConfig của pgxpool
func (d DatabaseConfig) PoolConfig() *database.DBConfig {
	return &database.DBConfig{
		Host:              d.Host,
		Port:              d.Port,
		Username:          d.User,
		Password:          d.Password,
		DBName:            d.Database,
		SSLMode:           d.SSLMode,
		MaxConns:          int32(d.MaxConns),
		MinConns:          int32(d.MinConns),
		MaxConnLifetime:   d.MaxConnLifetime,
		MaxConnIdleTime:   d.MaxConnIdleTime,
		HealthCheckPeriod: d.HealthCheckPeriod,
		MaxRetries:        d.MaxRetries,
		RetryDelay:        d.RetryDelay,
		ConnectTimeout:    d.ConnectTimeout,
	}
}
