package database

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Close đóng pool, gọi nhiều lần vẫn an toàn
func (db *PostgresDB) Close() error {
	if db.Pool == nil {
		return nil
	}

	log.Info().Msg("[DATABASE] Closing connection pool")
	db.Pool.Close()
	db.Pool = nil
	return nil
}

// PoolStats là snapshot thống kê của connection pool
type PoolStats struct {
	AcquiredConns        int32
	IdleConns            int32
	TotalConns           int32
	MaxConns             int32
	AcquireCount         int64
	AcquireDuration      time.Duration
	CanceledAcquireCount int64
}

// Stats trả về nil nếu pool chưa được khởi tạo
func (db *PostgresDB) Stats() *PoolStats {
	if db.Pool == nil {
		return nil
	}

	raw := db.Pool.Stat()
	return &PoolStats{
		AcquiredConns:        raw.AcquiredConns(),
		IdleConns:            raw.IdleConns(),
		TotalConns:           raw.TotalConns(),
		MaxConns:             raw.MaxConns(),
		AcquireCount:         raw.AcquireCount(),
		AcquireDuration:      raw.AcquireDuration(),
		CanceledAcquireCount: raw.CanceledAcquireCount(),
	}
}

// AvgAcquireDuration = tổng thời gian acquire / số lần acquire
func (s *PoolStats) AvgAcquireDuration() time.Duration {
	if s.AcquireCount == 0 {
		return 0
	}
	return s.AcquireDuration / time.Duration(s.AcquireCount)
}

// MonitorPoolHealth chạy trong goroutine riêng, log cảnh báo khi pool gần cạn
// hoặc acquire latency cao. Dừng khi ctx bị cancel.
func (db *PostgresDB) MonitorPoolHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := db.Stats()
			if stats == nil || stats.MaxConns == 0 {
				continue
			}

			utilization := float64(stats.AcquiredConns) / float64(stats.MaxConns) * 100
			if utilization > 80 {
				log.Warn().
					Float64("utilization_pct", utilization).
					Int32("acquired", stats.AcquiredConns).
					Int32("max", stats.MaxConns).
					Msg("[MONITOR] High pool utilization")
			}

			if avg := stats.AvgAcquireDuration(); avg > 100*time.Millisecond {
				log.Warn().Dur("avg_acquire", avg).Msg("[MONITOR] High acquire latency")
			}

		case <-ctx.Done():
			return
		}
	}
}
