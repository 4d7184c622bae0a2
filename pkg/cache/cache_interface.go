package cache

import (
	"context"
	"time"
)

// Cache là contract cho counter store dùng bởi rate limiter.
// Redis trong production, in-memory trong tests.
type Cache interface {
	// Increment tăng counter của key lên 1 và trả về giá trị mới.
	// Key chưa tồn tại được tạo với giá trị 1.
	Increment(ctx context.Context, key string) (int64, error)

	// Expire set TTL cho key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping kiểm tra connection
	Ping(ctx context.Context) error
}
