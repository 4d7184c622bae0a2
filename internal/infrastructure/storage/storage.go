package storage

import (
	"context"
	"errors"
	"fmt"

	"photobooth-backend/internal/config"

	"github.com/google/uuid"
)

// ErrObjectNotFound được trả về bởi Get khi key không tồn tại
var ErrObjectNotFound = errors.New("storage: object not found")

// BlobStore là storage adapter cho photo blobs.
// Delete và DeletePrefix idempotent: key không tồn tại không phải lỗi.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// EventPrefix: mọi blob của một event nằm dưới prefix này
func EventPrefix(eventID uuid.UUID) string {
	return fmt.Sprintf("events/%s/", eventID)
}

// PhotoKey: events/<event id>/<photo id>.<ext>
func PhotoKey(eventID, photoID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s%s.%s", EventPrefix(eventID), photoID, ext)
}

// ThumbnailKey: events/<event id>/thumbs/<photo id>.jpg
func ThumbnailKey(eventID, photoID uuid.UUID) string {
	return fmt.Sprintf("%sthumbs/%s.jpg", EventPrefix(eventID), photoID)
}

// New chọn backend theo STORAGE_BACKEND
func New(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStorage(cfg.LocalPath)
	case "minio":
		return NewMinIOStorage(ctx, cfg.MinIO)
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
