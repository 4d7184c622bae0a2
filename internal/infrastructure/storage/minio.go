package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"photobooth-backend/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage lưu blobs trên MinIO (S3-compatible)
type MinIOStorage struct {
	client *minio.Client
	bucket string
}

// NewMinIOStorage khởi tạo MinIO client, tạo bucket nếu chưa có
func NewMinIOStorage(ctx context.Context, cfg config.MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		// Bucket private, guests đọc ảnh qua API
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOStorage{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinIOStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("failed to upload %s to minio: %w", key, err)
	}
	return nil
}

func (s *MinIOStorage) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(key, err)
	}
	defer object.Close()

	// GetObject lazy, lỗi NoSuchKey chỉ xuất hiện khi đọc
	data, err := io.ReadAll(object)
	if err != nil {
		return nil, s.mapError(key, err)
	}
	return data, nil
}

func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix list tất cả objects có prefix rồi xóa theo batch.
// Lỗi đầu tiên được trả về sau khi error channel đã được đọc hết,
// nên không goroutine nào của minio hay của listing còn bị block.
func (s *MinIOStorage) DeletePrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objectsCh := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	go func() {
		defer close(objectsCh)
		listErr <- forwardObjects(ctx, s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}), objectsCh)
	}()

	rmErr := drainRemoveErrors(s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}), cancel)

	// RemoveObjects đã xong, listing goroutine thoát qua ctx.Done nếu còn đang gửi
	cancel()
	if err := <-listErr; err != nil && rmErr == nil {
		return fmt.Errorf("failed to list objects under %s: %w", prefix, err)
	}
	return rmErr
}

// forwardObjects chuyển objects từ listing sang RemoveObjects, dừng khi ctx bị cancel
func forwardObjects(ctx context.Context, src <-chan minio.ObjectInfo, dst chan<- minio.ObjectInfo) error {
	for object := range src {
		if object.Err != nil {
			return object.Err
		}
		select {
		case dst <- object:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// drainRemoveErrors đọc errs tới khi bị đóng. Lỗi đầu tiên cancel phần còn lại.
func drainRemoveErrors(errs <-chan minio.RemoveObjectError, cancel context.CancelFunc) error {
	var first error
	for rmErr := range errs {
		if rmErr.Err != nil && first == nil {
			first = fmt.Errorf("failed to remove %s: %w", rmErr.ObjectName, rmErr.Err)
			cancel()
		}
	}
	return first
}

func (s *MinIOStorage) mapError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return fmt.Errorf("failed to get %s from minio: %w", key, err)
}
