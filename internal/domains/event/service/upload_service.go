package service

import (
	"context"
	"errors"
	"fmt"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/internal/infrastructure/realtime"
	"photobooth-backend/internal/infrastructure/storage"
	"photobooth-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var _ ServiceInterface = (*EventService)(nil)

// Upload chạy toàn bộ pipeline trong một transaction:
// lock event (FOR SHARE) -> check expiry/closed -> validate -> ghi blob -> insert row -> commit.
// Blob luôn được ghi xong trước khi row được commit. Nếu insert hoặc commit lỗi,
// blob vừa ghi bị xóa (compensating delete).
func (s *EventService) Upload(ctx context.Context, guestCode string, in model.UploadInput) (*model.Photo, error) {
	var written []string
	var event *model.Event

	photo, err := database.WithinTxResult(ctx, s.tx, func(q database.Querier) (*model.Photo, error) {
		var err error
		event, err = s.publicEvent(ctx, q, guestCode, database.ForShare)
		if err != nil {
			return nil, err
		}

		now := s.clockNow()
		if err := event.CheckUploadable(now); err != nil {
			return nil, err
		}

		contentType, err := s.images.Validate(in.Data, in.ContentType)
		if err != nil {
			var vErr *storage.ValidationError
			if errors.As(err, &vErr) {
				return nil, model.NewInvalidPhotoError(vErr.Reason)
			}
			return nil, err
		}

		photoID := uuid.New()
		photo := &model.Photo{
			ID:               photoID,
			EventID:          event.ID,
			StorageKey:       storage.PhotoKey(event.ID, photoID, storage.ExtensionFor(contentType)),
			OriginalFilename: in.OriginalFilename,
			ContentType:      contentType,
			SizeBytes:        int64(len(in.Data)),
			UploadedAt:       now,
		}

		if err := s.blobs.Put(ctx, photo.StorageKey, in.Data, contentType); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrStorageFailure, err)
		}
		written = append(written, photo.StorageKey)

		photo.ThumbnailKey = s.storeThumbnail(ctx, photo, in.Data)
		written = append(written, photo.ThumbnailKey)

		if err := s.photos.Create(ctx, q, photo); err != nil {
			return nil, fmt.Errorf("failed to record photo: %w", err)
		}
		return photo, nil
	})
	if err != nil {
		if len(written) > 0 {
			s.discardBlobs(ctx, written...)
		}
		return nil, err
	}

	log.Info().
		Str("event_id", photo.EventID.String()).
		Str("photo_id", photo.ID.String()).
		Int64("size_bytes", photo.SizeBytes).
		Msg("Photo uploaded")

	s.notifier.Publish(event.GuestCode, realtime.MsgPhotoAdded, photo)
	return photo, nil
}

// storeThumbnail best effort: lỗi chỉ được log, photo vẫn được lưu không có thumbnail
func (s *EventService) storeThumbnail(ctx context.Context, photo *model.Photo, data []byte) string {
	thumb, err := s.images.Thumbnail(data)
	if err != nil {
		log.Warn().Err(err).Str("photo_id", photo.ID.String()).Msg("Thumbnail generation failed")
		return ""
	}

	key := storage.ThumbnailKey(photo.EventID, photo.ID)
	if err := s.blobs.Put(ctx, key, thumb, "image/jpeg"); err != nil {
		log.Warn().Err(err).Str("photo_id", photo.ID.String()).Msg("Thumbnail upload failed")
		return ""
	}
	return key
}
