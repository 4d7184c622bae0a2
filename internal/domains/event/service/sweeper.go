package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/internal/infrastructure/realtime"
	"photobooth-backend/internal/infrastructure/storage"
	"photobooth-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SweepExpired xóa mọi event có expires_at <= now cùng photos (blobs + rows).
// Lỗi của một event được log và đếm, event đó được thử lại ở lần chạy sau;
// các event khác vẫn được xử lý. Chạy lại trên event đã sweep là no-op.
func (s *EventService) SweepExpired(ctx context.Context) (*model.SweepResult, error) {
	start := time.Now()
	now := s.clockNow()
	result := &model.SweepResult{}
	var failed []uuid.UUID

	for {
		batch, err := database.WithinTxResult(ctx, s.tx, func(q database.Querier) ([]*model.Event, error) {
			return s.events.ListExpired(ctx, q, now, s.cfg.SweepBatchSize, failed)
		})
		if err != nil {
			return result, fmt.Errorf("failed to list expired events: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, event := range batch {
			result.Scanned++

			deleted, err := s.sweepEvent(ctx, event.ID, now)
			if err != nil {
				result.Failed++
				failed = append(failed, event.ID)
				log.Error().Err(err).
					Str("event_id", event.ID.String()).
					Time("expires_at", event.ExpiresAt).
					Msg("Failed to sweep expired event, will retry next run")
				continue
			}

			result.Swept++
			result.PhotosDeleted += deleted
		}
	}

	log.Info().
		Int("scanned", result.Scanned).
		Int("swept", result.Swept).
		Int("failed", result.Failed).
		Int("photos_deleted", result.PhotosDeleted).
		Dur("duration", time.Since(start)).
		Msg("Expiry sweep finished")

	return result, nil
}

// sweepEvent: (1) lock event + đóng uploads, (2) xóa blobs, (3) xóa photo rows rồi event row.
// Crash giữa chừng để lại event row, lần chạy sau sẽ xử lý tiếp.
// Viewers của event được báo event.expired sau khi xóa xong.
func (s *EventService) sweepEvent(ctx context.Context, eventID uuid.UUID, now time.Time) (int, error) {
	var gone bool
	var guestCode string
	photos, err := database.WithinTxResult(ctx, s.tx, func(q database.Querier) ([]*model.Photo, error) {
		// FOR UPDATE chờ các upload đang giữ FOR SHARE commit xong
		event, err := s.events.FindByID(ctx, q, eventID, database.ForUpdate)
		if errors.Is(err, model.ErrEventNotFound) {
			gone = true
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !event.IsExpired(now) {
			return nil, fmt.Errorf("event %s expires at %s, refusing to sweep early", event.ID, event.ExpiresAt)
		}
		guestCode = event.GuestCode

		if _, err := s.events.CloseUploads(ctx, q, event.ID); err != nil {
			return nil, err
		}
		return s.photos.ListByEvent(ctx, q, event.ID)
	})
	if err != nil {
		return 0, err
	}
	if gone {
		return 0, nil
	}

	for _, p := range photos {
		if err := s.blobs.Delete(ctx, p.StorageKey); err != nil {
			return 0, fmt.Errorf("%w: %w", model.ErrStorageFailure, err)
		}
		if p.HasThumbnail() {
			if err := s.blobs.Delete(ctx, p.ThumbnailKey); err != nil {
				return 0, fmt.Errorf("%w: %w", model.ErrStorageFailure, err)
			}
		}
	}

	// Blobs mồ côi từ compensating delete thất bại
	if err := s.blobs.DeletePrefix(ctx, storage.EventPrefix(eventID)); err != nil {
		return 0, fmt.Errorf("%w: %w", model.ErrStorageFailure, err)
	}

	n, err := database.WithinTxResult(ctx, s.tx, func(q database.Querier) (int, error) {
		n, err := s.photos.DeleteByEvent(ctx, q, eventID)
		if err != nil {
			return 0, err
		}
		if err := s.events.Delete(ctx, q, eventID); err != nil {
			return 0, err
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}

	log.Info().Str("event_id", eventID.String()).Int("photos", n).Msg("Expired event swept")
	s.notifier.Publish(guestCode, realtime.MsgEventExpired, nil)
	return n, nil
}
