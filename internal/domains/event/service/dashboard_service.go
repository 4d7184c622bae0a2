package service

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/internal/infrastructure/realtime"
	"photobooth-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type photoDeleted struct {
	ID uuid.UUID `json:"id"`
}

func (s *EventService) Dashboard(ctx context.Context, ownerToken string) (*model.Dashboard, error) {
	return database.WithinTxResult(ctx, s.tx, func(q database.Querier) (*model.Dashboard, error) {
		event, err := s.activeOwnerEvent(ctx, q, ownerToken)
		if err != nil {
			return nil, err
		}

		photos, err := s.photos.ListByEvent(ctx, q, event.ID)
		if err != nil {
			return nil, err
		}

		var total int64
		for _, p := range photos {
			total += p.SizeBytes
		}

		return &model.Dashboard{
			Event:      event,
			Photos:     photos,
			PhotoCount: len(photos),
			TotalBytes: total,
		}, nil
	})
}

func (s *EventService) ListPhotos(ctx context.Context, ownerToken string) ([]*model.Photo, error) {
	return database.WithinTxResult(ctx, s.tx, func(q database.Querier) ([]*model.Photo, error) {
		event, err := s.activeOwnerEvent(ctx, q, ownerToken)
		if err != nil {
			return nil, err
		}
		return s.photos.ListByEvent(ctx, q, event.ID)
	})
}

// DeletePhoto xóa row trước, blob sau khi commit.
// Photo của event khác trả về ErrPhotoNotFound.
func (s *EventService) DeletePhoto(ctx context.Context, ownerToken string, photoID uuid.UUID) error {
	var event *model.Event
	photo, err := database.WithinTxResult(ctx, s.tx, func(q database.Querier) (*model.Photo, error) {
		var err error
		event, err = s.activeOwnerEvent(ctx, q, ownerToken)
		if err != nil {
			return nil, err
		}
		return s.photos.Delete(ctx, q, event.ID, photoID)
	})
	if err != nil {
		return err
	}

	s.discardBlobs(ctx, photo.StorageKey, photo.ThumbnailKey)

	log.Info().Str("event_id", event.ID.String()).Str("photo_id", photo.ID.String()).Msg("Photo deleted by owner")
	s.notifier.Publish(event.GuestCode, realtime.MsgPhotoDeleted, photoDeleted{ID: photo.ID})
	return nil
}

// DeletePhotos bulk delete, ids không thuộc event bị bỏ qua. Trả về số photo đã xóa.
func (s *EventService) DeletePhotos(ctx context.Context, ownerToken string, photoIDs []uuid.UUID) (int, error) {
	var event *model.Event
	deleted, err := database.WithinTxResult(ctx, s.tx, func(q database.Querier) ([]*model.Photo, error) {
		var err error
		event, err = s.activeOwnerEvent(ctx, q, ownerToken)
		if err != nil {
			return nil, err
		}
		if len(photoIDs) == 0 {
			return nil, nil
		}
		return s.photos.DeleteByIDs(ctx, q, event.ID, photoIDs)
	})
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(deleted)*2)
	for _, p := range deleted {
		keys = append(keys, p.StorageKey, p.ThumbnailKey)
	}
	s.discardBlobs(ctx, keys...)

	for _, p := range deleted {
		s.notifier.Publish(event.GuestCode, realtime.MsgPhotoDeleted, photoDeleted{ID: p.ID})
	}

	log.Info().Str("event_id", event.ID.String()).Int("count", len(deleted)).Msg("Photos bulk deleted by owner")
	return len(deleted), nil
}

// DownloadAll chọn photos để đóng gói; photoIDs rỗng = tất cả
func (s *EventService) DownloadAll(ctx context.Context, ownerToken string, photoIDs []uuid.UUID) (*model.PhotoArchive, error) {
	return database.WithinTxResult(ctx, s.tx, func(q database.Querier) (*model.PhotoArchive, error) {
		event, err := s.activeOwnerEvent(ctx, q, ownerToken)
		if err != nil {
			return nil, err
		}

		var photos []*model.Photo
		if len(photoIDs) > 0 {
			photos, err = s.photos.ListByIDs(ctx, q, event.ID, photoIDs)
		} else {
			photos, err = s.photos.ListByEvent(ctx, q, event.ID)
		}
		if err != nil {
			return nil, err
		}
		return &model.PhotoArchive{Event: event, Photos: photos}, nil
	})
}

// WriteArchive stream ZIP ra w. Blobs được fetch song song theo từng chunk;
// blob không đọc được bị bỏ qua và log lại.
func (s *EventService) WriteArchive(ctx context.Context, archive *model.PhotoArchive, w io.Writer) (*model.ArchiveResult, error) {
	zw := zip.NewWriter(w)
	result := &model.ArchiveResult{}
	chunkSize := s.cfg.DownloadConcurrency * 2

	for start := 0; start < len(archive.Photos); start += chunkSize {
		chunk := archive.Photos[start:min(start+chunkSize, len(archive.Photos))]

		blobs, err := s.fetchBlobs(ctx, chunk)
		if err != nil {
			return result, err
		}

		for i, p := range chunk {
			if blobs[i] == nil {
				result.Skipped++
				continue
			}

			entry, err := zw.CreateHeader(&zip.FileHeader{
				Name:     archiveEntryName(p),
				Method:   zip.Store, // JPEG/PNG đã nén sẵn
				Modified: p.UploadedAt,
			})
			if err != nil {
				return result, fmt.Errorf("failed to create zip entry: %w", err)
			}
			if _, err := entry.Write(blobs[i]); err != nil {
				return result, fmt.Errorf("failed to write zip entry: %w", err)
			}
			result.Included++
		}
	}

	if err := zw.Close(); err != nil {
		return result, fmt.Errorf("failed to finalize zip: %w", err)
	}

	log.Info().
		Str("event_id", archive.Event.ID.String()).
		Int("included", result.Included).
		Int("skipped", result.Skipped).
		Msg("Photo archive written")
	return result, nil
}

// fetchBlobs trả về slice cùng thứ tự với photos, nil tại vị trí fetch lỗi
func (s *EventService) fetchBlobs(ctx context.Context, photos []*model.Photo) ([][]byte, error) {
	blobs := make([][]byte, len(photos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DownloadConcurrency)
	for i, p := range photos {
		g.Go(func() error {
			data, err := s.blobs.Get(gctx, p.StorageKey)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("photo_id", p.ID.String()).Msg("Skipping photo in archive")
				return nil
			}
			blobs[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blobs, nil
}

// archiveEntryName: <upload time>_<photo id>.<ext>, sort theo tên = sort theo thời gian
func archiveEntryName(p *model.Photo) string {
	return fmt.Sprintf("%s_%s%s", p.UploadedAt.UTC().Format("20060102-150405"), p.ID, path.Ext(p.StorageKey))
}
