package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/internal/domains/event/repository"
	"photobooth-backend/internal/infrastructure/realtime"
	"photobooth-backend/internal/infrastructure/storage"
	"photobooth-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxCreateAttempts          = 3
	defaultSweepBatchSize      = 100
	defaultDownloadConcurrency = 4
	cleanupTimeout             = 30 * time.Second
)

// Config - tham số nghiệp vụ của service
type Config struct {
	Retention           time.Duration
	SweepBatchSize      int
	DownloadConcurrency int
}

// Dependencies gom các collaborator của EventService.
// Now, Random và Notifier có default nếu để nil.
type Dependencies struct {
	Tx       database.Transactor
	Events   repository.EventRepository
	Photos   repository.PhotoRepository
	Blobs    storage.BlobStore
	Images   ImageProcessor
	Notifier Notifier
	Now      func() time.Time
	Random   io.Reader
}

type EventService struct {
	tx       database.Transactor
	events   repository.EventRepository
	photos   repository.PhotoRepository
	blobs    storage.BlobStore
	images   ImageProcessor
	notifier Notifier
	now      func() time.Time
	random   io.Reader
	cfg      Config
}

// NewService - Constructor with DI
func NewService(deps Dependencies, cfg Config) *EventService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Random == nil {
		deps.Random = rand.Reader
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaultSweepBatchSize
	}
	if cfg.DownloadConcurrency <= 0 {
		cfg.DownloadConcurrency = defaultDownloadConcurrency
	}

	return &EventService{
		tx:       deps.Tx,
		events:   deps.Events,
		photos:   deps.Photos,
		blobs:    deps.Blobs,
		images:   deps.Images,
		notifier: deps.Notifier,
		now:      deps.Now,
		random:   deps.Random,
		cfg:      cfg,
	}
}

// clockNow làm tròn tới microsecond, độ chính xác của timestamptz
func (s *EventService) clockNow() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// ================================================
// ACCESS CONTROL
// ================================================

func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.CreatedEvent, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidEvent, err)
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		guestCode, err := newGuestCode(s.random)
		if err != nil {
			return nil, err
		}
		token, hash, err := newOwnerToken(s.random)
		if err != nil {
			return nil, err
		}

		now := s.clockNow()
		event := &model.Event{
			ID:              uuid.New(),
			GuestCode:       guestCode,
			OwnerSecretHash: hash,
			Name:            req.Name,
			OwnerEmail:      req.OwnerEmail,
			CreatedAt:       now,
			ExpiresAt:       model.ExpiryFor(now, s.cfg.Retention),
			UploadsOpen:     true,
		}

		err = s.tx.WithinTx(ctx, func(q database.Querier) error {
			return s.events.Create(ctx, q, event)
		})
		if errors.Is(err, repository.ErrDuplicate) {
			log.Warn().Int("attempt", attempt).Msg("Event identifier collision, regenerating")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create event: %w", err)
		}

		log.Info().
			Str("event_id", event.ID.String()).
			Time("expires_at", event.ExpiresAt).
			Msg("Event created")

		return &model.CreatedEvent{Event: event, OwnerToken: token}, nil
	}

	return nil, fmt.Errorf("failed to allocate unique event identifiers after %d attempts", maxCreateAttempts)
}

func (s *EventService) ResolvePublic(ctx context.Context, guestCode string) (*model.Event, error) {
	return database.WithinTxResult(ctx, s.tx, func(q database.Querier) (*model.Event, error) {
		return s.publicEvent(ctx, q, guestCode, database.NoLock)
	})
}

func (s *EventService) ResolveOwner(ctx context.Context, ownerToken string) (*model.Event, error) {
	return database.WithinTxResult(ctx, s.tx, func(q database.Querier) (*model.Event, error) {
		return s.ownerEvent(ctx, q, ownerToken, database.NoLock)
	})
}

// CloseUploads idempotent: event đã đóng (hoặc đã hết hạn) vẫn trả về thành công
func (s *EventService) CloseUploads(ctx context.Context, ownerToken string) (*model.Event, error) {
	var changed bool
	event, err := database.WithinTxResult(ctx, s.tx, func(q database.Querier) (*model.Event, error) {
		event, err := s.ownerEvent(ctx, q, ownerToken, database.NoLock)
		if err != nil {
			return nil, err
		}

		// UPDATE lấy row lock, chờ các upload đang giữ FOR SHARE commit xong
		changed, err = s.events.CloseUploads(ctx, q, event.ID)
		if err != nil {
			return nil, err
		}
		event.UploadsOpen = false
		return event, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		log.Info().Str("event_id", event.ID.String()).Msg("Uploads closed by owner")
		s.notifier.Publish(event.GuestCode, realtime.MsgUploadsClosed, event.View())
	}
	return event, nil
}

// publicEvent resolve guest code; code sai format được coi là không tồn tại
func (s *EventService) publicEvent(ctx context.Context, q database.Querier, guestCode string, lock database.RowLock) (*model.Event, error) {
	if !wellFormedGuestCode(guestCode) {
		return nil, model.ErrEventNotFound
	}
	return s.events.FindByGuestCode(ctx, q, guestCode, lock)
}

// ownerEvent resolve secret token. Mọi lỗi lookup đều trả về ErrUnauthorized
// để không lộ việc token có tồn tại hay không.
func (s *EventService) ownerEvent(ctx context.Context, q database.Querier, ownerToken string, lock database.RowLock) (*model.Event, error) {
	if !wellFormedOwnerToken(ownerToken) {
		return nil, model.ErrUnauthorized
	}

	hash := hashOwnerToken(ownerToken)
	event, err := s.events.FindByOwnerHash(ctx, q, hash, lock)
	if errors.Is(err, model.ErrEventNotFound) {
		return nil, model.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !ownerHashMatches(event.OwnerSecretHash, hash) {
		return nil, model.ErrUnauthorized
	}
	return event, nil
}

// activeOwnerEvent như ownerEvent nhưng từ chối event đã hết hạn chưa bị sweep
func (s *EventService) activeOwnerEvent(ctx context.Context, q database.Querier, ownerToken string) (*model.Event, error) {
	event, err := s.ownerEvent(ctx, q, ownerToken, database.NoLock)
	if err != nil {
		return nil, err
	}
	if event.IsExpired(s.clockNow()) {
		return nil, model.ErrExpired
	}
	return event, nil
}

// ================================================
// GUEST READS
// ================================================

func (s *EventService) Gallery(ctx context.Context, guestCode string) (*model.Gallery, error) {
	return database.WithinTxResult(ctx, s.tx, func(q database.Querier) (*model.Gallery, error) {
		event, err := s.publicEvent(ctx, q, guestCode, database.NoLock)
		if err != nil {
			return nil, err
		}
		if event.IsExpired(s.clockNow()) {
			return nil, model.ErrExpired
		}

		photos, err := s.photos.ListByEvent(ctx, q, event.ID)
		if err != nil {
			return nil, err
		}
		return &model.Gallery{Event: event, Photos: photos}, nil
	})
}

// PhotoBlob trả về ảnh gốc, hoặc thumbnail nếu có (fallback về ảnh gốc)
func (s *EventService) PhotoBlob(ctx context.Context, guestCode string, photoID uuid.UUID, thumbnail bool) (*model.PhotoBlob, error) {
	photo, err := database.WithinTxResult(ctx, s.tx, func(q database.Querier) (*model.Photo, error) {
		event, err := s.publicEvent(ctx, q, guestCode, database.NoLock)
		if err != nil {
			return nil, err
		}
		if event.IsExpired(s.clockNow()) {
			return nil, model.ErrExpired
		}
		return s.photos.Get(ctx, q, event.ID, photoID)
	})
	if err != nil {
		return nil, err
	}

	key, contentType := photo.StorageKey, photo.ContentType
	if thumbnail && photo.HasThumbnail() {
		key, contentType = photo.ThumbnailKey, "image/jpeg"
	}

	data, err := s.blobs.Get(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		// row còn nhưng blob đã bị xóa song song
		return nil, model.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStorageFailure, err)
	}

	return &model.PhotoBlob{Data: data, ContentType: contentType}, nil
}

// discardBlobs xóa blobs best effort, kể cả khi ctx của request đã bị cancel.
// Blob xóa không được sẽ bị sweeper dọn khi event hết hạn.
func (s *EventService) discardBlobs(ctx context.Context, keys ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to delete blob, leaving it for the sweeper")
		}
	}
}
