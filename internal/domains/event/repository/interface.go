package repository

import (
	"context"
	"errors"
	"time"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/pkg/database"

	"github.com/google/uuid"
)

// ErrDuplicate: unique constraint bị vi phạm (guest code hoặc owner hash trùng)
var ErrDuplicate = errors.New("duplicate key")

// EventRepository - data access cho events.
// Mọi method nhận Querier của transaction hiện tại.
type EventRepository interface {
	Create(ctx context.Context, q database.Querier, event *model.Event) error
	FindByGuestCode(ctx context.Context, q database.Querier, code string, lock database.RowLock) (*model.Event, error)
	FindByOwnerHash(ctx context.Context, q database.Querier, hash []byte, lock database.RowLock) (*model.Event, error)
	FindByID(ctx context.Context, q database.Querier, id uuid.UUID, lock database.RowLock) (*model.Event, error)
	// CloseUploads trả về true nếu event vừa chuyển từ open sang closed
	CloseUploads(ctx context.Context, q database.Querier, id uuid.UUID) (bool, error)
	// ListExpired trả về events có expires_at <= now, theo thứ tự expires_at tăng dần
	ListExpired(ctx context.Context, q database.Querier, now time.Time, limit int, exclude []uuid.UUID) ([]*model.Event, error)
	// Delete idempotent, event không tồn tại không phải lỗi
	Delete(ctx context.Context, q database.Querier, id uuid.UUID) error
}

// PhotoRepository - data access cho photos.
// Photo luôn được truy cập trong phạm vi event của nó.
type PhotoRepository interface {
	Create(ctx context.Context, q database.Querier, photo *model.Photo) error
	Get(ctx context.Context, q database.Querier, eventID, photoID uuid.UUID) (*model.Photo, error)
	// ListByEvent: mới nhất trước (uploaded_at DESC, id DESC)
	ListByEvent(ctx context.Context, q database.Querier, eventID uuid.UUID) ([]*model.Photo, error)
	ListByIDs(ctx context.Context, q database.Querier, eventID uuid.UUID, ids []uuid.UUID) ([]*model.Photo, error)
	// Delete trả về row đã xóa, ErrPhotoNotFound nếu không có
	Delete(ctx context.Context, q database.Querier, eventID, photoID uuid.UUID) (*model.Photo, error)
	// DeleteByIDs bỏ qua ids không thuộc event, trả về các rows đã xóa
	DeleteByIDs(ctx context.Context, q database.Querier, eventID uuid.UUID, ids []uuid.UUID) ([]*model.Photo, error)
	DeleteByEvent(ctx context.Context, q database.Querier, eventID uuid.UUID) (int, error)
}
