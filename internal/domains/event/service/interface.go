package service

import (
	"context"
	"io"

	"photobooth-backend/internal/domains/event/model"

	"github.com/google/uuid"
)

// ServiceInterface - business logic của event lifecycle
type ServiceInterface interface {
	// Access control
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.CreatedEvent, error)
	ResolvePublic(ctx context.Context, guestCode string) (*model.Event, error)
	ResolveOwner(ctx context.Context, ownerToken string) (*model.Event, error)
	CloseUploads(ctx context.Context, ownerToken string) (*model.Event, error)

	// Guest
	Gallery(ctx context.Context, guestCode string) (*model.Gallery, error)
	PhotoBlob(ctx context.Context, guestCode string, photoID uuid.UUID, thumbnail bool) (*model.PhotoBlob, error)
	Upload(ctx context.Context, guestCode string, in model.UploadInput) (*model.Photo, error)

	// Owner dashboard
	Dashboard(ctx context.Context, ownerToken string) (*model.Dashboard, error)
	ListPhotos(ctx context.Context, ownerToken string) ([]*model.Photo, error)
	DeletePhoto(ctx context.Context, ownerToken string, photoID uuid.UUID) error
	DeletePhotos(ctx context.Context, ownerToken string, photoIDs []uuid.UUID) (int, error)
	DownloadAll(ctx context.Context, ownerToken string, photoIDs []uuid.UUID) (*model.PhotoArchive, error)
	WriteArchive(ctx context.Context, archive *model.PhotoArchive, w io.Writer) (*model.ArchiveResult, error)

	// Expiry
	SweepExpired(ctx context.Context) (*model.SweepResult, error)
}

// ImageProcessor validate và tạo thumbnail cho uploads
type ImageProcessor interface {
	Validate(data []byte, declaredContentType string) (string, error)
	Thumbnail(data []byte) ([]byte, error)
}

// Notifier publish domain events tới gallery viewers
type Notifier interface {
	Publish(eventCode, msgType string, payload any)
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, string, any) {}
