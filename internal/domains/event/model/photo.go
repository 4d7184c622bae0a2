package model

import (
	"time"

	"github.com/google/uuid"
)

// Photo là metadata của một ảnh, blob nằm trong storage tại StorageKey
type Photo struct {
	ID               uuid.UUID `json:"id"`
	EventID          uuid.UUID `json:"event_id"`
	StorageKey       string    `json:"-"`
	ThumbnailKey     string    `json:"-"` // rỗng nếu không tạo được thumbnail
	OriginalFilename string    `json:"original_filename,omitempty"`
	ContentType      string    `json:"content_type"`
	SizeBytes        int64     `json:"size_bytes"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// HasThumbnail false khi thumbnail generation thất bại lúc upload
func (p *Photo) HasThumbnail() bool {
	return p.ThumbnailKey != ""
}

// PhotoView là photo kèm URLs cho client
type PhotoView struct {
	ID               uuid.UUID `json:"id"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	ContentType      string    `json:"content_type"`
	SizeBytes        int64     `json:"size_bytes"`
	UploadedAt       time.Time `json:"uploaded_at"`
	URL              string    `json:"url"`
	ThumbnailURL     string    `json:"thumbnail_url"`
}
