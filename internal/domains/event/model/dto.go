package model

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

const (
	MaxEventNameLength = 200
	MaxBulkPhotoIDs    = 500
)

// CreateEventRequest nhận cả JSON và form
type CreateEventRequest struct {
	Name       string `json:"name" form:"name"`
	OwnerEmail string `json:"owner_email" form:"owner_email"`
}

// Normalize trim whitespace, lowercase email
func (r *CreateEventRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.OwnerEmail = strings.ToLower(strings.TrimSpace(r.OwnerEmail))
}

func (r CreateEventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, MaxEventNameLength)),
		validation.Field(&r.OwnerEmail, is.EmailFormat),
	)
}

// PhotoIDsRequest dùng cho bulk delete và selective download
type PhotoIDsRequest struct {
	PhotoIDs []uuid.UUID `json:"photo_ids"`
}

func (r PhotoIDsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PhotoIDs, validation.Required, validation.Length(1, MaxBulkPhotoIDs)),
	)
}

// CreatedEvent chứa owner token dạng plaintext, chỉ trả về đúng một lần
type CreatedEvent struct {
	Event      *Event
	OwnerToken string
}

// UploadInput là một file guest upload lên
type UploadInput struct {
	Data             []byte
	ContentType      string
	OriginalFilename string
}

// Gallery là guest view của một event
type Gallery struct {
	Event  *Event
	Photos []*Photo
}

// Dashboard là owner view của một event
type Dashboard struct {
	Event      *Event
	Photos     []*Photo
	PhotoCount int
	TotalBytes int64
}

// PhotoBlob là nội dung file để trả về cho client
type PhotoBlob struct {
	Data        []byte
	ContentType string
}

// SweepResult thống kê một lần chạy sweeper
type SweepResult struct {
	Scanned       int `json:"scanned"`
	Swept         int `json:"swept"`
	Failed        int `json:"failed"`
	PhotosDeleted int `json:"photos_deleted"`
}

// PhotoArchive là tập photos sẽ được đóng gói thành file ZIP
type PhotoArchive struct {
	Event  *Event
	Photos []*Photo
}

// ArchiveResult thống kê file ZIP đã ghi
type ArchiveResult struct {
	Included int
	Skipped  int
}
