package model

import (
	"time"

	"github.com/google/uuid"
)

// Event là một phiên chụp ảnh có thời hạn.
// ExpiresAt = CreatedAt + retention, cố định từ lúc tạo.
// UploadsOpen chỉ chuyển một chiều từ true sang false.
type Event struct {
	ID              uuid.UUID `json:"id"`
	GuestCode       string    `json:"guest_code"`
	OwnerSecretHash []byte    `json:"-"`
	Name            string    `json:"name"`
	OwnerEmail      string    `json:"owner_email,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	UploadsOpen     bool      `json:"uploads_open"`
}

// ExpiryFor tính thời điểm hết hạn cho event tạo lúc createdAt
func ExpiryFor(createdAt time.Time, retention time.Duration) time.Time {
	return createdAt.Add(retention)
}

// IsExpired: event hết hạn khi now >= ExpiresAt
func (e *Event) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// CheckUploadable trả về ErrExpired hoặc ErrUploadsClosed nếu event không nhận upload.
// Expiry được check trước: event hết hạn luôn trả về ErrExpired kể cả khi uploads còn mở.
func (e *Event) CheckUploadable(now time.Time) error {
	if e.IsExpired(now) {
		return ErrExpired
	}
	if !e.UploadsOpen {
		return ErrUploadsClosed
	}
	return nil
}

// EventView là phần thông tin event mà guest được thấy
type EventView struct {
	GuestCode   string    `json:"guest_code"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	UploadsOpen bool      `json:"uploads_open"`
	GuestURL    string    `json:"guest_url,omitempty"`
}

// View trả về public view, không có owner email và secret hash
func (e *Event) View() EventView {
	return EventView{
		GuestCode:   e.GuestCode,
		Name:        e.Name,
		CreatedAt:   e.CreatedAt,
		ExpiresAt:   e.ExpiresAt,
		UploadsOpen: e.UploadsOpen,
	}
}
