package model

import (
	"errors"
	"net/http"

	"photobooth-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrPhotoNotFound  = errors.New("photo not found")
	ErrUnauthorized   = errors.New("invalid owner token")
	ErrExpired        = errors.New("event has expired")
	ErrUploadsClosed  = errors.New("uploads are closed for this event")
	ErrInvalidPhoto   = errors.New("invalid photo")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrStorageFailure = errors.New("storage failure")
)

// InvalidPhotoError mang lý do cụ thể, errors.Is(err, ErrInvalidPhoto) == true
type InvalidPhotoError struct {
	Reason string
}

func NewInvalidPhotoError(reason string) *InvalidPhotoError {
	return &InvalidPhotoError{Reason: reason}
}

func (e *InvalidPhotoError) Error() string {
	return "invalid photo: " + e.Reason
}

func (e *InvalidPhotoError) Unwrap() error {
	return ErrInvalidPhoto
}

type errorMapping struct {
	Err       error
	Status    int
	Code      string
	Message   string
	Retryable bool
}

// Thứ tự quan trọng: lỗi được match bằng errors.Is theo thứ tự này
var eventErrorMap = []errorMapping{
	{Err: ErrUnauthorized, Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Owner token is invalid"},
	{Err: ErrEventNotFound, Status: http.StatusNotFound, Code: "EVENT_NOT_FOUND", Message: "Event does not exist"},
	{Err: ErrPhotoNotFound, Status: http.StatusNotFound, Code: "PHOTO_NOT_FOUND", Message: "Photo does not exist"},
	{Err: ErrExpired, Status: http.StatusGone, Code: "EVENT_EXPIRED", Message: "This event has expired"},
	{Err: ErrUploadsClosed, Status: http.StatusForbidden, Code: "UPLOADS_CLOSED", Message: "The organizer has closed uploads for this event"},
	{Err: ErrInvalidPhoto, Status: http.StatusBadRequest, Code: "INVALID_PHOTO", Message: "Photo was rejected"},
	{Err: ErrInvalidEvent, Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: "Event details are invalid"},
	{Err: ErrStorageFailure, Status: http.StatusServiceUnavailable, Code: "STORAGE_UNAVAILABLE", Message: "Photo storage is temporarily unavailable, please retry", Retryable: true},
}

// HandleEventError ghi error response tương ứng với err.
// Trả về false nếu err == nil.
func HandleEventError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	for _, m := range eventErrorMap {
		if !errors.Is(err, m.Err) {
			continue
		}

		var details any
		var photoErr *InvalidPhotoError
		var validationErrs validation.Errors
		switch {
		case errors.As(err, &photoErr):
			details = gin.H{"reason": photoErr.Reason}
		case errors.As(err, &validationErrs):
			details = validationErrs
		case m.Retryable:
			details = gin.H{"retryable": true}
		}

		if m.Status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("route", c.FullPath()).Msg("[Handler] Request failed")
		}

		if details != nil {
			response.ErrorWithDetails(c, m.Status, m.Code, m.Message, details)
		} else {
			response.ErrorResponse(c, m.Status, m.Code, m.Message)
		}
		return true
	}

	// Lỗi không xác định
	log.Error().Err(err).Str("route", c.FullPath()).Msg("[Handler] Unexpected error")
	response.InternalServerError(c, "Internal server error")
	return true
}
