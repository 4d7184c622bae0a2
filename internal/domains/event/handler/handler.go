package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"photobooth-backend/internal/domains/event/model"
	"photobooth-backend/internal/domains/event/service"
	"photobooth-backend/internal/infrastructure/email"
	"photobooth-backend/internal/infrastructure/realtime"
	"photobooth-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const (
	qrSize = 256
	// multipart headers + boundary cộng thêm vào giới hạn body
	multipartOverhead = 1 << 20
)

// Config - tham số HTTP của handler
type Config struct {
	PublicURL      string
	MaxUploadBytes int64
	UploadTimeout  time.Duration
}

// OwnerMailer gửi owner link tới owner_email (bất đồng bộ qua worker)
type OwnerMailer interface {
	EnqueueOwnerLink(ctx context.Context, data email.OwnerLinkData) error
}

// Handler - HTTP Handler cho guest và owner
type Handler struct {
	service service.ServiceInterface
	hub     *realtime.Hub
	mailer  OwnerMailer
	cfg     Config
}

// NewHandler - Constructor with DI. hub và mailer có thể nil (tắt live feed / email)
func NewHandler(service service.ServiceInterface, hub *realtime.Hub, mailer OwnerMailer, cfg Config) *Handler {
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &Handler{service: service, hub: hub, mailer: mailer, cfg: cfg}
}

// ================================================
// RESPONSE SHAPES
// ================================================

type createEventResponse struct {
	Event      model.EventView `json:"event"`
	OwnerToken string          `json:"owner_token"`
	OwnerURL   string          `json:"owner_url"`
	GuestURL   string          `json:"guest_url"`
	QRCode     string          `json:"qr_code"`
	Emailed    bool            `json:"owner_link_emailed"`
}

type galleryResponse struct {
	Event  model.EventView   `json:"event"`
	Photos []model.PhotoView `json:"photos"`
}

type dashboardResponse struct {
	Event      *model.Event      `json:"event"`
	GuestURL   string            `json:"guest_url"`
	Photos     []model.PhotoView `json:"photos"`
	PhotoCount int               `json:"photo_count"`
	TotalBytes int64             `json:"total_bytes"`
}

func (h *Handler) guestURL(code string) string {
	return h.cfg.PublicURL + "/api/v1/events/" + code
}

func (h *Handler) ownerURL(token string) string {
	return h.cfg.PublicURL + "/api/v1/owner/" + token
}

func (h *Handler) eventView(e *model.Event) model.EventView {
	v := e.View()
	v.GuestURL = h.guestURL(e.GuestCode)
	return v
}

func (h *Handler) photoViews(guestCode string, photos []*model.Photo) []model.PhotoView {
	views := make([]model.PhotoView, 0, len(photos))
	for _, p := range photos {
		base := h.guestURL(guestCode) + "/photos/" + p.ID.String()
		views = append(views, model.PhotoView{
			ID:               p.ID,
			OriginalFilename: p.OriginalFilename,
			ContentType:      p.ContentType,
			SizeBytes:        p.SizeBytes,
			UploadedAt:       p.UploadedAt,
			URL:              base,
			ThumbnailURL:     base + "/thumbnail",
		})
	}
	return views
}

// ================================================
// EVENT CREATION
// ================================================

// CreateEvent - POST /v1/events (JSON hoặc form)
func (h *Handler) CreateEvent(c *gin.Context) {
	var req model.CreateEventRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	created, err := h.service.CreateEvent(c.Request.Context(), req)
	if model.HandleEventError(c, err) {
		return
	}

	guestURL := h.guestURL(created.Event.GuestCode)
	png, err := qrcode.Encode(guestURL, qrcode.Medium, qrSize)
	if err != nil {
		// event đã được tạo, QR chỉ là tiện ích
		log.Warn().Err(err).Str("event_id", created.Event.ID.String()).Msg("[Handler] QR encode failed")
	}

	resp := createEventResponse{
		Event:      h.eventView(created.Event),
		OwnerToken: created.OwnerToken,
		OwnerURL:   h.ownerURL(created.OwnerToken),
		GuestURL:   guestURL,
	}
	if len(png) > 0 {
		resp.QRCode = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}
	resp.Emailed = h.mailOwnerLink(c.Request.Context(), created, resp)

	response.Success(c, http.StatusCreated, resp)
}

// mailOwnerLink best effort: lỗi enqueue chỉ được log, owner vẫn nhận link trong response
func (h *Handler) mailOwnerLink(ctx context.Context, created *model.CreatedEvent, resp createEventResponse) bool {
	if h.mailer == nil || created.Event.OwnerEmail == "" {
		return false
	}

	err := h.mailer.EnqueueOwnerLink(ctx, email.OwnerLinkData{
		Email:     created.Event.OwnerEmail,
		EventName: created.Event.Name,
		OwnerURL:  resp.OwnerURL,
		GuestURL:  resp.GuestURL,
		ExpiresAt: created.Event.ExpiresAt,
	})
	if err != nil {
		log.Warn().Err(err).Str("event_id", created.Event.ID.String()).Msg("[Handler] Failed to enqueue owner link email")
		return false
	}
	return true
}

// ================================================
// GUEST ROUTES
// ================================================

// Gallery - GET /v1/events/:code
func (h *Handler) Gallery(c *gin.Context) {
	code := c.Param("code")

	gallery, err := h.service.Gallery(c.Request.Context(), code)
	if model.HandleEventError(c, err) {
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, galleryResponse{
		Event:  h.eventView(gallery.Event),
		Photos: h.photoViews(code, gallery.Photos),
	}, &response.Meta{Total: len(gallery.Photos)})
}

// QRCode - GET /v1/events/:code/qr.png
func (h *Handler) QRCode(c *gin.Context) {
	event, err := h.service.ResolvePublic(c.Request.Context(), c.Param("code"))
	if model.HandleEventError(c, err) {
		return
	}

	png, err := qrcode.Encode(h.guestURL(event.GuestCode), qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID.String()).Msg("[Handler] QR encode failed")
		response.InternalServerError(c, "Failed to render QR code")
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}

// Upload - POST /v1/events/:code/photos (multipart field "photo")
func (h *Handler) Upload(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.UploadTimeout)
	defer cancel()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes+multipartOverhead)

	in, err := h.readUpload(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			model.HandleEventError(c, model.NewInvalidPhotoError(
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
			return
		}
		response.BadRequest(c, "Multipart field 'photo' is required")
		return
	}

	photo, err := h.service.Upload(ctx, c.Param("code"), in)
	if model.HandleEventError(c, err) {
		return
	}

	response.Success(c, http.StatusCreated, h.photoViews(c.Param("code"), []*model.Photo{photo})[0])
}

func (h *Handler) readUpload(c *gin.Context) (model.UploadInput, error) {
	fh, err := c.FormFile("photo")
	if err != nil {
		return model.UploadInput{}, err
	}

	f, err := fh.Open()
	if err != nil {
		return model.UploadInput{}, err
	}
	defer f.Close()

	// đọc tối đa limit+1 byte, phần kiểm tra kích thước do service làm
	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxUploadBytes+1))
	if err != nil {
		return model.UploadInput{}, err
	}

	return model.UploadInput{
		Data:             data,
		ContentType:      fh.Header.Get("Content-Type"),
		OriginalFilename: fh.Filename,
	}, nil
}

// Photo - GET /v1/events/:code/photos/:photoId
func (h *Handler) Photo(c *gin.Context) {
	h.servePhoto(c, false)
}

// Thumbnail - GET /v1/events/:code/photos/:photoId/thumbnail
func (h *Handler) Thumbnail(c *gin.Context) {
	h.servePhoto(c, true)
}

func (h *Handler) servePhoto(c *gin.Context, thumbnail bool) {
	photoID, err := uuid.Parse(c.Param("photoId"))
	if err != nil {
		model.HandleEventError(c, model.ErrPhotoNotFound)
		return
	}

	blob, err := h.service.PhotoBlob(c.Request.Context(), c.Param("code"), photoID, thumbnail)
	if model.HandleEventError(c, err) {
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, blob.ContentType, blob.Data)
}

// Live - GET /v1/events/:code/live (websocket)
func (h *Handler) Live(c *gin.Context) {
	if h.hub == nil {
		response.NotFound(c, "Live feed is disabled")
		return
	}

	gallery, err := h.service.Gallery(c.Request.Context(), c.Param("code"))
	if model.HandleEventError(c, err) {
		return
	}

	conn, err := realtime.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade đã tự ghi response lỗi
		log.Warn().Err(err).Msg("[Handler] Websocket upgrade failed")
		return
	}

	h.hub.ServeClient(conn, gallery.Event.GuestCode)
}

// ================================================
// OWNER ROUTES
// ================================================

// Dashboard - GET /v1/owner/:token
func (h *Handler) Dashboard(c *gin.Context) {
	dash, err := h.service.Dashboard(c.Request.Context(), c.Param("token"))
	if model.HandleEventError(c, err) {
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, dashboardResponse{
		Event:      dash.Event,
		GuestURL:   h.guestURL(dash.Event.GuestCode),
		Photos:     h.photoViews(dash.Event.GuestCode, dash.Photos),
		PhotoCount: dash.PhotoCount,
		TotalBytes: dash.TotalBytes,
	}, &response.Meta{Total: dash.PhotoCount, TotalBytes: dash.TotalBytes})
}

// CloseUploads - POST /v1/owner/:token/close
func (h *Handler) CloseUploads(c *gin.Context) {
	event, err := h.service.CloseUploads(c.Request.Context(), c.Param("token"))
	if model.HandleEventError(c, err) {
		return
	}

	response.Success(c, http.StatusOK, h.eventView(event))
}

// DeletePhoto - DELETE /v1/owner/:token/photos/:photoId
func (h *Handler) DeletePhoto(c *gin.Context) {
	photoID, err := uuid.Parse(c.Param("photoId"))
	if err != nil {
		model.HandleEventError(c, model.ErrPhotoNotFound)
		return
	}

	err = h.service.DeletePhoto(c.Request.Context(), c.Param("token"), photoID)
	if model.HandleEventError(c, err) {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": 1})
}

// BulkDelete - POST /v1/owner/:token/photos/bulk-delete
func (h *Handler) BulkDelete(c *gin.Context) {
	var req model.PhotoIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "photo_ids is invalid", err)
		return
	}

	n, err := h.service.DeletePhotos(c.Request.Context(), c.Param("token"), req.PhotoIDs)
	if model.HandleEventError(c, err) {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": n})
}

// Download - GET|POST /v1/owner/:token/download
// POST body {"photo_ids": [...]} chọn một phần, không có body = tất cả
func (h *Handler) Download(c *gin.Context) {
	var req model.PhotoIDsRequest
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
		if len(req.PhotoIDs) > model.MaxBulkPhotoIDs {
			response.BadRequest(c, fmt.Sprintf("At most %d photo_ids per request", model.MaxBulkPhotoIDs))
			return
		}
	}

	archive, err := h.service.DownloadAll(c.Request.Context(), c.Param("token"), req.PhotoIDs)
	if model.HandleEventError(c, err) {
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="event-%s.zip"`, archive.Event.GuestCode))
	c.Status(http.StatusOK)

	// header đã gửi, lỗi giữa chừng chỉ log được
	if _, err := h.service.WriteArchive(c.Request.Context(), archive, c.Writer); err != nil {
		log.Error().Err(err).Str("event_id", archive.Event.ID.String()).Msg("[Handler] Archive stream aborted")
	}
}
