package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes gắn guest và owner routes vào v1.
// uploadMiddleware chạy trước Upload (rate limit).
func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup, uploadMiddleware ...gin.HandlerFunc) {
	v1.POST("/events", h.CreateEvent)

	events := v1.Group("/events/:code")
	{
		events.GET("", h.Gallery)
		events.GET("/qr.png", h.QRCode)
		events.POST("/photos", append(uploadMiddleware, h.Upload)...)
		events.GET("/photos/:photoId", h.Photo)
		events.GET("/photos/:photoId/thumbnail", h.Thumbnail)
		events.GET("/live", h.Live)
	}

	owner := v1.Group("/owner/:token")
	{
		owner.GET("", h.Dashboard)
		owner.POST("/close", h.CloseUploads)
		owner.DELETE("/photos/:photoId", h.DeletePhoto)
		owner.POST("/photos/bulk-delete", h.BulkDelete)
		owner.GET("/download", h.Download)
		owner.POST("/download", h.Download)
	}
}
