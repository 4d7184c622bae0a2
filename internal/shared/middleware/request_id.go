package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestID gắn id cho mỗi request, giữ lại id từ upstream nếu hợp lệ
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := xid.FromString(id); err != nil {
			id = xid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
