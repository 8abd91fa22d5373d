package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTD-web/ems-backend-sub011/pkg/response"
)

// BodyLimit 请求体大小限制
// Content-Length 已超限时直接拒绝，否则包一层 MaxBytesReader，由绑定阶段报错
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
