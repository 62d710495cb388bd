package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datawald/hub/internal/interfaces/http/dto"
)

// DefaultMaxBodyBytes caps request bodies at 4 MiB
const DefaultMaxBodyBytes int64 = 4 << 20

// BodyLimit caps request body size; entity payloads are bounded documents,
// not bulk uploads
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
