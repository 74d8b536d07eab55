package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/retail_backend/utils"
)

// IdempotencyKeyMiddleware lifts the Idempotency-Key header onto the request
// context. Handlers that guard mutations read it from there; a request
// without the header runs unguarded.
func IdempotencyKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Header.Get("Idempotency-Key")
		if key != "" {
			c.Request = c.Request.WithContext(utils.SetIdempotencyKeyInContext(c.Request.Context(), key))
		}
		c.Next()
	}
}
