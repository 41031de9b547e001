package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/fitquest/utils"
)

// RequestID reuses an incoming X-Request-ID header or assigns a new uuid, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rid := ctx.GetHeader(utils.RequestIDKey)
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.NewString()
		}
		ctx.Set(utils.RequestIDKey, rid)
		ctx.Header(utils.RequestIDKey, rid)
		ctx.Next()
	}
}
