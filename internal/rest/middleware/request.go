package middleware

import (
	"context"
	"time"

	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/gin-gonic/gin"
)

// RequestIDMiddleware tags every request with an id, generating one when the
// caller did not supply it
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)

	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}

// RequestLogger logs one line per request with latency and status
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Infow("handled request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", types.GetRequestID(c.Request.Context()),
		)
	}
}
