// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDField is the logrus field carrying the per-request correlation id.
const RequestIDField = "request_id"

type requestIDKey struct{}

// WithRequestID stores id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns a log entry tagged with the request id in ctx, if any.
func FromContext(ctx context.Context) *log.Entry {
	if id := RequestID(ctx); id != "" {
		return log.WithField(RequestIDField, id)
	}
	return log.NewEntry(log.StandardLogger())
}

// GinMiddleware assigns a short request id to each request and logs one access line.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()[:8]
		}
		c.Header("X-Request-ID", id)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), id))

		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			RequestIDField: id,
			"status":       c.Writer.Status(),
			"latency":      time.Since(start).Round(time.Millisecond),
		})
		msg := c.Request.Method + " " + c.Request.URL.Path
		switch {
		case c.Writer.Status() >= 500:
			entry.Error(msg)
		case c.Writer.Status() >= 400:
			entry.Warn(msg)
		default:
			entry.Debug(msg)
		}
	}
}
