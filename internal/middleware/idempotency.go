package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	internalRedis "carmonitor/internal/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replay"
	idempotencyTTL    = 24 * time.Hour

	// pendingTTL bounds how long a crashed request blocks its key.
	pendingTTL = 30 * time.Second
)

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored result of a mutating request that
// repeats its Idempotency-Key. A duplicate that arrives while the first is
// still running gets 409. Store failures disable replay for that request only.
func IdempotencyMiddleware(store internalRedis.IdempotencyStoreInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		scoped := c.Request.Method + ":" + c.Request.URL.Path + ":" + key
		logger := log.WithFields(log.Fields{"key": key, "path": c.Request.URL.Path})

		stored, err := store.Load(ctx, scoped)
		if err != nil {
			logger.WithError(err).Warn("Idempotency lookup failed, proceeding without replay")
			c.Next()
			return
		}
		if stored != nil {
			replay(c, stored)
			return
		}

		reserved, err := store.Reserve(ctx, scoped, pendingTTL)
		if err != nil {
			logger.WithError(err).Warn("Idempotency reservation failed, proceeding without replay")
			c.Next()
			return
		}
		if !reserved {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is in progress"})
			return
		}

		w := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		// The request context may already be cancelled by now.
		saveCtx := context.WithoutCancel(ctx)
		status := c.Writer.Status()
		if !replayable(status, w.body.Len()) {
			if err := store.Release(saveCtx, scoped); err != nil {
				logger.WithError(err).Warn("Failed to release idempotency key")
			}
			return
		}

		resp := &internalRedis.StoredResponse{
			StatusCode: status,
			Body:       bytes.Clone(w.body.Bytes()),
			Headers:    replayHeaders(c),
		}
		if err := store.Save(saveCtx, scoped, resp, idempotencyTTL); err != nil {
			logger.WithError(err).Warn("Failed to store idempotent response")
		}
	}
}

// replayable reports whether a response may be served again. 5xx and 409 are
// retried instead, since a busy trip or vehicle may be free on the next attempt.
func replayable(status, bodyLen int) bool {
	return status >= 200 && status < 500 && status != http.StatusConflict && bodyLen > 0
}

func replay(c *gin.Context, stored *internalRedis.StoredResponse) {
	for k, v := range stored.Headers {
		for _, val := range v {
			c.Header(k, val)
		}
	}
	c.Header(replayHeader, "true")

	contentType := stored.Headers.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(stored.StatusCode, contentType, stored.Body)
	c.Abort()
}

// replayHeaders picks the response headers worth replaying.
func replayHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
