package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyKeyHeader carries the client-chosen key of a retryable request
	IdempotencyKeyHeader = "Idempotency-Key"

	// IdempotentReplayHeader marks a response served from the idempotency store
	IdempotentReplayHeader = "Idempotent-Replayed"

	idempotencyKeyPrefix = "idempotency:"
	redisOpTimeout       = 2 * time.Second
)

type idempotencyState string

const (
	stateInProgress idempotencyState = "in_progress"
	stateCompleted  idempotencyState = "completed"
)

// idempotencyRecord is the value stored under a key
type idempotencyRecord struct {
	State       idempotencyState `json:"state"`
	Fingerprint string           `json:"fingerprint"`
	Status      int              `json:"status,omitempty"`
	ContentType string           `json:"content_type,omitempty"`
	Body        []byte           `json:"body,omitempty"`
}

// responseRecorder tees the response body so it can be stored for replay
type responseRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a mutating request retried with
// the same Idempotency-Key. A key reused with a different request, or while
// the first attempt is still running, is answered with 409. Server errors and
// panics are not stored so the client may retry them. Redis failures let the
// request through unprotected.
func Idempotency(logger *slog.Logger, rdb redis.Cmdable, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		log := logger.With("idempotency_key", key)
		if correlationID := GetCorrelationID(c); correlationID != "" {
			log = log.With("correlation_id", correlationID)
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "BAD_REQUEST", "Unable to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		redisKey := idempotencyKeyPrefix + key
		fp := fingerprint(c.Request.Method, c.Request.URL.Path, body)

		pending, _ := json.Marshal(idempotencyRecord{State: stateInProgress, Fingerprint: fp})

		ctx, cancel := context.WithTimeout(c.Request.Context(), redisOpTimeout)
		acquired, err := rdb.SetNX(ctx, redisKey, pending, ttl).Result()
		cancel()
		if err != nil {
			log.Error("Idempotency store unavailable, processing without replay protection", "error", err)
			c.Next()
			return
		}

		if !acquired {
			replayStored(c, log, rdb, redisKey, fp)
			return
		}

		recorder := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		// A panicking handler never finished, so free the key for a retry.
		defer func() {
			if r := recover(); r != nil {
				releaseKey(log, rdb, redisKey)
				panic(r)
			}
		}()

		c.Next()

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			releaseKey(log, rdb, redisKey)
			return
		}

		ctx, cancel = context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()

		done, _ := json.Marshal(idempotencyRecord{
			State:       stateCompleted,
			Fingerprint: fp,
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if err := rdb.Set(ctx, redisKey, done, ttl).Err(); err != nil {
			log.Error("Failed to store idempotent response", "error", err)
		}
	}
}

func releaseKey(log *slog.Logger, rdb redis.Cmdable, redisKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := rdb.Del(ctx, redisKey).Err(); err != nil {
		log.Error("Failed to release idempotency key", "error", err)
	}
}

func replayStored(c *gin.Context, log *slog.Logger, rdb redis.Cmdable, redisKey, fp string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), redisOpTimeout)
	defer cancel()

	raw, err := rdb.Get(ctx, redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			abortWithError(c, http.StatusConflict, "CONFLICT", "A request with this Idempotency-Key is still being processed")
			return
		}
		log.Error("Failed to read idempotency record", "error", err)
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		log.Error("Corrupt idempotency record", "error", err)
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
		return
	}

	if record.Fingerprint != fp {
		log.Warn("Idempotency-Key reused with a different request")
		abortWithError(c, http.StatusConflict, "CONFLICT", "Idempotency-Key was already used for a different request")
		return
	}
	if record.State != stateCompleted {
		abortWithError(c, http.StatusConflict, "CONFLICT", "A request with this Idempotency-Key is still being processed")
		return
	}

	log.Info("Replaying stored response", "status", record.Status)
	c.Header(IdempotentReplayHeader, "true")
	if record.Status == http.StatusNoContent {
		c.AbortWithStatus(record.Status)
		return
	}
	c.Data(record.Status, record.ContentType, record.Body)
	c.Abort()
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// fingerprint identifies a request by method, path and body
func fingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
