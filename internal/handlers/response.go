package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"influx_events/internal/repository"
	"influx_events/internal/service"
)

// Response messages.
const (
	statusOK = "ok"

	msgEventCreated     = "Event logged successfully"
	msgEventsCreated    = "Events logged successfully"
	msgEventsCleared    = "Events cleared successfully"
	msgSeverityUpdated  = "Event severity updated successfully"
	msgEventsGenerated  = "Events generated successfully"
	errEventNotFound    = "Event not found or failed to update severity"
	errStoreUnavailable = "event store unavailable"
	errInvalidBodyPref  = "invalid body: "

	fieldTotalMillis = "total_milliseconds"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err, "request_id", c.GetString(ctxRequestID)}, kv...)
		if httpCode >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// storeError maps a service error to a status and a message safe to return.
func storeError(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, errEventNotFound
	case errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrSeverityUnchanged),
		errors.Is(err, service.ErrInvalidCount):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrConnection),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errStoreUnavailable
	default:
		return http.StatusInternalServerError, fallback
	}
}

func (h *Handler) respondStoreError(c *gin.Context, err error, fallback, logKey string, kv ...interface{}) {
	code, msg := storeError(err, fallback)
	h.logAndJSONError(c, code, msg, logKey, err, kv...)
}

// respondTimed writes body with the elapsed handler time when timing is on.
func (h *Handler) respondTimed(c *gin.Context, started time.Time, body gin.H) {
	if h.opts.Timing {
		body[fieldTotalMillis] = float64(time.Since(started).Microseconds()) / 1000
	}
	c.JSON(http.StatusOK, body)
}
