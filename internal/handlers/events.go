package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"influx_events/internal/models"
	"influx_events/internal/service"
)

const (
	errStartInvalid   = "invalid 'start_time'; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errEndInvalid     = "invalid 'end_time'; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errRangeRequired  = "'start_time' and 'end_time' are required"
	errWriteEvent     = "Failed to write event to database"
	errWriteEvents    = "Failed to write events to database"
	errQueryEvents    = "Failed to query events"
	errClearEvents    = "Error clearing events"
	errUpdateSeverity = "Failed to update severity"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	// An unencoded "+02:00" offset arrives as " 02:00" after query decoding.
	if fixed, ok := restorePlusOffset(s); ok {
		if t, err := time.Parse(time.RFC3339Nano, fixed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-01-15T10:00:00Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}

func restorePlusOffset(s string) (string, bool) {
	n := len(s)
	if n < len("2006-01-02T15:04:05 07:00") || s[n-6] != ' ' || s[n-3] != ':' || !strings.Contains(s, "T") {
		return "", false
	}
	return s[:n-6] + "+" + s[n-5:], true
}

// parseRange reads optional start_time/end_time. A date-only end_time covers
// the whole day. Returns false when a 400 was already written.
func (h *Handler) parseRange(c *gin.Context) (service.TimeRange, bool) {
	var (
		r   service.TimeRange
		err error
	)
	if qs := c.Query("start_time"); qs != "" {
		if r.Start, err = parseQueryTime(qs); err != nil {
			h.logAndJSONError(c, http.StatusBadRequest, errStartInvalid, "events_bad_start_time", err)
			return r, false
		}
	}
	if qs := c.Query("end_time"); qs != "" {
		if r.End, err = parseQueryTime(qs); err != nil {
			h.logAndJSONError(c, http.StatusBadRequest, errEndInvalid, "events_bad_end_time", err)
			return r, false
		}
		if isDateOnly(qs) {
			r.End = r.End.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return r, true
}

// @Summary      Create event
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        event  body      models.Event  true  "Event"
// @Success      200    {object}  map[string]interface{}  "message, total_milliseconds"
// @Failure      400    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Failure      503    {object}  map[string]string
// @Router       /api/v1/event [post]
func (h *Handler) createEvent(c *gin.Context) {
	started := time.Now()
	var e models.Event
	if ok := h.bindJSONOrBadRequest(c, &e); !ok {
		return
	}
	if err := h.services.Create(c.Request.Context(), e); err != nil {
		h.respondStoreError(c, err, errWriteEvent, "event_write_failed", "timestamp", e.Timestamp)
		return
	}
	h.respondTimed(c, started, gin.H{"message": msgEventCreated})
}

// @Summary      Create events in one batch
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        events  body      []models.Event  true  "Events"
// @Success      200     {object}  map[string]interface{}  "message, count, total_milliseconds"
// @Failure      400     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Failure      503     {object}  map[string]string
// @Router       /api/v1/events [post]
func (h *Handler) createEvents(c *gin.Context) {
	started := time.Now()
	var events []models.Event
	if ok := h.bindJSONOrBadRequest(c, &events); !ok {
		return
	}
	if err := h.services.CreateBatch(c.Request.Context(), events); err != nil {
		h.respondStoreError(c, err, errWriteEvents, "events_write_batch_failed", "count", len(events))
		return
	}
	h.respondTimed(c, started, gin.H{"message": msgEventsCreated, "count": len(events)})
}

// @Summary      Query events
// @Description  Events in [start_time, end_time] matching every given tag. Oldest first.
// @Tags         events
// @Produce      json
// @Param        start_time   query  string  true   "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-01-01T00:00:00Z)
// @Param        end_time     query  string  true   "End of range, inclusive. Date-only is treated as end of day."  example(2025-01-18)
// @Param        severity     query  string  false  "Severity"  Enums(INFO,WARNING,ERROR,CRITICAL)
// @Param        event_type   query  string  false  "Event type"  Enums(SYSTEM_STATUS,SECURITY_ALERT,PERFORMANCE,USER_ACTION)
// @Param        source_name  query  string  false  "Source name"
// @Param        country      query  string  false  "Source country"
// @Param        city         query  string  false  "Source city"
// @Success      200  {object}  map[string]interface{}  "events, total_milliseconds"
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/events [get]
func (h *Handler) getEvents(c *gin.Context) {
	started := time.Now()
	r, ok := h.parseRange(c)
	if !ok {
		return
	}
	if r.Start.IsZero() || r.End.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": errRangeRequired})
		return
	}

	f := models.EventFilter{
		Severity:        c.Query("severity"),
		EventType:       c.Query("event_type"),
		SourceName:      c.Query("source_name"),
		LocationCountry: c.Query("country"),
		LocationCity:    c.Query("city"),
	}
	for _, v := range f.Tags() {
		if !validTagValue(v) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid filter value %q", v)})
			return
		}
	}

	events, err := h.services.Query(c.Request.Context(), r.Start, r.End, f)
	if err != nil {
		h.respondStoreError(c, err, errQueryEvents, "events_query_failed", "start", r.Start, "end", r.End)
		return
	}
	h.respondTimed(c, started, gin.H{"events": events, "count": len(events)})
}

// @Summary      Clear events
// @Description  Deletes every event in [start_time, end_time]. Missing bounds default to 1080 days back and 1 day ahead. The verb is configurable (DELETE by default).
// @Tags         events
// @Produce      json
// @Param        start_time  query  string  false  "Start of range"
// @Param        end_time    query  string  false  "End of range, inclusive"
// @Success      200  {object}  map[string]interface{}  "message, start_time, end_time, total_milliseconds"
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/events/clear [delete]
func (h *Handler) clearEvents(c *gin.Context) {
	started := time.Now()
	r, ok := h.parseRange(c)
	if !ok {
		return
	}
	applied, err := h.services.Clear(c.Request.Context(), r)
	if err != nil {
		code, msg := storeError(err, errClearEvents)
		if code == http.StatusInternalServerError {
			msg = fmt.Sprintf("%s: %v", errClearEvents, err)
		}
		h.logAndJSONError(c, code, msg, "events_clear_failed", err, "start", applied.Start, "end", applied.End)
		return
	}
	h.respondTimed(c, started, gin.H{
		"message":    msgEventsCleared,
		"start_time": applied.Start,
		"end_time":   applied.End,
	})
}

// @Summary      Update event severity
// @Description  Moves the first event in [timestamp, timestamp+1s) with the given old severity, type and source to the new severity.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        update  body      models.SeverityUpdate  true  "Identity and new severity"
// @Success      200     {object}  map[string]interface{}  "message, total_milliseconds"
// @Failure      400     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Failure      503     {object}  map[string]string
// @Router       /api/v1/event/severity [put]
func (h *Handler) updateSeverity(c *gin.Context) {
	started := time.Now()
	var u models.SeverityUpdate
	if ok := h.bindJSONOrBadRequest(c, &u); !ok {
		return
	}
	if err := h.services.UpdateSeverity(c.Request.Context(), u); err != nil {
		h.respondStoreError(c, err, errUpdateSeverity, "event_update_severity_failed",
			"timestamp", u.Timestamp, "source_name", u.SourceName)
		return
	}
	h.respondTimed(c, started, gin.H{"message": msgSeverityUpdated})
}
