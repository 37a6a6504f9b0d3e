package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"influx_events/internal/service"
)

const errGenerate = "Failed to generate events"

// @Summary      Generate synthetic events
// @Description  Writes random events spread uniformly over [start_time, end_time]. Defaults: 10 events over the last 3 days.
// @Tags         events
// @Produce      json
// @Param        events_to_generate  query  int     false  "Number of events"  example(50)
// @Param        start_time          query  string  false  "Start of window"
// @Param        end_time            query  string  false  "End of window"
// @Success      200  {object}  map[string]interface{}  "message, count, total_milliseconds"
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/events/generate [post]
func (h *Handler) generateEvents(c *gin.Context) {
	started := time.Now()
	var p service.GenerateParams
	if s := c.Query("events_to_generate"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidCount.Error()})
			return
		}
		if n == 0 {
			h.respondTimed(c, started, gin.H{"message": msgEventsGenerated, "count": 0})
			return
		}
		p.Count = n
	}
	r, ok := h.parseRange(c)
	if !ok {
		return
	}
	p.Start, p.End = r.Start, r.End

	n, err := h.services.Generate(c.Request.Context(), p)
	if err != nil {
		h.respondStoreError(c, err, errGenerate, "events_generate_failed", "requested", p.Count, "written", n)
		return
	}
	h.respondTimed(c, started, gin.H{"message": msgEventsGenerated, "count": n})
}
