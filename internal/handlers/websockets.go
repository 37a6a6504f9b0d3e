package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"influx_events/internal/models"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Live event feed
// @Description  WebSocket stream of newly written events, optionally narrowed by the same tag filters as the query endpoint.
// @Tags         events
// @Param        severity     query  string  false  "Severity"
// @Param        event_type   query  string  false  "Event type"
// @Param        source_name  query  string  false  "Source name"
// @Param        country      query  string  false  "Source country"
// @Param        city         query  string  false  "Source city"
// @Router       /ws/events [get]
func (h *Handler) wsEvents(c *gin.Context) {
	filter := models.EventFilter{
		Severity:        c.Query("severity"),
		EventType:       c.Query("event_type"),
		SourceName:      c.Query("source_name"),
		LocationCountry: c.Query("country"),
		LocationCity:    c.Query("city"),
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	sub := h.services.Subscribe()
	defer h.services.Unsubscribe(sub)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := h.send(conn, wsEnvelope{Type: "subscribed", Data: filter.Tags()}); err != nil {
		h.log.Infow("ws_write_failed_initial", "err", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if !filter.Matches(e) {
				continue
			}
			if err := h.send(conn, wsEnvelope{Type: "event", Data: e}); err != nil {
				h.log.Infow("ws_write_failed", "err", err)
				return
			}
		}
	}
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debugw("ws_read_closed", "err", err)
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, msg wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
