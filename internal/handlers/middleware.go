package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "requestId"
	ctxUserID       = "userId"
)

func (h *Handler) userIdMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != tokenTypeBearer {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	userId, err := h.services.ParseToken(parts[1])
	if err != nil {
		h.log.Infow("auth_token_rejected", "err", err, "request_id", c.GetString(ctxRequestID))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(ctxUserID, userId)
	c.Next()
}

// requestID propagates X-Request-ID or mints one.
func (h *Handler) requestID(c *gin.Context) {
	id := c.GetHeader(headerRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(ctxRequestID, id)
	c.Header(headerRequestID, id)
	c.Next()
}

func (h *Handler) accessLog(c *gin.Context) {
	started := time.Now()
	c.Next()
	h.log.Debugw("http_request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"took", time.Since(started),
		"request_id", c.GetString(ctxRequestID),
	)
}

// observe records Prometheus HTTP metrics keyed by route template.
func (h *Handler) observe(c *gin.Context) {
	started := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	h.opts.Metrics.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(started))
}
