package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "influx_events/docs"
	"influx_events/internal/logger"
	"influx_events/internal/metrics"
	"influx_events/internal/service"
)

// Options toggles the behaviours that differed between service revisions.
type Options struct {
	// Timing adds total_milliseconds to every /api/v1 response.
	Timing bool
	// ClearMethod is the HTTP verb of the clear endpoint (DELETE or POST).
	ClearMethod string
	// AuthEnabled serves /auth and puts /api/v1 behind bearer tokens.
	AuthEnabled bool
	Metrics     *metrics.Metrics
}

// DefaultOptions matches the shipped configuration.
func DefaultOptions() Options {
	return Options{Timing: true, ClearMethod: http.MethodDelete}
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	opts     Options
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts Options) *Handler {
	registerValidators()
	if log == nil {
		log = logger.NewNop()
	}
	opts.ClearMethod = strings.ToUpper(opts.ClearMethod)
	if opts.ClearMethod == "" {
		opts.ClearMethod = http.MethodDelete
	}
	return &Handler{services: services, log: log, opts: opts}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestID, h.accessLog)
	if h.opts.Metrics != nil {
		router.Use(h.observe)
		router.GET("/metrics", gin.WrapH(h.opts.Metrics.Handler()))
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	if h.opts.AuthEnabled {
		h.registerAuthRoutes(router)
	}
	h.registerAPIRoutes(router)

	router.GET("/ws/events", h.wsEvents)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	if h.opts.AuthEnabled {
		api.Use(h.userIdMiddleware)
	}
	{
		api.POST("/event", h.createEvent)
		api.PUT("/event/severity", h.updateSeverity)
		api.POST("/events", h.createEvents)
		api.GET("/events", h.getEvents)
		api.Handle(h.opts.ClearMethod, "/events/clear", h.clearEvents)
		api.POST("/events/generate", h.generateEvents)
	}
}

// @Summary      Health check
// @Description  Pings the event store.
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	if err := h.services.Ping(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusServiceUnavailable, errStoreUnavailable, "health_ping_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
