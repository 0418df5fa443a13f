package handlers

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/pissten/SMARTi-EMS/internal/docs" // swagger docs
	"github.com/pissten/SMARTi-EMS/internal/logger"
	"github.com/pissten/SMARTi-EMS/internal/service"
)

// Options toggle optional parts of the HTTP surface.
type Options struct {
	// AuthEnabled guards /api/v1 with bearer JWTs and exposes /auth.
	AuthEnabled bool
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// StatusInterval is the default /ws push period.
	StatusInterval time.Duration
	// Background is the parent context of cycles started with ?async=true.
	// Cancelling it stops them at their next pacing wait.
	Background context.Context
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	opts     Options
	jobs     sync.WaitGroup
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts Options) *Handler {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = defaultInterval
	}
	if opts.Background == nil {
		opts.Background = context.Background()
	}
	return &Handler{services: services, log: log, opts: opts}
}

// Wait blocks until every cycle started with ?async=true has returned.
func (h *Handler) Wait() {
	h.jobs.Wait()
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(template.Must(template.New(indexTemplate).Parse(indexHTML)))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	router.GET("/", h.index)
	if h.opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.opts.Metrics))
	}

	if h.opts.AuthEnabled {
		h.registerAuthRoutes(router)
	}
	h.registerAPIRoutes(router)

	if h.opts.AuthEnabled {
		router.GET("/ws", h.wsTokenFromQuery, h.operatorIDMiddleware, h.wsConnect)
	} else {
		router.GET("/ws", h.wsConnect)
	}

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
		api.Use(h.operatorIDMiddleware)
	}
	{
		h.registerBudgetRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerBudgetRoutes(api *gin.RouterGroup) {
	api.GET("/status", h.getStatus)
	api.GET("/config", h.getConfig)
	// Body example: {"energy_target_kw":7.5,"category1":["climate.living","switch.boiler"]}
	api.POST("/config", h.updateConfig)
	api.POST("/step", h.step)
	api.GET("/entities", h.listEntities)
	api.GET("/power-sources", h.powerSources)
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
