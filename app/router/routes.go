// Package router provides HTTP routing, middleware configuration, and server setup for the operational API
package router

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/app/dto"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/app/handlers"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/app/middleware"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/config"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app             *fiber.App
	pipelineHandler handlers.PipelineHandlerInterface
	cfg             *config.ProductionConfig
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(pipelineHandler handlers.PipelineHandlerInterface, cfg *config.ProductionConfig) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Basin Climbing Data Pipeline",
		ServerHeader: "basin-pipeline",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:             app,
		pipelineHandler: pipelineHandler,
		cfg:             cfg,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	// Health check route
	api.Get("/health", r.healthCheck)

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.PrometheusPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	pipeline := api.Group("/pipeline")
	pipeline.Post("/import", r.pipelineHandler.ImportContacts)
	pipeline.Post("/resolve", r.pipelineHandler.ResolveContacts)
	pipeline.Post("/run", r.pipelineHandler.RunEvaluation)
	pipeline.Get("/flags-report", r.pipelineHandler.DownloadFlagsReport)

	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	r.app.Use(logger.New(logger.Config{
		Format:     "${time} ${locals:requestid} ${method} ${path} ${status} ${latency}\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelDefault,
	}))

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	return r.app.Listen(address)
}

// GetApp returns the underlying Fiber application
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"service":   "basin-climbing-data-pipeline",
		},
	})
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "Endpoint not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
		},
	})
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "Request failed",
		Error: dto.ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Details: err.Error(),
		},
	})
}
