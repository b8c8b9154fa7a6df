package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/drug-interaction/backend/internal/api/handlers"
	"github.com/drug-interaction/backend/internal/metrics"
	"github.com/drug-interaction/backend/internal/middleware/ratelimit"
	"github.com/drug-interaction/backend/internal/middleware/security"
	"github.com/drug-interaction/backend/internal/middleware/validation"
	"github.com/drug-interaction/backend/pkg/config"
	"github.com/drug-interaction/backend/pkg/logger"
)

type Server struct {
	App     *fiber.App
	limiter *ratelimit.RateLimiter
}

// New builds the fiber app with middleware and routes. Request logging is
// left to the caller so tests stay quiet.
func New(cfg *config.Config, screener handlers.Screener, middleware ...fiber.Handler) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	for _, m := range middleware {
		app.Use(m)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Client-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: strings.Split(cfg.Server.AllowedOrigins, ","),
		IsDevelopment:  cfg.Server.Environment == "development",
	}))

	limits := validation.Config{
		MaxNames:      cfg.Validation.MaxNames,
		MaxNameLength: cfg.Validation.MaxNameLength,
		MaxTextLength: cfg.Validation.MaxTextLength,
		Logger:        logger.GetLogger(),
	}
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Logger:            logger.GetLogger(),
	})

	drugHandler := handlers.NewDrugHandler(screener)
	interactionHandler := handlers.NewInteractionHandler(screener)
	catalogHandler := handlers.NewCatalogHandler(screener)
	wsHandler := handlers.NewWebSocketHandler(screener, limits)

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")

	api.Get("/health", catalogHandler.Health)
	api.Get("/ready", catalogHandler.Ready)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(wsHandler.HandleConnection))

	api.Use(limiter.Middleware())
	api.Use(validation.Middleware(limits))

	api.Post("/drugs/resolve", drugHandler.Resolve)
	api.Get("/drugs/lookup", drugHandler.Lookup)

	api.Post("/interactions/check", interactionHandler.Check)
	api.Post("/interactions/scan", interactionHandler.Scan)
	api.Get("/interactions/history", interactionHandler.History)

	api.Post("/catalog/reload", catalogHandler.Reload)

	return &Server{App: app, limiter: limiter}
}

// RequestLogger is fiber's access log middleware.
func RequestLogger() fiber.Handler {
	return fiberlogger.New()
}

func (s *Server) Listen(addr string) error {
	return s.App.Listen(addr)
}

func (s *Server) Shutdown() error {
	s.limiter.Stop()
	return s.App.Shutdown()
}
