package bootstrap

import (
	"strings"

	"itk_server/adapter/in/http"
	"itk_server/config"
	"itk_server/infra/middleware"
	"itk_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewAPI builds the fiber app with the full middleware stack and routes.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "itk-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		// Inbound webhook payloads carry full HTML email bodies.
		BodyLimit: 2 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
		} else {
			allowOrigins = "http://localhost:3000"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID,X-Cron-Secret",
	}))

	http.NewHealthHandler(deps.DB, deps.Redis).Register(app)

	pipelineHandler := http.NewPipelineHandler(
		deps.Pipeline,
		deps.HobbyService,
		deps.EventsService,
		deps.VenuesService,
		deps.Composer,
		deps.Dispatcher,
	)
	pipelineGroup := app.Group("/api/pipeline",
		middleware.RateLimit(deps.WebhookLimiter, "pipeline"),
		middleware.CronAuth(cfg.CronSecret),
	)
	pipelineHandler.Register(pipelineGroup)

	webhookHandler := http.NewWebhookHandler(deps.ReplyService, cfg.InboundWebhookSecret)
	webhookGroup := app.Group("/api/email",
		middleware.RateLimit(deps.WebhookLimiter, "inbound-reply"),
		middleware.MaxBodySize(1024*1024),
	)
	webhookHandler.Register(webhookGroup)

	return app, cleanup, nil
}
