package api

import (
	"errors"
	"os"
	"path/filepath"

	"kbchat/docs"
	"kbchat/internal/api/handlers"
	"kbchat/pkg/config"
	"kbchat/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Chat      *handlers.ChatHandler
	Knowledge *handlers.KnowledgeHandler
	Health    *handlers.HealthHandler
}

func SetupRouter(h Handlers, cfg *config.Config, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "kbchat",
		BodyLimit:    cfg.Ingest.MaxUploadBytes,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			message := "Internal server error"
			if code < fiber.StatusInternalServerError {
				message = err.Error()
			}
			return c.Status(code).JSON(fiber.Map{
				"error": message,
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + middleware.RequestIDHeader,
	}))
	app.Use(logger.New())
	app.Use(middleware.RequestLogger(appLogger))

	docs.SwaggerInfo.Host = ""
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", h.Health.Health)

	api := app.Group("/api")
	api.Post("/chat", h.Chat.Chat)

	admin := api.Group("/admin")
	admin.Post("/upload", h.Knowledge.Upload)
	admin.Get("/knowledge", h.Knowledge.List)

	if staticPath := findWebStaticPath(cfg.Server.StaticDir, appLogger); staticPath != "" {
		appLogger.Info("Serving web interface", zap.String("path", staticPath))
		app.Static("/", staticPath)
	} else {
		appLogger.Warn("Web static directory not found, web interface will not be served")
	}

	return app
}

// findWebStaticPath returns the configured directory, or the first of the
// usual web/static locations holding an index.html.
func findWebStaticPath(configured string, logger *zap.Logger) string {
	paths := []string{
		"./web/static",
		"../web/static",
		"../../web/static",
	}
	if configured != "" {
		paths = []string{configured}
	}

	for _, path := range paths {
		if fileExists(filepath.Join(path, "index.html")) {
			return path
		}
		logger.Debug("Static path not usable", zap.String("path", path))
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
