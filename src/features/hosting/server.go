package hosting

import (
	"fmt"
	"log/slog"

	"github.com/contre95/pew/src/features/config"
	"github.com/contre95/pew/src/features/metrics"
	"github.com/contre95/pew/src/features/watching"
	"github.com/gofiber/fiber/v2"
)

// Server is the HTTP status server.
type Server struct {
	app    *fiber.App
	port   uint32
	logger *slog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, handler *watching.Handler, recorder *metrics.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
		AppName:               "pew",
		DisableStartupMessage: true,
	})

	app.Use(LogAllRequestsMiddleware(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	watching.RegisterRoutes(app, handler)
	config.RegisterRoutes(app, cfg)
	metrics.RegisterRoutes(app, recorder)

	return &Server{app: app, port: cfg.Get().Status.Port, logger: logger}
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("Status server listening", "port", s.port)
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
