// Package web serves face detection over HTTP and WebSocket.
package web

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/teslashibe/go-yoloface/pkg/detection"
	"github.com/teslashibe/go-yoloface/pkg/hub"
	"github.com/teslashibe/go-yoloface/pkg/render"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds web service configuration.
type Config struct {
	Port      string
	MinScore  float64 // Default filter when the request sets none
	BodyLimit int     // Maximum upload size in bytes
	RateLimit float64 // Detect requests per second per client IP; 0 disables
	RateBurst int
	Render    render.Options
	Logger    *slog.Logger
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Port:      "8080",
		BodyLimit: 20 * 1024 * 1024,
		RateLimit: 10,
		RateBurst: 20,
		Render:    render.DefaultOptions(),
	}
}

// HealthChecker is implemented by detectors that depend on a remote service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server is the detection web service.
type Server struct {
	app      *fiber.App
	detector detection.Detector
	events   *hub.Hub
	config   Config
	logger   *slog.Logger
}

// NewServer wires routes around det. The caller keeps ownership of det.
func NewServer(det detection.Detector, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "web")

	s := &Server{
		detector: det,
		events:   hub.New("events", logger),
		config:   cfg,
		logger:   logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-yoloface",
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(requestID())
	app.Use(accessLog(logger))
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	if cfg.RateLimit > 0 {
		api.Use(rateLimit(newIPLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst), logger))
	}
	api.Post("/detect", s.handleDetect)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/detect", websocket.New(s.handleDetectWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Events returns the hub that receives one event per completed detection.
func (s *Server) Events() *hub.Hub {
	return s.events
}

// Start runs the event hub and listens on the configured port until ctx is
// done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	go s.events.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ":"+s.config.Port)
		errc <- s.app.Listen(":" + s.config.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			return err
		}
		return nil
	}
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(errorResponse{Error: err.Error(), RequestID: RequestID(c)})
}
