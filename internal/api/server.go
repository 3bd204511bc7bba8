package api

import (
	"log/slog"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/javi11/trackmount/internal/config"
	"github.com/javi11/trackmount/internal/registry"
	"github.com/javi11/trackmount/internal/session"
)

// Server exposes track open/read/seek/close and session inspection over HTTP.
type Server struct {
	app          *fiber.App
	log          *slog.Logger
	configGetter config.ConfigGetter
	registry     *registry.Registry
	runner       *session.Runner
	tracker      *session.Tracker
	gatherer     prometheus.Gatherer
	ready        atomic.Bool
}

// ServerOptions bundles the dependencies the server routes against.
type ServerOptions struct {
	ConfigGetter config.ConfigGetter
	Registry     *registry.Registry
	Runner       *session.Runner
	Tracker      *session.Tracker
	Gatherer     prometheus.Gatherer
}

// NewServer builds the fiber app and registers all routes.
func NewServer(opts ServerOptions) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				return RespondInternalError(c, "Unhandled error", err.Error())
			},
		}),
		log:          slog.Default().With("component", "api"),
		configGetter: opts.ConfigGetter,
		registry:     opts.Registry,
		runner:       opts.Runner,
		tracker:      opts.Tracker,
		gatherer:     opts.Gatherer,
	}

	s.setupRoutes()
	return s
}

// SetReady marks the server as ready to serve track requests.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether dependencies finished initializing.
func (s *Server) IsReady() bool {
	return s.ready.Load()
}

// App returns the underlying fiber app, used by tests and the listener.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("Starting API server", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())

	if s.gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(
			promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)

	api.Use(func(c *fiber.Ctx) error {
		if !s.IsReady() {
			return RespondServiceUnavailable(c, "Service is initializing", "Please wait")
		}
		return c.Next()
	})

	api.Post("/track/open", s.handleOpenTrack)
	api.Get("/track/read", s.handleReadTrack)
	api.Post("/track/seek", s.handleSeekTrack)
	api.Post("/track/close", s.handleCloseTrack)

	api.Get("/streams", s.handleListStreams)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := "starting"
	if s.IsReady() {
		status = "ok"
	}
	return RespondSuccess(c, fiber.Map{
		"status":      status,
		"open_tracks": s.registry.OpenCount(),
	})
}
