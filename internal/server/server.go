// Package server exposes the summarization service over HTTP.
package server

import (
	"condense/internal/domain"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const (
	readyTimeout    = 5 * time.Second
	minBodyLimit    = 4 << 20
	multipartMemory = 1 << 20
)

type Service interface {
	SummarizeText(ctx context.Context, doc domain.Document) (*domain.Summary, error)
	SummarizeFile(ctx context.Context, name string, data []byte) (*domain.Summary, error)
	SummarizeURL(ctx context.Context, url string) (*domain.Summary, error)
	Summary(ctx context.Context, id string) (*domain.Summary, error)
	RecentSummaries(ctx context.Context, limit int) ([]domain.Summary, error)
}

// Pinger reports whether the summarization backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	// MaxDocumentBytes bounds uploads and pasted text.
	MaxDocumentBytes int64
	// Ready is optional; without it /ready always succeeds.
	Ready Pinger
	// Metrics is optional; without it /metrics is not registered.
	Metrics http.Handler
}

type Server struct {
	app              *fiber.App
	svc              Service
	ready            Pinger
	maxDocumentBytes int64
	log              *slog.Logger
}

func New(svc Service, cfg Config, log *slog.Logger) *Server {
	s := &Server{
		svc:              svc,
		ready:            cfg.Ready,
		maxDocumentBytes: cfg.MaxDocumentBytes,
		log:              log,
	}

	// The body limit leaves room for multipart framing and JSON escaping
	// around a document of the maximum size.
	bodyLimit := max(int(2*cfg.MaxDocumentBytes), minBodyLimit)

	s.app = fiber.New(fiber.Config{
		AppName:               "condense",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleFiberError,
	})

	s.app.Use(recover.New())
	s.app.Use(s.logRequests)

	s.app.Get("/health", s.health)
	s.app.Get("/ready", s.readiness)

	if cfg.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	api := s.app.Group("/api")
	api.Post("/summaries", s.createSummary)
	api.Get("/summaries", s.listSummaries)
	api.Get("/summaries/:id", s.getSummary)

	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("HTTP server is listening", "addr", addr)

	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()

	err := c.Next()

	status := c.Response().StatusCode()
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
	}

	level := slog.LevelInfo
	if status >= fiber.StatusInternalServerError {
		level = slog.LevelError
	}

	s.log.Log(c.UserContext(), level, "HTTP request is handled",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"durationMs", time.Since(start).Milliseconds())

	return err
}

func (s *Server) handleFiberError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
