package server

import (
	"condense/internal/document"
	"condense/internal/domain"
	"condense/internal/service"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var errBadRequest = errors.New("bad request")

type createSummaryRequest struct {
	Text  string `json:"text"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type summaryResponse struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Origin       string    `json:"origin,omitempty"`
	Title        string    `json:"title,omitempty"`
	InputChars   int       `json:"inputChars"`
	ChunkCount   int       `json:"chunkCount"`
	ReduceRounds int       `json:"reduceRounds"`
	Summary      string    `json:"summary"`
	DurationMs   int64     `json:"durationMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

type listSummariesResponse struct {
	Summaries []summaryResponse `json:"summaries"`
}

func newSummaryResponse(s *domain.Summary) summaryResponse {
	return summaryResponse{
		ID:           s.ID,
		Source:       string(s.Source),
		Origin:       s.Origin,
		Title:        s.Title,
		InputChars:   s.InputChars,
		ChunkCount:   s.ChunkCount,
		ReduceRounds: s.ReduceRounds,
		Summary:      s.Text,
		DurationMs:   s.Duration.Milliseconds(),
		CreatedAt:    s.CreatedAt,
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func (s *Server) readiness(c *fiber.Ctx) error {
	if s.ready == nil {
		return c.SendString("ok")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
	defer cancel()

	if err := s.ready.Ping(ctx); err != nil {
		s.log.WarnContext(ctx, "Backend is not ready",
			"error", err)

		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}

	return c.SendString("ok")
}

func (s *Server) createSummary(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var (
		summary *domain.Summary
		err     error
	)

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		summary, err = s.summarizeForm(c)
	} else {
		var req createSummaryRequest
		if parseErr := c.BodyParser(&req); parseErr != nil {
			return s.writeError(c, errors.Join(errBadRequest, parseErr))
		}

		req.URL = strings.TrimSpace(req.URL)

		switch {
		case req.URL != "" && strings.TrimSpace(req.Text) != "":
			return s.writeError(c, errors.Join(errBadRequest, errors.New("text and url are mutually exclusive")))
		case req.URL != "":
			url, ok := document.SoleURL(req.URL)
			if !ok {
				return s.writeError(c, errors.Join(errBadRequest, errors.New("url must be a single http(s) URL")))
			}
			summary, err = s.svc.SummarizeURL(ctx, url)
		default:
			summary, err = s.svc.SummarizeText(ctx, domain.Document{
				Title:  req.Title,
				Source: domain.SourceText,
				Text:   req.Text,
			})
		}
	}

	if err != nil {
		return s.writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(newSummaryResponse(summary))
}

func (s *Server) summarizeForm(c *fiber.Ctx) (*domain.Summary, error) {
	ctx := c.UserContext()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return s.svc.SummarizeText(ctx, domain.Document{
			Title:  c.FormValue("title"),
			Source: domain.SourceText,
			Text:   c.FormValue("text"),
		})
	}

	if s.maxDocumentBytes > 0 && fileHeader.Size > s.maxDocumentBytes {
		return nil, document.ErrTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, errors.Join(errBadRequest, err)
	}
	defer func() {
		if err = file.Close(); err != nil {
			s.log.ErrorContext(ctx, "Failed to close uploaded file",
				"error", err,
				"filename", fileHeader.Filename)
		}
	}()

	data, err := document.ReadLimited(file, s.maxDocumentBytes)
	if err != nil {
		return nil, err
	}

	return s.svc.SummarizeFile(ctx, fileHeader.Filename, data)
}

func (s *Server) listSummaries(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", service.DefaultRecentLimit)
	if limit <= 0 {
		return s.writeError(c, errors.Join(errBadRequest, errors.New("limit must be positive")))
	}

	summaries, err := s.svc.RecentSummaries(c.UserContext(), limit)
	if err != nil {
		return s.writeError(c, err)
	}

	resp := listSummariesResponse{Summaries: make([]summaryResponse, 0, len(summaries))}
	for i := range summaries {
		resp.Summaries = append(resp.Summaries, newSummaryResponse(&summaries[i]))
	}

	return c.JSON(resp)
}

func (s *Server) getSummary(c *fiber.Ctx) error {
	summary, err := s.svc.Summary(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(newSummaryResponse(summary))
}

func (s *Server) writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)

	if status >= fiber.StatusInternalServerError {
		s.log.ErrorContext(c.UserContext(), "Failed to handle request",
			"error", err,
			"method", c.Method(),
			"path", c.Path(),
			"status", status)
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, document.ErrDecode):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, document.ErrUnsupported):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, document.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrBackend), errors.Is(err, document.ErrFetch):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
