// Package service is the entry point shared by the HTTP API and the
// Telegram bot: it turns input into documents, runs the summarization
// pipeline and keeps the history.
package service

import (
	"condense/internal/database"
	"condense/internal/document"
	"condense/internal/domain"
	"condense/internal/metrics"
	"condense/internal/orchestrator"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

var (
	ErrBackend  = errors.New("summarization backend failed")
	ErrNotFound = database.ErrNotFound
)

type Pipeline interface {
	Summarize(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (domain.Document, error)
}

type Store interface {
	InsertSummary(ctx context.Context, s domain.Summary) error
	GetSummary(ctx context.Context, id string) (domain.Summary, error)
	ListSummaries(ctx context.Context, limit int) ([]domain.Summary, error)
}

type Service struct {
	pipeline         Pipeline
	fetcher          Fetcher
	store            Store
	metrics          *metrics.Metrics
	maxDocumentBytes int64
	now              func() time.Time
	log              *slog.Logger
}

// New builds a service. store and m may be nil to disable history and
// metrics respectively.
func New(
	pipeline Pipeline,
	fetcher Fetcher,
	store Store,
	m *metrics.Metrics,
	maxDocumentBytes int64,
	log *slog.Logger,
) *Service {
	return &Service{
		pipeline:         pipeline,
		fetcher:          fetcher,
		store:            store,
		metrics:          m,
		maxDocumentBytes: maxDocumentBytes,
		now:              time.Now,
		log:              log,
	}
}

// HistoryEnabled reports whether summaries are persisted.
func (s *Service) HistoryEnabled() bool {
	return s.store != nil
}

func (s *Service) SummarizeText(ctx context.Context, doc domain.Document) (*domain.Summary, error) {
	if doc.Source == "" {
		doc.Source = domain.SourceText
	}

	return s.run(ctx, doc.Source, func() (domain.Document, error) {
		if s.maxDocumentBytes > 0 && int64(len(doc.Text)) > s.maxDocumentBytes {
			return domain.Document{}, fmt.Errorf("%w: %d bytes", document.ErrTooLarge, len(doc.Text))
		}
		if !utf8.ValidString(doc.Text) {
			return domain.Document{}, fmt.Errorf("%w: text is not valid UTF-8", document.ErrDecode)
		}

		return doc, nil
	})
}

func (s *Service) SummarizeFile(ctx context.Context, name string, data []byte) (*domain.Summary, error) {
	return s.run(ctx, domain.SourceFile, func() (domain.Document, error) {
		if s.maxDocumentBytes > 0 && int64(len(data)) > s.maxDocumentBytes {
			return domain.Document{}, fmt.Errorf("%w: %d bytes", document.ErrTooLarge, len(data))
		}

		kind, err := document.KindFromFilename(name)
		if err != nil {
			return domain.Document{}, err
		}

		doc, err := document.Extract(kind, data)
		if err != nil {
			return domain.Document{}, fmt.Errorf("extract %s: %w", kind, err)
		}

		doc.Source = domain.SourceFile
		doc.Origin = name
		if doc.Title == "" {
			doc.Title = name
		}

		return doc, nil
	})
}

func (s *Service) SummarizeURL(ctx context.Context, url string) (*domain.Summary, error) {
	return s.run(ctx, domain.SourceURL, func() (domain.Document, error) {
		doc, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			return domain.Document{}, fmt.Errorf("fetch document: %w", err)
		}

		return doc, nil
	})
}

func (s *Service) run(
	ctx context.Context,
	source domain.Source,
	load func() (domain.Document, error),
) (summary *domain.Summary, err error) {
	start := s.now()

	if s.metrics != nil {
		done := s.metrics.TrackRequest()
		defer func() {
			done()
			s.metrics.ObserveRequest(string(source), err, s.now().Sub(start))
		}()
	}

	doc, err := load()
	if err != nil {
		return nil, err
	}

	result, err := s.pipeline.Summarize(ctx, orchestrator.Request{
		Text:   doc.Text,
		Source: doc.Origin,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to summarize document",
			"error", err,
			"source", doc.Source,
			"origin", doc.Origin,
			"inputChars", utf8.RuneCountInString(doc.Text))

		if errors.Is(err, context.Canceled) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	if s.metrics != nil {
		s.metrics.ObserveChunks(len(result.Chunks))
	}

	now := s.now()
	summary = &domain.Summary{
		ID:           uuid.NewString(),
		Source:       doc.Source,
		Origin:       doc.Origin,
		Title:        strings.TrimSpace(doc.Title),
		InputChars:   utf8.RuneCountInString(doc.Text),
		ChunkCount:   len(result.Chunks),
		ReduceRounds: result.ReduceRounds,
		Text:         result.Summary,
		Duration:     now.Sub(start),
		CreatedAt:    now.UTC(),
	}

	s.log.InfoContext(ctx, "Document is summarized",
		"id", summary.ID,
		"source", summary.Source,
		"origin", summary.Origin,
		"inputChars", summary.InputChars,
		"chunks", summary.ChunkCount,
		"reduceRounds", summary.ReduceRounds,
		"durationMs", summary.Duration.Milliseconds())

	if s.store != nil {
		if saveErr := s.store.InsertSummary(ctx, *summary); saveErr != nil {
			s.log.ErrorContext(ctx, "Failed to save summary",
				"error", saveErr,
				"id", summary.ID)
		}
	}

	return summary, nil
}

func (s *Service) Summary(ctx context.Context, id string) (*domain.Summary, error) {
	if s.store == nil {
		return nil, ErrNotFound
	}

	summary, err := s.store.GetSummary(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}

	return &summary, nil
}

// RecentSummaries lists the newest summaries. limit is clamped to
// [1, MaxRecentLimit]; zero or less means DefaultRecentLimit.
func (s *Service) RecentSummaries(ctx context.Context, limit int) ([]domain.Summary, error) {
	if s.store == nil {
		return []domain.Summary{}, nil
	}

	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, MaxRecentLimit)

	summaries, err := s.store.ListSummaries(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}

	return summaries, nil
}
