// Package orchestrator runs hierarchical summarization: split a document
// into chunks, summarize the chunks in parallel, then summarize the joined
// partial summaries once more.
package orchestrator

import (
	"condense/internal/chunker"
	"condense/internal/summarizer"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxParallelism  = 4
	DefaultMaxReduceRounds = 3
)

type Config struct {
	// MaxChunkSize bounds chunks in characters.
	MaxChunkSize int
	// MaxParallelism caps concurrent backend calls per request.
	MaxParallelism int
	// MaxReduceRounds caps how many times an oversized join of partial
	// summaries is re-split and summarized again before the final call.
	// Zero means the joined text always goes straight to the final call.
	MaxReduceRounds int
}

type Request struct {
	Text   string
	Source string
}

type Result struct {
	// Summary is empty when the document had no content.
	Summary        string
	Chunks         []string
	ChunkSummaries []string
	ReduceRounds   int
}

type Orchestrator struct {
	summarizer summarizer.Summarizer
	cfg        Config
	log        *slog.Logger
}

func New(s summarizer.Summarizer, cfg Config, log *slog.Logger) *Orchestrator {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = chunker.DefaultMaxChunkSize
	}
	if cfg.MaxParallelism <= 0 {
		cfg.MaxParallelism = DefaultMaxParallelism
	}
	if cfg.MaxReduceRounds < 0 {
		cfg.MaxReduceRounds = 0
	}

	return &Orchestrator{
		summarizer: s,
		cfg:        cfg,
		log:        log,
	}
}

// Summarize condenses req.Text. Any failing backend call aborts the whole
// request: the error is returned and no partial summary is produced.
func (o *Orchestrator) Summarize(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	chunks := chunker.Split(req.Text, o.cfg.MaxChunkSize)
	if len(chunks) == 0 {
		return &Result{}, nil
	}

	o.log.DebugContext(ctx, "Document is split into chunks",
		"source", req.Source,
		"chunks", len(chunks),
		"chars", utf8.RuneCountInString(req.Text))

	chunkSummaries, err := o.summarizeAll(ctx, chunks, req.Source)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Chunks:         chunks,
		ChunkSummaries: chunkSummaries,
	}

	summaries := chunkSummaries
	joined := strings.Join(summaries, " ")

	for result.ReduceRounds < o.cfg.MaxReduceRounds &&
		len(summaries) > 1 &&
		utf8.RuneCountInString(joined) > o.cfg.MaxChunkSize {
		pieces := chunker.Split(joined, o.cfg.MaxChunkSize)
		if len(pieces) >= len(summaries) {
			break
		}

		summaries, err = o.summarizeAll(ctx, pieces, req.Source)
		if err != nil {
			return nil, fmt.Errorf("reduce round %d: %w", result.ReduceRounds+1, err)
		}

		result.ReduceRounds++
		joined = strings.Join(summaries, " ")
	}

	if strings.TrimSpace(joined) == "" {
		return result, nil
	}

	result.Summary, err = o.summarizer.Summarize(ctx, summarizer.Input{
		Text:   joined,
		Source: req.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize joined summaries: %w", err)
	}

	o.log.DebugContext(ctx, "Document is summarized",
		"source", req.Source,
		"chunks", len(chunks),
		"reduceRounds", result.ReduceRounds,
		"durationMs", time.Since(start).Milliseconds())

	return result, nil
}

// summarizeAll fans the texts out to the summarizer and returns the
// summaries in input order. The first failure cancels the remaining calls.
func (o *Orchestrator) summarizeAll(ctx context.Context, texts []string, source string) ([]string, error) {
	summaries := make([]string, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxParallelism)

	for i, text := range texts {
		g.Go(func() error {
			summary, err := o.summarizer.Summarize(gctx, summarizer.Input{
				Text:   text,
				Source: source,
			})
			if err != nil {
				return fmt.Errorf("summarize chunk %d: %w", i, err)
			}

			summaries[i] = summary

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summaries, nil
}
