package main

import (
	"condense/internal/bot"
	"condense/internal/config"
	"condense/internal/database"
	"condense/internal/document"
	"condense/internal/metrics"
	"condense/internal/model"
	"condense/internal/orchestrator"
	"condense/internal/scheduler"
	"condense/internal/server"
	"condense/internal/service"
	"condense/internal/summarizer"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.ErrorContext(ctx, "Failed to load .env file",
			"error", err)

		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	var db *database.Database
	if cfg.HistoryEnabled {
		db, err = database.New(ctx, cfg.DBPath, log)
		if err != nil {
			log.ErrorContext(ctx, "Failed to initialize db",
				"error", err,
				"dbPath", cfg.DBPath)

			return
		}
		defer func() {
			if err = db.Close(); err != nil {
				log.ErrorContext(ctx, "Failed to close db",
					"error", err,
					"dbPath", cfg.DBPath)
			}
		}()
		log.InfoContext(ctx, "DB is initialized",
			"dbPath", cfg.DBPath)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	backend, ready, err := initBackend(cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize summarization backend",
			"error", err,
			"backend", cfg.Backend)

		return
	}
	log.InfoContext(ctx, "Summarization backend is initialized",
		"backend", cfg.Backend)

	// Cache hits are not backend calls, so the cache wraps the instrumented backend.
	chunkSummarizer := summarizer.NewCachingSummarizer(
		metrics.InstrumentSummarizer(backend, m),
		cfg.SummaryCacheSize,
		cfg.SummaryCacheTTL,
	)

	pipeline := orchestrator.New(chunkSummarizer, orchestrator.Config{
		MaxChunkSize:    cfg.MaxChunkSize,
		MaxParallelism:  cfg.MaxParallelism,
		MaxReduceRounds: cfg.MaxReduceRounds,
	}, log)

	fetcher := document.NewFetcher(cfg.FetchTimeout, cfg.MaxDocumentBytes, log)

	var store service.Store
	if db != nil {
		store = db
	}
	svc := service.New(pipeline, fetcher, store, m, cfg.MaxDocumentBytes, log)

	srv := server.New(svc, server.Config{
		MaxDocumentBytes: cfg.MaxDocumentBytes,
		Ready:            ready,
		Metrics:          m.Handler(),
	}, log)

	go func() {
		if err := srv.Listen(cfg.ServerAddr); err != nil {
			log.ErrorContext(ctx, "Failed to serve HTTP",
				"error", err,
				"addr", cfg.ServerAddr)
			cancel()
		}
	}()
	log.InfoContext(ctx, "Server is started",
		"addr", cfg.ServerAddr)

	var botInst *bot.Bot
	if cfg.TelegramToken != "" {
		botInst, err = bot.New(cfg.TelegramToken, svc, cfg.AllowedUsers, cfg.MaxDocumentBytes, log)
		if err != nil {
			log.ErrorContext(ctx, "Failed to initialize bot",
				"error", err,
				"allowedUsersCount", len(cfg.AllowedUsers))

			return
		}
		log.InfoContext(ctx, "Bot is initialized",
			"allowedUsersCount", len(cfg.AllowedUsers))

		go botInst.Start(ctx)
	}

	var sched *scheduler.Scheduler
	if db != nil && cfg.HistoryRetention > 0 {
		sched = scheduler.New(ctx, cfg.RetentionSpec, db, cfg.HistoryRetention, log)

		if err = sched.Start(); err != nil {
			log.ErrorContext(ctx, "Failed to start scheduler",
				"error", err,
				"spec", cfg.RetentionSpec,
				"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())

			return
		}
		log.InfoContext(ctx, "Scheduler is started",
			"spec", cfg.RetentionSpec,
			"retention", cfg.HistoryRetention,
			"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())
	}

	<-ctx.Done()
	log.InfoContext(ctx, "Exiting...",
		"cause", context.Cause(ctx),
		"uptimeSeconds", time.Since(start).Seconds())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(shutdownCtx, "Failed to shut down server",
			"error", err)
	}

	if botInst != nil {
		botInst.Stop()
		log.InfoContext(shutdownCtx, "Bot is stopped")
	}

	if sched != nil {
		sched.Stop()
		log.InfoContext(shutdownCtx, "Scheduler is stopped")
	}

	log.InfoContext(shutdownCtx, "Shutdown is done",
		"uptimeSeconds", time.Since(start).Seconds())
}

// initBackend builds the chunk summarizer for cfg.Backend. The returned
// pinger is nil when the backend has no readiness probe.
func initBackend(cfg config.Config, log *slog.Logger) (summarizer.Summarizer, server.Pinger, error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		s, err := summarizer.NewOpenAISummarizer(summarizer.OpenAIConfig{
			APIKey:          cfg.OpenAIAPIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			Model:           cfg.OpenAIModel,
			ReasoningEffort: cfg.OpenAIReasoningEffort,
			MaxInputTokens:  cfg.MaxInputTokens,
			MaxOutputTokens: cfg.MaxOutputTokens,
		})
		if err != nil {
			return nil, nil, err
		}

		return s, nil, nil
	default:
		client, err := model.NewClient(cfg.ModelServiceURL, cfg.ModelServiceToken, cfg.ModelServiceTimeout, log)
		if err != nil {
			return nil, nil, err
		}

		return summarizer.NewSeq2SeqSummarizer(client, summarizer.Params{
			Prefix:          cfg.InstructionPrefix,
			MaxInputTokens:  cfg.MaxInputTokens,
			MinOutputTokens: cfg.MinOutputTokens,
			MaxOutputTokens: cfg.MaxOutputTokens,
			NumBeams:        cfg.NumBeams,
		}), client, nil
	}
}
