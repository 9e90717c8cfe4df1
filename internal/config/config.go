package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendSeq2Seq = "seq2seq"
	BackendOpenAI  = "openai"
)

type Config struct {
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL"   envDefault:"info"`

	Backend             string        `env:"BACKEND"               envDefault:"seq2seq"`
	ModelServiceURL     string        `env:"MODEL_SERVICE_URL"     envDefault:"http://localhost:8000"`
	ModelServiceToken   string        `env:"MODEL_SERVICE_TOKEN"`
	ModelServiceTimeout time.Duration `env:"MODEL_SERVICE_TIMEOUT" envDefault:"5m"`

	OpenAIAPIKey          string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL         string `env:"OPENAI_BASE_URL"`
	OpenAIModel           string `env:"OPENAI_MODEL"            envDefault:"gpt-5-mini"`
	OpenAIReasoningEffort string `env:"OPENAI_REASONING_EFFORT"`

	InstructionPrefix string `env:"INSTRUCTION_PREFIX" envDefault:"summarize: "`
	MaxInputTokens    int    `env:"MAX_INPUT_TOKENS"   envDefault:"2048"`
	MinOutputTokens   int    `env:"MIN_OUTPUT_TOKENS"  envDefault:"100"`
	MaxOutputTokens   int    `env:"MAX_OUTPUT_TOKENS"  envDefault:"500"`
	NumBeams          int    `env:"NUM_BEAMS"          envDefault:"5"`

	MaxChunkSize    int `env:"MAX_CHUNK_SIZE"    envDefault:"2048"`
	MaxParallelism  int `env:"MAX_PARALLELISM"   envDefault:"4"`
	MaxReduceRounds int `env:"MAX_REDUCE_ROUNDS" envDefault:"3"`

	SummaryCacheSize int           `env:"SUMMARY_CACHE_SIZE" envDefault:"0"`
	SummaryCacheTTL  time.Duration `env:"SUMMARY_CACHE_TTL"  envDefault:"24h"`

	MaxDocumentBytes int64         `env:"MAX_DOCUMENT_BYTES" envDefault:"10485760"`
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT"      envDefault:"20s"`

	HistoryEnabled   bool          `env:"HISTORY_ENABLED"   envDefault:"true"`
	DBPath           string        `env:"DB_PATH"           envDefault:"db.sqlite"`
	HistoryRetention time.Duration `env:"HISTORY_RETENTION" envDefault:"720h"`
	RetentionSpec    string        `env:"RETENTION_SPEC"    envDefault:"0 * * * *"`

	TelegramToken string  `env:"TELEGRAM_TOKEN"`
	AllowedUsers  []int64 `env:"ALLOWED_USERS"`
}

func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.OpenAIAPIKey = strings.TrimSpace(cfg.OpenAIAPIKey)

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendSeq2Seq:
		if strings.TrimSpace(c.ModelServiceURL) == "" {
			errs = append(errs, errors.New("MODEL_SERVICE_URL is required for seq2seq backend"))
		}
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for openai backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BACKEND %q", c.Backend))
	}

	if c.MaxChunkSize <= 0 {
		errs = append(errs, errors.New("MAX_CHUNK_SIZE must be positive"))
	}
	if c.MaxParallelism <= 0 {
		errs = append(errs, errors.New("MAX_PARALLELISM must be positive"))
	}
	if c.MaxReduceRounds < 0 {
		errs = append(errs, errors.New("MAX_REDUCE_ROUNDS must not be negative"))
	}
	if c.MaxInputTokens <= 0 || c.MaxOutputTokens <= 0 {
		errs = append(errs, errors.New("MAX_INPUT_TOKENS and MAX_OUTPUT_TOKENS must be positive"))
	}
	if c.MinOutputTokens <= 0 || c.MinOutputTokens > c.MaxOutputTokens {
		errs = append(errs, errors.New("MIN_OUTPUT_TOKENS must be between 1 and MAX_OUTPUT_TOKENS"))
	}
	if c.NumBeams <= 0 {
		errs = append(errs, errors.New("NUM_BEAMS must be positive"))
	}
	if c.MaxDocumentBytes <= 0 {
		errs = append(errs, errors.New("MAX_DOCUMENT_BYTES must be positive"))
	}
	if c.HistoryEnabled && strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("DB_PATH is required when history is enabled"))
	}

	return errors.Join(errs...)
}

// SlogLevel maps LOG_LEVEL onto slog levels, falling back to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
