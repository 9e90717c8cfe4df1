package bot

import (
	"condense/internal/domain"
	"condense/internal/ratelimiter"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	updateProcessingTimeout = 10 * time.Minute
	downloadTimeout         = time.Minute
)

type Service interface {
	SummarizeText(ctx context.Context, doc domain.Document) (*domain.Summary, error)
	SummarizeFile(ctx context.Context, name string, data []byte) (*domain.Summary, error)
	SummarizeURL(ctx context.Context, url string) (*domain.Summary, error)
	RecentSummaries(ctx context.Context, limit int) ([]domain.Summary, error)
	HistoryEnabled() bool
}

type Bot struct {
	api              *bot.Bot
	rateLimiter      *ratelimiter.RateLimiter
	svc              Service
	httpClient       *http.Client
	allowedUsers     []int64
	maxDocumentBytes int64
	log              *slog.Logger
}

func New(
	token string,
	svc Service,
	allowedUsers []int64,
	maxDocumentBytes int64,
	log *slog.Logger,
) (*Bot, error) {
	b := &Bot{
		svc:              svc,
		httpClient:       &http.Client{Timeout: downloadTimeout},
		allowedUsers:     allowedUsers,
		maxDocumentBytes: maxDocumentBytes,
		log:              log,
	}

	api, err := bot.New(strings.TrimSpace(token), bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	b.api = api
	b.rateLimiter = ratelimiter.New(api, log)

	return b, nil
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.log.InfoContext(ctx, "Bot is started")

	b.api.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}

	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	message := update.Message
	chatID := message.Chat.ID

	var userID int64
	var username string
	if message.From != nil {
		userID = message.From.ID
		username = message.From.Username
	}

	if !b.userAllowed(userID) {
		b.log.DebugContext(updateCtx, "User is not allowed",
			"userID", userID,
			"chatID", chatID,
			"username", username,
			"chatType", message.Chat.Type)

		return
	}

	if err := b.handleMessage(updateCtx, message); err != nil {
		b.log.ErrorContext(updateCtx, "Failed to handle message",
			"error", err,
			"chatID", chatID,
			"userID", userID,
			"chatType", message.Chat.Type,
			"messageID", message.ID)
	}
}

// userAllowed accepts everyone when no allow-list is configured.
func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}
