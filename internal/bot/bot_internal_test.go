package bot

import (
	"condense/internal/document"
	"condense/internal/domain"
	"condense/internal/ratelimiter"
	"condense/internal/service"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func TestSplitMessageKeepsMessagesWithinLimit(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("word. (x) ", 200) + strings.Repeat("y", 90)
	header := "*Title*\n\n"
	limit := 64

	messages := splitMessage(header, body, limit)
	if len(messages) < 2 {
		t.Fatalf("expected several messages, got %d", len(messages))
	}

	if !strings.HasPrefix(messages[0], header) {
		t.Fatalf("first message lost the header: %q", messages[0])
	}

	for i, message := range messages {
		if len(message) > limit {
			t.Fatalf("message %d is %d bytes, limit %d", i, len(message), limit)
		}
	}
}

func TestSplitMessageIsLossless(t *testing.T) {
	t.Parallel()

	body := "First sentence. Second one (with parens)! " + strings.Repeat("z", 50)

	messages := splitMessage("", body, 20)

	joined := strings.Join(messages, " ")
	joined = strings.ReplaceAll(joined, "\\", "")

	if got, want := strings.ReplaceAll(joined, " ", ""), strings.ReplaceAll(body, " ", ""); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSplitMessageSingleMessage(t *testing.T) {
	t.Parallel()

	messages := splitMessage("H\n\n", "Short text.", telegramMessageMaxLength)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	if messages[0] != "H\n\nShort text\\." {
		t.Fatalf("unexpected message: %q", messages[0])
	}
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	t.Run("Empty summary", func(t *testing.T) {
		t.Parallel()

		messages := formatSummary(&domain.Summary{Text: "  "})
		if len(messages) != 1 || messages[0] != emptySummaryText {
			t.Fatalf("unexpected messages: %q", messages)
		}
	})

	t.Run("Header with title and stats", func(t *testing.T) {
		t.Parallel()

		messages := formatSummary(&domain.Summary{
			Title:      "Report v1.2",
			InputChars: 1200,
			ChunkCount: 3,
			Duration:   1500 * time.Millisecond,
			Text:       "It went well.",
		})
		if len(messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(messages))
		}

		want := "📝 *Report v1\\.2*\n_1200 characters, 3 parts, 1\\.5s_\n\nIt went well\\."
		if messages[0] != want {
			t.Fatalf("expected %q, got %q", want, messages[0])
		}
	})
}

func TestFormatRecent(t *testing.T) {
	t.Parallel()

	if got := formatRecent(nil); len(got) != 1 || !strings.Contains(got[0], "No summaries") {
		t.Fatalf("unexpected empty listing: %q", got)
	}

	createdAt := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	got := formatRecent([]domain.Summary{
		{Source: domain.SourceText, Text: "Plain.", CreatedAt: createdAt},
		{Title: "Blog", Source: domain.SourceURL, Text: strings.Repeat("a", 400), CreatedAt: createdAt},
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}

	for _, want := range []string{"*text*", "*Blog*", "_2026\\-03\\-01 12:30_", "Plain\\.", "…"} {
		if !strings.Contains(got[0], want) {
			t.Fatalf("expected %q in %q", want, got[0])
		}
	}
}

func TestUserAllowed(t *testing.T) {
	t.Parallel()

	open := &Bot{}
	if !open.userAllowed(42) {
		t.Fatal("expected empty allow-list to accept everyone")
	}

	restricted := &Bot{allowedUsers: []int64{1, 2}}
	if !restricted.userAllowed(2) {
		t.Fatal("expected listed user to be allowed")
	}
	if restricted.userAllowed(3) {
		t.Fatal("expected unlisted user to be rejected")
	}
}

func TestFailureText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{err: document.ErrTooLarge, want: "too large"},
		{err: fmt.Errorf("extract: %w", document.ErrUnsupported), want: "not supported"},
		{err: document.ErrDecode, want: "cannot be read"},
		{err: document.ErrFetch, want: "cannot be fetched"},
		{err: fmt.Errorf("summarize: %w", service.ErrBackend), want: "Try again later"},
		{err: errors.New("boom"), want: "Failed\\."},
	}

	for _, tt := range tests {
		got := failureText(tt.err)
		if !strings.HasPrefix(got, "❌ ") || !strings.Contains(got, tt.want) {
			t.Fatalf("failureText(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}

type recordingSender struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.texts = append(s.texts, params.Text)

	return &models.Message{}, nil
}

func (s *recordingSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.texts...)
}

type historyService struct {
	Service

	enabled   bool
	summaries []domain.Summary
	listed    bool
}

func (s *historyService) HistoryEnabled() bool {
	return s.enabled
}

func (s *historyService) RecentSummaries(_ context.Context, _ int) ([]domain.Summary, error) {
	s.listed = true
	return s.summaries, nil
}

func newTestBot(t *testing.T, svc Service) (*Bot, *recordingSender) {
	t.Helper()

	sender := &recordingSender{}
	rl := ratelimiter.New(sender, slog.Default())
	t.Cleanup(rl.Stop)

	return &Bot{
		svc:         svc,
		rateLimiter: rl,
		log:         slog.Default(),
	}, sender
}

func TestRecentCommandReportsDisabledHistory(t *testing.T) {
	svc := &historyService{enabled: false}
	b, sender := newTestBot(t, svc)

	if err := b.handleRecentCommand(context.Background(), 7); err != nil {
		t.Fatalf("handle recent: %v", err)
	}

	if svc.listed {
		t.Fatal("expected history not to be queried when disabled")
	}

	if got := sender.sent(); len(got) != 1 || got[0] != historyDisabledText {
		t.Fatalf("unexpected messages: %q", got)
	}
}

func TestRecentCommandListsHistory(t *testing.T) {
	svc := &historyService{
		enabled:   true,
		summaries: []domain.Summary{{Title: "Notes", Text: "Kept.", CreatedAt: time.Now()}},
	}
	b, sender := newTestBot(t, svc)

	if err := b.handleRecentCommand(context.Background(), 7); err != nil {
		t.Fatalf("handle recent: %v", err)
	}

	got := sender.sent()
	if len(got) != 1 || !strings.Contains(got[0], "*Notes*") {
		t.Fatalf("unexpected messages: %q", got)
	}
}
