package bot

import (
	"condense/internal/document"
	"condense/internal/domain"
	"condense/internal/markdown"
	"condense/internal/service"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const recentSummariesLimit = 5

const historyDisabledText = "📭 History is turned off, summaries are not kept\\."

const welcomeText = `🤖 *Welcome to Condense\!*

I turn long documents into short summaries\. Send me:

– a text message
– a link to a web page, an RSS / Atom feed or a file
– a document: \.txt, \.md, \.json, \.html, \.pdf or a feed file

Long documents are split into parts, every part is summarized and the partial summaries are condensed once more\.

– See your latest summaries with /recent`

func (b *Bot) handleMessage(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	switch {
	case strings.HasPrefix(text, "/start"), strings.HasPrefix(text, "/help"):
		return b.sendMessage(ctx, chatID, welcomeText)
	case strings.HasPrefix(text, "/recent"):
		return b.handleRecentCommand(ctx, chatID)
	case message.Document != nil:
		return b.withSpinner(ctx, chatID, func() error {
			return b.handleDocument(ctx, chatID, message.Document)
		})
	case text != "":
		return b.withSpinner(ctx, chatID, func() error {
			return b.handleText(ctx, chatID, text)
		})
	default:
		return b.sendMessage(ctx, chatID, "✖️ Send me text, a link or a document\\.")
	}
}

func (b *Bot) handleText(ctx context.Context, chatID int64, text string) error {
	var (
		summary *domain.Summary
		err     error
	)

	if url, ok := document.SoleURL(text); ok {
		summary, err = b.svc.SummarizeURL(ctx, url)
	} else {
		summary, err = b.svc.SummarizeText(ctx, domain.Document{
			Source: domain.SourceTelegram,
			Text:   text,
		})
	}

	if err != nil {
		return b.sendFailure(ctx, chatID, fmt.Errorf("summarize text: %w", err))
	}

	return b.sendSummary(ctx, chatID, summary)
}

func (b *Bot) handleDocument(ctx context.Context, chatID int64, doc *models.Document) error {
	if b.maxDocumentBytes > 0 && doc.FileSize > b.maxDocumentBytes {
		return b.sendFailure(ctx, chatID, document.ErrTooLarge)
	}

	if _, err := document.KindFromFilename(doc.FileName); err != nil {
		return b.sendFailure(ctx, chatID, err)
	}

	data, err := b.downloadFile(ctx, doc.FileID)
	if err != nil {
		return b.sendFailure(ctx, chatID, fmt.Errorf("download file: %w", err))
	}

	summary, err := b.svc.SummarizeFile(ctx, doc.FileName, data)
	if err != nil {
		return b.sendFailure(ctx, chatID, fmt.Errorf("summarize file: %w", err))
	}

	return b.sendSummary(ctx, chatID, summary)
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.api.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			b.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"operation", "downloadFile",
				"fileID", fileID)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	return document.ReadLimited(resp.Body, b.maxDocumentBytes)
}

func (b *Bot) handleRecentCommand(ctx context.Context, chatID int64) error {
	if !b.svc.HistoryEnabled() {
		return b.sendMessage(ctx, chatID, historyDisabledText)
	}

	summaries, err := b.svc.RecentSummaries(ctx, recentSummariesLimit)
	if err != nil {
		return b.sendFailure(ctx, chatID, fmt.Errorf("list recent summaries: %w", err))
	}

	for _, message := range formatRecent(summaries) {
		if err = b.sendMessage(ctx, chatID, message); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}

	return nil
}

func (b *Bot) sendSummary(ctx context.Context, chatID int64, summary *domain.Summary) error {
	var errs []error

	for _, message := range formatSummary(summary) {
		if err := b.sendMessage(ctx, chatID, message); err != nil {
			errs = append(errs, fmt.Errorf("send message: %w", err))
		}
	}

	return errors.Join(errs...)
}

// sendFailure tells the user what went wrong and returns cause joined with
// any send error, so the caller logs both.
func (b *Bot) sendFailure(ctx context.Context, chatID int64, cause error) error {
	errs := []error{cause}

	if sendErr := b.sendMessage(ctx, chatID, failureText(cause)); sendErr != nil {
		errs = append(errs, fmt.Errorf("send message: %w", sendErr))
	}

	return errors.Join(errs...)
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := b.rateLimiter.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})

	return err
}

func failureText(err error) string {
	var text string

	switch {
	case errors.Is(err, document.ErrTooLarge):
		text = "The document is too large."
	case errors.Is(err, document.ErrUnsupported):
		text = "This document type is not supported."
	case errors.Is(err, document.ErrDecode):
		text = "The document cannot be read. Is it valid UTF-8 text or a PDF with a text layer?"
	case errors.Is(err, document.ErrFetch):
		text = "The link cannot be fetched."
	case errors.Is(err, service.ErrBackend):
		text = "Summarization failed. Try again later."
	default:
		text = "Failed."
	}

	return "❌ " + markdown.EscapeV2(text)
}
