package bot

import (
	"condense/internal/domain"
	"condense/internal/markdown"
	"fmt"
	"strings"
	"unicode/utf8"
)

const telegramMessageMaxLength = 4096

const emptySummaryText = "🤷 There is nothing to summarize\\."

// formatSummary renders summary as one or more MarkdownV2 messages. Only the
// first message carries the header.
func formatSummary(summary *domain.Summary) []string {
	if summary == nil || strings.TrimSpace(summary.Text) == "" {
		return []string{emptySummaryText}
	}

	return splitMessage(summaryHeader(summary), summary.Text, telegramMessageMaxLength)
}

func summaryHeader(summary *domain.Summary) string {
	var b strings.Builder

	if title := strings.TrimSpace(summary.Title); title != "" {
		b.WriteString("📝 ")
		b.WriteString(markdown.Bold(title))
		b.WriteString("\n")
	}

	b.WriteString(markdown.Italic(fmt.Sprintf(
		"%d characters, %d parts, %.1fs",
		summary.InputChars,
		summary.ChunkCount,
		summary.Duration.Seconds(),
	)))
	b.WriteString("\n\n")

	return b.String()
}

func formatRecent(summaries []domain.Summary) []string {
	if len(summaries) == 0 {
		return []string{"📭 No summaries yet\\."}
	}

	var messages []string
	var b strings.Builder

	b.WriteString("🗂 *Recent summaries*\n\n")

	for _, summary := range summaries {
		entry := recentEntry(summary)

		if b.Len()+len(entry) > telegramMessageMaxLength {
			messages = append(messages, strings.TrimSpace(b.String()))
			b.Reset()
		}

		b.WriteString(entry)
	}

	if b.Len() > 0 {
		messages = append(messages, strings.TrimSpace(b.String()))
	}

	return messages
}

func recentEntry(summary domain.Summary) string {
	title := strings.TrimSpace(summary.Title)
	if title == "" {
		title = string(summary.Source)
	}

	text := truncateRunes(strings.TrimSpace(summary.Text), 300)

	return fmt.Sprintf("– %s %s\n%s\n\n",
		markdown.Bold(title),
		markdown.Italic(summary.CreatedAt.UTC().Format("2006-01-02 15:04")),
		markdown.EscapeV2(text),
	)
}

func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)

	return strings.TrimSpace(string(runes[:limit])) + "…"
}

// splitMessage escapes body and splits it at word boundaries so that every
// message, header included, fits into limit bytes. Words longer than a whole
// message are cut by runes.
func splitMessage(header, body string, limit int) []string {
	var messages []string

	var b strings.Builder
	b.WriteString(header)
	empty := true

	flush := func() {
		messages = append(messages, b.String())
		b.Reset()
		empty = true
	}

	for _, word := range strings.Fields(body) {
		for _, piece := range splitWord(word, limit) {
			escaped := markdown.EscapeV2(piece)

			need := len(escaped)
			if !empty {
				need++
			}

			if b.Len()+need > limit && b.Len() > 0 {
				flush()
			}

			if !empty {
				b.WriteByte(' ')
			}
			b.WriteString(escaped)
			empty = false
		}
	}

	if b.Len() > 0 {
		messages = append(messages, b.String())
	}

	return messages
}

func splitWord(word string, limit int) []string {
	if markdown.EscapedLen(word) <= limit {
		return []string{word}
	}

	var pieces []string
	var b strings.Builder
	size := 0

	for _, r := range word {
		n := markdown.EscapedLen(string(r))
		if size+n > limit && b.Len() > 0 {
			pieces = append(pieces, b.String())
			b.Reset()
			size = 0
		}
		b.WriteRune(r)
		size += n
	}

	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}

	return pieces
}
