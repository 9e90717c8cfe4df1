// Package document turns uploaded or fetched bytes into plain text ready
// for summarization.
package document

import (
	"bytes"
	"condense/internal/domain"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"unicode/utf8"
)

type Kind string

const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindJSON     Kind = "json"
	KindHTML     Kind = "html"
	KindPDF      Kind = "pdf"
	KindFeed     Kind = "feed"
)

var (
	ErrDecode      = errors.New("document cannot be decoded")
	ErrUnsupported = errors.New("document type is not supported")
	ErrTooLarge    = errors.New("document is too large")
	ErrFetch       = errors.New("document cannot be fetched")
)

var utf8BOM = []byte("\xef\xbb\xbf")

func KindFromFilename(name string) (Kind, error) {
	switch strings.ToLower(path.Ext(strings.TrimSpace(name))) {
	case ".txt", ".text":
		return KindText, nil
	case ".md", ".markdown":
		return KindMarkdown, nil
	case ".json":
		return KindJSON, nil
	case ".html", ".htm", ".xhtml":
		return KindHTML, nil
	case ".pdf":
		return KindPDF, nil
	case ".xml", ".rss", ".atom":
		return KindFeed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, name)
	}
}

func KindFromContentType(contentType string) (Kind, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: content type %q", ErrUnsupported, contentType)
	}

	switch mediaType {
	case "text/plain":
		return KindText, nil
	case "text/markdown", "text/x-markdown":
		return KindMarkdown, nil
	case "application/json", "text/json":
		return KindJSON, nil
	case "text/html", "application/xhtml+xml":
		return KindHTML, nil
	case "application/pdf":
		return KindPDF, nil
	case "application/rss+xml", "application/atom+xml", "application/xml", "text/xml":
		return KindFeed, nil
	}

	if strings.HasSuffix(mediaType, "+json") {
		return KindJSON, nil
	}

	return "", fmt.Errorf("%w: content type %q", ErrUnsupported, mediaType)
}

// Extract converts data of the given kind into a document. Only Title and
// Text are filled; callers set the source and origin.
func Extract(kind Kind, data []byte) (domain.Document, error) {
	if kind == KindPDF {
		return extractPDF(data)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return domain.Document{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrDecode, kind)
	}

	switch kind {
	case KindText:
		return domain.Document{Text: string(data)}, nil
	case KindMarkdown:
		return extractMarkdown(data), nil
	case KindJSON:
		return extractJSON(data)
	case KindHTML:
		return extractHTML(data)
	case KindFeed:
		return extractFeed(data)
	default:
		return domain.Document{}, fmt.Errorf("%w: %q", ErrUnsupported, kind)
	}
}

// joinBlocks collapses whitespace inside every block and joins blocks into
// sentences, so that headings and list items become separate sentences.
func joinBlocks(blocks []string) string {
	var b strings.Builder

	for _, block := range blocks {
		block = strings.Join(strings.Fields(block), " ")
		if block == "" {
			continue
		}

		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(block)

		if !strings.ContainsAny(block[len(block)-1:], ".!?:;") {
			b.WriteByte('.')
		}
	}

	return b.String()
}
