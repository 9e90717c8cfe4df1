package document

import (
	"bytes"
	"condense/internal/domain"
	"fmt"
	"strings"

	"rsc.io/pdf"
)

// extractPDF reads the text layer page by page. The PDF reader panics on
// some malformed files, so panics are turned into ErrDecode.
func extractPDF(data []byte) (doc domain.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = domain.Document{}
			err = fmt.Errorf("%w: malformed PDF: %v", ErrDecode, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: open PDF: %w", ErrDecode, err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		var sb strings.Builder
		var lastY float64
		for j, t := range p.Content().Text {
			if j > 0 && t.Y != lastY {
				sb.WriteByte(' ')
			}
			sb.WriteString(strings.ReplaceAll(t.S, "\x00", ""))
			lastY = t.Y
		}
		pages = append(pages, sb.String())
	}

	text := strings.Join(strings.Fields(strings.Join(pages, " ")), " ")
	if text == "" {
		return domain.Document{}, fmt.Errorf("%w: PDF has no text layer", ErrDecode)
	}

	return domain.Document{
		Title: strings.TrimSpace(r.Trailer().Key("Info").Key("Title").Text()),
		Text:  text,
	}, nil
}
