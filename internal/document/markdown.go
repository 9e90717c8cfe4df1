package document

import (
	"condense/internal/domain"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

func extractMarkdown(data []byte) domain.Document {
	root := goldmark.New().Parser().Parse(text.NewReader(data))

	var (
		title   string
		blocks  []string
		current strings.Builder
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			blocks = append(blocks, s)
		}
		current.Reset()
	}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if !entering {
				if title == "" {
					title = strings.TrimSpace(current.String())
				}
				flush()
			}
		case *ast.Paragraph, *ast.TextBlock:
			if !entering {
				flush()
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				flush()
				lines := n.Lines()
				for i := range lines.Len() {
					segment := lines.At(i)
					current.Write(segment.Value(data))
				}
				flush()
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				current.Write(node.Segment.Value(data))
				if node.SoftLineBreak() || node.HardLineBreak() {
					current.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				current.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				current.Write(node.Label(data))
			}
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	flush()

	return domain.Document{
		Title: title,
		Text:  joinBlocks(blocks),
	}
}
