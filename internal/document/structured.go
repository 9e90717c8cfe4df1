package document

import (
	"bytes"
	"condense/internal/domain"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/tidwall/gjson"
)

const htmlBlockSelector = "h1, h2, h3, h4, h5, h6, p, li, blockquote, pre, td, th, dt, dd"

func extractJSON(data []byte) (domain.Document, error) {
	if !gjson.ValidBytes(data) {
		return domain.Document{}, fmt.Errorf("%w: invalid JSON", ErrDecode)
	}

	root := gjson.ParseBytes(data)

	var blocks []string
	var walk func(value gjson.Result)
	walk = func(value gjson.Result) {
		switch {
		case value.IsObject(), value.IsArray():
			value.ForEach(func(_, child gjson.Result) bool {
				walk(child)
				return true
			})
		case value.Type == gjson.String:
			blocks = append(blocks, value.String())
		}
	}
	walk(root)

	var title string
	for _, key := range []string{"title", "name", "subject"} {
		if v := root.Get(key); v.Type == gjson.String {
			title = strings.TrimSpace(v.String())
			break
		}
	}

	return domain.Document{
		Title: title,
		Text:  joinBlocks(blocks),
	}, nil
}

func extractHTML(data []byte) (domain.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: create document from reader: %w", ErrDecode, err)
	}

	return domain.Document{
		Title: htmlTitle(doc),
		Text:  htmlText(doc.Selection),
	}, nil
}

func htmlTitle(doc *goquery.Document) string {
	if content, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		if content = strings.TrimSpace(content); content != "" {
			return content
		}
	}

	return strings.TrimSpace(doc.Find("title").First().Text())
}

// htmlText renders the readable blocks of sel. Blocks that contain other
// blocks are skipped since their children are rendered on their own.
func htmlText(sel *goquery.Selection) string {
	sel.Find("script, style, noscript, template, svg").Remove()

	var blocks []string
	sel.Find(htmlBlockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(htmlBlockSelector).Length() > 0 {
			return
		}
		blocks = append(blocks, s.Text())
	})

	if len(blocks) == 0 {
		body := sel.Find("body")
		if body.Length() == 0 {
			body = sel
		}
		blocks = append(blocks, body.Text())
	}

	return joinBlocks(blocks)
}

// stripHTML renders an HTML fragment, such as a feed item description, as
// plain text.
func stripHTML(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	return htmlText(doc.Selection)
}

func extractFeed(data []byte) (domain.Document, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: parse feed: %w", ErrDecode, err)
	}

	blocks := make([]string, 0, 2*len(feed.Items)+1)
	if feed.Description != "" {
		blocks = append(blocks, stripHTML(feed.Description))
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		blocks = append(blocks, item.Title)

		body := item.Description
		if body == "" {
			body = item.Content
		}
		blocks = append(blocks, stripHTML(body))
	}

	return domain.Document{
		Title: strings.TrimSpace(feed.Title),
		Text:  joinBlocks(blocks),
	}, nil
}
