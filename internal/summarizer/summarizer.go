package summarizer

import (
	"context"
)

// Input describes the payload for a summary request.
type Input struct {
	// Text contains the plain text to condense. It is usually one chunk of a
	// larger document or the joined partial summaries.
	Text string
	// Source is optional metadata naming where the document came from
	// (a file name or URL). Backends may ignore it.
	Source string
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}
