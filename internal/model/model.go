// Package model is the boundary to the pretrained sequence-to-sequence model.
//
// The model is treated as an opaque capability exposing tokenization,
// generation and detokenization. Implementations must be safe for concurrent
// use; callers share one instance for the lifetime of the process.
package model

import "context"

// GenerateParams bounds one generation call.
type GenerateParams struct {
	MaxLength     int
	MinLength     int
	NumBeams      int
	EarlyStopping bool
}

// Model is a seq2seq model reachable through encode, generate and decode.
type Model interface {
	// Encode tokenizes text, truncating it to maxLength tokens.
	Encode(ctx context.Context, text string, maxLength int) ([]int, error)
	// Generate decodes an output token sequence with beam search.
	Generate(ctx context.Context, tokenIDs []int, params GenerateParams) ([]int, error)
	// Decode turns token IDs back into text, skipping special tokens.
	Decode(ctx context.Context, tokenIDs []int) (string, error)
}
