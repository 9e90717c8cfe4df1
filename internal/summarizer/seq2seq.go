package summarizer

import (
	"condense/internal/model"
	"context"
	"fmt"
	"strings"
)

const (
	DefaultInstructionPrefix = "summarize: "
	DefaultMaxInputTokens    = 2048
	DefaultMinOutputTokens   = 100
	DefaultMaxOutputTokens   = 500
	DefaultNumBeams          = 5
)

// Params tunes one seq2seq generation. Zero fields fall back to the defaults.
type Params struct {
	Prefix          string
	MaxInputTokens  int
	MinOutputTokens int
	MaxOutputTokens int
	NumBeams        int
}

// DefaultParams returns the generation parameters the model was tuned with.
func DefaultParams() Params {
	return Params{
		Prefix:          DefaultInstructionPrefix,
		MaxInputTokens:  DefaultMaxInputTokens,
		MinOutputTokens: DefaultMinOutputTokens,
		MaxOutputTokens: DefaultMaxOutputTokens,
		NumBeams:        DefaultNumBeams,
	}
}

func (p Params) withDefaults() Params {
	def := DefaultParams()

	if p.Prefix == "" {
		p.Prefix = def.Prefix
	}
	if p.MaxInputTokens <= 0 {
		p.MaxInputTokens = def.MaxInputTokens
	}
	if p.MinOutputTokens <= 0 {
		p.MinOutputTokens = def.MinOutputTokens
	}
	if p.MaxOutputTokens <= 0 {
		p.MaxOutputTokens = def.MaxOutputTokens
	}
	if p.NumBeams <= 0 {
		p.NumBeams = def.NumBeams
	}
	p.MinOutputTokens = min(p.MinOutputTokens, p.MaxOutputTokens)

	return p
}

// Seq2SeqSummarizer turns one chunk into a summary with a pretrained
// encoder-decoder model: prefix, truncating encode, beam search, decode.
type Seq2SeqSummarizer struct {
	model  model.Model
	params Params
}

var _ Summarizer = (*Seq2SeqSummarizer)(nil)

func NewSeq2SeqSummarizer(m model.Model, params Params) *Seq2SeqSummarizer {
	return &Seq2SeqSummarizer{
		model:  m,
		params: params.withDefaults(),
	}
}

// Summarize does not special-case empty text; whatever the model emits is
// returned trimmed.
func (s *Seq2SeqSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	ids, err := s.model.Encode(ctx, s.params.Prefix+input.Text, s.params.MaxInputTokens)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	out, err := s.model.Generate(ctx, ids, model.GenerateParams{
		MaxLength:     s.params.MaxOutputTokens,
		MinLength:     s.params.MinOutputTokens,
		NumBeams:      s.params.NumBeams,
		EarlyStopping: true,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	text, err := s.model.Decode(ctx, out)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	return strings.TrimSpace(text), nil
}
