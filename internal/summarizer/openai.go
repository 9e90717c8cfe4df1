package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"github.com/pkoukk/tiktoken-go"
)

const (
	DefaultOpenAIModel = "gpt-5-mini"

	tokenEncoding = "cl100k_base"

	// The output budget is doubled on truncated responses up to this factor.
	maxOutputGrowth = 4

	systemPrompt = `Summarize the text for a reader who has not seen it.

Rules:
- Keep the core ideas and critical context (dates, numbers, names, decisions).
- Write plain prose without headings or lists.
- Neutral tone.
- Do not add information that is not in the text.
- Answer in the same language as the input.`
)

type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	ReasoningEffort string
	MaxInputTokens  int
	MaxOutputTokens int
}

// OpenAISummarizer calls OpenAI's Responses API to produce summaries.
type OpenAISummarizer struct {
	client          openai.Client
	model           string
	reasoningEffort string
	encoding        *tiktoken.Tiktoken
	maxInputTokens  int
	maxOutputTokens int64
}

var _ Summarizer = (*OpenAISummarizer)(nil)

// NewOpenAISummarizer builds a new summarizer instance. The tiktoken
// encoding is loaded eagerly so a missing vocabulary fails at startup.
func NewOpenAISummarizer(cfg OpenAIConfig) (*OpenAISummarizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("API key is empty")
	}

	encoding, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("get tiktoken encoding: %w", err)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return newOpenAISummarizer(openai.NewClient(opts...), cfg, encoding), nil
}

func newOpenAISummarizer(client openai.Client, cfg OpenAIConfig, encoding *tiktoken.Tiktoken) *OpenAISummarizer {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.MaxInputTokens <= 0 {
		cfg.MaxInputTokens = DefaultMaxInputTokens
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}

	return &OpenAISummarizer{
		client:          client,
		model:           cfg.Model,
		reasoningEffort: strings.TrimSpace(cfg.ReasoningEffort),
		encoding:        encoding,
		maxInputTokens:  cfg.MaxInputTokens,
		maxOutputTokens: int64(cfg.MaxOutputTokens),
	}
}

// Summarize produces a summary of one chunk or of joined partial summaries.
func (s *OpenAISummarizer) Summarize(
	ctx context.Context,
	input Input,
) (string, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return "", errors.New("input is empty")
	}
	text = s.truncate(text)

	userPromptBuilder := strings.Builder{}
	if source := strings.TrimSpace(input.Source); source != "" {
		userPromptBuilder.WriteString("Source:\n")
		userPromptBuilder.WriteString(source)
		userPromptBuilder.WriteString("\n")
	}
	userPromptBuilder.WriteString("Content:\n")
	userPromptBuilder.WriteString(text)

	params := responses.ResponseNewParams{
		Model:        shared.ResponsesModel(s.model),
		Instructions: openai.String(systemPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(userPromptBuilder.String()),
		},
	}
	if s.reasoningEffort != "" {
		params.Reasoning = shared.ReasoningParam{
			Effort: shared.ReasoningEffort(s.reasoningEffort),
		}
	}

	maxOutputTokens := s.maxOutputTokens
	limitMaxOutputTokens := s.maxOutputTokens * maxOutputGrowth
	for {
		params.MaxOutputTokens = openai.Int(maxOutputTokens)

		resp, err := s.client.Responses.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("do request: %w", err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limitMaxOutputTokens {
				maxOutputTokens = min(maxOutputTokens*2, limitMaxOutputTokens)
				continue
			}
			return "", fmt.Errorf(
				"response is incomplete (reason = %s, maxOutputTokens = %d)",
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		summary := strings.TrimSpace(resp.OutputText())
		if summary == "" {
			return "", fmt.Errorf("output text is missing (status = %s)", resp.Status)
		}
		return summary, nil
	}
}

// truncate keeps the first maxInputTokens tokens of text.
func (s *OpenAISummarizer) truncate(text string) string {
	if s.encoding == nil {
		return text
	}

	tokens := s.encoding.Encode(text, nil, nil)
	if len(tokens) <= s.maxInputTokens {
		return text
	}

	return s.encoding.Decode(tokens[:s.maxInputTokens])
}
