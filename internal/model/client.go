package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultClientTimeout = 5 * time.Minute
	maxResponseBytes     = 16 << 20
	maxErrorBodyChars    = 512
)

// StatusError reports a non-2xx answer from the model service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("model service: unexpected status %d", e.StatusCode)
	}

	return fmt.Sprintf("model service: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client talks to an HTTP model service that hosts the tokenizer and the
// seq2seq model (for example a Pegasus sidecar).
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

var _ Model = (*Client)(nil)

func NewClient(baseURL string, token string, timeout time.Duration, log *slog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base URL is empty")
	}

	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}, nil
}

type encodeRequest struct {
	Text       string `json:"text"`
	MaxLength  int    `json:"max_length"`
	Truncation bool   `json:"truncation"`
}

type generateRequest struct {
	TokenIDs      []int `json:"token_ids"`
	MaxLength     int   `json:"max_length"`
	MinLength     int   `json:"min_length"`
	NumBeams      int   `json:"num_beams"`
	EarlyStopping bool  `json:"early_stopping"`
}

type decodeRequest struct {
	TokenIDs          []int `json:"token_ids"`
	SkipSpecialTokens bool  `json:"skip_special_tokens"`
}

func (c *Client) Encode(ctx context.Context, text string, maxLength int) ([]int, error) {
	body, err := c.post(ctx, "/encode", encodeRequest{
		Text:       text,
		MaxLength:  maxLength,
		Truncation: true,
	})
	if err != nil {
		return nil, err
	}

	return tokenIDs(body)
}

func (c *Client) Generate(ctx context.Context, ids []int, params GenerateParams) ([]int, error) {
	if len(ids) == 0 {
		return nil, errors.New("token IDs are empty")
	}

	body, err := c.post(ctx, "/generate", generateRequest{
		TokenIDs:      ids,
		MaxLength:     params.MaxLength,
		MinLength:     params.MinLength,
		NumBeams:      params.NumBeams,
		EarlyStopping: params.EarlyStopping,
	})
	if err != nil {
		return nil, err
	}

	return tokenIDs(body)
}

func (c *Client) Decode(ctx context.Context, ids []int) (string, error) {
	body, err := c.post(ctx, "/decode", decodeRequest{
		TokenIDs:          ids,
		SkipSpecialTokens: true,
	})
	if err != nil {
		return "", err
	}

	text := gjson.GetBytes(body, "text")
	if !text.Exists() {
		return "", errors.New("response has no text field")
	}

	return text.String(), nil
}

// Ping checks that the model service is up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer c.closeBody(ctx, resp, "/health")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request %s: %w", path, err)
	}
	defer c.closeBody(ctx, resp, path)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}

	c.log.DebugContext(ctx, "Model service call is done",
		"path", path,
		"status", resp.StatusCode,
		"requestBytes", len(data),
		"responseBytes", len(body),
		"durationMs", time.Since(start).Milliseconds())

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: errorMessage(body)}
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response from %s", path)
	}

	return body, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) closeBody(ctx context.Context, resp *http.Response, path string) {
	if err := resp.Body.Close(); err != nil {
		c.log.ErrorContext(ctx, "Failed to close response body",
			"error", err,
			"path", path,
			"operation", "model.Client")
	}
}

func tokenIDs(body []byte) ([]int, error) {
	result := gjson.GetBytes(body, "token_ids")
	if !result.IsArray() {
		return nil, errors.New("response has no token_ids array")
	}

	values := result.Array()
	ids := make([]int, 0, len(values))

	for i, v := range values {
		if v.Type != gjson.Number {
			return nil, fmt.Errorf("token_ids[%d] is not a number", i)
		}
		ids = append(ids, int(v.Int()))
	}

	return ids, nil
}

func errorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error"); msg.Exists() {
		if detail := msg.Get("message"); detail.Exists() {
			return detail.String()
		}
		return msg.String()
	}

	if detail := gjson.GetBytes(body, "detail"); detail.Exists() {
		return detail.String()
	}

	text := strings.TrimSpace(string(body))
	if runes := []rune(text); len(runes) > maxErrorBodyChars {
		return string(runes[:maxErrorBodyChars]) + "..."
	}

	return text
}
