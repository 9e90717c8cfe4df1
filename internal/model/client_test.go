package model_test

import (
	"condense/internal/model"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"
)

type fakeModelService struct {
	t        *testing.T
	token    string
	generate map[string]any
}

func (s *fakeModelService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		return
	}

	var payload map[string]any
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.t.Errorf("decode request: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/health":
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	case "/encode":
		if payload["truncation"] != true {
			s.t.Errorf("expected truncation to be requested")
		}
		text, _ := payload["text"].(string)
		maxLength := int(payload["max_length"].(float64))
		ids := make([]int, 0, len(text))
		for i := range min(len(text), maxLength) {
			ids = append(ids, int(text[i]))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"token_ids": ids})
	case "/generate":
		s.generate = payload
		_, _ = w.Write([]byte(`{"token_ids":[104,105]}`))
	case "/decode":
		if payload["skip_special_tokens"] != true {
			s.t.Errorf("expected special tokens to be skipped")
		}
		raw, _ := payload["token_ids"].([]any)
		var b strings.Builder
		for _, v := range raw {
			b.WriteByte(byte(v.(float64)))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"text": b.String()})
	case "/fail":
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, handler http.Handler, token string) *model.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := model.NewClient(srv.URL+"/", token, time.Second, slog.Default())
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	return client
}

func TestClientEncodeGenerateDecode(t *testing.T) {
	svc := &fakeModelService{t: t, token: "secret"}
	client := newTestClient(t, svc, "secret")
	ctx := context.Background()

	ids, err := client.Encode(ctx, "hello world", 5)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if want := []int{104, 101, 108, 108, 111}; !slices.Equal(ids, want) {
		t.Fatalf("unexpected token IDs: got %v want %v", ids, want)
	}

	out, err := client.Generate(ctx, ids, model.GenerateParams{
		MaxLength:     500,
		MinLength:     100,
		NumBeams:      5,
		EarlyStopping: true,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if svc.generate["num_beams"] != float64(5) || svc.generate["min_length"] != float64(100) ||
		svc.generate["max_length"] != float64(500) || svc.generate["early_stopping"] != true {
		t.Fatalf("unexpected generate payload: %v", svc.generate)
	}

	text, err := client.Decode(ctx, out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if text != "hi" {
		t.Fatalf("unexpected decoded text: %q", text)
	}

	if err = client.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestClientSurfacesStatusError(t *testing.T) {
	client := newTestClient(t, &fakeModelService{t: t, token: "secret"}, "wrong")

	_, err := client.Encode(context.Background(), "text", 10)
	if err == nil {
		t.Fatalf("expected error")
	}

	var statusErr *model.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: %d", statusErr.StatusCode)
	}
	if statusErr.Body != "unauthorized" {
		t.Fatalf("unexpected error body: %q", statusErr.Body)
	}
}

func TestClientRejectsMalformedResponse(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token_ids":"nope"}`))
	})
	client := newTestClient(t, handler, "")

	if _, err := client.Encode(context.Background(), "text", 10); err == nil {
		t.Fatalf("expected error for malformed token_ids")
	}
}

func TestClientGenerateRequiresTokens(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler(), "")

	if _, err := client.Generate(context.Background(), nil, model.GenerateParams{}); err == nil {
		t.Fatalf("expected error for empty token IDs")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := model.NewClient("  ", "", time.Second, slog.Default()); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}
