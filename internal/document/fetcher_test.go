package document_test

import (
	"condense/internal/document"
	"condense/internal/domain"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newFetchServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("expected user agent to be set")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Article</title></head><body><p>Body text.</p></body></html>`))
	})
	mux.HandleFunc("/notes.md", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("Some notes"))
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	})
	mux.HandleFunc("/image", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/missing", http.NotFound)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestFetcherFetch(t *testing.T) {
	srv := newFetchServer(t)
	fetcher := document.NewUnrestrictedFetcher(time.Second, 32, slog.Default())
	ctx := context.Background()

	t.Run("HTML by content type", func(t *testing.T) {
		doc, err := fetcher.Fetch(ctx, srv.URL+"/article")
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}

		if doc.Title != "Article" || doc.Text != "Body text." {
			t.Fatalf("unexpected document: %+v", doc)
		}

		if doc.Source != domain.SourceURL || doc.Origin != srv.URL+"/article" {
			t.Fatalf("unexpected source: %q %q", doc.Source, doc.Origin)
		}
	})

	t.Run("Falls back to extension", func(t *testing.T) {
		doc, err := fetcher.Fetch(ctx, srv.URL+"/notes.md")
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}

		if doc.Text != "Some notes." || doc.Title != "notes.md" {
			t.Fatalf("unexpected document: %+v", doc)
		}
	})

	t.Run("Too large", func(t *testing.T) {
		if _, err := fetcher.Fetch(ctx, srv.URL+"/big"); !errors.Is(err, document.ErrTooLarge) {
			t.Fatalf("expected ErrTooLarge, got %v", err)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		if _, err := fetcher.Fetch(ctx, srv.URL+"/image"); !errors.Is(err, document.ErrUnsupported) {
			t.Fatalf("expected ErrUnsupported, got %v", err)
		}
	})

	t.Run("Bad status", func(t *testing.T) {
		if _, err := fetcher.Fetch(ctx, srv.URL+"/missing"); !errors.Is(err, document.ErrFetch) {
			t.Fatalf("expected ErrFetch for 404, got %v", err)
		}
	})

	t.Run("Invalid URL", func(t *testing.T) {
		if _, err := fetcher.Fetch(ctx, "file:///etc/passwd"); err == nil {
			t.Fatalf("expected error for non-HTTP URL")
		}
	})
}

func TestFetcherRejectsNonPublicAddresses(t *testing.T) {
	srv := newFetchServer(t)
	fetcher := document.NewFetcher(time.Second, 32, slog.Default())

	_, err := fetcher.Fetch(context.Background(), srv.URL+"/article")
	if !errors.Is(err, document.ErrForbiddenAddress) {
		t.Fatalf("expected ErrForbiddenAddress for loopback server, got %v", err)
	}

	if !errors.Is(err, document.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}
