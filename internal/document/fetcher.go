package document

import (
	"condense/internal/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	defaultFetchTimeout = 20 * time.Second
	dialTimeout         = 10 * time.Second
)

// ErrForbiddenAddress is returned when a URL resolves to a loopback, private,
// link-local or otherwise non-public address.
var ErrForbiddenAddress = errors.New("address is not public")

// Fetcher downloads documents over HTTP(S).
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	log      *slog.Logger
}

// NewFetcher builds a fetcher that only connects to public addresses.
func NewFetcher(timeout time.Duration, maxBytes int64, log *slog.Logger) *Fetcher {
	return newFetcher(timeout, maxBytes, checkPublicAddress, log)
}

// newFetcher builds a fetcher whose dialer runs control before connecting.
// A nil control allows any address.
func newFetcher(
	timeout time.Duration,
	maxBytes int64,
	control func(network, address string, c syscall.RawConn) error,
	log *slog.Logger,
) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	dialer := &net.Dialer{
		Timeout: dialTimeout,
		Control: control,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// A proxy would be dialed instead of the target and bypass control.
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		maxBytes: maxBytes,
		log:      log,
	}
}

// checkPublicAddress runs after DNS resolution, so redirects and hostnames
// pointing at internal addresses are rejected as well.
func checkPublicAddress(_ string, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("split host port: %w", err)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("parse address: %w", err)
	}
	addr = addr.Unmap()

	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, addr)
	}

	return nil
}

// Fetch downloads rawURL and extracts its text. The kind is taken from the
// response content type and falls back to the URL path extension.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (domain.Document, error) {
	rawURL = strings.TrimSpace(rawURL)

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Document{}, fmt.Errorf("invalid URL %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Document{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req) //nolint:gosec // user-supplied URL is the point
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: do request: %w", ErrFetch, err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			f.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", rawURL,
				"operation", "Fetch")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return domain.Document{}, fmt.Errorf("%w: unexpected status: %d", ErrFetch, resp.StatusCode)
	}

	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return domain.Document{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	data, err := ReadLimited(resp.Body, f.maxBytes)
	if err != nil {
		return domain.Document{}, err
	}

	kind, err := KindFromContentType(resp.Header.Get("Content-Type"))
	if err != nil {
		var extErr error
		kind, extErr = KindFromFilename(u.Path)
		if extErr != nil {
			return domain.Document{}, errors.Join(err, extErr)
		}
	}

	doc, err := Extract(kind, data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract %s: %w", kind, err)
	}

	doc.Source = domain.SourceURL
	doc.Origin = rawURL
	if doc.Title == "" {
		doc.Title = titleFromURL(u)
	}

	f.log.DebugContext(ctx, "Document is fetched",
		"url", rawURL,
		"kind", kind,
		"bytes", len(data))

	return doc, nil
}

// ReadLimited reads r fully and fails with ErrTooLarge when it holds more
// than maxBytes. maxBytes <= 0 disables the limit.
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}

	return data, nil
}

func titleFromURL(u *url.URL) string {
	if base := path.Base(u.Path); base != "." && base != "/" {
		return base
	}

	return u.Host
}
