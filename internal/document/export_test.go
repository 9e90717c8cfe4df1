package document

import (
	"log/slog"
	"time"
)

// NewUnrestrictedFetcher allows loopback test servers.
func NewUnrestrictedFetcher(timeout time.Duration, maxBytes int64, log *slog.Logger) *Fetcher {
	return newFetcher(timeout, maxBytes, nil, log)
}
