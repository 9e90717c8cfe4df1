package summarizer

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// CachingSummarizer memoizes summaries of identical texts. Repeated chunks
// (boilerplate footers, re-submitted documents) skip the backend entirely.
type CachingSummarizer struct {
	next  Summarizer
	cache *summaryCache
	ttl   time.Duration
	now   func() time.Time
}

var _ Summarizer = (*CachingSummarizer)(nil)

// NewCachingSummarizer wraps next with a TTL+LRU cache. A non-positive
// maxEntries or ttl disables caching and returns next as is.
func NewCachingSummarizer(next Summarizer, maxEntries int, ttl time.Duration) Summarizer {
	cache := newSummaryCache(maxEntries)
	if cache == nil || ttl <= 0 {
		return next
	}

	return &CachingSummarizer{
		next:  next,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *CachingSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	key := cacheKey(input.Text)

	if summary, ok := s.cache.get(key, s.now()); ok {
		return summary, nil
	}

	summary, err := s.next.Summarize(ctx, input)
	if err != nil {
		return "", err
	}

	now := s.now()
	s.cache.set(key, summary, now.Add(s.ttl), now)

	return summary, nil
}

func cacheKey(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(text))

	return hex.EncodeToString(sum[:])
}

type summaryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
}

type summaryCacheEntry struct {
	key       string
	summary   string
	expiresAt time.Time
}

func newSummaryCache(maxEntries int) *summaryCache {
	if maxEntries <= 0 {
		return nil
	}

	return &summaryCache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

func (c *summaryCache) get(key string, now time.Time) (string, bool) {
	if c == nil || key == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}

	entry := elem.Value.(*summaryCacheEntry)
	if now.After(entry.expiresAt) {
		c.removeElementLocked(elem)

		return "", false
	}

	c.order.MoveToFront(elem)

	return entry.summary, true
}

func (c *summaryCache) set(key string, summary string, expiresAt time.Time, now time.Time) {
	if c == nil || key == "" || summary == "" || !expiresAt.After(now) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*summaryCacheEntry)
		entry.summary = summary
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	c.entries[key] = c.order.PushFront(&summaryCacheEntry{
		key:       key,
		summary:   summary,
		expiresAt: expiresAt,
	})

	c.evictExpiredLocked(now)
	for len(c.entries) > c.maxEntries {
		c.removeElementLocked(c.order.Back())
	}
}

func (c *summaryCache) evictExpiredLocked(now time.Time) {
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*summaryCacheEntry).expiresAt) {
			c.removeElementLocked(elem)
		}
		elem = prev
	}
}

func (c *summaryCache) removeElementLocked(elem *list.Element) {
	delete(c.entries, elem.Value.(*summaryCacheEntry).key)
	c.order.Remove(elem)
}
