package parser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedParser memoizes successful parses keyed by path, size and mtime, so
// re-running batch loads over an unchanged directory skips extraction.
// Failures are not cached.
type CachedParser struct {
	next  Parser
	cache *expirable.LRU[string, *Result]
}

func NewCached(next Parser, maxEntries int, ttl time.Duration) *CachedParser {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &CachedParser{
		next:  next,
		cache: expirable.NewLRU[string, *Result](maxEntries, nil, ttl),
	}
}

func (p *CachedParser) Parse(ctx context.Context, path, mimeType string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return p.next.Parse(ctx, path, mimeType)
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if res, ok := p.cache.Get(key); ok {
		return res, nil
	}

	res, err := p.next.Parse(ctx, path, mimeType)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, res)
	return res, nil
}

// Len reports the number of cached results.
func (p *CachedParser) Len() int {
	return p.cache.Len()
}
