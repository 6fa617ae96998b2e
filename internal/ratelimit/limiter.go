// Package ratelimit implements fixed-window request throttling per client.
// Analysis requests are counted separately from general traffic against a
// smaller ceiling.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Store counts hits per key within a fixed window.
type Store interface {
	// Hit records one request and returns the count in the current window
	// and the time left until the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (count int, resetIn time.Duration, err error)
}

type Kind string

const (
	KindGeneral  Kind = "general_throttle"
	KindAnalysis Kind = "ai_throttle"
)

type Config struct {
	Requests         int
	Window           time.Duration
	AnalysisFraction float64
}

type Decision struct {
	Allowed    bool
	Kind       Kind
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the wait up to whole seconds, minimum 1.
func (d Decision) RetryAfterSeconds() int {
	s := int(math.Ceil(d.RetryAfter.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

type Limiter struct {
	store         Store
	window        time.Duration
	generalLimit  int
	analysisLimit int
}

func New(store Store, cfg Config) (*Limiter, error) {
	if cfg.Requests <= 0 {
		return nil, fmt.Errorf("rate limit requests must be positive, got %d", cfg.Requests)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", cfg.Window)
	}
	if cfg.AnalysisFraction <= 0 || cfg.AnalysisFraction > 1 {
		cfg.AnalysisFraction = 0.3
	}
	analysis := int(math.Floor(float64(cfg.Requests) * cfg.AnalysisFraction))
	if analysis < 1 {
		analysis = 1
	}
	return &Limiter{
		store:         store,
		window:        cfg.Window,
		generalLimit:  cfg.Requests,
		analysisLimit: analysis,
	}, nil
}

func (l *Limiter) Limits() (general, analysis int) {
	return l.generalLimit, l.analysisLimit
}

// Allow counts one request for client. On a store error the request is
// allowed and the error returned for logging.
func (l *Limiter) Allow(ctx context.Context, client string, analysis bool) (Decision, error) {
	kind, limit := KindGeneral, l.generalLimit
	if analysis {
		kind, limit = KindAnalysis, l.analysisLimit
	}

	count, resetIn, err := l.store.Hit(ctx, string(kind)+":"+client, l.window)
	if err != nil {
		return Decision{Allowed: true, Kind: kind, Limit: limit, Remaining: limit}, fmt.Errorf("rate limit store hit failed: %w", err)
	}

	d := Decision{
		Allowed:    count <= limit,
		Kind:       kind,
		Limit:      limit,
		Remaining:  max(limit-count, 0),
		RetryAfter: resetIn,
	}
	return d, nil
}
