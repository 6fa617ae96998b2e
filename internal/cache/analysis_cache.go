package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	redisv9 "github.com/redis/go-redis/v9"

	"claim-evaluator/internal/model"
)

const latestAnalysisKey = "claims:analysis:latest"

// AnalysisCache holds the most recent ClaimsAnalysis in Redis.
type AnalysisCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewAnalysisCache(client *redisv9.Client, ttl time.Duration) *AnalysisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnalysisCache{client: client, ttl: ttl}
}

// GetLatest reports ok=false on a cache miss.
func (c *AnalysisCache) GetLatest(ctx context.Context) (*model.ClaimsAnalysis, bool, error) {
	raw, err := c.client.Get(ctx, latestAnalysisKey).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get latest analysis failed: %w", err)
	}

	var analysis model.ClaimsAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached analysis failed: %w", err)
	}
	return &analysis, true, nil
}

// SetLatest stores analysis unless the cached entry is newer, so a reader
// filling the cache from a stale database read cannot overwrite a fresher
// write-through.
func (c *AnalysisCache) SetLatest(ctx context.Context, analysis *model.ClaimsAnalysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis cache failed: %w", err)
	}

	txf := func(tx *redisv9.Tx) error {
		raw, err := tx.Get(ctx, latestAnalysisKey).Bytes()
		if err != nil && !errors.Is(err, redisv9.Nil) {
			return err
		}
		if err == nil {
			var cached model.ClaimsAnalysis
			if json.Unmarshal(raw, &cached) == nil && newer(&cached, analysis) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, latestAnalysisKey, payload, c.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxSetRetries; i++ {
		err = c.client.Watch(ctx, txf, latestAnalysisKey)
		if !errors.Is(err, redisv9.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("redis set latest analysis failed: %w", err)
	}
	return nil
}

const maxSetRetries = 3

// newer orders analyses by creation time, then by their time-ordered ids.
func newer(a, b *model.ClaimsAnalysis) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
