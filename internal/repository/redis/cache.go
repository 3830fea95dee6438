package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/orihero/aish-sub002/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	bundleCachePrefix = "bundle:"
	bundleCacheTTL    = 5 * time.Minute
)

// BundleCache caches application bundles read from the job board
type BundleCache struct {
	client *Client
	next   domain.ApplicationRepository
	ttl    time.Duration
}

// NewBundleCache wraps an application repository with a read-through cache
func NewBundleCache(client *Client, next domain.ApplicationRepository) *BundleCache {
	return &BundleCache{client: client, next: next, ttl: bundleCacheTTL}
}

type cachedBundle struct {
	Application *domain.Application `json:"application"`
	Vacancy     *domain.Vacancy     `json:"vacancy"`
	Resume      *domain.Resume      `json:"resume"`
}

// GetBundle serves from the cache and falls back to the wrapped repository.
// Cache failures are logged and never fail the read.
func (c *BundleCache) GetBundle(ctx context.Context, applicationID string) (*domain.ApplicationBundle, error) {
	key := bundleCachePrefix + applicationID

	data, err := c.client.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cached cachedBundle
		if err := json.Unmarshal(data, &cached); err == nil {
			return &domain.ApplicationBundle{Application: cached.Application, Vacancy: cached.Vacancy, Resume: cached.Resume}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("application_id", applicationID).Msg("bundle cache read failed")
	}

	bundle, err := c.next.GetBundle(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, key, bundle); err != nil {
		log.Warn().Err(err).Str("application_id", applicationID).Msg("bundle cache write failed")
	}
	return bundle, nil
}

func (c *BundleCache) set(ctx context.Context, key string, b *domain.ApplicationBundle) error {
	data, err := json.Marshal(cachedBundle{Application: b.Application, Vacancy: b.Vacancy, Resume: b.Resume})
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}
	return c.client.rdb.Set(ctx, key, data, c.ttl).Err()
}
