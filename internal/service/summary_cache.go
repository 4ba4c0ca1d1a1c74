package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aposta-be/internal/domain"
	"aposta-be/pkg/logger"
	"aposta-be/pkg/metrics"
	"aposta-be/pkg/redis"
)

// SummaryCache keeps derived bet summaries in Redis with a cache-aside
// pattern. Only derived data lives here; the bet documents themselves are
// always read from the repository. Any cache failure degrades to a
// recompute, never to an error for the caller.
type SummaryCache struct {
	redis *redis.Client
	log   *logger.Logger
}

// cachedSummary pins the summary to the calendar day it was built for: the
// pending/future split shifts at midnight even when nothing was mutated
type cachedSummary struct {
	Today   domain.Date        `json:"today"`
	Summary *domain.BetSummary `json:"summary"`
}

// NewSummaryCache creates a summary cache over an existing Redis client
func NewSummaryCache(redisClient *redis.Client, log *logger.Logger) *SummaryCache {
	return &SummaryCache{redis: redisClient, log: log}
}

// Get returns the cached summary for the bet if one exists for today
func (c *SummaryCache) Get(ctx context.Context, betID int64, today domain.Date) (*domain.BetSummary, bool) {
	key := fmt.Sprintf(redis.KeyBetSummary, betID)

	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).WithField("bet_id", betID).Warn("Summary cache read failed, recomputing")
		}
		metrics.SummaryCache.WithLabelValues("miss").Inc()
		return nil, false
	}

	var cached cachedSummary
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		c.log.WithError(err).WithField("bet_id", betID).Warn("Summary cache corrupted, recomputing")
		metrics.SummaryCache.WithLabelValues("corrupt").Inc()
		return nil, false
	}

	if cached.Today != today {
		metrics.SummaryCache.WithLabelValues("stale").Inc()
		return nil, false
	}

	metrics.SummaryCache.WithLabelValues("hit").Inc()
	return cached.Summary, true
}

// Set stores the summary. The write is synchronous: a deferred write could
// land after a later Invalidate and resurrect a pre-mutation summary for
// the rest of the TTL.
func (c *SummaryCache) Set(ctx context.Context, betID int64, today domain.Date, summary *domain.BetSummary) {
	data, err := json.Marshal(cachedSummary{Today: today, Summary: summary})
	if err != nil {
		c.log.WithError(err).WithField("bet_id", betID).Error("Failed to encode summary for caching")
		return
	}

	key := fmt.Sprintf(redis.KeyBetSummary, betID)
	if err := c.redis.Set(ctx, key, string(data), redis.TTLBetSummary); err != nil {
		c.log.WithError(err).WithField("bet_id", betID).Warn("Failed to cache summary")
	}
}

// Invalidate drops the cached summary after any mutation of the bet
func (c *SummaryCache) Invalidate(betID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := fmt.Sprintf(redis.KeyBetSummary, betID)
	if err := c.redis.Delete(ctx, key); err != nil {
		c.log.WithError(err).WithField("bet_id", betID).Warn("Failed to invalidate summary cache")
	}
}
