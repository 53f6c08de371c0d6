// Package cache keeps the latest reconciliation report per period in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
)

const keyPrefix = "recon:report:"

// ReportCache implements adapter.ReportCache on Redis, storing reports as JSON.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ adapter.ReportCache = (*ReportCache)(nil)

// NewReportCache creates a report cache. A zero ttl keeps entries until overwritten.
func NewReportCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ReportCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached report, or nil on a miss.
func (c *ReportCache) Get(ctx context.Context, periodKey string) (*entity.ReconciliationReport, error) {
	data, err := c.client.Get(ctx, keyPrefix+periodKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("report cache miss", zap.String("period", periodKey))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached report: %w", err)
	}

	var report entity.ReconciliationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return &report, nil
}

// Set replaces the cached report for the period.
func (c *ReportCache) Set(ctx context.Context, periodKey string, report *entity.ReconciliationReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+periodKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}

	c.logger.Debug("report cached",
		zap.String("period", periodKey),
		zap.Int("exceptions", len(report.Exceptions)),
	)
	return nil
}
