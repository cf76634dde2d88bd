package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nfl-roo-sim/internal/types"
	"github.com/stitts-dev/nfl-roo-sim/pkg/logger"
)

const (
	keyPrefix  = "roo-sim"
	defaultTTL = 6 * time.Hour
)

// ProjectionsCache caches completed run outputs in Redis so repeated reads
// of the same run skip the database. A nil cache is a valid no-op.
type ProjectionsCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

// NewProjectionsCache wraps a Redis client; returns nil for a nil client
func NewProjectionsCache(client *redis.Client) *ProjectionsCache {
	if client == nil {
		return nil
	}
	return &ProjectionsCache{
		client: client,
		ttl:    defaultTTL,
		log:    logger.WithComponent("projections_cache"),
	}
}

func rooKey(runID string) string {
	return fmt.Sprintf("%s:roo:%s", keyPrefix, runID)
}

func contestKey(runID string) string {
	return fmt.Sprintf("%s:contest:%s", keyPrefix, runID)
}

// SetROOProjections caches a run's projection table
func (c *ProjectionsCache) SetROOProjections(ctx context.Context, runID string, rows []types.ROOProjectionRow) {
	if c == nil {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		c.log.WithError(err).Error("Failed to marshal projections for cache")
		return
	}
	if err := c.client.Set(ctx, rooKey(runID), data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("run_id", runID).Warn("Failed to cache projections")
	}
}

// GetROOProjections returns the cached projection table, (nil, false) on miss
func (c *ProjectionsCache) GetROOProjections(ctx context.Context, runID string) ([]types.ROOProjectionRow, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, rooKey(runID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).WithField("run_id", runID).Warn("Projections cache read failed")
		}
		return nil, false
	}
	var rows []types.ROOProjectionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		c.log.WithError(err).WithField("run_id", runID).Error("Failed to unmarshal cached projections")
		return nil, false
	}
	return rows, true
}

// SetLineupSummaries caches a contest run's lineup summaries
func (c *ProjectionsCache) SetLineupSummaries(ctx context.Context, runID string, summaries []types.LineupSummary) {
	if c == nil {
		return
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		c.log.WithError(err).Error("Failed to marshal summaries for cache")
		return
	}
	if err := c.client.Set(ctx, contestKey(runID), data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("run_id", runID).Warn("Failed to cache lineup summaries")
	}
}

// GetLineupSummaries returns cached contest summaries, (nil, false) on miss
func (c *ProjectionsCache) GetLineupSummaries(ctx context.Context, runID string) ([]types.LineupSummary, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, contestKey(runID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).WithField("run_id", runID).Warn("Summaries cache read failed")
		}
		return nil, false
	}
	var summaries []types.LineupSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		c.log.WithError(err).WithField("run_id", runID).Error("Failed to unmarshal cached summaries")
		return nil, false
	}
	return summaries, true
}
