package txengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultFreshnessWindow bounds how long a fetched blockhash is trusted
// before a refetch, independent of its last-valid block height.
const DefaultFreshnessWindow = 30 * time.Second

// BlockhashCache memoizes the latest blockhash. A cached record is served
// only while it is inside the freshness window and the last observed chain
// height has not passed its expiry; otherwise Get refetches. Concurrent
// callers hitting a stale cache share one in-flight refresh.
type BlockhashCache struct {
	client ChainClient
	window time.Duration
	logger *zap.Logger

	mu         sync.RWMutex
	record     *BlockhashRecord
	lastHeight uint64

	group singleflight.Group
}

func NewBlockhashCache(client ChainClient, window time.Duration, logger *zap.Logger) *BlockhashCache {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &BlockhashCache{
		client: client,
		window: window,
		logger: logger.Named("blockhash-cache"),
	}
}

// Get returns the cached record when still usable, refreshing otherwise.
func (c *BlockhashCache) Get(ctx context.Context) (BlockhashRecord, error) {
	c.mu.RLock()
	rec := c.record
	height := c.lastHeight
	c.mu.RUnlock()

	if rec != nil && c.usable(rec, height) {
		return *rec, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches a new blockhash and atomically replaces the cache. All
// callers waiting on a concurrent refresh receive the same record.
func (c *BlockhashCache) Refresh(ctx context.Context) (BlockhashRecord, error) {
	v, err, shared := c.group.Do("blockhash", func() (interface{}, error) {
		hash, lastValid, err := c.client.LatestBlockhash(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch latest blockhash: %w", err)
		}
		rec := BlockhashRecord{
			Hash:                 hash,
			LastValidBlockHeight: lastValid,
			FetchedAt:            time.Now(),
		}
		c.mu.Lock()
		c.record = &rec
		c.mu.Unlock()
		return rec, nil
	})
	if err != nil {
		return BlockhashRecord{}, err
	}
	rec := v.(BlockhashRecord)
	if shared {
		c.logger.Debug("joined in-flight blockhash refresh",
			zap.String("blockhash", rec.Hash.String()))
	}
	return rec, nil
}

// ObserveHeight feeds the latest seen chain height into the cache so Get can
// drop records whose expiry height has passed. The confirmation engine calls
// this from its poll loop.
func (c *BlockhashCache) ObserveHeight(height uint64) {
	c.mu.Lock()
	if height > c.lastHeight {
		c.lastHeight = height
	}
	c.mu.Unlock()
}

// Invalidate discards the cached record, forcing the next Get to refetch.
// Used after a consumption failure such as "blockhash not found".
func (c *BlockhashCache) Invalidate() {
	c.mu.Lock()
	c.record = nil
	c.mu.Unlock()
}

func (c *BlockhashCache) usable(rec *BlockhashRecord, observedHeight uint64) bool {
	if time.Since(rec.FetchedAt) >= c.window {
		return false
	}
	return observedHeight <= rec.LastValidBlockHeight
}
