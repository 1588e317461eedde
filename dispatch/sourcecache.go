package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/newswire/storage"
)

// DefaultRefreshInterval is how often the source cache reloads when no
// interval is configured.
const DefaultRefreshInterval = 60 * time.Second

// SourceCache holds an in-memory snapshot of the active chat ids so the hot
// path can admit messages without a storage read. The snapshot is replaced
// atomically on refresh; readers always see a complete set. A failed refresh
// keeps the previous snapshot.
type SourceCache struct {
	sources  storage.SourceRepository
	interval time.Duration
	snapshot atomic.Pointer[map[int64]struct{}]
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSourceCache creates a cache over the source repository. An interval of
// zero or less selects DefaultRefreshInterval. The cache starts empty; call
// Refresh or Start to load it.
func NewSourceCache(sources storage.SourceRepository, interval time.Duration) *SourceCache {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &SourceCache{
		sources:  sources,
		interval: interval,
		logger:   slog.Default().With("component", "source-cache"),
	}
}

// Refresh reloads the active chat id set from storage and swaps it in.
// On error the previous snapshot stays in place.
func (c *SourceCache) Refresh(ctx context.Context) error {
	active, err := c.sources.ListActive(ctx)
	if err != nil {
		c.logger.Error("source cache refresh failed, keeping previous snapshot", "err", err)
		return err
	}

	set := make(map[int64]struct{}, len(active))
	for _, s := range active {
		set[s.ChatID] = struct{}{}
	}
	c.snapshot.Store(&set)

	c.logger.Debug("source cache refreshed", "active_sources", len(set))
	return nil
}

// Contains reports whether chatID belongs to an active source as of the last
// refresh. Before the first refresh it reports false for every chat id.
func (c *SourceCache) Contains(chatID int64) bool {
	set := c.snapshot.Load()
	if set == nil {
		return false
	}
	_, ok := (*set)[chatID]
	return ok
}

// Len returns the number of chat ids in the current snapshot.
func (c *SourceCache) Len() int {
	set := c.snapshot.Load()
	if set == nil {
		return 0
	}
	return len(*set)
}

// Start performs an initial refresh and begins periodic refreshing in the
// background until Stop is called or ctx is cancelled. The initial refresh
// error is returned; later failures are logged and retried on the next tick.
func (c *SourceCache) Start(ctx context.Context) error {
	err := c.Refresh(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return err // already running
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	done := c.done
	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				_ = c.Refresh(runCtx)
			}
		}
	}()

	return err
}

// Stop halts the periodic refresh and waits for the background loop to exit.
// The current snapshot remains readable after Stop.
func (c *SourceCache) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
