package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
	"github.com/poiesic/newswire/storage/badger"
)

// failingSourceRepo injects ListActive failures on top of a real repository.
type failingSourceRepo struct {
	storage.SourceRepository
	fail bool
}

func (r *failingSourceRepo) ListActive(ctx context.Context) ([]*core.Source, error) {
	if r.fail {
		return nil, errors.New("storage unavailable")
	}
	return r.SourceRepository.ListActive(ctx)
}

func TestSourceCacheRefresh(t *testing.T) {
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	for _, chatID := range []int64{42, 43} {
		_, _, err := repos.Sources.GetOrCreate(ctx, chatID, core.SourceHint{})
		require.NoError(t, err)
	}

	cache := NewSourceCache(repos.Sources, time.Minute)

	// Empty until the first refresh.
	assert.False(t, cache.Contains(42))
	assert.Equal(t, 0, cache.Len())

	require.NoError(t, cache.Refresh(ctx))
	assert.True(t, cache.Contains(42))
	assert.True(t, cache.Contains(43))
	assert.False(t, cache.Contains(99))
	assert.Equal(t, 2, cache.Len())

	// Deactivation takes effect on the next refresh, not before.
	require.NoError(t, repos.Sources.SetActive(ctx, 43, false))
	assert.True(t, cache.Contains(43))

	require.NoError(t, cache.Refresh(ctx))
	assert.False(t, cache.Contains(43))
	assert.Equal(t, 1, cache.Len())
}

func TestSourceCacheRefreshFailure_KeepsSnapshot(t *testing.T) {
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	_, _, err = repos.Sources.GetOrCreate(ctx, 42, core.SourceHint{})
	require.NoError(t, err)

	failing := &failingSourceRepo{SourceRepository: repos.Sources}
	cache := NewSourceCache(failing, time.Minute)

	require.NoError(t, cache.Refresh(ctx))
	require.True(t, cache.Contains(42))

	failing.fail = true
	assert.Error(t, cache.Refresh(ctx))

	// The previous snapshot survives the failed refresh.
	assert.True(t, cache.Contains(42))
	assert.Equal(t, 1, cache.Len())
}

func TestSourceCacheStart_PeriodicRefresh(t *testing.T) {
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()
	cache := NewSourceCache(repos.Sources, 10*time.Millisecond)

	require.NoError(t, cache.Start(ctx))
	defer cache.Stop()

	// A source registered after Start shows up via the background refresh.
	_, _, err = repos.Sources.GetOrCreate(ctx, 42, core.SourceHint{})
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for !cache.Contains(42) {
		select {
		case <-deadline:
			t.Fatal("cache never picked up the new source")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSourceCacheStop_Idempotent(t *testing.T) {
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { repos.Close(); backend.Close() }()

	cache := NewSourceCache(repos.Sources, time.Minute)
	require.NoError(t, cache.Start(context.Background()))

	cache.Stop()
	cache.Stop() // second stop is a no-op

	// Snapshot remains readable after Stop.
	assert.Equal(t, 0, cache.Len())
}

func TestSourceCacheDefaultInterval(t *testing.T) {
	cache := NewSourceCache(nil, 0)
	assert.Equal(t, DefaultRefreshInterval, cache.interval)
}
