package ai

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder is a test double that counts upstream computations and
// returns a fixed deterministic vector per text length.
type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	texts int
	delay time.Duration
}

func (c *countingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.calls++
	c.texts++
	c.mu.Unlock()

	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return []float32{float32(len(text)), 1, 2}, nil
}

func (c *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.calls++
	c.texts += len(texts)
	c.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 2}
	}
	return out, nil
}

func (c *countingEmbedder) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingEmbedder) textCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.texts
}

func TestCachingEmbedder_CacheHit(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachingEmbedder(inner, "test-model", 10)
	require.NoError(t, err)

	ctx := context.Background()

	first, err := cached.EmbedText(ctx, "breaking news")
	require.NoError(t, err)

	second, err := cached.EmbedText(ctx, "breaking news")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.callCount(), "second call should be served from cache")
	assert.Equal(t, 1, cached.Len())
}

func TestCachingEmbedder_UnitNormalized(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachingEmbedder(inner, "test-model", 10)
	require.NoError(t, err)

	vec, err := cached.EmbedText(context.Background(), "some text")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestCachingEmbedder_CallerMutationIsolated(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachingEmbedder(inner, "test-model", 10)
	require.NoError(t, err)

	ctx := context.Background()

	first, err := cached.EmbedText(ctx, "mutable")
	require.NoError(t, err)

	first[0] = 99

	second, err := cached.EmbedText(ctx, "mutable")
	require.NoError(t, err)

	assert.NotEqual(t, float32(99), second[0], "caller mutation must not reach the cache")
}

func TestCachingEmbedder_Eviction(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachingEmbedder(inner, "test-model", 2)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = cached.EmbedText(ctx, "one")
	require.NoError(t, err)
	_, err = cached.EmbedText(ctx, "two")
	require.NoError(t, err)
	_, err = cached.EmbedText(ctx, "three")
	require.NoError(t, err)

	assert.Equal(t, 2, cached.Len(), "cache must stay within capacity")

	// "one" was evicted as least recently used, so it recomputes.
	_, err = cached.EmbedText(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, 4, inner.callCount())
}

func TestCachingEmbedder_BatchUsesCache(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachingEmbedder(inner, "test-model", 10)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = cached.EmbedText(ctx, "alpha")
	require.NoError(t, err)

	vecs, err := cached.EmbedTexts(ctx, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	// One single embed plus one batch for the two misses.
	assert.Equal(t, 2, inner.callCount())
	assert.Equal(t, 3, inner.textCount())
	assert.Equal(t, 3, cached.Len())
}

func TestCachingEmbedder_BatchAllCached(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachingEmbedder(inner, "test-model", 10)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = cached.EmbedTexts(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)

	_, err = cached.EmbedTexts(ctx, []string{"beta", "alpha"})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.callCount(), "fully cached batch must not call upstream")
}

func TestCachingEmbedder_CoalescesConcurrentRequests(t *testing.T) {
	inner := &countingEmbedder{delay: 50 * time.Millisecond}
	cached, err := NewCachingEmbedder(inner, "test-model", 10)
	require.NoError(t, err)

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cached.EmbedText(ctx, "same text")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inner.callCount(), "concurrent requests for one text must coalesce")
}
