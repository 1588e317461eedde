package ai

import (
	"context"
	"encoding/hex"
	"log/slog"
	"math"

	"github.com/go-crypt/x/blake2b"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// CachingEmbedder wraps an Embedder with a bounded LRU cache keyed by model
// identifier and text content. Identical text embedded twice hits the cache
// on the second call, and concurrent requests for the same text are coalesced
// into a single upstream computation.
//
// Vectors are normalized to unit length before caching so downstream cosine
// similarity reduces to a dot product. Returned slices are copies; callers
// may mutate them freely.
type CachingEmbedder struct {
	inner   Embedder
	modelID string
	cache   *lru.Cache[string, []float32]
	group   singleflight.Group
	logger  *slog.Logger
}

// NewCachingEmbedder wraps inner with an LRU cache of the given capacity.
// The modelID becomes part of every cache key, so switching models never
// serves stale vectors.
func NewCachingEmbedder(inner Embedder, modelID string, capacity int) (*CachingEmbedder, error) {
	cache, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, err
	}

	return &CachingEmbedder{
		inner:   inner,
		modelID: modelID,
		cache:   cache,
		logger:  slog.Default().With("component", "caching-embedder"),
	}, nil
}

// EmbedText returns the cached embedding for text, computing and caching it
// on a miss. Concurrent callers for the same text share one computation.
func (e *CachingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := e.cacheKey(text)

	if vec, ok := e.cache.Get(key); ok {
		return copyVector(vec), nil
	}

	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		// Re-check: another flight may have populated the cache between
		// the miss and this call.
		if vec, ok := e.cache.Get(key); ok {
			return vec, nil
		}

		vec, err := e.inner.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}

		vec = unitNormalize(vec)
		e.cache.Add(key, vec)
		return vec, nil
	})
	if err != nil {
		e.logger.Error("embedding computation failed", "err", err)
		return nil, err
	}

	return copyVector(v.([]float32)), nil
}

// EmbedTexts returns embeddings for all texts, serving cached entries and
// batching the remaining misses into a single upstream call.
func (e *CachingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, ok := e.cache.Get(e.cacheKey(text)); ok {
			results[i] = copyVector(vec)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	e.logger.Debug("embedding cache misses", "missing", len(missing), "total", len(texts))

	computed, err := e.inner.EmbedTexts(ctx, missing)
	if err != nil {
		return nil, err
	}

	for j, idx := range missingIdx {
		vec := unitNormalize(computed[j])
		e.cache.Add(e.cacheKey(missing[j]), vec)
		results[idx] = copyVector(vec)
	}

	return results, nil
}

// Len returns the number of cached embeddings.
func (e *CachingEmbedder) Len() int {
	return e.cache.Len()
}

// Purge drops all cached embeddings.
func (e *CachingEmbedder) Purge() {
	e.cache.Purge()
}

// cacheKey derives the cache key from the model identifier and a 128-bit
// content hash of the text.
func (e *CachingEmbedder) cacheKey(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return e.modelID + ":" + hex.EncodeToString(h.Sum(nil))
}

// unitNormalize scales a vector to unit length. Zero vectors are returned
// unchanged.
func unitNormalize(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vec
	}

	norm := float32(1.0 / math.Sqrt(sumSquares))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v * norm
	}
	return out
}

func copyVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
