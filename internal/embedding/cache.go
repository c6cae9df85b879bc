package embedding

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/kura/internal/vector"
)

// EmbeddingCache is an LRU cache for embeddings keyed by text.
type EmbeddingCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewEmbeddingCache creates a new cache with the given capacity.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &EmbeddingCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for key if present and marks it most recently used.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the oldest entry if at capacity.
func (c *EmbeddingCache) Set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	entry := &cacheEntry{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CachedEmbedder serves repeated texts from an LRU cache and forwards misses to the wrapped
// embedder. Cached vectors are returned as copies.
type CachedEmbedder struct {
	inner Embedder
	cache *EmbeddingCache
}

// NewCachedEmbedder wraps inner with an LRU cache of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: NewEmbeddingCache(capacity)}
}

// Embed returns the cached embedding for text or computes and stores it.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return cloneVector(v), nil
	}
	v, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, cloneVector(v))
	return v, nil
}

// EmbedBatch sends only the cache misses to the wrapped embedder, in one batch.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if v, ok := e.cache.Get(text); ok {
			out[i] = cloneVector(v)
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	embedded, err := e.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", vector.ErrEmbeddingMismatch, len(embedded), len(missTexts))
	}
	for j, v := range embedded {
		out[missIdx[j]] = v
		e.cache.Set(missTexts[j], cloneVector(v))
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close closes the wrapped embedder.
func (e *CachedEmbedder) Close() error {
	return e.inner.Close()
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
