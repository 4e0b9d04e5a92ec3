// Package embedding provides text embeddings with memoisation and an optional
// persistent vector store.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/metrics"
)

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store persists vectors by text.
type Store interface {
	Get(ctx context.Context, text string) ([]float32, bool, error)
	Set(ctx context.Context, text string, vec []float32) error
}

// Cosine returns the cosine similarity of a and b, 0 for empty or mismatched
// vectors.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Mean averages vectors of equal length.
func Mean(vecs [][]float32) ([]float32, error) {
	if len(vecs) == 0 {
		return nil, errors.New("no vectors to average")
	}
	out := make([]float32, len(vecs[0]))
	for _, v := range vecs {
		if len(v) != len(out) {
			return nil, fmt.Errorf("vector length mismatch: %d != %d", len(v), len(out))
		}
		for i := range v {
			out[i] += v[i]
		}
	}
	n := float32(len(vecs))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}

// Cached memoises an Embedder in memory and, when a Store is configured,
// across restarts. Store failures are logged and never fail a lookup.
type Cached struct {
	base   Embedder
	store  Store
	limit  int
	logger *zap.Logger

	mu  sync.RWMutex
	mem map[string][]float32
}

// NewCached wraps base. limit bounds the in-memory map; once full, new vectors
// are returned but not kept. A nil store disables persistence.
func NewCached(base Embedder, store Store, limit int, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{base: base, store: store, limit: limit, logger: logger, mem: make(map[string][]float32)}
}

func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	missingIdx := make(map[string][]int)

	c.mu.RLock()
	for i, text := range texts {
		if vec, ok := c.mem[text]; ok {
			out[i] = vec
			metrics.EmbeddingLookups.WithLabelValues("memory").Inc()
			continue
		}
		if _, seen := missingIdx[text]; !seen {
			missing = append(missing, text)
		}
		missingIdx[text] = append(missingIdx[text], i)
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return out, nil
	}

	var toCompute []string
	for _, text := range missing {
		if c.store == nil {
			toCompute = append(toCompute, text)
			continue
		}
		vec, ok, err := c.store.Get(ctx, text)
		if err != nil {
			c.logger.Warn("embedding store lookup failed", zap.Error(err))
		}
		if !ok || err != nil {
			toCompute = append(toCompute, text)
			continue
		}
		metrics.EmbeddingLookups.WithLabelValues("store").Inc()
		c.remember(text, vec)
		for _, i := range missingIdx[text] {
			out[i] = vec
		}
	}

	if len(toCompute) == 0 {
		return out, nil
	}

	vecs, err := c.base.Embed(ctx, toCompute)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(toCompute) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(toCompute))
	}

	for j, text := range toCompute {
		metrics.EmbeddingLookups.WithLabelValues("computed").Inc()
		c.remember(text, vecs[j])
		if c.store != nil {
			if err := c.store.Set(ctx, text, vecs[j]); err != nil {
				c.logger.Warn("embedding store write failed", zap.Error(err))
			}
		}
		for _, i := range missingIdx[text] {
			out[i] = vecs[j]
		}
	}

	return out, nil
}

func (c *Cached) remember(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit > 0 && len(c.mem) >= c.limit {
		return
	}
	c.mem[text] = vec
}

// Similarity embeds a and b and returns their cosine similarity.
func Similarity(ctx context.Context, e Embedder, a, b string) (float64, error) {
	vecs, err := e.Embed(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	return Cosine(vecs[0], vecs[1]), nil
}
