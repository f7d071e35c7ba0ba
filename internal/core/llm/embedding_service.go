package llm

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// maxConcurrentBatches bounds in-flight requests to the embedding backend.
const maxConcurrentBatches = 4

// BatchEmbedder is one embedding backend request.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// EmbeddingService adapts a backend to core.EmbeddingProvider: inputs are
// split into sub-batches embedded concurrently, every vector is checked
// against the configured dimension, and results come back in input order.
type EmbeddingService struct {
	backend   BatchEmbedder
	dim       int
	batchSize int
	cache     EmbedCache
}

// NewEmbeddingService validates dim and batchSize. cache may be nil.
func NewEmbeddingService(backend BatchEmbedder, dim, batchSize int, cache EmbedCache) (*EmbeddingService, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: no embedding backend", core.ErrConfiguration)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d", core.ErrConfiguration, dim)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: embedding batch size must be positive, got %d", core.ErrConfiguration, batchSize)
	}
	return &EmbeddingService{backend: backend, dim: dim, batchSize: batchSize, cache: cache}, nil
}

func (s *EmbeddingService) Dimension() int { return s.dim }

func (s *EmbeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := s.cached(ctx, texts)

	var missIdx []int
	for i, v := range out {
		if v == nil {
			missIdx = append(missIdx, i)
		}
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}

	fresh, err := s.embedAll(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = fresh[j]
	}

	if s.cache != nil {
		if err := s.cache.SetMany(ctx, s.backend.Model(), missTexts, fresh); err != nil {
			slog.Warn("embedding cache write failed", "err", err)
		}
	}
	return out, nil
}

// cached returns hits from the cache; a cache failure counts as all misses.
func (s *EmbeddingService) cached(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	if s.cache == nil {
		return out
	}
	hits, err := s.cache.GetMany(ctx, s.backend.Model(), texts)
	if err != nil || len(hits) != len(texts) {
		if err != nil {
			slog.Warn("embedding cache read failed", "err", err)
		}
		return out
	}
	for i, v := range hits {
		if len(v) == s.dim {
			out[i] = v
		}
	}
	return out
}

func (s *EmbeddingService) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)

	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := s.backend.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("%w: %w", core.ErrEmbeddingService, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("%w: got %d vectors for %d texts", core.ErrEmbeddingService, len(vecs), end-start)
			}
			for k, v := range vecs {
				if len(v) != s.dim {
					return fmt.Errorf("%w: vector %d has dimension %d, want %d", core.ErrEmbeddingService, start+k, len(v), s.dim)
				}
				out[start+k] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*EmbeddingService)(nil)
