package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// fakeBackend encodes each text's position in the original input so order
// can be checked after reassembly.
type fakeBackend struct {
	mu      sync.Mutex
	dim     int
	calls   [][]string
	failOn  string
	badSize bool
}

func (b *fakeBackend) Model() string { return "fake-embed" }

func (b *fakeBackend) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	b.mu.Lock()
	b.calls = append(b.calls, append([]string(nil), texts...))
	b.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if t == b.failOn {
			return nil, errors.New("backend exploded")
		}
		dim := b.dim
		if b.badSize {
			dim--
		}
		v := make([]float32, dim)
		var n int
		_, _ = fmt.Sscanf(t, "t%d", &n)
		v[0] = float32(n)
		out[i] = v
	}
	return out, nil
}

type mapCache struct {
	data   map[string][]float32
	getErr error
	sets   int
}

func (c *mapCache) GetMany(_ context.Context, model string, texts []string) ([][]float32, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = c.data[model+"|"+t]
	}
	return out, nil
}

func (c *mapCache) SetMany(_ context.Context, model string, texts []string, vecs [][]float32) error {
	c.sets++
	for i, t := range texts {
		c.data[model+"|"+t] = vecs[i]
	}
	return nil
}

func inputs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("t%d", i)
	}
	return out
}

func TestNewEmbeddingService_Validation(t *testing.T) {
	_, err := NewEmbeddingService(nil, 3, 10, nil)
	require.ErrorIs(t, err, core.ErrConfiguration)
	_, err = NewEmbeddingService(&fakeBackend{dim: 3}, 0, 10, nil)
	require.ErrorIs(t, err, core.ErrConfiguration)
	_, err = NewEmbeddingService(&fakeBackend{dim: 3}, 3, 0, nil)
	require.ErrorIs(t, err, core.ErrConfiguration)
}

func TestEmbedTexts_PreservesOrderAcrossBatches(t *testing.T) {
	backend := &fakeBackend{dim: 4}
	svc, err := NewEmbeddingService(backend, 4, 7, nil)
	require.NoError(t, err)

	vecs, err := svc.EmbedTexts(context.Background(), inputs(50))
	require.NoError(t, err)
	require.Len(t, vecs, 50)
	for i, v := range vecs {
		assert.Len(t, v, 4)
		assert.Equal(t, float32(i), v[0])
	}
	assert.Len(t, backend.calls, 8)
	for _, c := range backend.calls {
		assert.LessOrEqual(t, len(c), 7)
	}
	assert.Equal(t, 4, svc.Dimension())
}

func TestEmbedTexts_Empty(t *testing.T) {
	backend := &fakeBackend{dim: 2}
	svc, err := NewEmbeddingService(backend, 2, 10, nil)
	require.NoError(t, err)

	vecs, err := svc.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Empty(t, backend.calls)
}

func TestEmbedTexts_WrongDimension(t *testing.T) {
	svc, err := NewEmbeddingService(&fakeBackend{dim: 4, badSize: true}, 4, 10, nil)
	require.NoError(t, err)

	_, err = svc.EmbedTexts(context.Background(), inputs(3))
	require.ErrorIs(t, err, core.ErrEmbeddingService)
	assert.Contains(t, err.Error(), "dimension 3, want 4")
}

func TestEmbedTexts_BackendFailure(t *testing.T) {
	svc, err := NewEmbeddingService(&fakeBackend{dim: 2, failOn: "t12"}, 2, 5, nil)
	require.NoError(t, err)

	_, err = svc.EmbedTexts(context.Background(), inputs(20))
	require.ErrorIs(t, err, core.ErrEmbeddingService)
	assert.Contains(t, err.Error(), "backend exploded")
}

func TestEmbedTexts_UsesCache(t *testing.T) {
	backend := &fakeBackend{dim: 2}
	cache := &mapCache{data: map[string][]float32{"fake-embed|t1": {42, 42}}}
	svc, err := NewEmbeddingService(backend, 2, 10, cache)
	require.NoError(t, err)

	vecs, err := svc.EmbedTexts(context.Background(), inputs(3))
	require.NoError(t, err)
	assert.Equal(t, []float32{42, 42}, vecs[1])
	assert.Equal(t, float32(2), vecs[2][0])
	require.Len(t, backend.calls, 1)
	assert.Equal(t, []string{"t0", "t2"}, backend.calls[0])
	assert.Equal(t, 1, cache.sets)

	_, err = svc.EmbedTexts(context.Background(), inputs(3))
	require.NoError(t, err)
	assert.Len(t, backend.calls, 1, "second call should be served from cache")
}

func TestEmbedTexts_CacheFailureFallsThrough(t *testing.T) {
	backend := &fakeBackend{dim: 2}
	cache := &mapCache{data: map[string][]float32{}, getErr: errors.New("redis down")}
	svc, err := NewEmbeddingService(backend, 2, 10, cache)
	require.NoError(t, err)

	vecs, err := svc.EmbedTexts(context.Background(), inputs(2))
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Len(t, backend.calls, 1)
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	got, ok := decodeVector(encodeVector(v))
	require.True(t, ok)
	assert.Equal(t, v, got)

	_, ok = decodeVector([]byte{1, 2, 3})
	assert.False(t, ok)

	assert.Equal(t, cacheKey("m", "hello"), cacheKey("m", "hello"))
	assert.NotEqual(t, cacheKey("m", "hello"), cacheKey("other", "hello"))
}
