package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/smartassist-rag/internal/config"
	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
)

const testDim = 3

// newTestClient connects to RAG_TEST_DATABASE_URL, a throwaway Postgres
// with pgvector, and skips otherwise.
func newTestClient(t *testing.T) *DatabaseClient {
	t.Helper()
	dsn := os.Getenv("RAG_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("RAG_TEST_DATABASE_URL not set")
	}

	c, err := NewDatabaseClient(context.Background(), &config.Config{
		DatabaseURL: dsn,
		DBMinConns:  1,
		DBMaxConns:  4,
		EmbedDim:    testDim,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSaveChunks_ReplacesAtomically(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	doc := "test-" + t.Name()

	require.NoError(t, c.SaveChunks(ctx, doc, []string{"a", "b", "c"}, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}))
	require.NoError(t, c.SaveChunks(ctx, doc, []string{"x", "y"}, [][]float32{{1, 1, 0}, {0, 1, 1}}))

	chunks, err := c.ChunksByDocument(ctx, doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, "x", chunks[0].Text)
	assert.Equal(t, 1, chunks[1].ChunkIndex)

	err = c.SaveChunks(ctx, doc, []string{"bad"}, [][]float32{{1, 0}})
	require.ErrorIs(t, err, core.ErrInvalidInput)

	chunks, err = c.ChunksByDocument(ctx, doc)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestSaveChunks_CopyFailureKeepsPriorChunks(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	doc := "test-" + t.Name()

	require.NoError(t, c.SaveChunks(ctx, doc, []string{"kept-a", "kept-b"}, [][]float32{{1, 0, 0}, {0, 1, 0}}))

	// Postgres text columns reject NUL bytes, so the COPY fails after the DELETE ran.
	err := c.SaveChunks(ctx, doc, []string{"fine", "bro\x00ken"}, [][]float32{{0, 0, 1}, {1, 1, 1}})
	require.ErrorIs(t, err, core.ErrStore)

	chunks, err := c.ChunksByDocument(ctx, doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "kept-a", chunks[0].Text)
	assert.Equal(t, "kept-b", chunks[1].Text)
	assert.Equal(t, []float32{0, 1, 0}, chunks[1].Embedding)
}

func TestSearch_OrdersByCosineScore(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	doc := "test-" + t.Name()

	require.NoError(t, c.SaveChunks(ctx, doc, []string{"near", "far"}, [][]float32{{1, 0, 0}, {0, 0, 1}}))

	res, err := c.Search(ctx, []float32{1, 0, 0}, 50)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)

	_, err = c.Search(ctx, []float32{1, 0}, 5)
	require.ErrorIs(t, err, core.ErrInvalidInput)

	for _, k := range []int{0, -1} {
		_, err = c.Search(ctx, []float32{1, 0, 0}, k)
		require.ErrorIs(t, err, core.ErrInvalidInput, "top_k %d", k)
	}
}

func TestSearch_RejectsNonPositiveTopKBeforeDialing(t *testing.T) {
	h := &poolHarness{}
	c := &DatabaseClient{pool: newTestPool(h, "postgres://test"), dim: testDim}

	res, err := c.Search(context.Background(), []float32{1, 0, 0}, 0)
	require.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Nil(t, res)
	assert.Zero(t, h.count())
}

func TestSyncLog_RoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	id := "test-" + t.Name()

	e, err := c.GetSyncEntry(ctx, id+"-missing")
	require.NoError(t, err)
	assert.Nil(t, e)

	require.NoError(t, c.UpsertSyncEntry(ctx, models.SyncLogEntry{ExternalFileID: id, Filename: "a.pdf", Checksum: "v1"}))
	require.NoError(t, c.UpsertSyncEntry(ctx, models.SyncLogEntry{ExternalFileID: id, Filename: "a.pdf", Checksum: "v2"}))

	e, err = c.GetSyncEntry(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "v2", e.Checksum)
	assert.False(t, e.SyncedAt.IsZero())
}
