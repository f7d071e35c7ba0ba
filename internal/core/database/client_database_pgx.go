package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/smartassist-rag/internal/config"
	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
)

type DatabaseClient struct {
	pool *Pool
	dim  int
}

// NewDatabaseClient builds the pool, bootstraps the schema and checks the
// embedding dimension. It fails fast on a missing DATABASE_URL.
func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: database client configuration is nil", core.ErrConfiguration)
	}

	pool := NewPool(PoolConfig{
		DSN:      cfg.DatabaseURL,
		MinConns: int32(cfg.DBMinConns),
		MaxConns: int32(cfg.DBMaxConns),
	})

	if err := EnsureBootstrapped(ctx, pool, cfg.EmbedDim); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{pool: pool, dim: cfg.EmbedDim}, nil
}

func (c *DatabaseClient) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

func (c *DatabaseClient) withConn(ctx context.Context, fn func(conn Conn) error) error {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.pool.Release(conn)
	return fn(conn)
}

// Implementing the vector store

// SaveChunks deletes every chunk of documentID and inserts the new set in one
// transaction. On any failure the prior chunks stay untouched.
func (c *DatabaseClient) SaveChunks(ctx context.Context, documentID string, chunks []string, embeddings [][]float32) error {
	if documentID == "" {
		return fmt.Errorf("%w: document id is empty", core.ErrInvalidInput)
	}
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks but %d embeddings", core.ErrInvalidInput, len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: refusing to replace %s with zero chunks", core.ErrInvalidInput, documentID)
	}
	for i, e := range embeddings {
		if len(e) != c.dim {
			return fmt.Errorf("%w: embedding %d has dimension %d, want %d", core.ErrInvalidInput, i, len(e), c.dim)
		}
	}

	rows := make([][]any, len(chunks))
	for i := range chunks {
		rows[i] = []any{documentID, i, chunks[i], pgvector.NewVector(embeddings[i])}
	}

	return c.withConn(ctx, func(conn Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("%w: begin tx: %w", core.ErrStore, err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if _, err := tx.Exec(ctx, `DELETE FROM rag.embeddings WHERE document_id = $1`, documentID); err != nil {
			return fmt.Errorf("%w: delete chunks: %w", core.ErrStore, err)
		}

		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"rag", "embeddings"},
			[]string{"document_id", "chunk_index", "chunk_text", "embedding"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("%w: insert chunks: %w", core.ErrStore, err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("%w: inserted %d of %d chunks", core.ErrStore, n, len(rows))
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("%w: commit chunks: %w", core.ErrStore, err)
		}
		return nil
	})
}

// Search returns the topK chunks closest to queryEmbedding by cosine distance,
// scored as 1 - distance.
func (c *DatabaseClient) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", core.ErrInvalidInput, topK)
	}
	if len(queryEmbedding) != c.dim {
		return nil, fmt.Errorf("%w: query embedding has dimension %d, want %d", core.ErrInvalidInput, len(queryEmbedding), c.dim)
	}

	const q = `
		SELECT document_id, chunk_text, 1 - (embedding <=> $1) AS score
		FROM rag.embeddings
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	vec := pgvector.NewVector(queryEmbedding)

	var out []models.SearchResult
	err := c.withConn(ctx, func(conn Conn) error {
		rows, err := conn.Query(ctx, q, vec, topK)
		if err != nil {
			return fmt.Errorf("%w: search: %w", core.ErrStore, err)
		}
		defer rows.Close()

		for rows.Next() {
			var r models.SearchResult
			if err := rows.Scan(&r.DocumentID, &r.ChunkText, &r.Score); err != nil {
				return fmt.Errorf("%w: scan search row: %w", core.ErrStore, err)
			}
			out = append(out, r)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: iterate search rows: %w", core.ErrStore, err)
		}
		return nil
	})
	return out, err
}

func (c *DatabaseClient) ChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	const q = `
		SELECT document_id, chunk_index, chunk_text, embedding
		FROM rag.embeddings
		WHERE document_id = $1
		ORDER BY chunk_index ASC
	`
	var out []models.DocumentChunk
	err := c.withConn(ctx, func(conn Conn) error {
		rows, err := conn.Query(ctx, q, documentID)
		if err != nil {
			return fmt.Errorf("%w: chunks by document: %w", core.ErrStore, err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				ch  models.DocumentChunk
				emb pgvector.Vector
			)
			if err := rows.Scan(&ch.DocumentID, &ch.ChunkIndex, &ch.Text, &emb); err != nil {
				return fmt.Errorf("%w: scan chunk: %w", core.ErrStore, err)
			}
			ch.Embedding = emb.Slice()
			out = append(out, ch)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: iterate chunks: %w", core.ErrStore, err)
		}
		return nil
	})
	return out, err
}

func (c *DatabaseClient) ListDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	const q = `
		SELECT document_id, count(*) AS chunk_count
		FROM rag.embeddings
		GROUP BY document_id
		ORDER BY document_id
	`
	var out []models.DocumentSummary
	err := c.withConn(ctx, func(conn Conn) error {
		rows, err := conn.Query(ctx, q)
		if err != nil {
			return fmt.Errorf("%w: list documents: %w", core.ErrStore, err)
		}
		defer rows.Close()

		for rows.Next() {
			var d models.DocumentSummary
			if err := rows.Scan(&d.DocumentID, &d.ChunkCount); err != nil {
				return fmt.Errorf("%w: scan document: %w", core.ErrStore, err)
			}
			out = append(out, d)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: iterate documents: %w", core.ErrStore, err)
		}
		return nil
	})
	return out, err
}

// Implementing the room reference table

func (c *DatabaseClient) ListRooms(ctx context.Context) ([]models.Room, error) {
	const q = `SELECT id, name, location, capacity FROM rooms ORDER BY name`

	var out []models.Room
	err := c.withConn(ctx, func(conn Conn) error {
		rows, err := conn.Query(ctx, q)
		if err != nil {
			return fmt.Errorf("%w: list rooms: %w", core.ErrStore, err)
		}
		defer rows.Close()

		for rows.Next() {
			var r models.Room
			if err := rows.Scan(&r.ID, &r.Name, &r.Location, &r.Capacity); err != nil {
				return fmt.Errorf("%w: scan room: %w", core.ErrStore, err)
			}
			out = append(out, r)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: iterate rooms: %w", core.ErrStore, err)
		}
		return nil
	})
	return out, err
}

// Implementing the sync log

func (c *DatabaseClient) GetSyncEntry(ctx context.Context, externalFileID string) (*models.SyncLogEntry, error) {
	const q = `
		SELECT drive_file_id, filename, checksum, synced_at
		FROM rag.drive_sync_log
		WHERE drive_file_id = $1
	`
	var e models.SyncLogEntry
	err := c.withConn(ctx, func(conn Conn) error {
		return conn.QueryRow(ctx, q, externalFileID).Scan(&e.ExternalFileID, &e.Filename, &e.Checksum, &e.SyncedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, core.ErrStore) || errors.Is(err, core.ErrConfiguration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get sync entry: %w", core.ErrStore, err)
	}
	return &e, nil
}

func (c *DatabaseClient) UpsertSyncEntry(ctx context.Context, entry models.SyncLogEntry) error {
	const q = `
		INSERT INTO rag.drive_sync_log (drive_file_id, filename, checksum, synced_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (drive_file_id) DO UPDATE
		SET filename = EXCLUDED.filename, checksum = EXCLUDED.checksum, synced_at = now()
	`
	return c.withConn(ctx, func(conn Conn) error {
		if _, err := conn.Exec(ctx, q, entry.ExternalFileID, entry.Filename, entry.Checksum); err != nil {
			return fmt.Errorf("%w: upsert sync entry: %w", core.ErrStore, err)
		}
		return nil
	})
}
