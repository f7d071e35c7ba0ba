// internal/core/database/bootstrap.go
package db

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/markdave123-py/smartassist-rag/internal/core"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

const schemaVersion = 1

// EnsureBootstrapped creates the schema on first run and verifies that the
// embedding column matches embedDim.
func EnsureBootstrapped(ctx context.Context, pool *Pool, embedDim int) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	conn, err := pool.Acquire(ctxBoot)
	if err != nil {
		return err
	}
	defer pool.Release(conn)

	var exists bool
	err = conn.QueryRow(ctxBoot, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_schema = 'rag' AND table_name = 'meta'
		)`).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: meta table check failed: %w", core.ErrStore, err)
	}

	hasVersion := false
	if exists {
		if err := conn.QueryRow(ctxBoot, `SELECT EXISTS (SELECT 1 FROM rag.meta WHERE version = $1)`, schemaVersion).Scan(&hasVersion); err != nil {
			return fmt.Errorf("%w: meta version check failed: %w", core.ErrStore, err)
		}
	}

	if !hasVersion {
		slog.Info("bootstrapping schema", "version", schemaVersion, "embed_dim", embedDim)
		if err := runBootstrap(ctxBoot, conn, embedDim); err != nil {
			return err
		}
	}

	return checkEmbeddingDim(ctxBoot, conn, embedDim)
}

func runBootstrap(ctx context.Context, conn Conn, embedDim int) error {
	script, err := renderBootstrap(embedDim)
	if err != nil {
		return err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", core.ErrStore, err)
	}
	if _, err := tx.Exec(ctx, script); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("%w: exec bootstrap: %w", core.ErrStore, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit bootstrap: %w", core.ErrStore, err)
	}
	return nil
}

func renderBootstrap(embedDim int) (string, error) {
	if embedDim <= 0 {
		return "", fmt.Errorf("%w: EMBED_DIM must be positive, got %d", core.ErrConfiguration, embedDim)
	}
	raw, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return "", fmt.Errorf("read initdb.sql: %w", err)
	}
	tmpl, err := template.New("initdb").Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("parse initdb.sql: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ EmbedDim int }{embedDim}); err != nil {
		return "", fmt.Errorf("render initdb.sql: %w", err)
	}
	return buf.String(), nil
}

// checkEmbeddingDim refuses to run against a column of another dimension so
// the store never mixes vector sizes.
func checkEmbeddingDim(ctx context.Context, conn Conn, embedDim int) error {
	var dim int
	err := conn.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'rag.embeddings'::regclass AND attname = 'embedding'`).
		Scan(&dim)
	if err != nil {
		return fmt.Errorf("%w: embedding column check failed: %w", core.ErrStore, err)
	}
	if dim != embedDim {
		return fmt.Errorf("%w: rag.embeddings stores %d-dim vectors but EMBED_DIM is %d", core.ErrConfiguration, dim, embedDim)
	}
	return nil
}
