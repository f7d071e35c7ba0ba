package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// Conn is a connection checked out of the Pool. The caller owns it
// exclusively until it is handed back with Pool.Release.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Release()
}

// connPool is the bounded pool the Pool wraps and rebuilds.
type connPool interface {
	Acquire(ctx context.Context) (Conn, error)
	Close()
}

var (
	_ Conn          = (*pgxpool.Conn)(nil)
	_ core.DbClient = (*DatabaseClient)(nil)
)
