package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	DSN      string
	MinConns int32
	MaxConns int32
}

// Pool hands out live connections to the backing store. The underlying pool
// is built lazily on first use and rebuilt once when a checked-out connection
// turns out to be stale.
type Pool struct {
	cfg PoolConfig

	open     func(ctx context.Context, cfg PoolConfig) (connPool, error)
	setup    func(ctx context.Context, c Conn) error
	register func(ctx context.Context, c Conn) error

	mu      sync.Mutex
	current atomic.Pointer[poolRef]
}

type poolRef struct {
	pool connPool
}

// NewPool returns an unopened pool. Nothing is dialed until Acquire.
func NewPool(cfg PoolConfig) *Pool {
	return &Pool{
		cfg:      cfg,
		open:     openPgxPool,
		setup:    installVector,
		register: registerVector,
	}
}

// Acquire returns a pinged connection with the vector type registered.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	ref, err := p.get(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := p.checkout(ctx, ref)
	if err == nil {
		return conn, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: acquire: %w", core.ErrStore, ctxErr)
	}

	slog.Warn("database connection failed validation, rebuilding pool", "err", err)
	ref, err = p.rebuild(ctx, ref)
	if err != nil {
		return nil, err
	}

	conn, err = p.checkout(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire after rebuild: %w", core.ErrStore, err)
	}
	return conn, nil
}

// Release hands a connection back. It never fails: a connection belonging to
// a torn-down pool is already invalid.
func (p *Pool) Release(conn Conn) {
	if conn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("release on torn-down pool ignored", "panic", r)
		}
	}()
	conn.Release()
}

// Close tears the pool down, waiting for checked-out connections to come
// back. A later Acquire builds a new one.
func (p *Pool) Close() {
	p.mu.Lock()
	ref := p.current.Swap(nil)
	p.mu.Unlock()

	if ref != nil {
		closeQuietly(ref.pool)
	}
}

func (p *Pool) get(ctx context.Context) (*poolRef, error) {
	if ref := p.current.Load(); ref != nil {
		return ref, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ref := p.current.Load(); ref != nil {
		return ref, nil
	}
	ref, err := p.build(ctx)
	if err != nil {
		return nil, err
	}
	p.current.Store(ref)
	return ref, nil
}

// rebuild replaces stale with a fresh pool. Callers that observed the same
// stale pool share a single rebuild. The stale pool is closed off the lock
// since Close waits for its checked-out connections.
func (p *Pool) rebuild(ctx context.Context, stale *poolRef) (*poolRef, error) {
	p.mu.Lock()
	if cur := p.current.Load(); cur != nil && cur != stale {
		p.mu.Unlock()
		return cur, nil
	}
	retired := p.current.CompareAndSwap(stale, nil)
	ref, err := p.build(ctx)
	if err == nil {
		p.current.Store(ref)
	}
	p.mu.Unlock()

	if retired {
		go closeQuietly(stale.pool)
	}
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (p *Pool) build(ctx context.Context) (*poolRef, error) {
	if strings.TrimSpace(p.cfg.DSN) == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is empty", core.ErrConfiguration)
	}

	cp, err := p.open(ctx, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	conn, err := cp.Acquire(ctx)
	if err != nil {
		closeQuietly(cp)
		return nil, fmt.Errorf("%w: first connection: %w", core.ErrStore, err)
	}
	err = p.setup(ctx, conn)
	p.Release(conn)
	if err != nil {
		closeQuietly(cp)
		return nil, fmt.Errorf("%w: register vector type: %w", core.ErrStore, err)
	}

	slog.Info("database pool ready", "min_conns", p.cfg.MinConns, "max_conns", p.cfg.MaxConns)
	return &poolRef{pool: cp}, nil
}

func (p *Pool) checkout(ctx context.Context, ref *poolRef) (Conn, error) {
	conn, err := ref.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		p.Release(conn)
		return nil, err
	}
	if err := p.register(ctx, conn); err != nil {
		p.Release(conn)
		return nil, err
	}
	return conn, nil
}

func closeQuietly(cp connPool) {
	defer func() { _ = recover() }()
	cp.Close()
}

type pgxConnPool struct {
	pool *pgxpool.Pool
}

func (p pgxConnPool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (p pgxConnPool) Close() { p.pool.Close() }

func openPgxPool(ctx context.Context, cfg PoolConfig) (connPool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid DATABASE_URL: %w", core.ErrConfiguration, err)
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MaxConnLifetime = 30 * time.Minute
	pc.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStore, err)
	}
	return pgxConnPool{pool: pool}, nil
}

// installVector makes sure the extension exists before registering its types.
func installVector(ctx context.Context, c Conn) error {
	if _, err := c.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}
	return registerVector(ctx, c)
}

// registerVector registers the pgvector codecs on the connection's type map
// unless this connection already has them.
func registerVector(ctx context.Context, c Conn) error {
	pc, ok := c.(*pgxpool.Conn)
	if !ok {
		return errors.New("unexpected connection type")
	}
	conn := pc.Conn()
	if _, ok := conn.TypeMap().TypeForName("vector"); ok {
		return nil
	}
	return pgxvec.RegisterTypes(ctx, conn)
}
