package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns     = 25
	defaultMinConns     = 2
	defaultConnLifetime = time.Hour
	defaultConnIdleTime = 30 * time.Minute
	defaultPingTimeout  = 5 * time.Second
)

// PoolOptions tunes the pgx pool. Zero values fall back to package defaults.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

// NewPostgresPool creates a pgxpool backed connection pool and validates it with a ping.
func NewPostgresPool(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("db: empty DSN")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("db: parse dsn: %w", err)
	}

	cfg.MaxConns = defaultMaxConns
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MinConns = defaultMinConns
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}
	cfg.MaxConnLifetime = defaultConnLifetime
	cfg.MaxConnIdleTime = defaultConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	return pool, nil
}
