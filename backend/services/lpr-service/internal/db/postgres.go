package db

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"

	libdb "lprwatch/backend/libs/db"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewPostgres connects to Postgres using shared library helper.
func NewPostgres(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	return libdb.NewPostgresPool(ctx, dsn, libdb.PoolOptions{MaxConns: maxConns})
}

// Migrate brings the lpr schema up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ms, err := Migrations()
	if err != nil {
		return err
	}
	return libdb.Migrate(ctx, pool, ms)
}

// Migrations returns the embedded schema migrations in apply order.
func Migrations() ([]libdb.Migration, error) {
	return libdb.LoadMigrations(migrationsFS, "migrations")
}
