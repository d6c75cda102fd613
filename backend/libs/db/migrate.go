package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one versioned SQL file, e.g. 0001_init.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// LoadMigrations reads *.sql files from dir inside fsys, ordered by version prefix.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("db: read migrations dir: %w", err)
	}

	var ms []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		v, err := parseVersion(e.Name())
		if err != nil {
			return nil, err
		}
		b, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("db: read migration %s: %w", e.Name(), err)
		}
		ms = append(ms, Migration{Version: v, Name: e.Name(), SQL: string(b)})
	}

	sort.Slice(ms, func(i, j int) bool { return ms[i].Version < ms[j].Version })
	for i := 1; i < len(ms); i++ {
		if ms[i].Version == ms[i-1].Version {
			return nil, fmt.Errorf("db: duplicate migration version %d (%s, %s)", ms[i].Version, ms[i-1].Name, ms[i].Name)
		}
	}
	return ms, nil
}

// Migrate applies every migration not yet recorded in schema_migrations, each in its own transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("db: ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		if err := apply(ctx, pool, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(ctx context.Context, pool *pgxpool.Pool, m Migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db: begin migration %s: %w", m.Name, err)
	}
	defer tx.Rollback(ctx)

	var v int
	err = tx.QueryRow(ctx, `SELECT version FROM schema_migrations WHERE version = $1`, m.Version).Scan(&v)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("db: check migration %d: %w", m.Version, err)
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("db: apply migration %s: %w", m.Name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		return fmt.Errorf("db: record migration %s: %w", m.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: commit migration %s: %w", m.Name, err)
	}
	return nil
}

func parseVersion(filename string) (int, error) {
	prefix, _, _ := strings.Cut(filename, "_")
	s := strings.TrimLeft(prefix, "0")
	if s == "" {
		s = "0"
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("db: bad migration version %s: %w", filename, err)
	}
	return v, nil
}
