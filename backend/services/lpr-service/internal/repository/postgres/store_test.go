package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lprwatch/backend/services/lpr-service/internal/db"
	"lprwatch/backend/services/lpr-service/internal/models"
	"lprwatch/backend/services/lpr-service/internal/repository"
)

// newTestStore connects to LPR_TEST_POSTGRES_DSN, migrates and truncates the lpr tables.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("LPR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LPR_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.NewPostgres(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	truncate(t, pool)
	return NewStore(pool)
}

func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), `TRUNCATE lpr_events, lpr_sessions RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func TestStoreSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 9, 30, 12, 0, time.UTC)

	err := store.WithinPlate(ctx, "PG0001", func(tx repository.PlateTx) error {
		if _, err := tx.InsertEvent(ctx, "PG0001", models.EventTypeEntry, start, models.Metadata{"a": 1.0}); err != nil {
			return err
		}
		_, err := tx.InsertSession(ctx, "PG0001", start, models.Metadata{"a": 1.0, "b": 3.0})
		return err
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	end := start.Add(45 * time.Minute)
	var closed *models.Session
	err = store.WithinPlate(ctx, "PG0001", func(tx repository.PlateTx) error {
		dups, err := tx.FindEventsWithinMinute(ctx, "PG0001", models.EventTypeEntry, start.Add(30*time.Second))
		if err != nil {
			return err
		}
		if len(dups) != 1 {
			t.Errorf("expected entry in same minute bucket, got %d", len(dups))
		}
		closed, err = tx.CloseSession(ctx, "PG0001", end, models.Metadata{"a": 2.0})
		return err
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed == nil || closed.SessionEnd == nil || !closed.SessionEnd.Equal(end) {
		t.Fatalf("unexpected closed session %+v", closed)
	}
	if closed.Metadata["a"] != 2.0 || closed.Metadata["b"] != 3.0 {
		t.Fatalf("expected shallow merge, got %v", closed.Metadata)
	}

	err = store.WithinPlate(ctx, "PG0001", func(tx repository.PlateTx) error {
		again, err := tx.CloseSession(ctx, "PG0001", end, nil)
		if again != nil {
			t.Errorf("expected nothing to close, got %+v", again)
		}
		return err
	})
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestStoreRollsBackFailedUnit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinPlate(ctx, "PG0002", func(tx repository.PlateTx) error {
		if _, err := tx.InsertEvent(ctx, "PG0002", models.EventTypeEntry, time.Now(), nil); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	events, err := store.ListEventsByTimeDesc(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected rollback, got %+v", events)
	}
}

func TestStoreOpenSessionUniqueIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := store.WithinPlate(ctx, "PG0003", func(tx repository.PlateTx) error {
		if _, err := tx.InsertSession(ctx, "PG0003", now, nil); err != nil {
			return err
		}
		_, err := tx.InsertSession(ctx, "PG0003", now, nil)
		return err
	})
	if !errors.Is(err, repository.ErrOpenSessionExists) {
		t.Fatalf("expected ErrOpenSessionExists, got %v", err)
	}
}

func TestStoreSerializesUnitsPerPlate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	const workers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinPlate(ctx, "PG0004", func(tx repository.PlateTx) error {
				open, err := tx.FindOpenSession(ctx, "PG0004")
				if err != nil || open != nil {
					return err
				}
				if _, err := tx.InsertSession(ctx, "PG0004", now, nil); err != nil {
					return err
				}
				mu.Lock()
				opened++
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("unit: %v", err)
			}
		}()
	}
	wg.Wait()

	if opened != 1 {
		t.Fatalf("expected exactly one session opened, got %d", opened)
	}
	sessions, err := store.ListOpenSessions(ctx, 0)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one open session, got %d", len(sessions))
	}
}

func TestStoreListDistinctPlatesFirstSeenOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	for i, plate := range []string{"PGB", "PGA", "PGB", "PGC"} {
		at := base.Add(time.Duration(i) * time.Minute)
		err := store.WithinPlate(ctx, plate, func(tx repository.PlateTx) error {
			_, err := tx.InsertEvent(ctx, plate, models.EventTypeEntry, at, nil)
			return err
		})
		if err != nil {
			t.Fatalf("insert %s: %v", plate, err)
		}
	}

	plates, err := store.ListDistinctPlateNumbers(ctx)
	if err != nil {
		t.Fatalf("list plates: %v", err)
	}
	want := []string{"PGB", "PGA", "PGC"}
	if len(plates) != len(want) {
		t.Fatalf("expected %v, got %v", want, plates)
	}
	for i := range want {
		if plates[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, plates)
		}
	}
}
