package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lprwatch/backend/services/lpr-service/internal/models"
	"lprwatch/backend/services/lpr-service/internal/repository"
)

const (
	uniqueViolation  = "23505"
	openSessionIndex = "lpr_sessions_one_open_per_plate"
	eventColumns     = "id, plate_number, event_type, event_time, metadata"
	sessionColumns   = "id, plate_number, session_start, session_end, metadata"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists LPR events and sessions in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)

// NewStore returns repository.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListDistinctPlateNumbers returns each plate once, ordered by its first sighting.
func (s *Store) ListDistinctPlateNumbers(ctx context.Context) ([]string, error) {
	const query = `
		SELECT plate_number
		FROM lpr_events
		GROUP BY plate_number
		ORDER BY MIN(event_time), MIN(id)
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plates []string
	for rows.Next() {
		var plate string
		if err := rows.Scan(&plate); err != nil {
			return nil, err
		}
		plates = append(plates, plate)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return plates, nil
}

// ListEventsByTimeDesc returns the full event history, newest first.
func (s *Store) ListEventsByTimeDesc(ctx context.Context) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM lpr_events ORDER BY event_time DESC, id DESC`
	return queryEvents(ctx, s.pool, query)
}

// ListOpenSessions returns currently open sessions.
func (s *Store) ListOpenSessions(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	query := `
		SELECT ` + sessionColumns + `
		FROM lpr_sessions
		WHERE session_end IS NULL
		ORDER BY session_start DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// WithinPlate runs fn in a transaction holding a transaction-scoped advisory lock on
// the plate, so concurrent units for one plate execute one after another.
func (s *Store) WithinPlate(ctx context.Context, plate string, fn func(tx repository.PlateTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, plate); err != nil {
		return fmt.Errorf("lock plate: %w", err)
	}

	if err := fn(&plateTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type plateTx struct {
	q querier
}

func (t *plateTx) FindEventsWithinMinute(ctx context.Context, plate string, eventType models.EventType, now time.Time) ([]models.Event, error) {
	bucket := now.UTC().Truncate(time.Minute)
	query := `
		SELECT ` + eventColumns + `
		FROM lpr_events
		WHERE plate_number = $1 AND event_type = $2
		  AND event_time >= $3 AND event_time < $4
	`
	return queryEvents(ctx, t.q, query, plate, string(eventType), bucket, bucket.Add(time.Minute))
}

func (t *plateTx) FindOpenSession(ctx context.Context, plate string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM lpr_sessions
		WHERE plate_number = $1 AND session_end IS NULL
		LIMIT 1
	`
	sess, err := scanSession(t.q.QueryRow(ctx, query, plate))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (t *plateTx) InsertEvent(ctx context.Context, plate string, eventType models.EventType, at time.Time, metadata models.Metadata) (*models.Event, error) {
	raw, err := encodeMetadata(metadata)
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO lpr_events (plate_number, event_type, event_time, metadata)
		VALUES ($1, $2, $3, $4::jsonb)
		RETURNING ` + eventColumns
	return scanEvent(t.q.QueryRow(ctx, query, plate, string(eventType), at.UTC(), raw))
}

func (t *plateTx) InsertSession(ctx context.Context, plate string, start time.Time, metadata models.Metadata) (*models.Session, error) {
	raw, err := encodeMetadata(metadata)
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO lpr_sessions (plate_number, session_start, metadata)
		VALUES ($1, $2, $3::jsonb)
		RETURNING ` + sessionColumns
	sess, err := scanSession(t.q.QueryRow(ctx, query, plate, start.UTC(), raw))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == openSessionIndex {
			return nil, repository.ErrOpenSessionExists
		}
		return nil, err
	}
	return sess, nil
}

func (t *plateTx) CloseSession(ctx context.Context, plate string, end time.Time, patch models.Metadata) (*models.Session, error) {
	raw, err := encodeMetadata(patch)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE lpr_sessions
		SET session_end = $2, metadata = metadata || $3::jsonb
		WHERE plate_number = $1 AND session_end IS NULL
		RETURNING ` + sessionColumns
	sess, err := scanSession(t.q.QueryRow(ctx, query, plate, end.UTC(), raw))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func queryEvents(ctx context.Context, q querier, query string, args ...any) ([]models.Event, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		e         models.Event
		eventType string
		raw       []byte
	)
	if err := row.Scan(&e.ID, &e.PlateNumber, &eventType, &e.EventTime, &raw); err != nil {
		return nil, err
	}
	e.EventType = models.EventType(eventType)
	e.EventTime = e.EventTime.UTC()
	meta, err := decodeMetadata(raw)
	if err != nil {
		return nil, err
	}
	e.Metadata = meta
	return &e, nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var (
		s   models.Session
		raw []byte
	)
	if err := row.Scan(&s.ID, &s.PlateNumber, &s.SessionStart, &s.SessionEnd, &raw); err != nil {
		return nil, err
	}
	s.SessionStart = s.SessionStart.UTC()
	if s.SessionEnd != nil {
		end := s.SessionEnd.UTC()
		s.SessionEnd = &end
	}
	meta, err := decodeMetadata(raw)
	if err != nil {
		return nil, err
	}
	s.Metadata = meta
	return &s, nil
}

func encodeMetadata(m models.Metadata) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(raw []byte) (models.Metadata, error) {
	meta := models.Metadata{}
	if len(raw) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}
