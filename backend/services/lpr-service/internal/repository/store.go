package repository

import (
	"context"
	"errors"
	"time"

	"lprwatch/backend/services/lpr-service/internal/models"
)

// ErrOpenSessionExists is returned by InsertSession when the store already holds an
// open session for the plate (the at-most-one-open-session constraint fired).
var ErrOpenSessionExists = errors.New("open session already exists")

// DefaultListLimit caps list queries when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Store is the durable owner of events and sessions.
type Store interface {
	// ListDistinctPlateNumbers returns every plate that has an event, in first-seen order.
	ListDistinctPlateNumbers(ctx context.Context) ([]string, error)
	// ListEventsByTimeDesc returns all events, newest first.
	ListEventsByTimeDesc(ctx context.Context) ([]models.Event, error)
	// ListOpenSessions returns up to limit open sessions, most recently started first.
	ListOpenSessions(ctx context.Context, limit int) ([]models.Session, error)
	// WithinPlate runs fn as one atomic unit serialized against every other unit for
	// the same plate. Writes made through tx are committed only when fn returns nil.
	WithinPlate(ctx context.Context, plate string, fn func(tx PlateTx) error) error
}

// PlateTx is the set of reads and writes available inside a WithinPlate unit.
type PlateTx interface {
	// FindEventsWithinMinute returns events of the given plate and type whose
	// event_time falls in the same whole minute as now.
	FindEventsWithinMinute(ctx context.Context, plate string, eventType models.EventType, now time.Time) ([]models.Event, error)
	// FindOpenSession returns the open session of plate, or nil when there is none.
	FindOpenSession(ctx context.Context, plate string) (*models.Session, error)
	InsertEvent(ctx context.Context, plate string, eventType models.EventType, at time.Time, metadata models.Metadata) (*models.Event, error)
	InsertSession(ctx context.Context, plate string, start time.Time, metadata models.Metadata) (*models.Session, error)
	// CloseSession ends the open session of plate and shallow-merges patch into its
	// metadata. It returns nil when no open session matched.
	CloseSession(ctx context.Context, plate string, end time.Time, patch models.Metadata) (*models.Session, error)
}

// SameMinute reports whether a and b fall in the same whole-minute bucket.
func SameMinute(a, b time.Time) bool {
	return a.UTC().Truncate(time.Minute).Equal(b.UTC().Truncate(time.Minute))
}
