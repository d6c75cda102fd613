package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"lprwatch/backend/services/lpr-service/internal/models"
	"lprwatch/backend/services/lpr-service/internal/repository"
)

// Store keeps events and sessions in process memory. Units of work run one at a
// time and stage their writes, so a failed unit leaves no trace.
// It is intended for use in tests and dev environments.
type Store struct {
	mu       sync.Mutex
	events   []models.Event
	sessions []models.Session
	nextEvt  int64
	nextSess int64
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{nextEvt: 1, nextSess: 1}
}

func (s *Store) ListDistinctPlateNumbers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	var plates []string
	for _, e := range s.events {
		if _, ok := seen[e.PlateNumber]; ok {
			continue
		}
		seen[e.PlateNumber] = struct{}{}
		plates = append(plates, e.PlateNumber)
	}
	return plates, nil
}

func (s *Store) ListEventsByTimeDesc(_ context.Context) ([]models.Event, error) {
	s.mu.Lock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EventTime.Equal(out[j].EventTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].EventTime.After(out[j].EventTime)
	})
	return out, nil
}

func (s *Store) ListOpenSessions(_ context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	s.mu.Lock()
	var out []models.Session
	for _, sess := range s.sessions {
		if sess.Open() {
			out = append(out, sess)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SessionStart.After(out[j].SessionStart)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) WithinPlate(ctx context.Context, _ string, fn func(tx repository.PlateTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &plateTx{
		events:   append([]models.Event(nil), s.events...),
		sessions: append([]models.Session(nil), s.sessions...),
		nextEvt:  s.nextEvt,
		nextSess: s.nextSess,
	}
	if err := fn(tx); err != nil {
		return err
	}

	s.events = tx.events
	s.sessions = tx.sessions
	s.nextEvt = tx.nextEvt
	s.nextSess = tx.nextSess
	return nil
}

// Events returns a copy of all stored events in insert order. Test-only helper.
func (s *Store) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Sessions returns a copy of all stored sessions in insert order. Test-only helper.
func (s *Store) Sessions() []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

type plateTx struct {
	events   []models.Event
	sessions []models.Session
	nextEvt  int64
	nextSess int64
}

func (t *plateTx) FindEventsWithinMinute(_ context.Context, plate string, eventType models.EventType, now time.Time) ([]models.Event, error) {
	var out []models.Event
	for _, e := range t.events {
		if e.PlateNumber == plate && e.EventType == eventType && repository.SameMinute(e.EventTime, now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *plateTx) FindOpenSession(_ context.Context, plate string) (*models.Session, error) {
	if i := t.openIndex(plate); i >= 0 {
		sess := t.sessions[i]
		sess.Metadata = sess.Metadata.Clone()
		return &sess, nil
	}
	return nil, nil
}

func (t *plateTx) InsertEvent(_ context.Context, plate string, eventType models.EventType, at time.Time, metadata models.Metadata) (*models.Event, error) {
	e := models.Event{
		ID:          t.nextEvt,
		PlateNumber: plate,
		EventType:   eventType,
		EventTime:   at.UTC(),
		Metadata:    metadata.Clone(),
	}
	t.nextEvt++
	t.events = append(t.events, e)
	return &e, nil
}

func (t *plateTx) InsertSession(_ context.Context, plate string, start time.Time, metadata models.Metadata) (*models.Session, error) {
	if t.openIndex(plate) >= 0 {
		return nil, repository.ErrOpenSessionExists
	}
	sess := models.Session{
		ID:           t.nextSess,
		PlateNumber:  plate,
		SessionStart: start.UTC(),
		Metadata:     metadata.Clone(),
	}
	t.nextSess++
	t.sessions = append(t.sessions, sess)
	return &sess, nil
}

func (t *plateTx) CloseSession(_ context.Context, plate string, end time.Time, patch models.Metadata) (*models.Session, error) {
	i := t.openIndex(plate)
	if i < 0 {
		return nil, nil
	}
	end = end.UTC()
	sess := t.sessions[i]
	sess.SessionEnd = &end
	sess.Metadata = sess.Metadata.Merge(patch)
	t.sessions[i] = sess
	return &sess, nil
}

func (t *plateTx) openIndex(plate string) int {
	for i := range t.sessions {
		if t.sessions[i].PlateNumber == plate && t.sessions[i].Open() {
			return i
		}
	}
	return -1
}
