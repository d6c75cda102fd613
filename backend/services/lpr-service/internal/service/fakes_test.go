package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"lprwatch/backend/services/lpr-service/internal/models"
	"lprwatch/backend/services/lpr-service/internal/repository"
)

// countingStore records how many times storage was reached.
type countingStore struct {
	repository.Store
	mu    sync.Mutex
	calls int
}

func (s *countingStore) hit() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *countingStore) ListDistinctPlateNumbers(ctx context.Context) ([]string, error) {
	s.hit()
	return s.Store.ListDistinctPlateNumbers(ctx)
}

func (s *countingStore) WithinPlate(ctx context.Context, plate string, fn func(tx repository.PlateTx) error) error {
	s.hit()
	return s.Store.WithinPlate(ctx, plate, fn)
}

// faultyStore injects failures on top of a working store.
type faultyStore struct {
	repository.Store
	failListPlates      error
	failListEvents      error
	failInsertSession   error
	closeMatchesNothing bool
}

func (s *faultyStore) ListDistinctPlateNumbers(ctx context.Context) ([]string, error) {
	if s.failListPlates != nil {
		return nil, s.failListPlates
	}
	return s.Store.ListDistinctPlateNumbers(ctx)
}

func (s *faultyStore) ListEventsByTimeDesc(ctx context.Context) ([]models.Event, error) {
	if s.failListEvents != nil {
		return nil, s.failListEvents
	}
	return s.Store.ListEventsByTimeDesc(ctx)
}

func (s *faultyStore) WithinPlate(ctx context.Context, plate string, fn func(tx repository.PlateTx) error) error {
	return s.Store.WithinPlate(ctx, plate, func(tx repository.PlateTx) error {
		return fn(&faultyTx{PlateTx: tx, store: s})
	})
}

type faultyTx struct {
	repository.PlateTx
	store *faultyStore
}

func (t *faultyTx) InsertSession(ctx context.Context, plate string, start time.Time, metadata models.Metadata) (*models.Session, error) {
	if t.store.failInsertSession != nil {
		return nil, t.store.failInsertSession
	}
	return t.PlateTx.InsertSession(ctx, plate, start, metadata)
}

func (t *faultyTx) CloseSession(ctx context.Context, plate string, end time.Time, patch models.Metadata) (*models.Session, error) {
	if t.store.closeMatchesNothing {
		return nil, nil
	}
	return t.PlateTx.CloseSession(ctx, plate, end, patch)
}

// fakeIndex is an in-memory PlateIndex.
type fakeIndex struct {
	mu     sync.Mutex
	plates []string
	err    error
	// failRemember makes the next n Remember calls fail.
	failRemember int
	resets       int
}

func (f *fakeIndex) Plates(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.plates...), nil
}

func (f *fakeIndex) Remember(_ context.Context, plate string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.failRemember > 0 {
		f.failRemember--
		return errors.New("redis: i/o timeout")
	}
	f.add(plate)
	return nil
}

func (f *fakeIndex) Warm(_ context.Context, plates []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, p := range plates {
		f.add(p)
	}
	return nil
}

func (f *fakeIndex) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.plates = nil
	f.resets++
	return nil
}

func (f *fakeIndex) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.plates...)
}

func (f *fakeIndex) add(plate string) {
	for _, p := range f.plates {
		if p == plate {
			return
		}
	}
	f.plates = append(f.plates, plate)
}
