package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"lprwatch/backend/services/lpr-service/internal/models"
	"lprwatch/backend/services/lpr-service/internal/repository"
	"lprwatch/backend/services/lpr-service/internal/similarity"
)

// PlateIndex is an optional fast source of previously seen plates, in first-seen order.
type PlateIndex interface {
	Plates(ctx context.Context) ([]string, error)
	Remember(ctx context.Context, plate string) error
	Warm(ctx context.Context, plates []string) error
	Reset(ctx context.Context) error
}

// LPRService reconciles plate sightings into sessions.
type LPRService struct {
	store   repository.Store
	index   PlateIndex
	scanner *similarity.Scanner
	logger  *zap.Logger
	now     func() time.Time

	// indexStale is set when an index write failed; the next scan rebuilds it from the store.
	indexStale atomic.Bool
}

// Option customizes LPRService.
type Option func(*LPRService)

// WithClock overrides the time source used for event and session timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *LPRService) { s.now = now }
}

// WithPlateIndex serves similarity lookups from idx, falling back to the store.
func WithPlateIndex(idx PlateIndex) Option {
	return func(s *LPRService) { s.index = idx }
}

// WithScanner replaces the default similarity scanner.
func WithScanner(scanner *similarity.Scanner) Option {
	return func(s *LPRService) { s.scanner = scanner }
}

// SubmitEventInput is a plate sighting as received from a camera.
type SubmitEventInput struct {
	PlateNumber string
	EventType   string
	Metadata    models.Metadata
}

// SubmitEventResult is returned for an accepted sighting.
type SubmitEventResult struct {
	Event         models.Event       `json:"event"`
	Session       models.Session     `json:"session"`
	SimilarPlates []similarity.Match `json:"similar_plates"`
}

// NewLPRService builds service.
func NewLPRService(store repository.Store, logger *zap.Logger, opts ...Option) *LPRService {
	s := &LPRService{
		store:   store,
		scanner: similarity.NewScanner(similarity.DefaultThreshold, similarity.DefaultLimit),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// SubmitEvent validates a sighting and, in one unit serialized per plate, rejects
// same-minute duplicates and then opens (entry) or closes (exit) the plate's session.
func (s *LPRService) SubmitEvent(ctx context.Context, input SubmitEventInput) (*SubmitEventResult, error) {
	plate := models.NormalizePlate(input.PlateNumber)
	if plate == "" || input.EventType == "" {
		field := "plate_number"
		if plate != "" {
			field = "event_type"
		}
		return nil, s.reject(plate, input.EventType, &ValidationError{
			Field:   field,
			Message: MsgRequiredFields,
		})
	}
	eventType, err := models.ParseEventType(input.EventType)
	if err != nil {
		return nil, s.reject(plate, input.EventType, &ValidationError{
			Field:   "event_type",
			Message: MsgInvalidEventType,
		})
	}

	similar := s.similarTo(ctx, plate)
	metadata := input.Metadata.Clone()
	now := s.now().UTC()

	var result SubmitEventResult
	err = s.store.WithinPlate(ctx, plate, func(tx repository.PlateTx) error {
		dups, err := tx.FindEventsWithinMinute(ctx, plate, eventType, now)
		if err != nil {
			return storageErr("find duplicate events", err)
		}
		if len(dups) > 0 {
			return ErrDuplicateSubmission
		}

		if eventType == models.EventTypeEntry {
			return s.openSession(ctx, tx, plate, now, metadata, &result)
		}
		return s.closeSession(ctx, tx, plate, now, metadata, &result)
	})
	if err != nil {
		var storage *StorageError
		if Reason(err) == ReasonStorage && !errors.As(err, &storage) {
			err = storageErr("commit", err)
		}
		return nil, s.reject(plate, string(eventType), err)
	}

	result.SimilarPlates = similar
	s.remember(ctx, plate)

	fields := []zap.Field{
		zap.String("plate_number", plate),
		zap.String("event_type", string(eventType)),
		zap.Int64("event_id", result.Event.ID),
		zap.Int64("session_id", result.Session.ID),
		zap.Strings("metadata_keys", metadata.Keys()),
	}
	if !result.Session.Open() {
		fields = append(fields, zap.Duration("session_duration", result.Session.Duration()))
	}
	s.logger.Info("lpr event recorded", fields...)
	return &result, nil
}

func (s *LPRService) openSession(ctx context.Context, tx repository.PlateTx, plate string, now time.Time, metadata models.Metadata, out *SubmitEventResult) error {
	open, err := tx.FindOpenSession(ctx, plate)
	if err != nil {
		return storageErr("find open session", err)
	}
	if open != nil {
		return ErrEntryAlreadyOpen
	}

	event, err := tx.InsertEvent(ctx, plate, models.EventTypeEntry, now, metadata)
	if err != nil {
		return storageErr("insert event", err)
	}
	session, err := tx.InsertSession(ctx, plate, now, metadata)
	if errors.Is(err, repository.ErrOpenSessionExists) {
		return ErrEntryAlreadyOpen
	}
	if err != nil {
		return storageErr("insert session", err)
	}

	out.Event = *event
	out.Session = *session
	return nil
}

func (s *LPRService) closeSession(ctx context.Context, tx repository.PlateTx, plate string, now time.Time, patch models.Metadata, out *SubmitEventResult) error {
	open, err := tx.FindOpenSession(ctx, plate)
	if err != nil {
		return storageErr("find open session", err)
	}
	if open == nil {
		return ErrExitWithoutEntry
	}

	event, err := tx.InsertEvent(ctx, plate, models.EventTypeExit, now, patch)
	if err != nil {
		return storageErr("insert event", err)
	}
	session, err := tx.CloseSession(ctx, plate, now, patch)
	if err != nil {
		return storageErr("close session", err)
	}
	if session == nil {
		return ErrSessionRaceLost
	}

	out.Event = *event
	out.Session = *session
	return nil
}

// GetHistory returns every recorded event, newest first.
func (s *LPRService) GetHistory(ctx context.Context) ([]models.Event, error) {
	events, err := s.store.ListEventsByTimeDesc(ctx)
	if err != nil {
		err = storageErr("list events", err)
		s.logger.Error("fetch lpr history failed", zap.Error(err))
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	s.logger.Debug("fetched lpr history", zap.Int("count", len(events)))
	return events, nil
}

// GetActiveSessions returns up to limit open sessions.
func (s *LPRService) GetActiveSessions(ctx context.Context, limit int) ([]models.Session, error) {
	sessions, err := s.store.ListOpenSessions(ctx, limit)
	if err != nil {
		err = storageErr("list open sessions", err)
		s.logger.Error("fetch active sessions failed", zap.Error(err))
		return nil, err
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

// FindSimilarPlates scans the plate history for plates resembling plate.
func (s *LPRService) FindSimilarPlates(ctx context.Context, plate string) ([]similarity.Match, error) {
	plate = models.NormalizePlate(plate)
	if plate == "" {
		return nil, &ValidationError{Field: "plate_number", Message: "plate number is required"}
	}
	known, err := s.knownPlates(ctx)
	if err != nil {
		err = storageErr("list plates", err)
		s.logger.Error("similar plate lookup failed", zap.String("plate_number", plate), zap.Error(err))
		return nil, err
	}
	matches := s.scanner.FindSimilar(plate, known)
	if matches == nil {
		matches = []similarity.Match{}
	}
	return matches, nil
}

// similarTo is advisory: failures are logged and yield no matches.
func (s *LPRService) similarTo(ctx context.Context, plate string) []similarity.Match {
	known, err := s.knownPlates(ctx)
	if err != nil {
		s.logger.Warn("similar plate scan skipped", zap.String("plate_number", plate), zap.Error(err))
		return []similarity.Match{}
	}
	matches := s.scanner.FindSimilar(plate, known)
	if len(matches) == 0 {
		return []similarity.Match{}
	}
	s.logger.Info("potentially similar plate numbers detected",
		zap.String("input", plate),
		zap.Any("matches", matches),
	)
	return matches
}

// knownPlates reads the plate index when it is trusted and otherwise the store,
// rebuilding the index from the store's list. A stale index is reset before the
// store read so every plate it loses is already committed and comes back in Warm.
func (s *LPRService) knownPlates(ctx context.Context) ([]string, error) {
	if s.index == nil {
		return s.store.ListDistinctPlateNumbers(ctx)
	}

	warm := true
	if s.indexStale.Swap(false) {
		if err := s.index.Reset(ctx); err != nil {
			s.indexStale.Store(true)
			s.logger.Warn("plate index reset failed", zap.Error(err))
			warm = false
		}
	} else {
		plates, err := s.index.Plates(ctx)
		if err == nil && len(plates) > 0 {
			return plates, nil
		}
		if err != nil {
			s.logger.Warn("plate index read failed, using store", zap.Error(err))
		}
	}

	plates, err := s.store.ListDistinctPlateNumbers(ctx)
	if err != nil {
		return nil, err
	}
	if warm && len(plates) > 0 {
		if err := s.index.Warm(ctx, plates); err != nil {
			s.indexStale.Store(true)
			s.logger.Warn("plate index warm failed", zap.Error(err))
		}
	}
	return plates, nil
}

func (s *LPRService) remember(ctx context.Context, plate string) {
	if s.index == nil {
		return
	}
	if err := s.index.Remember(ctx, plate); err != nil {
		s.indexStale.Store(true)
		s.logger.Warn("plate index update failed, index marked stale", zap.String("plate_number", plate), zap.Error(err))
	}
}

// reject logs err according to its class and returns it unchanged.
func (s *LPRService) reject(plate, eventType string, err error) error {
	fields := []zap.Field{
		zap.String("plate_number", plate),
		zap.String("event_type", eventType),
		zap.String("reason", Reason(err)),
	}
	if IsRejection(err) {
		s.logger.Info("lpr event rejected", append(fields, zap.String("detail", err.Error()))...)
		return err
	}
	s.logger.Error("lpr event processing failed", append(fields, zap.Error(err))...)
	return err
}
