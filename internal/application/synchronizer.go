package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/bnema/oneiro/internal/ports"
	"github.com/rs/zerolog"
)

// Synchronizer is the only writer of dream records. Patches for one dream
// are applied one at a time and in call order.
type Synchronizer struct {
	repo   ports.DreamRepository
	clock  ports.Clock
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[domain.DreamID]*recordLock
}

// recordLock serializes writes for one dream. It is removed from the map
// when no caller holds or waits for it.
type recordLock struct {
	mu   sync.Mutex
	refs int
}

func NewSynchronizer(repo ports.DreamRepository, clock ports.Clock, logger zerolog.Logger) *Synchronizer {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Synchronizer{
		repo:   repo,
		clock:  clock,
		logger: logger,
		locks:  map[domain.DreamID]*recordLock{},
	}
}

// Upsert inserts the record on the first patch for id and updates it
// afterwards. A patch that changes nothing performs no write.
func (s *Synchronizer) Upsert(ctx context.Context, id domain.DreamID, patch domain.RecordPatch) error {
	unlock := s.lock(id)
	defer unlock()

	record, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return s.update(ctx, record, patch)
	}
	if !errors.Is(err, domain.ErrDreamNotFound) {
		return fmt.Errorf("load dream record: %w", err)
	}

	record = patch.NewRecord(id, s.clock.Now())
	err = s.repo.Insert(ctx, record)
	if err == nil {
		s.logger.Debug().Str("dream_id", string(id)).Str("status", string(record.Status)).Msg("dream record inserted")
		return nil
	}
	if !errors.Is(err, domain.ErrDreamExists) {
		return fmt.Errorf("insert dream record: %w", err)
	}

	// Another writer inserted the row between our read and insert.
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("reload dream record: %w", err)
	}
	return s.update(ctx, existing, patch)
}

func (s *Synchronizer) Load(ctx context.Context, id domain.DreamID) (domain.Record, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Record{}, fmt.Errorf("load dream record: %w", err)
	}
	return record, nil
}

func (s *Synchronizer) ListByOwner(ctx context.Context, owner domain.UserID) ([]domain.Record, error) {
	records, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list dream records: %w", err)
	}
	return records, nil
}

func (s *Synchronizer) update(ctx context.Context, record domain.Record, patch domain.RecordPatch) error {
	if !patch.Apply(&record) {
		return nil
	}
	record.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, record); err != nil {
		return fmt.Errorf("update dream record: %w", err)
	}

	s.logger.Debug().Str("dream_id", string(record.ID)).Str("status", string(record.Status)).Msg("dream record updated")
	return nil
}

func (s *Synchronizer) lock(id domain.DreamID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &recordLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}
