package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/period"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// PeriodServiceImpl implements primary.PeriodService.
// Locks are written and read inside transactions only; they are never cached.
type PeriodServiceImpl struct {
	store  secondary.Store
	clock  Clock
	logger zerolog.Logger
}

var _ primary.PeriodService = (*PeriodServiceImpl)(nil)

// NewPeriodService creates a new PeriodService with injected dependencies.
func NewPeriodService(store secondary.Store, clock Clock, logger zerolog.Logger) *PeriodServiceImpl {
	if clock == nil {
		clock = time.Now
	}
	return &PeriodServiceImpl{
		store:  store,
		clock:  clock,
		logger: logger.With().Str("component", "periods").Logger(),
	}
}

// ClosePeriod freezes every mutation dated inside the period. Closing a
// closed period keeps the original closer.
func (s *PeriodServiceImpl) ClosePeriod(ctx context.Context, tenantID string, actor lifecycle.Actor, periodKey string) (*lifecycle.PeriodLock, error) {
	return s.setClosed(ctx, tenantID, actor, periodKey, true)
}

// ReopenPeriod lifts the lock of a closed period. Reopening an open period is a no-op.
func (s *PeriodServiceImpl) ReopenPeriod(ctx context.Context, tenantID string, actor lifecycle.Actor, periodKey string) (*lifecycle.PeriodLock, error) {
	return s.setClosed(ctx, tenantID, actor, periodKey, false)
}

func (s *PeriodServiceImpl) setClosed(ctx context.Context, tenantID string, actor lifecycle.Actor, periodKey string, closed bool) (*lifecycle.PeriodLock, error) {
	operation := "reopen_period"
	if closed {
		operation = "close_period"
	}
	if err := requirePermission(actor, operation, PermPeriodClose); err != nil {
		return nil, err
	}
	if _, err := period.ParseKey(periodKey); err != nil {
		return nil, err
	}

	var lock *lifecycle.PeriodLock
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		current, err := tx.PeriodLocks().Get(ctx, tenantID, periodKey)
		if err != nil {
			return err
		}
		if current == nil {
			current = &lifecycle.PeriodLock{TenantID: tenantID, PeriodKey: periodKey}
		}
		if current.Closed == closed {
			lock = current
			return nil
		}

		now := s.clock().UTC().Truncate(time.Microsecond)
		current.Closed = closed
		current.UpdatedAt = now
		if closed {
			current.ClosedBy = actor.ID
			current.ClosedAt = &now
		} else {
			current.ClosedBy = ""
			current.ClosedAt = nil
		}
		if err := tx.PeriodLocks().Upsert(ctx, current); err != nil {
			return err
		}
		lock = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tenant", tenantID).
		Str("period", periodKey).
		Str("actor", actor.ID).
		Bool("closed", lock.Closed).
		Msg(operation)
	return lock, nil
}

// PeriodStatus returns the lock state of the period.
func (s *PeriodServiceImpl) PeriodStatus(ctx context.Context, tenantID, periodKey string) (*lifecycle.PeriodLock, error) {
	if _, err := period.ParseKey(periodKey); err != nil {
		return nil, err
	}
	var lock *lifecycle.PeriodLock
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		var err error
		lock, err = tx.PeriodLocks().Get(ctx, tenantID, periodKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	if lock == nil {
		lock = &lifecycle.PeriodLock{TenantID: tenantID, PeriodKey: periodKey}
	}
	return lock, nil
}

// ListPeriods returns every period with a lock row.
func (s *PeriodServiceImpl) ListPeriods(ctx context.Context, tenantID string) ([]*lifecycle.PeriodLock, error) {
	var locks []*lifecycle.PeriodLock
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		var err error
		locks, err = tx.PeriodLocks().List(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return locks, nil
}
