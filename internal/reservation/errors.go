package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/metrics"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// Engine errors.  ErrSlotUnavailable is an expected outcome; callers
// should offer other dates rather than retry.  ErrTimeout and
// ErrStorageFailure are faults and carry their cause.  ErrInvalidGuests
// is the lower-bound case of ErrCapacityExceeded and matches both.
var (
	ErrInvalidDateRange  = errors.New("check-out must be after check-in")
	ErrCapacityExceeded  = errors.New("guest count outside room capacity")
	ErrInvalidGuests     = fmt.Errorf("%w: at least 1 guest required", ErrCapacityExceeded)
	ErrSlotUnavailable   = errors.New("room is not available for the requested dates")
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("reservation belongs to another guest")
	ErrTimeout           = errors.New("timed out waiting for the room")
	ErrStorageFailure    = errors.New("storage failure")
	ErrInvalidRoom       = errors.New("room needs a number, capacity >= 1 and a non-negative rate")
	ErrRoomExists        = errors.New("room number already exists")
)

var taxonomy = []error{
	ErrInvalidDateRange, ErrInvalidGuests, ErrCapacityExceeded, ErrSlotUnavailable,
	ErrInvalidTransition, ErrNotFound, ErrForbidden, ErrTimeout, ErrStorageFailure,
	ErrInvalidRoom, ErrRoomExists,
}

// classify maps store and context errors onto the engine taxonomy.  The
// cause stays in the chain so errors.Is works for both.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range taxonomy {
		if errors.Is(err, known) {
			return err
		}
	}
	switch {
	case errors.Is(err, repository.ErrRoomNotFound), errors.Is(err, repository.ErrReservationNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	case errors.Is(err, repository.ErrForbidden):
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	case errors.Is(err, repository.ErrRoomNumberExists):
		return fmt.Errorf("%w: %w", ErrRoomExists, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

// expired reports a unit failure as ErrTimeout when the unit's context is
// done.  Drivers do not always return the context error itself; a MySQL
// query interrupted by its deadline may surface as a driver error instead.
// Taxonomy errors are kept as they are.
func expired(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil {
		return err
	}
	for _, known := range taxonomy {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w: %w", ErrTimeout, ctx.Err(), err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrSlotUnavailable):
		return metrics.OutcomeSlotUnavailable
	case errors.Is(err, ErrInvalidTransition):
		return metrics.OutcomeInvalidTransition
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrForbidden):
		return metrics.OutcomeForbidden
	case errors.Is(err, ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, ErrStorageFailure):
		return metrics.OutcomeStorageFailure
	}
	return metrics.OutcomeInvalid
}
