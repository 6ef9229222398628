// Package availability answers whether a room is free for a stay.
//
// The check on its own is not safe against concurrent writers.  Callers
// must run it inside the per-room atomic unit provided by the store, with
// the same transaction that performs the write.
package availability

import (
	"context"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// NoExclusion is passed as excludeID when nothing should be ignored.
// Reservation ids start at 1.
const NoExclusion uint64 = 0

// IntervalSource lists the active (non-cancelled) stays of a room.  Both
// the MySQL and in-memory transactions satisfy it.
type IntervalSource interface {
	ActiveIntervals(ctx context.Context, roomID uint64) ([]model.Span, error)
}

// Checker evaluates the half-open overlap rule against a room's active
// stays.
type Checker struct{}

// NewChecker returns a Checker.
func NewChecker() *Checker { return &Checker{} }

// IsAvailable reports whether no active stay of roomID overlaps iv,
// ignoring the reservation excludeID.
func (c *Checker) IsAvailable(ctx context.Context, src IntervalSource, roomID uint64, iv model.Interval, excludeID uint64) (bool, error) {
	spans, err := src.ActiveIntervals(ctx, roomID)
	if err != nil {
		return false, fmt.Errorf("active intervals for room %d: %w", roomID, err)
	}
	return len(Conflicts(spans, iv, excludeID)) == 0, nil
}

// Conflicts returns the ids of the spans that overlap iv, skipping
// excludeID.
func Conflicts(spans []model.Span, iv model.Interval, excludeID uint64) []uint64 {
	var ids []uint64
	for _, s := range spans {
		if excludeID != NoExclusion && s.ReservationID == excludeID {
			continue
		}
		if s.Interval.Overlaps(iv) {
			ids = append(ids, s.ReservationID)
		}
	}
	return ids
}
