package repository

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// IntervalTx is the view of the store available inside an atomic unit.
// Every write made through it commits together with the others or not at
// all.
type IntervalTx interface {
	// ActiveIntervals lists the non-cancelled stays of a room.
	ActiveIntervals(ctx context.Context, roomID uint64) ([]model.Span, error)
	// Lookup re-reads a reservation inside the unit.
	Lookup(ctx context.Context, id uint64) (model.Reservation, error)
	// Insert stores a new reservation and returns it with its id.
	Insert(ctx context.Context, res model.Reservation) (model.Reservation, error)
	// UpdateStatus moves a reservation from one status to another and
	// stamps updated_at with at.  It returns ErrConflict when the stored
	// status is not from.
	UpdateStatus(ctx context.Context, id uint64, from, to model.Status, at time.Time) error
	// UpdateStay overwrites interval, addons and price of a CONFIRMED
	// reservation and stamps updated_at with at.  It returns ErrConflict
	// when the reservation is no longer CONFIRMED.
	UpdateStay(ctx context.Context, id uint64, iv model.Interval, addons model.Addons, priceCents int64, at time.Time) error
	// Enqueue records an event in the outbox.
	Enqueue(ctx context.Context, ev model.Event) error
}

// IntervalStore is the durable record of room occupancy.
//
// InRoom runs fn with mutual exclusion per room: no other InRoom call for
// the same room interleaves with it.  InReservation runs fn with mutual
// exclusion per reservation and is used for status-only transitions.  In
// both, a non-nil error from fn discards every write fn made.
type IntervalStore interface {
	GetRoom(ctx context.Context, id uint64) (model.Room, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
	AvailableRooms(ctx context.Context, iv model.Interval) ([]model.Room, error)
	CreateRoom(ctx context.Context, room model.Room) (model.Room, error)

	Get(ctx context.Context, id uint64) (model.Reservation, error)
	ListForRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error)
	ListActiveForRoom(ctx context.Context, roomID uint64, window model.Interval) ([]model.Reservation, error)
	ListForOwner(ctx context.Context, ownerID uint64) ([]model.Reservation, error)
	ListAll(ctx context.Context) ([]model.Reservation, error)
	Stats(ctx context.Context, day time.Time) (model.Stats, error)

	InRoom(ctx context.Context, roomID uint64, fn func(tx IntervalTx) error) error
	InReservation(ctx context.Context, id uint64, fn func(tx IntervalTx, res model.Reservation) error) error
}

// OutboxSource is read by the relay worker.
type OutboxSource interface {
	PendingEvents(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkSent(ctx context.Context, rowID uint64) error
}
