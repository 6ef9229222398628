// Package reservation holds the engine that owns the booking lifecycle.
//
// Create and Edit run their availability check and write inside the
// store's per-room unit, so two overlapping requests for one room can never
// both commit.  ConfirmPayment and Cancel touch a single record and run in
// the per-reservation unit with a compare-and-set status update.  Every
// transition writes its outbox event in the same unit as the state change.
package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/availability"
	"github.com/iliyamo/hotel-reservation/internal/metrics"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/pricing"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// DefaultLockTimeout bounds the wait for a room when the caller's context
// has no deadline.
const DefaultLockTimeout = 5 * time.Second

// CreateRequest describes a stay to book.
type CreateRequest struct {
	RoomID   uint64
	OwnerID  uint64
	Guests   int
	Interval model.Interval
	Addons   model.Addons
	Guest    model.GuestContact

	// Expected HH:MM arrival and departure, stored as given.
	ArrivalTime   string
	DepartureTime string
}

type Engine struct {
	store       repository.IntervalStore
	checker     *availability.Checker
	logger      *zap.Logger
	metrics     *metrics.Metrics
	clock       func() time.Time
	lockTimeout time.Duration
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the source of created_at/updated_at and event times.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// WithLockTimeout sets the default wait for the per-room unit.  Zero or
// negative disables the default and relies on the caller's context alone.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lockTimeout = d }
}

// New builds an Engine on top of store.
func New(store repository.IntervalStore, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		checker:     availability.NewChecker(),
		logger:      zap.NewNop(),
		clock:       func() time.Time { return time.Now().UTC() },
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create validates the request and books the room if no active stay
// overlaps it.  The new reservation is CONFIRMED.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (res model.Reservation, err error) {
	defer e.track("create", time.Now(), &err)

	iv := model.NewInterval(req.Interval.CheckIn, req.Interval.CheckOut)
	if !iv.Valid() {
		return model.Reservation{}, ErrInvalidDateRange
	}
	if req.Guests < 1 {
		return model.Reservation{}, ErrInvalidGuests
	}
	room, err := e.store.GetRoom(ctx, req.RoomID)
	if err != nil {
		return model.Reservation{}, classify(err)
	}
	if req.Guests > room.Capacity {
		return model.Reservation{}, ErrCapacityExceeded
	}

	ctx, cancel := e.bounded(ctx)
	defer cancel()

	err = e.store.InRoom(ctx, room.ID, func(tx repository.IntervalTx) error {
		free, err := e.checker.IsAvailable(ctx, tx, room.ID, iv, availability.NoExclusion)
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotUnavailable
		}
		price, err := pricing.Quote(room, iv, req.Addons)
		if err != nil {
			return err
		}
		now := e.clock()
		res, err = tx.Insert(ctx, model.Reservation{
			RoomID:          room.ID,
			OwnerID:         req.OwnerID,
			Guest:           req.Guest,
			Guests:          req.Guests,
			ArrivalTime:     req.ArrivalTime,
			DepartureTime:   req.DepartureTime,
			Interval:        iv,
			Addons:          req.Addons.Normalize(),
			Status:          model.StatusConfirmed,
			TotalPriceCents: price,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, e.event(model.EventReservationCreated, res, ""))
	})
	if err = expired(ctx, err); err != nil {
		return model.Reservation{}, e.fail("create", err, zap.Uint64("roomId", room.ID), zap.Stringer("interval", iv))
	}
	e.logger.Info("reservation created",
		zap.Uint64("reservationId", res.ID),
		zap.Uint64("roomId", res.RoomID),
		zap.Stringer("interval", res.Interval),
		zap.Int64("totalPriceCents", res.TotalPriceCents),
		zap.String("status", string(res.Status)))
	return res, nil
}

// Edit replaces the interval and addons of a CONFIRMED reservation after
// re-checking availability against every other active stay of its room.
// On any failure the stored reservation is unchanged.
func (e *Engine) Edit(ctx context.Context, id uint64, interval model.Interval, addons model.Addons) (res model.Reservation, err error) {
	defer e.track("edit", time.Now(), &err)

	iv := model.NewInterval(interval.CheckIn, interval.CheckOut)
	if !iv.Valid() {
		return model.Reservation{}, ErrInvalidDateRange
	}
	cur, err := e.store.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, classify(err)
	}
	if cur.Status != model.StatusConfirmed {
		return model.Reservation{}, ErrInvalidTransition
	}
	room, err := e.store.GetRoom(ctx, cur.RoomID)
	if err != nil {
		return model.Reservation{}, classify(err)
	}

	ctx, cancel := e.bounded(ctx)
	defer cancel()

	err = e.store.InRoom(ctx, room.ID, func(tx repository.IntervalTx) error {
		locked, err := tx.Lookup(ctx, id)
		if err != nil {
			return err
		}
		if locked.Status != model.StatusConfirmed {
			return ErrInvalidTransition
		}
		free, err := e.checker.IsAvailable(ctx, tx, room.ID, iv, id)
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotUnavailable
		}
		price, err := pricing.Quote(room, iv, addons)
		if err != nil {
			return err
		}
		now := e.clock()
		if err := tx.UpdateStay(ctx, id, iv, addons, price, now); err != nil {
			return err
		}
		locked.Interval = iv
		locked.Addons = addons.Normalize()
		locked.TotalPriceCents = price
		locked.UpdatedAt = now
		res = locked
		return tx.Enqueue(ctx, e.event(model.EventReservationUpdated, res, ""))
	})
	if err = expired(ctx, err); err != nil {
		return model.Reservation{}, e.fail("edit", err, zap.Uint64("reservationId", id), zap.Stringer("interval", iv))
	}
	e.logger.Info("reservation updated",
		zap.Uint64("reservationId", res.ID),
		zap.Uint64("roomId", res.RoomID),
		zap.Stringer("interval", res.Interval),
		zap.Int64("totalPriceCents", res.TotalPriceCents))
	return res, nil
}

// ConfirmPayment moves a CONFIRMED reservation to PAID.  Calling it on a
// PAID reservation returns ErrInvalidTransition.
func (e *Engine) ConfirmPayment(ctx context.Context, id uint64) (res model.Reservation, err error) {
	defer e.track("confirm_payment", time.Now(), &err)

	res, err = e.transition(ctx, id, model.StatusPaid, func(tx repository.IntervalTx, cur model.Reservation) error {
		return tx.Enqueue(ctx, e.event(model.EventReservationPaid, cur, ""))
	}, nil)
	if err != nil {
		return model.Reservation{}, e.fail("confirm_payment", err, zap.Uint64("reservationId", id))
	}
	e.logger.Info("reservation paid", zap.Uint64("reservationId", id), zap.String("status", string(res.Status)))
	return res, nil
}

// Cancel moves a CONFIRMED or PAID reservation to CANCELLED.  A guest
// may cancel only their own reservation.  An admin may cancel any, and
// the owning guest is notified through a guest_notice event.
func (e *Engine) Cancel(ctx context.Context, id uint64, actor model.Actor) (res model.Reservation, err error) {
	defer e.track("cancel", time.Now(), &err)

	authorize := func(cur model.Reservation) error {
		switch actor.Kind {
		case model.ActorAdmin:
			return nil
		case model.ActorGuest:
			if cur.OwnerID == actor.ID {
				return nil
			}
		}
		return ErrForbidden
	}
	res, err = e.transition(ctx, id, model.StatusCancelled, func(tx repository.IntervalTx, cur model.Reservation) error {
		if err := tx.Enqueue(ctx, e.event(model.EventReservationCancelled, cur, "")); err != nil {
			return err
		}
		if actor.Kind == model.ActorAdmin {
			return tx.Enqueue(ctx, e.event(model.EventGuestNotice, cur, model.AdminCancelNotice))
		}
		return nil
	}, authorize)
	if err != nil {
		return model.Reservation{}, e.fail("cancel", err, zap.Uint64("reservationId", id), zap.String("actor", string(actor.Kind)))
	}
	e.logger.Info("reservation cancelled",
		zap.Uint64("reservationId", id),
		zap.Uint64("roomId", res.RoomID),
		zap.String("actor", string(actor.Kind)))
	return res, nil
}

// transition runs a status-only change in the reservation's unit.
func (e *Engine) transition(
	ctx context.Context,
	id uint64,
	to model.Status,
	after func(tx repository.IntervalTx, cur model.Reservation) error,
	authorize func(cur model.Reservation) error,
) (model.Reservation, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()

	var out model.Reservation
	err := e.store.InReservation(ctx, id, func(tx repository.IntervalTx, cur model.Reservation) error {
		if authorize != nil {
			if err := authorize(cur); err != nil {
				return err
			}
		}
		if !cur.Status.CanTransition(to) {
			return ErrInvalidTransition
		}
		now := e.clock()
		if err := tx.UpdateStatus(ctx, id, cur.Status, to, now); err != nil {
			return err
		}
		cur.Status = to
		cur.UpdatedAt = now
		out = cur
		return after(tx, cur)
	})
	return out, expired(ctx, err)
}

// Get returns a reservation by id.
func (e *Engine) Get(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := e.store.Get(ctx, id)
	return res, classify(err)
}

// ListActiveForRoom returns the room's non-cancelled stays overlapping
// window, or all of them when window is the zero Interval.
func (e *Engine) ListActiveForRoom(ctx context.Context, roomID uint64, window model.Interval) ([]model.Reservation, error) {
	if !window.CheckIn.IsZero() || !window.CheckOut.IsZero() {
		window = model.NewInterval(window.CheckIn, window.CheckOut)
		if !window.Valid() {
			return nil, ErrInvalidDateRange
		}
	}
	if _, err := e.store.GetRoom(ctx, roomID); err != nil {
		return nil, classify(err)
	}
	out, err := e.store.ListActiveForRoom(ctx, roomID, window)
	return out, classify(err)
}

// ListForOwner returns an account's reservations, newest first.
func (e *Engine) ListForOwner(ctx context.Context, ownerID uint64) ([]model.Reservation, error) {
	out, err := e.store.ListForOwner(ctx, ownerID)
	return out, classify(err)
}

// ListAll returns every reservation, newest first.
func (e *Engine) ListAll(ctx context.Context) ([]model.Reservation, error) {
	out, err := e.store.ListAll(ctx)
	return out, classify(err)
}

// AvailableRooms lists rooms free for iv, or every room when iv is nil.
func (e *Engine) AvailableRooms(ctx context.Context, iv *model.Interval) ([]model.Room, error) {
	if iv == nil {
		out, err := e.store.ListRooms(ctx)
		return out, classify(err)
	}
	norm := model.NewInterval(iv.CheckIn, iv.CheckOut)
	if !norm.Valid() {
		return nil, ErrInvalidDateRange
	}
	out, err := e.store.AvailableRooms(ctx, norm)
	return out, classify(err)
}

// Stats returns the dashboard counters for day.
func (e *Engine) Stats(ctx context.Context, day time.Time) (model.Stats, error) {
	s, err := e.store.Stats(ctx, day)
	return s, classify(err)
}

// CreateRoom registers a bookable room.
func (e *Engine) CreateRoom(ctx context.Context, room model.Room) (model.Room, error) {
	if room.Number == "" || room.Capacity < 1 || room.BaseRateCents < 0 {
		return model.Room{}, ErrInvalidRoom
	}
	out, err := e.store.CreateRoom(ctx, room)
	if err != nil {
		return model.Room{}, classify(err)
	}
	e.logger.Info("room created", zap.Uint64("roomId", out.ID), zap.String("number", out.Number))
	return out, nil
}

// bounded applies the default lock timeout when ctx has no deadline.
func (e *Engine) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || e.lockTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.lockTimeout)
}

func (e *Engine) event(typ string, res model.Reservation, message string) model.Event {
	ev := model.Event{
		ID:            uuid.NewString(),
		Type:          typ,
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		OwnerID:       res.OwnerID,
		Status:        res.Status,
		OccurredAt:    e.clock(),
	}
	if message != "" {
		ev.GuestEmail = res.Guest.Email
		ev.Message = message
	}
	return ev
}

// fail classifies err and logs it at a level matching its kind.
func (e *Engine) fail(op string, err error, fields ...zap.Field) error {
	err = classify(err)
	fields = append(fields, zap.String("op", op), zap.Error(err))
	switch outcome(err) {
	case metrics.OutcomeStorageFailure:
		e.logger.Error("reservation storage failure", fields...)
	case metrics.OutcomeTimeout:
		e.logger.Warn("reservation timed out waiting for room", fields...)
	default:
		e.logger.Info("reservation rejected", fields...)
	}
	return err
}

func (e *Engine) track(op string, start time.Time, errp *error) {
	e.metrics.Observe(op, outcome(*errp), time.Since(start))
}
