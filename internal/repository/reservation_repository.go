package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

const reservationColumns = `id, room_id, owner_id, guest_name, guest_email, guest_phone, guests,
	check_in, check_out, food_plan, gym, pool, total_price_cents, status, created_at, updated_at,
	arrival_time, departure_time`

// ReservationRepo is the MySQL IntervalStore.  The per-room atomic unit is
// a transaction that first locks the room row with SELECT ... FOR UPDATE;
// every interval writer goes through it, so the availability read and the
// write that depends on it cannot interleave with another writer for the
// same room.  All timestamps are stored in UTC and dates at day
// granularity.
type ReservationRepo struct {
	db     *sql.DB
	rooms  *RoomRepo
	outbox *OutboxRepo
}

// NewReservationRepo returns a new ReservationRepo bound to the given
// database.
func NewReservationRepo(db *sql.DB, rooms *RoomRepo, outbox *OutboxRepo) *ReservationRepo {
	return &ReservationRepo{
		db:     db,
		rooms:  rooms,
		outbox: outbox,
	}
}

var _ IntervalStore = (*ReservationRepo)(nil)

func (r *ReservationRepo) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	return r.rooms.GetByID(ctx, id)
}

func (r *ReservationRepo) ListRooms(ctx context.Context) ([]model.Room, error) {
	return r.rooms.List(ctx)
}

func (r *ReservationRepo) AvailableRooms(ctx context.Context, iv model.Interval) ([]model.Room, error) {
	return r.rooms.ListAvailable(ctx, iv)
}

func (r *ReservationRepo) CreateRoom(ctx context.Context, room model.Room) (model.Room, error) {
	return r.rooms.Create(ctx, room)
}

// Get returns ErrReservationNotFound when no row matches.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	return scanReservation(row)
}

// ListForRoom returns every reservation of a room, cancelled ones
// included, ordered by check-in.
func (r *ReservationRepo) ListForRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error) {
	return r.query(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE room_id = ? ORDER BY check_in, id`, roomID)
}

// ListActiveForRoom returns non-cancelled reservations of a room.  When
// window is valid only stays overlapping it are returned.
func (r *ReservationRepo) ListActiveForRoom(ctx context.Context, roomID uint64, window model.Interval) ([]model.Reservation, error) {
	if !window.Valid() {
		return r.query(ctx, `SELECT `+reservationColumns+` FROM reservations
			WHERE room_id = ? AND status <> 'CANCELLED' ORDER BY check_in, id`, roomID)
	}
	return r.query(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE room_id = ? AND status <> 'CANCELLED' AND check_in < ? AND check_out > ?
		ORDER BY check_in, id`, roomID, window.CheckOut, window.CheckIn)
}

// ListForOwner returns an account's reservations, newest first.
func (r *ReservationRepo) ListForOwner(ctx context.Context, ownerID uint64) ([]model.Reservation, error) {
	return r.query(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
}

// ListAll returns every reservation, newest first.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]model.Reservation, error) {
	return r.query(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY created_at DESC, id DESC`)
}

// Stats counts all reservations and the active ones checking in on day.
func (r *ReservationRepo) Stats(ctx context.Context, day time.Time) (model.Stats, error) {
	var s model.Stats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations`).Scan(&s.Total); err != nil {
		return model.Stats{}, err
	}
	const q = `SELECT COUNT(*) FROM reservations WHERE check_in = ? AND status <> 'CANCELLED'`
	if err := r.db.QueryRowContext(ctx, q, model.Day(day)).Scan(&s.TodayCheckIns); err != nil {
		return model.Stats{}, err
	}
	return s, nil
}

// InRoom runs fn inside a transaction holding the room's row lock.
func (r *ReservationRepo) InRoom(ctx context.Context, roomID uint64, fn func(tx IntervalTx) error) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.rooms.LockTx(ctx, tx, roomID); err != nil {
			return err
		}
		return fn(&sqlIntervalTx{repo: r, tx: tx})
	})
}

// InReservation runs fn inside a transaction holding the reservation's
// row lock.  Status-only transitions use it; they never change the room's
// occupancy set except by removing from it.
func (r *ReservationRepo) InReservation(ctx context.Context, id uint64, fn func(tx IntervalTx, res model.Reservation) error) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		itx := &sqlIntervalTx{repo: r, tx: tx}
		res, err := itx.Lookup(ctx, id)
		if err != nil {
			return err
		}
		return fn(itx, res)
	})
}

// withTx begins a transaction, runs fn and commits.  Any error, including
// a panic, rolls back.
func (r *ReservationRepo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *ReservationRepo) query(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// sqlIntervalTx binds IntervalTx to an open *sql.Tx.
type sqlIntervalTx struct {
	repo *ReservationRepo
	tx   *sql.Tx
}

// ActiveIntervals uses a locking read so it always sees the latest
// committed rows rather than the transaction's snapshot.
func (t *sqlIntervalTx) ActiveIntervals(ctx context.Context, roomID uint64) ([]model.Span, error) {
	const q = `SELECT id, check_in, check_out FROM reservations
	           WHERE room_id = ? AND status <> 'CANCELLED' LOCK IN SHARE MODE`
	rows, err := t.tx.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Span
	for rows.Next() {
		var s model.Span
		if err := rows.Scan(&s.ReservationID, &s.Interval.CheckIn, &s.Interval.CheckOut); err != nil {
			return nil, err
		}
		s.Interval = model.NewInterval(s.Interval.CheckIn, s.Interval.CheckOut)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *sqlIntervalTx) Lookup(ctx context.Context, id uint64) (model.Reservation, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id)
	return scanReservation(row)
}

func (t *sqlIntervalTx) Insert(ctx context.Context, res model.Reservation) (model.Reservation, error) {
	const q = `INSERT INTO reservations (room_id, owner_id, guest_name, guest_email, guest_phone, guests,
	               check_in, check_out, food_plan, gym, pool, total_price_cents, status, created_at, updated_at,
	               arrival_time, departure_time)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	addons := res.Addons.Normalize()
	result, err := t.tx.ExecContext(ctx, q,
		res.RoomID, res.OwnerID, res.Guest.Name, res.Guest.Email, res.Guest.Phone, res.Guests,
		res.Interval.CheckIn, res.Interval.CheckOut, string(addons.Food), addons.Gym, addons.Pool,
		res.TotalPriceCents, string(res.Status), res.CreatedAt, res.UpdatedAt,
		res.ArrivalTime, res.DepartureTime)
	if err != nil {
		return model.Reservation{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Reservation{}, err
	}
	res.ID = uint64(id)
	res.Addons = addons
	return res, nil
}

func (t *sqlIntervalTx) UpdateStatus(ctx context.Context, id uint64, from, to model.Status, at time.Time) error {
	const q = `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := t.tx.ExecContext(ctx, q, string(to), at, id, string(from))
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func (t *sqlIntervalTx) UpdateStay(ctx context.Context, id uint64, iv model.Interval, addons model.Addons, priceCents int64, at time.Time) error {
	const q = `UPDATE reservations
	           SET check_in = ?, check_out = ?, food_plan = ?, gym = ?, pool = ?, total_price_cents = ?, updated_at = ?
	           WHERE id = ? AND status = 'CONFIRMED'`
	addons = addons.Normalize()
	result, err := t.tx.ExecContext(ctx, q,
		iv.CheckIn, iv.CheckOut, string(addons.Food), addons.Gym, addons.Pool, priceCents, at, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func (t *sqlIntervalTx) Enqueue(ctx context.Context, ev model.Event) error {
	return t.repo.outbox.InsertEventTx(ctx, t.tx, ev)
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func scanReservation(row rowScanner) (model.Reservation, error) {
	var (
		res    model.Reservation
		food   string
		status string
	)
	err := row.Scan(&res.ID, &res.RoomID, &res.OwnerID,
		&res.Guest.Name, &res.Guest.Email, &res.Guest.Phone, &res.Guests,
		&res.Interval.CheckIn, &res.Interval.CheckOut, &food, &res.Addons.Gym, &res.Addons.Pool,
		&res.TotalPriceCents, &status, &res.CreatedAt, &res.UpdatedAt,
		&res.ArrivalTime, &res.DepartureTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, ErrReservationNotFound
		}
		return model.Reservation{}, err
	}
	res.Interval = model.NewInterval(res.Interval.CheckIn, res.Interval.CheckOut)
	res.Addons.Food = model.FoodPlan(food)
	if res.Status, err = model.ParseStatus(status); err != nil {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", res.ID, err)
	}
	return res, nil
}
