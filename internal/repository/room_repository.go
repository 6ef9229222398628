package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

const roomColumns = `id, number, capacity, base_rate_cents, created_at`

// RoomRepo provides access to the rooms table.  Room rows double as the
// per-room lock: LockTx takes a row lock that every interval writer must
// hold before touching that room's reservations.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// Create inserts a room and reads it back so created_at is populated.
func (r *RoomRepo) Create(ctx context.Context, room model.Room) (model.Room, error) {
	room.Number = strings.TrimSpace(room.Number)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (number, capacity, base_rate_cents) VALUES (?, ?, ?)`,
		room.Number, room.Capacity, room.BaseRateCents)
	if err != nil {
		if isDuplicate(err) {
			return model.Room{}, ErrRoomNumberExists
		}
		return model.Room{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Room{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns ErrRoomNotFound when no row matches.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	return scanRoom(row)
}

// LockTx loads a room with SELECT ... FOR UPDATE inside tx.  Concurrent
// transactions locking the same room wait here until tx ends.
func (r *RoomRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Room, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ? FOR UPDATE`, id)
	return scanRoom(row)
}

// List returns every room ordered by number.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

// ListAvailable returns rooms with no active reservation overlapping iv.
func (r *RoomRepo) ListAvailable(ctx context.Context, iv model.Interval) ([]model.Room, error) {
	const q = `SELECT r.id, r.number, r.capacity, r.base_rate_cents, r.created_at
	           FROM rooms r
	           WHERE NOT EXISTS (
	               SELECT 1 FROM reservations x
	               WHERE x.room_id = r.id AND x.status <> 'CANCELLED'
	                 AND x.check_in < ? AND x.check_out > ?)
	           ORDER BY r.number`
	rows, err := r.db.QueryContext(ctx, q, iv.CheckOut, iv.CheckIn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (model.Room, error) {
	var rm model.Room
	if err := row.Scan(&rm.ID, &rm.Number, &rm.Capacity, &rm.BaseRateCents, &rm.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Room{}, ErrRoomNotFound
		}
		return model.Room{}, err
	}
	return rm, nil
}

func collectRooms(rows *sql.Rows) ([]model.Room, error) {
	var out []model.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// isDuplicate reports a MySQL duplicate-key error (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "1062")
}
