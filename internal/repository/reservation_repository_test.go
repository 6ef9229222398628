package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

var reservationCols = []string{"id", "room_id", "owner_id", "guest_name", "guest_email", "guest_phone", "guests",
	"check_in", "check_out", "food_plan", "gym", "pool", "total_price_cents", "status", "created_at", "updated_at",
	"arrival_time", "departure_time"}

func newMockRepo(t *testing.T) (*ReservationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewReservationRepo(db, NewRoomRepo(db), NewOutboxRepo(db)), mock
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func roomRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "number", "capacity", "base_rate_cents", "created_at"}).
		AddRow(1, "101", 2, 1000, day(2024, 1, 1))
}

func TestInRoomCommitsInsertAndOutboxTogether(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM rooms WHERE id = \? FOR UPDATE`).WithArgs(1).WillReturnRows(roomRow())
	mock.ExpectQuery(`SELECT id, check_in, check_out FROM reservations`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "check_in", "check_out"}).
			AddRow(3, day(2024, 1, 1), day(2024, 1, 5)))
	mock.ExpectExec(`INSERT INTO reservations`).WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(`INSERT INTO outbox_events`).
		WithArgs("evt-1", model.EventReservationCreated, uint64(42), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	var inserted model.Reservation
	err := repo.InRoom(ctx, 1, func(tx IntervalTx) error {
		spans, err := tx.ActiveIntervals(ctx, 1)
		if err != nil {
			return err
		}
		require.Len(t, spans, 1)
		assert.Equal(t, uint64(3), spans[0].ReservationID)

		inserted, err = tx.Insert(ctx, model.Reservation{
			RoomID:   1,
			Guests:   2,
			Interval: model.NewInterval(day(2024, 1, 5), day(2024, 1, 7)),
			Status:   model.StatusConfirmed,
		})
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, model.Event{ID: "evt-1", Type: model.EventReservationCreated, ReservationID: inserted.ID})
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), inserted.ID)
	assert.Equal(t, model.FoodNone, inserted.Addons.Food)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInRoomRollsBackWhenFnFails(t *testing.T) {
	repo, mock := newMockRepo(t)
	unavailable := errors.New("slot unavailable")

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM rooms WHERE id = \? FOR UPDATE`).WithArgs(1).WillReturnRows(roomRow())
	mock.ExpectRollback()

	err := repo.InRoom(context.Background(), 1, func(IntervalTx) error { return unavailable })
	assert.ErrorIs(t, err, unavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInRoomUnknownRoom(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM rooms WHERE id = \? FOR UPDATE`).WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "capacity", "base_rate_cents", "created_at"}))
	mock.ExpectRollback()

	err := repo.InRoom(context.Background(), 9, func(IntervalTx) error {
		t.Fatal("fn must not run for an unknown room")
		return nil
	})
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInReservationStatusUpdateConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM reservations WHERE id = \? FOR UPDATE`).WithArgs(5).
		WillReturnRows(sqlmock.NewRows(reservationCols).AddRow(
			5, 1, 7, "Ada", "ada@example.com", "", 2,
			day(2024, 1, 5), day(2024, 1, 7), "BREAKFAST", false, true, 2600, "CONFIRMED",
			day(2024, 1, 1), day(2024, 1, 1), "15:30", ""))
	mock.ExpectExec(`UPDATE reservations SET status = \?, updated_at = \? WHERE id = \? AND status = \?`).
		WithArgs("PAID", day(2024, 1, 2), 5, "CONFIRMED").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.InReservation(ctx, 5, func(tx IntervalTx, res model.Reservation) error {
		assert.Equal(t, model.StatusConfirmed, res.Status)
		assert.Equal(t, model.FoodBreakfast, res.Addons.Food)
		assert.True(t, res.Addons.Pool)
		assert.Equal(t, 2, res.Interval.Nights())
		return tx.UpdateStatus(ctx, 5, res.Status, model.StatusPaid, day(2024, 1, 2))
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStayIsConditionalOnConfirmed(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM rooms WHERE id = \? FOR UPDATE`).WithArgs(1).WillReturnRows(roomRow())
	mock.ExpectExec(`(?s)UPDATE reservations\s+SET check_in = \?.*WHERE id = \? AND status = 'CONFIRMED'`).
		WithArgs(day(2024, 2, 1), day(2024, 2, 3), "NONE", true, false, int64(2500), day(2024, 1, 20), 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InRoom(ctx, 1, func(tx IntervalTx) error {
		return tx.UpdateStay(ctx, 8, model.NewInterval(day(2024, 2, 1), day(2024, 2, 3)), model.Addons{Gym: true}, 2500, day(2024, 1, 20))
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMapsNoRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM reservations WHERE id = \?`).WithArgs(1).WillReturnRows(sqlmock.NewRows(reservationCols))
	_, err := repo.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestListActiveForRoomWindowArgs(t *testing.T) {
	repo, mock := newMockRepo(t)
	window := model.NewInterval(day(2024, 3, 1), day(2024, 3, 10))
	mock.ExpectQuery(`status <> 'CANCELLED' AND check_in < \? AND check_out > \?`).
		WithArgs(1, window.CheckOut, window.CheckIn).
		WillReturnRows(sqlmock.NewRows(reservationCols).AddRow(
			2, 1, 7, "Ada", "ada@example.com", "555", 1,
			day(2024, 3, 2), day(2024, 3, 4), "NONE", false, false, 2000, "PAID",
			day(2024, 2, 1), day(2024, 2, 2), "", "10:00"))

	out, err := repo.ListActiveForRoom(context.Background(), 1, window)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.StatusPaid, out[0].Status)
	assert.Equal(t, "555", out[0].Guest.Phone)
	assert.Equal(t, "10:00", out[0].DepartureTime)
	assert.Empty(t, out[0].ArrivalTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsCountsToday(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reservations$`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(12))
	mock.ExpectQuery(`WHERE check_in = \?`).WithArgs(day(2024, 3, 1)).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))

	s, err := repo.Stats(context.Background(), time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Total: 12, TodayCheckIns: 3}, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPendingAndMarkSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	outbox := NewOutboxRepo(db)

	mock.ExpectQuery(`FROM outbox_events WHERE status = 'PENDING'`).WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}).
			AddRow(4, []byte(`{"event_id":"e1","event_type":"reservation.paid","reservation_id":9}`)))
	mock.ExpectExec(`UPDATE outbox_events SET status = 'SENT'`).WithArgs(sqlmock.AnyArg(), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	events, err := outbox.PendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(4), events[0].RowID)
	assert.Equal(t, model.EventReservationPaid, events[0].Event.Type)
	assert.Equal(t, uint64(9), events[0].Event.ReservationID)

	require.NoError(t, outbox.MarkSent(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}
