package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/metrics"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

func newSQLEngine(t *testing.T, m *metrics.Metrics) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := repository.NewReservationRepo(db, repository.NewRoomRepo(db), repository.NewOutboxRepo(db))
	return New(store, WithClock(tickingClock()), WithMetrics(m)), mock
}

func sqlRoom() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "number", "capacity", "base_rate_cents", "created_at"}).
		AddRow(1, "101", 2, 1000, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

// The rollback is issued by database/sql when the context ends, which can
// land just after the engine returns.
func requireRolledBack(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	assert.Eventually(t, func() bool { return mock.ExpectationsWereMet() == nil },
		time.Second, 5*time.Millisecond)
}

func TestCreateTimesOutOnRoomRowLock(t *testing.T) {
	m := metrics.New("test")
	e, mock := newSQLEngine(t, m)

	mock.ExpectQuery(`FROM rooms WHERE id = \?`).WithArgs(1).WillReturnRows(sqlRoom())
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM rooms WHERE id = \? FOR UPDATE`).WithArgs(1).
		WillDelayFor(time.Second).WillReturnRows(sqlRoom())
	mock.ExpectRollback()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := e.Create(ctx, CreateRequest{RoomID: 1, Guests: 1, Interval: stay(t, "2024-01-05", "2024-01-06")})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrStorageFailure)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations().WithLabelValues("create", metrics.OutcomeTimeout)))

	// Nothing past the lock ran: no interval read, no insert, no outbox row.
	requireRolledBack(t, mock)
}

func TestConfirmPaymentTimesOutOnReservationRowLock(t *testing.T) {
	m := metrics.New("test")
	e, mock := newSQLEngine(t, m)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM reservations WHERE id = \? FOR UPDATE`).WithArgs(5).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := e.ConfirmPayment(ctx, 5)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrStorageFailure)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations().WithLabelValues("confirm_payment", metrics.OutcomeTimeout)))

	requireRolledBack(t, mock)
}
