package queue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

func TestHandleRoutesNoticesToNotificationLog(t *testing.T) {
	dir := t.TempDir()
	c := NewConsumer("", dir, nil)
	at := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	notice, err := Encode(model.Event{
		ID: "n1", Type: model.EventGuestNotice, ReservationID: 7, GuestEmail: "ada@example.com",
		Message: model.AdminCancelNotice, OccurredAt: at,
	})
	require.NoError(t, err)
	created, err := Encode(model.Event{
		ID: "c1", Type: model.EventReservationCreated, ReservationID: 7, RoomID: 3, OwnerID: 9,
		Status: model.StatusConfirmed, OccurredAt: at,
	})
	require.NoError(t, err)

	require.NoError(t, c.Handle(notice))
	require.NoError(t, c.Handle(created))

	notes, err := os.ReadFile(filepath.Join(dir, "notifications.log"))
	require.NoError(t, err)
	assert.Equal(t, "[2024-01-05T10:00:00Z] to=ada@example.com | reservation_id=7 | "+model.AdminCancelNotice+"\n", string(notes))

	bookings, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	assert.Contains(t, string(bookings), "reservation.created | reservation_id=7 | room_id=3 | owner_id=9 | status=CONFIRMED")
}

func TestHandleRejectsMalformedBodies(t *testing.T) {
	c := NewConsumer("", t.TempDir(), nil)
	assert.Error(t, c.Handle([]byte("not json")))
	assert.Error(t, c.Handle([]byte(`{"event_type":"reservation.paid"}`)))
}
