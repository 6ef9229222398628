// Package queue defines how reservation events travel over the message
// broker and how the background consumer records them.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Queues lists every queue the publisher may route to.  Each event type
// has a durable queue of the same name on the default exchange.
var Queues = []string{
	model.EventReservationCreated,
	model.EventReservationUpdated,
	model.EventReservationPaid,
	model.EventReservationCancelled,
	model.EventGuestNotice,
}

// Encode serialises an event as the message body.
func Encode(ev model.Event) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode parses a message body back into an event.
func Decode(body []byte) (model.Event, error) {
	var ev model.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return model.Event{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.ReservationID == 0 {
		return model.Event{}, fmt.Errorf("event %q missing type or reservation id", ev.ID)
	}
	return ev, nil
}

func bookingLine(ev model.Event) string {
	return fmt.Sprintf("[%s] %s | reservation_id=%d | room_id=%d | owner_id=%d | status=%s | event_id=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.ReservationID, ev.RoomID, ev.OwnerID, ev.Status, ev.ID)
}

func noticeLine(ev model.Event) string {
	return fmt.Sprintf("[%s] to=%s | reservation_id=%d | %s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.GuestEmail, ev.ReservationID, ev.Message)
}
