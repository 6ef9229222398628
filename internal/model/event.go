package model

import "time"

// Event types written to the outbox.  Each one is published to a RabbitMQ
// queue of the same name.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationUpdated   = "reservation.updated"
	EventReservationPaid      = "reservation.paid"
	EventReservationCancelled = "reservation.cancelled"
	EventGuestNotice          = "reservation.guest_notice"
)

// AdminCancelNotice is the message sent to a guest whose booking was
// cancelled from the admin dashboard.
const AdminCancelNotice = "Your booking has been cancelled by the hotel administration."

// Event is a side-effect record produced by a lifecycle transition.  It is
// stored in the same transaction as the state change and relayed later.
type Event struct {
	ID            string    `json:"event_id"`
	Type          string    `json:"event_type"`
	ReservationID uint64    `json:"reservation_id"`
	RoomID        uint64    `json:"room_id"`
	OwnerID       uint64    `json:"owner_id"`
	Status        Status    `json:"status"`
	GuestEmail    string    `json:"guest_email,omitempty"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// OutboxEvent is a stored event together with its outbox row id.
type OutboxEvent struct {
	RowID uint64
	Event Event
}
