package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a reservation.  The set is closed; any
// other value read from storage is a data error.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus converts a stored status string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusConfirmed, StatusPaid, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown reservation status %q", s)
}

// Active reports whether the reservation still occupies its room.
func (s Status) Active() bool {
	return s == StatusConfirmed || s == StatusPaid
}

// CanTransition is the single source of truth for the lifecycle:
// CONFIRMED -> PAID, CONFIRMED -> CANCELLED, PAID -> CANCELLED.
// CANCELLED is terminal and PAID never returns to CONFIRMED.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusConfirmed:
		return to == StatusPaid || to == StatusCancelled
	case StatusPaid:
		return to == StatusCancelled
	}
	return false
}

// GuestContact carries the contact details captured on the booking form.
type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Reservation is a stay booked for one room.
//
// Fields:
//  ID              – primary key identifier, assigned on creation.
//  RoomID          – booked room; immutable after creation.
//  OwnerID         – account that made the booking.
//  Guest           – contact details of the lead guest.
//  Guests          – number of occupants.
//  ArrivalTime     – expected HH:MM arrival on check-in day, informational.
//  DepartureTime   – expected HH:MM departure on check-out day, informational.
//  Interval        – stay range [check_in, check_out).
//  Addons          – selected enhancements.
//  Status          – lifecycle state.
//  TotalPriceCents – price cached at creation or edit time.
//  CreatedAt       – creation timestamp, used for ordering.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
	ID              uint64       `json:"id"`
	RoomID          uint64       `json:"room_id"`
	OwnerID         uint64       `json:"owner_id"`
	Guest           GuestContact `json:"guest"`
	Guests          int          `json:"guests"`
	ArrivalTime     string       `json:"arrival_time,omitempty"`
	DepartureTime   string       `json:"departure_time,omitempty"`
	Interval        Interval     `json:"interval"`
	Addons          Addons       `json:"addons"`
	Status          Status       `json:"status"`
	TotalPriceCents int64        `json:"total_price_cents"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// ClockLayout is the format of arrival and departure times.
const ClockLayout = "15:04"

// ParseClock validates an optional time of day and returns it as HH:MM.
// Occupancy stays day-granular; the time never affects availability.
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Format(ClockLayout), nil
}

// ActorKind distinguishes self-service calls from administrative ones.
type ActorKind string

const (
	ActorGuest ActorKind = "GUEST"
	ActorAdmin ActorKind = "ADMIN"
)

// Actor is an already authenticated caller.  The engine trusts it as given.
type Actor struct {
	Kind ActorKind
	ID   uint64
}

// Stats backs the admin dashboard.
type Stats struct {
	Total         int `json:"total"`
	TodayCheckIns int `json:"today_check_ins"`
}
