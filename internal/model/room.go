package model

import "time"

// Room is a bookable unit.  Capacity and BaseRateCents are treated as fixed
// for the lifetime of a reservation; changing a rate never reprices
// existing stays.
//
// Fields:
//  ID            – primary key identifier.
//  Number        – human facing room number, unique.
//  Capacity      – maximum number of occupants.
//  BaseRateCents – nightly rate in minor currency units.
//  CreatedAt     – creation timestamp.
type Room struct {
	ID            uint64    `json:"id"`              // rooms.id
	Number        string    `json:"number"`          // rooms.number
	Capacity      int       `json:"capacity"`        // rooms.capacity
	BaseRateCents int64     `json:"base_rate_cents"` // rooms.base_rate_cents
	CreatedAt     time.Time `json:"created_at"`      // rooms.created_at
}
