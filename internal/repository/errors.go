// Package repository defines the persistence layer and the error values
// shared by its implementations.  Higher layers compare against these
// sentinels with errors.Is to tell apart the failure scenarios; for
// example ErrConflict signals that a conditional single-record update found
// the record in a different state than the caller expected.
package repository

import "errors"

// ErrRoomNotFound is returned when a room id does not exist.
var ErrRoomNotFound = errors.New("room not found")

// ErrReservationNotFound is returned when a reservation id does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrForbidden is returned when the caller attempts an operation on a
// record they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a compare-and-set update affected no rows
// because the record's status changed underneath the caller.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create on a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// ErrRoomNumberExists is returned by RoomRepo.Create on a duplicate number.
var ErrRoomNumberExists = errors.New("room number already exists")
