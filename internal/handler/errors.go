package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

// retryAfterSeconds is sent with 503 responses when a room stayed locked
// past the engine's deadline.
const retryAfterSeconds = 1

// engineError writes the HTTP response for an error returned by the
// reservation engine.  Expected outcomes carry a machine readable code so
// clients can tell "pick other dates" apart from "retry later".
func engineError(c echo.Context, err error) error {
	status, code := http.StatusInternalServerError, "storage_failure"
	switch {
	case errors.Is(err, reservation.ErrInvalidDateRange):
		status, code = http.StatusBadRequest, "invalid_date_range"
	case errors.Is(err, reservation.ErrCapacityExceeded):
		status, code = http.StatusBadRequest, "capacity_exceeded"
	case errors.Is(err, reservation.ErrInvalidRoom):
		status, code = http.StatusBadRequest, "invalid_room"
	case errors.Is(err, reservation.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, reservation.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, reservation.ErrSlotUnavailable):
		status, code = http.StatusConflict, "slot_unavailable"
	case errors.Is(err, reservation.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, reservation.ErrRoomExists):
		status, code = http.StatusConflict, "room_exists"
	case errors.Is(err, reservation.ErrTimeout):
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "room is busy, retry shortly", "code": "timeout"})
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// storage causes stay in the logs
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "bad_request"})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}
