package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
)

// RegisterGuest registers the self-service reservation endpoints.  All
// routes require a valid JWT with the GUEST role.  Writes drop the room
// search cache; create additionally honours Idempotency-Key.
func RegisterGuest(e *echo.Echo, h *handler.GuestHandler, jwtSecret string, idem, invalidate echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("GUEST"),
	)
	g.GET("/my-reservations", h.ListMine)
	g.GET("/reservations/:id", h.GetReservation)

	g.POST("/reservations", h.CreateReservation, idem, invalidate)
	g.PUT("/reservations/:id", h.EditReservation, invalidate)
	g.POST("/reservations/:id/pay", h.PayReservation, invalidate)
	g.DELETE("/reservations/:id", h.CancelReservation, invalidate)
}
