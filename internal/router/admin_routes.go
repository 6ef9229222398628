package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
)

// RegisterAdmin registers hotel administration endpoints under /v1/admin.
// All routes require a valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, rooms *handler.RoomHandler, jwtSecret string, invalidate echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.GET("/reservations", h.ListReservations)
	g.GET("/stats", h.Stats)
	g.POST("/reservations/:id/cancel", h.CancelReservation, invalidate)
	g.POST("/rooms", rooms.CreateRoom, invalidate)
}
