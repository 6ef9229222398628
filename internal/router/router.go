package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/metrics"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAuth registers register/login under /v1/auth and the protected
// /v1/me endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("GUEST", "ADMIN"),
	)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the room search endpoints.  Responses may be
// served from the Redis cache.
func RegisterPublic(e *echo.Echo, r *handler.RoomHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", cache)
	g.GET("/rooms", r.ListRooms)
	g.GET("/rooms/:id/reservations", r.RoomOccupancy)
}
