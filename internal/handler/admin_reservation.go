package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

// AdminHandler serves the hotel administration endpoints.  All routes
// require the ADMIN role.
type AdminHandler struct {
	Engine *reservation.Engine
	Now    func() time.Time
}

func NewAdminHandler(engine *reservation.Engine) *AdminHandler {
	if engine == nil {
		panic("nil engine passed to NewAdminHandler")
	}
	return &AdminHandler{Engine: engine, Now: time.Now}
}

// ListReservations handles GET /v1/admin/reservations.  With room_id the
// list is narrowed to that room's active stays.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	ctx := c.Request().Context()
	if raw := c.QueryParam("room_id"); raw != "" {
		roomID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || roomID == 0 {
			return badRequest(c, "invalid room_id")
		}
		list, err := h.Engine.ListActiveForRoom(ctx, roomID, model.Interval{})
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, toViews(list))
	}
	list, err := h.Engine.ListAll(ctx)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toViews(list))
}

// Stats handles GET /v1/admin/stats?date=YYYY-MM-DD.  The date defaults to
// today in UTC.
func (h *AdminHandler) Stats(c echo.Context) error {
	day := model.Day(h.Now().UTC())
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.Parse(model.DateLayout, raw)
		if err != nil {
			return badRequest(c, "invalid date")
		}
		day = d
	}
	s, err := h.Engine.Stats(c.Request().Context(), day)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":            day.Format(model.DateLayout),
		"total":           s.Total,
		"today_check_ins": s.TodayCheckIns,
	})
}

// CancelReservation handles POST /v1/admin/reservations/:id/cancel.  The
// guest is notified through a guest_notice event.
func (h *AdminHandler) CancelReservation(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	adminID, _ := middleware.UserID(c)
	res, err := h.Engine.Cancel(c.Request().Context(), id, model.Actor{Kind: model.ActorAdmin, ID: adminID})
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toView(res))
}
