package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

// GuestHandler serves the self-service reservation endpoints.  JWT and
// role checks run in middleware; ownership is checked here.
type GuestHandler struct {
	Engine *reservation.Engine
}

func NewGuestHandler(engine *reservation.Engine) *GuestHandler {
	if engine == nil {
		panic("nil engine passed to NewGuestHandler")
	}
	return &GuestHandler{Engine: engine}
}

// CreateReservation handles POST /v1/reservations.
func (h *GuestHandler) CreateReservation(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.RoomID == 0 {
		return badRequest(c, "room_id is required")
	}
	iv, addons, err := req.parse()
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := req.times(); err != nil {
		return badRequest(c, err.Error())
	}
	res, err := h.Engine.Create(c.Request().Context(), reservation.CreateRequest{
		RoomID:        req.RoomID,
		OwnerID:       uid,
		Guests:        req.Guests,
		Interval:      iv,
		Addons:        addons,
		Guest:         req.Guest,
		ArrivalTime:   req.ArrivalTime,
		DepartureTime: req.DepartureTime,
	})
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, toView(res))
}

// ListMine handles GET /v1/my-reservations.
func (h *GuestHandler) ListMine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Engine.ListForOwner(c.Request().Context(), uid)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toViews(list))
}

// GetReservation handles GET /v1/reservations/:id.
func (h *GuestHandler) GetReservation(c echo.Context) error {
	res, ok, err := h.owned(c)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, toView(res))
}

// EditReservation handles PUT /v1/reservations/:id.  Only CONFIRMED stays
// can be edited; the new dates are checked against every other stay of the
// room.
func (h *GuestHandler) EditReservation(c echo.Context) error {
	res, ok, err := h.owned(c)
	if !ok {
		return err
	}
	var req stayReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	iv, addons, err := req.parse()
	if err != nil {
		return badRequest(c, err.Error())
	}
	updated, err := h.Engine.Edit(c.Request().Context(), res.ID, iv, addons)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toView(updated))
}

// PayReservation handles POST /v1/reservations/:id/pay.  Payment itself
// happens elsewhere; this records it.
func (h *GuestHandler) PayReservation(c echo.Context) error {
	res, ok, err := h.owned(c)
	if !ok {
		return err
	}
	paid, err := h.Engine.ConfirmPayment(c.Request().Context(), res.ID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toView(paid))
}

// CancelReservation handles DELETE /v1/reservations/:id.
func (h *GuestHandler) CancelReservation(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Engine.Cancel(c.Request().Context(), id, model.Actor{Kind: model.ActorGuest, ID: uid})
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toView(res))
}

// owned loads the reservation named by the path and checks that it belongs
// to the caller.  When ok is false the response has already been written
// and err is the result of writing it.
func (h *GuestHandler) owned(c echo.Context) (res model.Reservation, ok bool, err error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return res, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return res, false, badRequest(c, "invalid reservation id")
	}
	res, err = h.Engine.Get(c.Request().Context(), id)
	if err != nil {
		return res, false, engineError(c, err)
	}
	if res.OwnerID != uid {
		return model.Reservation{}, false, engineError(c, reservation.ErrForbidden)
	}
	return res, true, nil
}
