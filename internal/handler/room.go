package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

// RoomHandler serves the unauthenticated room search endpoints.
type RoomHandler struct {
	Engine *reservation.Engine
}

func NewRoomHandler(engine *reservation.Engine) *RoomHandler {
	if engine == nil {
		panic("nil engine passed to NewRoomHandler")
	}
	return &RoomHandler{Engine: engine}
}

// ListRooms handles GET /v1/rooms.  With check_in and check_out only rooms
// free for the whole stay are returned; without them every room is.
func (h *RoomHandler) ListRooms(c echo.Context) error {
	in, out := c.QueryParam("check_in"), c.QueryParam("check_out")
	var filter *model.Interval
	if in != "" || out != "" {
		iv, err := model.ParseInterval(in, out)
		if err != nil {
			return badRequest(c, err.Error())
		}
		filter = &iv
	}
	rooms, err := h.Engine.AvailableRooms(c.Request().Context(), filter)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, rooms)
}

// RoomOccupancy handles GET /v1/rooms/:id/reservations?from=&to=.  Guest
// details are stripped; only the occupied ranges are returned.
func (h *RoomHandler) RoomOccupancy(c echo.Context) error {
	roomID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	var window model.Interval
	if from, to := c.QueryParam("from"), c.QueryParam("to"); from != "" || to != "" {
		iv, err := model.ParseInterval(from, to)
		if err != nil {
			return badRequest(c, err.Error())
		}
		window = iv
	}
	list, err := h.Engine.ListActiveForRoom(c.Request().Context(), roomID, window)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toOccupancy(list))
}

type createRoomReq struct {
	Number        string `json:"number"`
	Capacity      int    `json:"capacity"`
	BaseRateCents int64  `json:"base_rate_cents"`
}

// CreateRoom handles POST /v1/admin/rooms.
func (h *RoomHandler) CreateRoom(c echo.Context) error {
	var req createRoomReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	room, err := h.Engine.CreateRoom(c.Request().Context(), model.Room{
		Number:        req.Number,
		Capacity:      req.Capacity,
		BaseRateCents: req.BaseRateCents,
	})
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, room)
}
