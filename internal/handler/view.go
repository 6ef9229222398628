package handler

import (
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// stayReq is the part of a request body that describes the stay itself.
type stayReq struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	FoodPlan string `json:"food_plan"`
	Gym      bool   `json:"gym"`
	Pool     bool   `json:"pool"`
}

// parse returns the interval and addons.  Ordering of the dates is left to
// the engine so an inverted range maps to invalid_date_range.
func (s stayReq) parse() (model.Interval, model.Addons, error) {
	iv, err := model.ParseInterval(s.CheckIn, s.CheckOut)
	if err != nil {
		return model.Interval{}, model.Addons{}, err
	}
	food, err := model.ParseFoodPlan(s.FoodPlan)
	if err != nil {
		return model.Interval{}, model.Addons{}, err
	}
	return iv, model.Addons{Food: food, Gym: s.Gym, Pool: s.Pool}, nil
}

type createReservationReq struct {
	RoomID        uint64             `json:"room_id"`
	Guests        int                `json:"guests"`
	Guest         model.GuestContact `json:"guest"`
	ArrivalTime   string             `json:"arrival_time"`
	DepartureTime string             `json:"departure_time"`
	stayReq
}

// times validates the optional arrival and departure times.
func (r *createReservationReq) times() error {
	var err error
	if r.ArrivalTime, err = model.ParseClock(r.ArrivalTime); err != nil {
		return err
	}
	r.DepartureTime, err = model.ParseClock(r.DepartureTime)
	return err
}

type reservationView struct {
	ID              uint64             `json:"id"`
	RoomID          uint64             `json:"room_id"`
	OwnerID         uint64             `json:"owner_id"`
	Guest           model.GuestContact `json:"guest"`
	Guests          int                `json:"guests"`
	ArrivalTime     string             `json:"arrival_time,omitempty"`
	DepartureTime   string             `json:"departure_time,omitempty"`
	CheckIn         string             `json:"check_in"`
	CheckOut        string             `json:"check_out"`
	Nights          int                `json:"nights"`
	FoodPlan        model.FoodPlan     `json:"food_plan"`
	Gym             bool               `json:"gym"`
	Pool            bool               `json:"pool"`
	Status          model.Status       `json:"status"`
	TotalPriceCents int64              `json:"total_price_cents"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func toView(r model.Reservation) reservationView {
	return reservationView{
		ID:              r.ID,
		RoomID:          r.RoomID,
		OwnerID:         r.OwnerID,
		Guest:           r.Guest,
		Guests:          r.Guests,
		ArrivalTime:     r.ArrivalTime,
		DepartureTime:   r.DepartureTime,
		CheckIn:         r.Interval.CheckIn.Format(model.DateLayout),
		CheckOut:        r.Interval.CheckOut.Format(model.DateLayout),
		Nights:          r.Interval.Nights(),
		FoodPlan:        r.Addons.Food,
		Gym:             r.Addons.Gym,
		Pool:            r.Addons.Pool,
		Status:          r.Status,
		TotalPriceCents: r.TotalPriceCents,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toViews(rs []model.Reservation) []reservationView {
	out := make([]reservationView, 0, len(rs))
	for _, r := range rs {
		out = append(out, toView(r))
	}
	return out
}

// occupancyView is what anonymous callers see of another guest's stay.
type occupancyView struct {
	ReservationID uint64       `json:"reservation_id"`
	CheckIn       string       `json:"check_in"`
	CheckOut      string       `json:"check_out"`
	Status        model.Status `json:"status"`
}

func toOccupancy(rs []model.Reservation) []occupancyView {
	out := make([]occupancyView, 0, len(rs))
	for _, r := range rs {
		out = append(out, occupancyView{
			ReservationID: r.ID,
			CheckIn:       r.Interval.CheckIn.Format(model.DateLayout),
			CheckOut:      r.Interval.CheckOut.Format(model.DateLayout),
			Status:        r.Status,
		})
	}
	return out
}
