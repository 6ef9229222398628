// Package pricing computes the total price of a stay.  It holds no state
// and is safe to call from any number of goroutines.
package pricing

import (
	"errors"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// ErrInvalidNights is returned when a stay has no nights to charge for.
var ErrInvalidNights = errors.New("nights must be positive")

// surcharges is the closed addon table, in the same minor unit as the
// nightly rate.  Adding an addon means adding a row here.
var surcharges = map[model.Addon]int64{
	model.AddonBreakfast: 300,
	model.AddonFullBoard: 900,
	model.AddonGym:       500,
	model.AddonPool:      300,
}

// Surcharge returns the flat charge for a single addon.
func Surcharge(a model.Addon) (int64, bool) {
	v, ok := surcharges[a]
	return v, ok
}

// Price returns nights*rate plus one flat surcharge per selected addon.
func Price(nights int, rateCents int64, addons model.Addons) (int64, error) {
	if nights <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidNights, nights)
	}
	total := int64(nights) * rateCents
	for _, a := range addons.Selected() {
		total += surcharges[a]
	}
	return total, nil
}

// Quote prices a stay for a room.
func Quote(room model.Room, iv model.Interval, addons model.Addons) (int64, error) {
	return Price(iv.Nights(), room.BaseRateCents, addons)
}
