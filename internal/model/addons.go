package model

import (
	"fmt"
	"strings"
)

// Addon identifies one priced enhancement that can be attached to a stay.
type Addon string

const (
	AddonBreakfast Addon = "BREAKFAST"
	AddonFullBoard Addon = "FULL_BOARD"
	AddonGym       Addon = "GYM"
	AddonPool      Addon = "POOL"
)

// FoodPlan is the food tier of a stay.  Tiers are mutually exclusive, which
// is why Addons carries a single plan instead of two booleans.
type FoodPlan string

const (
	FoodNone      FoodPlan = "NONE"
	FoodBreakfast FoodPlan = "BREAKFAST"
	FoodFullBoard FoodPlan = "FULL_BOARD"
)

// ParseFoodPlan accepts the API spellings plus the labels used by the old
// booking form ("Breakfast", "Full Board").  Empty input means no plan.
func ParseFoodPlan(s string) (FoodPlan, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, " ", "_")
	switch norm {
	case "", "NONE":
		return FoodNone, nil
	case string(FoodBreakfast):
		return FoodBreakfast, nil
	case string(FoodFullBoard):
		return FoodFullBoard, nil
	}
	return "", fmt.Errorf("unknown food plan %q", s)
}

// Addons is the set of enhancements selected for a reservation.
type Addons struct {
	Food FoodPlan `json:"food_plan"`
	Gym  bool     `json:"gym"`
	Pool bool     `json:"pool"`
}

// Selected flattens the selection into the addon set used for pricing.  The
// order is stable so callers can compare or print it.
func (a Addons) Selected() []Addon {
	out := make([]Addon, 0, 3)
	switch a.Food {
	case FoodBreakfast:
		out = append(out, AddonBreakfast)
	case FoodFullBoard:
		out = append(out, AddonFullBoard)
	}
	if a.Gym {
		out = append(out, AddonGym)
	}
	if a.Pool {
		out = append(out, AddonPool)
	}
	return out
}

// Normalize maps the zero food plan to FoodNone.
func (a Addons) Normalize() Addons {
	if a.Food == "" {
		a.Food = FoodNone
	}
	return a
}
