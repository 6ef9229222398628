package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInterval(t *testing.T, in, out string) Interval {
	t.Helper()
	iv, err := ParseInterval(in, out)
	require.NoError(t, err)
	return iv
}

func TestIntervalOverlapIsHalfOpen(t *testing.T) {
	a := mustInterval(t, "2024-01-05", "2024-01-07")
	b := mustInterval(t, "2024-01-07", "2024-01-09")
	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))

	c := mustInterval(t, "2024-01-05", "2024-01-08")
	d := mustInterval(t, "2024-01-07", "2024-01-10")
	assert.True(t, c.Overlaps(d))
	assert.True(t, d.Overlaps(c))

	outer := mustInterval(t, "2024-01-01", "2024-01-31")
	assert.True(t, outer.Overlaps(a))
	assert.True(t, a.Overlaps(outer))
}

func TestIntervalValidAndNights(t *testing.T) {
	iv := mustInterval(t, "2024-02-27", "2024-03-02")
	assert.True(t, iv.Valid())
	assert.Equal(t, 4, iv.Nights())

	same := mustInterval(t, "2024-02-27", "2024-02-27")
	assert.False(t, same.Valid())
	assert.Equal(t, 0, same.Nights())

	reversed := mustInterval(t, "2024-03-02", "2024-02-27")
	assert.False(t, reversed.Valid())
}

func TestNightsCountsCenturiesExactly(t *testing.T) {
	assert.Equal(t, 146097, mustInterval(t, "2000-01-01", "2400-01-01").Nights())
	assert.Equal(t, 366, mustInterval(t, "2024-01-01", "2025-01-01").Nights())
	assert.Equal(t, -3, mustInterval(t, "2024-03-04", "2024-03-01").Nights())
}

func TestNewIntervalDropsTimeOfDay(t *testing.T) {
	in := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	out := time.Date(2024, 5, 2, 0, 1, 0, 0, time.UTC)
	iv := NewInterval(in, out)
	assert.Equal(t, 1, iv.Nights())
	assert.True(t, iv.Contains(in))
	assert.False(t, iv.Contains(out))
}

func TestParseIntervalRejectsGarbage(t *testing.T) {
	_, err := ParseInterval("05/01/2024", "2024-05-02")
	assert.Error(t, err)
	_, err = ParseInterval("2024-05-01", "")
	assert.Error(t, err)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusConfirmed.CanTransition(StatusPaid))
	assert.True(t, StatusConfirmed.CanTransition(StatusCancelled))
	assert.True(t, StatusPaid.CanTransition(StatusCancelled))
	assert.False(t, StatusPaid.CanTransition(StatusConfirmed))
	for _, to := range []Status{StatusConfirmed, StatusPaid, StatusCancelled} {
		assert.False(t, StatusCancelled.CanTransition(to))
	}
	assert.False(t, StatusCancelled.Active())
}

func TestAddonsSelected(t *testing.T) {
	a := Addons{Food: FoodFullBoard, Gym: true, Pool: true}
	assert.Equal(t, []Addon{AddonFullBoard, AddonGym, AddonPool}, a.Selected())
	assert.Empty(t, Addons{}.Selected())

	plan, err := ParseFoodPlan("Full Board")
	require.NoError(t, err)
	assert.Equal(t, FoodFullBoard, plan)
	_, err = ParseFoodPlan("brunch")
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock(" 9:05 ")
	require.NoError(t, err)
	assert.Equal(t, "09:05", got)

	got, err = ParseClock("")
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, bad := range []string{"24:00", "12:60", "noon", "12"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}
