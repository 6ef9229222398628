package pricing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

func TestPriceExamples(t *testing.T) {
	cases := []struct {
		name   string
		nights int
		rate   int64
		addons model.Addons
		want   int64
	}{
		{"room only", 2, 1000, model.Addons{}, 2000},
		{"breakfast", 3, 1000, model.Addons{Food: model.FoodBreakfast}, 3300},
		{"full board gym pool", 2, 1000, model.Addons{Food: model.FoodFullBoard, Gym: true, Pool: true}, 3700},
		{"pool only", 1, 15000, model.Addons{Pool: true}, 15300},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Price(tc.nights, tc.rate, tc.addons)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPriceRejectsNonPositiveNights(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := Price(n, 1000, model.Addons{})
		assert.ErrorIs(t, err, ErrInvalidNights)
	}
}

func TestPriceIsDeterministicUnderConcurrency(t *testing.T) {
	addons := model.Addons{Food: model.FoodBreakfast, Gym: true}
	want, err := Price(4, 1250, addons)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]int64, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Price(4, 1250, addons)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, want, r)
	}
}

func TestQuoteUsesRoomRateAndNights(t *testing.T) {
	room := model.Room{ID: 1, BaseRateCents: 1000}
	iv, err := model.ParseInterval("2024-01-05", "2024-01-08")
	require.NoError(t, err)
	got, err := Quote(room, iv, model.Addons{Food: model.FoodBreakfast})
	require.NoError(t, err)
	assert.Equal(t, int64(3300), got)
}
