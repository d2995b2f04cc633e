package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightVector_Validate(t *testing.T) {
	tests := []struct {
		name    string
		w       WeightVector
		wantErr bool
	}{
		{name: "valid", w: WeightVector{0.5, 0.3, 0.2}},
		{name: "empty", w: WeightVector{}, wantErr: true},
		{name: "negative", w: WeightVector{1.2, -0.2}, wantErr: true},
		{name: "nan", w: WeightVector{math.NaN(), 1}, wantErr: true},
		{name: "does not sum to one", w: WeightVector{0.5, 0.4}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidComparison)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWeightVector_Normalize(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, []float64(WeightVector{1, 3}.Normalize()), 1e-12)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, []float64(WeightVector{0, 0, 0}.Normalize()), 1e-12)
}

func TestWeightVector_RanksBreakTiesByIndex(t *testing.T) {
	w := WeightVector{0.2, 0.4, 0.2, 0.2}
	assert.Equal(t, []int{1, 0, 2, 3}, w.Order())
	assert.Equal(t, []int{2, 1, 3, 4}, w.Ranks())
}

func TestWeightVector_Ranking(t *testing.T) {
	w := WeightVector{0.1, 0.6, 0.3}
	got := w.Ranking([]string{"cost", "quality"})

	assert.Equal(t, []RankedItem{
		{Label: "quality", Weight: 0.6, Rank: 1},
		{Label: "item_2", Weight: 0.3, Rank: 2},
		{Label: "cost", Weight: 0.1, Rank: 3},
	}, got)
}
