package units

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ahp/internal/domain"
)

func TestAnalyzeSensitivity(t *testing.T) {
	t.Run("leader loses first place below 0.375", func(t *testing.T) {
		res, err := AnalyzeSensitivity(domain.WeightVector{0.5, 0.3, 0.2}, 0, 0.5, 100)
		require.NoError(t, err)

		assert.Equal(t, 0.5, res.OriginalWeight)
		assert.Equal(t, 0.001, res.RangeLower)
		assert.Equal(t, 0.999, res.RangeUpper)
		assert.InDelta(t, 0.5, res.ImpactScore, 1e-12)

		require.NotEmpty(t, res.ReversalPoints)
		for _, x := range res.ReversalPoints {
			assert.Less(t, x, 0.375)
		}
		// Nearest reversal sits one grid step below 0.375.
		assert.InDelta(t, 0.25, res.StabilityIndex, 0.03)
	})

	t.Run("stable ranking scores one", func(t *testing.T) {
		res, err := AnalyzeSensitivity(domain.WeightVector{0.9, 0.05, 0.05}, 0, 0.05, 20)
		require.NoError(t, err)
		assert.Empty(t, res.ReversalPoints)
		assert.Equal(t, 1.0, res.StabilityIndex)
		assert.InDelta(t, 0.85, res.RangeLower, 1e-12)
		assert.InDelta(t, 0.95, res.RangeUpper, 1e-12)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := AnalyzeSensitivity(domain.WeightVector{0.5, 0.5}, 2, 0.1, 10)
		assert.ErrorIs(t, err, ErrTargetOutOfRange)

		_, err = AnalyzeSensitivity(domain.WeightVector{0.5, 0.5}, 0, 0, 10)
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

		_, err = AnalyzeSensitivity(domain.WeightVector{0.5, 0.5}, 0, 0.1, 1)
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

		_, err = AnalyzeSensitivity(domain.WeightVector{0.5, 0.6}, 0, 0.1, 10)
		assert.ErrorIs(t, err, domain.ErrInvalidComparison)
	})
}

func TestRescale_KeepsSumAndProportions(t *testing.T) {
	w := rescale(domain.WeightVector{0.5, 0.3, 0.2}, 0, 0.2)
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)
	assert.InDelta(t, 0.2, w[0], 1e-12)
	assert.InDelta(t, 1.5, w[1]/w[2], 1e-12)
}

func TestAnalyzeAllSensitivity(t *testing.T) {
	weights := domain.WeightVector{0.5, 0.3, 0.2}

	tests := []struct {
		name      string
		targets   []int
		wantItems []int
		wantErr   error
	}{
		{name: "empty sweeps every item", targets: nil, wantItems: []int{0, 1, 2}},
		{name: "selected items in given order", targets: []int{2, 0}, wantItems: []int{2, 0}},
		{name: "out of range", targets: []int{0, 3}, wantErr: ErrTargetOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AnalyzeAllSensitivity(weights, tt.targets, 0.5, 50)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.wantItems))
			for i, item := range tt.wantItems {
				assert.Equal(t, item, got[i].Item)
				assert.Equal(t, weights[item], got[i].OriginalWeight)
			}
		})
	}
}

func TestSensitivityUnit_Execute(t *testing.T) {
	unit, err := NewSensitivityFromConfig("sens", map[string]any{"targets": []int{1}, "radius": 0.2, "steps": 50})
	require.NoError(t, err)

	consensus := &domain.GroupConsensusResult{AggregatedWeights: domain.WeightVector{0.5, 0.3, 0.2}}
	state := domain.With(domain.NewState(), domain.KeyConsensus, consensus)
	state = domain.With(state, domain.KeyItemLabels, []string{"cost", "quality", "speed"})

	out, err := unit.Execute(context.Background(), state)
	require.NoError(t, err)
	res, ok := domain.Get(out, domain.KeySensitivity)
	require.True(t, ok)
	require.Len(t, res, 1)
	assert.Equal(t, "quality", res[0].Label)
	assert.Equal(t, 1, res[0].Item)

	t.Run("every item by default", func(t *testing.T) {
		all, err := NewSensitivityFromConfig("sens", nil)
		require.NoError(t, err)
		out, err := all.Execute(context.Background(), state)
		require.NoError(t, err)
		res, _ := domain.Get(out, domain.KeySensitivity)
		require.Len(t, res, 3)
		assert.Equal(t, []string{"cost", "quality", "speed"}, []string{res[0].Label, res[1].Label, res[2].Label})
	})

	t.Run("falls back to a single solution", func(t *testing.T) {
		s := domain.With(domain.NewState(), domain.KeySolution, &domain.Solution{Weights: domain.WeightVector{0.6, 0.4}})
		_, err := unit.Execute(context.Background(), s)
		require.NoError(t, err)
	})

	t.Run("no weights", func(t *testing.T) {
		_, err := unit.Execute(context.Background(), domain.NewState())
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	_, err = NewSensitivityFromConfig("sens", map[string]any{"steps": 1})
	assert.Error(t, err)
	_, err = NewSensitivityFromConfig("sens", map[string]any{"targets": []int{1, 1}})
	assert.Error(t, err)
}
