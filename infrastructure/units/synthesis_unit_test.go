package units

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ahp/internal/domain"
)

func TestSynthesize(t *testing.T) {
	criteria := []string{"cost", "quality"}
	weights := domain.WeightVector{0.6, 0.4}
	local := map[string]domain.WeightVector{
		"cost":    {0.7, 0.3},
		"quality": {0.2, 0.8},
	}

	final, skipped, err := Synthesize(criteria, weights, local, 2)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, []float64(final), 1e-12)

	delete(local, "quality")
	final, skipped, err = Synthesize(criteria, weights, local, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"quality"}, skipped)
	assert.InDeltaSlice(t, []float64{0.7, 0.3}, []float64(final), 1e-12)

	_, _, err = Synthesize(criteria, weights, map[string]domain.WeightVector{}, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, _, err = Synthesize(criteria, weights, map[string]domain.WeightVector{"cost": {1}}, 2)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, _, err = Synthesize([]string{"cost"}, weights, local, 2)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestSynthesisUnit_Execute(t *testing.T) {
	state := domain.With(domain.NewState(), domain.KeyItemLabels, []string{"cost", "quality"})
	state = domain.With(state, domain.KeySolution, &domain.Solution{Weights: domain.WeightVector{0.6, 0.4}})
	state = domain.With(state, domain.KeyAlternativeLabels, []string{"vendor-a", "vendor-b"})
	state = domain.With(state, domain.KeyLocalPriorities, map[string]domain.WeightVector{
		"cost": {0.7, 0.3},
	})

	lenient, err := NewSynthesisUnit("synth", DefaultSynthesisConfig(), nil)
	require.NoError(t, err)
	out, err := lenient.Execute(context.Background(), state)
	require.NoError(t, err)
	final, ok := domain.Get(out, domain.KeyFinalPriorities)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.7, 0.3}, []float64(final), 1e-12)

	strict, err := NewSynthesisFromConfig("synth", map[string]any{"require_all_criteria": true})
	require.NoError(t, err)
	_, err = strict.Execute(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality")

	_, err = lenient.Execute(context.Background(), domain.NewState())
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}
