package units

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ahp/internal/domain"
)

func TestAggregateMatrices(t *testing.T) {
	matrices := map[string]domain.ComparisonMatrix{
		"alice": {{1, 4}, {0.25, 1}},
		"bob":   {{1, 1}, {1, 1}},
	}

	tests := []struct {
		name           string
		method         AggregationMethod
		influence      map[string]float64
		want01         float64
		wantReciprocal bool
	}{
		{name: "geometric", method: AggregateGeometric, want01: 2, wantReciprocal: true},
		{name: "arithmetic", method: AggregateArithmetic, want01: 2.5, wantReciprocal: false},
		{
			name:           "weighted geometric",
			method:         AggregateWeightedGeometric,
			influence:      map[string]float64{"alice": 3, "bob": 1},
			want01:         math.Pow(4, 0.75),
			wantReciprocal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := AggregateMatrices(matrices, tt.method, tt.influence)
			require.NoError(t, err)
			assert.InDelta(t, tt.want01, m[0][1], 1e-12)
			assert.Equal(t, tt.wantReciprocal, m.IsReciprocal())
			assert.Equal(t, 1.0, m[0][0])
		})
	}
}

func TestAggregateMatrices_Errors(t *testing.T) {
	_, err := AggregateMatrices(nil, AggregateGeometric, nil)
	assert.ErrorIs(t, err, ErrNoMatrices)

	_, err = AggregateMatrices(map[string]domain.ComparisonMatrix{
		"a": domain.NewIdentityMatrix(2),
		"b": domain.NewIdentityMatrix(3),
	}, AggregateGeometric, nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = AggregateMatrices(map[string]domain.ComparisonMatrix{
		"a": domain.NewIdentityMatrix(2),
	}, AggregateWeightedGeometric, map[string]float64{"other": 1})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = AggregateMatrices(map[string]domain.ComparisonMatrix{
		"a": domain.NewIdentityMatrix(2),
	}, "median", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

// TestMatrixAggregationUnit_FeedsSolver checks that the aggregated matrix
// lands under KeyMatrix so a solver can run next.
func TestMatrixAggregationUnit_FeedsSolver(t *testing.T) {
	agg, err := NewMatrixAggregationUnit("aij", DefaultMatrixAggregationConfig())
	require.NoError(t, err)
	solver, err := NewWeightSolverUnit("solver", DefaultWeightSolverConfig())
	require.NoError(t, err)

	state := domain.With(domain.NewState(), domain.KeyEvaluatorMatrices, map[string]domain.ComparisonMatrix{
		"alice": {{1, 2, 4}, {0.5, 1, 2}, {0.25, 0.5, 1}},
		"bob":   {{1, 2, 4}, {0.5, 1, 2}, {0.25, 0.5, 1}},
	})

	state, err = agg.Execute(context.Background(), state)
	require.NoError(t, err)
	state, err = solver.Execute(context.Background(), state)
	require.NoError(t, err)

	sol, ok := domain.Get(state, domain.KeySolution)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{4.0 / 7, 2.0 / 7, 1.0 / 7}, []float64(sol.Weights), 1e-6)

	n, _ := domain.Get(state, domain.KeyItemCount)
	assert.Equal(t, 3, n)
}

func TestMatrixAggregationUnit_WeightedNeedsInfluence(t *testing.T) {
	u, err := NewMatrixAggregationFromConfig("aij", map[string]any{"method": "weighted_geometric"})
	require.NoError(t, err)

	state := domain.With(domain.NewState(), domain.KeyEvaluatorMatrices, map[string]domain.ComparisonMatrix{
		"a": domain.NewIdentityMatrix(2),
	})
	_, err = u.Execute(context.Background(), state)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	state = domain.With(state, domain.KeyEvaluatorInfluence, map[string]float64{"a": 1})
	_, err = u.Execute(context.Background(), state)
	assert.NoError(t, err)
}
