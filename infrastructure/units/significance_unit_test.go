package units

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ahp/internal/domain"
)

// fromLogs builds a reciprocal matrix whose upper triangle, in row-major
// order, holds exp(logs[k]).
func fromLogs(n int, logs ...float64) domain.ComparisonMatrix {
	m := domain.NewIdentityMatrix(n)
	k := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m[i][j] = math.Exp(logs[k])
			m[j][i] = math.Exp(-logs[k])
			k++
		}
	}
	return m
}

func TestCompareMatrices(t *testing.T) {
	identity := domain.NewIdentityMatrix(4)
	shifted := fromLogs(4, 1, 2, 3, 4, 5, 6)
	mixed := fromLogs(4, 1, -2, 3, -4, 5, 6)

	tests := []struct {
		name          string
		a             domain.ComparisonMatrix
		test          domain.SignificanceTest
		wantStatistic float64
		wantP         float64
		wantLevel     domain.SignificanceLevel
	}{
		{
			name:          "paired t",
			a:             shifted,
			test:          domain.TestPairedT,
			wantStatistic: 4.58257569495584,
			wantP:         0.0059335,
			wantLevel:     domain.LevelHighlySignificant,
		},
		{
			name:          "wilcoxon one-sided differences",
			a:             shifted,
			test:          domain.TestWilcoxon,
			wantStatistic: 0,
			wantP:         0.0277078,
			wantLevel:     domain.LevelSignificant,
		},
		{
			name:          "wilcoxon mixed signs",
			a:             mixed,
			test:          domain.TestWilcoxon,
			wantStatistic: 6,
			wantP:         0.3454475,
			wantLevel:     domain.LevelNotSignificant,
		},
		{
			name:          "mann whitney",
			a:             shifted,
			test:          domain.TestMannWhitney,
			wantStatistic: 36,
			wantP:         0.0027784,
			wantLevel:     domain.LevelHighlySignificant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := CompareMatrices(tt.a, identity, tt.test, 0.05)
			require.NoError(t, err)
			assert.Equal(t, tt.test, res.Test)
			assert.Equal(t, 6, res.Samples)
			require.NotNil(t, res.Statistic)
			assert.InDelta(t, tt.wantStatistic, *res.Statistic, 1e-6)
			assert.InDelta(t, tt.wantP, res.PValue, 1e-5)
			assert.Equal(t, tt.wantLevel, res.Level)
			assert.Equal(t, tt.wantP < 0.05, res.Significant)
			assert.NotEmpty(t, res.Interpretation)
		})
	}
}

func TestCompareMatrices_EffectAndPower(t *testing.T) {
	res, err := CompareMatrices(fromLogs(4, 1, 2, 3, 4, 5, 6), domain.NewIdentityMatrix(4), domain.TestPairedT, 0.05)
	require.NoError(t, err)
	assert.InDelta(t, 2.8982753, res.EffectSize, 1e-6)
	assert.Equal(t, domain.EffectVeryLarge, res.Effect)
	assert.Equal(t, maxPower, res.Power)
	assert.Equal(t, "highly significant (p=0.0059), very large effect (d=2.90)", res.Interpretation)
}

func TestCompareMatrices_Identical(t *testing.T) {
	m := fromLogs(3, 1, 2, 1)
	for _, test := range []domain.SignificanceTest{domain.TestPairedT, domain.TestWilcoxon, domain.TestMannWhitney} {
		t.Run(string(test), func(t *testing.T) {
			res, err := CompareMatrices(m, m, test, 0.05)
			require.NoError(t, err)
			assert.Equal(t, 1.0, res.PValue)
			assert.False(t, res.Significant)
			assert.Zero(t, res.EffectSize)
			assert.Equal(t, domain.EffectSmall, res.Effect)
			assert.Equal(t, minPower, res.Power)
		})
	}
}

func TestCompareMatrices_ConstantShiftHasNoStatistic(t *testing.T) {
	res, err := CompareMatrices(fromLogs(3, 2, 2, 2), domain.NewIdentityMatrix(3), domain.TestPairedT, 0.05)
	require.NoError(t, err)
	assert.Nil(t, res.Statistic)
	assert.Zero(t, res.PValue)
	assert.Equal(t, domain.LevelHighlySignificant, res.Level)
}

func TestCompareMatrices_Errors(t *testing.T) {
	three := domain.NewIdentityMatrix(3)

	tests := []struct {
		name    string
		a, b    domain.ComparisonMatrix
		test    domain.SignificanceTest
		alpha   float64
		wantErr error
	}{
		{name: "order mismatch", a: three, b: domain.NewIdentityMatrix(4), test: domain.TestWilcoxon, alpha: 0.05, wantErr: domain.ErrDimensionMismatch},
		{name: "single judgment", a: domain.NewIdentityMatrix(2), b: domain.NewIdentityMatrix(2), test: domain.TestWilcoxon, alpha: 0.05, wantErr: domain.ErrInsufficientData},
		{name: "unknown test", a: three, b: three, test: "sign", alpha: 0.05, wantErr: domain.ErrInvalidConfiguration},
		{name: "alpha out of range", a: three, b: three, test: domain.TestPairedT, alpha: 1, wantErr: domain.ErrInvalidConfiguration},
		{name: "zero judgment", a: domain.ComparisonMatrix{{1, 0, 1}, {1, 1, 1}, {1, 1, 1}}, b: three, test: domain.TestPairedT, alpha: 0.05, wantErr: domain.ErrInvalidComparison},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompareMatrices(tt.a, tt.b, tt.test, tt.alpha)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAscendingRanks(t *testing.T) {
	assert.Equal(t, []float64{3, 1, 4.5, 2, 4.5}, ascendingRanks([]float64{0.5, -1, 2, 0, 2}))
}

func TestSignificanceUnit_Execute(t *testing.T) {
	unit, err := NewSignificanceFromConfig("sig", nil)
	require.NoError(t, err)

	consensus := &domain.GroupConsensusResult{
		Evaluators:        []string{"alice", "bob"},
		AggregatedWeights: domain.WeightVector{0.5, 0.25, 0.25},
	}
	matrices := map[string]domain.ComparisonMatrix{
		"alice": {{1, 2, 2}, {0.5, 1, 1}, {0.5, 1, 1}},
		"bob":   {{1, 0.5, 0.5}, {2, 1, 2}, {2, 0.5, 1}},
	}
	state := domain.With(domain.NewState(), domain.KeyConsensus, consensus)
	state = domain.With(state, domain.KeyEvaluatorMatrices, matrices)

	out, err := unit.Execute(context.Background(), state)
	require.NoError(t, err)
	got, ok := domain.Get(out, domain.KeySignificance)
	require.True(t, ok)
	require.Len(t, got, 2)

	alice := got["alice"]
	assert.Equal(t, domain.TestWilcoxon, alice.Test)
	assert.Equal(t, 1.0, alice.PValue, "ratios implied by matching weights are ties")

	bob := got["bob"]
	require.NotNil(t, bob.Statistic)
	assert.Equal(t, 1.0, *bob.Statistic)
	assert.InDelta(t, 0.2763, bob.PValue, 1e-4)
	assert.Less(t, bob.EffectSize, 0.0)

	t.Run("two items are skipped", func(t *testing.T) {
		s := domain.With(domain.NewState(), domain.KeyConsensus, &domain.GroupConsensusResult{
			Evaluators:        []string{"alice"},
			AggregatedWeights: domain.WeightVector{0.75, 0.25},
		})
		s = domain.With(s, domain.KeyEvaluatorMatrices, map[string]domain.ComparisonMatrix{"alice": {{1, 3}, {1.0 / 3, 1}}})
		out, err := unit.Execute(context.Background(), s)
		require.NoError(t, err)
		_, ok := domain.Get(out, domain.KeySignificance)
		assert.False(t, ok)
	})

	t.Run("missing matrices", func(t *testing.T) {
		_, err := unit.Execute(context.Background(), domain.With(domain.NewState(), domain.KeyConsensus, consensus))
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestSignificanceUnit_Config(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{name: "defaults", config: nil},
		{name: "t test", config: map[string]any{"test": "t_test", "alpha": 0.01}},
		{name: "unknown test", config: map[string]any{"test": "sign"}, wantErr: true},
		{name: "alpha of one", config: map[string]any{"alpha": 1.0}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSignificanceFromConfig("sig", tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
