package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparisonMatrix_ValidateShape(t *testing.T) {
	tests := []struct {
		name    string
		m       ComparisonMatrix
		wantErr string
	}{
		{name: "valid 2x2", m: ComparisonMatrix{{1, 3}, {1.0 / 3, 1}}},
		{name: "empty", m: ComparisonMatrix{}, wantErr: "matrix is empty"},
		{name: "ragged", m: ComparisonMatrix{{1, 2}, {1}}, wantErr: "row has 1 columns, want 2"},
		{name: "nan cell", m: ComparisonMatrix{{1, math.NaN()}, {1, 1}}, wantErr: "invalid cell value"},
		{name: "negative cell", m: ComparisonMatrix{{1, -2}, {1, 1}}, wantErr: "(0,1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.ValidateShape()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidComparison)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestComparisonMatrix_IsReciprocal(t *testing.T) {
	assert.True(t, NewIdentityMatrix(4).IsReciprocal())
	assert.True(t, ComparisonMatrix{{1, 7}, {1.0 / 7, 1}}.IsReciprocal())
	assert.False(t, ComparisonMatrix{{1, 7}, {7, 1}}.IsReciprocal())
	assert.False(t, ComparisonMatrix{{2, 1}, {1, 1}}.IsReciprocal())
}

func TestComparisonMatrix_CloneAndMultiply(t *testing.T) {
	m := ComparisonMatrix{{1, 2}, {0.5, 1}}
	c := m.Clone()
	c[0][1] = 4
	assert.InDelta(t, 2.0, m[0][1], 1e-12)

	assert.InDeltaSlice(t, []float64{2, 1}, m.Multiply([]float64{1, 0.5}), 1e-12)
	assert.Nil(t, ComparisonMatrix(nil).Clone())

	assert.False(t, m.HasZero())
	assert.True(t, ComparisonMatrix{{1, 0}, {0, 1}}.HasZero())
}
