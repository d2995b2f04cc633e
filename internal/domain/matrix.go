package domain

import (
	"fmt"
	"math"
)

// Saaty scale bounds for a single pairwise judgment.
const (
	// MinComparisonValue is the strongest "col dominates row" judgment.
	MinComparisonValue = 1.0 / 9.0
	// MaxComparisonValue is the strongest "row dominates col" judgment.
	MaxComparisonValue = 9.0
	// NeutralComparisonValue records equal importance.
	NeutralComparisonValue = 1.0

	// reciprocalTolerance bounds m[i][j]*m[j][i] drift from 1.
	reciprocalTolerance = 1e-9
)

// ComparisonEntry is one submitted judgment: item Row is Value times more
// important than item Col. Only one entry per unordered pair is needed;
// the reciprocal is derived.
type ComparisonEntry struct {
	Row   int     `json:"row" yaml:"row"`
	Col   int     `json:"col" yaml:"col"`
	Value float64 `json:"value" yaml:"value"`
}

// LabeledComparison is a judgment addressed by item label instead of index.
// It is resolved against an ordered label list before the matrix is built.
type LabeledComparison struct {
	From  string  `json:"from" yaml:"from"`
	To    string  `json:"to" yaml:"to"`
	Value float64 `json:"value" yaml:"value"`
}

// ComparisonMatrix is a dense n×n pairwise comparison matrix. Matrices
// built by the matrix builder satisfy m[i][i] = 1 and m[i][j]·m[j][i] = 1;
// that is reciprocal consistency by construction, not judgment consistency.
type ComparisonMatrix [][]float64

// NewIdentityMatrix returns the n×n all-ones matrix, i.e. every pair
// judged equally important.
func NewIdentityMatrix(n int) ComparisonMatrix {
	m := make(ComparisonMatrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			m[i][j] = NeutralComparisonValue
		}
	}
	return m
}

// Order returns n for an n×n matrix.
func (m ComparisonMatrix) Order() int { return len(m) }

// At returns the judgment of item i over item j.
func (m ComparisonMatrix) At(i, j int) float64 { return m[i][j] }

// Clone returns an independent copy of the matrix.
func (m ComparisonMatrix) Clone() ComparisonMatrix {
	if m == nil {
		return nil
	}
	out := make(ComparisonMatrix, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// HasZero reports whether any cell is exactly zero.
func (m ComparisonMatrix) HasZero() bool {
	for _, row := range m {
		for _, v := range row {
			if v == 0 {
				return true
			}
		}
	}
	return false
}

// ValidateShape checks that the matrix is square, non-empty and holds only
// finite non-negative values.
func (m ComparisonMatrix) ValidateShape() error {
	n := len(m)
	if n == 0 {
		return NewInvalidComparisonError(-1, -1, "matrix is empty")
	}
	for i, row := range m {
		if len(row) != n {
			return NewInvalidComparisonError(i, -1,
				fmt.Sprintf("row has %d columns, want %d", len(row), n))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return NewInvalidComparisonError(i, j, fmt.Sprintf("invalid cell value %v", v))
			}
		}
	}
	return nil
}

// IsReciprocal reports whether the diagonal is 1 and every mirrored pair
// multiplies to 1 within a small floating tolerance.
func (m ComparisonMatrix) IsReciprocal() bool {
	if m.ValidateShape() != nil {
		return false
	}
	for i := range m {
		if math.Abs(m[i][i]-1) > reciprocalTolerance {
			return false
		}
		for j := i + 1; j < len(m); j++ {
			if math.Abs(m[i][j]*m[j][i]-1) > reciprocalTolerance {
				return false
			}
		}
	}
	return true
}

// Multiply returns M·v.
func (m ComparisonMatrix) Multiply(v []float64) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		var sum float64
		for j, a := range row {
			sum += a * v[j]
		}
		out[i] = sum
	}
	return out
}
