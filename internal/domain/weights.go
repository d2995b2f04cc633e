package domain

import (
	"fmt"
	"math"
	"sort"
)

// WeightSumTolerance is the allowed drift of a weight vector's sum from 1.
const WeightSumTolerance = 1e-9

// WeightVector is an ordered sequence of non-negative priorities summing
// to 1, index-aligned to the row/column order of its source matrix.
// Treat it as immutable once computed.
type WeightVector []float64

// Sum returns the total of all weights.
func (w WeightVector) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// Validate checks that every weight is finite and non-negative and that
// the vector sums to 1 within WeightSumTolerance.
func (w WeightVector) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("%w: weight vector is empty", ErrInvalidComparison)
	}
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: weight %d is %v", ErrInvalidComparison, i, v)
		}
	}
	if s := w.Sum(); math.Abs(s-1) > WeightSumTolerance {
		return fmt.Errorf("%w: weights sum to %.12f", ErrInvalidComparison, s)
	}
	return nil
}

// Normalize returns a copy scaled to sum to 1. A zero vector normalizes to
// the uniform vector.
func (w WeightVector) Normalize() WeightVector {
	out := make(WeightVector, len(w))
	s := w.Sum()
	if s == 0 {
		for i := range out {
			out[i] = 1 / float64(len(w))
		}
		return out
	}
	for i, v := range w {
		out[i] = v / s
	}
	return out
}

// Clone returns an independent copy.
func (w WeightVector) Clone() WeightVector {
	if w == nil {
		return nil
	}
	return append(WeightVector(nil), w...)
}

// Order returns the item indices sorted by descending weight. Equal
// weights keep ascending index order.
func (w WeightVector) Order() []int {
	idx := make([]int, len(w))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return w[idx[a]] > w[idx[b]] })
	return idx
}

// Ranks returns the 1-based rank of every item (rank 1 = highest weight),
// breaking ties by ascending item index.
func (w WeightVector) Ranks() []int {
	ranks := make([]int, len(w))
	for pos, i := range w.Order() {
		ranks[i] = pos + 1
	}
	return ranks
}

// RankedItem pairs an item label with its weight and rank.
type RankedItem struct {
	Label  string  `json:"label" yaml:"label"`
	Weight float64 `json:"weight" yaml:"weight"`
	Rank   int     `json:"rank" yaml:"rank"`
}

// Ranking returns the items ordered from most to least important. Missing
// labels are rendered as "item_<index>".
func (w WeightVector) Ranking(labels []string) []RankedItem {
	out := make([]RankedItem, 0, len(w))
	for pos, i := range w.Order() {
		label := fmt.Sprintf("item_%d", i)
		if i < len(labels) {
			label = labels[i]
		}
		out = append(out, RankedItem{Label: label, Weight: w[i], Rank: pos + 1})
	}
	return out
}
