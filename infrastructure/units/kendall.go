package units

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ahrav/go-ahp/internal/domain"
)

// rankVector converts weights into ranks, rank 1 being the highest weight.
//
// TieRankIndex breaks ties by ascending item index so the result is always
// a permutation of 1..n. TieRankAverage gives tied items the mean of the
// ranks they span.
func rankVector(w domain.WeightVector, tie TieRank) []float64 {
	order := w.Order()
	ranks := make([]float64, len(w))
	if tie != TieRankAverage {
		for pos, i := range order {
			ranks[i] = float64(pos + 1)
		}
		return ranks
	}
	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) && w[order[end]] == w[order[start]] {
			end++
		}
		// Positions start..end-1 hold ranks start+1..end.
		avg := float64(start+1+end) / 2
		for p := start; p < end; p++ {
			ranks[order[p]] = avg
		}
		start = end
	}
	return ranks
}

// tieCorrection returns Σ(t³ − t) over groups of tied ranks.
func tieCorrection(ranks []float64) float64 {
	counts := make(map[float64]int, len(ranks))
	for _, r := range ranks {
		counts[r]++
	}
	var t float64
	for _, c := range counts {
		if c > 1 {
			f := float64(c)
			t += f*f*f - f
		}
	}
	return t
}

// kendallsW computes the coefficient of concordance for m rank vectors
// over n items: W = 12·S / (m²(n³ − n) − m·ΣT), where S is the sum of
// squared deviations of the item rank sums from their mean and T the tie
// correction (zero when ties are broken by index). The result is clamped
// to [0, 1]. ok is false when W is undefined (n < 2 or m < 2, or every
// evaluator tied every item).
func kendallsW(rankings [][]float64) (float64, bool) {
	m := len(rankings)
	if m < 2 {
		return 0, false
	}
	n := len(rankings[0])
	if n < 2 {
		return 0, false
	}

	sums := make([]float64, n)
	var ties float64
	for _, r := range rankings {
		for i, v := range r {
			sums[i] += v
		}
		ties += tieCorrection(r)
	}
	mean := float64(m) * float64(n+1) / 2
	var s float64
	for _, rs := range sums {
		d := rs - mean
		s += d * d
	}

	fm, fn := float64(m), float64(n)
	denom := fm*fm*(fn*fn*fn-fn) - fm*ties
	if denom <= 0 {
		return 0, false
	}
	w := 12 * s / denom
	return math.Min(1, math.Max(0, w)), true
}

// spearman is the Pearson correlation of two rank vectors, which reduces
// to 1 − 6Σd²/(n(n²−1)) without ties. ok is false when either vector has
// no variance.
func spearman(a, b []float64) (float64, bool) {
	n := len(a)
	if n < 2 || len(b) != n {
		return 0, false
	}
	if _, sa := meanStd(a); sa == 0 {
		return 0, false
	}
	if _, sb := meanStd(b); sb == 0 {
		return 0, false
	}
	return stat.Correlation(a, b, nil), true
}

// meanPairwiseSpearman averages ρ over every evaluator pair where it is
// defined.
func meanPairwiseSpearman(rankings [][]float64) (float64, bool) {
	var sum float64
	var pairs int
	for a := 0; a < len(rankings); a++ {
		for b := a + 1; b < len(rankings); b++ {
			if rho, ok := spearman(rankings[a], rankings[b]); ok {
				sum += rho
				pairs++
			}
		}
	}
	if pairs == 0 {
		return 0, false
	}
	return sum / float64(pairs), true
}
