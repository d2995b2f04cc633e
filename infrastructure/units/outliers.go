package units

import (
	"math"

	"github.com/ahrav/go-ahp/internal/domain"
)

// outlierSlack absorbs rounding when every score is equal, so identical
// evaluators are never flagged.
const outlierSlack = 1e-12

// dissimilarity scores one evaluator's vector against the aggregate.
func dissimilarity(w, aggregate domain.WeightVector, d Distance, tie TieRank) float64 {
	if d == DistanceRank {
		rho, ok := spearman(rankVector(w, tie), rankVector(aggregate, tie))
		if !ok {
			return 0
		}
		return 1 - rho
	}
	return euclidean(w, aggregate)
}

// detectOutliers flags ids whose score is strictly greater than
// mean + sigma·std of all scores, std being the population deviation.
// ids must be sorted; the result keeps that order and is nil when nobody
// is flagged.
//
// The largest z-score any one of n scores can reach under the population
// deviation is (n−1)/√n, so nobody is flagged while n ≤ MaxUndetectableGroup
// for the given sigma. With the default sigma of 2 that is groups of five
// or fewer.
func detectOutliers(ids []string, scores map[string]float64, sigma float64) []string {
	values := make([]float64, len(ids))
	for i, id := range ids {
		values[i] = scores[id]
	}
	mean, std := meanStd(values)
	cutoff := mean + sigma*std + outlierSlack*math.Max(1, math.Abs(mean))

	var out []string
	for i, id := range ids {
		if values[i] > cutoff {
			out = append(out, id)
		}
	}
	return out
}

// MaxUndetectableGroup returns the largest evaluator count for which the
// mean + sigma·σ rule cannot flag anyone, i.e. the largest n with
// (n−1)/√n ≤ sigma.
func MaxUndetectableGroup(sigma float64) int {
	n := 1
	for float64(n)/math.Sqrt(float64(n+1)) <= sigma {
		n++
	}
	return n
}
