package units

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ahrav/go-ahp/internal/domain"
)

// weightFloor replaces zero weights before taking logarithms.
const weightFloor = 1e-12

// geometricMeanVectors returns the per-item geometric mean of vectors,
// renormalized to sum to 1. vectors must be non-empty and equal length.
func geometricMeanVectors(vectors []domain.WeightVector) domain.WeightVector {
	n := len(vectors[0])
	out := make(domain.WeightVector, n)
	for i := 0; i < n; i++ {
		var logSum float64
		for _, v := range vectors {
			logSum += math.Log(math.Max(v[i], weightFloor))
		}
		out[i] = math.Exp(logSum / float64(len(vectors)))
	}
	return out.Normalize()
}

// meanAndStd returns per-item arithmetic means and population standard
// deviations.
func meanAndStd(vectors []domain.WeightVector) (mean, std []float64) {
	n := len(vectors[0])
	mean = make([]float64, n)
	std = make([]float64, n)
	column := make([]float64, len(vectors))
	for i := 0; i < n; i++ {
		for k, v := range vectors {
			column[k] = v[i]
		}
		mean[i], std[i] = stat.PopMeanStdDev(column, nil)
	}
	return mean, std
}

// confidenceIntervals returns mean ± z·σ/√N per item.
func confidenceIntervals(mean, std []float64, evaluators int, z float64) []domain.Interval {
	out := make([]domain.Interval, len(mean))
	root := math.Sqrt(float64(evaluators))
	for i := range mean {
		half := z * std[i] / root
		out[i] = domain.Interval{Lower: mean[i] - half, Upper: mean[i] + half}
	}
	return out
}

func euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// meanStd is the population mean and standard deviation of xs.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(xs, nil)
}

// consensusIndex is 1/(1 + mean coefficient of variation) over items
// with a positive mean.
func consensusIndex(mean, std []float64) (float64, bool) {
	var sum float64
	var count int
	for i := range mean {
		if mean[i] <= 0 {
			continue
		}
		sum += std[i] / mean[i]
		count++
	}
	if count == 0 {
		return 0, false
	}
	return 1 / (1 + sum/float64(count)), true
}

// disagreementIndex is the mean pairwise Euclidean distance between
// evaluator vectors.
func disagreementIndex(vectors []domain.WeightVector) (float64, bool) {
	var sum float64
	var pairs int
	for a := 0; a < len(vectors); a++ {
		for b := a + 1; b < len(vectors); b++ {
			sum += euclidean(vectors[a], vectors[b])
			pairs++
		}
	}
	if pairs == 0 {
		return 0, false
	}
	return sum / float64(pairs), true
}
