// Package testutils provides utilities for testing, including synthetic
// judgment generators and dataset helpers. These components are intended
// for internal use within the project's test suites and tools and are not
// part of the public API.
package testutils

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ahrav/go-ahp/internal/domain"
)

// saatyScale is the fundamental 1..9 scale with its reciprocals, ascending.
var saatyScale = func() []float64 {
	scale := make([]float64, 0, 17)
	for v := 9; v >= 2; v-- {
		scale = append(scale, 1/float64(v))
	}
	for v := 1; v <= 9; v++ {
		scale = append(scale, float64(v))
	}
	return scale
}()

// GeneratorConfig shapes synthetic criterion sets.
type GeneratorConfig struct {
	// Items is the matrix order.
	Items int `json:"items" yaml:"items" validate:"min=2,max=15"`
	// Evaluators is the number of evaluators per set.
	Evaluators int `json:"evaluators" yaml:"evaluators" validate:"min=1,max=1000"`
	// Noise is the standard deviation of the log-normal perturbation
	// applied to every true ratio. Zero yields perfectly consistent
	// judgments (before scale snapping).
	Noise float64 `json:"noise" yaml:"noise" validate:"min=0,max=5"`
	// OutlierRate is the probability that an evaluator judges the reversed
	// weight vector.
	OutlierRate float64 `json:"outlier_rate" yaml:"outlier_rate" validate:"min=0,max=1"`
	// SaatyScale snaps every judgment to the nearest value of the 1..9
	// scale or its reciprocals.
	SaatyScale bool `json:"saaty_scale" yaml:"saaty_scale"`
}

// DefaultGeneratorConfig returns five items judged by four mildly noisy
// evaluators on the Saaty scale.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{Items: 5, Evaluators: 4, Noise: 0.2, SaatyScale: true}
}

// Validate checks the configuration bounds.
func (c GeneratorConfig) Validate() error {
	if err := NewTestValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid generator config: %w", err)
	}
	return nil
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// GenerateDataset creates size synthetic criterion sets. The seed controls
// randomization: use a fixed value for reproducible tests.
func GenerateDataset(size int, seed uint64, cfg GeneratorConfig) *JudgmentDataset {
	rng := NewRand(seed)
	dataset := &JudgmentDataset{
		Metadata: DatasetMetadata{
			Name:        "Synthetic AHP judgments",
			Version:     "1.0.0",
			Source:      "generated",
			Description: fmt.Sprintf("%d items, %d evaluators, noise %.2f", cfg.Items, cfg.Evaluators, cfg.Noise),
			Seed:        seed,
			Size:        size,
		},
		Sets: make([]SyntheticSet, 0, size),
	}
	for i := range size {
		dataset.Sets = append(dataset.Sets, GenerateCriterionSet(rng, fmt.Sprintf("set-%04d", i), cfg))
	}
	return dataset
}

// GenerateDatasetDefault creates a dataset with a time-based seed.
func GenerateDatasetDefault(size int) *JudgmentDataset {
	return GenerateDataset(size, uint64(time.Now().UnixNano()), DefaultGeneratorConfig())
}

// GenerateCriterionSet draws hidden true weights and derives every
// evaluator's upper-triangle judgments from them.
func GenerateCriterionSet(rng *rand.Rand, id string, cfg GeneratorConfig) SyntheticSet {
	set := SyntheticSet{
		ID:          id,
		Items:       make([]string, cfg.Items),
		TrueWeights: RandomWeights(rng, cfg.Items),
		Evaluators:  make([]SyntheticEvaluator, cfg.Evaluators),
	}
	for i := range set.Items {
		set.Items[i] = fmt.Sprintf("item-%02d", i+1)
	}

	for k := range set.Evaluators {
		weights := set.TrueWeights
		outlier := cfg.OutlierRate > 0 && rng.Float64() < cfg.OutlierRate
		if outlier {
			weights = reversed(weights)
		}
		set.Evaluators[k] = SyntheticEvaluator{
			EvaluatorID: fmt.Sprintf("evaluator-%02d", k+1),
			Comparisons: perturbedComparisons(rng, weights, cfg.Noise, cfg.SaatyScale),
			Outlier:     outlier,
		}
	}
	return set
}

// RandomWeights draws a uniformly distributed point of the n-simplex.
func RandomWeights(rng *rand.Rand, n int) domain.WeightVector {
	w := make(domain.WeightVector, n)
	for i := range w {
		// Exp(1) draws normalized by their sum are Dirichlet(1, ..., 1).
		w[i] = rng.ExpFloat64() + 1e-9
	}
	return w.Normalize()
}

// ConsistentComparisons returns the upper-triangle judgments w_i/w_j of a
// perfectly consistent matrix.
func ConsistentComparisons(weights domain.WeightVector) []domain.ComparisonEntry {
	n := len(weights)
	entries := make([]domain.ComparisonEntry, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			entries = append(entries, domain.ComparisonEntry{Row: i, Col: j, Value: weights[i] / weights[j]})
		}
	}
	return entries
}

func perturbedComparisons(rng *rand.Rand, weights domain.WeightVector, noise float64, snap bool) []domain.ComparisonEntry {
	entries := ConsistentComparisons(weights)
	for i := range entries {
		v := entries[i].Value
		if noise > 0 {
			v *= math.Exp(rng.NormFloat64() * noise)
		}
		if snap {
			v = SnapToScale(v)
		} else {
			v = math.Min(9, math.Max(1.0/9, v))
		}
		entries[i].Value = v
	}
	return entries
}

// SnapToScale returns the Saaty scale value nearest to v in log space.
func SnapToScale(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 1
	}
	target := math.Log(v)
	best, bestDist := 1.0, math.Inf(1)
	for _, s := range saatyScale {
		if d := math.Abs(math.Log(s) - target); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

func reversed(w domain.WeightVector) domain.WeightVector {
	out := make(domain.WeightVector, len(w))
	for i, x := range w {
		out[len(w)-1-i] = x
	}
	return out
}
