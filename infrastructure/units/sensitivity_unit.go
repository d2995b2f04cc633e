package units

import (
	"context"
	"fmt"
	"math"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var _ ports.Unit = (*SensitivityUnit)(nil)

// Bounds every swept or simulated weight stays within.
const (
	minSweepWeight = 0.001
	maxSweepWeight = 0.999
)

// AnalyzeSensitivity sweeps the weight of item target across
// [w − radius, w + radius] ∩ [0.001, 0.999] in steps evenly spaced
// points, rescaling the other weights proportionally so the vector still
// sums to 1. Every point whose ranking differs from the original is a
// reversal point.
//
// StabilityIndex is the distance from w to the nearest reversal point
// divided by radius, or 1 when the ranking never changes. ImpactScore is
// 2·w·radius.
func AnalyzeSensitivity(weights domain.WeightVector, target int, radius float64, steps int) (*domain.SensitivityResult, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if target < 0 || target >= len(weights) {
		return nil, fmt.Errorf("%w: item %d of %d", ErrTargetOutOfRange, target, len(weights))
	}
	if radius <= 0 || math.IsNaN(radius) {
		return nil, fmt.Errorf("%w: sweep radius %v", domain.ErrInvalidConfiguration, radius)
	}
	if steps < 2 {
		return nil, fmt.Errorf("%w: sweep needs at least 2 steps, got %d", domain.ErrInvalidConfiguration, steps)
	}

	original := weights[target]
	lo := math.Max(minSweepWeight, original-radius)
	hi := math.Min(maxSweepWeight, original+radius)
	baseline := weights.Order()

	res := &domain.SensitivityResult{
		Item:           target,
		OriginalWeight: original,
		RangeLower:     lo,
		RangeUpper:     hi,
		ReversalPoints: []float64{},
		StabilityIndex: 1,
		ImpactScore:    2 * original * radius,
	}

	nearest := math.Inf(1)
	for s := 0; s < steps; s++ {
		x := lo + (hi-lo)*float64(s)/float64(steps-1)
		if !slices.Equal(rescale(weights, target, x).Order(), baseline) {
			res.ReversalPoints = append(res.ReversalPoints, x)
			nearest = math.Min(nearest, math.Abs(x-original))
		}
	}
	if len(res.ReversalPoints) > 0 {
		res.StabilityIndex = nearest / radius
	}
	return res, nil
}

// AnalyzeAllSensitivity sweeps each item in targets, or every item when
// targets is empty, and returns the results in targets order.
func AnalyzeAllSensitivity(weights domain.WeightVector, targets []int, radius float64, steps int) ([]domain.SensitivityResult, error) {
	if len(targets) == 0 {
		targets = make([]int, len(weights))
		for i := range targets {
			targets[i] = i
		}
	}
	out := make([]domain.SensitivityResult, 0, len(targets))
	for _, target := range targets {
		res, err := AnalyzeSensitivity(weights, target, radius, steps)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}

// rescale sets item target to x and scales the others by (1−x)/(1−w).
func rescale(weights domain.WeightVector, target int, x float64) domain.WeightVector {
	out := weights.Clone()
	old := out[target]
	out[target] = x
	if old != 1 {
		f := (1 - x) / (1 - old)
		for i := range out {
			if i != target {
				out[i] *= f
			}
		}
	}
	return out.Normalize()
}

// SensitivityUnit sweeps the weight of each selected item in the group
// (or single evaluator) weights in State.
//
// State requirements:
//   - domain.KeyConsensus (aggregated weights), or else domain.KeySolution
//   - domain.KeyItemLabels (optional, for the result label)
//
// Writes domain.KeySensitivity.
type SensitivityUnit struct {
	name   string
	config SensitivityConfig
}

// SensitivityConfig selects the items to perturb and the sweep shape.
type SensitivityConfig struct {
	// Targets are the indices of the items whose weights are swept, one
	// at a time. Empty sweeps every item.
	Targets []int `yaml:"targets,omitempty" json:"targets,omitempty" validate:"omitempty,unique,dive,min=0"`

	// Radius is the half-width of the sweep around the original weight.
	Radius float64 `yaml:"radius" json:"radius" validate:"gt=0,lte=1"`

	// Steps is the number of evenly spaced sweep points.
	Steps int `yaml:"steps" json:"steps" validate:"min=2,max=10000"`
}

// DefaultSensitivityConfig sweeps every item by ±0.5 in 100 steps.
func DefaultSensitivityConfig() SensitivityConfig {
	return SensitivityConfig{Radius: 0.5, Steps: 100}
}

// NewSensitivityUnit creates a SensitivityUnit with validated configuration.
func NewSensitivityUnit(name string, config SensitivityConfig) (*SensitivityUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &SensitivityUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *SensitivityUnit) Name() string { return u.name }

// Execute sweeps the configured items.
func (u *SensitivityUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	var weights domain.WeightVector
	if c, ok := domain.Get(state, domain.KeyConsensus); ok && c != nil {
		weights = c.AggregatedWeights
	} else if sol, ok := domain.Get(state, domain.KeySolution); ok && sol != nil {
		weights = sol.Weights
	} else {
		return state, domain.MissingKey(domain.KeyConsensus)
	}

	results, err := AnalyzeAllSensitivity(weights, u.config.Targets, u.config.Radius, u.config.Steps)
	if err != nil {
		return state, err
	}
	if labels, ok := domain.Get(state, domain.KeyItemLabels); ok {
		for i := range results {
			if item := results[i].Item; item < len(labels) {
				results[i].Label = labels[item]
			}
		}
	}
	return domain.With(state, domain.KeySensitivity, results), nil
}

// Validate verifies the unit configuration.
func (u *SensitivityUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the configuration from a YAML node.
func (u *SensitivityUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultSensitivityConfig()
	if err := params.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	u.config = cfg
	return nil
}

// NewSensitivityFromConfig creates a SensitivityUnit from a configuration map.
func NewSensitivityFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultSensitivityConfig()
	if err := decodeConfigMap(config, &cfg); err != nil {
		return nil, err
	}
	return NewSensitivityUnit(id, cfg)
}
