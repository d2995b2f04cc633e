package units

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var _ ports.Unit = (*SynthesisUnit)(nil)

// Synthesize combines criterion weights with each criterion's local
// alternative priorities: final_a = Σ_c w_c · w_{a|c}. Criteria without a
// local vector are skipped and returned in skipped; the result is then
// renormalized over the criteria that contributed.
func Synthesize(
	criteria []string,
	criterionWeights domain.WeightVector,
	local map[string]domain.WeightVector,
	alternatives int,
) (final domain.WeightVector, skipped []string, err error) {
	if len(criteria) != len(criterionWeights) {
		return nil, nil, fmt.Errorf("%w: %d criteria, %d criterion weights",
			domain.ErrDimensionMismatch, len(criteria), len(criterionWeights))
	}
	if alternatives < 1 {
		return nil, nil, domain.NewInvalidComparisonError(-1, -1, "synthesis needs at least one alternative")
	}

	final = make(domain.WeightVector, alternatives)
	var used float64
	for c, name := range criteria {
		lv, ok := local[name]
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		if len(lv) != alternatives {
			return nil, nil, fmt.Errorf("%w: criterion %q ranks %d alternatives, want %d",
				domain.ErrDimensionMismatch, name, len(lv), alternatives)
		}
		for a, w := range lv {
			final[a] += criterionWeights[c] * w
		}
		used += criterionWeights[c]
	}
	if used == 0 {
		return nil, skipped, fmt.Errorf("%w: no criterion has local priorities", domain.ErrInvalidState)
	}
	return final.Normalize(), skipped, nil
}

// SynthesisUnit computes final alternative priorities from a criteria
// consensus and per-criterion alternative weights.
//
// State requirements:
//   - domain.KeyItemLabels: criterion labels
//   - domain.KeyConsensus or domain.KeySolution: criterion weights
//   - domain.KeyLocalPriorities: criterion label → alternative weights
//   - domain.KeyAlternativeLabels
//
// Writes domain.KeyFinalPriorities.
type SynthesisUnit struct {
	name   string
	config SynthesisConfig
	logger *slog.Logger
}

// SynthesisConfig controls how missing local priorities are handled.
type SynthesisConfig struct {
	// RequireAllCriteria fails instead of skipping criteria with no local
	// priorities.
	RequireAllCriteria bool `yaml:"require_all_criteria" json:"require_all_criteria"`
}

// DefaultSynthesisConfig skips criteria without local priorities.
func DefaultSynthesisConfig() SynthesisConfig { return SynthesisConfig{} }

// NewSynthesisUnit creates a SynthesisUnit. A nil logger uses slog.Default().
func NewSynthesisUnit(name string, config SynthesisConfig, logger *slog.Logger) (*SynthesisUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SynthesisUnit{name: name, config: config, logger: logger}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *SynthesisUnit) Name() string { return u.name }

// Execute synthesizes domain.KeyFinalPriorities.
func (u *SynthesisUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	criteria, ok := domain.Get(state, domain.KeyItemLabels)
	if !ok {
		return state, domain.MissingKey(domain.KeyItemLabels)
	}
	var weights domain.WeightVector
	if c, ok := domain.Get(state, domain.KeyConsensus); ok && c != nil {
		weights = c.AggregatedWeights
	} else if sol, ok := domain.Get(state, domain.KeySolution); ok && sol != nil {
		weights = sol.Weights
	} else {
		return state, domain.MissingKey(domain.KeyConsensus)
	}
	local, ok := domain.Get(state, domain.KeyLocalPriorities)
	if !ok {
		return state, domain.MissingKey(domain.KeyLocalPriorities)
	}
	alternatives, ok := domain.Get(state, domain.KeyAlternativeLabels)
	if !ok {
		return state, domain.MissingKey(domain.KeyAlternativeLabels)
	}

	final, skipped, err := Synthesize(criteria, weights, local, len(alternatives))
	if err != nil {
		return state, err
	}
	if len(skipped) > 0 {
		if u.config.RequireAllCriteria {
			return state, fmt.Errorf("%w: no local priorities for criteria %v", domain.ErrInvalidState, skipped)
		}
		u.logger.WarnContext(ctx, "criteria skipped during synthesis",
			"unit", u.name,
			"skipped", skipped)
	}
	return domain.With(state, domain.KeyFinalPriorities, final), nil
}

// Validate verifies the unit configuration.
func (u *SynthesisUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the configuration from a YAML node.
func (u *SynthesisUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultSynthesisConfig()
	if err := params.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	u.config = cfg
	return nil
}

// NewSynthesisFromConfig creates a SynthesisUnit from a configuration map.
// It logs through slog.Default().
func NewSynthesisFromConfig(id string, config map[string]any) (ports.Unit, error) {
	return SynthesisFactory(nil)(id, config)
}

// SynthesisFactory returns a factory whose units log through logger.
func SynthesisFactory(logger *slog.Logger) ports.UnitFactory {
	return func(id string, config map[string]any) (ports.Unit, error) {
		cfg := DefaultSynthesisConfig()
		if err := decodeConfigMap(config, &cfg); err != nil {
			return nil, err
		}
		return NewSynthesisUnit(id, cfg, logger)
	}
}
