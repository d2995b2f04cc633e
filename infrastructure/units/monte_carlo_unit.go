package units

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var _ ports.Unit = (*MonteCarloUnit)(nil)

// pcgStream derives the PCG stream from the seed.
const pcgStream = 0x9e3779b97f4a7c15

// SimulateRankStability adds N(0, uncertainty²) noise to every weight,
// clamps each to [0.001, 0.999] and renormalizes, simulations times. The
// same seed always yields the same result.
//
// An item's Stability is the share of runs in which it held its modal
// rank; ties between ranks go to the better rank.
func SimulateRankStability(weights domain.WeightVector, simulations int, uncertainty float64, seed uint64) (*domain.MonteCarloResult, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if simulations < 1 {
		return nil, fmt.Errorf("%w: %d simulations", domain.ErrInvalidConfiguration, simulations)
	}
	if !(uncertainty > 0) || math.IsInf(uncertainty, 0) {
		return nil, fmt.Errorf("%w: uncertainty %v", domain.ErrInvalidConfiguration, uncertainty)
	}

	n := len(weights)
	noise := distuv.Normal{Mu: 0, Sigma: uncertainty, Src: rand.NewPCG(seed, seed^pcgStream)}
	samples := make([][]float64, n)
	counts := make([][]int, n)
	for i := range n {
		samples[i] = make([]float64, 0, simulations)
		counts[i] = make([]int, n)
	}

	perturbed := make(domain.WeightVector, n)
	for range simulations {
		for i, w := range weights {
			perturbed[i] = math.Min(maxSweepWeight, math.Max(minSweepWeight, w+noise.Rand()))
		}
		normalized := perturbed.Normalize()
		for i, r := range normalized.Ranks() {
			counts[i][r-1]++
			samples[i] = append(samples[i], normalized[i])
		}
	}

	res := &domain.MonteCarloResult{
		Simulations:   simulations,
		Uncertainty:   uncertainty,
		Seed:          seed,
		MeanWeights:   make([]float64, n),
		StdWeights:    make([]float64, n),
		RankStability: make([]domain.RankStability, n),
	}
	stabilities := make([]float64, n)
	for i := range n {
		res.MeanWeights[i], res.StdWeights[i] = stat.PopMeanStdDev(samples[i], nil)
		modal := 0
		for r, c := range counts[i] {
			if c > counts[i][modal] {
				modal = r
			}
		}
		stabilities[i] = float64(counts[i][modal]) / float64(simulations)
		res.RankStability[i] = domain.RankStability{Item: i, ModalRank: modal + 1, Stability: stabilities[i]}
	}
	res.OverallStability = stat.Mean(stabilities, nil)
	return res, nil
}

// MonteCarloUnit simulates weight noise on the group (or single evaluator)
// weights in State.
//
// State requirements:
//   - domain.KeyConsensus (aggregated weights), or else domain.KeySolution
//   - domain.KeyItemLabels (optional, for result labels)
//
// Writes domain.KeyMonteCarlo.
type MonteCarloUnit struct {
	name   string
	config MonteCarloConfig
}

// MonteCarloConfig sets the simulation size, noise and seed.
type MonteCarloConfig struct {
	Simulations int `yaml:"simulations" json:"simulations" validate:"min=1,max=1000000"`

	// Uncertainty is the standard deviation of the noise added to each weight.
	Uncertainty float64 `yaml:"uncertainty" json:"uncertainty" validate:"gt=0,lte=1"`

	Seed uint64 `yaml:"seed" json:"seed"`
}

// DefaultMonteCarloConfig runs 1000 simulations at σ = 0.1 with seed 1.
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{Simulations: 1000, Uncertainty: 0.1, Seed: 1}
}

// NewMonteCarloUnit creates a MonteCarloUnit with validated configuration.
func NewMonteCarloUnit(name string, config MonteCarloConfig) (*MonteCarloUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &MonteCarloUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *MonteCarloUnit) Name() string { return u.name }

// Execute runs the configured simulation.
func (u *MonteCarloUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	var weights domain.WeightVector
	if c, ok := domain.Get(state, domain.KeyConsensus); ok && c != nil {
		weights = c.AggregatedWeights
	} else if sol, ok := domain.Get(state, domain.KeySolution); ok && sol != nil {
		weights = sol.Weights
	} else {
		return state, domain.MissingKey(domain.KeyConsensus)
	}

	res, err := SimulateRankStability(weights, u.config.Simulations, u.config.Uncertainty, u.config.Seed)
	if err != nil {
		return state, err
	}
	if labels, ok := domain.Get(state, domain.KeyItemLabels); ok {
		for i := range res.RankStability {
			if i < len(labels) {
				res.RankStability[i].Label = labels[i]
			}
		}
	}
	return domain.With(state, domain.KeyMonteCarlo, res), nil
}

// Validate verifies the unit configuration.
func (u *MonteCarloUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the configuration from a YAML node.
func (u *MonteCarloUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultMonteCarloConfig()
	if err := params.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	u.config = cfg
	return nil
}

// NewMonteCarloFromConfig creates a MonteCarloUnit from a configuration map.
func NewMonteCarloFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultMonteCarloConfig()
	if err := decodeConfigMap(config, &cfg); err != nil {
		return nil, err
	}
	return NewMonteCarloUnit(id, cfg)
}
