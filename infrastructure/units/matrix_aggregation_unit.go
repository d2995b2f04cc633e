package units

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var _ ports.Unit = (*MatrixAggregationUnit)(nil)

// AggregationMethod selects how individual judgment matrices are combined
// into one group matrix (aggregation of individual judgments).
type AggregationMethod string

// Supported matrix aggregation methods.
const (
	// AggregateGeometric is the element-wise geometric mean. It preserves
	// reciprocity.
	AggregateGeometric AggregationMethod = "geometric"

	// AggregateArithmetic is the element-wise arithmetic mean. The result
	// is generally not reciprocal.
	AggregateArithmetic AggregationMethod = "arithmetic"

	// AggregateWeightedGeometric is the element-wise geometric mean with
	// per-evaluator exponents normalized to sum to 1. It preserves
	// reciprocity.
	AggregateWeightedGeometric AggregationMethod = "weighted_geometric"
)

// AggregateMatrices combines evaluator matrices element-wise. Evaluators
// are processed in ascending id order. influence is only read by
// AggregateWeightedGeometric; evaluators missing from it weigh 0, and a
// non-positive total is rejected.
func AggregateMatrices(
	matrices map[string]domain.ComparisonMatrix,
	method AggregationMethod,
	influence map[string]float64,
) (domain.ComparisonMatrix, error) {
	if len(matrices) == 0 {
		return nil, ErrNoMatrices
	}
	ids := make([]string, 0, len(matrices))
	for id := range matrices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	n := matrices[ids[0]].Order()
	for _, id := range ids {
		m := matrices[id]
		if err := m.ValidateShape(); err != nil {
			return nil, fmt.Errorf("evaluator %q: %w", id, err)
		}
		if m.Order() != n {
			return nil, fmt.Errorf("%w: evaluator %q matrix order %d, want %d",
				domain.ErrDimensionMismatch, id, m.Order(), n)
		}
	}

	exponents := make([]float64, len(ids))
	switch method {
	case AggregateGeometric, AggregateArithmetic:
		for k := range exponents {
			exponents[k] = 1 / float64(len(ids))
		}
	case AggregateWeightedGeometric:
		var total float64
		for k, id := range ids {
			w := influence[id]
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("%w: evaluator %q influence %v", domain.ErrInvalidConfiguration, id, w)
			}
			exponents[k] = w
			total += w
		}
		if total <= 0 {
			return nil, fmt.Errorf("%w: evaluator influence sums to %v", domain.ErrInvalidConfiguration, total)
		}
		for k := range exponents {
			exponents[k] /= total
		}
	default:
		return nil, fmt.Errorf("%w: unknown aggregation method %q", domain.ErrInvalidConfiguration, method)
	}

	out := domain.NewIdentityMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if method == AggregateArithmetic {
				var sum float64
				for k, id := range ids {
					sum += exponents[k] * matrices[id][i][j]
				}
				out[i][j] = sum
				continue
			}
			var logSum float64
			for k, id := range ids {
				if exponents[k] == 0 {
					continue
				}
				logSum += exponents[k] * math.Log(math.Max(matrices[id][i][j], weightFloor))
			}
			out[i][j] = math.Exp(logSum)
		}
	}
	return out, nil
}

// MatrixAggregationUnit aggregates evaluator matrices held in State.
//
// State requirements:
//   - domain.KeyEvaluatorMatrices
//   - domain.KeyEvaluatorInfluence (weighted_geometric only)
//
// Writes domain.KeyAggregatedMatrix and, so that a weight solver can run
// next, domain.KeyMatrix.
type MatrixAggregationUnit struct {
	name   string
	config MatrixAggregationConfig
}

// MatrixAggregationConfig selects the aggregation method.
type MatrixAggregationConfig struct {
	Method AggregationMethod `yaml:"method" json:"method" validate:"required,oneof=geometric arithmetic weighted_geometric"`
}

// DefaultMatrixAggregationConfig returns the geometric mean.
func DefaultMatrixAggregationConfig() MatrixAggregationConfig {
	return MatrixAggregationConfig{Method: AggregateGeometric}
}

// NewMatrixAggregationUnit creates a MatrixAggregationUnit with validated configuration.
func NewMatrixAggregationUnit(name string, config MatrixAggregationConfig) (*MatrixAggregationUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &MatrixAggregationUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *MatrixAggregationUnit) Name() string { return u.name }

// Execute aggregates domain.KeyEvaluatorMatrices.
func (u *MatrixAggregationUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	matrices, ok := domain.Get(state, domain.KeyEvaluatorMatrices)
	if !ok {
		return state, domain.MissingKey(domain.KeyEvaluatorMatrices)
	}
	influence, _ := domain.Get(state, domain.KeyEvaluatorInfluence)
	if u.config.Method == AggregateWeightedGeometric && influence == nil {
		return state, domain.MissingKey(domain.KeyEvaluatorInfluence)
	}

	m, err := AggregateMatrices(matrices, u.config.Method, influence)
	if err != nil {
		return state, err
	}
	return state.WithMultiple(map[string]any{
		domain.KeyAggregatedMatrix.Name(): m,
		domain.KeyMatrix.Name():           m,
		domain.KeyItemCount.Name():        m.Order(),
	}), nil
}

// Validate verifies the unit configuration.
func (u *MatrixAggregationUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the configuration from a YAML node.
func (u *MatrixAggregationUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultMatrixAggregationConfig()
	if err := params.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	u.config = cfg
	return nil
}

// NewMatrixAggregationFromConfig creates a MatrixAggregationUnit from a configuration map.
func NewMatrixAggregationFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultMatrixAggregationConfig()
	if err := decodeConfigMap(config, &cfg); err != nil {
		return nil, err
	}
	return NewMatrixAggregationUnit(id, cfg)
}
