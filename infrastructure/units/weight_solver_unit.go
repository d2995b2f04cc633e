package units

import (
	"context"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var (
	_ ports.Unit          = (*WeightSolverUnit)(nil)
	_ domain.WeightSolver = (*WeightSolverUnit)(nil)
)

// Power iteration defaults.
const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-10
)

// SolverOptions bounds power iteration.
type SolverOptions struct {
	// MaxIterations caps power-iteration steps. Zero means DefaultMaxIterations.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations" validate:"min=0,max=100000"`

	// Tolerance is the L1 convergence threshold. Zero means DefaultTolerance.
	Tolerance float64 `yaml:"tolerance" json:"tolerance" validate:"min=0"`
}

func (o SolverOptions) withDefaults() SolverOptions {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

type solverFunc func(m domain.ComparisonMatrix, opts SolverOptions) domain.Solution

// solvers is the method strategy table.
var solvers = map[domain.Method]solverFunc{
	domain.MethodEigenvector:   powerIteration,
	domain.MethodGeometricMean: geometricMean,
}

// DeriveWeights computes the priority vector and principal eigenvalue of m.
//
// The geometric mean method runs instead of power iteration when asked
// for, when n ≤ 2, or when m contains a zero. Solution.Method records the
// method that actually ran. Running out of iterations is not an error: the
// best vector is returned with Solution.Warning set.
//
// A structurally invalid matrix yields a *domain.InvalidComparisonError and
// an unsupported method wraps domain.ErrUnknownMethod.
func DeriveWeights(m domain.ComparisonMatrix, method domain.Method, opts SolverOptions) (domain.Solution, error) {
	if err := m.ValidateShape(); err != nil {
		return domain.Solution{}, err
	}
	if method == "" {
		method = domain.MethodEigenvector
	}
	solve, ok := solvers[method]
	if !ok {
		return domain.Solution{}, fmt.Errorf("%w: %q", domain.ErrUnknownMethod, method)
	}

	n := m.Order()
	if n == 1 {
		return domain.Solution{
			Weights:    domain.WeightVector{1},
			Eigenvalue: 1,
			Method:     method,
			Converged:  true,
		}, nil
	}
	if n <= 2 || m.HasZero() {
		solve = solvers[domain.MethodGeometricMean]
	}
	return solve(m, opts.withDefaults()), nil
}

func powerIteration(m domain.ComparisonMatrix, opts SolverOptions) domain.Solution {
	n := m.Order()
	v := make([]float64, n)
	for i := range v {
		v[i] = 1 / float64(n)
	}

	var residual float64
	for iter := 1; iter <= opts.MaxIterations; iter++ {
		next := normalizeSum(m.Multiply(v))
		residual = l1Distance(v, next)
		v = next
		if residual < opts.Tolerance {
			return domain.Solution{
				Weights:    domain.WeightVector(v),
				Eigenvalue: estimateEigenvalue(m, v),
				Method:     domain.MethodEigenvector,
				Iterations: iter,
				Converged:  true,
			}
		}
	}

	return domain.Solution{
		Weights:    domain.WeightVector(v),
		Eigenvalue: estimateEigenvalue(m, v),
		Method:     domain.MethodEigenvector,
		Iterations: opts.MaxIterations,
		Warning: &domain.WeightComputationWarning{
			Iterations: opts.MaxIterations,
			Residual:   residual,
			Tolerance:  opts.Tolerance,
		},
	}
}

// geometricMean is the closed-form row geometric mean method. Logs keep
// large products of 9s from overflowing.
func geometricMean(m domain.ComparisonMatrix, _ SolverOptions) domain.Solution {
	n := m.Order()
	w := make([]float64, n)
	for i, row := range m {
		var logSum float64
		zero := false
		for _, a := range row {
			if a == 0 {
				zero = true
				break
			}
			logSum += math.Log(a)
		}
		if !zero {
			w[i] = math.Exp(logSum / float64(n))
		}
	}
	w = normalizeSum(w)
	return domain.Solution{
		Weights:    domain.WeightVector(w),
		Eigenvalue: estimateEigenvalue(m, w),
		Method:     domain.MethodGeometricMean,
		Converged:  true,
	}
}

// estimateEigenvalue returns mean_i (M·v)_i / v_i, skipping v_i = 0.
func estimateEigenvalue(m domain.ComparisonMatrix, v []float64) float64 {
	mv := m.Multiply(v)
	var sum float64
	var count int
	for i := range v {
		if v[i] == 0 {
			continue
		}
		sum += mv[i] / v[i]
		count++
	}
	if count == 0 {
		return float64(len(v))
	}
	return sum / float64(count)
}

func normalizeSum(v []float64) []float64 {
	return []float64(domain.WeightVector(v).Normalize())
}

func l1Distance(a, b []float64) float64 {
	var d float64
	for i := range a {
		d += math.Abs(a[i] - b[i])
	}
	return d
}

// WeightSolverUnit derives weights for the matrix in State.
//
// State requirements:
//   - domain.KeyMatrix
//
// Writes domain.KeySolution.
type WeightSolverUnit struct {
	name   string
	config WeightSolverConfig
}

// WeightSolverConfig selects the method and iteration bounds.
type WeightSolverConfig struct {
	Method        domain.Method `yaml:"method" json:"method" validate:"required,oneof=eigenvector geometric_mean"`
	SolverOptions `yaml:",inline"`
}

// DefaultWeightSolverConfig returns power iteration with the standard bounds.
func DefaultWeightSolverConfig() WeightSolverConfig {
	return WeightSolverConfig{
		Method: domain.MethodEigenvector,
		SolverOptions: SolverOptions{
			MaxIterations: DefaultMaxIterations,
			Tolerance:     DefaultTolerance,
		},
	}
}

// NewWeightSolverUnit creates a WeightSolverUnit with validated configuration.
func NewWeightSolverUnit(name string, config WeightSolverConfig) (*WeightSolverUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &WeightSolverUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *WeightSolverUnit) Name() string { return u.name }

// Solve implements domain.WeightSolver using the unit's iteration bounds.
func (u *WeightSolverUnit) Solve(m domain.ComparisonMatrix, method domain.Method) (domain.Solution, error) {
	return DeriveWeights(m, method, u.config.SolverOptions)
}

// Execute derives weights for domain.KeyMatrix.
func (u *WeightSolverUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	m, ok := domain.Get(state, domain.KeyMatrix)
	if !ok {
		return state, domain.MissingKey(domain.KeyMatrix)
	}
	sol, err := u.Solve(m, u.config.Method)
	if err != nil {
		return state, err
	}
	return domain.With(state, domain.KeySolution, &sol), nil
}

// Validate verifies the unit configuration.
func (u *WeightSolverUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the configuration from a YAML node. The
// current configuration is kept on error.
func (u *WeightSolverUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultWeightSolverConfig()
	if err := params.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	u.config = cfg
	return nil
}

// NewWeightSolverFromConfig creates a WeightSolverUnit from a configuration map.
func NewWeightSolverFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultWeightSolverConfig()
	if err := decodeConfigMap(config, &cfg); err != nil {
		return nil, err
	}
	return NewWeightSolverUnit(id, cfg)
}
