package units

import (
	"context"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var _ ports.Unit = (*ConsistencyUnit)(nil)

// ConsistencyOptions selects the RI table, threshold and large-order policy.
type ConsistencyOptions struct {
	Table     RandomIndexTable
	Threshold float64
	Policy    OrderPolicy
}

// CheckConsistency computes CI and CR for a matrix of order n whose
// principal eigenvalue is lambda, under the default reject policy.
func CheckConsistency(lambda float64, n int, table RandomIndexTable, threshold float64) (domain.ConsistencyResult, error) {
	return CheckConsistencyWith(lambda, n, ConsistencyOptions{
		Table:     table,
		Threshold: threshold,
		Policy:    OrderPolicyReject,
	})
}

// CheckConsistencyWith is CheckConsistency with an explicit order policy.
//
// CI = (λ − n)/(n − 1), clamped at 0 to absorb round-off below n. CR =
// CI/RI(n), forced to 0 for n ≤ 2 where a reciprocal matrix cannot be
// inconsistent. A non-positive threshold means the conventional 0.10.
func CheckConsistencyWith(lambda float64, n int, opts ConsistencyOptions) (domain.ConsistencyResult, error) {
	if n < 1 {
		return domain.ConsistencyResult{}, domain.NewInvalidComparisonError(-1, -1,
			fmt.Sprintf("matrix order %d, need at least 1", n))
	}
	if math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return domain.ConsistencyResult{}, domain.NewInvalidComparisonError(-1, -1,
			fmt.Sprintf("non-finite eigenvalue %v", lambda))
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = domain.DefaultConsistencyThreshold
	}
	table := opts.Table
	if table.MaxOrder() == 0 {
		table = RandomIndexSaaty
	}

	ri, err := table.Lookup(n, opts.Policy)
	if err != nil {
		return domain.ConsistencyResult{}, err
	}

	res := domain.ConsistencyResult{
		Order:       n,
		Eigenvalue:  lambda,
		RandomIndex: ri,
		Threshold:   threshold,
	}
	if n > 1 {
		res.CI = math.Max(0, (lambda-float64(n))/float64(n-1))
	}
	if n > 2 && ri > 0 {
		res.CR = res.CI / ri
	}
	res.IsConsistent = res.CR <= threshold
	return res, nil
}

// ConsistencyUnit checks the solution in State.
//
// State requirements:
//   - domain.KeySolution
//
// Writes domain.KeyConsistency. An inconsistent matrix is reported, never
// turned into an error.
type ConsistencyUnit struct {
	name   string
	config ConsistencyConfig
	table  RandomIndexTable
}

// ConsistencyConfig selects the acceptability threshold and RI table.
type ConsistencyConfig struct {
	// Threshold is the CR ceiling, conventionally 0.10.
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"gt=0,lte=1"`

	// RandomIndex names the RI table, "saaty-1980" or "alonso-lamata-2006".
	RandomIndex string `yaml:"random_index" json:"random_index" validate:"required,oneof=saaty-1980 alonso-lamata-2006"`

	// OrderPolicy is "reject" or "clamp" for matrices larger than the table.
	OrderPolicy OrderPolicy `yaml:"order_policy" json:"order_policy" validate:"required,oneof=reject clamp"`
}

// DefaultConsistencyConfig returns the conventional Saaty setup.
func DefaultConsistencyConfig() ConsistencyConfig {
	return ConsistencyConfig{
		Threshold:   domain.DefaultConsistencyThreshold,
		RandomIndex: RandomIndexSaaty.Name(),
		OrderPolicy: OrderPolicyReject,
	}
}

// NewConsistencyUnit creates a ConsistencyUnit with validated configuration.
func NewConsistencyUnit(name string, config ConsistencyConfig) (*ConsistencyUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	table, err := RandomIndexByName(config.RandomIndex)
	if err != nil {
		return nil, err
	}
	return &ConsistencyUnit{name: name, config: config, table: table}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ConsistencyUnit) Name() string { return u.name }

// Check applies the unit's configuration to one eigenvalue.
func (u *ConsistencyUnit) Check(lambda float64, n int) (domain.ConsistencyResult, error) {
	return CheckConsistencyWith(lambda, n, ConsistencyOptions{
		Table:     u.table,
		Threshold: u.config.Threshold,
		Policy:    u.config.OrderPolicy,
	})
}

// Execute checks domain.KeySolution.
func (u *ConsistencyUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	sol, ok := domain.Get(state, domain.KeySolution)
	if !ok || sol == nil {
		return state, domain.MissingKey(domain.KeySolution)
	}
	res, err := u.Check(sol.Eigenvalue, len(sol.Weights))
	if err != nil {
		return state, err
	}
	return domain.With(state, domain.KeyConsistency, &res), nil
}

// Validate verifies the unit configuration.
func (u *ConsistencyUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the configuration from a YAML node. The
// current configuration is kept on error.
func (u *ConsistencyUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultConsistencyConfig()
	if err := params.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	table, err := RandomIndexByName(cfg.RandomIndex)
	if err != nil {
		return err
	}
	u.config, u.table = cfg, table
	return nil
}

// NewConsistencyFromConfig creates a ConsistencyUnit from a configuration map.
func NewConsistencyFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultConsistencyConfig()
	if err := decodeConfigMap(config, &cfg); err != nil {
		return nil, err
	}
	return NewConsistencyUnit(id, cfg)
}
