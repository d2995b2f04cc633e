package units

import (
	"context"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var _ ports.Unit = (*MatrixBuilderUnit)(nil)

// scaleTolerance absorbs decimal renderings of 1/9 such as 0.111111111111.
const scaleTolerance = 1e-9

// BuildMatrix assembles a dense n×n reciprocal comparison matrix from a
// sparse set of judgments. The diagonal is 1 and every supplied (i,j)
// judgment v also sets (j,i) to 1/v.
//
// Under FillNeutral any pair without a judgment is recorded as 1.0, i.e.
// "equal importance". That silently treats not-yet-judged as judged-equal
// and yields an artificially consistent matrix for sparse input; use
// FillStrict to get a *domain.IncompleteMatrixError instead.
//
// A second judgment for an already judged pair is accepted only when it
// agrees with the first (the same value for (i,j), or its exact reciprocal
// for (j,i)).
func BuildMatrix(n int, entries []domain.ComparisonEntry, mode FillMode) (domain.ComparisonMatrix, error) {
	if n < 1 {
		return nil, domain.NewInvalidComparisonError(-1, -1, fmt.Sprintf("matrix order %d, need at least 1", n))
	}
	if mode == "" {
		mode = FillNeutral
	}
	if mode != FillNeutral && mode != FillStrict {
		return nil, fmt.Errorf("%w: unknown fill mode %q", domain.ErrInvalidConfiguration, mode)
	}

	m := domain.NewIdentityMatrix(n)
	judged := make([][]bool, n)
	for i := range judged {
		judged[i] = make([]bool, n)
	}

	for _, e := range entries {
		if err := validateEntry(n, e); err != nil {
			return nil, err
		}
		i, j, v := e.Row, e.Col, e.Value
		if judged[i][j] {
			if math.Abs(m[i][j]-v) > scaleTolerance*math.Max(1, v) {
				return nil, domain.NewInvalidComparisonError(i, j,
					fmt.Sprintf("conflicting duplicate judgment %v, already %v", v, m[i][j]))
			}
			continue
		}
		m[i][j] = v
		m[j][i] = 1 / v
		judged[i][j], judged[j][i] = true, true
	}

	if mode == FillStrict {
		var missing []domain.Pair
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if !judged[i][j] {
					missing = append(missing, domain.Pair{I: i, J: j})
				}
			}
		}
		if len(missing) > 0 {
			return nil, &domain.IncompleteMatrixError{Order: n, Missing: missing}
		}
	}
	return m, nil
}

func validateEntry(n int, e domain.ComparisonEntry) error {
	if e.Row < 0 || e.Row >= n || e.Col < 0 || e.Col >= n {
		return domain.NewInvalidComparisonError(e.Row, e.Col, fmt.Sprintf("index outside [0,%d)", n))
	}
	if e.Row == e.Col {
		return domain.NewInvalidComparisonError(e.Row, e.Col, "self-comparison")
	}
	if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
		return domain.NewInvalidComparisonError(e.Row, e.Col, fmt.Sprintf("non-finite value %v", e.Value))
	}
	if e.Value < domain.MinComparisonValue-scaleTolerance || e.Value > domain.MaxComparisonValue+scaleTolerance {
		return &domain.OutOfRangeError{Row: e.Row, Col: e.Col, Value: e.Value}
	}
	return nil
}

// MatrixBuilderUnit turns submitted judgments held in State into a
// comparison matrix.
//
// State requirements:
//   - domain.KeyItemLabels or domain.KeyItemCount: the items being compared
//   - domain.KeyComparisons and/or domain.KeyLabeledComparisons
//
// Writes domain.KeyMatrix and domain.KeyItemCount.
type MatrixBuilderUnit struct {
	name   string
	config MatrixBuilderConfig
}

// MatrixBuilderConfig controls how incomplete input is treated.
type MatrixBuilderConfig struct {
	// FillMode is "neutral" (missing pairs become 1.0) or "strict"
	// (missing pairs are an error).
	FillMode FillMode `yaml:"fill_mode" json:"fill_mode" validate:"required,oneof=neutral strict"`
}

// DefaultMatrixBuilderConfig returns the neutral-fill configuration.
func DefaultMatrixBuilderConfig() MatrixBuilderConfig {
	return MatrixBuilderConfig{FillMode: FillNeutral}
}

// NewMatrixBuilderUnit creates a MatrixBuilderUnit with validated configuration.
func NewMatrixBuilderUnit(name string, config MatrixBuilderConfig) (*MatrixBuilderUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &MatrixBuilderUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *MatrixBuilderUnit) Name() string { return u.name }

// Execute builds the matrix for the judgments in state.
func (u *MatrixBuilderUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	labels, hasLabels := domain.Get(state, domain.KeyItemLabels)
	n, hasCount := domain.Get(state, domain.KeyItemCount)
	switch {
	case hasLabels && hasCount && n != len(labels):
		return state, fmt.Errorf("%w: item count %d but %d labels", domain.ErrDimensionMismatch, n, len(labels))
	case hasLabels:
		n = len(labels)
	case !hasCount:
		return state, domain.MissingKey(domain.KeyItemCount)
	}

	entries, _ := domain.Get(state, domain.KeyComparisons)
	if labeled, ok := domain.Get(state, domain.KeyLabeledComparisons); ok && len(labeled) > 0 {
		if !hasLabels {
			return state, domain.MissingKey(domain.KeyItemLabels)
		}
		resolved, err := ResolveLabeledComparisons(labels, labeled)
		if err != nil {
			return state, fmt.Errorf("resolving labeled comparisons: %w", err)
		}
		entries = append(entries, resolved...)
	}

	m, err := BuildMatrix(n, entries, u.config.FillMode)
	if err != nil {
		return state, err
	}

	return state.WithMultiple(map[string]any{
		domain.KeyMatrix.Name():    m,
		domain.KeyItemCount.Name(): n,
	}), nil
}

// Validate verifies the unit configuration.
func (u *MatrixBuilderUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the configuration from a YAML node. The
// current configuration is kept on error.
func (u *MatrixBuilderUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultMatrixBuilderConfig()
	if err := params.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	u.config = cfg
	return nil
}

// NewMatrixBuilderFromConfig creates a MatrixBuilderUnit from a configuration map.
// This is the boundary adapter for YAML/JSON configuration.
func NewMatrixBuilderFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultMatrixBuilderConfig()
	if err := decodeConfigMap(config, &cfg); err != nil {
		return nil, err
	}
	return NewMatrixBuilderUnit(id, cfg)
}
