package application

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ahrav/go-ahp/infrastructure/units"
	"github.com/ahrav/go-ahp/internal/ports"
)

// Built-in unit type names.
const (
	unitTypeMatrixBuilder     = "matrix_builder"
	unitTypeWeightSolver      = "weight_solver"
	unitTypeConsistency       = "consistency_checker"
	unitTypeConsensus         = "consensus_aggregator"
	unitTypeMatrixAggregation = "matrix_aggregation"
	unitTypeSensitivity       = "sensitivity"
	unitTypeMonteCarlo        = "monte_carlo"
	unitTypeSignificance      = "significance"
	unitTypeReport            = "report"
	unitTypeSynthesis         = "synthesis"
)

// Verify interface compliance at compile time.
var _ ports.UnitRegistry = (*DefaultUnitRegistry)(nil)

// DefaultUnitRegistry implements the UnitRegistry interface providing
// a factory for creating AHP units based on type and configuration.
// It supports dynamic registration of unit factories.
type DefaultUnitRegistry struct {
	// factories maps unit type strings to their factory functions.
	factories map[string]ports.UnitFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
}

// NewDefaultUnitRegistry creates a new unit registry with every built-in
// AHP unit type pre-registered. Units that log use logger; nil means
// slog.Default().
func NewDefaultUnitRegistry(logger *slog.Logger) *DefaultUnitRegistry {
	registry := &DefaultUnitRegistry{
		factories: make(map[string]ports.UnitFactory),
	}
	registry.registerBuiltinFactories(logger)
	return registry
}

// registerBuiltinFactories registers the standard unit types.
func (r *DefaultUnitRegistry) registerBuiltinFactories(logger *slog.Logger) {
	r.factories[unitTypeMatrixBuilder] = units.NewMatrixBuilderFromConfig
	r.factories[unitTypeWeightSolver] = units.NewWeightSolverFromConfig
	r.factories[unitTypeConsistency] = units.NewConsistencyFromConfig
	r.factories[unitTypeConsensus] = units.NewConsensusFromConfig
	r.factories[unitTypeMatrixAggregation] = units.NewMatrixAggregationFromConfig
	r.factories[unitTypeSensitivity] = units.NewSensitivityFromConfig
	r.factories[unitTypeMonteCarlo] = units.NewMonteCarloFromConfig
	r.factories[unitTypeSignificance] = units.NewSignificanceFromConfig
	r.factories[unitTypeReport] = units.NewReportFromConfig
	r.factories[unitTypeSynthesis] = units.SynthesisFactory(logger)
}

// CreateUnit creates a new unit instance based on the provided type,
// identifier, and configuration.
func (r *DefaultUnitRegistry) CreateUnit(
	unitType string,
	id string,
	config map[string]any,
) (ports.Unit, error) {
	r.mu.RLock()
	factory, exists := r.factories[unitType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported unit type: %s", unitType)
	}

	if id == "" {
		return nil, fmt.Errorf("unit ID cannot be empty")
	}

	if config == nil {
		config = make(map[string]any)
	}

	unit, err := factory(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit %s of type %s: %w", id, unitType, err)
	}

	return unit, nil
}

// RegisterUnitFactory registers a new factory function for a specific unit type.
// This allows extending the registry with custom unit types at runtime.
func (r *DefaultUnitRegistry) RegisterUnitFactory(
	unitType string,
	factory ports.UnitFactory,
) error {
	if unitType == "" {
		return fmt.Errorf("unit type cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[unitType] = factory
	return nil
}

// GetSupportedTypes returns every registered unit type in ascending order.
func (r *DefaultUnitRegistry) GetSupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for unitType := range r.factories {
		types = append(types, unitType)
	}
	slices.Sort(types)
	return types
}
