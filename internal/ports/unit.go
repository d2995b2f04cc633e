// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-ahp/internal/domain"
)

// Unit is one step of an AHP evaluation: building a matrix, deriving
// weights, checking consistency, aggregating a group and so on.
// Units should be stateless and thread-safe for concurrent execution.
type Unit interface {
	// Name returns a unique identifier for this unit.
	// The name is used for logging, metrics and configuration.
	Name() string

	// Execute reads its inputs from state and returns a new State carrying
	// its outputs. The original State must not be modified.
	// Any errors during execution should be returned rather than panicking.
	//
	// Units should respect context cancellation and return promptly.
	//
	// Example:
	//
	//	newState, err := unit.Execute(ctx, state)
	//	if err != nil {
	//	    return state, fmt.Errorf("unit %s failed: %w", unit.Name(), err)
	//	}
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// Validate checks that the unit's configuration is usable.
	// It is typically called during pipeline construction.
	Validate() error
}

// UnitFactory builds a configured Unit from a loosely typed parameter map,
// usually decoded from YAML.
type UnitFactory func(id string, config map[string]any) (Unit, error)

// UnitRegistry resolves unit type names to factories.
type UnitRegistry interface {
	// CreateUnit instantiates a unit of the given registered type.
	CreateUnit(unitType string, id string, config map[string]any) (Unit, error)

	// RegisterUnitFactory adds or replaces the factory for unitType.
	RegisterUnitFactory(unitType string, factory UnitFactory) error

	// GetSupportedTypes lists registered unit types in ascending order.
	GetSupportedTypes() []string
}
