package application

import (
	"context"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var _ ports.Executable = (*UnitAdapter)(nil)

// UnitAdapter wraps a ports.Unit to implement the ports.Executable
// interface so units can be composed into pipelines.
type UnitAdapter struct {
	// unit is the underlying unit that performs the actual work.
	unit ports.Unit
	// id identifies this step within its pipeline.
	id string
}

// NewUnitAdapter creates a new adapter that wraps a ports.Unit to
// implement the ports.Executable interface.
func NewUnitAdapter(unit ports.Unit, id string) *UnitAdapter {
	return &UnitAdapter{
		unit: unit,
		id:   id,
	}
}

// Execute delegates to the underlying unit's Execute method.
func (ua *UnitAdapter) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	return ua.unit.Execute(ctx, state)
}

// ID returns the unique string identifier for this adapter.
func (ua *UnitAdapter) ID() string { return ua.id }

// Unit returns the wrapped unit.
func (ua *UnitAdapter) Unit() ports.Unit { return ua.unit }
