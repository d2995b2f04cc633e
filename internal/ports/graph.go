package ports

import (
	"context"

	"github.com/ahrav/go-ahp/internal/domain"
)

// Executable is anything that transforms a State: a wrapped unit or a
// whole pipeline.
type Executable interface {
	// Execute processes the given state and returns the updated state.
	//
	// The input state is immutable and MUST NOT be modified. Use
	// domain.With or state.WithMultiple to derive a new state. The same
	// state instance may be handed to several executables concurrently
	// when evaluators are processed in parallel.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// ID returns the unique string identifier for this executable.
	ID() string
}

// Pipeline runs executables in strict order, feeding each one's output
// state into the next.
type Pipeline interface {
	Executable

	// Add appends an executable to the end of this pipeline.
	Add(exec Executable) error

	// Executables returns the ordered executables in this pipeline.
	// The returned slice should not be modified by callers.
	Executables() []Executable
}
