package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var _ ports.Pipeline = (*Pipeline)(nil)

// Pipeline is a sequential execution container that processes executables
// in strict order, where each executable's output becomes the input for
// the next executable in the sequence.
type Pipeline struct {
	// id is the unique identifier for this pipeline, used in error reporting.
	id string
	// executables contains the ordered list of components that will execute
	// sequentially, with data flowing from one to the next.
	executables []ports.Executable
	// idSet tracks executable IDs for O(1) duplicate detection.
	idSet map[string]struct{}
	// mu provides thread-safe access to the executables slice during
	// concurrent read and write operations.
	mu sync.RWMutex
}

// NewPipeline creates a new sequential execution pipeline with the specified
// identifier, ready to accept executable components.
func NewPipeline(id string) *Pipeline {
	return &Pipeline{
		id:          id,
		executables: make([]ports.Executable, 0),
		idSet:       make(map[string]struct{}),
	}
}

// Execute processes all executables in this pipeline sequentially,
// passing the output state from each executable as input to the next.
// Execute checks for cancellation before each step.
//
// On failure the returned State is the failing step's output, so a step
// that reports a degraded result alongside its error (consensus with a
// single evaluator) still hands that result back to the caller.
func (p *Pipeline) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	p.mu.RLock()
	executables := make([]ports.Executable, len(p.executables))
	copy(executables, p.executables)
	p.mu.RUnlock()

	currentState := state
	for _, exec := range executables {
		if err := ctx.Err(); err != nil {
			return currentState, err
		}
		newState, err := exec.Execute(ctx, currentState)
		if err != nil {
			return newState, fmt.Errorf("pipeline %s: execution failed at %s: %w", p.id, exec.ID(), err)
		}
		currentState = newState
	}

	return currentState, nil
}

// ID returns the unique string identifier for this pipeline.
func (p *Pipeline) ID() string { return p.id }

// Add appends an executable to the end of this pipeline's execution
// sequence. Add returns an error if the executable is nil or if an
// executable with the same ID already exists in the pipeline.
// Add is safe for concurrent use with Execute.
func (p *Pipeline) Add(exec ports.Executable) error {
	if exec == nil {
		return fmt.Errorf("cannot add nil executable to pipeline")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	execID := exec.ID()
	if _, exists := p.idSet[execID]; exists {
		return fmt.Errorf("executable with ID %s already exists in pipeline", execID)
	}

	p.executables = append(p.executables, exec)
	p.idSet[execID] = struct{}{}
	return nil
}

// Executables returns a copy of the ordered list of executables in this
// pipeline. The returned slice is safe to modify without affecting the
// pipeline.
func (p *Pipeline) Executables() []ports.Executable {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]ports.Executable, len(p.executables))
	copy(result, p.executables)
	return result
}

// NewUnitPipeline builds a pipeline from units, each wrapped in a
// UnitAdapter keyed by the unit's name.
func NewUnitPipeline(id string, us ...ports.Unit) (*Pipeline, error) {
	p := NewPipeline(id)
	for _, u := range us {
		if u == nil {
			return nil, fmt.Errorf("pipeline %s: nil unit", id)
		}
		if err := p.Add(NewUnitAdapter(u, u.Name())); err != nil {
			return nil, err
		}
	}
	return p, nil
}
