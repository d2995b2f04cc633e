package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks. Every typed error below unwraps
// to one of these.
var (
	// ErrInvalidComparison indicates malformed comparison input.
	ErrInvalidComparison = errors.New("invalid comparison")

	// ErrOutOfRange indicates a judgment outside the [1/9, 9] scale.
	ErrOutOfRange = errors.New("comparison value out of range")

	// ErrIncompleteMatrix indicates missing pairs under strict fill mode.
	ErrIncompleteMatrix = errors.New("incomplete comparison matrix")

	// ErrUnsupportedOrder indicates a matrix order beyond the Random Index table.
	ErrUnsupportedOrder = errors.New("unsupported matrix order")

	// ErrInsufficientData indicates too few evaluators for a consensus.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNonConvergence indicates power iteration exhausted its budget.
	ErrNonConvergence = errors.New("weight computation did not converge")

	// ErrDimensionMismatch indicates vectors or matrices of different order.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrUnknownMethod indicates an unsupported weight derivation method.
	ErrUnknownMethod = errors.New("unknown weight method")

	// ErrInvalidState indicates a unit received a State missing required input.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidConfiguration indicates configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// InvalidComparisonError reports a structurally malformed judgment, such
// as a self-comparison or an index outside the matrix. Row or Col is -1
// when it does not apply.
type InvalidComparisonError struct {
	Row    int
	Col    int
	Reason string
}

// Error implements the error interface for InvalidComparisonError.
func (e *InvalidComparisonError) Error() string {
	switch {
	case e.Row < 0 && e.Col < 0:
		return fmt.Sprintf("invalid comparison: %s", e.Reason)
	case e.Col < 0:
		return fmt.Sprintf("invalid comparison at row %d: %s", e.Row, e.Reason)
	default:
		return fmt.Sprintf("invalid comparison (%d,%d): %s", e.Row, e.Col, e.Reason)
	}
}

// Unwrap returns ErrInvalidComparison.
func (e *InvalidComparisonError) Unwrap() error { return ErrInvalidComparison }

// NewInvalidComparisonError creates a new InvalidComparisonError.
func NewInvalidComparisonError(row, col int, reason string) *InvalidComparisonError {
	return &InvalidComparisonError{Row: row, Col: col, Reason: reason}
}

// OutOfRangeError names the pair whose value fell outside [1/9, 9]. It
// matches both ErrOutOfRange and ErrInvalidComparison.
type OutOfRangeError struct {
	Row   int
	Col   int
	Value float64
}

// Error implements the error interface for OutOfRangeError.
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("comparison (%d,%d) value %v outside [1/9, 9]", e.Row, e.Col, e.Value)
}

// Unwrap exposes both sentinels so callers may test for either.
func (e *OutOfRangeError) Unwrap() []error {
	return []error{ErrOutOfRange, ErrInvalidComparison}
}

// Pair is an unordered item pair (I < J).
type Pair struct {
	I int `json:"i" yaml:"i"`
	J int `json:"j" yaml:"j"`
}

// IncompleteMatrixError lists the pairs left unjudged under strict mode.
type IncompleteMatrixError struct {
	Order   int
	Missing []Pair
}

// Error implements the error interface for IncompleteMatrixError.
func (e *IncompleteMatrixError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, p := range e.Missing {
		parts = append(parts, fmt.Sprintf("(%d,%d)", p.I, p.J))
	}
	return fmt.Sprintf("incomplete %dx%d matrix: %d missing pairs %s",
		e.Order, e.Order, len(e.Missing), strings.Join(parts, " "))
}

// Unwrap returns ErrIncompleteMatrix.
func (e *IncompleteMatrixError) Unwrap() error { return ErrIncompleteMatrix }

// UnsupportedOrderError reports a matrix order missing from the Random
// Index table in use.
type UnsupportedOrderError struct {
	Order    int
	MaxOrder int
	Table    string
}

// Error implements the error interface for UnsupportedOrderError.
func (e *UnsupportedOrderError) Error() string {
	return fmt.Sprintf("matrix order %d exceeds random index table %q (max %d)", e.Order, e.Table, e.MaxOrder)
}

// Unwrap returns ErrUnsupportedOrder.
func (e *UnsupportedOrderError) Unwrap() error { return ErrUnsupportedOrder }

// InsufficientDataError reports how many evaluators were available when a
// consensus needed at least Required.
type InsufficientDataError struct {
	Have     int
	Required int
}

// Error implements the error interface for InsufficientDataError.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d evaluators, need at least %d", e.Have, e.Required)
}

// Unwrap returns ErrInsufficientData.
func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// WeightComputationWarning is the non-fatal report that power iteration
// stopped at its iteration budget. It satisfies error so it can be logged
// or joined, but the solver never returns it as a failure.
type WeightComputationWarning struct {
	Iterations int     `json:"iterations" yaml:"iterations"`
	Residual   float64 `json:"residual" yaml:"residual"`
	Tolerance  float64 `json:"tolerance" yaml:"tolerance"`
}

// Error implements the error interface for WeightComputationWarning.
func (w *WeightComputationWarning) Error() string {
	return fmt.Sprintf("power iteration stopped after %d iterations with residual %.3e (tolerance %.0e)",
		w.Iterations, w.Residual, w.Tolerance)
}

// Unwrap returns ErrNonConvergence.
func (w *WeightComputationWarning) Unwrap() error { return ErrNonConvergence }

// ValidationError collects several validation failures for one entity.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

// StateError reports which State key a unit could not read or write.
type StateError struct {
	Key       string
	Operation string
	Err       error
}

// Error implements the error interface for StateError.
func (e *StateError) Error() string {
	return fmt.Sprintf("state error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StateError) Unwrap() error { return e.Err }

// NewStateError creates a new StateError with the given details.
func NewStateError(key, operation string, err error) *StateError {
	return &StateError{Key: key, Operation: operation, Err: err}
}

// MissingKey is shorthand for a StateError reporting an absent key.
func MissingKey[T any](key Key[T]) *StateError {
	return NewStateError(key.name, "Get", ErrInvalidState)
}
