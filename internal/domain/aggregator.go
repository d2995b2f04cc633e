package domain

// WeightSolver derives a priority vector and principal eigenvalue from a
// comparison matrix.
//
// Implementations must be pure: the same matrix and method always yield
// bit-identical output, and the matrix is never modified. Numerical
// non-convergence is reported through Solution.Warning, never as an error;
// the error return is reserved for structurally invalid input.
type WeightSolver interface {
	Solve(m ComparisonMatrix, method Method) (Solution, error)
}

// ConsensusAggregator combines many evaluators' weight vectors for one
// criterion set into a group result.
//
// The judgments map is keyed by evaluator id. All vectors must share the
// same length and item order. Implementations must iterate evaluators in
// a fixed order so that the result does not depend on map iteration order.
//
// Example:
//
//	result, err := aggregator.Aggregate(map[string]WeightVector{
//	    "alice": {0.6, 0.3, 0.1},
//	    "bob":   {0.5, 0.3, 0.2},
//	})
type ConsensusAggregator interface {
	Aggregate(judgments map[string]WeightVector) (*GroupConsensusResult, error)
}
