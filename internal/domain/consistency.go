package domain

// DefaultConsistencyThreshold is the conventional upper bound on an
// acceptable consistency ratio.
const DefaultConsistencyThreshold = 0.10

// ConsistencyResult reports how far a judgment matrix deviates from
// perfect transitive consistency.
type ConsistencyResult struct {
	// Order is the matrix order n.
	Order int `json:"order" yaml:"order"`

	// Eigenvalue is the principal eigenvalue the check was computed from.
	Eigenvalue float64 `json:"eigenvalue" yaml:"eigenvalue"`

	// CI is the consistency index (λmax − n)/(n − 1).
	CI float64 `json:"ci" yaml:"ci"`

	// RandomIndex is the RI value CI was normalized by; zero for n ≤ 2.
	RandomIndex float64 `json:"random_index" yaml:"random_index"`

	// CR is CI/RI, forced to 0 for n ≤ 2.
	CR float64 `json:"cr" yaml:"cr"`

	// Threshold is the CR ceiling used to classify the matrix.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// IsConsistent reports CR ≤ Threshold.
	IsConsistent bool `json:"is_consistent" yaml:"is_consistent"`
}

// EvaluatorJudgment is one evaluator's complete contribution to a
// criterion set.
type EvaluatorJudgment struct {
	EvaluatorID    string            `json:"evaluator_id" yaml:"evaluator_id"`
	CriterionSetID string            `json:"criterion_set_id" yaml:"criterion_set_id"`
	Matrix         ComparisonMatrix  `json:"matrix" yaml:"matrix"`
	Solution       Solution          `json:"solution" yaml:"solution"`
	Consistency    ConsistencyResult `json:"consistency" yaml:"consistency"`
}

// Weights is shorthand for the judgment's priority vector.
func (j EvaluatorJudgment) Weights() WeightVector { return j.Solution.Weights }
