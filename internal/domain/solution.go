package domain

// Method selects how priority weights are derived from a comparison matrix.
type Method string

const (
	// MethodEigenvector derives weights from the principal eigenvector via
	// power iteration.
	MethodEigenvector Method = "eigenvector"

	// MethodGeometricMean derives weights from normalized row geometric
	// means. It is closed-form and cannot fail to converge.
	MethodGeometricMean Method = "geometric_mean"
)

// Valid reports whether m names a supported method.
func (m Method) Valid() bool {
	return m == MethodEigenvector || m == MethodGeometricMean
}

// Solution is the weight solver output for one matrix.
type Solution struct {
	// Weights is the normalized priority vector.
	Weights WeightVector `json:"weights" yaml:"weights"`

	// Eigenvalue is the principal eigenvalue λmax (estimated from the
	// weights when the geometric mean method ran).
	Eigenvalue float64 `json:"eigenvalue" yaml:"eigenvalue"`

	// Method is the method that actually produced Weights. It can differ
	// from the requested one when the solver fell back.
	Method Method `json:"method" yaml:"method"`

	// Iterations counts power-iteration steps; zero for closed forms.
	Iterations int `json:"iterations" yaml:"iterations"`

	// Converged is false only when power iteration hit its budget.
	Converged bool `json:"converged" yaml:"converged"`

	// Warning is set when the solver returned its best available vector
	// without converging.
	Warning *WeightComputationWarning `json:"warning,omitempty" yaml:"warning,omitempty"`
}
