package application

import (
	"time"

	"github.com/ahrav/go-ahp/infrastructure/units"
)

// EngineConfig is the complete, declarative configuration of an AHP
// engine and the primary configuration entry point for the system.
// Zero-valued sections are filled from DefaultEngineConfig by the loader,
// so a minimal file only needs a version.
type EngineConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" json:"version" validate:"required,semver"`
	// Metadata contains descriptive information about this configuration.
	Metadata Metadata `yaml:"metadata" json:"metadata"`
	// Solver selects and bounds the weight derivation method.
	Solver SolverConfig `yaml:"solver" json:"solver"`
	// Consistency configures the consistency ratio check.
	Consistency ConsistencyConfig `yaml:"consistency" json:"consistency"`
	// Matrix configures how comparison matrices are built.
	Matrix MatrixConfig `yaml:"matrix" json:"matrix"`
	// Consensus configures group aggregation and outlier detection.
	Consensus ConsensusConfig `yaml:"consensus" json:"consensus"`
	// Analysis enables the optional post-consensus analyses.
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`
	// Engine controls evaluation orchestration.
	Engine ExecutionConfig `yaml:"engine" json:"engine"`
}

// Metadata provides descriptive information about an engine configuration
// to support organization and discovery.
type Metadata struct {
	// Name is the human-readable identifier for this configuration.
	Name string `yaml:"name" json:"name" validate:"max=255"`
	// Description provides a detailed explanation of the configuration's purpose.
	Description string `yaml:"description" json:"description" validate:"max=1000"`
	// Tags are categorical labels for filtering and grouping.
	Tags []string `yaml:"tags" json:"tags" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs for integration with external systems.
	Labels map[string]string `yaml:"labels" json:"labels" validate:"max=50"`
}

// SolverConfig selects the weight derivation method.
type SolverConfig struct {
	// Method is "eigenvector" or "geometric_mean".
	Method string `yaml:"method" json:"method" validate:"required,ahpmethod"`
	// MaxIterations caps power iteration.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations" validate:"min=1,max=100000"`
	// Tolerance is the L1 convergence threshold.
	Tolerance float64 `yaml:"tolerance" json:"tolerance" validate:"gt=0,lt=1"`
}

// ConsistencyConfig configures the consistency checker.
type ConsistencyConfig struct {
	// Threshold is the largest acceptable consistency ratio.
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"gt=0,lte=1"`
	// RandomIndex names the Random Index table.
	RandomIndex string `yaml:"random_index" json:"random_index" validate:"required,ritable"`
	// OrderPolicy is "reject" or "clamp" for orders beyond the table.
	OrderPolicy string `yaml:"order_policy" json:"order_policy" validate:"required,oneof=reject clamp"`
}

// MatrixConfig configures matrix construction.
type MatrixConfig struct {
	// FillMode is "neutral" or "strict".
	FillMode string `yaml:"fill_mode" json:"fill_mode" validate:"required,oneof=neutral strict"`
}

// ConsensusConfig configures group aggregation.
type ConsensusConfig struct {
	TieRank  string `yaml:"tie_rank" json:"tie_rank" validate:"required,oneof=index average"`
	Distance string `yaml:"distance" json:"distance" validate:"required,oneof=euclidean rank"`

	// OutlierSigma is the outlier cutoff in population standard deviations.
	// No outlier is flagged in groups of units.MaxUndetectableGroup(sigma)
	// or fewer evaluators (five at the default of 2).
	OutlierSigma float64 `yaml:"outlier_sigma" json:"outlier_sigma" validate:"gt=0,lte=10"`

	ConfidenceZ float64 `yaml:"confidence_z" json:"confidence_z" validate:"gt=0,lte=10"`
}

// AnalysisConfig enables analyses that run on the group result.
type AnalysisConfig struct {
	// AggregateJudgments additionally aggregates the evaluators' matrices
	// element-wise with this method and solves the result. Empty disables it.
	AggregateJudgments string `yaml:"aggregate_judgments" json:"aggregate_judgments" validate:"omitempty,oneof=geometric arithmetic weighted_geometric"`
	// Sensitivity runs a weight sweep on the consensus weights when set.
	Sensitivity *SensitivityConfig `yaml:"sensitivity,omitempty" json:"sensitivity,omitempty"`
	// MonteCarlo simulates rank stability under weight noise when set.
	MonteCarlo *MonteCarloConfig `yaml:"monte_carlo,omitempty" json:"monte_carlo,omitempty"`
	// Significance tests each evaluator's judgments against the consensus
	// ratios when set.
	Significance *SignificanceConfig `yaml:"significance,omitempty" json:"significance,omitempty"`
	// Report summarizes the group analyses into findings and risks.
	Report bool `yaml:"report,omitempty" json:"report,omitempty"`
}

// SensitivityConfig mirrors units.SensitivityConfig for YAML. Empty
// Targets sweeps every item.
type SensitivityConfig struct {
	Targets []int   `yaml:"targets,omitempty" json:"targets,omitempty" validate:"omitempty,unique,dive,min=0"`
	Radius  float64 `yaml:"radius" json:"radius" validate:"gt=0,lte=1"`
	Steps   int     `yaml:"steps" json:"steps" validate:"min=2,max=10000"`
}

// MonteCarloConfig mirrors units.MonteCarloConfig for YAML.
type MonteCarloConfig struct {
	Simulations int     `yaml:"simulations" json:"simulations" validate:"min=1,max=1000000"`
	Uncertainty float64 `yaml:"uncertainty" json:"uncertainty" validate:"gt=0,lte=1"`
	Seed        uint64  `yaml:"seed" json:"seed"`
}

// SignificanceConfig mirrors units.SignificanceConfig for YAML.
type SignificanceConfig struct {
	Test  string  `yaml:"test" json:"test" validate:"required,oneof=t_test wilcoxon mann_whitney"`
	Alpha float64 `yaml:"alpha" json:"alpha" validate:"gt=0,lt=1"`
}

// ExecutionConfig controls orchestration.
type ExecutionConfig struct {
	// ExcludeInconsistent drops evaluators whose CR exceeds the threshold
	// from the consensus. Their judgments are still reported.
	ExcludeInconsistent bool `yaml:"exclude_inconsistent" json:"exclude_inconsistent"`
	// Concurrency bounds parallel evaluator pipelines. Zero means unlimited.
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"min=0,max=1024"`
	// CacheTTLSeconds is how long consensus results stay cached. Zero
	// disables the cache.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds" validate:"min=0,max=604800"`
	// AllowPartial returns a result built from the evaluators that
	// succeeded instead of failing when some evaluators' input is invalid.
	AllowPartial bool `yaml:"allow_partial" json:"allow_partial"`
}

// CacheTTL returns the configured cache lifetime.
func (c ExecutionConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// DefaultEngineConfig returns the conventional AHP settings: eigenvector
// weights, Saaty's RI table with a 0.10 threshold, neutral fill and
// index tie-breaking.
func DefaultEngineConfig() EngineConfig {
	solver := units.DefaultWeightSolverConfig()
	consistency := units.DefaultConsistencyConfig()
	consensus := units.DefaultConsensusConfig()
	return EngineConfig{
		Version: "1.0.0",
		Solver: SolverConfig{
			Method:        string(solver.Method),
			MaxIterations: solver.MaxIterations,
			Tolerance:     solver.Tolerance,
		},
		Consistency: ConsistencyConfig{
			Threshold:   consistency.Threshold,
			RandomIndex: consistency.RandomIndex,
			OrderPolicy: string(consistency.OrderPolicy),
		},
		Matrix: MatrixConfig{FillMode: string(units.DefaultMatrixBuilderConfig().FillMode)},
		Consensus: ConsensusConfig{
			TieRank:      string(consensus.TieRank),
			Distance:     string(consensus.Distance),
			OutlierSigma: consensus.OutlierSigma,
			ConfidenceZ:  consensus.ConfidenceZ,
		},
	}
}

// applyDefaults fills zero-valued fields from DefaultEngineConfig.
func (c *EngineConfig) applyDefaults() {
	d := DefaultEngineConfig()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Solver.Method == "" {
		c.Solver.Method = d.Solver.Method
	}
	if c.Solver.MaxIterations == 0 {
		c.Solver.MaxIterations = d.Solver.MaxIterations
	}
	if c.Solver.Tolerance == 0 {
		c.Solver.Tolerance = d.Solver.Tolerance
	}
	if c.Consistency.Threshold == 0 {
		c.Consistency.Threshold = d.Consistency.Threshold
	}
	if c.Consistency.RandomIndex == "" {
		c.Consistency.RandomIndex = d.Consistency.RandomIndex
	}
	if c.Consistency.OrderPolicy == "" {
		c.Consistency.OrderPolicy = d.Consistency.OrderPolicy
	}
	if c.Matrix.FillMode == "" {
		c.Matrix.FillMode = d.Matrix.FillMode
	}
	if c.Consensus.TieRank == "" {
		c.Consensus.TieRank = d.Consensus.TieRank
	}
	if c.Consensus.Distance == "" {
		c.Consensus.Distance = d.Consensus.Distance
	}
	if c.Consensus.OutlierSigma == 0 {
		c.Consensus.OutlierSigma = d.Consensus.OutlierSigma
	}
	if c.Consensus.ConfidenceZ == 0 {
		c.Consensus.ConfidenceZ = d.Consensus.ConfidenceZ
	}
	if s := c.Analysis.Sensitivity; s != nil {
		ds := units.DefaultSensitivityConfig()
		if s.Radius == 0 {
			s.Radius = ds.Radius
		}
		if s.Steps == 0 {
			s.Steps = ds.Steps
		}
	}
	if m := c.Analysis.MonteCarlo; m != nil {
		dm := units.DefaultMonteCarloConfig()
		if m.Simulations == 0 {
			m.Simulations = dm.Simulations
		}
		if m.Uncertainty == 0 {
			m.Uncertainty = dm.Uncertainty
		}
	}
	if sig := c.Analysis.Significance; sig != nil {
		ds := units.DefaultSignificanceConfig()
		if sig.Test == "" {
			sig.Test = ds.Test
		}
		if sig.Alpha == 0 {
			sig.Alpha = ds.Alpha
		}
	}
}

// unitParameters renders each unit's parameters in the map form the unit
// registry's factories accept.
func (c EngineConfig) unitParameters() map[string]map[string]any {
	params := map[string]map[string]any{
		unitTypeMatrixBuilder: {
			"fill_mode": c.Matrix.FillMode,
		},
		unitTypeWeightSolver: {
			"method":         c.Solver.Method,
			"max_iterations": c.Solver.MaxIterations,
			"tolerance":      c.Solver.Tolerance,
		},
		unitTypeConsistency: {
			"threshold":    c.Consistency.Threshold,
			"random_index": c.Consistency.RandomIndex,
			"order_policy": c.Consistency.OrderPolicy,
		},
		unitTypeConsensus: {
			"tie_rank":      c.Consensus.TieRank,
			"distance":      c.Consensus.Distance,
			"outlier_sigma": c.Consensus.OutlierSigma,
			"confidence_z":  c.Consensus.ConfidenceZ,
		},
		unitTypeSynthesis: {},
	}
	if c.Analysis.AggregateJudgments != "" {
		params[unitTypeMatrixAggregation] = map[string]any{"method": c.Analysis.AggregateJudgments}
	}
	if s := c.Analysis.Sensitivity; s != nil {
		params[unitTypeSensitivity] = map[string]any{
			"targets": s.Targets,
			"radius":  s.Radius,
			"steps":   s.Steps,
		}
	}
	if m := c.Analysis.MonteCarlo; m != nil {
		params[unitTypeMonteCarlo] = map[string]any{
			"simulations": m.Simulations,
			"uncertainty": m.Uncertainty,
			"seed":        m.Seed,
		}
	}
	if sig := c.Analysis.Significance; sig != nil {
		params[unitTypeSignificance] = map[string]any{
			"test":  sig.Test,
			"alpha": sig.Alpha,
		}
	}
	if c.Analysis.Report {
		params[unitTypeReport] = map[string]any{}
	}
	return params
}
