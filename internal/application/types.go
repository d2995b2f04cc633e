package application

import (
	"github.com/ahrav/go-ahp/internal/domain"
)

// EvaluatorInput is one evaluator's pairwise judgments for a criterion set.
// Comparisons may be addressed by index, by label, or both.
type EvaluatorInput struct {
	EvaluatorID        string                     `yaml:"evaluator_id" json:"evaluator_id" validate:"required,max=255"`
	Comparisons        []domain.ComparisonEntry   `yaml:"comparisons,omitempty" json:"comparisons,omitempty"`
	LabeledComparisons []domain.LabeledComparison `yaml:"labeled_comparisons,omitempty" json:"labeled_comparisons,omitempty"`
	// Influence is the evaluator's relative voting power for weighted
	// judgment aggregation. Zero means 1.
	Influence float64 `yaml:"influence,omitempty" json:"influence,omitempty" validate:"min=0"`
}

// CriterionSetInput is every evaluator's judgments over one ordered set of
// items.
type CriterionSetInput struct {
	ID         string           `yaml:"id" json:"id" validate:"required,max=255"`
	Items      []string         `yaml:"items" json:"items" validate:"required,min=1,unique,dive,required"`
	Evaluators []EvaluatorInput `yaml:"evaluators" json:"evaluators" validate:"required,min=1,dive"`
}

// Evaluation is the engine's result for one criterion set. Every returned
// Evaluation is owned by its caller.
type Evaluation struct {
	ExecutionID    string `json:"execution_id" yaml:"execution_id"`
	CriterionSetID string `json:"criterion_set_id" yaml:"criterion_set_id"`
	// Fingerprint is the cache key of this computation.
	Fingerprint string   `json:"fingerprint" yaml:"fingerprint"`
	Items       []string `json:"items" yaml:"items"`

	// Judgments holds every evaluator whose matrix could be built, in
	// ascending evaluator id order, including inconsistent ones.
	Judgments []domain.EvaluatorJudgment `json:"judgments" yaml:"judgments"`

	// Excluded lists inconsistent evaluators left out of the consensus.
	Excluded []string `json:"excluded,omitempty" yaml:"excluded,omitempty"`

	// Failed maps evaluator id to the error that rejected its input. Only
	// populated when partial results are allowed.
	Failed map[string]string `json:"failed,omitempty" yaml:"failed,omitempty"`

	// Consensus is the group result, or the degraded single-evaluator
	// result when only one evaluator contributed.
	Consensus *domain.GroupConsensusResult `json:"consensus,omitempty" yaml:"consensus,omitempty"`

	// Ranking orders the items by consensus weight.
	Ranking []domain.RankedItem `json:"ranking,omitempty" yaml:"ranking,omitempty"`

	// AggregatedJudgment is the solved element-wise aggregate of the
	// contributing matrices, when judgment aggregation is enabled.
	AggregatedJudgment *domain.EvaluatorJudgment `json:"aggregated_judgment,omitempty" yaml:"aggregated_judgment,omitempty"`

	// Sensitivity holds one weight sweep per target item, when enabled.
	Sensitivity []domain.SensitivityResult `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`

	// MonteCarlo is the rank stability under weight noise, when enabled.
	MonteCarlo *domain.MonteCarloResult `json:"monte_carlo,omitempty" yaml:"monte_carlo,omitempty"`

	// Significance maps evaluator id to the test of its judgments against
	// the consensus ratios, when enabled.
	Significance map[string]domain.SignificanceResult `json:"significance,omitempty" yaml:"significance,omitempty"`

	// Report summarizes the analyses into findings and risks, when enabled.
	Report *domain.DecisionReport `json:"report,omitempty" yaml:"report,omitempty"`

	// Warnings carries non-fatal conditions such as non-convergence.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// Cached reports that the result was served from the cache.
	Cached bool `json:"cached" yaml:"cached"`
}

// Clone returns a deep copy of e.
func (e *Evaluation) Clone() *Evaluation {
	if e == nil {
		return nil
	}
	return domain.DeepCopy(e)
}

// Judgment returns the named evaluator's judgment.
func (e *Evaluation) Judgment(evaluatorID string) (domain.EvaluatorJudgment, bool) {
	for _, j := range e.Judgments {
		if j.EvaluatorID == evaluatorID {
			return j, true
		}
	}
	return domain.EvaluatorJudgment{}, false
}

// HierarchyInput is a two-level AHP problem: criteria weighed against each
// other, and alternatives weighed under every criterion.
type HierarchyInput struct {
	Criteria     CriterionSetInput `yaml:"criteria" json:"criteria"`
	Alternatives []string          `yaml:"alternatives" json:"alternatives" validate:"required,min=1,unique,dive,required"`
	// ByCriterion maps a criterion label to the alternatives' judgments
	// under it. Each set's items must equal Alternatives.
	ByCriterion map[string]CriterionSetInput `yaml:"by_criterion" json:"by_criterion" validate:"required,min=1,dive"`
}

// HierarchyEvaluation is the synthesized result of a HierarchyInput.
type HierarchyEvaluation struct {
	Criteria        *Evaluation            `json:"criteria" yaml:"criteria"`
	ByCriterion     map[string]*Evaluation `json:"by_criterion" yaml:"by_criterion"`
	FinalPriorities domain.WeightVector    `json:"final_priorities" yaml:"final_priorities"`
	Ranking         []domain.RankedItem    `json:"ranking" yaml:"ranking"`
}
