package domain

// AgreementBand is the qualitative reading of Kendall's W.
type AgreementBand string

// Conventional Kendall's W bands.
const (
	AgreementStrong    AgreementBand = "strong"
	AgreementModerate  AgreementBand = "moderate"
	AgreementWeak      AgreementBand = "weak"
	AgreementUndefined AgreementBand = "undefined"
)

// ClassifyAgreement maps W onto its band: W ≥ 0.7 strong, 0.5 ≤ W < 0.7
// moderate, otherwise weak.
func ClassifyAgreement(w float64) AgreementBand {
	switch {
	case w >= 0.7:
		return AgreementStrong
	case w >= 0.5:
		return AgreementModerate
	default:
		return AgreementWeak
	}
}

// Interval is a closed confidence interval.
type Interval struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Contains reports whether x lies inside the interval.
func (iv Interval) Contains(x float64) bool { return x >= iv.Lower && x <= iv.Upper }

// GroupConsensusResult aggregates every contributing evaluator's weights
// for one criterion set. It is derived data; recompute it whenever the
// set of contributing judgments changes.
type GroupConsensusResult struct {
	// Evaluators lists contributing evaluator ids in ascending order. Every
	// per-evaluator computation iterates in this order.
	Evaluators []string `json:"evaluators" yaml:"evaluators"`

	// AggregatedWeights is the renormalized per-item geometric mean.
	AggregatedWeights WeightVector `json:"aggregated_weights" yaml:"aggregated_weights"`

	// IndividualWeights maps evaluator id to that evaluator's vector.
	IndividualWeights map[string]WeightVector `json:"individual_weights" yaml:"individual_weights"`

	// MeanWeights is the per-item arithmetic mean, reported for dispersion.
	MeanWeights []float64 `json:"mean_weights" yaml:"mean_weights"`

	// StdDeviation is the per-item population standard deviation.
	StdDeviation []float64 `json:"std_deviation" yaml:"std_deviation"`

	// ConfidenceIntervals holds per-item 95% intervals; nil with fewer than
	// two evaluators.
	ConfidenceIntervals []Interval `json:"confidence_intervals,omitempty" yaml:"confidence_intervals,omitempty"`

	// KendallsW is the coefficient of concordance; nil when undefined.
	KendallsW *float64 `json:"kendalls_w,omitempty" yaml:"kendalls_w,omitempty"`

	// Agreement is the qualitative band of KendallsW.
	Agreement AgreementBand `json:"agreement" yaml:"agreement"`

	// DissimilarityScores maps evaluator id to its distance from the
	// aggregated vector.
	DissimilarityScores map[string]float64 `json:"dissimilarity_scores,omitempty" yaml:"dissimilarity_scores,omitempty"`

	// OutlierEvaluators lists flagged evaluators in ascending order. Advisory:
	// flagged evaluators still contribute to every other field.
	OutlierEvaluators []string `json:"outlier_evaluators,omitempty" yaml:"outlier_evaluators,omitempty"`

	// SpearmanRho is the mean pairwise Spearman rank correlation; nil when
	// undefined.
	SpearmanRho *float64 `json:"spearman_rho,omitempty" yaml:"spearman_rho,omitempty"`

	// ConsensusIndex is 1/(1+mean coefficient of variation), in (0, 1].
	ConsensusIndex *float64 `json:"consensus_index,omitempty" yaml:"consensus_index,omitempty"`

	// DisagreementIndex is the mean pairwise Euclidean distance between
	// evaluator vectors.
	DisagreementIndex *float64 `json:"disagreement_index,omitempty" yaml:"disagreement_index,omitempty"`
}

// IsOutlier reports whether evaluatorID was flagged.
func (r *GroupConsensusResult) IsOutlier(evaluatorID string) bool {
	for _, id := range r.OutlierEvaluators {
		if id == evaluatorID {
			return true
		}
	}
	return false
}

// SensitivityResult describes how robust the ranking is to changes in one
// item's weight.
type SensitivityResult struct {
	// Item is the index of the perturbed item.
	Item int `json:"item" yaml:"item"`

	// Label is the perturbed item's label when known.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// OriginalWeight is the item's weight before perturbation.
	OriginalWeight float64 `json:"original_weight" yaml:"original_weight"`

	// RangeLower and RangeUpper bound the swept weights.
	RangeLower float64 `json:"range_lower" yaml:"range_lower"`
	RangeUpper float64 `json:"range_upper" yaml:"range_upper"`

	// ReversalPoints lists swept weights at which the ranking differs from
	// the original ranking.
	ReversalPoints []float64 `json:"reversal_points" yaml:"reversal_points"`

	// StabilityIndex is the distance to the nearest reversal point divided
	// by the sweep radius; 1 when no reversal occurs.
	StabilityIndex float64 `json:"stability_index" yaml:"stability_index"`

	// ImpactScore is 2·w·radius.
	ImpactScore float64 `json:"impact_score" yaml:"impact_score"`
}
