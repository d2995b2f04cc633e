package domain

// SignificanceTest names a two-sample hypothesis test.
type SignificanceTest string

// Supported significance tests.
const (
	TestPairedT     SignificanceTest = "t_test"
	TestWilcoxon    SignificanceTest = "wilcoxon"
	TestMannWhitney SignificanceTest = "mann_whitney"
)

// SignificanceLevel is the qualitative reading of a p-value.
type SignificanceLevel string

// p < 0.01 is highly significant, p < 0.05 significant.
const (
	LevelHighlySignificant SignificanceLevel = "highly_significant"
	LevelSignificant       SignificanceLevel = "significant"
	LevelNotSignificant    SignificanceLevel = "not_significant"
)

// ClassifySignificance maps a p-value onto its level.
func ClassifySignificance(p float64) SignificanceLevel {
	switch {
	case p < 0.01:
		return LevelHighlySignificant
	case p < 0.05:
		return LevelSignificant
	default:
		return LevelNotSignificant
	}
}

// EffectMagnitude is the qualitative reading of Cohen's d.
type EffectMagnitude string

// Cohen's bands on |d|: below 0.2, 0.5 and 0.8.
const (
	EffectSmall     EffectMagnitude = "small"
	EffectMedium    EffectMagnitude = "medium"
	EffectLarge     EffectMagnitude = "large"
	EffectVeryLarge EffectMagnitude = "very_large"
)

// ClassifyEffect maps Cohen's d onto its band by magnitude.
func ClassifyEffect(d float64) EffectMagnitude {
	if d < 0 {
		d = -d
	}
	switch {
	case d < 0.2:
		return EffectSmall
	case d < 0.5:
		return EffectMedium
	case d < 0.8:
		return EffectLarge
	default:
		return EffectVeryLarge
	}
}

// SignificanceResult compares two samples of log judgments.
type SignificanceResult struct {
	Test    SignificanceTest `json:"test" yaml:"test"`
	Samples int              `json:"samples" yaml:"samples"`

	// Statistic is t for the paired t-test, the smaller signed-rank sum for
	// Wilcoxon and U of the first sample for Mann-Whitney. Nil when the
	// test statistic is unbounded (identical non-zero paired differences).
	Statistic *float64 `json:"statistic,omitempty" yaml:"statistic,omitempty"`

	PValue      float64           `json:"p_value" yaml:"p_value"`
	Significant bool              `json:"significant" yaml:"significant"`
	Level       SignificanceLevel `json:"level" yaml:"level"`

	// EffectSize is Cohen's d with the pooled population variance.
	EffectSize float64         `json:"effect_size" yaml:"effect_size"`
	Effect     EffectMagnitude `json:"effect" yaml:"effect"`

	// Power is the approximate two-sided power at the test's alpha,
	// clamped to [0.05, 0.99].
	Power float64 `json:"power" yaml:"power"`

	Interpretation string `json:"interpretation" yaml:"interpretation"`
}

// RankStability is how often one item held its most frequent rank under
// simulated weight noise.
type RankStability struct {
	Item      int     `json:"item" yaml:"item"`
	Label     string  `json:"label,omitempty" yaml:"label,omitempty"`
	ModalRank int     `json:"modal_rank" yaml:"modal_rank"`
	Stability float64 `json:"stability" yaml:"stability"`
}

// MonteCarloResult summarizes a seeded weight perturbation simulation.
type MonteCarloResult struct {
	Simulations int     `json:"simulations" yaml:"simulations"`
	Uncertainty float64 `json:"uncertainty" yaml:"uncertainty"`
	Seed        uint64  `json:"seed" yaml:"seed"`

	MeanWeights []float64 `json:"mean_weights" yaml:"mean_weights"`
	StdWeights  []float64 `json:"std_weights" yaml:"std_weights"`

	RankStability []RankStability `json:"rank_stability" yaml:"rank_stability"`

	// OverallStability is the mean of every item's Stability.
	OverallStability float64 `json:"overall_stability" yaml:"overall_stability"`
}

// RiskAssessment groups risk statements by severity.
type RiskAssessment struct {
	High   []string `json:"high" yaml:"high"`
	Medium []string `json:"medium" yaml:"medium"`
	Low    []string `json:"low" yaml:"low"`
}

// DecisionReport is the narrative summary of a group evaluation.
type DecisionReport struct {
	KeyFindings     []string       `json:"key_findings" yaml:"key_findings"`
	Recommendations []string       `json:"recommendations" yaml:"recommendations"`
	Risks           RiskAssessment `json:"risks" yaml:"risks"`

	// Confidence is the mean of the available stability and consensus
	// scores, or 0.5 when none is available.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}
