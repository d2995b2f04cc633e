package units

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var _ ports.Unit = (*SignificanceUnit)(nil)

// Bounds of the approximate power.
const (
	minPower = 0.05
	maxPower = 0.99
)

// zeroDifference is the largest log difference Wilcoxon counts as zero,
// and the largest spread the t-test counts as constant, so that ratios
// recomputed from weights still match their judgments.
const zeroDifference = 1e-9

// minSignificanceSamples is the fewest upper-triangle judgments a test
// runs on, i.e. a matrix of order 3.
const minSignificanceSamples = 2

// CompareMatrices tests whether the judgments in a and b differ. Only the
// upper triangles are compared, as ln a_ij in row-major order, so that a
// judgment and its reciprocal sit symmetrically around zero.
//
// The paired t-test uses Student's t with n−1 degrees of freedom. Wilcoxon
// drops zero differences and Mann-Whitney treats the samples as
// independent; both use the normal approximation with a tie correction.
// Every p-value is two-sided.
func CompareMatrices(a, b domain.ComparisonMatrix, test domain.SignificanceTest, alpha float64) (*domain.SignificanceResult, error) {
	if a.Order() != b.Order() {
		return nil, fmt.Errorf("%w: matrices of order %d and %d", domain.ErrDimensionMismatch, a.Order(), b.Order())
	}
	if a.HasZero() || b.HasZero() {
		return nil, fmt.Errorf("%w: matrix holds a zero judgment", domain.ErrInvalidComparison)
	}
	if !(alpha > 0 && alpha < 1) {
		return nil, fmt.Errorf("%w: alpha %v", domain.ErrInvalidConfiguration, alpha)
	}
	x, y := logJudgments(a), logJudgments(b)
	if len(x) < minSignificanceSamples {
		return nil, fmt.Errorf("%w: %d judgments, need at least %d",
			domain.ErrInsufficientData, len(x), minSignificanceSamples)
	}

	var (
		statistic *float64
		p         float64
	)
	switch test {
	case domain.TestPairedT:
		statistic, p = pairedTTest(x, y)
	case domain.TestWilcoxon:
		statistic, p = wilcoxonSignedRank(x, y)
	case domain.TestMannWhitney:
		statistic, p = mannWhitneyU(x, y)
	default:
		return nil, fmt.Errorf("%w: significance test %q", domain.ErrInvalidConfiguration, test)
	}

	d := cohensD(x, y)
	res := &domain.SignificanceResult{
		Test:        test,
		Samples:     len(x),
		Statistic:   statistic,
		PValue:      p,
		Significant: p < alpha,
		Level:       domain.ClassifySignificance(p),
		EffectSize:  d,
		Effect:      domain.ClassifyEffect(d),
		Power:       approximatePower(d, len(x), alpha),
	}
	res.Interpretation = fmt.Sprintf("%s (p=%.4f), %s effect (d=%.2f)",
		strings.ReplaceAll(string(res.Level), "_", " "), p,
		strings.ReplaceAll(string(res.Effect), "_", " "), d)
	return res, nil
}

// logJudgments returns ln m_ij for i < j.
func logJudgments(m domain.ComparisonMatrix) []float64 {
	n := m.Order()
	out := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, math.Log(m[i][j]))
		}
	}
	return out
}

// impliedMatrix returns the perfectly consistent matrix w_i/w_j.
func impliedMatrix(w domain.WeightVector) domain.ComparisonMatrix {
	m := make(domain.ComparisonMatrix, len(w))
	for i := range w {
		m[i] = make([]float64, len(w))
		for j := range w {
			m[i][j] = w[i] / w[j]
		}
	}
	return m
}

// ascendingRanks ranks xs from 1 (smallest), giving ties their mean rank.
func ascendingRanks(xs []float64) []float64 {
	ranks := rankVector(domain.WeightVector(xs), TieRankAverage)
	n := float64(len(xs))
	for i := range ranks {
		ranks[i] = n + 1 - ranks[i]
	}
	return ranks
}

func pairedTTest(x, y []float64) (*float64, float64) {
	diff := make([]float64, len(x))
	for i := range x {
		diff[i] = x[i] - y[i]
	}
	mean, sd := stat.MeanStdDev(diff, nil)
	if sd <= zeroDifference {
		if math.Abs(mean) <= zeroDifference {
			t := 0.0
			return &t, 1
		}
		return nil, 0
	}
	n := float64(len(diff))
	t := mean / (sd / math.Sqrt(n))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	return &t, math.Min(1, 2*dist.Survival(math.Abs(t)))
}

// wilcoxonSignedRank returns min(W+, W−) over the non-zero differences.
func wilcoxonSignedRank(x, y []float64) (*float64, float64) {
	var diffs []float64
	for i := range x {
		if d := x[i] - y[i]; math.Abs(d) > zeroDifference {
			diffs = append(diffs, d)
		}
	}
	if len(diffs) == 0 {
		w := 0.0
		return &w, 1
	}

	abs := make([]float64, len(diffs))
	for i, d := range diffs {
		abs[i] = math.Abs(d)
	}
	ranks := ascendingRanks(abs)
	var plus, minus float64
	for i, d := range diffs {
		if d > 0 {
			plus += ranks[i]
		} else {
			minus += ranks[i]
		}
	}
	w := math.Min(plus, minus)

	n := float64(len(diffs))
	mean := n * (n + 1) / 4
	variance := n*(n+1)*(2*n+1)/24 - tieCorrection(ranks)/48
	if variance <= 0 {
		return &w, 1
	}
	z := (w - mean) / math.Sqrt(variance)
	return &w, math.Min(1, 2*distuv.UnitNormal.CDF(z))
}

// mannWhitneyU returns U of x, with a continuity-corrected p-value.
func mannWhitneyU(x, y []float64) (*float64, float64) {
	n1, n2 := float64(len(x)), float64(len(y))
	ranks := ascendingRanks(append(slices.Clone(x), y...))
	var r1 float64
	for _, r := range ranks[:len(x)] {
		r1 += r
	}
	u1 := r1 - n1*(n1+1)/2

	n := n1 + n2
	variance := n1 * n2 / 12 * ((n + 1) - tieCorrection(ranks)/(n*(n-1)))
	if variance <= 0 {
		return &u1, 1
	}
	u := math.Max(u1, n1*n2-u1)
	z := (u - n1*n2/2 - 0.5) / math.Sqrt(variance)
	return &u1, math.Min(1, 2*distuv.UnitNormal.Survival(z))
}

// cohensD is (mean x − mean y) over the root mean population variance;
// zero when both samples are constant.
func cohensD(x, y []float64) float64 {
	mx, vx := stat.PopMeanVariance(x, nil)
	my, vy := stat.PopMeanVariance(y, nil)
	pooled := math.Sqrt((vx + vy) / 2)
	if pooled == 0 {
		return 0
	}
	return (mx - my) / pooled
}

// approximatePower is Φ(|d|·√(n/2) − z₁₋α/₂), or minPower when d is zero.
func approximatePower(d float64, n int, alpha float64) float64 {
	if d == 0 {
		return minPower
	}
	zAlpha := distuv.UnitNormal.Quantile(1 - alpha/2)
	p := distuv.UnitNormal.CDF(math.Abs(d)*math.Sqrt(float64(n)/2) - zAlpha)
	return math.Min(math.Max(p, minPower), maxPower)
}

// SignificanceUnit tests every contributing evaluator's judgments against
// the ratios implied by the consensus weights.
//
// State requirements:
//   - domain.KeyConsensus
//   - domain.KeyEvaluatorMatrices
//
// Writes domain.KeySignificance, keyed by evaluator id. Matrices with fewer
// than three items are skipped; nothing is written when all are.
type SignificanceUnit struct {
	name   string
	config SignificanceConfig
}

// SignificanceConfig selects the test and its level.
type SignificanceConfig struct {
	Test  string  `yaml:"test" json:"test" validate:"required,oneof=t_test wilcoxon mann_whitney"`
	Alpha float64 `yaml:"alpha" json:"alpha" validate:"gt=0,lt=1"`
}

// DefaultSignificanceConfig runs Wilcoxon at α = 0.05.
func DefaultSignificanceConfig() SignificanceConfig {
	return SignificanceConfig{Test: string(domain.TestWilcoxon), Alpha: 0.05}
}

// NewSignificanceUnit creates a SignificanceUnit with validated configuration.
func NewSignificanceUnit(name string, config SignificanceConfig) (*SignificanceUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &SignificanceUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *SignificanceUnit) Name() string { return u.name }

// Execute compares each evaluator's matrix with the consensus ratios.
func (u *SignificanceUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	consensus, ok := domain.Get(state, domain.KeyConsensus)
	if !ok || consensus == nil {
		return state, domain.MissingKey(domain.KeyConsensus)
	}
	matrices, ok := domain.Get(state, domain.KeyEvaluatorMatrices)
	if !ok {
		return state, domain.MissingKey(domain.KeyEvaluatorMatrices)
	}

	reference := impliedMatrix(consensus.AggregatedWeights)
	results := make(map[string]domain.SignificanceResult, len(consensus.Evaluators))
	for _, id := range consensus.Evaluators {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		m, ok := matrices[id]
		if !ok {
			continue
		}
		res, err := CompareMatrices(m, reference, domain.SignificanceTest(u.config.Test), u.config.Alpha)
		if errors.Is(err, domain.ErrInsufficientData) {
			continue
		}
		if err != nil {
			return state, fmt.Errorf("evaluator %s: %w", id, err)
		}
		results[id] = *res
	}
	if len(results) == 0 {
		return state, nil
	}
	return domain.With(state, domain.KeySignificance, results), nil
}

// Validate verifies the unit configuration.
func (u *SignificanceUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the configuration from a YAML node.
func (u *SignificanceUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultSignificanceConfig()
	if err := params.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	u.config = cfg
	return nil
}

// NewSignificanceFromConfig creates a SignificanceUnit from a configuration map.
func NewSignificanceFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultSignificanceConfig()
	if err := decodeConfigMap(config, &cfg); err != nil {
		return nil, err
	}
	return NewSignificanceUnit(id, cfg)
}
