package units

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var (
	_ ports.Unit                 = (*ConsensusUnit)(nil)
	_ domain.ConsensusAggregator = (*ConsensusUnit)(nil)
)

// minEvaluators is the smallest group a consensus is meaningful for.
const minEvaluators = 2

// ConsensusConfig controls ranking, outlier detection and interval width.
type ConsensusConfig struct {
	// TieRank is "index" (ties go to the lower item index) or "average"
	// (mid-ranks).
	TieRank TieRank `yaml:"tie_rank" json:"tie_rank" validate:"required,oneof=index average"`

	// Distance is "euclidean" or "rank" (1 − Spearman ρ).
	Distance Distance `yaml:"distance" json:"distance" validate:"required,oneof=euclidean rank"`

	// OutlierSigma is k in the mean + k·σ outlier cutoff, σ being the
	// population deviation of the dissimilarity scores. Groups of at most
	// MaxUndetectableGroup(k) evaluators can never produce an outlier; for
	// k = 2 that is five evaluators.
	OutlierSigma float64 `yaml:"outlier_sigma" json:"outlier_sigma" validate:"gt=0"`

	// ConfidenceZ is the normal quantile for intervals; 1.96 gives 95%.
	ConfidenceZ float64 `yaml:"confidence_z" json:"confidence_z" validate:"gt=0"`
}

// DefaultConsensusConfig returns index tie-breaking, Euclidean outliers
// at 2σ and 95% intervals.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		TieRank:      TieRankIndex,
		Distance:     DistanceEuclidean,
		OutlierSigma: 2,
		ConfidenceZ:  1.96,
	}
}

// withDefaults fills zero-valued fields from DefaultConsensusConfig.
func (c ConsensusConfig) withDefaults() ConsensusConfig {
	d := DefaultConsensusConfig()
	if c.TieRank == "" {
		c.TieRank = d.TieRank
	}
	if c.Distance == "" {
		c.Distance = d.Distance
	}
	if c.OutlierSigma <= 0 {
		c.OutlierSigma = d.OutlierSigma
	}
	if c.ConfidenceZ <= 0 {
		c.ConfidenceZ = d.ConfidenceZ
	}
	return c
}

// AggregateConsensus combines evaluators' weight vectors into a group
// result. Zero-valued cfg fields take their defaults. Evaluators are
// processed in ascending id order so the output is bit-identical for equal
// input regardless of map order.
//
// With fewer than two evaluators it returns *domain.InsufficientDataError.
// For exactly one evaluator a degraded result accompanies the error: the
// aggregate is that evaluator's vector and every group statistic
// (intervals, W, outliers) is left undefined. For zero the result is nil.
func AggregateConsensus(judgments map[string]domain.WeightVector, cfg ConsensusConfig) (*domain.GroupConsensusResult, error) {
	cfg = cfg.withDefaults()
	ids := make([]string, 0, len(judgments))
	for id := range judgments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		return nil, &domain.InsufficientDataError{Have: 0, Required: minEvaluators}
	}

	n := len(judgments[ids[0]])
	vectors := make([]domain.WeightVector, len(ids))
	individual := make(map[string]domain.WeightVector, len(ids))
	for k, id := range ids {
		w := judgments[id]
		if len(w) != n {
			return nil, fmt.Errorf("%w: %w: evaluator %q has %d weights, want %d",
				domain.ErrInvalidComparison, domain.ErrDimensionMismatch, id, len(w), n)
		}
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("evaluator %q: %w", id, err)
		}
		vectors[k] = w.Clone()
		individual[id] = w.Clone()
	}

	mean, std := meanAndStd(vectors)
	res := &domain.GroupConsensusResult{
		Evaluators:        ids,
		IndividualWeights: individual,
		MeanWeights:       mean,
		StdDeviation:      std,
		Agreement:         domain.AgreementUndefined,
	}

	if len(ids) < minEvaluators {
		res.AggregatedWeights = vectors[0].Normalize()
		return res, &domain.InsufficientDataError{Have: len(ids), Required: minEvaluators}
	}

	res.AggregatedWeights = geometricMeanVectors(vectors)
	res.ConfidenceIntervals = confidenceIntervals(mean, std, len(ids), cfg.ConfidenceZ)

	rankings := make([][]float64, len(vectors))
	for k, w := range vectors {
		rankings[k] = rankVector(w, cfg.TieRank)
	}
	if w, ok := kendallsW(rankings); ok {
		res.KendallsW = &w
		res.Agreement = domain.ClassifyAgreement(w)
	}
	if rho, ok := meanPairwiseSpearman(rankings); ok {
		res.SpearmanRho = &rho
	}
	if ci, ok := consensusIndex(mean, std); ok {
		res.ConsensusIndex = &ci
	}
	if di, ok := disagreementIndex(vectors); ok {
		res.DisagreementIndex = &di
	}

	res.DissimilarityScores = make(map[string]float64, len(ids))
	for k, id := range ids {
		res.DissimilarityScores[id] = dissimilarity(vectors[k], res.AggregatedWeights, cfg.Distance, cfg.TieRank)
	}
	res.OutlierEvaluators = detectOutliers(ids, res.DissimilarityScores, cfg.OutlierSigma)

	return res, nil
}

// ConsensusUnit aggregates the individual weights held in State.
//
// State requirements:
//   - domain.KeyIndividualWeights: evaluator id → weight vector
//
// Writes domain.KeyConsensus. With a single evaluator the degraded result
// is written before the InsufficientDataError is returned, so callers that
// accept partial data can still read it.
type ConsensusUnit struct {
	name   string
	config ConsensusConfig
}

// NewConsensusUnit creates a ConsensusUnit with validated configuration.
func NewConsensusUnit(name string, config ConsensusConfig) (*ConsensusUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &ConsensusUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ConsensusUnit) Name() string { return u.name }

// Aggregate implements domain.ConsensusAggregator.
func (u *ConsensusUnit) Aggregate(judgments map[string]domain.WeightVector) (*domain.GroupConsensusResult, error) {
	return AggregateConsensus(judgments, u.config)
}

// Execute aggregates domain.KeyIndividualWeights.
func (u *ConsensusUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	judgments, ok := domain.Get(state, domain.KeyIndividualWeights)
	if !ok {
		return state, domain.MissingKey(domain.KeyIndividualWeights)
	}
	res, err := u.Aggregate(judgments)
	if res != nil {
		state = domain.With(state, domain.KeyConsensus, res)
	}
	return state, err
}

// Validate verifies the unit configuration.
func (u *ConsensusUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the configuration from a YAML node. The
// current configuration is kept on error.
func (u *ConsensusUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultConsensusConfig()
	if err := params.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	u.config = cfg
	return nil
}

// NewConsensusFromConfig creates a ConsensusUnit from a configuration map.
func NewConsensusFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultConsensusConfig()
	if err := decodeConfigMap(config, &cfg); err != nil {
		return nil, err
	}
	return NewConsensusUnit(id, cfg)
}
