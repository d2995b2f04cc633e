package units

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var _ ports.Unit = (*ReportUnit)(nil)

// neutralConfidence is reported when no analysis produced a score.
const neutralConfidence = 0.5

// ReportConfig holds the cutoffs a report judges the analyses by.
type ReportConfig struct {
	// UnstableBelow marks a sensitivity stability index as a key finding
	// and a high risk.
	UnstableBelow float64 `yaml:"unstable_below" json:"unstable_below" validate:"gte=0,lte=1"`

	// ReviewBelow asks for the item's judgments to be reviewed.
	ReviewBelow float64 `yaml:"review_below" json:"review_below" validate:"gte=0,lte=1"`

	// VariableBelow marks a stability index as a medium risk.
	VariableBelow float64 `yaml:"variable_below" json:"variable_below" validate:"gte=0,lte=1"`

	// LowConsensusBelow marks the consensus index as a key finding.
	LowConsensusBelow float64 `yaml:"low_consensus_below" json:"low_consensus_below" validate:"gte=0,lte=1"`

	// RankStabilityBelow marks a simulated rank stability as a low risk.
	RankStabilityBelow float64 `yaml:"rank_stability_below" json:"rank_stability_below" validate:"gte=0,lte=1"`
}

// DefaultReportConfig returns cutoffs 0.3, 0.5, 0.6, 0.7 and 0.5.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		UnstableBelow:      0.3,
		ReviewBelow:        0.5,
		VariableBelow:      0.6,
		LowConsensusBelow:  0.7,
		RankStabilityBelow: 0.5,
	}
}

// BuildReport summarizes whichever of consensus, sensitivity and mc are
// present. Confidence is the mean of the mean sensitivity stability index,
// the consensus index and the overall simulated stability.
func BuildReport(cfg ReportConfig, consensus *domain.GroupConsensusResult, sensitivity []domain.SensitivityResult, mc *domain.MonteCarloResult) *domain.DecisionReport {
	r := &domain.DecisionReport{
		KeyFindings:     []string{},
		Recommendations: []string{},
		Risks:           domain.RiskAssessment{High: []string{}, Medium: []string{}, Low: []string{}},
	}
	var scores []float64

	if len(sensitivity) > 0 {
		var review []string
		indices := make([]float64, len(sensitivity))
		for i, s := range sensitivity {
			indices[i] = s.StabilityIndex
			name := itemName(s.Label, s.Item)
			switch {
			case s.StabilityIndex < cfg.UnstableBelow:
				r.KeyFindings = append(r.KeyFindings,
					fmt.Sprintf("weight of %s is unstable (stability %.2f)", name, s.StabilityIndex))
				r.Risks.High = append(r.Risks.High, fmt.Sprintf("weight of %s is unstable", name))
			case s.StabilityIndex < cfg.VariableBelow:
				r.Risks.Medium = append(r.Risks.Medium, fmt.Sprintf("weight of %s may shift", name))
			}
			if s.StabilityIndex < cfg.ReviewBelow {
				review = append(review, name)
			}
		}
		if len(review) > 0 {
			r.Recommendations = append(r.Recommendations,
				fmt.Sprintf("review the judgments on unstable items: %s", strings.Join(review, ", ")))
		}
		scores = append(scores, stat.Mean(indices, nil))
	}

	if consensus != nil {
		if ci := consensus.ConsensusIndex; ci != nil {
			if *ci < cfg.LowConsensusBelow {
				r.KeyFindings = append(r.KeyFindings, fmt.Sprintf("group consensus is low (%.0f%%)", *ci*100))
			}
			scores = append(scores, *ci)
		}
		if len(consensus.OutlierEvaluators) > 0 {
			r.Recommendations = append(r.Recommendations,
				fmt.Sprintf("discuss the judgments of outlier evaluators: %s",
					strings.Join(consensus.OutlierEvaluators, ", ")))
		}
	}

	if mc != nil {
		for _, rs := range mc.RankStability {
			if rs.Stability < cfg.RankStabilityBelow {
				r.Risks.Low = append(r.Risks.Low,
					fmt.Sprintf("rank of %s varies under noise (held rank %d in %.0f%% of runs)",
						itemName(rs.Label, rs.Item), rs.ModalRank, rs.Stability*100))
			}
		}
		scores = append(scores, mc.OverallStability)
	}

	r.Confidence = neutralConfidence
	if len(scores) > 0 {
		r.Confidence = stat.Mean(scores, nil)
	}
	return r
}

func itemName(label string, item int) string {
	if label != "" {
		return label
	}
	return fmt.Sprintf("item %d", item)
}

// ReportUnit writes a DecisionReport built from the analyses present in
// State.
//
// State inputs, all optional:
//   - domain.KeyConsensus
//   - domain.KeySensitivity
//   - domain.KeyMonteCarlo
//
// Writes domain.KeyReport.
type ReportUnit struct {
	name   string
	config ReportConfig
}

// NewReportUnit creates a ReportUnit with validated configuration.
func NewReportUnit(name string, config ReportConfig) (*ReportUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &ReportUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ReportUnit) Name() string { return u.name }

// Execute builds the report.
func (u *ReportUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	consensus, _ := domain.Get(state, domain.KeyConsensus)
	sensitivity, _ := domain.Get(state, domain.KeySensitivity)
	mc, _ := domain.Get(state, domain.KeyMonteCarlo)
	return domain.With(state, domain.KeyReport, BuildReport(u.config, consensus, sensitivity, mc)), nil
}

// Validate verifies the unit configuration.
func (u *ReportUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the configuration from a YAML node.
func (u *ReportUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultReportConfig()
	if err := params.Decode(&cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	u.config = cfg
	return nil
}

// NewReportFromConfig creates a ReportUnit from a configuration map.
func NewReportFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultReportConfig()
	if err := decodeConfigMap(config, &cfg); err != nil {
		return nil, err
	}
	return NewReportUnit(id, cfg)
}
