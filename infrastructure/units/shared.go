// Package units provides the AHP computation units that implement the
// ports.Unit interface: matrix building, weight derivation, consistency
// checking, consensus aggregation and the supporting analyses.
package units

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FillMode decides what happens to pairs no comparison was supplied for.
type FillMode string

// Supported fill modes for the matrix builder.
const (
	// FillNeutral treats an unjudged pair as equal importance (1.0).
	// Callers that accept partial input get a complete matrix but should
	// be aware the neutral values pull weights toward uniform.
	FillNeutral FillMode = "neutral"

	// FillStrict rejects a matrix with any unjudged pair.
	FillStrict FillMode = "strict"
)

// OrderPolicy decides how the consistency checker treats a matrix order
// beyond its Random Index table.
type OrderPolicy string

// Supported order policies.
const (
	// OrderPolicyReject fails with domain.UnsupportedOrderError.
	OrderPolicyReject OrderPolicy = "reject"

	// OrderPolicyClamp reuses the largest tabulated RI value.
	OrderPolicyClamp OrderPolicy = "clamp"
)

// TieRank selects how equal weights are ranked for Kendall's W and
// Spearman's ρ.
type TieRank string

// Supported tie-ranking strategies.
const (
	// TieRankIndex gives the lower item index the better rank. Every rank
	// vector is then a permutation of 1..n.
	TieRankIndex TieRank = "index"

	// TieRankAverage assigns tied items the mean of the ranks they span.
	TieRankAverage TieRank = "average"
)

// Distance selects the dissimilarity measure used for outlier detection.
type Distance string

// Supported dissimilarity measures.
const (
	// DistanceEuclidean is the L2 distance between an evaluator's vector
	// and the aggregated vector.
	DistanceEuclidean Distance = "euclidean"

	// DistanceRank is 1 − Spearman ρ between the two vectors' rankings.
	DistanceRank Distance = "rank"
)

// Common errors returned by AHP units.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrNoMatrices is returned when matrix aggregation receives no input.
	ErrNoMatrices = errors.New("no matrices provided for aggregation")

	// ErrTargetOutOfRange is returned when a sensitivity target index does
	// not address an item.
	ErrTargetOutOfRange = errors.New("sensitivity target out of range")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// decodeConfigMap overlays a loosely typed map onto a defaulted config
// struct by round-tripping it through YAML.
func decodeConfigMap(config map[string]any, out any) error {
	if len(config) == 0 {
		return nil
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
