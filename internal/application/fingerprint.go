package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// hashYAML computes the SHA256 hash of v re-encoded as YAML with fixed
// indentation, so semantically identical values hash identically
// regardless of source formatting or key order.
func hashYAML(v any) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode for hashing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to encode for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

// fingerprintDoc is the canonical form hashed by Fingerprint.
type fingerprintDoc struct {
	Config     string           `yaml:"config"`
	ID         string           `yaml:"id"`
	Items      []string         `yaml:"items"`
	Evaluators []EvaluatorInput `yaml:"evaluators"`
}

// Fingerprint identifies one consensus computation: the engine
// configuration hash plus the criterion set with its evaluators in
// ascending id order. Submission order of evaluators does not change it.
func Fingerprint(configHash string, in CriterionSetInput) (string, error) {
	evaluators := slices.Clone(in.Evaluators)
	slices.SortFunc(evaluators, func(a, b EvaluatorInput) int {
		return strings.Compare(a.EvaluatorID, b.EvaluatorID)
	})
	return hashYAML(fingerprintDoc{
		Config:     configHash,
		ID:         in.ID,
		Items:      in.Items,
		Evaluators: evaluators,
	})
}
