package testutils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ahrav/go-ahp/internal/domain"
)

// JudgmentDataset is a collection of synthetic criterion sets with the
// hidden weights they were generated from.
type JudgmentDataset struct {
	// Sets contains the generated criterion sets.
	Sets []SyntheticSet `json:"sets" validate:"required,min=1,dive"`

	// Metadata provides information about the dataset itself.
	Metadata DatasetMetadata `json:"metadata"`
}

// SyntheticSet is one criterion set and the true weights behind its
// judgments.
type SyntheticSet struct {
	ID          string               `json:"id" validate:"required"`
	Items       []string             `json:"items" validate:"min=2,unique"`
	TrueWeights domain.WeightVector  `json:"true_weights"`
	Evaluators  []SyntheticEvaluator `json:"evaluators" validate:"min=1,dive"`
}

// SyntheticEvaluator is one generated evaluator.
type SyntheticEvaluator struct {
	EvaluatorID string                   `json:"evaluator_id" validate:"required"`
	Comparisons []domain.ComparisonEntry `json:"comparisons"`
	// Outlier reports that the evaluator judged the reversed weights.
	Outlier bool `json:"outlier,omitempty"`
}

// DatasetMetadata contains provenance information about a dataset.
type DatasetMetadata struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Source      string `json:"source"`
	Description string `json:"description"`
	Seed        uint64 `json:"seed"`
	// Size is the number of criterion sets.
	Size int `json:"set_count"`
}

// LoadDataset loads and validates a dataset from a JSON file.
func LoadDataset(path string) (*JudgmentDataset, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var dataset JudgmentDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON: %w", err)
	}

	if err := ValidateDataset(&dataset); err != nil {
		return nil, fmt.Errorf("dataset validation failed: %w", err)
	}
	return &dataset, nil
}

// SaveDataset writes dataset as indented JSON, creating parent
// directories as needed.
func SaveDataset(dataset *JudgmentDataset, path string) error {
	if err := ValidateDataset(dataset); err != nil {
		return fmt.Errorf("dataset validation failed: %w", err)
	}

	data, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write dataset file: %w", err)
	}
	return nil
}

// ValidateDataset checks structure and that every set's weights and
// judgments fit its items.
func ValidateDataset(dataset *JudgmentDataset) error {
	if dataset == nil {
		return fmt.Errorf("dataset is nil")
	}
	if err := NewTestValidator().Struct(dataset); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(dataset.Sets))
	for _, set := range dataset.Sets {
		if _, dup := seen[set.ID]; dup {
			return fmt.Errorf("duplicate set ID: %s", set.ID)
		}
		seen[set.ID] = struct{}{}

		n := len(set.Items)
		if len(set.TrueWeights) != n {
			return fmt.Errorf("set %s: %d true weights for %d items", set.ID, len(set.TrueWeights), n)
		}
		if err := set.TrueWeights.Validate(); err != nil {
			return fmt.Errorf("set %s: %w", set.ID, err)
		}
		for _, ev := range set.Evaluators {
			for _, c := range ev.Comparisons {
				if c.Row < 0 || c.Col < 0 || c.Row >= n || c.Col >= n {
					return fmt.Errorf("set %s: evaluator %s compares (%d,%d) outside %d items",
						set.ID, ev.EvaluatorID, c.Row, c.Col, n)
				}
			}
		}
	}
	return nil
}

// Outliers returns the ids of evaluators generated as outliers.
func (s SyntheticSet) Outliers() []string {
	var ids []string
	for _, ev := range s.Evaluators {
		if ev.Outlier {
			ids = append(ids, ev.EvaluatorID)
		}
	}
	return ids
}
