package units

import (
	"fmt"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-ahp/internal/domain"
)

// maxSuggestionDistance caps how far a suggested label may be from an
// unknown one.
const maxSuggestionDistance = 3

// labelIndex maps case-folded item labels to their position.
type labelIndex struct {
	folded []string
	index  map[string]int
	labels []string
}

func newLabelIndex(labels []string) (*labelIndex, error) {
	// cases.Caser is stateful, so each index gets its own.
	caser := cases.Fold()
	li := &labelIndex{
		folded: make([]string, len(labels)),
		index:  make(map[string]int, len(labels)),
		labels: labels,
	}
	for i, l := range labels {
		f := caser.String(l)
		if f == "" {
			return nil, domain.NewInvalidComparisonError(i, -1, "empty item label")
		}
		if prev, dup := li.index[f]; dup {
			return nil, domain.NewInvalidComparisonError(prev, i,
				fmt.Sprintf("labels %q and %q collide after case folding", labels[prev], l))
		}
		li.folded[i] = f
		li.index[f] = i
	}
	return li, nil
}

func (li *labelIndex) lookup(label string) (int, error) {
	f := cases.Fold().String(label)
	if i, ok := li.index[f]; ok {
		return i, nil
	}
	if s, ok := li.suggest(f); ok {
		return -1, domain.NewInvalidComparisonError(-1, -1,
			fmt.Sprintf("unknown item %q, did you mean %q?", label, s))
	}
	return -1, domain.NewInvalidComparisonError(-1, -1, fmt.Sprintf("unknown item %q", label))
}

// suggest returns the closest known label by edit distance. Ties go to the
// earlier item.
func (li *labelIndex) suggest(folded string) (string, bool) {
	best, bestDist := -1, maxSuggestionDistance+1
	for i, f := range li.folded {
		if d := levenshtein.ComputeDistance(folded, f); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return "", false
	}
	return li.labels[best], true
}

// ResolveLabeledComparisons converts label-addressed judgments into index
// entries against the ordered item labels. Matching is case-insensitive
// (Unicode case folding). An unknown label yields a
// *domain.InvalidComparisonError suggesting the nearest known label.
func ResolveLabeledComparisons(labels []string, comparisons []domain.LabeledComparison) ([]domain.ComparisonEntry, error) {
	li, err := newLabelIndex(labels)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ComparisonEntry, 0, len(comparisons))
	for _, c := range comparisons {
		row, err := li.lookup(c.From)
		if err != nil {
			return nil, err
		}
		col, err := li.lookup(c.To)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ComparisonEntry{Row: row, Col: col, Value: c.Value})
	}
	return out, nil
}
