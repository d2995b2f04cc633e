package testutils

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ahp/internal/domain"
)

func TestGenerateDataset_Deterministic(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	a := GenerateDataset(3, 42, cfg)
	b := GenerateDataset(3, 42, cfg)
	c := GenerateDataset(3, 43, cfg)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Sets[0].TrueWeights, c.Sets[0].TrueWeights)
	require.NoError(t, ValidateDataset(a))
}

func TestGenerateCriterionSet(t *testing.T) {
	tests := []struct {
		name   string
		cfg    GeneratorConfig
		verify func(t *testing.T, set SyntheticSet)
	}{
		{
			name: "noise free judgments are consistent",
			cfg:  GeneratorConfig{Items: 4, Evaluators: 2},
			verify: func(t *testing.T, set SyntheticSet) {
				w := set.TrueWeights
				for _, ev := range set.Evaluators {
					require.Len(t, ev.Comparisons, 6)
					for _, c := range ev.Comparisons {
						want := math.Min(9, math.Max(1.0/9, w[c.Row]/w[c.Col]))
						assert.InDelta(t, want, c.Value, 1e-12)
					}
				}
			},
		},
		{
			name: "snapped judgments stay on the scale",
			cfg:  GeneratorConfig{Items: 6, Evaluators: 3, Noise: 0.5, SaatyScale: true},
			verify: func(t *testing.T, set SyntheticSet) {
				for _, ev := range set.Evaluators {
					require.Len(t, ev.Comparisons, 15)
					for _, c := range ev.Comparisons {
						assert.Contains(t, saatyScale, c.Value)
					}
				}
			},
		},
		{
			name: "every evaluator an outlier",
			cfg:  GeneratorConfig{Items: 3, Evaluators: 4, OutlierRate: 1},
			verify: func(t *testing.T, set SyntheticSet) {
				assert.Len(t, set.Outliers(), 4)
				w := set.TrueWeights
				first := set.Evaluators[0].Comparisons[0]
				assert.InDelta(t, math.Min(9, math.Max(1.0/9, w[2]/w[1])), first.Value, 1e-12)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.cfg.Validate())
			set := GenerateCriterionSet(NewRand(7), "s", tt.cfg)

			assert.Len(t, set.Items, tt.cfg.Items)
			assert.Len(t, set.Evaluators, tt.cfg.Evaluators)
			assert.InDelta(t, 1, set.TrueWeights.Sum(), 1e-9)
			tt.verify(t, set)
		})
	}
}

func TestGeneratorConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultGeneratorConfig().Validate())
	assert.Error(t, GeneratorConfig{Items: 1, Evaluators: 1}.Validate())
	assert.Error(t, GeneratorConfig{Items: 16, Evaluators: 1}.Validate())
	assert.Error(t, GeneratorConfig{Items: 3, Evaluators: 0}.Validate())
	assert.Error(t, GeneratorConfig{Items: 3, Evaluators: 1, OutlierRate: 1.5}.Validate())
}

func TestSnapToScale(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1, 1},
		{2.9, 3},
		{12, 9},
		{0.3, 1.0 / 3},
		{0.01, 1.0 / 9},
		{0, 1},
		{math.NaN(), 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, SnapToScale(tt.in), 1e-12, "SnapToScale(%v)", tt.in)
	}
}

func TestDatasetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dataset.json")
	dataset := GenerateDataset(2, 1, DefaultGeneratorConfig())

	require.NoError(t, SaveDataset(dataset, path))
	loaded, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, dataset.Metadata, loaded.Metadata)
	assert.Len(t, loaded.Sets, 2)
}

func TestValidateDataset(t *testing.T) {
	valid := func() *JudgmentDataset { return GenerateDataset(1, 9, DefaultGeneratorConfig()) }

	tests := []struct {
		name   string
		mutate func(d *JudgmentDataset)
		errMsg string
	}{
		{name: "duplicate set", mutate: func(d *JudgmentDataset) { d.Sets = append(d.Sets, d.Sets[0]) }, errMsg: "duplicate set ID"},
		{name: "weights length", mutate: func(d *JudgmentDataset) { d.Sets[0].TrueWeights = domain.WeightVector{1} }, errMsg: "true weights"},
		{
			name: "comparison out of bounds",
			mutate: func(d *JudgmentDataset) {
				d.Sets[0].Evaluators[0].Comparisons[0].Col = 99
			},
			errMsg: "outside",
		},
		{name: "no sets", mutate: func(d *JudgmentDataset) { d.Sets = nil }, errMsg: "Sets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			err := ValidateDataset(d)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
	assert.Error(t, ValidateDataset(nil))
}
