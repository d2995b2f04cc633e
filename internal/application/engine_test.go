package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ahp/infrastructure/cache"
	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

var criteria = []string{"cost", "quality", "support"}

// judgments returns the upper-triangle comparisons of a 3×3 matrix.
func judgments(a01, a02, a12 float64) []domain.ComparisonEntry {
	return []domain.ComparisonEntry{
		{Row: 0, Col: 1, Value: a01},
		{Row: 0, Col: 2, Value: a02},
		{Row: 1, Col: 2, Value: a12},
	}
}

// Perfectly consistent evaluators with weights (4/7, 2/7, 1/7) and
// (1/2, 1/4, 1/4), plus one whose judgments contradict each other.
var (
	alice = EvaluatorInput{EvaluatorID: "alice", Comparisons: judgments(2, 4, 2)}
	carol = EvaluatorInput{EvaluatorID: "carol", Comparisons: judgments(2, 2, 1)}
	xavi  = EvaluatorInput{EvaluatorID: "xavi", Comparisons: judgments(9, 1.0/9, 9)}
)

func criterionSet(evaluators ...EvaluatorInput) CriterionSetInput {
	return CriterionSetInput{ID: "vendor", Items: criteria, Evaluators: evaluators}
}

// groupWeights is the renormalized geometric mean of alice and carol.
func groupWeights() []float64 {
	w := []float64{math.Sqrt(4.0 / 7 * 0.5), math.Sqrt(2.0 / 7 * 0.25), math.Sqrt(1.0 / 7 * 0.25)}
	sum := w[0] + w[1] + w[2]
	for i := range w {
		w[i] /= sum
	}
	return w
}

func newTestEngine(t *testing.T, mutate func(*EngineConfig), opts ...EngineOption) *Engine {
	t.Helper()
	config := DefaultEngineConfig()
	if mutate != nil {
		mutate(&config)
	}
	engine, err := NewEngine(config, nil, opts...)
	require.NoError(t, err)
	return engine
}

type countingMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
}

func (m *countingMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (m *countingMetrics) RecordGauge(string, float64, map[string]string)          {}
func (m *countingMetrics) RecordHistogram(string, float64, map[string]string)      {}

func (m *countingMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]float64)
	}
	m.counters[metric+"/"+labels["result"]] += value
}

func (m *countingMetrics) count(key string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EngineConfig)
		wantErr bool
	}{
		{name: "defaults"},
		{name: "zero config takes defaults", mutate: func(c *EngineConfig) { *c = EngineConfig{} }},
		{
			name: "all analyses enabled",
			mutate: func(c *EngineConfig) {
				c.Analysis.AggregateJudgments = "weighted_geometric"
				c.Analysis.Sensitivity = &SensitivityConfig{Targets: []int{1}}
				c.Analysis.MonteCarlo = &MonteCarloConfig{}
				c.Analysis.Significance = &SignificanceConfig{}
				c.Analysis.Report = true
			},
		},
		{name: "unknown method", mutate: func(c *EngineConfig) { c.Solver.Method = "least_squares" }, wantErr: true},
		{name: "unknown random index table", mutate: func(c *EngineConfig) { c.Consistency.RandomIndex = "custom" }, wantErr: true},
		{name: "bad version", mutate: func(c *EngineConfig) { c.Version = "1.0" }, wantErr: true},
		{name: "negative concurrency", mutate: func(c *EngineConfig) { c.Engine.Concurrency = -1 }, wantErr: true},
		{name: "unknown aggregation", mutate: func(c *EngineConfig) { c.Analysis.AggregateJudgments = "median" }, wantErr: true},
		{name: "unknown significance test", mutate: func(c *EngineConfig) { c.Analysis.Significance = &SignificanceConfig{Test: "sign"} }, wantErr: true},
		{name: "duplicate sensitivity targets", mutate: func(c *EngineConfig) { c.Analysis.Sensitivity = &SensitivityConfig{Targets: []int{1, 1}} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultEngineConfig()
			if tt.mutate != nil {
				tt.mutate(&config)
			}
			engine, err := NewEngine(config, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Len(t, engine.ConfigHash(), 64)
			assert.Equal(t, "eigenvector", engine.Config().Solver.Method)
		})
	}
}

func TestNewEngine_ConfigHashIgnoresExplicitDefaults(t *testing.T) {
	explicit, err := NewEngine(DefaultEngineConfig(), nil)
	require.NoError(t, err)
	implicit, err := NewEngine(EngineConfig{Version: "1.0.0"}, nil)
	require.NoError(t, err)
	assert.Equal(t, explicit.ConfigHash(), implicit.ConfigHash())
}

func TestEngine_Evaluate(t *testing.T) {
	engine := newTestEngine(t, nil, WithIDGenerator(func() string { return "exec-1" }))

	ev, err := engine.Evaluate(context.Background(), criterionSet(carol, alice))
	require.NoError(t, err)

	assert.Equal(t, "exec-1", ev.ExecutionID)
	assert.Equal(t, "vendor", ev.CriterionSetID)
	assert.NotEmpty(t, ev.Fingerprint)
	assert.False(t, ev.Cached)
	assert.Empty(t, ev.Warnings)

	require.Len(t, ev.Judgments, 2)
	assert.Equal(t, "alice", ev.Judgments[0].EvaluatorID)
	assert.Equal(t, "carol", ev.Judgments[1].EvaluatorID)

	j, ok := ev.Judgment("alice")
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{4.0 / 7, 2.0 / 7, 1.0 / 7}, []float64(j.Weights()), 1e-6)
	assert.InDelta(t, 0, j.Consistency.CR, 1e-6)
	assert.True(t, j.Consistency.IsConsistent)
	assert.True(t, j.Solution.Converged)

	require.NotNil(t, ev.Consensus)
	assert.Equal(t, []string{"alice", "carol"}, ev.Consensus.Evaluators)
	assert.InDeltaSlice(t, groupWeights(), []float64(ev.Consensus.AggregatedWeights), 1e-6)
	require.NotNil(t, ev.Consensus.KendallsW)

	require.Len(t, ev.Ranking, 3)
	assert.Equal(t, "cost", ev.Ranking[0].Label)
	assert.Equal(t, 1, ev.Ranking[0].Rank)

	assert.Nil(t, ev.AggregatedJudgment)
	assert.Nil(t, ev.Sensitivity)
}

func TestEngine_EvaluateLabeledComparisons(t *testing.T) {
	engine := newTestEngine(t, nil)
	labeled := EvaluatorInput{
		EvaluatorID: "alice",
		LabeledComparisons: []domain.LabeledComparison{
			{From: "cost", To: "quality", Value: 2},
			{From: "support", To: "cost", Value: 0.25},
			{From: "quality", To: "support", Value: 2},
		},
	}

	ev, err := engine.Evaluate(context.Background(), criterionSet(labeled, carol))
	require.NoError(t, err)

	j, ok := ev.Judgment("alice")
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{4.0 / 7, 2.0 / 7, 1.0 / 7}, []float64(j.Weights()), 1e-6)
}

func TestEngine_EvaluateInconsistentEvaluator(t *testing.T) {
	tests := []struct {
		name             string
		exclude          bool
		wantExcluded     []string
		wantContributors []string
	}{
		{
			name:             "reported but kept",
			wantContributors: []string{"alice", "carol", "xavi"},
		},
		{
			name:             "excluded from consensus",
			exclude:          true,
			wantExcluded:     []string{"xavi"},
			wantContributors: []string{"alice", "carol"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, func(c *EngineConfig) { c.Engine.ExcludeInconsistent = tt.exclude })

			ev, err := engine.Evaluate(context.Background(), criterionSet(alice, carol, xavi))
			require.NoError(t, err)

			require.Len(t, ev.Judgments, 3)
			j, ok := ev.Judgment("xavi")
			require.True(t, ok)
			assert.False(t, j.Consistency.IsConsistent)
			assert.Greater(t, j.Consistency.CR, 0.1)

			assert.Equal(t, tt.wantExcluded, ev.Excluded)
			assert.Equal(t, tt.wantContributors, ev.Consensus.Evaluators)
		})
	}
}

func TestEngine_EvaluateInvalidEvaluator(t *testing.T) {
	bad := EvaluatorInput{EvaluatorID: "bob", Comparisons: judgments(12, 4, 2)}

	t.Run("fails by default", func(t *testing.T) {
		engine := newTestEngine(t, nil)
		ev, err := engine.Evaluate(context.Background(), criterionSet(alice, bad, carol))
		require.Error(t, err)
		assert.Nil(t, ev)
		assert.ErrorIs(t, err, domain.ErrOutOfRange)
		assert.Contains(t, err.Error(), "evaluator bob")
	})

	t.Run("partial results when allowed", func(t *testing.T) {
		engine := newTestEngine(t, func(c *EngineConfig) { c.Engine.AllowPartial = true })
		ev, err := engine.Evaluate(context.Background(), criterionSet(alice, bad, carol))
		require.NoError(t, err)
		assert.Contains(t, ev.Failed, "bob")
		assert.Len(t, ev.Judgments, 2)
		assert.Equal(t, []string{"alice", "carol"}, ev.Consensus.Evaluators)
	})
}

func TestEngine_EvaluateInsufficientData(t *testing.T) {
	engine := newTestEngine(t, nil)

	t.Run("single evaluator degrades", func(t *testing.T) {
		ev, err := engine.Evaluate(context.Background(), criterionSet(alice))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInsufficientData)

		require.NotNil(t, ev)
		require.NotNil(t, ev.Consensus)
		assert.InDeltaSlice(t, []float64{4.0 / 7, 2.0 / 7, 1.0 / 7}, []float64(ev.Consensus.AggregatedWeights), 1e-6)
		assert.Nil(t, ev.Consensus.KendallsW)
		assert.Len(t, ev.Ranking, 3)
	})

	t.Run("every evaluator excluded", func(t *testing.T) {
		engine := newTestEngine(t, func(c *EngineConfig) { c.Engine.ExcludeInconsistent = true })
		ev, err := engine.Evaluate(context.Background(), criterionSet(xavi))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInsufficientData)
		require.NotNil(t, ev)
		assert.Nil(t, ev.Consensus)
		assert.Equal(t, []string{"xavi"}, ev.Excluded)
	})
}

func TestEngine_EvaluateRejectsInput(t *testing.T) {
	engine := newTestEngine(t, nil)

	tests := []struct {
		name string
		in   CriterionSetInput
	}{
		{name: "missing id", in: CriterionSetInput{Items: criteria, Evaluators: []EvaluatorInput{alice}}},
		{name: "no items", in: CriterionSetInput{ID: "vendor", Evaluators: []EvaluatorInput{alice}}},
		{name: "duplicate items", in: CriterionSetInput{ID: "vendor", Items: []string{"a", "a"}, Evaluators: []EvaluatorInput{alice}}},
		{name: "no evaluators", in: CriterionSetInput{ID: "vendor", Items: criteria}},
		{name: "duplicate evaluator", in: criterionSet(alice, alice)},
		{name: "negative influence", in: criterionSet(EvaluatorInput{EvaluatorID: "neg", Influence: -1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := engine.Evaluate(context.Background(), tt.in)
			require.Error(t, err)
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, domain.ErrInvalidComparison)
		})
	}
}

func TestEngine_EvaluateCanceled(t *testing.T) {
	engine := newTestEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev, err := engine.Evaluate(ctx, criterionSet(alice, carol))
	require.Error(t, err)
	assert.Nil(t, ev)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_EvaluateAggregatedJudgment(t *testing.T) {
	for _, method := range []string{"geometric", "weighted_geometric"} {
		t.Run(method, func(t *testing.T) {
			engine := newTestEngine(t, func(c *EngineConfig) { c.Analysis.AggregateJudgments = method })

			ev, err := engine.Evaluate(context.Background(), criterionSet(alice, carol))
			require.NoError(t, err)

			aj := ev.AggregatedJudgment
			require.NotNil(t, aj)
			assert.Equal(t, AggregateEvaluatorID, aj.EvaluatorID)
			assert.Equal(t, "vendor", aj.CriterionSetID)
			// Element-wise geometric aggregation of consistent matrices is
			// itself consistent and agrees with the consensus vector.
			assert.InDelta(t, 0, aj.Consistency.CR, 1e-6)
			assert.InDeltaSlice(t, groupWeights(), []float64(aj.Weights()), 1e-6)
		})
	}
}

func TestEngine_EvaluateSensitivity(t *testing.T) {
	tests := []struct {
		name      string
		targets   []int
		wantItems []int
	}{
		{name: "single target", targets: []int{0}, wantItems: []int{0}},
		{name: "every item by default", wantItems: []int{0, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, func(c *EngineConfig) {
				c.Analysis.Sensitivity = &SensitivityConfig{Targets: tt.targets, Radius: 0.5, Steps: 50}
			})

			ev, err := engine.Evaluate(context.Background(), criterionSet(alice, carol))
			require.NoError(t, err)

			require.Len(t, ev.Sensitivity, len(tt.wantItems))
			for i, item := range tt.wantItems {
				s := ev.Sensitivity[i]
				assert.Equal(t, item, s.Item)
				assert.Equal(t, criteria[item], s.Label)
				assert.InDelta(t, groupWeights()[item], s.OriginalWeight, 1e-6)
			}
		})
	}
}

func TestEngine_EvaluateGroupAnalyses(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
		verify func(t *testing.T, ev *Evaluation)
	}{
		{
			name: "disabled by default",
			verify: func(t *testing.T, ev *Evaluation) {
				assert.Nil(t, ev.Sensitivity)
				assert.Nil(t, ev.MonteCarlo)
				assert.Nil(t, ev.Significance)
				assert.Nil(t, ev.Report)
			},
		},
		{
			name: "monte carlo",
			mutate: func(c *EngineConfig) {
				c.Analysis.MonteCarlo = &MonteCarloConfig{Simulations: 200, Uncertainty: 0.01, Seed: 3}
			},
			verify: func(t *testing.T, ev *Evaluation) {
				require.NotNil(t, ev.MonteCarlo)
				assert.Equal(t, 200, ev.MonteCarlo.Simulations)
				assert.Equal(t, uint64(3), ev.MonteCarlo.Seed)
				require.Len(t, ev.MonteCarlo.RankStability, 3)
				for i, rs := range ev.MonteCarlo.RankStability {
					assert.Equal(t, criteria[i], rs.Label)
					assert.Equal(t, i+1, rs.ModalRank)
				}
			},
		},
		{
			name: "significance per contributing evaluator",
			mutate: func(c *EngineConfig) {
				c.Analysis.Significance = &SignificanceConfig{Test: "t_test"}
			},
			verify: func(t *testing.T, ev *Evaluation) {
				require.Len(t, ev.Significance, 2)
				for _, id := range []string{"alice", "carol"} {
					res, ok := ev.Significance[id]
					require.True(t, ok, id)
					assert.Equal(t, domain.TestPairedT, res.Test)
					assert.Equal(t, 3, res.Samples)
					assert.GreaterOrEqual(t, res.PValue, 0.0)
					assert.LessOrEqual(t, res.PValue, 1.0)
				}
				assert.Greater(t, ev.Significance["alice"].EffectSize, 0.0)
				assert.Less(t, ev.Significance["carol"].EffectSize, 0.0)
			},
		},
		{
			name: "report over every analysis",
			mutate: func(c *EngineConfig) {
				c.Analysis.Sensitivity = &SensitivityConfig{}
				c.Analysis.MonteCarlo = &MonteCarloConfig{Seed: 1}
				c.Analysis.Significance = &SignificanceConfig{}
				c.Analysis.Report = true
			},
			verify: func(t *testing.T, ev *Evaluation) {
				assert.Len(t, ev.Sensitivity, 3)
				assert.NotNil(t, ev.MonteCarlo)
				assert.Len(t, ev.Significance, 2)
				require.NotNil(t, ev.Report)
				assert.Greater(t, ev.Report.Confidence, 0.0)
				assert.LessOrEqual(t, ev.Report.Confidence, 1.0)
				assert.NotNil(t, ev.Report.Risks.High)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, tt.mutate)
			ev, err := engine.Evaluate(context.Background(), criterionSet(alice, carol))
			require.NoError(t, err)
			tt.verify(t, ev)
		})
	}
}

func TestEngine_EvaluateMonteCarloIsReproducible(t *testing.T) {
	mutate := func(c *EngineConfig) {
		c.Analysis.MonteCarlo = &MonteCarloConfig{Simulations: 100, Uncertainty: 0.2, Seed: 17}
	}
	a, err := newTestEngine(t, mutate).Evaluate(context.Background(), criterionSet(alice, carol))
	require.NoError(t, err)
	b, err := newTestEngine(t, mutate).Evaluate(context.Background(), criterionSet(alice, carol))
	require.NoError(t, err)
	assert.Equal(t, a.MonteCarlo, b.MonteCarlo)
}

func TestEngine_EvaluateCache(t *testing.T) {
	metrics := &countingMetrics{}
	store := cache.NewMemoryStore()
	var ids atomic.Int64
	engine := newTestEngine(t,
		func(c *EngineConfig) { c.Engine.CacheTTLSeconds = 60 },
		WithCache(store),
		WithMetrics(metrics),
		WithIDGenerator(func() string { return fmt.Sprintf("exec-%d", ids.Add(1)) }),
	)
	ctx := context.Background()

	first, err := engine.Evaluate(ctx, criterionSet(alice, carol))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, store.Len())

	// Submission order does not change the fingerprint.
	second, err := engine.Evaluate(ctx, criterionSet(carol, alice))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ExecutionID, second.ExecutionID)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.False(t, first.Cached, "cached copy must not alias the stored evaluation")

	assert.Equal(t, int64(1), ids.Load())
	assert.Equal(t, 1.0, metrics.count(ports.MetricCacheRequests+"/hit"))
	assert.Equal(t, 1.0, metrics.count(ports.MetricCacheRequests+"/miss"))

	t.Run("degraded results are not cached", func(t *testing.T) {
		_, err := engine.Evaluate(ctx, criterionSet(alice))
		require.ErrorIs(t, err, domain.ErrInsufficientData)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("corrupted entries are dropped", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, cacheKey(first.Fingerprint), "garbage", time.Minute))
		before := ids.Load()
		ev, err := engine.Evaluate(ctx, criterionSet(alice, carol))
		require.NoError(t, err)
		assert.False(t, ev.Cached)
		assert.Equal(t, before+1, ids.Load())
	})
}

func TestEngine_EvaluateCacheOwnership(t *testing.T) {
	engine := newTestEngine(t,
		func(c *EngineConfig) { c.Engine.CacheTTLSeconds = 60 },
		WithCache(cache.NewMemoryStore()),
	)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(ev *Evaluation)
	}{
		{name: "consensus weights", mutate: func(ev *Evaluation) { ev.Consensus.AggregatedWeights[0] = 0 }},
		{name: "ranking", mutate: func(ev *Evaluation) { ev.Ranking[0].Label = "tampered" }},
		{name: "judgment matrix", mutate: func(ev *Evaluation) { ev.Judgments[0].Matrix[0][1] = 9 }},
		{name: "items", mutate: func(ev *Evaluation) { ev.Items[0] = "tampered" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := engine.Evaluate(ctx, criterionSet(alice, carol))
			require.NoError(t, err)
			tt.mutate(ev)

			again, err := engine.Evaluate(ctx, criterionSet(alice, carol))
			require.NoError(t, err)
			assert.True(t, again.Cached)
			assert.InDelta(t, groupWeights()[0], again.Consensus.AggregatedWeights[0], 1e-9)
			assert.Equal(t, "cost", again.Ranking[0].Label)
			assert.InDelta(t, 2.0, again.Judgments[0].Matrix[0][1], 1e-12)
			assert.Equal(t, criteria, again.Items)
		})
	}
}

// gatedUnit holds its first execution until release is closed.
type gatedUnit struct {
	ports.Unit
	once    *sync.Once
	started chan struct{}
	release chan struct{}
}

func (g gatedUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.Unit.Execute(ctx, state)
}

func TestEngine_EvaluateSurvivesCanceledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	store := cache.NewMemoryStore()
	engine := newTestEngine(t,
		func(c *EngineConfig) { c.Engine.CacheTTLSeconds = 60 },
		WithCache(store),
		WithUnitMiddleware(func(u ports.Unit) ports.Unit {
			if u.Name() != "consensus_aggregator" {
				return u
			}
			return gatedUnit{Unit: u, once: &sync.Once{}, started: started, release: release}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := engine.Evaluate(ctx, criterionSet(alice, carol))
		done <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return store.Len() == 1 }, 5*time.Second, 10*time.Millisecond,
		"computation should finish and be cached after its caller left")

	ev, err := engine.Evaluate(context.Background(), criterionSet(alice, carol))
	require.NoError(t, err)
	assert.True(t, ev.Cached)
	assert.InDeltaSlice(t, groupWeights(), []float64(ev.Consensus.AggregatedWeights), 1e-9)
}

// failingStore returns an undecodable entry and fails every write.
type failingStore struct {
	ports.CacheStore
}

func (failingStore) Get(context.Context, string) (any, bool, error) { return "garbage", true, nil }

func (failingStore) Set(_ context.Context, key string, _ any, _ time.Duration) error {
	return ports.NewCacheError(key, "Set", errors.New("read-only"))
}

func (failingStore) Delete(_ context.Context, key string) error {
	return ports.NewCacheError(key, "Delete", errors.New("read-only"))
}

func TestEngine_EvaluateLogsCacheFailures(t *testing.T) {
	var logs bytes.Buffer
	engine := newTestEngine(t,
		func(c *EngineConfig) { c.Engine.CacheTTLSeconds = 60 },
		WithCache(failingStore{}),
		WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))),
	)

	ev, err := engine.Evaluate(context.Background(), criterionSet(alice, carol))
	require.NoError(t, err)
	assert.False(t, ev.Cached)

	for _, msg := range []string{
		"dropping cache entry",
		"failed to drop cache entry",
		"failed to cache evaluation",
	} {
		assert.Contains(t, logs.String(), msg)
	}
	assert.Contains(t, logs.String(), "evaluation cache Delete")
}

func TestEngine_EvaluateConcurrent(t *testing.T) {
	engine := newTestEngine(t, func(c *EngineConfig) { c.Engine.Concurrency = 2 })
	in := criterionSet(alice, carol, xavi)

	const callers = 16
	results := make([]*Evaluation, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = engine.Evaluate(context.Background(), in)
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Fingerprint, results[i].Fingerprint)
		assert.InDeltaSlice(t,
			[]float64(results[0].Consensus.AggregatedWeights),
			[]float64(results[i].Consensus.AggregatedWeights), 1e-12)
	}
}

func TestEngine_WithUnitMiddleware(t *testing.T) {
	var wrapped []string
	_ = newTestEngine(t,
		func(c *EngineConfig) { c.Analysis.AggregateJudgments = "geometric" },
		WithUnitMiddleware(func(u ports.Unit) ports.Unit {
			wrapped = append(wrapped, u.Name())
			return u
		}),
	)

	assert.ElementsMatch(t, []string{
		"matrix_builder", "weight_solver", "consistency_checker",
		"consensus_aggregator", "matrix_aggregation", "synthesis",
	}, wrapped)
}

func TestEngine_EvaluateHierarchy(t *testing.T) {
	engine := newTestEngine(t, nil)
	alternatives := []string{"a", "b"}
	pair := func(id string, v float64) EvaluatorInput {
		return EvaluatorInput{EvaluatorID: id, Comparisons: []domain.ComparisonEntry{{Row: 0, Col: 1, Value: v}}}
	}

	in := HierarchyInput{
		Criteria: CriterionSetInput{
			ID:         "goal",
			Items:      []string{"cost", "quality"},
			Evaluators: []EvaluatorInput{pair("lead", 3)},
		},
		Alternatives: alternatives,
		ByCriterion: map[string]CriterionSetInput{
			"cost":    {ID: "cost", Items: alternatives, Evaluators: []EvaluatorInput{pair("lead", 1)}},
			"quality": {ID: "quality", Items: alternatives, Evaluators: []EvaluatorInput{pair("lead", 3)}},
		},
	}

	res, err := engine.EvaluateHierarchy(context.Background(), in)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.75, 0.25}, []float64(res.Criteria.Consensus.AggregatedWeights), 1e-6)
	require.Len(t, res.ByCriterion, 2)
	assert.InDeltaSlice(t, []float64{0.5625, 0.4375}, []float64(res.FinalPriorities), 1e-6)
	require.Len(t, res.Ranking, 2)
	assert.Equal(t, "a", res.Ranking[0].Label)

	t.Run("unknown criterion", func(t *testing.T) {
		bad := in
		bad.ByCriterion = map[string]CriterionSetInput{"speed": in.ByCriterion["cost"]}
		_, err := engine.EvaluateHierarchy(context.Background(), bad)
		assert.ErrorIs(t, err, domain.ErrInvalidComparison)
	})

	t.Run("alternatives mismatch", func(t *testing.T) {
		bad := in
		bad.ByCriterion = map[string]CriterionSetInput{
			"cost": {ID: "cost", Items: []string{"b", "a"}, Evaluators: []EvaluatorInput{pair("lead", 1)}},
		}
		_, err := engine.EvaluateHierarchy(context.Background(), bad)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})
}
