package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

// AggregateEvaluatorID labels the judgment solved from the element-wise
// aggregate of every contributing matrix.
const AggregateEvaluatorID = "aggregate"

// Engine evaluates criterion sets: it builds and solves every evaluator's
// matrix in parallel, checks consistency, and aggregates the group.
// An Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	config     EngineConfig
	configHash string
	validator  *validator.Validate
	logger     *slog.Logger
	metrics    ports.MetricsCollector
	cache      ports.CacheStore
	wrap       func(ports.Unit) ports.Unit
	newID      func() string

	// evaluator runs per evaluator: matrix builder, weight solver, consistency.
	evaluator *Pipeline
	// group runs once per criterion set: consensus, then sensitivity if enabled.
	group *Pipeline
	// aggregation solves the aggregated matrix; nil when disabled.
	aggregation *Pipeline
	synthesis   ports.Unit

	// sf collapses concurrent evaluations of the same fingerprint.
	sf singleflight.Group
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records cache and evaluation metrics to m.
func WithMetrics(m ports.MetricsCollector) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithCache caches evaluations in store for the configured TTL.
func WithCache(store ports.CacheStore) EngineOption {
	return func(e *Engine) { e.cache = store }
}

// WithUnitMiddleware wraps every unit the engine creates, e.g. with
// tracing and metrics.
func WithUnitMiddleware(wrap func(ports.Unit) ports.Unit) EngineOption {
	return func(e *Engine) {
		if wrap != nil {
			e.wrap = wrap
		}
	}
}

// WithIDGenerator replaces the execution id generator (uuid.NewString).
func WithIDGenerator(newID func() string) EngineOption {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// NewEngine validates config, creates its units through registry and
// assembles the evaluation pipelines. Zero-valued config fields take their
// defaults. A nil registry uses NewDefaultUnitRegistry.
func NewEngine(config EngineConfig, registry ports.UnitRegistry, opts ...EngineOption) (*Engine, error) {
	v, err := newValidator()
	if err != nil {
		return nil, err
	}

	config.applyDefaults()
	if err := v.Struct(config); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	hash, err := hashYAML(config)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:     config,
		configHash: hash,
		validator:  v,
		logger:     slog.Default(),
		wrap:       func(u ports.Unit) ports.Unit { return u },
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if registry == nil {
		registry = NewDefaultUnitRegistry(e.logger)
	}

	if err := e.assemble(registry); err != nil {
		return nil, err
	}
	return e, nil
}

// assemble creates the configured units and wires them into pipelines.
func (e *Engine) assemble(registry ports.UnitRegistry) error {
	created := make(map[string]ports.Unit)
	for unitType, params := range e.config.unitParameters() {
		u, err := registry.CreateUnit(unitType, unitType, params)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
		}
		created[unitType] = e.wrap(u)
	}

	var err error
	e.evaluator, err = NewUnitPipeline("evaluator",
		created[unitTypeMatrixBuilder], created[unitTypeWeightSolver], created[unitTypeConsistency])
	if err != nil {
		return err
	}

	group := []ports.Unit{created[unitTypeConsensus]}
	for _, t := range []string{unitTypeSensitivity, unitTypeMonteCarlo, unitTypeSignificance, unitTypeReport} {
		if u, ok := created[t]; ok {
			group = append(group, u)
		}
	}
	if e.group, err = NewUnitPipeline("group", group...); err != nil {
		return err
	}

	if u, ok := created[unitTypeMatrixAggregation]; ok {
		// Units are stateless, so the solver and checker are shared.
		e.aggregation, err = NewUnitPipeline("aggregation",
			u, created[unitTypeWeightSolver], created[unitTypeConsistency])
		if err != nil {
			return err
		}
	}

	e.synthesis = created[unitTypeSynthesis]
	return nil
}

// Config returns the effective configuration, defaults applied.
func (e *Engine) Config() EngineConfig { return e.config }

// ConfigHash returns the SHA256 of the normalized configuration.
func (e *Engine) ConfigHash() string { return e.configHash }

// Evaluate derives every evaluator's weights for in and aggregates them.
//
// Invalid evaluator input fails the whole call unless partial results are
// allowed, in which case failures are reported in Evaluation.Failed. Fewer
// than two contributing evaluators returns both the Evaluation (carrying
// the degraded consensus, if any) and an error matching
// domain.ErrInsufficientData. Inconsistent judgments are reported, never
// rejected; they are left out of the consensus only when configured.
//
// Successful results are cached by fingerprint. Concurrent calls with the
// same fingerprint share one computation; each caller receives its own
// copy of the result. The shared computation is not canceled when the
// caller that started it goes away, but it keeps that caller's deadline.
func (e *Engine) Evaluate(ctx context.Context, in CriterionSetInput) (*Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateInput(e.validator, in); err != nil {
		return nil, err
	}
	fp, err := Fingerprint(e.configHash, in)
	if err != nil {
		return nil, err
	}

	ttl := e.config.Engine.CacheTTL()
	useCache := e.cache != nil && ttl > 0
	if useCache {
		if ev, ok := e.cachedEvaluation(ctx, fp); ok {
			return ev, nil
		}
	}

	flight := e.sf.DoChan(fp, func() (any, error) {
		fctx, cancel := detach(ctx)
		defer cancel()

		ev, err := e.evaluate(fctx, in, fp)
		if err == nil && useCache {
			if cerr := e.cache.Set(fctx, cacheKey(fp), ev.Clone(), ttl); cerr != nil {
				e.logger.WarnContext(fctx, "failed to cache evaluation",
					slog.String("fingerprint", fp),
					slog.String("error", cerr.Error()))
			}
		}
		return ev, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-flight:
		ev, _ := res.Val.(*Evaluation)
		return ev.Clone(), res.Err
	}
}

// detach returns a context that keeps ctx's values and deadline but not
// its cancellation.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, deadline)
	}
	return detached, func() {}
}

func cacheKey(fingerprint string) string { return "evaluation:" + fingerprint }

// cachedEvaluation returns a deep copy of a cached evaluation marked Cached.
// Lookup failures are logged and treated as misses.
func (e *Engine) cachedEvaluation(ctx context.Context, fp string) (*Evaluation, bool) {
	key := cacheKey(fp)
	v, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.WarnContext(ctx, "cache lookup failed",
			slog.String("fingerprint", fp),
			slog.String("error", err.Error()))
		ok = false
	}
	if ok {
		if ev, isEval := v.(*Evaluation); isEval && ev != nil {
			e.recordCache(ctx, "hit", fp)
			hit := ev.Clone()
			hit.Cached = true
			return hit, true
		}
		corrupted := ports.NewCacheError(key, "Get", ports.ErrCacheCorrupted)
		e.logger.WarnContext(ctx, "dropping cache entry",
			slog.String("error", corrupted.Error()),
			slog.String("type", fmt.Sprintf("%T", v)))
		if derr := e.cache.Delete(ctx, key); derr != nil {
			e.logger.WarnContext(ctx, "failed to drop cache entry",
				slog.String("fingerprint", fp),
				slog.String("error", derr.Error()))
		}
	}
	e.recordCache(ctx, "miss", fp)
	return nil, false
}

func (e *Engine) recordCache(ctx context.Context, result, fp string) {
	e.logger.DebugContext(ctx, "evaluation cache "+result, slog.String("fingerprint", fp))
	if e.metrics != nil {
		e.metrics.RecordCounter(ports.MetricCacheRequests, 1, map[string]string{"result": result})
	}
}

// evaluate runs one uncached computation.
func (e *Engine) evaluate(ctx context.Context, in CriterionSetInput, fp string) (*Evaluation, error) {
	execID := e.newID()
	logger := e.logger.With(
		slog.String("execution_id", execID),
		slog.String("criterion_set", in.ID))

	evaluators := slices.Clone(in.Evaluators)
	slices.SortFunc(evaluators, func(a, b EvaluatorInput) int {
		return strings.Compare(a.EvaluatorID, b.EvaluatorID)
	})

	judgments := make([]*domain.EvaluatorJudgment, len(evaluators))
	errs := make([]error, len(evaluators))

	// Evaluator failures are collected, not propagated, so that one bad
	// matrix does not cancel the others.
	var g errgroup.Group
	if limit := e.config.Engine.Concurrency; limit > 0 {
		g.SetLimit(limit)
	}
	for i, ev := range evaluators {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			judgments[i], errs[i] = e.judge(ctx, execID, in, ev)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Evaluation{
		ExecutionID:    execID,
		CriterionSetID: in.ID,
		Fingerprint:    fp,
		Items:          slices.Clone(in.Items),
	}
	weights := make(map[string]domain.WeightVector, len(evaluators))
	matrices := make(map[string]domain.ComparisonMatrix, len(evaluators))
	influence := make(map[string]float64, len(evaluators))
	var failures []error

	for i, ev := range evaluators {
		id := ev.EvaluatorID
		if errs[i] != nil {
			failures = append(failures, fmt.Errorf("evaluator %s: %w", id, errs[i]))
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[id] = errs[i].Error()
			continue
		}

		j := judgments[i]
		result.Judgments = append(result.Judgments, *j)
		if w := j.Solution.Warning; w != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("evaluator %s: %v", id, w))
		}
		if !j.Consistency.IsConsistent && e.config.Engine.ExcludeInconsistent {
			result.Excluded = append(result.Excluded, id)
			logger.InfoContext(ctx, "excluding inconsistent evaluator from consensus",
				slog.String("evaluator", id),
				slog.Float64("cr", j.Consistency.CR),
				slog.Float64("threshold", j.Consistency.Threshold))
			continue
		}

		weights[id] = j.Weights()
		matrices[id] = j.Matrix
		influence[id] = ev.Influence
		if influence[id] == 0 {
			influence[id] = 1
		}
	}

	if len(failures) > 0 {
		joined := errors.Join(failures...)
		if !e.config.Engine.AllowPartial {
			return nil, fmt.Errorf("criterion set %s: %w", in.ID, joined)
		}
		logger.WarnContext(ctx, "evaluators rejected",
			slog.Int("count", len(failures)),
			slog.String("error", joined.Error()))
	}

	state := domain.NewState().WithExecutionContext(domain.ExecutionContext{
		ExecutionID:    execID,
		CriterionSetID: in.ID,
	})
	state = domain.With(state, domain.KeyItemLabels, in.Items)

	groupState := domain.With(state, domain.KeyIndividualWeights, weights)
	groupState = domain.With(groupState, domain.KeyEvaluatorMatrices, matrices)
	out, groupErr := e.group.Execute(ctx, groupState)
	if c, ok := domain.Get(out, domain.KeyConsensus); ok && c != nil {
		result.Consensus = c
		result.Ranking = c.AggregatedWeights.Ranking(in.Items)
	}
	if s, ok := domain.Get(out, domain.KeySensitivity); ok {
		result.Sensitivity = s
	}
	if mc, ok := domain.Get(out, domain.KeyMonteCarlo); ok {
		result.MonteCarlo = mc
	}
	if sig, ok := domain.Get(out, domain.KeySignificance); ok {
		result.Significance = sig
	}
	if r, ok := domain.Get(out, domain.KeyReport); ok {
		result.Report = r
	}

	if e.aggregation != nil && len(matrices) > 0 {
		aj, err := e.aggregateJudgments(ctx, state, in.ID, matrices, influence)
		if err != nil {
			return nil, fmt.Errorf("criterion set %s: %w", in.ID, err)
		}
		result.AggregatedJudgment = aj
	}

	if groupErr != nil {
		if errors.Is(groupErr, domain.ErrInsufficientData) {
			logger.WarnContext(ctx, "consensus degraded",
				slog.Int("contributing", len(weights)),
				slog.String("error", groupErr.Error()))
			return result, fmt.Errorf("criterion set %s: %w", in.ID, groupErr)
		}
		return nil, fmt.Errorf("criterion set %s: %w", in.ID, groupErr)
	}

	attrs := []any{
		slog.Int("evaluators", len(result.Judgments)),
		slog.Int("excluded", len(result.Excluded)),
		slog.String("agreement", string(result.Consensus.Agreement)),
	}
	if w := result.Consensus.KendallsW; w != nil {
		attrs = append(attrs, slog.Float64("kendalls_w", *w))
	}
	logger.InfoContext(ctx, "criterion set evaluated", attrs...)
	return result, nil
}

// judge runs the evaluator pipeline for one evaluator.
func (e *Engine) judge(ctx context.Context, execID string, in CriterionSetInput, ev EvaluatorInput) (*domain.EvaluatorJudgment, error) {
	state := domain.NewState().WithExecutionContext(domain.ExecutionContext{
		ExecutionID:    execID,
		CriterionSetID: in.ID,
		EvaluatorID:    ev.EvaluatorID,
	})
	state = domain.With(state, domain.KeyItemLabels, in.Items)
	state = domain.With(state, domain.KeyComparisons, ev.Comparisons)
	state = domain.With(state, domain.KeyLabeledComparisons, ev.LabeledComparisons)

	out, err := e.evaluator.Execute(ctx, state)
	if err != nil {
		return nil, err
	}
	return judgmentFrom(out, ev.EvaluatorID, in.ID)
}

// aggregateJudgments solves the element-wise aggregate of matrices.
func (e *Engine) aggregateJudgments(
	ctx context.Context,
	state domain.State,
	criterionSetID string,
	matrices map[string]domain.ComparisonMatrix,
	influence map[string]float64,
) (*domain.EvaluatorJudgment, error) {
	state = domain.With(state, domain.KeyEvaluatorID, AggregateEvaluatorID)
	state = domain.With(state, domain.KeyEvaluatorMatrices, matrices)
	state = domain.With(state, domain.KeyEvaluatorInfluence, influence)

	out, err := e.aggregation.Execute(ctx, state)
	if err != nil {
		return nil, err
	}
	return judgmentFrom(out, AggregateEvaluatorID, criterionSetID)
}

func judgmentFrom(out domain.State, evaluatorID, criterionSetID string) (*domain.EvaluatorJudgment, error) {
	m, _ := domain.Get(out, domain.KeyMatrix)
	sol, _ := domain.Get(out, domain.KeySolution)
	cr, _ := domain.Get(out, domain.KeyConsistency)
	if m == nil || sol == nil || cr == nil {
		return nil, fmt.Errorf("%w: pipeline left no judgment for %s", domain.ErrInvalidState, evaluatorID)
	}
	return &domain.EvaluatorJudgment{
		EvaluatorID:    evaluatorID,
		CriterionSetID: criterionSetID,
		Matrix:         m,
		Solution:       *sol,
		Consistency:    *cr,
	}, nil
}

// EvaluateHierarchy evaluates the criteria and every criterion's
// alternatives, then synthesizes final alternative priorities.
//
// A criterion set judged by a single evaluator is accepted here: its
// degraded consensus is that evaluator's weights.
func (e *Engine) EvaluateHierarchy(ctx context.Context, in HierarchyInput) (*HierarchyEvaluation, error) {
	if err := e.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidComparison, err)
	}

	criteriaLabels := make([]string, 0, len(in.ByCriterion))
	for label, set := range in.ByCriterion {
		if !slices.Contains(in.Criteria.Items, label) {
			return nil, domain.NewInvalidComparisonError(-1, -1,
				fmt.Sprintf("alternatives judged under unknown criterion %q", label))
		}
		if !slices.Equal(set.Items, in.Alternatives) {
			return nil, fmt.Errorf("%w: criterion %q items %v, want alternatives %v",
				domain.ErrDimensionMismatch, label, set.Items, in.Alternatives)
		}
		criteriaLabels = append(criteriaLabels, label)
	}
	slices.Sort(criteriaLabels)

	criteria, err := e.evaluateAllowingSingle(ctx, in.Criteria)
	if err != nil {
		return nil, err
	}

	result := &HierarchyEvaluation{
		Criteria:    criteria,
		ByCriterion: make(map[string]*Evaluation, len(criteriaLabels)),
	}
	local := make(map[string]domain.WeightVector, len(criteriaLabels))
	for _, label := range criteriaLabels {
		ev, err := e.evaluateAllowingSingle(ctx, in.ByCriterion[label])
		if err != nil {
			return nil, fmt.Errorf("criterion %s: %w", label, err)
		}
		result.ByCriterion[label] = ev
		local[label] = ev.Consensus.AggregatedWeights
	}

	state := domain.NewState().WithExecutionContext(domain.ExecutionContext{
		ExecutionID:    criteria.ExecutionID,
		CriterionSetID: in.Criteria.ID,
	})
	state = domain.With(state, domain.KeyItemLabels, in.Criteria.Items)
	state = domain.With(state, domain.KeyConsensus, criteria.Consensus)
	state = domain.With(state, domain.KeyLocalPriorities, local)
	state = domain.With(state, domain.KeyAlternativeLabels, in.Alternatives)

	out, err := e.synthesis.Execute(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	final, ok := domain.Get(out, domain.KeyFinalPriorities)
	if !ok {
		return nil, domain.MissingKey(domain.KeyFinalPriorities)
	}
	result.FinalPriorities = final
	result.Ranking = final.Ranking(in.Alternatives)
	return result, nil
}

func (e *Engine) evaluateAllowingSingle(ctx context.Context, in CriterionSetInput) (*Evaluation, error) {
	ev, err := e.Evaluate(ctx, in)
	if err == nil {
		return ev, nil
	}
	if errors.Is(err, domain.ErrInsufficientData) && ev != nil && ev.Consensus != nil {
		return ev, nil
	}
	return nil, err
}
