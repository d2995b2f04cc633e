package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-ahp/internal/domain"
	"github.com/ahrav/go-ahp/internal/ports"
)

const tracerName = "github.com/ahrav/go-ahp/middleware"

var _ ports.Unit = (*ObservedUnit)(nil)

// ObservedUnit wraps a unit with an OpenTelemetry span, structured logs
// and metrics. After the wrapped unit runs it inspects the outputs it
// wrote (solution, consistency, consensus) and reports warnings,
// inconsistent judgments and outliers. It never changes the unit's
// result.
type ObservedUnit struct {
	next    ports.Unit
	metrics ports.MetricsCollector
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewObservedUnit wraps next. metrics may be nil; a nil logger uses
// slog.Default().
func NewObservedUnit(next ports.Unit, metrics ports.MetricsCollector, logger *slog.Logger) *ObservedUnit {
	if next == nil {
		panic("observed unit: next unit is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ObservedUnit{
		next:    next,
		metrics: metrics,
		logger:  logger.With(slog.String("unit", next.Name())),
		tracer:  otel.Tracer(tracerName),
	}
}

// Name returns the wrapped unit's name.
func (o *ObservedUnit) Name() string { return o.next.Name() }

// Validate delegates to the wrapped unit.
func (o *ObservedUnit) Validate() error { return o.next.Validate() }

// Unwrap returns the wrapped unit.
func (o *ObservedUnit) Unwrap() ports.Unit { return o.next }

// Execute runs the wrapped unit inside a span.
func (o *ObservedUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	ctx, span := o.tracer.Start(ctx, fmt.Sprintf("%s.Execute", o.next.Name()))
	defer span.End()

	execCtx, _ := state.GetExecutionContext()
	span.SetAttributes(
		attribute.String("ahp.unit", o.next.Name()),
		attribute.String("ahp.criterion_set", execCtx.CriterionSetID),
		attribute.String("ahp.evaluator", execCtx.EvaluatorID),
		attribute.String("ahp.execution_id", execCtx.ExecutionID),
	)

	start := time.Now()
	out, err := o.next.Execute(ctx, state)
	elapsed := time.Since(start)

	labels := o.labels(execCtx)
	if o.metrics != nil {
		o.metrics.RecordLatency("unit_execute", elapsed, labels)
	}

	// Consensus returns a degraded result alongside InsufficientDataError,
	// so outputs are inspected even on error.
	o.observeOutputs(ctx, span, out, labels)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if o.metrics != nil {
			o.metrics.RecordCounter(MetricUnitErrors, 1, labels)
		}
		level := slog.LevelError
		if errors.Is(err, domain.ErrInsufficientData) || errors.Is(err, context.Canceled) {
			level = slog.LevelWarn
		}
		o.logger.Log(ctx, level, "unit execution failed",
			slog.String("evaluator", execCtx.EvaluatorID),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
		return out, err
	}

	span.SetStatus(codes.Ok, "")
	o.logger.DebugContext(ctx, "unit executed",
		slog.String("evaluator", execCtx.EvaluatorID),
		slog.Duration("elapsed", elapsed))
	return out, nil
}

func (o *ObservedUnit) labels(execCtx domain.ExecutionContext) map[string]string {
	return map[string]string{
		"unit":          o.next.Name(),
		"criterion_set": execCtx.CriterionSetID,
	}
}

// observeOutputs reports on whichever result keys the unit wrote.
func (o *ObservedUnit) observeOutputs(ctx context.Context, span trace.Span, out domain.State, labels map[string]string) {
	if sol, ok := domain.Get(out, domain.KeySolution); ok && sol != nil {
		o.observeSolution(ctx, span, sol, labels)
	}
	if cr, ok := domain.Get(out, domain.KeyConsistency); ok && cr != nil {
		o.observeConsistency(ctx, span, cr, labels)
	}
	if gc, ok := domain.Get(out, domain.KeyConsensus); ok && gc != nil {
		o.observeConsensus(ctx, span, gc, labels)
	}
}

func (o *ObservedUnit) observeSolution(ctx context.Context, span trace.Span, sol *domain.Solution, labels map[string]string) {
	span.SetAttributes(
		attribute.String("ahp.method", string(sol.Method)),
		attribute.Int("ahp.iterations", sol.Iterations),
		attribute.Float64("ahp.lambda_max", sol.Eigenvalue),
	)
	if o.metrics != nil && sol.Method == domain.MethodEigenvector {
		o.metrics.RecordHistogram(MetricPowerIterationSteps, float64(sol.Iterations), labels)
	}
	if sol.Warning == nil {
		return
	}

	span.AddEvent("weights.nonconvergence", trace.WithAttributes(
		attribute.Int("iterations", sol.Warning.Iterations),
		attribute.Float64("residual", sol.Warning.Residual),
	))
	if o.metrics != nil {
		o.metrics.RecordCounter(MetricNonConvergence, 1, labels)
	}
	o.logger.WarnContext(ctx, "power iteration did not converge",
		slog.Int("iterations", sol.Warning.Iterations),
		slog.Float64("residual", sol.Warning.Residual),
		slog.Float64("tolerance", sol.Warning.Tolerance))
}

func (o *ObservedUnit) observeConsistency(ctx context.Context, span trace.Span, cr *domain.ConsistencyResult, labels map[string]string) {
	span.SetAttributes(
		attribute.Float64("ahp.consistency_ratio", cr.CR),
		attribute.Bool("ahp.consistent", cr.IsConsistent),
	)
	if o.metrics != nil {
		o.metrics.RecordHistogram(MetricConsistencyRatio, cr.CR, labels)
	}
	if cr.IsConsistent {
		return
	}

	span.AddEvent("consistency.threshold_exceeded", trace.WithAttributes(
		attribute.Float64("cr", cr.CR),
		attribute.Float64("threshold", cr.Threshold),
	))
	if o.metrics != nil {
		o.metrics.RecordCounter(MetricInconsistent, 1, labels)
	}
	o.logger.InfoContext(ctx, "judgment matrix inconsistent",
		slog.Int("order", cr.Order),
		slog.Float64("cr", cr.CR),
		slog.Float64("threshold", cr.Threshold))
}

func (o *ObservedUnit) observeConsensus(ctx context.Context, span trace.Span, gc *domain.GroupConsensusResult, labels map[string]string) {
	span.SetAttributes(
		attribute.Int("ahp.evaluators", len(gc.Evaluators)),
		attribute.String("ahp.agreement", string(gc.Agreement)),
	)
	if gc.KendallsW != nil {
		span.SetAttributes(attribute.Float64("ahp.kendalls_w", *gc.KendallsW))
		if o.metrics != nil {
			o.metrics.RecordGauge(MetricKendallsW, *gc.KendallsW, labels)
		}
	}
	if len(gc.OutlierEvaluators) == 0 {
		return
	}

	span.AddEvent("consensus.outliers", trace.WithAttributes(
		attribute.StringSlice("evaluators", gc.OutlierEvaluators),
	))
	if o.metrics != nil {
		o.metrics.RecordCounter(MetricOutlierEvaluators, float64(len(gc.OutlierEvaluators)), labels)
	}
	o.logger.InfoContext(ctx, "outlier evaluators flagged",
		slog.Any("evaluators", gc.OutlierEvaluators),
		slog.String("agreement", string(gc.Agreement)))
}
