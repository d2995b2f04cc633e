// Package domain contains pure, dependency-free domain models and types
// for the AHP computation engine.
package domain

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Key represents a type-safe generic key for accessing values in State.
// The type parameter T ensures compile-time type safety when getting and
// setting values, eliminating the need for runtime type assertions.
type Key[T any] struct{ name string }

// NewKey creates a new Key with the specified name and type.
// This function is provided for creating keys outside of the domain package.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the string form of the key.
func (k Key[T]) Name() string { return k.name }

// Predefined state keys used while deriving and aggregating judgments.
var (
	// KeyCriterionSetID identifies the set of items being compared
	// (e.g. a project's criteria at one hierarchy level).
	KeyCriterionSetID = Key[string]{"criterion_set_id"}

	// KeyEvaluatorID identifies the evaluator whose judgments are in flight.
	KeyEvaluatorID = Key[string]{"evaluator_id"}

	// KeyItemLabels stores the ordered item labels. Index i of every matrix
	// and weight vector refers to label i.
	KeyItemLabels = Key[[]string]{"item_labels"}

	// KeyItemCount stores the matrix order when no labels are supplied.
	KeyItemCount = Key[int]{"item_count"}

	// KeyComparisons stores index-addressed pairwise comparisons.
	KeyComparisons = Key[[]ComparisonEntry]{"comparisons"}

	// KeyLabeledComparisons stores label-addressed pairwise comparisons.
	KeyLabeledComparisons = Key[[]LabeledComparison]{"labeled_comparisons"}

	// KeyMatrix stores the reciprocal comparison matrix built for one evaluator.
	KeyMatrix = Key[ComparisonMatrix]{"matrix"}

	// KeySolution stores the weight solver output for KeyMatrix.
	KeySolution = Key[*Solution]{"solution"}

	// KeyConsistency stores the consistency check of KeySolution.
	KeyConsistency = Key[*ConsistencyResult]{"consistency"}

	// KeyIndividualWeights maps evaluator id to that evaluator's weight vector.
	KeyIndividualWeights = Key[map[string]WeightVector]{"individual_weights"}

	// KeyConsensus stores the group consensus computed from KeyIndividualWeights.
	KeyConsensus = Key[*GroupConsensusResult]{"consensus"}

	// KeyEvaluatorMatrices maps evaluator id to that evaluator's matrix, the
	// input of judgment-level (AIJ) aggregation.
	KeyEvaluatorMatrices = Key[map[string]ComparisonMatrix]{"evaluator_matrices"}

	// KeyEvaluatorInfluence maps evaluator id to a relative voting power used
	// by weighted matrix aggregation.
	KeyEvaluatorInfluence = Key[map[string]float64]{"evaluator_influence"}

	// KeyAggregatedMatrix stores the element-wise aggregate of KeyEvaluatorMatrices.
	KeyAggregatedMatrix = Key[ComparisonMatrix]{"aggregated_matrix"}

	// KeySensitivity stores one sensitivity sweep per perturbed item.
	KeySensitivity = Key[[]SensitivityResult]{"sensitivity"}

	// KeySignificance maps evaluator id to the test of that evaluator's
	// judgments against the ones implied by the consensus weights.
	KeySignificance = Key[map[string]SignificanceResult]{"significance"}

	// KeyMonteCarlo stores the rank stability simulation of the consensus.
	KeyMonteCarlo = Key[*MonteCarloResult]{"monte_carlo"}

	// KeyReport stores the findings, recommendations and risks drawn from
	// the group analyses.
	KeyReport = Key[*DecisionReport]{"report"}

	// KeyLocalPriorities maps a criterion label to the weights of the
	// alternatives under that criterion.
	KeyLocalPriorities = Key[map[string]WeightVector]{"local_priorities"}

	// KeyAlternativeLabels stores the ordered alternative labels used by
	// hierarchical synthesis.
	KeyAlternativeLabels = Key[[]string]{"alternative_labels"}

	// KeyFinalPriorities stores the globally synthesized alternative weights.
	KeyFinalPriorities = Key[WeightVector]{"final_priorities"}

	// KeyExecutionID stores a unique identifier for one engine evaluation,
	// used for tracing and log correlation.
	KeyExecutionID = Key[string]{"execution.execution_id"}
)

// deepCopyValue creates a deep copy of a value so that callers can never
// mutate data held by a State. Nil slices and maps stay nil so that
// "undefined" results survive a round trip.
func deepCopyValue(value any) any {
	if value == nil {
		return nil
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return value
		}
		newSlice := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			if elem.Kind() == reflect.Slice || elem.Kind() == reflect.Map ||
				elem.Kind() == reflect.Ptr || elem.Kind() == reflect.Struct {
				elem = reflect.ValueOf(deepCopyValue(elem.Interface()))
			}
			newSlice.Index(i).Set(elem)
		}
		return newSlice.Interface()

	case reflect.Map:
		if v.IsNil() {
			return value
		}
		newMap := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			copied := deepCopyValue(iter.Value().Interface())
			if copied == nil {
				newMap.SetMapIndex(iter.Key(), iter.Value())
				continue
			}
			newMap.SetMapIndex(iter.Key(), reflect.ValueOf(copied))
		}
		return newMap.Interface()

	case reflect.Ptr:
		if v.IsNil() {
			return value
		}
		newPtr := reflect.New(v.Elem().Type())
		newPtr.Elem().Set(reflect.ValueOf(deepCopyValue(v.Elem().Interface())))
		return newPtr.Interface()

	case reflect.Struct:
		// Only exported fields are copied; domain structs keep all state in
		// exported fields for that reason.
		newStruct := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if !newStruct.Field(i).CanSet() {
				continue
			}
			field := v.Field(i)
			if field.Kind() == reflect.Interface || !field.CanInterface() {
				newStruct.Field(i).Set(field)
				continue
			}
			copied := deepCopyValue(field.Interface())
			if copied == nil {
				continue
			}
			newStruct.Field(i).Set(reflect.ValueOf(copied))
		}
		return newStruct.Interface()

	default:
		return value
	}
}

// DeepCopy returns a copy of v that shares no slices, maps or pointers
// with it. Interface-typed fields are copied shallowly.
func DeepCopy[T any](v T) T {
	c, ok := deepCopyValue(v).(T)
	if !ok {
		return v
	}
	return c
}

// State is an immutable bag of values flowing through a unit pipeline.
// It uses copy-on-write semantics so one State can be handed to many
// goroutines at once.
type State struct {
	data map[string]any
}

// NewState creates a new empty State.
func NewState() State {
	return State{data: make(map[string]any)}
}

// Get retrieves a deep copy of the value stored under key. The boolean is
// false when the key is absent or holds a value of another type.
//
// Example:
//
//	m, ok := Get(state, KeyMatrix)
//	if !ok {
//	    // handle missing matrix
//	}
func Get[T any](s State, key Key[T]) (T, bool) {
	var zero T
	value, exists := s.data[key.name]
	if !exists {
		return zero, false
	}

	val, ok := deepCopyValue(value).(T)
	return val, ok
}

// With returns a new State holding value under key; s is left unchanged.
//
// Example:
//
//	next := With(state, KeyEvaluatorID, "alice")
func With[T any](s State, key Key[T], value T) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	newData[key.name] = deepCopyValue(value)
	return State{data: newData}
}

// GetRaw retrieves a value by its string key name.
// For type safety, use the generic Get function instead.
func (s State) GetRaw(keyName string) (any, bool) {
	value, exists := s.data[keyName]
	if !exists {
		return nil, false
	}
	return deepCopyValue(value), true
}

// WithMultiple returns a new State with every entry of updates applied in
// a single clone.
func (s State) WithMultiple(updates map[string]any) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any, len(updates))
	}
	for k, v := range updates {
		newData[k] = deepCopyValue(v)
	}
	return State{data: newData}
}

// Keys returns the sorted key names present in the State.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// String returns a string representation of the State for debugging purposes.
func (s State) String() string {
	return fmt.Sprintf("State%v", s.data)
}

// ExecutionContext identifies one evaluation as it flows through the
// pipeline so that middleware can label spans, logs and metrics.
type ExecutionContext struct {
	ExecutionID    string
	CriterionSetID string
	EvaluatorID    string
}

// WithExecutionContext returns a new State carrying the execution metadata.
func (s State) WithExecutionContext(ctx ExecutionContext) State {
	return s.WithMultiple(map[string]any{
		KeyExecutionID.name:    ctx.ExecutionID,
		KeyCriterionSetID.name: ctx.CriterionSetID,
		KeyEvaluatorID.name:    ctx.EvaluatorID,
	})
}

// GetExecutionContext extracts whatever execution metadata is present.
// The boolean reports whether an execution id was set.
func (s State) GetExecutionContext() (ExecutionContext, bool) {
	executionID, ok := Get(s, KeyExecutionID)
	criterionSetID, _ := Get(s, KeyCriterionSetID)
	evaluatorID, _ := Get(s, KeyEvaluatorID)

	return ExecutionContext{
		ExecutionID:    executionID,
		CriterionSetID: criterionSetID,
		EvaluatorID:    evaluatorID,
	}, ok
}
