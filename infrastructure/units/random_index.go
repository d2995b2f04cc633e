package units

import (
	"fmt"

	"github.com/ahrav/go-ahp/internal/domain"
)

// RandomIndexTable is a published table of Random Index values: the mean
// consistency index of random reciprocal matrices, by order. Tables are
// immutable values; select one by name rather than editing it.
type RandomIndexTable struct {
	name   string
	values []float64 // values[n-1] is RI(n)
}

// Published Random Index tables.
var (
	// RandomIndexSaaty holds Saaty's values for n = 1..15.
	RandomIndexSaaty = RandomIndexTable{
		name: "saaty-1980",
		values: []float64{
			0, 0, 0.52, 0.89, 1.11, 1.25, 1.35, 1.40, 1.45, 1.49,
			1.51, 1.54, 1.56, 1.58, 1.59,
		},
	}

	// RandomIndexAlonso holds the Alonso and Lamata simulation values for
	// n = 1..15.
	RandomIndexAlonso = RandomIndexTable{
		name: "alonso-lamata-2006",
		values: []float64{
			0, 0, 0.5245, 0.8815, 1.1086, 1.2479, 1.3417, 1.4056, 1.4499, 1.4854,
			1.5141, 1.5365, 1.5551, 1.5713, 1.5838,
		},
	}
)

var randomIndexTables = map[string]RandomIndexTable{
	RandomIndexSaaty.name:  RandomIndexSaaty,
	RandomIndexAlonso.name: RandomIndexAlonso,
}

// RandomIndexByName looks up a published table.
func RandomIndexByName(name string) (RandomIndexTable, error) {
	t, ok := randomIndexTables[name]
	if !ok {
		return RandomIndexTable{}, fmt.Errorf("%w: unknown random index table %q", domain.ErrInvalidConfiguration, name)
	}
	return t, nil
}

// IsRandomIndexTable reports whether name identifies a published table.
func IsRandomIndexTable(name string) bool {
	_, ok := randomIndexTables[name]
	return ok
}

// Name returns the table's version identifier.
func (t RandomIndexTable) Name() string { return t.name }

// MaxOrder returns the largest tabulated order.
func (t RandomIndexTable) MaxOrder() int { return len(t.values) }

// Lookup returns RI(n). Orders beyond the table fail with
// *domain.UnsupportedOrderError under OrderPolicyReject and reuse the
// last value under OrderPolicyClamp.
func (t RandomIndexTable) Lookup(n int, policy OrderPolicy) (float64, error) {
	if n < 1 {
		return 0, domain.NewInvalidComparisonError(-1, -1, fmt.Sprintf("matrix order %d, need at least 1", n))
	}
	if len(t.values) == 0 {
		return 0, fmt.Errorf("%w: empty random index table", domain.ErrInvalidConfiguration)
	}
	if n <= len(t.values) {
		return t.values[n-1], nil
	}
	if policy == OrderPolicyClamp {
		return t.values[len(t.values)-1], nil
	}
	return 0, &domain.UnsupportedOrderError{Order: n, MaxOrder: len(t.values), Table: t.name}
}
