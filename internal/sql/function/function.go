// Package function holds the built-in scalar and aggregate SQL functions.
// Functions operate on record values only, so both the binder (arity checks)
// and the executor (evaluation) share one registry.
package function

import (
	"strings"

	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
)

// Variadic marks a function without an upper argument bound.
const Variadic = -1

// Scalar is a row-at-a-time function. coll is the collation of the call,
// used by the few functions that compare text.
type Scalar struct {
	Name    string
	MinArgs int
	MaxArgs int
	Fn      func(args []record.Value, coll record.Collation) (record.Value, error)
}

// Accumulator folds the rows of one group.
type Accumulator interface {
	Step(args []record.Value) error
	Final() (record.Value, error)
}

// Selector is implemented by min() and max(): Selected reports whether the
// last Step changed the result. The executor uses it to decide which row
// supplies bare columns.
type Selector interface {
	Selected() bool
}

// Aggregate builds accumulators for one aggregate function.
type Aggregate struct {
	Name    string
	MinArgs int
	MaxArgs int
	New     func(coll record.Collation) Accumulator
}

var (
	scalars    = map[string]*Scalar{}
	aggregates = map[string]*Aggregate{}
)

// Changes is changes(). It reads connection state, so the executor
// evaluates it instead of Fn.
var Changes = &Scalar{Name: "changes", Fn: func([]record.Value, record.Collation) (record.Value, error) {
	return record.Int(0), nil
}}

func init() {
	scalars[Changes.Name] = Changes
}

func registerScalar(name string, minArgs, maxArgs int, fn func([]record.Value, record.Collation) (record.Value, error)) {
	scalars[name] = &Scalar{Name: name, MinArgs: minArgs, MaxArgs: maxArgs, Fn: fn}
}

func registerAggregate(name string, minArgs, maxArgs int, fn func(record.Collation) Accumulator) {
	aggregates[name] = &Aggregate{Name: name, MinArgs: minArgs, MaxArgs: maxArgs, New: fn}
}

func accepts(minArgs, maxArgs, n int) bool {
	return n >= minArgs && (maxArgs == Variadic || n <= maxArgs)
}

// LookupAggregate finds an aggregate taking n arguments. min and max with
// more than one argument are scalar, so they are not found here.
func LookupAggregate(name string, n int) (*Aggregate, bool) {
	a, ok := aggregates[strings.ToLower(name)]
	if !ok || !accepts(a.MinArgs, a.MaxArgs, n) {
		return nil, false
	}
	return a, true
}

// LookupScalar resolves a scalar function by name and argument count.
func LookupScalar(name string, n int) (*Scalar, error) {
	lname := strings.ToLower(name)
	s, ok := scalars[lname]
	if !ok {
		if _, isAgg := aggregates[lname]; isAgg {
			return nil, dberr.Bind("wrong number of arguments to function %s()", lname)
		}
		return nil, dberr.Bind("no such function: %s", lname)
	}
	if !accepts(s.MinArgs, s.MaxArgs, n) {
		return nil, dberr.Bind("wrong number of arguments to function %s()", lname)
	}
	return s, nil
}

// IsAggregateName reports whether name is an aggregate for some arity.
func IsAggregateName(name string) bool {
	_, ok := aggregates[strings.ToLower(name)]
	return ok
}
