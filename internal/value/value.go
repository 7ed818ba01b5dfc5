// Package value implements the tagged-value variant used for task inputs
// and outputs. Task bodies in this system are untyped: a body may receive
// a single scalar or an ordered sequence, and may return any of int,
// float, string, sequence, map, or nothing at all.
package value

import "fmt"

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindSequence
	KindMap
)

// Value is a small tagged union. The zero Value is Null and carries no
// data; this is the absent/empty output the scheduler treats specially
// when assembling downstream inputs.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	seq  []Value
	m    map[string]Value
}

// Null is the empty/absent value.
func Null() Value { return Value{kind: KindNull} }

// Int wraps an integer scalar.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating-point scalar.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string scalar.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Sequence wraps an ordered list of values.
func Sequence(vs ...Value) Value { return Value{kind: KindSequence, seq: vs} }

// Map wraps a string-keyed map of values.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// Kind reports which variant this Value holds.
func (v Value) Kind() Kind { return v.kind }

// IsEmpty reports whether v is absent/undefined: Null, or a Sequence with
// no elements. Predecessors whose output IsEmpty are omitted from a
// downstream task's assembled inputs.
func (v Value) IsEmpty() bool {
	return v.kind == KindNull || (v.kind == KindSequence && len(v.seq) == 0)
}

// AsSequence returns v's elements if v is a Sequence, or a one-element
// sequence containing v otherwise, so callers can treat a scalar as a
// one-element sequence.
func (v Value) AsSequence() []Value {
	if v.kind == KindSequence {
		return v.seq
	}
	if v.kind == KindNull {
		return nil
	}
	return []Value{v}
}

// AsMap returns v's entries if v is a Map, or nil otherwise.
func (v Value) AsMap() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// Float64 returns v as a float64: Int and Float convert directly, other
// kinds (and Null) contribute 0.
func (v Value) Float64() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	default:
		return 0
	}
}

// Int64 returns v truncated to an int64, or 0 for non-numeric kinds.
func (v Value) Int64() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.f)
	default:
		return 0
	}
}

// Sum folds a sequence (or scalar, per AsSequence) of numeric values into
// a single Value, preserving integer-ness when every element is an Int.
// A convenience fold for simple numeric pipelines; callers with richer
// data define their own.
func Sum(v Value) Value {
	elems := v.AsSequence()
	allInt := true
	var fsum float64
	var isum int64
	for _, e := range elems {
		if e.kind != KindInt {
			allInt = false
		}
		fsum += e.Float64()
		isum += e.Int64()
	}
	if allInt {
		return Int(isum)
	}
	return Float(fsum)
}

// String returns a human-readable rendering, used by logging and the
// observation hook to render inputs/outputs in events.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "<null>"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindSequence:
		return fmt.Sprintf("%v", v.seq)
	case KindMap:
		return fmt.Sprintf("%v", v.m)
	default:
		return "<unknown>"
	}
}
