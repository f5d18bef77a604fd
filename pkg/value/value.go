// Package value implements the Diannex runtime value model: a tagged sum
// over undefined, int, double, string, and array-of-value.
//
// Arrays carry reference semantics (spec.md's design note prefers
// shared-ownership arrays so that set_array_index mutations are visible
// through other copies of the same Value) by wrapping a pointer to the
// backing element slice. Everything else is a plain immutable scalar
// stored by value, the way the teacher VM's interface{} stack cells are
// cheap to copy.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which alternative of the Value sum is populated.
type Kind int

const (
	Undefined Kind = iota
	Int
	Double
	String
	Array
)

func (k Kind) String() string {
	switch k {
	case Undefined:
		return "undefined"
	case Int:
		return "int"
	case Double:
		return "double"
	case String:
		return "string"
	case Array:
		return "array"
	default:
		return "unknown"
	}
}

// ArrayData is the shared backing store for an Array value. Copying a
// Value that holds an Array copies the pointer, not the slice, so mutation
// through set_array_index is visible to every alias of the array.
type ArrayData struct {
	Elems []Value
}

// Value is an immutable tagged union. The zero Value is Undefined.
type Value struct {
	kind Kind
	i    int32
	f    float64
	s    string
	arr  *ArrayData
}

// Undef is the canonical undefined value.
var Undef = Value{kind: Undefined}

// NewInt constructs an Int value.
func NewInt(n int32) Value { return Value{kind: Int, i: n} }

// NewDouble constructs a Double value.
func NewDouble(f float64) Value { return Value{kind: Double, f: f} }

// NewString constructs a String value.
func NewString(s string) Value { return Value{kind: String, s: s} }

// NewArray wraps elems (taken by reference, not copied) in an Array value.
func NewArray(elems []Value) Value {
	return Value{kind: Array, arr: &ArrayData{Elems: elems}}
}

// Kind reports which alternative is populated.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v is the undefined value.
func (v Value) IsUndefined() bool { return v.kind == Undefined }

// IsNumeric reports whether v is an Int or a Double.
func (v Value) IsNumeric() bool { return v.kind == Int || v.kind == Double }

// Int returns the underlying int32 and true, or (0, false) if v is not Int.
func (v Value) Int() (int32, bool) {
	if v.kind != Int {
		return 0, false
	}
	return v.i, true
}

// Double returns the underlying float64 and true, or (0, false) if v is not Double.
func (v Value) Double() (float64, bool) {
	if v.kind != Double {
		return 0, false
	}
	return v.f, true
}

// Str returns the underlying string and true, or ("", false) if v is not String.
func (v Value) Str() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.s, true
}

// ArrayElems returns the backing slice and true, or (nil, false) if v is not Array.
// The returned slice aliases the Value's storage; mutating it mutates every
// alias of this array.
func (v Value) ArrayElems() ([]Value, bool) {
	if v.kind != Array {
		return nil, false
	}
	return v.arr.Elems, true
}

// SetArrayElem mutates the backing array in place. It is the caller's
// responsibility to have validated idx against the array's length.
func (v Value) SetArrayElem(idx int, elem Value) {
	v.arr.Elems[idx] = elem
}

// Truthy implements spec.md's truthiness rule: Undefined, Int(0),
// Double(0.0), empty Str, and empty Array are falsy; everything else is
// truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case Undefined:
		return false
	case Int:
		return v.i != 0
	case Double:
		return v.f != 0
	case String:
		return v.s != ""
	case Array:
		return len(v.arr.Elems) != 0
	default:
		return false
	}
}

// String renders v for interpolation and debugging. It is not a type tag
// (see Kind for that); it is the "to_string" coercion spec.md §4.6 uses to
// substitute interpolation placeholders.
func (v Value) String() string {
	switch v.kind {
	case Undefined:
		return "undefined"
	case Int:
		return strconv.FormatInt(int64(v.i), 10)
	case Double:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case String:
		return v.s
	case Array:
		parts := make([]string, len(v.arr.Elems))
		for i, e := range v.arr.Elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("<invalid value kind %d>", v.kind)
	}
}
