package value

import "math"

// This file implements the opcode-level arithmetic, bitwise, and
// comparison coercions described in spec.md §4.2: binary arithmetic and
// comparison opcodes silently no-op (the caller pops operands without
// pushing a result) when operands are not both numeric; mixed Int/Double
// promotes to Double; bitwise operators require both operands to be Int.
//
// Every function here returns (Value, ok); ok == false tells the VM's
// opcode dispatch to treat the operation as a no-op per spec.md §7's
// "type mismatches in opcodes: silently no-op" contract.

func numericPair(a, b Value) (af, bf float64, isDouble, ok bool) {
	if a.kind != Int && a.kind != Double {
		return 0, 0, false, false
	}
	if b.kind != Int && b.kind != Double {
		return 0, 0, false, false
	}
	isDouble = a.kind == Double || b.kind == Double
	if a.kind == Int {
		af = float64(a.i)
	} else {
		af = a.f
	}
	if b.kind == Int {
		bf = float64(b.i)
	} else {
		bf = b.f
	}
	return af, bf, isDouble, true
}

func numericResult(f float64, isDouble bool) Value {
	if isDouble {
		return NewDouble(f)
	}
	return NewInt(int32(f))
}

// Add implements the `add` opcode.
func Add(a, b Value) (Value, bool) {
	af, bf, isDouble, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	return numericResult(af+bf, isDouble), true
}

// Sub implements the `sub` opcode. Operand order matters: a is popped
// second (the left operand), b first (the right operand), per spec.md's
// "pop right-then-left" note for non-commutative ops.
func Sub(a, b Value) (Value, bool) {
	af, bf, isDouble, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	return numericResult(af-bf, isDouble), true
}

// Mul implements the `mul` opcode.
func Mul(a, b Value) (Value, bool) {
	af, bf, isDouble, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	return numericResult(af*bf, isDouble), true
}

// Div implements the `div` opcode. Division by zero is treated as a type
// mismatch (no-op) when both operands are Int, matching the VM's
// no-crash contract (spec.md §7); float division by zero follows IEEE-754
// (±Inf/NaN), matching Double's normal arithmetic.
func Div(a, b Value) (Value, bool) {
	af, bf, isDouble, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	if !isDouble && bf == 0 {
		return Undef, false
	}
	return numericResult(af/bf, isDouble), true
}

// Mod implements the `mod` opcode, following Div's divide-by-zero rule.
func Mod(a, b Value) (Value, bool) {
	af, bf, isDouble, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	if !isDouble && bf == 0 {
		return Undef, false
	}
	if !isDouble {
		ai, bi := int32(af), int32(bf)
		return NewInt(ai % bi), true
	}
	return NewDouble(math.Mod(af, bf)), true
}

// Power implements the `power` opcode.
func Power(a, b Value) (Value, bool) {
	af, bf, isDouble, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	return numericResult(math.Pow(af, bf), isDouble), true
}

// Neg implements the unary `neg` opcode.
func Neg(a Value) (Value, bool) {
	switch a.kind {
	case Int:
		return NewInt(-a.i), true
	case Double:
		return NewDouble(-a.f), true
	default:
		return Undef, false
	}
}

// Invert implements the `invert` opcode: boolean inversion expressed as
// Int(1) for falsy input, Int(0) for truthy input. It never no-ops.
func Invert(a Value) Value {
	if a.Truthy() {
		return NewInt(0)
	}
	return NewInt(1)
}

func intPair(a, b Value) (int32, int32, bool) {
	ai, ok := a.Int()
	if !ok {
		return 0, 0, false
	}
	bi, ok := b.Int()
	if !ok {
		return 0, 0, false
	}
	return ai, bi, true
}

// BitShiftLeft implements `bit_ls`. Bitwise operators reject Double
// operands (spec.md §4.2: "floats are rejected (no-op on type mismatch)").
func BitShiftLeft(a, b Value) (Value, bool) {
	ai, bi, ok := intPair(a, b)
	if !ok {
		return Undef, false
	}
	return NewInt(ai << uint32(bi&31)), true
}

// BitShiftRight implements `bit_rs`.
func BitShiftRight(a, b Value) (Value, bool) {
	ai, bi, ok := intPair(a, b)
	if !ok {
		return Undef, false
	}
	return NewInt(ai >> uint32(bi&31)), true
}

// BitAnd implements `bit_and`.
func BitAnd(a, b Value) (Value, bool) {
	ai, bi, ok := intPair(a, b)
	if !ok {
		return Undef, false
	}
	return NewInt(ai & bi), true
}

// BitOr implements `bit_or`.
func BitOr(a, b Value) (Value, bool) {
	ai, bi, ok := intPair(a, b)
	if !ok {
		return Undef, false
	}
	return NewInt(ai | bi), true
}

// BitXor implements `bit_xor`.
func BitXor(a, b Value) (Value, bool) {
	ai, bi, ok := intPair(a, b)
	if !ok {
		return Undef, false
	}
	return NewInt(ai ^ bi), true
}

// BitNot implements the unary `bit_neg` opcode.
func BitNot(a Value) (Value, bool) {
	ai, ok := a.Int()
	if !ok {
		return Undef, false
	}
	return NewInt(^ai), true
}

func boolInt(b bool) Value {
	if b {
		return NewInt(1)
	}
	return NewInt(0)
}

// CmpEq implements `cmp_eq`.
func CmpEq(a, b Value) (Value, bool) {
	af, bf, _, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	return boolInt(af == bf), true
}

// CmpNeq implements `cmp_neq`.
func CmpNeq(a, b Value) (Value, bool) {
	af, bf, _, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	return boolInt(af != bf), true
}

// CmpGt implements `cmp_gt`.
func CmpGt(a, b Value) (Value, bool) {
	af, bf, _, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	return boolInt(af > bf), true
}

// CmpLt implements `cmp_lt`.
func CmpLt(a, b Value) (Value, bool) {
	af, bf, _, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	return boolInt(af < bf), true
}

// CmpGte implements `cmp_gte`.
func CmpGte(a, b Value) (Value, bool) {
	af, bf, _, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	return boolInt(af >= bf), true
}

// CmpLte implements `cmp_lte`.
func CmpLte(a, b Value) (Value, bool) {
	af, bf, _, ok := numericPair(a, b)
	if !ok {
		return Undef, false
	}
	return boolInt(af <= bf), true
}
