package bytecode

import (
	"math/big"
	"strings"

	"github.com/jactl-lang/jactl/internal/types"
)

// numericRank orders the numeric Kinds for promotion: a binary op between
// two different numeric kinds produces a result in the wider of the two,
// mirroring Jactl's usual numeric-tower widening (byte -> int -> long ->
// double -> Decimal).
func numericRank(k types.Kind) int {
	switch k {
	case types.BYTE:
		return 0
	case types.INT:
		return 1
	case types.LONG:
		return 2
	case types.DOUBLE:
		return 3
	case types.DECIMAL:
		return 4
	}
	return -1
}

func wideKind(a, b types.Kind) types.Kind {
	if numericRank(a) >= numericRank(b) {
		return a
	}
	return b
}

// arith executes one of the generic binary arithmetic/bitwise opcodes:
// pop right then left, compute, push the result. `+` additionally
// supports string concatenation when either operand is a string, since
// Jactl overloads the operator rather than giving concatenation its own
// opcode.
func (vm *VM) arith(op OpCode) error {
	right := vm.pop()
	left := vm.pop()

	if op == OpAdd && (left.Kind == types.STRING || right.Kind == types.STRING) {
		vm.push(Str(left.String0() + right.String0()))
		return nil
	}

	switch op {
	case OpBitAnd, OpBitOr, OpBitXor, OpShiftLeft, OpShiftRight, OpShiftRightUnsigned:
		l, ok1 := left.AsInt64()
		r, ok2 := right.AsInt64()
		if !ok1 || !ok2 {
			return vm.runtimeError("integer operation on non-integer operand (%s, %s)", left.TypeName(), right.TypeName())
		}
		var result int64
		switch op {
		case OpBitAnd:
			result = l & r
		case OpBitOr:
			result = l | r
		case OpBitXor:
			result = l ^ r
		case OpShiftLeft:
			result = l << uint(r)
		case OpShiftRight:
			result = l >> uint(r)
		case OpShiftRightUnsigned:
			result = int64(uint64(l) >> uint(r))
		}
		vm.push(resultKind(wideKind(left.Kind, right.Kind), result))
		return nil
	}

	if !isNumericKind(left.Kind) || !isNumericKind(right.Kind) {
		return vm.runtimeError("arithmetic operation on non-numeric operand (%s, %s)", left.TypeName(), right.TypeName())
	}

	kind := wideKind(left.Kind, right.Kind)
	if kind == types.DECIMAL {
		l, _ := left.AsRat()
		r, _ := right.AsRat()
		result := new(big.Rat)
		switch op {
		case OpAdd:
			result.Add(l, r)
		case OpSub:
			result.Sub(l, r)
		case OpMul:
			result.Mul(l, r)
		case OpDiv:
			if r.Sign() == 0 {
				return vm.runtimeError("division by zero")
			}
			result.Quo(l, r)
		case OpMod:
			return vm.runtimeError("'%%' is not supported on Decimal")
		}
		vm.push(Decimal(result))
		return nil
	}
	if kind == types.DOUBLE {
		l, _ := left.AsFloat64()
		r, _ := right.AsFloat64()
		var result float64
		switch op {
		case OpAdd:
			result = l + r
		case OpSub:
			result = l - r
		case OpMul:
			result = l * r
		case OpDiv:
			if r == 0 {
				return vm.runtimeError("division by zero")
			}
			result = l / r
		case OpMod:
			return vm.runtimeError("'%%' is not supported on double")
		}
		vm.push(Double(result))
		return nil
	}

	l, _ := left.AsInt64()
	r, _ := right.AsInt64()
	var result int64
	switch op {
	case OpAdd:
		result = l + r
	case OpSub:
		result = l - r
	case OpMul:
		result = l * r
	case OpDiv:
		if r == 0 {
			return vm.runtimeError("division by zero")
		}
		result = l / r
	case OpMod:
		if r == 0 {
			return vm.runtimeError("modulo by zero")
		}
		result = l % r
	}
	vm.push(resultKind(kind, result))
	return nil
}

func resultKind(kind types.Kind, v int64) Value {
	switch kind {
	case types.BYTE:
		return Byte(byte(v))
	case types.INT:
		return Int(int32(v))
	default:
		return Long(v)
	}
}

func (vm *VM) negate() error {
	v := vm.pop()
	switch v.Kind {
	case types.BYTE:
		vm.push(Int(-int32(v.Data.(byte))))
	case types.INT:
		vm.push(Int(-v.Data.(int32)))
	case types.LONG:
		vm.push(Long(-v.Data.(int64)))
	case types.DOUBLE:
		vm.push(Double(-v.Data.(float64)))
	case types.DECIMAL:
		r, _ := v.AsRat()
		vm.push(Decimal(new(big.Rat).Neg(r)))
	default:
		return vm.runtimeError("negate on non-numeric operand (%s)", v.TypeName())
	}
	return nil
}

func (vm *VM) bitNot() error {
	v := vm.pop()
	i, ok := v.AsInt64()
	if !ok {
		return vm.runtimeError("bitwise not on non-integer operand (%s)", v.TypeName())
	}
	vm.push(resultKind(v.Kind, ^i))
	return nil
}

// compareValues implements `<`/`<=`/`>`/`>=`/`<=>`: numeric comparison
// (via big.Rat so Decimal loses no precision) or, for two strings,
// ordinary lexicographic comparison.
func (vm *VM) compareValues(op OpCode) error {
	right := vm.pop()
	left := vm.pop()

	var cmp int
	switch {
	case isNumericKind(left.Kind) && isNumericKind(right.Kind):
		l, _ := left.AsRat()
		r, _ := right.AsRat()
		cmp = l.Cmp(r)
	case left.Kind == types.STRING && right.Kind == types.STRING:
		cmp = strings.Compare(left.AsString(), right.AsString())
	default:
		return vm.runtimeError("cannot compare %s and %s", left.TypeName(), right.TypeName())
	}

	switch op {
	case OpLess:
		vm.push(Bool(cmp < 0))
	case OpLessEqual:
		vm.push(Bool(cmp <= 0))
	case OpGreater:
		vm.push(Bool(cmp > 0))
	case OpGreaterEqual:
		vm.push(Bool(cmp >= 0))
	case OpCompare:
		vm.push(Int(int32(cmp)))
	}
	return nil
}

// String0 is AsString for a STRING value, or the ordinary rendered form
// (Value.String) for everything else — the rule `+` uses when at least
// one operand is a string.
func (v Value) String0() string {
	if v.Kind == types.STRING {
		return v.AsString()
	}
	return v.String()
}
