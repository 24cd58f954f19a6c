package builtins

import (
	"math/big"
	"sort"
	"strings"

	"github.com/jactl-lang/jactl/internal/bytecode"
	"github.com/jactl-lang/jactl/internal/types"
)

// registerCollections installs Jactl's standard methods on List/Map/
// String/Array/Int — the ones analyser/builtins.go's builtinTable already
// tags for async-reachability (map/filter/sort/each/reduce/collect) plus
// the ordinary non-async ones (size, keys, values, join, ...): the
// operations a scripting host's standard library for these kinds
// normally carries, implemented against this VM's List/Map/Value types.
func registerCollections(r *Registry) {
	registerListMethods(r)
	registerMapMethods(r)
	registerStringMethods(r)
	registerIntMethods(r)
}

func elementsOf(v bytecode.Value) []bytecode.Value {
	if v.Kind == types.ARRAY {
		return v.AsArray().List.Elements
	}
	return v.AsList().Elements
}

// compareLess orders two Values the natural way for a no-closure `sort`
// call: numerically if both are numeric, lexicographically if both are
// strings, else by their rendered string form (a permissive fallback a
// script author who sorts a mixed list gets no crash for).
func compareLess(a, b bytecode.Value) bool {
	if ar, ok := a.AsRat(); ok {
		if br, ok := b.AsRat(); ok {
			return ar.Cmp(br) < 0
		}
	}
	return a.String0() < b.String0()
}

func registerListMethods(r *Registry) {
	for _, kind := range []types.Kind{types.LIST, types.ARRAY} {
		r.Method(kind).Name("size").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			return bytecode.Int(int32(len(elementsOf(args[0])))), nil
		}).Register()

		r.Method(kind).Name("map").Param("closure").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			out := make([]bytecode.Value, 0, len(elementsOf(args[0])))
			for _, e := range elementsOf(args[0]) {
				v, err := vm.CallValue(args[1], []bytecode.Value{e})
				if err != nil {
					return bytecode.Nil(), err
				}
				out = append(out, v)
			}
			return bytecode.ListVal(bytecode.NewList(out)), nil
		}).Register()

		r.Method(kind).Name("filter").Param("closure").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			var out []bytecode.Value
			for _, e := range elementsOf(args[0]) {
				v, err := vm.CallValue(args[1], []bytecode.Value{e})
				if err != nil {
					return bytecode.Nil(), err
				}
				if v.Truthy() {
					out = append(out, e)
				}
			}
			return bytecode.ListVal(bytecode.NewList(out)), nil
		}).Register()

		r.Method(kind).Name("each").Param("closure").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			for _, e := range elementsOf(args[0]) {
				if _, err := vm.CallValue(args[1], []bytecode.Value{e}); err != nil {
					return bytecode.Nil(), err
				}
			}
			return args[0], nil
		}).Register()

		r.Method(kind).Name("reduce").Param("init").Param("closure").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			acc := args[1]
			for _, e := range elementsOf(args[0]) {
				v, err := vm.CallValue(args[2], []bytecode.Value{acc, e})
				if err != nil {
					return bytecode.Nil(), err
				}
				acc = v
			}
			return acc, nil
		}).Register()

		r.Method(kind).Name("collect").Param("closure").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			out := make([]bytecode.Value, 0, len(elementsOf(args[0])))
			for _, e := range elementsOf(args[0]) {
				v, err := vm.CallValue(args[1], []bytecode.Value{e})
				if err != nil {
					return bytecode.Nil(), err
				}
				out = append(out, v)
			}
			return bytecode.ListVal(bytecode.NewList(out)), nil
		}).Register()

		r.Method(kind).Name("sort").Param("closure", bytecode.Nil()).Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			elems := append([]bytecode.Value(nil), elementsOf(args[0])...)
			closure := args[1]
			var sortErr error
			sort.SliceStable(elems, func(i, j int) bool {
				if sortErr != nil {
					return false
				}
				if closure.IsNil() {
					return compareLess(elems[i], elems[j])
				}
				v, err := vm.CallValue(closure, []bytecode.Value{elems[i], elems[j]})
				if err != nil {
					sortErr = err
					return false
				}
				n, _ := v.AsInt64()
				return n < 0
			})
			if sortErr != nil {
				return bytecode.Nil(), sortErr
			}
			return bytecode.ListVal(bytecode.NewList(elems)), nil
		}).Register()

		r.Method(kind).Name("join").Param("sep", bytecode.Str("")).Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			sep := args[1].String0()
			var sb []byte
			for i, e := range elementsOf(args[0]) {
				if i > 0 {
					sb = append(sb, sep...)
				}
				sb = append(sb, e.String0()...)
			}
			return bytecode.Str(string(sb)), nil
		}).Register()

		r.Method(kind).Name("sum").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			acc, err := newNumericAccumulator(vm, "sum", elementsOf(args[0]))
			if err != nil {
				return bytecode.Nil(), err
			}
			return acc.value(), nil
		}).Register()

		r.Method(kind).Name("avg").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			elems := elementsOf(args[0])
			if len(elems) == 0 {
				return bytecode.Nil(), vm.RuntimeErrorf("avg: empty list")
			}
			acc, err := newNumericAccumulator(vm, "avg", elems)
			if err != nil {
				return bytecode.Nil(), err
			}
			return acc.divide(int64(len(elems))), nil
		}).Register()
	}
}

// numericAccumulator sums a list's elements the same way the VM's own `+`
// widens two numeric operands (vm_arith.go's wideKind/numericRank): a
// Decimal anywhere in the list makes the whole sum exact big.Rat
// arithmetic exactly like repeated `+` would, a Double with no Decimal
// makes it float64 arithmetic, and an all-integer list stays an exact Long.
// Picking the kind up front (rather than always summing through
// *big.Rat) avoids sum/avg silently producing a more precise answer than
// the equivalent `a + b + c` expression would.
type numericAccumulator struct {
	kind    types.Kind
	intSum  int64
	fltSum  float64
	ratSum  *big.Rat
}

func newNumericAccumulator(vm *bytecode.VM, who string, elems []bytecode.Value) (*numericAccumulator, error) {
	acc := &numericAccumulator{kind: types.LONG, ratSum: new(big.Rat)}
	for _, e := range elems {
		if !isNumericKindForSum(e.Kind) {
			return nil, vm.RuntimeErrorf("%s: non-numeric element %s in list", who, e.String0())
		}
		acc.add(e)
	}
	return acc, nil
}

func isNumericKindForSum(k types.Kind) bool {
	switch k {
	case types.BYTE, types.INT, types.LONG, types.DOUBLE, types.DECIMAL:
		return true
	}
	return false
}

func numericRankForSum(k types.Kind) int {
	switch k {
	case types.BYTE, types.INT, types.LONG:
		return 0
	case types.DOUBLE:
		return 1
	case types.DECIMAL:
		return 2
	}
	return -1
}

func (a *numericAccumulator) add(e bytecode.Value) {
	if numericRankForSum(e.Kind) > numericRankForSum(a.kind) {
		a.widenTo(e.Kind)
	}
	switch a.kind {
	case types.DOUBLE:
		f, _ := e.AsFloat64()
		a.fltSum += f
	case types.DECIMAL:
		r, _ := e.AsRat()
		a.ratSum.Add(a.ratSum, r)
	default:
		n, _ := e.AsInt64()
		a.intSum += n
	}
}

// widenTo promotes the running total to kind, converting whatever has
// accumulated so far (never a narrowing — callers only widen).
func (a *numericAccumulator) widenTo(kind types.Kind) {
	switch kind {
	case types.DOUBLE:
		if a.kind != types.DOUBLE {
			a.fltSum = float64(a.intSum)
		}
	case types.DECIMAL:
		switch a.kind {
		case types.DOUBLE:
			a.ratSum = new(big.Rat)
			r, _ := big.NewFloat(a.fltSum).Rat(nil)
			if r != nil {
				a.ratSum = r
			}
		default:
			a.ratSum = big.NewRat(a.intSum, 1)
		}
	}
	a.kind = kind
}

func (a *numericAccumulator) value() bytecode.Value {
	switch a.kind {
	case types.DOUBLE:
		return bytecode.Double(a.fltSum)
	case types.DECIMAL:
		return bytecode.Decimal(a.ratSum)
	default:
		return bytecode.Long(a.intSum)
	}
}

func (a *numericAccumulator) divide(n int64) bytecode.Value {
	switch a.kind {
	case types.DOUBLE:
		return bytecode.Double(a.fltSum / float64(n))
	case types.DECIMAL:
		return bytecode.Decimal(new(big.Rat).Quo(a.ratSum, big.NewRat(n, 1)))
	default:
		// Jactl's `/` truncates for two integer operands (vm_arith.go's
		// OpDiv), but silently truncating an average would be a much
		// stranger surprise than widening it to Double, so avg always
		// divides as float even when every element summed was exact.
		return bytecode.Double(float64(a.intSum) / float64(n))
	}
}

func registerMapMethods(r *Registry) {
	r.Method(types.MAP).Name("size").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		return bytecode.Int(int32(args[0].AsMap().Len())), nil
	}).Register()

	r.Method(types.MAP).Name("keys").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		keys := args[0].AsMap().Keys()
		out := make([]bytecode.Value, len(keys))
		for i, k := range keys {
			out[i] = bytecode.Str(k)
		}
		return bytecode.ListVal(bytecode.NewList(out)), nil
	}).Register()

	r.Method(types.MAP).Name("values").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		m := args[0].AsMap()
		out := make([]bytecode.Value, 0, m.Len())
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			out = append(out, v)
		}
		return bytecode.ListVal(bytecode.NewList(out)), nil
	}).Register()

	r.Method(types.MAP).Name("each").Param("closure").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		m := args[0].AsMap()
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			if _, err := vm.CallValue(args[1], []bytecode.Value{bytecode.Str(k), v}); err != nil {
				return bytecode.Nil(), err
			}
		}
		return args[0], nil
	}).Register()

	r.Method(types.MAP).Name("remove").Param("key").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		args[0].AsMap().Delete(args[1].String0())
		return args[0], nil
	}).Register()
}

func registerStringMethods(r *Registry) {
	r.Method(types.STRING).Name("size").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		return bytecode.Int(int32(len(args[0].AsString()))), nil
	}).Register()

	r.Method(types.STRING).Name("toUpperCase").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		return bytecode.Str(strings.ToUpper(args[0].AsString())), nil
	}).Register()

	r.Method(types.STRING).Name("toLowerCase").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		return bytecode.Str(strings.ToLower(args[0].AsString())), nil
	}).Register()

	r.Method(types.STRING).Name("trim").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		return bytecode.Str(strings.TrimSpace(args[0].AsString())), nil
	}).Register()

	r.Method(types.STRING).Name("split").Param("sep", bytecode.Str(",")).Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		parts := strings.Split(args[0].AsString(), args[1].String0())
		out := make([]bytecode.Value, len(parts))
		for i, p := range parts {
			out[i] = bytecode.Str(p)
		}
		return bytecode.ListVal(bytecode.NewList(out)), nil
	}).Register()
}

func registerIntMethods(r *Registry) {
	for _, kind := range []types.Kind{types.INT, types.LONG, types.BYTE} {
		r.Method(kind).Name("map").Param("closure").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			n, _ := args[0].AsInt64()
			out := make([]bytecode.Value, 0, n)
			for i := int64(0); i < n; i++ {
				v, err := vm.CallValue(args[1], []bytecode.Value{bytecode.Long(i)})
				if err != nil {
					return bytecode.Nil(), err
				}
				out = append(out, v)
			}
			return bytecode.ListVal(bytecode.NewList(out)), nil
		}).Register()

		r.Method(kind).Name("each").Param("closure").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
			n, _ := args[0].AsInt64()
			for i := int64(0); i < n; i++ {
				if _, err := vm.CallValue(args[1], []bytecode.Value{bytecode.Long(i)}); err != nil {
					return bytecode.Nil(), err
				}
			}
			return args[0], nil
		}).Register()
	}
}
