package builtins

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/jactl-lang/jactl/internal/bytecode"
	"github.com/jactl-lang/jactl/internal/types"
)

// registerJSON wires the `toJson()`/`fromJson()` functions onto
// gjson/sjson rather than a hand-rolled walker: gjson.Parse + ForEach
// walks JSON into Values, and sjson.SetRaw builds the reverse direction
// for Map/List values.
func registerJSON(r *Registry) {
	r.Function().Name("toJson").Param("value").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		s, err := toJSON(args[0])
		if err != nil {
			return bytecode.Nil(), err
		}
		return bytecode.Str(s), nil
	}).Register()

	r.Function().Name("fromJson").Param("text").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		if !gjson.Valid(args[0].AsString()) {
			return bytecode.Nil(), vm.RuntimeErrorf("invalid JSON")
		}
		return fromGJSON(gjson.Parse(args[0].AsString())), nil
	}).Register()
}

func toJSON(v bytecode.Value) (string, error) {
	out := "null"
	var err error
	switch {
	case v.IsNil():
		return "null", nil
	case v.Kind == types.MAP:
		m := v.AsMap()
		out = "{}"
		for _, k := range m.Keys() {
			fv, _ := m.Get(k)
			child, e := toJSON(fv)
			if e != nil {
				return "", e
			}
			out, err = sjson.SetRaw(out, k, child)
			if err != nil {
				return "", err
			}
		}
		return out, nil
	case v.Kind == types.LIST, v.Kind == types.ARRAY:
		out = "[]"
		elems := elementsOf(v)
		for i, e := range elems {
			child, err := toJSON(e)
			if err != nil {
				return "", err
			}
			out, err = sjson.SetRaw(out, itoaPath(i), child)
			if err != nil {
				return "", err
			}
		}
		return out, nil
	case v.Kind == types.STRING:
		b, err := sjson.Set("", "x", v.AsString())
		if err != nil {
			return "", err
		}
		return gjson.Get(b, "x").Raw, nil
	default:
		return v.String0(), nil
	}
}

func fromGJSON(r gjson.Result) bytecode.Value {
	switch r.Type {
	case gjson.Null:
		return bytecode.Nil()
	case gjson.True, gjson.False:
		return bytecode.Bool(r.Bool())
	case gjson.Number:
		f := r.Float()
		if f == float64(int64(f)) {
			return bytecode.Long(int64(f))
		}
		return bytecode.Double(f)
	case gjson.String:
		return bytecode.Str(r.String())
	case gjson.JSON:
		if r.IsArray() {
			var out []bytecode.Value
			r.ForEach(func(_, v gjson.Result) bool {
				out = append(out, fromGJSON(v))
				return true
			})
			return bytecode.ListVal(bytecode.NewList(out))
		}
		m := bytecode.NewMap()
		r.ForEach(func(k, v gjson.Result) bool {
			m.Set(k.String(), fromGJSON(v))
			return true
		})
		return bytecode.MapVal(m)
	}
	return bytecode.Nil()
}

func itoaPath(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
