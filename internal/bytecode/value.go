package bytecode

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/jactl-lang/jactl/internal/types"
)

// Value is a runtime value in the bytecode VM. It reuses internal/types'
// Kind tag directly: every concrete runtime value is one of the Kinds a
// static Type can name, except ANY, which is never a runtime tag — an
// ANY-typed local just holds whatever concrete Value flows into it.
type Value struct {
	Kind types.Kind
	Data any
}

func Nil() Value             { return Value{Kind: types.NULL_TYPE} }
func Bool(b bool) Value      { return Value{Kind: types.BOOL, Data: b} }
func Byte(b byte) Value      { return Value{Kind: types.BYTE, Data: b} }
func Int(i int32) Value      { return Value{Kind: types.INT, Data: i} }
func Long(i int64) Value     { return Value{Kind: types.LONG, Data: i} }
func Double(f float64) Value { return Value{Kind: types.DOUBLE, Data: f} }
func Str(s string) Value     { return Value{Kind: types.STRING, Data: s} }

// Decimal builds a value from go-dws/Jactl's "exact arbitrary-precision
// rational-of-ten" decimal literal form, parsed once at compile time and
// carried at runtime as a *big.Rat.
func Decimal(r *big.Rat) Value { return Value{Kind: types.DECIMAL, Data: r} }

func ParseDecimal(raw string) (Value, error) {
	r, ok := new(big.Rat).SetString(raw)
	if !ok {
		return Nil(), fmt.Errorf("invalid decimal literal %q", raw)
	}
	return Decimal(r), nil
}

func ListVal(l *List) Value          { return Value{Kind: types.LIST, Data: l} }
func MapVal(m *Map) Value            { return Value{Kind: types.MAP, Data: m} }
func ArrayVal(a *Array) Value        { return Value{Kind: types.ARRAY, Data: a} }
func InstanceVal(o *Instance) Value  { return Value{Kind: types.CLASS, Data: o} }
func FunctionVal(f *FunctionValue) Value { return Value{Kind: types.FUNCTION, Data: f} }

func (v Value) IsNil() bool { return v.Kind == types.NULL_TYPE }

// Truthy implements Jactl's boolean-coercion rule for conditions: null
// and false are falsy, numeric zero is falsy, an empty string/list/map is
// falsy, everything else is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case types.NULL_TYPE:
		return false
	case types.BOOL:
		return v.Data.(bool)
	case types.BYTE:
		return v.Data.(byte) != 0
	case types.INT:
		return v.Data.(int32) != 0
	case types.LONG:
		return v.Data.(int64) != 0
	case types.DOUBLE:
		return v.Data.(float64) != 0
	case types.DECIMAL:
		return v.Data.(*big.Rat).Sign() != 0
	case types.STRING:
		return v.Data.(string) != ""
	case types.LIST:
		return v.Data.(*List).Len() != 0
	case types.MAP:
		return v.Data.(*Map).Len() != 0
	case types.ARRAY:
		return v.Data.(*Array).List.Len() != 0
	default:
		return true
	}
}

func (v Value) AsInt64() (int64, bool) {
	switch v.Kind {
	case types.BYTE:
		return int64(v.Data.(byte)), true
	case types.INT:
		return int64(v.Data.(int32)), true
	case types.LONG:
		return v.Data.(int64), true
	}
	return 0, false
}

func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case types.BYTE:
		return float64(v.Data.(byte)), true
	case types.INT:
		return float64(v.Data.(int32)), true
	case types.LONG:
		return float64(v.Data.(int64)), true
	case types.DOUBLE:
		return v.Data.(float64), true
	case types.DECIMAL:
		f, _ := v.Data.(*big.Rat).Float64()
		return f, true
	}
	return 0, false
}

func (v Value) AsRat() (*big.Rat, bool) {
	switch v.Kind {
	case types.DECIMAL:
		return v.Data.(*big.Rat), true
	case types.BYTE:
		return new(big.Rat).SetInt64(int64(v.Data.(byte))), true
	case types.INT:
		return new(big.Rat).SetInt64(int64(v.Data.(int32))), true
	case types.LONG:
		return new(big.Rat).SetInt64(v.Data.(int64)), true
	case types.DOUBLE:
		if r := new(big.Rat).SetFloat64(v.Data.(float64)); r != nil {
			return r, true
		}
	}
	return nil, false
}

func (v Value) AsString() string {
	if v.Kind == types.STRING {
		return v.Data.(string)
	}
	return ""
}

func (v Value) AsList() *List {
	if v.Kind == types.LIST {
		return v.Data.(*List)
	}
	return nil
}

func (v Value) AsMap() *Map {
	if v.Kind == types.MAP {
		return v.Data.(*Map)
	}
	return nil
}

func (v Value) AsArray() *Array {
	if v.Kind == types.ARRAY {
		return v.Data.(*Array)
	}
	return nil
}

func (v Value) AsInstance() *Instance {
	if v.Kind == types.CLASS {
		return v.Data.(*Instance)
	}
	return nil
}

func (v Value) AsFunction() *FunctionValue {
	if v.Kind == types.FUNCTION {
		return v.Data.(*FunctionValue)
	}
	return nil
}

// TypeName is the name scripts see from TypeOf()/error messages.
func (v Value) TypeName() string {
	if v.Kind == types.CLASS {
		if inst := v.AsInstance(); inst != nil && inst.Class != nil {
			return inst.Class.FQName
		}
	}
	return v.Kind.String()
}

// String renders a value for println/string-interpolation/debugging.
func (v Value) String() string { return v.stringVisited(make(map[any]bool)) }

func (v Value) stringVisited(visited map[any]bool) string {
	switch v.Kind {
	case types.NULL_TYPE:
		return "null"
	case types.BOOL:
		return strconv.FormatBool(v.Data.(bool))
	case types.BYTE:
		return strconv.Itoa(int(v.Data.(byte)))
	case types.INT:
		return strconv.Itoa(int(v.Data.(int32)))
	case types.LONG:
		return strconv.FormatInt(v.Data.(int64), 10) + "L"
	case types.DOUBLE:
		return strconv.FormatFloat(v.Data.(float64), 'g', -1, 64) + "D"
	case types.DECIMAL:
		return v.Data.(*big.Rat).RatString()
	case types.STRING:
		return v.Data.(string)
	case types.LIST:
		return v.Data.(*List).stringVisited(visited)
	case types.ARRAY:
		return v.Data.(*Array).List.stringVisited(visited)
	case types.MAP:
		return v.Data.(*Map).stringVisited(visited)
	case types.CLASS:
		return v.Data.(*Instance).stringVisited(visited)
	case types.FUNCTION:
		return v.Data.(*FunctionValue).String()
	default:
		return "<" + v.Kind.String() + ">"
	}
}

// refKey returns the pointer identity used to detect cycles while
// stringifying/comparing composite values; scalars never recurse so they
// report ok=false.
func (v Value) refKey() (any, bool) {
	switch v.Kind {
	case types.LIST:
		return v.Data.(*List), true
	case types.ARRAY:
		return v.Data.(*Array), true
	case types.MAP:
		return v.Data.(*Map), true
	case types.CLASS:
		return v.Data.(*Instance), true
	}
	return nil, false
}

// IdentEquals implements `===`: pure identity for reference types, value
// equality for scalars.
func (v Value) IdentEquals(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	if key, ok := v.refKey(); ok {
		otherKey, _ := other.refKey()
		return key == otherKey
	}
	return v.Equals(other)
}

// Equals implements `==`: structural equality, recursing into
// lists/maps/instances and guarding against cycles with the
// "<CIRCULAR_REF>" sentinel (a cycle compares equal to itself).
func (v Value) Equals(other Value) bool {
	return v.equalsVisited(other, make(map[[2]any]bool))
}

func (v Value) equalsVisited(other Value, visited map[[2]any]bool) bool {
	if v.Kind == types.NULL_TYPE || other.Kind == types.NULL_TYPE {
		return v.Kind == other.Kind
	}
	if isNumericKind(v.Kind) && isNumericKind(other.Kind) {
		a, _ := v.AsRat()
		b, _ := other.AsRat()
		return a.Cmp(b) == 0
	}
	switch v.Kind {
	case types.BOOL:
		return other.Kind == types.BOOL && v.Data.(bool) == other.Data.(bool)
	case types.STRING:
		return other.Kind == types.STRING && v.Data.(string) == other.Data.(string)
	case types.LIST, types.ARRAY:
		var a, b *List
		if v.Kind == types.LIST {
			a = v.Data.(*List)
		} else {
			a = v.Data.(*Array).List
		}
		if other.Kind == types.LIST {
			b = other.Data.(*List)
		} else if other.Kind == types.ARRAY {
			b = other.Data.(*Array).List
		} else {
			return false
		}
		return a.equalsVisited(b, visited)
	case types.MAP:
		b := other.AsMap()
		if b == nil {
			if inst := other.AsInstance(); inst != nil {
				return v.Data.(*Map).equalsInstance(inst, visited)
			}
			return false
		}
		return v.Data.(*Map).equalsVisited(b, visited)
	case types.CLASS:
		if b := other.AsMap(); b != nil {
			return other.Data.(*Map).equalsInstance(v.Data.(*Instance), visited)
		}
		b := other.AsInstance()
		if b == nil {
			return false
		}
		return v.Data.(*Instance).equalsVisited(b, visited)
	case types.FUNCTION:
		return other.Kind == types.FUNCTION && v.Data.(*FunctionValue) == other.Data.(*FunctionValue)
	}
	return false
}

func isNumericKind(k types.Kind) bool {
	switch k {
	case types.BYTE, types.INT, types.LONG, types.DOUBLE, types.DECIMAL:
		return true
	}
	return false
}

// List is Jactl's dynamically sized list value (backs both `List` and,
// wrapped in Array, the statically element-typed `ARRAY(elem)` type).
type List struct {
	Elements []Value
}

func NewList(elems []Value) *List {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return &List{Elements: cp}
}

func (l *List) Len() int { return len(l.Elements) }

func (l *List) Get(i int) (Value, bool) {
	if i < 0 || i >= len(l.Elements) {
		return Nil(), false
	}
	return l.Elements[i], true
}

func (l *List) Set(i int, v Value) bool {
	if i < 0 || i >= len(l.Elements) {
		return false
	}
	l.Elements[i] = v
	return true
}

func (l *List) Append(v Value) { l.Elements = append(l.Elements, v) }

func (l *List) stringVisited(visited map[any]bool) string {
	if visited[l] {
		return "<CIRCULAR_REF>"
	}
	visited[l] = true
	defer delete(visited, l)
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range l.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.stringVisited(visited))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (l *List) equalsVisited(other *List, visited map[[2]any]bool) bool {
	if l == other {
		return true
	}
	key := [2]any{l, other}
	if visited[key] {
		return true
	}
	if len(l.Elements) != len(other.Elements) {
		return false
	}
	visited[key] = true
	defer delete(visited, key)
	for i := range l.Elements {
		if !l.Elements[i].equalsVisited(other.Elements[i], visited) {
			return false
		}
	}
	return true
}

// Array wraps List with the element Type its static ARRAY(elem)
// declaration carries, so the compiler/runtime can enforce element
// assignability without a second container representation.
type Array struct {
	List *List
	Elem types.Type
}

func NewArray(elems []Value, elem types.Type) *Array {
	return &Array{List: NewList(elems), Elem: elem}
}

// Map is Jactl's insertion-ordered map value; named-argument call syntax
// and `[a: 1, b: 2]` literals both produce one.
type Map struct {
	keys   []string
	values map[string]Value
}

func NewMap() *Map { return &Map{values: make(map[string]Value)} }

func (m *Map) Len() int { return len(m.keys) }

func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *Map) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Map) stringVisited(visited map[any]bool) string {
	if visited[m] {
		return "<CIRCULAR_REF>"
	}
	visited[m] = true
	defer delete(visited, m)
	var sb strings.Builder
	sb.WriteByte('[')
	if len(m.keys) == 0 {
		sb.WriteByte(':')
	}
	for i, k := range m.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(m.values[k].stringVisited(visited))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (m *Map) equalsVisited(other *Map, visited map[[2]any]bool) bool {
	if m == other {
		return true
	}
	key := [2]any{m, other}
	if visited[key] {
		return true
	}
	if len(m.keys) != len(other.keys) {
		return false
	}
	visited[key] = true
	defer delete(visited, key)
	for _, k := range m.keys {
		ov, ok := other.values[k]
		if !ok || !m.values[k].equalsVisited(ov, visited) {
			return false
		}
	}
	return true
}

// equalsInstance implements `==` between a map and an instance: field-set
// equality, recursing into nested values.
func (m *Map) equalsInstance(inst *Instance, visited map[[2]any]bool) bool {
	if inst == nil || len(m.keys) != len(inst.FieldOrder) {
		return false
	}
	for _, k := range m.keys {
		fv, ok := inst.Fields[k]
		if !ok || !m.values[k].equalsVisited(fv, visited) {
			return false
		}
	}
	return true
}

// sortedKeys is a convenience for deterministic JSON/checkpoint output
// when insertion order is not itself the contract (gjson/sjson callers).
func (m *Map) sortedKeys() []string {
	out := m.Keys()
	sort.Strings(out)
	return out
}

// ClassDescriptor is the runtime-visible shape of a compiled class: its
// field order/defaults and method table, consulted by OpNew/OpFieldGet
// and by the checkpoint serializer when rebuilding an instance.
type ClassDescriptor struct {
	FQName     string
	Parent     *ClassDescriptor
	FieldOrder []string
	FieldInit  map[string]*Chunk // compiled default-value expression per field
	Methods    map[string]*FunctionObject
	IsFinal    map[string]bool // method name -> final
}

func (c *ClassDescriptor) LookupMethod(name string) (*FunctionObject, *ClassDescriptor) {
	for cur := c; cur != nil; cur = cur.Parent {
		if fn, ok := cur.Methods[name]; ok {
			return fn, cur
		}
	}
	return nil, nil
}

// Instance is a heap-allocated object: field slots plus a pointer to its
// ClassDescriptor. FieldOrder is copied from the descriptor so the
// checkpoint writer can serialize fields in declaration order without
// consulting the descriptor again.
type Instance struct {
	Class      *ClassDescriptor
	FieldOrder []string
	Fields     map[string]Value
}

func NewInstance(class *ClassDescriptor) *Instance {
	return &Instance{
		Class:      class,
		FieldOrder: append([]string(nil), class.FieldOrder...),
		Fields:     make(map[string]Value, len(class.FieldOrder)),
	}
}

func (o *Instance) stringVisited(visited map[any]bool) string {
	if visited[o] {
		return "<CIRCULAR_REF>"
	}
	visited[o] = true
	defer delete(visited, o)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[", o.Class.FQName)
	for i, name := range o.FieldOrder {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%s", name, o.Fields[name].stringVisited(visited))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (o *Instance) equalsVisited(other *Instance, visited map[[2]any]bool) bool {
	if o == other {
		return true
	}
	key := [2]any{o, other}
	if visited[key] {
		return true
	}
	if o.Class != other.Class || len(o.FieldOrder) != len(other.FieldOrder) {
		return false
	}
	visited[key] = true
	defer delete(visited, key)
	for _, name := range o.FieldOrder {
		ov, ok := other.Fields[name]
		if !ok || !o.Fields[name].equalsVisited(ov, visited) {
			return false
		}
	}
	return true
}

// FunctionValue is a first-class function/closure value: a descriptor
// plus whatever heap cells it closed over and, for a bound method
// reference, the receiver it was extracted from.
type FunctionValue struct {
	Descriptor    *FunctionObject
	Captured      []*Upvalue
	BoundReceiver *Instance
}

func (f *FunctionValue) String() string {
	if f.Descriptor != nil && f.Descriptor.Name != "" {
		return "<function " + f.Descriptor.Name + ">"
	}
	return "<function>"
}
