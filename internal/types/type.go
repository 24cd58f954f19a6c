// Package types implements Jactl's tagged-union type system.
package types

import "fmt"

// Kind is the tag of the Type sum.
type Kind int

const (
	BOOL Kind = iota
	BYTE
	INT
	LONG
	DOUBLE
	DECIMAL
	STRING
	MAP
	LIST
	ARRAY
	CLASS
	FUNCTION
	ANY // "def" — implicitly compatible with every concrete type
	NULL_TYPE
)

func (k Kind) String() string {
	switch k {
	case BOOL:
		return "boolean"
	case BYTE:
		return "byte"
	case INT:
		return "int"
	case LONG:
		return "long"
	case DOUBLE:
		return "double"
	case DECIMAL:
		return "Decimal"
	case STRING:
		return "String"
	case MAP:
		return "Map"
	case LIST:
		return "List"
	case ARRAY:
		return "Array"
	case CLASS:
		return "Class"
	case FUNCTION:
		return "Function"
	case ANY:
		return "def"
	case NULL_TYPE:
		return "null"
	}
	return "?"
}

// Type is a closed sum: a tag plus the extra payload the ARRAY and CLASS
// variants need.
type Type struct {
	Kind    Kind
	Elem    *Type  // ARRAY element type
	FQName  string // CLASS fully-qualified name
	Nilable bool   // whether this slot may additionally hold null
}

func Simple(k Kind) Type { return Type{Kind: k} }

func Array(elem Type) Type { return Type{Kind: ARRAY, Elem: &elem} }

func Class(fqName string) Type { return Type{Kind: CLASS, FQName: fqName} }

func (t Type) String() string {
	switch t.Kind {
	case ARRAY:
		return fmt.Sprintf("%s[]", t.Elem.String())
	case CLASS:
		return t.FQName
	default:
		return t.Kind.String()
	}
}

// IsPrimitive reports whether t is stored unboxed in a typed local.
func (t Type) IsPrimitive() bool {
	switch t.Kind {
	case BOOL, BYTE, INT, LONG, DOUBLE:
		return true
	}
	return false
}

// IsNumeric reports whether arithmetic operators apply directly to t.
func (t Type) IsNumeric() bool {
	switch t.Kind {
	case BYTE, INT, LONG, DOUBLE, DECIMAL:
		return true
	}
	return false
}

// Equal reports structural equality of two type descriptors.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case ARRAY:
		return t.Elem.Equal(*other.Elem)
	case CLASS:
		return t.FQName == other.FQName
	default:
		return true
	}
}

// AssignableFrom reports whether a value of type `from` may be stored into
// a slot declared with type t. ANY accepts everything; every other
// narrowing needs an explicit cast or a runtime check.
func (t Type) AssignableFrom(from Type) bool {
	if t.Kind == ANY || from.Kind == ANY {
		return true
	}
	if from.Kind == NULL_TYPE {
		return t.Nilable || t.Kind == MAP || t.Kind == LIST || t.Kind == CLASS || t.Kind == ARRAY || t.Kind == FUNCTION
	}
	if t.Kind == DOUBLE && (from.Kind == INT || from.Kind == LONG || from.Kind == BYTE) {
		return true
	}
	if t.Kind == LONG && (from.Kind == INT || from.Kind == BYTE) {
		return true
	}
	if t.Kind == DECIMAL && (from.Kind == INT || from.Kind == LONG || from.Kind == BYTE) {
		return true
	}
	return t.Equal(from)
}

var (
	Bool    = Simple(BOOL)
	ByteT   = Simple(BYTE)
	IntT    = Simple(INT)
	LongT   = Simple(LONG)
	DoubleT = Simple(DOUBLE)
	DecT    = Simple(DECIMAL)
	StrT    = Simple(STRING)
	MapT    = Simple(MAP)
	ListT   = Simple(LIST)
	AnyT    = Simple(ANY)
	NullT   = Simple(NULL_TYPE)
	FuncT   = Simple(FUNCTION)
)
