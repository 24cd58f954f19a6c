package ast

import (
	"fmt"
	"strings"

	"github.com/jactl-lang/jactl/internal/token"
)

// Literal is any scalar constant: int, long, double, decimal, string,
// bool, or null.
type Literal struct {
	ExprBase
	Value any
}

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case string:
		return "'" + v + "'"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Identifier references a name resolved by the resolver to a local,
// parameter, captured slot, field, class-const, or global.
type Identifier struct {
	ExprBase
	Name string
	// Binding is filled in by the resolver: "local", "param", "capture",
	// "field", "const", "global", "method", "class", "builtin", "this",
	// or "" before resolution.
	Binding string
	Slot    int
}

func (i *Identifier) String() string { return i.Name }

// Binary is any two-operand operator expression, including `=~`/`!~`.
type Binary struct {
	ExprBase
	Left  Expr
	Op    token.Type
	Right Expr
}

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}

// PrefixUnary is !x, -x, ++x, --x, ~x.
type PrefixUnary struct {
	ExprBase
	Op      token.Type
	Operand Expr
}

func (p *PrefixUnary) String() string { return p.Op.String() + p.Operand.String() }

// PostfixUnary is x++, x--.
type PostfixUnary struct {
	ExprBase
	Op      token.Type
	Operand Expr
}

func (p *PostfixUnary) String() string { return p.Operand.String() + p.Op.String() }

// Ternary is cond ? then : else, and also backs the `?:` elvis form via
// the Elvis flag, keeping a single node and a boolean discriminator
// instead of duplicating compiler logic across two node types.
type Ternary struct {
	ExprBase
	Cond  Expr
	Then  Expr
	Else  Expr
	Elvis bool
}

func (t *Ternary) String() string {
	if t.Elvis {
		return t.Cond.String() + " ?: " + t.Else.String()
	}
	return t.Cond.String() + " ? " + t.Then.String() + " : " + t.Else.String()
}

// Call is a free-function or closure-variable invocation.
type Call struct {
	ExprBase
	Callee    Expr
	Args      []Expr
	NamedArgs *MapLiteral // non-nil when the call used named-argument syntax
	// BindingPlan is filled by the resolver: source-arg-index -> param
	// slot, when the callee is statically known.
	BindingPlan []int
}

func (c *Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return c.Callee.String() + "(" + strings.Join(parts, ", ") + ")"
}

// MethodCall is receiver.method(args); a nil Receiver after resolution
// means an implicit `this`.
type MethodCall struct {
	ExprBase
	Receiver   Expr
	Method     string
	Args       []Expr
	NamedArgs  *MapLiteral
	NullSafe   bool // receiver?.method(...)
	IsSuper    bool
}

func (m *MethodCall) String() string {
	parts := make([]string, len(m.Args))
	for i, a := range m.Args {
		parts[i] = a.String()
	}
	dot := "."
	if m.NullSafe {
		dot = "?."
	}
	recv := ""
	if m.Receiver != nil {
		recv = m.Receiver.String()
	}
	return recv + dot + m.Method + "(" + strings.Join(parts, ", ") + ")"
}

// ListLiteral is [1, 2, 3].
type ListLiteral struct {
	ExprBase
	Elements []Expr
}

func (l *ListLiteral) String() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MapEntry is one key: value pair of a MapLiteral.
type MapEntry struct {
	Key   Expr
	Value Expr
}

// MapLiteral is [a: 1, b: 2] and also backs named-argument call syntax
// when IsNamedArgs is true.
type MapLiteral struct {
	ExprBase
	Entries     []MapEntry
	IsNamedArgs bool
}

func (m *MapLiteral) String() string {
	parts := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		parts[i] = e.Key.String() + ": " + e.Value.String()
	}
	if len(parts) == 0 {
		return "[:]"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ExprStringPart is either a literal string chunk or an embedded Expr.
type ExprStringPart struct {
	Literal string
	Expr    Expr
}

// ExprString is an interpolated string made of literal and embedded-expr
// parts. Compiles to a sequence of toString+concat ops.
type ExprString struct {
	ExprBase
	Parts []ExprStringPart
}

func (e *ExprString) String() string {
	var sb strings.Builder
	sb.WriteString(`"`)
	for _, p := range e.Parts {
		if p.Expr != nil {
			sb.WriteString("${" + p.Expr.String() + "}")
		} else {
			sb.WriteString(p.Literal)
		}
	}
	sb.WriteString(`"`)
	return sb.String()
}

// RegexMatch is `subject =~ /pattern/flags` (or !~ for negation, carried
// via Negate).
type RegexMatch struct {
	ExprBase
	Subject Expr
	Pattern *ExprString
	Flags   string
	Negate  bool
}

func (r *RegexMatch) String() string {
	op := "=~"
	if r.Negate {
		op = "!~"
	}
	return r.Subject.String() + " " + op + " /" + r.Pattern.String() + "/" + r.Flags
}

// RegexSubst is `subject =~ s/pattern/replacement/flags`.
type RegexSubst struct {
	ExprBase
	Subject     Expr
	Pattern     *ExprString
	Replacement *ExprString
	Flags       string
	Global      bool
}

func (r *RegexSubst) String() string {
	return r.Subject.String() + " =~ s/" + r.Pattern.String() + "/" + r.Replacement.String() + "/" + r.Flags
}

// Param is one formal parameter of a function/closure.
type Param struct {
	Name      string
	TypeExpr  TypeExpression
	Default   Expr
	Mandatory bool
}

// VarDecl declares a single new binding with an optional initializer.
type VarDecl struct {
	ExprBase
	Name       string
	TypeExpr   TypeExpression
	Init       Expr
	IsConst    bool
	IsFinal    bool
	Slot       int
	IsCaptured bool // promoted to a heap cell because an inner fn closes over it
}

func (v *VarDecl) String() string {
	s := "var " + v.Name
	if v.Init != nil {
		s += " = " + v.Init.String()
	}
	return s
}

// VarAssign is `name = value`; VarOpAssign is `name += value` etc.
type VarAssign struct {
	ExprBase
	Target *Identifier
	Value  Expr
}

func (v *VarAssign) String() string { return v.Target.String() + " = " + v.Value.String() }

type VarOpAssign struct {
	ExprBase
	Target *Identifier
	Op     token.Type
	Value  Expr
}

func (v *VarOpAssign) String() string {
	return v.Target.String() + " " + v.Op.String() + " " + v.Value.String()
}

// FieldAssign is `obj.field = value`; auto-create chains
// are recorded in AutoCreate once the resolver walks the chain.
type FieldAssign struct {
	ExprBase
	Target     Expr // the field-access chain being assigned to
	Value      Expr
	AutoCreate []*AutoCreateStep
}

func (f *FieldAssign) String() string { return f.Target.String() + " = " + f.Value.String() }

type FieldOpAssign struct {
	ExprBase
	Target Expr
	Op     token.Type
	Value  Expr
}

func (f *FieldOpAssign) String() string {
	return f.Target.String() + " " + f.Op.String() + " " + f.Value.String()
}

// AutoCreateStep records one implicit allocation along an assignment path
// like `a.b.c.d = v`.
type AutoCreateStep struct {
	FieldName string
	NewType   AutoCreateType
	IsAsync   bool
}

// AutoCreateType names what the resolver decided to allocate for one
// AutoCreateStep: a plain Kind ("map", "list") or, for a typed
// intermediate field, the class's fully-qualified name.
type AutoCreateType struct {
	Kind string // "map", "list", "class"
	FQ   string
}

// FieldAccess is obj.field / obj?.field (read position).
type FieldAccess struct {
	ExprBase
	Receiver Expr
	Field    string
	NullSafe bool
}

func (f *FieldAccess) String() string {
	dot := "."
	if f.NullSafe {
		dot = "?."
	}
	return f.Receiver.String() + dot + f.Field
}

// ArrayGet is arr[index] / arr?[index].
type ArrayGet struct {
	ExprBase
	Receiver Expr
	Index    Expr
	NullSafe bool
}

func (a *ArrayGet) String() string {
	br := "["
	if a.NullSafe {
		br = "?["
	}
	return a.Receiver.String() + br + a.Index.String() + "]"
}

// ArrayLength is arr.size()/arr.length sugar resolved to a dedicated node
// so the compiler can emit OpLength directly instead of a dispatch.
type ArrayLength struct {
	ExprBase
	Receiver Expr
}

func (a *ArrayLength) String() string { return a.Receiver.String() + ".size()" }

// FunDecl is a named function/method declaration.
type FunDecl struct {
	ExprBase
	Name           string
	Params         []*Param
	ReturnType     TypeExpression
	Body           Stmt
	IsStatic       bool
	IsFinal        bool
	DeclaringClass string
	// IsAsync is computed by the analyser; never set by
	// the parser.
	IsAsync        bool
	WrapperIsAsync bool
	CapturedVars   []string
	// NumSlots is the total local-variable slot count the resolver
	// allocated for this function's frame (parameters included); the
	// compiler sizes a call frame's locals array from it.
	NumSlots int
}

func (f *FunDecl) String() string { return "def " + f.Name + "(...)" }

// Closure is an anonymous function value: `{ it * 2 }` or `{ x, y -> x+y }`.
// A single implicit parameter defaults to the name `it`.
type Closure struct {
	ExprBase
	Params       []*Param
	Body         Stmt
	CapturedVars []string
	IsAsync      bool
	NumSlots     int
}

func (c *Closure) String() string { return "{ ... }" }

// Return/Break/Continue can also appear as expressions
// (e.g. inside a ternary); ExprStmtWrap lifts a Stmt into Expr position
// for that purpose. It never produces a runtime value itself (it always
// transfers control), so ResultUsed is meaningless for it.
type ExprStmtWrap struct {
	ExprBase
	Inner Stmt
}

func (e *ExprStmtWrap) String() string { return e.Inner.String() }

// Cast is `(Type) expr`; ConvertTo is the `expr as Type` form, which
// hands the value back unchanged when no coercion applies instead of
// raising.
type Cast struct {
	ExprBase
	Target   TypeExpression
	Operand  Expr
}

func (c *Cast) String() string { return "(" + c.Target.String() + ")" + c.Operand.String() }

type ConvertTo struct {
	ExprBase
	Target  TypeExpression
	Operand Expr
}

func (c *ConvertTo) String() string { return c.Operand.String() + " as " + c.Target.String() }

// InstanceOf is `expr instanceof Type`.
type InstanceOf struct {
	ExprBase
	Operand Expr
	Target  TypeExpression
}

func (i *InstanceOf) String() string { return i.Operand.String() + " instanceof " + i.Target.String() }

// InvokeNew is `new Class(args)` / `new Class{named: args}`.
type InvokeNew struct {
	ExprBase
	ClassName string
	Args      []Expr
	NamedArgs *MapLiteral
}

func (i *InvokeNew) String() string { return "new " + i.ClassName + "(...)" }

// InvokeInit is the synthetic call from a subclass constructor chain to
// its superclass's canonical positional initializer.
type InvokeInit struct {
	ExprBase
	ClassName string
	Args      []Expr
}

func (i *InvokeInit) String() string { return "init(" + i.ClassName + ")" }

// InvokeFunDecl represents calling a FunDecl value directly once the
// resolver has bound a Call's callee to a known declaration (an
// optimization target for the compiler, distinct from a dynamic Call).
type InvokeFunDecl struct {
	ExprBase
	Decl *FunDecl
	Args []Expr
}

func (i *InvokeFunDecl) String() string { return i.Decl.Name + "(...)" }

// ClassPath resolves a dotted class reference, e.g. `Outer.Inner`.
type ClassPath struct {
	ExprBase
	Segments []string
}

func (c *ClassPath) String() string { return strings.Join(c.Segments, ".") }

// DefaultValue yields the zero value for a statically known type — used
// by the compiler when materializing defaulted fields/params.
type DefaultValue struct {
	ExprBase
	For TypeExpression
}

func (d *DefaultValue) String() string { return "<default:" + d.For.String() + ">" }

// LoadParamValue is a compiler-internal node referencing a parameter by
// slot, used inside the synthesized named-argument binding wrapper.
type LoadParamValue struct {
	ExprBase
	Slot int
}

func (l *LoadParamValue) String() string { return "<param>" }

// Noop is an expression that does nothing and yields null. The parser
// and resolver never construct one; a `_checkpoint` call compiles to an
// ordinary builtin call whatever the Context's checkpoint setting.
type Noop struct {
	ExprBase
}

func (n *Noop) String() string { return "<noop>" }

// Eval is `eval(source, globals)`. It compiles to OpEval, which raises
// the runtime error "eval is not supported in this build" rather than
// compiling and running Source.
type Eval struct {
	ExprBase
	Source Expr
	Globals Expr
}

func (e *Eval) String() string { return "eval(" + e.Source.String() + ")" }

// Print/Println are the two built-in output statements reified as
// expressions so they can appear inside larger expressions.
type Print struct {
	ExprBase
	Arg   Expr
	NewLn bool
}

func (p *Print) String() string {
	if p.NewLn {
		return "println(" + p.Arg.String() + ")"
	}
	return "print(" + p.Arg.String() + ")"
}

// Die raises a RuntimeError with a formatted message.
type Die struct {
	ExprBase
	Message Expr
}

func (d *Die) String() string { return "die(" + d.Message.String() + ")" }
