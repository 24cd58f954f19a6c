package bytecode

// FunctionObject is the compiled, immutable shape of one function/method/
// closure body: its code plus everything the VM needs to set up a call
// frame for it. The same FunctionObject is shared by every FunctionValue
// created from it; only the captured upvalues differ between instances of
// a closure created from the same literal.
type FunctionObject struct {
	Name        string
	FQName      string // "Pkg.Class.method" for stack traces
	Chunk       *Chunk
	Arity       int
	NumLocals   int // total local slots, including params
	UpvalueDefs []UpvalueDef
	IsAsync     bool
	// Owner is the ClassDescriptor this function's OpCallGlobalFunc/
	// OpLoadThis/OpFieldGet instructions resolve against: the real class
	// for a method, or the synthetic script class for a top-level `def`
	// or the script body itself.
	Owner *ClassDescriptor
	// Params carries each parameter's declared name/default-ness so the
	// VM's named-argument binding wrapper can match a NamedArgs map
	// without re-consulting the AST.
	Params []ParamInfo
}

// ParamInfo is the VM-visible shape of one parameter, used only for
// runtime named-argument binding (OpCall with B=1).
type ParamInfo struct {
	Name      string
	Mandatory bool
}

// UpvalueDef tells a closure, at the point its literal is compiled,
// where each of its captured variables lives: a slot in the immediately
// enclosing frame (IsLocal) or an upvalue already captured by that
// enclosing function (chained capture through nested closures).
type UpvalueDef struct {
	IsLocal bool
	Index   int
}

// Upvalue is a captured mutable variable cell. While the frame that
// declared it is still on the stack the upvalue points at that frame's
// local slot (open); once the frame returns, Close copies the value into
// the cell itself so the closure keeps working after its defining frame
// is gone. This is the heap-cell mechanism the closure model relies on:
// a captured `int x` shared between a class method and a closure it
// returns is exactly this cell, not a copy.
type Upvalue struct {
	location *Value
	closed   Value
	isClosed bool
}

func NewOpenUpvalue(slot *Value) *Upvalue { return &Upvalue{location: slot} }

// NewClosedUpvalue builds an already-closed cell holding v directly, with
// no enclosing frame slot backing it. internal/checkpoint uses this to
// rebuild a resumed closure's captured variables: a restored script has
// no native frame for them to stay "open" against, so every captured
// upvalue comes back closed.
func NewClosedUpvalue(v Value) *Upvalue { return &Upvalue{closed: v, isClosed: true} }

func (u *Upvalue) Get() Value {
	if u.isClosed {
		return u.closed
	}
	return *u.location
}

func (u *Upvalue) Set(v Value) {
	if u.isClosed {
		u.closed = v
		return
	}
	*u.location = v
}

func (u *Upvalue) Close() {
	if !u.isClosed {
		u.closed = *u.location
		u.isClosed = true
		u.location = nil
	}
}

// LineInfo run-length-encodes instruction offset -> source line, the way
// a disassembler or runtime error needs to map a pc back to a line
// without carrying a line number on every single instruction.
type LineInfo struct {
	InstructionOffset int
	Line              int
	Column            int
}

// AutoCreateSpec is the constant-pool payload an OpAutoCreate instruction
// references: what to allocate (map/list/class) when a chained assignment
// like `a.b.c = v` finds a nil intermediate link.
type AutoCreateSpec struct {
	Kind    string // "map", "list", "class"
	ClassFQ string
}

// FieldMetadata captures one class field's name and, for fields with a
// default value, the tiny expression chunk that computes it at
// construction time (run once per new Instance, in declaration order).
type FieldMetadata struct {
	Name    string
	Default *Chunk
}

// Chunk is one compiled function body: its instruction stream, constant
// pool, and the line table for error reporting. Classes are compiled as a
// set of Chunks (one per method plus one synthetic one per field
// default) rather than chunks owning a class table themselves; the
// ClassDescriptor in value.go is what ties method Chunks together.
type Chunk struct {
	Name      string
	Code      []Instruction
	Constants []Value
	// Functions holds the FunctionObjects for every closure/nested
	// function literal compiled inside this chunk; OpLoadFunction's A
	// operand indexes this slice rather than Constants, since a
	// FunctionObject is compiler/VM plumbing, never a script-visible
	// scalar the way everything in Constants is.
	Functions []*FunctionObject
	Lines     []LineInfo
	// TryRanges records exception-handling regions: [Start,End) protected
	// by a handler starting at Handler, matching the try/catch the
	// compiler lowers TryCatch statements into.
	TryRanges []TryRange
}

type TryRange struct {
	Start, End int
	Handler    int
	ExcType    string // "" matches any thrown error
	CatchSlot  int    // local slot the caught error is stored into
}

func NewChunk(name string) *Chunk { return &Chunk{Name: name} }

func (c *Chunk) Emit(instr Instruction, line, col int) int {
	pos := len(c.Code)
	c.Code = append(c.Code, instr)
	if n := len(c.Lines); n == 0 || c.Lines[n-1].Line != line {
		c.Lines = append(c.Lines, LineInfo{InstructionOffset: pos, Line: line, Column: col})
	}
	return pos
}

func (c *Chunk) LineFor(pc int) (line, col int) {
	line, col = 0, 0
	for _, li := range c.Lines {
		if li.InstructionOffset > pc {
			break
		}
		line, col = li.Line, li.Column
	}
	return
}

func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

func (c *Chunk) AddFunction(fn *FunctionObject) int {
	c.Functions = append(c.Functions, fn)
	return len(c.Functions) - 1
}
