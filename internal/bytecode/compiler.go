// Compiler lowers a resolved, analysed ast.Program into Chunks of
// Instructions. It trusts the resolver completely for name binding (every
// ast.Identifier already carries a Binding/Slot) and the analyser
// completely for IsAsync, so the compiler itself never re-derives either;
// its only job is choosing opcodes and emitting jump targets.
package bytecode

import (
	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/errors"
	"github.com/jactl-lang/jactl/internal/token"
	"github.com/jactl-lang/jactl/internal/types"
)

// compileScope is a lexical block's name table, mirroring the resolver's
// own scope nesting so the compiler can answer "is this captured name a
// local of my immediately enclosing function, or already one of its own
// upvalues?" without re-deriving binding decisions the resolver already
// made.
type compileScope struct {
	parent *compileScope
	names  map[string]int // name -> slot
}

func newCompileScope(parent *compileScope) *compileScope {
	return &compileScope{parent: parent, names: make(map[string]int)}
}

func (s *compileScope) define(name string, slot int) { s.names[name] = slot }

func (s *compileScope) lookup(name string) (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if slot, ok := cur.names[name]; ok {
			return slot, true
		}
	}
	return 0, false
}

// compileFrame tracks the function/closure currently being compiled: its
// Chunk, its block-scope stack, and the upvalues it has resolved so far
// (built lazily as captured names are actually referenced).
type compileFrame struct {
	parent      *compileFrame
	chunk       *Chunk
	scope       *compileScope
	classFQ     string
	isAsync     bool
	upvalueDefs []UpvalueDef
	upvalueByID map[string]int // captured name -> index into upvalueDefs
	loopStack   []*loopLabels
	nextAnon    int // resumption-slot counter for async preludes
	baseSlots   int // resolver-assigned slot count this frame starts from
	numTemps    int // scratch slots handed out past baseSlots by reserveTempSlot
	// hasThis reports whether OpLoadThis is meaningful for code compiled in
	// this frame: true for instance-method bodies, field-default
	// initializers, and closures lexically nested inside either; false for
	// the script's own top-level body and top-level `def` functions, which
	// have no receiver and dispatch via OpCallGlobalFunc instead of
	// OpCallMethod.
	hasThis bool
}

// numLocals is the total local-slot count the VM must size this frame's
// locals array to: every resolver-assigned slot plus every compiler-only
// scratch slot (switch subjects, combinator loop temporaries) handed out while
// compiling its body.
func (f *compileFrame) numLocals() int { return f.baseSlots + f.numTemps }

// loopLabels records the pending OpJump instructions a break/continue
// inside the loop body emitted, so the compiler can patch them once the
// loop's increment point (continue target) and exit point (break target)
// are known.
type loopLabels struct {
	label         string
	breakJumps    []int
	continueJumps []int
}

// Compiler compiles one Program's classes and script body into
// ClassDescriptors plus a FunctionObject for the outermost script frame.
type Compiler struct {
	classes map[string]*ClassDescriptor
	frame   *compileFrame
	source  string
	file    string
	errs    []*errors.CompileError
}

// Compiled is everything the VM needs to run a script: the script's own
// entry function, plus every class it (transitively) depends on.
type Compiled struct {
	Script  *FunctionObject
	Classes map[string]*ClassDescriptor
}

// Compile lowers an already-resolved-and-analysed program. source/file are
// carried only for RuntimeError formatting.
func Compile(prog *ast.Program, source, file string) (*Compiled, []*errors.CompileError) {
	c := &Compiler{classes: make(map[string]*ClassDescriptor), source: source, file: file}

	for _, cd := range prog.Classes {
		c.declareClass(cd)
	}
	for _, cd := range prog.Classes {
		c.wireParent(cd)
	}
	for _, cd := range prog.Classes {
		c.compileClassBody(cd)
	}

	var script *FunctionObject
	if prog.ScriptMain != nil {
		script = c.compileScriptMain(prog.ScriptMain)
	}

	if len(c.errs) != 0 {
		return nil, c.errs
	}
	return &Compiled{Script: script, Classes: c.classes}, nil
}

func (c *Compiler) errAt(node ast.Node, msg string) {
	var pos token.Position
	if node != nil {
		pos = node.Pos()
	}
	c.errs = append(c.errs, errors.NewCompileError(pos, msg, c.source, c.file))
}

func (c *Compiler) pushFrame(chunk *Chunk, classFQ string, isAsync bool, baseSlots int, hasThis bool) {
	c.frame = &compileFrame{
		parent:      c.frame,
		chunk:       chunk,
		scope:       newCompileScope(nil),
		classFQ:     classFQ,
		isAsync:     isAsync,
		upvalueByID: make(map[string]int),
		baseSlots:   baseSlots,
		hasThis:     hasThis,
	}
}

func (c *Compiler) popFrame() *compileFrame {
	f := c.frame
	c.frame = f.parent
	return f
}

func (c *Compiler) pushScope() { c.frame.scope = newCompileScope(c.frame.scope) }
func (c *Compiler) popScope()  { c.frame.scope = c.frame.scope.parent }

func (c *Compiler) emit(op OpCode, pos ast.Node) int {
	return c.emitAB(op, 0, 0, pos)
}

func (c *Compiler) emitAB(op OpCode, a, b int32, pos ast.Node) int {
	line, col := 0, 0
	if pos != nil {
		p := pos.Pos()
		line, col = p.Line, p.Column
	}
	return c.frame.chunk.Emit(Instruction{Op: op, A: a, B: b}, line, col)
}

func (c *Compiler) patchJump(at int, target int) {
	instr := c.frame.chunk.Code[at]
	instr.A = int32(target)
	c.frame.chunk.Code[at] = instr
}

func (c *Compiler) here() int { return len(c.frame.chunk.Code) }

func (c *Compiler) constant(v Value) int32 { return int32(c.frame.chunk.AddConstant(v)) }

func (c *Compiler) constantName(name string) int32 { return c.constant(Str(name)) }

func (c *Compiler) constantType(t types.Type) int32 { return c.constant(typeValue(t)) }

// typeValue wraps a static Type so it can travel through the constant
// pool (Cast/ConvertTo/InstanceOf/DefaultValue/NewArray all reference a
// Type operand this way); it is never observed as a script-visible Value.
func typeValue(t types.Type) Value { return Value{Kind: types.ANY, Data: t} }

func typeFromValue(v Value) types.Type {
	if t, ok := v.Data.(types.Type); ok {
		return t
	}
	return types.AnyT
}
