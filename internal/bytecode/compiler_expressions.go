package bytecode

import (
	"math/big"

	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/token"
	"github.com/jactl-lang/jactl/internal/types"
)

// Every compileExpr case leaves exactly one value on the operand stack.
// Store opcodes (OpStoreLocal/OpStoreGlobal/OpStoreUpvalue/OpFieldSet/
// OpIndexSet) pop their operand(s), perform the store, and push the
// stored value straight back, so an assignment compiles identically
// whether it's used as a statement (the caller pops it, see
// compileExprStatement/compileVarDecls) or nested inside a larger
// expression.
func (c *Compiler) compileExpr(e ast.Expr) {
	if e == nil {
		c.emit(OpLoadNil, nil)
		return
	}
	switch ex := e.(type) {
	case *ast.Literal:
		c.compileLiteral(ex)
	case *ast.Identifier:
		c.loadIdentifier(ex, ex)
	case *ast.Binary:
		c.compileBinary(ex)
	case *ast.PrefixUnary:
		c.compilePrefixUnary(ex)
	case *ast.PostfixUnary:
		c.compilePostfixUnary(ex)
	case *ast.Ternary:
		c.compileTernary(ex)
	case *ast.Call:
		c.compileCall(ex)
	case *ast.MethodCall:
		c.compileMethodCall(ex)
	case *ast.ListLiteral:
		for _, el := range ex.Elements {
			c.compileExpr(el)
		}
		c.emitAB(OpNewList, int32(len(ex.Elements)), 0, ex)
	case *ast.MapLiteral:
		c.compileMapLiteral(ex)
	case *ast.ExprString:
		c.compileExprString(ex)
	case *ast.RegexMatch:
		c.compileExpr(ex.Subject)
		c.compileExpr(ex.Pattern)
		c.emitAB(OpLoadConst, c.constant(Str(ex.Flags)), 0, ex)
		c.emit(OpMatch, ex)
		if ex.Negate {
			c.emit(OpNot, ex)
		}
	case *ast.RegexSubst:
		c.compileExpr(ex.Subject)
		c.compileExpr(ex.Pattern)
		c.compileExpr(ex.Replacement)
		c.emitAB(OpLoadConst, c.constant(Str(ex.Flags)), 0, ex)
		c.emit(OpSubst, ex)
	case *ast.VarDecl:
		c.compileVarDeclExpr(ex)
	case *ast.VarAssign:
		c.compileExpr(ex.Value)
		c.storeIdentifier(ex.Target, ex)
	case *ast.VarOpAssign:
		c.compileVarOpAssign(ex)
	case *ast.FieldAssign:
		c.compileFieldAssign(ex)
	case *ast.FieldOpAssign:
		c.compileFieldOpAssign(ex)
	case *ast.FieldAccess:
		c.compileFieldAccess(ex)
	case *ast.ArrayGet:
		c.compileArrayGet(ex)
	case *ast.ArrayLength:
		c.compileExpr(ex.Receiver)
		c.emit(OpLength, ex)
	case *ast.FunDecl:
		fn := c.compileFunDecl(ex, c.frame.classFQ, nil, c.frame.hasThis && !ex.IsStatic)
		idx := c.frame.chunk.AddFunction(fn)
		c.emitAB(OpLoadFunction, int32(idx), 0, ex)
	case *ast.Closure:
		c.compileClosureLiteral(ex)
	case *ast.ExprStmtWrap:
		c.compileStmt(ex.Inner)
	case *ast.Cast:
		c.compileExpr(ex.Operand)
		c.emitAB(OpCast, c.constantType(typeFromTypeExpr(ex.Target)), 0, ex)
	case *ast.ConvertTo:
		c.compileExpr(ex.Operand)
		c.emitAB(OpConvertTo, c.constantType(typeFromTypeExpr(ex.Target)), 0, ex)
	case *ast.InstanceOf:
		c.compileExpr(ex.Operand)
		c.emitAB(OpInstanceOf, c.constantType(typeFromTypeExpr(ex.Target)), 0, ex)
	case *ast.InvokeNew:
		argc := c.pushArgsFor(ex.Args, ex.NamedArgs, nil, ex)
		c.emitAB(OpNew, c.constantName(ex.ClassName), argc, ex)
	case *ast.InvokeInit:
		c.emit(OpLoadThis, ex)
		for _, a := range ex.Args {
			c.compileExpr(a)
		}
		c.emitAB(OpCallSuper, c.constantName("init"), int32(len(ex.Args)), ex)
	case *ast.InvokeFunDecl:
		c.compileInvokeFunDecl(ex)
	case *ast.ClassPath:
		// Class references only appear meaningfully inside Cast/
		// ConvertTo/InstanceOf (which carry a TypeExpression, not this
		// node); a bare ClassPath in value position has no runtime
		// representation of its own.
		c.emit(OpLoadNil, ex)
	case *ast.DefaultValue:
		c.emitAB(OpDefaultValue, c.constantType(ex.Type()), 0, ex)
	case *ast.LoadParamValue:
		c.emitAB(OpLoadLocal, int32(ex.Slot), 0, ex)
	case *ast.Noop:
		c.emit(OpLoadNil, ex)
	case *ast.Eval:
		c.compileExpr(ex.Source)
		if ex.Globals != nil {
			c.compileExpr(ex.Globals)
		} else {
			c.emit(OpLoadNil, ex)
		}
		c.emit(OpEval, ex)
	case *ast.Print:
		c.compileExpr(ex.Arg)
		a := int32(0)
		if ex.NewLn {
			a = 1
		}
		c.emitAB(OpPrint, a, 0, ex)
	case *ast.Die:
		c.compileExpr(ex.Message)
		c.emit(OpDie, ex)
	default:
		c.errAt(e, "compiler: unhandled expression form")
	}
}

func (c *Compiler) compileLiteral(l *ast.Literal) {
	switch v := l.Value.(type) {
	case nil:
		c.emit(OpLoadNil, l)
	case bool:
		if v {
			c.emit(OpLoadTrue, l)
		} else {
			c.emit(OpLoadFalse, l)
		}
	case byte:
		c.emitAB(OpLoadConst, c.constant(Byte(v)), 0, l)
	case int32:
		c.emitAB(OpLoadConst, c.constant(Int(v)), 0, l)
	case int64:
		c.emitAB(OpLoadConst, c.constant(Long(v)), 0, l)
	case float64:
		c.emitAB(OpLoadConst, c.constant(Double(v)), 0, l)
	case *big.Rat:
		c.emitAB(OpLoadConst, c.constant(Decimal(v)), 0, l)
	case string:
		c.emitAB(OpLoadConst, c.constant(Str(v)), 0, l)
	default:
		c.errAt(l, "compiler: unsupported literal value type")
	}
}

// loadIdentifier emits the read for every resolved Identifier binding
// kind. "method"/"class"/"builtin" identifiers are only ever meaningful
// at a Call's callee position, handled directly in compileCall before it
// falls back to treating the callee as a plain value-producing
// expression.
func (c *Compiler) loadIdentifier(id *ast.Identifier, pos ast.Node) {
	switch id.Binding {
	case "local", "param":
		c.emitAB(OpLoadLocal, int32(id.Slot), 0, pos)
	case "global":
		c.emitAB(OpLoadGlobal, int32(id.Slot), 0, pos)
	case "capture":
		idx, _ := c.resolveUpvalue(c.frame, id.Name)
		c.emitAB(OpLoadUpvalue, int32(idx), 0, pos)
	case "this":
		c.emit(OpLoadThis, pos)
	case "field", "const":
		c.emit(OpLoadThis, pos)
		c.emitAB(OpFieldGet, c.constantName(id.Name), 0, pos)
	default:
		c.emit(OpLoadNil, pos)
	}
}

// storeIdentifier assumes the value to store is already on top of the
// stack; it pops it, stores it, and pushes it straight back.
func (c *Compiler) storeIdentifier(id *ast.Identifier, pos ast.Node) {
	switch id.Binding {
	case "local", "param":
		c.emitAB(OpStoreLocal, int32(id.Slot), 0, pos)
	case "global":
		c.emitAB(OpStoreGlobal, int32(id.Slot), 0, pos)
	case "capture":
		idx, _ := c.resolveUpvalue(c.frame, id.Name)
		c.emitAB(OpStoreUpvalue, int32(idx), 0, pos)
	case "field", "const":
		// `this` hasn't been pushed yet and the value to store is
		// already on the stack, so stash it in a scratch slot, push
		// `this`, then reload the value on top of it for OpFieldSet.
		tmp := c.reserveTempSlot()
		c.emitAB(OpStoreLocal, int32(tmp), 0, pos)
		c.emit(OpPop, pos)
		c.emit(OpLoadThis, pos)
		c.emitAB(OpLoadLocal, int32(tmp), 0, pos)
		c.emitAB(OpFieldSet, c.constantName(id.Name), 0, pos)
	default:
		c.errAt(pos, "compiler: cannot assign to '"+id.Name+"'")
	}
}

var binaryOpcodes = map[token.Type]OpCode{
	token.PLUS: OpAdd, token.MINUS: OpSub, token.STAR: OpMul, token.SLASH: OpDiv, token.PERCENT: OpMod,
	token.AMP: OpBitAnd, token.PIPE: OpBitOr, token.CARET: OpBitXor,
	token.LEFT_SHIFT: OpShiftLeft, token.RIGHT_SHIFT: OpShiftRight, token.RIGHT_SHIFT_UNSIGNED: OpShiftRightUnsigned,
	token.EQUAL_EQUAL: OpEqual, token.BANG_EQUAL: OpNotEqual,
	token.IDENTICAL: OpIdentEqual, token.NOT_IDENTICAL: OpNotIdentEqual,
	token.LESS: OpLess, token.LESS_EQUAL: OpLessEqual, token.GREATER: OpGreater, token.GREATER_EQUAL: OpGreaterEqual,
	token.COMPARE: OpCompare,
}

var compoundAssignOpcodes = map[token.Type]OpCode{
	token.PLUS_EQUAL: OpAdd, token.MINUS_EQUAL: OpSub, token.STAR_EQUAL: OpMul, token.SLASH_EQUAL: OpDiv,
	token.PERCENT_EQUAL: OpMod, token.AMP_EQUAL: OpBitAnd, token.PIPE_EQUAL: OpBitOr, token.CARET_EQUAL: OpBitXor,
	token.LEFT_SHIFT_EQUAL: OpShiftLeft, token.RIGHT_SHIFT_EQUAL: OpShiftRight,
}

// compileBinary handles every Binary operator. &&, ||, and ?? short-
// circuit their right operand and so can't go through the generic
// compile-both-sides-then-emit-one-opcode path; ** has no dedicated
// opcode and is lowered to the "pow" builtin instead.
func (c *Compiler) compileBinary(b *ast.Binary) {
	switch b.Op {
	case token.AMP_AMP:
		c.compileExpr(b.Left)
		falseJump := c.emit(OpJumpIfFalse, b)
		c.compileExpr(b.Right)
		c.emit(OpNot, b)
		c.emit(OpNot, b) // coerce the right operand's truthiness to an actual bool
		end := c.emit(OpJump, b)
		c.patchJump(falseJump, c.here())
		c.emit(OpLoadFalse, b)
		c.patchJump(end, c.here())
		return
	case token.PIPE_PIPE:
		c.compileExpr(b.Left)
		trueJump := c.emit(OpJumpIfTrue, b)
		c.compileExpr(b.Right)
		c.emit(OpNot, b)
		c.emit(OpNot, b)
		end := c.emit(OpJump, b)
		c.patchJump(trueJump, c.here())
		c.emit(OpLoadTrue, b)
		c.patchJump(end, c.here())
		return
	case token.QUESTION_QUESTION:
		c.compileExpr(b.Left)
		c.emit(OpDup, b)
		c.emit(OpLoadNil, b)
		c.emit(OpEqual, b)
		isNull := c.emit(OpJumpIfTrue, b)
		end := c.emit(OpJump, b)
		c.patchJump(isNull, c.here())
		c.emit(OpPop, b)
		c.compileExpr(b.Right)
		c.patchJump(end, c.here())
		return
	case token.MATCH, token.NOT_MATCH:
		c.compileExpr(b.Left)
		c.compileExpr(b.Right)
		c.emitAB(OpLoadConst, c.constant(Str("")), 0, b)
		c.emit(OpMatch, b)
		if b.Op == token.NOT_MATCH {
			c.emit(OpNot, b)
		}
		return
	case token.STAR_STAR:
		c.compileExpr(b.Left)
		c.compileExpr(b.Right)
		c.emitAB(OpCallBuiltin, c.constantName("pow"), 2, b)
		return
	}
	if op, ok := binaryOpcodes[b.Op]; ok {
		c.compileExpr(b.Left)
		c.compileExpr(b.Right)
		c.emit(op, b)
		return
	}
	c.errAt(b, "compiler: unsupported binary operator "+b.Op.String())
}

func (c *Compiler) emitCompoundOp(op token.Type, pos ast.Node) {
	if oc, ok := compoundAssignOpcodes[op]; ok {
		c.emit(oc, pos)
		return
	}
	if op == token.STAR_STAR_EQUAL {
		c.emitAB(OpCallBuiltin, c.constantName("pow"), 2, pos)
		return
	}
	c.errAt(pos, "compiler: unsupported compound-assignment operator "+op.String())
}

// compileAssignTarget evaluates whatever a compound-assignment or inc/dec
// target's receiver (and index, for an indexed target) needs exactly
// once, leaves the target's *current* value on top of the stack, and
// returns a writeBack func that — given a new value already on top of
// the stack — emits the final store and leaves that same new value on
// top of the stack. Caching the receiver/index in scratch locals rather
// than re-evaluating them is what keeps a target like `list()[i] += 1`
// from calling `list()` or evaluating `i` twice.
func (c *Compiler) compileAssignTarget(target ast.Expr, pos ast.Node) (writeBack func()) {
	switch t := target.(type) {
	case *ast.Identifier:
		c.loadIdentifier(t, pos)
		return func() { c.storeIdentifier(t, pos) }
	case *ast.FieldAccess:
		recvSlot := c.reserveTempSlot()
		c.compileExpr(t.Receiver)
		c.emitAB(OpStoreLocal, int32(recvSlot), 0, pos)
		fieldIdx := c.constantName(t.Field)
		c.emitAB(OpFieldGet, fieldIdx, 0, pos)
		return func() {
			newSlot := c.reserveTempSlot()
			c.emitAB(OpStoreLocal, int32(newSlot), 0, pos)
			c.emit(OpPop, pos)
			c.emitAB(OpLoadLocal, int32(recvSlot), 0, pos)
			c.emitAB(OpLoadLocal, int32(newSlot), 0, pos)
			c.emitAB(OpFieldSet, fieldIdx, 0, pos)
		}
	case *ast.ArrayGet:
		recvSlot := c.reserveTempSlot()
		idxSlot := c.reserveTempSlot()
		c.compileExpr(t.Receiver)
		c.emitAB(OpStoreLocal, int32(recvSlot), 0, pos)
		c.compileExpr(t.Index)
		c.emitAB(OpStoreLocal, int32(idxSlot), 0, pos)
		c.emit(OpIndexGet, pos)
		return func() {
			newSlot := c.reserveTempSlot()
			c.emitAB(OpStoreLocal, int32(newSlot), 0, pos)
			c.emit(OpPop, pos)
			c.emitAB(OpLoadLocal, int32(recvSlot), 0, pos)
			c.emitAB(OpLoadLocal, int32(idxSlot), 0, pos)
			c.emitAB(OpLoadLocal, int32(newSlot), 0, pos)
			c.emit(OpIndexSet, pos)
		}
	default:
		c.errAt(pos, "compiler: invalid assignment target")
		return func() {}
	}
}

func (c *Compiler) compileVarOpAssign(ex *ast.VarOpAssign) {
	if ex.Op == token.QUESTION_QUESTION_EQUAL {
		c.compileNullCoalesceAssign(ex.Target, ex.Value, ex)
		return
	}
	writeBack := c.compileAssignTarget(ex.Target, ex)
	c.compileExpr(ex.Value)
	c.emitCompoundOp(ex.Op, ex)
	writeBack()
}

func (c *Compiler) compileFieldOpAssign(ex *ast.FieldOpAssign) {
	if ex.Op == token.QUESTION_QUESTION_EQUAL {
		c.compileNullCoalesceAssign(ex.Target, ex.Value, ex)
		return
	}
	writeBack := c.compileAssignTarget(ex.Target, ex)
	c.compileExpr(ex.Value)
	c.emitCompoundOp(ex.Op, ex)
	writeBack()
}

// compileNullCoalesceAssign implements `target ??= value`: target is
// left untouched (and becomes the expression's result) unless its
// current value is null, in which case value is computed and stored.
func (c *Compiler) compileNullCoalesceAssign(target ast.Expr, value ast.Expr, pos ast.Node) {
	writeBack := c.compileAssignTarget(target, pos)
	c.emit(OpDup, pos)
	c.emit(OpLoadNil, pos)
	c.emit(OpEqual, pos)
	isNull := c.emit(OpJumpIfTrue, pos)
	end := c.emit(OpJump, pos)
	c.patchJump(isNull, c.here())
	c.emit(OpPop, pos)
	c.compileExpr(value)
	writeBack()
	c.patchJump(end, c.here())
}

// compileIncDec implements prefix/postfix ++/--. Postfix additionally
// dups the pre-update value before computing and storing the new one, so
// the stale copy survives underneath for the expression's result; the
// trailing OpPop after writeBack discards the (already-stored) new value
// in that case, same as the dup/discard pattern an inc/dec compiles to
// in a conventional stack-based bytecode.
func (c *Compiler) compileIncDec(target ast.Expr, isIncrement, isPostfix bool, pos ast.Node) {
	writeBack := c.compileAssignTarget(target, pos)
	if isPostfix {
		c.emit(OpDup, pos)
	}
	c.emitAB(OpLoadConst, c.constant(Int(1)), 0, pos)
	if isIncrement {
		c.emit(OpAdd, pos)
	} else {
		c.emit(OpSub, pos)
	}
	writeBack()
	if isPostfix {
		c.emit(OpPop, pos)
	}
}

func (c *Compiler) compilePrefixUnary(p *ast.PrefixUnary) {
	switch p.Op {
	case token.PLUS_PLUS:
		c.compileIncDec(p.Operand, true, false, p)
	case token.MINUS_MINUS:
		c.compileIncDec(p.Operand, false, false, p)
	case token.BANG:
		c.compileExpr(p.Operand)
		c.emit(OpNot, p)
	case token.MINUS:
		c.compileExpr(p.Operand)
		c.emit(OpNegate, p)
	case token.TILDE:
		c.compileExpr(p.Operand)
		c.emit(OpBitNot, p)
	case token.PLUS:
		c.compileExpr(p.Operand)
	default:
		c.errAt(p, "compiler: unsupported prefix operator "+p.Op.String())
	}
}

func (c *Compiler) compilePostfixUnary(p *ast.PostfixUnary) {
	switch p.Op {
	case token.PLUS_PLUS:
		c.compileIncDec(p.Operand, true, true, p)
	case token.MINUS_MINUS:
		c.compileIncDec(p.Operand, false, true, p)
	default:
		c.errAt(p, "compiler: unsupported postfix operator "+p.Op.String())
	}
}

func (c *Compiler) compileTernary(t *ast.Ternary) {
	if t.Elvis {
		c.compileExpr(t.Cond)
		c.emit(OpDup, t)
		falseJump := c.emit(OpJumpIfFalse, t)
		end := c.emit(OpJump, t)
		c.patchJump(falseJump, c.here())
		c.emit(OpPop, t)
		c.compileExpr(t.Else)
		c.patchJump(end, c.here())
		return
	}
	c.compileExpr(t.Cond)
	falseJump := c.emit(OpJumpIfFalse, t)
	c.compileExpr(t.Then)
	end := c.emit(OpJump, t)
	c.patchJump(falseJump, c.here())
	c.compileExpr(t.Else)
	c.patchJump(end, c.here())
}

// pushArgsFor pushes call.Args positional values, or, when the resolver
// bound named-argument syntax to a known parameter list (BindingPlan),
// reorders them into the matching positional slots; a slot with no
// matching named argument pushes nil so the callee's own parameter-
// default prelude (compileParamDefault) fills it in.
func (c *Compiler) pushArgsFor(args []ast.Expr, namedArgs *ast.MapLiteral, plan []int, pos ast.Node) int32 {
	if namedArgs != nil && plan != nil {
		return c.compileBoundArgs(namedArgs, plan, pos)
	}
	for _, a := range args {
		c.compileExpr(a)
	}
	n := int32(len(args))
	if namedArgs != nil {
		c.compileExpr(namedArgs)
		n++
	}
	return n
}

func (c *Compiler) compileBoundArgs(namedArgs *ast.MapLiteral, plan []int, pos ast.Node) int32 {
	max := -1
	for _, slot := range plan {
		if slot > max {
			max = slot
		}
	}
	ordered := make([]ast.Expr, max+1)
	for i, slot := range plan {
		if slot >= 0 && i < len(namedArgs.Entries) {
			ordered[slot] = namedArgs.Entries[i].Value
		}
	}
	for _, e := range ordered {
		if e == nil {
			c.emit(OpLoadNil, pos)
		} else {
			c.compileExpr(e)
		}
	}
	return int32(len(ordered))
}

// compileCall handles a free Call. A callee that resolved to a method of
// the current class (including a top-level `def`, which resolves the
// same way against the synthetic script class) or a known builtin
// dispatches directly via the matching specialized opcode; everything
// else is a dynamic call against a first-class function value.
func (c *Compiler) compileCall(call *ast.Call) {
	if id, ok := call.Callee.(*ast.Identifier); ok && (id.Binding == "method" || id.Binding == "builtin") {
		isInstanceMethod := id.Binding == "method" && c.frame.hasThis
		if isInstanceMethod {
			c.emit(OpLoadThis, call)
		}
		argc := c.pushArgsFor(call.Args, call.NamedArgs, call.BindingPlan, call)
		switch {
		case id.Binding == "builtin":
			c.emitAB(OpCallBuiltin, c.constantName(id.Name), argc, call)
		case isInstanceMethod:
			c.emitAB(OpCallMethod, c.constantName(id.Name), argc, call)
		default:
			c.emitAB(OpCallGlobalFunc, c.constantName(id.Name), argc, call)
		}
		return
	}

	c.compileExpr(call.Callee)
	var argc, named int32
	if call.NamedArgs != nil && call.BindingPlan != nil {
		argc = c.pushArgsFor(call.Args, call.NamedArgs, call.BindingPlan, call)
	} else {
		for _, a := range call.Args {
			c.compileExpr(a)
		}
		argc = int32(len(call.Args))
		if call.NamedArgs != nil {
			c.compileExpr(call.NamedArgs)
			named = 1
		}
	}
	c.emitAB(OpCall, argc, named, call)
}

func (c *Compiler) compileMethodCall(m *ast.MethodCall) {
	if m.IsSuper {
		argc := c.pushArgsFor(m.Args, m.NamedArgs, nil, m)
		c.emitAB(OpCallSuper, c.constantName(m.Method), argc, m)
		return
	}
	if c.tryCompileListCombinator(m) {
		return
	}
	if m.Receiver == nil {
		c.emit(OpLoadThis, m)
	} else {
		c.compileExpr(m.Receiver)
	}
	if m.NullSafe {
		skip := c.emit(OpJumpIfNullSafe, m)
		argc := c.pushArgsFor(m.Args, m.NamedArgs, nil, m)
		c.emitAB(OpCallMethod, c.constantName(m.Method), argc, m)
		c.patchJump(skip, c.here())
		return
	}
	argc := c.pushArgsFor(m.Args, m.NamedArgs, nil, m)
	c.emitAB(OpCallMethod, c.constantName(m.Method), argc, m)
}

func (c *Compiler) compileInvokeFunDecl(ex *ast.InvokeFunDecl) {
	isInstanceMethod := c.frame.hasThis && !ex.Decl.IsStatic
	if isInstanceMethod {
		c.emit(OpLoadThis, ex)
	}
	for _, a := range ex.Args {
		c.compileExpr(a)
	}
	argc := int32(len(ex.Args))
	if isInstanceMethod {
		c.emitAB(OpCallMethod, c.constantName(ex.Decl.Name), argc, ex)
	} else {
		c.emitAB(OpCallGlobalFunc, c.constantName(ex.Decl.Name), argc, ex)
	}
}

func (c *Compiler) compileMapLiteral(ex *ast.MapLiteral) {
	for _, entry := range ex.Entries {
		if ex.IsNamedArgs {
			if keyID, ok := entry.Key.(*ast.Identifier); ok {
				c.emitAB(OpLoadConst, c.constantName(keyID.Name), 0, ex)
			} else {
				c.compileExpr(entry.Key)
			}
		} else {
			c.compileExpr(entry.Key)
		}
		c.compileExpr(entry.Value)
	}
	c.emitAB(OpNewMap, int32(len(ex.Entries)), 0, ex)
}

func (c *Compiler) compileExprString(ex *ast.ExprString) {
	for _, p := range ex.Parts {
		if p.Expr != nil {
			c.compileExpr(p.Expr)
		} else {
			c.emitAB(OpLoadConst, c.constant(Str(p.Literal)), 0, ex)
		}
	}
	c.emitAB(OpStringInterp, int32(len(ex.Parts)), 0, ex)
}

func (c *Compiler) compileFieldAccess(ex *ast.FieldAccess) {
	c.compileExpr(ex.Receiver)
	if ex.NullSafe {
		skip := c.emit(OpJumpIfNullSafe, ex)
		c.emitAB(OpFieldGet, c.constantName(ex.Field), 0, ex)
		c.patchJump(skip, c.here())
		return
	}
	c.emitAB(OpFieldGet, c.constantName(ex.Field), 0, ex)
}

func (c *Compiler) compileArrayGet(ex *ast.ArrayGet) {
	c.compileExpr(ex.Receiver)
	if ex.NullSafe {
		skip := c.emit(OpJumpIfNullSafe, ex)
		c.compileExpr(ex.Index)
		c.emit(OpIndexGet, ex)
		c.patchJump(skip, c.here())
		return
	}
	c.compileExpr(ex.Index)
	c.emit(OpIndexGet, ex)
}

// assignLink is one step of a flattened `a.b.c = v` / `a[i].b = v` chain,
// ordered from the root receiver outward; mirrors
// resolver/autocreate.go's chainStep but also carries the index
// expression an ArrayGet step needs at compile time.
type assignLink struct {
	fieldName string
	isIndex   bool
	index     ast.Expr
}

func flattenFieldChain(target ast.Expr) (root ast.Expr, links []assignLink) {
	var rev []assignLink
	cur := target
	for {
		switch t := cur.(type) {
		case *ast.FieldAccess:
			rev = append(rev, assignLink{fieldName: t.Field})
			cur = t.Receiver
		case *ast.ArrayGet:
			rev = append(rev, assignLink{isIndex: true, index: t.Index})
			cur = t.Receiver
		default:
			root = cur
			links = make([]assignLink, len(rev))
			for i := range rev {
				links[i] = rev[len(rev)-1-i]
			}
			return
		}
	}
}

func (c *Compiler) constantAutoCreate(step *ast.AutoCreateStep) int32 {
	return c.constant(Value{Kind: types.ANY, Data: AutoCreateSpec{Kind: step.NewType.Kind, ClassFQ: step.NewType.FQ}})
}

// compileFieldAssign compiles `target = value` where target is a
// FieldAccess/ArrayGet chain. Every link but the last is a pure read
// (auto-creating an intermediate map/list/instance in place of a nil one
// when the resolver recorded an AutoCreateStep for it); the last link is
// the actual store.
func (c *Compiler) compileFieldAssign(fa *ast.FieldAssign) {
	root, links := flattenFieldChain(fa.Target)
	if len(links) == 0 {
		c.errAt(fa, "compiler: invalid field assignment target")
		return
	}
	c.compileExpr(root)

	acIdx := 0
	for i := 0; i < len(links)-1; i++ {
		link := links[i]
		if link.isIndex {
			c.compileExpr(link.index)
			c.emit(OpIndexGet, fa)
			continue
		}
		if acIdx < len(fa.AutoCreate) && fa.AutoCreate[acIdx].FieldName == link.fieldName {
			c.emitAB(OpAutoCreate, c.constantName(link.fieldName), c.constantAutoCreate(fa.AutoCreate[acIdx]), fa)
			acIdx++
		} else {
			c.emitAB(OpFieldGet, c.constantName(link.fieldName), 0, fa)
		}
	}

	last := links[len(links)-1]
	if last.isIndex {
		c.compileExpr(last.index)
		c.compileExpr(fa.Value)
		c.emit(OpIndexSet, fa)
	} else {
		c.compileExpr(fa.Value)
		c.emitAB(OpFieldSet, c.constantName(last.fieldName), 0, fa)
	}
}

// typeFromTypeExpr mirrors resolver.resolveTypeExpr for the subset the
// compiler itself needs (Cast/ConvertTo/InstanceOf operands), without
// depending on the resolver's private classInfo registry — a class name
// it doesn't recognize is still a perfectly good types.Class reference at
// this point, since the resolver already validated it exists.
func typeFromTypeExpr(te ast.TypeExpression) types.Type {
	switch t := te.(type) {
	case nil:
		return types.AnyT
	case *ast.TypeExpr:
		switch t.Name {
		case "def":
			return types.AnyT
		case "boolean":
			return types.Bool
		case "byte":
			return types.ByteT
		case "int":
			return types.IntT
		case "long":
			return types.LongT
		case "double":
			return types.DoubleT
		case "Decimal":
			return types.DecT
		case "String":
			return types.StrT
		case "Map":
			return types.MapT
		case "List":
			return types.ListT
		default:
			ty := types.Class(t.Name)
			ty.Nilable = t.Nilable
			return ty
		}
	case *ast.ArrayTypeExpr:
		elem := typeFromTypeExpr(t.Elem)
		return types.Array(elem)
	default:
		return types.AnyT
	}
}
