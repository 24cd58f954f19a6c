package bytecode

import (
	"github.com/jactl-lang/jactl/internal/ast"
)

// declareClass creates an empty ClassDescriptor stub for cd so sibling
// classes that reference it (fields, `new X()`, method return types) can
// be compiled regardless of declaration order; parents are wired in a
// second pass once every stub exists.
func (c *Compiler) declareClass(cd *ast.ClassDecl) {
	desc := &ClassDescriptor{
		FQName:  cd.FQName,
		Methods: make(map[string]*FunctionObject),
		IsFinal: make(map[string]bool),
		FieldInit: make(map[string]*Chunk),
	}
	for _, f := range cd.Fields {
		desc.FieldOrder = append(desc.FieldOrder, f.Name)
	}
	c.classes[cd.FQName] = desc
}

func (c *Compiler) wireParent(cd *ast.ClassDecl) {
	if cd.Extends == "" {
		return
	}
	desc := c.classes[cd.FQName]
	desc.Parent = c.classes[cd.Extends]
}

// compileClassBody compiles every method and field-default initializer of
// cd into the ClassDescriptor declareClass already created.
func (c *Compiler) compileClassBody(cd *ast.ClassDecl) {
	desc := c.classes[cd.FQName]

	for _, f := range cd.Fields {
		if f.Default == nil {
			continue
		}
		chunk := NewChunk(cd.FQName + "." + f.Name + ".<default>")
		c.pushFrame(chunk, cd.FQName, false, 0, true)
		c.pushScope()
		c.compileExpr(f.Default)
		c.emit(OpReturn, f.Default)
		c.popScope()
		c.popFrame()
		desc.FieldInit[f.Name] = chunk
	}

	for _, m := range cd.Methods {
		desc.Methods[m.Name] = c.compileFunDecl(m, cd.FQName, desc, !m.IsStatic)
		desc.IsFinal[m.Name] = m.IsFinal
	}
}

// compileScriptMain compiles the synthetic top-level class's body as the
// script's entry FunctionObject. Top-level `var` declarations resolve as
// globals (see the resolver's kindGlobal rule), so they don't consume
// local slots the way an ordinary function body's locals do; the script
// frame still gets its own Chunk and NumLocals sized from NumSlots for
// whatever locals *do* appear inside nested blocks/try-catch. Top-level
// `def` declarations are compiled into the synthetic script class's own
// method table (mirroring registerClasses' scan in the resolver) so a
// call to one lowers to OpCallGlobalFunc against that table rather than
// needing its own global slot.
func (c *Compiler) compileScriptMain(cd *ast.ClassDecl) *FunctionObject {
	desc := &ClassDescriptor{
		FQName:    cd.FQName,
		Methods:   make(map[string]*FunctionObject),
		IsFinal:   make(map[string]bool),
		FieldInit: make(map[string]*Chunk),
	}
	c.classes[cd.FQName] = desc

	if cd.ScriptMain != nil {
		for _, st := range cd.ScriptMain.List {
			fds, ok := st.(*ast.FunDeclStmt)
			if !ok {
				continue
			}
			desc.Methods[fds.Fun.Name] = c.compileFunDecl(fds.Fun, cd.FQName, desc, false)
			desc.IsFinal[fds.Fun.Name] = fds.Fun.IsFinal
		}
	}

	chunk := NewChunk("<script>")
	numSlots := 0
	if cd.ScriptMain != nil {
		numSlots = maxSlotInStmts(cd.ScriptMain)
	}
	c.pushFrame(chunk, cd.FQName, false, numSlots, false)
	c.pushScope()
	var last *ast.ExprStmt
	if cd.ScriptMain != nil && len(cd.ScriptMain.List) > 0 {
		last, _ = cd.ScriptMain.List[len(cd.ScriptMain.List)-1].(*ast.ExprStmt)
	}
	if last == nil {
		c.compileStmt(cd.ScriptMain)
		c.emit(OpReturnNil, cd.ScriptMain)
	} else {
		for _, st := range cd.ScriptMain.List[:len(cd.ScriptMain.List)-1] {
			c.compileStmt(st)
		}
		c.compileExpr(last.X)
		c.emit(OpReturn, last)
	}
	frame := c.popFrame()

	return &FunctionObject{
		Name:        "<script>",
		FQName:      cd.FQName,
		Chunk:       chunk,
		Arity:       0,
		NumLocals:   frame.numLocals(),
		UpvalueDefs: frame.upvalueDefs,
		Owner:       desc,
	}
}

func (c *Compiler) compileFunDecl(fn *ast.FunDecl, classFQ string, owner *ClassDescriptor, hasThis bool) *FunctionObject {
	chunk := NewChunk(classFQ + "." + fn.Name)
	c.pushFrame(chunk, classFQ, fn.IsAsync, fn.NumSlots, hasThis)
	c.pushScope()
	for i, p := range fn.Params {
		c.frame.scope.define(p.Name, i)
		if p.Default != nil {
			c.compileParamDefault(i, p)
		}
	}
	c.compileStmt(fn.Body)
	c.emit(OpReturnNil, fn.Body)
	frame := c.popFrame()

	params := make([]ParamInfo, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = ParamInfo{Name: p.Name, Mandatory: p.Mandatory}
	}

	return &FunctionObject{
		Name:        fn.Name,
		FQName:      classFQ + "." + fn.Name,
		Chunk:       chunk,
		Arity:       len(fn.Params),
		NumLocals:   frame.numLocals(),
		UpvalueDefs: frame.upvalueDefs,
		IsAsync:     fn.IsAsync,
		Owner:       owner,
		Params:      params,
	}
}

// compileParamDefault emits `if slot is still null (callFunctionObject
// pre-seeds every local to null before copying in whatever args were
// actually supplied), evaluate Default and store it`. The check must be
// an explicit null comparison rather than a truthiness test: a caller
// passing a legitimately falsy argument (0, false, "") must not have it
// overwritten by the parameter's default.
func (c *Compiler) compileParamDefault(slot int, p *ast.Param) {
	c.emitAB(OpLoadLocal, int32(slot), 0, p.Default)
	c.emit(OpLoadNil, p.Default)
	c.emit(OpEqual, p.Default)
	jumpIfNotNull := c.emitAB(OpJumpIfFalse, 0, 0, p.Default)
	c.compileExpr(p.Default)
	c.emitAB(OpStoreLocal, int32(slot), 0, p.Default)
	c.patchJump(jumpIfNotNull, c.here())
}

func (c *Compiler) compileClosureLiteral(cl *ast.Closure) {
	chunk := NewChunk("<closure>")
	enclosingFQ := c.frame.classFQ
	enclosingHasThis := c.frame.hasThis
	c.pushFrame(chunk, enclosingFQ, cl.IsAsync, cl.NumSlots, enclosingHasThis)
	c.pushScope()
	params := cl.Params
	if len(params) == 0 {
		params = []*ast.Param{{Name: "it"}}
	}
	for i, p := range params {
		c.frame.scope.define(p.Name, i)
	}
	body, _ := cl.Body.(*ast.Stmts)
	var last *ast.ExprStmt
	if body != nil && len(body.List) > 0 {
		last, _ = body.List[len(body.List)-1].(*ast.ExprStmt)
	}
	if last == nil {
		c.compileStmt(cl.Body)
		c.emit(OpReturnNil, cl.Body)
	} else {
		for _, st := range body.List[:len(body.List)-1] {
			c.compileStmt(st)
		}
		c.compileExpr(last.X)
		c.emit(OpReturn, last)
	}
	frame := c.popFrame()

	paramInfo := make([]ParamInfo, len(params))
	for i, p := range params {
		paramInfo[i] = ParamInfo{Name: p.Name, Mandatory: p.Mandatory}
	}

	fn := &FunctionObject{
		Name:        "<closure>",
		FQName:      enclosingFQ + ".<closure>",
		Chunk:       chunk,
		Arity:       len(params),
		NumLocals:   frame.numLocals(),
		UpvalueDefs: frame.upvalueDefs,
		IsAsync:     cl.IsAsync,
		Owner:       c.classes[enclosingFQ],
		Params:      paramInfo,
	}
	idx := c.frame.chunk.AddFunction(fn)
	c.emitAB(OpLoadFunction, int32(idx), 0, cl)
}

// resolveUpvalue implements the standard recursive upvalue-capture
// algorithm: a name captured by frame is either a local slot in the
// immediately enclosing frame, or itself an upvalue of that enclosing
// frame (chained capture through nested closures), resolved lazily the
// first time frame's body actually references it.
func (c *Compiler) resolveUpvalue(frame *compileFrame, name string) (int, bool) {
	if idx, ok := frame.upvalueByID[name]; ok {
		return idx, true
	}
	if frame.parent == nil {
		return 0, false
	}
	if slot, ok := frame.parent.scope.lookup(name); ok {
		idx := len(frame.upvalueDefs)
		frame.upvalueDefs = append(frame.upvalueDefs, UpvalueDef{IsLocal: true, Index: slot})
		frame.upvalueByID[name] = idx
		return idx, true
	}
	if pIdx, ok := c.resolveUpvalue(frame.parent, name); ok {
		idx := len(frame.upvalueDefs)
		frame.upvalueDefs = append(frame.upvalueDefs, UpvalueDef{IsLocal: false, Index: pIdx})
		frame.upvalueByID[name] = idx
		return idx, true
	}
	return 0, false
}

// maxSlotInStmts scans a block for the highest local slot a VarDecl
// allocated, used only for the synthetic script frame (whose NumSlots
// isn't tracked on a FunDecl the way an ordinary function's is).
func maxSlotInStmts(s ast.Stmt) int {
	max := -1
	var walk func(ast.Stmt)
	var walkExpr func(ast.Expr)
	walk = func(st ast.Stmt) {
		if st == nil {
			return
		}
		switch n := st.(type) {
		case *ast.Stmts:
			for _, inner := range n.List {
				walk(inner)
			}
		case *ast.Block:
			walk(n.Body)
		case *ast.If:
			walkExpr(n.Cond)
			walk(n.Then)
			walk(n.Else)
		case *ast.While:
			walkExpr(n.Cond)
			walk(n.Body)
		case *ast.For:
			walk(n.Init)
			walkExpr(n.Cond)
			walk(n.Update)
			walk(n.Body)
		case *ast.Switch:
			for _, cs := range n.Cases {
				walk(cs)
			}
			walk(n.Default)
		case *ast.SwitchCase:
			walk(n.Body)
		case *ast.VarDeclStmt:
			for _, d := range n.Decls {
				if d.Slot > max {
					max = d.Slot
				}
			}
		case *ast.TryCatch:
			walk(n.Body)
			for _, cc := range n.Catches {
				if cc.Slot > max {
					max = cc.Slot
				}
				walk(cc.Body)
			}
			walk(n.Finally)
		case *ast.ExprStmt:
			walkExpr(n.X)
		}
	}
	walkExpr = func(e ast.Expr) {}
	walk(s)
	return max + 1
}
