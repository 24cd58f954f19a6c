package resolver

import (
	"github.com/jactl-lang/jactl/internal/ast"
)

// classInfo is the resolved view of one class declaration: its field/method
// tables plus a link to its resolved parent, built before any method body
// is walked so forward references and inherited-member lookups both work.
type classInfo struct {
	decl       *ast.ClassDecl
	fqName     string
	parent     *classInfo
	implements []string
	fields     map[string]*ast.FieldDecl
	methods    map[string]*ast.FunDecl
}

// lookupField searches this class and its ancestors for a field named
// name, returning nil if none declares it.
func (c *classInfo) lookupField(name string) *ast.FieldDecl {
	for cur := c; cur != nil; cur = cur.parent {
		if f, ok := cur.fields[name]; ok {
			return f
		}
	}
	return nil
}

// lookupMethod searches this class and its ancestors for a method named
// name, returning nil if none declares it.
func (c *classInfo) lookupMethod(name string) *ast.FunDecl {
	for cur := c; cur != nil; cur = cur.parent {
		if m, ok := cur.methods[name]; ok {
			return m
		}
	}
	return nil
}

// registerClasses walks every class declaration (including the synthetic
// script-main class and nested classes) and builds the flat fqName ->
// classInfo registry, reporting duplicate-member and duplicate-class
// errors. Parent linking happens in a second pass (linkParents) once every
// class is registered, since `extends` may name a class declared later in
// the source.
func (r *Resolver) registerClasses(prog *ast.Program) {
	var walk func(decl *ast.ClassDecl)
	walk = func(decl *ast.ClassDecl) {
		ci := &classInfo{
			decl:       decl,
			fqName:     decl.FQName,
			implements: decl.Implements,
			fields:     make(map[string]*ast.FieldDecl),
			methods:    make(map[string]*ast.FunDecl),
		}
		for _, f := range decl.Fields {
			if _, dup := ci.fields[f.Name]; dup {
				r.errAt(f.Pos, "duplicate field '"+f.Name+"' in class "+decl.FQName)
				continue
			}
			ci.fields[f.Name] = f
		}
		for _, m := range decl.Methods {
			if _, dup := ci.methods[m.Name]; dup {
				r.errAt(m.Pos(), "duplicate method '"+m.Name+"' in class "+decl.FQName)
				continue
			}
			ci.methods[m.Name] = m
		}
		if _, dup := r.classes[decl.FQName]; dup {
			r.errAt(decl.Pos(), "duplicate class declaration '"+decl.FQName+"'")
		} else {
			r.classes[decl.FQName] = ci
		}
		for _, inner := range decl.InnerClasses {
			walk(inner)
		}
	}

	for _, c := range prog.Classes {
		walk(c)
	}
	if prog.ScriptMain != nil {
		r.scriptMain = &classInfo{
			decl:    prog.ScriptMain,
			fqName:  prog.ScriptMain.FQName,
			fields:  make(map[string]*ast.FieldDecl),
			methods: make(map[string]*ast.FunDecl),
		}
		// Top-level `def` declarations are parsed as ordinary statements
		// in the script body rather than as ClassDecl.Methods, but calls
		// to them still need to resolve by name like any other method on
		// the synthetic script class.
		if prog.ScriptMain.ScriptMain != nil {
			for _, st := range prog.ScriptMain.ScriptMain.List {
				fds, ok := st.(*ast.FunDeclStmt)
				if !ok {
					continue
				}
				fds.Fun.DeclaringClass = prog.ScriptMain.FQName
				if _, dup := r.scriptMain.methods[fds.Fun.Name]; dup {
					r.errAt(fds.Fun.Pos(), "duplicate function '"+fds.Fun.Name+"' at top level")
					continue
				}
				r.scriptMain.methods[fds.Fun.Name] = fds.Fun
			}
		}
	}

	r.linkParents()
}

// linkParents resolves each class's Extends name to its classInfo and
// detects cycles in the inheritance chain.
func (r *Resolver) linkParents() {
	for fq, ci := range r.classes {
		if ci.decl.Extends == "" {
			continue
		}
		parent, ok := r.classes[ci.decl.Extends]
		if !ok {
			r.errAt(ci.decl.Pos(), "class "+fq+" extends unknown class "+ci.decl.Extends)
			continue
		}
		ci.parent = parent
	}
	for fq, ci := range r.classes {
		seen := map[string]bool{fq: true}
		for cur := ci.parent; cur != nil; cur = cur.parent {
			if seen[cur.fqName] {
				r.errAt(ci.decl.Pos(), "cyclic inheritance involving class "+fq)
				break
			}
			seen[cur.fqName] = true
		}
	}
}
