package analyser

import "github.com/jactl-lang/jactl/internal/ast"

// classView is the analyser's own minimal class hierarchy, built fresh
// from the program rather than borrowed from the resolver's registry, the
// same way the compiler stage will later build its own class layout: each
// pipeline stage keeps the view of the program it actually needs.
type classView struct {
	decl    *ast.ClassDecl
	parent  *classView
	methods map[string]*ast.FunDecl
}

type classRegistry struct {
	byFQName map[string]*classView
	// children maps a class's FQName to the direct subclasses declared in
	// this compilation unit, for virtual-dispatch override search.
	children map[string][]*classView
}

func buildClassRegistry(prog *ast.Program) *classRegistry {
	reg := &classRegistry{byFQName: make(map[string]*classView), children: make(map[string][]*classView)}

	var walk func(decl *ast.ClassDecl)
	walk = func(decl *ast.ClassDecl) {
		cv := &classView{decl: decl, methods: make(map[string]*ast.FunDecl)}
		for _, m := range decl.Methods {
			cv.methods[m.Name] = m
		}
		reg.byFQName[decl.FQName] = cv
		for _, inner := range decl.InnerClasses {
			walk(inner)
		}
	}
	for _, c := range prog.Classes {
		walk(c)
	}
	for fq, cv := range reg.byFQName {
		if cv.decl.Extends == "" {
			continue
		}
		if parent, ok := reg.byFQName[cv.decl.Extends]; ok {
			cv.parent = parent
			reg.children[cv.decl.Extends] = append(reg.children[cv.decl.Extends], reg.byFQName[fq])
		}
	}
	return reg
}

// lookupMethod finds the method named name visible on class fqName,
// searching up the inheritance chain.
func (r *classRegistry) lookupMethod(fqName, name string) *ast.FunDecl {
	for cv := r.byFQName[fqName]; cv != nil; cv = cv.parent {
		if m, ok := cv.methods[name]; ok {
			return m
		}
	}
	return nil
}

// overridesOf collects every method named name declared on a known
// (transitive) subclass of fqName. The analyser's virtual-dispatch check
// (scanVirtualDispatch) does not call it.
func (r *classRegistry) overridesOf(fqName, name string) []*ast.FunDecl {
	var out []*ast.FunDecl
	var walk func(fq string)
	walk = func(fq string) {
		for _, child := range r.children[fq] {
			if m, ok := child.methods[name]; ok {
				out = append(out, m)
			}
			walk(child.decl.FQName)
		}
	}
	walk(fqName)
	return out
}
