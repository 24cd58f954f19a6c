package resolver

import "github.com/jactl-lang/jactl/internal/ast"

// chainStep is one link of a field/array assignment path flattened from
// outermost (the FieldAssign's Target) down to its root.
type chainStep struct {
	fieldName string
	isIndex   bool
}

// flattenAssignChain walks target's Receiver links, returning the steps
// from the root receiver outward, and the root expression itself (an
// Identifier, method call, or anything else that isn't itself part of the
// chain).
func flattenAssignChain(target ast.Expr) (root ast.Expr, steps []chainStep) {
	var rev []chainStep
	cur := target
	for {
		switch t := cur.(type) {
		case *ast.FieldAccess:
			rev = append(rev, chainStep{fieldName: t.Field})
			cur = t.Receiver
		case *ast.ArrayGet:
			rev = append(rev, chainStep{isIndex: true})
			cur = t.Receiver
		default:
			root = cur
			for i := len(rev) - 1; i >= 0; i-- {
				steps = append(steps, rev[i])
			}
			return
		}
	}
}

// resolveFieldAssign walks the assignment target's receiver chain and,
// for any chain longer than one link, records the AutoCreateStep list a
// compiler needs to emit implicit map/list allocations along `a.b.c = v`
// rather than raising a null-pointer error on a missing intermediate.
func (r *Resolver) resolveFieldAssign(fa *ast.FieldAssign) {
	r.walkExpr(fa.Target)

	root, steps := flattenAssignChain(fa.Target)
	_ = root
	if len(steps) < 2 {
		return
	}

	// The last step is the field actually being assigned; every step
	// before it is an intermediate that may need to be auto-created. The
	// kind of thing to create at step i is inferred from what step i+1
	// does with it: a following field access wants a map, a following
	// index wants a list.
	for i := 0; i < len(steps)-1; i++ {
		step := steps[i]
		if step.isIndex {
			continue
		}
		kind := "map"
		if steps[i+1].isIndex {
			kind = "list"
		}
		fa.AutoCreate = append(fa.AutoCreate, &ast.AutoCreateStep{
			FieldName: step.fieldName,
			NewType:   ast.AutoCreateType{Kind: kind},
		})
	}
}
