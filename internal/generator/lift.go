package generator

import (
	"fortio.org/safecast"

	"cflow/internal/ir"
)

// lift assigns v the next cell index. References to v become cell.Value.
func (r *rewriter) lift(v *ir.Variable) error {
	if v == nil {
		return nil
	}
	if _, ok := r.cells[v]; ok {
		return nil
	}
	if _, err := safecast.Conv[int32](len(r.cellVars)); err != nil {
		return ir.Unsupported(v, "too many lifted variables: %v", err)
	}
	cell := ir.NewVar(v.Name+"_cell", ir.TypeCell)
	r.cells[v] = cell
	r.cellVars = append(r.cellVars, cell)
	return nil
}

func (r *rewriter) cellValue(v *ir.Variable) *ir.Field {
	return &ir.Field{Meta: v.Meta, Target: r.cells[v], Name: FieldValue, Typ: v.Typ}
}

func (r *rewriter) VisitVariable(n *ir.Variable) (ir.Node, error) {
	switch {
	case n == r.argsIn && n != nil:
		return r.args, nil
	case n == r.contextIn && n != nil:
		return &ir.Field{Meta: n.Meta, Target: r.driver, Name: FieldContext, Typ: n.Typ}, nil
	}
	if _, ok := r.cells[n]; ok {
		return r.cellValue(n), nil
	}
	return n, nil
}

// VisitBlock lifts the variables of a suspending block. Its statements are
// spliced into the step function's top level later, so the block itself no
// longer declares anything.
func (r *rewriter) VisitBlock(n *ir.Block) (ir.Node, error) {
	if r.lambdas > 0 || !ir.HasYield(n) {
		return r.Rewriter.VisitBlock(n)
	}
	for _, v := range n.Vars {
		if err := r.lift(v); err != nil {
			return nil, err
		}
	}
	stmts, err := r.VisitList(n.Stmts)
	if err != nil {
		return nil, err
	}
	return &ir.Block{Meta: n.Meta, Stmts: stmts}, nil
}

// VisitLambda keeps nested functions as they are apart from references to
// lifted variables, which they share with the generator through the cell.
func (r *rewriter) VisitLambda(n *ir.Lambda) (ir.Node, error) {
	r.lambdas++
	defer func() { r.lambdas-- }()
	return r.Rewriter.VisitLambda(n)
}
