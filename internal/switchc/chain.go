package switchc

import (
	"strconv"

	"cflow/internal/ir"
)

// LowerChain expands a native switch into a linear chain of conditional
// jumps over a temporary holding the discriminant:
//
//	tmp = discriminant
//	if tmp == t0 || tmp == t1 goto case_0
//	...
//	goto default (or break)
//	case_0: body; goto break
//	...
//	default: body
//	break:
//
// The result is plain label/goto IR so a suspending case body can be
// flattened by the generator rewriter. n is consumed.
func LowerChain(n *ir.NativeSwitch) *ir.Block {
	tmp := ir.NewVar("switch_value", n.Discriminant.Type())
	stmts := make([]ir.Node, 0, 2*len(n.Cases)+5)
	stmts = append(stmts, ir.WithSpan(ir.Set(tmp, n.Discriminant), n.Span()))

	labels := make([]*ir.LabelTarget, len(n.Cases))
	for i, c := range n.Cases {
		labels[i] = ir.NewLabel("case_" + strconv.Itoa(i))
		var cond ir.Node
		for _, t := range c.Tests {
			cmp := compare(n, tmp, t)
			if cond == nil {
				cond = cmp
				continue
			}
			cond = ir.Bin(ir.OpOrElse, cond, cmp)
		}
		if cond == nil {
			continue
		}
		stmts = append(stmts, ir.If(cond, ir.Jump(labels[i]), nil))
	}

	fallback := n.Break
	if n.Default != nil {
		fallback = ir.NewLabel("default")
	}
	stmts = append(stmts, ir.Jump(fallback))
	for i, c := range n.Cases {
		stmts = append(stmts, ir.Mark(labels[i]))
		if c.Body != nil {
			stmts = append(stmts, c.Body)
		}
		stmts = append(stmts, ir.Jump(n.Break))
	}
	if n.Default != nil {
		stmts = append(stmts, ir.Mark(fallback), n.Default)
	}
	stmts = append(stmts, ir.Mark(n.Break))
	return ir.Scope([]*ir.Variable{tmp}, stmts...)
}

// compare builds the equality test of one case label.
func compare(n *ir.NativeSwitch, tmp *ir.Variable, test ir.Node) ir.Node {
	if n.Strategy == ir.CompareGeneric {
		method := n.Equals
		if method == "" {
			method = DefaultEqualsMethod
		}
		return ir.WithSpan(ir.CallOn(nil, method, ir.TypeBool, tmp, test), test.Span())
	}
	return ir.WithSpan(ir.Bin(ir.OpStrictEqual, tmp, test), test.Span())
}
