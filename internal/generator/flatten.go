package generator

import (
	"cflow/internal/ir"
)

// flatten splices nested blocks of b's statement list into it, hoisting
// their variables, so that every label of the rewritten body is a direct
// statement of the step function. Loops, conditionals, switches, try
// statements and lambdas keep their structure: anything left inside them
// does not suspend.
func flatten(b *ir.Block) *ir.Block {
	out := &ir.Block{Meta: b.Meta}
	out.Vars = append(out.Vars, b.Vars...)
	var splice func(list []ir.Node)
	splice = func(list []ir.Node) {
		for _, s := range list {
			switch s := s.(type) {
			case nil:
			case *ir.Block:
				out.Vars = append(out.Vars, s.Vars...)
				splice(s.Stmts)
			default:
				out.Stmts = append(out.Stmts, s)
			}
		}
	}
	splice(b.Stmts)
	return out
}
