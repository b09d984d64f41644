package generator

import (
	"cflow/internal/ir"
)

// checkPositions enforces the flattening guarantee: a yield may appear as a
// statement, as the value of a statement-level return, or as the whole value
// of a statement-level assignment to a variable. Nested lambdas are separate
// functions and are not checked.
func checkPositions(body ir.Node) error {
	return walkPositions(body, true)
}

func walkPositions(n ir.Node, stmt bool) error {
	switch n := n.(type) {
	case nil:
		return nil
	case *ir.Lambda:
		return nil
	case *ir.Yield:
		if !stmt {
			return invalidYield(n)
		}
		return walkPositions(n.Argument, false)
	case *ir.Block:
		for _, s := range n.Stmts {
			if err := walkPositions(s, stmt); err != nil {
				return err
			}
		}
		return nil
	case *ir.Return:
		if y, ok := n.Value.(*ir.Yield); ok && stmt {
			return walkPositions(y.Argument, false)
		}
		return walkPositions(n.Value, false)
	case *ir.Assign:
		if y, ok := n.Value.(*ir.Yield); ok && stmt {
			if _, isVar := n.Target.(*ir.Variable); !isVar {
				return invalidYield(y)
			}
			return walkPositions(y.Argument, false)
		}
		return walkChildren(n, false)
	case *ir.Loop:
		return walkPositions(n.Body, stmt)
	case *ir.Conditional:
		if err := walkPositions(n.Test, false); err != nil {
			return err
		}
		if err := walkPositions(n.Then, stmt); err != nil {
			return err
		}
		return walkPositions(n.Else, stmt)
	case *ir.TryCatchFinally:
		if err := walkPositions(n.Try, stmt); err != nil {
			return err
		}
		if n.Catch != nil {
			if err := walkPositions(n.Catch.Body, stmt); err != nil {
				return err
			}
		}
		return walkPositions(n.Finally, stmt)
	case *ir.NativeSwitch:
		if err := walkPositions(n.Discriminant, false); err != nil {
			return err
		}
		for _, c := range n.Cases {
			if err := walkList(c.Tests, false); err != nil {
				return err
			}
			if err := walkPositions(c.Body, stmt); err != nil {
				return err
			}
		}
		return walkPositions(n.Default, stmt)
	case *ir.Switch:
		if err := walkPositions(n.Discriminant, false); err != nil {
			return err
		}
		for _, c := range n.Cases {
			if err := walkList(c.Tests, false); err != nil {
				return err
			}
			if err := walkList(c.Body, stmt); err != nil {
				return err
			}
		}
		return nil
	}
	return walkChildren(n, false)
}

func walkChildren(n ir.Node, stmt bool) error {
	return walkList(ir.Children(n), stmt)
}

func walkList(list []ir.Node, stmt bool) error {
	for _, c := range list {
		if err := walkPositions(c, stmt); err != nil {
			return err
		}
	}
	return nil
}

func invalidYield(y *ir.Yield) error {
	return ir.Structural(y, "invalid generator body: yield in expression position")
}

// CheckPlain rejects a yield in the body of a function that is not a
// generator.
func CheckPlain(body ir.Node, opts Options) error {
	if err := ir.CheckDepth(body, opts.MaxDepth); err != nil {
		return ir.InPass(err, passName)
	}
	var found *ir.Yield
	ir.Inspect(body, func(n ir.Node) bool {
		if found != nil {
			return false
		}
		switch n := n.(type) {
		case *ir.Yield:
			found = n
			return false
		case *ir.Lambda:
			return n == body
		}
		return true
	})
	if found != nil {
		return ir.InPass(ir.Structural(found, "yield outside generator"), passName)
	}
	return nil
}
