package ir

// Children returns the direct child nodes of n in evaluation order. Variable
// and label back-references are not children.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch n := n.(type) {
	case *Block:
		add(n.Stmts...)
	case *Call:
		add(n.Receiver)
		add(n.Args...)
	case *Binary:
		add(n.Left, n.Right)
	case *Unary:
		add(n.Operand)
	case *Conditional:
		add(n.Test, n.Then, n.Else)
	case *Assign:
		add(n.Target, n.Value)
	case *New:
		add(n.Args...)
	case *Field:
		add(n.Target)
	case *Property:
		add(n.Target)
	case *Index:
		add(n.Target)
		add(n.Args...)
	case *NewArray:
		add(n.Elems...)
	case *Goto:
		add(n.Value)
	case *Label:
		add(n.Default)
	case *Return:
		add(n.Value)
	case *Loop:
		add(n.Body)
	case *Lambda:
		add(n.Body)
	case *TypeIs:
		add(n.Operand)
	case *TypeAs:
		add(n.Operand)
	case *TryCatchFinally:
		add(n.Try)
		if n.Catch != nil {
			add(n.Catch.Body)
		}
		add(n.Finally)
	case *Throw:
		add(n.Value)
	case *Convert:
		add(n.Operand)
	case *Invoke:
		add(n.Target)
		add(n.Args...)
	case *MemberInit:
		for _, b := range n.Bindings {
			add(b.Value)
		}
	case *Coalesce:
		add(n.Left, n.Right)
	case *Switch:
		add(n.Discriminant)
		for _, c := range n.Cases {
			add(c.Tests...)
			add(c.Body...)
		}
	case *Yield:
		add(n.Argument)
	case *Box:
		add(n.Operand)
	case *Unbox:
		add(n.Operand)
	case *JumpSwitch:
		add(n.Index)
	case *NativeSwitch:
		add(n.Discriminant)
		for _, c := range n.Cases {
			add(c.Tests...)
			add(c.Body)
		}
		add(n.Default)
	}
	return out
}

// Inspect walks the tree in depth-first order calling f for every node.
// Children of n are skipped when f returns false.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// CheckDepth fails with a RecursionTooDeep error when n nests deeper than
// limit levels. A non-positive limit means DefaultMaxDepth. The walk stops at
// the limit, so walks that run after a successful check are bounded too.
func CheckDepth(n Node, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	return checkDepth(n, 1, limit)
}

func checkDepth(n Node, depth, limit int) error {
	if n == nil {
		return nil
	}
	if depth > limit {
		return TooDeep(n, limit)
	}
	for _, c := range Children(n) {
		if err := checkDepth(c, depth+1, limit); err != nil {
			return err
		}
	}
	return nil
}

// HasYield reports whether a yield occurs in n's subtree. Nested lambdas are
// separate functions and are not searched.
func HasYield(n Node) bool {
	found := false
	Inspect(n, func(c Node) bool {
		if found {
			return false
		}
		switch c.(type) {
		case *Yield:
			found = true
			return false
		case *Lambda:
			return c == n
		}
		return true
	})
	return found
}

// CountNodes returns the number of nodes in n's subtree.
func CountNodes(n Node) int {
	count := 0
	Inspect(n, func(Node) bool {
		count++
		return true
	})
	return count
}
