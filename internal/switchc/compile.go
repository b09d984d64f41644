// Package switchc lowers structured switches into native switches whose
// comparison strategy is chosen from the static types of the case tests,
// and resolves unlabeled break and continue jumps.
package switchc

import (
	"cflow/internal/ir"
	"cflow/internal/source"
)

// DefaultEqualsMethod is the run-time equality used by generic switches.
const DefaultEqualsMethod = "StrictEquals"

// Options configures a compilation.
type Options struct {
	MaxDepth int
	// EqualsMethod names the host equality method for generic switches.
	EqualsMethod string
}

// Stats counts what a compilation did.
type Stats struct {
	Switches   int
	Groups     int
	Generic    int
	JumpsBound int
}

// Compile returns a copy of n with every Switch replaced by a NativeSwitch
// and every unresolved break/continue bound to its scope.
func Compile(n ir.Node, opts Options) (ir.Node, error) {
	out, _, err := CompileWithStats(n, opts)
	return out, err
}

// CompileWithStats is Compile reporting statistics.
func CompileWithStats(n ir.Node, opts Options) (ir.Node, Stats, error) {
	c := newCompiler(opts)
	out, err := c.Visit(n)
	if err != nil {
		return nil, c.stats, ir.InPass(err, "switch")
	}
	return out, c.stats, nil
}

// scope is one break/continue target frame. Switch frames have no
// continue label.
type scope struct {
	brk  *ir.LabelTarget
	cont *ir.LabelTarget
}

type compiler struct {
	ir.Rewriter
	equals string
	scopes []scope
	stats  Stats
}

func newCompiler(opts Options) *compiler {
	c := &compiler{equals: opts.EqualsMethod}
	if c.equals == "" {
		c.equals = DefaultEqualsMethod
	}
	c.Init(c, opts.MaxDepth)
	return c
}

func (c *compiler) push(s scope) { c.scopes = append(c.scopes, s) }
func (c *compiler) pop()         { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *compiler) VisitLoop(n *ir.Loop) (ir.Node, error) {
	brk, cont := n.Break, n.Continue
	if brk == nil {
		brk = ir.NewLabel("loop_break")
	}
	if cont == nil {
		cont = ir.NewLabel("loop_continue")
	}
	c.push(scope{brk: brk, cont: cont})
	body, err := c.Visit(n.Body)
	c.pop()
	if err != nil {
		return nil, err
	}
	return &ir.Loop{Meta: n.Meta, Body: body, Break: brk, Continue: cont}, nil
}

func (c *compiler) VisitLambda(n *ir.Lambda) (ir.Node, error) {
	saved := c.scopes
	c.scopes = nil
	out, err := c.Rewriter.VisitLambda(n)
	c.scopes = saved
	return out, err
}

func (c *compiler) VisitGoto(n *ir.Goto) (ir.Node, error) {
	if n.Resolved() {
		return c.Rewriter.VisitGoto(n)
	}
	value, err := c.Visit(n.Value)
	if err != nil {
		return nil, err
	}
	target, err := c.resolve(n)
	if err != nil {
		return nil, err
	}
	c.stats.JumpsBound++
	return &ir.Goto{Meta: n.Meta, Jump: n.Jump, Target: target, Value: value}, nil
}

func (c *compiler) resolve(n *ir.Goto) (*ir.LabelTarget, error) {
	switch n.Jump {
	case ir.JumpBreak:
		if len(c.scopes) == 0 {
			return nil, ir.Structural(n, "break outside loop or switch")
		}
		return c.scopes[len(c.scopes)-1].brk, nil
	case ir.JumpContinue:
		for i := len(c.scopes) - 1; i >= 0; i-- {
			if c.scopes[i].cont != nil {
				return c.scopes[i].cont, nil
			}
		}
		return nil, ir.Structural(n, "continue outside loop")
	}
	return nil, ir.Structural(n, "goto without target")
}

// group is a run of case tests sharing one body.
type group struct {
	tests []ir.Node
	body  []ir.Node
}

// groupCases merges consecutive empty-bodied cases into the next case with
// a body and extracts the default clause. Tests pending directly before the
// default clause can only reach the default body and are dropped.
func groupCases(n *ir.Switch) (groups []group, def []ir.Node, hasDefault bool, err error) {
	var pending []ir.Node
	for _, sc := range n.Cases {
		if sc.Default {
			if hasDefault {
				return nil, nil, false, ir.StructuralAt(spanOf(sc, n), "switch has more than one default clause")
			}
			if len(sc.Tests) > 0 {
				return nil, nil, false, ir.StructuralAt(spanOf(sc, n), "default clause has tests")
			}
			hasDefault = true
			def = sc.Body
			pending = nil
			continue
		}
		if len(sc.Tests) == 0 {
			return nil, nil, false, ir.StructuralAt(spanOf(sc, n), "case clause without tests")
		}
		pending = append(pending, sc.Tests...)
		if len(sc.Body) > 0 {
			groups = append(groups, group{tests: pending, body: sc.Body})
			pending = nil
		}
	}
	if len(pending) > 0 {
		groups = append(groups, group{tests: pending})
	}
	return groups, def, hasDefault, nil
}

func spanOf(sc *ir.SwitchCase, n *ir.Switch) source.Span {
	if !sc.Loc.IsZero() {
		return sc.Loc
	}
	return n.Span()
}

func (c *compiler) VisitSwitch(n *ir.Switch) (ir.Node, error) {
	groups, defBody, hasDefault, err := groupCases(n)
	if err != nil {
		return nil, err
	}
	var all []ir.Node
	for _, g := range groups {
		all = append(all, g.tests...)
	}
	strategy, err := Classify(all)
	if err != nil {
		return nil, err
	}

	disc, err := c.Visit(n.Discriminant)
	if err != nil {
		return nil, err
	}

	brk := ir.NewLabel("switch_break")
	c.push(scope{brk: brk})
	defer c.pop()

	out := &ir.NativeSwitch{
		Meta:         n.Meta,
		Break:        brk,
		Discriminant: convertDiscriminant(disc, strategy),
		Strategy:     strategy,
	}
	if strategy == ir.CompareGeneric {
		out.Equals = c.equals
		c.stats.Generic++
	}
	for _, g := range groups {
		tests, err := c.VisitList(g.tests)
		if err != nil {
			return nil, err
		}
		for i, t := range tests {
			tests[i] = convertTest(t, strategy)
		}
		body, err := c.VisitList(g.body)
		if err != nil {
			return nil, err
		}
		out.Cases = append(out.Cases, &ir.NativeCase{Tests: tests, Body: ir.Seq(body...)})
	}
	if hasDefault {
		body, err := c.VisitList(defBody)
		if err != nil {
			return nil, err
		}
		out.Default = ir.Seq(body...)
	}
	c.stats.Switches++
	c.stats.Groups += len(out.Cases)
	return out, nil
}
