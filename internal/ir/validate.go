package ir

import (
	"errors"
)

// ValidateOptions lists the labels and variables bound outside the tree,
// such as a function's parameters and return label.
type ValidateOptions struct {
	Labels   []*LabelTarget
	Vars     []*Variable
	MaxDepth int
	// SkipVars disables the declared-before-use check for variables.
	SkipVars bool
}

// Validate checks the structural invariants of a tree:
//   - every goto is resolved and its target is defined in the same or an
//     enclosing scope, and no label is defined twice;
//   - a switch has at most one default clause and every other clause has at
//     least one test; native switch groups have tests and a break label;
//   - every referenced variable is declared by an enclosing block, lambda,
//     catch clause or the options.
//
// All violations are reported, joined.
func Validate(n Node, opts ValidateOptions) error {
	max := opts.MaxDepth
	if max <= 0 {
		max = DefaultMaxDepth
	}
	v := &validator{
		defined:  make(map[*LabelTarget]bool),
		maxDepth: max,
		skipVars: opts.SkipVars,
	}
	root := make(map[*LabelTarget]bool, len(opts.Labels))
	for _, l := range opts.Labels {
		root[l] = true
	}
	v.labels = append(v.labels, root)
	vars := make(map[*Variable]bool, len(opts.Vars))
	for _, x := range opts.Vars {
		vars[x] = true
	}
	v.vars = append(v.vars, vars)
	v.walk(n)
	return errors.Join(v.errs...)
}

// ValidateFunction validates a function body against its own bindings.
func ValidateFunction(f *Function, maxDepth int) error {
	if f == nil {
		return nil
	}
	opts := ValidateOptions{MaxDepth: maxDepth}
	if f.Return != nil {
		opts.Labels = append(opts.Labels, f.Return)
	}
	opts.Vars = append(opts.Vars, f.Params...)
	for _, x := range []*Variable{f.Driver, f.Args, f.Context} {
		if x != nil {
			opts.Vars = append(opts.Vars, x)
		}
	}
	return Validate(f.Body, opts)
}

type validator struct {
	labels   []map[*LabelTarget]bool
	vars     []map[*Variable]bool
	defined  map[*LabelTarget]bool
	errs     []error
	depth    int
	maxDepth int
	tooDeep  bool
	skipVars bool
}

func (v *validator) fail(err *Error) {
	v.errs = append(v.errs, err)
}

func (v *validator) labelVisible(l *LabelTarget) bool {
	for i := len(v.labels) - 1; i >= 0; i-- {
		if v.labels[i][l] {
			return true
		}
	}
	return false
}

func (v *validator) varVisible(x *Variable) bool {
	for i := len(v.vars) - 1; i >= 0; i-- {
		if v.vars[i][x] {
			return true
		}
	}
	return false
}

func (v *validator) pushLabels(ls ...*LabelTarget) {
	scope := make(map[*LabelTarget]bool, len(ls))
	for _, l := range ls {
		if l != nil {
			scope[l] = true
		}
	}
	v.labels = append(v.labels, scope)
}

func (v *validator) popLabels() { v.labels = v.labels[:len(v.labels)-1] }

func (v *validator) pushVars(xs ...*Variable) {
	scope := make(map[*Variable]bool, len(xs))
	for _, x := range xs {
		if x != nil {
			scope[x] = true
		}
	}
	v.vars = append(v.vars, scope)
}

func (v *validator) popVars() { v.vars = v.vars[:len(v.vars)-1] }

func (v *validator) checkTarget(n Node, l *LabelTarget) {
	if l == nil {
		return
	}
	if !v.labelVisible(l) {
		v.fail(Structural(n, "jump target %q is not defined in an enclosing scope", l.Name))
	}
}

func (v *validator) walk(n Node) {
	if n == nil || v.tooDeep {
		return
	}
	if v.depth >= v.maxDepth {
		v.tooDeep = true
		v.fail(TooDeep(n, v.maxDepth))
		return
	}
	v.depth++
	defer func() { v.depth-- }()

	// Labels placed directly under n are visible to the whole subtree of n,
	// including jumps that precede them.
	var local []*LabelTarget
	for _, c := range Children(n) {
		if l, ok := c.(*Label); ok {
			if l.Target == nil {
				v.fail(Structural(l, "label without target"))
				continue
			}
			if v.defined[l.Target] {
				v.fail(Structural(l, "label %q defined more than once", l.Target.Name))
			}
			v.defined[l.Target] = true
			local = append(local, l.Target)
		}
	}
	v.pushLabels(local...)
	defer v.popLabels()

	switch n := n.(type) {
	case *Block:
		v.pushVars(n.Vars...)
		defer v.popVars()
	case *Variable:
		if !v.skipVars && !v.varVisible(n) {
			v.fail(Structural(n, "variable %q is not declared in an enclosing scope", n.Name))
		}
	case *Goto:
		if n.Target == nil {
			v.fail(Structural(n, "unresolved %s", n.Jump))
		}
		v.checkTarget(n, n.Target)
	case *Return:
		if n.Target == nil {
			v.fail(Structural(n, "return without target"))
		}
		v.checkTarget(n, n.Target)
	case *JumpSwitch:
		for _, l := range n.Cases {
			v.checkTarget(n, l)
		}
		v.checkTarget(n, n.Default)
	case *Loop:
		v.pushLabels(n.Break, n.Continue)
		defer v.popLabels()
	case *Lambda:
		// Jumps never cross a function boundary.
		saved := v.labels
		v.labels = nil
		v.pushLabels()
		v.pushVars(n.Params...)
		defer func() {
			v.popVars()
			v.labels = saved
		}()
	case *TryCatchFinally:
		v.walk(n.Try)
		if n.Catch != nil {
			v.pushVars(n.Catch.Var)
			v.walk(n.Catch.Body)
			v.popVars()
		}
		v.walk(n.Finally)
		return
	case *Switch:
		v.checkSwitch(n)
	case *NativeSwitch:
		if n.Break == nil {
			v.fail(Structural(n, "native switch without break label"))
		}
		for i, c := range n.Cases {
			if len(c.Tests) == 0 {
				v.fail(Structural(n, "native switch group %d has no tests", i))
			}
		}
		v.pushLabels(n.Break)
		defer v.popLabels()
	}

	for _, c := range Children(n) {
		v.walk(c)
	}
}

func (v *validator) checkSwitch(n *Switch) {
	seenDefault := false
	for _, c := range n.Cases {
		switch {
		case c.Default && seenDefault:
			v.fail(StructuralAt(c.Loc, "switch has more than one default clause"))
		case c.Default && len(c.Tests) > 0:
			v.fail(StructuralAt(c.Loc, "default clause has tests"))
		case !c.Default && len(c.Tests) == 0:
			v.fail(StructuralAt(c.Loc, "case clause without tests is not marked default"))
		}
		if c.Default {
			seenDefault = true
		}
	}
}
