package vm

import (
	"errors"

	"cflow/internal/ir"
)

// jump is a transfer of control to a label. It propagates as an error until
// the block, loop or switch that owns the label catches it.
type jump struct {
	target   *ir.LabelTarget
	value    Value
	hasValue bool
}

func (j *jump) Error() string { return "jump to " + j.target.Name }

func asJump(err error) (*jump, bool) {
	j, ok := err.(*jump)
	return j, ok
}

func (e *Evaluator) visitList(list []ir.Node) ([]Value, error) {
	out := make([]Value, 0, len(list))
	for _, n := range list {
		v, err := e.Visit(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Evaluator) VisitBlock(n *ir.Block) (Value, error) {
	saved := e.env
	e.env = newEnv(saved)
	defer func() { e.env = saved }()
	for _, v := range n.Vars {
		e.env.declare(v, Undefined())
	}

	var labels map[*ir.LabelTarget]int
	for i, s := range n.Stmts {
		if l, ok := s.(*ir.Label); ok {
			if labels == nil {
				labels = make(map[*ir.LabelTarget]int)
			}
			labels[l.Target] = i
		}
	}

	last := Undefined()
	backJumps := 0
	for i := 0; i < len(n.Stmts); {
		v, err := e.Visit(n.Stmts[i])
		if err == nil {
			last = v
			i++
			continue
		}
		j, ok := asJump(err)
		if !ok {
			return Undefined(), err
		}
		pos, ok := labels[j.target]
		if !ok {
			return Undefined(), err
		}
		if pos <= i {
			backJumps++
			if backJumps > e.maxIterations {
				return Undefined(), e.eb.iterationLimit(e.maxIterations)
			}
		}
		last, err = e.arrive(n.Stmts[pos].(*ir.Label), j)
		if err != nil {
			return Undefined(), err
		}
		i = pos + 1
	}
	return last, nil
}

// arrive yields the value of a label reached by a jump.
func (e *Evaluator) arrive(l *ir.Label, j *jump) (Value, error) {
	if j.hasValue {
		return j.value, nil
	}
	if l.Default != nil {
		return e.Visit(l.Default)
	}
	return Undefined(), nil
}

func (e *Evaluator) VisitConstant(n *ir.Constant) (Value, error) {
	return FromConstant(n.Value), nil
}

func (e *Evaluator) VisitConditional(n *ir.Conditional) (Value, error) {
	test, err := e.Visit(n.Test)
	if err != nil {
		return Undefined(), err
	}
	if Truthy(test) {
		return e.Visit(n.Then)
	}
	return e.Visit(n.Else)
}

func (e *Evaluator) VisitAssign(n *ir.Assign) (Value, error) {
	switch t := n.Target.(type) {
	case *ir.Variable:
		slot := e.env.lookup(t)
		if slot == nil {
			return Undefined(), e.eb.unbound(t.Name)
		}
		val, err := e.Visit(n.Value)
		if err != nil {
			return Undefined(), err
		}
		*slot = val
		return val, nil
	case *ir.Field:
		obj, err := e.Visit(t.Target)
		if err != nil {
			return Undefined(), err
		}
		val, err := e.Visit(n.Value)
		if err != nil {
			return Undefined(), err
		}
		return val, e.setField(obj, t.Name, val)
	case *ir.Property:
		obj, err := e.Visit(t.Target)
		if err != nil {
			return Undefined(), err
		}
		val, err := e.Visit(n.Value)
		if err != nil {
			return Undefined(), err
		}
		return val, e.setProperty(obj, t.Name, val)
	case *ir.Index:
		obj, err := e.Visit(t.Target)
		if err != nil {
			return Undefined(), err
		}
		keys, err := e.visitList(t.Args)
		if err != nil {
			return Undefined(), err
		}
		val, err := e.Visit(n.Value)
		if err != nil {
			return Undefined(), err
		}
		return val, e.setIndex(obj, keys, val)
	}
	return Undefined(), e.eb.unimplemented("assignment to " + n.Target.Kind().String())
}

func (e *Evaluator) VisitVariable(n *ir.Variable) (Value, error) {
	slot := e.env.lookup(n)
	if slot == nil {
		return Undefined(), e.eb.unbound(n.Name)
	}
	return *slot, nil
}

func (e *Evaluator) VisitGoto(n *ir.Goto) (Value, error) {
	if n.Target == nil {
		return Undefined(), e.eb.unimplemented("unresolved " + n.Jump.String())
	}
	j := &jump{target: n.Target}
	if n.Value != nil {
		v, err := e.Visit(n.Value)
		if err != nil {
			return Undefined(), err
		}
		j.value, j.hasValue = v, true
	}
	return Undefined(), j
}

func (e *Evaluator) VisitLabel(n *ir.Label) (Value, error) {
	if n.Default != nil {
		return e.Visit(n.Default)
	}
	return Undefined(), nil
}

func (e *Evaluator) VisitReturn(n *ir.Return) (Value, error) {
	if n.Target == nil {
		return Undefined(), e.eb.unimplemented("return without target")
	}
	v := Undefined()
	if n.Value != nil {
		var err error
		if v, err = e.Visit(n.Value); err != nil {
			return Undefined(), err
		}
	}
	return Undefined(), &jump{target: n.Target, value: v, hasValue: true}
}

func (e *Evaluator) VisitLoop(n *ir.Loop) (Value, error) {
	for iter := 0; ; iter++ {
		if iter >= e.maxIterations {
			return Undefined(), e.eb.iterationLimit(e.maxIterations)
		}
		_, err := e.Visit(n.Body)
		if err == nil {
			continue
		}
		if j, ok := asJump(err); ok {
			if n.Break != nil && j.target == n.Break {
				return j.value, nil
			}
			if n.Continue != nil && j.target == n.Continue {
				continue
			}
		}
		return Undefined(), err
	}
}

func (e *Evaluator) VisitLambda(n *ir.Lambda) (Value, error) {
	return MakeFunc(&Closure{Lambda: n, env: e.env}), nil
}

func (e *Evaluator) VisitTypeIs(n *ir.TypeIs) (Value, error) {
	v, err := e.Visit(n.Operand)
	if err != nil {
		return Undefined(), err
	}
	return MakeBool(IsType(v, n.Test)), nil
}

func (e *Evaluator) VisitTypeAs(n *ir.TypeAs) (Value, error) {
	v, err := e.Visit(n.Operand)
	if err != nil {
		return Undefined(), err
	}
	if IsType(v, n.Target) {
		return v, nil
	}
	return Null(), nil
}

// VisitTryCatchFinally catches script exceptions only. The finally clause
// also runs when a jump leaves the try statement.
func (e *Evaluator) VisitTryCatchFinally(n *ir.TryCatchFinally) (Value, error) {
	v, err := e.Visit(n.Try)
	var thrown *Thrown
	if err != nil && n.Catch != nil && errors.As(err, &thrown) {
		saved := e.env
		e.env = newEnv(saved)
		if n.Catch.Var != nil {
			e.env.declare(n.Catch.Var, thrown.Value)
		}
		v, err = e.Visit(n.Catch.Body)
		e.env = saved
	}
	if n.Finally != nil {
		if _, ferr := e.Visit(n.Finally); ferr != nil {
			return Undefined(), ferr
		}
	}
	return v, err
}

func (e *Evaluator) VisitThrow(n *ir.Throw) (Value, error) {
	v, err := e.Visit(n.Value)
	if err != nil {
		return Undefined(), err
	}
	return Undefined(), &Thrown{Value: v, Span: n.Span()}
}

func (e *Evaluator) VisitConvert(n *ir.Convert) (Value, error) {
	v, err := e.Visit(n.Operand)
	if err != nil {
		return Undefined(), err
	}
	return Convert(v, n.Target), nil
}

func (e *Evaluator) VisitInvoke(n *ir.Invoke) (Value, error) {
	fn, err := e.Visit(n.Target)
	if err != nil {
		return Undefined(), err
	}
	args, err := e.visitList(n.Args)
	if err != nil {
		return Undefined(), err
	}
	return e.Call(fn, args...)
}

func (e *Evaluator) VisitEmpty(*ir.Empty) (Value, error) {
	return Undefined(), nil
}

func (e *Evaluator) VisitCoalesce(n *ir.Coalesce) (Value, error) {
	left, err := e.Visit(n.Left)
	if err != nil {
		return Undefined(), err
	}
	if !left.IsNullish() {
		return left, nil
	}
	return e.Visit(n.Right)
}

func (e *Evaluator) VisitSwitch(*ir.Switch) (Value, error) {
	return Undefined(), e.eb.unimplemented("switch must be compiled before evaluation")
}

func (e *Evaluator) VisitYield(*ir.Yield) (Value, error) {
	return Undefined(), e.eb.unimplemented("yield outside a rewritten generator")
}

func (e *Evaluator) VisitDebugInfo(*ir.DebugInfo) (Value, error) {
	return Undefined(), nil
}

func (e *Evaluator) VisitBox(n *ir.Box) (Value, error) {
	return e.Visit(n.Operand)
}

func (e *Evaluator) VisitUnbox(n *ir.Unbox) (Value, error) {
	v, err := e.Visit(n.Operand)
	if err != nil {
		return Undefined(), err
	}
	return Convert(v, n.Target), nil
}

func (e *Evaluator) VisitJumpSwitch(n *ir.JumpSwitch) (Value, error) {
	idx, err := e.Visit(n.Index)
	if err != nil {
		return Undefined(), err
	}
	target := n.Default
	if i := ToInt(idx); i >= 0 && i < int64(len(n.Cases)) {
		target = n.Cases[i]
	}
	if target == nil {
		return Undefined(), nil
	}
	return Undefined(), &jump{target: target}
}

// VisitNativeSwitch evaluates the discriminant once and runs the body of the
// first group with a matching test, or the default body. Bodies do not fall
// through.
func (e *Evaluator) VisitNativeSwitch(n *ir.NativeSwitch) (Value, error) {
	disc, err := e.Visit(n.Discriminant)
	if err != nil {
		return Undefined(), err
	}
	body := n.Default
match:
	for _, c := range n.Cases {
		for _, t := range c.Tests {
			tv, err := e.Visit(t)
			if err != nil {
				return Undefined(), err
			}
			eq, err := e.caseEquals(n, disc, tv)
			if err != nil {
				return Undefined(), err
			}
			if eq {
				body = c.Body
				break match
			}
		}
	}
	v, err := e.Visit(body)
	if err != nil {
		if j, ok := asJump(err); ok && n.Break != nil && j.target == n.Break {
			return j.value, nil
		}
		return Undefined(), err
	}
	return v, nil
}

func (e *Evaluator) caseEquals(n *ir.NativeSwitch, disc, test Value) (bool, error) {
	if n.Strategy != ir.CompareGeneric {
		return StrictEquals(disc, test), nil
	}
	method := n.Equals
	if method == "" {
		method = "StrictEquals"
	}
	v, err := e.callBuiltin(method, []Value{disc, test})
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}
