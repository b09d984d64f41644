package generator

import (
	"strconv"

	"fortio.org/safecast"

	"cflow/internal/ir"
	"cflow/internal/switchc"
)

// nextResume allocates the next resume id and its label. Ids start at 1 and
// are dense.
func (r *rewriter) nextResume(name string) (int, *ir.LabelTarget, error) {
	id := len(r.resume) + 1
	if _, err := safecast.Conv[int32](id); err != nil {
		return 0, nil, ir.Unsupported(nil, "too many suspension points: %v", err)
	}
	label := ir.NewLabel(name + "_" + strconv.Itoa(id))
	r.resume = append(r.resume, label)
	return id, label, nil
}

// suspend emits the step that returns (value, id) followed by the label a
// resume with id continues at. A resume carrying an exception throws it at
// the suspension point.
func (r *rewriter) suspend(y *ir.Yield) ([]ir.Node, error) {
	arg, err := r.Visit(y.Argument)
	if err != nil {
		return nil, err
	}
	id, label, err := r.nextResume("resume")
	if err != nil {
		return nil, err
	}
	r.stats.Yields++
	return []ir.Node{
		ir.WithSpan(ir.Ret(r.genRet, ir.StepResult(arg, id)), y.Span()),
		ir.Mark(label),
		ir.If(
			ir.Bin(ir.OpStrictNotEqual, r.pending, ir.Undefined()),
			&ir.Throw{Value: r.pending},
			nil,
		),
	}, nil
}

// VisitYield handles a yield statement. Its resume value is discarded.
func (r *rewriter) VisitYield(n *ir.Yield) (ir.Node, error) {
	if r.lambdas > 0 {
		return r.Rewriter.VisitYield(n)
	}
	stmts, err := r.suspend(n)
	if err != nil {
		return nil, err
	}
	return ir.Seq(stmts...), nil
}

// VisitAssign handles v = yield e by storing the resume value.
func (r *rewriter) VisitAssign(n *ir.Assign) (ir.Node, error) {
	y, ok := n.Value.(*ir.Yield)
	if !ok || r.lambdas > 0 {
		return r.Rewriter.VisitAssign(n)
	}
	stmts, err := r.suspend(y)
	if err != nil {
		return nil, err
	}
	target, err := r.Visit(n.Target)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, ir.WithSpan(ir.Set(target, r.resumeValue), n.Span()))
	return ir.Seq(stmts...), nil
}

func (r *rewriter) VisitReturn(n *ir.Return) (ir.Node, error) {
	if r.lambdas > 0 || n.Target != r.ret {
		return r.Rewriter.VisitReturn(n)
	}
	if y, ok := n.Value.(*ir.Yield); ok {
		stmts, err := r.suspend(y)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, r.complete(r.resumeValue, n))
		return ir.Seq(stmts...), nil
	}
	value, err := r.Visit(n.Value)
	if err != nil {
		return nil, err
	}
	return r.complete(value, n), nil
}

// complete ends the generator with value. Inside the try or catch clause of
// a suspending try with a finally clause the return is deferred until the
// finally clauses between here and the function boundary have run.
func (r *rewriter) complete(value ir.Node, at ir.Node) ir.Node {
	if value == nil {
		value = ir.Undefined()
	}
	k := r.deferTarget(len(r.frames))
	if k < 0 {
		return ir.WithSpan(ir.Ret(r.genRet, ir.StepResult(value, ir.TerminalID)), at.Span())
	}
	var stmts []ir.Node
	if k+1 < len(r.frames) {
		stmts = append(stmts, r.unwind(k+1))
	}
	stmts = append(stmts,
		ir.WithSpan(ir.CallOn(r.driver, MethodDeferReturn, ir.TypeVoid, value), at.Span()),
		ir.Jump(r.frames[k].finally),
	)
	return ir.Seq(stmts...)
}

func (r *rewriter) unwind(depth int) ir.Node {
	return ir.CallOn(r.driver, MethodUnwind, ir.TypeVoid, ir.Int(int64(depth)))
}

func (r *rewriter) VisitGoto(n *ir.Goto) (ir.Node, error) {
	if r.lambdas > 0 {
		return r.Rewriter.VisitGoto(n)
	}
	if n.Target != nil && n.Target == r.ret {
		value, err := r.Visit(n.Value)
		if err != nil {
			return nil, err
		}
		return r.complete(value, n), nil
	}
	out, err := r.Rewriter.VisitGoto(n)
	if err != nil {
		return nil, err
	}
	depth, ok := r.labelDepth[n.Target]
	if !ok || depth >= len(r.frames) {
		return out, nil
	}
	return ir.Seq(r.unwind(depth), out), nil
}

// VisitLoop lowers a suspending loop to jumps so that its resume labels end
// up in the flat statement list.
func (r *rewriter) VisitLoop(n *ir.Loop) (ir.Node, error) {
	if r.lambdas > 0 || !ir.HasYield(n) {
		return r.Rewriter.VisitLoop(n)
	}
	brk, cont := n.Break, n.Continue
	if brk == nil {
		brk = ir.NewLabel("loop_break")
	}
	if cont == nil {
		cont = ir.NewLabel("loop_continue")
	}
	body, err := r.Visit(n.Body)
	if err != nil {
		return nil, err
	}
	r.stats.Lowered++
	return ir.WithSpan(ir.Seq(ir.Mark(cont), body, ir.Jump(cont), ir.Mark(brk)), n.Span()), nil
}

// VisitConditional lowers a suspending if statement to jumps.
func (r *rewriter) VisitConditional(n *ir.Conditional) (ir.Node, error) {
	if r.lambdas > 0 || !ir.HasYield(n) {
		return r.Rewriter.VisitConditional(n)
	}
	test, err := r.Visit(n.Test)
	if err != nil {
		return nil, err
	}
	then, err := r.Visit(n.Then)
	if err != nil {
		return nil, err
	}
	els, err := r.Visit(n.Else)
	if err != nil {
		return nil, err
	}
	end := ir.NewLabel("endif")
	skip := end
	if els != nil {
		skip = ir.NewLabel("else")
	}
	stmts := []ir.Node{
		ir.If(&ir.Unary{Op: ir.OpNot, Operand: test}, ir.Jump(skip), nil),
		then,
	}
	if els != nil {
		stmts = append(stmts, ir.Jump(end), ir.Mark(skip), els)
	}
	stmts = append(stmts, ir.Mark(end))
	r.stats.Lowered++
	return ir.WithSpan(ir.Seq(stmts...), n.Span()), nil
}

// VisitNativeSwitch lowers a suspending switch to its comparison chain.
func (r *rewriter) VisitNativeSwitch(n *ir.NativeSwitch) (ir.Node, error) {
	if r.lambdas > 0 || !ir.HasYield(n) {
		return r.Rewriter.VisitNativeSwitch(n)
	}
	r.stats.Lowered++
	return r.Visit(switchc.LowerChain(n))
}

func (r *rewriter) VisitSwitch(n *ir.Switch) (ir.Node, error) {
	if r.lambdas > 0 || !ir.HasYield(n) {
		return r.Rewriter.VisitSwitch(n)
	}
	return nil, ir.Unsupported(n, "suspending switch must be compiled before generator lowering")
}
