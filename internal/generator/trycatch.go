package generator

import (
	"cflow/internal/ir"
)

type region uint8

const (
	regionTry region = iota
	regionCatch
	regionFinally
)

// frame is the static view of a suspending try statement being rewritten.
// The driver keeps the matching run-time frame.
type frame struct {
	finally *ir.LabelTarget
	region  region
}

// deferTarget returns the index of the innermost frame below limit whose
// finally clause a return must run, or -1.
func (r *rewriter) deferTarget(limit int) int {
	for i := limit - 1; i >= 0; i-- {
		f := r.frames[i]
		if f.finally != nil && f.region != regionFinally {
			return i
		}
	}
	return -1
}

// VisitTryCatchFinally lowers a suspending try statement:
//
//	PushTry(catchID, finallyID, endID)
//	try body; goto finally (or end)
//	catch: BeginCatch; e = pendingException; catch body; goto finally (or end)
//	finally: BeginFinally; finally body; if Resolve(endID) { continue return }
//	end: PopTry
//
// The catch, finally and end labels are resume targets: the driver enters
// them when an exception escapes a step.
func (r *rewriter) VisitTryCatchFinally(n *ir.TryCatchFinally) (ir.Node, error) {
	if r.lambdas > 0 || !ir.HasYield(n) {
		return r.Rewriter.VisitTryCatchFinally(n)
	}
	var (
		catchID, finallyID int
		catchL, finallyL   *ir.LabelTarget
		err                error
	)
	if n.Catch != nil {
		if catchID, catchL, err = r.nextResume("catch"); err != nil {
			return nil, err
		}
		if err := r.lift(n.Catch.Var); err != nil {
			return nil, err
		}
	}
	if n.Finally != nil {
		if finallyID, finallyL, err = r.nextResume("finally"); err != nil {
			return nil, err
		}
	}
	endID, endL, err := r.nextResume("end_try")
	if err != nil {
		return nil, err
	}
	exit := endL
	if finallyL != nil {
		exit = finallyL
	}

	f := &frame{finally: finallyL, region: regionTry}
	r.frames = append(r.frames, f)
	r.stats.Frames++
	defer func() { r.frames = r.frames[:len(r.frames)-1] }()

	stmts := []ir.Node{
		ir.WithSpan(ir.CallOn(r.driver, MethodPushTry, ir.TypeVoid,
			ir.Int(int64(catchID)), ir.Int(int64(finallyID)), ir.Int(int64(endID))), n.Span()),
	}
	body, err := r.Visit(n.Try)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, body, ir.Jump(exit))

	if n.Catch != nil {
		f.region = regionCatch
		stmts = append(stmts, ir.Mark(catchL), ir.CallOn(r.driver, MethodBeginCatch, ir.TypeVoid))
		if n.Catch.Var != nil {
			stmts = append(stmts, ir.Set(r.cellValue(n.Catch.Var), r.pending))
		}
		body, err := r.Visit(n.Catch.Body)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, body, ir.Jump(exit))
	}

	if n.Finally != nil {
		f.region = regionFinally
		stmts = append(stmts, ir.Mark(finallyL), ir.CallOn(r.driver, MethodBeginFinally, ir.TypeVoid))
		body, err := r.Visit(n.Finally)
		if err != nil {
			return nil, err
		}
		resolve := ir.CallOn(r.driver, MethodResolve, ir.TypeBool, ir.Int(int64(endID)))
		stmts = append(stmts, body, ir.If(resolve, r.continueReturn(len(r.frames)-1), nil))
	}

	stmts = append(stmts, ir.Mark(endL), ir.CallOn(r.driver, MethodPopTry, ir.TypeVoid))
	return ir.Seq(stmts...), nil
}

// continueReturn carries a deferred return out of the finally clause of
// frame k: on to the next finally clause, or out of the generator.
func (r *rewriter) continueReturn(k int) ir.Node {
	j := r.deferTarget(k)
	if j < 0 {
		take := ir.CallOn(r.driver, MethodTakeReturn, ir.TypeAny)
		return ir.Ret(r.genRet, ir.StepResult(take, ir.TerminalID))
	}
	return ir.Seq(r.unwind(j+1), ir.Jump(r.frames[j].finally))
}

// labelDepths records, for every label the body defines, how many
// suspending try statements enclose it.
func labelDepths(body ir.Node) map[*ir.LabelTarget]int {
	depths := make(map[*ir.LabelTarget]int)
	set := func(l *ir.LabelTarget, d int) {
		if l != nil {
			depths[l] = d
		}
	}
	var walk func(n ir.Node, d int)
	walk = func(n ir.Node, d int) {
		switch n := n.(type) {
		case nil, *ir.Lambda:
			return
		case *ir.Label:
			set(n.Target, d)
		case *ir.Loop:
			set(n.Break, d)
			set(n.Continue, d)
		case *ir.NativeSwitch:
			set(n.Break, d)
		case *ir.TryCatchFinally:
			if ir.HasYield(n) {
				d++
			}
		}
		for _, c := range ir.Children(n) {
			walk(c, d)
		}
	}
	walk(body, 0)
	return depths
}
