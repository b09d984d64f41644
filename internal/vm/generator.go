package vm

import (
	"errors"

	"cflow/internal/generator"
	"cflow/internal/ir"
)

type handlerRegion uint8

const (
	inTry handlerRegion = iota
	inCatch
	inFinally
)

// handlerFrame is the run-time state of one suspending try statement.
type handlerFrame struct {
	catchID   int
	finallyID int
	endID     int
	region    handlerRegion
	pending   *Thrown
}

// GeneratorState drives a rewritten step function. It owns the lifted
// variables and the handler frames that must survive between steps.
type GeneratorState struct {
	ev      *Evaluator
	name    string
	step    Value
	args    Value
	context Value

	cells  []*Cell
	frames []handlerFrame

	next      int
	started   bool
	done      bool
	returning bool
	retValue  Value
}

// NewGenerator binds a step function value to its call arguments.
func (e *Evaluator) NewGenerator(step Value, args ...Value) (*GeneratorState, error) {
	c, ok := step.Ref.(*Closure)
	if step.Kind != VKFunc || !ok {
		return nil, e.eb.typeMismatch("func", step)
	}
	return &GeneratorState{
		ev:      e,
		name:    c.Lambda.Name,
		step:    step,
		args:    MakeArray(args),
		context: MakeObject(&Object{Class: "Context"}),
	}, nil
}

// StartGenerator closes a step function lambda over the global scope and
// binds it to args.
func (e *Evaluator) StartGenerator(step *ir.Lambda, args ...Value) (*GeneratorState, error) {
	fn, err := e.Eval(step)
	if err != nil {
		return nil, err
	}
	return e.NewGenerator(fn, args...)
}

// Done reports whether the generator is exhausted.
func (g *GeneratorState) Done() bool { return g.done }

// Next resumes the generator, sending v as the value of the pending yield.
func (g *GeneratorState) Next(v Value) (Step, error) {
	if g.done {
		return Step{Value: Undefined(), ID: ir.TerminalID}, nil
	}
	g.started = true
	return g.run(g.next, v, Undefined())
}

// Throw raises exc at the pending yield.
func (g *GeneratorState) Throw(exc Value) (Step, error) {
	if g.done || !g.started {
		g.finish()
		return Step{Value: Undefined(), ID: ir.TerminalID}, &Thrown{Value: exc}
	}
	return g.run(g.next, Undefined(), exc)
}

// Drain resumes the generator until it is exhausted or limit steps have run
// and returns the yielded values.
func (g *GeneratorState) Drain(limit int) ([]Value, error) {
	var out []Value
	for i := 0; !g.done; i++ {
		if limit > 0 && i >= limit {
			return out, g.ev.eb.iterationLimit(limit)
		}
		s, err := g.Next(Undefined())
		if err != nil {
			return out, err
		}
		if !s.Done() {
			out = append(out, s.Value)
		}
	}
	return out, nil
}

func (g *GeneratorState) run(id int, v, exc Value) (Step, error) {
	for {
		res, err := g.ev.Call(g.step, MakeHost(g), g.args, MakeInt(int64(id)), v, exc)
		if err != nil {
			var t *Thrown
			if !errors.As(err, &t) {
				g.finish()
				return Step{}, err
			}
			target, val, ok := g.route(t)
			g.ev.trace.TraceRoute(g.name, t.Value, target)
			if !ok {
				g.finish()
				return Step{Value: Undefined(), ID: ir.TerminalID}, t
			}
			id, v, exc = target, Undefined(), val
			continue
		}
		s, ok := res.Ref.(*Step)
		if res.Kind != VKStep || !ok {
			g.finish()
			return Step{}, g.ev.eb.typeMismatch("step", res)
		}
		g.ev.trace.TraceStep(g.name, id, *s)
		if s.Done() {
			g.finish()
		} else {
			g.next = s.ID
		}
		return *s, nil
	}
}

// route finds the handler for t: the catch clause of a frame still in its
// try region, else the finally clause of a frame not yet in it. Frames with
// no handler left are popped.
func (g *GeneratorState) route(t *Thrown) (int, Value, bool) {
	g.returning = false
	g.retValue = Undefined()
	for len(g.frames) > 0 {
		f := &g.frames[len(g.frames)-1]
		switch {
		case f.region == inTry && f.catchID != 0:
			f.region = inCatch
			return f.catchID, t.Value, true
		case f.region != inFinally && f.finallyID != 0:
			f.region = inFinally
			f.pending = t
			return f.finallyID, Undefined(), true
		}
		g.frames = g.frames[:len(g.frames)-1]
	}
	return 0, Undefined(), false
}

func (g *GeneratorState) finish() {
	g.done = true
	g.frames = nil
	g.returning = false
	g.retValue = Undefined()
}

func (g *GeneratorState) top(method string) (*handlerFrame, error) {
	if len(g.frames) == 0 {
		return nil, g.ev.eb.handlerState(method + " with no handler frame")
	}
	return &g.frames[len(g.frames)-1], nil
}

// GetField implements Host.
func (g *GeneratorState) GetField(name string) (Value, error) {
	if name == generator.FieldContext {
		return g.context, nil
	}
	return Undefined(), g.ev.eb.unsupportedIntrinsic("driver." + name)
}

// CallMethod implements Host.
func (g *GeneratorState) CallMethod(ev *Evaluator, name string, args []Value) (Value, error) {
	intArg := func(i int) int {
		if i < len(args) {
			return int(ToInt(args[i]))
		}
		return 0
	}
	switch name {
	case generator.MethodInitCells:
		if g.cells == nil {
			n := intArg(0)
			g.cells = make([]*Cell, n)
			for i := range g.cells {
				g.cells[i] = &Cell{}
			}
		}
		return Undefined(), nil
	case generator.MethodCell:
		i := intArg(0)
		if i < 0 || i >= len(g.cells) {
			return Undefined(), ev.eb.outOfBounds(i, len(g.cells))
		}
		return MakeCell(g.cells[i]), nil
	case generator.MethodPushTry:
		g.frames = append(g.frames, handlerFrame{
			catchID:   intArg(0),
			finallyID: intArg(1),
			endID:     intArg(2),
		})
		return Undefined(), nil
	case generator.MethodBeginCatch:
		f, err := g.top(name)
		if err != nil {
			return Undefined(), err
		}
		f.region = inCatch
		return Undefined(), nil
	case generator.MethodBeginFinally:
		f, err := g.top(name)
		if err != nil {
			return Undefined(), err
		}
		f.region = inFinally
		return Undefined(), nil
	case generator.MethodResolve:
		f, err := g.top(name)
		if err != nil {
			return Undefined(), err
		}
		if f.endID != intArg(0) {
			return Undefined(), ev.eb.handlerState("finally clause resolved against the wrong frame")
		}
		if t := f.pending; t != nil {
			g.frames = g.frames[:len(g.frames)-1]
			return Undefined(), t
		}
		return MakeBool(g.returning), nil
	case generator.MethodPopTry:
		if _, err := g.top(name); err != nil {
			return Undefined(), err
		}
		g.frames = g.frames[:len(g.frames)-1]
		return Undefined(), nil
	case generator.MethodDeferReturn:
		g.returning = true
		g.retValue = Undefined()
		if len(args) > 0 {
			g.retValue = args[0]
		}
		return Undefined(), nil
	case generator.MethodTakeReturn:
		v := g.retValue
		g.returning = false
		g.retValue = Undefined()
		return v, nil
	case generator.MethodUnwind:
		depth := intArg(0)
		if depth < 0 || depth > len(g.frames) {
			return Undefined(), ev.eb.handlerState("unwind past the handler stack")
		}
		g.frames = g.frames[:depth]
		return Undefined(), nil
	}
	return Undefined(), ev.eb.unsupportedIntrinsic("driver." + name)
}
