package vm

import (
	"errors"
	"io"

	"cflow/internal/ir"
	"cflow/internal/source"
)

// DefaultMaxIterations bounds the iterations of a single loop.
const DefaultMaxIterations = 1 << 20

// Options configures evaluation.
type Options struct {
	MaxDepth      int
	MaxIterations int
	Trace         *Tracer
	// Out receives the output of the log builtin.
	Out io.Writer
}

// Evaluator interprets lowered IR directly. It is not safe for concurrent
// use.
type Evaluator struct {
	ir.Traverser[Value]

	env           *env
	stack         []callFrame
	span          source.Span
	maxIterations int
	trace         *Tracer
	out           io.Writer
	builtins      map[string]Builtin
	eb            *errorBuilder

	// Log collects the arguments of every log call, rendered as strings.
	Log []string
}

type callFrame struct {
	name string
	span source.Span
}

// env is one lexical scope. Closures keep the scope they were created in.
type env struct {
	vars   map[*ir.Variable]*Value
	parent *env
}

func newEnv(parent *env) *env {
	return &env{vars: make(map[*ir.Variable]*Value), parent: parent}
}

func (e *env) declare(v *ir.Variable, val Value) {
	slot := val
	e.vars[v] = &slot
}

func (e *env) lookup(v *ir.Variable) *Value {
	for s := e; s != nil; s = s.parent {
		if slot, ok := s.vars[v]; ok {
			return slot
		}
	}
	return nil
}

// New creates an evaluator with the default builtins.
func New(opts Options) *Evaluator {
	ev := &Evaluator{
		env:           newEnv(nil),
		maxIterations: opts.MaxIterations,
		trace:         opts.Trace,
		out:           opts.Out,
		builtins:      defaultBuiltins(),
	}
	if ev.maxIterations <= 0 {
		ev.maxIterations = DefaultMaxIterations
	}
	ev.eb = &errorBuilder{ev: ev}
	ev.Init(ev, opts.MaxDepth)
	return ev
}

// Visit evaluates n, tracking the current source position for errors.
func (e *Evaluator) Visit(n ir.Node) (Value, error) {
	if n != nil {
		if sp := n.Span(); !sp.IsZero() {
			e.span = sp
		}
	}
	return e.Traverser.Visit(n)
}

// Eval evaluates n in the evaluator's global scope.
func (e *Evaluator) Eval(n ir.Node) (Value, error) {
	v, err := e.Visit(n)
	if err != nil {
		var j *jump
		if errors.As(err, &j) {
			return Undefined(), e.eb.jumpEscaped(j.target.Name)
		}
		return Undefined(), err
	}
	return v, nil
}

// Define binds a variable in the global scope.
func (e *Evaluator) Define(v *ir.Variable, val Value) {
	e.env.declare(v, val)
}

// CallFunction evaluates a plain function body directly. A jump to the
// function's return label completes the call with the jump's value.
func (e *Evaluator) CallFunction(f *ir.Function, args ...Value) (Value, error) {
	saved := e.env
	e.env = newEnv(saved)
	defer func() { e.env = saved }()
	for i, p := range f.Params {
		arg := Undefined()
		if i < len(args) {
			arg = args[i]
		}
		e.env.declare(p, arg)
	}
	if f.Args != nil {
		e.env.declare(f.Args, MakeArray(args))
	}
	if f.Context != nil {
		e.env.declare(f.Context, MakeObject(&Object{Class: "Context"}))
	}
	e.stack = append(e.stack, callFrame{name: f.Name, span: f.Loc})
	defer func() { e.stack = e.stack[:len(e.stack)-1] }()

	v, err := e.Visit(f.Body)
	if err != nil {
		var j *jump
		if errors.As(err, &j) {
			if j.target == f.Return && f.Return != nil {
				return j.value, nil
			}
			return Undefined(), e.eb.jumpEscaped(j.target.Name)
		}
		return Undefined(), err
	}
	return v, nil
}

// Call invokes a function value.
func (e *Evaluator) Call(fn Value, args ...Value) (Value, error) {
	c, ok := fn.Ref.(*Closure)
	if fn.Kind != VKFunc || !ok {
		return Undefined(), e.eb.typeMismatch("func", fn)
	}
	lam := c.Lambda
	e.trace.TraceCall(len(e.stack), lam, args)

	saved := e.env
	e.env = newEnv(c.env)
	defer func() { e.env = saved }()
	for i, p := range lam.Params {
		arg := Undefined()
		if i < len(args) {
			arg = args[i]
		}
		e.env.declare(p, arg)
	}
	e.stack = append(e.stack, callFrame{name: lam.Name, span: lam.Span()})
	defer func() { e.stack = e.stack[:len(e.stack)-1] }()

	v, err := e.Visit(lam.Body)
	if err != nil {
		var j *jump
		if errors.As(err, &j) {
			return Undefined(), e.eb.jumpEscaped(j.target.Name)
		}
		return Undefined(), err
	}
	return v, nil
}
