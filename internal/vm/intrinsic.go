package vm

import (
	"fmt"
	"strings"
)

// Builtin is a host function reachable through a receiver-less call.
type Builtin func(ev *Evaluator, args []Value) (Value, error)

func defaultBuiltins() map[string]Builtin {
	return map[string]Builtin{
		"StrictEquals": func(_ *Evaluator, args []Value) (Value, error) {
			a, b := pair(args)
			return MakeBool(StrictEquals(a, b)), nil
		},
		"LooseEquals": func(_ *Evaluator, args []Value) (Value, error) {
			a, b := pair(args)
			return MakeBool(LooseEquals(a, b)), nil
		},
		"log": builtinLog,
	}
}

func pair(args []Value) (Value, Value) {
	a, b := Undefined(), Undefined()
	if len(args) > 0 {
		a = args[0]
	}
	if len(args) > 1 {
		b = args[1]
	}
	return a, b
}

func builtinLog(ev *Evaluator, args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	line := strings.Join(parts, " ")
	ev.Log = append(ev.Log, line)
	if ev.out != nil {
		if _, err := fmt.Fprintln(ev.out, line); err != nil {
			return Undefined(), err
		}
	}
	return Undefined(), nil
}

// Register adds or replaces a builtin.
func (e *Evaluator) Register(name string, fn Builtin) {
	e.builtins[name] = fn
}

func (e *Evaluator) callBuiltin(name string, args []Value) (Value, error) {
	fn, ok := e.builtins[name]
	if !ok {
		return Undefined(), e.eb.unsupportedIntrinsic(name)
	}
	v, err := fn(e, args)
	e.trace.TraceIntrinsic(name, args, v)
	return v, err
}
