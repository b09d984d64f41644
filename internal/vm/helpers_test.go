package vm_test

import (
	"testing"

	"cflow/internal/generator"
	"cflow/internal/ir"
	"cflow/internal/vm"
)

func logCall(v ir.Node) ir.Node {
	return ir.CallOn(nil, "log", ir.TypeVoid, v)
}

func genFunc(name string, params []*ir.Variable, ret *ir.LabelTarget, body ir.Node) *ir.Function {
	return &ir.Function{Name: name, Generator: true, Params: params, Body: body, Return: ret}
}

func startGen(t *testing.T, ev *vm.Evaluator, f *ir.Function, args ...vm.Value) *vm.GeneratorState {
	t.Helper()
	lam, _, err := generator.RewriteFunction(f, generator.Options{})
	if err != nil {
		t.Fatalf("rewrite %s: %v", f.Name, err)
	}
	if err := ir.Validate(lam, ir.ValidateOptions{}); err != nil {
		t.Fatalf("validate %s: %v\n%s", f.Name, err, ir.Format(lam))
	}
	g, err := ev.StartGenerator(lam, args...)
	if err != nil {
		t.Fatalf("start %s: %v", f.Name, err)
	}
	return g
}

func next(t *testing.T, g *vm.GeneratorState, v vm.Value) vm.Step {
	t.Helper()
	s, err := g.Next(v)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	return s
}

func expectStep(t *testing.T, got vm.Step, value vm.Value, id int) {
	t.Helper()
	if !vm.StrictEquals(got.Value, value) || got.ID != id {
		t.Fatalf("step = %s, want (%s, %d)", got, value, id)
	}
}

func expectLog(t *testing.T, ev *vm.Evaluator, want ...string) {
	t.Helper()
	if len(ev.Log) != len(want) {
		t.Fatalf("log = %q, want %q", ev.Log, want)
	}
	for i := range want {
		if ev.Log[i] != want[i] {
			t.Fatalf("log = %q, want %q", ev.Log, want)
		}
	}
}
