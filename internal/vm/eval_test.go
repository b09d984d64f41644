package vm_test

import (
	"errors"
	"math"
	"testing"

	"cflow/internal/ir"
	"cflow/internal/switchc"
	"cflow/internal/vm"
)

func eval(t *testing.T, ev *vm.Evaluator, n ir.Node) vm.Value {
	t.Helper()
	v, err := ev.Eval(n)
	if err != nil {
		t.Fatalf("eval %s: %v", ir.Format(n), err)
	}
	return v
}

func TestBinaryOperators(t *testing.T) {
	tests := []struct {
		name string
		expr ir.Node
		want vm.Value
	}{
		{"add ints", ir.Bin(ir.OpAdd, ir.Int(2), ir.Int(3)), vm.MakeInt(5)},
		{"add overflows to float", ir.Bin(ir.OpAdd, ir.Int(math.MaxInt64), ir.Int(1)), vm.MakeFloat(math.Exp2(63))},
		{"concat", ir.Bin(ir.OpAdd, ir.Str("a"), ir.Int(1)), vm.MakeString("a1")},
		{"divide", ir.Bin(ir.OpDiv, ir.Int(7), ir.Int(2)), vm.MakeFloat(3.5)},
		{"strict equal across kinds", ir.Bin(ir.OpStrictEqual, ir.Int(1), ir.Float(1)), vm.MakeBool(true)},
		{"strict not equal", ir.Bin(ir.OpStrictNotEqual, ir.Int(1), ir.Str("1")), vm.MakeBool(true)},
		{"loose equal", ir.Bin(ir.OpEqual, ir.Int(1), ir.Str("1")), vm.MakeBool(true)},
		{"less", ir.Bin(ir.OpLess, ir.Int(1), ir.Float(1.5)), vm.MakeBool(true)},
		{"and short-circuits", ir.Bin(ir.OpAndAlso, ir.Bool(false), &ir.Throw{Value: ir.Str("x")}), vm.MakeBool(false)},
		{"or short-circuits", ir.Bin(ir.OpOrElse, ir.Int(4), &ir.Throw{Value: ir.Str("x")}), vm.MakeInt(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eval(t, vm.New(vm.Options{}), tt.expr)
			if !vm.StrictEquals(got, tt.want) || got.Kind != tt.want.Kind {
				t.Fatalf("got %s (%s), want %s (%s)", got, got.Kind, tt.want, tt.want.Kind)
			}
		})
	}
}

func TestPropertyOfNullThrows(t *testing.T) {
	ev := vm.New(vm.Options{})
	_, err := ev.Eval(&ir.Property{Target: &ir.Constant{Value: ir.NullValue{}}, Name: "x"})
	var thrown *vm.Thrown
	if !errors.As(err, &thrown) {
		t.Fatalf("expected thrown exception, got %v", err)
	}
}

func TestTryCatchFinallyEvaluation(t *testing.T) {
	e := ir.NewVar("e", ir.TypeAny)
	ev := vm.New(vm.Options{})
	eval(t, ev, &ir.TryCatchFinally{
		Try:     ir.Seq(logCall(ir.Str("try")), &ir.Throw{Value: ir.Str("err")}, logCall(ir.Str("skipped"))),
		Catch:   &ir.Catch{Var: e, Body: logCall(e)},
		Finally: logCall(ir.Str("finally")),
	})
	expectLog(t, ev, "try", "err", "finally")
}

func TestLoopIterationLimit(t *testing.T) {
	ev := vm.New(vm.Options{MaxIterations: 10})
	_, err := ev.Eval(&ir.Loop{Body: ir.Seq()})
	var vmErr *vm.VMError
	if !errors.As(err, &vmErr) || vmErr.Code != vm.PanicIterationLimit {
		t.Fatalf("expected iteration limit, got %v", err)
	}
}

func TestJumpEscapingIsReported(t *testing.T) {
	ev := vm.New(vm.Options{})
	_, err := ev.Eval(ir.Jump(ir.NewLabel("nowhere")))
	var vmErr *vm.VMError
	if !errors.As(err, &vmErr) || vmErr.Code != vm.PanicJumpEscaped {
		t.Fatalf("expected escaped jump, got %v", err)
	}
}

func TestUnboundVariable(t *testing.T) {
	ev := vm.New(vm.Options{})
	_, err := ev.Eval(ir.NewVar("ghost", ir.TypeAny))
	var vmErr *vm.VMError
	if !errors.As(err, &vmErr) || vmErr.Code != vm.PanicUnboundVariable {
		t.Fatalf("expected unbound variable, got %v", err)
	}
}

func TestBlockGotoLoop(t *testing.T) {
	i := ir.NewVar("i", ir.TypeInt)
	top, end := ir.NewLabel("top"), ir.NewLabel("end")
	ev := vm.New(vm.Options{})
	got := eval(t, ev, ir.Scope([]*ir.Variable{i},
		ir.Set(i, ir.Int(0)),
		ir.Mark(top),
		ir.If(ir.Bin(ir.OpGreaterEqual, i, ir.Int(4)), ir.Jump(end), nil),
		ir.Set(i, ir.Bin(ir.OpAdd, i, ir.Int(1))),
		ir.Jump(top),
		ir.Mark(end),
		i,
	))
	if !vm.StrictEquals(got, vm.MakeInt(4)) {
		t.Fatalf("got %s, want 4", got)
	}
}

func TestNativeSwitchMatchesChain(t *testing.T) {
	build := func() *ir.NativeSwitch {
		x := ir.NewVar("x", ir.TypeAny)
		out, err := switchc.Compile(&ir.Switch{
			Discriminant: x,
			Cases: []*ir.SwitchCase{
				{Tests: []ir.Node{ir.Int(1)}},
				{Tests: []ir.Node{ir.Int(2)}, Body: []ir.Node{logCall(ir.Str("one or two")), ir.Break()}},
				{Tests: []ir.Node{ir.Int(3)}, Body: []ir.Node{logCall(ir.Str("three"))}},
				{Default: true, Body: []ir.Node{logCall(ir.Str("default"))}},
			},
		}, switchc.Options{})
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		return out.(*ir.NativeSwitch)
	}
	run := func(n ir.Node, disc *ir.Variable, v vm.Value) []string {
		ev := vm.New(vm.Options{})
		ev.Define(disc, v)
		eval(t, ev, n)
		return ev.Log
	}
	for _, v := range []vm.Value{vm.MakeInt(1), vm.MakeInt(2), vm.MakeInt(3), vm.MakeInt(4), vm.MakeFloat(2)} {
		native := build()
		disc := discriminantVar(t, native)
		want := run(native, disc, v)

		chained := build()
		got := run(switchc.LowerChain(chained), discriminantVar(t, chained), v)
		if len(got) != 1 || len(want) != 1 || got[0] != want[0] {
			t.Fatalf("disc %s: chain logged %q, native logged %q", v, got, want)
		}
	}
}

func discriminantVar(t *testing.T, n *ir.NativeSwitch) *ir.Variable {
	t.Helper()
	var found *ir.Variable
	ir.Inspect(n.Discriminant, func(x ir.Node) bool {
		if v, ok := x.(*ir.Variable); ok {
			found = v
		}
		return true
	})
	if found == nil {
		t.Fatalf("no variable in discriminant %s", ir.Format(n.Discriminant))
	}
	return found
}

func TestGenericSwitchUsesEqualsBuiltin(t *testing.T) {
	x := ir.NewVar("x", ir.TypeAny)
	out, err := switchc.Compile(&ir.Switch{
		Discriminant: x,
		Cases: []*ir.SwitchCase{
			{Tests: []ir.Node{ir.Int(1), ir.Str("one")}, Body: []ir.Node{logCall(ir.Str("hit"))}},
		},
	}, switchc.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ev := vm.New(vm.Options{})
	calls := 0
	ev.Register(switchc.DefaultEqualsMethod, func(_ *vm.Evaluator, args []vm.Value) (vm.Value, error) {
		calls++
		return vm.MakeBool(vm.StrictEquals(args[0], args[1])), nil
	})
	ev.Define(x, vm.MakeString("one"))
	eval(t, ev, out)
	expectLog(t, ev, "hit")
	if calls != 2 {
		t.Fatalf("equals called %d times, want 2", calls)
	}
}
