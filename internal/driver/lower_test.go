package driver_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cflow/internal/diag"
	"cflow/internal/driver"
	"cflow/internal/ir"
	"cflow/internal/source"
	"cflow/internal/vm"
)

func counter() *ir.Function {
	body := ir.Seq(ir.YieldOf(ir.Int(1)), ir.YieldOf(ir.Int(2)))
	return &ir.Function{Name: "count", Loc: source.At("m.cf", 1, 1), Generator: true, Body: body, Return: ir.NewLabel("ret")}
}

func classify() *ir.Function {
	n := ir.NewVar("n", ir.TypeInt)
	ret := ir.NewLabel("ret")
	body := ir.Seq(&ir.Switch{Discriminant: n, Cases: []*ir.SwitchCase{
		{Tests: []ir.Node{ir.Int(1)}, Body: []ir.Node{ir.Ret(ret, ir.Str("one"))}},
		{Default: true, Body: []ir.Node{ir.Ret(ret, ir.Str("other"))}},
	}})
	return &ir.Function{Name: "classify", Loc: source.At("m.cf", 5, 1), Params: []*ir.Variable{n}, Body: body, Return: ret}
}

func badGenerator() *ir.Function {
	x := ir.NewVar("x", ir.TypeAny)
	body := ir.Scope([]*ir.Variable{x},
		ir.WithSpan(ir.Set(x, ir.Bin(ir.OpAdd, ir.WithSpan(ir.YieldOf(ir.Int(1)), source.At("m.cf", 9, 12)), ir.Int(2))), source.At("m.cf", 9, 3)))
	return &ir.Function{Name: "bad", Loc: source.At("m.cf", 8, 1), Generator: true, Body: body}
}

func lower(t *testing.T, m *ir.Module, opts driver.Options) *driver.Result {
	t.Helper()
	res, err := driver.LowerModule(context.Background(), m, opts)
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}
	return res
}

func TestLowerModule_LowersEveryFunction(t *testing.T) {
	m := &ir.Module{Name: "m", Funcs: []*ir.Function{counter(), classify()}}
	before := ir.Format(m.Funcs[1].Body)
	res := lower(t, m, driver.Options{Jobs: 2})

	if res.Rejected() != 0 || res.Bag.Len() != 0 {
		t.Fatalf("unexpected rejections:\n%s", diag.FormatShort(res.Bag.Items()))
	}
	if got := ir.Format(m.Funcs[1].Body); got != before {
		t.Fatalf("input module was modified")
	}
	if len(res.Module.Funcs) != 2 || res.Module.Funcs[0].Name != "count" || res.Module.Funcs[1].Name != "classify" {
		t.Fatalf("unexpected output order")
	}

	gen := res.Module.Funcs[0]
	step, ok := gen.Body.(*ir.Lambda)
	if !ok || !gen.Lowered || !gen.Generator {
		t.Fatalf("generator not lowered to a step function: %T lowered=%v", gen.Body, gen.Lowered)
	}
	if res.Funcs[0].Generator.Yields != 2 {
		t.Fatalf("generator stats = %+v", res.Funcs[0].Generator)
	}

	plain := res.Module.Funcs[1]
	if res.Funcs[1].Switch.Switches != 1 {
		t.Fatalf("switch stats = %+v", res.Funcs[1].Switch)
	}
	ir.Inspect(plain.Body, func(n ir.Node) bool {
		if _, ok := n.(*ir.Switch); ok {
			t.Fatalf("structured switch left in lowered body")
		}
		return true
	})

	ev := vm.New(vm.Options{})
	g, err := ev.StartGenerator(step)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	vals, err := g.Drain(10)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(vals) != 2 || !vm.StrictEquals(vals[0], vm.MakeInt(1)) || !vm.StrictEquals(vals[1], vm.MakeInt(2)) {
		t.Fatalf("drained %v", vals)
	}
	for arg, want := range map[int64]string{1: "one", 7: "other"} {
		v, err := ev.CallFunction(plain, vm.MakeInt(arg))
		if err != nil {
			t.Fatalf("classify(%d): %v", arg, err)
		}
		if !vm.StrictEquals(v, vm.MakeString(want)) {
			t.Fatalf("classify(%d) = %s, want %q", arg, v, want)
		}
	}
}

func TestLowerModule_RejectsOnlyTheFailingFunction(t *testing.T) {
	m := &ir.Module{Funcs: []*ir.Function{badGenerator(), classify()}}
	res := lower(t, m, driver.Options{})

	if res.Rejected() != 1 || len(res.Module.Funcs) != 1 || res.Module.Funcs[0].Name != "classify" {
		t.Fatalf("expected only bad to be rejected, got %d rejected", res.Rejected())
	}
	items := res.Bag.Items()
	if len(items) != 1 {
		t.Fatalf("expected one diagnostic, got:\n%s", diag.FormatShort(items))
	}
	d := items[0]
	if d.Code != diag.LowStructural || d.Func != "bad" || d.Primary != source.At("m.cf", 9, 12) {
		t.Fatalf("unexpected diagnostic %s", diag.ShortLine(d))
	}
	if !strings.Contains(d.Message, "yield in expression position") {
		t.Fatalf("message %q", d.Message)
	}
}

func TestLowerModule_FailFast(t *testing.T) {
	m := &ir.Module{Funcs: []*ir.Function{badGenerator(), classify(), counter()}}
	res, err := driver.LowerModule(context.Background(), m, driver.Options{FailFast: true, Jobs: 1})
	if !errors.Is(err, ir.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if res == nil || !res.Bag.HasErrors() {
		t.Fatalf("fail-fast result must still carry the diagnostic")
	}
}

func TestLowerModule_RecursionGuard(t *testing.T) {
	var body ir.Node = ir.Int(1)
	for i := 0; i < 20; i++ {
		body = ir.Seq(body)
	}
	m := &ir.Module{Funcs: []*ir.Function{{Name: "deep", Body: body}}}
	res := lower(t, m, driver.Options{MaxDepth: 8})
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.LowTooDeep {
		t.Fatalf("expected a recursion diagnostic, got:\n%s", diag.FormatShort(items))
	}
}

func TestLowerModule_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &ir.Module{Funcs: []*ir.Function{counter(), classify()}}
	res, err := driver.LowerModule(ctx, m, driver.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Rejected() != 2 {
		t.Fatalf("expected both functions skipped, got %d", res.Rejected())
	}
	for _, d := range res.Bag.Items() {
		if d.Code != diag.LowCancelled {
			t.Fatalf("unexpected diagnostic %s", diag.ShortLine(d))
		}
	}
}

func TestLowerModule_AlreadyLoweredPassesThrough(t *testing.T) {
	first := lower(t, &ir.Module{Funcs: []*ir.Function{counter()}}, driver.Options{})
	second := lower(t, first.Module, driver.Options{})
	if second.Module.Funcs[0] != first.Module.Funcs[0] {
		t.Fatalf("lowered function was lowered again")
	}
}

func TestLowerModule_ProgressEvents(t *testing.T) {
	ch := make(chan driver.Event, 64)
	m := &ir.Module{Funcs: []*ir.Function{counter(), badGenerator()}}
	lower(t, m, driver.Options{Progress: driver.ChannelSink{Ch: ch}})
	close(ch)

	final := map[string]driver.Status{}
	var module driver.Status
	for ev := range ch {
		if ev.Func == "" {
			module = ev.Status
			continue
		}
		if ev.Stage == "" {
			final[ev.Func] = ev.Status
		}
	}
	if final["count"] != driver.StatusDone || final["bad"] != driver.StatusError {
		t.Fatalf("final statuses %v", final)
	}
	if module != driver.StatusDone {
		t.Fatalf("module status %q", module)
	}
}
