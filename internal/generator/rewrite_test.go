package generator_test

import (
	"errors"
	"strings"
	"testing"

	"cflow/internal/generator"
	"cflow/internal/ir"
)

func rewrite(t *testing.T, body ir.Node, ret *ir.LabelTarget, params ...*ir.Variable) (*ir.Lambda, generator.Stats) {
	t.Helper()
	lam, stats, err := generator.Rewrite(generator.Input{Name: "gen", Body: body, Return: ret, Params: params}, generator.Options{})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	return lam, stats
}

func TestRejectsYieldInExpressionPosition(t *testing.T) {
	x := ir.NewVar("x", ir.TypeAny)
	obj := ir.NewVar("obj", ir.TypeObject)
	tests := []struct {
		name string
		body ir.Node
	}{
		{"operand", ir.Seq(ir.Set(x, ir.Bin(ir.OpAdd, ir.YieldOf(ir.Int(1)), ir.Int(2))))},
		{"argument", ir.Seq(ir.CallOn(nil, "log", ir.TypeVoid, ir.YieldOf(ir.Int(1))))},
		{"field target", ir.Seq(ir.Set(&ir.Field{Target: obj, Name: "f"}, ir.YieldOf(ir.Int(1))))},
		{"condition", ir.Seq(ir.If(ir.YieldOf(ir.Bool(true)), ir.Int(1), nil))},
		{"nested yield", ir.Seq(ir.YieldOf(ir.YieldOf(ir.Int(1))))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := generator.Rewrite(generator.Input{Name: "gen", Body: tt.body}, generator.Options{})
			if !errors.Is(err, ir.ErrStructural) {
				t.Fatalf("expected structural error, got %v", err)
			}
			if !strings.Contains(err.Error(), "yield in expression position") {
				t.Fatalf("unexpected message: %v", err)
			}
			if !strings.HasPrefix(err.Error(), "[generator]") {
				t.Fatalf("error not tagged with the pass: %v", err)
			}
		})
	}
}

func TestCheckPlain(t *testing.T) {
	inner := &ir.Lambda{Name: "inner", Body: ir.Seq(ir.YieldOf(ir.Int(1)))}
	if err := generator.CheckPlain(ir.Seq(ir.Set(ir.NewVar("f", ir.TypeFunc), inner)), generator.Options{}); err != nil {
		t.Fatalf("nested lambda should not count: %v", err)
	}
	err := generator.CheckPlain(ir.Seq(ir.YieldOf(ir.Int(1))), generator.Options{})
	if !errors.Is(err, ir.ErrStructural) || !strings.Contains(err.Error(), "yield outside generator") {
		t.Fatalf("expected yield outside generator, got %v", err)
	}
}

func TestDeepBodyIsRejectedBeforeWalking(t *testing.T) {
	var deep ir.Node = ir.Int(1)
	for range 1_000_000 {
		deep = &ir.Unary{Op: ir.OpNot, Operand: deep}
	}
	body := ir.Seq(ir.YieldOf(deep))

	_, _, err := generator.Rewrite(generator.Input{Name: "gen", Body: body}, generator.Options{MaxDepth: 64})
	if !errors.Is(err, ir.ErrRecursionTooDeep) {
		t.Fatalf("Rewrite: expected ErrRecursionTooDeep, got %v", err)
	}
	if !strings.Contains(err.Error(), "[generator]") {
		t.Fatalf("error should name the pass: %v", err)
	}
	if err := generator.CheckPlain(ir.Seq(deep), generator.Options{}); !errors.Is(err, ir.ErrRecursionTooDeep) {
		t.Fatalf("CheckPlain: expected ErrRecursionTooDeep, got %v", err)
	}
}

func TestRejectsUncompiledSuspendingSwitch(t *testing.T) {
	body := ir.Seq(&ir.Switch{
		Discriminant: ir.Int(1),
		Cases:        []*ir.SwitchCase{{Tests: []ir.Node{ir.Int(1)}, Body: []ir.Node{ir.YieldOf(ir.Int(1))}}},
	})
	_, _, err := generator.Rewrite(generator.Input{Name: "gen", Body: body}, generator.Options{})
	if !errors.Is(err, ir.ErrUnsupported) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

func TestStepFunctionShape(t *testing.T) {
	a := ir.NewVar("a", ir.TypeInt)
	ret := ir.NewLabel("ret")
	body := ir.Seq(
		ir.YieldOf(a),
		&ir.TryCatchFinally{
			Try:     ir.YieldOf(ir.Int(2)),
			Finally: ir.CallOn(nil, "log", ir.TypeVoid, ir.Str("f")),
		},
		ir.Ret(ret, ir.Int(3)),
	)
	before := ir.Format(body)
	lam, stats := rewrite(t, body, ret, a)

	if got := ir.Format(body); got != before {
		t.Fatalf("input modified:\n%s\nwas:\n%s", got, before)
	}
	if err := ir.Validate(lam, ir.ValidateOptions{}); err != nil {
		t.Fatalf("invalid step function: %v\n%s", err, ir.Format(lam))
	}
	if len(lam.Params) != 5 || lam.Result != ir.TypeStep {
		t.Fatalf("unexpected signature: %d params, result %s", len(lam.Params), lam.Result)
	}
	want := generator.Stats{Yields: 2, ResumeIDs: 4, Cells: 1, Frames: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func TestResumeLabelsAreTopLevel(t *testing.T) {
	i := ir.NewVar("i", ir.TypeInt)
	ret := ir.NewLabel("ret")
	brk := ir.NewLabel("brk")
	body := ir.Scope([]*ir.Variable{i},
		ir.Set(i, ir.Int(0)),
		&ir.Loop{
			Break: brk,
			Body: ir.Seq(
				ir.If(ir.Bin(ir.OpGreaterEqual, i, ir.Int(2)), ir.Jump(brk), nil),
				ir.If(ir.Bin(ir.OpEqual, i, ir.Int(0)),
					ir.YieldOf(ir.Str("zero")),
					ir.YieldOf(i)),
				ir.Set(i, ir.Bin(ir.OpAdd, i, ir.Int(1))),
			),
		},
	)
	lam, stats := rewrite(t, body, ret)
	if stats.Lowered != 2 {
		t.Fatalf("lowered %d constructs, want 2", stats.Lowered)
	}

	top := lam.Body.(*ir.Block)
	direct := make(map[*ir.LabelTarget]bool)
	for _, s := range top.Stmts {
		if l, ok := s.(*ir.Label); ok {
			direct[l.Target] = true
		}
	}
	table := findJumpTable(t, top)
	for _, l := range table.Cases {
		if !direct[l] {
			t.Fatalf("resume target %s is not a top-level label", l.Name)
		}
	}
	ir.Inspect(top, func(n ir.Node) bool {
		if y, ok := n.(*ir.Yield); ok {
			t.Fatalf("yield left in output: %s", ir.Format(y))
		}
		return true
	})
}

func findJumpTable(t *testing.T, b *ir.Block) *ir.JumpSwitch {
	t.Helper()
	for _, s := range b.Stmts {
		if js, ok := s.(*ir.JumpSwitch); ok {
			return js
		}
	}
	t.Fatalf("no jump table in step function")
	return nil
}

func TestJumpTableIsDense(t *testing.T) {
	start, exhausted := ir.NewLabel("start"), ir.NewLabel("exhausted")
	r1, r3, r4 := ir.NewLabel("r1"), ir.NewLabel("r3"), ir.NewLabel("r4")
	table := generator.BuildJumpTable(ir.Int(0), start, exhausted, map[int]*ir.LabelTarget{1: r1, 3: r3, 4: r4})

	want := []*ir.LabelTarget{exhausted, start, r1, exhausted, r3, r4}
	if len(table.Cases) != len(want) {
		t.Fatalf("table has %d slots, want %d", len(table.Cases), len(want))
	}
	for i := range want {
		if table.Cases[i] != want[i] {
			t.Fatalf("slot %d = %s, want %s", i, table.Cases[i].Name, want[i].Name)
		}
	}
	if table.Default != exhausted {
		t.Fatalf("default = %s, want exhausted", table.Default.Name)
	}
}

func TestUnwindOnJumpOutOfSuspendingTry(t *testing.T) {
	ret := ir.NewLabel("ret")
	out := ir.NewLabel("out")
	body := ir.Seq(
		&ir.TryCatchFinally{
			Try:   ir.Seq(ir.YieldOf(ir.Int(1)), ir.Jump(out)),
			Catch: &ir.Catch{Body: ir.Seq()},
		},
		ir.Mark(out),
	)
	lam, _ := rewrite(t, body, ret)
	unwinds := 0
	ir.Inspect(lam, func(n ir.Node) bool {
		if c, ok := n.(*ir.Call); ok && c.Method == generator.MethodUnwind {
			unwinds++
			if v := c.Args[0].(*ir.Constant).Value; v != int64(0) {
				t.Fatalf("unwind depth %v, want 0", v)
			}
		}
		return true
	})
	if unwinds != 1 {
		t.Fatalf("found %d unwinds, want 1", unwinds)
	}
}
