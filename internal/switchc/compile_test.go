package switchc_test

import (
	"errors"
	"testing"

	"cflow/internal/ir"
	"cflow/internal/switchc"
)

func cases(cs ...*ir.SwitchCase) []*ir.SwitchCase { return cs }

func caseOf(body []ir.Node, tests ...ir.Node) *ir.SwitchCase {
	return &ir.SwitchCase{Tests: tests, Body: body}
}

func defaultOf(body ...ir.Node) *ir.SwitchCase {
	return &ir.SwitchCase{Default: true, Body: body}
}

func stmt(tag string) []ir.Node {
	return []ir.Node{ir.CallOn(nil, "log", ir.TypeVoid, ir.Str(tag))}
}

func compileSwitch(t *testing.T, disc ir.Node, cs ...*ir.SwitchCase) *ir.NativeSwitch {
	t.Helper()
	out, err := switchc.Compile(&ir.Switch{Discriminant: disc, Cases: cs}, switchc.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ns, ok := out.(*ir.NativeSwitch)
	if !ok {
		t.Fatalf("expected native switch, got %T", out)
	}
	return ns
}

func testValues(c *ir.NativeCase) []any {
	var out []any
	for _, t := range c.Tests {
		if b, ok := t.(*ir.Box); ok {
			t = b.Operand
		}
		out = append(out, t.(*ir.Constant).Value)
	}
	return out
}

func equalValues(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestClassify(t *testing.T) {
	x := ir.NewVar("x", ir.TypeAny)
	tests := []struct {
		name  string
		tests []ir.Node
		want  ir.Strategy
	}{
		{"integers", []ir.Node{ir.Int(1), ir.Int(2), ir.Int(3)}, ir.CompareInt},
		{"integral floats", []ir.Node{ir.Float(1), ir.Float(2)}, ir.CompareInt},
		{"fraction", []ir.Node{ir.Int(1), ir.Float(2.5)}, ir.CompareFloat},
		{"strings", []ir.Node{ir.Str("a"), ir.Str("b")}, ir.CompareString},
		{"mixed", []ir.Node{ir.Int(1), ir.Str("b")}, ir.CompareGeneric},
		{"boolean", []ir.Node{ir.Bool(true)}, ir.CompareGeneric},
		{"expression", []ir.Node{ir.Int(1), x}, ir.CompareGeneric},
		{"empty", nil, ir.CompareInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 3 {
				got, err := switchc.Classify(tt.tests)
				if err != nil {
					t.Fatal(err)
				}
				if got != tt.want {
					t.Fatalf("Classify = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestClassifyRejectsUnknownLiterals(t *testing.T) {
	for _, lit := range []ir.Node{ir.Undefined(), &ir.Constant{Value: ir.Null}} {
		_, err := switchc.Classify([]ir.Node{ir.Int(1), lit})
		if !errors.Is(err, ir.ErrUnsupported) {
			t.Fatalf("%s: expected ErrUnsupported, got %v", ir.Format(lit), err)
		}
	}
}

func TestFallthroughGrouping(t *testing.T) {
	x := ir.NewVar("x", ir.TypeAny)
	ns := compileSwitch(t, x,
		caseOf(nil, ir.Int(1)),
		caseOf(stmt("body"), ir.Int(2)),
	)
	if len(ns.Cases) != 1 {
		t.Fatalf("groups = %d, want 1", len(ns.Cases))
	}
	if got := testValues(ns.Cases[0]); !equalValues(got, []any{int64(1), int64(2)}) {
		t.Fatalf("tests = %v", got)
	}
	if ns.Strategy != ir.CompareInt {
		t.Fatalf("strategy = %v", ns.Strategy)
	}
	conv, ok := ns.Discriminant.(*ir.Convert)
	if !ok || conv.Target != ir.TypeInt || conv.Operand != x {
		t.Fatalf("discriminant not converted to int: %s", ir.Format(ns.Discriminant))
	}
}

func TestGroupingIdempotentWhenEveryCaseHasBody(t *testing.T) {
	in := []*ir.SwitchCase{
		caseOf(stmt("a"), ir.Str("a")),
		caseOf(stmt("b"), ir.Str("b")),
		caseOf(stmt("c"), ir.Str("c")),
	}
	ns := compileSwitch(t, ir.NewVar("s", ir.TypeString), in...)
	if len(ns.Cases) != len(in) {
		t.Fatalf("groups = %d, want %d", len(ns.Cases), len(in))
	}
	for i, c := range ns.Cases {
		if got := testValues(c); !equalValues(got, []any{in[i].Tests[0].(*ir.Constant).Value}) {
			t.Errorf("group %d tests = %v", i, got)
		}
	}
	if _, ok := ns.Discriminant.(*ir.Variable); !ok {
		t.Errorf("string discriminant should not be converted: %s", ir.Format(ns.Discriminant))
	}
}

func TestTestsBeforeDefaultAreDropped(t *testing.T) {
	ns := compileSwitch(t, ir.Int(0),
		caseOf(nil, ir.Int(1)),
		defaultOf(stmt("d")...),
		caseOf(stmt("three"), ir.Int(3)),
	)
	if len(ns.Cases) != 1 {
		t.Fatalf("groups = %d, want 1", len(ns.Cases))
	}
	if got := testValues(ns.Cases[0]); !equalValues(got, []any{int64(3)}) {
		t.Fatalf("tests = %v", got)
	}
	if ns.Default == nil {
		t.Fatal("default body missing")
	}
}

func TestTrailingEmptyGroupKept(t *testing.T) {
	ns := compileSwitch(t, ir.Int(0),
		caseOf(stmt("one"), ir.Int(1)),
		caseOf(nil, ir.Int(2)),
		caseOf(nil, ir.Int(3)),
	)
	if len(ns.Cases) != 2 {
		t.Fatalf("groups = %d, want 2", len(ns.Cases))
	}
	last := ns.Cases[1]
	if got := testValues(last); !equalValues(got, []any{int64(2), int64(3)}) {
		t.Fatalf("tests = %v", got)
	}
	if len(last.Body.(*ir.Block).Stmts) != 0 {
		t.Fatal("trailing group should have an empty body")
	}
}

func TestGenericSwitch(t *testing.T) {
	x := ir.NewVar("x", ir.TypeAny)
	ns := compileSwitch(t, x,
		caseOf(stmt("one"), ir.Int(1)),
		caseOf(stmt("b"), ir.Str("b")),
	)
	if ns.Strategy != ir.CompareGeneric || ns.Equals != switchc.DefaultEqualsMethod {
		t.Fatalf("strategy = %v equals = %q", ns.Strategy, ns.Equals)
	}
	for _, c := range ns.Cases {
		if _, ok := c.Tests[0].(*ir.Box); !ok {
			t.Fatalf("generic test not boxed: %s", ir.Format(c.Tests[0]))
		}
	}
	if ns.Discriminant != ir.Node(x) {
		t.Fatalf("dynamic discriminant should be kept: %s", ir.Format(ns.Discriminant))
	}

	out, err := switchc.Compile(&ir.Switch{
		Discriminant: x,
		Cases:        cases(caseOf(stmt("t"), ir.Bool(true))),
	}, switchc.Options{EqualsMethod: "LooseEquals"})
	if err != nil {
		t.Fatal(err)
	}
	if eq := out.(*ir.NativeSwitch).Equals; eq != "LooseEquals" {
		t.Fatalf("equals = %q", eq)
	}
}

func TestStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		cases []*ir.SwitchCase
	}{
		{"two defaults", cases(defaultOf(), caseOf(stmt("a"), ir.Int(1)), defaultOf())},
		{"case without tests", cases(&ir.SwitchCase{Body: stmt("a")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := switchc.Compile(&ir.Switch{Discriminant: ir.Int(1), Cases: tt.cases}, switchc.Options{})
			if !errors.Is(err, ir.ErrStructural) {
				t.Fatalf("expected structural error, got %v", err)
			}
		})
	}
}

func TestBreakContinueResolution(t *testing.T) {
	brk, cont := ir.NewLabel("brk"), ir.NewLabel("cont")
	loop := &ir.Loop{
		Break:    brk,
		Continue: cont,
		Body: ir.Seq(
			&ir.Switch{
				Discriminant: ir.Int(1),
				Cases: cases(
					caseOf([]ir.Node{ir.Break()}, ir.Int(1)),
					caseOf([]ir.Node{ir.Continue()}, ir.Int(2)),
				),
			},
			ir.Break(),
		),
	}
	out, stats, err := switchc.CompileWithStats(loop, switchc.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.JumpsBound != 3 || stats.Switches != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	body := out.(*ir.Loop).Body.(*ir.Block)
	ns := body.Stmts[0].(*ir.NativeSwitch)
	if g := ns.Cases[0].Body.(*ir.Block).Stmts[0].(*ir.Goto); g.Target != ns.Break {
		t.Errorf("break in switch bound to %v", g.Target)
	}
	if g := ns.Cases[1].Body.(*ir.Block).Stmts[0].(*ir.Goto); g.Target != cont {
		t.Errorf("continue in switch should skip to the loop, got %v", g.Target)
	}
	if g := body.Stmts[1].(*ir.Goto); g.Target != brk {
		t.Errorf("break in loop bound to %v", g.Target)
	}
	if err := ir.Validate(out, ir.ValidateOptions{}); err != nil {
		t.Fatalf("compiled tree invalid: %v", err)
	}
}

func TestJumpsWithoutScope(t *testing.T) {
	tests := []struct {
		name string
		body ir.Node
	}{
		{"bare break", ir.Seq(ir.Break())},
		{"continue in switch only", &ir.Switch{
			Discriminant: ir.Int(1),
			Cases:        cases(caseOf([]ir.Node{ir.Continue()}, ir.Int(1))),
		}},
		{"break across lambda", &ir.Loop{
			Break:    ir.NewLabel("b"),
			Continue: ir.NewLabel("c"),
			Body:     &ir.Lambda{Name: "f", Body: ir.Seq(ir.Break())},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := switchc.Compile(tt.body, switchc.Options{})
			if !errors.Is(err, ir.ErrStructural) {
				t.Fatalf("expected structural error, got %v", err)
			}
		})
	}
}

func TestLowerChain(t *testing.T) {
	x := ir.NewVar("x", ir.TypeInt)
	ns := compileSwitch(t, x,
		caseOf(nil, ir.Int(1)),
		caseOf(stmt("low"), ir.Int(2)),
		caseOf(stmt("three"), ir.Int(3)),
		defaultOf(stmt("other")...),
	)
	brk := ns.Break
	chain := switchc.LowerChain(ns)
	if len(chain.Vars) != 1 {
		t.Fatalf("chain temporaries = %d", len(chain.Vars))
	}
	conds := 0
	for _, s := range chain.Stmts {
		if _, ok := s.(*ir.Conditional); ok {
			conds++
		}
	}
	if conds != 2 {
		t.Fatalf("comparisons = %d, want 2", conds)
	}
	last := chain.Stmts[len(chain.Stmts)-1].(*ir.Label)
	if last.Target != brk {
		t.Fatal("chain must end at the break label")
	}
	if err := ir.Validate(chain, ir.ValidateOptions{Vars: []*ir.Variable{x}}); err != nil {
		t.Fatal(err)
	}
}
