package ir_test

import (
	"testing"

	"cflow/internal/ir"
)

func sampleBody() (ir.Node, *ir.Variable, *ir.LabelTarget) {
	x := ir.NewVar("x", ir.TypeInt)
	brk := ir.NewLabel("brk")
	body := ir.Scope([]*ir.Variable{x},
		ir.Set(x, ir.Int(1)),
		&ir.Loop{
			Body: ir.Seq(
				ir.If(ir.Bin(ir.OpGreater, x, ir.Int(3)), ir.Jump(brk), nil),
				ir.Set(x, ir.Bin(ir.OpAdd, x, ir.Int(1))),
			),
			Break:    brk,
			Continue: ir.NewLabel("cont"),
		},
	)
	return body, x, brk
}

func TestRewriterCopiesTree(t *testing.T) {
	body, x, brk := sampleBody()
	out, err := ir.NewRewriter(0).Visit(body)
	if err != nil {
		t.Fatal(err)
	}
	if out == body {
		t.Fatal("rewriter returned the input node")
	}
	if got, want := ir.Format(out), ir.Format(body); got != want {
		t.Fatalf("copy differs:\n%s\nwant:\n%s", got, want)
	}

	blk := out.(*ir.Block)
	if blk.Vars[0] != x {
		t.Error("declared variable lost its identity")
	}
	assign := blk.Stmts[0].(*ir.Assign)
	if assign.Target != x {
		t.Error("variable reference lost its identity")
	}
	loop := blk.Stmts[1].(*ir.Loop)
	if loop.Break != brk {
		t.Error("loop break label lost its identity")
	}
	jump := loop.Body.(*ir.Block).Stmts[0].(*ir.Conditional).Then.(*ir.Goto)
	if jump.Target != brk {
		t.Error("goto target lost its identity")
	}
	if body.(*ir.Block).Stmts[1] == blk.Stmts[1] {
		t.Error("loop node shared between input and output")
	}
}

func TestRewriterKeepsSpans(t *testing.T) {
	in := ir.WithSpan(ir.Set(ir.NewVar("y", ir.TypeAny), ir.Str("s")), spanAt(4, 2))
	out, err := ir.NewRewriter(0).Visit(in)
	if err != nil {
		t.Fatal(err)
	}
	if out.Span() != in.Span() {
		t.Fatalf("span = %v, want %v", out.Span(), in.Span())
	}
}

func TestHasYieldSkipsLambdas(t *testing.T) {
	inner := &ir.Lambda{Name: "inner", Body: ir.Seq(ir.YieldOf(ir.Int(1)))}
	if ir.HasYield(ir.Seq(inner)) {
		t.Error("yield inside nested lambda counted for the outer body")
	}
	if !ir.HasYield(inner) {
		t.Error("HasYield on the lambda itself should search its body")
	}
	if !ir.HasYield(ir.Seq(ir.Set(ir.NewVar("v", ir.TypeAny), ir.YieldOf(nil)))) {
		t.Error("yield in assignment not found")
	}
}

func TestCountNodes(t *testing.T) {
	body, _, _ := sampleBody()
	// block, assign, x, 1, loop, block, cond, binary, x, 3, goto, assign, x, binary, x, 1
	if got := ir.CountNodes(body); got != 16 {
		t.Fatalf("CountNodes = %d, want 16", got)
	}
}
