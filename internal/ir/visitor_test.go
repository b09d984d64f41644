package ir_test

import (
	"errors"
	"testing"

	"cflow/internal/ir"
)

type bogus struct{ ir.Meta }

func (bogus) Kind() ir.Kind { return ir.KindInvalid }
func (bogus) Type() ir.Type { return ir.TypeVoid }

// kindCounter tallies a few kinds while the rewriter's defaults rebuild the
// rest of the tree.
type kindCounter struct {
	ir.Rewriter
	seen map[ir.Kind]int
}

func newKindCounter() *kindCounter {
	c := &kindCounter{seen: make(map[ir.Kind]int)}
	c.Init(c, 0)
	return c
}

func (c *kindCounter) VisitVariable(n *ir.Variable) (ir.Node, error) {
	c.seen[ir.KindVariable]++
	return c.Rewriter.VisitVariable(n)
}

func (c *kindCounter) VisitConstant(n *ir.Constant) (ir.Node, error) {
	c.seen[ir.KindConstant]++
	return c.Rewriter.VisitConstant(n)
}

func (c *kindCounter) VisitConditional(n *ir.Conditional) (ir.Node, error) {
	c.seen[ir.KindConditional]++
	return c.Rewriter.VisitConditional(n)
}

func TestDispatchUnsupportedKind(t *testing.T) {
	r := ir.NewRewriter(0)
	_, err := r.Visit(ir.Seq(&bogus{}))
	if !errors.Is(err, ir.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if ir.KindOf(err) != ir.KindUnsupported {
		t.Fatalf("KindOf = %v", ir.KindOf(err))
	}
}

func TestDispatchNilYieldsZero(t *testing.T) {
	r := ir.NewRewriter(0)
	out, err := r.Visit(nil)
	if err != nil || out != nil {
		t.Fatalf("Visit(nil) = %v, %v", out, err)
	}
}

func nest(depth int) ir.Node {
	var n ir.Node = ir.Int(1)
	for range depth {
		n = &ir.Unary{Op: ir.OpNegate, Operand: n}
	}
	return n
}

func TestTraverserDepthGuard(t *testing.T) {
	r := ir.NewRewriter(16)
	if _, err := r.Visit(nest(15)); err != nil {
		t.Fatalf("15 levels under a limit of 16: %v", err)
	}
	_, err := r.Visit(nest(40))
	if !errors.Is(err, ir.ErrRecursionTooDeep) {
		t.Fatalf("expected ErrRecursionTooDeep, got %v", err)
	}
	if r.Depth() != 0 {
		t.Fatalf("depth not unwound after failure: %d", r.Depth())
	}
}

func TestCheckDepthMatchesTraverser(t *testing.T) {
	if err := ir.CheckDepth(nest(15), 16); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ir.NewRewriter(16).Visit(nest(16)); !errors.Is(err, ir.ErrRecursionTooDeep) {
		t.Fatalf("traverser: expected ErrRecursionTooDeep, got %v", err)
	}
	if err := ir.CheckDepth(nest(16), 16); !errors.Is(err, ir.ErrRecursionTooDeep) {
		t.Fatalf("expected ErrRecursionTooDeep, got %v", err)
	}
	if err := ir.CheckDepth(nest(ir.DefaultMaxDepth+1), 0); !errors.Is(err, ir.ErrRecursionTooDeep) {
		t.Fatalf("default limit: expected ErrRecursionTooDeep, got %v", err)
	}
}

func TestTraverserDefaultLimit(t *testing.T) {
	r := ir.NewRewriter(0)
	if r.MaxDepth() != ir.DefaultMaxDepth {
		t.Fatalf("MaxDepth = %d, want %d", r.MaxDepth(), ir.DefaultMaxDepth)
	}
	if _, err := r.Visit(nest(ir.DefaultMaxDepth + 10)); !errors.Is(err, ir.ErrRecursionTooDeep) {
		t.Fatalf("expected ErrRecursionTooDeep, got %v", err)
	}
}

func TestOverrideReachedThroughRecursion(t *testing.T) {
	c := newKindCounter()
	x := ir.NewVar("x", ir.TypeInt)
	body := ir.Scope([]*ir.Variable{x},
		ir.Set(x, ir.Int(1)),
		ir.If(ir.Bin(ir.OpLess, x, ir.Int(2)), ir.Set(x, ir.Int(3)), nil),
	)
	if _, err := c.Visit(body); err != nil {
		t.Fatal(err)
	}
	if c.seen[ir.KindVariable] != 3 {
		t.Errorf("variables visited = %d, want 3", c.seen[ir.KindVariable])
	}
	if c.seen[ir.KindConstant] != 3 {
		t.Errorf("constants visited = %d, want 3", c.seen[ir.KindConstant])
	}
	if c.seen[ir.KindConditional] != 1 {
		t.Errorf("conditionals visited = %d, want 1", c.seen[ir.KindConditional])
	}
}

func TestErrorMessageAndPass(t *testing.T) {
	y := ir.WithSpan(ir.YieldOf(ir.Int(1)), spanAt(3, 7))
	err := ir.InPass(ir.Structural(y, "invalid generator body"), "generator")
	want := "[generator] structural error at f.cf:3:7: invalid generator body"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ir.ErrStructural) {
		t.Fatal("tagged error lost its sentinel")
	}
	var e *ir.Error
	if !errors.As(err, &e) || e.Node != ir.KindYield {
		t.Fatalf("node kind not recorded: %+v", e)
	}
}
