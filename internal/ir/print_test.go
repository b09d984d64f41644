package ir_test

import (
	"strings"
	"testing"

	"cflow/internal/ir"
)

func TestFormatGolden(t *testing.T) {
	body, _, _ := sampleBody()
	want := strings.Join([]string{
		"vars[x#0:int] {",
		"  x#0 = 1",
		"  loop break=@brk#0 continue=@cont#1 {",
		"    if (x#0 > 3) then goto @brk#0",
		"    x#0 = (x#0 + 1)",
		"  }",
		"}",
	}, "\n")
	if got := ir.Format(body); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatDistinguishesSameName(t *testing.T) {
	a := ir.NewVar("v", ir.TypeAny)
	b := ir.NewVar("v", ir.TypeAny)
	got := ir.Format(ir.Scope([]*ir.Variable{a, b}, ir.Set(a, b)))
	if !strings.Contains(got, "v#0 = v#1") {
		t.Fatalf("same-named variables not distinguished:\n%s", got)
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "undefined"},
		{ir.Null, "null"},
		{true, "true"},
		{int64(-4), "-4"},
		{2.0, "2.0"},
		{2.5, "2.5"},
		{"a\"b", `"a\"b"`},
	}
	for _, c := range cases {
		if got := ir.FormatValue(c.in); got != c.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFprintFunction(t *testing.T) {
	ret := ir.NewLabel("ret")
	p := ir.NewVar("p", ir.TypeInt)
	f := &ir.Function{
		Name:      "gen",
		Generator: true,
		Params:    []*ir.Variable{p},
		Return:    ret,
		Body:      ir.Seq(ir.YieldOf(p), &ir.Label{Target: ret}),
	}
	var b strings.Builder
	if err := ir.FprintFunction(&b, f); err != nil {
		t.Fatal(err)
	}
	want := "generator gen(p#0) return=@ret#0 {\n  yield p#0\n  @ret#0:\n}\n"
	if b.String() != want {
		t.Fatalf("got %q, want %q", b.String(), want)
	}
}
