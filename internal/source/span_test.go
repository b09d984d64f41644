package source

import "testing"

func TestSpan_String(t *testing.T) {
	tests := []struct {
		name string
		span Span
		want string
	}{
		{name: "unknown", span: Span{}, want: "<unknown>"},
		{name: "file only", span: Span{File: "a.js"}, want: "a.js"},
		{name: "point", span: At("a.js", 3, 7), want: "a.js:3:7"},
		{name: "no file", span: At("", 1, 1), want: "<input>:1:1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.span.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpan_Cover(t *testing.T) {
	a := Span{File: "a.js", Line: 2, Col: 5, EndLine: 2, EndCol: 9}
	b := Span{File: "a.js", Line: 1, Col: 3, EndLine: 4, EndCol: 1}
	got := a.Cover(b)
	want := Span{File: "a.js", Line: 1, Col: 3, EndLine: 4, EndCol: 1}
	if got != want {
		t.Fatalf("Cover() = %+v, want %+v", got, want)
	}

	other := Span{File: "b.js", Line: 1, Col: 1, EndLine: 9, EndCol: 9}
	if got := a.Cover(other); got != a {
		t.Errorf("Cover() across files = %+v, want unchanged", got)
	}
	if got := (Span{}).Cover(a); got != a {
		t.Errorf("zero.Cover(a) = %+v, want a", got)
	}
}
