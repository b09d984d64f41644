package diag_test

import (
	"bytes"
	"strings"
	"testing"

	"cflow/internal/diag"
	"cflow/internal/source"
)

func TestBag_SortAndShortFormat(t *testing.T) {
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.LowUnsupported, source.At("b.cf", 1, 1), "unsupported node").InFunc("g"))
	bag.Add(diag.New(diag.SevWarning, diag.LowInfo, source.At("a.cf", 2, 5), "late"))
	bag.Add(diag.NewError(diag.LowStructural, source.At("a.cf", 2, 5), "yield in expression position").
		InFunc("f").
		WithNote(source.At("a.cf", 1, 1), "function starts here"))
	bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{}, "missing input"))

	bag.Sort()
	got := diag.FormatShort(bag.Items())
	want := strings.Join([]string{
		"error IO4001 missing input",
		"warning LOW6000 a.cf:2:5 late",
		"error LOW6001 a.cf:2:5 [f] yield in expression position",
		"  note a.cf:1:1 function starts here",
		"error LOW6002 b.cf:1:1 [g] unsupported node",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("FormatShort mismatch\n--- got ---\n%s--- want ---\n%s", got, want)
	}
}

func TestBag_Limit(t *testing.T) {
	bag := diag.NewBag(2)
	for i := 0; i < 3; i++ {
		added := bag.Add(diag.NewError(diag.LowStructural, source.At("a.cf", uint32(i+1), 1), "x"))
		if want := i < 2; added != want {
			t.Fatalf("Add #%d = %v, want %v", i, added, want)
		}
	}
	if bag.Len() != 2 || !bag.HasErrors() {
		t.Fatalf("bag: len=%d errors=%v", bag.Len(), bag.HasErrors())
	}

	other := diag.NewBag(5)
	other.Add(diag.New(diag.SevWarning, diag.LowInfo, source.Span{}, "w"))
	other.Add(diag.New(diag.SevWarning, diag.LowInfo, source.Span{}, "w2"))
	bag.Merge(other)
	if bag.Len() != 4 || bag.Cap() != 4 {
		t.Fatalf("after merge: len=%d cap=%d", bag.Len(), bag.Cap())
	}
}

func TestBag_UnboundedLimit(t *testing.T) {
	for _, max := range []int{0, -1, 1 << 20} {
		if got := diag.NewBag(max).Cap(); got != 65535 {
			t.Fatalf("NewBag(%d).Cap() = %d", max, got)
		}
	}
}

func TestBag_DedupKeepsPerFunction(t *testing.T) {
	bag := diag.NewBag(10)
	sp := source.At("a.cf", 3, 1)
	bag.Add(diag.NewError(diag.LowTooDeep, sp, "deep").InFunc("f"))
	bag.Add(diag.NewError(diag.LowTooDeep, sp, "deep again").InFunc("f"))
	bag.Add(diag.NewError(diag.LowTooDeep, sp, "deep").InFunc("g"))
	bag.Dedup()
	if bag.Len() != 2 {
		t.Fatalf("Dedup left %d items, want 2", bag.Len())
	}
}

func TestReportBuilder_EmitsOnce(t *testing.T) {
	bag := diag.NewBag(4)
	b := diag.ReportError(diag.BagReporter{Bag: bag}, diag.RunUncaught, source.Span{}, "boom").InFunc("gen")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 {
		t.Fatalf("expected single diagnostic, got %d", bag.Len())
	}
	if d := bag.Items()[0]; d.Func != "gen" || d.Code != diag.RunUncaught {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
}

func TestPretty_NoColor(t *testing.T) {
	d := diag.NewError(diag.LowStructural, source.At("a.cf", 4, 2), "bad break").
		InFunc("f").
		WithNote(source.Span{}, "no enclosing loop")
	var buf bytes.Buffer
	if err := diag.Pretty(&buf, d, diag.PrettyOpts{Titles: true}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	want := "a.cf:4:2: ERROR LOW6001 (Malformed IR): bad break (in f)\n  note: no enclosing loop\n"
	if buf.String() != want {
		t.Fatalf("Pretty = %q, want %q", buf.String(), want)
	}
}

func TestCode_ID(t *testing.T) {
	tests := []struct {
		code diag.Code
		want string
	}{
		{diag.IODecodeError, "IO4002"},
		{diag.LowInvalidOutput, "LOW6004"},
		{diag.RunPanic, "RUN7001"},
		{diag.UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Errorf("%d.ID() = %q, want %q", tt.code, got, tt.want)
		}
	}
}
