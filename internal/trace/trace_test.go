package trace_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"cflow/internal/trace"
)

func TestLevel_ShouldEmit(t *testing.T) {
	tests := []struct {
		level trace.Level
		scope trace.Scope
		want  bool
	}{
		{trace.LevelOff, trace.ScopeDriver, false},
		{trace.LevelError, trace.ScopeDriver, false},
		{trace.LevelPhase, trace.ScopeFunc, true},
		{trace.LevelPhase, trace.ScopePass, false},
		{trace.LevelDetail, trace.ScopePass, true},
		{trace.LevelDetail, trace.ScopeNode, false},
		{trace.LevelDebug, trace.ScopeNode, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestParseLevelAndMode(t *testing.T) {
	if l, err := trace.ParseLevel("DETAIL"); err != nil || l != trace.LevelDetail {
		t.Fatalf("ParseLevel(DETAIL) = %v, %v", l, err)
	}
	if _, err := trace.ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if m, err := trace.ParseMode("zap"); err != nil || m != trace.ModeZap {
		t.Fatalf("ParseMode(zap) = %v, %v", m, err)
	}
}

func TestStreamTracer_TextSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelDetail, trace.FormatText)

	drv := trace.Begin(tr, trace.ScopeDriver, "lower", 0)
	fn := trace.Begin(tr, trace.ScopeFunc, "func:gen", drv.ID())
	pass := trace.Begin(tr, trace.ScopePass, "generator", fn.ID())
	pass.WithExtra("yields", "2").WithExtra("cells", "1").End("")
	trace.Begin(tr, trace.ScopeNode, "node", pass.ID()).End("")
	fn.End("ok")
	drv.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[3], "    ← generator {cells=1, yields=2}") {
		t.Fatalf("unexpected pass end line %q", lines[3])
	}
	if !strings.HasSuffix(lines[4], "  ← func:gen (ok)") {
		t.Fatalf("unexpected func end line %q", lines[4])
	}
}

func TestRingTracer_KeepsLastEvents(t *testing.T) {
	ring := trace.NewRingTracer(3, trace.LevelDebug)
	for i := 0; i < 5; i++ {
		trace.Point(ring, trace.ScopeFunc, "p", 0, string(rune('a'+i)))
	}
	snap := ring.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot has %d events, want 3", len(snap))
	}
	var got []string
	for _, ev := range snap {
		got = append(got, ev.Detail)
	}
	if strings.Join(got, "") != "cde" {
		t.Fatalf("snapshot order %v", got)
	}
}

func TestMultiTracer_FansOut(t *testing.T) {
	a := trace.NewRingTracer(8, trace.LevelDebug)
	b := trace.NewRingTracer(8, trace.LevelDebug)
	m := trace.NewMultiTracer(trace.LevelDebug, a, b)
	trace.Begin(m, trace.ScopePass, "switchc", 0).End("")
	if len(a.Snapshot()) != 2 || len(b.Snapshot()) != 2 {
		t.Fatalf("fan-out: %d, %d", len(a.Snapshot()), len(b.Snapshot()))
	}
}

func TestZapTracer_LogsSpanEnds(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tr := trace.NewZapTracer(zap.New(core), trace.LevelDetail)

	span := trace.Begin(tr, trace.ScopePass, "generator", 7)
	span.WithExtra("yields", "3").End("done")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected a single log entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Message != "generator" || e.LoggerName != "trace" {
		t.Fatalf("unexpected entry %q from %q", e.Message, e.LoggerName)
	}
	fields := e.ContextMap()
	if fields["detail"] != "done" || fields["yields"] != "3" || fields["scope"] != "pass" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if fields["parent"] != uint64(7) {
		t.Fatalf("parent field = %v", fields["parent"])
	}
}

func TestNew_OffIsNop(t *testing.T) {
	tr, err := trace.New(trace.Config{Level: trace.LevelOff, Mode: trace.ModeStream})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.Enabled() {
		t.Fatalf("off tracer must be disabled")
	}
}

func TestContext_RoundTrip(t *testing.T) {
	ring := trace.NewRingTracer(4, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)
	if trace.FromContext(ctx) != ring {
		t.Fatalf("FromContext did not return the attached tracer")
	}
	if trace.FromContext(context.Background()) != trace.Nop {
		t.Fatalf("missing tracer must be Nop")
	}
}
