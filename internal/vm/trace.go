package vm

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"cflow/internal/ir"
)

// Tracer outputs execution traces for debugging.
type Tracer struct {
	w io.Writer
}

// NewTracer creates a new tracer that writes to w.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// TraceCall traces entry into a lambda.
// Format: [depth=N] call <func>(<args>)
func (t *Tracer) TraceCall(depth int, fn *ir.Lambda, args []Value) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "[depth=%d] call %s(%s)\n", depth, fn.Name, formatArgs(args))
}

// TraceIntrinsic traces a driver or builtin call.
func (t *Tracer) TraceIntrinsic(name string, args []Value, result Value) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "    %s(%s) -> %s\n", name, formatArgs(args), formatValue(result))
}

// TraceStep traces one generator step.
// Format: [gen] <func> resume=<id> -> (<value>, <next id>)
func (t *Tracer) TraceStep(fn string, resumeID int, step Step) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "[gen] %s resume=%d -> (%s, %d)\n", fn, resumeID, formatValue(step.Value), step.ID)
}

// TraceRoute traces an exception being routed to a handler.
func (t *Tracer) TraceRoute(fn string, exc Value, target int) {
	if t == nil || t.w == nil {
		return
	}
	if target == 0 {
		fmt.Fprintf(t.w, "[gen] %s throw %s -> unhandled\n", fn, formatValue(exc))
		return
	}
	fmt.Fprintf(t.w, "[gen] %s throw %s -> resume=%d\n", fn, formatValue(exc), target)
}

const traceValueLimit = 48

func formatValue(v Value) string {
	s := v.String()
	if v.Kind == VKString {
		s = fmt.Sprintf("%q", truncateRunes(v.Str, traceValueLimit))
	}
	if utf8.RuneCountInString(s) > traceValueLimit {
		s = truncateRunes(s, traceValueLimit) + "..."
	}
	return s
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || s == "" {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	out := make([]rune, 0, limit)
	for _, r := range s {
		out = append(out, r)
		if len(out) >= limit {
			break
		}
	}
	return string(out)
}

func formatArgs(args []Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, ", ")
}
