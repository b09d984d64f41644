package vm

import (
	"fmt"
	"strings"

	"cflow/internal/source"
)

// PanicCode identifies the type of VM panic.
type PanicCode int

// Stable panic codes - do not change values.
const (
	PanicUnboundVariable      PanicCode = 1001 // VM1001: variable read outside its scope
	PanicTypeMismatch         PanicCode = 1003 // VM1003: type mismatch
	PanicOutOfBounds          PanicCode = 1004 // VM1004: out of bounds
	PanicUnsupportedIntrinsic PanicCode = 1005 // VM1005: unsupported intrinsic
	PanicHandlerState         PanicCode = 1006 // VM1006: generator handler frames out of sync
	PanicJumpEscaped          PanicCode = 1007 // VM1007: jump left its function
	PanicIterationLimit       PanicCode = 1008 // VM1008: loop iteration budget exhausted
	PanicUnimplemented        PanicCode = 1999 // VM1999: unimplemented node
)

// String returns the code as "VM1001" format.
func (c PanicCode) String() string {
	return fmt.Sprintf("VM%d", c)
}

// BacktraceFrame represents one frame in the panic backtrace.
type BacktraceFrame struct {
	FuncName string
	Span     source.Span
}

// VMError represents a runtime panic in the VM.
type VMError struct {
	Code      PanicCode
	Message   string
	Span      source.Span      // Location where panic occurred
	Backtrace []BacktraceFrame // Stack frames from top to bottom
}

// Error implements the error interface.
func (p *VMError) Error() string {
	return fmt.Sprintf("panic %s: %s", p.Code, p.Message)
}

// Format renders the panic with its location and backtrace.
func (p *VMError) Format() string {
	var sb strings.Builder

	// Header: panic VM1004: <message>
	fmt.Fprintf(&sb, "panic %s: %s\n", p.Code, p.Message)
	sb.WriteString("at ")
	sb.WriteString(formatSpan(p.Span))
	sb.WriteString("\n")

	if len(p.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, frame := range p.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s at %s\n", i, frame.FuncName, formatSpan(frame.Span))
		}
	}
	return sb.String()
}

func formatSpan(span source.Span) string {
	if span.IsZero() {
		return "<no-span>"
	}
	return span.String()
}

// Thrown is a script exception propagating through Go code.
type Thrown struct {
	Value Value
	Span  source.Span
}

func (t *Thrown) Error() string {
	return "uncaught exception: " + t.Value.String()
}

// errorBuilder helps construct VMError values.
type errorBuilder struct {
	ev *Evaluator
}

func (eb *errorBuilder) makeError(code PanicCode, msg string) *VMError {
	e := &VMError{
		Code:    code,
		Message: msg,
		Span:    eb.ev.span,
	}
	stack := eb.ev.stack
	e.Backtrace = make([]BacktraceFrame, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		e.Backtrace[len(stack)-1-i] = BacktraceFrame{
			FuncName: stack[i].name,
			Span:     stack[i].span,
		}
	}
	return e
}

func (eb *errorBuilder) unbound(name string) *VMError {
	return eb.makeError(PanicUnboundVariable, fmt.Sprintf("variable %q is not in scope", name))
}

func (eb *errorBuilder) typeMismatch(expected string, got Value) *VMError {
	return eb.makeError(PanicTypeMismatch, fmt.Sprintf("expected %s, got %s", expected, got.Kind))
}

func (eb *errorBuilder) outOfBounds(index, length int) *VMError {
	return eb.makeError(PanicOutOfBounds, fmt.Sprintf("index %d out of bounds for length %d", index, length))
}

func (eb *errorBuilder) unsupportedIntrinsic(name string) *VMError {
	return eb.makeError(PanicUnsupportedIntrinsic, fmt.Sprintf("unsupported intrinsic: %s", name))
}

func (eb *errorBuilder) handlerState(msg string) *VMError {
	return eb.makeError(PanicHandlerState, msg)
}

func (eb *errorBuilder) jumpEscaped(label string) *VMError {
	return eb.makeError(PanicJumpEscaped, fmt.Sprintf("jump to %q left its function", label))
}

func (eb *errorBuilder) iterationLimit(limit int) *VMError {
	return eb.makeError(PanicIterationLimit, fmt.Sprintf("more than %d loop iterations", limit))
}

func (eb *errorBuilder) unimplemented(what string) *VMError {
	return eb.makeError(PanicUnimplemented, fmt.Sprintf("unimplemented: %s", what))
}
