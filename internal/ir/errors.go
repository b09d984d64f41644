package ir

import (
	"errors"
	"fmt"
	"strings"

	"cflow/internal/source"
)

// ErrorKind categorizes lowering failures.
type ErrorKind uint8

const (
	// KindStructural is malformed input: a yield outside a flattened
	// position, a case without tests, an unresolved goto target.
	KindStructural ErrorKind = iota + 1
	// KindUnsupported is a node or literal kind the current pass does not
	// handle.
	KindUnsupported
	// KindRecursionTooDeep is the traversal guard tripping.
	KindRecursionTooDeep
)

func (k ErrorKind) String() string {
	switch k {
	case KindStructural:
		return "structural error"
	case KindUnsupported:
		return "unsupported construct"
	case KindRecursionTooDeep:
		return "recursion too deep"
	}
	return "unknown error"
}

// Sentinels for errors.Is. Every *Error unwraps to the sentinel of its kind.
var (
	ErrStructural       = errors.New("structural error")
	ErrUnsupported      = errors.New("unsupported construct")
	ErrRecursionTooDeep = errors.New("recursion too deep")
)

// Error is a fatal lowering error. None of them are recovered locally.
type Error struct {
	Kind   ErrorKind
	Pass   string
	Span   source.Span
	Node   Kind
	Detail string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Pass != "" {
		b.WriteByte('[')
		b.WriteString(e.Pass)
		b.WriteString("] ")
	}
	b.WriteString(e.Kind.String())
	if !e.Span.IsZero() {
		b.WriteString(" at ")
		b.WriteString(e.Span.String())
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindStructural:
		return ErrStructural
	case KindUnsupported:
		return ErrUnsupported
	case KindRecursionTooDeep:
		return ErrRecursionTooDeep
	}
	return nil
}

// Structural reports malformed input at n.
func Structural(n Node, format string, args ...any) *Error {
	return newError(KindStructural, n, format, args...)
}

// StructuralAt reports malformed input at a span with no node of its own.
func StructuralAt(sp source.Span, format string, args ...any) *Error {
	return &Error{Kind: KindStructural, Span: sp, Detail: fmt.Sprintf(format, args...)}
}

// Unsupported reports a construct the pass cannot lower.
func Unsupported(n Node, format string, args ...any) *Error {
	return newError(KindUnsupported, n, format, args...)
}

// TooDeep reports the traversal guard tripping on n.
func TooDeep(n Node, limit int) *Error {
	return newError(KindRecursionTooDeep, n, "nesting exceeds %d levels", limit)
}

func newError(kind ErrorKind, n Node, format string, args ...any) *Error {
	e := &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Span = n.Span()
		e.Node = n.Kind()
	}
	return e
}

// InPass tags err with the pass that produced it. Errors already tagged and
// errors that are not *Error are returned unchanged.
func InPass(err error, pass string) error {
	var e *Error
	if !errors.As(err, &e) || e.Pass != "" {
		return err
	}
	tagged := *e
	tagged.Pass = pass
	return &tagged
}

// KindOf returns the kind of a lowering error, or 0 when err is not one.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
