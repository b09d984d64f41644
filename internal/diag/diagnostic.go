package diag

import (
	"cflow/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	// Func names the function the diagnostic concerns, if any.
	Func  string
	Notes []Note
}
