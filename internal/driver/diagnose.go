package driver

import (
	"errors"

	"cflow/internal/diag"
	"cflow/internal/ir"
	"cflow/internal/source"
)

func funcLoc(f *ir.Function) source.Span {
	if f == nil {
		return source.Span{}
	}
	return f.Loc
}

// errorDiagnostic converts a lowering failure of f into a diagnostic:
// structural, unsupported and depth failures keep their own codes, failures
// of the output validation get LowInvalidOutput with one note per
// violation.
func errorDiagnostic(f *ir.Function, err error) diag.Diagnostic {
	var inv *invalidOutput
	if errors.As(err, &inv) {
		d := diag.NewError(diag.LowInvalidOutput, funcLoc(f), "lowering produced invalid IR").InFunc(f.Name)
		for _, e := range flatten(inv.err) {
			d = d.WithNote(spanOf(e), e.Error())
		}
		return d
	}

	code := diag.LowStructural
	switch ir.KindOf(err) {
	case ir.KindUnsupported:
		code = diag.LowUnsupported
	case ir.KindRecursionTooDeep:
		code = diag.LowTooDeep
	}
	sp := spanOf(err)
	if sp.IsZero() {
		sp = funcLoc(f)
	}
	d := diag.NewError(code, sp, err.Error()).InFunc(f.Name)
	var e *ir.Error
	if errors.As(err, &e) && e.Node != ir.KindInvalid {
		d = d.WithNote(sp, "while lowering "+e.Node.String())
	}
	if !f.Loc.IsZero() && sp != f.Loc {
		d = d.WithNote(f.Loc, "in function "+f.Name)
	}
	return d
}

func spanOf(err error) source.Span {
	var e *ir.Error
	if errors.As(err, &e) {
		return e.Span
	}
	return source.Span{}
}

// flatten expands errors joined with errors.Join.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
