package ir

import "cflow/internal/source"

// Function is one compiled function body as produced by statement
// compilation.
type Function struct {
	Name      string
	Loc       source.Span
	Generator bool
	Params    []*Variable
	Body      Node
	// Return is the label marking logical return.
	Return *LabelTarget
	// Stand-ins for the generator's driver object, its call arguments and
	// its execution context. Only generators use them.
	Driver  *Variable
	Args    *Variable
	Context *Variable

	// Lowered marks a function that went through the lowering passes. The
	// body of a lowered generator is its step function.
	Lowered bool
}

// Module is a unit of functions lowered together. Functions never share
// variables or labels.
type Module struct {
	Name  string
	Funcs []*Function
}

// Func returns the function named name.
func (m *Module) Func(name string) *Function {
	if m == nil {
		return nil
	}
	for _, f := range m.Funcs {
		if f != nil && f.Name == name {
			return f
		}
	}
	return nil
}
