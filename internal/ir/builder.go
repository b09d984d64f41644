package ir

import "cflow/internal/source"

// ClassStep is the host class of generator step results. Its constructor
// takes (value, resumeID).
const ClassStep = "StepResult"

// TerminalID is the resume id of a step result that ends the generator.
const TerminalID = -1

// NewVar returns a fresh variable.
func NewVar(name string, t Type) *Variable {
	return &Variable{Name: name, Typ: t}
}

// Undefined returns the undefined constant.
func Undefined() *Constant { return &Constant{} }

func Int(v int64) *Constant     { return &Constant{Value: v} }
func Float(v float64) *Constant { return &Constant{Value: v} }
func Str(v string) *Constant    { return &Constant{Value: v} }
func Bool(v bool) *Constant     { return &Constant{Value: v} }

// Seq returns a block without variables.
func Seq(stmts ...Node) *Block {
	return &Block{Stmts: stmts}
}

// Scope returns a block declaring vars.
func Scope(vars []*Variable, stmts ...Node) *Block {
	return &Block{Vars: vars, Stmts: stmts}
}

// CallOn builds a method call on recv.
func CallOn(recv Node, method string, result Type, args ...Node) *Call {
	return &Call{Receiver: recv, Method: method, Args: args, Result: result}
}

func Set(target, value Node) *Assign {
	return &Assign{Target: target, Value: value}
}

func Jump(target *LabelTarget) *Goto {
	return &Goto{Jump: JumpGoto, Target: target}
}

// Break returns an unresolved break.
func Break() *Goto { return &Goto{Jump: JumpBreak} }

// Continue returns an unresolved continue.
func Continue() *Goto { return &Goto{Jump: JumpContinue} }

func Mark(target *LabelTarget) *Label {
	return &Label{Target: target}
}

func Ret(target *LabelTarget, value Node) *Return {
	return &Return{Target: target, Value: value}
}

func If(test, then, els Node) *Conditional {
	return &Conditional{Test: test, Then: then, Else: els, Result: TypeVoid}
}

func Bin(op BinaryOp, left, right Node) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

func YieldOf(arg Node) *Yield {
	return &Yield{Argument: arg}
}

// StepResult builds a generator step result (value, id).
func StepResult(value Node, id int) *New {
	if value == nil {
		value = Undefined()
	}
	return &New{Class: ClassStep, Args: []Node{value, Int(int64(id))}, Result: TypeStep}
}

// WithSpan returns n with its span replaced. Only the node's own Meta is
// changed; n must be freshly built by the caller.
func WithSpan[N Node](n N, sp source.Span) N {
	if x, ok := any(n).(interface{ setSpan(source.Span) }); ok {
		x.setSpan(sp)
	}
	return n
}

func (m *Meta) setSpan(sp source.Span) { m.Loc = sp }
