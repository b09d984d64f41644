package ir

import (
	"cflow/internal/source"
)

// Node is an immutable IR node. The set of implementations is closed; a
// visitor dispatching on a type it does not know fails with ErrUnsupported.
type Node interface {
	Kind() Kind
	Type() Type
	Span() source.Span
	node()
}

// Meta carries what every node has in common.
type Meta struct {
	Loc source.Span
}

func (m Meta) Span() source.Span { return m.Loc }

func (Meta) node() {}

// LabelTarget is a unique control-flow target. Labels are compared by
// identity; the name is only for printing.
type LabelTarget struct {
	Name string
	Typ  Type
}

// NewLabel returns a fresh void label.
func NewLabel(name string) *LabelTarget {
	return &LabelTarget{Name: name, Typ: TypeVoid}
}

// NullValue is the value of the null literal. A Constant whose Value is nil
// is undefined.
type NullValue struct{}

// Null is the null constant value.
var Null = NullValue{}

// Block is a statement sequence with its locally scoped variables. Its value
// is the value of the last statement.
type Block struct {
	Meta
	Vars  []*Variable
	Stmts []Node
}

func (*Block) Kind() Kind { return KindBlock }

func (b *Block) Type() Type {
	if len(b.Stmts) == 0 {
		return TypeVoid
	}
	return b.Stmts[len(b.Stmts)-1].Type()
}

// Call invokes a named method on a receiver (nil for a static/host call).
type Call struct {
	Meta
	Receiver Node
	Method   string
	Args     []Node
	Result   Type
}

func (*Call) Kind() Kind   { return KindCall }
func (c *Call) Type() Type { return c.Result }

type Binary struct {
	Meta
	Op    BinaryOp
	Left  Node
	Right Node
}

func (*Binary) Kind() Kind { return KindBinary }

func (b *Binary) Type() Type {
	if b.Op.IsComparison() {
		return TypeBool
	}
	lt, rt := b.Left.Type(), b.Right.Type()
	switch {
	case lt == rt && lt.IsNumeric():
		return lt
	case lt.IsNumeric() && rt.IsNumeric():
		return TypeFloat
	case b.Op == OpAdd && (lt == TypeString || rt == TypeString):
		return TypeString
	}
	return TypeAny
}

type Unary struct {
	Meta
	Op      UnaryOp
	Operand Node
}

func (*Unary) Kind() Kind { return KindUnary }

func (u *Unary) Type() Type {
	switch u.Op {
	case OpNot:
		return TypeBool
	case OpTypeOf:
		return TypeString
	}
	if t := u.Operand.Type(); t.IsNumeric() {
		return t
	}
	return TypeFloat
}

// Constant is a literal. Value is one of nil (undefined), NullValue, bool,
// int64, float64 or string.
type Constant struct {
	Meta
	Value any
}

func (*Constant) Kind() Kind { return KindConstant }

func (c *Constant) Type() Type {
	switch c.Value.(type) {
	case bool:
		return TypeBool
	case int64:
		return TypeInt
	case float64:
		return TypeFloat
	case string:
		return TypeString
	}
	return TypeAny
}

// Conditional is both the ternary expression and the if statement.
// Else may be nil.
type Conditional struct {
	Meta
	Test   Node
	Then   Node
	Else   Node
	Result Type
}

func (*Conditional) Kind() Kind   { return KindConditional }
func (c *Conditional) Type() Type { return c.Result }

type Assign struct {
	Meta
	Target Node
	Value  Node
}

func (*Assign) Kind() Kind   { return KindAssign }
func (a *Assign) Type() Type { return a.Target.Type() }

// Variable is a logical storage slot. The same variable referenced from many
// places in a tree is the same *Variable.
type Variable struct {
	Meta
	Name string
	Typ  Type
}

func (*Variable) Kind() Kind   { return KindVariable }
func (v *Variable) Type() Type { return v.Typ }

// New constructs an instance of a host class.
type New struct {
	Meta
	Class  string
	Args   []Node
	Result Type
}

func (*New) Kind() Kind   { return KindNew }
func (n *New) Type() Type { return n.Result }

// Field reads a statically known host field.
type Field struct {
	Meta
	Target Node
	Name   string
	Typ    Type
}

func (*Field) Kind() Kind   { return KindField }
func (f *Field) Type() Type { return f.Typ }

// Property reads a named property of a script object.
type Property struct {
	Meta
	Target Node
	Name   string
}

func (*Property) Kind() Kind { return KindProperty }
func (*Property) Type() Type { return TypeAny }

type Index struct {
	Meta
	Target Node
	Args   []Node
}

func (*Index) Kind() Kind { return KindIndex }
func (*Index) Type() Type { return TypeAny }

type NewArray struct {
	Meta
	Elems []Node
}

func (*NewArray) Kind() Kind { return KindNewArray }
func (*NewArray) Type() Type { return TypeArray }

// Goto transfers control to Target, optionally carrying a value the target
// label evaluates to. Break and continue gotos are emitted without a target
// and resolved by the switch compiler.
type Goto struct {
	Meta
	Jump   JumpKind
	Target *LabelTarget
	Value  Node
}

func (*Goto) Kind() Kind { return KindGoto }
func (*Goto) Type() Type { return TypeVoid }

// Resolved reports whether the goto has a target.
func (g *Goto) Resolved() bool { return g.Target != nil }

// Label marks the position of Target. When control falls into the label its
// value is Default (nil means undefined); when reached by a jump its value is
// the jump's carried value.
type Label struct {
	Meta
	Target  *LabelTarget
	Default Node
}

func (*Label) Kind() Kind   { return KindLabel }
func (l *Label) Type() Type { return l.Target.Typ }

// Return jumps to the function's return label carrying Value.
type Return struct {
	Meta
	Target *LabelTarget
	Value  Node
}

func (*Return) Kind() Kind { return KindReturn }
func (*Return) Type() Type { return TypeVoid }

// Loop repeats Body until a jump to Break. A jump to Continue restarts Body.
type Loop struct {
	Meta
	Body     Node
	Break    *LabelTarget
	Continue *LabelTarget
}

func (*Loop) Kind() Kind { return KindLoop }
func (*Loop) Type() Type { return TypeVoid }

type Lambda struct {
	Meta
	Name   string
	Params []*Variable
	Body   Node
	Result Type
}

func (*Lambda) Kind() Kind { return KindLambda }
func (*Lambda) Type() Type { return TypeFunc }

type TypeIs struct {
	Meta
	Operand Node
	Test    Type
}

func (*TypeIs) Kind() Kind { return KindTypeIs }
func (*TypeIs) Type() Type { return TypeBool }

type TypeAs struct {
	Meta
	Operand Node
	Target  Type
}

func (*TypeAs) Kind() Kind   { return KindTypeAs }
func (t *TypeAs) Type() Type { return t.Target }

// Catch is the single catch clause of a TryCatchFinally. Var may be nil.
type Catch struct {
	Var  *Variable
	Body Node
}

type TryCatchFinally struct {
	Meta
	Try     Node
	Catch   *Catch
	Finally Node
}

func (*TryCatchFinally) Kind() Kind   { return KindTryCatchFinally }
func (t *TryCatchFinally) Type() Type { return t.Try.Type() }

type Throw struct {
	Meta
	Value Node
}

func (*Throw) Kind() Kind { return KindThrow }
func (*Throw) Type() Type { return TypeVoid }

type Convert struct {
	Meta
	Operand Node
	Target  Type
}

func (*Convert) Kind() Kind   { return KindConvert }
func (c *Convert) Type() Type { return c.Target }

// Invoke calls a function value.
type Invoke struct {
	Meta
	Target Node
	Args   []Node
}

func (*Invoke) Kind() Kind { return KindInvoke }
func (*Invoke) Type() Type { return TypeAny }

// Binding is one member assignment of a MemberInit.
type Binding struct {
	Name  string
	Value Node
}

// MemberInit builds an object and assigns its members in order.
type MemberInit struct {
	Meta
	Class    string
	Bindings []Binding
}

func (*MemberInit) Kind() Kind { return KindMemberInit }
func (*MemberInit) Type() Type { return TypeObject }

type Empty struct {
	Meta
}

func (*Empty) Kind() Kind { return KindEmpty }
func (*Empty) Type() Type { return TypeVoid }

// Coalesce evaluates Right only when Left is null or undefined.
type Coalesce struct {
	Meta
	Left  Node
	Right Node
}

func (*Coalesce) Kind() Kind { return KindCoalesce }
func (*Coalesce) Type() Type { return TypeAny }

// SwitchCase is one source clause of a structured switch. The default clause
// has Default set and no tests.
type SwitchCase struct {
	Loc     source.Span
	Default bool
	Tests   []Node
	Body    []Node
}

// Switch is the structured multi-way branch produced by statement
// compilation, before the switch compiler specializes it.
type Switch struct {
	Meta
	Discriminant Node
	Cases        []*SwitchCase
}

func (*Switch) Kind() Kind { return KindSwitch }
func (*Switch) Type() Type { return TypeVoid }

type Yield struct {
	Meta
	Argument Node
}

func (*Yield) Kind() Kind { return KindYield }
func (*Yield) Type() Type { return TypeAny }

// DebugInfo marks the source range of the statements that follow it.
type DebugInfo struct {
	Meta
	Range source.Span
}

func (*DebugInfo) Kind() Kind { return KindDebugInfo }
func (*DebugInfo) Type() Type { return TypeVoid }

// Box wraps a typed value into a dynamic one.
type Box struct {
	Meta
	Operand Node
}

func (*Box) Kind() Kind { return KindBox }
func (*Box) Type() Type { return TypeAny }

// Unbox extracts a typed value from a dynamic one.
type Unbox struct {
	Meta
	Operand Node
	Target  Type
}

func (*Unbox) Kind() Kind   { return KindUnbox }
func (u *Unbox) Type() Type { return u.Target }

// JumpSwitch jumps to Cases[Index]; an index outside the table jumps to
// Default.
type JumpSwitch struct {
	Meta
	Index   Node
	Cases   []*LabelTarget
	Default *LabelTarget
}

func (*JumpSwitch) Kind() Kind { return KindJumpSwitch }
func (*JumpSwitch) Type() Type { return TypeVoid }

// NativeCase is a group of tests sharing one body.
type NativeCase struct {
	Tests []Node
	Body  Node
}

// NativeSwitch is the specialized dispatch produced by the switch compiler.
// Tests are already converted to the representative type of Strategy;
// Equals names the run-time equality method when Strategy is CompareGeneric.
type NativeSwitch struct {
	Meta
	Break        *LabelTarget
	Discriminant Node
	Cases        []*NativeCase
	Default      Node
	Strategy     Strategy
	Equals       string
}

func (*NativeSwitch) Kind() Kind { return KindNativeSwitch }
func (*NativeSwitch) Type() Type { return TypeVoid }
