package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format renders n as text. Variables and labels print as name#N where N
// numbers distinct identities in order of first appearance, so two
// variables sharing a name stay distinguishable.
func Format(n Node) string {
	p := newPrinter()
	if _, err := p.Visit(n); err != nil {
		return "<" + err.Error() + ">"
	}
	return p.b.String()
}

// Fprint writes the text form of n to w.
func Fprint(w io.Writer, n Node) error {
	p := newPrinter()
	if _, err := p.Visit(n); err != nil {
		return err
	}
	_, err := io.WriteString(w, p.b.String())
	return err
}

// FprintFunction writes a function header followed by its body.
func FprintFunction(w io.Writer, f *Function) error {
	p := newPrinter()
	kind := "func"
	if f.Generator {
		kind = "generator"
	}
	if f.Lowered {
		kind = "lowered " + kind
	}
	fmt.Fprintf(&p.b, "%s %s(", kind, f.Name)
	for i, param := range f.Params {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.variable(param)
	}
	p.b.WriteString(")")
	if f.Return != nil {
		p.b.WriteString(" return=")
		p.label(f.Return)
	}
	p.b.WriteString(" ")
	if _, err := p.Visit(f.Body); err != nil {
		return err
	}
	p.b.WriteString("\n")
	_, err := io.WriteString(w, p.b.String())
	return err
}

type printer struct {
	Traverser[struct{}]
	b      strings.Builder
	indent int
	vars   map[*Variable]int
	labels map[*LabelTarget]int
}

func newPrinter() *printer {
	p := &printer{
		vars:   make(map[*Variable]int),
		labels: make(map[*LabelTarget]int),
	}
	p.Init(p, 0)
	return p
}

var none struct{}

func (p *printer) nl() {
	p.b.WriteByte('\n')
	for range p.indent {
		p.b.WriteString("  ")
	}
}

func (p *printer) variable(v *Variable) {
	id, ok := p.vars[v]
	if !ok {
		id = len(p.vars)
		p.vars[v] = id
	}
	fmt.Fprintf(&p.b, "%s#%d", v.Name, id)
}

func (p *printer) label(l *LabelTarget) {
	if l == nil {
		p.b.WriteString("@?")
		return
	}
	id, ok := p.labels[l]
	if !ok {
		id = len(p.labels)
		p.labels[l] = id
	}
	fmt.Fprintf(&p.b, "@%s#%d", l.Name, id)
}

func (p *printer) list(nodes []Node) error {
	for i, n := range nodes {
		if i > 0 {
			p.b.WriteString(", ")
		}
		if _, err := p.Visit(n); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) stmts(nodes []Node) error {
	p.b.WriteString("{")
	p.indent++
	for _, n := range nodes {
		p.nl()
		if _, err := p.Visit(n); err != nil {
			return err
		}
	}
	p.indent--
	p.nl()
	p.b.WriteString("}")
	return nil
}

func (p *printer) VisitBlock(n *Block) (struct{}, error) {
	if len(n.Vars) > 0 {
		p.b.WriteString("vars[")
		for i, v := range n.Vars {
			if i > 0 {
				p.b.WriteString(" ")
			}
			p.variable(v)
			p.b.WriteString(":" + v.Typ.String())
		}
		p.b.WriteString("] ")
	}
	return none, p.stmts(n.Stmts)
}

func (p *printer) VisitCall(n *Call) (struct{}, error) {
	if n.Receiver != nil {
		if _, err := p.Visit(n.Receiver); err != nil {
			return none, err
		}
		p.b.WriteString(".")
	}
	p.b.WriteString(n.Method + "(")
	if err := p.list(n.Args); err != nil {
		return none, err
	}
	p.b.WriteString(")")
	return none, nil
}

func (p *printer) VisitBinary(n *Binary) (struct{}, error) {
	p.b.WriteString("(")
	if _, err := p.Visit(n.Left); err != nil {
		return none, err
	}
	p.b.WriteString(" " + n.Op.String() + " ")
	if _, err := p.Visit(n.Right); err != nil {
		return none, err
	}
	p.b.WriteString(")")
	return none, nil
}

func (p *printer) VisitUnary(n *Unary) (struct{}, error) {
	p.b.WriteString(n.Op.String())
	_, err := p.Visit(n.Operand)
	return none, err
}

func (p *printer) VisitConstant(n *Constant) (struct{}, error) {
	p.b.WriteString(FormatValue(n.Value))
	return none, nil
}

// FormatValue renders a constant value.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "undefined"
	case NullValue:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnI") {
			s += ".0"
		}
		return s
	case string:
		return strconv.Quote(v)
	}
	return fmt.Sprintf("<%T>", v)
}

func (p *printer) VisitConditional(n *Conditional) (struct{}, error) {
	p.b.WriteString("if ")
	if _, err := p.Visit(n.Test); err != nil {
		return none, err
	}
	p.b.WriteString(" then ")
	if _, err := p.Visit(n.Then); err != nil {
		return none, err
	}
	if n.Else != nil {
		p.b.WriteString(" else ")
		if _, err := p.Visit(n.Else); err != nil {
			return none, err
		}
	}
	return none, nil
}

func (p *printer) VisitAssign(n *Assign) (struct{}, error) {
	if _, err := p.Visit(n.Target); err != nil {
		return none, err
	}
	p.b.WriteString(" = ")
	_, err := p.Visit(n.Value)
	return none, err
}

func (p *printer) VisitVariable(n *Variable) (struct{}, error) {
	p.variable(n)
	return none, nil
}

func (p *printer) VisitNew(n *New) (struct{}, error) {
	p.b.WriteString("new " + n.Class + "(")
	if err := p.list(n.Args); err != nil {
		return none, err
	}
	p.b.WriteString(")")
	return none, nil
}

func (p *printer) VisitField(n *Field) (struct{}, error) {
	if _, err := p.Visit(n.Target); err != nil {
		return none, err
	}
	p.b.WriteString("." + n.Name)
	return none, nil
}

func (p *printer) VisitProperty(n *Property) (struct{}, error) {
	if _, err := p.Visit(n.Target); err != nil {
		return none, err
	}
	p.b.WriteString("[" + strconv.Quote(n.Name) + "]")
	return none, nil
}

func (p *printer) VisitIndex(n *Index) (struct{}, error) {
	if _, err := p.Visit(n.Target); err != nil {
		return none, err
	}
	p.b.WriteString("[")
	if err := p.list(n.Args); err != nil {
		return none, err
	}
	p.b.WriteString("]")
	return none, nil
}

func (p *printer) VisitNewArray(n *NewArray) (struct{}, error) {
	p.b.WriteString("[")
	if err := p.list(n.Elems); err != nil {
		return none, err
	}
	p.b.WriteString("]")
	return none, nil
}

func (p *printer) VisitGoto(n *Goto) (struct{}, error) {
	p.b.WriteString(n.Jump.String())
	if n.Target != nil {
		p.b.WriteString(" ")
		p.label(n.Target)
	}
	if n.Value != nil {
		p.b.WriteString(" with ")
		if _, err := p.Visit(n.Value); err != nil {
			return none, err
		}
	}
	return none, nil
}

func (p *printer) VisitLabel(n *Label) (struct{}, error) {
	p.label(n.Target)
	p.b.WriteString(":")
	if n.Default != nil {
		p.b.WriteString(" ")
		if _, err := p.Visit(n.Default); err != nil {
			return none, err
		}
	}
	return none, nil
}

func (p *printer) VisitReturn(n *Return) (struct{}, error) {
	p.b.WriteString("return ")
	p.label(n.Target)
	if n.Value != nil {
		p.b.WriteString(" ")
		if _, err := p.Visit(n.Value); err != nil {
			return none, err
		}
	}
	return none, nil
}

func (p *printer) VisitLoop(n *Loop) (struct{}, error) {
	p.b.WriteString("loop break=")
	p.label(n.Break)
	p.b.WriteString(" continue=")
	p.label(n.Continue)
	p.b.WriteString(" ")
	_, err := p.Visit(n.Body)
	return none, err
}

func (p *printer) VisitLambda(n *Lambda) (struct{}, error) {
	p.b.WriteString("lambda " + n.Name + "(")
	for i, v := range n.Params {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.variable(v)
	}
	p.b.WriteString(") " + n.Result.String() + " ")
	_, err := p.Visit(n.Body)
	return none, err
}

func (p *printer) VisitTypeIs(n *TypeIs) (struct{}, error) {
	if _, err := p.Visit(n.Operand); err != nil {
		return none, err
	}
	p.b.WriteString(" is " + n.Test.String())
	return none, nil
}

func (p *printer) VisitTypeAs(n *TypeAs) (struct{}, error) {
	if _, err := p.Visit(n.Operand); err != nil {
		return none, err
	}
	p.b.WriteString(" as " + n.Target.String())
	return none, nil
}

func (p *printer) VisitTryCatchFinally(n *TryCatchFinally) (struct{}, error) {
	p.b.WriteString("try ")
	if _, err := p.Visit(n.Try); err != nil {
		return none, err
	}
	if n.Catch != nil {
		p.b.WriteString(" catch")
		if n.Catch.Var != nil {
			p.b.WriteString("(")
			p.variable(n.Catch.Var)
			p.b.WriteString(")")
		}
		p.b.WriteString(" ")
		if _, err := p.Visit(n.Catch.Body); err != nil {
			return none, err
		}
	}
	if n.Finally != nil {
		p.b.WriteString(" finally ")
		if _, err := p.Visit(n.Finally); err != nil {
			return none, err
		}
	}
	return none, nil
}

func (p *printer) VisitThrow(n *Throw) (struct{}, error) {
	p.b.WriteString("throw ")
	_, err := p.Visit(n.Value)
	return none, err
}

func (p *printer) VisitConvert(n *Convert) (struct{}, error) {
	p.b.WriteString(n.Target.String() + "(")
	if _, err := p.Visit(n.Operand); err != nil {
		return none, err
	}
	p.b.WriteString(")")
	return none, nil
}

func (p *printer) VisitInvoke(n *Invoke) (struct{}, error) {
	p.b.WriteString("invoke ")
	if _, err := p.Visit(n.Target); err != nil {
		return none, err
	}
	p.b.WriteString("(")
	if err := p.list(n.Args); err != nil {
		return none, err
	}
	p.b.WriteString(")")
	return none, nil
}

func (p *printer) VisitMemberInit(n *MemberInit) (struct{}, error) {
	p.b.WriteString(n.Class + "{")
	for i, b := range n.Bindings {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.b.WriteString(b.Name + ": ")
		if _, err := p.Visit(b.Value); err != nil {
			return none, err
		}
	}
	p.b.WriteString("}")
	return none, nil
}

func (p *printer) VisitEmpty(*Empty) (struct{}, error) {
	p.b.WriteString("nop")
	return none, nil
}

func (p *printer) VisitCoalesce(n *Coalesce) (struct{}, error) {
	p.b.WriteString("(")
	if _, err := p.Visit(n.Left); err != nil {
		return none, err
	}
	p.b.WriteString(" ?? ")
	if _, err := p.Visit(n.Right); err != nil {
		return none, err
	}
	p.b.WriteString(")")
	return none, nil
}

func (p *printer) VisitSwitch(n *Switch) (struct{}, error) {
	p.b.WriteString("switch ")
	if _, err := p.Visit(n.Discriminant); err != nil {
		return none, err
	}
	p.b.WriteString(" {")
	p.indent++
	for _, c := range n.Cases {
		p.nl()
		if c.Default {
			p.b.WriteString("default")
		} else {
			p.b.WriteString("case ")
			if err := p.list(c.Tests); err != nil {
				return none, err
			}
		}
		p.b.WriteString(": ")
		if err := p.stmts(c.Body); err != nil {
			return none, err
		}
	}
	p.indent--
	p.nl()
	p.b.WriteString("}")
	return none, nil
}

func (p *printer) VisitYield(n *Yield) (struct{}, error) {
	p.b.WriteString("yield ")
	_, err := p.Visit(n.Argument)
	return none, err
}

func (p *printer) VisitDebugInfo(n *DebugInfo) (struct{}, error) {
	p.b.WriteString("debug " + n.Range.String())
	return none, nil
}

func (p *printer) VisitBox(n *Box) (struct{}, error) {
	p.b.WriteString("box(")
	if _, err := p.Visit(n.Operand); err != nil {
		return none, err
	}
	p.b.WriteString(")")
	return none, nil
}

func (p *printer) VisitUnbox(n *Unbox) (struct{}, error) {
	p.b.WriteString("unbox<" + n.Target.String() + ">(")
	if _, err := p.Visit(n.Operand); err != nil {
		return none, err
	}
	p.b.WriteString(")")
	return none, nil
}

func (p *printer) VisitJumpSwitch(n *JumpSwitch) (struct{}, error) {
	p.b.WriteString("jump_switch ")
	if _, err := p.Visit(n.Index); err != nil {
		return none, err
	}
	p.b.WriteString(" [")
	for i, l := range n.Cases {
		if i > 0 {
			p.b.WriteString(" ")
		}
		p.label(l)
	}
	p.b.WriteString("] default ")
	p.label(n.Default)
	return none, nil
}

func (p *printer) VisitNativeSwitch(n *NativeSwitch) (struct{}, error) {
	p.b.WriteString("native_switch<" + n.Strategy.String())
	if n.Equals != "" {
		p.b.WriteString(" eq=" + n.Equals)
	}
	p.b.WriteString("> ")
	if _, err := p.Visit(n.Discriminant); err != nil {
		return none, err
	}
	p.b.WriteString(" break=")
	p.label(n.Break)
	p.b.WriteString(" {")
	p.indent++
	for _, c := range n.Cases {
		p.nl()
		p.b.WriteString("case ")
		if err := p.list(c.Tests); err != nil {
			return none, err
		}
		p.b.WriteString(": ")
		if _, err := p.Visit(c.Body); err != nil {
			return none, err
		}
	}
	if n.Default != nil {
		p.nl()
		p.b.WriteString("default: ")
		if _, err := p.Visit(n.Default); err != nil {
			return none, err
		}
	}
	p.indent--
	p.nl()
	p.b.WriteString("}")
	return none, nil
}
