package ir

// Rewriter is the default tree-to-tree visitor: each handler rebuilds the
// node from its recursively visited children, so the result is a fresh tree
// equal to the input. Variables and labels are back-references and keep
// their identity.
//
// A pass embeds Rewriter, overrides the kinds it changes and binds itself:
//
//	p := &myPass{}
//	p.Init(p, maxDepth)
//	out, err := p.Visit(body)
type Rewriter struct {
	Traverser[Node]
}

// NewRewriter returns a Rewriter that copies trees unchanged.
func NewRewriter(maxDepth int) *Rewriter {
	r := &Rewriter{}
	r.Init(r, maxDepth)
	return r
}

// VisitList visits every node of list.
func (r *Rewriter) VisitList(list []Node) ([]Node, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]Node, 0, len(list))
	for _, n := range list {
		v, err := r.Visit(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Rewriter) VisitBlock(n *Block) (Node, error) {
	stmts, err := r.VisitList(n.Stmts)
	if err != nil {
		return nil, err
	}
	return &Block{Meta: n.Meta, Vars: cloneVars(n.Vars), Stmts: stmts}, nil
}

func (r *Rewriter) VisitCall(n *Call) (Node, error) {
	recv, err := r.Visit(n.Receiver)
	if err != nil {
		return nil, err
	}
	args, err := r.VisitList(n.Args)
	if err != nil {
		return nil, err
	}
	return &Call{Meta: n.Meta, Receiver: recv, Method: n.Method, Args: args, Result: n.Result}, nil
}

func (r *Rewriter) VisitBinary(n *Binary) (Node, error) {
	left, err := r.Visit(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := r.Visit(n.Right)
	if err != nil {
		return nil, err
	}
	return &Binary{Meta: n.Meta, Op: n.Op, Left: left, Right: right}, nil
}

func (r *Rewriter) VisitUnary(n *Unary) (Node, error) {
	operand, err := r.Visit(n.Operand)
	if err != nil {
		return nil, err
	}
	return &Unary{Meta: n.Meta, Op: n.Op, Operand: operand}, nil
}

func (r *Rewriter) VisitConstant(n *Constant) (Node, error) {
	return &Constant{Meta: n.Meta, Value: n.Value}, nil
}

func (r *Rewriter) VisitConditional(n *Conditional) (Node, error) {
	test, err := r.Visit(n.Test)
	if err != nil {
		return nil, err
	}
	then, err := r.Visit(n.Then)
	if err != nil {
		return nil, err
	}
	els, err := r.Visit(n.Else)
	if err != nil {
		return nil, err
	}
	return &Conditional{Meta: n.Meta, Test: test, Then: then, Else: els, Result: n.Result}, nil
}

func (r *Rewriter) VisitAssign(n *Assign) (Node, error) {
	target, err := r.Visit(n.Target)
	if err != nil {
		return nil, err
	}
	value, err := r.Visit(n.Value)
	if err != nil {
		return nil, err
	}
	return &Assign{Meta: n.Meta, Target: target, Value: value}, nil
}

func (r *Rewriter) VisitVariable(n *Variable) (Node, error) {
	return n, nil
}

func (r *Rewriter) VisitNew(n *New) (Node, error) {
	args, err := r.VisitList(n.Args)
	if err != nil {
		return nil, err
	}
	return &New{Meta: n.Meta, Class: n.Class, Args: args, Result: n.Result}, nil
}

func (r *Rewriter) VisitField(n *Field) (Node, error) {
	target, err := r.Visit(n.Target)
	if err != nil {
		return nil, err
	}
	return &Field{Meta: n.Meta, Target: target, Name: n.Name, Typ: n.Typ}, nil
}

func (r *Rewriter) VisitProperty(n *Property) (Node, error) {
	target, err := r.Visit(n.Target)
	if err != nil {
		return nil, err
	}
	return &Property{Meta: n.Meta, Target: target, Name: n.Name}, nil
}

func (r *Rewriter) VisitIndex(n *Index) (Node, error) {
	target, err := r.Visit(n.Target)
	if err != nil {
		return nil, err
	}
	args, err := r.VisitList(n.Args)
	if err != nil {
		return nil, err
	}
	return &Index{Meta: n.Meta, Target: target, Args: args}, nil
}

func (r *Rewriter) VisitNewArray(n *NewArray) (Node, error) {
	elems, err := r.VisitList(n.Elems)
	if err != nil {
		return nil, err
	}
	return &NewArray{Meta: n.Meta, Elems: elems}, nil
}

func (r *Rewriter) VisitGoto(n *Goto) (Node, error) {
	value, err := r.Visit(n.Value)
	if err != nil {
		return nil, err
	}
	return &Goto{Meta: n.Meta, Jump: n.Jump, Target: n.Target, Value: value}, nil
}

func (r *Rewriter) VisitLabel(n *Label) (Node, error) {
	def, err := r.Visit(n.Default)
	if err != nil {
		return nil, err
	}
	return &Label{Meta: n.Meta, Target: n.Target, Default: def}, nil
}

func (r *Rewriter) VisitReturn(n *Return) (Node, error) {
	value, err := r.Visit(n.Value)
	if err != nil {
		return nil, err
	}
	return &Return{Meta: n.Meta, Target: n.Target, Value: value}, nil
}

func (r *Rewriter) VisitLoop(n *Loop) (Node, error) {
	body, err := r.Visit(n.Body)
	if err != nil {
		return nil, err
	}
	return &Loop{Meta: n.Meta, Body: body, Break: n.Break, Continue: n.Continue}, nil
}

func (r *Rewriter) VisitLambda(n *Lambda) (Node, error) {
	body, err := r.Visit(n.Body)
	if err != nil {
		return nil, err
	}
	return &Lambda{Meta: n.Meta, Name: n.Name, Params: cloneVars(n.Params), Body: body, Result: n.Result}, nil
}

func (r *Rewriter) VisitTypeIs(n *TypeIs) (Node, error) {
	operand, err := r.Visit(n.Operand)
	if err != nil {
		return nil, err
	}
	return &TypeIs{Meta: n.Meta, Operand: operand, Test: n.Test}, nil
}

func (r *Rewriter) VisitTypeAs(n *TypeAs) (Node, error) {
	operand, err := r.Visit(n.Operand)
	if err != nil {
		return nil, err
	}
	return &TypeAs{Meta: n.Meta, Operand: operand, Target: n.Target}, nil
}

func (r *Rewriter) VisitTryCatchFinally(n *TryCatchFinally) (Node, error) {
	try, err := r.Visit(n.Try)
	if err != nil {
		return nil, err
	}
	var catch *Catch
	if n.Catch != nil {
		body, err := r.Visit(n.Catch.Body)
		if err != nil {
			return nil, err
		}
		catch = &Catch{Var: n.Catch.Var, Body: body}
	}
	fin, err := r.Visit(n.Finally)
	if err != nil {
		return nil, err
	}
	return &TryCatchFinally{Meta: n.Meta, Try: try, Catch: catch, Finally: fin}, nil
}

func (r *Rewriter) VisitThrow(n *Throw) (Node, error) {
	value, err := r.Visit(n.Value)
	if err != nil {
		return nil, err
	}
	return &Throw{Meta: n.Meta, Value: value}, nil
}

func (r *Rewriter) VisitConvert(n *Convert) (Node, error) {
	operand, err := r.Visit(n.Operand)
	if err != nil {
		return nil, err
	}
	return &Convert{Meta: n.Meta, Operand: operand, Target: n.Target}, nil
}

func (r *Rewriter) VisitInvoke(n *Invoke) (Node, error) {
	target, err := r.Visit(n.Target)
	if err != nil {
		return nil, err
	}
	args, err := r.VisitList(n.Args)
	if err != nil {
		return nil, err
	}
	return &Invoke{Meta: n.Meta, Target: target, Args: args}, nil
}

func (r *Rewriter) VisitMemberInit(n *MemberInit) (Node, error) {
	bindings := make([]Binding, 0, len(n.Bindings))
	for _, b := range n.Bindings {
		v, err := r.Visit(b.Value)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, Binding{Name: b.Name, Value: v})
	}
	return &MemberInit{Meta: n.Meta, Class: n.Class, Bindings: bindings}, nil
}

func (r *Rewriter) VisitEmpty(n *Empty) (Node, error) {
	return &Empty{Meta: n.Meta}, nil
}

func (r *Rewriter) VisitCoalesce(n *Coalesce) (Node, error) {
	left, err := r.Visit(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := r.Visit(n.Right)
	if err != nil {
		return nil, err
	}
	return &Coalesce{Meta: n.Meta, Left: left, Right: right}, nil
}

func (r *Rewriter) VisitSwitch(n *Switch) (Node, error) {
	disc, err := r.Visit(n.Discriminant)
	if err != nil {
		return nil, err
	}
	cases := make([]*SwitchCase, 0, len(n.Cases))
	for _, c := range n.Cases {
		tests, err := r.VisitList(c.Tests)
		if err != nil {
			return nil, err
		}
		body, err := r.VisitList(c.Body)
		if err != nil {
			return nil, err
		}
		cases = append(cases, &SwitchCase{Loc: c.Loc, Default: c.Default, Tests: tests, Body: body})
	}
	return &Switch{Meta: n.Meta, Discriminant: disc, Cases: cases}, nil
}

func (r *Rewriter) VisitYield(n *Yield) (Node, error) {
	arg, err := r.Visit(n.Argument)
	if err != nil {
		return nil, err
	}
	return &Yield{Meta: n.Meta, Argument: arg}, nil
}

func (r *Rewriter) VisitDebugInfo(n *DebugInfo) (Node, error) {
	return &DebugInfo{Meta: n.Meta, Range: n.Range}, nil
}

func (r *Rewriter) VisitBox(n *Box) (Node, error) {
	operand, err := r.Visit(n.Operand)
	if err != nil {
		return nil, err
	}
	return &Box{Meta: n.Meta, Operand: operand}, nil
}

func (r *Rewriter) VisitUnbox(n *Unbox) (Node, error) {
	operand, err := r.Visit(n.Operand)
	if err != nil {
		return nil, err
	}
	return &Unbox{Meta: n.Meta, Operand: operand, Target: n.Target}, nil
}

func (r *Rewriter) VisitJumpSwitch(n *JumpSwitch) (Node, error) {
	index, err := r.Visit(n.Index)
	if err != nil {
		return nil, err
	}
	cases := make([]*LabelTarget, len(n.Cases))
	copy(cases, n.Cases)
	return &JumpSwitch{Meta: n.Meta, Index: index, Cases: cases, Default: n.Default}, nil
}

func (r *Rewriter) VisitNativeSwitch(n *NativeSwitch) (Node, error) {
	disc, err := r.Visit(n.Discriminant)
	if err != nil {
		return nil, err
	}
	cases := make([]*NativeCase, 0, len(n.Cases))
	for _, c := range n.Cases {
		tests, err := r.VisitList(c.Tests)
		if err != nil {
			return nil, err
		}
		body, err := r.Visit(c.Body)
		if err != nil {
			return nil, err
		}
		cases = append(cases, &NativeCase{Tests: tests, Body: body})
	}
	def, err := r.Visit(n.Default)
	if err != nil {
		return nil, err
	}
	return &NativeSwitch{
		Meta:         n.Meta,
		Break:        n.Break,
		Discriminant: disc,
		Cases:        cases,
		Default:      def,
		Strategy:     n.Strategy,
		Equals:       n.Equals,
	}, nil
}

func cloneVars(vars []*Variable) []*Variable {
	if vars == nil {
		return nil
	}
	out := make([]*Variable, len(vars))
	copy(out, vars)
	return out
}
