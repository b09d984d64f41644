package irfile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"cflow/internal/ir"
	"cflow/internal/source"
)

// Decode reads a module from r.
func Decode(r io.Reader) (*ir.Module, error) {
	var f file
	if err := msgpack.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if f.Header.Magic != Magic {
		return nil, ErrBadMagic
	}
	if err := CheckVersion(f.Header.Version); err != nil {
		return nil, err
	}
	return newDecoder(&f.Module).module()
}

// Unmarshal decodes a module from data.
func Unmarshal(data []byte) (*ir.Module, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile decodes the module stored at path.
func ReadFile(path string) (*ir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Header describes an IR file without its module.
type Header struct {
	Version  string
	Producer string
}

// ReadHeader decodes only the header of the file at path. An unsupported
// version is not an error here; check it with CheckVersion.
func ReadHeader(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	var f struct {
		Header header `msgpack:"header"`
	}
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return Header{}, fmt.Errorf("%s: %w: %w", path, ErrCorrupt, err)
	}
	if f.Header.Magic != Magic {
		return Header{}, fmt.Errorf("%s: %w", path, ErrBadMagic)
	}
	return Header{Version: f.Header.Version, Producer: f.Header.Producer}, nil
}

type decoder struct {
	in     *wireModule
	vars   []*ir.Variable
	labels []*ir.LabelTarget
	depth  int
}

func newDecoder(in *wireModule) *decoder {
	d := &decoder{in: in}
	d.vars = make([]*ir.Variable, len(in.Vars))
	for i, v := range in.Vars {
		d.vars[i] = &ir.Variable{Meta: ir.Meta{Loc: spanIn(v.Span)}, Name: v.Name, Typ: ir.Type(v.Type)}
	}
	d.labels = make([]*ir.LabelTarget, len(in.Labels))
	for i, l := range in.Labels {
		d.labels[i] = &ir.LabelTarget{Name: l.Name, Typ: ir.Type(l.Type)}
	}
	return d
}

func (d *decoder) module() (*ir.Module, error) {
	for i, v := range d.vars {
		if !v.Typ.Valid() {
			return nil, corrupt("variable %d has invalid type %d", i+1, v.Typ)
		}
	}
	for i, l := range d.labels {
		if !l.Typ.Valid() {
			return nil, corrupt("label %d has invalid type %d", i+1, l.Typ)
		}
	}
	m := &ir.Module{Name: d.in.Name}
	for _, wf := range d.in.Funcs {
		f, err := d.function(wf)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", wf.Name, err)
		}
		m.Funcs = append(m.Funcs, f)
	}
	return m, nil
}

func (d *decoder) function(wf wireFunc) (*ir.Function, error) {
	f := &ir.Function{Name: wf.Name, Loc: spanIn(wf.Span), Generator: wf.Generator, Lowered: wf.Lowered}
	var err error
	if f.Params, err = d.varList(wf.Params); err != nil {
		return nil, err
	}
	if f.Return, err = d.label(wf.Return); err != nil {
		return nil, err
	}
	if f.Driver, err = d.variable(wf.Driver); err != nil {
		return nil, err
	}
	if f.Args, err = d.variable(wf.Args); err != nil {
		return nil, err
	}
	if f.Context, err = d.variable(wf.Context); err != nil {
		return nil, err
	}
	f.Body, err = d.node(wf.Body)
	return f, err
}

func (d *decoder) variable(id int32) (*ir.Variable, error) {
	if id == 0 {
		return nil, nil
	}
	if id < 0 || int(id) > len(d.vars) {
		return nil, corrupt("variable id %d out of range", id)
	}
	return d.vars[id-1], nil
}

func (d *decoder) varList(ids []int32) ([]*ir.Variable, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]*ir.Variable, 0, len(ids))
	for _, id := range ids {
		v, err := d.variable(id)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (d *decoder) label(id int32) (*ir.LabelTarget, error) {
	if id == 0 {
		return nil, nil
	}
	if id < 0 || int(id) > len(d.labels) {
		return nil, corrupt("label id %d out of range", id)
	}
	return d.labels[id-1], nil
}

func (d *decoder) nodes(ws []*wireNode) ([]ir.Node, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	out := make([]ir.Node, len(ws))
	for i, w := range ws {
		n, err := d.node(w)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// kids decodes w.Kids, which must hold exactly want entries.
func (d *decoder) kids(w *wireNode, want int) ([]ir.Node, error) {
	if len(w.Kids) != want {
		return nil, corrupt("%s node has %d children, want %d", ir.Kind(w.Kind), len(w.Kids), want)
	}
	out := make([]ir.Node, want)
	for i, k := range w.Kids {
		n, err := d.node(k)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (d *decoder) typ(t uint8) (ir.Type, error) {
	if !ir.Type(t).Valid() {
		return 0, corrupt("invalid type %d", t)
	}
	return ir.Type(t), nil
}

func (d *decoder) node(w *wireNode) (ir.Node, error) {
	if w == nil {
		return nil, nil
	}
	if d.depth >= ir.DefaultMaxDepth {
		return nil, corrupt("nesting exceeds %d levels", ir.DefaultMaxDepth)
	}
	d.depth++
	defer func() { d.depth-- }()

	kind := ir.Kind(w.Kind)
	if !kind.Valid() {
		return nil, corrupt("invalid node kind %d", w.Kind)
	}
	meta := ir.Meta{Loc: spanIn(w.Span)}
	typ, err := d.typ(w.Type)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ir.KindBlock:
		vars, err := d.varList(w.Refs)
		if err != nil {
			return nil, err
		}
		stmts, err := d.nodes(w.Kids)
		if err != nil {
			return nil, err
		}
		return &ir.Block{Meta: meta, Vars: vars, Stmts: stmts}, nil
	case ir.KindCall:
		if len(w.Kids) == 0 {
			return nil, corrupt("call without receiver slot")
		}
		all, err := d.nodes(w.Kids)
		if err != nil {
			return nil, err
		}
		return &ir.Call{Meta: meta, Receiver: all[0], Method: w.Name, Args: tail(all), Result: typ}, nil
	case ir.KindBinary:
		k, err := d.kids(w, 2)
		if err != nil {
			return nil, err
		}
		if ir.BinaryOp(w.Op) > ir.OpOrElse {
			return nil, corrupt("invalid binary operator %d", w.Op)
		}
		return &ir.Binary{Meta: meta, Op: ir.BinaryOp(w.Op), Left: k[0], Right: k[1]}, nil
	case ir.KindUnary:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		if ir.UnaryOp(w.Op) > ir.OpTypeOf {
			return nil, corrupt("invalid unary operator %d", w.Op)
		}
		return &ir.Unary{Meta: meta, Op: ir.UnaryOp(w.Op), Operand: k[0]}, nil
	case ir.KindConstant:
		v, err := constIn(w.Const)
		if err != nil {
			return nil, err
		}
		return &ir.Constant{Meta: meta, Value: v}, nil
	case ir.KindConditional:
		k, err := d.kids(w, 3)
		if err != nil {
			return nil, err
		}
		return &ir.Conditional{Meta: meta, Test: k[0], Then: k[1], Else: k[2], Result: typ}, nil
	case ir.KindAssign:
		k, err := d.kids(w, 2)
		if err != nil {
			return nil, err
		}
		return &ir.Assign{Meta: meta, Target: k[0], Value: k[1]}, nil
	case ir.KindVariable:
		v, err := d.variable(w.Ref)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, corrupt("variable reference without id")
		}
		return v, nil
	case ir.KindNew:
		args, err := d.nodes(w.Kids)
		if err != nil {
			return nil, err
		}
		return &ir.New{Meta: meta, Class: w.Name, Args: args, Result: typ}, nil
	case ir.KindField:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &ir.Field{Meta: meta, Target: k[0], Name: w.Name, Typ: typ}, nil
	case ir.KindProperty:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &ir.Property{Meta: meta, Target: k[0], Name: w.Name}, nil
	case ir.KindIndex:
		if len(w.Kids) == 0 {
			return nil, corrupt("index without target")
		}
		all, err := d.nodes(w.Kids)
		if err != nil {
			return nil, err
		}
		return &ir.Index{Meta: meta, Target: all[0], Args: tail(all)}, nil
	case ir.KindNewArray:
		elems, err := d.nodes(w.Kids)
		if err != nil {
			return nil, err
		}
		return &ir.NewArray{Meta: meta, Elems: elems}, nil
	case ir.KindGoto:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		target, err := d.label(w.Ref)
		if err != nil {
			return nil, err
		}
		if ir.JumpKind(w.Op) > ir.JumpContinue {
			return nil, corrupt("invalid jump kind %d", w.Op)
		}
		return &ir.Goto{Meta: meta, Jump: ir.JumpKind(w.Op), Target: target, Value: k[0]}, nil
	case ir.KindLabel:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		target, err := d.label(w.Ref)
		if err != nil {
			return nil, err
		}
		return &ir.Label{Meta: meta, Target: target, Default: k[0]}, nil
	case ir.KindReturn:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		target, err := d.label(w.Ref)
		if err != nil {
			return nil, err
		}
		return &ir.Return{Meta: meta, Target: target, Value: k[0]}, nil
	case ir.KindLoop:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		if len(w.Refs) != 2 {
			return nil, corrupt("loop has %d labels, want 2", len(w.Refs))
		}
		brk, err := d.label(w.Refs[0])
		if err != nil {
			return nil, err
		}
		cont, err := d.label(w.Refs[1])
		if err != nil {
			return nil, err
		}
		return &ir.Loop{Meta: meta, Body: k[0], Break: brk, Continue: cont}, nil
	case ir.KindLambda:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		params, err := d.varList(w.Refs)
		if err != nil {
			return nil, err
		}
		return &ir.Lambda{Meta: meta, Name: w.Name, Params: params, Body: k[0], Result: typ}, nil
	case ir.KindTypeIs:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &ir.TypeIs{Meta: meta, Operand: k[0], Test: typ}, nil
	case ir.KindTypeAs:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &ir.TypeAs{Meta: meta, Operand: k[0], Target: typ}, nil
	case ir.KindTryCatchFinally:
		k, err := d.kids(w, 3)
		if err != nil {
			return nil, err
		}
		n := &ir.TryCatchFinally{Meta: meta, Try: k[0], Finally: k[2]}
		if w.Op != 0 {
			v, err := d.variable(w.Ref)
			if err != nil {
				return nil, err
			}
			n.Catch = &ir.Catch{Var: v, Body: k[1]}
		}
		return n, nil
	case ir.KindThrow:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &ir.Throw{Meta: meta, Value: k[0]}, nil
	case ir.KindConvert:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &ir.Convert{Meta: meta, Operand: k[0], Target: typ}, nil
	case ir.KindInvoke:
		if len(w.Kids) == 0 {
			return nil, corrupt("invoke without target")
		}
		all, err := d.nodes(w.Kids)
		if err != nil {
			return nil, err
		}
		return &ir.Invoke{Meta: meta, Target: all[0], Args: tail(all)}, nil
	case ir.KindMemberInit:
		if len(w.Names) != len(w.Kids) {
			return nil, corrupt("member init has %d names for %d values", len(w.Names), len(w.Kids))
		}
		values, err := d.nodes(w.Kids)
		if err != nil {
			return nil, err
		}
		n := &ir.MemberInit{Meta: meta, Class: w.Name}
		for i, name := range w.Names {
			n.Bindings = append(n.Bindings, ir.Binding{Name: name, Value: values[i]})
		}
		return n, nil
	case ir.KindEmpty:
		return &ir.Empty{Meta: meta}, nil
	case ir.KindCoalesce:
		k, err := d.kids(w, 2)
		if err != nil {
			return nil, err
		}
		return &ir.Coalesce{Meta: meta, Left: k[0], Right: k[1]}, nil
	case ir.KindSwitch:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		n := &ir.Switch{Meta: meta, Discriminant: k[0]}
		for _, wc := range w.Cases {
			tests, err := d.nodes(wc.Tests)
			if err != nil {
				return nil, err
			}
			body, err := d.nodes(wc.Body)
			if err != nil {
				return nil, err
			}
			n.Cases = append(n.Cases, &ir.SwitchCase{Loc: spanIn(wc.Span), Default: wc.Default, Tests: tests, Body: body})
		}
		return n, nil
	case ir.KindYield:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &ir.Yield{Meta: meta, Argument: k[0]}, nil
	case ir.KindDebugInfo:
		return &ir.DebugInfo{Meta: meta, Range: spanIn(w.Range)}, nil
	case ir.KindBox:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &ir.Box{Meta: meta, Operand: k[0]}, nil
	case ir.KindUnbox:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &ir.Unbox{Meta: meta, Operand: k[0], Target: typ}, nil
	case ir.KindJumpSwitch:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		n := &ir.JumpSwitch{Meta: meta, Index: k[0]}
		for _, id := range w.Refs {
			l, err := d.label(id)
			if err != nil {
				return nil, err
			}
			n.Cases = append(n.Cases, l)
		}
		if n.Default, err = d.label(w.Ref); err != nil {
			return nil, err
		}
		return n, nil
	case ir.KindNativeSwitch:
		k, err := d.kids(w, 2)
		if err != nil {
			return nil, err
		}
		if ir.Strategy(w.Op) > ir.CompareGeneric {
			return nil, corrupt("invalid switch strategy %d", w.Op)
		}
		brk, err := d.label(w.Ref)
		if err != nil {
			return nil, err
		}
		n := &ir.NativeSwitch{
			Meta:         meta,
			Break:        brk,
			Discriminant: k[0],
			Default:      k[1],
			Strategy:     ir.Strategy(w.Op),
			Equals:       w.Name,
		}
		for _, wc := range w.Cases {
			tests, err := d.nodes(wc.Tests)
			if err != nil {
				return nil, err
			}
			if len(wc.Body) != 1 {
				return nil, corrupt("native case has %d bodies, want 1", len(wc.Body))
			}
			body, err := d.node(wc.Body[0])
			if err != nil {
				return nil, err
			}
			n.Cases = append(n.Cases, &ir.NativeCase{Tests: tests, Body: body})
		}
		return n, nil
	}
	return nil, corrupt("unhandled node kind %s", kind)
}

func tail(all []ir.Node) []ir.Node {
	if len(all) <= 1 {
		return nil
	}
	return all[1:]
}

func constIn(c *wireConst) (any, error) {
	if c == nil {
		return nil, nil
	}
	switch c.Tag {
	case constUndefined:
		return nil, nil
	case constNull:
		return ir.Null, nil
	case constBool:
		return c.B, nil
	case constInt:
		return c.I, nil
	case constFloat:
		return c.F, nil
	case constString:
		return c.S, nil
	}
	return nil, corrupt("invalid constant tag %d", c.Tag)
}

func spanIn(s *wireSpan) source.Span {
	if s == nil {
		return source.Span{}
	}
	return source.Span{File: s.File, Line: s.Line, Col: s.Col, EndLine: s.EndLine, EndCol: s.EndCol}
}
