package irfile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"cflow/internal/ir"
	"cflow/internal/source"
)

// Producer is recorded in the header of written files.
var Producer = "cflow"

// Encode writes m to w.
func Encode(w io.Writer, m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("irfile: nil module")
	}
	enc := &encoder{
		vars:   make(map[*ir.Variable]int32),
		labels: make(map[*ir.LabelTarget]int32),
	}
	mod, err := enc.module(m)
	if err != nil {
		return err
	}
	f := file{
		Header: header{Magic: Magic, Version: FormatVersion, Producer: Producer},
		Module: mod,
	}
	return msgpack.NewEncoder(w).Encode(&f)
}

// Marshal returns the encoding of m.
func Marshal(m *ir.Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes m to path, replacing the file atomically.
func WriteFile(path string, m *ir.Module) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

type encoder struct {
	vars     map[*ir.Variable]int32
	labels   map[*ir.LabelTarget]int32
	varList  []wireVar
	labelLst []wireLabel
}

func (e *encoder) module(m *ir.Module) (wireModule, error) {
	out := wireModule{Name: m.Name}
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		wf, err := e.function(f)
		if err != nil {
			return wireModule{}, fmt.Errorf("irfile: function %s: %w", f.Name, err)
		}
		out.Funcs = append(out.Funcs, wf)
	}
	out.Vars = e.varList
	out.Labels = e.labelLst
	return out, nil
}

func (e *encoder) function(f *ir.Function) (wireFunc, error) {
	wf := wireFunc{Name: f.Name, Span: spanOut(f.Loc), Generator: f.Generator, Lowered: f.Lowered}
	var err error
	if wf.Params, err = e.varRefs(f.Params); err != nil {
		return wf, err
	}
	if wf.Return, err = e.labelRef(f.Return); err != nil {
		return wf, err
	}
	for _, p := range []struct {
		dst *int32
		v   *ir.Variable
	}{{&wf.Driver, f.Driver}, {&wf.Args, f.Args}, {&wf.Context, f.Context}} {
		if *p.dst, err = e.varRef(p.v); err != nil {
			return wf, err
		}
	}
	wf.Body, err = e.node(f.Body)
	return wf, err
}

func (e *encoder) varRef(v *ir.Variable) (int32, error) {
	if v == nil {
		return 0, nil
	}
	if id, ok := e.vars[v]; ok {
		return id, nil
	}
	id, err := safecast.Conv[int32](len(e.varList) + 1)
	if err != nil {
		return 0, fmt.Errorf("too many variables: %w", err)
	}
	e.vars[v] = id
	e.varList = append(e.varList, wireVar{Name: v.Name, Type: uint8(v.Typ), Span: spanOut(v.Loc)})
	return id, nil
}

func (e *encoder) varRefs(vs []*ir.Variable) ([]int32, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	out := make([]int32, len(vs))
	for i, v := range vs {
		id, err := e.varRef(v)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func (e *encoder) labelRef(l *ir.LabelTarget) (int32, error) {
	if l == nil {
		return 0, nil
	}
	if id, ok := e.labels[l]; ok {
		return id, nil
	}
	id, err := safecast.Conv[int32](len(e.labelLst) + 1)
	if err != nil {
		return 0, fmt.Errorf("too many labels: %w", err)
	}
	e.labels[l] = id
	e.labelLst = append(e.labelLst, wireLabel{Name: l.Name, Type: uint8(l.Typ)})
	return id, nil
}

func (e *encoder) labelRefs(ls []*ir.LabelTarget) ([]int32, error) {
	out := make([]int32, len(ls))
	for i, l := range ls {
		id, err := e.labelRef(l)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func (e *encoder) kids(ns ...ir.Node) ([]*wireNode, error) {
	out := make([]*wireNode, len(ns))
	for i, n := range ns {
		w, err := e.node(n)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

func (e *encoder) node(n ir.Node) (*wireNode, error) {
	if n == nil {
		return nil, nil
	}
	w := &wireNode{Kind: uint8(n.Kind()), Span: spanOut(n.Span())}
	var err error
	switch n := n.(type) {
	case *ir.Block:
		if w.Refs, err = e.varRefs(n.Vars); err != nil {
			return nil, err
		}
		w.Kids, err = e.kids(n.Stmts...)
	case *ir.Call:
		w.Name, w.Type = n.Method, uint8(n.Result)
		w.Kids, err = e.kids(append([]ir.Node{n.Receiver}, n.Args...)...)
	case *ir.Binary:
		w.Op = uint8(n.Op)
		w.Kids, err = e.kids(n.Left, n.Right)
	case *ir.Unary:
		w.Op = uint8(n.Op)
		w.Kids, err = e.kids(n.Operand)
	case *ir.Constant:
		w.Const, err = constOut(n.Value)
	case *ir.Conditional:
		w.Type = uint8(n.Result)
		w.Kids, err = e.kids(n.Test, n.Then, n.Else)
	case *ir.Assign:
		w.Kids, err = e.kids(n.Target, n.Value)
	case *ir.Variable:
		w.Ref, err = e.varRef(n)
	case *ir.New:
		w.Name, w.Type = n.Class, uint8(n.Result)
		w.Kids, err = e.kids(n.Args...)
	case *ir.Field:
		w.Name, w.Type = n.Name, uint8(n.Typ)
		w.Kids, err = e.kids(n.Target)
	case *ir.Property:
		w.Name = n.Name
		w.Kids, err = e.kids(n.Target)
	case *ir.Index:
		w.Kids, err = e.kids(append([]ir.Node{n.Target}, n.Args...)...)
	case *ir.NewArray:
		w.Kids, err = e.kids(n.Elems...)
	case *ir.Goto:
		w.Op = uint8(n.Jump)
		if w.Ref, err = e.labelRef(n.Target); err != nil {
			return nil, err
		}
		w.Kids, err = e.kids(n.Value)
	case *ir.Label:
		if w.Ref, err = e.labelRef(n.Target); err != nil {
			return nil, err
		}
		w.Kids, err = e.kids(n.Default)
	case *ir.Return:
		if w.Ref, err = e.labelRef(n.Target); err != nil {
			return nil, err
		}
		w.Kids, err = e.kids(n.Value)
	case *ir.Loop:
		if w.Refs, err = e.labelRefs([]*ir.LabelTarget{n.Break, n.Continue}); err != nil {
			return nil, err
		}
		w.Kids, err = e.kids(n.Body)
	case *ir.Lambda:
		w.Name, w.Type = n.Name, uint8(n.Result)
		if w.Refs, err = e.varRefs(n.Params); err != nil {
			return nil, err
		}
		w.Kids, err = e.kids(n.Body)
	case *ir.TypeIs:
		w.Type = uint8(n.Test)
		w.Kids, err = e.kids(n.Operand)
	case *ir.TypeAs:
		w.Type = uint8(n.Target)
		w.Kids, err = e.kids(n.Operand)
	case *ir.TryCatchFinally:
		var catchBody ir.Node
		if n.Catch != nil {
			w.Op = 1
			catchBody = n.Catch.Body
			if w.Ref, err = e.varRef(n.Catch.Var); err != nil {
				return nil, err
			}
		}
		w.Kids, err = e.kids(n.Try, catchBody, n.Finally)
	case *ir.Throw:
		w.Kids, err = e.kids(n.Value)
	case *ir.Convert:
		w.Type = uint8(n.Target)
		w.Kids, err = e.kids(n.Operand)
	case *ir.Invoke:
		w.Kids, err = e.kids(append([]ir.Node{n.Target}, n.Args...)...)
	case *ir.MemberInit:
		w.Name = n.Class
		values := make([]ir.Node, len(n.Bindings))
		for i, b := range n.Bindings {
			w.Names = append(w.Names, b.Name)
			values[i] = b.Value
		}
		w.Kids, err = e.kids(values...)
	case *ir.Empty:
	case *ir.Coalesce:
		w.Kids, err = e.kids(n.Left, n.Right)
	case *ir.Switch:
		if w.Kids, err = e.kids(n.Discriminant); err != nil {
			return nil, err
		}
		for _, c := range n.Cases {
			wc := wireCase{Span: spanOut(c.Loc), Default: c.Default}
			if wc.Tests, err = e.kids(c.Tests...); err != nil {
				return nil, err
			}
			if wc.Body, err = e.kids(c.Body...); err != nil {
				return nil, err
			}
			w.Cases = append(w.Cases, wc)
		}
	case *ir.Yield:
		w.Kids, err = e.kids(n.Argument)
	case *ir.DebugInfo:
		w.Range = spanOut(n.Range)
	case *ir.Box:
		w.Kids, err = e.kids(n.Operand)
	case *ir.Unbox:
		w.Type = uint8(n.Target)
		w.Kids, err = e.kids(n.Operand)
	case *ir.JumpSwitch:
		if w.Refs, err = e.labelRefs(n.Cases); err != nil {
			return nil, err
		}
		if w.Ref, err = e.labelRef(n.Default); err != nil {
			return nil, err
		}
		w.Kids, err = e.kids(n.Index)
	case *ir.NativeSwitch:
		w.Op, w.Name = uint8(n.Strategy), n.Equals
		if w.Ref, err = e.labelRef(n.Break); err != nil {
			return nil, err
		}
		if w.Kids, err = e.kids(n.Discriminant, n.Default); err != nil {
			return nil, err
		}
		for _, c := range n.Cases {
			var wc wireCase
			if wc.Tests, err = e.kids(c.Tests...); err != nil {
				return nil, err
			}
			if wc.Body, err = e.kids(c.Body); err != nil {
				return nil, err
			}
			w.Cases = append(w.Cases, wc)
		}
	default:
		return nil, ir.Unsupported(n, "cannot encode %s node", n.Kind())
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func constOut(v any) (*wireConst, error) {
	switch v := v.(type) {
	case nil:
		return &wireConst{Tag: constUndefined}, nil
	case ir.NullValue:
		return &wireConst{Tag: constNull}, nil
	case bool:
		return &wireConst{Tag: constBool, B: v}, nil
	case int64:
		return &wireConst{Tag: constInt, I: v}, nil
	case float64:
		return &wireConst{Tag: constFloat, F: v}, nil
	case string:
		return &wireConst{Tag: constString, S: v}, nil
	}
	return nil, fmt.Errorf("cannot encode constant of type %T", v)
}

func spanOut(s source.Span) *wireSpan {
	if s.IsZero() && s.File == "" {
		return nil
	}
	return &wireSpan{File: s.File, Line: s.Line, Col: s.Col, EndLine: s.EndLine, EndCol: s.EndCol}
}
