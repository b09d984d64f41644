package vm

import (
	"strconv"

	"cflow/internal/ir"
)

func (e *Evaluator) VisitCall(n *ir.Call) (Value, error) {
	if n.Receiver == nil {
		args, err := e.visitList(n.Args)
		if err != nil {
			return Undefined(), err
		}
		return e.callBuiltin(n.Method, args)
	}
	recv, err := e.Visit(n.Receiver)
	if err != nil {
		return Undefined(), err
	}
	args, err := e.visitList(n.Args)
	if err != nil {
		return Undefined(), err
	}
	switch recv.Kind {
	case VKHost:
		v, err := recv.Ref.(Host).CallMethod(e, n.Method, args)
		e.trace.TraceIntrinsic(n.Method, args, v)
		return v, err
	case VKArray:
		return e.arrayMethod(recv.Ref.(*Array), n.Method, args)
	case VKObject:
		if fn, ok := recv.Ref.(*Object).Get(n.Method); ok && fn.Kind == VKFunc {
			return e.Call(fn, args...)
		}
	}
	return Undefined(), e.eb.unsupportedIntrinsic(recv.Kind.String() + "." + n.Method)
}

func (e *Evaluator) arrayMethod(arr *Array, name string, args []Value) (Value, error) {
	switch name {
	case "push":
		arr.Elems = append(arr.Elems, args...)
		return MakeInt(int64(len(arr.Elems))), nil
	case "pop":
		if len(arr.Elems) == 0 {
			return Undefined(), nil
		}
		last := arr.Elems[len(arr.Elems)-1]
		arr.Elems = arr.Elems[:len(arr.Elems)-1]
		return last, nil
	}
	return Undefined(), e.eb.unsupportedIntrinsic("array." + name)
}

func (e *Evaluator) VisitNew(n *ir.New) (Value, error) {
	args, err := e.visitList(n.Args)
	if err != nil {
		return Undefined(), err
	}
	arg := func(i int) Value {
		if i < len(args) {
			return args[i]
		}
		return Undefined()
	}
	switch n.Class {
	case ir.ClassStep:
		return MakeStep(arg(0), int(ToInt(arg(1)))), nil
	case "Array":
		return MakeArray(args), nil
	case "Error":
		o := &Object{Class: "Error"}
		o.Set("message", arg(0))
		return MakeObject(o), nil
	}
	o := &Object{Class: n.Class}
	for i, a := range args {
		o.Set(strconv.Itoa(i), a)
	}
	return MakeObject(o), nil
}

func (e *Evaluator) VisitField(n *ir.Field) (Value, error) {
	obj, err := e.Visit(n.Target)
	if err != nil {
		return Undefined(), err
	}
	return e.getField(obj, n.Name)
}

func (e *Evaluator) getField(obj Value, name string) (Value, error) {
	switch obj.Kind {
	case VKCell:
		if name == "Value" {
			return obj.Ref.(*Cell).Value, nil
		}
	case VKStep:
		s := obj.Ref.(*Step)
		switch name {
		case "Value":
			return s.Value, nil
		case "ID":
			return MakeInt(int64(s.ID)), nil
		}
	case VKHost:
		return obj.Ref.(Host).GetField(name)
	case VKObject:
		v, _ := obj.Ref.(*Object).Get(name)
		return v, nil
	}
	return Undefined(), e.eb.typeMismatch("object with field "+name, obj)
}

func (e *Evaluator) setField(obj Value, name string, v Value) error {
	switch obj.Kind {
	case VKCell:
		if name == "Value" {
			obj.Ref.(*Cell).Value = v
			return nil
		}
	case VKObject:
		obj.Ref.(*Object).Set(name, v)
		return nil
	}
	return e.eb.typeMismatch("object with field "+name, obj)
}

func (e *Evaluator) VisitProperty(n *ir.Property) (Value, error) {
	obj, err := e.Visit(n.Target)
	if err != nil {
		return Undefined(), err
	}
	return e.getProperty(obj, n.Name, n)
}

func (e *Evaluator) getProperty(obj Value, name string, at ir.Node) (Value, error) {
	switch obj.Kind {
	case VKUndefined, VKNull:
		return Undefined(), &Thrown{
			Value: MakeString("cannot read property " + strconv.Quote(name) + " of " + obj.String()),
			Span:  at.Span(),
		}
	case VKObject:
		v, _ := obj.Ref.(*Object).Get(name)
		return v, nil
	case VKArray:
		if name == "length" {
			return MakeInt(int64(len(obj.Ref.(*Array).Elems))), nil
		}
	case VKString:
		if name == "length" {
			return MakeInt(int64(len(obj.Str))), nil
		}
	case VKHost:
		return obj.Ref.(Host).GetField(name)
	case VKCell, VKStep:
		return e.getField(obj, name)
	}
	return Undefined(), nil
}

func (e *Evaluator) setProperty(obj Value, name string, v Value) error {
	if obj.Kind == VKObject {
		obj.Ref.(*Object).Set(name, v)
		return nil
	}
	return e.eb.typeMismatch("object", obj)
}

func (e *Evaluator) VisitIndex(n *ir.Index) (Value, error) {
	obj, err := e.Visit(n.Target)
	if err != nil {
		return Undefined(), err
	}
	keys, err := e.visitList(n.Args)
	if err != nil {
		return Undefined(), err
	}
	if len(keys) != 1 {
		return Undefined(), e.eb.unimplemented("multi-dimensional index")
	}
	key := keys[0]
	switch obj.Kind {
	case VKArray:
		elems := obj.Ref.(*Array).Elems
		i := ToInt(key)
		if i < 0 || i >= int64(len(elems)) {
			return Undefined(), nil
		}
		return elems[i], nil
	case VKString:
		i := ToInt(key)
		if i < 0 || i >= int64(len(obj.Str)) {
			return Undefined(), nil
		}
		return MakeString(obj.Str[i : i+1]), nil
	}
	return e.getProperty(obj, ToString(key), n)
}

func (e *Evaluator) setIndex(obj Value, keys []Value, v Value) error {
	if len(keys) != 1 {
		return e.eb.unimplemented("multi-dimensional index")
	}
	if obj.Kind != VKArray {
		return e.setProperty(obj, ToString(keys[0]), v)
	}
	arr := obj.Ref.(*Array)
	i := ToInt(keys[0])
	if i < 0 || i > int64(len(arr.Elems)) {
		return e.eb.outOfBounds(int(i), len(arr.Elems))
	}
	if i == int64(len(arr.Elems)) {
		arr.Elems = append(arr.Elems, v)
		return nil
	}
	arr.Elems[i] = v
	return nil
}

func (e *Evaluator) VisitNewArray(n *ir.NewArray) (Value, error) {
	elems, err := e.visitList(n.Elems)
	if err != nil {
		return Undefined(), err
	}
	return MakeArray(elems), nil
}

func (e *Evaluator) VisitMemberInit(n *ir.MemberInit) (Value, error) {
	o := &Object{Class: n.Class}
	for _, b := range n.Bindings {
		v, err := e.Visit(b.Value)
		if err != nil {
			return Undefined(), err
		}
		o.Set(b.Name, v)
	}
	return MakeObject(o), nil
}
