// Package vm is a tree-walking evaluator over lowered IR and the run-time
// driver for generator step functions.
package vm

import (
	"fmt"
	"strconv"
	"strings"

	"cflow/internal/ir"
)

// ValueKind identifies the runtime type of a Value.
type ValueKind uint8

const (
	// VKUndefined is the zero Value.
	VKUndefined ValueKind = iota
	VKNull
	VKBool
	VKInt
	VKFloat
	VKString
	VKArray
	VKObject
	// VKFunc is a closure over a lambda.
	VKFunc
	// VKStep is a generator step result.
	VKStep
	// VKCell is a lifted variable's storage.
	VKCell
	// VKHost is an object implemented in Go, such as the generator driver.
	VKHost
)

// String returns a human-readable name for the value kind.
func (k ValueKind) String() string {
	switch k {
	case VKUndefined:
		return "undefined"
	case VKNull:
		return "null"
	case VKBool:
		return "bool"
	case VKInt:
		return "int"
	case VKFloat:
		return "float"
	case VKString:
		return "string"
	case VKArray:
		return "array"
	case VKObject:
		return "object"
	case VKFunc:
		return "func"
	case VKStep:
		return "step"
	case VKCell:
		return "cell"
	case VKHost:
		return "host"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// Value represents a runtime value.
type Value struct {
	Kind  ValueKind
	Bool  bool    // For VKBool
	Int   int64   // For VKInt
	Float float64 // For VKFloat
	Str   string  // For VKString
	Ref   any     // For reference kinds
}

// Array is a mutable sequence shared by reference.
type Array struct {
	Elems []Value
}

// Object is a script object with ordered keys.
type Object struct {
	Class  string
	Keys   []string
	Fields map[string]Value
}

// Get returns the field named key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.Fields[key]
	return v, ok
}

// Set stores a field, keeping first-insertion order.
func (o *Object) Set(key string, v Value) {
	if o.Fields == nil {
		o.Fields = make(map[string]Value)
	}
	if _, ok := o.Fields[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Fields[key] = v
}

// Cell holds a lifted variable across generator steps.
type Cell struct {
	Value Value
}

// Step is the result of one generator step. ID -1 ends the generator.
type Step struct {
	Value Value
	ID    int
}

// Done reports whether the step is terminal.
func (s Step) Done() bool { return s.ID == ir.TerminalID }

func (s Step) String() string {
	return fmt.Sprintf("(%s, %d)", s.Value, s.ID)
}

// Closure is a lambda together with the environment it was created in.
type Closure struct {
	Lambda *ir.Lambda
	env    *env
}

// Host is a Go object callable from IR.
type Host interface {
	CallMethod(ev *Evaluator, name string, args []Value) (Value, error)
	GetField(name string) (Value, error)
}

func Undefined() Value               { return Value{} }
func Null() Value                    { return Value{Kind: VKNull} }
func MakeBool(b bool) Value          { return Value{Kind: VKBool, Bool: b} }
func MakeInt(n int64) Value          { return Value{Kind: VKInt, Int: n} }
func MakeFloat(f float64) Value      { return Value{Kind: VKFloat, Float: f} }
func MakeString(s string) Value      { return Value{Kind: VKString, Str: s} }
func MakeArray(elems []Value) Value  { return Value{Kind: VKArray, Ref: &Array{Elems: elems}} }
func MakeObject(o *Object) Value     { return Value{Kind: VKObject, Ref: o} }
func MakeFunc(c *Closure) Value      { return Value{Kind: VKFunc, Ref: c} }
func MakeStep(v Value, id int) Value { return Value{Kind: VKStep, Ref: &Step{Value: v, ID: id}} }
func MakeCell(c *Cell) Value         { return Value{Kind: VKCell, Ref: c} }
func MakeHost(h Host) Value          { return Value{Kind: VKHost, Ref: h} }

// FromConstant converts an IR literal.
func FromConstant(v any) Value {
	switch v := v.(type) {
	case ir.NullValue:
		return Null()
	case bool:
		return MakeBool(v)
	case int64:
		return MakeInt(v)
	case float64:
		return MakeFloat(v)
	case string:
		return MakeString(v)
	}
	return Undefined()
}

// IsNullish reports whether v is null or undefined.
func (v Value) IsNullish() bool {
	return v.Kind == VKUndefined || v.Kind == VKNull
}

// IsNumber reports whether v is an int or a float.
func (v Value) IsNumber() bool {
	return v.Kind == VKInt || v.Kind == VKFloat
}

func (v Value) String() string {
	switch v.Kind {
	case VKUndefined:
		return "undefined"
	case VKNull:
		return "null"
	case VKBool:
		return strconv.FormatBool(v.Bool)
	case VKInt:
		return strconv.FormatInt(v.Int, 10)
	case VKFloat:
		return formatFloat(v.Float)
	case VKString:
		return v.Str
	case VKArray:
		arr := v.Ref.(*Array)
		parts := make([]string, len(arr.Elems))
		for i, e := range arr.Elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case VKObject:
		o := v.Ref.(*Object)
		parts := make([]string, len(o.Keys))
		for i, k := range o.Keys {
			parts[i] = k + ": " + o.Fields[k].String()
		}
		return o.Class + "{" + strings.Join(parts, ", ") + "}"
	case VKFunc:
		return "func " + v.Ref.(*Closure).Lambda.Name
	case VKStep:
		return v.Ref.(*Step).String()
	case VKCell:
		return "cell(" + v.Ref.(*Cell).Value.String() + ")"
	case VKHost:
		return fmt.Sprintf("<%T>", v.Ref)
	}
	return "<invalid>"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
