package vm

import (
	"math"
	"strconv"
	"strings"

	"cflow/internal/ir"
)

// Truthy reports the boolean interpretation of v.
func Truthy(v Value) bool {
	switch v.Kind {
	case VKUndefined, VKNull:
		return false
	case VKBool:
		return v.Bool
	case VKInt:
		return v.Int != 0
	case VKFloat:
		return v.Float != 0 && !math.IsNaN(v.Float)
	case VKString:
		return v.Str != ""
	}
	return true
}

// ToNumber converts v to a double. Values with no numeric reading are NaN.
func ToNumber(v Value) float64 {
	switch v.Kind {
	case VKNull:
		return 0
	case VKBool:
		if v.Bool {
			return 1
		}
		return 0
	case VKInt:
		return float64(v.Int)
	case VKFloat:
		return v.Float
	case VKString:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

// ToInt truncates the numeric reading of v. NaN and infinities are 0.
func ToInt(v Value) int64 {
	if v.Kind == VKInt {
		return v.Int
	}
	f := ToNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= -(1<<63) && f < 1<<63 {
		return int64(f)
	}
	return 0
}

// ToString converts v to its string form.
func ToString(v Value) string {
	return v.String()
}

// Convert coerces v to a static IR type.
func Convert(v Value, t ir.Type) Value {
	switch t {
	case ir.TypeInt:
		return MakeInt(ToInt(v))
	case ir.TypeFloat:
		return MakeFloat(ToNumber(v))
	case ir.TypeString:
		return MakeString(ToString(v))
	case ir.TypeBool:
		return MakeBool(Truthy(v))
	}
	return v
}

// StrictEquals compares without coercion. Ints and floats are one number
// type.
func StrictEquals(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		if a.Kind == VKInt && b.Kind == VKInt {
			return a.Int == b.Int
		}
		return ToNumber(a) == ToNumber(b)
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case VKUndefined, VKNull:
		return true
	case VKBool:
		return a.Bool == b.Bool
	case VKString:
		return a.Str == b.Str
	}
	return a.Ref == b.Ref
}

// LooseEquals compares with the usual script coercions: null equals
// undefined, and primitives of different kinds compare as numbers.
func LooseEquals(a, b Value) bool {
	if StrictEquals(a, b) {
		return true
	}
	if a.IsNullish() || b.IsNullish() {
		return a.IsNullish() && b.IsNullish()
	}
	if isPrimitive(a) && isPrimitive(b) {
		return ToNumber(a) == ToNumber(b)
	}
	return false
}

func isPrimitive(v Value) bool {
	switch v.Kind {
	case VKBool, VKInt, VKFloat, VKString:
		return true
	}
	return false
}

// TypeOf returns the script type name of v.
func TypeOf(v Value) string {
	switch v.Kind {
	case VKUndefined:
		return "undefined"
	case VKNull, VKArray, VKObject, VKStep, VKCell, VKHost:
		return "object"
	case VKBool:
		return "boolean"
	case VKInt, VKFloat:
		return "number"
	case VKString:
		return "string"
	case VKFunc:
		return "function"
	}
	return "undefined"
}

// IsType reports whether v belongs to the static type t.
func IsType(v Value, t ir.Type) bool {
	switch t {
	case ir.TypeAny:
		return true
	case ir.TypeVoid:
		return v.Kind == VKUndefined
	case ir.TypeBool:
		return v.Kind == VKBool
	case ir.TypeInt:
		return v.Kind == VKInt || (v.Kind == VKFloat && v.Float == math.Trunc(v.Float))
	case ir.TypeFloat:
		return v.IsNumber()
	case ir.TypeString:
		return v.Kind == VKString
	case ir.TypeObject:
		return v.Kind == VKObject
	case ir.TypeArray, ir.TypeArgs:
		return v.Kind == VKArray
	case ir.TypeFunc:
		return v.Kind == VKFunc
	case ir.TypeStep:
		return v.Kind == VKStep
	case ir.TypeCell:
		return v.Kind == VKCell
	case ir.TypeDriver:
		_, ok := v.Ref.(*GeneratorState)
		return v.Kind == VKHost && ok
	case ir.TypeException:
		return v.Kind != VKUndefined
	}
	return false
}
