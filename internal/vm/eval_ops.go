package vm

import (
	"math"

	"cflow/internal/ir"
)

func (e *Evaluator) VisitBinary(n *ir.Binary) (Value, error) {
	left, err := e.Visit(n.Left)
	if err != nil {
		return Undefined(), err
	}
	switch n.Op {
	case ir.OpAndAlso:
		if !Truthy(left) {
			return left, nil
		}
		return e.Visit(n.Right)
	case ir.OpOrElse:
		if Truthy(left) {
			return left, nil
		}
		return e.Visit(n.Right)
	}
	right, err := e.Visit(n.Right)
	if err != nil {
		return Undefined(), err
	}
	return binaryOp(n.Op, left, right), nil
}

func binaryOp(op ir.BinaryOp, a, b Value) Value {
	switch op {
	case ir.OpAdd:
		if a.Kind == VKString || b.Kind == VKString {
			return MakeString(ToString(a) + ToString(b))
		}
		return arith(op, a, b)
	case ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod:
		return arith(op, a, b)
	case ir.OpEqual:
		return MakeBool(LooseEquals(a, b))
	case ir.OpNotEqual:
		return MakeBool(!LooseEquals(a, b))
	case ir.OpStrictEqual:
		return MakeBool(StrictEquals(a, b))
	case ir.OpStrictNotEqual:
		return MakeBool(!StrictEquals(a, b))
	case ir.OpLess, ir.OpLessEqual, ir.OpGreater, ir.OpGreaterEqual:
		return MakeBool(compare(op, a, b))
	}
	return Undefined()
}

// arith keeps integer arithmetic exact while it fits and falls back to
// doubles otherwise.
func arith(op ir.BinaryOp, a, b Value) Value {
	if a.Kind == VKInt && b.Kind == VKInt {
		x, y := a.Int, b.Int
		switch op {
		case ir.OpAdd:
			if s := x + y; (s > x) == (y > 0) {
				return MakeInt(s)
			}
		case ir.OpSub:
			if s := x - y; (s < x) == (y > 0) {
				return MakeInt(s)
			}
		case ir.OpMul:
			if x == 0 || y == 0 {
				return MakeInt(0)
			}
			if p := x * y; p/y == x && !(x == -1 && y == math.MinInt64) && !(y == -1 && x == math.MinInt64) {
				return MakeInt(p)
			}
		case ir.OpDiv:
			if y != 0 && x%y == 0 && !(x == math.MinInt64 && y == -1) {
				return MakeInt(x / y)
			}
		case ir.OpMod:
			if y != 0 && !(x == math.MinInt64 && y == -1) {
				return MakeInt(x % y)
			}
		}
	}
	x, y := ToNumber(a), ToNumber(b)
	switch op {
	case ir.OpAdd:
		return MakeFloat(x + y)
	case ir.OpSub:
		return MakeFloat(x - y)
	case ir.OpMul:
		return MakeFloat(x * y)
	case ir.OpDiv:
		return MakeFloat(x / y)
	case ir.OpMod:
		return MakeFloat(math.Mod(x, y))
	}
	return Undefined()
}

func compare(op ir.BinaryOp, a, b Value) bool {
	if a.Kind == VKString && b.Kind == VKString {
		switch op {
		case ir.OpLess:
			return a.Str < b.Str
		case ir.OpLessEqual:
			return a.Str <= b.Str
		case ir.OpGreater:
			return a.Str > b.Str
		default:
			return a.Str >= b.Str
		}
	}
	x, y := ToNumber(a), ToNumber(b)
	switch op {
	case ir.OpLess:
		return x < y
	case ir.OpLessEqual:
		return x <= y
	case ir.OpGreater:
		return x > y
	default:
		return x >= y
	}
}

func (e *Evaluator) VisitUnary(n *ir.Unary) (Value, error) {
	v, err := e.Visit(n.Operand)
	if err != nil {
		return Undefined(), err
	}
	switch n.Op {
	case ir.OpNegate:
		if v.Kind == VKInt && v.Int != math.MinInt64 {
			return MakeInt(-v.Int), nil
		}
		return MakeFloat(-ToNumber(v)), nil
	case ir.OpNot:
		return MakeBool(!Truthy(v)), nil
	case ir.OpTypeOf:
		return MakeString(TypeOf(v)), nil
	}
	return Undefined(), e.eb.unimplemented("unary " + n.Op.String())
}
