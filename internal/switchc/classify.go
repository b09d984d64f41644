package switchc

import (
	"math"

	"cflow/internal/ir"
)

type testClass uint8

const (
	classInt testClass = iota
	classFloat
	classString
	classDynamic
)

// classifyTest places one case test in the lattice. Only literals are
// classified statically; any other expression is compared dynamically.
func classifyTest(n ir.Node) (testClass, error) {
	c, ok := n.(*ir.Constant)
	if !ok {
		return classDynamic, nil
	}
	switch v := c.Value.(type) {
	case int64:
		return classInt, nil
	case float64:
		if isIntegral(v) {
			return classInt, nil
		}
		return classFloat, nil
	case string:
		return classString, nil
	case bool:
		return classDynamic, nil
	}
	return classDynamic, ir.Unsupported(n, "unsupported case label %s", ir.FormatValue(c.Value))
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) &&
		f >= -(1<<63) && f < 1<<63
}

// Classify picks the comparison strategy for a set of case tests: integer
// when every test is an integral number, float when every test is a number,
// string when every test is a string, generic otherwise. An empty set is
// integer.
func Classify(tests []ir.Node) (ir.Strategy, error) {
	allInt, allNumber, allString := true, true, true
	for _, t := range tests {
		class, err := classifyTest(t)
		if err != nil {
			return ir.CompareGeneric, err
		}
		switch class {
		case classInt:
			allString = false
		case classFloat:
			allInt, allString = false, false
		case classString:
			allInt, allNumber = false, false
		case classDynamic:
			allInt, allNumber, allString = false, false, false
		}
	}
	switch {
	case allInt:
		return ir.CompareInt, nil
	case allNumber:
		return ir.CompareFloat, nil
	case allString:
		return ir.CompareString, nil
	}
	return ir.CompareGeneric, nil
}

// convertTest rewrites a classified literal to the representative type of
// s. Generic tests are boxed.
func convertTest(n ir.Node, s ir.Strategy) ir.Node {
	c, ok := n.(*ir.Constant)
	switch {
	case s == ir.CompareGeneric || !ok:
		if n.Type() == ir.TypeAny {
			return n
		}
		return ir.WithSpan(&ir.Box{Operand: n}, n.Span())
	case s == ir.CompareInt:
		switch v := c.Value.(type) {
		case float64:
			return ir.WithSpan(ir.Int(int64(v)), c.Span())
		case int64:
			return ir.WithSpan(ir.Int(v), c.Span())
		}
	case s == ir.CompareFloat:
		switch v := c.Value.(type) {
		case float64:
			return ir.WithSpan(ir.Float(v), c.Span())
		case int64:
			return ir.WithSpan(ir.Float(float64(v)), c.Span())
		}
	case s == ir.CompareString:
		if v, ok := c.Value.(string); ok {
			return ir.WithSpan(ir.Str(v), c.Span())
		}
	}
	return n
}

// convertDiscriminant coerces the discriminant to the representative type
// of s. Generic switches keep the dynamic value.
func convertDiscriminant(n ir.Node, s ir.Strategy) ir.Node {
	var target ir.Type
	switch s {
	case ir.CompareInt:
		target = ir.TypeInt
	case ir.CompareFloat:
		target = ir.TypeFloat
	case ir.CompareString:
		target = ir.TypeString
	default:
		if n.Type() == ir.TypeAny {
			return n
		}
		return ir.WithSpan(&ir.Box{Operand: n}, n.Span())
	}
	if n.Type() == target {
		return n
	}
	return ir.WithSpan(&ir.Convert{Operand: n, Target: target}, n.Span())
}
