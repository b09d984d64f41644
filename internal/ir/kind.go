package ir

// Kind is the tag of an IR node. Dispatch in Visitor implementations is
// driven by the node's concrete type; Kind mirrors it for printing,
// diagnostics and serialization.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBlock
	KindCall
	KindBinary
	KindUnary
	KindConstant
	KindConditional
	KindAssign
	KindVariable
	KindNew
	KindField
	KindProperty
	KindIndex
	KindNewArray
	KindGoto
	KindLabel
	KindReturn
	KindLoop
	KindLambda
	KindTypeIs
	KindTypeAs
	KindTryCatchFinally
	KindThrow
	KindConvert
	KindInvoke
	KindMemberInit
	KindEmpty
	KindCoalesce
	KindSwitch
	KindYield
	KindDebugInfo
	KindBox
	KindUnbox
	KindJumpSwitch
	KindNativeSwitch

	kindCount
)

var kindNames = [...]string{
	KindInvalid:         "invalid",
	KindBlock:           "block",
	KindCall:            "call",
	KindBinary:          "binary",
	KindUnary:           "unary",
	KindConstant:        "const",
	KindConditional:     "cond",
	KindAssign:          "assign",
	KindVariable:        "var",
	KindNew:             "new",
	KindField:           "field",
	KindProperty:        "prop",
	KindIndex:           "index",
	KindNewArray:        "array",
	KindGoto:            "goto",
	KindLabel:           "label",
	KindReturn:          "return",
	KindLoop:            "loop",
	KindLambda:          "lambda",
	KindTypeIs:          "is",
	KindTypeAs:          "as",
	KindTryCatchFinally: "try",
	KindThrow:           "throw",
	KindConvert:         "convert",
	KindInvoke:          "invoke",
	KindMemberInit:      "init",
	KindEmpty:           "empty",
	KindCoalesce:        "coalesce",
	KindSwitch:          "switch",
	KindYield:           "yield",
	KindDebugInfo:       "debug",
	KindBox:             "box",
	KindUnbox:           "unbox",
	KindJumpSwitch:      "jump_switch",
	KindNativeSwitch:    "native_switch",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// Valid reports whether k names a node kind.
func (k Kind) Valid() bool {
	return k > KindInvalid && k < kindCount
}

// JumpKind distinguishes plain gotos from the unresolved break/continue
// jumps emitted by statement compilation.
type JumpKind uint8

const (
	JumpGoto JumpKind = iota
	JumpBreak
	JumpContinue
)

func (k JumpKind) String() string {
	switch k {
	case JumpGoto:
		return "goto"
	case JumpBreak:
		return "break"
	case JumpContinue:
		return "continue"
	}
	return "unknown"
}

// BinaryOp is the operator of a Binary node.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEqual
	OpNotEqual
	OpStrictEqual
	OpStrictNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAndAlso
	OpOrElse
)

var binaryOpNames = [...]string{
	OpAdd:            "+",
	OpSub:            "-",
	OpMul:            "*",
	OpDiv:            "/",
	OpMod:            "%",
	OpEqual:          "==",
	OpNotEqual:       "!=",
	OpStrictEqual:    "===",
	OpStrictNotEqual: "!==",
	OpLess:           "<",
	OpLessEqual:      "<=",
	OpGreater:        ">",
	OpGreaterEqual:   ">=",
	OpAndAlso:        "&&",
	OpOrElse:         "||",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// IsComparison reports whether op produces a boolean.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEqual
}

// UnaryOp is the operator of a Unary node.
type UnaryOp uint8

const (
	OpNegate UnaryOp = iota
	OpNot
	OpTypeOf
)

func (op UnaryOp) String() string {
	switch op {
	case OpNegate:
		return "-"
	case OpNot:
		return "!"
	case OpTypeOf:
		return "typeof "
	}
	return "?"
}

// Strategy is the comparison a NativeSwitch performs between the
// discriminant and its case tests.
type Strategy uint8

const (
	// CompareInt compares integers structurally.
	CompareInt Strategy = iota
	// CompareFloat compares doubles structurally.
	CompareFloat
	// CompareString compares strings structurally.
	CompareString
	// CompareGeneric calls the run-time equality method named by the switch.
	CompareGeneric
)

func (s Strategy) String() string {
	switch s {
	case CompareInt:
		return "int"
	case CompareFloat:
		return "float"
	case CompareString:
		return "string"
	case CompareGeneric:
		return "generic"
	}
	return "unknown"
}
