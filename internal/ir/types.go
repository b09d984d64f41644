package ir

// Type is the static type carried by IR nodes. The set is closed: values the
// front end cannot type more precisely are TypeAny (a dynamic script value).
type Type uint8

const (
	TypeVoid Type = iota
	TypeAny
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeObject
	TypeArray
	TypeFunc
	// TypeStep is a generator step result (value, resume id).
	TypeStep
	// TypeCell is a heap cell holding a lifted variable.
	TypeCell
	TypeException
	TypeArgs
	// TypeDriver is the generator driver owning persistent state.
	TypeDriver

	typeCount
)

var typeNames = [...]string{
	TypeVoid:      "void",
	TypeAny:       "any",
	TypeBool:      "bool",
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeString:    "string",
	TypeObject:    "object",
	TypeArray:     "array",
	TypeFunc:      "func",
	TypeStep:      "step",
	TypeCell:      "cell",
	TypeException: "exception",
	TypeArgs:      "args",
	TypeDriver:    "driver",
}

func (t Type) String() string {
	if t < typeCount {
		return typeNames[t]
	}
	return "unknown"
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return t < typeCount
}

// IsNumeric reports whether t is int or float.
func (t Type) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}
