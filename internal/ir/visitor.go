package ir

// DefaultMaxDepth bounds traversal of pathologically deep trees.
const DefaultMaxDepth = 4096

// Visitor has one handler per node kind. T is the caller-chosen result type.
type Visitor[T any] interface {
	VisitBlock(*Block) (T, error)
	VisitCall(*Call) (T, error)
	VisitBinary(*Binary) (T, error)
	VisitUnary(*Unary) (T, error)
	VisitConstant(*Constant) (T, error)
	VisitConditional(*Conditional) (T, error)
	VisitAssign(*Assign) (T, error)
	VisitVariable(*Variable) (T, error)
	VisitNew(*New) (T, error)
	VisitField(*Field) (T, error)
	VisitProperty(*Property) (T, error)
	VisitIndex(*Index) (T, error)
	VisitNewArray(*NewArray) (T, error)
	VisitGoto(*Goto) (T, error)
	VisitLabel(*Label) (T, error)
	VisitReturn(*Return) (T, error)
	VisitLoop(*Loop) (T, error)
	VisitLambda(*Lambda) (T, error)
	VisitTypeIs(*TypeIs) (T, error)
	VisitTypeAs(*TypeAs) (T, error)
	VisitTryCatchFinally(*TryCatchFinally) (T, error)
	VisitThrow(*Throw) (T, error)
	VisitConvert(*Convert) (T, error)
	VisitInvoke(*Invoke) (T, error)
	VisitMemberInit(*MemberInit) (T, error)
	VisitEmpty(*Empty) (T, error)
	VisitCoalesce(*Coalesce) (T, error)
	VisitSwitch(*Switch) (T, error)
	VisitYield(*Yield) (T, error)
	VisitDebugInfo(*DebugInfo) (T, error)
	VisitBox(*Box) (T, error)
	VisitUnbox(*Unbox) (T, error)
	VisitJumpSwitch(*JumpSwitch) (T, error)
	VisitNativeSwitch(*NativeSwitch) (T, error)
}

// Dispatch routes n to its handler on v. A nil node yields the zero result.
// A node type outside the closed set fails with ErrUnsupported.
func Dispatch[T any](v Visitor[T], n Node) (T, error) {
	switch n := n.(type) {
	case nil:
		var zero T
		return zero, nil
	case *Block:
		return v.VisitBlock(n)
	case *Call:
		return v.VisitCall(n)
	case *Binary:
		return v.VisitBinary(n)
	case *Unary:
		return v.VisitUnary(n)
	case *Constant:
		return v.VisitConstant(n)
	case *Conditional:
		return v.VisitConditional(n)
	case *Assign:
		return v.VisitAssign(n)
	case *Variable:
		return v.VisitVariable(n)
	case *New:
		return v.VisitNew(n)
	case *Field:
		return v.VisitField(n)
	case *Property:
		return v.VisitProperty(n)
	case *Index:
		return v.VisitIndex(n)
	case *NewArray:
		return v.VisitNewArray(n)
	case *Goto:
		return v.VisitGoto(n)
	case *Label:
		return v.VisitLabel(n)
	case *Return:
		return v.VisitReturn(n)
	case *Loop:
		return v.VisitLoop(n)
	case *Lambda:
		return v.VisitLambda(n)
	case *TypeIs:
		return v.VisitTypeIs(n)
	case *TypeAs:
		return v.VisitTypeAs(n)
	case *TryCatchFinally:
		return v.VisitTryCatchFinally(n)
	case *Throw:
		return v.VisitThrow(n)
	case *Convert:
		return v.VisitConvert(n)
	case *Invoke:
		return v.VisitInvoke(n)
	case *MemberInit:
		return v.VisitMemberInit(n)
	case *Empty:
		return v.VisitEmpty(n)
	case *Coalesce:
		return v.VisitCoalesce(n)
	case *Switch:
		return v.VisitSwitch(n)
	case *Yield:
		return v.VisitYield(n)
	case *DebugInfo:
		return v.VisitDebugInfo(n)
	case *Box:
		return v.VisitBox(n)
	case *Unbox:
		return v.VisitUnbox(n)
	case *JumpSwitch:
		return v.VisitJumpSwitch(n)
	case *NativeSwitch:
		return v.VisitNativeSwitch(n)
	default:
		var zero T
		return zero, Unsupported(n, "unsupported node kind %T", n)
	}
}

// Traverser dispatches nodes to a visitor under a recursion-depth guard.
// It is not safe for concurrent use; each traversal owns its own Traverser.
type Traverser[T any] struct {
	v        Visitor[T]
	depth    int
	maxDepth int
}

// NewTraverser returns a guarded traverser for v. maxDepth <= 0 selects
// DefaultMaxDepth.
func NewTraverser[T any](v Visitor[T], maxDepth int) *Traverser[T] {
	t := &Traverser[T]{}
	t.Init(v, maxDepth)
	return t
}

// Init binds the traverser to v. Types embedding a Traverser call Init with
// themselves so that recursion reaches their overrides.
func (t *Traverser[T]) Init(v Visitor[T], maxDepth int) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	t.v = v
	t.maxDepth = maxDepth
	t.depth = 0
}

// Visit dispatches n, failing with ErrRecursionTooDeep once the nesting
// exceeds the configured limit.
func (t *Traverser[T]) Visit(n Node) (T, error) {
	var zero T
	if n == nil {
		return zero, nil
	}
	if t.v == nil {
		return zero, Unsupported(n, "traverser has no visitor")
	}
	if t.depth >= t.maxDepth {
		return zero, TooDeep(n, t.maxDepth)
	}
	t.depth++
	defer func() { t.depth-- }()
	return Dispatch(t.v, n)
}

// Depth returns the current nesting depth.
func (t *Traverser[T]) Depth() int { return t.depth }

// MaxDepth returns the configured limit.
func (t *Traverser[T]) MaxDepth() int { return t.maxDepth }
