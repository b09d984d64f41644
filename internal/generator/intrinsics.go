package generator

// Methods and fields of the run-time driver that rewritten step functions
// call. The driver owns everything that must survive between steps.
const (
	// InitCells(n) allocates n cells on the first step; later calls are no-ops.
	MethodInitCells = "InitCells"
	// Cell(i) returns cell i.
	MethodCell = "Cell"
	// PushTry(catchID, finallyID, endID) arms a handler frame. A zero id
	// means the clause is absent.
	MethodPushTry = "PushTry"
	// BeginCatch marks the top frame as running its catch clause.
	MethodBeginCatch = "BeginCatch"
	// BeginFinally marks the top frame as running its finally clause.
	MethodBeginFinally = "BeginFinally"
	// Resolve(endID) ends a finally clause: it rethrows a pending exception
	// and reports whether a deferred return is in flight.
	MethodResolve = "Resolve"
	// PopTry disarms the top frame.
	MethodPopTry = "PopTry"
	// DeferReturn(v) records a return that must run finally clauses first.
	MethodDeferReturn = "DeferReturn"
	// TakeReturn yields and clears the deferred return value.
	MethodTakeReturn = "TakeReturn"
	// Unwind(depth) pops handler frames until depth remain.
	MethodUnwind = "Unwind"

	FieldContext = "Context"
	FieldValue   = "Value"
)
