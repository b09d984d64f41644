// Package generator rewrites suspending function bodies into re-entrant
// step functions.
//
// A step function is called with the driver, the call arguments, the resume
// id of the previous step, the value sent in and a pending exception. It
// returns a step result (value, id): id names the suspension point to
// continue from, -1 means the generator is exhausted. Everything that
// outlives one step lives in the driver: lifted variables (cells) and the
// handler frames of suspending try statements.
package generator

import (
	"cflow/internal/ir"
)

const passName = "generator"

// Input is a generator body together with the stand-ins it was compiled
// against.
type Input struct {
	Name string
	Body ir.Node
	// Return is the function's logical return label.
	Return *ir.LabelTarget
	// Params are bound from the call arguments on the first step.
	Params []*ir.Variable
	// Driver becomes the step function's first parameter. Args and Context
	// are replaced by the arguments parameter and driver.Context.
	Driver  *ir.Variable
	Args    *ir.Variable
	Context *ir.Variable
}

// Options configures a rewrite.
type Options struct {
	MaxDepth int
}

// Stats counts what a rewrite produced.
type Stats struct {
	Yields    int
	ResumeIDs int
	Cells     int
	Frames    int
	// Lowered counts suspending loops, conditionals and switches turned
	// into jumps.
	Lowered int
}

// RewriteFunction rewrites a generator function.
func RewriteFunction(f *ir.Function, opts Options) (*ir.Lambda, Stats, error) {
	return Rewrite(Input{
		Name:    f.Name,
		Body:    f.Body,
		Return:  f.Return,
		Params:  f.Params,
		Driver:  f.Driver,
		Args:    f.Args,
		Context: f.Context,
	}, opts)
}

// Rewrite turns a generator body into a step function. The input tree is not
// modified.
func Rewrite(in Input, opts Options) (*ir.Lambda, Stats, error) {
	if err := ir.CheckDepth(in.Body, opts.MaxDepth); err != nil {
		return nil, Stats{}, ir.InPass(err, passName)
	}
	if err := checkPositions(in.Body); err != nil {
		return nil, Stats{}, ir.InPass(err, passName)
	}
	r := newRewriter(in, opts)
	lam, err := r.run(in)
	if err != nil {
		return nil, r.stats, ir.InPass(err, passName)
	}
	return lam, r.stats, nil
}

type rewriter struct {
	ir.Rewriter

	// step function parameters
	driver      *ir.Variable
	args        *ir.Variable
	resumeID    *ir.Variable
	resumeValue *ir.Variable
	pending     *ir.Variable

	argsIn    *ir.Variable
	contextIn *ir.Variable
	ret       *ir.LabelTarget
	genRet    *ir.LabelTarget

	cells    map[*ir.Variable]*ir.Variable
	cellVars []*ir.Variable
	resume   []*ir.LabelTarget

	frames     []*frame
	labelDepth map[*ir.LabelTarget]int
	lambdas    int

	stats Stats
}

func newRewriter(in Input, opts Options) *rewriter {
	driver := in.Driver
	if driver == nil {
		driver = ir.NewVar("driver", ir.TypeDriver)
	}
	r := &rewriter{
		driver:      driver,
		args:        ir.NewVar("args", ir.TypeArgs),
		resumeID:    ir.NewVar("resumeId", ir.TypeInt),
		resumeValue: ir.NewVar("resumeValue", ir.TypeAny),
		pending:     ir.NewVar("pendingException", ir.TypeAny),
		argsIn:      in.Args,
		contextIn:   in.Context,
		ret:         in.Return,
		genRet:      &ir.LabelTarget{Name: "step_return", Typ: ir.TypeStep},
		cells:       make(map[*ir.Variable]*ir.Variable),
		labelDepth:  labelDepths(in.Body),
	}
	r.Init(r, opts.MaxDepth)
	return r
}

func (r *rewriter) run(in Input) (*ir.Lambda, error) {
	for _, p := range in.Params {
		if err := r.lift(p); err != nil {
			return nil, err
		}
	}
	params := make([]*ir.Variable, len(in.Params))
	copy(params, in.Params)

	body, err := r.Visit(in.Body)
	if err != nil {
		return nil, err
	}
	flat := flatten(ir.Seq(body))

	start := ir.NewLabel("start")
	exhausted := ir.NewLabel("exhausted")
	resume := make(map[int]*ir.LabelTarget, len(r.resume))
	for i, l := range r.resume {
		resume[i+1] = l
	}

	var stmts []ir.Node
	if n := len(r.cellVars); n > 0 {
		stmts = append(stmts, ir.CallOn(r.driver, MethodInitCells, ir.TypeVoid, ir.Int(int64(n))))
		for i, c := range r.cellVars {
			stmts = append(stmts, ir.Set(c, ir.CallOn(r.driver, MethodCell, ir.TypeCell, ir.Int(int64(i)))))
		}
	}
	index := ir.Bin(ir.OpAdd, r.resumeID, ir.Int(1))
	stmts = append(stmts, BuildJumpTable(index, start, exhausted, resume), ir.Mark(start))
	for i, p := range params {
		load := &ir.Index{Target: r.args, Args: []ir.Node{ir.Int(int64(i))}}
		stmts = append(stmts, ir.Set(r.cellValue(p), load))
	}
	stmts = append(stmts, flat.Stmts...)
	stmts = append(stmts,
		ir.Mark(exhausted),
		&ir.Label{Target: r.genRet, Default: ir.StepResult(ir.Undefined(), ir.TerminalID)},
	)

	vars := make([]*ir.Variable, 0, len(r.cellVars)+len(flat.Vars))
	vars = append(vars, r.cellVars...)
	vars = append(vars, flat.Vars...)

	r.stats.ResumeIDs = len(r.resume)
	r.stats.Cells = len(r.cellVars)
	lam := &ir.Lambda{
		Name:   in.Name,
		Params: []*ir.Variable{r.driver, r.args, r.resumeID, r.resumeValue, r.pending},
		Body:   ir.Scope(vars, stmts...),
		Result: ir.TypeStep,
	}
	if in.Body != nil {
		lam.Loc = in.Body.Span()
	}
	return lam, nil
}
