// Package driver lowers the functions of an IR module concurrently: switch
// compilation, then the generator rewrite for generators, then validation
// of the result. Failures become diagnostics for the offending function.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"cflow/internal/diag"
	"cflow/internal/generator"
	"cflow/internal/ir"
	"cflow/internal/observ"
	"cflow/internal/switchc"
	"cflow/internal/trace"
)

// Options configures LowerModule.
type Options struct {
	// Jobs bounds concurrent functions; 0 means GOMAXPROCS.
	Jobs     int
	MaxDepth int
	// EqualsMethod names the host equality of generic switches.
	EqualsMethod string
	// FailFast aborts the run on the first rejected function.
	FailFast       bool
	MaxDiagnostics int
	Cache          *DiskCache
	Progress       ProgressSink
	Timer          *observ.Timer
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return ir.DefaultMaxDepth
	}
	return o.MaxDepth
}

func (o Options) equalsMethod() string {
	if o.EqualsMethod == "" {
		return switchc.DefaultEqualsMethod
	}
	return o.EqualsMethod
}

// FuncResult is the outcome of lowering one function.
type FuncResult struct {
	Name string
	// Func is the lowered function, nil when it was rejected.
	Func      *ir.Function
	Switch    switchc.Stats
	Generator generator.Stats
	Cached    bool
	Bag       *diag.Bag
}

// Result is the outcome of LowerModule.
type Result struct {
	// Module holds the lowered functions in input order. Rejected functions
	// are left out.
	Module *ir.Module
	Funcs  []FuncResult
	// Bag merges the diagnostics of every function, sorted.
	Bag *diag.Bag
}

// Rejected reports how many functions failed to lower.
func (r *Result) Rejected() int {
	n := 0
	for i := range r.Funcs {
		if r.Funcs[i].Func == nil {
			n++
		}
	}
	return n
}

// LowerModule lowers every function of m. The input module is not modified.
// Without FailFast every function is attempted and failures are reported
// through the result's diagnostics; with FailFast the first failure cancels
// the remaining work and is returned as the error.
func LowerModule(ctx context.Context, m *ir.Module, opts Options) (*Result, error) {
	if m == nil {
		return nil, errors.New("driver: nil module")
	}
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeDriver, "lower", trace.CurrentSpan(ctx).SpanID)
	span.WithExtra("module", m.Name).WithExtra("funcs", strconv.Itoa(len(m.Funcs)))
	defer span.End("")
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

	for _, f := range m.Funcs {
		if f != nil {
			emit(opts.Progress, Event{Func: f.Name, Status: StatusQueued})
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// indices are unique per goroutine, no mutex needed
	results := make([]FuncResult, len(m.Funcs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(m.Funcs))))
	for i, f := range m.Funcs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = cancelled(f, gctx.Err(), opts)
				return gctx.Err()
			default:
			}
			res, err := lowerFunc(gctx, f, opts)
			results[i] = res
			if err != nil && opts.FailFast {
				return err
			}
			return nil
		})
	}
	waitErr := g.Wait()

	out := &Result{
		Module: &ir.Module{Name: m.Name},
		Funcs:  results,
		Bag:    diag.NewBag(opts.MaxDiagnostics),
	}
	for i := range results {
		if results[i].Func != nil {
			out.Module.Funcs = append(out.Module.Funcs, results[i].Func)
		}
		if results[i].Bag != nil {
			out.Bag.Merge(results[i].Bag)
		}
	}
	out.Bag.Sort()
	span.WithExtra("rejected", strconv.Itoa(out.Rejected()))

	status := StatusDone
	if waitErr != nil {
		status = StatusError
	}
	emit(opts.Progress, Event{Status: status, Err: waitErr})
	return out, waitErr
}

func cancelled(f *ir.Function, err error, opts Options) FuncResult {
	name := "<nil>"
	if f != nil {
		name = f.Name
	}
	bag := diag.NewBag(opts.MaxDiagnostics)
	d := diag.New(diag.SevWarning, diag.LowCancelled, funcLoc(f), "lowering cancelled: "+err.Error()).InFunc(name)
	bag.Add(d)
	emit(opts.Progress, Event{Func: name, Status: StatusError, Err: err})
	return FuncResult{Name: name, Bag: bag}
}

// lowerFunc lowers one function. The returned error is the lowering failure
// already recorded in the result's bag.
func lowerFunc(ctx context.Context, f *ir.Function, opts Options) (res FuncResult, err error) {
	bag := diag.NewBag(opts.MaxDiagnostics)
	res = FuncResult{Bag: bag}
	if f == nil {
		err = errors.New("nil function")
		bag.Add(diag.NewError(diag.LowStructural, funcLoc(f), "module holds a nil function"))
		return res, err
	}
	res.Name = f.Name

	tr := trace.FromContext(ctx)
	fspan := trace.Begin(tr, trace.ScopeFunc, "func:"+f.Name, trace.CurrentSpan(ctx).SpanID)
	phase := opts.Timer.Begin(f.Name)
	defer func() {
		note := "ok"
		switch {
		case err != nil:
			note = "rejected"
		case res.Cached:
			note = "cached"
		}
		opts.Timer.End(phase, note)
		elapsed := fspan.End(note)
		status := StatusDone
		if err != nil {
			status = StatusError
		} else if res.Cached {
			status = StatusCached
		}
		emit(opts.Progress, Event{Func: f.Name, Status: status, Err: err, Elapsed: elapsed})
	}()

	var key Digest
	if opts.Cache != nil {
		emit(opts.Progress, Event{Func: f.Name, Stage: StageCache, Status: StatusWorking})
		hit, k, ok := lookup(tr, fspan.ID(), f, opts)
		if ok {
			res.Func, res.Switch, res.Generator, res.Cached = hit.fn, hit.sw, hit.gen, true
			return res, nil
		}
		key = k
	}

	out, sw, gen, err := runPasses(tr, fspan.ID(), f, opts)
	res.Switch, res.Generator = sw, gen
	if err != nil {
		bag.Add(errorDiagnostic(f, err))
		return res, fmt.Errorf("%s: %w", f.Name, err)
	}
	res.Func = out

	if opts.Cache != nil && key != (Digest{}) {
		payload, perr := payloadFor(out, sw, gen)
		if perr == nil {
			perr = opts.Cache.Put(key, payload)
		}
		if perr != nil {
			trace.Point(tr, trace.ScopePass, "cache:put", fspan.ID(), perr.Error())
		}
	}
	return res, nil
}

type cacheHit struct {
	fn  *ir.Function
	sw  switchc.Stats
	gen generator.Stats
}

// lookup consults the cache. Cache failures are traced and treated as a
// miss.
func lookup(tr trace.Tracer, parent uint64, f *ir.Function, opts Options) (cacheHit, Digest, bool) {
	key, err := funcKey(f, opts)
	if err != nil {
		trace.Point(tr, trace.ScopePass, "cache:key", parent, err.Error())
		return cacheHit{}, Digest{}, false
	}
	var payload DiskPayload
	ok, err := opts.Cache.Get(key, &payload)
	if err != nil || !ok {
		if err != nil {
			trace.Point(tr, trace.ScopePass, "cache:get", parent, err.Error())
		}
		return cacheHit{}, key, false
	}
	fn, err := payload.function()
	if err != nil {
		trace.Point(tr, trace.ScopePass, "cache:decode", parent, err.Error())
		return cacheHit{}, key, false
	}
	trace.Point(tr, trace.ScopePass, "cache:hit", parent, key.String()[:12])
	return cacheHit{fn: fn, sw: payload.Switch, gen: payload.Generator}, key, true
}

// runPasses applies switch compilation, then the generator rewrite or the
// plain-function check, then validates the output.
func runPasses(tr trace.Tracer, parent uint64, f *ir.Function, opts Options) (*ir.Function, switchc.Stats, generator.Stats, error) {
	var (
		sw  switchc.Stats
		gen generator.Stats
	)
	if f.Lowered {
		if err := validateOutput(tr, parent, f, opts); err != nil {
			return nil, sw, gen, err
		}
		return f, sw, gen, nil
	}

	emit(opts.Progress, Event{Func: f.Name, Stage: StageSwitch, Status: StatusWorking})
	pspan := trace.Begin(tr, trace.ScopePass, "switch", parent)
	body, sw, err := switchc.CompileWithStats(f.Body, switchc.Options{
		MaxDepth:     opts.maxDepth(),
		EqualsMethod: opts.equalsMethod(),
	})
	pspan.WithExtra("switches", strconv.Itoa(sw.Switches)).
		WithExtra("generic", strconv.Itoa(sw.Generic)).
		WithExtra("jumps", strconv.Itoa(sw.JumpsBound))
	pspan.End(errDetail(err))
	if err != nil {
		return nil, sw, gen, err
	}

	compiled := *f
	compiled.Body = body

	var out *ir.Function
	if f.Generator {
		emit(opts.Progress, Event{Func: f.Name, Stage: StageGenerator, Status: StatusWorking})
		gspan := trace.Begin(tr, trace.ScopePass, "generator", parent)
		var step *ir.Lambda
		step, gen, err = generator.RewriteFunction(&compiled, generator.Options{MaxDepth: opts.maxDepth()})
		gspan.WithExtra("yields", strconv.Itoa(gen.Yields)).
			WithExtra("resume_ids", strconv.Itoa(gen.ResumeIDs)).
			WithExtra("cells", strconv.Itoa(gen.Cells)).
			WithExtra("frames", strconv.Itoa(gen.Frames))
		gspan.End(errDetail(err))
		if err != nil {
			return nil, sw, gen, err
		}
		out = &ir.Function{Name: f.Name, Loc: f.Loc, Generator: true, Lowered: true, Body: step}
	} else {
		pspan := trace.Begin(tr, trace.ScopePass, "plain", parent)
		err = generator.CheckPlain(compiled.Body, generator.Options{MaxDepth: opts.maxDepth()})
		pspan.End(errDetail(err))
		if err != nil {
			return nil, sw, gen, err
		}
		compiled.Lowered = true
		out = &compiled
	}

	if err := validateOutput(tr, parent, out, opts); err != nil {
		return nil, sw, gen, err
	}
	return out, sw, gen, nil
}

// invalidOutput marks a validation failure of a pass's own output, as
// opposed to a failure caused by malformed input.
type invalidOutput struct{ err error }

func (e *invalidOutput) Error() string { return "lowered output is invalid: " + e.err.Error() }
func (e *invalidOutput) Unwrap() error { return e.err }

func validateOutput(tr trace.Tracer, parent uint64, f *ir.Function, opts Options) error {
	emit(opts.Progress, Event{Func: f.Name, Stage: StageValidate, Status: StatusWorking})
	vspan := trace.Begin(tr, trace.ScopePass, "validate", parent)
	err := ir.ValidateFunction(f, opts.maxDepth())
	vspan.End(errDetail(err))
	if err != nil {
		return &invalidOutput{err: err}
	}
	return nil
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
