// Package trace provides a tracing subsystem for the cflow lowering driver.
//
// The trace package records driver runs, per-function lowering and the
// individual passes, so that slow or stuck lowering can be diagnosed.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	cflow lower --trace=- --trace-level=detail prog.cfir
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - Nop: zero-overhead no-op tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer for post-mortem dumps
//   - ZapTracer: forwards events to a zap.Logger
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only post-mortem dumps
//   - LevelPhase: driver and function boundaries
//   - LevelDetail: individual passes
//   - LevelDebug: everything including node-level events
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "switchc", parentID)
//	defer span.End("")
package trace
