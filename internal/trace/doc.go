// Package trace records what the lowering pipeline is doing: phase
// boundaries, per-class checks and per-method lowering.
//
// Enable it from the command line:
//
//	tirc lower --trace-level=detail --trace-out=lower.ndjson unit.toml
//
// Tracers travel through the pipeline in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "lower", 0)
//	defer span.End("")
//
// Levels select scopes: phase shows driver and pass spans, detail adds
// classes, debug adds every lowered method.
package trace
