// Package trace is the event log of panicmap.
//
// Spans mark pipeline stages and analysis passes; point events record
// individual decisions such as a call-graph cycle being cut. Output goes to a
// stream (stderr or a file) as text or NDJSON.
//
// # Usage
//
//	panicmap analyze --trace=- --trace-level=detail -p app -t x86_64-unknown-linux-gnu
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelError: Only failures
//   - LevelPhase: Driver and pass boundaries
//   - LevelDetail: Per-stage and per-file events
//   - LevelDebug: Everything including per-function decisions
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "classify", trace.Parent(ctx))
//	ctx = span.Enter(ctx)
//	defer span.End("")
package trace
