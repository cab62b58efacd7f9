// Package trace records spans of label engine work: CLI commands, tree
// walks, per-file scans and rewrites.
//
// Enable tracing via command-line flags:
//
//	labeltool summarize --trace=- --trace-level=detail all
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelPhase: Commands and tree walks
//   - LevelDetail: Per-file scans and rewrites
//   - LevelDebug: Everything, including scan cache hits
//
// # Context Propagation
//
//	ctx = trace.With(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopeFile, "scan_file")
//	defer span.End(file)
package trace
