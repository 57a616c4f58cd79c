// Package pipeline coordinates one end-to-end analysis run.
//
// # Stages
//
//  1. Load: walk the root and read matching files (internal/loader)
//  2. Segment: split every document into overlapping segments (internal/chunker)
//  3. Analyze: send each segment through the analyzer (internal/orchestrator)
//  4. Save: write the JSON artifact atomically (internal/sink)
//  5. Record: store the run in the optional SQLite ledger (internal/storage)
//
// Read and analysis failures are collected as diagnostics and never abort the
// run. A persistence failure is returned as the error of Run while the Report
// still carries every computed result.
//
// # Basic Usage
//
//	p := pipeline.New(a, ledger, logger)
//	report, err := p.Run(ctx, pipeline.Config{
//	    Root:    "./project",
//	    Loader:  loader.Options{Extensions: []string{".py", ".txt"}},
//	    Chunker: chunker.Options{MaxSize: 1000, Overlap: 200},
//	    Output:  "analysis_results.json",
//	})
//
// # Concurrency
//
// Run is safe to call from one goroutine at a time per output path. Callers
// that accept concurrent requests guard it with a RunLock.
package pipeline
