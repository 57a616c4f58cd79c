// Package orchestrator sends segments through an analyzer and collects the
// normalized results.
//
// Segments are analyzed one at a time by default. With Options.Workers > 1 a
// bounded worker pool is used, and results are still returned in input order.
// A failing call yields a types.Diagnostic and the batch continues.
package orchestrator
