// Package types provides shared type definitions for gocontext-review.
//
// The pipeline moves four kinds of values:
//
//	Document       -> one loaded file (identifier + text)
//	Segment        -> a bounded, overlapping piece of a Document
//	AnalysisResult -> the analysis text for one successfully analyzed Segment
//	Diagnostic     -> a failure that was isolated instead of aborting the run
//
// # Segments
//
// Segment offsets are measured in characters (runes) of the parent document.
// Overlap records how many leading characters repeat the tail of the
// previous segment, so the original text can be rebuilt:
//
//	var b strings.Builder
//	for _, seg := range segments {
//	    b.WriteString(seg.NewContent())
//	}
//	// b.String() == doc.Content
//
// # Results and failures
//
// Failures are never represented as results. A failed segment produces a
// Diagnostic and no AnalysisResult, so len(results) <= len(segments) and the
// results keep the order of the segments that succeeded.
//
// AnalysisResult carries the JSON shape of the output artifact:
//
//	{"file_name": "a.py", "analysis": "..."}
package types
