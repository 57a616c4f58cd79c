// Package chunker splits document text into bounded, overlapping segments.
//
// Splitting is recursive and separator-driven. A Policy lists boundaries in
// priority order (paragraphs, lines, sentences, words, then single
// characters for TextPolicy). The chunker cuts on the first separator that
// occurs in the text and recurses into any piece still larger than MaxSize
// with the remaining, lower-priority separators. The empty separator splits
// into characters and always succeeds, so a policy that ends with "" never
// produces oversized segments.
//
// # Basic Usage
//
//	c, err := chunker.New(chunker.Options{MaxSize: 1000, Overlap: 200})
//	if err != nil {
//	    log.Fatal(err) // invalid sizes are a configuration error
//	}
//
//	segments := c.Split(types.Document{Identifier: "a.py", Content: src})
//	for _, seg := range segments {
//	    fmt.Printf("%s#%d: chars %d-%d (overlap %d)\n",
//	        seg.Identifier, seg.Index, seg.Start, seg.End, seg.Overlap)
//	}
//
// # Reassembly and Overlap
//
// Pieces are packed greedily while the segment stays within MaxSize. When the
// next piece does not fit, the segment is closed and the next one opens with
// the last Overlap characters of the closed segment, followed by the pending
// piece. The overlap shrinks when keeping all of it would push the new segment
// past MaxSize, and never reaches back past the start of the closed segment.
//
// A piece that is itself larger than MaxSize (possible only with a policy that
// lacks the "" fallback) is emitted alone and flagged Oversized.
//
// # Language-Aware Policies
//
// With LanguageAware set, the policy is chosen from the document extension:
// GoPolicy for .go, PythonPolicy for .py, TextPolicy otherwise. Language
// policies keep separators at the start of the following piece so that a
// declaration keeps its leading keyword.
//
// # Token Estimates
//
// EstimateTokenCount uses a simple heuristic (chars/4), matching what the
// providers bill closely enough for progress reporting.
package chunker
