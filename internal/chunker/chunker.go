package chunker

import (
	"crypto/sha256"
	"fmt"

	"github.com/dshills/gocontext-review/pkg/types"
)

const (
	// DefaultMaxSize is the default upper bound on segment length in characters
	DefaultMaxSize = 1000

	// DefaultOverlap is the default number of characters repeated between segments
	DefaultOverlap = 200

	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4
)

// ErrInvalidOptions is returned by New for unusable size parameters
var ErrInvalidOptions = fmt.Errorf("chunker: %w", types.ErrInvalidSegmentation)

// Options configures a Chunker
type Options struct {
	MaxSize int    // Upper bound on segment length in characters
	Overlap int    // Characters of a segment repeated at the start of the next
	Policy  Policy // Separator policy; zero value means TextPolicy

	// LanguageAware picks the policy per document from its extension
	LanguageAware bool
}

// Chunker splits documents into bounded, overlapping segments
type Chunker struct {
	maxSize       int
	overlap       int
	policy        Policy
	languageAware bool
}

// span is a half-open rune range of the document
type span struct {
	start int
	end   int
}

func (s span) len() int {
	return s.end - s.start
}

// New validates the options and creates a Chunker
func New(opts Options) (*Chunker, error) {
	if opts.MaxSize <= 0 {
		return nil, fmt.Errorf("%w: max size must be positive, got %d", ErrInvalidOptions, opts.MaxSize)
	}
	if opts.Overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidOptions, opts.Overlap)
	}
	if opts.Overlap >= opts.MaxSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than max size %d", ErrInvalidOptions, opts.Overlap, opts.MaxSize)
	}

	policy := opts.Policy
	if len(policy.Separators) == 0 {
		policy = TextPolicy
	}

	return &Chunker{
		maxSize:       opts.MaxSize,
		overlap:       opts.Overlap,
		policy:        policy,
		languageAware: opts.LanguageAware,
	}, nil
}

// MaxSize returns the configured segment bound
func (c *Chunker) MaxSize() int {
	return c.maxSize
}

// Overlap returns the configured overlap
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split turns one document into ordered segments. Empty content yields no segments.
func (c *Chunker) Split(doc types.Document) []types.Segment {
	if doc.Content == "" {
		return nil
	}

	policy := c.policy
	if c.languageAware {
		policy = PolicyForFile(doc.Identifier)
	}

	text := []rune(doc.Content)
	seps := make([][]rune, len(policy.Separators))
	for i, sep := range policy.Separators {
		seps[i] = []rune(sep)
	}

	pieces := c.splitPieces(text, span{0, len(text)}, seps, policy.Keep)
	windows := c.merge(pieces)

	segments := make([]types.Segment, 0, len(windows))
	for i, w := range windows {
		segments = append(segments, types.Segment{
			Identifier: doc.Identifier,
			Index:      i,
			Content:    string(text[w.start:w.end]),
			Start:      w.start,
			End:        w.end,
			Overlap:    w.overlap,
			Oversized:  w.oversized,
		})
	}

	return segments
}

// SplitAll segments every document, preserving document order
func (c *Chunker) SplitAll(docs []types.Document) []types.Segment {
	var all []types.Segment
	for i := range docs {
		all = append(all, c.Split(docs[i])...)
	}
	return all
}

// splitPieces cuts s on the highest-priority separator present in it and
// recurses into pieces that are still too large with the remaining separators.
// The returned pieces tile s in order.
func (c *Chunker) splitPieces(text []rune, s span, seps [][]rune, keep KeepSide) []span {
	if s.len() <= c.maxSize {
		return []span{s}
	}

	chosen := -1
	for i, sep := range seps {
		if len(sep) == 0 || indexRunes(text, sep, s.start, s.end) >= 0 {
			chosen = i
			break
		}
	}

	// Nothing can shrink it: emit verbatim
	if chosen < 0 {
		return []span{s}
	}

	rest := seps[chosen+1:]
	parts := splitOn(text, s, seps[chosen], keep)

	out := make([]span, 0, len(parts))
	for _, p := range parts {
		if p.len() <= c.maxSize || len(rest) == 0 {
			out = append(out, p)
			continue
		}
		out = append(out, c.splitPieces(text, p, rest, keep)...)
	}

	return out
}

// window is a segment under construction
type window struct {
	start     int
	end       int
	overlap   int
	oversized bool
}

// merge greedily packs contiguous pieces into windows of at most maxSize
// characters. A new window starts with up to c.overlap trailing characters of
// the window just closed. Pieces larger than maxSize become their own window.
func (c *Chunker) merge(pieces []span) []window {
	if len(pieces) == 0 {
		return nil
	}

	var windows []window
	cur := window{start: pieces[0].start, end: pieces[0].start}

	for _, p := range pieces {
		if p.end-cur.start <= c.maxSize {
			cur.end = p.end
			continue
		}

		if cur.end > cur.start {
			windows = append(windows, cur)
		}

		if p.len() > c.maxSize {
			windows = append(windows, window{start: p.start, end: p.end, oversized: true})
			cur = window{start: p.end, end: p.end}
			continue
		}

		prev := windows[len(windows)-1]
		next := max(prev.end-c.overlap, p.end-c.maxSize, prev.start)
		cur = window{start: next, end: p.end, overlap: prev.end - next}
	}

	if cur.end > cur.start {
		windows = append(windows, cur)
	}

	return windows
}

// splitOn cuts s at every non-overlapping occurrence of sep. An empty sep
// splits into single characters. Empty pieces are dropped.
func splitOn(text []rune, s span, sep []rune, keep KeepSide) []span {
	if len(sep) == 0 {
		parts := make([]span, 0, s.len())
		for i := s.start; i < s.end; i++ {
			parts = append(parts, span{i, i + 1})
		}
		return parts
	}

	var parts []span
	pieceStart := s.start
	for pos := s.start; pos < s.end; {
		at := indexRunes(text, sep, pos, s.end)
		if at < 0 {
			break
		}

		cut := at
		if keep == KeepEnd {
			cut = at + len(sep)
		}
		if cut > pieceStart {
			parts = append(parts, span{pieceStart, cut})
			pieceStart = cut
		}
		pos = at + len(sep)
	}

	if pieceStart < s.end {
		parts = append(parts, span{pieceStart, s.end})
	}

	return parts
}

// indexRunes returns the first index of sep in text[from:to], or -1
func indexRunes(text, sep []rune, from, to int) int {
	n := len(sep)
	for i := from; i+n <= to; i++ {
		match := true
		for j := 0; j < n; j++ {
			if text[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// ComputeChunkHash computes the SHA-256 hash for a segment's content
func ComputeChunkHash(content string) [32]byte {
	return sha256.Sum256([]byte(content))
}

// EstimateTokenCount estimates the number of tokens in a string
func EstimateTokenCount(text string) int {
	return len(text) / TokensPerChar
}
