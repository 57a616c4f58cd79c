package types

import (
	"crypto/sha256"
	"errors"
	"unicode/utf8"
)

// Segment represents a bounded, possibly overlapping piece of a document
type Segment struct {
	// Identification
	Identifier string // Copied from the parent document, not unique across segments
	Index      int    // Position within the parent document (0-based)

	// Content
	Content string

	// Location, in characters (runes) of the parent document, half-open
	Start int
	End   int

	// Overlap is the number of leading characters shared with the previous
	// segment of the same document
	Overlap int

	// Oversized is set when a single indivisible unit exceeded the size bound
	Oversized bool
}

// Length returns the segment length in characters
func (s *Segment) Length() int {
	return utf8.RuneCountInString(s.Content)
}

// NewContent returns the part of the segment that is not repeated from the
// previous segment. Concatenating NewContent over a document's segments
// yields the original document.
func (s *Segment) NewContent() string {
	if s.Overlap <= 0 {
		return s.Content
	}
	runes := []rune(s.Content)
	if s.Overlap >= len(runes) {
		return ""
	}
	return string(runes[s.Overlap:])
}

// ContentHash computes the SHA-256 hash of the segment content
func (s *Segment) ContentHash() [32]byte {
	return sha256.Sum256([]byte(s.Content))
}

// Validate performs structural validation of the segment
func (s *Segment) Validate() error {
	if s.Identifier == "" {
		return ErrMissingIdentifier
	}

	if s.Content == "" {
		return ErrEmptyContent
	}

	if s.Start < 0 || s.End < s.Start {
		return errors.New("segment offsets out of order")
	}

	if s.End-s.Start != s.Length() {
		return errors.New("segment offsets do not match content length")
	}

	if s.Overlap < 0 || s.Overlap > s.Length() {
		return errors.New("overlap out of range")
	}

	return nil
}
