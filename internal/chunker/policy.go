package chunker

import (
	"path/filepath"
	"strings"
)

// KeepSide decides which piece a matched separator stays attached to
type KeepSide int

const (
	// KeepEnd attaches the separator to the end of the preceding piece
	KeepEnd KeepSide = iota
	// KeepStart attaches the separator to the start of the following piece
	KeepStart
)

// Policy is a prioritized list of split boundaries. The empty separator
// splits into single characters and always succeeds.
type Policy struct {
	Name       string
	Separators []string
	Keep       KeepSide
}

// Built-in policies
var (
	// TextPolicy splits on paragraphs, lines, sentences, words, then characters
	TextPolicy = Policy{
		Name:       "text",
		Separators: []string{"\n\n", "\r\n\r\n", "\n", ". ", "? ", "! ", "; ", " ", ""},
		Keep:       KeepEnd,
	}

	// GoPolicy prefers top-level declarations and control flow boundaries
	GoPolicy = Policy{
		Name: "go",
		Separators: []string{
			"\nfunc ", "\nvar ", "\nconst ", "\ntype ",
			"\nif ", "\nfor ", "\nswitch ", "\ncase ",
			"\n\n", "\n", " ", "",
		},
		Keep: KeepStart,
	}

	// PythonPolicy prefers class and function definitions
	PythonPolicy = Policy{
		Name:       "python",
		Separators: []string{"\nclass ", "\ndef ", "\n\tdef ", "\n\n", "\n", " ", ""},
		Keep:       KeepStart,
	}
)

// PolicyByName looks up a built-in policy
func PolicyByName(name string) (Policy, bool) {
	switch strings.ToLower(name) {
	case "", TextPolicy.Name:
		return TextPolicy, true
	case GoPolicy.Name:
		return GoPolicy, true
	case PythonPolicy.Name:
		return PythonPolicy, true
	default:
		return Policy{}, false
	}
}

// PolicyForFile picks a policy from the file extension, falling back to TextPolicy
func PolicyForFile(path string) Policy {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return GoPolicy
	case ".py", ".pyw":
		return PythonPolicy
	default:
		return TextPolicy
	}
}
