package types

import "fmt"

// AnalysisResult is the normalized analysis text for one successfully analyzed segment
type AnalysisResult struct {
	Identifier string `json:"file_name"`
	Analysis   string `json:"analysis"`
}

// Validate checks if the result is valid for persistence
func (r *AnalysisResult) Validate() error {
	if r.Identifier == "" {
		return ErrMissingIdentifier
	}
	return nil
}

// DiagnosticKind classifies a per-item failure
type DiagnosticKind string

const (
	DiagnosticRead        DiagnosticKind = "read"
	DiagnosticAnalysis    DiagnosticKind = "analysis"
	DiagnosticTimeout     DiagnosticKind = "timeout"
	DiagnosticPersistence DiagnosticKind = "persistence"
)

// Diagnostic records a failure that was isolated instead of aborting the run.
// Failures never produce an AnalysisResult.
type Diagnostic struct {
	Identifier   string         `json:"file_name"`
	SegmentIndex int            `json:"segment_index"` // -1 when the failure is not tied to a segment
	Kind         DiagnosticKind `json:"kind"`
	Message      string         `json:"message"`
}

// String formats the diagnostic for logs and tool output
func (d Diagnostic) String() string {
	if d.SegmentIndex < 0 {
		return fmt.Sprintf("%s: %s: %s", d.Kind, d.Identifier, d.Message)
	}
	return fmt.Sprintf("%s: %s#%d: %s", d.Kind, d.Identifier, d.SegmentIndex, d.Message)
}
