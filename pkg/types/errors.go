package types

import "errors"

// Error kinds shared across the pipeline. Wrap them with fmt.Errorf("...: %w")
// and classify with errors.Is.
var (
	// ErrSourceRead marks a document that could not be read
	ErrSourceRead = errors.New("source read failed")
	// ErrInvalidSegmentation marks invalid segmentation parameters
	ErrInvalidSegmentation = errors.New("invalid segmentation parameters")
	// ErrAnalysisCall marks a failed remote analysis call for one segment
	ErrAnalysisCall = errors.New("analysis call failed")
	// ErrPersistence marks a failure to write the result artifact
	ErrPersistence = errors.New("persistence failed")

	// Validation errors
	ErrMissingIdentifier = errors.New("identifier is required")
	ErrEmptyContent      = errors.New("content cannot be empty")
)
