package types

// Document is one loaded source file. It is not mutated after loading.
type Document struct {
	Identifier string // Path-like key, unique within a batch
	Content    string
}

// Validate checks if the document can be segmented
func (d *Document) Validate() error {
	if d.Identifier == "" {
		return ErrMissingIdentifier
	}
	return nil
}
