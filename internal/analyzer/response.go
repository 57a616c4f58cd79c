package analyzer

import "fmt"

type responseKind int

const (
	kindOpaque responseKind = iota
	kindText
)

// Response is the raw return value of a provider: either a textual payload or
// an opaque value. String normalizes both to plain text and never fails.
type Response struct {
	kind  responseKind
	text  string
	value any
}

// TextPayload is implemented by structured responses that expose their text
type TextPayload interface {
	Text() string
}

// Text wraps a textual payload
func Text(s string) Response {
	return Response{kind: kindText, text: s}
}

// Opaque wraps a value with no known textual payload
func Opaque(v any) Response {
	return Response{kind: kindOpaque, value: v}
}

// FromValue classifies an arbitrary value
func FromValue(v any) Response {
	switch val := v.(type) {
	case Response:
		return val
	case string:
		return Text(val)
	case TextPayload:
		return extractText(val)
	default:
		return Opaque(v)
	}
}

// extractText calls Text, falling back to Opaque if it panics
func extractText(p TextPayload) (r Response) {
	defer func() {
		if recover() != nil {
			r = Opaque(p)
		}
	}()
	return Text(p.Text())
}

// IsText reports whether the response carried a textual payload
func (r Response) IsText() bool {
	return r.kind == kindText
}

// Value returns the opaque value, nil for text responses
func (r Response) Value() any {
	return r.value
}

// String returns the normalized analysis text
func (r Response) String() string {
	if r.kind == kindText {
		return r.text
	}
	switch v := r.value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	default:
		// fmt recovers from panicking String/Error methods
		return fmt.Sprintf("%v", v)
	}
}
