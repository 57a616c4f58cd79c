package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Default(t *testing.T) {
	p := Default().Build("src/a.py", "def f():\n    pass\n")

	assert.Equal(t, DefaultSystem, p.System)
	assert.Contains(t, p.User, "src/a.py")
	assert.True(t, strings.HasSuffix(p.User, "def f():\n    pass\n"))
}

func TestBuild_ContentIsOpaque(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "go template syntax", content: `{{.FileName}} {{template "x"}} {{range .}}{{end}}`},
		{name: "format placeholders", content: "{file_name} {content} %s %v"},
		{name: "html", content: "<script>alert('x')</script> & more"},
		{name: "non-ascii", content: "¿Qué tal? 日本語 🚀"},
		{name: "control characters", content: "a\x00b\tc\r\n"},
		{name: "empty", content: ""},
	}

	b := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := b.Build("file.txt", tt.content)
			assert.True(t, strings.HasSuffix(p.User, "\n\n"+tt.content))
			assert.Equal(t, 1, strings.Count(p.User, "file.txt"))
		})
	}
}

func TestBuild_IdentifierIsOpaque(t *testing.T) {
	p := Default().Build("{{.Content}}", "body")
	assert.Contains(t, p.User, "from {{.Content}} and")
}

func TestNew_CustomTemplate(t *testing.T) {
	b, err := New("Review carefully.", "[{{.FileName}}]\n{{.Content}}")
	require.NoError(t, err)

	p := b.Build("x.go", "package x")
	assert.Equal(t, "Review carefully.", p.System)
	assert.Equal(t, "[x.go]\npackage x", p.User)
}

func TestNew_Defaults(t *testing.T) {
	b, err := New("", "  ")
	require.NoError(t, err)

	p := b.Build("a", "b")
	assert.Equal(t, DefaultSystem, p.System)
	assert.Equal(t, "Analyze the following code fragment from a and suggest improvements:\n\nb", p.User)
}

func TestNew_InvalidTemplate(t *testing.T) {
	_, err := New("", "{{.FileName")
	assert.Error(t, err)

	_, err = New("", "{{.Unknown}}")
	assert.Error(t, err)
}

func TestPromptLength(t *testing.T) {
	p := Prompt{System: "ab", User: "ñé"}
	assert.Equal(t, 4, p.Length())
}
