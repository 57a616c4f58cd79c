package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/gocontext-review/pkg/types"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func identifiers(docs []types.Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.Identifier
	}
	return ids
}

func TestLoad_ExtensionFilter(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":         "print('hi')\n",
		"notes.txt":       "some notes",
		"README.md":       "# readme",
		"pkg/util.py":     "def f(): pass\n",
		"pkg/data.json":   "{}",
		"pkg/UPPER.TXT":   "loud",
		"deep/er/file.py": "x = 1\n",
	})

	l := New(Options{Extensions: []string{".py", ".txt"}}, nil)
	res, err := l.Load(context.Background(), root)
	require.NoError(t, err)

	// UPPER.TXT does not match ".txt"
	assert.Equal(t, []string{
		filepath.Join(root, "deep/er/file.py"),
		filepath.Join(root, "main.py"),
		filepath.Join(root, "notes.txt"),
		filepath.Join(root, "pkg/util.py"),
	}, identifiers(res.Documents))
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "print('hi')\n", res.Documents[1].Content)
}

func TestLoad_NoFilterLoadsEverything(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.go":  "package a",
		"b.md":  "b",
		"c":     "no extension",
		"d.txt": "d",
	})

	res, err := New(Options{}, nil).Load(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, res.Documents, 4)
}

func TestLoad_Exclude(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.go":                  "package a",
		"analysis_results.json": "[]\n",
	})

	res, err := New(Options{Exclude: []string{filepath.Join(root, "analysis_results.json"), ""}}, nil).
		Load(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.go")}, identifiers(res.Documents))
}

func TestLoad_HiddenDirectories(t *testing.T) {
	root := writeTree(t, map[string]string{
		"visible.txt":      "v",
		".git/config.txt":  "hidden",
		".cache/x/y.txt":   "hidden",
		"sub/.env/key.txt": "hidden",
		".hidden.txt":      "hidden files are still files",
	})

	res, err := New(Options{Extensions: []string{"txt"}}, nil).Load(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, ".hidden.txt"),
		filepath.Join(root, "visible.txt"),
	}, identifiers(res.Documents))

	res, err = New(Options{Extensions: []string{"txt"}, IncludeHidden: true}, nil).Load(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, res.Documents, 5)
}

func TestLoad_InvalidUTF8(t *testing.T) {
	root := writeTree(t, map[string]string{"good.txt": "fine"})
	bad := filepath.Join(root, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte{0xff, 0xfe, 'x'}, 0o644))

	core, logs := observer.New(zapcore.WarnLevel)
	res, err := New(Options{}, zap.New(core)).Load(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, res.Documents, 1)
	assert.Equal(t, "fine", res.Documents[0].Content)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, bad, d.Identifier)
	assert.Equal(t, types.DiagnosticRead, d.Kind)
	assert.Equal(t, -1, d.SegmentIndex)
	assert.Contains(t, d.Message, "UTF-8")

	assert.Equal(t, 1, logs.FilterMessage("failed to read file").Len())
}

func TestLoad_EmptyDirectory(t *testing.T) {
	res, err := New(Options{}, nil).Load(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
	assert.Empty(t, res.Diagnostics)
}

func TestLoad_RootErrors(t *testing.T) {
	l := New(Options{}, nil)

	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, types.ErrSourceRead)

	root := writeTree(t, map[string]string{"file.txt": "x"})
	_, err = l.Load(context.Background(), filepath.Join(root, "file.txt"))
	assert.ErrorIs(t, err, types.ErrSourceRead)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestLoad_Canceled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}, nil).Load(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeExtension(t *testing.T) {
	assert.Equal(t, ".py", NormalizeExtension("py"))
	assert.Equal(t, ".PY", NormalizeExtension(" .PY "))
	assert.Equal(t, "", NormalizeExtension("  "))
}

func TestMatches(t *testing.T) {
	l := New(Options{Extensions: []string{".py", "", "TXT"}}, nil)
	assert.True(t, l.Matches("a.py"))
	assert.True(t, l.Matches("b.TXT"))
	assert.False(t, l.Matches("b.txt"))
	assert.False(t, l.Matches("a.PY"))
	assert.False(t, l.Matches("c.go"))
	assert.False(t, l.Matches("Makefile"))
}
