package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gocontext-review/internal/pipeline"
	"github.com/dshills/gocontext-review/pkg/types"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GOCONTEXT_REVIEW_PROVIDER", "")
	t.Setenv("GOCONTEXT_REVIEW_DB_PATH", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPrintAnalyses(t *testing.T) {
	var buf bytes.Buffer
	printAnalyses(&buf, []types.AnalysisResult{
		{Identifier: "a.py", Analysis: "looks fine"},
		{Identifier: "b.txt", Analysis: "typo on line 2"},
	})

	sep := strings.Repeat("=", 50)
	want := "Analysis of a.py:\nlooks fine\n" + sep + "\n" +
		"Analysis of b.txt:\ntypo on line 2\n" + sep + "\n"
	assert.Equal(t, want, buf.String())
}

func TestPrintSummary(t *testing.T) {
	t.Run("dry run", func(t *testing.T) {
		var buf bytes.Buffer
		printSummary(&buf, &pipeline.Report{Documents: 2, Segments: 5})
		assert.Equal(t, "Loaded 2 files.\nSplit into 5 segments.\n", buf.String())
	})

	t.Run("saved run", func(t *testing.T) {
		var buf bytes.Buffer
		printSummary(&buf, &pipeline.Report{
			RunID:       "run-1",
			Output:      "out.json",
			Documents:   1,
			Segments:    2,
			Results:     []types.AnalysisResult{{Identifier: "a", Analysis: "x"}},
			Diagnostics: []types.Diagnostic{{Identifier: "a", SegmentIndex: 1, Kind: types.DiagnosticAnalysis}},
			Saved:       true,
			Duration:    time.Second,
		})
		out := buf.String()
		assert.Contains(t, out, "Analyzed 1 segments, 1 failed.")
		assert.NotContains(t, out, "unreadable")
		assert.Contains(t, out, "Results saved to out.json")
		assert.Contains(t, out, "Run ID: run-1")
	})
}

func TestPrintSummary_SeparatesFailureKinds(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &pipeline.Report{
		Output:    "out.json",
		Documents: 1,
		Segments:  3,
		Results:   []types.AnalysisResult{{Identifier: "a", Analysis: "x"}},
		Diagnostics: []types.Diagnostic{
			{Identifier: "bad.txt", SegmentIndex: -1, Kind: types.DiagnosticRead},
			{Identifier: "gone.txt", SegmentIndex: -1, Kind: types.DiagnosticRead},
			{Identifier: "a", SegmentIndex: 1, Kind: types.DiagnosticAnalysis},
			{Identifier: "a", SegmentIndex: 2, Kind: types.DiagnosticTimeout},
			{Identifier: "out.json", SegmentIndex: -1, Kind: types.DiagnosticPersistence},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Skipped 2 unreadable files.\n")
	assert.Contains(t, out, "Analyzed 1 segments, 2 failed.\n")
	assert.NotContains(t, out, "Results saved")
}

func TestNonEmpty(t *testing.T) {
	assert.Empty(t, nonEmpty([]string{""}))
	assert.Equal(t, []string{".go", ".md"}, nonEmpty([]string{".go", " ", ".md"}))
}

func TestReadDocument(t *testing.T) {
	doc, err := readDocument(strings.NewReader("from stdin"), nil)
	require.NoError(t, err)
	assert.Equal(t, "stdin", doc.Identifier)
	assert.Equal(t, "from stdin", doc.Content)

	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("on disk"), 0o644))
	doc, err = readDocument(nil, []string{path})
	require.NoError(t, err)
	assert.Equal(t, path, doc.Identifier)
	assert.Equal(t, "on disk", doc.Content)

	_, err = readDocument(nil, []string{filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)
}

func TestSegmentCommand(t *testing.T) {
	out, err := execute(t, "alpha beta gamma delta", "segment", "--max-size", "11", "--overlap", "0")
	require.NoError(t, err)

	var views []segmentView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.NotEmpty(t, views)
	for i, v := range views {
		assert.Equal(t, i, v.Index)
		assert.LessOrEqual(t, v.Length, 11)
	}
}

func TestSegmentCommandInvalidOptions(t *testing.T) {
	_, err := execute(t, "text", "segment", "--max-size", "10", "--overlap", "10")
	require.Error(t, err)

	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, exitConfig, ee.code)
}

func TestAnalyzeDryRun(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte("print('hello')\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# readme\n"), 0o644))

	// No extension filter by default
	out, err := execute(t, "", "analyze", root, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 files.")
	assert.Contains(t, out, "Split into 2 segments.")
	assert.NoFileExists(t, filepath.Join(root, "analysis_results.json"))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
	assert.Contains(t, out, "SQLite Driver:")
}
