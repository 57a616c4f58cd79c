// Package sink persists analysis results as a JSON document.
//
// The document is a single array of {"file_name", "analysis"} objects in
// result order. It is written to a temporary file in the destination
// directory and renamed into place, so readers never observe a partial file.
package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/gocontext-review/pkg/types"
)

const (
	// DefaultDestination is used when no destination is given
	DefaultDestination = "analysis_results.json"

	indent   = "    "
	permFile = 0o644
	permDir  = 0o755
)

// ErrNoDestination is returned when the destination path is blank
var ErrNoDestination = errors.New("destination path is empty")

// Save writes results to destination, replacing any previous document.
// An empty result set produces "[]". Every error wraps types.ErrPersistence.
func Save(ctx context.Context, results []types.AnalysisResult, destination string) error {
	if err := ctx.Err(); err != nil {
		return persistErr(destination, err)
	}
	if strings.TrimSpace(destination) == "" {
		return persistErr(destination, ErrNoDestination)
	}

	data, err := Encode(results)
	if err != nil {
		return persistErr(destination, err)
	}

	dir := filepath.Dir(destination)
	if err := os.MkdirAll(dir, permDir); err != nil {
		return persistErr(destination, err)
	}

	if err := writeAtomic(dir, destination, data); err != nil {
		return persistErr(destination, err)
	}
	return nil
}

// Encode renders results in the persisted format: a 4-space indented JSON
// array with non-ASCII text and HTML characters emitted literally. Records are
// written as given; none is dropped or rejected.
func Encode(results []types.AnalysisResult) ([]byte, error) {
	if results == nil {
		results = []types.AnalysisResult{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(results); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads a document written by Save
func Load(path string) ([]types.AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, persistErr(path, err)
	}

	var results []types.AnalysisResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, persistErr(path, err)
	}
	if results == nil {
		results = []types.AnalysisResult{}
	}
	return results, nil
}

func writeAtomic(dir, dest string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, permFile)

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	bw := bufio.NewWriter(tmp)
	if _, err := bw.Write(data); err != nil {
		return cleanup(err)
	}
	if err := bw.Flush(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := osReplace(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	// Best effort: persist the rename on platforms that support it
	_ = syncDir(dir)
	return nil
}

func persistErr(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrPersistence, path, err)
}
