// Package loader reads a project tree into documents.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dshills/gocontext-review/pkg/types"
)

// ErrNotDirectory is returned when the root is not a directory
var ErrNotDirectory = errors.New("root is not a directory")

// Options controls which files are loaded
type Options struct {
	Extensions    []string // Allowed extensions, e.g. ".py"; empty loads every file. Matching is case-sensitive.
	IncludeHidden bool     // Descend into directories whose name starts with "."
	Exclude       []string // Files never loaded, such as the result artifact
}

// Result is the output of Load
type Result struct {
	Documents   []types.Document
	Diagnostics []types.Diagnostic
}

// Loader discovers and reads files under a root directory
type Loader struct {
	extensions    map[string]struct{}
	exclude       map[string]struct{}
	includeHidden bool
	logger        *zap.Logger
}

// New creates a Loader
func New(opts Options, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}

	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = NormalizeExtension(ext)
		if ext != "" {
			exts[ext] = struct{}{}
		}
	}

	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, path := range opts.Exclude {
		if path == "" {
			continue
		}
		exclude[absPath(path)] = struct{}{}
	}

	return &Loader{
		extensions:    exts,
		exclude:       exclude,
		includeHidden: opts.IncludeHidden,
		logger:        logger,
	}
}

// NormalizeExtension trims ext and adds a leading dot. Case is preserved.
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Load walks root and reads every matching file. Files that cannot be read
// or are not valid UTF-8 become read diagnostics; only a missing root or a
// canceled context fails the whole load. Documents are returned in lexical
// path order and are identified by their path joined onto root.
func (l *Loader) Load(ctx context.Context, root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSourceRead, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrSourceRead, root, ErrNotDirectory)
	}

	files, diags, err := l.discover(ctx, root)
	if err != nil {
		return nil, err
	}

	result := &Result{Diagnostics: diags}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := readDocument(path)
		if err != nil {
			l.logger.Warn("failed to read file", zap.String("file", path), zap.Error(err))
			result.Diagnostics = append(result.Diagnostics, readDiagnostic(path, err))
			continue
		}
		result.Documents = append(result.Documents, doc)
	}

	l.logger.Info("files loaded",
		zap.String("root", root),
		zap.Int("documents", len(result.Documents)),
		zap.Int("skipped", len(result.Diagnostics)))

	return result, nil
}

// Matches reports whether a file name passes the extension filter
func (l *Loader) Matches(name string) bool {
	if len(l.extensions) == 0 {
		return true
	}
	_, ok := l.extensions[filepath.Ext(name)]
	return ok
}

func (l *Loader) discover(ctx context.Context, root string) ([]string, []types.Diagnostic, error) {
	var files []string
	var diags []types.Diagnostic

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable subtree; the root itself was stat'ed above
			diags = append(diags, readDiagnostic(path, err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && !l.includeHidden && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if !l.Matches(d.Name()) {
			return nil
		}
		if _, skip := l.exclude[absPath(path)]; skip {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Strings(files)
	return files, diags, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func readDocument(path string) (types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Document{}, err
	}
	if !utf8.Valid(data) {
		return types.Document{}, errors.New("content is not valid UTF-8")
	}
	return types.Document{Identifier: path, Content: string(data)}, nil
}

func readDiagnostic(path string, err error) types.Diagnostic {
	return types.Diagnostic{
		Identifier:   path,
		SegmentIndex: -1,
		Kind:         types.DiagnosticRead,
		Message:      fmt.Errorf("%w: %w", types.ErrSourceRead, err).Error(),
	}
}
