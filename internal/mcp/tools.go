package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/gocontext-review/internal/chunker"
	"github.com/dshills/gocontext-review/internal/loader"
	"github.com/dshills/gocontext-review/internal/pipeline"
	"github.com/dshills/gocontext-review/internal/storage"
	"github.com/dshills/gocontext-review/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // Specified path is not a readable directory
	ErrorCodeAnalysisInProgress = -32002 // Another analysis is already running
	ErrorCodeRunNotFound        = -32003 // Run identifier unknown to the ledger
	ErrorCodeEmptyText          = -32004 // Text parameter is empty
	ErrorCodeLedgerDisabled     = -32005 // Server started without a ledger
)

// maxReportedDiagnostics caps the diagnostics echoed by analyze_project
const maxReportedDiagnostics = 5

// handleAnalyzeProject handles the analyze_project tool invocation
func (s *Server) handleAnalyzeProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrNotDirectory) {
			code = ErrorCodeProjectNotFound
		}
		return nil, newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	maxSize := getIntDefault(args, "max_size", s.config.MaxSize)
	overlap := getIntDefault(args, "overlap", s.config.Overlap)
	if err := validateSegmentation(maxSize, overlap); err != nil {
		return nil, err
	}

	output := getStringDefault(args, "output", s.config.Output)
	if !filepath.IsAbs(output) {
		output = filepath.Join(path, output)
	}

	policy, _ := chunker.PolicyByName(s.config.Policy)
	cfg := pipeline.Config{
		Root: path,
		Loader: loader.Options{
			Extensions:    getStringSliceDefault(args, "extensions", s.config.Extensions),
			IncludeHidden: getBoolDefault(args, "include_hidden", s.config.IncludeHidden),
		},
		Chunker: chunker.Options{
			MaxSize:       maxSize,
			Overlap:       overlap,
			Policy:        policy,
			LanguageAware: getBoolDefault(args, "language_aware", s.config.LanguageAware),
		},
		Output: output,
		DryRun: getBoolDefault(args, "dry_run", false),
	}
	cfg.Orchestrator.Workers = s.config.Workers
	cfg.Orchestrator.CallTimeout = s.config.GetCallTimeout()
	cfg.Orchestrator.Builder = s.builder

	// Only one analysis at a time: runs share the provider quota and may
	// target the same output file
	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeAnalysisInProgress, "another analysis is in progress", nil)
	}
	defer s.lock.Release()

	report, err := s.pipeline.Run(ctx, cfg)
	if err != nil && report == nil {
		return nil, newMCPError(ErrorCodeInternalError, "analysis failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"documents":   report.Documents,
		"segments":    report.Segments,
		"succeeded":   report.Succeeded(),
		"failed":      report.Failed(),
		"canceled":    report.Canceled,
		"saved":       report.Saved,
		"duration_ms": report.Duration.Milliseconds(),
	}
	if report.RunID != "" {
		response["run_id"] = report.RunID
	}
	if report.Output != "" {
		response["output"] = report.Output
	}
	if err != nil {
		response["error"] = err.Error()
	}

	if n := len(report.Diagnostics); n > 0 {
		diags := make([]string, 0, min(n, maxReportedDiagnostics))
		for _, d := range report.Diagnostics[:min(n, maxReportedDiagnostics)] {
			diags = append(diags, d.String())
		}
		response["diagnostics"] = diags
		if n > maxReportedDiagnostics {
			response["diagnostic_count"] = n
		}
	}

	s.logger.Debug("analyze_project finished",
		zap.String("path", path),
		zap.Int("segments", report.Segments),
		zap.Int("failed", report.Failed()))

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSegmentText handles the segment_text tool invocation
func (s *Server) handleSegmentText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok || text == "" {
		return nil, newMCPError(ErrorCodeEmptyText, "text parameter is required and cannot be empty", map[string]interface{}{
			"param":  "text",
			"reason": "missing or empty",
		})
	}

	maxSize := getIntDefault(args, "max_size", s.config.MaxSize)
	overlap := getIntDefault(args, "overlap", s.config.Overlap)
	if err := validateSegmentation(maxSize, overlap); err != nil {
		return nil, err
	}

	policyName := getStringDefault(args, "policy", s.config.Policy)
	policy, ok := chunker.PolicyByName(policyName)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "unknown policy", map[string]interface{}{
			"param": "policy",
			"value": policyName,
		})
	}

	c, err := chunker.New(chunker.Options{
		MaxSize:       maxSize,
		Overlap:       overlap,
		Policy:        policy,
		LanguageAware: getBoolDefault(args, "language_aware", false),
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid segmentation options", map[string]interface{}{
			"error": err.Error(),
		})
	}

	identifier := getStringDefault(args, "identifier", "input")
	segments := c.Split(types.Document{Identifier: identifier, Content: text})

	items := make([]map[string]interface{}, 0, len(segments))
	for _, seg := range segments {
		items = append(items, map[string]interface{}{
			"index":     seg.Index,
			"start":     seg.Start,
			"end":       seg.End,
			"length":    seg.Length(),
			"overlap":   seg.Overlap,
			"oversized": seg.Oversized,
			"content":   seg.Content,
		})
	}

	response := map[string]interface{}{
		"identifier": identifier,
		"max_size":   maxSize,
		"overlap":    overlap,
		"count":      len(segments),
		"segments":   items,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetRun handles the get_run tool invocation
func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.ledger == nil {
		return nil, newMCPError(ErrorCodeLedgerDisabled, "run ledger is not configured", nil)
	}

	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	runID, ok := args["run_id"].(string)
	if !ok || runID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "run_id parameter is required", map[string]interface{}{
			"param":  "run_id",
			"reason": "missing or empty",
		})
	}

	run, err := s.ledger.GetRun(ctx, runID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeRunNotFound, "run not found", map[string]interface{}{
			"run_id": runID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get run", map[string]interface{}{
			"error": err.Error(),
		})
	}

	diags, err := s.ledger.ListDiagnostics(ctx, runID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list diagnostics", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"run":         run,
		"diagnostics": diags,
	}

	if getBoolDefault(args, "include_results", true) {
		results, err := s.ledger.ListResults(ctx, runID)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to list results", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response["results"] = results
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListRuns handles the list_runs tool invocation
func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.ledger == nil {
		return nil, newMCPError(ErrorCodeLedgerDisabled, "run ledger is not configured", nil)
	}

	args, _ := request.Params.Arguments.(map[string]interface{})

	limit := getIntDefault(args, "limit", storage.DefaultListLimit)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	runs, err := s.ledger.ListRuns(ctx, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list runs", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if runs == nil {
		runs = []*storage.Run{}
	}

	response := map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateSegmentation checks max_size and overlap before any work
func validateSegmentation(maxSize, overlap int) error {
	if maxSize < 1 {
		return newMCPError(ErrorCodeInvalidParams, "max_size must be positive", map[string]interface{}{
			"param": "max_size",
			"value": maxSize,
		})
	}
	if overlap < 0 || overlap >= maxSize {
		return newMCPError(ErrorCodeInvalidParams, "overlap must be at least 0 and less than max_size", map[string]interface{}{
			"param": "overlap",
			"value": overlap,
		})
	}
	return nil
}

// validatePath checks if a path exists and is accessible
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// getStringSliceDefault extracts a string array parameter with a default value
func getStringSliceDefault(args map[string]interface{}, key string, defaultValue []string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, v := range val {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return defaultValue
	}
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
