// Package mcp implements the Model Context Protocol (MCP) server for gocontext-review.
//
// The MCP server exposes four tools to AI coding assistants:
//   - analyze_project: segment a project and review every segment with the model
//   - segment_text: split text into segments without calling a model
//   - get_run: show a recorded run with its results and diagnostics
//   - list_runs: list recorded runs, most recent first
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Logs go to stderr so they never interleave with protocol messages on stdout.
//
// # Basic Usage
//
//	gocontext-review serve --db ~/.gocontext-review/runs.db
//
// # Tool: analyze_project
//
//	Request:
//	{
//	  "name": "analyze_project",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "extensions": [".py", ".txt"],
//	    "max_size": 1000,
//	    "overlap": 200
//	  }
//	}
//
//	Response:
//	{
//	  "run_id": "4f0c…",
//	  "documents": 12,
//	  "segments": 87,
//	  "succeeded": 86,
//	  "failed": 1,
//	  "saved": true,
//	  "output": "/path/to/project/analysis_results.json",
//	  "diagnostics": ["analysis: /path/to/project/big.py#3: …"]
//	}
//
// Only one analyze_project call runs at a time; a concurrent call fails with
// ErrorCodeAnalysisInProgress.
//
// # Tool: segment_text
//
//	Request:
//	{
//	  "name": "segment_text",
//	  "arguments": {"text": "def f():\n    pass\n", "max_size": 10, "overlap": 2}
//	}
//
// The response lists each segment with its index, rune offsets, overlap and
// content.
//
// # Error Handling
//
// Tool errors are returned as *MCPError values with JSON-RPC style codes:
//
//	-32602  invalid parameters
//	-32603  internal error
//	-32001  project not found
//	-32002  analysis in progress
//	-32003  run not found
//	-32004  empty text
//	-32005  ledger disabled
package mcp
