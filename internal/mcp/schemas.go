package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// analyzeProjectTool returns the tool definition for analyze_project
func analyzeProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_project",
		Description: "Segment every matching file of a project and send each segment to the language model for review; results are written to a JSON file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
				"extensions": map[string]interface{}{
					"type":        "array",
					"description": "File extensions to include (e.g. [\".py\", \".txt\"]); empty includes every file",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"include_hidden": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, descend into directories whose name starts with a dot",
					"default":     false,
				},
				"max_size": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum segment length in characters",
					"default":     1000,
					"minimum":     1,
				},
				"overlap": map[string]interface{}{
					"type":        "integer",
					"description": "Characters shared between consecutive segments (must be less than max_size)",
					"default":     200,
					"minimum":     0,
				},
				"language_aware": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, split Go and Python files on declaration boundaries",
					"default":     false,
				},
				"output": map[string]interface{}{
					"type":        "string",
					"description": "Destination of the JSON results; relative paths are resolved against the project root",
					"default":     "analysis_results.json",
				},
				"dry_run": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, only count documents and segments; no model calls and no output file",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// segmentTextTool returns the tool definition for segment_text
func segmentTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "segment_text",
		Description: "Split text into bounded, overlapping segments without calling a model",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to split",
				},
				"identifier": map[string]interface{}{
					"type":        "string",
					"description": "Name attached to every segment; its extension selects the policy when language_aware is set",
					"default":     "input",
				},
				"max_size": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum segment length in characters",
					"default":     1000,
					"minimum":     1,
				},
				"overlap": map[string]interface{}{
					"type":        "integer",
					"description": "Characters shared between consecutive segments",
					"default":     200,
					"minimum":     0,
				},
				"policy": map[string]interface{}{
					"type":        "string",
					"description": "Separator policy",
					"enum":        []string{"text", "go", "python"},
					"default":     "text",
				},
				"language_aware": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, choose the policy from the identifier's extension",
					"default":     false,
				},
			},
			Required: []string{"text"},
		},
	}
}

// getRunTool returns the tool definition for get_run
func getRunTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_run",
		Description: "Show a recorded analysis run with its results and diagnostics",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Run identifier returned by analyze_project",
				},
				"include_results": map[string]interface{}{
					"type":        "boolean",
					"description": "If false, return only the run summary and diagnostics",
					"default":     true,
				},
			},
			Required: []string{"run_id"},
		},
	}
}

// listRunsTool returns the tool definition for list_runs
func listRunsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_runs",
		Description: "List recorded analysis runs, most recent first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of runs to return (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}
