package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/gocontext-review/internal/analyzer"
	"github.com/dshills/gocontext-review/internal/config"
	"github.com/dshills/gocontext-review/internal/pipeline"
	"github.com/dshills/gocontext-review/internal/prompt"
	"github.com/dshills/gocontext-review/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "gocontext-review"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Options holds the dependencies of a Server
type Options struct {
	Config   *config.Config    // Defaults for tool arguments
	Analyzer analyzer.Analyzer // Required for analyze_project
	Ledger   storage.Storage   // Optional; get_run and list_runs need it
	Logger   *zap.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	config   *config.Config
	analyzer analyzer.Analyzer
	ledger   storage.Storage
	pipeline *pipeline.Pipeline
	builder  *prompt.Builder
	lock     pipeline.RunLock
	logger   *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(opts Options) (*Server, error) {
	if opts.Analyzer == nil {
		return nil, analyzer.ErrNoProviderEnabled
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	builder, err := opts.Config.PromptBuilder()
	if err != nil {
		return nil, err
	}

	s := &Server{
		mcp:      mcpServer,
		config:   opts.Config,
		analyzer: opts.Analyzer,
		ledger:   opts.Ledger,
		pipeline: pipeline.New(opts.Analyzer, opts.Ledger, opts.Logger),
		builder:  builder,
		logger:   opts.Logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()

	s.logger.Info("mcp server listening on stdio",
		zap.String("provider", s.analyzer.Provider()),
		zap.String("model", s.analyzer.Model()),
		zap.Bool("ledger", s.ledger != nil))

	stdio := server.NewStdioServer(s.mcp)
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the analyzer and the ledger
func (s *Server) Close() error {
	var errs []error
	if err := s.analyzer.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(analyzeProjectTool(), s.handleAnalyzeProject)
	s.mcp.AddTool(segmentTextTool(), s.handleSegmentText)
	s.mcp.AddTool(getRunTool(), s.handleGetRun)
	s.mcp.AddTool(listRunsTool(), s.handleListRuns)
	return nil
}
