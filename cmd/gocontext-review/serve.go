package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/gocontext-review/internal/analyzer"
	mcpserver "github.com/dshills/gocontext-review/internal/mcp"
	"github.com/dshills/gocontext-review/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `serve exposes analyze_project, segment_text, get_run and list_runs as
MCP tools over stdin/stdout. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return &exitError{code: exitConfig, err: err}
	}

	a, err := analyzer.New(ctx, cfg.AnalyzerConfig())
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}

	ledger, err := openLedger(cfg.LedgerPath)
	if err != nil {
		_ = a.Close()
		return err
	}
	var store storage.Storage
	if ledger != nil {
		store = ledger
	}

	logger.Info("starting gocontext-review MCP server",
		zap.String("version", version),
		zap.String("build_mode", storage.BuildMode),
		zap.String("provider", a.Provider()),
		zap.Bool("ledger", store != nil))

	srv, err := mcpserver.NewServer(mcpserver.Options{
		Config:   cfg,
		Analyzer: a,
		Ledger:   store,
		Logger:   logger,
	})
	if err != nil {
		_ = a.Close()
		if ledger != nil {
			_ = ledger.Close()
		}
		return err
	}

	// Serve closes the analyzer and the ledger
	return srv.Serve(ctx)
}
