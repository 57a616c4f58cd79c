package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/gocontext-review/internal/config"
	"github.com/dshills/gocontext-review/internal/logging"
	"github.com/dshills/gocontext-review/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	// Global flags
	cfgFile   string
	verbose   bool
	logFormat string
	dbPath    string

	logger *zap.Logger
)

// exitError carries a process exit code through cobra
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Exit codes
const (
	exitFailure = 1
	exitConfig  = 2
)

var rootCmd = &cobra.Command{
	Use:   "gocontext-review",
	Short: "Segment a project and review every segment with a language model",
	Long: `gocontext-review walks a project tree, splits each matching file into
bounded, overlapping segments and asks a language model to review every
segment. Results are written to a JSON file in segment order.

Providers: groq (default), openai, gemini, local (offline, for dry runs).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.Build(logging.Format(logFormat), verbose)
		if err != nil {
			return &exitError{code: exitConfig, err: err}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "gocontext-review\n")
		fmt.Fprintf(out, "Version: %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logging.FormatConsole), "log encoding: console or json")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite run ledger path (env "+config.EnvDBPath+")")

	rootCmd.AddCommand(analyzeCmd, segmentCmd, runsCmd, serveCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitFailure)
	}
}

// loadConfig loads the config file and environment, then applies the flag
// overrides of cmd
func loadConfig(cmd *cobra.Command, apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, &exitError{code: exitConfig, err: err}
	}

	if cmd.Flags().Changed("db") {
		cfg.LedgerPath = dbPath
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	if apply != nil {
		apply(cfg)
	}
	cfg.ResolveAPIKey()

	return cfg, nil
}

// openLedger opens the run ledger when a path is configured
func openLedger(path string) (*storage.SQLiteStorage, error) {
	if path == "" {
		return nil, nil
	}
	ledger, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}
	return ledger, nil
}
