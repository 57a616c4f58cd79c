package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/gocontext-review/internal/analyzer"
	"github.com/dshills/gocontext-review/internal/config"
	"github.com/dshills/gocontext-review/internal/orchestrator"
	"github.com/dshills/gocontext-review/internal/pipeline"
	"github.com/dshills/gocontext-review/internal/storage"
	"github.com/dshills/gocontext-review/pkg/types"
)

var analyzeFlags struct {
	extensions    []string
	includeHidden bool
	maxSize       int
	overlap       int
	policy        string
	languageAware bool
	provider      string
	model         string
	baseURL       string
	timeout       time.Duration
	retries       int
	workers       int
	output        string
	print         bool
	dryRun        bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [root]",
	Short: "Analyze every matching file under root",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringSliceVarP(&analyzeFlags.extensions, "ext", "e", nil, "file extensions to include, case-sensitive (default: every file)")
	f.BoolVar(&analyzeFlags.includeHidden, "include-hidden", false, "descend into hidden directories")
	f.IntVar(&analyzeFlags.maxSize, "max-size", 0, "maximum segment length in characters (default 1000)")
	f.IntVar(&analyzeFlags.overlap, "overlap", 0, "characters shared by consecutive segments (default 200)")
	f.StringVar(&analyzeFlags.policy, "policy", "", "separator policy: text, go or python")
	f.BoolVar(&analyzeFlags.languageAware, "language-aware", false, "pick the separator policy from each file's extension")
	f.StringVarP(&analyzeFlags.provider, "provider", "p", "", "analysis provider: groq, openai, gemini or local")
	f.StringVarP(&analyzeFlags.model, "model", "m", "", "model name (provider default when empty)")
	f.StringVar(&analyzeFlags.baseURL, "base-url", "", "OpenAI-compatible endpoint override")
	f.DurationVar(&analyzeFlags.timeout, "timeout", 0, "per-call timeout (default 60s)")
	f.IntVar(&analyzeFlags.retries, "retries", 0, "attempts per call including the first (default 3)")
	f.IntVarP(&analyzeFlags.workers, "workers", "w", 0, "concurrent analysis calls (default 1)")
	f.StringVarP(&analyzeFlags.output, "output", "o", "", "results file (default analysis_results.json)")
	f.BoolVar(&analyzeFlags.print, "print", false, "print every analysis to stdout")
	f.BoolVar(&analyzeFlags.dryRun, "dry-run", false, "load and segment only; no model calls")
}

// applyAnalyzeFlags overrides config values with the flags that were set
func applyAnalyzeFlags(cmd *cobra.Command, args []string) func(*config.Config) {
	return func(cfg *config.Config) {
		f := cmd.Flags()
		if len(args) > 0 {
			cfg.Root = args[0]
		}
		if f.Changed("ext") {
			cfg.Extensions = nonEmpty(analyzeFlags.extensions)
		}
		if f.Changed("include-hidden") {
			cfg.IncludeHidden = analyzeFlags.includeHidden
		}
		if f.Changed("max-size") {
			cfg.MaxSize = analyzeFlags.maxSize
		}
		if f.Changed("overlap") {
			cfg.Overlap = analyzeFlags.overlap
		}
		if f.Changed("policy") {
			cfg.Policy = analyzeFlags.policy
		}
		if f.Changed("language-aware") {
			cfg.LanguageAware = analyzeFlags.languageAware
		}
		if f.Changed("provider") && analyzeFlags.provider != cfg.Provider {
			cfg.Provider = analyzeFlags.provider
			cfg.APIKey = "" // re-resolved for the new provider
		}
		if f.Changed("model") {
			cfg.Model = analyzeFlags.model
		}
		if f.Changed("base-url") {
			cfg.BaseURL = analyzeFlags.baseURL
		}
		if f.Changed("timeout") {
			cfg.CallTimeout = analyzeFlags.timeout.String()
		}
		if f.Changed("retries") {
			cfg.MaxRetries = analyzeFlags.retries
		}
		if f.Changed("workers") {
			cfg.Workers = analyzeFlags.workers
		}
		if f.Changed("output") {
			cfg.Output = analyzeFlags.output
		}
		if analyzeFlags.dryRun {
			// No model is contacted, so no credential is needed
			cfg.Provider = analyzer.ProviderLocal
		}
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, applyAnalyzeFlags(cmd, args))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return &exitError{code: exitConfig, err: err}
	}
	builder, err := cfg.PromptBuilder()
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}

	a, err := analyzer.New(ctx, cfg.AnalyzerConfig())
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}
	defer func() { _ = a.Close() }()

	ledger, err := openLedger(cfg.LedgerPath)
	if err != nil {
		return err
	}
	var store storage.Storage
	if ledger != nil {
		defer func() { _ = ledger.Close() }()
		store = ledger
	}

	logger.Info("starting analysis",
		zap.String("root", cfg.Root),
		zap.String("provider", a.Provider()),
		zap.String("model", a.Model()),
		zap.Int("max_size", cfg.MaxSize),
		zap.Int("overlap", cfg.Overlap),
		zap.Int("workers", cfg.Workers))

	runCfg := pipeline.Config{
		Root:    cfg.Root,
		Loader:  cfg.LoaderOptions(),
		Chunker: cfg.ChunkerOptions(),
		Orchestrator: orchestrator.Options{
			Workers:     cfg.Workers,
			CallTimeout: cfg.GetCallTimeout(),
			Builder:     builder,
			OnProgress: func(p orchestrator.Progress) {
				logger.Debug("progress",
					zap.Int("done", p.Done),
					zap.Int("total", p.Total),
					zap.Int("failed", p.Failed))
			},
		},
		Output: cfg.Output,
		DryRun: analyzeFlags.dryRun,
	}

	report, err := pipeline.New(a, store, logger).Run(ctx, runCfg)
	if err != nil && report == nil {
		if pipeline.IsConfigError(err) {
			return &exitError{code: exitConfig, err: err}
		}
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeFlags.print {
		printAnalyses(out, report.Results)
	}
	printSummary(out, report)

	if err != nil {
		// Results were computed but could not be saved
		return err
	}
	if report.Canceled {
		return errors.New("analysis canceled")
	}
	return nil
}

// printAnalyses writes every analysis followed by a separator line
func printAnalyses(w io.Writer, results []types.AnalysisResult) {
	sep := strings.Repeat("=", 50)
	for _, r := range results {
		fmt.Fprintf(w, "Analysis of %s:\n%s\n%s\n", r.Identifier, r.Analysis, sep)
	}
}

func printSummary(w io.Writer, r *pipeline.Report) {
	fmt.Fprintf(w, "Loaded %d files.\n", r.Documents)
	if unreadable := r.CountDiagnostics(types.DiagnosticRead); unreadable > 0 {
		fmt.Fprintf(w, "Skipped %d unreadable files.\n", unreadable)
	}
	fmt.Fprintf(w, "Split into %d segments.\n", r.Segments)
	if r.Output == "" {
		return
	}
	fmt.Fprintf(w, "Analyzed %d segments, %d failed.\n", r.Succeeded(), r.AnalysisFailures())
	if r.Saved {
		fmt.Fprintf(w, "Results saved to %s\n", r.Output)
	}
	if r.RunID != "" {
		fmt.Fprintf(w, "Run ID: %s\n", r.RunID)
	}
}

// nonEmpty drops blank entries so --ext "" selects every file
func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
