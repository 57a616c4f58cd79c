package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/gocontext-review/internal/analyzer"
	"github.com/dshills/gocontext-review/internal/chunker"
	"github.com/dshills/gocontext-review/internal/loader"
	"github.com/dshills/gocontext-review/internal/orchestrator"
	"github.com/dshills/gocontext-review/internal/sink"
	"github.com/dshills/gocontext-review/internal/storage"
	"github.com/dshills/gocontext-review/pkg/types"
)

// Pipeline coordinates the analysis pipeline: load -> segment -> analyze -> save
type Pipeline struct {
	analyzer analyzer.Analyzer
	ledger   storage.Storage // Optional
	logger   *zap.Logger
}

// Config contains configuration for one run
type Config struct {
	Root         string
	Loader       loader.Options
	Chunker      chunker.Options
	Orchestrator orchestrator.Options
	Output       string // Destination of the JSON artifact (default: analysis_results.json)
	DryRun       bool   // Segment only; no analysis calls and no artifact
}

// Report summarizes a run
type Report struct {
	RunID       string                 `json:"run_id,omitempty"`
	Root        string                 `json:"root"`
	Output      string                 `json:"output,omitempty"`
	Documents   int                    `json:"documents"`
	Segments    int                    `json:"segments"`
	Attempted   int                    `json:"attempted"`
	Results     []types.AnalysisResult `json:"results"`
	Diagnostics []types.Diagnostic     `json:"diagnostics"`
	Canceled    bool                   `json:"canceled"`
	Saved       bool                   `json:"saved"`
	Duration    time.Duration          `json:"duration"`
}

// Succeeded returns the number of analyzed segments
func (r *Report) Succeeded() int {
	return len(r.Results)
}

// Failed returns the number of diagnostics
func (r *Report) Failed() int {
	return len(r.Diagnostics)
}

// CountDiagnostics returns the number of diagnostics of the given kinds
func (r *Report) CountDiagnostics(kinds ...types.DiagnosticKind) int {
	n := 0
	for _, d := range r.Diagnostics {
		for _, k := range kinds {
			if d.Kind == k {
				n++
				break
			}
		}
	}
	return n
}

// AnalysisFailures returns the number of segments whose analysis failed or timed out
func (r *Report) AnalysisFailures() int {
	return r.CountDiagnostics(types.DiagnosticAnalysis, types.DiagnosticTimeout)
}

// New creates a Pipeline. ledger may be nil.
func New(a analyzer.Analyzer, ledger storage.Storage, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{analyzer: a, ledger: ledger, logger: logger}
}

// Run executes one pass over cfg.Root. Configuration and root errors are
// returned before any work is done. A save failure is returned together with
// the complete report.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*Report, error) {
	start := time.Now()

	c, err := chunker.New(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	if p.analyzer == nil && !cfg.DryRun {
		return nil, analyzer.ErrNoProviderEnabled
	}
	if cfg.Output == "" {
		cfg.Output = sink.DefaultDestination
	}
	// A previous run's artifact under the root is not input
	cfg.Loader.Exclude = append(append([]string(nil), cfg.Loader.Exclude...), cfg.Output)

	report := &Report{
		Root:        cfg.Root,
		Results:     []types.AnalysisResult{},
		Diagnostics: []types.Diagnostic{},
	}
	if !cfg.DryRun {
		report.Output = cfg.Output
	}

	run := p.beginRun(ctx, cfg, c)
	if run != nil {
		report.RunID = run.ID
	}

	loaded, err := loader.New(cfg.Loader, p.logger).Load(ctx, cfg.Root)
	if err != nil {
		p.finishRun(ctx, run, report, err)
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	report.Documents = len(loaded.Documents)
	report.Diagnostics = append(report.Diagnostics, loaded.Diagnostics...)

	segments := c.SplitAll(loaded.Documents)
	report.Segments = len(segments)
	p.logger.Info("documents segmented",
		zap.Int("documents", report.Documents),
		zap.Int("segments", report.Segments),
		zap.Int("max_size", c.MaxSize()),
		zap.Int("overlap", c.Overlap()))

	if cfg.DryRun {
		report.Duration = time.Since(start)
		p.finishRun(ctx, run, report, nil)
		return report, nil
	}

	outcome := orchestrator.New(p.analyzer, cfg.Orchestrator, p.logger).Run(ctx, segments)
	report.Attempted = outcome.Attempted
	report.Canceled = outcome.Canceled
	report.Results = append(report.Results, outcome.Results...)
	report.Diagnostics = append(report.Diagnostics, outcome.Diagnostics...)

	// Partial results of a canceled run are still worth keeping, so the save
	// uses a context that outlives the cancellation
	saveCtx := context.WithoutCancel(ctx)
	saveErr := sink.Save(saveCtx, report.Results, cfg.Output)
	if saveErr != nil {
		p.logger.Error("failed to save results",
			zap.String("output", cfg.Output),
			zap.Int("results", len(report.Results)),
			zap.Error(saveErr))
		report.Diagnostics = append(report.Diagnostics, types.Diagnostic{
			Identifier:   cfg.Output,
			SegmentIndex: -1,
			Kind:         types.DiagnosticPersistence,
			Message:      saveErr.Error(),
		})
	} else {
		report.Saved = true
	}

	report.Duration = time.Since(start)
	p.finishRun(saveCtx, run, report, saveErr)

	p.logger.Info("analysis complete",
		zap.Int("segments", report.Segments),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
		zap.Bool("canceled", report.Canceled),
		zap.Duration("duration", report.Duration))

	if saveErr != nil {
		return report, saveErr
	}
	return report, nil
}

// beginRun records the start of a run. Ledger failures are logged and the
// run continues unrecorded.
func (p *Pipeline) beginRun(ctx context.Context, cfg Config, c *chunker.Chunker) *storage.Run {
	if p.ledger == nil {
		return nil
	}

	run := &storage.Run{
		RootPath: cfg.Root,
		MaxSize:  c.MaxSize(),
		Overlap:  c.Overlap(),
		Workers:  max(cfg.Orchestrator.Workers, 1),
		Output:   cfg.Output,
		Provider: "none",
		Model:    "none",
	}
	if p.analyzer != nil {
		run.Provider = p.analyzer.Provider()
		run.Model = p.analyzer.Model()
	}

	if err := p.ledger.CreateRun(ctx, run); err != nil {
		p.logger.Warn("failed to record run", zap.Error(err))
		return nil
	}
	return run
}

func (p *Pipeline) finishRun(ctx context.Context, run *storage.Run, report *Report, runErr error) {
	if run == nil {
		return
	}

	run.Documents = report.Documents
	run.Segments = report.Segments
	run.Succeeded = report.Succeeded()
	run.Failed = report.Failed()

	switch {
	case runErr != nil:
		run.Status = storage.RunFailed
		run.Error = runErr.Error()
	case report.Canceled:
		run.Status = storage.RunCanceled
	default:
		run.Status = storage.RunCompleted
	}

	if err := storage.RecordOutcome(ctx, p.ledger, run, report.Results, report.Diagnostics); err != nil {
		p.logger.Warn("failed to record run outcome", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// IsConfigError reports whether err was caused by invalid run configuration
func IsConfigError(err error) bool {
	return errors.Is(err, types.ErrInvalidSegmentation) || errors.Is(err, analyzer.ErrNoProviderEnabled)
}
