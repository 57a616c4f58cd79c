package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/gocontext-review/internal/analyzer"
	"github.com/dshills/gocontext-review/internal/prompt"
	"github.com/dshills/gocontext-review/pkg/types"
)

// Orchestrator drives segments through an analyzer with per-segment failure isolation
type Orchestrator struct {
	analyzer    analyzer.Analyzer
	builder     *prompt.Builder
	logger      *zap.Logger
	workers     int
	callTimeout time.Duration
	onProgress  func(Progress)
}

// Options configures the orchestration loop
type Options struct {
	Workers     int           // Concurrent analysis calls (default 1: sequential)
	CallTimeout time.Duration // Deadline for one analysis call; 0 means none
	Builder     *prompt.Builder

	// OnProgress is called after each segment resolves. Calls are serialized.
	OnProgress func(Progress)
}

// Progress tracks orchestration progress
type Progress struct {
	Total     int
	Done      int
	Succeeded int
	Failed    int
	Segment   types.Segment // The segment that just resolved
}

// Outcome contains the results of one run
type Outcome struct {
	Results     []types.AnalysisResult
	Diagnostics []types.Diagnostic
	Attempted   int  // Segments whose call resolved, successfully or not
	Canceled    bool // The context was canceled before every segment resolved
	Duration    time.Duration
}

// Failed returns the number of segments that produced a diagnostic
func (o *Outcome) Failed() int {
	return len(o.Diagnostics)
}

// slot holds the resolution of one segment
type slot struct {
	done   bool
	result *types.AnalysisResult
	diag   *types.Diagnostic
}

// New creates an Orchestrator
func New(a analyzer.Analyzer, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Builder == nil {
		opts.Builder = prompt.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	return &Orchestrator{
		analyzer:    a,
		builder:     opts.Builder,
		logger:      logger,
		workers:     opts.Workers,
		callTimeout: opts.CallTimeout,
		onProgress:  opts.OnProgress,
	}
}

// Run analyzes every segment and returns the successful results in input
// order. A failing segment is recorded as a diagnostic and never stops the
// batch. Cancellation stops the loop between segments; results accumulated so
// far are returned.
func (o *Orchestrator) Run(ctx context.Context, segments []types.Segment) *Outcome {
	start := time.Now()

	var out *Outcome
	if o.workers <= 1 {
		out = o.runSequential(ctx, segments)
	} else {
		out = o.runConcurrent(ctx, segments)
	}

	out.Duration = time.Since(start)
	if out.Canceled {
		o.logger.Warn("analysis canceled",
			zap.Int("attempted", out.Attempted),
			zap.Int("segments", len(segments)))
	}
	return out
}

// runSequential resolves segment i before starting segment i+1
func (o *Orchestrator) runSequential(ctx context.Context, segments []types.Segment) *Outcome {
	out := &Outcome{}
	tracker := newTracker(len(segments), o.onProgress)

	for i := range segments {
		if ctx.Err() != nil {
			out.Canceled = true
			break
		}

		s := o.analyzeSegment(ctx, segments[i])
		if !s.done {
			out.Canceled = true
			break
		}

		out.collect(s)
		tracker.resolved(segments[i], s)
	}

	return out
}

// runConcurrent analyzes up to o.workers segments at once. Each task writes
// only its own slot; slots are compacted in input order afterward.
func (o *Orchestrator) runConcurrent(ctx context.Context, segments []types.Segment) *Outcome {
	slots := make([]slot, len(segments))
	tracker := newTracker(len(segments), o.onProgress)

	// Tasks never return errors, so one failure cannot cancel its siblings
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i := range segments {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			s := o.analyzeSegment(gctx, segments[i])
			slots[i] = s
			if s.done {
				tracker.resolved(segments[i], s)
			}
			return nil
		})
	}

	_ = g.Wait()

	out := &Outcome{}
	for i := range slots {
		if !slots[i].done {
			out.Canceled = true
			continue
		}
		out.collect(slots[i])
	}

	return out
}

// analyzeSegment builds the prompt and performs one bounded analysis call.
// The returned slot is not done when ctx was canceled before the call resolved.
func (o *Orchestrator) analyzeSegment(ctx context.Context, seg types.Segment) slot {
	p := o.builder.Build(seg.Identifier, seg.Content)

	callCtx := ctx
	if o.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
	}

	resp, err := o.call(callCtx, p)
	if err != nil {
		// Canceled by the caller, not a failure of this segment
		if ctx.Err() != nil {
			return slot{}
		}

		kind := types.DiagnosticAnalysis
		if errors.Is(err, context.DeadlineExceeded) {
			kind = types.DiagnosticTimeout
		}

		o.logger.Warn("segment analysis failed",
			zap.String("file", seg.Identifier),
			zap.Int("segment", seg.Index),
			zap.String("kind", string(kind)),
			zap.Error(err))

		return slot{done: true, diag: &types.Diagnostic{
			Identifier:   seg.Identifier,
			SegmentIndex: seg.Index,
			Kind:         kind,
			Message:      err.Error(),
		}}
	}

	o.logger.Debug("segment analyzed",
		zap.String("file", seg.Identifier),
		zap.Int("segment", seg.Index),
		zap.Int("prompt_chars", p.Length()))

	return slot{done: true, result: &types.AnalysisResult{
		Identifier: seg.Identifier,
		Analysis:   resp.String(),
	}}
}

type callResult struct {
	resp analyzer.Response
	err  error
}

// call runs the analyzer but returns as soon as ctx is done, so an analyzer
// that ignores its context cannot stall the loop
func (o *Orchestrator) call(ctx context.Context, p prompt.Prompt) (analyzer.Response, error) {
	done := make(chan callResult, 1)
	go func() {
		resp, err := o.analyzer.Analyze(ctx, p)
		done <- callResult{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return analyzer.Response{}, errors.Join(types.ErrAnalysisCall, r.err)
		}
		return r.resp, nil
	case <-ctx.Done():
		return analyzer.Response{}, errors.Join(types.ErrAnalysisCall, ctx.Err())
	}
}

// collect appends a resolved slot to the outcome
func (out *Outcome) collect(s slot) {
	out.Attempted++
	if s.result != nil {
		out.Results = append(out.Results, *s.result)
	}
	if s.diag != nil {
		out.Diagnostics = append(out.Diagnostics, *s.diag)
	}
}

// tracker serializes progress callbacks
type tracker struct {
	mu       sync.Mutex
	progress Progress
	notify   func(Progress)
}

func newTracker(total int, notify func(Progress)) *tracker {
	return &tracker{progress: Progress{Total: total}, notify: notify}
}

func (t *tracker) resolved(seg types.Segment, s slot) {
	if t.notify == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.progress.Done++
	if s.result != nil {
		t.progress.Succeeded++
	} else {
		t.progress.Failed++
	}
	t.progress.Segment = seg
	t.notify(t.progress)
}
