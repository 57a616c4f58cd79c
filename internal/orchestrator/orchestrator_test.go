package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/gocontext-review/internal/analyzer"
	"github.com/dshills/gocontext-review/internal/chunker"
	"github.com/dshills/gocontext-review/internal/prompt"
	"github.com/dshills/gocontext-review/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// rawBuilder passes segment content through unchanged as the user prompt
func rawBuilder(t *testing.T) *prompt.Builder {
	t.Helper()
	b, err := prompt.New("", "{{.Content}}")
	require.NoError(t, err)
	return b
}

func makeSegments(identifier string, contents ...string) []types.Segment {
	segments := make([]types.Segment, len(contents))
	offset := 0
	for i, c := range contents {
		n := len([]rune(c))
		segments[i] = types.Segment{
			Identifier: identifier,
			Index:      i,
			Content:    c,
			Start:      offset,
			End:        offset + n,
		}
		offset += n
	}
	return segments
}

func echo() analyzer.Func {
	return func(_ context.Context, p prompt.Prompt) (any, error) {
		return "analysis of " + p.User, nil
	}
}

func TestRun_EmptyInput(t *testing.T) {
	o := New(echo(), Options{}, nil)
	out := o.Run(context.Background(), nil)

	assert.Empty(t, out.Results)
	assert.Empty(t, out.Diagnostics)
	assert.Zero(t, out.Attempted)
	assert.False(t, out.Canceled)
}

func TestRun_ShortDocumentEndToEnd(t *testing.T) {
	c, err := chunker.New(chunker.Options{MaxSize: 10, Overlap: 2})
	require.NoError(t, err)

	segments := c.Split(types.Document{Identifier: "a.py", Content: "def f():\n    pass\n"})
	require.NotEmpty(t, segments)

	a := analyzer.Func(func(_ context.Context, p prompt.Prompt) (any, error) {
		return fmt.Sprintf("OK:%d", len([]rune(p.User))), nil
	})
	o := New(a, Options{Builder: rawBuilder(t)}, nil)
	out := o.Run(context.Background(), segments)

	require.Len(t, out.Results, len(segments))
	for i, r := range out.Results {
		assert.Equal(t, "a.py", r.Identifier)
		assert.Equal(t, fmt.Sprintf("OK:%d", segments[i].Length()), r.Analysis)
	}
	assert.Empty(t, out.Diagnostics)
}

func TestRun_FailureIsolated(t *testing.T) {
	segments := makeSegments("x.go", "first", "second", "third")

	a := analyzer.Func(func(_ context.Context, p prompt.Prompt) (any, error) {
		if p.User == "second" {
			return nil, errors.New("provider exploded")
		}
		return "ok " + p.User, nil
	})

	core, logs := observer.New(zapcore.WarnLevel)
	o := New(a, Options{Builder: rawBuilder(t)}, zap.New(core))
	out := o.Run(context.Background(), segments)

	require.Len(t, out.Results, 2)
	assert.Equal(t, "ok first", out.Results[0].Analysis)
	assert.Equal(t, "ok third", out.Results[1].Analysis)

	require.Len(t, out.Diagnostics, 1)
	d := out.Diagnostics[0]
	assert.Equal(t, "x.go", d.Identifier)
	assert.Equal(t, 1, d.SegmentIndex)
	assert.Equal(t, types.DiagnosticAnalysis, d.Kind)
	assert.Contains(t, d.Message, "provider exploded")

	assert.Equal(t, 3, out.Attempted)
	assert.Equal(t, 1, out.Failed())
	assert.False(t, out.Canceled)

	entries := logs.FilterMessage("segment analysis failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "x.go", entries[0].ContextMap()["file"])
}

func TestRun_AllFail(t *testing.T) {
	segments := makeSegments("x.go", "a", "b")
	a := analyzer.Func(func(context.Context, prompt.Prompt) (any, error) {
		return nil, analyzer.ErrEmptyResponse
	})

	out := New(a, Options{}, nil).Run(context.Background(), segments)

	assert.Empty(t, out.Results)
	require.Len(t, out.Diagnostics, 2)
	assert.Equal(t, 2, out.Attempted)
}

func TestRun_SequentialByDefault(t *testing.T) {
	segments := makeSegments("seq.txt", "a", "b", "c", "d", "e")

	var inFlight, maxInFlight int32
	var order []string
	var mu sync.Mutex

	a := analyzer.Func(func(_ context.Context, p prompt.Prompt) (any, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}

		mu.Lock()
		order = append(order, p.User)
		mu.Unlock()

		time.Sleep(time.Millisecond)
		return p.User, nil
	})

	out := New(a, Options{Builder: rawBuilder(t)}, nil).Run(context.Background(), segments)

	require.Len(t, out.Results, 5)
	assert.Equal(t, int32(1), maxInFlight)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, order)
}

func TestRun_ConcurrentPreservesOrder(t *testing.T) {
	contents := make([]string, 20)
	for i := range contents {
		contents[i] = fmt.Sprintf("segment-%02d", i)
	}
	segments := makeSegments("many.txt", contents...)

	var inFlight, maxInFlight int32
	newAnalyzer := func() analyzer.Func {
		return func(_ context.Context, p prompt.Prompt) (any, error) {
			n := atomic.AddInt32(&inFlight, 1)
			defer atomic.AddInt32(&inFlight, -1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}

			var idx int
			_, _ = fmt.Sscanf(p.User, "segment-%d", &idx)
			// Later segments finish first
			time.Sleep(time.Duration(20-idx) * 200 * time.Microsecond)
			if idx%7 == 3 {
				return nil, errors.New("rejected")
			}
			return strings.ToUpper(p.User), nil
		}
	}

	sequential := New(newAnalyzer(), Options{Builder: rawBuilder(t)}, nil).Run(context.Background(), segments)
	atomic.StoreInt32(&maxInFlight, 0)
	concurrent := New(newAnalyzer(), Options{Builder: rawBuilder(t), Workers: 4}, nil).Run(context.Background(), segments)

	assert.Equal(t, sequential.Results, concurrent.Results)
	assert.Equal(t, sequential.Diagnostics, concurrent.Diagnostics)
	assert.Equal(t, 20, concurrent.Attempted)
	assert.LessOrEqual(t, maxInFlight, int32(4))
	assert.False(t, concurrent.Canceled)
}

func TestRun_CallTimeout(t *testing.T) {
	segments := makeSegments("slow.go", "hang", "fast")

	a := analyzer.Func(func(ctx context.Context, p prompt.Prompt) (any, error) {
		if p.User == "hang" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return "done", nil
	})

	o := New(a, Options{Builder: rawBuilder(t), CallTimeout: 20 * time.Millisecond}, nil)
	out := o.Run(context.Background(), segments)

	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, types.DiagnosticTimeout, out.Diagnostics[0].Kind)
	assert.Equal(t, 0, out.Diagnostics[0].SegmentIndex)

	require.Len(t, out.Results, 1)
	assert.Equal(t, "done", out.Results[0].Analysis)
}

func TestRun_TimeoutWithUncooperativeAnalyzer(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	a := analyzer.Func(func(context.Context, prompt.Prompt) (any, error) {
		<-release
		return "late", nil
	})

	o := New(a, Options{CallTimeout: 10 * time.Millisecond}, nil)

	finished := make(chan *Outcome, 1)
	go func() {
		finished <- o.Run(context.Background(), makeSegments("stuck.go", "x"))
	}()

	select {
	case out := <-finished:
		require.Len(t, out.Diagnostics, 1)
		assert.Equal(t, types.DiagnosticTimeout, out.Diagnostics[0].Kind)
		assert.Empty(t, out.Results)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after the call timeout")
	}
}

func TestRun_CancellationKeepsPartialResults(t *testing.T) {
	segments := makeSegments("cancel.txt", "a", "b", "c", "d")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	a := analyzer.Func(func(_ context.Context, p prompt.Prompt) (any, error) {
		calls++
		return p.User, nil
	})

	o := New(a, Options{
		Builder: rawBuilder(t),
		OnProgress: func(p Progress) {
			if p.Done == 2 {
				cancel()
			}
		},
	}, nil)
	out := o.Run(ctx, segments)

	assert.True(t, out.Canceled)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "a", out.Results[0].Analysis)
	assert.Equal(t, "b", out.Results[1].Analysis)
	assert.Empty(t, out.Diagnostics)
	assert.Equal(t, 2, calls)
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 3} {
		out := New(echo(), Options{Workers: workers}, nil).Run(ctx, makeSegments("f", "a", "b"))
		assert.True(t, out.Canceled, "workers=%d", workers)
		assert.Empty(t, out.Results, "workers=%d", workers)
		assert.Zero(t, out.Attempted, "workers=%d", workers)
	}
}

type textPayload struct{ body string }

func (p textPayload) Text() string { return p.body }

func TestRun_NormalizesResponses(t *testing.T) {
	values := map[string]any{
		"text":    "plain",
		"payload": textPayload{body: "from payload"},
		"number":  42,
		"nil":     nil,
	}

	segments := makeSegments("n.txt", "text", "payload", "number", "nil")
	a := analyzer.Func(func(_ context.Context, p prompt.Prompt) (any, error) {
		return values[p.User], nil
	})

	out := New(a, Options{Builder: rawBuilder(t)}, nil).Run(context.Background(), segments)

	require.Len(t, out.Results, 4)
	assert.Equal(t, "plain", out.Results[0].Analysis)
	assert.Equal(t, "from payload", out.Results[1].Analysis)
	assert.Equal(t, "42", out.Results[2].Analysis)
	assert.Equal(t, "", out.Results[3].Analysis)
}

func TestRun_Progress(t *testing.T) {
	segments := makeSegments("p.txt", "a", "bad", "c")
	a := analyzer.Func(func(_ context.Context, p prompt.Prompt) (any, error) {
		if p.User == "bad" {
			return nil, errors.New("nope")
		}
		return p.User, nil
	})

	var updates []Progress
	o := New(a, Options{
		Builder:    rawBuilder(t),
		OnProgress: func(p Progress) { updates = append(updates, p) },
	}, nil)
	o.Run(context.Background(), segments)

	require.Len(t, updates, 3)
	last := updates[2]
	assert.Equal(t, 3, last.Total)
	assert.Equal(t, 3, last.Done)
	assert.Equal(t, 2, last.Succeeded)
	assert.Equal(t, 1, last.Failed)
	assert.Equal(t, 2, last.Segment.Index)
}
