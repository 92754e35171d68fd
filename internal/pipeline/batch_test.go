package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hzm1213/upsub/internal/model"
)

func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0))
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})
}

func TestBatchProcessorProcess(t *testing.T) {
	t.Parallel()

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, maxSeen atomic.Int32
		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "tracker", doFunc: func(context.Context, *model.LinkResult) error {
				n := current.Add(1)
				for {
					old := maxSeen.Load()
					if n <= old || maxSeen.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				current.Add(-1)
				return nil
			}})
			return p
		}, WithConcurrency(2))

		links := make([]string, 10)
		for i := range links {
			links[i] = "https://example.com/" + string(rune('a'+i))
		}
		if _, err := bp.Process(context.Background(), links); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if maxSeen.Load() > 2 {
			t.Errorf("max concurrent was %d, expected <= 2", maxSeen.Load())
		}
	})

	t.Run("results follow link order, not completion order", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "delay", doFunc: func(_ context.Context, r *model.LinkResult) error {
				// Earlier links finish later.
				time.Sleep(time.Duration(3-r.Position) * 10 * time.Millisecond)
				return nil
			}})
			return p
		}, WithConcurrency(3))

		links := []string{"https://a.example/", "https://b.example/", "https://c.example/"}
		results, err := bp.Process(context.Background(), links)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, r := range results {
			if r.Link.URL != links[i] || r.Position != i {
				t.Errorf("result[%d]: got %q at %d, expected %q", i, r.Link.URL, r.Position, links[i])
			}
		}
	})

	t.Run("continues after individual link failure", func(t *testing.T) {
		t.Parallel()

		var processed atomic.Int32
		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "sometimes-fails", doFunc: func(_ context.Context, r *model.LinkResult) error {
				processed.Add(1)
				if strings.Contains(r.Link.URL, "fail") {
					return errors.New("simulated failure")
				}
				return nil
			}})
			return p
		})

		results, err := bp.Process(context.Background(), []string{
			"https://first.example/", "https://fail.example/", "https://third.example/",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processed.Load())
		}
		if results[1].ErrorMessage == "" {
			t.Error("expected error in second result")
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		var started atomic.Int32

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "slow", doFunc: func(ctx context.Context, _ *model.LinkResult) error {
				started.Add(1)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Second):
					return nil
				}
			}})
			return p
		}, WithConcurrency(2))

		links := make([]string, 10)
		for i := range links {
			links[i] = "https://example.com/sub"
		}

		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()

		results, err := bp.Process(ctx, links)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		//nolint:gosec // len(links) is small, no overflow risk
		if started.Load() >= int32(len(links)) {
			t.Error("expected some links to not start due to cancellation")
		}
		for i, r := range results {
			if r.Status != model.LinkStatusCancelled {
				t.Errorf("result[%d]: got status %q, expected %q", i, r.Status, model.LinkStatusCancelled)
			}
		}
	})

	t.Run("callback sees every result", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "noop"})
			return p
		}, WithConcurrency(3))

		seen := make(map[string]bool)
		lastDone := 0
		links := []string{"https://a.example/", "https://b.example/", "https://c.example/"}
		_, err := bp.ProcessWithCallback(context.Background(), links, func(r *model.LinkResult, done, total int) {
			seen[r.Link.URL] = true
			lastDone = done
			if total != len(links) {
				t.Errorf("got total %d, expected %d", total, len(links))
			}
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(seen) != 3 || lastDone != 3 {
			t.Errorf("got %d results and done=%d, expected 3 and 3", len(seen), lastDone)
		}
	})
}

func TestNumber(t *testing.T) {
	t.Parallel()

	mk := func(status model.LinkStatus, nodes int) *model.LinkResult {
		r := model.NewLinkResult("https://example.com/", 0)
		r.Status = status
		for range nodes {
			r.Nodes = append(r.Nodes, "trojan://a@h:1#x")
		}
		return r
	}

	results := []*model.LinkResult{
		mk(model.LinkStatusFetchFailed, 0),
		mk(model.LinkStatusOK, 2),
		mk(model.LinkStatusNoNodes, 0),
		mk(model.LinkStatusOK, 1),
		mk(model.LinkStatusOK, 3),
	}

	if k := Number(results); k != 3 {
		t.Errorf("got %d artifacts, expected 3", k)
	}
	expected := []int{0, 1, 0, 2, 3}
	for i, r := range results {
		if r.ArtifactIndex != expected[i] {
			t.Errorf("result[%d]: got index %d, expected %d", i, r.ArtifactIndex, expected[i])
		}
	}
}
