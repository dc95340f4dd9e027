package middleware_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cogflow/cog"
	"github.com/cogflow/cog/middleware"
)

func passNode(name string) cog.Node {
	return cog.NewNode(name, cog.Steps{
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			return name, nil
		},
	})
}

type countingCollector struct {
	mu      sync.Mutex
	starts  map[string]int
	ends    map[string]int
	actions []string
}

func newCountingCollector() *countingCollector {
	return &countingCollector{starts: map[string]int{}, ends: map[string]int{}}
}

func (c *countingCollector) RecordStepStart(node, step string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts[node+"/"+step]++
}

func (c *countingCollector) RecordStepEnd(node, step string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ends[node+"/"+step]++
}

func (c *countingCollector) RecordRouting(node, action string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, node+"->"+action)
}

func TestMetricsRecordsSteps(t *testing.T) {
	collector := newCountingCollector()
	node := middleware.Apply(passNode("work"), middleware.Metrics(collector))

	if _, err := cog.Run(context.Background(), node, cog.NewStore()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, step := range []string{"prep", "exec", "post"} {
		if collector.starts["work/"+step] != 1 || collector.ends["work/"+step] != 1 {
			t.Errorf("step %s: starts=%d ends=%d, want 1/1",
				step, collector.starts["work/"+step], collector.ends["work/"+step])
		}
	}
	if len(collector.actions) != 1 {
		t.Errorf("actions = %v, want one routing record", collector.actions)
	}
}

func TestTimingStoresDurations(t *testing.T) {
	node := middleware.Apply(passNode("slow"), middleware.Timing())

	shared := cog.NewStore()
	if _, err := cog.Run(context.Background(), node, shared); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, ok := shared.Get("timing:slow:last"); !ok {
		t.Error("timing:slow:last not stored")
	}
	if count := cog.GetOr(shared, "timing:slow:count", int64(0)); count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if _, ok := shared.Get("timing:slow:avg"); !ok {
		t.Error("timing:slow:avg not stored")
	}
}

func TestTimingAccumulates(t *testing.T) {
	node := middleware.Apply(passNode("rep"), middleware.Timing())

	shared := cog.NewStore()
	for i := 0; i < 3; i++ {
		if _, err := cog.Run(context.Background(), node, shared); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	if count := cog.GetOr(shared, "timing:rep:count", int64(0)); count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	total := cog.GetOr(shared, "timing:rep:total", time.Duration(0))
	avg := cog.GetOr(shared, "timing:rep:avg", time.Duration(0))
	if total < avg {
		t.Errorf("total %v < avg %v", total, avg)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(node cog.Node) cog.Node {
			return middleware.Apply(node, middleware.Metrics(orderCollector{name: name, order: &order}))
		}
	}

	node := middleware.Chain(tag("outer"), tag("inner"))(passNode("n"))
	if _, err := cog.Run(context.Background(), node, cog.NewStore()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Chain applies in reverse so the first middleware observes first.
	if len(order) < 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("order = %v, want outer before inner", order)
	}
}

type orderCollector struct {
	name  string
	order *[]string
}

func (c orderCollector) RecordStepStart(node, step string) {
	if step == "prep" {
		*c.order = append(*c.order, c.name)
	}
}
func (c orderCollector) RecordStepEnd(node, step string, err error) {}
func (c orderCollector) RecordRouting(node, action string)         {}

func TestWrappedFlowStillOrchestrates(t *testing.T) {
	inner := cog.NewNode("inner", cog.Steps{
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			shared.Set("ran", true)
			return "", nil
		},
	})
	sub := cog.NewFlow("sub", inner)

	wrapped := middleware.Apply(sub, middleware.Timing())

	outer := cog.NewFlow("outer", wrapped)
	shared := cog.NewStore()
	if _, err := outer.Run(context.Background(), shared); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ran := cog.GetOr(shared, "ran", false); !ran {
		t.Error("wrapped sub-flow did not orchestrate its inner node")
	}
}

func TestLoggingPreservesResult(t *testing.T) {
	node := middleware.Apply(passNode("logged"), middleware.Logging(cog.NopLogger{}))

	shared := cog.NewStore()
	if _, err := cog.Run(context.Background(), node, shared); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
