package cog_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cogflow/cog"
)

// writerNode appends its name to the "trail" key and returns the given action.
func writerNode(name, action string) *cog.BaseNode {
	return cog.NewNode(name, cog.Steps{
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			trail := cog.GetOr(shared, "trail", []string{})
			shared.Set("trail", append(trail, name))
			return action, nil
		},
	})
}

func TestFlowNoStartNode(t *testing.T) {
	flow := cog.NewFlow("empty", nil)

	_, err := flow.Run(context.Background(), cog.NewStore())
	if !errors.Is(err, cog.ErrNoStartNode) {
		t.Errorf("Run() error = %v, want ErrNoStartNode", err)
	}
}

func TestLinearChain(t *testing.T) {
	// Scenario: unit1 -> unit2 -> unit3 over default edges; the last unit
	// returns "done" and has no outgoing edges.
	unit1 := writerNode("unit1", "")
	unit2 := writerNode("unit2", "")
	unit3 := writerNode("unit3", "done")
	unit1.Connect(unit2).Connect(unit3)

	shared := cog.NewStore()
	flow := cog.NewFlow("chain", unit1)

	action, err := flow.Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if action != "done" {
		t.Errorf("action = %q, want done", action)
	}

	trail := cog.GetOr(shared, "trail", []string{})
	want := []string{"unit1", "unit2", "unit3"}
	if len(trail) != len(want) {
		t.Fatalf("trail = %v, want %v", trail, want)
	}
	for i := range want {
		if trail[i] != want[i] {
			t.Errorf("trail[%d] = %q, want %q", i, trail[i], want[i])
		}
	}
}

func TestBranch(t *testing.T) {
	tests := []struct {
		name string
		flag bool
		want string
	}{
		{"flag true reaches unitA", true, "unitA"},
		{"flag false reaches unitB", false, "unitB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			branch := cog.NewNode("branch", cog.Steps{
				Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
					if cog.GetOr(shared, "flag", false) {
						return "yes", nil
					}
					return "no", nil
				},
			})
			branch.On("yes").To(writerNode("unitA", "a"))
			branch.On("no").To(writerNode("unitB", "b"))

			shared := cog.NewStore()
			shared.Set("flag", tt.flag)

			if _, err := cog.NewFlow("branching", branch).Run(context.Background(), shared); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			trail := cog.GetOr(shared, "trail", []string{})
			if len(trail) != 1 || trail[0] != tt.want {
				t.Errorf("trail = %v, want [%s]", trail, tt.want)
			}
		})
	}
}

func TestRoutingPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		action    string // action returned by the start node's Post
		edges     map[string]string
		wantNext  string // name written by the routed node, "" for none
		wantWarns int
	}{
		{
			name:     "exact match wins",
			action:   "x",
			edges:    map[string]string{"x": "nodeX", "default": "nodeD"},
			wantNext: "nodeX",
		},
		{
			name:     "empty action reads as default",
			action:   "",
			edges:    map[string]string{"default": "nodeD", "other": "nodeO"},
			wantNext: "nodeD",
		},
		{
			name:     "single successor routes regardless of label",
			action:   "anything",
			edges:    map[string]string{"whatever": "nodeW"},
			wantNext: "nodeW",
		},
		{
			name:     "exact match beats single default edge",
			action:   "default",
			edges:    map[string]string{"default": "nodeD"},
			wantNext: "nodeD",
		},
		{
			name:     "default fallback among many edges",
			action:   "missing",
			edges:    map[string]string{"a": "nodeA", "b": "nodeB", "default": "nodeD"},
			wantNext: "nodeD",
		},
		{
			name:      "no match with edges warns and terminates",
			action:    "z",
			edges:     map[string]string{"x": "nodeX", "y": "nodeY"},
			wantNext:  "",
			wantWarns: 1,
		},
		{
			name:     "no edges terminates silently",
			action:   "z",
			edges:    nil,
			wantNext: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := writerNode("start", tt.action)
			for label, name := range tt.edges {
				start.Next(label, writerNode(name, "end"))
			}

			rec := &recordLogger{}
			shared := cog.NewStore()
			flow := cog.NewFlow("routing", start, cog.WithLogger(rec))

			action, err := flow.Run(context.Background(), shared)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			trail := cog.GetOr(shared, "trail", []string{})
			if tt.wantNext == "" {
				if len(trail) != 1 {
					t.Errorf("trail = %v, want only the start node", trail)
				}
				// The flow's result is the last captured action, even when
				// it matched no edge.
				if action != tt.action {
					t.Errorf("action = %q, want %q", action, tt.action)
				}
			} else {
				if len(trail) != 2 || trail[1] != tt.wantNext {
					t.Errorf("trail = %v, want [start %s]", trail, tt.wantNext)
				}
			}
			if rec.warnCount() != tt.wantWarns {
				t.Errorf("warnings = %d, want %d", rec.warnCount(), tt.wantWarns)
			}
		})
	}
}

func TestSubFlowAsNode(t *testing.T) {
	// outer1 -> [inner1 -> inner2] -> outer2
	inner1 := writerNode("inner1", "")
	inner2 := writerNode("inner2", "inner-done")
	inner1.Connect(inner2)
	sub := cog.NewFlow("sub", inner1)

	outer1 := writerNode("outer1", "")
	outer2 := writerNode("outer2", "all-done")
	outer1.Connect(sub)
	sub.On("inner-done").To(outer2)

	shared := cog.NewStore()
	action, err := cog.NewFlow("outer", outer1).Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if action != "all-done" {
		t.Errorf("action = %q, want all-done", action)
	}

	trail := cog.GetOr(shared, "trail", []string{})
	want := []string{"outer1", "inner1", "inner2", "outer2"}
	if fmt.Sprint(trail) != fmt.Sprint(want) {
		t.Errorf("trail = %v, want %v", trail, want)
	}
}

func TestFlowParamsPropagation(t *testing.T) {
	var first, second *cog.BaseNode

	first = cog.NewNode("first", cog.Steps{
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			shared.Set("first-model", first.Params()["model"])
			return "", nil
		},
	}, cog.WithParams(map[string]any{"model": "stale"}))

	second = cog.NewNode("second", cog.Steps{
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			shared.Set("second-model", second.Params()["model"])
			return "done", nil
		},
	})
	first.Connect(second)

	shared := cog.NewStore()
	flow := cog.NewFlow("params", first,
		cog.WithParams(map[string]any{"model": "fast"}))

	if _, err := flow.Run(context.Background(), shared); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Propagation overwrites node params wholesale, including preset ones.
	if got, _ := shared.Get("first-model"); got != "fast" {
		t.Errorf("first-model = %v, want fast", got)
	}
	if got, _ := shared.Get("second-model"); got != "fast" {
		t.Errorf("second-model = %v, want fast", got)
	}
}

func TestCyclicFlowTerminates(t *testing.T) {
	// decide -> work -> decide until the counter reaches 3, then finish.
	var decide *cog.BaseNode
	decide = cog.NewNode("decide", cog.Steps{
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			if cog.GetOr(shared, "count", 0) >= 3 {
				return "finish", nil
			}
			return "work", nil
		},
	})
	work := cog.NewNode("work", cog.Steps{
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			shared.Set("count", cog.GetOr(shared, "count", 0)+1)
			return "decide", nil
		},
	})
	finish := writerNode("finish", "done")

	decide.On("work").To(work)
	decide.On("finish").To(finish)
	work.On("decide").To(decide)

	shared := cog.NewStore()
	action, err := cog.NewFlow("loop", decide).Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if action != "done" {
		t.Errorf("action = %q, want done", action)
	}
	if got := cog.GetOr(shared, "count", 0); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
}

func TestFlowStart(t *testing.T) {
	flow := cog.NewFlow("late-start", nil)
	node := writerNode("only", "done")

	if got := flow.Start(node); got != cog.Node(node) {
		t.Error("Start should return the start node")
	}
	if flow.StartNode() != cog.Node(node) {
		t.Error("StartNode should return the configured start")
	}

	action, err := flow.Run(context.Background(), cog.NewStore())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if action != "done" {
		t.Errorf("action = %q, want done", action)
	}
}

func BenchmarkFlowRun(b *testing.B) {
	first := cog.NewNode("first", cog.Steps{
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			return 1, nil
		},
	})
	second := cog.NewNode("second", cog.Steps{
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			return "done", nil
		},
	})
	first.Connect(second)
	flow := cog.NewFlow("bench", first)

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		shared := cog.NewStore()
		if _, err := flow.Run(ctx, shared); err != nil {
			b.Fatal(err)
		}
	}
}
