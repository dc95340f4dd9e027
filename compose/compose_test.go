package compose_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cogflow/cog"
	"github.com/cogflow/cog/compose"
)

// transformFlow builds a one-node flow applying fn to "input" and storing the
// result under "output".
func transformFlow(name string, fn func(string) string) *cog.Flow {
	node := cog.NewNode(name+"-node", cog.Steps{
		Prep: func(ctx context.Context, shared cog.Store) (any, error) {
			return cog.GetOr(shared, "input", ""), nil
		},
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			return fn(prepResult.(string)), nil
		},
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			shared.Set("output", execResult)
			return "", nil
		},
	})
	return cog.NewFlow(name, node)
}

func TestIsolateKeepsStatePrivate(t *testing.T) {
	leaky := cog.NewNode("leaky", cog.Steps{
		Prep: func(ctx context.Context, shared cog.Store) (any, error) {
			return cog.GetOr(shared, "input", ""), nil
		},
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			shared.Set("scratch", "internal state")
			shared.Set("output", strings.ToUpper(prepResult.(string)))
			return "", nil
		},
	})
	sub := cog.NewFlow("sub", leaky)

	node := compose.Isolate(sub, "isolated", "raw", "result")

	shared := cog.NewStoreFrom(map[string]any{"raw": "hello"})
	if _, err := cog.Run(context.Background(), node, shared); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got, _ := shared.Get("result"); got != "HELLO" {
		t.Errorf("result = %v, want HELLO", got)
	}
	if _, ok := shared.Get("scratch"); ok {
		t.Error("sub-flow scratch state leaked into the outer store")
	}
	if _, ok := shared.Get("output"); ok {
		t.Error("sub-flow output key leaked into the outer store")
	}
}

func TestIsolateMissingInput(t *testing.T) {
	node := compose.Isolate(transformFlow("f", strings.ToUpper), "iso", "missing", "out")
	if _, err := cog.Run(context.Background(), node, cog.NewStore()); err == nil {
		t.Error("Run() error = nil, want missing input key")
	}
}

func TestPipelineRunsInOrder(t *testing.T) {
	appendFlow := func(name, suffix string) *cog.Flow {
		node := cog.NewNode(name+"-node", cog.Steps{
			Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
				shared.Set("text", cog.GetOr(shared, "text", "")+suffix)
				return "", nil
			},
		})
		return cog.NewFlow(name, node)
	}

	pipeline, err := compose.Pipeline("p",
		appendFlow("first", "a"),
		appendFlow("second", "b"),
		appendFlow("third", "c"),
	)
	if err != nil {
		t.Fatalf("Pipeline() error = %v", err)
	}

	shared := cog.NewStore()
	if _, err := pipeline.Run(context.Background(), shared); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := cog.GetOr(shared, "text", ""); got != "abc" {
		t.Errorf("text = %q, want abc", got)
	}
}

func TestPipelineEmpty(t *testing.T) {
	if _, err := compose.Pipeline("empty"); err == nil {
		t.Error("Pipeline() error = nil, want at least one flow")
	}
}

func TestIsolatedPipelineChainsKeys(t *testing.T) {
	pipeline, err := compose.IsolatedPipeline("chain", "start", "final",
		transformFlow("upper", strings.ToUpper),
		transformFlow("bang", func(s string) string { return s + "!" }),
	)
	if err != nil {
		t.Fatalf("IsolatedPipeline() error = %v", err)
	}

	shared := cog.NewStoreFrom(map[string]any{"start": "go"})
	if _, err := pipeline.Run(context.Background(), shared); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, _ := shared.Get("final"); got != "GO!" {
		t.Errorf("final = %v, want GO!", got)
	}
}
