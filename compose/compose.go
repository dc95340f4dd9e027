// Package compose builds larger flows out of smaller ones. Flows already act
// as nodes on the shared store; this package adds key-isolated wrapping and
// sequential pipelines.
package compose

import (
	"context"
	"fmt"

	"github.com/cogflow/cog"
)

// Isolate wraps a flow in a node that runs it against a private store. The
// value under inputKey is copied in as "input"; the private store's "output"
// lands under outputKey. State the sub-flow writes never leaks into the
// caller's store.
func Isolate(flow *cog.Flow, name, inputKey, outputKey string) cog.Node {
	return cog.NewNode(name, cog.Steps{
		Prep: func(ctx context.Context, shared cog.Store) (any, error) {
			if inputKey == "" {
				return nil, nil
			}
			value, ok := shared.Get(inputKey)
			if !ok {
				return nil, fmt.Errorf("input key %q not found", inputKey)
			}
			return value, nil
		},
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			private := cog.NewStoreFrom(map[string]any{"input": prepResult})
			if _, err := flow.Run(ctx, private); err != nil {
				return nil, fmt.Errorf("flow %q: %w", flow.Name(), err)
			}
			result, _ := private.Get("output")
			return result, nil
		},
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			if outputKey != "" {
				shared.Set(outputKey, execResult)
			}
			return "", nil
		},
	})
}

// Pipeline chains flows into one: each runs as a node on the shared store,
// connected by default edges in the given order.
func Pipeline(name string, flows ...*cog.Flow) (*cog.Flow, error) {
	if len(flows) == 0 {
		return nil, fmt.Errorf("pipeline %q needs at least one flow", name)
	}

	for i := 0; i < len(flows)-1; i++ {
		flows[i].Connect(flows[i+1])
	}
	return cog.NewFlow(name, flows[0]), nil
}

// IsolatedPipeline chains key-isolated stages: stage n reads the output key
// of stage n-1. The first stage reads inputKey, the last writes outputKey.
func IsolatedPipeline(name, inputKey, outputKey string, flows ...*cog.Flow) (*cog.Flow, error) {
	if len(flows) == 0 {
		return nil, fmt.Errorf("pipeline %q needs at least one flow", name)
	}

	nodes := make([]cog.Node, len(flows))
	key := inputKey
	for i, flow := range flows {
		nextKey := outputKey
		if i < len(flows)-1 {
			nextKey = fmt.Sprintf("%s.stage%d", name, i)
		}
		nodes[i] = Isolate(flow, fmt.Sprintf("%s-%d", name, i), key, nextKey)
		key = nextKey
	}
	for i := 0; i < len(nodes)-1; i++ {
		nodes[i].Connect(nodes[i+1])
	}
	return cog.NewFlow(name, nodes[0]), nil
}
