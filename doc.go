/*
Package cog is a minimal workflow-execution engine: a directed graph of work
units connected by action-labeled edges, executed one node at a time under
explicit action-based routing, with bounded per-node retry.

Every node runs a three-step lifecycle against a shared key-value store:

	Prep(ctx, shared)                  derive the exec input from the store
	Exec(ctx, prepResult)              core logic, no store access
	Post(ctx, shared, prep, exec)      apply side effects, return an action

The action returned by Post selects the next node through the node's edge
mapping. A Flow drives this loop from a start node until no edge matches,
then returns the last action observed.

Basic usage:

	greet := cog.NewNode("greet", cog.Steps{
		Exec: func(ctx context.Context, in any) (any, error) {
			return "hello", nil
		},
		Post: func(ctx context.Context, shared cog.Store, prep, exec any) (string, error) {
			shared.Set("greeting", exec)
			return "done", nil
		},
	})

	shared := cog.NewStore()
	flow := cog.NewFlow("greeter", greet)
	action, err := flow.Run(context.Background(), shared)

Graphs are declared by chaining edges:

	a.Connect(b)            // default edge; returns b
	a.Next("retry", a)      // labeled edge
	a.On("done").To(c)      // labeled transition, reads like a graph literal

Retry wraps only the Exec step:

	fetch := cog.NewNode("fetch", cog.Steps{Exec: callService},
		cog.WithRetry(3, time.Second),
		cog.WithFallback(func(ctx context.Context, prep any, err error) (any, error) {
			return cachedResult, nil // substitute a degraded result
		}),
	)

Because a Flow is itself a Node, flows compose; wiring a sub-flow as a node
runs its whole inner graph to completion before outer routing continues.

Execution is strictly sequential: one lifecycle at a time, no parallelism,
no engine-level timeouts. Contexts are threaded through for the caller's
benefit; blocking work inside Exec blocks the flow.
*/
package cog
