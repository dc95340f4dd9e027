// Package middleware wraps nodes with cross-cutting behavior such as
// structured logging, timing, and metrics collection. Wrappers preserve the
// node's routing and, for flows, its orchestration.
package middleware

import (
	"context"

	"github.com/cogflow/cog"
)

// Middleware modifies node behavior.
type Middleware func(cog.Node) cog.Node

// wrappedNode overrides selected lifecycle steps and delegates the rest.
type wrappedNode struct {
	inner cog.Node
	prep  cog.PrepFunc
	exec  cog.ExecFunc
	post  cog.PostFunc
}

func (w *wrappedNode) Name() string { return w.inner.Name() }

func (w *wrappedNode) Prep(ctx context.Context, shared cog.Store) (any, error) {
	if w.prep != nil {
		return w.prep(ctx, shared)
	}
	return w.inner.Prep(ctx, shared)
}

func (w *wrappedNode) Exec(ctx context.Context, prepResult any) (any, error) {
	if w.exec != nil {
		return w.exec(ctx, prepResult)
	}
	return w.inner.Exec(ctx, prepResult)
}

func (w *wrappedNode) Post(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
	if w.post != nil {
		return w.post(ctx, shared, prepResult, execResult)
	}
	return w.inner.Post(ctx, shared, prepResult, execResult)
}

func (w *wrappedNode) SetParams(params map[string]any) { w.inner.SetParams(params) }
func (w *wrappedNode) Params() map[string]any          { return w.inner.Params() }

func (w *wrappedNode) Next(action string, next cog.Node) cog.Node {
	return w.inner.Next(action, next)
}

func (w *wrappedNode) Connect(next cog.Node) cog.Node { return w.inner.Connect(next) }

func (w *wrappedNode) Successors() map[string]cog.Node { return w.inner.Successors() }

// orchestratingNode additionally forwards orchestration so a wrapped flow
// still runs its inner graph when used as a node.
type orchestratingNode struct {
	*wrappedNode
	orch cog.Orchestrator
}

func (o *orchestratingNode) Orchestrate(ctx context.Context, shared cog.Store, params map[string]any) (string, error) {
	return o.orch.Orchestrate(ctx, shared, params)
}

// wrap builds the wrapper, keeping the Orchestrator capability when the inner
// node has it.
func wrap(inner cog.Node, prep cog.PrepFunc, exec cog.ExecFunc, post cog.PostFunc) cog.Node {
	w := &wrappedNode{inner: inner, prep: prep, exec: exec, post: post}
	if orch, ok := inner.(cog.Orchestrator); ok {
		return &orchestratingNode{wrappedNode: w, orch: orch}
	}
	return w
}

// Chain combines middlewares into one, applied in reverse order like function
// composition.
func Chain(middlewares ...Middleware) Middleware {
	return func(node cog.Node) cog.Node {
		for i := len(middlewares) - 1; i >= 0; i-- {
			node = middlewares[i](node)
		}
		return node
	}
}

// Apply applies middlewares to a node in order.
func Apply(node cog.Node, middlewares ...Middleware) cog.Node {
	for _, mw := range middlewares {
		node = mw(node)
	}
	return node
}
