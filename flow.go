package cog

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
)

// Flow orchestrates a graph of nodes starting from a designated start node,
// following action-labeled edges until routing yields no successor. A Flow is
// itself a Node, so flows nest: a sub-flow can be wired as a node inside a
// larger graph and the whole inner graph runs to completion before outer
// routing continues.
//
// A Flow references the graph; it does not own it. Node instances may be
// shared between flows, but because parameter propagation mutates node state
// in place, concurrent runs over shared instances are unsafe. Run one flow at
// a time per graph, or clone mutable node state per run.
type Flow struct {
	*BaseNode
	start Node
}

// NewFlow creates a flow that orchestrates the graph reachable from start.
// Options configure the flow's own node surface: WithPrep and WithPost
// override the pass-through lifecycle used when the flow is nested inside
// another graph, WithParams sets the parameters propagated to every node the
// flow runs, and WithLogger wires the diagnostic channel for routing
// warnings.
func NewFlow(name string, start Node, opts ...Option) *Flow {
	o := buildOptions(Steps{}, opts)
	return &Flow{
		BaseNode: newBaseNode(name, o, flowPost),
		start:    start,
	}
}

// flowPost is the default Post for flows: pass the inner orchestration's last
// action through unchanged as the outer action label.
func flowPost(ctx context.Context, shared Store, prepResult, execResult any) (string, error) {
	action, err := assertAs[string](execResult, "post")
	if err != nil {
		return "", err
	}
	return action, err
}

// Start sets the flow's start node and returns it.
func (f *Flow) Start(start Node) Node {
	f.start = start
	return start
}

// StartNode returns the flow's current start node.
func (f *Flow) StartNode() Node { return f.start }

// Run executes the flow's full lifecycle against the shared store and
// returns the last action label produced by the graph.
func (f *Flow) Run(ctx context.Context, shared Store) (string, error) {
	return Run(ctx, f, shared)
}

// Orchestrate runs the graph from the start node. Per step it propagates
// params into the current node (overwriting, not merging), runs the node's
// full lifecycle against the shared store, and resolves the next node from
// the captured action label. When no further node resolves, the last
// captured action is the result.
//
// A nil params uses a copy of the flow's own parameters, so every node under
// the flow inherits them without explicit caller wiring.
func (f *Flow) Orchestrate(ctx context.Context, shared Store, params map[string]any) (string, error) {
	if f.start == nil {
		return "", fmt.Errorf("flow %q: %w", f.name, ErrNoStartNode)
	}

	p := params
	if p == nil {
		p = maps.Clone(f.Params())
	}
	if p == nil {
		p = make(map[string]any)
	}

	runID := uuid.NewString()
	log := f.logger()
	log.Debug(ctx, "flow starting", "flow", f.name, "run_id", runID)

	current := f.start
	lastAction := ""
	for current != nil {
		current.SetParams(p)
		log.Debug(ctx, "executing node", "flow", f.name, "run_id", runID, "node", current.Name())

		var err error
		lastAction, err = runLifecycle(ctx, current, shared)
		if err != nil {
			return "", err
		}

		current = f.nextNode(ctx, current, lastAction)
	}

	log.Debug(ctx, "flow finished", "flow", f.name, "run_id", runID, "action", lastAction)
	return lastAction, nil
}

// nextNode resolves the successor for the captured action label. First match
// wins, in order: exact label (an empty action reads as "default"), the sole
// edge of a single-successor node, then an explicit default edge. A node with
// edges but no match ends the flow with a warning; a node with no edges ends
// it silently.
func (f *Flow) nextNode(ctx context.Context, current Node, action string) Node {
	successors := current.Successors()
	if len(successors) == 0 {
		return nil // normal graph completion
	}

	label := action
	if label == "" {
		label = DefaultAction
	}
	if next, ok := successors[label]; ok {
		return next
	}

	// Purely linear chains route over their only edge whatever its label.
	if len(successors) == 1 {
		for _, next := range successors {
			return next
		}
	}

	if next, ok := successors[DefaultAction]; ok {
		return next
	}

	f.logger().Warn(ctx, "flow ends: no edge matches action",
		"flow", f.name,
		"node", current.Name(),
		"action", action,
		"available", slices.Sorted(maps.Keys(successors)))
	return nil
}
