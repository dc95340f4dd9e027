// Package cog provides a minimal workflow engine: directed graphs of work
// units ("nodes") connected by action-labeled edges, executed one node at a
// time by a Flow with bounded per-node retry.
package cog

import (
	"context"
	"fmt"
	"time"
)

// DefaultAction is the reserved edge label used when a node's Post step
// returns an empty action and a default edge exists.
const DefaultAction = "default"

// PrepFunc derives the input a node's Exec step needs from the shared store.
// It must not have side effects beyond reading the store.
type PrepFunc func(ctx context.Context, shared Store) (prepResult any, err error)

// ExecFunc performs the node's core logic. It has no store access; all store
// interaction happens in Prep and Post.
type ExecFunc func(ctx context.Context, prepResult any) (execResult any, err error)

// PostFunc applies side effects to the shared store and returns the action
// label that drives routing. An empty action means "use the default edge".
type PostFunc func(ctx context.Context, shared Store, prepResult, execResult any) (action string, err error)

// FallbackFunc handles the final Exec error after retry exhaustion. Like
// ExecFunc it has no store access. The default fallback propagates the error
// unchanged; a custom fallback may return a substitute result instead, which
// is the only way a node converts a failure into a normal result.
type FallbackFunc func(ctx context.Context, prepResult any, execErr error) (fallbackResult any, err error)

// Steps groups the lifecycle functions for a node. All fields are optional;
// missing steps fall back to pass-through defaults.
type Steps struct {
	Prep     PrepFunc
	Exec     ExecFunc
	Fallback FallbackFunc
	Post     PostFunc
}

// Node is the capability interface every work unit implements. Both simple
// nodes and flows satisfy it, which is what lets flows nest inside flows.
type Node interface {
	// Name returns the node's identifier, used in diagnostics.
	Name() string

	// Lifecycle methods for the Prep/Exec/Post pattern.
	Prep(ctx context.Context, shared Store) (prepResult any, err error)
	Exec(ctx context.Context, prepResult any) (execResult any, err error)
	Post(ctx context.Context, shared Store, prepResult, execResult any) (action string, err error)

	// SetParams replaces the node's configuration parameters wholesale.
	// A Flow calls this before each execution of the node.
	SetParams(params map[string]any)

	// Params returns the node's current configuration parameters.
	Params() map[string]any

	// Next adds an edge for the given action and returns the target, so
	// declarations chain: a.Next("ok", b).Next("ok", c).
	Next(action string, next Node) Node

	// Connect is shorthand for Next(DefaultAction, next).
	Connect(next Node) Node

	// Successors exposes the edge mapping for inspection by the orchestrator.
	Successors() map[string]Node
}

// Orchestrator is implemented by composite nodes (flows) whose Exec step is
// "run an inner graph against the shared store". The lifecycle runner
// dispatches through it so nested flows see the same store.
type Orchestrator interface {
	Orchestrate(ctx context.Context, shared Store, params map[string]any) (lastAction string, err error)
}

// options holds configuration collected from Steps and Option values.
type options struct {
	prep     PrepFunc
	exec     ExecFunc
	post     PostFunc
	fallback FallbackFunc

	maxAttempts int
	wait        time.Duration

	logger Logger
	params map[string]any
}

// Option configures a node or flow.
type Option func(*options)

// WithPrep sets the preparation function.
func WithPrep(fn PrepFunc) Option {
	return func(o *options) { o.prep = fn }
}

// WithExec sets the execution function with type safety. The prep result is
// asserted to In before fn runs; a mismatch fails with ErrInvalidInput.
// For dynamic typing, use WithExec[any, any] or Steps.Exec.
func WithExec[In, Out any](fn func(ctx context.Context, in In) (Out, error)) Option {
	return func(o *options) {
		o.exec = func(ctx context.Context, prepResult any) (any, error) {
			in, err := assertAs[In](prepResult, "exec")
			if err != nil {
				return nil, err
			}
			return fn(ctx, in)
		}
	}
}

// WithPost sets the post-processing function with type safety over the exec
// result. For dynamic typing, use WithPost[any] or Steps.Post.
func WithPost[Out any](fn func(ctx context.Context, shared Store, prepResult any, execResult Out) (string, error)) Option {
	return func(o *options) {
		o.post = func(ctx context.Context, shared Store, prepResult, execResult any) (string, error) {
			out, err := assertAs[Out](execResult, "post")
			if err != nil {
				return "", err
			}
			return fn(ctx, shared, prepResult, out)
		}
	}
}

// WithFallback sets the handler invoked after retry exhaustion.
func WithFallback(fn FallbackFunc) Option {
	return func(o *options) { o.fallback = fn }
}

// WithRetry configures bounded retry for the Exec step. maxAttempts is the
// total number of Exec calls (values below 1 are treated as 1); wait is an
// optional delay between attempts.
func WithRetry(maxAttempts int, wait time.Duration) Option {
	return func(o *options) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		o.maxAttempts = maxAttempts
		o.wait = wait
	}
}

// WithLogger sets the diagnostic logger for a node or flow.
func WithLogger(logger Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithParams sets the node's initial configuration parameters. A Flow
// overwrites them on every step with its own propagated parameters.
func WithParams(params map[string]any) Option {
	return func(o *options) { o.params = params }
}

// assertAs converts a lifecycle value to T, treating nil as the zero value.
func assertAs[T any](v any, step string) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s expected %T, got %T", ErrInvalidInput, step, zero, v)
	}
	return t, nil
}

// BaseNode is the function-holding implementation of Node. Concrete behavior
// is supplied through Steps and options rather than subclassing.
type BaseNode struct {
	name       string
	params     map[string]any
	successors map[string]Node

	prep     PrepFunc
	exec     ExecFunc
	post     PostFunc
	fallback FallbackFunc

	maxAttempts int
	wait        time.Duration
	log         Logger
}

// NewNode creates a node with the given lifecycle steps and options.
//
// Missing steps default to: Prep returns nil, Exec passes the prep result
// through, Post returns an empty action (route via the default edge), and
// Fallback propagates the final Exec error.
func NewNode(name string, steps Steps, opts ...Option) *BaseNode {
	o := buildOptions(steps, opts)
	return newBaseNode(name, o, defaultPost)
}

// buildOptions merges global defaults, Steps, and options, in that order.
func buildOptions(steps Steps, opts []Option) options {
	o := getDefaults()
	if steps.Prep != nil {
		o.prep = steps.Prep
	}
	if steps.Exec != nil {
		o.exec = steps.Exec
	}
	if steps.Post != nil {
		o.post = steps.Post
	}
	if steps.Fallback != nil {
		o.fallback = steps.Fallback
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newBaseNode(name string, o options, fallbackPost PostFunc) *BaseNode {
	n := &BaseNode{
		name:        name,
		params:      o.params,
		successors:  make(map[string]Node),
		prep:        o.prep,
		exec:        o.exec,
		post:        o.post,
		fallback:    o.fallback,
		maxAttempts: o.maxAttempts,
		wait:        o.wait,
		log:         o.logger,
	}
	if n.prep == nil {
		n.prep = defaultPrep
	}
	if n.exec == nil {
		n.exec = defaultExec
	}
	if n.post == nil {
		n.post = fallbackPost
	}
	if n.fallback == nil {
		n.fallback = defaultFallback
	}
	if n.maxAttempts < 1 {
		n.maxAttempts = 1
	}
	return n
}

// Default lifecycle steps.
func defaultPrep(ctx context.Context, shared Store) (any, error) {
	return nil, nil
}

func defaultExec(ctx context.Context, prepResult any) (any, error) {
	return prepResult, nil // pass through
}

func defaultPost(ctx context.Context, shared Store, prepResult, execResult any) (string, error) {
	return "", nil // route via the default edge, if any
}

func defaultFallback(ctx context.Context, prepResult any, execErr error) (any, error) {
	return nil, execErr
}

// Name returns the node's identifier.
func (n *BaseNode) Name() string { return n.name }

// Prep implements the preparation phase of the node lifecycle.
func (n *BaseNode) Prep(ctx context.Context, shared Store) (any, error) {
	return n.prep(ctx, shared)
}

// Exec runs the execution step under the node's retry policy. The step is
// attempted up to maxAttempts times; after the final failure the fallback
// decides whether to substitute a result or propagate the error.
func (n *BaseNode) Exec(ctx context.Context, prepResult any) (any, error) {
	var lastErr error
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		if attempt > 1 && n.wait > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(n.wait):
			}
		}
		result, err := n.exec(ctx, prepResult)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt < n.maxAttempts {
			n.logger().Debug(ctx, "retrying exec",
				"node", n.name,
				"attempt", attempt,
				"max_attempts", n.maxAttempts,
				"error", err)
		}
	}
	return n.fallback(ctx, prepResult, lastErr)
}

// Post implements the post-processing phase of the node lifecycle.
func (n *BaseNode) Post(ctx context.Context, shared Store, prepResult, execResult any) (string, error) {
	return n.post(ctx, shared, prepResult, execResult)
}

// SetParams replaces the node's parameters wholesale.
func (n *BaseNode) SetParams(params map[string]any) { n.params = params }

// Params returns the node's current parameters.
func (n *BaseNode) Params() map[string]any { return n.params }

// Successors returns the node's edge mapping.
func (n *BaseNode) Successors() map[string]Node { return n.successors }

// Next adds an edge for the given action and returns the target node.
// Registering a label twice replaces the previous edge and emits a warning.
func (n *BaseNode) Next(action string, next Node) Node {
	if _, exists := n.successors[action]; exists {
		n.logger().Warn(context.Background(), "overwriting successor",
			"node", n.name, "action", action)
	}
	n.successors[action] = next
	return next
}

// Connect adds a default edge and returns the target node.
func (n *BaseNode) Connect(next Node) Node {
	return n.Next(DefaultAction, next)
}

// On begins a labeled transition: a.On("approve").To(b) is equivalent to
// a.Next("approve", b).
func (n *BaseNode) On(action string) *Transition {
	return &Transition{src: n, action: action}
}

func (n *BaseNode) logger() Logger {
	if n.log != nil {
		return n.log
	}
	return DefaultLogger()
}

// loggerProvider lets Run pick up a node's configured logger. *Flow satisfies
// it through the embedded *BaseNode.
type loggerProvider interface {
	logger() Logger
}

// Run executes a single node's full lifecycle against the shared store and
// returns its action label. A node with outgoing edges run this way never
// reaches its successors, so Run warns and suggests using a Flow.
func Run(ctx context.Context, n Node, shared Store) (string, error) {
	if len(n.Successors()) > 0 {
		loggerOf(n).Warn(ctx, "node has successors that will not run; use a Flow",
			"node", n.Name())
	}
	return runLifecycle(ctx, n, shared)
}

func loggerOf(n Node) Logger {
	if lp, ok := n.(loggerProvider); ok {
		return lp.logger()
	}
	return DefaultLogger()
}

// runLifecycle executes the three ordered lifecycle steps for one node.
// Composite nodes orchestrate their inner graph in place of Exec so the
// shared store flows through unchanged.
func runLifecycle(ctx context.Context, n Node, shared Store) (string, error) {
	prepResult, err := n.Prep(ctx, shared)
	if err != nil {
		return "", &StepError{Node: n.Name(), Step: StepPrep, Err: err}
	}

	var execResult any
	if o, ok := n.(Orchestrator); ok {
		execResult, err = o.Orchestrate(ctx, shared, nil)
	} else {
		execResult, err = n.Exec(ctx, prepResult)
	}
	if err != nil {
		return "", &StepError{Node: n.Name(), Step: StepExec, PrepResult: prepResult, Err: err}
	}

	action, err := n.Post(ctx, shared, prepResult, execResult)
	if err != nil {
		return "", &StepError{Node: n.Name(), Step: StepPost, PrepResult: prepResult, Err: err}
	}
	return action, nil
}
