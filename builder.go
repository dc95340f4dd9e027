package cog

import "fmt"

// Builder assembles a flow from named nodes. It is a construction-time
// convenience over Next/Connect for graphs declared piece by piece, for
// example when loading a definition from a file.
type Builder struct {
	nodes map[string]Node
	start Node
	opts  []Option
	err   error
}

// NewBuilder creates an empty flow builder.
func NewBuilder(opts ...Option) *Builder {
	return &Builder{
		nodes: make(map[string]Node),
		opts:  opts,
	}
}

// Add registers a node. The first node added becomes the start node unless
// Start overrides it.
func (b *Builder) Add(node Node) *Builder {
	b.nodes[node.Name()] = node
	if b.start == nil {
		b.start = node
	}
	return b
}

// Start selects the starting node by name.
func (b *Builder) Start(name string) *Builder {
	node, ok := b.nodes[name]
	if !ok {
		b.fail(fmt.Errorf("start node %q not registered", name))
		return b
	}
	b.start = node
	return b
}

// Connect adds an edge between two registered nodes. An empty action means
// the default edge.
func (b *Builder) Connect(from, action, to string) *Builder {
	fromNode, ok := b.nodes[from]
	if !ok {
		b.fail(fmt.Errorf("connect: node %q not registered", from))
		return b
	}
	toNode, ok := b.nodes[to]
	if !ok {
		b.fail(fmt.Errorf("connect: node %q not registered", to))
		return b
	}
	if action == "" {
		action = DefaultAction
	}
	fromNode.Next(action, toNode)
	return b
}

// Build creates the flow, or reports the first assembly error.
func (b *Builder) Build(name string) (*Flow, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.start == nil {
		return nil, ErrNoStartNode
	}
	return NewFlow(name, b.start, b.opts...), nil
}

// fail records the first error; later calls keep it.
func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
