package yaml

import (
	"fmt"
	"os"

	goyaml "github.com/goccy/go-yaml"

	"github.com/cogflow/cog"
)

// NodeBuilder builds a node from its YAML definition. Builders are registered
// per node type.
type NodeBuilder func(def *NodeDefinition) (cog.Node, error)

// Loader parses flow definitions and assembles executable flows.
type Loader struct {
	registry map[string]NodeBuilder
	opts     []cog.Option
}

// NewLoader creates a loader. Options are passed through to every flow it
// assembles (e.g. cog.WithLogger).
func NewLoader(opts ...cog.Option) *Loader {
	return &Loader{
		registry: make(map[string]NodeBuilder),
		opts:     opts,
	}
}

// RegisterNodeType registers a builder for a node type, replacing any
// previous builder for that type.
func (l *Loader) RegisterNodeType(nodeType string, builder NodeBuilder) {
	l.registry[nodeType] = builder
}

// NodeTypes returns the registered node type names.
func (l *Loader) NodeTypes() []string {
	types := make([]string, 0, len(l.registry))
	for t := range l.registry {
		types = append(types, t)
	}
	return types
}

// Parse unmarshals and validates a flow definition.
func (l *Loader) Parse(data []byte) (*FlowDefinition, error) {
	var def FlowDefinition
	if err := goyaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flow definition: %w", err)
	}
	return &def, nil
}

// ParseFile reads and parses a flow definition from a file.
func (l *Loader) ParseFile(filename string) (*FlowDefinition, error) {
	data, err := os.ReadFile(filename) // #nosec G304 - user-provided workflow file
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return l.Parse(data)
}

// Load assembles a runnable flow from a parsed definition: it builds every
// node through the registered builders, wires the connections, and sets the
// start node and flow params.
func (l *Loader) Load(def *FlowDefinition) (*cog.Flow, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flow definition: %w", err)
	}

	nodes := make(map[string]cog.Node, len(def.Nodes))
	for i := range def.Nodes {
		nd := &def.Nodes[i]
		builder, ok := l.registry[nd.Type]
		if !ok {
			return nil, fmt.Errorf("node %q: unknown node type %q", nd.Name, nd.Type)
		}
		node, err := builder(nd)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.Name, err)
		}
		nodes[nd.Name] = node
	}

	for _, conn := range def.Connections {
		action := conn.Action
		if action == "" {
			action = cog.DefaultAction
		}
		nodes[conn.From].Next(action, nodes[conn.To])
	}

	opts := l.opts
	if def.Params != nil {
		opts = append(append([]cog.Option{}, l.opts...), cog.WithParams(def.Params))
	}
	return cog.NewFlow(def.Name, nodes[def.Start], opts...), nil
}

// LoadString parses a YAML document and assembles its flow.
func (l *Loader) LoadString(doc string) (*cog.Flow, error) {
	def, err := l.Parse([]byte(doc))
	if err != nil {
		return nil, err
	}
	return l.Load(def)
}

// LoadFile parses a file and assembles its flow.
func (l *Loader) LoadFile(filename string) (*cog.Flow, error) {
	def, err := l.ParseFile(filename)
	if err != nil {
		return nil, err
	}
	return l.Load(def)
}

// Marshal converts a flow definition back to YAML.
func Marshal(def *FlowDefinition) ([]byte, error) {
	return goyaml.Marshal(def)
}
