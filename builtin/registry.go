package builtin

import (
	"fmt"
	"slices"

	"github.com/cogflow/cog"
	"github.com/cogflow/cog/yaml"
)

// NodeBuilder creates nodes of one type and describes them.
type NodeBuilder interface {
	Metadata() NodeMetadata
	Build(def *yaml.NodeDefinition) (cog.Node, error)
}

// Registry manages node builders by type name.
type Registry struct {
	builders map[string]NodeBuilder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]NodeBuilder)}
}

// Register adds a builder under its metadata type.
func (r *Registry) Register(builder NodeBuilder) {
	r.builders[builder.Metadata().Type] = builder
}

// Get returns a builder by type.
func (r *Registry) Get(nodeType string) (NodeBuilder, bool) {
	builder, ok := r.builders[nodeType]
	return builder, ok
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.builders))
	for t := range r.builders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// All returns all registered builders.
func (r *Registry) All() map[string]NodeBuilder {
	return r.builders
}

// RegisterAll registers every builtin node type with a YAML loader, each
// wrapped so its config is validated against the type's schema before the
// node is built. It returns the registry for metadata inspection.
func RegisterAll(loader *yaml.Loader, verbose bool) *Registry {
	registry := NewRegistry()

	registry.Register(&EchoBuilder{Verbose: verbose})
	registry.Register(&DelayBuilder{Verbose: verbose})
	registry.Register(&RouterBuilder{})
	registry.Register(&ConditionalBuilder{})
	registry.Register(&TemplateBuilder{})
	registry.Register(&JSONPathBuilder{})
	registry.Register(&ValidateBuilder{})
	registry.Register(&ParseJSONBuilder{})
	registry.Register(&MarkdownBuilder{})

	for _, builder := range registry.All() {
		meta := builder.Metadata()
		loader.RegisterNodeType(meta.Type, validatingBuilder(builder))
	}

	return registry
}

// validatingBuilder wraps a builder with config schema validation.
func validatingBuilder(builder NodeBuilder) yaml.NodeBuilder {
	return func(def *yaml.NodeDefinition) (cog.Node, error) {
		meta := builder.Metadata()
		if err := ValidateConfig(&meta, def.Config); err != nil {
			return nil, fmt.Errorf("config for node %q: %w", def.Name, err)
		}
		return builder.Build(def)
	}
}
