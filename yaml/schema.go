// Package yaml loads cog flows from YAML definitions. A definition names its
// nodes, their types and configs, the connections between them, and the start
// node; a Loader turns it into a runnable *cog.Flow using registered node
// builders.
package yaml

import (
	"fmt"
	"time"

	"github.com/cogflow/cog"
)

// FlowDefinition represents a complete flow defined in YAML.
type FlowDefinition struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Version     string         `yaml:"version,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
	Params      map[string]any `yaml:"params,omitempty"`
	Nodes       []NodeDefinition `yaml:"nodes"`
	Connections []Connection     `yaml:"connections,omitempty"`
	Start       string           `yaml:"start"`
}

// NodeDefinition represents a node in YAML format.
type NodeDefinition struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	Description string         `yaml:"description,omitempty"`
	Config      map[string]any `yaml:"config,omitempty"`
	Retry       *RetryConfig   `yaml:"retry,omitempty"`
}

// Connection represents an edge between two named nodes. An empty action
// means the default edge.
type Connection struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Action string `yaml:"action,omitempty"`
}

// RetryConfig represents retry configuration in YAML.
type RetryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	Wait        string `yaml:"wait,omitempty"`
}

// Options converts the node definition's cross-cutting settings into cog
// options for builders to apply.
func (nd *NodeDefinition) Options() ([]cog.Option, error) {
	if nd.Retry == nil {
		return nil, nil
	}

	var wait time.Duration
	if nd.Retry.Wait != "" {
		var err error
		wait, err = time.ParseDuration(nd.Retry.Wait)
		if err != nil {
			return nil, fmt.Errorf("node %q: invalid retry wait: %w", nd.Name, err)
		}
	}
	return []cog.Option{cog.WithRetry(nd.Retry.MaxAttempts, wait)}, nil
}

// Validate checks structural soundness: required fields, unique node names,
// a known start node, and connections that reference registered nodes.
func (fd *FlowDefinition) Validate() error {
	if fd.Name == "" {
		return fmt.Errorf("flow name is required")
	}
	if fd.Start == "" {
		return fmt.Errorf("start node is required")
	}
	if len(fd.Nodes) == 0 {
		return fmt.Errorf("at least one node is required")
	}

	names := make(map[string]bool, len(fd.Nodes))
	for _, node := range fd.Nodes {
		if node.Name == "" {
			return fmt.Errorf("every node needs a name")
		}
		if node.Type == "" {
			return fmt.Errorf("node %q: type is required", node.Name)
		}
		if names[node.Name] {
			return fmt.Errorf("duplicate node name %q", node.Name)
		}
		names[node.Name] = true
	}

	if !names[fd.Start] {
		return fmt.Errorf("start node %q is not defined", fd.Start)
	}

	for _, conn := range fd.Connections {
		if !names[conn.From] {
			return fmt.Errorf("connection from unknown node %q", conn.From)
		}
		if !names[conn.To] {
			return fmt.Errorf("connection to unknown node %q", conn.To)
		}
	}

	return nil
}
