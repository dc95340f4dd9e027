// Package builtin provides the catalog of ready-made node types available to
// YAML-defined flows: routing and timing primitives plus data plumbing for
// templates, JSON paths, schema validation, tolerant JSON parsing, and
// HTML-to-Markdown conversion.
//
// Builtin nodes interact with the shared store through configured keys:
// most read from "input_key" (default "input") and write to "output_key"
// (default "output").
package builtin

// NodeMetadata describes a node type.
type NodeMetadata struct {
	Type         string         `json:"type"`
	Category     string         `json:"category"`
	Description  string         `json:"description"`
	ConfigSchema map[string]any `json:"configSchema,omitempty"`
	Examples     []Example      `json:"examples,omitempty"`
	Since        string         `json:"since,omitempty"`
}

// Example shows how to configure a node type.
type Example struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config"`
}
