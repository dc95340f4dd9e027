package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"text/template"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/kaptinlin/jsonrepair"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/xeipuuv/gojsonschema"

	"github.com/cogflow/cog"
	"github.com/cogflow/cog/yaml"
)

// Store-key conventions shared by the data nodes.
const (
	defaultInputKey  = "input"
	defaultOutputKey = "output"
)

// stringConfig returns a string config value or the fallback.
func stringConfig(cfg map[string]any, key, fallback string) string {
	if v, ok := cfg[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// readKey is a Prep step reading one store key.
func readKey(key string) cog.PrepFunc {
	return func(ctx context.Context, shared cog.Store) (any, error) {
		v, _ := shared.Get(key)
		return v, nil
	}
}

// writeKey is a Post step writing the exec result to one store key and
// routing via the default edge.
func writeKey(key string) cog.PostFunc {
	return func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
		shared.Set(key, execResult)
		return "", nil
	}
}

// EchoBuilder builds echo nodes: log a message and pass the input through.
type EchoBuilder struct {
	Verbose bool
}

func (b *EchoBuilder) Metadata() NodeMetadata {
	return NodeMetadata{
		Type:        "echo",
		Category:    "core",
		Description: "Logs a message and copies input_key to output_key",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message":    map[string]any{"type": "string"},
				"input_key":  map[string]any{"type": "string"},
				"output_key": map[string]any{"type": "string"},
			},
		},
		Examples: []Example{
			{
				Name:   "Simple echo",
				Config: map[string]any{"message": "Hello, World!"},
			},
		},
		Since: "0.1.0",
	}
}

func (b *EchoBuilder) Build(def *yaml.NodeDefinition) (cog.Node, error) {
	message := stringConfig(def.Config, "message", "")
	inputKey := stringConfig(def.Config, "input_key", defaultInputKey)
	outputKey := stringConfig(def.Config, "output_key", defaultOutputKey)
	opts, err := def.Options()
	if err != nil {
		return nil, err
	}

	return cog.NewNode(def.Name, cog.Steps{
		Prep: readKey(inputKey),
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			if b.Verbose && message != "" {
				log.Printf("[%s] %s", def.Name, message)
			}
			return prepResult, nil
		},
		Post: writeKey(outputKey),
	}, opts...), nil
}

// DelayBuilder builds delay nodes.
type DelayBuilder struct {
	Verbose bool
}

func (b *DelayBuilder) Metadata() NodeMetadata {
	return NodeMetadata{
		Type:        "delay",
		Category:    "core",
		Description: "Pauses the flow for a configured duration",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"duration": map[string]any{"type": "string"},
			},
		},
		Since: "0.1.0",
	}
}

func (b *DelayBuilder) Build(def *yaml.NodeDefinition) (cog.Node, error) {
	d, err := time.ParseDuration(stringConfig(def.Config, "duration", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid duration: %w", err)
	}
	opts, optErr := def.Options()
	if optErr != nil {
		return nil, optErr
	}

	return cog.NewNode(def.Name, cog.Steps{
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			if b.Verbose {
				log.Printf("[%s] sleeping %v", def.Name, d)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
			}
			return prepResult, nil
		},
	}, opts...), nil
}

// RouterBuilder builds router nodes: the returned action is either a static
// config value or read from the store per run.
type RouterBuilder struct{}

func (b *RouterBuilder) Metadata() NodeMetadata {
	return NodeMetadata{
		Type:        "router",
		Category:    "core",
		Description: "Returns a static action, or the store value under route_key",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"route":     map[string]any{"type": "string"},
				"route_key": map[string]any{"type": "string"},
			},
		},
		Examples: []Example{
			{
				Name:        "Dynamic routing",
				Description: "Route on the action a previous node stored",
				Config:      map[string]any{"route_key": "next_step"},
			},
		},
		Since: "0.1.0",
	}
}

func (b *RouterBuilder) Build(def *yaml.NodeDefinition) (cog.Node, error) {
	route := stringConfig(def.Config, "route", "")
	routeKey := stringConfig(def.Config, "route_key", "")
	opts, err := def.Options()
	if err != nil {
		return nil, err
	}

	return cog.NewNode(def.Name, cog.Steps{
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			if routeKey != "" {
				return cog.GetOr(shared, routeKey, route), nil
			}
			return route, nil
		},
	}, opts...), nil
}

// ConditionalBuilder builds two-way branch nodes comparing a store value
// against a configured constant.
type ConditionalBuilder struct{}

func (b *ConditionalBuilder) Metadata() NodeMetadata {
	return NodeMetadata{
		Type:        "conditional",
		Category:    "core",
		Description: "Routes to if_true or if_false by comparing a store value",
		ConfigSchema: map[string]any{
			"type":     "object",
			"required": []any{"key"},
			"properties": map[string]any{
				"key":      map[string]any{"type": "string"},
				"equals":   map[string]any{},
				"if_true":  map[string]any{"type": "string"},
				"if_false": map[string]any{"type": "string"},
			},
		},
		Since: "0.1.0",
	}
}

func (b *ConditionalBuilder) Build(def *yaml.NodeDefinition) (cog.Node, error) {
	key := stringConfig(def.Config, "key", "")
	equals := def.Config["equals"]
	ifTrue := stringConfig(def.Config, "if_true", "true")
	ifFalse := stringConfig(def.Config, "if_false", "false")
	opts, err := def.Options()
	if err != nil {
		return nil, err
	}

	return cog.NewNode(def.Name, cog.Steps{
		Prep: readKey(key),
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			// Loose comparison: YAML numbers and store values rarely share
			// a concrete Go type.
			if fmt.Sprint(prepResult) == fmt.Sprint(equals) {
				return ifTrue, nil
			}
			return ifFalse, nil
		},
	}, opts...), nil
}

// TemplateBuilder builds nodes that render a text/template against a snapshot
// of the shared store. The original use case is prompt assembly.
type TemplateBuilder struct{}

func (b *TemplateBuilder) Metadata() NodeMetadata {
	return NodeMetadata{
		Type:        "template",
		Category:    "data",
		Description: "Renders a Go text/template with the store snapshot as data",
		ConfigSchema: map[string]any{
			"type":     "object",
			"required": []any{"template"},
			"properties": map[string]any{
				"template":   map[string]any{"type": "string"},
				"output_key": map[string]any{"type": "string"},
			},
		},
		Examples: []Example{
			{
				Name:   "Prompt assembly",
				Config: map[string]any{"template": "Question: {{.question}}\nContext: {{.context}}"},
			},
		},
		Since: "0.1.0",
	}
}

func (b *TemplateBuilder) Build(def *yaml.NodeDefinition) (cog.Node, error) {
	tmpl, err := template.New(def.Name).Parse(stringConfig(def.Config, "template", ""))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	outputKey := stringConfig(def.Config, "output_key", defaultOutputKey)
	opts, optErr := def.Options()
	if optErr != nil {
		return nil, optErr
	}

	return cog.NewNode(def.Name, cog.Steps{
		Prep: func(ctx context.Context, shared cog.Store) (any, error) {
			return shared.Snapshot(), nil
		},
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, prepResult); err != nil {
				return nil, fmt.Errorf("render template: %w", err)
			}
			return buf.String(), nil
		},
		Post: writeKey(outputKey),
	}, opts...), nil
}

// JSONPathBuilder builds nodes extracting values with a JSONPath expression.
type JSONPathBuilder struct{}

func (b *JSONPathBuilder) Metadata() NodeMetadata {
	return NodeMetadata{
		Type:        "jsonpath",
		Category:    "data",
		Description: "Extracts a value from input_key with a JSONPath expression",
		ConfigSchema: map[string]any{
			"type":     "object",
			"required": []any{"path"},
			"properties": map[string]any{
				"path":       map[string]any{"type": "string"},
				"all":        map[string]any{"type": "boolean"},
				"input_key":  map[string]any{"type": "string"},
				"output_key": map[string]any{"type": "string"},
			},
		},
		Since: "0.1.0",
	}
}

func (b *JSONPathBuilder) Build(def *yaml.NodeDefinition) (cog.Node, error) {
	expr, err := jp.ParseString(stringConfig(def.Config, "path", ""))
	if err != nil {
		return nil, fmt.Errorf("parse jsonpath: %w", err)
	}
	all, _ := def.Config["all"].(bool)
	inputKey := stringConfig(def.Config, "input_key", defaultInputKey)
	outputKey := stringConfig(def.Config, "output_key", defaultOutputKey)
	opts, optErr := def.Options()
	if optErr != nil {
		return nil, optErr
	}

	return cog.NewNode(def.Name, cog.Steps{
		Prep: readKey(inputKey),
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			data := prepResult
			if s, ok := prepResult.(string); ok {
				parsed, err := oj.ParseString(s)
				if err != nil {
					return nil, fmt.Errorf("parse input json: %w", err)
				}
				data = parsed
			}
			results := expr.Get(data)
			if all {
				return results, nil
			}
			if len(results) == 0 {
				return nil, nil
			}
			return results[0], nil
		},
		Post: writeKey(outputKey),
	}, opts...), nil
}

// ValidateBuilder builds nodes validating a store value against a JSON
// schema, routing "valid" or "invalid".
type ValidateBuilder struct{}

func (b *ValidateBuilder) Metadata() NodeMetadata {
	return NodeMetadata{
		Type:        "validate",
		Category:    "data",
		Description: "Validates input_key against a JSON schema; routes valid/invalid",
		ConfigSchema: map[string]any{
			"type":     "object",
			"required": []any{"schema"},
			"properties": map[string]any{
				"schema":     map[string]any{"type": "object"},
				"input_key":  map[string]any{"type": "string"},
				"output_key": map[string]any{"type": "string"},
			},
		},
		Since: "0.1.0",
	}
}

func (b *ValidateBuilder) Build(def *yaml.NodeDefinition) (cog.Node, error) {
	schema, _ := def.Config["schema"].(map[string]any)
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	inputKey := stringConfig(def.Config, "input_key", defaultInputKey)
	outputKey := stringConfig(def.Config, "output_key", "validation_errors")
	opts, optErr := def.Options()
	if optErr != nil {
		return nil, optErr
	}

	return cog.NewNode(def.Name, cog.Steps{
		Prep: readKey(inputKey),
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			docJSON, err := json.Marshal(prepResult)
			if err != nil {
				return nil, fmt.Errorf("marshal input: %w", err)
			}
			result, err := gojsonschema.Validate(
				gojsonschema.NewBytesLoader(schemaJSON),
				gojsonschema.NewBytesLoader(docJSON),
			)
			if err != nil {
				return nil, fmt.Errorf("validate: %w", err)
			}
			msgs := make([]string, 0, len(result.Errors()))
			for _, resultErr := range result.Errors() {
				msgs = append(msgs, resultErr.String())
			}
			return msgs, nil
		},
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			msgs := execResult.([]string)
			if len(msgs) == 0 {
				return "valid", nil
			}
			shared.Set(outputKey, msgs)
			return "invalid", nil
		},
	}, opts...), nil
}

// ParseJSONBuilder builds nodes that parse JSON text leniently, repairing the
// almost-JSON that language models tend to emit before giving up.
type ParseJSONBuilder struct{}

func (b *ParseJSONBuilder) Metadata() NodeMetadata {
	return NodeMetadata{
		Type:        "parse-json",
		Category:    "data",
		Description: "Parses input_key as JSON, repairing malformed documents",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"input_key":  map[string]any{"type": "string"},
				"output_key": map[string]any{"type": "string"},
			},
		},
		Since: "0.1.0",
	}
}

func (b *ParseJSONBuilder) Build(def *yaml.NodeDefinition) (cog.Node, error) {
	inputKey := stringConfig(def.Config, "input_key", defaultInputKey)
	outputKey := stringConfig(def.Config, "output_key", defaultOutputKey)
	opts, err := def.Options()
	if err != nil {
		return nil, err
	}

	return cog.NewNode(def.Name, cog.Steps{
		Prep: readKey(inputKey),
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			text, ok := prepResult.(string)
			if !ok {
				return nil, fmt.Errorf("expected string input, got %T", prepResult)
			}
			var value any
			if err := json.Unmarshal([]byte(text), &value); err == nil {
				return value, nil
			}
			repaired, err := jsonrepair.JSONRepair(text)
			if err != nil {
				return nil, fmt.Errorf("repair json: %w", err)
			}
			if err := json.Unmarshal([]byte(repaired), &value); err != nil {
				return nil, fmt.Errorf("parse repaired json: %w", err)
			}
			return value, nil
		},
		Post: writeKey(outputKey),
	}, opts...), nil
}

// MarkdownBuilder builds nodes converting HTML to Markdown, typically to turn
// fetched web content into prompt-friendly text.
type MarkdownBuilder struct{}

func (b *MarkdownBuilder) Metadata() NodeMetadata {
	return NodeMetadata{
		Type:        "markdown",
		Category:    "data",
		Description: "Converts HTML under input_key to Markdown",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"input_key":  map[string]any{"type": "string"},
				"output_key": map[string]any{"type": "string"},
			},
		},
		Since: "0.1.0",
	}
}

func (b *MarkdownBuilder) Build(def *yaml.NodeDefinition) (cog.Node, error) {
	inputKey := stringConfig(def.Config, "input_key", defaultInputKey)
	outputKey := stringConfig(def.Config, "output_key", defaultOutputKey)
	opts, err := def.Options()
	if err != nil {
		return nil, err
	}

	return cog.NewNode(def.Name, cog.Steps{
		Prep: readKey(inputKey),
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			html, ok := prepResult.(string)
			if !ok {
				return nil, fmt.Errorf("expected string input, got %T", prepResult)
			}
			return htmltomarkdown.ConvertString(html)
		},
		Post: writeKey(outputKey),
	}, opts...), nil
}
