package script

import (
	"context"
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/cogflow/cog"
	"github.com/cogflow/cog/yaml"
)

// Execute runs Lua source in a fresh sandboxed state. The input value is
// bound to the global "input"; if the script defines an exec function it is
// called with the input, otherwise the script's return value (or the input
// itself) becomes the result.
func Execute(ctx context.Context, source string, input any) (any, error) {
	l := lua.NewState()
	openSandbox(l)

	toLua(l, input)
	l.SetGlobal("input")

	if err := lua.DoString(l, source); err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}

	l.Global("exec")
	if l.TypeOf(-1) == lua.TypeFunction {
		toLua(l, input)
		if err := l.ProtectedCall(1, 1, 0); err != nil {
			return nil, fmt.Errorf("exec error: %w", err)
		}
		result := fromLua(l, -1)
		l.Pop(1)
		return result, nil
	}
	l.Pop(1)

	if l.Top() > 0 {
		result := fromLua(l, -1)
		l.Pop(1)
		return result, nil
	}
	return input, nil
}

// newScriptNode wraps Lua source in a node reading input_key and writing
// output_key.
func newScriptNode(def *yaml.NodeDefinition, source string) (cog.Node, error) {
	inputKey := "input"
	if s, ok := def.Config["input_key"].(string); ok && s != "" {
		inputKey = s
	}
	outputKey := "output"
	if s, ok := def.Config["output_key"].(string); ok && s != "" {
		outputKey = s
	}
	opts, err := def.Options()
	if err != nil {
		return nil, err
	}

	return cog.NewNode(def.Name, cog.Steps{
		Prep: func(ctx context.Context, shared cog.Store) (any, error) {
			v, _ := shared.Get(inputKey)
			return v, nil
		},
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			return Execute(ctx, source, prepResult)
		},
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			shared.Set(outputKey, execResult)
			return "", nil
		},
	}, opts...), nil
}

// RegisterLuaType registers the generic "lua" node type with a loader. Its
// config takes the source inline under "script" or from a path under "file".
func RegisterLuaType(loader *yaml.Loader) {
	loader.RegisterNodeType("lua", func(def *yaml.NodeDefinition) (cog.Node, error) {
		if source, ok := def.Config["script"].(string); ok && source != "" {
			return newScriptNode(def, source)
		}
		if path, ok := def.Config["file"].(string); ok && path != "" {
			script, err := LoadScript(path)
			if err != nil {
				return nil, fmt.Errorf("load script file: %w", err)
			}
			return newScriptNode(def, script.Source)
		}
		return nil, fmt.Errorf("lua node %q needs a script or file config entry", def.Name)
	})
}

// Register exposes every discovered script as its own node type so YAML flows
// can reference scripts by name.
func (m *Manager) Register(loader *yaml.Loader) {
	for name, script := range m.scripts {
		source := script.Source
		loader.RegisterNodeType(name, func(def *yaml.NodeDefinition) (cog.Node, error) {
			return newScriptNode(def, source)
		})
	}
}
