package script

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/cogflow/cog"
)

// Script is a discovered Lua script. Metadata comes from "-- @key:" comment
// lines at the top of the file.
type Script struct {
	Name        string
	Path        string
	Category    string
	Description string
	Version     string
	Source      string
}

// Manager discovers Lua scripts in a directory and turns them into nodes.
type Manager struct {
	dir     string
	scripts map[string]*Script
	logger  cog.Logger
}

// NewManager creates a manager rooted at dir. An empty dir defaults to
// ~/.cog/scripts.
func NewManager(dir string, logger cog.Logger) *Manager {
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".cog", "scripts")
	}
	if logger == nil {
		logger = cog.NopLogger{}
	}
	return &Manager{
		dir:     dir,
		scripts: make(map[string]*Script),
		logger:  logger,
	}
}

// Discover walks the scripts directory and loads every .lua file. Scripts
// that fail to load are logged and skipped.
func (m *Manager) Discover(ctx context.Context) error {
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return fmt.Errorf("create scripts directory: %w", err)
	}

	return filepath.WalkDir(m.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".lua") {
			return nil
		}

		script, err := LoadScript(path)
		if err != nil {
			m.logger.Warn(ctx, "skipping script", "path", path, "error", err)
			return nil
		}
		m.scripts[script.Name] = script
		m.logger.Debug(ctx, "discovered script", "name", script.Name, "path", path)
		return nil
	})
}

// LoadScript reads a Lua file and parses its metadata header.
func LoadScript(path string) (*Script, error) {
	source, err := os.ReadFile(path) // #nosec G304 - script paths come from the user
	if err != nil {
		return nil, err
	}

	script := &Script{
		Path:   path,
		Source: string(source),
	}

	for _, line := range strings.Split(script.Source, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "--") {
			break
		}
		switch {
		case strings.HasPrefix(line, "-- @name:"):
			script.Name = strings.TrimSpace(strings.TrimPrefix(line, "-- @name:"))
		case strings.HasPrefix(line, "-- @category:"):
			script.Category = strings.TrimSpace(strings.TrimPrefix(line, "-- @category:"))
		case strings.HasPrefix(line, "-- @description:"):
			script.Description = strings.TrimSpace(strings.TrimPrefix(line, "-- @description:"))
		case strings.HasPrefix(line, "-- @version:"):
			script.Version = strings.TrimSpace(strings.TrimPrefix(line, "-- @version:"))
		}
	}

	if script.Name == "" {
		base := filepath.Base(path)
		script.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if script.Category == "" {
		script.Category = "script"
	}
	return script, nil
}

// Get returns a discovered script by name.
func (m *Manager) Get(name string) (*Script, bool) {
	script, ok := m.scripts[name]
	return script, ok
}

// List returns all discovered scripts sorted by name.
func (m *Manager) List() []*Script {
	scripts := make([]*Script, 0, len(m.scripts))
	for _, script := range m.scripts {
		scripts = append(scripts, script)
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
	return scripts
}

// Validate checks that a Lua file compiles and defines an exec function.
func Validate(path string) error {
	source, err := os.ReadFile(path) // #nosec G304 - script paths come from the user
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	l := lua.NewState()
	if err := lua.LoadString(l, string(source)); err != nil {
		return fmt.Errorf("compile script: %w", err)
	}
	l.Pop(1)

	if err := lua.DoString(l, string(source)); err != nil {
		return fmt.Errorf("run script: %w", err)
	}

	l.Global("exec")
	defer l.Pop(1)
	if l.TypeOf(-1) != lua.TypeFunction {
		return fmt.Errorf("script does not define an exec function")
	}
	return nil
}
