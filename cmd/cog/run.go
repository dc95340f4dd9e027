package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goyaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/cogflow/cog"
	"github.com/cogflow/cog/builtin"
	"github.com/cogflow/cog/builtin/script"
	"github.com/cogflow/cog/yaml"
)

var (
	runDryRun    bool
	runInputJSON string
	runSetValues []string
)

var runCmd = &cobra.Command{
	Use:   "run <file.yaml>",
	Short: "Execute a flow from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(args[0])
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Validate the flow without executing")
	runCmd.Flags().StringVar(&runInputJSON, "input", "", "JSON object seeding the shared store")
	runCmd.Flags().StringArrayVar(&runSetValues, "set", nil, "Store entries as key=value (repeatable)")
	rootCmd.AddCommand(runCmd)
}

func runFlow(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("flow file: %w", err)
	}

	ctx := context.Background()
	loader, err := newLoader(ctx)
	if err != nil {
		return err
	}

	def, err := loader.ParseFile(absPath)
	if err != nil {
		return err
	}
	if runDryRun {
		fmt.Printf("Flow %q is valid (%d nodes, %d connections)\n",
			def.Name, len(def.Nodes), len(def.Connections))
		return nil
	}

	flow, err := loader.Load(def)
	if err != nil {
		return fmt.Errorf("load flow: %w", err)
	}

	shared, err := seedStore()
	if err != nil {
		return err
	}

	start := time.Now()
	action, err := flow.Run(ctx, shared)
	if err != nil {
		return fmt.Errorf("flow failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "completed in %v\n", time.Since(start))
	}
	return printResult(action, shared)
}

// seedStore builds the initial store from --input JSON and --set pairs.
func seedStore() (cog.Store, error) {
	seed := map[string]any{}
	if runInputJSON != "" {
		if err := json.Unmarshal([]byte(runInputJSON), &seed); err != nil {
			return nil, fmt.Errorf("parse --input: %w", err)
		}
	}
	for _, pair := range runSetValues {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", pair)
		}
		seed[key] = value
	}
	return cog.NewStoreFrom(seed), nil
}

// printResult writes the final action and store contents in the chosen
// output format.
func printResult(action string, shared cog.Store) error {
	result := map[string]any{
		"action": action,
		"store":  shared.Snapshot(),
	}

	switch output {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := goyaml.Marshal(result)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	default:
		fmt.Printf("action: %s\n", action)
		for key, value := range shared.Snapshot() {
			fmt.Printf("  %s: %v\n", key, value)
		}
	}
	return nil
}

// newLoader assembles a loader with the builtin catalog and any discovered
// Lua scripts registered.
func newLoader(ctx context.Context) (*yaml.Loader, error) {
	loader := yaml.NewLoader(cog.WithLogger(cliLogger()))
	builtin.RegisterAll(loader, verbose)
	script.RegisterLuaType(loader)

	manager := script.NewManager(scriptsDir, cliLogger())
	if err := manager.Discover(ctx); err != nil {
		return nil, fmt.Errorf("discover scripts: %w", err)
	}
	manager.Register(loader)
	return loader, nil
}
