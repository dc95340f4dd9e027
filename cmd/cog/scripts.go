package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cogflow/cog/builtin/script"
)

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "Manage Lua scripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listScripts()
	},
}

var scriptsValidateCmd = &cobra.Command{
	Use:   "validate <file.lua>",
	Short: "Check that a Lua script compiles and defines exec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := script.Validate(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s is valid\n", args[0])
		return nil
	},
}

var scriptsRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run a discovered script directly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScript(args[0])
	},
}

var scriptInputJSON string

func init() {
	scriptsRunCmd.Flags().StringVar(&scriptInputJSON, "input", "", "JSON input for the script")
	scriptsCmd.AddCommand(scriptsValidateCmd)
	scriptsCmd.AddCommand(scriptsRunCmd)
	rootCmd.AddCommand(scriptsCmd)
}

func discoverScripts() (*script.Manager, error) {
	manager := script.NewManager(scriptsDir, cliLogger())
	if err := manager.Discover(context.Background()); err != nil {
		return nil, fmt.Errorf("discover scripts: %w", err)
	}
	return manager, nil
}

func listScripts() error {
	manager, err := discoverScripts()
	if err != nil {
		return err
	}

	scripts := manager.List()
	if len(scripts) == 0 {
		fmt.Println("No scripts found.")
		fmt.Println("\nScripts are Lua files with an exec function and a metadata header:")
		fmt.Println("  -- @name: my-script")
		fmt.Println("  -- @description: what it does")
		fmt.Println("  function exec(input)")
		fmt.Println("      return input")
		fmt.Println("  end")
		return nil
	}

	byCategory := make(map[string][]*script.Script)
	for _, s := range scripts {
		byCategory[s.Category] = append(byCategory[s.Category], s)
	}
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	fmt.Printf("%d scripts:\n\n", len(scripts))
	for _, cat := range categories {
		fmt.Printf("%s:\n", cat)
		fmt.Println(strings.Repeat("-", len(cat)+1))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, s := range byCategory[cat] {
			desc := s.Description
			if desc == "" {
				desc = "(no description)"
			}
			if s.Version != "" {
				fmt.Fprintf(w, "  %s\t%s\t(v%s)\n", s.Name, desc, s.Version)
			} else {
				fmt.Fprintf(w, "  %s\t%s\n", s.Name, desc)
			}
		}
		_ = w.Flush()
		fmt.Println()
	}
	return nil
}

func runScript(name string) error {
	manager, err := discoverScripts()
	if err != nil {
		return err
	}

	s, ok := manager.Get(name)
	if !ok {
		return fmt.Errorf("script %q not found", name)
	}

	var input any
	if scriptInputJSON != "" {
		if err := json.Unmarshal([]byte(scriptInputJSON), &input); err != nil {
			return fmt.Errorf("parse --input: %w", err)
		}
	}

	result, err := script.Execute(context.Background(), s.Source, input)
	if err != nil {
		return fmt.Errorf("script failed: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
