package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	goyaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/cogflow/cog/builtin"
	"github.com/cogflow/cog/yaml"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List builtin node types",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listNodes()
	},
}

var nodesInfoCmd = &cobra.Command{
	Use:   "info <type>",
	Short: "Show details for a node type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return describeNode(args[0])
	},
}

func init() {
	nodesCmd.AddCommand(nodesInfoCmd)
	rootCmd.AddCommand(nodesCmd)
}

// builtinRegistry builds the full catalog for inspection.
func builtinRegistry() *builtin.Registry {
	return builtin.RegisterAll(yaml.NewLoader(), false)
}

func listNodes() error {
	registry := builtinRegistry()

	metas := make([]builtin.NodeMetadata, 0)
	for _, builder := range registry.All() {
		metas = append(metas, builder.Metadata())
	}
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].Category != metas[j].Category {
			return metas[i].Category < metas[j].Category
		}
		return metas[i].Type < metas[j].Type
	})

	switch output {
	case "json":
		data, err := json.MarshalIndent(metas, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := goyaml.Marshal(metas)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	default:
		printNodeTable(metas)
	}
	return nil
}

func printNodeTable(metas []builtin.NodeMetadata) {
	category := ""
	for _, meta := range metas {
		if meta.Category != category {
			category = meta.Category
			fmt.Printf("\n%s:\n", strings.ToUpper(category[:1])+category[1:])
			fmt.Println(strings.Repeat("-", len(category)+1))
		}
		fmt.Printf("  %-14s %s\n", meta.Type, meta.Description)
	}
	fmt.Printf("\nTotal: %d node types\n", len(metas))
	fmt.Println("\nUse 'cog nodes info <type>' for details.")
}

func describeNode(nodeType string) error {
	registry := builtinRegistry()

	builder, ok := registry.Get(nodeType)
	if !ok {
		return fmt.Errorf("node type %q not found (known: %s)",
			nodeType, strings.Join(registry.Types(), ", "))
	}
	meta := builder.Metadata()

	fmt.Printf("Type: %s\n", meta.Type)
	fmt.Printf("Category: %s\n", meta.Category)
	fmt.Printf("Description: %s\n", meta.Description)
	if meta.Since != "" {
		fmt.Printf("Since: %s\n", meta.Since)
	}

	if len(meta.ConfigSchema) > 0 {
		schemaJSON, _ := json.MarshalIndent(meta.ConfigSchema, "  ", "  ")
		fmt.Printf("\nConfig schema:\n  %s\n", schemaJSON)
	}

	for i, example := range meta.Examples {
		if i == 0 {
			fmt.Println("\nExamples:")
		}
		fmt.Printf("  %d. %s\n", i+1, example.Name)
		if example.Description != "" {
			fmt.Printf("     %s\n", example.Description)
		}
		if len(example.Config) > 0 {
			configYAML, _ := goyaml.Marshal(example.Config)
			for _, line := range strings.Split(strings.TrimRight(string(configYAML), "\n"), "\n") {
				fmt.Printf("       %s\n", line)
			}
		}
	}
	return nil
}
