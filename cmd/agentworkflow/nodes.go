package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Zeeshanunique/agentworkflow/internal/nodes"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Inspect the node catalog",
}

var nodesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered node types",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := nodes.NewBuiltinRegistry()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tNAME\tGROUPS")
		for _, typeName := range registry.Types() {
			desc, err := registry.Describe(typeName)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%v\n", desc.Type, desc.DisplayName, desc.Groups)
		}
		return w.Flush()
	},
}

var nodesSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search node types by name or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := nodes.NewBuiltinRegistry()

		matches := registry.Search(args[0])
		if len(matches) == 0 {
			fmt.Printf("No node types match %q\n", args[0])
			return nil
		}
		for _, typeName := range matches {
			desc, err := registry.Describe(typeName)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", desc.Type, desc.Description)
		}
		return nil
	},
}

var nodesDescribeCmd = &cobra.Command{
	Use:   "describe <type>",
	Short: "Print the full description of a node type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := nodes.NewBuiltinRegistry()

		desc, err := registry.Describe(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	},
}

func init() {
	nodesCmd.AddCommand(nodesListCmd)
	nodesCmd.AddCommand(nodesSearchCmd)
	nodesCmd.AddCommand(nodesDescribeCmd)
}
