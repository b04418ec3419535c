package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Zeeshanunique/agentworkflow/internal/graph"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Manage stored workflows",
}

var workflowSaveCmd = &cobra.Command{
	Use:   "save <definition-file>",
	Short: "Validate and store a workflow definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := graph.LoadDefinition(args[0])
		if err != nil {
			return err
		}

		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.service.SaveWorkflow(cmd.Context(), def); err != nil {
			return err
		}
		fmt.Printf("Saved workflow %s (%d nodes)\n", def.ID, len(def.Nodes))
		return nil
	},
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored workflows",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.service.ListWorkflows(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tNODES\tUPDATED")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				s.ID, s.Name, s.NodeCount, s.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var workflowDeleteCmd = &cobra.Command{
	Use:   "delete <workflow-id>",
	Short: "Delete a stored workflow and its triggers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		existed, err := a.service.DeleteWorkflow(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !existed {
			return fmt.Errorf("workflow %s not found", args[0])
		}
		fmt.Printf("Deleted workflow %s\n", args[0])
		return nil
	},
}

var executionsLimit int

var workflowExecutionsCmd = &cobra.Command{
	Use:   "executions <workflow-id>",
	Short: "Show a workflow's execution history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		execs, err := a.service.ListExecutions(cmd.Context(), args[0], executionsLimit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(execs)
	},
}

func init() {
	workflowExecutionsCmd.Flags().IntVar(&executionsLimit, "limit", 20, "Maximum number of executions to show")

	workflowCmd.AddCommand(workflowSaveCmd)
	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowDeleteCmd)
	workflowCmd.AddCommand(workflowExecutionsCmd)
}
