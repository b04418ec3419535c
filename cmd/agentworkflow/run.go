package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zeeshanunique/agentworkflow/internal/engine"
	"github.com/Zeeshanunique/agentworkflow/internal/expr"
	"github.com/Zeeshanunique/agentworkflow/internal/graph"
	"github.com/Zeeshanunique/agentworkflow/internal/llm/providers"
	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/nodes"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

var runInputJSON string

var runCmd = &cobra.Command{
	Use:   "run <definition-file>",
	Short: "Compile and execute a workflow definition once",
	Long: `Loads a workflow definition from a YAML or JSON file, compiles it
into an execution plan, runs it to completion, and prints the result.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflowOnce,
}

func init() {
	runCmd.Flags().StringVar(&runInputJSON, "input", "", "JSON array of input items for the entry node")
}

func runWorkflowOnce(cmd *cobra.Command, args []string) error {
	def, err := graph.LoadDefinition(args[0])
	if err != nil {
		return err
	}

	var input types.Items
	if runInputJSON != "" {
		if err := json.Unmarshal([]byte(runInputJSON), &input); err != nil {
			return fmt.Errorf("invalid --input: %w", err)
		}
	}

	deps, err := buildDeps()
	if err != nil {
		return err
	}

	registry := nodes.NewBuiltinRegistry()
	plan, err := graph.NewCompiler(registry).Compile(def)
	if err != nil {
		return err
	}

	eng := engine.New(registry,
		engine.WithDeps(deps),
		engine.WithNodeTimeout(cfg.Engine.NodeTimeout),
	)

	result := eng.Run(cmd.Context(), plan, input)

	summary := map[string]any{
		"success":        result.Success,
		"executed_nodes": result.ExecutedNodes,
		"duration_ms":    result.Duration.Milliseconds(),
		"output":         result.FinalOutput,
	}
	if result.Err != nil {
		summary["error"] = result.Err.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("workflow %s failed", def.ID)
	}
	return nil
}

// buildDeps assembles the shared node dependencies from the loaded
// configuration. Providers are optional; a workflow without agent nodes
// runs fine with an empty LLM registry.
func buildDeps() (*node.Deps, error) {
	llmRegistry, err := providers.BuildRegistry(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("building llm providers: %w", err)
	}

	return &node.Deps{
		LLM:       llmRegistry,
		Evaluator: expr.New(),
	}, nil
}
