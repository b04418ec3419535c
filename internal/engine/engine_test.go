package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeeshanunique/agentworkflow/internal/graph"
	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/nodes"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

// failing is a test-only node type that always errors.
type failing struct{}

func (f *failing) Execute(_ context.Context, _ *node.Context, _ *node.Input) (*node.Output, error) {
	return nil, errors.New("boom")
}

// blocking is a test-only node type that waits for ctx cancellation.
type blocking struct{}

func (b *blocking) Execute(ctx context.Context, _ *node.Context, _ *node.Input) (*node.Output, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func testRegistry(t *testing.T) *node.Registry {
	t.Helper()
	registry := nodes.NewBuiltinRegistry()
	registry.MustRegister(&node.Description{
		Type:        "test.failing",
		DisplayName: "Failing",
		Inputs:      []node.PortSpec{{Name: node.PortMain}},
		Outputs:     []node.PortSpec{{Name: node.PortMain}},
	}, func() node.Executor { return &failing{} })
	registry.MustRegister(&node.Description{
		Type:        "test.blocking",
		DisplayName: "Blocking",
		Inputs:      []node.PortSpec{{Name: node.PortMain}},
		Outputs:     []node.PortSpec{{Name: node.PortMain}},
	}, func() node.Executor { return &blocking{} })
	return registry
}

func compile(t *testing.T, registry *node.Registry, def *graph.Definition) *graph.Plan {
	t.Helper()
	plan, err := graph.NewCompiler(registry).Compile(def)
	require.NoError(t, err)
	return plan
}

func linearDefinition() *graph.Definition {
	return &graph.Definition{
		ID: "wf-linear",
		Nodes: []graph.Node{
			{ID: "start", Type: nodes.TypeManualTrigger},
			{ID: "tag", Type: nodes.TypeSet, Parameters: map[string]any{
				"mode":   "merge",
				"values": map[string]any{"tagged": true},
			}},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNode: "start", FromPort: node.PortMain, ToNode: "tag", ToPort: node.PortMain},
		},
	}
}

func TestRunLinearWorkflow(t *testing.T) {
	registry := testRegistry(t)
	engine := New(registry)
	plan := compile(t, registry, linearDefinition())

	result := engine.Run(context.Background(), plan, types.Items{{"source": "test"}})

	require.True(t, result.Success)
	require.NoError(t, result.Err)
	assert.Equal(t, []string{"start", "tag"}, result.ExecutedNodes)
	require.Len(t, result.FinalOutput, 1)
	assert.Equal(t, true, result.FinalOutput[0]["tagged"])
	assert.Equal(t, "manual", result.FinalOutput[0]["triggeredBy"])
	assert.Positive(t, result.Duration)
}

func branchingDefinition() *graph.Definition {
	return &graph.Definition{
		ID: "wf-branch",
		Nodes: []graph.Node{
			{ID: "start", Type: nodes.TypeManualTrigger},
			{ID: "check", Type: nodes.TypeIf, Parameters: map[string]any{
				"combine": "all",
				"conditions": []any{
					map[string]any{"field": "triggeredBy", "operator": "equals", "value": "manual"},
				},
			}},
			{ID: "onTrue", Type: nodes.TypeSet, Parameters: map[string]any{
				"values": map[string]any{"branch": "true"},
			}},
			{ID: "onFalse", Type: nodes.TypeSet, Parameters: map[string]any{
				"values": map[string]any{"branch": "false"},
			}},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNode: "start", FromPort: node.PortMain, ToNode: "check", ToPort: node.PortMain},
			{ID: "c2", FromNode: "check", FromPort: node.PortTrue, ToNode: "onTrue", ToPort: node.PortMain},
			{ID: "c3", FromNode: "check", FromPort: node.PortFalse, ToNode: "onFalse", ToPort: node.PortMain},
		},
	}
}

func TestRunFollowsTrueBranchOnly(t *testing.T) {
	registry := testRegistry(t)
	engine := New(registry)
	plan := compile(t, registry, branchingDefinition())

	result := engine.Run(context.Background(), plan, nil)

	require.True(t, result.Success)
	assert.Equal(t, []string{"start", "check", "onTrue"}, result.ExecutedNodes)
	assert.NotContains(t, result.ExecutedNodes, "onFalse")
	require.Len(t, result.FinalOutput, 1)
	assert.Equal(t, "true", result.FinalOutput[0]["branch"])
}

func TestRunFalseBranch(t *testing.T) {
	def := branchingDefinition()
	def.Nodes[1].Parameters["conditions"] = []any{
		map[string]any{"field": "triggeredBy", "operator": "equals", "value": "webhook"},
	}

	registry := testRegistry(t)
	engine := New(registry)
	plan := compile(t, registry, def)

	result := engine.Run(context.Background(), plan, nil)

	require.True(t, result.Success)
	assert.Equal(t, []string{"start", "check", "onFalse"}, result.ExecutedNodes)
}

func TestRunUnwiredExitPortEndsWalk(t *testing.T) {
	def := branchingDefinition()
	// Drop the false branch; a false exit then has no successor.
	def.Nodes[1].Parameters["conditions"] = []any{
		map[string]any{"field": "triggeredBy", "operator": "equals", "value": "webhook"},
	}
	def.Nodes = def.Nodes[:3]
	def.Connections = def.Connections[:2]

	registry := testRegistry(t)
	engine := New(registry)
	plan := compile(t, registry, def)

	result := engine.Run(context.Background(), plan, nil)

	require.True(t, result.Success)
	assert.Equal(t, []string{"start", "check"}, result.ExecutedNodes)
}

func TestRunNodeFailureAbortsWalk(t *testing.T) {
	def := &graph.Definition{
		ID: "wf-fail",
		Nodes: []graph.Node{
			{ID: "start", Type: nodes.TypeManualTrigger},
			{ID: "bad", Type: "test.failing"},
			{ID: "after", Type: nodes.TypeSet},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNode: "start", ToNode: "bad"},
			{ID: "c2", FromNode: "bad", ToNode: "after"},
		},
	}

	registry := testRegistry(t)
	engine := New(registry)
	plan := compile(t, registry, def)

	result := engine.Run(context.Background(), plan, nil)

	assert.False(t, result.Success)
	require.Error(t, result.Err)

	var nodeErr *NodeExecutionError
	require.ErrorAs(t, result.Err, &nodeErr)
	assert.Equal(t, "bad", nodeErr.NodeID)

	// The failed node leaves no partial output; the upstream output stays.
	assert.Equal(t, []string{"start"}, result.ExecutedNodes)
	assert.Contains(t, result.NodeOutputs, "start")
	assert.NotContains(t, result.NodeOutputs, "bad")
}

func TestRunSingleNodePlan(t *testing.T) {
	def := &graph.Definition{
		ID:    "wf-single",
		Nodes: []graph.Node{{ID: "only", Type: nodes.TypeManualTrigger}},
	}

	registry := testRegistry(t)
	engine := New(registry)
	plan := compile(t, registry, def)

	result := engine.Run(context.Background(), plan, types.Items{{"k": "v"}})

	require.True(t, result.Success)
	assert.Equal(t, []string{"only"}, result.ExecutedNodes)
	require.Len(t, result.FinalOutput, 1)
}

func TestRunHonorsCancellation(t *testing.T) {
	def := &graph.Definition{
		ID: "wf-cancel",
		Nodes: []graph.Node{
			{ID: "start", Type: nodes.TypeManualTrigger},
			{ID: "slow", Type: "test.blocking"},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNode: "start", ToNode: "slow"},
		},
	}

	registry := testRegistry(t)
	engine := New(registry)
	plan := compile(t, registry, def)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := engine.Run(ctx, plan, nil)

	assert.False(t, result.Success)
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestRunNodeTimeout(t *testing.T) {
	def := &graph.Definition{
		ID:    "wf-timeout",
		Nodes: []graph.Node{{ID: "slow", Type: "test.blocking"}},
	}

	registry := testRegistry(t)
	engine := New(registry, WithNodeTimeout(30*time.Millisecond))
	plan := compile(t, registry, def)

	result := engine.Run(context.Background(), plan, nil)

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
}

func TestRunMergeWaitAcrossBranches(t *testing.T) {
	// Only the true branch executes, so merge's input2 stays empty and wait
	// mode must emit nothing.
	def := &graph.Definition{
		ID: "wf-merge",
		Nodes: []graph.Node{
			{ID: "start", Type: nodes.TypeManualTrigger},
			{ID: "check", Type: nodes.TypeIf, Parameters: map[string]any{
				"conditions": []any{
					map[string]any{"field": "triggeredBy", "operator": "equals", "value": "manual"},
				},
			}},
			{ID: "join", Type: nodes.TypeMerge, Parameters: map[string]any{"mode": nodes.MergeModeWait}},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNode: "start", ToNode: "check"},
			{ID: "c2", FromNode: "check", FromPort: node.PortTrue, ToNode: "join", ToPort: node.PortInput1},
			{ID: "c3", FromNode: "check", FromPort: node.PortFalse, ToNode: "join", ToPort: node.PortInput2},
		},
	}

	registry := testRegistry(t)
	engine := New(registry)
	plan := compile(t, registry, def)

	result := engine.Run(context.Background(), plan, nil)

	require.True(t, result.Success)
	assert.Empty(t, result.FinalOutput)
}
