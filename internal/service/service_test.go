package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeeshanunique/agentworkflow/internal/database"
	"github.com/Zeeshanunique/agentworkflow/internal/engine"
	"github.com/Zeeshanunique/agentworkflow/internal/graph"
	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/nodes"
	"github.com/Zeeshanunique/agentworkflow/internal/trigger"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

func newTestService(t *testing.T) (*Service, *trigger.Service) {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	registry := nodes.NewBuiltinRegistry()
	svc := New(
		database.NewWorkflowDAO(db),
		database.NewExecutionDAO(db),
		graph.NewCompiler(registry),
		engine.New(registry),
	)
	triggers := trigger.NewService(registry, svc)
	t.Cleanup(triggers.Cleanup)
	svc.AttachTriggers(triggers)
	return svc, triggers
}

func linearDefinition(id string) *graph.Definition {
	return &graph.Definition{
		ID: id,
		Nodes: []graph.Node{
			{ID: "start", Type: nodes.TypeManualTrigger},
			{ID: "tag", Type: nodes.TypeSet, Parameters: map[string]any{
				"values": map[string]any{"tagged": true},
			}},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNode: "start", ToNode: "tag"},
		},
	}
}

func TestExecuteWorkflow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveWorkflow(ctx, linearDefinition("wf1")))

	response, err := svc.ExecuteWorkflow(ctx, ExecuteRequest{
		WorkflowID: "wf1",
		Input:      types.Items{{"source": "test"}},
	})
	require.NoError(t, err)

	assert.True(t, response.Success)
	assert.False(t, response.ExecutionID.IsZero())
	assert.Equal(t, []string{"start", "tag"}, response.ExecutedNodes)
	require.Len(t, response.Output, 1)
	assert.Equal(t, true, response.Output[0]["tagged"])
	assert.Zero(t, response.ItemErrors)

	status, err := svc.ExecutionStatus(ctx, response.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, database.ExecutionStatusCompleted, status.Status)
	assert.Equal(t, response.Output, status.Output)
	assert.Empty(t, status.Error)
}

func TestExecuteWorkflowUnknownID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ExecuteWorkflow(context.Background(), ExecuteRequest{WorkflowID: "missing"})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestExecuteWorkflowRunFailurePersisted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// The code node fails at run time on an unknown binding.
	def := &graph.Definition{
		ID: "wf-fail",
		Nodes: []graph.Node{
			{ID: "start", Type: nodes.TypeManualTrigger},
			{ID: "bad", Type: nodes.TypeCode, Parameters: map[string]any{
				"expression": "secrets.key",
			}},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNode: "start", ToNode: "bad"},
		},
	}
	require.NoError(t, svc.SaveWorkflow(ctx, def))

	response, err := svc.ExecuteWorkflow(ctx, ExecuteRequest{WorkflowID: "wf-fail"})
	require.NoError(t, err)

	assert.False(t, response.Success)
	assert.NotEmpty(t, response.Error)
	assert.Equal(t, []string{"start"}, response.ExecutedNodes)

	status, err := svc.ExecutionStatus(ctx, response.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, database.ExecutionStatusFailed, status.Status)
	assert.NotEmpty(t, status.Error)
}

func TestExecuteWorkflowItemErrorsStayCompleted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// An unreachable URL makes every item an error-flagged item, but the run
	// itself completes.
	def := &graph.Definition{
		ID: "wf-itemerr",
		Nodes: []graph.Node{
			{ID: "start", Type: nodes.TypeManualTrigger},
			{ID: "call", Type: nodes.TypeHTTPRequest, Parameters: map[string]any{
				"url":       "http://127.0.0.1:1/unreachable",
				"timeoutMs": 200,
			}},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNode: "start", ToNode: "call"},
		},
	}
	require.NoError(t, svc.SaveWorkflow(ctx, def))

	response, err := svc.ExecuteWorkflow(ctx, ExecuteRequest{WorkflowID: "wf-itemerr"})
	require.NoError(t, err)

	assert.True(t, response.Success)
	assert.Equal(t, 1, response.ItemErrors)

	status, err := svc.ExecutionStatus(ctx, response.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, database.ExecutionStatusCompleted, status.Status)
}

func TestSaveWorkflowRejectsInvalidGraph(t *testing.T) {
	svc, _ := newTestService(t)

	def := &graph.Definition{
		ID: "wf-cycle",
		Nodes: []graph.Node{
			{ID: "a", Type: nodes.TypeSet},
			{ID: "b", Type: nodes.TypeSet},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNode: "a", ToNode: "b"},
			{ID: "c2", FromNode: "b", ToNode: "a"},
		},
	}

	err := svc.SaveWorkflow(context.Background(), def)
	require.Error(t, err)

	var graphErr *graph.GraphError
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, graph.GraphErrorCycleDetected, graphErr.Code)
}

func TestRunWorkflowImplementsRunner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveWorkflow(ctx, linearDefinition("wf1")))

	var runner trigger.WorkflowRunner = svc
	output, err := runner.RunWorkflow(ctx, "wf1", types.Items{{"x": 1}})
	require.NoError(t, err)
	require.Len(t, output, 1)
	assert.Equal(t, true, output[0]["tagged"])
}

func TestTriggerPassthrough(t *testing.T) {
	svc, triggers := newTestService(t)

	require.NoError(t, svc.RegisterTrigger("wf1", "n1", trigger.KindSchedule,
		node.Parameters{"triggerInterval": "everyMinute"}, ""))
	assert.Equal(t, 1, triggers.Statistics().PollingCount)

	assert.True(t, svc.UnregisterTrigger("wf1", "n1"))
	assert.Zero(t, triggers.Statistics().PollingCount)
}

func TestDeleteWorkflowRemovesTriggers(t *testing.T) {
	svc, triggers := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveWorkflow(ctx, linearDefinition("wf1")))
	require.NoError(t, svc.RegisterTrigger("wf1", "start", trigger.KindManual, nil, ""))

	existed, err := svc.DeleteWorkflow(ctx, "wf1")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Zero(t, triggers.Statistics().Total)

	summaries, err := svc.ListWorkflows(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestListExecutions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveWorkflow(ctx, linearDefinition("wf1")))
	for i := 0; i < 2; i++ {
		_, err := svc.ExecuteWorkflow(ctx, ExecuteRequest{WorkflowID: "wf1"})
		require.NoError(t, err)
	}

	execs, err := svc.ListExecutions(ctx, "wf1", 0)
	require.NoError(t, err)
	assert.Len(t, execs, 2)
}
