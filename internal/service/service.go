// Package service ties the stores, the graph compiler, the execution
// engine, and the trigger registry together behind the operation shapes the
// transport layer consumes.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Zeeshanunique/agentworkflow/internal/database"
	"github.com/Zeeshanunique/agentworkflow/internal/engine"
	"github.com/Zeeshanunique/agentworkflow/internal/graph"
	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/trigger"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

// ExecuteRequest asks for one workflow run.
type ExecuteRequest struct {
	WorkflowID  string      `json:"workflow_id"`
	TriggerKind string      `json:"trigger_kind,omitempty"`
	Input       types.Items `json:"input,omitempty"`
}

// ExecuteResponse is the outcome of one workflow run. A run that finished
// with item-level errors embedded in its output still reports Success true;
// ItemErrors carries the count so callers can tell the two apart.
type ExecuteResponse struct {
	Success         bool                    `json:"success"`
	ExecutionID     types.ID                `json:"execution_id"`
	Output          types.Items             `json:"output,omitempty"`
	Error           string                  `json:"error,omitempty"`
	ExecutionTimeMS int64                   `json:"execution_time_ms"`
	NodeResults     map[string]*node.Output `json:"node_results,omitempty"`
	ExecutedNodes   []string                `json:"executed_nodes,omitempty"`
	ItemErrors      int                     `json:"item_errors,omitempty"`
}

// StatusResponse answers an execution status query.
type StatusResponse struct {
	Status database.ExecutionStatus `json:"status"`
	Output types.Items              `json:"output,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// Service executes workflows end to end: load the stored structure, compile
// it, run it, and persist the execution record.
type Service struct {
	workflows  database.WorkflowDAO
	executions database.ExecutionDAO
	compiler   *graph.Compiler
	engine     *engine.Engine
	triggers   *trigger.Service
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Service.
func New(workflows database.WorkflowDAO, executions database.ExecutionDAO, compiler *graph.Compiler, eng *engine.Engine, opts ...Option) *Service {
	s := &Service{
		workflows:  workflows,
		executions: executions,
		compiler:   compiler,
		engine:     eng,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttachTriggers wires the trigger registry for the passthrough operations.
// Called after construction because the trigger service itself needs this
// Service as its workflow runner.
func (s *Service) AttachTriggers(ts *trigger.Service) {
	s.triggers = ts
}

// ExecuteWorkflow loads, compiles, and runs a workflow, persisting the
// execution record. Load and compile failures are returned as errors before
// any record is created; a run-level failure is persisted and reported in
// the response with Success false.
func (s *Service) ExecuteWorkflow(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error) {
	def, err := s.workflows.GetStructure(ctx, req.WorkflowID)
	if err != nil {
		return nil, err
	}

	plan, err := s.compiler.Compile(def)
	if err != nil {
		return nil, err
	}

	kind := req.TriggerKind
	if kind == "" {
		kind = "manual"
	}
	exec := &database.Execution{WorkflowID: req.WorkflowID, TriggerKind: kind}
	if err := s.executions.Create(ctx, exec); err != nil {
		return nil, err
	}

	result := s.engine.Run(ctx, plan, req.Input)

	response := &ExecuteResponse{
		Success:         result.Success,
		ExecutionID:     exec.ID,
		ExecutionTimeMS: result.Duration.Milliseconds(),
		NodeResults:     result.NodeOutputs,
		ExecutedNodes:   result.ExecutedNodes,
	}

	if result.Success {
		response.Output = result.FinalOutput
		response.ItemErrors = types.CountErrorItems(result.FinalOutput)
		if err := s.executions.Complete(ctx, exec.ID, database.ExecutionStatusCompleted, result.FinalOutput, "", result.Duration); err != nil {
			s.logger.Error("failed to persist execution outcome", "execution_id", exec.ID, "error", err)
		}
		return response, nil
	}

	response.Error = result.Err.Error()
	if err := s.executions.Complete(ctx, exec.ID, database.ExecutionStatusFailed, nil, result.Err.Error(), result.Duration); err != nil {
		s.logger.Error("failed to persist execution outcome", "execution_id", exec.ID, "error", err)
	}
	return response, nil
}

// ExecutionStatus answers a status query for one execution id.
func (s *Service) ExecutionStatus(ctx context.Context, executionID types.ID) (*StatusResponse, error) {
	exec, err := s.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	return &StatusResponse{
		Status: exec.Status,
		Output: exec.Output,
		Error:  exec.Error,
	}, nil
}

// RunWorkflow implements trigger.WorkflowRunner for fired triggers.
func (s *Service) RunWorkflow(ctx context.Context, workflowID string, input types.Items) (types.Items, error) {
	response, err := s.ExecuteWorkflow(ctx, ExecuteRequest{
		WorkflowID:  workflowID,
		TriggerKind: "trigger",
		Input:       input,
	})
	if err != nil {
		return nil, err
	}
	if !response.Success {
		return nil, fmt.Errorf("workflow %s run failed: %s", workflowID, response.Error)
	}
	return response.Output, nil
}

// RegisterTrigger delegates a trigger registration to the trigger registry.
func (s *Service) RegisterTrigger(workflowID, nodeID string, kind trigger.Kind, params node.Parameters, credentials string) error {
	if s.triggers == nil {
		return fmt.Errorf("trigger registry not attached")
	}
	return s.triggers.Register(workflowID, nodeID, kind, params, credentials)
}

// UnregisterTrigger delegates a trigger removal to the trigger registry.
func (s *Service) UnregisterTrigger(workflowID, nodeID string) bool {
	if s.triggers == nil {
		return false
	}
	return s.triggers.Unregister(workflowID, nodeID)
}

// SaveWorkflow stores a workflow definition after checking it compiles.
func (s *Service) SaveWorkflow(ctx context.Context, def *graph.Definition) error {
	if _, err := s.compiler.Compile(def); err != nil {
		return err
	}
	return s.workflows.Save(ctx, def)
}

// DeleteWorkflow removes a stored workflow and its trigger registrations.
func (s *Service) DeleteWorkflow(ctx context.Context, workflowID string) (bool, error) {
	existed, err := s.workflows.Delete(ctx, workflowID)
	if err != nil {
		return false, err
	}
	if existed && s.triggers != nil {
		for _, reg := range s.triggers.RegistrationsFor(workflowID) {
			s.triggers.Unregister(reg.WorkflowID, reg.NodeID)
		}
	}
	return existed, nil
}

// WorkflowStructure returns a stored workflow's definition.
func (s *Service) WorkflowStructure(ctx context.Context, workflowID string) (*graph.Definition, error) {
	return s.workflows.GetStructure(ctx, workflowID)
}

// ListWorkflows returns summaries of the stored workflows.
func (s *Service) ListWorkflows(ctx context.Context) ([]database.WorkflowSummary, error) {
	return s.workflows.List(ctx)
}

// ListExecutions returns a workflow's execution history, newest first.
func (s *Service) ListExecutions(ctx context.Context, workflowID string, limit int) ([]*database.Execution, error) {
	return s.executions.ListByWorkflow(ctx, workflowID, limit)
}
