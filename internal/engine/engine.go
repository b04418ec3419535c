// Package engine walks a compiled workflow plan node by node. A run is
// strictly sequential: one node executes at a time, its output is recorded,
// and the next node is resolved from the plan, conditionally when the node
// declares multiple outgoing ports.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zeeshanunique/agentworkflow/internal/graph"
	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

// NodeExecutionError reports a node executor failure. It aborts the run that
// raised it; the partial execution log stays available on the RunResult.
type NodeExecutionError struct {
	NodeID string
	Cause  error
}

// Error implements the error interface.
func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s failed: %v", e.NodeID, e.Cause)
}

// Unwrap implements the errors.Unwrap interface.
func (e *NodeExecutionError) Unwrap() error { return e.Cause }

// RunResult is the outcome of one workflow run.
type RunResult struct {
	// Success is true when the walk reached a terminal node without error.
	Success bool `json:"success"`

	// FinalOutput is the exit-port batch of the last executed node.
	FinalOutput types.Items `json:"final_output"`

	// NodeOutputs holds each executed node's recorded output by node id.
	NodeOutputs map[string]*node.Output `json:"node_outputs"`

	// ExecutedNodes is the ordered log of executed node ids.
	ExecutedNodes []string `json:"executed_nodes"`

	// Err is the terminal error of a failed run.
	Err error `json:"-"`

	// Duration is the wall-clock time of the walk.
	Duration time.Duration `json:"duration"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer enables span creation per executed node.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithDeps sets the shared executor dependencies handed to every node.
func WithDeps(deps *node.Deps) Option {
	return func(e *Engine) { e.deps = deps }
}

// WithNodeTimeout bounds each individual node call. Zero disables the bound;
// the run context still applies.
func WithNodeTimeout(d time.Duration) Option {
	return func(e *Engine) { e.nodeTimeout = d }
}

// Engine executes compiled plans. It holds no per-run state; a single Engine
// serves concurrent runs, each with its own run state.
type Engine struct {
	registry    *node.Registry
	deps        *node.Deps
	logger      *slog.Logger
	tracer      trace.Tracer
	nodeTimeout time.Duration
}

// New creates an engine backed by the given node type registry.
func New(registry *node.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run walks the plan from its entry node. The initial input is delivered to
// the entry node's first declared input port. Cancellation of ctx is honored
// between nodes and propagated into every node call.
func (e *Engine) Run(ctx context.Context, plan *graph.Plan, initialInput types.Items) *RunResult {
	started := time.Now()
	state := newRunState()
	logger := e.logger.With("workflow_id", plan.WorkflowID)

	logger.Info("workflow run started", "entry", plan.Entry, "nodes", len(plan.Nodes))

	current := plan.Entry
	for current != "" {
		if err := ctx.Err(); err != nil {
			return e.fail(state, started, logger, &NodeExecutionError{NodeID: current, Cause: err})
		}

		output, err := e.executeNode(ctx, plan, state, current, initialInput)
		if err != nil {
			return e.fail(state, started, logger, &NodeExecutionError{NodeID: current, Cause: err})
		}

		state.record(current, output)
		current = e.nextNode(plan, current, output, logger)
	}

	result := &RunResult{
		Success:       true,
		FinalOutput:   state.finalOutput(),
		NodeOutputs:   state.outputs,
		ExecutedNodes: state.executed,
		Duration:      time.Since(started),
	}
	logger.Info("workflow run completed",
		"executed_nodes", len(result.ExecutedNodes),
		"duration", result.Duration)
	return result
}

func (e *Engine) fail(state *runState, started time.Time, logger *slog.Logger, err *NodeExecutionError) *RunResult {
	logger.Error("workflow run failed", "node_id", err.NodeID, "error", err.Cause)
	return &RunResult{
		NodeOutputs:   state.outputs,
		ExecutedNodes: state.executed,
		Err:           err,
		Duration:      time.Since(started),
	}
}

func (e *Engine) executeNode(ctx context.Context, plan *graph.Plan, state *runState, nodeID string, initialInput types.Items) (*node.Output, error) {
	instance := plan.Nodes[nodeID]
	if instance == nil {
		return nil, fmt.Errorf("plan references unknown node %q", nodeID)
	}

	executor, err := e.registry.Create(instance.Type)
	if err != nil {
		return nil, err
	}

	input, err := e.gatherInput(plan, state, nodeID, initialInput)
	if err != nil {
		return nil, err
	}

	nodeCtx := ctx
	if e.nodeTimeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, e.nodeTimeout)
		defer cancel()
	}

	if e.tracer != nil {
		var span trace.Span
		nodeCtx, span = e.tracer.Start(nodeCtx, "engine.node",
			trace.WithAttributes(
				attribute.String("workflow.id", plan.WorkflowID),
				attribute.String("node.id", nodeID),
				attribute.String("node.type", instance.Type),
			))
		defer span.End()
	}

	nc := &node.Context{
		WorkflowID:  plan.WorkflowID,
		NodeID:      nodeID,
		Parameters:  node.Parameters(instance.Parameters),
		Credentials: instance.Credentials,
		Deps:        e.deps,
	}

	e.logger.Debug("executing node",
		"workflow_id", plan.WorkflowID, "node_id", nodeID, "node_type", instance.Type)

	return executor.Execute(nodeCtx, nc, input)
}

// gatherInput assembles a node's input batches from the recorded outputs of
// its wired upstream nodes. Absent upstream outputs are empty batches. The
// entry node receives the run's initial input on its first declared port.
func (e *Engine) gatherInput(plan *graph.Plan, state *runState, nodeID string, initialInput types.Items) (*node.Input, error) {
	wires := plan.Inputs[nodeID]
	byPort := make(map[string]types.Items)

	for _, wire := range wires {
		upstream, ok := state.outputs[wire.FromNode]
		if !ok {
			continue
		}
		byPort[wire.ToPort] = append(byPort[wire.ToPort], upstream.PortItems(wire.FromPort)...)
	}

	if nodeID == plan.Entry && len(wires) == 0 {
		port, err := e.firstInputPort(plan.Nodes[nodeID].Type)
		if err != nil {
			return nil, err
		}
		byPort[port] = initialInput
	}

	return &node.Input{ByPort: byPort}, nil
}

func (e *Engine) firstInputPort(typeName string) (string, error) {
	desc, err := e.registry.Describe(typeName)
	if err != nil {
		return "", err
	}
	if len(desc.Inputs) > 0 {
		return desc.Inputs[0].Name, nil
	}
	return node.PortMain, nil
}

// nextNode resolves the successor of a just-executed node. A conditional
// edge with no entry for the produced exit port ends the walk.
func (e *Engine) nextNode(plan *graph.Plan, nodeID string, output *node.Output, logger *slog.Logger) string {
	successor, ok := plan.Successors[nodeID]
	if !ok {
		return ""
	}

	switch successor.Kind {
	case graph.SuccessorTerminal:
		return ""
	case graph.SuccessorDirect:
		return successor.Target
	case graph.SuccessorConditional:
		next, ok := successor.ByPort[output.Port]
		if !ok {
			logger.Debug("no successor wired for exit port", "node_id", nodeID, "port", output.Port)
			return ""
		}
		return next
	default:
		return ""
	}
}
