package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/nodes"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

type key struct {
	workflowID string
	nodeID     string
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

// WithDeps sets the shared executor dependencies handed to trigger nodes.
func WithDeps(deps *node.Deps) Option {
	return func(s *Service) { s.deps = deps }
}

// WithMetrics registers the service's prometheus instruments with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Service) { s.metrics = newMetrics(reg) }
}

// Service is the process-wide trigger registry and scheduler. Its
// registration and timer maps are shared, mutable state; one mutex
// serializes every mutation. Workflow runs fired by a timer or webhook are
// dispatched on their own goroutine so a slow run never blocks the lock.
type Service struct {
	registry *node.Registry
	runner   WorkflowRunner
	deps     *node.Deps
	logger   *slog.Logger
	metrics  *metrics

	mu     sync.Mutex
	regs   map[key]*Registration
	order  []key
	timers map[key]*pollTimer
}

// NewService creates a trigger service. The runner executes workflows owning
// fired schedule/email/webhook triggers.
func NewService(registry *node.Registry, runner WorkflowRunner, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		runner:   runner,
		logger:   slog.Default(),
		regs:     make(map[key]*Registration),
		timers:   make(map[key]*pollTimer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newMetrics(nil)
	}
	return s
}

// Register adds or replaces the trigger registration for (workflowID,
// nodeID). Schedule and email registrations immediately start a recurring
// polling timer; re-registration cancels and replaces any prior timer.
func (s *Service) Register(workflowID, nodeID string, kind Kind, params node.Parameters, credentials string) error {
	if !kind.IsValid() {
		return &RegistrationError{
			WorkflowID: workflowID,
			NodeID:     nodeID,
			Kind:       kind,
			Message:    "unknown trigger kind",
		}
	}

	reg := &Registration{
		WorkflowID:  workflowID,
		NodeID:      nodeID,
		Kind:        kind,
		Parameters:  params,
		Credentials: credentials,
	}

	var timer *pollTimer
	if kind == KindSchedule || kind == KindEmail {
		executor, err := s.registry.Create(kind.NodeType())
		if err != nil {
			return &RegistrationError{
				WorkflowID: workflowID,
				NodeID:     nodeID,
				Kind:       kind,
				Message:    err.Error(),
			}
		}
		poller, ok := executor.(node.Poller)
		if !ok {
			return &RegistrationError{
				WorkflowID: workflowID,
				NodeID:     nodeID,
				Kind:       kind,
				Message:    fmt.Sprintf("node type %s does not support polling", kind.NodeType()),
			}
		}
		timer = newPollTimer(s, reg, poller, s.pollInterval(kind, params))
	}

	k := key{workflowID: workflowID, nodeID: nodeID}

	s.mu.Lock()
	prior, hadTimer := s.timers[k]
	if hadTimer {
		delete(s.timers, k)
		s.metrics.pollingTimers.Dec()
	}
	if _, exists := s.regs[k]; !exists {
		s.order = append(s.order, k)
	}
	s.regs[k] = reg
	if timer != nil {
		s.timers[k] = timer
		s.metrics.pollingTimers.Inc()
	}
	s.mu.Unlock()

	if hadTimer {
		prior.stop()
	}
	if timer != nil {
		timer.start()
	}

	s.logger.Info("trigger registered",
		"workflow_id", workflowID, "node_id", nodeID, "kind", kind.String())
	return nil
}

func (s *Service) pollInterval(kind Kind, params node.Parameters) time.Duration {
	if kind == KindEmail {
		return nodes.EmailPollInterval
	}
	return nodes.ScheduleInterval(params.String("triggerInterval"))
}

// Unregister removes the registration and cancels its timer. It reports
// whether a registration existed.
func (s *Service) Unregister(workflowID, nodeID string) bool {
	k := key{workflowID: workflowID, nodeID: nodeID}

	s.mu.Lock()
	_, existed := s.regs[k]
	delete(s.regs, k)
	if existed {
		for i, o := range s.order {
			if o == k {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	timer, hasTimer := s.timers[k]
	delete(s.timers, k)
	if hasTimer {
		s.metrics.pollingTimers.Dec()
	}
	s.mu.Unlock()

	if hasTimer {
		timer.stop()
	}
	if existed {
		s.logger.Info("trigger unregistered", "workflow_id", workflowID, "node_id", nodeID)
	}
	return existed
}

// ExecuteManual runs a manual trigger node synchronously with the supplied
// payload. No prior registration is required.
func (s *Service) ExecuteManual(ctx context.Context, workflowID, nodeID string, data types.Item) Result {
	executor, err := s.registry.Create(KindManual.NodeType())
	if err != nil {
		return Result{Error: err.Error()}
	}

	if data == nil {
		data = types.Item{}
	}
	nc := s.nodeContext(workflowID, nodeID, s.parametersFor(workflowID, nodeID))

	out, err := executor.Execute(ctx, nc, node.NewInput(types.Items{data}))
	if err != nil {
		return Result{Error: err.Error()}
	}

	s.metrics.fired(KindManual)
	return Result{Triggered: true, Data: out.Items()}
}

// HandleWebhook dispatches an inbound request to the first webhook
// registration whose configured path is contained in the request path, in
// registration order. Path containment rather than exact matching is kept
// for compatibility with existing registrations and can match ambiguously
// when configured paths overlap.
func (s *Service) HandleWebhook(ctx context.Context, path string, req *node.WebhookRequest) Result {
	s.mu.Lock()
	var matched *Registration
	for _, k := range s.order {
		reg := s.regs[k]
		if reg == nil || reg.Kind != KindWebhook {
			continue
		}
		if registered := reg.Parameters.String("path"); registered != "" && strings.Contains(path, registered) {
			matched = reg
			break
		}
	}
	s.mu.Unlock()

	if matched == nil {
		return Result{NotFound: true, ResponseStatus: http.StatusNotFound}
	}
	return s.dispatchWebhook(ctx, matched, req)
}

// dispatchWebhook invokes the matched node's webhook handler. A handler
// panic or error yields a non-triggered result; the dispatch path never
// crashes.
func (s *Service) dispatchWebhook(ctx context.Context, reg *Registration, req *node.WebhookRequest) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("webhook handler panicked",
				"workflow_id", reg.WorkflowID, "node_id", reg.NodeID, "panic", r)
			result = Result{
				Error:          fmt.Sprintf("webhook handler panicked: %v", r),
				ResponseStatus: http.StatusInternalServerError,
			}
		}
	}()

	executor, err := s.registry.Create(KindWebhook.NodeType())
	if err != nil {
		return Result{Error: err.Error(), ResponseStatus: http.StatusInternalServerError}
	}
	handler, ok := executor.(node.WebhookHandler)
	if !ok {
		return Result{Error: "webhook node type does not handle webhooks", ResponseStatus: http.StatusInternalServerError}
	}

	nc := s.nodeContext(reg.WorkflowID, reg.NodeID, reg.Parameters)
	hookResult, err := handler.HandleWebhook(ctx, nc, req)
	if err != nil {
		s.logger.Warn("webhook handler rejected request",
			"workflow_id", reg.WorkflowID, "node_id", reg.NodeID, "error", err)
		return Result{Error: err.Error(), ResponseStatus: http.StatusBadRequest}
	}

	s.metrics.fired(KindWebhook)

	if hookResult.Immediate {
		// Run the workflow in the background; the caller already has its
		// answer.
		s.fireWorkflow(reg, hookResult.Items)
		return Result{
			Triggered:      true,
			Data:           hookResult.Items,
			ResponseStatus: hookResult.ResponseStatus,
			ResponseBody:   hookResult.ResponseBody,
		}
	}

	if s.runner == nil {
		return Result{Error: "no workflow runner configured", ResponseStatus: http.StatusInternalServerError}
	}
	finalOutput, err := s.runner.RunWorkflow(ctx, reg.WorkflowID, hookResult.Items)
	if err != nil {
		return Result{Error: err.Error(), ResponseStatus: http.StatusInternalServerError}
	}
	return Result{
		Triggered:      true,
		Data:           finalOutput,
		ResponseStatus: http.StatusOK,
		ResponseBody:   finalOutput,
	}
}

// Statistics returns a point-in-time snapshot of the registry.
func (s *Service) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Statistics{
		Total:        len(s.regs),
		ByKind:       make(map[Kind]int),
		PollingCount: len(s.timers),
	}
	for _, reg := range s.regs {
		stats.ByKind[reg.Kind]++
	}
	return stats
}

// RegistrationsFor returns copies of the registrations owned by a workflow,
// in registration order.
func (s *Service) RegistrationsFor(workflowID string) []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var regs []Registration
	for _, k := range s.order {
		if k.workflowID != workflowID {
			continue
		}
		if reg := s.regs[k]; reg != nil {
			regs = append(regs, *reg)
		}
	}
	return regs
}

// Cleanup cancels every timer and clears all registrations. Intended for
// process shutdown.
func (s *Service) Cleanup() {
	s.mu.Lock()
	timers := make([]*pollTimer, 0, len(s.timers))
	for _, t := range s.timers {
		timers = append(timers, t)
	}
	s.metrics.pollingTimers.Sub(float64(len(s.timers)))
	s.regs = make(map[key]*Registration)
	s.timers = make(map[key]*pollTimer)
	s.order = nil
	s.mu.Unlock()

	for _, t := range timers {
		t.stop()
	}
	s.logger.Info("trigger registry cleaned up", "timers_cancelled", len(timers))
}

func (s *Service) nodeContext(workflowID, nodeID string, params node.Parameters) *node.Context {
	if params == nil {
		params = node.Parameters{}
	}
	return &node.Context{
		WorkflowID: workflowID,
		NodeID:     nodeID,
		Parameters: params,
		Deps:       s.deps,
	}
}

func (s *Service) parametersFor(workflowID, nodeID string) node.Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.regs[key{workflowID: workflowID, nodeID: nodeID}]; ok {
		return reg.Parameters
	}
	return nil
}

// fireWorkflow hands a fired trigger's batch to the workflow runner on its
// own goroutine. Run failures are logged; triggers are never retried.
func (s *Service) fireWorkflow(reg *Registration, items types.Items) {
	if s.runner == nil {
		return
	}
	go func() {
		if _, err := s.runner.RunWorkflow(context.Background(), reg.WorkflowID, items); err != nil {
			s.logger.Error("triggered workflow run failed",
				"workflow_id", reg.WorkflowID, "node_id", reg.NodeID,
				"kind", reg.Kind.String(), "error", err)
		}
	}()
}
