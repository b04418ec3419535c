// Package trigger tracks active workflow triggers, owns one polling timer
// per schedule/email registration, dispatches inbound webhooks by path, and
// hands fired triggers to the workflow runner.
package trigger

import (
	"context"
	"fmt"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

// Kind is the trigger kind of a registration.
type Kind string

const (
	KindManual   Kind = "manual"
	KindWebhook  Kind = "webhook"
	KindSchedule Kind = "schedule"
	KindEmail    Kind = "email"
)

// IsValid reports whether the kind is one of the known trigger kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindManual, KindWebhook, KindSchedule, KindEmail:
		return true
	}
	return false
}

// String returns the kind as a string.
func (k Kind) String() string { return string(k) }

// NodeType returns the node type name implementing the kind.
func (k Kind) NodeType() string {
	return "trigger." + string(k)
}

// RegistrationError reports a rejected trigger registration. No partial
// state is created when registration fails.
type RegistrationError struct {
	WorkflowID string
	NodeID     string
	Kind       Kind
	Message    string
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("trigger registration %s/%s (%s): %s", e.WorkflowID, e.NodeID, e.Kind, e.Message)
}

// Registration is one active trigger, keyed by (workflow id, node id). At
// most one registration exists per key; re-registering replaces the prior
// entry.
type Registration struct {
	WorkflowID  string          `json:"workflow_id"`
	NodeID      string          `json:"node_id"`
	Kind        Kind            `json:"kind"`
	Parameters  node.Parameters `json:"parameters"`
	Credentials string          `json:"credentials,omitempty"`
}

// Result is the outcome of a trigger invocation.
type Result struct {
	// Triggered is true when the trigger fired.
	Triggered bool `json:"triggered"`

	// NotFound marks a webhook dispatch that matched no registration. It is
	// distinguishable from a triggered-but-failed result.
	NotFound bool `json:"not_found,omitempty"`

	// Data is the item batch the trigger produced or the run's final output.
	Data types.Items `json:"data,omitempty"`

	// ResponseStatus and ResponseBody shape the webhook HTTP answer.
	ResponseStatus int `json:"response_status,omitempty"`
	ResponseBody   any `json:"response_body,omitempty"`

	// Error carries the failure message of a non-triggered result.
	Error string `json:"error,omitempty"`
}

// Statistics is a point-in-time snapshot of the registry.
type Statistics struct {
	Total        int          `json:"total"`
	ByKind       map[Kind]int `json:"by_kind"`
	PollingCount int          `json:"polling_count"`
}

// WorkflowRunner executes the workflow owning a fired trigger. The service
// layer implements it by loading, compiling, and running the stored graph.
type WorkflowRunner interface {
	RunWorkflow(ctx context.Context, workflowID string, input types.Items) (types.Items, error)
}
