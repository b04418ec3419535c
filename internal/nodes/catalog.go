package nodes

import "github.com/Zeeshanunique/agentworkflow/internal/node"

// RegisterBuiltins populates a registry with every built-in node type.
func RegisterBuiltins(r *node.Registry) {
	r.MustRegister(manualTriggerDescription(), func() node.Executor { return &ManualTrigger{} })
	r.MustRegister(webhookTriggerDescription(), func() node.Executor { return &WebhookTrigger{} })
	r.MustRegister(scheduleTriggerDescription(), func() node.Executor { return &ScheduleTrigger{} })
	r.MustRegister(emailTriggerDescription(), func() node.Executor { return &EmailTrigger{} })
	r.MustRegister(httpRequestDescription(), func() node.Executor { return &HTTPRequest{} })
	r.MustRegister(setDescription(), func() node.Executor { return &Set{} })
	r.MustRegister(ifDescription(), func() node.Executor { return &If{} })
	r.MustRegister(codeDescription(), func() node.Executor { return &Code{} })
	r.MustRegister(mergeDescription(), func() node.Executor { return &Merge{} })
	r.MustRegister(agentDescription(), func() node.Executor { return &Agent{} })
}

// NewBuiltinRegistry creates a registry pre-populated with the built-in
// node types.
func NewBuiltinRegistry() *node.Registry {
	r := node.NewRegistry()
	RegisterBuiltins(r)
	return r
}
