// Package nodes implements the built-in node type catalog: trigger nodes,
// core transform nodes, and the agent node. RegisterBuiltins wires every
// type into a node.Registry at process start.
package nodes

import (
	"context"
	"time"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

const TypeManualTrigger = "trigger.manual"

// ManualTrigger starts a workflow on an explicit user request. It emits a
// single item carrying the invocation timestamp and whatever payload the
// caller supplied.
type ManualTrigger struct{}

func manualTriggerDescription() *node.Description {
	return &node.Description{
		Type:        TypeManualTrigger,
		DisplayName: "Manual Trigger",
		Description: "Starts the workflow when executed manually",
		Groups:      []string{node.GroupTrigger},
		Inputs:      []node.PortSpec{},
		Outputs:     []node.PortSpec{{Name: node.PortMain, DisplayName: "Main"}},
		Parameters: []node.ParameterSpec{
			{
				Name:        "payload",
				DisplayName: "Payload",
				Type:        node.ParameterTypeJSON,
				Default:     map[string]any{},
				Description: "Data attached to the emitted item under the data field",
			},
		},
		IsTrigger: true,
	}
}

// Execute emits the trigger item. An explicit payload delivered on the main
// input port (the manual execution path) takes precedence over the
// configured payload parameter.
func (t *ManualTrigger) Execute(_ context.Context, nc *node.Context, in *node.Input) (*node.Output, error) {
	data := nc.Parameters.Map("payload")
	if main := in.Main(); len(main) > 0 {
		data = main[0]
	}

	item := types.Item{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"triggeredBy": "manual",
		"data":        data,
	}
	return node.MainOutput(types.Items{item}), nil
}
