package nodes

import (
	"context"
	"fmt"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

const TypeMerge = "merge"

// Merge modes.
const (
	MergeModeAppend      = "append"
	MergeModePassThrough = "passThrough"
	MergeModeWait        = "wait"
)

// Merge combines two input branches into one batch. Append concatenates both
// inputs, passThrough forwards one selected input, and wait emits nothing
// unless both inputs carry at least one item.
type Merge struct{}

func mergeDescription() *node.Description {
	return &node.Description{
		Type:        TypeMerge,
		DisplayName: "Merge",
		Description: "Combines two input branches into one batch",
		Groups:      []string{node.GroupTransform},
		Inputs: []node.PortSpec{
			{Name: node.PortInput1, DisplayName: "Input 1", Required: true},
			{Name: node.PortInput2, DisplayName: "Input 2"},
		},
		Outputs: []node.PortSpec{{Name: node.PortMain, DisplayName: "Main"}},
		Parameters: []node.ParameterSpec{
			{
				Name:        "mode",
				DisplayName: "Mode",
				Type:        node.ParameterTypeOptions,
				Default:     MergeModeAppend,
				Options: []node.ParameterOption{
					{Name: "Append", Value: MergeModeAppend},
					{Name: "Pass Through", Value: MergeModePassThrough},
					{Name: "Wait for Both", Value: MergeModeWait},
				},
			},
			{
				Name:        "useInput",
				DisplayName: "Use Input",
				Type:        node.ParameterTypeOptions,
				Default:     node.PortInput1,
				Options: []node.ParameterOption{
					{Name: "Input 1", Value: node.PortInput1},
					{Name: "Input 2", Value: node.PortInput2},
				},
				DisplayWhen: map[string][]any{"mode": {MergeModePassThrough}},
			},
		},
	}
}

// Execute combines the two input batches according to the configured mode.
func (n *Merge) Execute(_ context.Context, nc *node.Context, in *node.Input) (*node.Output, error) {
	first := in.Port(node.PortInput1)
	second := in.Port(node.PortInput2)

	switch nc.Parameters.StringOr("mode", MergeModeAppend) {
	case MergeModeAppend:
		out := make(types.Items, 0, len(first)+len(second))
		out = append(out, first...)
		out = append(out, second...)
		return node.MainOutput(out), nil

	case MergeModePassThrough:
		if nc.Parameters.StringOr("useInput", node.PortInput1) == node.PortInput2 {
			return node.MainOutput(second), nil
		}
		return node.MainOutput(first), nil

	case MergeModeWait:
		if len(first) == 0 || len(second) == 0 {
			return node.MainOutput(types.Items{}), nil
		}
		out := make(types.Items, 0, len(first)+len(second))
		out = append(out, first...)
		out = append(out, second...)
		return node.MainOutput(out), nil

	default:
		return nil, fmt.Errorf("merge node has unknown mode %q", nc.Parameters.String("mode"))
	}
}
