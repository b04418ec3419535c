package nodes

import (
	"context"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

const TypeSet = "set"

// Set writes configured key/value pairs onto every input item, either merged
// over the existing fields or replacing them entirely.
type Set struct{}

func setDescription() *node.Description {
	return &node.Description{
		Type:        TypeSet,
		DisplayName: "Set",
		Description: "Sets fields on every input item",
		Groups:      []string{node.GroupTransform},
		Inputs:      []node.PortSpec{{Name: node.PortMain, DisplayName: "Main", Required: true}},
		Outputs:     []node.PortSpec{{Name: node.PortMain, DisplayName: "Main"}},
		Parameters: []node.ParameterSpec{
			{
				Name:        "mode",
				DisplayName: "Mode",
				Type:        node.ParameterTypeOptions,
				Default:     "merge",
				Options: []node.ParameterOption{
					{Name: "Merge", Value: "merge"},
					{Name: "Replace", Value: "replace"},
				},
			},
			{
				Name:        "values",
				DisplayName: "Values",
				Type:        node.ParameterTypeJSON,
				Default:     map[string]any{},
				Description: "Key/value pairs written onto each item",
			},
		},
	}
}

// Execute applies the configured values to every input item. An empty input
// batch with replace mode still yields an empty batch, never a synthetic
// item.
func (n *Set) Execute(_ context.Context, nc *node.Context, in *node.Input) (*node.Output, error) {
	mode := nc.Parameters.StringOr("mode", "merge")
	values := nc.Parameters.Map("values")

	input := in.Main()
	out := make(types.Items, 0, len(input))
	for _, item := range input {
		var next types.Item
		if mode == "replace" {
			next = make(types.Item, len(values))
		} else {
			next = types.CloneItem(item)
		}
		for k, v := range values {
			next[k] = v
		}
		out = append(out, next)
	}
	return node.MainOutput(out), nil
}
