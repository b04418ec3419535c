package nodes

import (
	"context"
	"fmt"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

const TypeCode = "code"

// Code node execution modes.
const (
	CodeModeAllItems = "runOnceForAllItems"
	CodeModeEachItem = "runOnceForEachItem"
)

// Code runs a user-supplied expression through the sandboxed evaluator,
// either once against the whole batch or once per item. The available
// bindings are restricted to items, item, and input.
type Code struct{}

func codeDescription() *node.Description {
	return &node.Description{
		Type:        TypeCode,
		DisplayName: "Code",
		Description: "Runs a sandboxed expression against the input items",
		Groups:      []string{node.GroupTransform},
		Inputs:      []node.PortSpec{{Name: node.PortMain, DisplayName: "Main", Required: true}},
		Outputs:     []node.PortSpec{{Name: node.PortMain, DisplayName: "Main"}},
		Parameters: []node.ParameterSpec{
			{
				Name:        "mode",
				DisplayName: "Mode",
				Type:        node.ParameterTypeOptions,
				Default:     CodeModeAllItems,
				Options: []node.ParameterOption{
					{Name: "Run Once for All Items", Value: CodeModeAllItems},
					{Name: "Run Once for Each Item", Value: CodeModeEachItem},
				},
			},
			{
				Name:        "expression",
				DisplayName: "Expression",
				Type:        node.ParameterTypeCode,
				Description: "Expression evaluated with items, item, and input bindings",
			},
		},
	}
}

// Execute evaluates the expression. A batch-mode result that is a list
// becomes the output batch; any other value becomes a single item under the
// result field. In per-item mode each result replaces or annotates its item.
func (n *Code) Execute(_ context.Context, nc *node.Context, in *node.Input) (*node.Output, error) {
	expression := nc.Parameters.String("expression")
	if expression == "" {
		return nil, fmt.Errorf("code node requires an expression parameter")
	}

	evaluator := nc.Evaluator()
	input := in.Main()

	if nc.Parameters.StringOr("mode", CodeModeAllItems) == CodeModeEachItem {
		out := make(types.Items, 0, len(input))
		for _, item := range input {
			value, err := evaluator.Evaluate(expression, map[string]any{
				"item":  map[string]any(item),
				"input": map[string]any(item),
			})
			if err != nil {
				return nil, fmt.Errorf("evaluating expression per item: %w", err)
			}
			out = append(out, valueToItem(value, item))
		}
		return node.MainOutput(out), nil
	}

	itemsBinding := make([]any, len(input))
	for i, item := range input {
		itemsBinding[i] = map[string]any(item)
	}
	value, err := evaluator.Evaluate(expression, map[string]any{
		"items": itemsBinding,
		"input": itemsBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluating expression: %w", err)
	}
	return node.MainOutput(valueToItems(value)), nil
}

func valueToItem(value any, original types.Item) types.Item {
	if m, ok := value.(map[string]any); ok {
		return types.Item(m)
	}
	next := types.CloneItem(original)
	next["result"] = value
	return next
}

func valueToItems(value any) types.Items {
	switch val := value.(type) {
	case nil:
		return types.Items{}
	case []any:
		out := make(types.Items, 0, len(val))
		for _, entry := range val {
			if m, ok := entry.(map[string]any); ok {
				out = append(out, types.Item(m))
			} else {
				out = append(out, types.Item{"result": entry})
			}
		}
		return out
	case map[string]any:
		return types.Items{types.Item(val)}
	default:
		return types.Items{types.Item{"result": val}}
	}
}
