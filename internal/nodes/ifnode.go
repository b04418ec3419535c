package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/Zeeshanunique/agentworkflow/internal/expr"
	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

const TypeIf = "if"

// Comparison operators accepted by the If node's conditions.
const (
	OpEquals      = "equals"
	OpNotEquals   = "notEquals"
	OpContains    = "contains"
	OpNotContains = "notContains"
	OpStartsWith  = "startsWith"
	OpEndsWith    = "endsWith"
	OpGT          = "gt"
	OpGTE         = "gte"
	OpLT          = "lt"
	OpLTE         = "lte"
	OpIsEmpty     = "isEmpty"
	OpIsNotEmpty  = "isNotEmpty"
)

// If evaluates configured conditions against each input item and partitions
// the batch onto the "true" and "false" output ports. The recorded exit port
// is "true" when at least one item matched, otherwise "false".
type If struct{}

func ifDescription() *node.Description {
	return &node.Description{
		Type:        TypeIf,
		DisplayName: "If",
		Description: "Routes items to the true or false branch by conditions",
		Groups:      []string{node.GroupTransform},
		Inputs:      []node.PortSpec{{Name: node.PortMain, DisplayName: "Main", Required: true}},
		Outputs: []node.PortSpec{
			{Name: node.PortTrue, DisplayName: "True"},
			{Name: node.PortFalse, DisplayName: "False"},
		},
		Parameters: []node.ParameterSpec{
			{
				Name:        "conditions",
				DisplayName: "Conditions",
				Type:        node.ParameterTypeJSON,
				Default:     []any{},
				Description: "List of {field, operator, value} conditions",
			},
			{
				Name:        "combine",
				DisplayName: "Combine",
				Type:        node.ParameterTypeOptions,
				Default:     "all",
				Options: []node.ParameterOption{
					{Name: "All conditions must match", Value: "all"},
					{Name: "Any condition may match", Value: "any"},
				},
			},
		},
	}
}

type ifCondition struct {
	field    string
	operator string
	value    any
}

func parseConditions(raw []any) ([]ifCondition, error) {
	conditions := make([]ifCondition, 0, len(raw))
	for i, entry := range raw {
		m, err := cast.ToStringMapE(entry)
		if err != nil {
			return nil, fmt.Errorf("condition %d is not an object", i)
		}
		cond := ifCondition{
			field:    cast.ToString(m["field"]),
			operator: cast.ToString(m["operator"]),
			value:    m["value"],
		}
		if cond.field == "" {
			return nil, fmt.Errorf("condition %d is missing a field", i)
		}
		if cond.operator == "" {
			cond.operator = OpEquals
		}
		conditions = append(conditions, cond)
	}
	return conditions, nil
}

// Execute partitions the input batch. A malformed conditions parameter is a
// node-level error; per-item evaluation itself cannot fail.
func (n *If) Execute(_ context.Context, nc *node.Context, in *node.Input) (*node.Output, error) {
	conditions, err := parseConditions(nc.Parameters.Slice("conditions"))
	if err != nil {
		return nil, err
	}
	combineAny := nc.Parameters.StringOr("combine", "all") == "any"

	truthy := types.Items{}
	falsy := types.Items{}
	for _, item := range in.Main() {
		if matchItem(item, conditions, combineAny) {
			truthy = append(truthy, item)
		} else {
			falsy = append(falsy, item)
		}
	}

	port := node.PortFalse
	if len(truthy) > 0 {
		port = node.PortTrue
	}
	return &node.Output{
		ByPort: map[string]types.Items{
			node.PortTrue:  truthy,
			node.PortFalse: falsy,
		},
		Port: port,
	}, nil
}

func matchItem(item types.Item, conditions []ifCondition, combineAny bool) bool {
	if len(conditions) == 0 {
		return true
	}
	for _, cond := range conditions {
		matched := evalCondition(expr.ResolvePath(item, cond.field), cond.operator, cond.value)
		if combineAny && matched {
			return true
		}
		if !combineAny && !matched {
			return false
		}
	}
	return !combineAny
}

func evalCondition(actual any, operator string, expected any) bool {
	switch operator {
	case OpEquals:
		return looseEqual(actual, expected)
	case OpNotEquals:
		return !looseEqual(actual, expected)
	case OpContains:
		return strings.Contains(cast.ToString(actual), cast.ToString(expected))
	case OpNotContains:
		return !strings.Contains(cast.ToString(actual), cast.ToString(expected))
	case OpStartsWith:
		return strings.HasPrefix(cast.ToString(actual), cast.ToString(expected))
	case OpEndsWith:
		return strings.HasSuffix(cast.ToString(actual), cast.ToString(expected))
	case OpGT, OpGTE, OpLT, OpLTE:
		a, aok := toFloat(actual)
		b, bok := toFloat(expected)
		if !aok || !bok {
			return false
		}
		switch operator {
		case OpGT:
			return a > b
		case OpGTE:
			return a >= b
		case OpLT:
			return a < b
		default:
			return a <= b
		}
	case OpIsEmpty:
		return isEmptyValue(actual)
	case OpIsNotEmpty:
		return !isEmptyValue(actual)
	default:
		return false
	}
}

// looseEqual compares numerically when both sides are numbers, otherwise by
// string form, so `1 == "1"` and `true == "true"` behave the way editor
// configurations expect.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return cast.ToString(a) == cast.ToString(b)
}

func toFloat(v any) (float64, bool) {
	switch v.(type) {
	case string, nil, bool:
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
