package nodes

import (
	"context"
	"fmt"
	"regexp"

	"github.com/spf13/cast"

	"github.com/Zeeshanunique/agentworkflow/internal/expr"
	"github.com/Zeeshanunique/agentworkflow/internal/llm"
	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

const TypeAgent = "agent"

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Agent sends one text completion per input item. The user prompt supports
// {{field.path}} placeholders resolved against the current item. A failed
// completion becomes an error-flagged item; the node itself only fails when
// no provider registry is available.
type Agent struct{}

func agentDescription() *node.Description {
	return &node.Description{
		Type:        TypeAgent,
		DisplayName: "AI Agent",
		Description: "Sends each input item through a text-completion model",
		Groups:      []string{node.GroupAgent},
		Inputs:      []node.PortSpec{{Name: node.PortMain, DisplayName: "Main", Required: true}},
		Outputs:     []node.PortSpec{{Name: node.PortMain, DisplayName: "Main"}},
		Parameters: []node.ParameterSpec{
			{
				Name:        "provider",
				DisplayName: "Provider",
				Type:        node.ParameterTypeString,
				Description: "Configured provider name; empty uses the default",
			},
			{Name: "model", DisplayName: "Model", Type: node.ParameterTypeString},
			{
				Name:        "systemPrompt",
				DisplayName: "System Prompt",
				Type:        node.ParameterTypeString,
			},
			{
				Name:        "userPrompt",
				DisplayName: "User Prompt",
				Type:        node.ParameterTypeString,
				Description: "Supports {{field.path}} placeholders from the item",
			},
			{Name: "temperature", DisplayName: "Temperature", Type: node.ParameterTypeNumber, Default: 0.7},
			{Name: "maxTokens", DisplayName: "Max Tokens", Type: node.ParameterTypeNumber, Default: 1024},
		},
	}
}

// Execute runs one completion per input item.
func (n *Agent) Execute(ctx context.Context, nc *node.Context, in *node.Input) (*node.Output, error) {
	if nc.Deps == nil || nc.Deps.LLM == nil {
		return nil, fmt.Errorf("agent node has no llm registry configured")
	}
	provider, err := nc.Deps.LLM.Get(nc.Parameters.String("provider"))
	if err != nil {
		return nil, err
	}

	systemPrompt := nc.Parameters.String("systemPrompt")
	userPrompt := nc.Parameters.String("userPrompt")
	model := nc.Parameters.String("model")
	temperature := nc.Parameters.Float("temperature", 0.7)
	maxTokens := nc.Parameters.Int("maxTokens", 1024)

	input := in.Main()
	out := make(types.Items, 0, len(input))
	for _, item := range input {
		messages := make([]llm.Message, 0, 2)
		if systemPrompt != "" {
			messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
		}
		messages = append(messages, llm.Message{
			Role:    llm.RoleUser,
			Content: interpolate(userPrompt, item),
		})

		resp, err := provider.Complete(ctx, llm.CompletionRequest{
			Model:       model,
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			nc.Logger().Warn("completion failed", "provider", provider.Name(), "error", err)
			out = append(out, types.ErrorItem(err, types.Item{"item": item, "provider": provider.Name()}))
			continue
		}

		next := types.CloneItem(item)
		next["response"] = resp.Content
		next["model"] = resp.Model
		out = append(out, next)
	}
	return node.MainOutput(out), nil
}

// interpolate replaces {{field.path}} placeholders with the corresponding
// item field. Unresolvable placeholders render as an empty string.
func interpolate(template string, item types.Item) string {
	if template == "" {
		return ""
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		value := expr.ResolvePath(item, path)
		if value == nil {
			return ""
		}
		return cast.ToString(value)
	})
}
