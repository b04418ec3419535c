package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeeshanunique/agentworkflow/internal/llm"
	"github.com/Zeeshanunique/agentworkflow/internal/llm/providers"
	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

func agentDeps(mock *providers.MockProvider) *node.Deps {
	registry := llm.NewRegistry()
	registry.Add(mock)
	return &node.Deps{LLM: registry}
}

func TestAgentCompletionPerItem(t *testing.T) {
	mock := providers.NewMockProvider()
	mock.RespondWith("summarize alpha", "alpha summary")
	mock.RespondWith("summarize beta", "beta summary")

	agent := &Agent{}
	params := node.Parameters{
		"provider":     "mock",
		"model":        "test-model",
		"systemPrompt": "You are a summarizer.",
		"userPrompt":   "summarize {{topic}}",
	}

	out, err := agent.Execute(context.Background(), testContext(params, agentDeps(mock)),
		node.NewInput(types.Items{{"topic": "alpha"}, {"topic": "beta"}}))
	require.NoError(t, err)

	items := out.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "alpha summary", items[0]["response"])
	assert.Equal(t, "beta summary", items[1]["response"])
	assert.Equal(t, "alpha", items[0]["topic"])

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "test-model", calls[0].Model)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, llm.RoleSystem, calls[0].Messages[0].Role)
	assert.Equal(t, "summarize alpha", calls[0].Messages[1].Content)
}

func TestAgentPerItemFailure(t *testing.T) {
	mock := providers.NewMockProvider()
	mock.FailWith(errors.New("rate limit exceeded"))

	agent := &Agent{}
	params := node.Parameters{"userPrompt": "hello"}

	out, err := agent.Execute(context.Background(), testContext(params, agentDeps(mock)),
		node.NewInput(types.Items{{"a": 1}, {"a": 2}}))
	require.NoError(t, err)

	items := out.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 2, types.CountErrorItems(items))
}

func TestAgentNoRegistry(t *testing.T) {
	agent := &Agent{}

	_, err := agent.Execute(context.Background(), testContext(node.Parameters{}, nil),
		node.NewInput(types.Items{{}}))
	assert.Error(t, err)
}

func TestAgentUnknownProvider(t *testing.T) {
	agent := &Agent{}
	params := node.Parameters{"provider": "missing"}

	_, err := agent.Execute(context.Background(), testContext(params, agentDeps(providers.NewMockProvider())),
		node.NewInput(types.Items{{}}))
	assert.Error(t, err)
}

func TestInterpolate(t *testing.T) {
	item := types.Item{
		"name": "Ada",
		"user": map[string]any{"email": "ada@example.com"},
	}

	tests := []struct {
		template string
		want     string
	}{
		{template: "Hello {{name}}", want: "Hello Ada"},
		{template: "Mail: {{user.email}}", want: "Mail: ada@example.com"},
		{template: "Missing: {{nope}}!", want: "Missing: !"},
		{template: "No placeholders", want: "No placeholders"},
		{template: "{{ name }} spaced", want: "Ada spaced"},
		{template: "", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, interpolate(tt.template, item))
	}
}
