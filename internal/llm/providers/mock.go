package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Zeeshanunique/agentworkflow/internal/llm"
)

// MockProvider is a deterministic in-memory provider for tests and offline
// runs. Responses can be canned per substring of the last user message; an
// unmatched request echoes the message back.
type MockProvider struct {
	mu        sync.Mutex
	responses map[string]string
	failWith  error
	calls     []llm.CompletionRequest
}

// NewMockProvider creates a mock provider with no canned responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{responses: make(map[string]string)}
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return "mock"
}

// RespondWith cans a response for requests whose last user message contains
// the given substring.
func (p *MockProvider) RespondWith(substring, response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses[substring] = response
}

// FailWith makes every subsequent Complete call return err.
func (p *MockProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

// Calls returns the requests seen so far.
func (p *MockProvider) Calls() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.calls))
	copy(out, p.calls)
	return out
}

// Complete implements llm.Provider.
func (p *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, llm.TranslateError("mock", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, req)

	if p.failWith != nil {
		return nil, llm.TranslateError("mock", p.failWith)
	}

	last := ""
	for _, m := range req.Messages {
		if m.Role == llm.RoleUser {
			last = m.Content
		}
	}

	for substring, response := range p.responses {
		if strings.Contains(last, substring) {
			return &llm.CompletionResponse{
				Content: response,
				Model:   req.Model,
				Usage:   llm.Usage{TotalTokens: len(response)},
			}, nil
		}
	}

	return &llm.CompletionResponse{
		Content: fmt.Sprintf("echo: %s", last),
		Model:   req.Model,
		Usage:   llm.Usage{TotalTokens: len(last)},
	}, nil
}
