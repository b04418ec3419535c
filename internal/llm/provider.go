// Package llm abstracts the external text-completion capability agent nodes
// invoke. Concrete providers wrap langchaingo clients; the engine only ever
// sees the Provider interface.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Role represents the role of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role := Role(s)
	if !role.IsValid() {
		return fmt.Errorf("invalid role: %s", s)
	}
	*r = role
	return nil
}

// Message is one turn of a completion conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single text-completion call.
type CompletionRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the full response of one completion call.
type CompletionResponse struct {
	Content    string `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      Usage  `json:"usage"`
}

// Provider is the unified abstraction over text-completion services. A
// provider must be safe for concurrent use; the trigger scheduler and the
// execution engine may call Complete from different goroutines.
type Provider interface {
	// Name returns the provider name (e.g. "openai", "ollama", "mock").
	Name() string

	// Complete sends a completion request and blocks for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ProviderConfig configures one provider instance.
type ProviderConfig struct {
	// Name selects the provider implementation.
	Name string `mapstructure:"name" yaml:"name"`

	// APIKey authenticates against hosted providers.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// BaseURL overrides the provider endpoint (required for ollama).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// DefaultModel is used when a request names no model.
	DefaultModel string `mapstructure:"default_model" yaml:"default_model"`
}
