package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ProviderErrorCode classifies provider failures so callers can decide
// whether a failure is worth surfacing differently.
type ProviderErrorCode string

const (
	ErrCodeAuth      ProviderErrorCode = "auth"
	ErrCodeRateLimit ProviderErrorCode = "rate_limit"
	ErrCodeTimeout   ProviderErrorCode = "timeout"
	ErrCodeBadInput  ProviderErrorCode = "bad_input"
	ErrCodeUnknown   ProviderErrorCode = "unknown"
)

// ProviderError wraps a failure from a concrete provider with the provider
// name and a coarse classification.
type ProviderError struct {
	Provider string
	Code     ProviderErrorCode
	Cause    error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider %s: %s: %v", e.Provider, e.Code, e.Cause)
}

// Unwrap implements the errors.Unwrap interface.
func (e *ProviderError) Unwrap() error { return e.Cause }

// TranslateError wraps a raw provider error into a classified ProviderError.
// Classification is heuristic, keyed off well-known substrings of the
// underlying client errors.
func TranslateError(provider string, err error) error {
	if err == nil {
		return nil
	}

	code := ErrCodeUnknown
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "api key"), strings.Contains(msg, "401"):
		code = ErrCodeAuth
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		code = ErrCodeRateLimit
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		code = ErrCodeTimeout
	case strings.Contains(msg, "invalid request"), strings.Contains(msg, "400"):
		code = ErrCodeBadInput
	}

	return &ProviderError{Provider: provider, Code: code, Cause: err}
}
