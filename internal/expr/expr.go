// Package expr implements a small sandboxed expression language used by the
// code node and for condition evaluation.
//
// The evaluator is a recursive descent parser over a restricted grammar:
//
//   - Path resolution against caller-supplied bindings: "item.user.name"
//   - Comparison operators: ==, !=, <, >, <=, >=
//   - Boolean operators: &&, ||, !
//   - Arithmetic operators: +, -, *, /, % (with + doubling as string concat)
//   - Literals: true, false, null, numbers, quoted strings
//   - Parentheses for grouping
//   - Built-in functions: len(), empty(), exists(), str(), num()
//   - Array/map indexing with []
//
// Expressions can only see the bindings the caller hands in. User code gets
// exactly the documented items/item/input helpers and nothing else; there is
// no I/O, no assignment, and no looping construct, and every evaluation is
// bounded by a step budget so a pathological expression cannot stall an
// execution.
package expr

import (
	"fmt"
	"strconv"
)

// DefaultMaxSteps bounds the number of evaluation steps for one expression.
const DefaultMaxSteps = 10000

// EvalError reports a failed expression evaluation.
type EvalError struct {
	Expression string
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("expression error: %s (caused by: %v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("expression error: %s", e.Message)
}

// Unwrap implements the errors.Unwrap interface.
func (e *EvalError) Unwrap() error { return e.Cause }

// Func is a function callable from within expressions.
type Func func(args []any) (any, error)

// Evaluator parses and evaluates expressions against a bindings map.
// The zero value is not usable; construct with New.
type Evaluator struct {
	functions map[string]Func
	maxSteps  int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxSteps overrides the evaluation step budget.
func WithMaxSteps(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// New creates an Evaluator with the default function set.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		functions: make(map[string]Func),
		maxSteps:  DefaultMaxSteps,
	}

	e.RegisterFunction("len", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("len() requires exactly 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case string:
			return float64(len(v)), nil
		case []any:
			return float64(len(v)), nil
		case map[string]any:
			return float64(len(v)), nil
		default:
			return nil, fmt.Errorf("len() requires string, array, or map argument")
		}
	})

	e.RegisterFunction("empty", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("empty() requires exactly 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case string:
			return len(v) == 0, nil
		case []any:
			return len(v) == 0, nil
		case map[string]any:
			return len(v) == 0, nil
		case nil:
			return true, nil
		default:
			return false, nil
		}
	})

	e.RegisterFunction("exists", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("exists() requires exactly 1 argument, got %d", len(args))
		}
		return args[0] != nil, nil
	})

	e.RegisterFunction("str", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("str() requires exactly 1 argument, got %d", len(args))
		}
		return stringify(args[0]), nil
	})

	e.RegisterFunction("num", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("num() requires exactly 1 argument, got %d", len(args))
		}
		n, ok := toNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("num() cannot convert %T to number", args[0])
		}
		return n, nil
	})

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegisterFunction adds a custom function callable from expressions.
func (e *Evaluator) RegisterFunction(name string, fn Func) {
	e.functions[name] = fn
}

// Evaluate parses and evaluates an expression against the given bindings and
// returns the resulting value.
func (e *Evaluator) Evaluate(expression string, bindings map[string]any) (any, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return nil, &EvalError{
			Expression: expression,
			Message:    "failed to tokenize expression",
			Cause:      err,
		}
	}

	p := &parser{
		tokens:    tokens,
		bindings:  bindings,
		evaluator: e,
		budget:    e.maxSteps,
	}

	result, err := p.parseExpression()
	if err != nil {
		return nil, &EvalError{
			Expression: expression,
			Message:    "failed to evaluate expression",
			Cause:      err,
		}
	}

	if p.current().typ != tokenEOF {
		return nil, &EvalError{
			Expression: expression,
			Message:    fmt.Sprintf("unexpected trailing input at token %q", p.current().value),
		}
	}

	return result, nil
}

// EvaluateBool evaluates an expression that must yield a boolean.
func (e *Evaluator) EvaluateBool(expression string, bindings map[string]any) (bool, error) {
	result, err := e.Evaluate(expression, bindings)
	if err != nil {
		return false, err
	}

	b, ok := result.(bool)
	if !ok {
		return false, &EvalError{
			Expression: expression,
			Message:    fmt.Sprintf("expression did not evaluate to boolean, got %T", result),
		}
	}

	return b, nil
}

// ResolvePath resolves a dotted path like "user.address.city" against a value.
// Missing segments resolve to nil rather than an error, which lets condition
// configuration reference optional fields.
func ResolvePath(root any, path string) any {
	if path == "" {
		return root
	}

	current := root
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '.' {
			segment := path[start:i]
			start = i + 1
			if segment == "" {
				continue
			}
			m, ok := current.(map[string]any)
			if !ok {
				return nil
			}
			current = m[segment]
			if current == nil {
				return nil
			}
		}
	}
	return current
}

func stringify(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case bool:
		return strconv.FormatBool(tv)
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case int:
		return strconv.Itoa(tv)
	case int64:
		return strconv.FormatInt(tv, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		if num, err := strconv.ParseFloat(val, 64); err == nil {
			return num, true
		}
	}
	return 0, false
}
