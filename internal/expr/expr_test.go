package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateLiterals(t *testing.T) {
	e := New()

	tests := []struct {
		expr string
		want any
	}{
		{"true", true},
		{"false", false},
		{"null", nil},
		{"42", 42.0},
		{"3.14", 3.14},
		{`"hello"`, "hello"},
		{`'single'`, "single"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Evaluate(tt.expr, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateComparisons(t *testing.T) {
	e := New()
	bindings := map[string]any{
		"item": map[string]any{
			"status": "active",
			"count":  float64(5),
			"nested": map[string]any{"flag": true},
		},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`item.status == "active"`, true},
		{`item.status != "active"`, false},
		{`item.count > 3`, true},
		{`item.count >= 5`, true},
		{`item.count < 5`, false},
		{`item.count <= 4`, false},
		{`item.nested.flag == true`, true},
		{`item.missing == null`, true},
		{`"abc" < "abd"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.EvaluateBool(tt.expr, bindings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateBooleanOperators(t *testing.T) {
	e := New()
	bindings := map[string]any{"a": true, "b": false}

	tests := []struct {
		expr string
		want bool
	}{
		{"a && b", false},
		{"a || b", true},
		{"!b", true},
		{"!(a && b)", true},
		{"(a || b) && a", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.EvaluateBool(tt.expr, bindings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateArithmetic(t *testing.T) {
	e := New()
	bindings := map[string]any{"n": float64(10), "name": "wf"}

	tests := []struct {
		expr string
		want any
	}{
		{"n + 5", 15.0},
		{"n - 3", 7.0},
		{"n * 2", 20.0},
		{"n / 4", 2.5},
		{"n % 3", 1.0},
		{"-n", -10.0},
		{"2 + 3 * 4", 14.0},
		{"(2 + 3) * 4", 20.0},
		{`name + "-1"`, "wf-1"},
		{`"run " + n`, "run 10"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Evaluate(tt.expr, bindings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateFunctions(t *testing.T) {
	e := New()
	bindings := map[string]any{
		"items": []any{map[string]any{"x": 1.0}, map[string]any{"x": 2.0}},
		"empty": []any{},
		"name":  "hello",
	}

	tests := []struct {
		expr string
		want any
	}{
		{"len(items)", 2.0},
		{"len(name)", 5.0},
		{"empty(empty)", true},
		{"empty(items)", false},
		{"exists(name)", true},
		{"str(42)", "42"},
		{`num("7")`, 7.0},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Evaluate(tt.expr, bindings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateIndexing(t *testing.T) {
	e := New()
	bindings := map[string]any{
		"items": []any{
			map[string]any{"name": "first"},
			map[string]any{"name": "second"},
		},
		"config": map[string]any{"mode": "merge"},
	}

	got, err := e.Evaluate(`items[1].name`, bindings)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	got, err = e.Evaluate(`config["mode"]`, bindings)
	require.NoError(t, err)
	assert.Equal(t, "merge", got)

	_, err = e.Evaluate(`items[9]`, bindings)
	assert.Error(t, err)
}

func TestEvaluateCustomFunction(t *testing.T) {
	e := New()
	e.RegisterFunction("double", func(args []any) (any, error) {
		n, _ := toNumber(args[0])
		return n * 2, nil
	})

	got, err := e.Evaluate("double(21)", nil)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
}

func TestEvaluateErrors(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		expr string
	}{
		{"unknown binding", "nosuchthing"},
		{"unknown function", "nope(1)"},
		{"unterminated string", `"abc`},
		{"division by zero", "1 / 0"},
		{"boolean on number", "1 && 2"},
		{"trailing garbage", "1 2"},
		{"bad character", "a # b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Evaluate(tt.expr, map[string]any{"a": true, "b": true})
			require.Error(t, err)
			var evalErr *EvalError
			assert.ErrorAs(t, err, &evalErr)
		})
	}
}

func TestEvaluateStepBudget(t *testing.T) {
	e := New(WithMaxSteps(5))

	// Well within budget.
	_, err := e.Evaluate("1 + 1", nil)
	require.NoError(t, err)

	// Exceeds a 5-step budget.
	_, err = e.Evaluate("1 + 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1 + 1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step budget")
}

func TestEvaluateBoolRejectsNonBool(t *testing.T) {
	e := New()
	_, err := e.EvaluateBool("1 + 1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not evaluate to boolean")
}

func TestResolvePath(t *testing.T) {
	root := map[string]any{
		"user": map[string]any{
			"address": map[string]any{"city": "Oslo"},
		},
	}

	assert.Equal(t, "Oslo", ResolvePath(root, "user.address.city"))
	assert.Nil(t, ResolvePath(root, "user.missing.city"))
	assert.Equal(t, root, ResolvePath(root, ""))
	assert.Nil(t, ResolvePath("not-a-map", "field"))
}

func TestEvaluateDeterminism(t *testing.T) {
	e := New()
	bindings := map[string]any{"item": map[string]any{"v": 3.0}}

	first, err := e.EvaluateBool("item.v > 2 && item.v < 10", bindings)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := e.EvaluateBool("item.v > 2 && item.v < 10", bindings)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
