package nodes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

func TestHTTPRequestPerItem(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "GET", r.Method)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	httpNode := &HTTPRequest{}
	params := node.Parameters{"method": "GET", "url": server.URL}
	deps := &node.Deps{HTTPClient: server.Client()}

	out, err := httpNode.Execute(context.Background(), testContext(params, deps),
		node.NewInput(types.Items{{"a": 1}, {"a": 2}}))
	require.NoError(t, err)

	items := out.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 200, items[0]["statusCode"])
	assert.Equal(t, map[string]any{"ok": true}, items[0]["body"])
	assert.Zero(t, types.CountErrorItems(items))
}

func TestHTTPRequestPostBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "abc", r.Header.Get("X-Token"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"name": "demo"}, body)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))
	defer server.Close()

	httpNode := &HTTPRequest{}
	params := node.Parameters{
		"method":  "POST",
		"url":     server.URL,
		"headers": map[string]any{"X-Token": "abc"},
		"body":    map[string]any{"name": "demo"},
	}
	deps := &node.Deps{HTTPClient: server.Client()}

	out, err := httpNode.Execute(context.Background(), testContext(params, deps),
		node.NewInput(types.Items{{}}))
	require.NoError(t, err)

	items := out.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 201, items[0]["statusCode"])
	assert.Equal(t, "created", items[0]["body"])
}

func TestHTTPRequestPerItemFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	server.Close()

	httpNode := &HTTPRequest{}
	params := node.Parameters{"url": server.URL, "timeoutMs": 500}

	out, err := httpNode.Execute(context.Background(), testContext(params, nil),
		node.NewInput(types.Items{{"a": 1}, {"a": 2}}))
	require.NoError(t, err)

	items := out.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 2, types.CountErrorItems(items))
	assert.True(t, types.IsErrorItem(items[0]))
}

func TestHTTPRequestMissingURL(t *testing.T) {
	httpNode := &HTTPRequest{}

	_, err := httpNode.Execute(context.Background(), testContext(node.Parameters{}, nil),
		node.NewInput(types.Items{{}}))
	assert.Error(t, err)
}
