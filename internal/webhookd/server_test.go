package webhookd

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/nodes"
	"github.com/Zeeshanunique/agentworkflow/internal/trigger"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

type stubRunner struct{}

func (stubRunner) RunWorkflow(_ context.Context, _ string, input types.Items) (types.Items, error) {
	return input, nil
}

func startTestServer(t *testing.T, opts ...Option) (*trigger.Service, *http.Client) {
	t.Helper()

	triggers := trigger.NewService(nodes.NewBuiltinRegistry(), stubRunner{})
	t.Cleanup(triggers.Cleanup)

	srv := New(triggers, DefaultConfig(":0"), opts...)
	ln := fasthttputil.NewInmemoryListener()
	go srv.Serve(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		ln.Close()
	})

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(context.Context, string, string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}
	return triggers, client
}

func registerHook(t *testing.T, triggers *trigger.Service, path string) {
	t.Helper()
	require.NoError(t, triggers.Register("wf1", "hook", trigger.KindWebhook, node.Parameters{
		"method":       "POST",
		"path":         path,
		"responseMode": nodes.ResponseModeImmediate,
		"responseCode": 200,
		"responseBody": map[string]any{"received": true},
	}, ""))
}

func TestHealthz(t *testing.T) {
	_, client := startTestServer(t)

	resp, err := client.Get("http://server/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestWebhookDispatch(t *testing.T) {
	triggers, client := startTestServer(t)
	registerHook(t, triggers, "/webhook/demo")

	resp, err := client.Post("http://server/webhook/demo", "application/json",
		strings.NewReader(`{"x": 1}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["received"])
}

func TestWebhookNotFound(t *testing.T) {
	triggers, client := startTestServer(t)
	registerHook(t, triggers, "/webhook/demo")

	resp, err := client.Post("http://server/webhook/unknown", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhookMethodMismatch(t *testing.T) {
	triggers, client := startTestServer(t)
	registerHook(t, triggers, "/webhook/demo")

	resp, err := client.Get("http://server/webhook/demo")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "method")
}

func TestUnknownPath(t *testing.T) {
	_, client := startTestServer(t)

	resp, err := client.Get("http://server/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	_, client := startTestServer(t, WithMetricsGatherer(registry))

	resp, err := client.Get("http://server/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "test_counter_total")
}
