package nodes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

const TypeWebhookTrigger = "trigger.webhook"

// Response modes of the webhook trigger.
const (
	ResponseModeImmediate = "immediate"
	ResponseModeAfterRun  = "afterRun"
)

// WebhookTrigger starts a workflow from an inbound HTTP-shaped request. The
// transport layer delivers the request through HandleWebhook; the node
// validates method and authentication, shapes the request into an item, and
// decides whether the caller is answered immediately or after the run.
type WebhookTrigger struct{}

func webhookTriggerDescription() *node.Description {
	return &node.Description{
		Type:        TypeWebhookTrigger,
		DisplayName: "Webhook",
		Description: "Starts the workflow when an HTTP request arrives",
		Groups:      []string{node.GroupTrigger},
		Inputs:      []node.PortSpec{},
		Outputs:     []node.PortSpec{{Name: node.PortMain, DisplayName: "Main"}},
		Parameters: []node.ParameterSpec{
			{
				Name:        "method",
				DisplayName: "HTTP Method",
				Type:        node.ParameterTypeOptions,
				Default:     "POST",
				Options: []node.ParameterOption{
					{Name: "GET", Value: "GET"},
					{Name: "POST", Value: "POST"},
					{Name: "PUT", Value: "PUT"},
					{Name: "DELETE", Value: "DELETE"},
				},
			},
			{
				Name:        "path",
				DisplayName: "Path",
				Type:        node.ParameterTypeString,
				Default:     "/webhook",
				Description: "Request paths containing this value dispatch to the node",
			},
			{
				Name:        "responseMode",
				DisplayName: "Response Mode",
				Type:        node.ParameterTypeOptions,
				Default:     ResponseModeImmediate,
				Options: []node.ParameterOption{
					{Name: "Immediately", Value: ResponseModeImmediate},
					{Name: "After Workflow Run", Value: ResponseModeAfterRun},
				},
			},
			{
				Name:        "responseCode",
				DisplayName: "Response Code",
				Type:        node.ParameterTypeNumber,
				Default:     200,
				DisplayWhen: map[string][]any{"responseMode": {ResponseModeImmediate}},
			},
			{
				Name:        "responseBody",
				DisplayName: "Response Body",
				Type:        node.ParameterTypeJSON,
				Default:     map[string]any{"ok": true},
				DisplayWhen: map[string][]any{"responseMode": {ResponseModeImmediate}},
			},
			{
				Name:        "authentication",
				DisplayName: "Authentication",
				Type:        node.ParameterTypeOptions,
				Default:     "none",
				Options: []node.ParameterOption{
					{Name: "None", Value: "none"},
					{Name: "Header Auth", Value: "headerAuth"},
				},
			},
			{
				Name:        "headerName",
				DisplayName: "Header Name",
				Type:        node.ParameterTypeString,
				Default:     "Authorization",
				DisplayWhen: map[string][]any{"authentication": {"headerAuth"}},
			},
			{
				Name:        "headerValue",
				DisplayName: "Header Value",
				Type:        node.ParameterTypeString,
				DisplayWhen: map[string][]any{"authentication": {"headerAuth"}},
			},
		},
		IsTrigger:       true,
		SupportsWebhook: true,
	}
}

// Execute passes through the items handed over from HandleWebhook, so the
// trigger behaves like any other entry node inside a compiled plan.
func (t *WebhookTrigger) Execute(_ context.Context, _ *node.Context, in *node.Input) (*node.Output, error) {
	return node.MainOutput(in.Main()), nil
}

// HandleWebhook validates and shapes an inbound request. A method mismatch
// or failed header authentication is an error; the dispatch layer converts
// it into a non-triggered result.
func (t *WebhookTrigger) HandleWebhook(_ context.Context, nc *node.Context, req *node.WebhookRequest) (*node.WebhookResult, error) {
	wantMethod := nc.Parameters.StringOr("method", "POST")
	if req.Method != "" && req.Method != wantMethod {
		return nil, fmt.Errorf("webhook expects method %s, got %s", wantMethod, req.Method)
	}

	if nc.Parameters.String("authentication") == "headerAuth" {
		name := nc.Parameters.StringOr("headerName", "Authorization")
		want := nc.Parameters.String("headerValue")
		if got := req.Header(name); want == "" || got != want {
			return nil, fmt.Errorf("webhook authentication failed for header %s", name)
		}
	}

	item := types.Item{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"triggeredBy": "webhook",
		"method":      req.Method,
		"path":        req.Path,
		"headers":     req.Headers,
		"query":       req.Query,
		"params":      req.Params,
		"body":        req.Body,
	}

	result := &node.WebhookResult{Items: types.Items{item}}
	if nc.Parameters.StringOr("responseMode", ResponseModeImmediate) == ResponseModeImmediate {
		result.Immediate = true
		result.ResponseStatus = nc.Parameters.Int("responseCode", http.StatusOK)
		result.ResponseBody = nc.Parameters["responseBody"]
		if result.ResponseBody == nil {
			result.ResponseBody = map[string]any{"ok": true}
		}
	}
	return result, nil
}
