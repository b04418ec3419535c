package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

const TypeHTTPRequest = "httpRequest"

// HTTPRequest performs one outbound HTTP call per input item. A failed call
// produces an error-flagged item in the output batch; the batch itself never
// aborts on a per-item failure.
type HTTPRequest struct{}

func httpRequestDescription() *node.Description {
	return &node.Description{
		Type:        TypeHTTPRequest,
		DisplayName: "HTTP Request",
		Description: "Makes an HTTP request for every input item",
		Groups:      []string{node.GroupTransform},
		Inputs:      []node.PortSpec{{Name: node.PortMain, DisplayName: "Main", Required: true}},
		Outputs:     []node.PortSpec{{Name: node.PortMain, DisplayName: "Main"}},
		Parameters: []node.ParameterSpec{
			{
				Name:        "method",
				DisplayName: "Method",
				Type:        node.ParameterTypeOptions,
				Default:     "GET",
				Options: []node.ParameterOption{
					{Name: "GET", Value: "GET"},
					{Name: "POST", Value: "POST"},
					{Name: "PUT", Value: "PUT"},
					{Name: "PATCH", Value: "PATCH"},
					{Name: "DELETE", Value: "DELETE"},
				},
			},
			{Name: "url", DisplayName: "URL", Type: node.ParameterTypeString},
			{Name: "headers", DisplayName: "Headers", Type: node.ParameterTypeJSON, Default: map[string]any{}},
			{Name: "body", DisplayName: "Body", Type: node.ParameterTypeJSON},
			{Name: "timeoutMs", DisplayName: "Timeout (ms)", Type: node.ParameterTypeNumber, Default: 30000},
		},
	}
}

// Execute calls the configured URL once per input item. Each response item
// carries statusCode, body, and headers; a per-item failure is recorded as
// an error-flagged item carrying the originating item.
func (n *HTTPRequest) Execute(ctx context.Context, nc *node.Context, in *node.Input) (*node.Output, error) {
	url := nc.Parameters.String("url")
	if url == "" {
		return nil, fmt.Errorf("http request node requires a url parameter")
	}

	method := nc.Parameters.StringOr("method", http.MethodGet)
	timeout := time.Duration(nc.Parameters.Int("timeoutMs", 30000)) * time.Millisecond
	headers := nc.Parameters.Map("headers")

	client := http.DefaultClient
	if nc.Deps != nil && nc.Deps.HTTPClient != nil {
		client = nc.Deps.HTTPClient
	}

	input := in.Main()
	out := make(types.Items, 0, len(input))
	for _, item := range input {
		result, err := n.call(ctx, client, method, url, headers, nc.Parameters["body"], timeout)
		if err != nil {
			nc.Logger().Warn("http request failed", "url", url, "error", err)
			out = append(out, types.ErrorItem(err, types.Item{"item": item, "url": url}))
			continue
		}
		out = append(out, result)
	}
	return node.MainOutput(out), nil
}

func (n *HTTPRequest) call(ctx context.Context, client *http.Client, method, url string, headers map[string]any, body any, timeout time.Duration) (types.Item, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(callCtx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range headers {
		req.Header.Set(name, fmt.Sprintf("%v", value))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	// Decode JSON responses; everything else stays a string.
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		decoded = string(raw)
	}

	respHeaders := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		respHeaders[name] = resp.Header.Get(name)
	}

	return types.Item{
		"statusCode": resp.StatusCode,
		"body":       decoded,
		"headers":    respHeaders,
	}, nil
}
