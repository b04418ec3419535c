package node

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cast"

	"github.com/Zeeshanunique/agentworkflow/internal/expr"
	"github.com/Zeeshanunique/agentworkflow/internal/llm"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

// Parameters is a node instance's parameter-value map. Accessors coerce
// loosely typed values (JSON numbers, strings from the editor) into the
// declared primitive types.
type Parameters map[string]any

// String returns the named parameter coerced to string, or "" when absent.
func (p Parameters) String(name string) string {
	return cast.ToString(p[name])
}

// StringOr returns the named parameter coerced to string, or def when the
// parameter is absent or empty.
func (p Parameters) StringOr(name, def string) string {
	if v, ok := p[name]; ok {
		if s := cast.ToString(v); s != "" {
			return s
		}
	}
	return def
}

// Bool returns the named parameter coerced to bool.
func (p Parameters) Bool(name string) bool {
	return cast.ToBool(p[name])
}

// Int returns the named parameter coerced to int, or def when absent.
func (p Parameters) Int(name string, def int) int {
	v, ok := p[name]
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// Float returns the named parameter coerced to float64, or def when absent.
func (p Parameters) Float(name string, def float64) float64 {
	v, ok := p[name]
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// Map returns the named parameter as a map, or an empty map.
func (p Parameters) Map(name string) map[string]any {
	m, err := cast.ToStringMapE(p[name])
	if err != nil {
		return map[string]any{}
	}
	return m
}

// Slice returns the named parameter as a slice, or nil.
func (p Parameters) Slice(name string) []any {
	s, err := cast.ToSliceE(p[name])
	if err != nil {
		return nil
	}
	return s
}

// MailMessage is one message fetched from a mailbox by the email trigger.
type MailMessage struct {
	From        string            `json:"from"`
	To          string            `json:"to"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	ReceivedAt  time.Time         `json:"received_at"`
	Attachments map[string][]byte `json:"-"`
}

// MailboxClient fetches messages for the email trigger's polling loop. The
// concrete transport (IMAP, a provider API) lives behind this boundary.
type MailboxClient interface {
	// FetchUnread returns the unread messages in the named mailbox and marks
	// them according to action ("markRead", "delete", or "none").
	FetchUnread(ctx context.Context, mailbox string, action string) ([]MailMessage, error)
}

// Deps carries the shared collaborators node executors may use. All fields
// are optional; nodes degrade gracefully when a dependency is absent.
type Deps struct {
	// Logger for node-level structured logging.
	Logger *slog.Logger

	// HTTPClient performs outbound calls for the HTTP request node.
	HTTPClient *http.Client

	// LLM resolves text-completion providers for agent nodes.
	LLM *llm.Registry

	// Mailbox feeds the email trigger's polling loop.
	Mailbox MailboxClient

	// Evaluator runs sandboxed expressions for the code and if nodes.
	Evaluator *expr.Evaluator
}

func (d *Deps) logger() *slog.Logger {
	if d == nil || d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Context carries the per-invocation environment of a node executor: which
// node of which workflow is running, its parameters, and the shared deps.
type Context struct {
	WorkflowID  string
	NodeID      string
	Parameters  Parameters
	Credentials string
	Deps        *Deps
}

// Logger returns a logger annotated with the node's identity.
func (c *Context) Logger() *slog.Logger {
	return c.Deps.logger().With("workflow_id", c.WorkflowID, "node_id", c.NodeID)
}

// Evaluator returns the shared expression evaluator, constructing a default
// one when none was injected.
func (c *Context) Evaluator() *expr.Evaluator {
	if c.Deps != nil && c.Deps.Evaluator != nil {
		return c.Deps.Evaluator
	}
	return expr.New()
}

// Input is the batch of items delivered to a node across its declared input
// ports.
type Input struct {
	// ByPort holds the gathered batch per input port name.
	ByPort map[string]types.Items
}

// NewInput builds an Input with the given main-port batch.
func NewInput(items types.Items) *Input {
	return &Input{ByPort: map[string]types.Items{PortMain: items}}
}

// Port returns the batch delivered to the named port; absent ports are empty
// batches.
func (in *Input) Port(name string) types.Items {
	if in == nil || in.ByPort == nil {
		return types.Items{}
	}
	if items, ok := in.ByPort[name]; ok && items != nil {
		return items
	}
	return types.Items{}
}

// Main returns the batch delivered to the main port.
func (in *Input) Main() types.Items {
	return in.Port(PortMain)
}

// Output is what a node execution produced: items partitioned by output port
// plus the single port the batch exited through. The exit port drives
// conditional successor resolution in the execution engine.
type Output struct {
	// ByPort holds the produced batch per output port name.
	ByPort map[string]types.Items `json:"by_port"`

	// Port is the output port the batch exited through.
	Port string `json:"port"`
}

// MainOutput builds a single-port Output on the main port.
func MainOutput(items types.Items) *Output {
	if items == nil {
		items = types.Items{}
	}
	return &Output{
		ByPort: map[string]types.Items{PortMain: items},
		Port:   PortMain,
	}
}

// Items returns the batch on the exit port.
func (o *Output) Items() types.Items {
	if o == nil || o.ByPort == nil {
		return types.Items{}
	}
	if items, ok := o.ByPort[o.Port]; ok && items != nil {
		return items
	}
	return types.Items{}
}

// PortItems returns the batch on the named port; absent ports are empty.
func (o *Output) PortItems(name string) types.Items {
	if o == nil || o.ByPort == nil {
		return types.Items{}
	}
	if items, ok := o.ByPort[name]; ok && items != nil {
		return items
	}
	return types.Items{}
}

// WebhookRequest is the transport-neutral shape of an inbound webhook
// request handed to a webhook-capable trigger node.
type WebhookRequest struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
	Query   map[string]string `json:"query"`
	Params  map[string]string `json:"params"`
	Body    any               `json:"body"`
}

// Header returns a header value with case-insensitive lookup of the common
// canonical forms.
func (r *WebhookRequest) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	if v, ok := r.Headers[name]; ok {
		return v
	}
	if v, ok := r.Headers[http.CanonicalHeaderKey(name)]; ok {
		return v
	}
	return ""
}

// WebhookResult is what a webhook handler produced: the items to run the
// workflow with plus the response the caller should send when the node's
// response mode is immediate.
type WebhookResult struct {
	Items          types.Items `json:"items"`
	ResponseStatus int         `json:"response_status"`
	ResponseBody   any         `json:"response_body"`
	Immediate      bool        `json:"immediate"`
}

// Executor is the unit of work behind every node type. Execute transforms
// the delivered input batches into an Output. Implementations must be safe
// for one-shot use; the registry creates a fresh instance per invocation.
type Executor interface {
	Execute(ctx context.Context, nc *Context, in *Input) (*Output, error)
}

// Poller is implemented by trigger executors driven by a recurring timer.
// A non-empty returned batch fires the owning workflow.
type Poller interface {
	Poll(ctx context.Context, nc *Context) (types.Items, error)
}

// WebhookHandler is implemented by trigger executors that answer inbound
// webhook requests synchronously.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, nc *Context, req *WebhookRequest) (*WebhookResult, error)
}
