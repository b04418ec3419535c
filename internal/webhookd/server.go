// Package webhookd serves the inbound webhook endpoint and routes matching
// requests into the trigger registry.
package webhookd

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/trigger"
)

const webhookPrefix = "/webhook"

// Config configures the server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:         addr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the webhook HTTP server. Requests under /webhook/ dispatch to
// the trigger registry; /healthz and /metrics serve operational endpoints.
type Server struct {
	triggers *trigger.Service
	logger   *slog.Logger
	server   *fasthttp.Server
	metrics  fasthttp.RequestHandler
	addr     string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsGatherer serves prometheus metrics from g on /metrics.
func WithMetricsGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
}

// New creates a webhook server dispatching into triggers.
func New(triggers *trigger.Service, cfg Config, opts ...Option) *Server {
	s := &Server{
		triggers: triggers,
		logger:   slog.Default(),
		addr:     cfg.Addr,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = &fasthttp.Server{
		Handler:      s.handle,
		Name:         "agentworkflow-webhookd",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// ListenAndServe blocks serving on the configured address.
func (s *Server) ListenAndServe() error {
	s.logger.Info("webhook server listening", "addr", s.addr)
	return s.server.ListenAndServe(s.addr)
}

// Serve blocks serving on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.server.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.ShutdownWithContext(ctx)
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())

	switch {
	case path == "/healthz":
		s.writeJSON(ctx, fasthttp.StatusOK, map[string]any{"status": "ok"})
	case path == "/metrics" && s.metrics != nil:
		s.metrics(ctx)
	case strings.HasPrefix(path, webhookPrefix):
		s.handleWebhook(ctx, path)
	default:
		s.writeJSON(ctx, fasthttp.StatusNotFound, map[string]any{"error": "not found"})
	}
}

func (s *Server) handleWebhook(ctx *fasthttp.RequestCtx, path string) {
	req := s.buildRequest(ctx, path)

	result := s.triggers.HandleWebhook(ctx, path, req)
	switch {
	case result.NotFound:
		s.writeJSON(ctx, fasthttp.StatusNotFound, map[string]any{"error": "no webhook registered for path"})
	case !result.Triggered:
		status := result.ResponseStatus
		if status == 0 {
			status = fasthttp.StatusBadRequest
		}
		s.writeJSON(ctx, status, map[string]any{"error": result.Error})
	default:
		status := result.ResponseStatus
		if status == 0 {
			status = fasthttp.StatusOK
		}
		body := result.ResponseBody
		if body == nil {
			body = map[string]any{"ok": true}
		}
		s.writeJSON(ctx, status, body)
	}
}

// buildRequest converts a fasthttp request into the transport-neutral shape
// trigger nodes consume. JSON bodies are decoded; anything else is passed
// through as a string.
func (s *Server) buildRequest(ctx *fasthttp.RequestCtx, path string) *node.WebhookRequest {
	headers := make(map[string]string)
	ctx.Request.Header.VisitAll(func(key, value []byte) {
		headers[http.CanonicalHeaderKey(string(key))] = string(value)
	})

	query := make(map[string]string)
	ctx.QueryArgs().VisitAll(func(key, value []byte) {
		query[string(key)] = string(value)
	})

	var body any
	if raw := ctx.PostBody(); len(raw) > 0 {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			body = decoded
		} else {
			body = string(raw)
		}
	}

	return &node.WebhookRequest{
		Method:  string(ctx.Method()),
		Path:    path,
		Headers: headers,
		Query:   query,
		Params:  map[string]string{},
		Body:    body,
	}
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	if err := json.NewEncoder(ctx).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
