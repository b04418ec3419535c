package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Zeeshanunique/agentworkflow/internal/database"
	"github.com/Zeeshanunique/agentworkflow/internal/engine"
	"github.com/Zeeshanunique/agentworkflow/internal/graph"
	"github.com/Zeeshanunique/agentworkflow/internal/nodes"
	"github.com/Zeeshanunique/agentworkflow/internal/service"
	"github.com/Zeeshanunique/agentworkflow/internal/trigger"
)

// app bundles the wired components of a running instance. Close tears
// them down in reverse dependency order.
type app struct {
	db       *database.DB
	service  *service.Service
	triggers *trigger.Service
	metrics  *prometheus.Registry
}

// buildApp opens the database and wires the workflow service with its
// trigger registry from the loaded configuration.
func buildApp(ctx context.Context) (*app, error) {
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	deps, err := buildDeps()
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := nodes.NewBuiltinRegistry()
	eng := engine.New(registry,
		engine.WithDeps(deps),
		engine.WithNodeTimeout(cfg.Engine.NodeTimeout),
	)

	svc := service.New(
		database.NewWorkflowDAO(db),
		database.NewExecutionDAO(db),
		graph.NewCompiler(registry),
		eng,
	)

	metrics := prometheus.NewRegistry()
	triggers := trigger.NewService(registry, svc,
		trigger.WithDeps(deps),
		trigger.WithMetrics(metrics),
	)
	svc.AttachTriggers(triggers)

	return &app{
		db:       db,
		service:  svc,
		triggers: triggers,
		metrics:  metrics,
	}, nil
}

// restoreTriggers re-registers the trigger nodes of every stored workflow.
// Called at serve startup so polling timers and webhook routes survive a
// restart.
func (a *app) restoreTriggers(ctx context.Context) error {
	summaries, err := a.service.ListWorkflows(ctx)
	if err != nil {
		return err
	}

	for _, summary := range summaries {
		def, err := a.service.WorkflowStructure(ctx, summary.ID)
		if err != nil {
			return err
		}
		for i := range def.Nodes {
			n := &def.Nodes[i]
			if !strings.HasPrefix(n.Type, "trigger.") {
				continue
			}
			kind := trigger.Kind(strings.TrimPrefix(n.Type, "trigger."))
			if !kind.IsValid() || kind == trigger.KindManual {
				continue
			}
			if err := a.triggers.Register(def.ID, n.ID, kind, n.Parameters, n.Credentials); err != nil {
				slog.Warn("failed to restore trigger",
					"workflow_id", def.ID, "node_id", n.ID, "error", err)
			}
		}
	}
	return nil
}

// Close stops polling timers and closes the database.
func (a *app) Close() error {
	a.triggers.Cleanup()
	return a.db.Close()
}
