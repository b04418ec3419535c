package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Zeeshanunique/agentworkflow/internal/graph"
)

// ErrNotFound reports a lookup for a row that does not exist.
var ErrNotFound = errors.New("not found")

// WorkflowSummary is one row of a workflow listing.
type WorkflowSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NodeCount int       `json:"node_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowDAO stores workflow definitions as JSON blobs keyed by workflow
// id. GetStructure returns the stored definition verbatim; it is exactly
// the structure the graph compiler consumes.
type WorkflowDAO interface {
	Save(ctx context.Context, def *graph.Definition) error
	GetStructure(ctx context.Context, workflowID string) (*graph.Definition, error)
	List(ctx context.Context) ([]WorkflowSummary, error)
	Delete(ctx context.Context, workflowID string) (bool, error)
}

type workflowDAO struct {
	db *DB
}

// NewWorkflowDAO creates a WorkflowDAO backed by db.
func NewWorkflowDAO(db *DB) WorkflowDAO {
	return &workflowDAO{db: db}
}

// Save inserts or updates a workflow definition.
func (d *workflowDAO) Save(ctx context.Context, def *graph.Definition) error {
	if def == nil || def.ID == "" {
		return fmt.Errorf("workflow definition must have an id")
	}

	blob, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding workflow %s: %w", def.ID, err)
	}

	now := time.Now().UTC()
	_, err = d.db.conn.ExecContext(ctx, `
		INSERT INTO workflows (id, name, definition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			definition = excluded.definition,
			updated_at = excluded.updated_at`,
		def.ID, def.Name, string(blob), now, now)
	if err != nil {
		return fmt.Errorf("saving workflow %s: %w", def.ID, err)
	}
	return nil
}

// GetStructure returns the stored definition for a workflow id.
func (d *workflowDAO) GetStructure(ctx context.Context, workflowID string) (*graph.Definition, error) {
	var blob string
	err := d.db.conn.QueryRowContext(ctx,
		`SELECT definition FROM workflows WHERE id = ?`, workflowID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading workflow %s: %w", workflowID, err)
	}

	var def graph.Definition
	if err := json.Unmarshal([]byte(blob), &def); err != nil {
		return nil, fmt.Errorf("decoding workflow %s: %w", workflowID, err)
	}
	return &def, nil
}

// List returns summaries of all stored workflows, most recently updated
// first.
func (d *workflowDAO) List(ctx context.Context) ([]WorkflowSummary, error) {
	rows, err := d.db.conn.QueryContext(ctx,
		`SELECT id, name, definition, updated_at FROM workflows ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing workflows: %w", err)
	}
	defer rows.Close()

	var summaries []WorkflowSummary
	for rows.Next() {
		var s WorkflowSummary
		var blob string
		if err := rows.Scan(&s.ID, &s.Name, &blob, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning workflow row: %w", err)
		}
		var def graph.Definition
		if err := json.Unmarshal([]byte(blob), &def); err == nil {
			s.NodeCount = len(def.Nodes)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes a workflow and, via the foreign key, its executions. It
// reports whether a row existed.
func (d *workflowDAO) Delete(ctx context.Context, workflowID string) (bool, error) {
	result, err := d.db.conn.ExecContext(ctx,
		`DELETE FROM workflows WHERE id = ?`, workflowID)
	if err != nil {
		return false, fmt.Errorf("deleting workflow %s: %w", workflowID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
