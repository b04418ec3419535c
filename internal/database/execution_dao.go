package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

// ExecutionStatus is the lifecycle state of a workflow execution record.
type ExecutionStatus string

const (
	// ExecutionStatusRunning marks an execution that has started but not
	// finished.
	ExecutionStatusRunning ExecutionStatus = "running"
	// ExecutionStatusCompleted marks an execution that finished without a
	// run-level error. Item-level errors embedded in the output do not
	// change the status.
	ExecutionStatusCompleted ExecutionStatus = "completed"
	// ExecutionStatusFailed marks an execution aborted by a run-level error.
	ExecutionStatusFailed ExecutionStatus = "failed"
)

// IsValid reports whether the status is a known lifecycle state.
func (s ExecutionStatus) IsValid() bool {
	switch s {
	case ExecutionStatusRunning, ExecutionStatusCompleted, ExecutionStatusFailed:
		return true
	}
	return false
}

// Execution is one persisted workflow run.
type Execution struct {
	ID          types.ID        `db:"id" json:"id"`
	WorkflowID  string          `db:"workflow_id" json:"workflow_id"`
	Status      ExecutionStatus `db:"status" json:"status"`
	TriggerKind string          `db:"trigger_kind" json:"trigger_kind"`
	Output      types.Items     `db:"output" json:"output,omitempty"`
	Error       string          `db:"error" json:"error,omitempty"`
	StartedAt   time.Time       `db:"started_at" json:"started_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	DurationMS  int64           `db:"duration_ms" json:"duration_ms,omitempty"`
}

// ExecutionDAO stores execution records. Create inserts a running record;
// Complete finalizes it with the run's outcome.
type ExecutionDAO interface {
	Create(ctx context.Context, exec *Execution) error
	Complete(ctx context.Context, id types.ID, status ExecutionStatus, output types.Items, errMsg string, duration time.Duration) error
	GetByID(ctx context.Context, id types.ID) (*Execution, error)
	ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*Execution, error)
}

type executionDAO struct {
	db *DB
}

// NewExecutionDAO creates an ExecutionDAO backed by db.
func NewExecutionDAO(db *DB) ExecutionDAO {
	return &executionDAO{db: db}
}

// Create inserts a new execution record in running state.
func (d *executionDAO) Create(ctx context.Context, exec *Execution) error {
	if exec == nil {
		return fmt.Errorf("execution must not be nil")
	}
	if exec.ID.IsZero() {
		exec.ID = types.NewID()
	}
	if exec.Status == "" {
		exec.Status = ExecutionStatusRunning
	}
	if !exec.Status.IsValid() {
		return fmt.Errorf("invalid execution status %q", exec.Status)
	}
	if exec.StartedAt.IsZero() {
		exec.StartedAt = time.Now().UTC()
	}
	if exec.TriggerKind == "" {
		exec.TriggerKind = "manual"
	}

	_, err := d.db.conn.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, status, trigger_kind, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		exec.ID.String(), exec.WorkflowID, string(exec.Status), exec.TriggerKind, exec.StartedAt)
	if err != nil {
		return fmt.Errorf("creating execution %s: %w", exec.ID, err)
	}
	return nil
}

// Complete finalizes an execution with its outcome.
func (d *executionDAO) Complete(ctx context.Context, id types.ID, status ExecutionStatus, output types.Items, errMsg string, duration time.Duration) error {
	if !status.IsValid() || status == ExecutionStatusRunning {
		return fmt.Errorf("cannot complete execution with status %q", status)
	}

	var outputBlob sql.NullString
	if output != nil {
		encoded, err := json.Marshal(output)
		if err != nil {
			return fmt.Errorf("encoding execution output: %w", err)
		}
		outputBlob = sql.NullString{String: string(encoded), Valid: true}
	}

	result, err := d.db.conn.ExecContext(ctx, `
		UPDATE executions
		SET status = ?, output = ?, error = NULLIF(?, ''), completed_at = ?, duration_ms = ?
		WHERE id = ?`,
		string(status), outputBlob, errMsg, time.Now().UTC(), duration.Milliseconds(), id.String())
	if err != nil {
		return fmt.Errorf("completing execution %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetByID returns one execution record.
func (d *executionDAO) GetByID(ctx context.Context, id types.ID) (*Execution, error) {
	row := d.db.conn.QueryRowContext(ctx, `
		SELECT id, workflow_id, status, trigger_kind, output, error, started_at, completed_at, duration_ms
		FROM executions WHERE id = ?`, id.String())

	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("execution %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading execution %s: %w", id, err)
	}
	return exec, nil
}

// ListByWorkflow returns a workflow's executions, newest first.
func (d *executionDAO) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.conn.QueryContext(ctx, `
		SELECT id, workflow_id, status, trigger_kind, output, error, started_at, completed_at, duration_ms
		FROM executions WHERE workflow_id = ?
		ORDER BY started_at DESC LIMIT ?`, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing executions for %s: %w", workflowID, err)
	}
	defer rows.Close()

	var execs []*Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning execution row: %w", err)
		}
		execs = append(execs, exec)
	}
	return execs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*Execution, error) {
	var exec Execution
	var rawID string
	var output, errMsg sql.NullString
	var completedAt sql.NullTime
	var durationMS sql.NullInt64

	if err := row.Scan(&rawID, &exec.WorkflowID, &exec.Status, &exec.TriggerKind,
		&output, &errMsg, &exec.StartedAt, &completedAt, &durationMS); err != nil {
		return nil, err
	}

	id, err := types.ParseID(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid execution id %q: %w", rawID, err)
	}
	exec.ID = id

	if output.Valid {
		if err := json.Unmarshal([]byte(output.String), &exec.Output); err != nil {
			return nil, fmt.Errorf("decoding execution output: %w", err)
		}
	}
	if errMsg.Valid {
		exec.Error = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		exec.CompletedAt = &t
	}
	if durationMS.Valid {
		exec.DurationMS = durationMS.Int64
	}
	return &exec, nil
}
