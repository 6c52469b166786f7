package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/brewq/internal/printing"
	"github.com/desertthunder/brewq/internal/shared"
)

// PrintJob is one recorded label print attempt.
type PrintJob struct {
	ID        string
	OrderID   int64
	Outcome   printing.Outcome
	Detail    string
	CreatedAt time.Time
}

// PrintJobRepository keeps a local history of print attempts.
//
// It satisfies [printing.Recorder] so a [printing.Trigger] can log every job it finishes.
type PrintJobRepository struct {
	db *sql.DB
}

// NewPrintJobRepository creates a new [PrintJobRepository] with the given database connection
func NewPrintJobRepository(db *sql.DB) *PrintJobRepository {
	return &PrintJobRepository{db: db}
}

// RecordPrint implements [printing.Recorder].
func (r *PrintJobRepository) RecordPrint(ctx context.Context, job printing.JobResult) error {
	id := job.ID
	if id == "" {
		id = shared.GenerateID()
	}

	query := `
		INSERT INTO print_jobs (id, order_id, outcome, detail, created_at) VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, id, job.OrderID, string(job.Outcome), detail(job), time.Now()); err != nil {
		return fmt.Errorf("failed to insert print job: %w", err)
	}
	return nil
}

func detail(job printing.JobResult) string {
	switch {
	case job.Err != nil:
		return job.Err.Error()
	case job.Fallback:
		return "fallback"
	default:
		return ""
	}
}

// Get retrieves a print job by ID.
func (r *PrintJobRepository) Get(id string) (*PrintJob, error) {
	query := `
		SELECT id, order_id, outcome, detail, created_at
		FROM print_jobs
		WHERE id = ?
	`

	job, err := scanPrintJob(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("print job not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query print job: %w", err)
	}
	return job, nil
}

// List returns print jobs newest first, optionally filtered by the
// "order_id" (int64) criterion and capped by "limit" (int).
func (r *PrintJobRepository) List(criteria map[string]any) ([]*PrintJob, error) {
	query := `
		SELECT id, order_id, outcome, detail, created_at
		FROM print_jobs
		WHERE 1 = 1
	`
	args := []any{}

	if orderID, ok := criteria["order_id"].(int64); ok && orderID > 0 {
		query += " AND order_id = ?"
		args = append(args, orderID)
	}
	if outcome, ok := criteria["outcome"].(printing.Outcome); ok && outcome != "" {
		query += " AND outcome = ?"
		args = append(args, string(outcome))
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query print jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*PrintJob
	for rows.Next() {
		job, err := scanPrintJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan print job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return jobs, nil
}

// Prune deletes jobs recorded before cutoff and reports how many were removed.
func (r *PrintJobRepository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM print_jobs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune print jobs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrintJob(s scanner) (*PrintJob, error) {
	var (
		job     PrintJob
		outcome string
	)
	if err := s.Scan(&job.ID, &job.OrderID, &outcome, &job.Detail, &job.CreatedAt); err != nil {
		return nil, err
	}
	job.Outcome = printing.Outcome(outcome)
	return &job, nil
}
