package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/attribution-monitor/internal/domain"
)

// SyncLogRepo tracks sync-job runs so external schedulers can correlate a
// triggered run with its outcome.
type SyncLogRepo struct{ db *sql.DB }

// NewSyncLogRepo creates a Postgres-backed sync-log repository.
func NewSyncLogRepo(db *sql.DB) *SyncLogRepo { return &SyncLogRepo{db: db} }

// Start records a new running sync and returns its ID.
func (r *SyncLogRepo) Start(ctx context.Context, jobType string) (string, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_logs (id, job_type, status, message, rows_written, started_at)
		VALUES ($1, $2, $3, '', 0, $4)
	`, id, jobType, domain.SyncStatusRunning, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("start sync log: %w", err)
	}
	return id, nil
}

// Finish marks the run success or failed with a message and row count.
func (r *SyncLogRepo) Finish(ctx context.Context, id, status, message string, rowsWritten int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_logs
		SET status = $2, message = $3, rows_written = $4, finished_at = $5
		WHERE id = $1
	`, id, status, message, rowsWritten, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finish sync log: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a sync log row by ID.
func (r *SyncLogRepo) Get(ctx context.Context, id string) (*domain.SyncLog, error) {
	l := &domain.SyncLog{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, job_type, status, message, rows_written, started_at, finished_at
		FROM sync_logs WHERE id = $1
	`, id).Scan(&l.ID, &l.JobType, &l.Status, &l.Message, &l.RowsWritten, &l.StartedAt, &l.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync log: %w", err)
	}
	return l, nil
}
