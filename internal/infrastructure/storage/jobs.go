package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"blogdigest/internal/domain"
	"blogdigest/internal/ports"
)

// JobRepository records in-flight batch jobs so a restarted poller can
// rediscover and resume them after a crash.
type JobRepository struct {
	db *sqlx.DB
}

var _ ports.JobStore = (*JobRepository)(nil)

// NewJobRepository wires a sqlx connection.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

type jobRow struct {
	ID        string         `db:"id"`
	Date      string         `db:"date"`
	Status    string         `db:"status"`
	PostIDs   pq.StringArray `db:"post_ids"`
	InputKey  string         `db:"input_key"`
	OutputKey string         `db:"output_key"`
}

// SaveJob upserts the job record.
func (r *JobRepository) SaveJob(ctx context.Context, job domain.BatchJob) error {
	query, args, err := psql.Insert("batch_jobs").
		Columns("id", "date", "status", "post_ids", "input_key", "output_key").
		Values(job.ID, job.Date, string(job.Status), pq.StringArray(job.PostIDs), job.InputKey, job.OutputKey).
		Suffix("ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job %s: %w", job.ID, err)
	}
	return nil
}

// PendingJob returns the in-flight job for the date, or nil when there is
// none.
func (r *JobRepository) PendingJob(ctx context.Context, date string) (*domain.BatchJob, error) {
	query, args, err := psql.
		Select("id", "date", "status", "post_ids", "input_key", "output_key").
		From("batch_jobs").
		Where("date = ?", date).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var row jobRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query pending job: %w", err)
	}

	return &domain.BatchJob{
		ID:        row.ID,
		Date:      row.Date,
		Status:    domain.JobStatus(row.Status),
		PostIDs:   []string(row.PostIDs),
		InputKey:  row.InputKey,
		OutputKey: row.OutputKey,
	}, nil
}

// DeleteJob discards a job record once its terminal status was ingested.
func (r *JobRepository) DeleteJob(ctx context.Context, id string) error {
	query, args, err := psql.Delete("batch_jobs").Where("id = ?", id).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}
