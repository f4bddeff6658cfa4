package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ctroy978/edmpc/internal/model"
)

// JobRepository handles grading job data access.
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

// Create inserts a new grading job in CREATED status.
func (r *JobRepository) Create(ctx context.Context, j *model.GradingJob) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO grading_jobs (id, test_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		j.ID, j.TestID, j.Status,
	).Scan(&j.CreatedAt)
}

// GetByID retrieves a grading job.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*model.GradingJob, error) {
	j := &model.GradingJob{}
	var errMsg *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, status, num_pages, num_students, num_errors,
		        error_message, stats_json, created_at
		 FROM grading_jobs
		 WHERE id = $1`, id,
	).Scan(&j.ID, &j.TestID, &j.Status, &j.NumPages, &j.NumStudents, &j.NumErrors,
		&errMsg, &j.Stats, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if errMsg != nil {
		j.ErrorMessage = *errMsg
	}
	return j, nil
}

// ListByTest retrieves jobs for a test, newest first.
func (r *JobRepository) ListByTest(ctx context.Context, testID string, limit int) ([]model.GradingJob, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, status, num_pages, num_students, num_errors,
		        error_message, stats_json, created_at
		 FROM grading_jobs
		 WHERE test_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, testID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.GradingJob
	for rows.Next() {
		var j model.GradingJob
		var errMsg *string
		if err := rows.Scan(&j.ID, &j.TestID, &j.Status, &j.NumPages, &j.NumStudents,
			&j.NumErrors, &errMsg, &j.Stats, &j.CreatedAt); err != nil {
			return nil, err
		}
		if errMsg != nil {
			j.ErrorMessage = *errMsg
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// SetStatus updates a job's status.
func (r *JobRepository) SetStatus(ctx context.Context, id string, status model.JobStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE grading_jobs SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetError moves a job to the terminal ERROR status with a message.
func (r *JobRepository) SetError(ctx context.Context, id, message string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE grading_jobs SET status = $1, error_message = $2 WHERE id = $3`,
		model.JobStatusError, message, id)
	return err
}

// StoreScans attaches the uploaded scan archive and moves the job to
// UPLOADED.
func (r *JobRepository) StoreScans(ctx context.Context, id string, scan []byte, numPages int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE grading_jobs
		 SET scan_archive = $1, num_pages = $2, status = $3
		 WHERE id = $4`,
		scan, numPages, model.JobStatusUploaded, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetScans retrieves the raw scan archive for a job.
func (r *JobRepository) GetScans(ctx context.Context, id string) ([]byte, error) {
	var scan []byte
	err := r.pool.QueryRow(ctx,
		`SELECT scan_archive FROM grading_jobs WHERE id = $1`, id,
	).Scan(&scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// FinishScanning records scan counts and moves the job to SCANNED.
func (r *JobRepository) FinishScanning(ctx context.Context, id string, numStudents, numErrors int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE grading_jobs
		 SET status = $1, num_students = $2, num_errors = $3
		 WHERE id = $4`,
		model.JobStatusScanned, numStudents, numErrors, id)
	return err
}

// Complete records batch statistics and moves the job to COMPLETED.
func (r *JobRepository) Complete(ctx context.Context, id string, stats json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE grading_jobs SET status = $1, stats_json = $2 WHERE id = $3`,
		model.JobStatusCompleted, stats, id)
	return err
}
