package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ctroy978/edmpc/internal/model"
)

// ResponseRepository handles per-page student response and report data access.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// DeleteByJob removes all response rows for a job. Called before rescanning
// so re-processing fully replaces the prior response set.
func (r *ResponseRepository) DeleteByJob(ctx context.Context, jobID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM student_responses WHERE job_id = $1`, jobID)
	return err
}

// Insert stores one decoded page.
func (r *ResponseRepository) Insert(ctx context.Context, resp *model.StudentResponse) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO student_responses
		   (job_id, page_number, student_id, answers_json, scan_status, scan_warnings)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		resp.JobID, resp.PageNumber, resp.StudentID, resp.Answers,
		resp.ScanStatus, resp.ScanWarnings,
	).Scan(&resp.ID)
}

// ListByJob retrieves all responses for a job in page order. When okOnly is
// set, only successfully decoded pages are returned.
func (r *ResponseRepository) ListByJob(ctx context.Context, jobID string, okOnly bool) ([]model.StudentResponse, error) {
	query := `SELECT id, job_id, page_number, student_id, answers_json,
	                 scan_status, scan_warnings, score, percent_grade
	          FROM student_responses
	          WHERE job_id = $1`
	if okOnly {
		query += ` AND scan_status = 'OK'`
	}
	query += ` ORDER BY page_number`

	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []model.StudentResponse
	for rows.Next() {
		var resp model.StudentResponse
		if err := rows.Scan(&resp.ID, &resp.JobID, &resp.PageNumber, &resp.StudentID,
			&resp.Answers, &resp.ScanStatus, &resp.ScanWarnings,
			&resp.Score, &resp.PercentGrade); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// SetGrade records one response's score and percent.
func (r *ResponseRepository) SetGrade(ctx context.Context, id int64, score, percent float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE student_responses
		 SET score = $1, percent_grade = $2
		 WHERE id = $3`, score, percent, id)
	return err
}

// AppendWarning adds a diagnostic to a response's warning list.
func (r *ResponseRepository) AppendWarning(ctx context.Context, id int64, warning string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE student_responses
		 SET scan_warnings = COALESCE(scan_warnings, '{}') || $1::text
		 WHERE id = $2`, warning, id)
	return err
}

// StoreReport replaces the report of the given type for a job.
func (r *ResponseRepository) StoreReport(ctx context.Context, report *model.GradingReport) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM grading_reports WHERE job_id = $1 AND report_type = $2`,
		report.JobID, report.ReportType); err != nil {
		return err
	}
	if err := tx.QueryRow(ctx,
		`INSERT INTO grading_reports (job_id, report_type, filename, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		report.JobID, report.ReportType, report.Filename, report.Content,
	).Scan(&report.ID, &report.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetReport retrieves the latest report of the given type for a job.
func (r *ResponseRepository) GetReport(ctx context.Context, jobID, reportType string) (*model.GradingReport, error) {
	report := &model.GradingReport{JobID: jobID, ReportType: reportType}
	err := r.pool.QueryRow(ctx,
		`SELECT id, filename, content, created_at
		 FROM grading_reports
		 WHERE job_id = $1 AND report_type = $2
		 ORDER BY created_at DESC LIMIT 1`, jobID, reportType,
	).Scan(&report.ID, &report.Filename, &report.Content, &report.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}
