package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ctroy978/edmpc/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// TestRepository handles bubble test, sheet layout, and answer key data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// Create inserts a new bubble test.
func (r *TestRepository) Create(ctx context.Context, t *model.BubbleTest) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO bubble_tests (id, name, description, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		t.ID, t.Name, t.Description, t.Status,
	).Scan(&t.CreatedAt)
}

// GetByID retrieves a test with layout/key presence flags.
func (r *TestRepository) GetByID(ctx context.Context, id string) (*model.BubbleTest, error) {
	t := &model.BubbleTest{}
	err := r.pool.QueryRow(ctx,
		`SELECT t.id, t.name, t.description, t.status, t.created_at,
		        EXISTS (SELECT 1 FROM bubble_sheets s WHERE s.test_id = t.id),
		        EXISTS (SELECT 1 FROM answer_keys k WHERE k.test_id = t.id)
		 FROM bubble_tests t
		 WHERE t.id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.Status, &t.CreatedAt, &t.HasLayout, &t.HasKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List retrieves tests, optionally filtered by status, newest first.
func (r *TestRepository) List(ctx context.Context, status *model.TestStatus, limit int) ([]model.BubbleTest, error) {
	query := `SELECT t.id, t.name, t.description, t.status, t.created_at,
	                 EXISTS (SELECT 1 FROM bubble_sheets s WHERE s.test_id = t.id),
	                 EXISTS (SELECT 1 FROM answer_keys k WHERE k.test_id = t.id)
	          FROM bubble_tests t`
	args := []any{}
	if status != nil {
		query += ` WHERE t.status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY t.created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.BubbleTest
	for rows.Next() {
		var t model.BubbleTest
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Status, &t.CreatedAt, &t.HasLayout, &t.HasKey); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// SetStatus updates a test's lifecycle status.
func (r *TestRepository) SetStatus(ctx context.Context, id string, status model.TestStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bubble_tests SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a test and, via cascading constraints, its sheets, keys,
// jobs, responses, and reports.
func (r *TestRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bubble_tests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StoreLayout stores a new sheet layout document for a test. The latest
// stored layout wins for scanning.
func (r *TestRepository) StoreLayout(ctx context.Context, testID string, layout json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bubble_sheets (test_id, layout_json) VALUES ($1, $2)`,
		testID, layout)
	return err
}

// GetLayout retrieves the most recent layout document for a test.
func (r *TestRepository) GetLayout(ctx context.Context, testID string) (json.RawMessage, error) {
	var layout json.RawMessage
	err := r.pool.QueryRow(ctx,
		`SELECT layout_json FROM bubble_sheets
		 WHERE test_id = $1
		 ORDER BY created_at DESC LIMIT 1`, testID,
	).Scan(&layout)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return layout, nil
}

// StoreAnswerKey replaces the answer key for a test.
func (r *TestRepository) StoreAnswerKey(ctx context.Context, testID string, key json.RawMessage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM answer_keys WHERE test_id = $1`, testID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO answer_keys (test_id, key_data) VALUES ($1, $2)`,
		testID, key); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetAnswerKey retrieves the most recent answer key for a test.
func (r *TestRepository) GetAnswerKey(ctx context.Context, testID string) (json.RawMessage, error) {
	var key json.RawMessage
	err := r.pool.QueryRow(ctx,
		`SELECT key_data FROM answer_keys
		 WHERE test_id = $1
		 ORDER BY created_at DESC LIMIT 1`, testID,
	).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}
