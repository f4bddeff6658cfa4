package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ctroy978/edmpc/internal/grading"
	"github.com/ctroy978/edmpc/internal/model"
	"github.com/ctroy978/edmpc/internal/sheet"
)

// TestAdminStore is the full test data access used by test management.
type TestAdminStore interface {
	TestStore
	Create(ctx context.Context, t *model.BubbleTest) error
	List(ctx context.Context, status *model.TestStatus, limit int) ([]model.BubbleTest, error)
	SetStatus(ctx context.Context, id string, status model.TestStatus) error
	Delete(ctx context.Context, id string) error
	StoreLayout(ctx context.Context, testID string, layout json.RawMessage) error
	StoreAnswerKey(ctx context.Context, testID string, key json.RawMessage) error
}

// TestService handles bubble test management: the test itself, its sheet
// layout, and its answer key. Layout and key documents are validated with
// the same parsers the scan pipeline uses, so bad documents are rejected at
// write time instead of failing a job later.
type TestService struct {
	tests TestAdminStore
	log   zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(tests TestAdminStore, log zerolog.Logger) *TestService {
	return &TestService{
		tests: tests,
		log:   log.With().Str("component", "test_service").Logger(),
	}
}

// Create registers a new bubble test.
func (s *TestService) Create(ctx context.Context, name, description string) (*model.BubbleTest, error) {
	test := &model.BubbleTest{
		ID:          newTestID(),
		Name:        name,
		Description: description,
		Status:      model.TestStatusActive,
	}
	if err := s.tests.Create(ctx, test); err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}
	s.log.Info().Str("test_id", test.ID).Str("name", name).Msg("Test created")
	return test, nil
}

// Get retrieves one test.
func (s *TestService) Get(ctx context.Context, id string) (*model.BubbleTest, error) {
	return s.tests.GetByID(ctx, id)
}

// List retrieves tests, optionally filtered by status.
func (s *TestService) List(ctx context.Context, status *model.TestStatus, limit int) ([]model.BubbleTest, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.tests.List(ctx, status, limit)
}

// Archive moves a test to ARCHIVED; Unarchive restores it to ACTIVE.
func (s *TestService) Archive(ctx context.Context, id string) error {
	return s.tests.SetStatus(ctx, id, model.TestStatusArchived)
}

func (s *TestService) Unarchive(ctx context.Context, id string) error {
	return s.tests.SetStatus(ctx, id, model.TestStatusActive)
}

// Delete removes a test and everything derived from it.
func (s *TestService) Delete(ctx context.Context, id string) error {
	return s.tests.Delete(ctx, id)
}

// PutLayout validates and stores a sheet layout document for a test.
func (s *TestService) PutLayout(ctx context.Context, testID string, layout json.RawMessage) error {
	if _, err := s.tests.GetByID(ctx, testID); err != nil {
		return fmt.Errorf("get test: %w", err)
	}
	if _, err := sheet.Load(layout); err != nil {
		return err
	}
	if err := s.tests.StoreLayout(ctx, testID, layout); err != nil {
		return fmt.Errorf("store layout: %w", err)
	}
	s.log.Info().Str("test_id", testID).Msg("Layout stored")
	return nil
}

// GetLayout retrieves a test's layout document.
func (s *TestService) GetLayout(ctx context.Context, testID string) (json.RawMessage, error) {
	return s.tests.GetLayout(ctx, testID)
}

// PutAnswerKey validates and stores an answer-key document for a test.
func (s *TestService) PutAnswerKey(ctx context.Context, testID string, key json.RawMessage) error {
	if _, err := s.tests.GetByID(ctx, testID); err != nil {
		return fmt.Errorf("get test: %w", err)
	}
	if _, err := grading.ParseAnswerKey(key); err != nil {
		return err
	}
	if err := s.tests.StoreAnswerKey(ctx, testID, key); err != nil {
		return fmt.Errorf("store answer key: %w", err)
	}
	s.log.Info().Str("test_id", testID).Msg("Answer key stored")
	return nil
}

// GetAnswerKey retrieves a test's answer-key document.
func (s *TestService) GetAnswerKey(ctx context.Context, testID string) (json.RawMessage, error) {
	return s.tests.GetAnswerKey(ctx, testID)
}

func newTestID() string {
	return fmt.Sprintf("bt_%s_%s",
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8])
}
