package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ctroy978/edmpc/internal/grading"
	"github.com/ctroy978/edmpc/internal/model"
	"github.com/ctroy978/edmpc/internal/omr"
	"github.com/ctroy978/edmpc/internal/raster"
	"github.com/ctroy978/edmpc/internal/sheet"
)

// Common grading job errors.
var (
	ErrJobState     = errors.New("job is not in a valid state for this operation")
	ErrTestNotReady = errors.New("test must have a sheet layout and an answer key")
	ErrNoScans      = errors.New("no scans uploaded for this job")
)

// TestStore is the test/layout/key access the orchestrator needs.
type TestStore interface {
	GetByID(ctx context.Context, id string) (*model.BubbleTest, error)
	GetLayout(ctx context.Context, testID string) (json.RawMessage, error)
	GetAnswerKey(ctx context.Context, testID string) (json.RawMessage, error)
}

// JobStore persists grading jobs.
type JobStore interface {
	Create(ctx context.Context, j *model.GradingJob) error
	GetByID(ctx context.Context, id string) (*model.GradingJob, error)
	ListByTest(ctx context.Context, testID string, limit int) ([]model.GradingJob, error)
	SetStatus(ctx context.Context, id string, status model.JobStatus) error
	SetError(ctx context.Context, id, message string) error
	StoreScans(ctx context.Context, id string, scan []byte, numPages int) error
	GetScans(ctx context.Context, id string) ([]byte, error)
	FinishScanning(ctx context.Context, id string, numStudents, numErrors int) error
	Complete(ctx context.Context, id string, stats json.RawMessage) error
}

// ResponseStore persists per-page responses and reports.
type ResponseStore interface {
	DeleteByJob(ctx context.Context, jobID string) error
	Insert(ctx context.Context, resp *model.StudentResponse) error
	ListByJob(ctx context.Context, jobID string, okOnly bool) ([]model.StudentResponse, error)
	SetGrade(ctx context.Context, id int64, score, percent float64) error
	AppendWarning(ctx context.Context, id int64, warning string) error
	StoreReport(ctx context.Context, report *model.GradingReport) error
	GetReport(ctx context.Context, jobID, reportType string) (*model.GradingReport, error)
}

// EventPublisher broadcasts job status transitions to watchers. A nil
// publisher is allowed and disables events.
type EventPublisher interface {
	PublishJobStatus(ctx context.Context, jobID string, status model.JobStatus)
}

// GradingJobService drives batches of scanned sheets through scan, decode,
// and grade. Pages within one job are processed strictly in sequence: the
// clear-then-reinsert re-processing semantics require a single writer per
// job's response set.
type GradingJobService struct {
	tests     TestStore
	jobs      JobStore
	responses ResponseStore
	provider  raster.Provider
	events    EventPublisher
	th        omr.Thresholds
	log       zerolog.Logger
}

// NewGradingJobService creates a new GradingJobService.
func NewGradingJobService(
	tests TestStore,
	jobs JobStore,
	responses ResponseStore,
	provider raster.Provider,
	events EventPublisher,
	th omr.Thresholds,
	log zerolog.Logger,
) *GradingJobService {
	return &GradingJobService{
		tests:     tests,
		jobs:      jobs,
		responses: responses,
		provider:  provider,
		events:    events,
		th:        th,
		log:       log.With().Str("component", "grading_job_service").Logger(),
	}
}

// CreateJob starts a new grading job for a test. The test must already have
// a sheet layout and an answer key.
func (s *GradingJobService) CreateJob(ctx context.Context, testID string) (*model.GradingJob, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	if !test.HasLayout || !test.HasKey {
		return nil, ErrTestNotReady
	}

	job := &model.GradingJob{
		ID:     newJobID(),
		TestID: testID,
		Status: model.JobStatusCreated,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.log.Info().Str("job_id", job.ID).Str("test_id", testID).Msg("Grading job created")
	return job, nil
}

// UploadScans attaches a scan archive to a CREATED or UPLOADED job and
// counts its pages. Re-uploading replaces the previous archive.
func (s *GradingJobService) UploadScans(ctx context.Context, jobID string, scan []byte) (int, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("get job: %w", err)
	}
	if job.Status != model.JobStatusCreated && job.Status != model.JobStatusUploaded {
		return 0, fmt.Errorf("%w: upload requires CREATED or UPLOADED, got %s", ErrJobState, job.Status)
	}

	numPages, err := s.provider.CountPages(scan)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}

	if err := s.jobs.StoreScans(ctx, jobID, scan, numPages); err != nil {
		return 0, fmt.Errorf("store scans: %w", err)
	}
	s.publish(ctx, jobID, model.JobStatusUploaded)

	s.log.Info().Str("job_id", jobID).Int("num_pages", numPages).Msg("Scans uploaded")
	return numPages, nil
}

// ProcessScans decodes every page of the uploaded archive. Calling it again
// while the job is UPLOADED or SCANNING discards all prior response rows
// before rescanning, so retries fully replace earlier results. Per-page
// decode failures are recorded as ERROR responses and do not abort the
// batch; job-level failures (unreadable archive, missing layout) move the
// job to ERROR. Returns the number of decoded students and error pages.
func (s *GradingJobService) ProcessScans(ctx context.Context, jobID string) (int, int, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return 0, 0, fmt.Errorf("get job: %w", err)
	}
	if job.Status != model.JobStatusUploaded && job.Status != model.JobStatusScanning {
		return 0, 0, fmt.Errorf("%w: processing requires UPLOADED or SCANNING, got %s", ErrJobState, job.Status)
	}

	scan, err := s.jobs.GetScans(ctx, jobID)
	if err != nil {
		return 0, 0, fmt.Errorf("get scans: %w", err)
	}
	if len(scan) == 0 {
		return 0, 0, ErrNoScans
	}

	layoutDoc, err := s.tests.GetLayout(ctx, job.TestID)
	if err != nil {
		return 0, 0, s.failJob(ctx, jobID, fmt.Errorf("get layout: %w", err))
	}
	layout, err := sheet.Load(layoutDoc)
	if err != nil {
		return 0, 0, s.failJob(ctx, jobID, err)
	}

	if err := s.jobs.SetStatus(ctx, jobID, model.JobStatusScanning); err != nil {
		return 0, 0, fmt.Errorf("set status: %w", err)
	}
	s.publish(ctx, jobID, model.JobStatusScanning)

	// Re-processing replaces the prior response set wholesale.
	if err := s.responses.DeleteByJob(ctx, jobID); err != nil {
		return 0, 0, fmt.Errorf("clear responses: %w", err)
	}

	pages, pageErrs, err := s.provider.Pages(scan)
	if err != nil {
		return 0, 0, s.failJob(ctx, jobID, fmt.Errorf("read scan archive: %w", err))
	}

	scanner := omr.NewScanner(layout, s.th)
	numStudents, numErrors := 0, 0

	for i, page := range pages {
		result := scanPage(scanner, page, pageErrs[i])

		status := model.ScanStatusOK
		if result.StudentID == omr.StudentIDError {
			status = model.ScanStatusError
			numErrors++
		} else {
			numStudents++
		}

		answers, err := json.Marshal(stringKeyed(result.Answers))
		if err != nil {
			return 0, 0, fmt.Errorf("marshal answers: %w", err)
		}
		resp := &model.StudentResponse{
			JobID:        jobID,
			PageNumber:   result.PageNumber,
			StudentID:    result.StudentID,
			Answers:      answers,
			ScanStatus:   status,
			ScanWarnings: result.Warnings,
		}
		if err := s.responses.Insert(ctx, resp); err != nil {
			return 0, 0, s.failJob(ctx, jobID, fmt.Errorf("store response: %w", err))
		}
	}

	if err := s.jobs.FinishScanning(ctx, jobID, numStudents, numErrors); err != nil {
		return 0, 0, fmt.Errorf("finish scanning: %w", err)
	}
	s.publish(ctx, jobID, model.JobStatusScanned)

	s.log.Info().
		Str("job_id", jobID).
		Int("num_students", numStudents).
		Int("num_errors", numErrors).
		Msg("Scan processing finished")
	return numStudents, numErrors, nil
}

// scanPage decodes one page, absorbing both raster failures and anything
// unexpected the decode might panic on into a synthetic ERROR result.
func scanPage(scanner *omr.Scanner, page raster.Page, rasterErr error) (result omr.ScanResult) {
	if rasterErr != nil {
		return omr.ErrorResult(page.PageNumber, rasterErr)
	}
	defer func() {
		if r := recover(); r != nil {
			result = omr.ErrorResult(page.PageNumber, fmt.Errorf("decode panic: %v", r))
		}
	}()
	return scanner.ScanImage(page.PageNumber, page.Image)
}

// GradeJob grades every successfully decoded response against the test's
// answer key, stores the gradebook CSV, and completes the job with batch
// statistics. Responses whose student ID is the ERROR sentinel are excluded
// from grading and from the gradebook.
func (s *GradingJobService) GradeJob(ctx context.Context, jobID string) (grading.BatchStats, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return grading.BatchStats{}, fmt.Errorf("get job: %w", err)
	}
	if job.Status != model.JobStatusScanned && job.Status != model.JobStatusGrading {
		return grading.BatchStats{}, fmt.Errorf("%w: grading requires SCANNED, got %s", ErrJobState, job.Status)
	}

	keyDoc, err := s.tests.GetAnswerKey(ctx, job.TestID)
	if err != nil {
		return grading.BatchStats{}, s.failJob(ctx, jobID, fmt.Errorf("get answer key: %w", err))
	}
	specs, err := grading.ParseAnswerKey(keyDoc)
	if err != nil {
		return grading.BatchStats{}, s.failJob(ctx, jobID, err)
	}
	engine := grading.NewEngine(specs)

	if err := s.jobs.SetStatus(ctx, jobID, model.JobStatusGrading); err != nil {
		return grading.BatchStats{}, fmt.Errorf("set status: %w", err)
	}
	s.publish(ctx, jobID, model.JobStatusGrading)

	responses, err := s.responses.ListByJob(ctx, jobID, true)
	if err != nil {
		return grading.BatchStats{}, fmt.Errorf("list responses: %w", err)
	}

	graded := make([]grading.GradedResponse, 0, len(responses))
	for _, resp := range responses {
		answers, err := decodeAnswers(resp.Answers)
		if err != nil {
			s.warnResponse(ctx, resp.ID, fmt.Sprintf("Grading error: %v", err))
			continue
		}
		result, err := engine.Grade(answers)
		if err != nil {
			s.warnResponse(ctx, resp.ID, fmt.Sprintf("Grading error: %v", err))
			continue
		}
		if err := s.responses.SetGrade(ctx, resp.ID, result.TotalScore, result.Percent); err != nil {
			return grading.BatchStats{}, fmt.Errorf("store grade: %w", err)
		}
		graded = append(graded, grading.GradedResponse{
			StudentID: resp.StudentID,
			Answers:   answers,
			Score:     result.TotalScore,
			Percent:   result.Percent,
		})
	}

	csvContent, err := engine.GradebookCSV(graded)
	if err != nil {
		return grading.BatchStats{}, fmt.Errorf("render gradebook: %w", err)
	}
	report := &model.GradingReport{
		JobID:      jobID,
		ReportType: "gradebook",
		Filename:   "gradebook.csv",
		Content:    csvContent,
	}
	if err := s.responses.StoreReport(ctx, report); err != nil {
		return grading.BatchStats{}, fmt.Errorf("store gradebook: %w", err)
	}

	stats := grading.Stats(graded)
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return grading.BatchStats{}, fmt.Errorf("marshal stats: %w", err)
	}
	if err := s.jobs.Complete(ctx, jobID, statsJSON); err != nil {
		return grading.BatchStats{}, fmt.Errorf("complete job: %w", err)
	}
	s.publish(ctx, jobID, model.JobStatusCompleted)

	s.log.Info().
		Str("job_id", jobID).
		Int("num_graded", len(graded)).
		Float64("mean_score", stats.MeanScore).
		Msg("Job graded")
	return stats, nil
}

// GetJob retrieves a job's current state.
func (s *GradingJobService) GetJob(ctx context.Context, jobID string) (*model.GradingJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}

// ListJobs retrieves recent jobs for a test.
func (s *GradingJobService) ListJobs(ctx context.Context, testID string, limit int) ([]model.GradingJob, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.jobs.ListByTest(ctx, testID, limit)
}

// GetResponses retrieves the decoded pages of a job.
func (s *GradingJobService) GetResponses(ctx context.Context, jobID string) ([]model.StudentResponse, error) {
	return s.responses.ListByJob(ctx, jobID, false)
}

// GetGradebook retrieves the gradebook CSV of a completed job.
func (s *GradingJobService) GetGradebook(ctx context.Context, jobID string) (*model.GradingReport, error) {
	return s.responses.GetReport(ctx, jobID, "gradebook")
}

// failJob records a job-level failure: ERROR status plus the message.
func (s *GradingJobService) failJob(ctx context.Context, jobID string, cause error) error {
	if err := s.jobs.SetError(ctx, jobID, cause.Error()); err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to record job error")
	}
	s.publish(ctx, jobID, model.JobStatusError)
	return cause
}

func (s *GradingJobService) warnResponse(ctx context.Context, id int64, warning string) {
	if err := s.responses.AppendWarning(ctx, id, warning); err != nil {
		s.log.Error().Err(err).Int64("response_id", id).Msg("Failed to append warning")
	}
}

func (s *GradingJobService) publish(ctx context.Context, jobID string, status model.JobStatus) {
	if s.events != nil {
		s.events.PublishJobStatus(ctx, jobID, status)
	}
}

// newJobID builds IDs like gj_20260131_093045_ab12cd34, matching the
// timestamp-plus-suffix convention of stored jobs.
func newJobID() string {
	return fmt.Sprintf("gj_%s_%s",
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8])
}

func stringKeyed(answers map[int]string) map[string]string {
	out := make(map[string]string, len(answers))
	for num, val := range answers {
		out[strconv.Itoa(num)] = val
	}
	return out
}

func decodeAnswers(raw json.RawMessage) (map[string]string, error) {
	answers := make(map[string]string)
	if len(raw) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return answers, nil
}
