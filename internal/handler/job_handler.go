package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ctroy978/edmpc/internal/config"
	"github.com/ctroy978/edmpc/internal/model"
	"github.com/ctroy978/edmpc/internal/raster"
	"github.com/ctroy978/edmpc/internal/repository"
	"github.com/ctroy978/edmpc/internal/response"
	"github.com/ctroy978/edmpc/internal/service"
)

// JobHandler handles the grading job lifecycle: create, upload, process,
// grade, and result retrieval. Scan processing runs asynchronously on the
// worker; all other operations are synchronous.
type JobHandler struct {
	jobService *service.GradingJobService
	rdb        *redis.Client
	cfg        *config.Config
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService *service.GradingJobService, rdb *redis.Client, cfg *config.Config) *JobHandler {
	return &JobHandler{jobService: jobService, rdb: rdb, cfg: cfg}
}

// Create godoc
// POST /api/v1/tests/:id/jobs
// Requires the test to have both a layout and an answer key.
func (h *JobHandler) Create(c *gin.Context) {
	job, err := h.jobService.CreateJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrTestNotReady):
			response.Fail(c, http.StatusConflict, response.ErrTestNotReady)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"job": job})
}

// UploadScans godoc
// POST /api/v1/jobs/:id/scans
// Accepts a multipart "scans" field holding a ZIP of page images.
func (h *JobHandler) UploadScans(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxScanBytes)

	file, header, err := c.Request.FormFile("scans")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxScanBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}

	scan, err := io.ReadAll(file)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrUnreadableUpload)
		return
	}

	numPages, err := h.jobService.UploadScans(c.Request.Context(), c.Param("id"), scan)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrJobState):
			response.Fail(c, http.StatusConflict, response.ErrJobState)
		case errors.Is(err, raster.ErrUnreadableArchive):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnreadableUpload)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"num_pages": numPages})
}

// Process godoc
// POST /api/v1/jobs/:id/process
// Queues the job for scan processing and returns immediately. Watch the
// job over the WebSocket endpoint or poll GET /jobs/:id for progress.
func (h *JobHandler) Process(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.jobService.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if job.Status != model.JobStatusUploaded && job.Status != model.JobStatusScanning {
		response.Fail(c, http.StatusConflict, response.ErrJobState)
		return
	}

	if err := h.rdb.RPush(c.Request.Context(), config.WorkerKey.ProcessScansQueue, jobID).Err(); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"job_id": jobID, "queued": true})
}

// Grade godoc
// POST /api/v1/jobs/:id/grade
// Grades all successfully scanned responses and stores the gradebook.
func (h *JobHandler) Grade(c *gin.Context) {
	stats, err := h.jobService.GradeJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrJobState):
			response.Fail(c, http.StatusConflict, response.ErrJobState)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// Get godoc
// GET /api/v1/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"job": job})
}

// ListByTest godoc
// GET /api/v1/tests/:id/jobs?limit=20
func (h *JobHandler) ListByTest(c *gin.Context) {
	jobs, err := h.jobService.ListJobs(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 0))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"jobs": jobs})
}

// Responses godoc
// GET /api/v1/jobs/:id/responses
// Returns every decoded page, including pages that failed to scan.
func (h *JobHandler) Responses(c *gin.Context) {
	responses, err := h.jobService.GetResponses(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"responses": responses})
}

// Gradebook godoc
// GET /api/v1/jobs/:id/gradebook
// Streams the stored gradebook CSV as a file download.
func (h *JobHandler) Gradebook(c *gin.Context) {
	report, err := h.jobService.GetGradebook(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrReportNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	c.Data(http.StatusOK, "text/csv", report.Content)
}
