package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ctroy978/edmpc/internal/grading"
	"github.com/ctroy978/edmpc/internal/model"
	"github.com/ctroy978/edmpc/internal/repository"
	"github.com/ctroy978/edmpc/internal/response"
	"github.com/ctroy978/edmpc/internal/service"
	"github.com/ctroy978/edmpc/internal/sheet"
	"github.com/ctroy978/edmpc/internal/validator"
)

// TestHandler handles bubble test CRUD plus layout and answer key uploads.
type TestHandler struct {
	testService *service.TestService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(testService *service.TestService) *TestHandler {
	return &TestHandler{testService: testService}
}

// Create godoc
// POST /api/v1/tests
func (h *TestHandler) Create(c *gin.Context) {
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// Get godoc
// GET /api/v1/tests/:id
func (h *TestHandler) Get(c *gin.Context) {
	test, err := h.testService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// List godoc
// GET /api/v1/tests?status=ACTIVE&limit=50
func (h *TestHandler) List(c *gin.Context) {
	var status *model.TestStatus
	switch c.Query("status") {
	case "":
	case string(model.TestStatusActive):
		s := model.TestStatusActive
		status = &s
	case string(model.TestStatusArchived):
		s := model.TestStatusArchived
		status = &s
	default:
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	tests, err := h.testService.List(c.Request.Context(), status, queryInt(c, "limit", 0))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// Archive godoc
// POST /api/v1/tests/:id/archive
func (h *TestHandler) Archive(c *gin.Context) {
	h.setStatus(c, h.testService.Archive)
}

// Unarchive godoc
// POST /api/v1/tests/:id/unarchive
func (h *TestHandler) Unarchive(c *gin.Context) {
	h.setStatus(c, h.testService.Unarchive)
}

// Delete godoc
// DELETE /api/v1/tests/:id
// Removes the test and, via cascade, its layouts, keys, and jobs.
func (h *TestHandler) Delete(c *gin.Context) {
	if err := h.testService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// PutLayout godoc
// PUT /api/v1/tests/:id/layout
// The layout document is parsed and validated before it is stored.
func (h *TestHandler) PutLayout(c *gin.Context) {
	var req model.PutLayoutRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.testService.PutLayout(c.Request.Context(), c.Param("id"), req.Layout)
	if err != nil {
		switch {
		case errors.Is(err, sheet.ErrMalformedLayout):
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrMalformedLayout,
				map[string]string{"layout": err.Error()})
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetLayout godoc
// GET /api/v1/tests/:id/layout
func (h *TestHandler) GetLayout(c *gin.Context) {
	layout, err := h.testService.GetLayout(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrLayoutNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"layout": layout})
}

// PutAnswerKey godoc
// PUT /api/v1/tests/:id/key
// The key is parsed and validated before it is stored.
func (h *TestHandler) PutAnswerKey(c *gin.Context) {
	var req model.PutAnswerKeyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.testService.PutAnswerKey(c.Request.Context(), c.Param("id"), req.Key)
	if err != nil {
		switch {
		case errors.Is(err, grading.ErrInvalidAnswerKey):
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrInvalidAnswerKey,
				map[string]string{"key": err.Error()})
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetAnswerKey godoc
// GET /api/v1/tests/:id/key
func (h *TestHandler) GetAnswerKey(c *gin.Context) {
	key, err := h.testService.GetAnswerKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrAnswerKeyNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"key": key})
}

func (h *TestHandler) setStatus(c *gin.Context, fn func(ctx context.Context, id string) error) {
	if err := fn(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
