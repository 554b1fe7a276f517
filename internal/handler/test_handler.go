package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mockielts/mockielts-backend/internal/middleware"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/response"
	"github.com/mockielts/mockielts-backend/internal/service"
	"github.com/mockielts/mockielts-backend/internal/validator"
)

// TestHandler serves the test catalogue to admins and candidates.
type TestHandler struct {
	testService *service.TestService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(testService *service.TestService) *TestHandler {
	return &TestHandler{testService: testService}
}

// ─── Admin ─────────────────────────────────────────────────────────

// ListTests godoc
// GET /api/v1/admin/tests?status=&page=&per_page=
func (h *TestHandler) ListTests(c *gin.Context) {
	status := model.TestStatus(strings.ToUpper(c.Query("status")))
	switch status {
	case "", model.TestStatusDraft, model.TestStatusPublished, model.TestStatusArchived:
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"status": "status must be one of DRAFT, PUBLISHED, ARCHIVED"})
		return
	}

	page, perPage := pageParams(c)
	tests, pagination, err := h.testService.List(c.Request.Context(), status, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": tests}, pagination)
}

// GetTest godoc
// GET /api/v1/admin/tests/:id
// Returns the full structure including answer keys.
func (h *TestHandler) GetTest(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	test, err := h.testService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// CreateTest godoc
// POST /api/v1/admin/tests
func (h *TestHandler) CreateTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// UpdateTest godoc
// PUT /api/v1/admin/tests/:id
// Only drafts can be edited.
func (h *TestHandler) UpdateTest(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// DeleteTest godoc
// DELETE /api/v1/admin/tests/:id
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.testService.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "test deleted successfully"})
}

// PublishTest godoc
// POST /api/v1/admin/tests/:id/publish
// Publishes a draft and caches its structure in Redis.
func (h *TestHandler) PublishTest(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	test, err := h.testService.Publish(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": test.Summary()})
}

// ArchiveTest godoc
// POST /api/v1/admin/tests/:id/archive
func (h *TestHandler) ArchiveTest(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.testService.Archive(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "test archived successfully"})
}

// RefreshTestCache godoc
// POST /api/v1/admin/tests/:id/refresh-cache
func (h *TestHandler) RefreshTestCache(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.testService.RefreshCache(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "test cache refreshed successfully"})
}

// ─── Candidate ─────────────────────────────────────────────────────

// ListPublished godoc
// GET /api/v1/tests
func (h *TestHandler) ListPublished(c *gin.Context) {
	tests, err := h.testService.Published(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// GetPublished godoc
// GET /api/v1/tests/:id
// Returns the catalogue entry of a published test; content is served per section.
func (h *TestHandler) GetPublished(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	test, err := h.testService.CandidateStructure(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": test.Summary()})
}
