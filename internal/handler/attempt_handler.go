package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mockielts/mockielts-backend/internal/middleware"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/response"
	"github.com/mockielts/mockielts-backend/internal/service"
	"github.com/mockielts/mockielts-backend/internal/validator"
)

// AttemptHandler handles the candidate's run through a test.
type AttemptHandler struct {
	attemptService *service.AttemptService
	mediaService   *service.MediaService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, mediaService *service.MediaService) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		mediaService:   mediaService,
	}
}

// loadAttempt resolves :id to an attempt owned by the caller. It writes the
// error response itself and returns nil on failure.
func (h *AttemptHandler) loadAttempt(c *gin.Context) *model.Attempt {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return nil
	}
	attempt, err := h.attemptService.Get(c.Request.Context(), claims.UserID, id)
	if err != nil {
		fail(c, err)
		return nil
	}
	return attempt
}

func sectionParam(c *gin.Context) (model.SectionKind, bool) {
	kind, ok := model.ParseSectionKind(c.Param("section"))
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidSection)
	}
	return kind, ok
}

// StartAttempt godoc
// POST /api/v1/attempts
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), claims.UserID, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt})
}

// GetAttempt godoc
// GET /api/v1/attempts/:id
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attempt := h.loadAttempt(c)
	if attempt == nil {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetSection godoc
// GET /api/v1/attempts/:id/sections/:section
// Returns the redacted section view model. The first call starts the countdown.
func (h *AttemptHandler) GetSection(c *gin.Context) {
	attempt := h.loadAttempt(c)
	if attempt == nil {
		return
	}
	kind, ok := sectionParam(c)
	if !ok {
		return
	}
	view, err := h.attemptService.Section(c.Request.Context(), attempt, kind)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// GetSectionState godoc
// GET /api/v1/attempts/:id/sections/:section/state
func (h *AttemptHandler) GetSectionState(c *gin.Context) {
	attempt := h.loadAttempt(c)
	if attempt == nil {
		return
	}
	kind, ok := sectionParam(c)
	if !ok {
		return
	}
	state, err := h.attemptService.State(c.Request.Context(), attempt, kind)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// UpsertAnswers godoc
// PUT /api/v1/attempts/:id/answers
// Saves the section's answers, essays and recording references.
func (h *AttemptHandler) UpsertAnswers(c *gin.Context) {
	attempt := h.loadAttempt(c)
	if attempt == nil {
		return
	}

	var req model.UpsertAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if fields := h.checkRecordings(c, req.Answers); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.UpsertAnswers(c.Request.Context(), attempt, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// checkRecordings rejects audio file ids that were never uploaded.
func (h *AttemptHandler) checkRecordings(c *gin.Context, answers []model.ItemAnswerPayload) map[string]string {
	for _, a := range answers {
		if a.AudioFileID == "" {
			continue
		}
		ok, err := h.mediaService.Exists(c.Request.Context(), a.AudioFileID)
		if err != nil || !ok {
			return map[string]string{"audioFileId": "unknown audio file " + a.AudioFileID}
		}
	}
	return nil
}

// SubmitSection godoc
// POST /api/v1/attempts/:id/sections/:section/submit
// Scores the section once; repeated calls return the stored result.
func (h *AttemptHandler) SubmitSection(c *gin.Context) {
	attempt := h.loadAttempt(c)
	if attempt == nil {
		return
	}
	kind, ok := sectionParam(c)
	if !ok {
		return
	}
	result, err := h.attemptService.SubmitSection(c.Request.Context(), attempt, kind, model.TriggerManual)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Advance godoc
// POST /api/v1/attempts/:id/advance
// Submits the current section and moves on to the next requested one.
func (h *AttemptHandler) Advance(c *gin.Context) {
	attempt := h.loadAttempt(c)
	if attempt == nil {
		return
	}
	updated, result, err := h.attemptService.Advance(c.Request.Context(), attempt)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": updated, "result": result})
}

// SubmitAttempt godoc
// POST /api/v1/attempts/:id/submit
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attempt := h.loadAttempt(c)
	if attempt == nil {
		return
	}
	result, err := h.attemptService.Submit(c.Request.Context(), attempt)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GetResult godoc
// GET /api/v1/attempts/:id/result
func (h *AttemptHandler) GetResult(c *gin.Context) {
	attempt := h.loadAttempt(c)
	if attempt == nil {
		return
	}
	result, err := h.attemptService.Result(c.Request.Context(), attempt)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
