package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mockielts/mockielts-backend/internal/response"
	"github.com/mockielts/mockielts-backend/internal/service"
)

type errMapping struct {
	target error
	status int
	code   response.ErrCode
}

var errMappings = []errMapping{
	{service.ErrTestNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrAttemptNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrTestNotDraft, http.StatusConflict, response.ErrTestNotDraft},
	{service.ErrTestNotPublished, http.StatusConflict, response.ErrTestNotPublished},
	{service.ErrTestEmpty, http.StatusBadRequest, response.ErrTestEmpty},
	{service.ErrNotAttemptOwner, http.StatusForbidden, response.ErrNotAttemptOwner},
	{service.ErrAttemptCompleted, http.StatusConflict, response.ErrAttemptCompleted},
	{service.ErrSectionNotRequested, http.StatusBadRequest, response.ErrSectionNotRequested},
	{service.ErrSectionNotInTest, http.StatusBadRequest, response.ErrSectionNotInTest},
	{service.ErrSectionSubmitted, http.StatusConflict, response.ErrSectionSubmitted},
	{service.ErrSectionExpired, http.StatusConflict, response.ErrSectionExpired},
	{service.ErrSectionNotStarted, http.StatusConflict, response.ErrSectionNotStarted},
	{service.ErrUnsupportedFileType, http.StatusBadRequest, response.ErrUnsupportedFile},
	{service.ErrFileTooLarge, http.StatusBadRequest, response.ErrFileTooLarge},
}

// classify maps a service error to an HTTP status and error code.
func classify(err error) (int, response.ErrCode) {
	for _, m := range errMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// fail writes the envelope for a service error.
func fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		c.Error(err)
	}
	response.Fail(c, status, code)
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	return page, perPage
}
