package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"x": 1}) })
	r.GET("/fail", func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"title": "required"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderRequestID, "abc")
	r.ServeHTTP(w, req)

	var ok Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.Equal(t, "abc", ok.Metadata.RequestID)
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))
	assert.Nil(t, ok.Error)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	var fail Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fail))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, fail.Error)
	assert.Equal(t, ErrValidation, fail.Error.Code)
	assert.Equal(t, "required", fail.Error.Fields["title"])
	assert.NotEmpty(t, fail.Metadata.RequestID)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 21)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.PerPage)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, p.Offset())

	assert.Equal(t, 20, NewPagination(3, 10, 21).Offset())
	assert.Equal(t, 0, NewPagination(1, 10, 0).TotalPages)
}

func TestGetMessageFallback(t *testing.T) {
	assert.Equal(t, "Permission denied.", GetMessage(ErrPermissionDenied))
	assert.Equal(t, "An unexpected error occurred.", GetMessage(ErrCode("NOPE")))
}
