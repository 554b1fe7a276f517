package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockielts/mockielts-backend/internal/model"
)

func bindBody(t *testing.T, body string, dst interface{}) map[string]string {
	t.Helper()
	Setup()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return Bind(c, dst)
}

func TestBind_StartAttempt(t *testing.T) {
	var req model.StartAttemptRequest
	fields := bindBody(t, `{"testId":"8c5b0f0e-6a0b-4b8e-9a63-1d1f7a0c2b11","mode":"FULL","requestedSections":["reading","WRITING"]}`, &req)
	assert.Nil(t, fields)
	assert.Equal(t, []string{"reading", "WRITING"}, req.RequestedSections)
}

func TestBind_RejectsUnknownSection(t *testing.T) {
	var req model.StartAttemptRequest
	fields := bindBody(t, `{"testId":"8c5b0f0e-6a0b-4b8e-9a63-1d1f7a0c2b11","requestedSections":["MATHS"]}`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields["requestedSections[0]"], "must be one of")
}

func TestBind_MissingFields(t *testing.T) {
	var req model.StartAttemptRequest
	fields := bindBody(t, `{"mode":"EXAM"}`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "testId")
	assert.Contains(t, fields, "mode")
}

func TestBind_SyntaxError(t *testing.T) {
	var req model.StartAttemptRequest
	fields := bindBody(t, `{`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "detail")
}

func TestStruct_SectionTypes(t *testing.T) {
	doc := model.TestStructure{Sections: []model.Section{{SectionType: "CHEMISTRY"}}}
	fields := Struct(doc)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "sections[0].sectionType")

	assert.Nil(t, Struct(model.TestStructure{Sections: []model.Section{{SectionType: "LISTENING"}}}))
}
