//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/service"
)

const (
	defaultBaseURL = "http://localhost:8080/api/v1"
	candidateID    = "e2e-candidate"
	adminID        = "e2e-admin"
	fixturePath    = "../../fixtures/sample_test.json"
)

var (
	baseURL        string
	adminToken     string
	candidateToken string
	testID         string
	attemptID      string
)

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	cfg := config.Load()
	if err := cleanDatabase(cfg.DatabaseURL); err != nil {
		fmt.Printf("Setup failed: %v\n", err)
		os.Exit(1)
	}

	auth := service.NewAuthService(cfg)
	perms := make([]string, 0, len(model.AllPermissions))
	for _, p := range model.AllPermissions {
		perms = append(perms, string(p))
	}
	var err error
	if adminToken, err = auth.GenerateToken(adminID, model.RoleAdmin, perms); err != nil {
		fmt.Printf("Admin token: %v\n", err)
		os.Exit(1)
	}
	if candidateToken, err = auth.GenerateToken(candidateID, model.RoleCandidate, nil); err != nil {
		fmt.Printf("Candidate token: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// cleanDatabase removes rows left by earlier runs. Child tables go first.
func cleanDatabase(dbURL string) error {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer conn.Close(ctx)

	tables := []string{"section_results", "attempt_recordings", "attempt_writings", "attempt_answers", "attempts", "tests", "media_files"}
	for _, table := range tables {
		if _, err := conn.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
	}
	return nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func TestE2EFlow(t *testing.T) {
	t.Run("CreateTest", func(t *testing.T) {
		raw, err := os.ReadFile(fixturePath)
		require.NoError(t, err)

		resp := do(t, http.MethodPost, "/admin/tests", json.RawMessage(raw), adminToken)
		require.Equal(t, http.StatusCreated, resp.status, resp.body)

		var data struct {
			Test model.Test `json:"test"`
		}
		resp.decode(t, &data)
		assert.Equal(t, model.TestStatusDraft, data.Test.Status)
		testID = data.Test.ID.String()
	})

	t.Run("DraftHiddenFromCandidates", func(t *testing.T) {
		resp := do(t, http.MethodGet, "/tests/"+testID, nil, candidateToken)
		assert.Equal(t, http.StatusConflict, resp.status, resp.body)
	})

	t.Run("PublishTest", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/admin/tests/"+testID+"/publish", nil, adminToken)
		require.Equal(t, http.StatusOK, resp.status, resp.body)
	})

	t.Run("CandidateCannotUseAdminRoutes", func(t *testing.T) {
		resp := do(t, http.MethodGet, "/admin/tests", nil, candidateToken)
		assert.Contains(t, []int{http.StatusUnauthorized, http.StatusForbidden}, resp.status)
	})

	t.Run("ListPublished", func(t *testing.T) {
		resp := do(t, http.MethodGet, "/tests", nil, candidateToken)
		require.Equal(t, http.StatusOK, resp.status, resp.body)

		var data struct {
			Tests []model.TestSummary `json:"tests"`
		}
		resp.decode(t, &data)
		require.Len(t, data.Tests, 1)
		assert.Len(t, data.Tests[0].Sections, 4)
	})

	t.Run("StartAttempt", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/attempts", model.StartAttemptRequest{
			TestID:            testID,
			RequestedSections: []string{"LISTENING", "READING"},
		}, candidateToken)
		require.Equal(t, http.StatusCreated, resp.status, resp.body)

		var data struct {
			Attempt model.Attempt `json:"attempt"`
		}
		resp.decode(t, &data)
		require.NotNil(t, data.Attempt.CurrentSection)
		assert.Equal(t, model.SectionListening, *data.Attempt.CurrentSection)
		attemptID = data.Attempt.ID.String()
	})

	t.Run("ListeningSectionHidesAnswerKey", func(t *testing.T) {
		resp := do(t, http.MethodGet, "/attempts/"+attemptID+"/sections/LISTENING", nil, candidateToken)
		require.Equal(t, http.StatusOK, resp.status, resp.body)
		assert.NotContains(t, resp.body, "Smith")
	})

	t.Run("UpsertAnswers", func(t *testing.T) {
		resp := do(t, http.MethodPut, "/attempts/"+attemptID+"/answers", model.UpsertAnswersRequest{
			Answers: []model.ItemAnswerPayload{
				{ItemID: "1", AnswerText: "smith"},
				{ItemID: "2", AnswerText: "July"},
				{ItemID: "3", AnswerText: "B"},
			},
		}, candidateToken)
		require.Equal(t, http.StatusOK, resp.status, resp.body)
	})

	t.Run("AdvanceToReading", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/attempts/"+attemptID+"/advance", nil, candidateToken)
		require.Equal(t, http.StatusOK, resp.status, resp.body)

		var data struct {
			Attempt model.Attempt       `json:"attempt"`
			Result  model.SectionResult `json:"result"`
		}
		resp.decode(t, &data)
		require.NotNil(t, data.Result.Graded)
		assert.GreaterOrEqual(t, data.Result.Graded.CorrectAnswers, 3)
		require.NotNil(t, data.Attempt.CurrentSection)
		assert.Equal(t, model.SectionReading, *data.Attempt.CurrentSection)
	})

	t.Run("SecondSubmitReturnsStoredResult", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/attempts/"+attemptID+"/sections/LISTENING/submit", nil, candidateToken)
		require.Equal(t, http.StatusOK, resp.status, resp.body)

		var data struct {
			Result model.SectionResult `json:"result"`
		}
		resp.decode(t, &data)
		require.NotNil(t, data.Result.Graded)
		assert.GreaterOrEqual(t, data.Result.Graded.CorrectAnswers, 3)
	})

	t.Run("SubmitAttempt", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/attempts/"+attemptID+"/submit", nil, candidateToken)
		require.Equal(t, http.StatusOK, resp.status, resp.body)

		var result model.AttemptResult
		resp.decode(t, &result)
		assert.Equal(t, model.AttemptStatusCompleted, result.Status)
		assert.Len(t, result.Sections, 2)
		assert.NotNil(t, result.OverallBand)
	})

	t.Run("OtherCandidateCannotReadAttempt", func(t *testing.T) {
		other, err := service.NewAuthService(config.Load()).GenerateToken("someone-else", model.RoleCandidate, nil)
		require.NoError(t, err)
		resp := do(t, http.MethodGet, "/attempts/"+attemptID, nil, other)
		assert.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, resp.status)
	})

	t.Run("Dashboard", func(t *testing.T) {
		// Result rows are written by a background batch worker.
		time.Sleep(3 * time.Second)
		resp := do(t, http.MethodGet, "/me/dashboard", nil, candidateToken)
		require.Equal(t, http.StatusOK, resp.status, resp.body)
		assert.Contains(t, resp.body, "LISTENING")
	})

	t.Run("ExportResults", func(t *testing.T) {
		resp := do(t, http.MethodGet, "/admin/tests/"+testID+"/results/export", nil, adminToken)
		require.Equal(t, http.StatusOK, resp.status)
		assert.Contains(t, resp.header.Get("Content-Disposition"), ".xlsx")
		assert.NotEmpty(t, resp.body)
	})
}

// Helpers

type result struct {
	status int
	header http.Header
	body   string
}

func (r result) decode(t *testing.T, v interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(r.body), &env))
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func do(t *testing.T, method, path string, body interface{}, token string) result {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return result{status: resp.StatusCode, header: resp.Header, body: string(raw)}
}
