package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edupay/agency-service/internal/config"
	"github.com/edupay/agency-service/internal/middleware"
	"github.com/edupay/agency-service/internal/models"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-cron-secret"

type mockRunner struct {
	MockRun  func(ctx context.Context) (*models.JobExecution, error)
	MockPing func(ctx context.Context) error
	runCalls int
}

func (m *mockRunner) Run(ctx context.Context) (*models.JobExecution, error) {
	m.runCalls++
	return m.MockRun(ctx)
}

func (m *mockRunner) Ping(ctx context.Context) error {
	if m.MockPing != nil {
		return m.MockPing(ctx)
	}
	return nil
}

// newTestRouter wires the handler behind the auth middleware exactly as
// cmd/api does.
func newTestRouter(svc *mockRunner) *mux.Router {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{CronSecret: testSecret}
	h := NewHandler(svc, 30*time.Second, logger)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	jobRouter := r.PathPrefix("/api/v1/jobs").Subrouter()
	jobRouter.Use(middleware.CronAuth(cfg))
	jobRouter.HandleFunc("/overdue-detection", h.RunOverdueDetection).Methods("POST")
	return r
}

func invokeJob(t *testing.T, router *mux.Router, secret string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/overdue-detection", nil)
	if secret != "" {
		req.Header.Set(middleware.CronSecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRunOverdueDetection_MissingSecret(t *testing.T) {
	svc := &mockRunner{MockRun: func(ctx context.Context) (*models.JobExecution, error) {
		t.Fatal("job must not run without credentials")
		return nil, nil
	}}
	router := newTestRouter(svc)

	rec := invokeJob(t, router, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Unauthorized", body["error"])
	assert.Equal(t, 0, svc.runCalls)
}

func TestRunOverdueDetection_WrongSecret(t *testing.T) {
	svc := &mockRunner{MockRun: func(ctx context.Context) (*models.JobExecution, error) {
		t.Fatal("job must not run with a bad credential")
		return nil, nil
	}}
	router := newTestRouter(svc)

	rec := invokeJob(t, router, "not-the-secret")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, svc.runCalls)
}

func TestRunOverdueDetection_Success(t *testing.T) {
	svc := &mockRunner{MockRun: func(ctx context.Context) (*models.JobExecution, error) {
		return &models.JobExecution{
			Status:         models.JobStatusSuccess,
			RecordsUpdated: 3,
			Metadata: models.JobMetadata{Agencies: []models.AgencyResult{
				{AgencyID: "a1", UpdatedCount: 2, Transitions: models.Transitions{PendingToOverdue: 2}},
				{AgencyID: "a2", UpdatedCount: 1, Transitions: models.Transitions{PendingToOverdue: 1}},
			}},
		}, nil
	}}
	router := newTestRouter(svc)

	rec := invokeJob(t, router, testSecret)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success        bool  `json:"success"`
		RecordsUpdated int64 `json:"recordsUpdated"`
		Agencies       []struct {
			AgencyID     string `json:"agency_id"`
			UpdatedCount int64  `json:"updated_count"`
			Transitions  struct {
				PendingToOverdue int64 `json:"pending_to_overdue"`
			} `json:"transitions"`
		} `json:"agencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(3), body.RecordsUpdated)
	require.Len(t, body.Agencies, 2)
	assert.Equal(t, "a1", body.Agencies[0].AgencyID)
	assert.Equal(t, int64(2), body.Agencies[0].Transitions.PendingToOverdue)
}

func TestRunOverdueDetection_PartialFailure(t *testing.T) {
	svc := &mockRunner{MockRun: func(ctx context.Context) (*models.JobExecution, error) {
		return &models.JobExecution{
			Status:         models.JobStatusFailed,
			RecordsUpdated: 4,
			ErrorMessage:   "1 of 2 agencies failed: a2: connection reset",
			Metadata: models.JobMetadata{Agencies: []models.AgencyResult{
				{AgencyID: "a1", UpdatedCount: 4, Transitions: models.Transitions{PendingToOverdue: 4}},
				{AgencyID: "a2", Error: "connection reset"},
			}},
		}, nil
	}}
	router := newTestRouter(svc)

	rec := invokeJob(t, router, testSecret)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	// The partial aggregate is still reported.
	assert.Equal(t, float64(4), body["recordsUpdated"])
	assert.Contains(t, body["error"], "1 of 2 agencies failed")
	assert.Len(t, body["agencies"], 2)
}

func TestRunOverdueDetection_RunError(t *testing.T) {
	svc := &mockRunner{MockRun: func(ctx context.Context) (*models.JobExecution, error) {
		return nil, errors.New("failed to start job execution")
	}}
	router := newTestRouter(svc)

	rec := invokeJob(t, router, testSecret)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "job execution failed", body["error"])
}

func TestHealth(t *testing.T) {
	svc := &mockRunner{MockRun: func(ctx context.Context) (*models.JobExecution, error) {
		return nil, nil
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.MockPing = func(ctx context.Context) error { return errors.New("db down") }
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
