package scheduler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovheul/heatplan/planner"
)

func newTestWebServer(t *testing.T) (*WebServer, *HeatScheduler) {
	t.Helper()
	s, _ := newTestScheduler(t)
	ws := NewWebServer(s, 18080)
	require.NotNil(t, ws)
	return ws, s
}

func TestNewWebServerDisabled(t *testing.T) {
	s, _ := newTestScheduler(t)
	assert.Nil(t, NewWebServer(s, 0))
}

func TestHealthHandler(t *testing.T) {
	ws, _ := newTestWebServer(t)

	rec := httptest.NewRecorder()
	ws.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.Scheduler.HasPlan)
}

func TestPlanHandler(t *testing.T) {
	ws, s := newTestWebServer(t)

	rec := httptest.NewRecorder()
	ws.planHandler(rec, httptest.NewRequest(http.MethodGet, "/api/plan", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.mu.Lock()
	s.latestPlan = &planner.Output{Status: planner.StatusOK, Offsets: []int{1, 0}}
	s.mu.Unlock()

	rec = httptest.NewRecorder()
	ws.planHandler(rec, httptest.NewRequest(http.MethodGet, "/api/plan", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []int{1, 0}, resp.Plan.Offsets)
}

func TestOverrideHandler(t *testing.T) {
	ws, s := newTestWebServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/override", strings.NewReader(`{"offset": 2}`))
	ws.overrideHandler(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	status := s.GetStatus()
	require.NotNil(t, status.ManualOffset)
	assert.Equal(t, 2, *status.ManualOffset)

	// Out-of-range offsets are rejected.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/override", strings.NewReader(`{"offset": 9}`))
	ws.overrideHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Clearing works and GET is rejected.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/override", strings.NewReader(`{"offset": null}`))
	ws.overrideHandler(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, s.GetStatus().ManualOffset)

	rec = httptest.NewRecorder()
	ws.overrideHandler(rec, httptest.NewRequest(http.MethodGet, "/api/override", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
