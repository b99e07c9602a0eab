package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crewplan/timeline/internal/config"
	"github.com/crewplan/timeline/internal/utils"
	"github.com/crewplan/timeline/pkg/calendar"
	"github.com/crewplan/timeline/pkg/capacity"
	"github.com/crewplan/timeline/pkg/conflict"
	"github.com/crewplan/timeline/pkg/reschedule"
	"github.com/crewplan/timeline/pkg/resource"
	"github.com/crewplan/timeline/pkg/user"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T, cfg config.Application) *httptest.Server {
	t.Helper()
	catalog := resource.NewCatalogStub(
		resource.Resource{Id: 1, Name: "R", Type: resource.Employee, Category: resource.CategoryPersonnel},
		resource.Resource{Id: 2, Name: "S", Type: resource.Employee, Category: resource.CategoryPersonnel},
	)
	deps, err := wire(calendar.NewRepositoryStub(), catalog, cfg, &utils.MockClock{FixedNow: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	t.Cleanup(deps.Close)

	r := mux.NewRouter()
	RegisterRoutes(r, deps)
	server := httptest.NewServer(SetupMiddleware(r, cfg))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(user.UserIdHeader, "planner-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestApplication_SchedulingFlow(t *testing.T) {
	cfg := config.Defaults()
	cfg.RateLimit.Enabled = false
	server := setupTestServer(t, cfg)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// given two overlapping bookings on R
	var e1, e2 calendar.EventDTO
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, server.URL+"/api/events", calendar.EventDTO{
		Title: "E1", StartTime: day.Add(9 * time.Hour), EndTime: day.Add(12 * time.Hour), ResourceId: 1,
	}, &e1))
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, server.URL+"/api/events", calendar.EventDTO{
		Title: "E2", StartTime: day.Add(11 * time.Hour), EndTime: day.Add(13 * time.Hour), ResourceId: 1,
	}, &e2))
	assert.Equal(t, "planner-1", e1.CreatedBy)

	// then the day shows one conflict and 300 booked minutes
	var conflicts conflict.ReportDTO
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, server.URL+"/api/resources/1/conflicts?date=2026-03-10", nil, &conflicts))
	require.Len(t, conflicts.Conflicts, 1)
	assert.Equal(t, e1.Id, conflicts.Conflicts[0].FirstEventId)
	assert.Equal(t, e2.Id, conflicts.Conflicts[0].SecondEventId)

	var usage capacity.CapacityDTO
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, server.URL+"/api/resources/1/capacity?date=2026-03-10", nil, &usage))
	assert.Equal(t, 300, usage.BookedMinutes)
	assert.Equal(t, 960, usage.TotalMinutes)
	assert.Equal(t, 31.25, usage.UtilizationPercent)
	assert.False(t, usage.IsOverloaded)

	// when E1 moves to S on the same day
	var moved reschedule.UpdateResultDTO
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPut, server.URL+"/api/events/"+e1.Id,
		map[string]any{"resourceId": 2, "targetDay": "2026-03-10"}, &moved))
	assert.Equal(t, 2, moved.Event.ResourceId)
	assert.Empty(t, moved.Conflicts)

	// then R is conflict free
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, server.URL+"/api/resources/1/conflicts?date=2026-03-10", nil, &conflicts))
	assert.Empty(t, conflicts.Conflicts)

	// and the events list reflects the move
	var listed []calendar.EventDTO
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet,
		server.URL+"/api/events?from=2026-03-10T00:00:00Z&to=2026-03-11T00:00:00Z&resourceId=2", nil, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, e1.Id, listed[0].Id)

	// and deletion removes it
	assert.Equal(t, http.StatusNoContent, doJSON(t, http.MethodDelete, server.URL+"/api/events/"+e1.Id, nil, nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, server.URL+"/api/events/"+e1.Id, nil, nil))
}

func TestApplication_Routes(t *testing.T) {
	cfg := config.Defaults()
	cfg.RateLimit.Enabled = false
	server := setupTestServer(t, cfg)

	t.Run("should report health", func(t *testing.T) {
		var body map[string]string
		assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, server.URL+"/health", nil, &body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("should answer JSON 404 for unknown paths", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, server.URL+"/api/nothing", nil, nil))
		assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, server.URL+"/api/resources/abc/capacity?date=2026-03-10", nil, nil))
	})

	t.Run("should answer CORS preflight for allowed origins", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/events", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", cfg.Cors.AllowedOrigins[0])
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, cfg.Cors.AllowedOrigins[0], resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := config.Defaults()
	cfg.RateLimit = config.RateLimit{Enabled: true, RPS: 0.001, Burst: 2}
	server := setupTestServer(t, cfg)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		statuses = append(statuses, doJSON(t, http.MethodGet, server.URL+"/health", nil, nil))
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func loggedStatuses(hook *test.Hook) []int {
	statuses := make([]int, 0)
	for _, entry := range hook.AllEntries() {
		if status, ok := entry.Data["status"].(int); ok {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

func TestApplication_RequestLog(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	t.Run("should log requests that match no route", func(t *testing.T) {
		// given
		cfg := config.Defaults()
		cfg.RateLimit.Enabled = false
		server := setupTestServer(t, cfg)
		hook.Reset()

		// when
		status := doJSON(t, http.MethodGet, server.URL+"/api/nothing", nil, nil)

		// then
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, []int{http.StatusNotFound}, loggedStatuses(hook))
	})

	t.Run("should log rate limited requests", func(t *testing.T) {
		// given
		cfg := config.Defaults()
		cfg.RateLimit = config.RateLimit{Enabled: true, RPS: 0.001, Burst: 1}
		server := setupTestServer(t, cfg)
		doJSON(t, http.MethodGet, server.URL+"/health", nil, nil)
		hook.Reset()

		// when
		status := doJSON(t, http.MethodGet, server.URL+"/health", nil, nil)

		// then
		assert.Equal(t, http.StatusTooManyRequests, status)
		assert.Equal(t, []int{http.StatusTooManyRequests}, loggedStatuses(hook))
	})
}
