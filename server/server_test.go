package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OliverSieweke/supermarket-customer-behavior/am"
	"github.com/OliverSieweke/supermarket-customer-behavior/analysis"
	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/db"
	"github.com/OliverSieweke/supermarket-customer-behavior/ingest"
	"github.com/OliverSieweke/supermarket-customer-behavior/store"
)

func testConfig() *am.Config {
	cfg := &am.Config{}
	cfg.Server.Port = 0
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	cfg.Data.Dir = "data"
	cfg.Data.EntranceLocation = dataset.LocationEntrance
	cfg.Data.CheckoutLocation = dataset.LocationCheckout
	cfg.Ingest.Workers = 1
	cfg.Ingest.PollIntervalSeconds = 1
	cfg.Sim.Customers = 10
	cfg.Sim.MaxSteps = 100
	return cfg
}

func testServer(t *testing.T) *Server {
	t.Helper()
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	s := New(context.Background(), testConfig(), database, zap.NewNop().Sugar())
	t.Cleanup(func() { s.cancel() })
	return s
}

func seedVisits(t *testing.T, s *Server) {
	t.Helper()
	at := func(hh, mm int) time.Time {
		return time.Date(2019, 9, 2, hh, mm, 0, 0, time.UTC)
	}
	_, err := store.NewVisitStore(s.db).InsertVisits(context.Background(), []dataset.Visit{
		{Day: dataset.Monday, Customer: "monday_1", TS: at(7, 3), Location: "dairy"},
		{Day: dataset.Monday, Customer: "monday_1", TS: at(7, 5), Location: "checkout"},
		{Day: dataset.Monday, Customer: "monday_2", TS: at(7, 4), Location: "fruit"},
		{Day: dataset.Monday, Customer: "monday_2", TS: at(7, 7), Location: "checkout"},
	})
	require.NoError(t, err)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleHealth(t *testing.T) {
	rec := get(t, testServer(t), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleVersion(t *testing.T) {
	rec := get(t, testServer(t), "/api/version")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "version")
}

func TestHandleDays(t *testing.T) {
	s := testServer(t)
	seedVisits(t, s)

	rec := get(t, s, "/api/days")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats store.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 4, stats.TotalVisits)
	assert.EqualValues(t, 4, stats.ByDay[dataset.Monday])
}

func TestHandleMatrix(t *testing.T) {
	s := testServer(t)
	seedVisits(t, s)

	rec := get(t, s, "/api/matrix")
	require.Equal(t, http.StatusOK, rec.Code)

	var matrix analysis.Matrix
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matrix))
	assert.Contains(t, matrix.Locations, "entrance")
	assert.Contains(t, matrix.Locations, "checkout")

	// Every non-checkout row sums to 1.
	for i, loc := range matrix.Locations {
		var sum float64
		for _, p := range matrix.Probs[i] {
			sum += p
		}
		if loc == dataset.LocationCheckout {
			assert.Zero(t, sum)
		} else {
			assert.InDelta(t, 1.0, sum, 1e-9)
		}
	}
}

func TestHandleMatrixNoVisits(t *testing.T) {
	rec := get(t, testServer(t), "/api/matrix")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleMatrixBadDay(t *testing.T) {
	s := testServer(t)
	seedVisits(t, s)

	rec := get(t, s, "/api/matrix?day=sunday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleOccupancyAndTotals(t *testing.T) {
	s := testServer(t)
	seedVisits(t, s)

	rec := get(t, s, "/api/occupancy?day=monday&locations=dairy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dairy")
	assert.NotContains(t, rec.Body.String(), "fruit")

	rec = get(t, s, "/api/totals?day=monday")
	require.Equal(t, http.StatusOK, rec.Code)

	var points []analysis.TotalPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.NotEmpty(t, points)
	assert.EqualValues(t, 0, points[len(points)-1].Customers, "everyone checked out")
}

func TestHandleTimeInStore(t *testing.T) {
	s := testServer(t)
	seedVisits(t, s)

	rec := get(t, s, "/api/time-in-store")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Customers   []analysis.CustomerDuration `json:"customers"`
		MeanMinutes float64                     `json:"mean_minutes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Customers, 2)
	assert.Equal(t, 2.5, resp.MeanMinutes)
}

func TestHandleJobs(t *testing.T) {
	s := testServer(t)

	rec := get(t, s, "/api/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	job, err := ingest.NewJob(ingest.CSVDayHandlerName, "data/monday.csv")
	require.NoError(t, err)
	require.NoError(t, s.pool.GetQueue().Enqueue(job))

	rec = get(t, s, "/api/jobs?status=queued")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), job.ID)

	rec = get(t, s, "/api/jobs/"+job.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s, "/api/jobs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, s, "/api/jobs?status=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSimulate(t *testing.T) {
	s := testServer(t)
	seedVisits(t, s)

	body, _ := json.Marshal(map[string]interface{}{"customers": 5, "seed": 42})
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/simulate", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Customers   int     `json:"customers"`
		Seed        int64   `json:"seed"`
		TotalVisits int     `json:"total_visits"`
		MeanMinutes float64 `json:"mean_minutes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Customers)
	assert.EqualValues(t, 42, resp.Seed)
	assert.Greater(t, resp.TotalVisits, 0)
}

func TestHandleSimulateRejectsGet(t *testing.T) {
	rec := get(t, testServer(t), "/api/simulate")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	// Unknown origins get no CORS grant
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// Preflight
	req = httptest.NewRequest(http.MethodOptions, "/api/matrix", nil)
	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestApplyConfig(t *testing.T) {
	s := testServer(t)

	next := testConfig()
	next.Server.AllowedOrigins = []string{"http://example.com"}
	next.Sim.Customers = 42
	require.NoError(t, s.ApplyConfig(next))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, "http://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	// Previously allowed origin no longer passes
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, 42, s.simDefaults().Customers)
}

func TestWebSocketReceivesJobUpdates(t *testing.T) {
	s := testServer(t)

	// Run the hub and broadcaster without the HTTP listener.
	s.wg.Add(1)
	go s.runHub()
	s.startJobUpdateBroadcaster()

	ts := httptest.NewServer(s.mux)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the hub a moment to register the client.
	time.Sleep(100 * time.Millisecond)

	job, err := ingest.NewJob(ingest.CSVDayHandlerName, "data/monday.csv")
	require.NoError(t, err)
	require.NoError(t, s.pool.GetQueue().Enqueue(job))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg JobUpdateMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "job_update", msg.Type)
	assert.Equal(t, job.ID, msg.Job.ID)
}
