package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoalert/internal/controllers"
	"geoalert/internal/providers"
	"geoalert/internal/services"
	"geoalert/internal/simulation"
	"geoalert/internal/sink"
	"geoalert/internal/storage"
	"geoalert/internal/structures"
	"geoalert/internal/testutil"
)

func testMux(t *testing.T) (*http.ServeMux, *simulation.Manager) {
	t.Helper()
	conf := &structures.Config{
		Engine: structures.EngineConfig{ToleranceMinutes: 1, GeofenceAlerts: true, ScheduleAlerts: true},
		Simulation: structures.SimulationConfig{MaxRunning: 2},
	}
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	store := storage.NewMemoryStore()
	svc := services.NewAlertService(conf, store, sink.NewAlertSink(store, logger), logger, metrics)
	manager := simulation.NewManager(conf, svc, logger, metrics)
	t.Cleanup(manager.StopAll)

	router := InitRoutes(
		controllers.NewApiController(logger, svc, store, testutil.NewMockCache()),
		controllers.NewSimulationController(logger, manager, store),
	)
	mux := http.NewServeMux()
	for _, r := range router.GetRoutes() {
		mux.Handle(r.Url, r.Handler)
	}
	return mux, manager
}

func TestInitRoutes_RegistersEveryURLOnce(t *testing.T) {
	router := InitRoutes(
		controllers.NewApiController(&testutil.MockLogger{}, nil, storage.NewMemoryStore(), testutil.NewMockCache()),
		controllers.NewSimulationController(&testutil.MockLogger{}, nil, storage.NewMemoryStore()),
	)
	routes := router.GetRoutes()

	urls := make([]string, len(routes))
	for i, r := range routes {
		urls[i] = r.Url
	}
	assert.ElementsMatch(t, []string{
		"/locations", "/alerts", "/trackers", "/geofences", "/links", "/links/delete", "/rules",
		"/schedules/poll", "/owner-locations", "/left-behind/watch", "/left-behind/watch/delete", "/left-behind/watches",
		"/simulations/start", "/simulations/stop", "/simulations/pattern", "/simulations",
	}, urls)
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	mux, _ := testMux(t)

	req := httptest.NewRequest(http.MethodGet, "/locations", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))

	req = httptest.NewRequest(http.MethodDelete, "/geofences", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestInitRoutes_EndToEnd(t *testing.T) {
	mux, manager := testMux(t)

	post := func(url, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		return rr
	}

	rr := post("/geofences", `{"id":"g1","name":"Home","centerLatitude":37.7749,"centerLongitude":-122.4194,"radius":100}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = post("/links", `{"trackerId":"t1","geofenceId":"g1","alertOnEnter":true,"alertOnExit":true}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = post("/locations", `{"trackerId":"t1","latitude":37.7749,"longitude":-122.4194,"timestamp":1700000000000}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Geofence Entered")

	rr = post("/simulations/start", `{"trackerId":"t1","pattern":"geofence_cross","geofenceId":"g1","intervalMs":5}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"t1"}, manager.Running())

	rr = post("/simulations/stop", `{"trackerId":"t1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"stopped":true}`, rr.Body.String())
	assert.Empty(t, manager.Running())

	req := httptest.NewRequest(http.MethodGet, "/alerts?trackerId=t1", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "geofence_enter")
}

func TestMiddlewareChain(t *testing.T) {
	mux, _ := testMux(t)
	conf := &structures.Config{WebServer: structures.Server{RateLimit: 1, RateBurst: 1}}
	handler := providers.RateLimitMiddleware(conf, providers.MetricsMiddleware(testutil.NewMockMetrics(), nil, mux))

	codes := make([]int, 0, 2)
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/simulations", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestNewHandler_HealthOutsideRateLimit(t *testing.T) {
	store := storage.NewMemoryStore()
	conf := &structures.Config{WebServer: structures.Server{RateLimit: 1, RateBurst: 1}}
	manager := simulation.NewManager(conf, nil, &testutil.MockLogger{}, testutil.NewMockMetrics())
	handler := NewHandler(controllers.NewHealthController(store, manager), conf, providers.NewRouterProvider(), testutil.NewMockMetrics())

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.2:1"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code, "metrics endpoint is off unless enabled")
}
