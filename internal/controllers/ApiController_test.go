package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoalert/internal/models"
	"geoalert/internal/services"
	"geoalert/internal/sink"
	"geoalert/internal/storage"
	"geoalert/internal/structures"
	"geoalert/internal/testutil"
)

// --- helpers ---

func testConfig() *structures.Config {
	return &structures.Config{
		Engine: structures.EngineConfig{
			PollInterval:        30 * time.Second,
			Timezone:            "UTC",
			ToleranceMinutes:    1,
			SuppressionWindow:   time.Hour,
			DedupWindow:         5 * time.Second,
			DedupDistanceMeters: 1,
			GeofenceAlerts:      true,
			ScheduleAlerts:      true,
		},
	}
}

type apiFixture struct {
	ac     *ApiController
	store  *storage.MemoryStore
	cache  *testutil.MockCache
	logger *testutil.MockLogger
}

func newAPIFixture() *apiFixture {
	store := storage.NewMemoryStore()
	logger := &testutil.MockLogger{}
	svc := services.NewAlertService(testConfig(), store, sink.NewAlertSink(store, logger), logger, testutil.NewMockMetrics())
	cache := testutil.NewMockCache()
	return &apiFixture{
		ac:     NewApiController(logger, svc, store, cache),
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

func do(handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func (f *apiFixture) seedHome(t *testing.T) {
	t.Helper()
	rr := do(f.ac.PutGeofence, http.MethodPost, "/geofences",
		`{"id":"g1","name":"Home","centerLatitude":37.7749,"centerLongitude":-122.4194,"radius":100}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = do(f.ac.PutLink, http.MethodPost, "/links", `{"trackerId":"t1","geofenceId":"g1","alertOnEnter":true,"alertOnExit":true}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

type failingService struct{ err error }

func (s failingService) ProcessLocation(context.Context, string, models.LocationSample) (*services.ProcessResult, error) {
	return nil, s.err
}
func (s failingService) PollSchedules(context.Context, time.Time) (*services.PollResult, error) {
	return nil, s.err
}
func (s failingService) SaveRule(context.Context, models.ScheduleRule) (models.ScheduleRule, error) {
	return models.ScheduleRule{}, s.err
}
func (s failingService) ArmLeftBehind(context.Context, string, models.LocationSample) (models.LeftBehindWatch, error) {
	return models.LeftBehindWatch{}, s.err
}
func (s failingService) ProcessOwnerLocation(context.Context, string, models.LocationSample) (*services.ProcessResult, error) {
	return nil, s.err
}
func (s failingService) DisarmLeftBehind(context.Context, string) error {
	return s.err
}

// --- ReceiveLocation tests ---

func TestReceiveLocation_EnterThenExit(t *testing.T) {
	f := newAPIFixture()
	f.seedHome(t)

	rr := do(f.ac.ReceiveLocation, http.MethodPost, "/locations",
		`{"trackerId":"t1","latitude":37.7749,"longitude":-122.4194,"timestamp":1700000000000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var res services.ProcessResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, services.OutcomeEvaluated, res.Outcome)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, models.AlertGeofenceEnter, res.Alerts[0].Type)

	rr = do(f.ac.ReceiveLocation, http.MethodPost, "/locations",
		`{"trackerId":"t1","latitude":37.7849,"longitude":-122.4194,"timestamp":1700000060000}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, models.AlertGeofenceExit, res.Alerts[0].Type)

	rr = do(f.ac.GetAlerts, http.MethodGet, "/alerts?trackerId=t1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var alerts []models.Alert
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &alerts))
	require.Len(t, alerts, 2)
	assert.Equal(t, models.AlertGeofenceExit, alerts[0].Type)
}

func TestReceiveLocation_StampsMissingTimestamp(t *testing.T) {
	f := newAPIFixture()
	f.ac.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	rr := do(f.ac.ReceiveLocation, http.MethodPost, "/locations", `{"trackerId":"t9","latitude":1,"longitude":2}`)
	require.Equal(t, http.StatusOK, rr.Code)

	tracker, err := f.store.GetTracker(context.Background(), "t9")
	require.NoError(t, err)
	require.NotNil(t, tracker.LastSeen)
	assert.Equal(t, int64(1_700_000_000_000), tracker.LastSeen.TimestampMs)
}

func TestReceiveLocation_BadInput(t *testing.T) {
	f := newAPIFixture()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "not json"},
		{"empty body", ""},
		{"latitude out of range", `{"trackerId":"t1","latitude":123,"longitude":0,"timestamp":1}`},
		{"missing tracker", `{"latitude":1,"longitude":0,"timestamp":1}`},
		{"oversized", `{"trackerId":"` + strings.Repeat("x", maxRequestBodySize) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(f.ac.ReceiveLocation, http.MethodPost, "/locations", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestReceiveLocation_StoreFailureIs500(t *testing.T) {
	logger := &testutil.MockLogger{}
	ac := NewApiController(logger, failingService{err: errors.New("disk full")}, storage.NewMemoryStore(), testutil.NewMockCache())

	rr := do(ac.ReceiveLocation, http.MethodPost, "/locations", `{"trackerId":"t1","latitude":1,"longitude":1,"timestamp":1}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, 1, logger.Count("error", "%s %s: %s"))
}

// --- GetAlerts tests ---

func TestGetAlerts_ServesFromCacheUntilCleared(t *testing.T) {
	f := newAPIFixture()
	f.seedHome(t)

	rr := do(f.ac.GetAlerts, http.MethodGet, "/alerts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
	_, cached := f.cache.Get("alerts::100")
	assert.True(t, cached)

	do(f.ac.ReceiveLocation, http.MethodPost, "/locations",
		`{"trackerId":"t1","latitude":37.7749,"longitude":-122.4194,"timestamp":1700000000000}`)

	rr = do(f.ac.GetAlerts, http.MethodGet, "/alerts", "")
	var alerts []models.Alert
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &alerts))
	assert.Len(t, alerts, 1)
}

func TestGetAlerts_Limit(t *testing.T) {
	f := newAPIFixture()
	for i := range 3 {
		require.NoError(t, f.store.AppendAlert(context.Background(), models.Alert{ID: models.NewID(), TrackerID: "t1", CreatedAt: time.UnixMilli(int64(i))}))
	}

	rr := do(f.ac.GetAlerts, http.MethodGet, "/alerts?limit=2", "")
	var alerts []models.Alert
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &alerts))
	assert.Len(t, alerts, 2)

	rr = do(f.ac.GetAlerts, http.MethodGet, "/alerts?limit=lots", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- entity endpoints ---

func TestPutTracker(t *testing.T) {
	f := newAPIFixture()

	rr := do(f.ac.PutTracker, http.MethodPost, "/trackers", `{"name":"Keys","type":"physical"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var tracker models.Tracker
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tracker))
	assert.NotEmpty(t, tracker.ID)
	assert.Equal(t, models.TrackerPhysical, tracker.Type)

	rr = do(f.ac.PutTracker, http.MethodPost, "/trackers", `{"id":"x","type":"drone"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(f.ac.GetTrackers, http.MethodGet, "/trackers", "")
	var all []models.Tracker
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	assert.Len(t, all, 1)
}

func TestPutGeofence(t *testing.T) {
	f := newAPIFixture()

	rr := do(f.ac.PutGeofence, http.MethodPost, "/geofences", `{"name":"Park","centerLatitude":1,"centerLongitude":1,"radius":50}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var g models.Geofence
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &g))
	assert.True(t, g.IsActive)
	assert.NotEmpty(t, g.ID)

	rr = do(f.ac.PutGeofence, http.MethodPost, "/geofences", `{"name":"Off","centerLatitude":1,"centerLongitude":1,"radius":50,"isActive":false}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &g))
	assert.False(t, g.IsActive)

	rr = do(f.ac.PutGeofence, http.MethodPost, "/geofences", `{"centerLatitude":1,"centerLongitude":1,"radius":-5}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(f.ac.GetGeofences, http.MethodGet, "/geofences", "")
	var all []models.Geofence
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}

func TestLinks(t *testing.T) {
	f := newAPIFixture()
	f.seedHome(t)

	rr := do(f.ac.PutLink, http.MethodPost, "/links", `{"trackerId":"t1","geofenceId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(f.ac.PutLink, http.MethodPost, "/links", `{"trackerId":"t1"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(f.ac.DeleteLink, http.MethodPost, "/links/delete", `{"trackerId":"t1","geofenceId":"g1"}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(f.ac.DeleteLink, http.MethodPost, "/links/delete", `{"trackerId":"t1","geofenceId":"g1"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRules(t *testing.T) {
	f := newAPIFixture()

	rr := do(f.ac.PutRule, http.MethodPost, "/rules",
		`{"trackerId":"t1","title":"Gym","message":"Bag","scheduleType":"weekly","scheduledTime":"18:30","dayOfWeek":1}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var rule models.ScheduleRule
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rule))
	assert.True(t, rule.IsActive)
	require.NotNil(t, rule.DayOfWeek)

	for _, body := range []string{
		`{"scheduleType":"daily","scheduledTime":"09:00"}`,
		`{"trackerId":"t1","scheduleType":"daily","scheduledTime":"25:99"}`,
		`{"trackerId":"t1","scheduleType":"weekly","scheduledTime":"09:00"}`,
		`{"trackerId":"t1","scheduleType":"yearly","scheduledTime":"09:00"}`,
	} {
		rr = do(f.ac.PutRule, http.MethodPost, "/rules", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}

	rr = do(f.ac.GetRules, http.MethodGet, "/rules?trackerId=t1", "")
	var rules []models.ScheduleRule
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rules))
	assert.Len(t, rules, 1)

	rr = do(f.ac.GetRules, http.MethodGet, "/rules?trackerId=other", "")
	assert.Equal(t, "[]", rr.Body.String())
}

func TestPollSchedules(t *testing.T) {
	f := newAPIFixture()
	f.ac.now = func() time.Time { return time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC) }

	rr := do(f.ac.PutRule, http.MethodPost, "/rules",
		`{"id":"gym","trackerId":"t1","title":"Gym","message":"Bag","scheduleType":"daily","scheduledTime":"18:30"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(f.ac.PollSchedules, http.MethodPost, "/schedules/poll", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var res services.PollResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Evaluated)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, "Gym", res.Alerts[0].Title)

	rr = do(f.ac.PollSchedules, http.MethodPost, "/schedules/poll", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Empty(t, res.Alerts)
}

func TestPollSchedules_Failure(t *testing.T) {
	ac := NewApiController(&testutil.MockLogger{}, failingService{err: errors.New("db locked")}, storage.NewMemoryStore(), testutil.NewMockCache())
	rr := do(ac.PollSchedules, http.MethodPost, "/schedules/poll", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func (f *apiFixture) poll(t *testing.T, now time.Time) services.PollResult {
	t.Helper()
	f.ac.now = func() time.Time { return now }
	rr := do(f.ac.PollSchedules, http.MethodPost, "/schedules/poll", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res services.PollResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

func (f *apiFixture) putRule(t *testing.T, body string) models.ScheduleRule {
	t.Helper()
	rr := do(f.ac.PutRule, http.MethodPost, "/rules", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var rule models.ScheduleRule
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rule))
	return rule
}

func TestPutRule_EditAfterFireDoesNotRefire(t *testing.T) {
	f := newAPIFixture()
	fired := time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC)

	f.putRule(t, `{"id":"gym","trackerId":"t1","title":"Gym","message":"Bag","scheduleType":"daily","scheduledTime":"18:30"}`)
	require.Len(t, f.poll(t, fired).Alerts, 1)

	rule := f.putRule(t, `{"id":"gym","trackerId":"t1","title":"Gym!","message":"Bag","scheduleType":"daily","scheduledTime":"18:30","lastTriggeredAt":0}`)
	assert.Equal(t, fired.UnixMilli(), rule.LastTriggeredAt)
	assert.Equal(t, "Gym!", rule.Title)

	assert.Empty(t, f.poll(t, fired.Add(time.Minute)).Alerts)

	stored, err := f.store.GetRule(context.Background(), "gym")
	require.NoError(t, err)
	assert.Equal(t, fired.UnixMilli(), stored.LastTriggeredAt)
	assert.Equal(t, "Gym!", stored.Title)
}

func TestPutRule_ClientCannotSetLastTriggered(t *testing.T) {
	f := newAPIFixture()
	rule := f.putRule(t, `{"id":"r","trackerId":"t1","title":"T","message":"M","scheduleType":"daily","scheduledTime":"09:00","lastTriggeredAt":1704099600000}`)
	assert.Zero(t, rule.LastTriggeredAt)

	assert.Len(t, f.poll(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)).Alerts, 1)
}

func TestPutRule_FiredOneTimeStaysInactive(t *testing.T) {
	f := newAPIFixture()
	body := `{"id":"once","trackerId":"t1","title":"Passport","message":"Bring it","scheduleType":"one_time","scheduledDate":"2024-03-10","scheduledTime":"07:00"}`
	fireAt := time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)

	f.putRule(t, body)
	require.Len(t, f.poll(t, fireAt).Alerts, 1)

	rule := f.putRule(t, body)
	assert.False(t, rule.IsActive)
	assert.Empty(t, f.poll(t, fireAt.Add(time.Minute)).Alerts)

	rule = f.putRule(t, strings.Replace(body, "2024-03-10", "2024-03-11", 1))
	assert.True(t, rule.IsActive)
	assert.Zero(t, rule.LastTriggeredAt)
	assert.Len(t, f.poll(t, fireAt.Add(24*time.Hour)).Alerts, 1)
}

func TestPutRule_ServiceFailureIs500(t *testing.T) {
	ac := NewApiController(&testutil.MockLogger{}, failingService{err: errors.New("db locked")}, storage.NewMemoryStore(), testutil.NewMockCache())
	rr := do(ac.PutRule, http.MethodPost, "/rules", `{"trackerId":"t1","title":"T","message":"M","scheduleType":"daily","scheduledTime":"09:00"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

// --- left-behind tests ---

func newLeftBehindFixture() *apiFixture {
	conf := testConfig()
	conf.Engine.LeftBehindAlerts = true
	conf.Engine.LeftBehindMeters = 100
	store := storage.NewMemoryStore()
	logger := &testutil.MockLogger{}
	svc := services.NewAlertService(conf, store, sink.NewAlertSink(store, logger), logger, testutil.NewMockMetrics())
	cache := testutil.NewMockCache()
	return &apiFixture{
		ac:     NewApiController(logger, svc, store, cache),
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

func TestLeftBehind_ArmAndFire(t *testing.T) {
	f := newLeftBehindFixture()

	rr := do(f.ac.ArmLeftBehind, http.MethodPost, "/left-behind/watch", `{"trackerId":"t1","latitude":37.7749,"longitude":-122.4194,"timestamp":1700000000000}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(f.ac.ReceiveLocation, http.MethodPost, "/locations", `{"trackerId":"t1","latitude":37.7749,"longitude":-122.4194,"timestamp":1700000000000}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(f.ac.ArmLeftBehind, http.MethodPost, "/left-behind/watch", `{"trackerId":"t1","latitude":37.7749,"longitude":-122.4194,"timestamp":1700000001000}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var watch models.LeftBehindWatch
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &watch))
	assert.Equal(t, "t1", watch.TrackerID)
	assert.InDelta(t, 100, watch.ThresholdMeters, 1e-9)

	rr = do(f.ac.ReceiveOwnerLocation, http.MethodPost, "/owner-locations", `{"trackerId":"t1","latitude":37.7769,"longitude":-122.4194,"timestamp":1700000010000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res services.ProcessResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, models.AlertLeftBehind, res.Alerts[0].Type)

	rr = do(f.ac.ReceiveOwnerLocation, http.MethodPost, "/owner-locations", `{"trackerId":"t1","latitude":37.7779,"longitude":-122.4194,"timestamp":1700000020000}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var again services.ProcessResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &again))
	assert.Empty(t, again.Alerts)

	rr = do(f.ac.GetAlerts, http.MethodGet, "/alerts?trackerId=t1", "")
	assert.Contains(t, rr.Body.String(), `"left_behind"`)

	rr = do(f.ac.GetWatches, http.MethodGet, "/left-behind/watches", "")
	var watches []models.LeftBehindWatch
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &watches))
	require.Len(t, watches, 1)
	assert.True(t, watches[0].Triggered)
}

func TestLeftBehind_Errors(t *testing.T) {
	f := newLeftBehindFixture()
	require.NoError(t, f.store.PutTracker(context.Background(), models.Tracker{ID: "t1", Name: "Keys"}))

	rr := do(f.ac.ArmLeftBehind, http.MethodPost, "/left-behind/watch", `{"trackerId":"t1","latitude":1,"longitude":1,"timestamp":1}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(f.ac.ArmLeftBehind, http.MethodPost, "/left-behind/watch", `{"trackerId":"t1","latitude":91,"longitude":1,"timestamp":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(f.ac.ReceiveOwnerLocation, http.MethodPost, "/owner-locations", `{"trackerId":"t1","latitude":1,"longitude":1,"timestamp":1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(f.ac.ReceiveOwnerLocation, http.MethodPost, "/owner-locations", `{`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(f.ac.GetWatches, http.MethodGet, "/left-behind/watches", "")
	assert.Equal(t, "[]", rr.Body.String())
}

func TestLeftBehind_Disarm(t *testing.T) {
	f := newLeftBehindFixture()
	require.NoError(t, f.store.PutWatch(context.Background(), models.LeftBehindWatch{TrackerID: "t1"}))

	rr := do(f.ac.DisarmLeftBehind, http.MethodPost, "/left-behind/watch/delete", `{"trackerId":"t1"}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(f.ac.DisarmLeftBehind, http.MethodPost, "/left-behind/watch/delete", `{"trackerId":"t1"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
