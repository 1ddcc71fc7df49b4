package controllers

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"geoalert/internal/engine"
	"geoalert/internal/models"
	"geoalert/internal/providers"
	"geoalert/internal/services"
	"geoalert/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1 MB

const defaultAlertLimit = 100

type ApiController struct {
	logger  providers.Logger
	service services.AlertServiceInterface
	store   storage.Store
	cache   providers.CacheProviderInterface
	now     func() time.Time
}

func NewApiController(logger providers.Logger, service services.AlertServiceInterface, store storage.Store, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		store:   store,
		cache:   cache,
		now:     time.Now,
	}
}

type locationRequest struct {
	TrackerID      string   `json:"trackerId"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Timestamp      int64    `json:"timestamp"`
	AccuracyMeters *float64 `json:"accuracy,omitempty"`
}

func (payload locationRequest) sample(now time.Time) models.LocationSample {
	if payload.Timestamp == 0 {
		payload.Timestamp = now.UnixMilli()
	}
	return models.LocationSample{
		Latitude:       payload.Latitude,
		Longitude:      payload.Longitude,
		TimestampMs:    payload.Timestamp,
		AccuracyMeters: payload.AccuracyMeters,
	}
}

type geofenceRequest struct {
	models.Geofence
	IsActive *bool `json:"isActive"`
}

type ruleRequest struct {
	models.ScheduleRule
	IsActive *bool `json:"isActive"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// orEmpty keeps empty lists encoded as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (ac *ApiController) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	ac.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s: %s", r.Method, r.URL.Path, err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, r *http.Request, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		ac.fail(w, r, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

// ReceiveLocation evaluates one position report. A missing timestamp is
// stamped with the server clock.
func (ac *ApiController) ReceiveLocation(w http.ResponseWriter, r *http.Request) {
	var payload locationRequest
	if !decode(w, r, &payload) {
		return
	}
	res, err := ac.service.ProcessLocation(r.Context(), payload.TrackerID, payload.sample(ac.now()))
	if err != nil {
		if errors.Is(err, engine.ErrInvalidSample) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ac.fail(w, r, err)
		return
	}
	if len(res.Alerts) > 0 {
		ac.cache.Clear()
	}
	writeJSON(w, http.StatusOK, res)
}

func (ac *ApiController) GetAlerts(w http.ResponseWriter, r *http.Request) {
	trackerID := r.URL.Query().Get("trackerId")
	limit := defaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := cast.ToIntE(raw)
		if err != nil || v < 0 {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		limit = v
	}
	ac.serveFromCacheOrCompute(w, r, "alerts:"+trackerID+":"+cast.ToString(limit), func() (any, error) {
		alerts, err := ac.store.ListAlerts(r.Context(), trackerID, limit)
		return orEmpty(alerts), err
	})
}

func (ac *ApiController) PutTracker(w http.ResponseWriter, r *http.Request) {
	var tracker models.Tracker
	if !decode(w, r, &tracker) {
		return
	}
	if tracker.ID == "" {
		tracker.ID = models.NewID()
	}
	switch tracker.Type {
	case "":
		tracker.Type = models.TrackerVirtual
	case models.TrackerPhysical, models.TrackerVirtual:
	default:
		http.Error(w, "unknown tracker type", http.StatusBadRequest)
		return
	}
	// lastSeen only moves through evaluated samples
	tracker.LastSeen = nil

	if err := ac.store.PutTracker(r.Context(), tracker); err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.cache.Clear()
	saved, err := ac.store.GetTracker(r.Context(), tracker.ID)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (ac *ApiController) GetTrackers(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, "trackers", func() (any, error) {
		trackers, err := ac.store.ListTrackers(r.Context())
		return orEmpty(trackers), err
	})
}

func (ac *ApiController) PutGeofence(w http.ResponseWriter, r *http.Request) {
	var payload geofenceRequest
	if !decode(w, r, &payload) {
		return
	}
	g := payload.Geofence
	g.IsActive = payload.IsActive == nil || *payload.IsActive
	if g.ID == "" {
		g.ID = models.NewID()
	}
	if err := engine.ValidateGeofence(g); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := ac.store.PutGeofence(r.Context(), g); err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.cache.Clear()
	writeJSON(w, http.StatusCreated, g)
}

func (ac *ApiController) GetGeofences(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, "geofences", func() (any, error) {
		geofences, err := ac.store.ListGeofences(r.Context())
		return orEmpty(geofences), err
	})
}

func (ac *ApiController) PutLink(w http.ResponseWriter, r *http.Request) {
	var link models.TrackerGeofenceLink
	if !decode(w, r, &link) {
		return
	}
	if link.TrackerID == "" || link.GeofenceID == "" {
		http.Error(w, "trackerId and geofenceId are required", http.StatusBadRequest)
		return
	}
	if _, err := ac.store.GetGeofence(r.Context(), link.GeofenceID); err != nil {
		ac.fail(w, r, err)
		return
	}
	if err := ac.store.PutLink(r.Context(), link); err != nil {
		ac.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (ac *ApiController) DeleteLink(w http.ResponseWriter, r *http.Request) {
	var key models.GeofenceKey
	if !decode(w, r, &key) {
		return
	}
	if err := ac.store.DeleteLink(r.Context(), key); err != nil {
		ac.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) PutRule(w http.ResponseWriter, r *http.Request) {
	var payload ruleRequest
	if !decode(w, r, &payload) {
		return
	}
	rule := payload.ScheduleRule
	rule.IsActive = payload.IsActive == nil || *payload.IsActive
	if rule.ID == "" {
		rule.ID = models.NewID()
	}
	if rule.TrackerID == "" {
		http.Error(w, "trackerId is required", http.StatusBadRequest)
		return
	}
	if err := engine.ValidateRule(rule); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	saved, err := ac.service.SaveRule(r.Context(), rule)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.cache.Clear()
	writeJSON(w, http.StatusCreated, saved)
}

func (ac *ApiController) GetRules(w http.ResponseWriter, r *http.Request) {
	trackerID := r.URL.Query().Get("trackerId")
	ac.serveFromCacheOrCompute(w, r, "rules:"+trackerID, func() (any, error) {
		rules, err := ac.store.ListRules(r.Context(), trackerID)
		return orEmpty(rules), err
	})
}

// PollSchedules runs a scheduled-alert pass immediately.
func (ac *ApiController) PollSchedules(w http.ResponseWriter, r *http.Request) {
	res, err := ac.service.PollSchedules(r.Context(), ac.now())
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.cache.Clear()
	writeJSON(w, http.StatusOK, res)
}

func (ac *ApiController) failLeftBehind(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidSample):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, engine.ErrNoTrackerPosition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		ac.fail(w, r, err)
	}
}

// ArmLeftBehind starts a left-behind watch from the owner's current
// position. The body carries the owner's coordinates.
func (ac *ApiController) ArmLeftBehind(w http.ResponseWriter, r *http.Request) {
	var payload locationRequest
	if !decode(w, r, &payload) {
		return
	}
	watch, err := ac.service.ArmLeftBehind(r.Context(), payload.TrackerID, payload.sample(ac.now()))
	if err != nil {
		ac.failLeftBehind(w, r, err)
		return
	}
	ac.cache.Clear()
	writeJSON(w, http.StatusCreated, watch)
}

func (ac *ApiController) ReceiveOwnerLocation(w http.ResponseWriter, r *http.Request) {
	var payload locationRequest
	if !decode(w, r, &payload) {
		return
	}
	res, err := ac.service.ProcessOwnerLocation(r.Context(), payload.TrackerID, payload.sample(ac.now()))
	if err != nil {
		ac.failLeftBehind(w, r, err)
		return
	}
	ac.cache.Clear()
	writeJSON(w, http.StatusOK, res)
}

func (ac *ApiController) GetWatches(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, "watches", func() (any, error) {
		watches, err := ac.store.ListWatches(r.Context())
		return orEmpty(watches), err
	})
}

func (ac *ApiController) DisarmLeftBehind(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TrackerID string `json:"trackerId"`
	}
	if !decode(w, r, &payload) {
		return
	}
	if err := ac.service.DisarmLeftBehind(r.Context(), payload.TrackerID); err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.cache.Clear()
	w.WriteHeader(http.StatusNoContent)
}
