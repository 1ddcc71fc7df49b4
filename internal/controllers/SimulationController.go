package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"geoalert/internal/providers"
	"geoalert/internal/simulation"
	"geoalert/internal/storage"
)

type SimulationController struct {
	logger  providers.Logger
	manager simulation.ManagerInterface
	store   storage.Store
}

func NewSimulationController(logger providers.Logger, manager simulation.ManagerInterface, store storage.Store) *SimulationController {
	return &SimulationController{logger: logger, manager: manager, store: store}
}

// simulationRequest carries the pattern options inline; fields left out of
// the body keep their defaults (or the running values for a pattern change).
type simulationRequest struct {
	TrackerID  string             `json:"trackerId"`
	Pattern    simulation.Pattern `json:"pattern"`
	IntervalMs int64              `json:"intervalMs"`
	GeofenceID string             `json:"geofenceId"`
	Latitude   *float64           `json:"latitude"`
	Longitude  *float64           `json:"longitude"`
	simulation.Options
}

type simulationStatus struct {
	TrackerID string             `json:"trackerId"`
	Pattern   simulation.Pattern `json:"pattern"`
	Interval  int64              `json:"intervalMs"`
	Options   simulation.Options `json:"options"`
}

func (sc *SimulationController) status(trackerID string) (simulationStatus, bool) {
	p, opts, ok := sc.manager.Get(trackerID)
	if !ok {
		return simulationStatus{}, false
	}
	return simulationStatus{TrackerID: trackerID, Pattern: p, Interval: opts.Interval.Milliseconds(), Options: opts}, true
}

// resolve applies intervalMs and copies the geofence named by geofenceId
// into the target fields.
func (sc *SimulationController) resolve(r *http.Request, req *simulationRequest) error {
	if req.IntervalMs > 0 {
		req.Interval = time.Duration(req.IntervalMs) * time.Millisecond
	}
	if req.GeofenceID == "" {
		return nil
	}
	g, err := sc.store.GetGeofence(r.Context(), req.GeofenceID)
	if err != nil {
		return err
	}
	req.TargetLatitude = g.CenterLatitude
	req.TargetLongitude = g.CenterLongitude
	req.TargetRadiusMeters = g.RadiusMeters
	return nil
}

func (sc *SimulationController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, simulation.ErrInvalidOptions):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, simulation.ErrTooManySimulations), errors.Is(err, simulation.ErrAlreadyRunning):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		sc.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s: %s", r.Method, r.URL.Path, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Start begins a simulation from the request position, else the tracker's
// last seen position, else the default start point.
func (sc *SimulationController) Start(w http.ResponseWriter, r *http.Request) {
	req := simulationRequest{Pattern: simulation.PatternRandom, Options: sc.manager.Defaults()}
	if !decode(w, r, &req) {
		return
	}
	if req.TrackerID == "" {
		http.Error(w, "trackerId is required", http.StatusBadRequest)
		return
	}
	if err := sc.resolve(r, &req); err != nil {
		sc.writeError(w, r, err)
		return
	}

	lat, lon := simulation.DefaultStartLatitude, simulation.DefaultStartLongitude
	tracker, err := sc.store.GetTracker(r.Context(), req.TrackerID)
	switch {
	case err == nil && tracker.LastSeen != nil:
		lat, lon = tracker.LastSeen.Latitude, tracker.LastSeen.Longitude
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		sc.writeError(w, r, err)
		return
	}
	if req.Latitude != nil && req.Longitude != nil {
		lat, lon = *req.Latitude, *req.Longitude
	}

	if err := sc.manager.Start(req.TrackerID, lat, lon, req.Pattern, req.Options); err != nil {
		sc.writeError(w, r, err)
		return
	}
	st, _ := sc.status(req.TrackerID)
	writeJSON(w, http.StatusCreated, st)
}

func (sc *SimulationController) Stop(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": sc.manager.Stop(req.TrackerID)})
}

func (sc *SimulationController) ChangePattern(w http.ResponseWriter, r *http.Request) {
	var target simulationRequest
	// the body is read twice: once for the tracker id, once over the
	// running options
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil || json.Unmarshal(body, &target) != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	pattern, current, ok := sc.manager.Get(target.TrackerID)
	if !ok {
		http.Error(w, "no simulation for tracker", http.StatusNotFound)
		return
	}
	req := simulationRequest{Pattern: pattern, Options: current}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := sc.resolve(r, &req); err != nil {
		sc.writeError(w, r, err)
		return
	}

	found, err := sc.manager.ChangePattern(req.TrackerID, req.Pattern, req.Options)
	if !found {
		http.Error(w, "no simulation for tracker", http.StatusNotFound)
		return
	}
	if err != nil {
		sc.writeError(w, r, err)
		return
	}
	st, _ := sc.status(req.TrackerID)
	writeJSON(w, http.StatusOK, st)
}

func (sc *SimulationController) List(w http.ResponseWriter, r *http.Request) {
	out := []simulationStatus{}
	for _, id := range sc.manager.Running() {
		if st, ok := sc.status(id); ok {
			out = append(out, st)
		}
	}
	writeJSON(w, http.StatusOK, out)
}
