package engine

import (
	"errors"
	"fmt"
	"math"

	"geoalert/internal/geo"
	"geoalert/internal/models"
)

type GeofenceResult struct {
	Events []models.TransitionEvent
	States []models.GeofenceState
	Issues []Issue
}

type GeofenceEvaluatorInterface interface {
	Evaluate(trackerID string, sample models.LocationSample, links []models.TrackerGeofenceLink, geofences []models.Geofence, prior map[models.GeofenceKey]models.GeofenceState) (*GeofenceResult, error)
}

// GeofenceEvaluator decides, per linked geofence, whether a sample crosses
// the boundary relative to the previously recorded state. It holds no state
// of its own; the caller persists the returned states.
type GeofenceEvaluator struct{}

func NewGeofenceEvaluator() GeofenceEvaluatorInterface {
	return &GeofenceEvaluator{}
}

func (e *GeofenceEvaluator) Evaluate(trackerID string, sample models.LocationSample, links []models.TrackerGeofenceLink, geofences []models.Geofence, prior map[models.GeofenceKey]models.GeofenceState) (*GeofenceResult, error) {
	if err := ValidateSample(trackerID, sample); err != nil {
		return nil, err
	}

	byID := make(map[string]models.Geofence, len(geofences))
	for _, g := range geofences {
		byID[g.ID] = g
	}

	result := &GeofenceResult{}
	seen := make(map[string]struct{}, len(links))

	for _, link := range links {
		if link.TrackerID != "" && link.TrackerID != trackerID {
			continue
		}
		if _, dup := seen[link.GeofenceID]; dup {
			continue
		}
		seen[link.GeofenceID] = struct{}{}

		key := models.GeofenceKey{TrackerID: trackerID, GeofenceID: link.GeofenceID}
		fence, ok := byID[link.GeofenceID]
		if !ok {
			result.Issues = append(result.Issues, Issue{
				Kind: IssueMissingGeofence, TrackerID: trackerID, GeofenceID: link.GeofenceID,
				Err: errors.New("linked geofence not found"),
			})
			continue
		}
		// Disabled geofences keep their last known state.
		if !fence.IsActive {
			continue
		}
		if issue := checkGeofence(trackerID, fence); issue != nil {
			result.Issues = append(result.Issues, *issue)
			continue
		}

		d := geo.DistanceMeters(sample.Latitude, sample.Longitude, fence.CenterLatitude, fence.CenterLongitude)
		isInside := d <= fence.RadiusMeters

		wasInside := false
		if st, ok := prior[key]; ok {
			wasInside = st.IsInside
		}

		switch {
		case isInside && !wasInside && link.AlertOnEnter:
			result.Events = append(result.Events, models.TransitionEvent{
				TrackerID: trackerID, GeofenceID: fence.ID, Kind: models.TransitionEnter, At: sample.TimestampMs,
			})
		case !isInside && wasInside && link.AlertOnExit:
			result.Events = append(result.Events, models.TransitionEvent{
				TrackerID: trackerID, GeofenceID: fence.ID, Kind: models.TransitionExit, At: sample.TimestampMs,
			})
		}

		result.States = append(result.States, models.GeofenceState{
			TrackerID:       trackerID,
			GeofenceID:      fence.ID,
			IsInside:        isInside,
			LastEvaluatedAt: sample.TimestampMs,
			LastLatitude:    sample.Latitude,
			LastLongitude:   sample.Longitude,
		})
	}

	return result, nil
}

func ValidateSample(trackerID string, sample models.LocationSample) error {
	if trackerID == "" {
		return fmt.Errorf("%w: empty tracker id", ErrInvalidSample)
	}
	if !geo.Valid(sample.Latitude, sample.Longitude) {
		return fmt.Errorf("%w: coordinates (%v, %v)", ErrInvalidSample, sample.Latitude, sample.Longitude)
	}
	if sample.TimestampMs <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidSample)
	}
	return nil
}

func checkGeofence(trackerID string, g models.Geofence) *Issue {
	if math.IsNaN(g.RadiusMeters) || math.IsInf(g.RadiusMeters, 0) || g.RadiusMeters <= 0 {
		return &Issue{
			Kind: IssueInvalidRadius, TrackerID: trackerID, GeofenceID: g.ID,
			Err: fmt.Errorf("radius %v must be positive", g.RadiusMeters),
		}
	}
	if !geo.Valid(g.CenterLatitude, g.CenterLongitude) {
		return &Issue{
			Kind: IssueInvalidCenter, TrackerID: trackerID, GeofenceID: g.ID,
			Err: fmt.Errorf("center (%v, %v) out of range", g.CenterLatitude, g.CenterLongitude),
		}
	}
	return nil
}

// ValidateGeofence rejects geofences the evaluator would skip as
// misconfigured.
func ValidateGeofence(g models.Geofence) error {
	if issue := checkGeofence("", g); issue != nil {
		return issue.Err
	}
	return nil
}
