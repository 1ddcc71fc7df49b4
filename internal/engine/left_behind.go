package engine

import (
	"errors"

	"geoalert/internal/geo"
	"geoalert/internal/models"
)

// ErrNoTrackerPosition is returned when a left-behind check needs the
// tracker's position and the tracker has not reported one yet.
var ErrNoTrackerPosition = errors.New("tracker has no known position")

// ArmLeftBehind starts watching the owner-to-tracker separation. The
// current distance becomes the baseline.
func ArmLeftBehind(trackerID string, owner, tracker models.LocationSample, thresholdMeters float64) models.LeftBehindWatch {
	d := geo.DistanceMeters(owner.Latitude, owner.Longitude, tracker.Latitude, tracker.Longitude)
	return models.LeftBehindWatch{
		TrackerID:          trackerID,
		BaselineMeters:     d,
		ThresholdMeters:    thresholdMeters,
		LastDistanceMeters: d,
		ArmedAt:            owner.TimestampMs,
		LastCheckedAt:      owner.TimestampMs,
	}
}

// EvaluateLeftBehind compares the owner's new position with the tracker's
// last known one. It fires once when the separation grows past the
// baseline by more than the threshold, and re-arms after the owner comes
// back within it.
func EvaluateLeftBehind(watch models.LeftBehindWatch, owner, tracker models.LocationSample) (models.LeftBehindWatch, bool) {
	d := geo.DistanceMeters(owner.Latitude, owner.Longitude, tracker.Latitude, tracker.Longitude)
	watch.LastDistanceMeters = d
	watch.LastCheckedAt = owner.TimestampMs

	apart := d-watch.BaselineMeters > watch.ThresholdMeters
	switch {
	case apart && !watch.Triggered:
		watch.Triggered = true
		return watch, true
	case !apart && watch.Triggered:
		watch.Triggered = false
	}
	return watch, false
}
