package engine

import (
	"time"

	"geoalert/internal/geo"
	"geoalert/internal/models"
)

// SampleThrottle implements the per-tracker dedup applied before a sample
// reaches the geofence evaluator: a sample close in both time and space to
// the last evaluated one is dropped.
type SampleThrottle struct {
	Window      time.Duration
	MinDistance float64
}

func NewSampleThrottle(window time.Duration, minDistance float64) SampleThrottle {
	return SampleThrottle{Window: window, MinDistance: minDistance}
}

// Suppress reports whether next duplicates last.
func (t SampleThrottle) Suppress(last, next models.LocationSample) bool {
	dt := next.TimestampMs - last.TimestampMs
	if dt < 0 || dt > t.Window.Milliseconds() {
		return false
	}
	d := geo.DistanceMeters(last.Latitude, last.Longitude, next.Latitude, next.Longitude)
	return d < t.MinDistance
}

// Stale reports whether next is older than the last evaluated sample.
func Stale(last, next models.LocationSample) bool {
	return next.TimestampMs < last.TimestampMs
}

// LastEvaluated reconstructs the tracker's most recently evaluated sample
// from its per-geofence states.
func LastEvaluated(states map[models.GeofenceKey]models.GeofenceState) (models.LocationSample, bool) {
	var (
		last  models.LocationSample
		found bool
	)
	for _, st := range states {
		if !found || st.LastEvaluatedAt > last.TimestampMs {
			last = models.LocationSample{
				Latitude:    st.LastLatitude,
				Longitude:   st.LastLongitude,
				TimestampMs: st.LastEvaluatedAt,
			}
			found = true
		}
	}
	return last, found
}
