package models

// Geofence is a circular region owned by a user.
type Geofence struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	CenterLatitude  float64 `json:"centerLatitude"`
	CenterLongitude float64 `json:"centerLongitude"`
	RadiusMeters    float64 `json:"radius"`
	IsActive        bool    `json:"isActive"`
}

// TrackerGeofenceLink declares which transitions of a tracker across a
// geofence should raise alerts.
type TrackerGeofenceLink struct {
	TrackerID    string `json:"trackerId"`
	GeofenceID   string `json:"geofenceId"`
	AlertOnEnter bool   `json:"alertOnEnter"`
	AlertOnExit  bool   `json:"alertOnExit"`
}

func (l TrackerGeofenceLink) Key() GeofenceKey {
	return GeofenceKey{TrackerID: l.TrackerID, GeofenceID: l.GeofenceID}
}

type GeofenceKey struct {
	TrackerID  string `json:"trackerId"`
	GeofenceID string `json:"geofenceId"`
}

// GeofenceState is the last known inside/outside status of a tracker for one
// geofence. A missing state means the pair was never evaluated.
type GeofenceState struct {
	TrackerID       string  `json:"trackerId"`
	GeofenceID      string  `json:"geofenceId"`
	IsInside        bool    `json:"isInside"`
	LastEvaluatedAt int64   `json:"lastEvaluatedAt"`
	LastLatitude    float64 `json:"lastLatitude"`
	LastLongitude   float64 `json:"lastLongitude"`
}

func (s GeofenceState) Key() GeofenceKey {
	return GeofenceKey{TrackerID: s.TrackerID, GeofenceID: s.GeofenceID}
}

type TransitionKind string

const (
	TransitionEnter TransitionKind = "enter"
	TransitionExit  TransitionKind = "exit"
)

type TransitionEvent struct {
	TrackerID  string         `json:"trackerId"`
	GeofenceID string         `json:"geofenceId"`
	Kind       TransitionKind `json:"kind"`
	At         int64          `json:"at"`
}
