package storage

import (
	"context"
	"errors"

	"geoalert/internal/models"
)

var ErrNotFound = errors.New("not found")

// GeofenceSource is the read side the evaluators consume plus the editing
// operations used by the API. Unlinking a pair or deleting a geofence also
// drops the GeofenceState rows that belong to it.
type GeofenceSource interface {
	PutGeofence(ctx context.Context, g models.Geofence) error
	GetGeofence(ctx context.Context, id string) (models.Geofence, error)
	ListGeofences(ctx context.Context) ([]models.Geofence, error)
	DeleteGeofence(ctx context.Context, id string) error
	PutLink(ctx context.Context, link models.TrackerGeofenceLink) error
	DeleteLink(ctx context.Context, key models.GeofenceKey) error
	LinksForTracker(ctx context.Context, trackerID string) ([]models.TrackerGeofenceLink, error)
	GeofencesForTracker(ctx context.Context, trackerID string) ([]models.Geofence, error)
}

type StateStore interface {
	GetState(ctx context.Context, key models.GeofenceKey) (models.GeofenceState, bool, error)
	StatesForTracker(ctx context.Context, trackerID string) (map[models.GeofenceKey]models.GeofenceState, error)
	// RecordEvaluation stores the tracker's accepted sample as its last
	// seen position together with the new states, all or nothing.
	RecordEvaluation(ctx context.Context, trackerID string, sample models.LocationSample, states []models.GeofenceState) error
}

type RuleStore interface {
	GetRule(ctx context.Context, id string) (models.ScheduleRule, error)
	PutRule(ctx context.Context, rule models.ScheduleRule) error
	PutRules(ctx context.Context, rules []models.ScheduleRule) error
	ListRules(ctx context.Context, trackerID string) ([]models.ScheduleRule, error)
	ActiveRules(ctx context.Context) ([]models.ScheduleRule, error)
	DeleteRule(ctx context.Context, id string) error
}

type TrackerStore interface {
	PutTracker(ctx context.Context, t models.Tracker) error
	GetTracker(ctx context.Context, id string) (models.Tracker, error)
	ListTrackers(ctx context.Context) ([]models.Tracker, error)
}

type AlertStore interface {
	AppendAlert(ctx context.Context, a models.Alert) error
	// ListAlerts returns newest first. An empty trackerID lists all
	// trackers; limit <= 0 means no limit.
	ListAlerts(ctx context.Context, trackerID string, limit int) ([]models.Alert, error)
}

// WatchStore keeps one left-behind watch per tracker.
type WatchStore interface {
	PutWatch(ctx context.Context, w models.LeftBehindWatch) error
	GetWatch(ctx context.Context, trackerID string) (models.LeftBehindWatch, error)
	ListWatches(ctx context.Context) ([]models.LeftBehindWatch, error)
	DeleteWatch(ctx context.Context, trackerID string) error
}

type Store interface {
	GeofenceSource
	StateStore
	RuleStore
	TrackerStore
	AlertStore
	WatchStore
	Close() error
}
