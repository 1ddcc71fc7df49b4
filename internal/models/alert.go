package models

import (
	"time"

	"github.com/google/uuid"
)

type AlertType string

const (
	AlertGeofenceEnter AlertType = "geofence_enter"
	AlertGeofenceExit  AlertType = "geofence_exit"
	AlertScheduled     AlertType = "scheduled"
	AlertLeftBehind    AlertType = "left_behind"
)

// Alert is the finished record handed to an alert sink.
type Alert struct {
	ID        string         `json:"id"`
	TrackerID string         `json:"trackerId"`
	Type      AlertType      `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func NewID() string {
	return uuid.NewString()
}
