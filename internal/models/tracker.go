package models

type TrackerType string

const (
	TrackerPhysical TrackerType = "physical"
	TrackerVirtual  TrackerType = "virtual"
)

type Tracker struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     TrackerType     `json:"type"`
	LastSeen *LocationSample `json:"lastSeen,omitempty"`
}

// DisplayName falls back to the id for unnamed trackers.
func (t *Tracker) DisplayName() string {
	if t == nil {
		return ""
	}
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}
