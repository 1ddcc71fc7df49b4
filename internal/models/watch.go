package models

// LeftBehindWatch follows the distance between a tracker and its owner.
// BaselineMeters is the separation when the watch was armed; Triggered is
// set while the owner is more than ThresholdMeters further away than that.
type LeftBehindWatch struct {
	TrackerID          string  `json:"trackerId"`
	BaselineMeters     float64 `json:"baselineMeters"`
	ThresholdMeters    float64 `json:"thresholdMeters"`
	Triggered          bool    `json:"triggered"`
	LastDistanceMeters float64 `json:"lastDistanceMeters"`
	ArmedAt            int64   `json:"armedAt"`
	LastCheckedAt      int64   `json:"lastCheckedAt"`
}
