package models

import "time"

// LocationSample is a single position report for a tracker. Timestamps are
// Unix milliseconds.
type LocationSample struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	TimestampMs    int64    `json:"timestamp"`
	AccuracyMeters *float64 `json:"accuracy,omitempty"`
}

func (s LocationSample) Time() time.Time {
	return time.UnixMilli(s.TimestampMs)
}
