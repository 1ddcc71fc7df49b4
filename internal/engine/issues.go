package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidSample marks a location sample that violates the caller
// contract (missing tracker, non-finite or out-of-range coordinates,
// missing timestamp). It fails only the evaluation it was passed to.
var ErrInvalidSample = errors.New("invalid location sample")

type IssueKind string

const (
	IssueMissingGeofence IssueKind = "missing_geofence"
	IssueInvalidRadius   IssueKind = "invalid_radius"
	IssueInvalidCenter   IssueKind = "invalid_center"
	IssueInvalidTime     IssueKind = "invalid_time"
	IssueInvalidRule     IssueKind = "invalid_rule"
)

// Issue is a configuration problem found during an evaluation pass. The
// offending item is skipped; every other item is still evaluated.
type Issue struct {
	Kind       IssueKind
	TrackerID  string
	GeofenceID string
	RuleID     string
	Err        error
}

func (i Issue) Error() string {
	switch {
	case i.RuleID != "":
		return fmt.Sprintf("%s: rule %s: %v", i.Kind, i.RuleID, i.Err)
	default:
		return fmt.Sprintf("%s: tracker %s geofence %s: %v", i.Kind, i.TrackerID, i.GeofenceID, i.Err)
	}
}

func (i Issue) Unwrap() error {
	return i.Err
}
