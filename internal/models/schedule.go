package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type ScheduleType string

const (
	ScheduleOneTime ScheduleType = "one_time"
	ScheduleDaily   ScheduleType = "daily"
	ScheduleWeekly  ScheduleType = "weekly"
	ScheduleMonthly ScheduleType = "monthly"
)

func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleOneTime, ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
		return true
	}
	return false
}

// ScheduleRule is a recurring (or one-shot) reminder for a tracker.
// ScheduledTime is "HH:MM", ScheduledDate is "YYYY-MM-DD" and only used by
// one_time rules. LastTriggeredAt is Unix milliseconds, zero when the rule
// never fired.
type ScheduleRule struct {
	ID              string       `json:"id"`
	TrackerID       string       `json:"trackerId"`
	Title           string       `json:"title"`
	Message         string       `json:"message"`
	ScheduleType    ScheduleType `json:"scheduleType"`
	ScheduledTime   string       `json:"scheduledTime"`
	ScheduledDate   string       `json:"scheduledDate,omitempty"`
	DayOfWeek       *int         `json:"dayOfWeek,omitempty"`
	DayOfMonth      *int         `json:"dayOfMonth,omitempty"`
	IsActive        bool         `json:"isActive"`
	LastTriggeredAt int64        `json:"lastTriggeredAt,omitempty"`
}

type ScheduleFireEvent struct {
	RuleID    string `json:"ruleId"`
	TrackerID string `json:"trackerId"`
	At        int64  `json:"at"`
}

var ErrInvalidTimeOfDay = errors.New("invalid time of day")

type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay accepts "H:MM" or "HH:MM". Seconds ("HH:MM:SS", as stored
// by SQL time columns) must be 00..59 and are otherwise ignored.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if len(parts[1]) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if len(parts) == 3 {
		if len(parts[2]) != 2 {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}
