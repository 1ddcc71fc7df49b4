package engine

import (
	"errors"
	"fmt"
	"time"

	"geoalert/internal/models"
)

const dateLayout = "2006-01-02"

var (
	errWeeklyDay  = errors.New("weekly rule needs day of week 0..6")
	errMonthlyDay = errors.New("monthly rule needs day of month 1..31")
)

// ScheduleMatcher decides whether a point in time satisfies a schedule
// rule. Times are compared as wall-clock minutes in Location, within
// ToleranceMinutes either side of the scheduled time. There is no wrap
// across midnight and no last-day fallback for monthly rules.
type ScheduleMatcher struct {
	ToleranceMinutes int
	Location         *time.Location
}

func NewScheduleMatcher(toleranceMinutes int, loc *time.Location) *ScheduleMatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleMatcher{ToleranceMinutes: toleranceMinutes, Location: loc}
}

// Matches returns an error only for rules it cannot interpret: an
// unparseable time or date, a missing day field or an unknown type.
func (m *ScheduleMatcher) Matches(rule models.ScheduleRule, now time.Time) (bool, error) {
	if !rule.IsActive {
		return false, nil
	}
	tod, err := models.ParseTimeOfDay(rule.ScheduledTime)
	if err != nil {
		return false, err
	}
	local := now.In(m.Location)

	diff := local.Hour()*60 + local.Minute() - tod.Minutes()
	if diff < 0 {
		diff = -diff
	}
	timeOK := diff <= m.ToleranceMinutes

	switch rule.ScheduleType {
	case models.ScheduleOneTime:
		date, err := time.ParseInLocation(dateLayout, rule.ScheduledDate, m.Location)
		if err != nil {
			return false, fmt.Errorf("scheduled date %q: %w", rule.ScheduledDate, err)
		}
		y, mo, d := local.Date()
		return timeOK && date.Year() == y && date.Month() == mo && date.Day() == d, nil
	case models.ScheduleDaily:
		return timeOK, nil
	case models.ScheduleWeekly:
		if rule.DayOfWeek == nil || *rule.DayOfWeek < 0 || *rule.DayOfWeek > 6 {
			return false, errWeeklyDay
		}
		return timeOK && int(local.Weekday()) == *rule.DayOfWeek, nil
	case models.ScheduleMonthly:
		if rule.DayOfMonth == nil || *rule.DayOfMonth < 1 || *rule.DayOfMonth > 31 {
			return false, errMonthlyDay
		}
		return timeOK && local.Day() == *rule.DayOfMonth, nil
	default:
		return false, fmt.Errorf("unknown schedule type %q", rule.ScheduleType)
	}
}

// ValidateRule reports the first reason Matches would reject rule.
func ValidateRule(rule models.ScheduleRule) error {
	if !rule.ScheduleType.Valid() {
		return fmt.Errorf("unknown schedule type %q", rule.ScheduleType)
	}
	if _, err := models.ParseTimeOfDay(rule.ScheduledTime); err != nil {
		return err
	}
	switch rule.ScheduleType {
	case models.ScheduleOneTime:
		if _, err := time.Parse(dateLayout, rule.ScheduledDate); err != nil {
			return fmt.Errorf("scheduled date %q: %w", rule.ScheduledDate, err)
		}
	case models.ScheduleWeekly:
		if rule.DayOfWeek == nil || *rule.DayOfWeek < 0 || *rule.DayOfWeek > 6 {
			return errWeeklyDay
		}
	case models.ScheduleMonthly:
		if rule.DayOfMonth == nil || *rule.DayOfMonth < 1 || *rule.DayOfMonth > 31 {
			return errMonthlyDay
		}
	}
	return nil
}
