package engine

import (
	"errors"
	"time"

	"geoalert/internal/models"
)

type ScheduleResult struct {
	Fires []models.ScheduleFireEvent
	// Updated holds only the rules whose state changed in this pass.
	Updated []models.ScheduleRule
	Issues  []Issue
}

type ScheduledAlertEvaluatorInterface interface {
	Evaluate(rules []models.ScheduleRule, now time.Time) *ScheduleResult
}

type ScheduledAlertEvaluator struct {
	matcher     *ScheduleMatcher
	suppression time.Duration
}

func NewScheduledAlertEvaluator(matcher *ScheduleMatcher, suppression time.Duration) ScheduledAlertEvaluatorInterface {
	return &ScheduledAlertEvaluator{matcher: matcher, suppression: suppression}
}

func (e *ScheduledAlertEvaluator) Evaluate(rules []models.ScheduleRule, now time.Time) *ScheduleResult {
	result := &ScheduleResult{}
	nowMs := now.UnixMilli()

	for _, rule := range rules {
		ok, err := e.matcher.Matches(rule, now)
		if err != nil {
			kind := IssueInvalidRule
			if errors.Is(err, models.ErrInvalidTimeOfDay) {
				kind = IssueInvalidTime
			}
			result.Issues = append(result.Issues, Issue{Kind: kind, TrackerID: rule.TrackerID, RuleID: rule.ID, Err: err})
			continue
		}
		if !ok {
			continue
		}
		if rule.LastTriggeredAt != 0 && nowMs-rule.LastTriggeredAt < e.suppression.Milliseconds() {
			continue
		}

		rule.LastTriggeredAt = nowMs
		if rule.ScheduleType == models.ScheduleOneTime {
			rule.IsActive = false
		}
		result.Fires = append(result.Fires, models.ScheduleFireEvent{RuleID: rule.ID, TrackerID: rule.TrackerID, At: nowMs})
		result.Updated = append(result.Updated, rule)
	}
	return result
}

// MergeRuleEdit applies a client edit to the stored rule. LastTriggeredAt
// belongs to the evaluator: it is carried over from stored, and a fired
// one_time rule stays inactive until the edit moves it to another date or
// time. stored is nil for a new rule.
func MergeRuleEdit(stored *models.ScheduleRule, edit models.ScheduleRule) models.ScheduleRule {
	edit.LastTriggeredAt = 0
	if stored == nil {
		return edit
	}
	changed := scheduleChanged(*stored, edit)
	if stored.ScheduleType == models.ScheduleOneTime && stored.LastTriggeredAt != 0 && !changed {
		edit.IsActive = false
	}
	if edit.ScheduleType != models.ScheduleOneTime || !changed {
		edit.LastTriggeredAt = stored.LastTriggeredAt
	}
	return edit
}

func scheduleChanged(a, b models.ScheduleRule) bool {
	return a.ScheduleType != b.ScheduleType ||
		a.ScheduledDate != b.ScheduledDate ||
		a.ScheduledTime != b.ScheduledTime
}
