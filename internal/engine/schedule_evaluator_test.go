package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoalert/internal/models"
)

func newEvaluator() ScheduledAlertEvaluatorInterface {
	return NewScheduledAlertEvaluator(NewScheduleMatcher(1, time.UTC), time.Hour)
}

func TestScheduledAlertEvaluator_WeeklyFiresOncePerWindow(t *testing.T) {
	e := newEvaluator()
	rules := []models.ScheduleRule{{ID: "gym", TrackerID: "t1", ScheduleType: models.ScheduleWeekly, ScheduledTime: "18:30", DayOfWeek: day(1), IsActive: true}}

	fires := 0
	for _, when := range []string{"2024-01-01 18:29", "2024-01-01 18:30", "2024-01-01 18:31"} {
		res := e.Evaluate(rules, at(when))
		require.Empty(t, res.Issues)
		fires += len(res.Fires)
		if len(res.Updated) > 0 {
			rules = res.Updated
		}
	}
	assert.Equal(t, 1, fires)
	assert.Equal(t, at("2024-01-01 18:29").UnixMilli(), rules[0].LastTriggeredAt)

	res := e.Evaluate(rules, at("2024-01-08 18:30"))
	assert.Len(t, res.Fires, 1)
}

func TestScheduledAlertEvaluator_OneTimeDeactivates(t *testing.T) {
	rule := models.ScheduleRule{ID: "once", ScheduleType: models.ScheduleOneTime, ScheduledTime: "10:00", ScheduledDate: "2024-05-01", IsActive: true}
	res := newEvaluator().Evaluate([]models.ScheduleRule{rule}, at("2024-05-01 10:00"))

	require.Len(t, res.Fires, 1)
	require.Len(t, res.Updated, 1)
	assert.False(t, res.Updated[0].IsActive)
}

func TestScheduledAlertEvaluator_IssuesDoNotStopOthers(t *testing.T) {
	rules := []models.ScheduleRule{
		{ID: "bad-time", ScheduleType: models.ScheduleDaily, ScheduledTime: "25:99", IsActive: true},
		{ID: "bad-day", ScheduleType: models.ScheduleWeekly, ScheduledTime: "09:00", IsActive: true},
		{ID: "good", ScheduleType: models.ScheduleDaily, ScheduledTime: "09:00", IsActive: true},
	}
	res := newEvaluator().Evaluate(rules, at("2024-05-01 09:00"))

	require.Len(t, res.Issues, 2)
	assert.Equal(t, IssueInvalidTime, res.Issues[0].Kind)
	assert.Equal(t, IssueInvalidRule, res.Issues[1].Kind)
	assert.Contains(t, res.Issues[1].Error(), "bad-day")
	require.Len(t, res.Fires, 1)
	assert.Equal(t, "good", res.Fires[0].RuleID)
}

func TestScheduledAlertEvaluator_UnchangedRulesAreNotReturned(t *testing.T) {
	rules := []models.ScheduleRule{{ID: "later", ScheduleType: models.ScheduleDaily, ScheduledTime: "17:00", IsActive: true}}
	res := newEvaluator().Evaluate(rules, at("2024-05-01 09:00"))
	assert.Empty(t, res.Fires)
	assert.Empty(t, res.Updated)
}

func TestMergeRuleEdit(t *testing.T) {
	fired := at("2024-01-01 18:30").UnixMilli()
	daily := models.ScheduleRule{ID: "gym", TrackerID: "t1", Title: "Gym", ScheduleType: models.ScheduleDaily, ScheduledTime: "18:30", IsActive: true, LastTriggeredAt: fired}
	once := models.ScheduleRule{ID: "once", TrackerID: "t1", ScheduleType: models.ScheduleOneTime, ScheduledTime: "10:00", ScheduledDate: "2024-05-01", IsActive: false, LastTriggeredAt: fired}

	t.Run("new rule drops a client supplied trigger time", func(t *testing.T) {
		edit := daily
		edit.LastTriggeredAt = 42
		assert.Zero(t, MergeRuleEdit(nil, edit).LastTriggeredAt)
	})

	t.Run("title edit keeps the trigger time", func(t *testing.T) {
		edit := daily
		edit.Title = "Gym!"
		edit.LastTriggeredAt = 0
		got := MergeRuleEdit(&daily, edit)
		assert.Equal(t, fired, got.LastTriggeredAt)
		assert.Equal(t, "Gym!", got.Title)
	})

	t.Run("edited time still inside suppression", func(t *testing.T) {
		edit := daily
		edit.ScheduledTime = "18:35"
		assert.Equal(t, fired, MergeRuleEdit(&daily, edit).LastTriggeredAt)
	})

	t.Run("fired one_time stays inactive", func(t *testing.T) {
		edit := once
		edit.IsActive = true
		edit.LastTriggeredAt = 0
		got := MergeRuleEdit(&once, edit)
		assert.False(t, got.IsActive)
		assert.Equal(t, fired, got.LastTriggeredAt)
	})

	t.Run("rescheduled one_time is revived", func(t *testing.T) {
		edit := once
		edit.IsActive = true
		edit.ScheduledDate = "2024-06-01"
		got := MergeRuleEdit(&once, edit)
		assert.True(t, got.IsActive)
		assert.Zero(t, got.LastTriggeredAt)
	})

	t.Run("one_time turned daily", func(t *testing.T) {
		edit := once
		edit.IsActive = true
		edit.ScheduleType = models.ScheduleDaily
		edit.ScheduledDate = ""
		got := MergeRuleEdit(&once, edit)
		assert.True(t, got.IsActive)
		assert.Equal(t, fired, got.LastTriggeredAt)
	})
}

func TestMergeRuleEdit_EditDoesNotRefireInWindow(t *testing.T) {
	e := newEvaluator()
	stored := models.ScheduleRule{ID: "gym", TrackerID: "t1", Title: "Gym", ScheduleType: models.ScheduleDaily, ScheduledTime: "18:30", IsActive: true}

	res := e.Evaluate([]models.ScheduleRule{stored}, at("2024-01-01 18:30"))
	require.Len(t, res.Fires, 1)
	stored = res.Updated[0]

	edit := models.ScheduleRule{ID: "gym", TrackerID: "t1", Title: "Gym!", ScheduleType: models.ScheduleDaily, ScheduledTime: "18:30", IsActive: true}
	res = e.Evaluate([]models.ScheduleRule{MergeRuleEdit(&stored, edit)}, at("2024-01-01 18:31"))
	assert.Empty(t, res.Fires)
}
