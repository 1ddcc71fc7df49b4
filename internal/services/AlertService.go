package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"geoalert/internal/engine"
	"geoalert/internal/models"
	"geoalert/internal/providers"
	"geoalert/internal/sink"
	"geoalert/internal/storage"
	"geoalert/internal/structures"
)

// Sample outcomes returned in ProcessResult.Outcome.
const (
	OutcomeEvaluated = providers.SampleEvaluated
	OutcomeThrottled = providers.SampleThrottled
	OutcomeStale     = providers.SampleStale
)

type ProcessResult struct {
	Outcome string         `json:"outcome"`
	Alerts  []models.Alert `json:"alerts"`
	Issues  []string       `json:"issues,omitempty"`
}

type PollResult struct {
	Evaluated int            `json:"evaluated"`
	Alerts    []models.Alert `json:"alerts"`
	Issues    []string       `json:"issues,omitempty"`
}

type AlertServiceInterface interface {
	ProcessLocation(ctx context.Context, trackerID string, sample models.LocationSample) (*ProcessResult, error)
	PollSchedules(ctx context.Context, now time.Time) (*PollResult, error)
	SaveRule(ctx context.Context, rule models.ScheduleRule) (models.ScheduleRule, error)
	ArmLeftBehind(ctx context.Context, trackerID string, owner models.LocationSample) (models.LeftBehindWatch, error)
	ProcessOwnerLocation(ctx context.Context, trackerID string, owner models.LocationSample) (*ProcessResult, error)
	DisarmLeftBehind(ctx context.Context, trackerID string) error
}

// AlertService runs location samples and schedule polls through the
// evaluators. State is committed before any alert reaches the sink, so a
// failed write emits nothing and a failed sink never rolls back state.
type AlertService struct {
	store     storage.Store
	sink      sink.AlertSink
	geofences engine.GeofenceEvaluatorInterface
	schedules engine.ScheduledAlertEvaluatorInterface
	throttle  engine.SampleThrottle
	conf      structures.EngineConfig
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
	now       func() time.Time

	locks  trackerLocks
	pollMu sync.Mutex
}

func NewAlertService(conf *structures.Config, store storage.Store, alertSink sink.AlertSink, logger providers.Logger, metrics providers.MetricsProviderInterface) AlertServiceInterface {
	matcher := engine.NewScheduleMatcher(conf.Engine.ToleranceMinutes, providers.Location(conf))
	return &AlertService{
		store:     store,
		sink:      alertSink,
		geofences: engine.NewGeofenceEvaluator(),
		schedules: engine.NewScheduledAlertEvaluator(matcher, conf.Engine.SuppressionWindow),
		throttle:  engine.NewSampleThrottle(conf.Engine.DedupWindow, conf.Engine.DedupDistanceMeters),
		conf:      conf.Engine,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
		locks:     trackerLocks{locks: make(map[string]*trackerLock)},
	}
}

func (s *AlertService) ProcessLocation(ctx context.Context, trackerID string, sample models.LocationSample) (*ProcessResult, error) {
	if err := engine.ValidateSample(trackerID, sample); err != nil {
		s.metrics.IncSamples(providers.SampleInvalid)
		return nil, err
	}

	unlock := s.locks.lock(trackerID)
	defer unlock()

	tracker, err := s.store.GetTracker(ctx, trackerID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load tracker %s: %w", trackerID, err)
	}
	if err != nil {
		tracker = models.Tracker{ID: trackerID}
	}

	prior, err := s.store.StatesForTracker(ctx, trackerID)
	if err != nil {
		return nil, fmt.Errorf("load states for %s: %w", trackerID, err)
	}

	last, found := engine.LastEvaluated(prior)
	if tracker.LastSeen != nil {
		last, found = *tracker.LastSeen, true
	}
	if found {
		if engine.Stale(last, sample) {
			s.metrics.IncSamples(OutcomeStale)
			s.logger.Debugf(providers.TypeEngine, "tracker %s: dropped stale sample at %d (last %d)", trackerID, sample.TimestampMs, last.TimestampMs)
			return &ProcessResult{Outcome: OutcomeStale}, nil
		}
		if s.throttle.Suppress(last, sample) {
			s.metrics.IncSamples(OutcomeThrottled)
			return &ProcessResult{Outcome: OutcomeThrottled}, nil
		}
	}

	links, err := s.store.LinksForTracker(ctx, trackerID)
	if err != nil {
		return nil, fmt.Errorf("load links for %s: %w", trackerID, err)
	}
	fences, err := s.store.GeofencesForTracker(ctx, trackerID)
	if err != nil {
		return nil, fmt.Errorf("load geofences for %s: %w", trackerID, err)
	}

	res, err := s.geofences.Evaluate(trackerID, sample, links, fences, prior)
	if err != nil {
		return nil, err
	}
	result := &ProcessResult{Outcome: OutcomeEvaluated, Issues: s.reportIssues(res.Issues)}

	if err := s.store.RecordEvaluation(ctx, trackerID, sample, res.States); err != nil {
		return nil, fmt.Errorf("record evaluation for %s: %w", trackerID, err)
	}
	s.metrics.IncSamples(OutcomeEvaluated)

	names := make(map[string]string, len(fences))
	for _, g := range fences {
		names[g.ID] = g.Name
	}
	for _, ev := range res.Events {
		s.metrics.IncTransitions(string(ev.Kind))
		s.logger.Infof(providers.TypeEngine, "tracker %s %s geofence %s", trackerID, ev.Kind, ev.GeofenceID)
		if !s.conf.GeofenceAlerts {
			continue
		}
		alert := s.geofenceAlert(&tracker, ev, names[ev.GeofenceID])
		s.emit(ctx, alert)
		result.Alerts = append(result.Alerts, alert)
	}
	return result, nil
}

// PollSchedules runs one schedule pass. Passes are serialized so a manual
// poll cannot race the periodic one into a double fire.
func (s *AlertService) PollSchedules(ctx context.Context, now time.Time) (*PollResult, error) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	rules, err := s.store.ActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active rules: %w", err)
	}

	res := s.schedules.Evaluate(rules, now)
	result := &PollResult{Evaluated: len(rules), Issues: s.reportIssues(res.Issues)}

	if len(res.Updated) > 0 {
		if err := s.store.PutRules(ctx, res.Updated); err != nil {
			return nil, fmt.Errorf("save fired rules: %w", err)
		}
	}

	byID := make(map[string]models.ScheduleRule, len(res.Updated))
	for _, r := range res.Updated {
		byID[r.ID] = r
	}
	for _, fire := range res.Fires {
		rule := byID[fire.RuleID]
		s.metrics.IncScheduleFires(string(rule.ScheduleType))
		s.logger.Infof(providers.TypeEngine, "schedule %s (%s) fired for tracker %s", rule.ID, rule.ScheduleType, rule.TrackerID)
		if !s.conf.ScheduleAlerts {
			continue
		}
		alert := scheduledAlert(rule, time.UnixMilli(fire.At))
		s.emit(ctx, alert)
		result.Alerts = append(result.Alerts, alert)
	}
	return result, nil
}

// SaveRule stores a client edit of a schedule rule. It holds the poll lock
// so an edit cannot interleave with a pass that is firing the same rule.
func (s *AlertService) SaveRule(ctx context.Context, rule models.ScheduleRule) (models.ScheduleRule, error) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	var stored *models.ScheduleRule
	existing, err := s.store.GetRule(ctx, rule.ID)
	switch {
	case err == nil:
		stored = &existing
	case !errors.Is(err, storage.ErrNotFound):
		return models.ScheduleRule{}, fmt.Errorf("load rule %s: %w", rule.ID, err)
	}

	merged := engine.MergeRuleEdit(stored, rule)
	if err := s.store.PutRule(ctx, merged); err != nil {
		return models.ScheduleRule{}, fmt.Errorf("save rule %s: %w", rule.ID, err)
	}
	return merged, nil
}

// ArmLeftBehind starts a left-behind watch between the owner at owner and
// the tracker's last seen position, replacing any earlier watch.
func (s *AlertService) ArmLeftBehind(ctx context.Context, trackerID string, owner models.LocationSample) (models.LeftBehindWatch, error) {
	if err := engine.ValidateSample(trackerID, owner); err != nil {
		return models.LeftBehindWatch{}, err
	}
	unlock := s.locks.lock(trackerID)
	defer unlock()

	tracker, err := s.store.GetTracker(ctx, trackerID)
	if err != nil {
		return models.LeftBehindWatch{}, err
	}
	if tracker.LastSeen == nil {
		return models.LeftBehindWatch{}, fmt.Errorf("tracker %s: %w", trackerID, engine.ErrNoTrackerPosition)
	}

	watch := engine.ArmLeftBehind(trackerID, owner, *tracker.LastSeen, s.conf.LeftBehindMeters)
	if err := s.store.PutWatch(ctx, watch); err != nil {
		return models.LeftBehindWatch{}, fmt.Errorf("save watch for %s: %w", trackerID, err)
	}
	s.logger.Infof(providers.TypeEngine, "tracker %s: left-behind watch armed at %.1f m", trackerID, watch.BaselineMeters)
	return watch, nil
}

// ProcessOwnerLocation checks the tracker's watch against a new owner
// position. The watch is saved before the alert is emitted.
func (s *AlertService) ProcessOwnerLocation(ctx context.Context, trackerID string, owner models.LocationSample) (*ProcessResult, error) {
	if err := engine.ValidateSample(trackerID, owner); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(trackerID)
	defer unlock()

	watch, err := s.store.GetWatch(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	if owner.TimestampMs < watch.LastCheckedAt {
		return &ProcessResult{Outcome: OutcomeStale}, nil
	}
	tracker, err := s.store.GetTracker(ctx, trackerID)
	if err != nil {
		return nil, fmt.Errorf("load tracker %s: %w", trackerID, err)
	}
	if tracker.LastSeen == nil {
		return nil, fmt.Errorf("tracker %s: %w", trackerID, engine.ErrNoTrackerPosition)
	}

	next, fired := engine.EvaluateLeftBehind(watch, owner, *tracker.LastSeen)
	if err := s.store.PutWatch(ctx, next); err != nil {
		return nil, fmt.Errorf("save watch for %s: %w", trackerID, err)
	}

	result := &ProcessResult{Outcome: OutcomeEvaluated}
	if !fired {
		return result, nil
	}
	s.metrics.IncTransitions(string(models.AlertLeftBehind))
	s.logger.Infof(providers.TypeEngine, "tracker %s left behind: %.1f m from owner", trackerID, next.LastDistanceMeters)
	if !s.conf.LeftBehindAlerts {
		return result, nil
	}
	alert := s.leftBehindAlert(&tracker, next)
	s.emit(ctx, alert)
	result.Alerts = append(result.Alerts, alert)
	return result, nil
}

func (s *AlertService) DisarmLeftBehind(ctx context.Context, trackerID string) error {
	unlock := s.locks.lock(trackerID)
	defer unlock()
	return s.store.DeleteWatch(ctx, trackerID)
}

func (s *AlertService) reportIssues(issues []engine.Issue) []string {
	if len(issues) == 0 {
		return nil
	}
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		s.metrics.IncIssues(string(issue.Kind))
		s.logger.Warnf(providers.TypeEngine, "skipped: %s", issue.Error())
		out = append(out, issue.Error())
	}
	return out
}

func (s *AlertService) emit(ctx context.Context, alert models.Alert) {
	if err := s.sink.Emit(ctx, alert); err != nil {
		s.metrics.IncSinkFailures()
		s.logger.Errorf(providers.TypeEngine, "alert %s for tracker %s not delivered: %s", alert.ID, alert.TrackerID, err)
	}
}

func (s *AlertService) geofenceAlert(tracker *models.Tracker, ev models.TransitionEvent, geofenceName string) models.Alert {
	if geofenceName == "" {
		geofenceName = ev.GeofenceID
	}
	alert := models.Alert{
		ID:        models.NewID(),
		TrackerID: ev.TrackerID,
		Metadata: map[string]any{
			"geofence_id":   ev.GeofenceID,
			"geofence_name": geofenceName,
		},
		CreatedAt: s.now(),
	}
	if ev.Kind == models.TransitionEnter {
		alert.Type = models.AlertGeofenceEnter
		alert.Title = "Geofence Entered"
		alert.Message = fmt.Sprintf("%s has entered %s", tracker.DisplayName(), geofenceName)
	} else {
		alert.Type = models.AlertGeofenceExit
		alert.Title = "Geofence Exited"
		alert.Message = fmt.Sprintf("%s has left %s", tracker.DisplayName(), geofenceName)
	}
	return alert
}

func (s *AlertService) leftBehindAlert(tracker *models.Tracker, watch models.LeftBehindWatch) models.Alert {
	return models.Alert{
		ID:        models.NewID(),
		TrackerID: tracker.ID,
		Type:      models.AlertLeftBehind,
		Title:     "Item Left Behind",
		Message:   fmt.Sprintf("You might be leaving your %s behind!", tracker.DisplayName()),
		Metadata: map[string]any{
			"distance_meters": watch.LastDistanceMeters,
			"baseline_meters": watch.BaselineMeters,
		},
		CreatedAt: s.now(),
	}
}

func scheduledAlert(rule models.ScheduleRule, at time.Time) models.Alert {
	return models.Alert{
		ID:        models.NewID(),
		TrackerID: rule.TrackerID,
		Type:      models.AlertScheduled,
		Title:     rule.Title,
		Message:   rule.Message,
		Metadata: map[string]any{
			"schedule_id":   rule.ID,
			"schedule_type": string(rule.ScheduleType),
		},
		CreatedAt: at,
	}
}

type trackerLock struct {
	sync.Mutex
	refs int
}

// trackerLocks hands out one mutex per tracker id and forgets it once no
// goroutine holds or waits on it.
type trackerLocks struct {
	mu    sync.Mutex
	locks map[string]*trackerLock
}

func (l *trackerLocks) lock(id string) func() {
	l.mu.Lock()
	tl, ok := l.locks[id]
	if !ok {
		tl = &trackerLock{}
		l.locks[id] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.Lock()
	return func() {
		tl.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
