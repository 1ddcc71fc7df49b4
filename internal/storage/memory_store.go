package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"geoalert/internal/models"
)

const defaultAlertHistory = 5000

// Snapshot is the on-disk format of a MemoryStore.
type Snapshot struct {
	Version   int                          `json:"version"`
	Trackers  []models.Tracker             `json:"trackers"`
	Geofences []models.Geofence            `json:"geofences"`
	Links     []models.TrackerGeofenceLink `json:"links"`
	States    []models.GeofenceState       `json:"states"`
	Rules     []models.ScheduleRule        `json:"rules"`
	Alerts    []models.Alert               `json:"alerts"`
	Watches   []models.LeftBehindWatch     `json:"watches,omitempty"`
}

const snapshotVersion = 1

// MemoryStore keeps everything in process memory. Durability comes from
// periodic snapshots written by FileManager.
type MemoryStore struct {
	mu         sync.RWMutex
	trackers   map[string]models.Tracker
	geofences  map[string]models.Geofence
	links      map[models.GeofenceKey]models.TrackerGeofenceLink
	states     map[models.GeofenceKey]models.GeofenceState
	rules      map[string]models.ScheduleRule
	watches    map[string]models.LeftBehindWatch
	alerts     []models.Alert
	maxHistory int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trackers:   make(map[string]models.Tracker),
		geofences:  make(map[string]models.Geofence),
		links:      make(map[models.GeofenceKey]models.TrackerGeofenceLink),
		states:     make(map[models.GeofenceKey]models.GeofenceState),
		rules:      make(map[string]models.ScheduleRule),
		watches:    make(map[string]models.LeftBehindWatch),
		maxHistory: defaultAlertHistory,
	}
}

func (m *MemoryStore) PutGeofence(_ context.Context, g models.Geofence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geofences[g.ID] = g
	return nil
}

func (m *MemoryStore) GetGeofence(_ context.Context, id string) (models.Geofence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.geofences[id]
	if !ok {
		return models.Geofence{}, fmt.Errorf("geofence %s: %w", id, ErrNotFound)
	}
	return g, nil
}

func (m *MemoryStore) ListGeofences(_ context.Context) ([]models.Geofence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Geofence, 0, len(m.geofences))
	for _, g := range m.geofences {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DeleteGeofence(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.geofences[id]; !ok {
		return fmt.Errorf("geofence %s: %w", id, ErrNotFound)
	}
	delete(m.geofences, id)
	for key := range m.links {
		if key.GeofenceID == id {
			delete(m.links, key)
			delete(m.states, key)
		}
	}
	return nil
}

func (m *MemoryStore) PutLink(_ context.Context, link models.TrackerGeofenceLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[link.Key()] = link
	return nil
}

func (m *MemoryStore) DeleteLink(_ context.Context, key models.GeofenceKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[key]; !ok {
		return fmt.Errorf("link %s/%s: %w", key.TrackerID, key.GeofenceID, ErrNotFound)
	}
	delete(m.links, key)
	delete(m.states, key)
	return nil
}

func (m *MemoryStore) LinksForTracker(_ context.Context, trackerID string) ([]models.TrackerGeofenceLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.TrackerGeofenceLink
	for key, link := range m.links {
		if key.TrackerID == trackerID {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeofenceID < out[j].GeofenceID })
	return out, nil
}

func (m *MemoryStore) GeofencesForTracker(_ context.Context, trackerID string) ([]models.Geofence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Geofence
	for key := range m.links {
		if key.TrackerID != trackerID {
			continue
		}
		if g, ok := m.geofences[key.GeofenceID]; ok {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetState(_ context.Context, key models.GeofenceKey) (models.GeofenceState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[key]
	return st, ok, nil
}

func (m *MemoryStore) StatesForTracker(_ context.Context, trackerID string) (map[models.GeofenceKey]models.GeofenceState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[models.GeofenceKey]models.GeofenceState)
	for key, st := range m.states {
		if key.TrackerID == trackerID {
			out[key] = st
		}
	}
	return out, nil
}

func (m *MemoryStore) RecordEvaluation(_ context.Context, trackerID string, sample models.LocationSample, states []models.GeofenceState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trackers[trackerID]
	if !ok {
		t = models.Tracker{ID: trackerID, Type: models.TrackerVirtual}
	}
	s := sample
	t.LastSeen = &s
	m.trackers[trackerID] = t
	for _, st := range states {
		m.states[st.Key()] = st
	}
	return nil
}

func (m *MemoryStore) GetRule(_ context.Context, id string) (models.ScheduleRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	if !ok {
		return models.ScheduleRule{}, fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return r, nil
}

func (m *MemoryStore) PutRule(_ context.Context, rule models.ScheduleRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = rule
	return nil
}

func (m *MemoryStore) PutRules(_ context.Context, rules []models.ScheduleRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rules {
		m.rules[r.ID] = r
	}
	return nil
}

func (m *MemoryStore) ListRules(_ context.Context, trackerID string) ([]models.ScheduleRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ScheduleRule
	for _, r := range m.rules {
		if trackerID == "" || r.TrackerID == trackerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ActiveRules(_ context.Context) ([]models.ScheduleRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ScheduleRule
	for _, r := range m.rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DeleteRule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	delete(m.rules, id)
	return nil
}

func (m *MemoryStore) PutTracker(_ context.Context, t models.Tracker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.trackers[t.ID]; ok && t.LastSeen == nil {
		t.LastSeen = existing.LastSeen
	}
	m.trackers[t.ID] = t
	return nil
}

func (m *MemoryStore) GetTracker(_ context.Context, id string) (models.Tracker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trackers[id]
	if !ok {
		return models.Tracker{}, fmt.Errorf("tracker %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *MemoryStore) ListTrackers(_ context.Context) ([]models.Tracker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Tracker, 0, len(m.trackers))
	for _, t := range m.trackers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AppendAlert(_ context.Context, a models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, a)
	if over := len(m.alerts) - m.maxHistory; over > 0 {
		m.alerts = append(m.alerts[:0:0], m.alerts[over:]...)
	}
	return nil
}

func (m *MemoryStore) ListAlerts(_ context.Context, trackerID string, limit int) ([]models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Alert
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := m.alerts[i]
		if trackerID != "" && a.TrackerID != trackerID {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) PutWatch(_ context.Context, w models.LeftBehindWatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watches[w.TrackerID] = w
	return nil
}

func (m *MemoryStore) GetWatch(_ context.Context, trackerID string) (models.LeftBehindWatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.watches[trackerID]
	if !ok {
		return models.LeftBehindWatch{}, fmt.Errorf("watch %s: %w", trackerID, ErrNotFound)
	}
	return w, nil
}

func (m *MemoryStore) ListWatches(_ context.Context) ([]models.LeftBehindWatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.LeftBehindWatch, 0, len(m.watches))
	for _, w := range m.watches {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackerID < out[j].TrackerID })
	return out, nil
}

func (m *MemoryStore) DeleteWatch(_ context.Context, trackerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.watches[trackerID]; !ok {
		return fmt.Errorf("watch %s: %w", trackerID, ErrNotFound)
	}
	delete(m.watches, trackerID)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Snapshot copies the whole store. Slices are sorted so that snapshots of
// equal stores are byte-identical.
func (m *MemoryStore) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := &Snapshot{Version: snapshotVersion}
	for _, t := range m.trackers {
		s.Trackers = append(s.Trackers, t)
	}
	for _, g := range m.geofences {
		s.Geofences = append(s.Geofences, g)
	}
	for _, l := range m.links {
		s.Links = append(s.Links, l)
	}
	for _, st := range m.states {
		s.States = append(s.States, st)
	}
	for _, r := range m.rules {
		s.Rules = append(s.Rules, r)
	}
	for _, w := range m.watches {
		s.Watches = append(s.Watches, w)
	}
	s.Alerts = append(s.Alerts, m.alerts...)

	sort.Slice(s.Trackers, func(i, j int) bool { return s.Trackers[i].ID < s.Trackers[j].ID })
	sort.Slice(s.Geofences, func(i, j int) bool { return s.Geofences[i].ID < s.Geofences[j].ID })
	sort.Slice(s.Links, func(i, j int) bool { return keyLess(s.Links[i].Key(), s.Links[j].Key()) })
	sort.Slice(s.States, func(i, j int) bool { return keyLess(s.States[i].Key(), s.States[j].Key()) })
	sort.Slice(s.Rules, func(i, j int) bool { return s.Rules[i].ID < s.Rules[j].ID })
	sort.Slice(s.Watches, func(i, j int) bool { return s.Watches[i].TrackerID < s.Watches[j].TrackerID })
	return s
}

// Restore replaces the store contents with the snapshot.
func (m *MemoryStore) Restore(s *Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trackers = make(map[string]models.Tracker, len(s.Trackers))
	for _, t := range s.Trackers {
		m.trackers[t.ID] = t
	}
	m.geofences = make(map[string]models.Geofence, len(s.Geofences))
	for _, g := range s.Geofences {
		m.geofences[g.ID] = g
	}
	m.links = make(map[models.GeofenceKey]models.TrackerGeofenceLink, len(s.Links))
	for _, l := range s.Links {
		m.links[l.Key()] = l
	}
	m.states = make(map[models.GeofenceKey]models.GeofenceState, len(s.States))
	for _, st := range s.States {
		m.states[st.Key()] = st
	}
	m.rules = make(map[string]models.ScheduleRule, len(s.Rules))
	for _, r := range s.Rules {
		m.rules[r.ID] = r
	}
	m.watches = make(map[string]models.LeftBehindWatch, len(s.Watches))
	for _, w := range s.Watches {
		m.watches[w.TrackerID] = w
	}
	m.alerts = append([]models.Alert(nil), s.Alerts...)
}

func keyLess(a, b models.GeofenceKey) bool {
	if a.TrackerID != b.TrackerID {
		return a.TrackerID < b.TrackerID
	}
	return a.GeofenceID < b.GeofenceID
}
