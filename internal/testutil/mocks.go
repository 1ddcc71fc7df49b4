package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"geoalert/internal/models"
	"geoalert/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level whose format
// contains substr.
func (m *MockLogger) Count(level, substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level && strings.Contains(e.Format, substr) {
			n++
		}
	}
	return n
}

// MockSink implements sink.AlertSink and records every alert.
type MockSink struct {
	mu     sync.Mutex
	Alerts []models.Alert
	Err    error
}

func (m *MockSink) Emit(_ context.Context, alert models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts = append(m.Alerts, alert)
	return m.Err
}

func (m *MockSink) Received() []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Alert, len(m.Alerts))
	copy(out, m.Alerts)
	return out
}

// MockMetrics implements providers.MetricsProviderInterface with counters.
type MockMetrics struct {
	mu           sync.Mutex
	Samples      map[string]int
	Transitions  map[string]int
	Fires        map[string]int
	Issues       map[string]int
	SinkFailures int
	Simulations  int
	Persisted    int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Samples:     make(map[string]int),
		Transitions: make(map[string]int),
		Fires:       make(map[string]int),
		Issues:      make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits()                                    {}
func (m *MockMetrics) IncCacheMisses()                                  {}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persisted++
}

func (m *MockMetrics) IncSamples(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Samples[outcome]++
}

func (m *MockMetrics) IncTransitions(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transitions[kind]++
}

func (m *MockMetrics) IncScheduleFires(scheduleType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fires[scheduleType]++
}

func (m *MockMetrics) IncIssues(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Issues[kind]++
}

func (m *MockMetrics) IncSinkFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SinkFailures++
}

func (m *MockMetrics) SetSimulationsRunning(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Simulations = count
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data = make(map[string][]byte)
}

// MockPersister implements storage.PersisterInterface.
type MockPersister struct {
	mu           sync.Mutex
	PersistCalls int
	RestoreCalls int
	Err          error
}

func (m *MockPersister) Persist() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistCalls++
	return m.Err
}

func (m *MockPersister) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RestoreCalls++
	return m.Err
}

func (m *MockPersister) Calls() (persist, restore int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PersistCalls, m.RestoreCalls
}
