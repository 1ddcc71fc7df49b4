package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"go.uber.org/atomic"

	"geoalert/internal/models"
	"geoalert/internal/providers"
	"geoalert/internal/services"
	"geoalert/internal/structures"
)

var (
	ErrTooManySimulations = errors.New("too many running simulations")
	ErrAlreadyRunning     = errors.New("simulation already running")
)

// SampleHandler consumes generated samples. It must not call Stop for the
// tracker it was invoked for.
type SampleHandler func(ctx context.Context, trackerID string, sample models.LocationSample)

type ManagerInterface interface {
	Start(trackerID string, lat, lon float64, pattern Pattern, opts Options) error
	Stop(trackerID string) bool
	StopAll()
	ChangePattern(trackerID string, pattern Pattern, opts Options) (bool, error)
	Running() []string
	Get(trackerID string) (Pattern, Options, bool)
	Defaults() Options
}

type handle struct {
	gen     *Generator
	cancel  context.CancelFunc
	done    chan struct{}
	emitMu  sync.Mutex
	stopped atomic.Bool
}

// Manager runs at most one simulation per tracker, each on its own ticker.
type Manager struct {
	mu         sync.Mutex
	sims       map[string]*handle
	defaults   Options
	maxRunning int
	onSample   SampleHandler
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func NewManager(conf *structures.Config, service services.AlertServiceInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *Manager {
	defaults := DefaultOptions()
	sc := conf.Simulation
	if sc.TickInterval > 0 {
		defaults.Interval = sc.TickInterval
	}
	if sc.Radius > 0 {
		defaults.Radius = sc.Radius
	}
	if sc.Speed > 0 {
		defaults.Speed = sc.Speed
	}
	if sc.Jitter > 0 {
		defaults.Jitter = sc.Jitter
	}
	if sc.MaxDistance > 0 {
		defaults.MaxDistance = sc.MaxDistance
	}
	if sc.CrossStepMeters > 0 {
		defaults.CrossStepMeters = sc.CrossStepMeters
	}

	handler := func(ctx context.Context, trackerID string, sample models.LocationSample) {
		if _, err := service.ProcessLocation(ctx, trackerID, sample); err != nil {
			logger.Errorf(providers.TypeSimulation, "tracker %s: sample rejected: %s", trackerID, err)
		}
	}
	return newManager(defaults, sc.MaxRunning, handler, logger, metrics)
}

func newManager(defaults Options, maxRunning int, onSample SampleHandler, logger providers.Logger, metrics providers.MetricsProviderInterface) *Manager {
	return &Manager{
		sims:       make(map[string]*handle),
		defaults:   defaults,
		maxRunning: maxRunning,
		onSample:   onSample,
		logger:     logger,
		metrics:    metrics,
	}
}

func (m *Manager) Defaults() Options {
	return m.defaults
}

// Start replaces any simulation already running for trackerID.
func (m *Manager) Start(trackerID string, lat, lon float64, pattern Pattern, opts Options) error {
	if trackerID == "" {
		return fmt.Errorf("%w: empty tracker id", ErrInvalidOptions)
	}
	gen, err := NewGenerator(lat, lon, pattern, opts, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	if err != nil {
		return err
	}

	m.Stop(trackerID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sims[trackerID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, trackerID)
	}
	if m.maxRunning > 0 && len(m.sims) >= m.maxRunning {
		return fmt.Errorf("%w: limit %d", ErrTooManySimulations, m.maxRunning)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{gen: gen, cancel: cancel, done: make(chan struct{})}
	m.sims[trackerID] = h
	m.metrics.SetSimulationsRunning(len(m.sims))

	go m.run(ctx, trackerID, h, opts.Interval)
	m.logger.Infof(providers.TypeSimulation, "started %s simulation for tracker %s at (%.6f, %.6f) every %s",
		pattern, trackerID, lat, lon, opts.Interval)
	return nil
}

func (m *Manager) run(ctx context.Context, trackerID string, h *handle, interval time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.emitMu.Lock()
			if h.stopped.Load() {
				h.emitMu.Unlock()
				return
			}
			m.onSample(ctx, trackerID, h.gen.Next())
			h.emitMu.Unlock()
		}
	}
}

// Stop halts the tracker's simulation and waits for an in-flight sample to
// finish, so nothing is emitted once it returns. Stopping an idle tracker
// is a no-op that returns false.
func (m *Manager) Stop(trackerID string) bool {
	m.mu.Lock()
	h, ok := m.sims[trackerID]
	if ok {
		delete(m.sims, trackerID)
		m.metrics.SetSimulationsRunning(len(m.sims))
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	h.cancel()
	h.emitMu.Lock()
	h.stopped.Store(true)
	h.emitMu.Unlock()
	<-h.done

	m.logger.Infof(providers.TypeSimulation, "stopped simulation for tracker %s", trackerID)
	return true
}

func (m *Manager) StopAll() {
	for _, id := range m.Running() {
		m.Stop(id)
	}
}

// ChangePattern switches a running simulation in place; it reports false
// when the tracker has none.
func (m *Manager) ChangePattern(trackerID string, pattern Pattern, opts Options) (bool, error) {
	m.mu.Lock()
	h, ok := m.sims[trackerID]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	_, current := h.gen.Pattern()
	if opts.Interval != current.Interval {
		return true, fmt.Errorf("%w: interval cannot change on a running simulation", ErrInvalidOptions)
	}
	if err := h.gen.SetPattern(pattern, opts); err != nil {
		return true, err
	}
	m.logger.Infof(providers.TypeSimulation, "tracker %s switched to %s", trackerID, pattern)
	return true, nil
}

func (m *Manager) Running() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sims))
	for id := range m.sims {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	slices.Sort(ids)
	return ids
}

func (m *Manager) Get(trackerID string) (Pattern, Options, bool) {
	m.mu.Lock()
	h, ok := m.sims[trackerID]
	m.mu.Unlock()
	if !ok {
		return "", Options{}, false
	}
	p, opts := h.gen.Pattern()
	return p, opts, true
}
