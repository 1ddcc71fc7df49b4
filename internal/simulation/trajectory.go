package simulation

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"geoalert/internal/geo"
	"geoalert/internal/models"
)

type Pattern string

const (
	PatternRandom        Pattern = "random"
	PatternCircle        Pattern = "circle"
	PatternLine          Pattern = "line"
	PatternGeofenceCross Pattern = "geofence_cross"
)

func (p Pattern) Valid() bool {
	switch p {
	case PatternRandom, PatternCircle, PatternLine, PatternGeofenceCross:
		return true
	}
	return false
}

// Default start point for trackers that never reported a position.
const (
	DefaultStartLatitude  = 37.7749
	DefaultStartLongitude = -122.4194
)

var ErrInvalidOptions = errors.New("invalid simulation options")

// Options tune a trajectory. Radius, Speed and MaxDistance are in degrees
// of latitude/longitude, Direction in radians. The Target fields describe
// the geofence a GeofenceCross trajectory keeps crossing.
type Options struct {
	Radius             float64       `json:"radius"`
	Speed              float64       `json:"speed"`
	Direction          float64       `json:"direction"`
	Jitter             float64       `json:"jitter"`
	MaxDistance        float64       `json:"maxDistance"`
	Interval           time.Duration `json:"-"`
	TargetLatitude     float64       `json:"targetLatitude"`
	TargetLongitude    float64       `json:"targetLongitude"`
	TargetRadiusMeters float64       `json:"targetRadius"`
	CrossStepMeters    float64       `json:"crossStepMeters"`
}

func DefaultOptions() Options {
	return Options{
		Radius:          0.001,
		Speed:           0.00005,
		Direction:       0,
		Jitter:          0.2,
		MaxDistance:     0.01,
		Interval:        3 * time.Second,
		CrossStepMeters: 25,
	}
}

func (o Options) Validate(p Pattern) error {
	if !p.Valid() {
		return fmt.Errorf("%w: unknown pattern %q", ErrInvalidOptions, p)
	}
	if o.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidOptions)
	}
	if o.Jitter < 0 || o.Jitter > 1 {
		return fmt.Errorf("%w: jitter %v outside 0..1", ErrInvalidOptions, o.Jitter)
	}
	if o.Speed < 0 || o.Radius < 0 || o.MaxDistance < 0 {
		return fmt.Errorf("%w: negative speed, radius or distance", ErrInvalidOptions)
	}
	if p == PatternGeofenceCross {
		if o.TargetRadiusMeters <= 0 || o.CrossStepMeters <= 0 {
			return fmt.Errorf("%w: geofence_cross needs a target radius and step", ErrInvalidOptions)
		}
		if !geo.Valid(o.TargetLatitude, o.TargetLongitude) {
			return fmt.Errorf("%w: target (%v, %v) out of range", ErrInvalidOptions, o.TargetLatitude, o.TargetLongitude)
		}
	}
	return nil
}

type Phase string

const (
	PhaseToward Phase = "toward"
	PhaseAway   Phase = "away"
)

// State is the mutable position of one trajectory. Circles orbit the
// start point; lines bounce after MaxDistance.
type State struct {
	Latitude       float64
	Longitude      float64
	StartLatitude  float64
	StartLongitude float64
	Angle          float64
	Distance       float64
	Direction      float64
	Phase          Phase
	HasCrossedOnce bool
}

func NewState(lat, lon float64, opts Options) State {
	return State{
		Latitude:       lat,
		Longitude:      lon,
		StartLatitude:  lat,
		StartLongitude: lon,
		Direction:      opts.Direction,
	}
}

// Step advances st by one tick. It is pure apart from drawing from rng.
func Step(p Pattern, st State, opts Options, rng *rand.Rand, nowMs int64) (State, models.LocationSample) {
	switch p {
	case PatternCircle:
		st.Latitude = st.StartLatitude + math.Cos(st.Angle)*opts.Radius
		st.Longitude = st.StartLongitude + math.Sin(st.Angle)*opts.Radius
		st = jitterDegrees(st, opts, rng)
		st.Angle += opts.Speed * 20
	case PatternLine:
		if st.Distance >= opts.MaxDistance {
			st.Direction += math.Pi
			st.Distance = 0
		}
		st.Latitude += math.Cos(st.Direction) * opts.Speed
		st.Longitude += math.Sin(st.Direction) * opts.Speed
		st = jitterDegrees(st, opts, rng)
		st.Distance += opts.Speed
	case PatternGeofenceCross:
		st = crossStep(st, opts, rng)
	default:
		st.Latitude += (rng.Float64() - 0.5) * opts.Speed * 2
		st.Longitude += (rng.Float64() - 0.5) * opts.Speed * 2
	}

	st.Latitude = math.Max(-90, math.Min(90, st.Latitude))
	st.Longitude = wrapLongitude(st.Longitude)

	accuracy := 10 + rng.Float64()*20
	return st, models.LocationSample{
		Latitude:       st.Latitude,
		Longitude:      st.Longitude,
		TimestampMs:    nowMs,
		AccuracyMeters: &accuracy,
	}
}

func jitterDegrees(st State, opts Options, rng *rand.Rand) State {
	if opts.Jitter == 0 {
		return st
	}
	amount := opts.Jitter * opts.Speed * 0.5
	st.Latitude += (rng.Float64() - 0.5) * amount
	st.Longitude += (rng.Float64() - 0.5) * amount
	return st
}

// crossStep walks toward the target until inside, then away until clear of
// the boundary by one more radius, then toward again.
func crossStep(st State, opts Options, rng *rand.Rand) State {
	tLat, tLon, radius, step := opts.TargetLatitude, opts.TargetLongitude, opts.TargetRadiusMeters, opts.CrossStepMeters

	if st.Phase == "" {
		st.Phase = PhaseToward
		if geo.DistanceMeters(st.Latitude, st.Longitude, tLat, tLon) <= radius {
			st.Phase = PhaseAway
			st.HasCrossedOnce = true
		}
	}

	switch st.Phase {
	case PhaseToward:
		st.Latitude, st.Longitude = geo.MoveToward(st.Latitude, st.Longitude, tLat, tLon, step)
	case PhaseAway:
		var bearing float64
		if geo.DistanceMeters(st.Latitude, st.Longitude, tLat, tLon) == 0 {
			bearing = rng.Float64() * 2 * math.Pi
		} else {
			bearing = geo.Bearing(tLat, tLon, st.Latitude, st.Longitude)
		}
		st.Latitude, st.Longitude = geo.Destination(st.Latitude, st.Longitude, bearing, step)
	}

	if opts.Jitter > 0 {
		st.Latitude, st.Longitude = geo.Destination(st.Latitude, st.Longitude,
			rng.Float64()*2*math.Pi, rng.Float64()*opts.Jitter*step*0.5)
	}

	d := geo.DistanceMeters(st.Latitude, st.Longitude, tLat, tLon)
	switch {
	case st.Phase == PhaseToward && d <= radius:
		st.Phase = PhaseAway
		st.HasCrossedOnce = true
	case st.Phase == PhaseAway && st.HasCrossedOnce && d >= 2*radius:
		st.Phase = PhaseToward
	}
	return st
}

func wrapLongitude(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	return math.Mod(math.Mod(lon+180, 360)+360, 360) - 180
}

// Generator owns one tracker's trajectory. Its methods are safe for
// concurrent use.
type Generator struct {
	mu      sync.Mutex
	pattern Pattern
	opts    Options
	state   State
	rng     *rand.Rand
	now     func() time.Time
	lastMs  int64
}

func NewGenerator(lat, lon float64, pattern Pattern, opts Options, rng *rand.Rand) (*Generator, error) {
	if err := opts.Validate(pattern); err != nil {
		return nil, err
	}
	if !geo.Valid(lat, lon) {
		return nil, fmt.Errorf("%w: start (%v, %v) out of range", ErrInvalidOptions, lat, lon)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{
		pattern: pattern,
		opts:    opts,
		state:   NewState(lat, lon, opts),
		rng:     rng,
		now:     time.Now,
	}, nil
}

// Next produces the next sample. Timestamps never go backwards.
func (g *Generator) Next() models.LocationSample {
	g.mu.Lock()
	defer g.mu.Unlock()

	nowMs := g.now().UnixMilli()
	if nowMs <= g.lastMs {
		nowMs = g.lastMs + 1
	}
	g.lastMs = nowMs

	var sample models.LocationSample
	g.state, sample = Step(g.pattern, g.state, g.opts, g.rng, nowMs)
	return sample
}

// Seq is an endless sequence of samples; stop ranging to end it.
func (g *Generator) Seq() iter.Seq[models.LocationSample] {
	return func(yield func(models.LocationSample) bool) {
		for {
			if !yield(g.Next()) {
				return
			}
		}
	}
}

// SetPattern switches pattern and options without moving the tracker.
func (g *Generator) SetPattern(p Pattern, opts Options) error {
	if err := opts.Validate(p); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if p != g.pattern || opts.Direction != g.opts.Direction {
		g.state.Direction = opts.Direction
		g.state.Distance = 0
	}
	if p != g.pattern || opts.TargetLatitude != g.opts.TargetLatitude || opts.TargetLongitude != g.opts.TargetLongitude {
		g.state.Phase = ""
		g.state.HasCrossedOnce = false
	}
	g.pattern = p
	g.opts = opts
	return nil
}

func (g *Generator) Pattern() (Pattern, Options) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pattern, g.opts
}

func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
