package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArmLeftBehind_BaselineIsCurrentSeparation(t *testing.T) {
	tracker := sampleAt(0, 0, 1_000)
	owner := sampleAt(0.0005, 0, 2_000)

	w := ArmLeftBehind("t1", owner, tracker, 100)
	assert.Equal(t, "t1", w.TrackerID)
	assert.InDelta(t, 55.6, w.BaselineMeters, 0.1)
	assert.Equal(t, w.BaselineMeters, w.LastDistanceMeters)
	assert.Equal(t, int64(2_000), w.ArmedAt)
	assert.False(t, w.Triggered)
}

func TestEvaluateLeftBehind_FiresOncePerSeparation(t *testing.T) {
	tracker := sampleAt(0, 0, 0)
	w := ArmLeftBehind("t1", sampleAt(0, 0, 0), tracker, 100)

	steps := []struct {
		lat       float64
		fire      bool
		triggered bool
	}{
		{0.0005, false, false}, // ~56 m
		{0.0010, true, true},   // ~111 m
		{0.0020, false, true},  // still away
		{0.0005, false, false}, // came back, re-armed
		{0.0015, true, true},
	}
	for i, s := range steps {
		var fired bool
		w, fired = EvaluateLeftBehind(w, sampleAt(s.lat, 0, int64(i+1)*1000), tracker)
		assert.Equal(t, s.fire, fired, "step %d", i)
		assert.Equal(t, s.triggered, w.Triggered, "step %d", i)
		assert.Equal(t, int64(i+1)*1000, w.LastCheckedAt)
	}
}

func TestEvaluateLeftBehind_ThresholdIsExclusive(t *testing.T) {
	tracker := sampleAt(0, 0, 0)
	w := ArmLeftBehind("t1", sampleAt(0, 0, 0), tracker, 0)

	w, fired := EvaluateLeftBehind(w, sampleAt(0, 0, 1000), tracker)
	assert.False(t, fired)

	w, fired = EvaluateLeftBehind(w, sampleAt(0.00001, 0, 2000), tracker)
	require.True(t, fired)
	assert.InDelta(t, 1.11, w.LastDistanceMeters, 0.01)
}

func TestEvaluateLeftBehind_RelativeToBaseline(t *testing.T) {
	// the owner started 500 m away; only growth past that counts
	tracker := sampleAt(0, 0, 0)
	w := ArmLeftBehind("t1", sampleAt(0.0045, 0, 0), tracker, 100)

	_, fired := EvaluateLeftBehind(w, sampleAt(0.0050, 0, 1000), tracker)
	assert.False(t, fired)

	_, fired = EvaluateLeftBehind(w, sampleAt(0.0060, 0, 1000), tracker)
	assert.True(t, fired)
}
