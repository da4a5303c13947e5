package presence

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/mockingbird/pkg/pose"
)

func obs(present bool, at time.Duration) pose.Observation {
	o := pose.Observation{CapturedAt: at}
	if present {
		o.Poses = []pose.LandmarkSet{pose.Person(0.5, 0.5)}
	}
	return o
}

func TestReduce_Scenario(t *testing.T) {
	d := New()
	seq := []bool{false, false, true, true, false}

	var msgs []string
	for i, p := range seq {
		_, tr, ok := d.Reduce(obs(p, time.Duration(i)*time.Millisecond))
		if ok {
			msgs = append(msgs, tr.Message())
		}
	}
	assert.Equal(t, []string{MsgDetected, MsgCleared}, msgs)
}

func TestReduce_OneEventPerFlip(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		d := New()
		prev := false
		flips, events := 0, 0
		for i := 0; i < 200; i++ {
			p := r.Intn(3) == 0
			if p != prev {
				flips++
			}
			prev = p
			if _, _, ok := d.Reduce(obs(p, time.Duration(i))); ok {
				events++
			}
		}
		assert.Equal(t, flips, events, "trial %d", trial)
	}
}

func TestReduce_RepeatedSameValueIsQuiet(t *testing.T) {
	d := New()
	_, tr, ok := d.Reduce(obs(true, 1))
	assert.True(t, ok)
	assert.Equal(t, Detected, tr)
	for i := 2; i < 10; i++ {
		_, tr, ok := d.Reduce(obs(true, time.Duration(i)))
		assert.False(t, ok)
		assert.Equal(t, None, tr)
	}
}

func TestReduce_LastPresentAtNonDecreasing(t *testing.T) {
	d := New()
	stamps := []struct {
		present bool
		at      time.Duration
	}{
		{true, 10}, {true, 30}, {false, 40}, {true, 25}, {true, 50}, {false, 60},
	}
	var last time.Duration
	for _, s := range stamps {
		st, _, _ := d.Reduce(obs(s.present, s.at))
		assert.True(t, st.HasBeenPresent)
		assert.GreaterOrEqual(t, st.LastPresentAt, last)
		last = st.LastPresentAt
	}
	assert.Equal(t, time.Duration(50), last)
}

func TestReduce_NeverPresent(t *testing.T) {
	d := New()
	st, _, _ := d.Reduce(obs(false, 100))
	assert.False(t, st.HasBeenPresent)
	assert.Zero(t, st.LastPresentAt)
}

func TestForceClearAndReset(t *testing.T) {
	d := New()
	_, ok := d.ForceClear()
	assert.False(t, ok)

	d.Reduce(obs(true, 5))
	tr, ok := d.ForceClear()
	assert.True(t, ok)
	assert.Equal(t, Cleared, tr)
	assert.False(t, d.State().Present)

	d.Reduce(obs(true, 9))
	d.Reset()
	assert.False(t, d.State().Present)
	assert.Equal(t, time.Duration(9), d.State().LastPresentAt)

	// after reset the next sighting is a fresh edge
	_, tr, ok = d.Reduce(obs(true, 12))
	assert.True(t, ok)
	assert.Equal(t, Detected, tr)
}

func TestTransition_Strings(t *testing.T) {
	assert.Equal(t, "", None.Message())
	assert.Equal(t, "detected", Detected.String())
	assert.Equal(t, "cleared", Cleared.String())
	assert.Equal(t, "none", None.String())
}
