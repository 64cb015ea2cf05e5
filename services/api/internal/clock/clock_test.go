package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestFixed(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("ICT", 7*3600)
	c := NewFixed(start.In(loc))
	assert.Equal(t, start, c.Now())
	assert.Equal(t, time.UTC, c.Now().Location())
}

func TestManual_FiresDueTimersInDeadlineOrder(t *testing.T) {
	t.Parallel()

	m := NewManual(start)
	var fired []string
	m.AfterFunc(3*time.Minute, func() { fired = append(fired, "c") })
	m.AfterFunc(time.Minute, func() { fired = append(fired, "a") })
	m.AfterFunc(time.Minute, func() { fired = append(fired, "b") })
	m.AfterFunc(time.Hour, func() { fired = append(fired, "late") })

	m.Advance(59 * time.Second)
	assert.Empty(t, fired)

	m.Advance(2*time.Minute + time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 1, m.Pending())
	assert.Equal(t, start.Add(3*time.Minute), m.Now())
}

func TestManual_Stop(t *testing.T) {
	t.Parallel()

	m := NewManual(start)
	fired := false
	timer := m.AfterFunc(time.Minute, func() { fired = true })

	require.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	m.Advance(time.Hour)
	assert.False(t, fired)
	assert.Zero(t, m.Pending())
}

func TestManual_StopAfterFire(t *testing.T) {
	t.Parallel()

	m := NewManual(start)
	timer := m.AfterFunc(time.Second, func() {})
	m.Advance(time.Second)
	assert.False(t, timer.Stop())
}

func TestManual_CallbackMayArmTimers(t *testing.T) {
	t.Parallel()

	m := NewManual(start)
	var chained bool
	m.AfterFunc(time.Second, func() {
		m.AfterFunc(time.Second, func() { chained = true })
	})

	m.Advance(time.Second)
	assert.False(t, chained)
	m.Advance(time.Second)
	assert.True(t, chained)
}
