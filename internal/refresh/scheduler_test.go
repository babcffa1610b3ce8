package refresh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	c, _, _ := newTestCoordinator()

	_, err := NewScheduler(c, "not a schedule", nil)
	assert.Error(t, err)
}

func TestScheduler_TickRespectsThrottle(t *testing.T) {
	c, cache, _ := newTestCoordinator()
	s, err := NewScheduler(c, "", nil)
	require.NoError(t, err)

	s.tick()
	s.tick()
	assert.Equal(t, int32(1), cache.n.Load())
}

func TestScheduler_StartStop(t *testing.T) {
	c, _, _ := newTestCoordinator()
	s, err := NewScheduler(c, "@every 1h", nil)
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
