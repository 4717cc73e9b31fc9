package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/skcf/internal/timeutil"
)

func TestFrameStatsSummary(t *testing.T) {
	var s FrameStats
	assert.Equal(t, Summary{}, s.Summary())

	for i := 1; i <= 20; i++ {
		s.Add(time.Duration(i) * time.Millisecond)
	}
	sum := s.Summary()
	assert.Equal(t, 20, sum.Frames)
	assert.InDelta(t, 10.5, sum.Mean, 1e-9)
	assert.InDelta(t, 10, sum.P50, 1e-9)
	assert.InDelta(t, 19, sum.P95, 1e-9)
	assert.InDelta(t, 20, sum.Max, 1e-9)
	assert.InDelta(t, 1000/10.5, sum.FPS, 1e-9)
	assert.Contains(t, sum.String(), "frames=20")
}

func TestFrameStatsTime(t *testing.T) {
	var s FrameStats
	ran := false
	s.Time(func() { ran = true })
	assert.True(t, ran)
	assert.Equal(t, 1, s.Summary().Frames)
}

func TestFrameStatsTimeWithClock(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	s := FrameStats{Clock: clock}
	for _, d := range []time.Duration{4, 8, 6} {
		s.Time(func() { clock.Advance(d * time.Millisecond) })
	}
	sum := s.Summary()
	assert.Equal(t, 3, sum.Frames)
	assert.InDelta(t, 6, sum.Mean, 1e-9)
	assert.InDelta(t, 8, sum.Max, 1e-9)
}
