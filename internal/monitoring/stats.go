package monitoring

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/skcf/internal/timeutil"
)

// FrameStats accumulates per-frame processing durations for one tracker
// run. The zero value is ready to use; it is not safe for concurrent use.
type FrameStats struct {
	Clock timeutil.Clock // nil uses the wall clock

	samples []float64 // milliseconds
}

// Add records one frame's processing time.
func (s *FrameStats) Add(d time.Duration) {
	s.samples = append(s.samples, float64(d)/float64(time.Millisecond))
}

// Time runs fn and records how long it took.
func (s *FrameStats) Time(fn func()) {
	clock := timeutil.OrReal(s.Clock)
	start := clock.Now()
	fn()
	s.Add(clock.Since(start))
}

// Summary is a snapshot of FrameStats, durations in milliseconds.
type Summary struct {
	Frames int
	Mean   float64
	P50    float64
	P95    float64
	Max    float64
	FPS    float64 // 1000 / Mean
}

// Summary computes count, mean, median, 95th percentile and maximum.
func (s *FrameStats) Summary() Summary {
	if len(s.samples) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), s.samples...)
	sort.Float64s(sorted)
	out := Summary{
		Frames: len(sorted),
		Mean:   stat.Mean(sorted, nil),
		P50:    stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
	if out.Mean > 0 {
		out.FPS = 1000 / out.Mean
	}
	return out
}

func (s Summary) String() string {
	return fmt.Sprintf("frames=%d mean=%.2fms p50=%.2fms p95=%.2fms max=%.2fms fps=%.1f",
		s.Frames, s.Mean, s.P50, s.P95, s.Max, s.FPS)
}
