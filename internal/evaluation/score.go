package evaluation

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/skcf/internal/geom"
)

// Accuracy is the intersection over union of two convex quadrilaterals,
// 0 when either is degenerate.
func Accuracy(a, b geom.Quad) float64 {
	pa, pb := geom.Polygon(a[:]), geom.Polygon(b[:])
	union := pa.Area() + pb.Area()
	inter := pa.ClipConvex(pb).Area()
	union -= inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Delta is the distance between the centroids of a and b.
func Delta(a, b geom.Quad) float64 {
	return a.Centroid().Dist(b.Centroid())
}

// FrameScore is the comparison of one frame's result with its ground truth.
type FrameScore struct {
	Frame    int
	Accuracy float64
	Delta    float64
}

// RunScore summarises one tracker over one sequence.
type RunScore struct {
	Method       string
	Sequence     string
	Frames       []FrameScore
	MeanAccuracy float64
	MeanDelta    float64
}

func (r RunScore) String() string {
	return fmt.Sprintf("%s on %s: %d frames, accuracy %.3f, delta %.2fpx",
		r.Method, r.Sequence, len(r.Frames), r.MeanAccuracy, r.MeanDelta)
}

// Score compares results with truth frame by frame. Extra frames on either
// side are ignored.
func Score(method, sequence string, truth, results []geom.Quad) RunScore {
	n := len(truth)
	if len(results) < n {
		n = len(results)
	}
	rs := RunScore{Method: method, Sequence: sequence, Frames: make([]FrameScore, n)}
	acc := make([]float64, n)
	delta := make([]float64, n)
	for i := 0; i < n; i++ {
		acc[i] = Accuracy(truth[i], results[i])
		delta[i] = Delta(truth[i], results[i])
		rs.Frames[i] = FrameScore{Frame: i, Accuracy: acc[i], Delta: delta[i]}
	}
	if n > 0 {
		rs.MeanAccuracy = stat.Mean(acc, nil)
		rs.MeanDelta = stat.Mean(delta, nil)
	}
	return rs
}
