// Package flow estimates the frame-to-frame scale change of a tracked
// target from a sparse set of points followed with Lucas-Kanade optical
// flow.
//
// An Estimator works in patch coordinates: it is seeded from the training
// patch the filter extracts after SetArea, and from then on compares each
// detection patch with the previous training patch. Points are detected
// once per seeding and carried from frame to frame; points that fail the
// forward-backward or appearance checks are dropped for good.
package flow

import (
	"image"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/monitoring"
	"github.com/banshee-data/skcf/internal/raster"
)

// Estimator owns the point set and reference patch of one tracker. It is
// not safe for concurrent use.
type Estimator struct {
	params Params

	seeded  bool
	ref     []level
	points  []geom.Point
	weights []float64
	scale   float64
}

// New returns an unseeded Estimator.
func New(p Params) *Estimator {
	return &Estimator{params: p, scale: 1}
}

// Reset forgets the point set and reference; the next Observe re-seeds.
func (e *Estimator) Reset() {
	e.seeded = false
	e.ref = nil
	e.points = nil
	e.weights = nil
	e.scale = 1
}

// Points returns a copy of the current point set in reference patch
// coordinates.
func (e *Estimator) Points() []geom.Point {
	return append([]geom.Point(nil), e.points...)
}

// Weights returns the confidence weight of each point.
func (e *Estimator) Weights() []float64 {
	return append([]float64(nil), e.weights...)
}

// Scale returns the ratio produced by the last Estimate.
func (e *Estimator) Scale() float64 { return e.scale }

// Observe stores patch (the training patch of the current frame) as the
// flow reference. The first call after Reset also seeds the point set from
// the target of size size centred in the patch.
func (e *Estimator) Observe(patch *raster.Image, size geom.Size) {
	gray := patch.Gray()
	e.ref = pyramid(gray, e.params.Levels, e.params.Window)
	if e.seeded {
		return
	}
	e.points, e.weights = seedPoints(gray, size, e.params)
	e.seeded = true
	monitoring.Logf("flow: seeded %d points for %.1fx%.1f target", len(e.points), size.W, size.H)
}

// Estimate tracks the point set from the reference into patch (the
// detection patch, taken at the same centre as the reference) and returns
// the scale ratio. shift is the translation the filter detected, in pixels.
// Surviving points are moved by -shift so they address the next training
// patch, which is taken at the shifted centre.
//
// The ratio is 1 when there is no reference or no points, and when more
// points disagree with the detected shift than agree with it.
func (e *Estimator) Estimate(patch *raster.Image, shift geom.Point) float64 {
	e.scale = 1
	if e.ref == nil || len(e.points) == 0 {
		return e.scale
	}
	next := pyramid(patch.Gray(), e.params.Levels, e.params.Window)
	from, to, weights := forwardBackward(e.ref, next, e.points, e.weights, e.params)
	if len(from) == 0 {
		monitoring.Logf("flow: point set exhausted, scale estimation stopped")
		e.points, e.weights = nil, nil
		return e.scale
	}

	ratio := scaleRatio(from, to, weights)
	predicted := shift.Mul(ratio)
	var inliers, outliers int
	for i := range from {
		if to[i].Sub(from[i]).Sub(predicted).Norm() < e.params.InlierThreshold {
			inliers++
		} else {
			outliers++
		}
	}
	if outliers > inliers {
		monitoring.Logf("flow: scale %.4f discarded, %d outliers vs %d inliers", ratio, outliers, inliers)
		ratio = 1
	}

	e.points = e.points[:0]
	for _, q := range to {
		e.points = append(e.points, q.Sub(shift))
	}
	e.weights = weights
	e.scale = ratio
	return ratio
}

// seedPoints returns Shi-Tomasi corners plus seeded random points inside
// the target's sub-rectangle of patch, keeping only those whose Hann weight
// over the patch reaches WeightThreshold.
func seedPoints(patch *raster.Image, size geom.Size, p Params) ([]geom.Point, []float64) {
	w, h := patch.W, patch.H
	hannX, hannY := hann(w), hann(h)
	weight := func(pt geom.Point) float64 {
		x := clampInt(int(math.Floor(pt.X)), 0, w-1)
		y := clampInt(int(math.Floor(pt.Y)), 0, h-1)
		return hannX[x] * hannY[y]
	}

	tl := image.Point{
		X: int(math.Round(math.Max(0, float64(w)/2-math.Floor(size.W/2)))),
		Y: int(math.Round(math.Max(0, float64(h)/2-math.Floor(size.H/2)))),
	}
	br := tl.Add(image.Point{X: int(math.Floor(size.W)), Y: int(math.Floor(size.H))})

	var points []geom.Point
	var weights []float64
	keep := func(pt geom.Point) {
		if wt := weight(pt); wt >= p.WeightThreshold {
			points = append(points, pt)
			weights = append(weights, wt)
		}
	}
	for _, pt := range goodFeatures(patch, image.Rectangle{Min: tl, Max: br}, p) {
		keep(pt)
	}
	rng := rand.New(rand.NewSource(p.Seed))
	for i := 0; i < p.RandomPoints; i++ {
		x := float64(tl.X) + rng.Float64()*float64(br.X-tl.X)
		y := float64(tl.Y) + rng.Float64()*float64(br.Y-tl.Y)
		keep(geom.Pt(x, y))
	}
	return points, weights
}

func hann(n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = 1
		return out
	}
	for i := range out {
		out[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return out
}

// forwardBackward tracks points prev→next and back, and returns the
// surviving (from, to, weight) triples.
//
// A point survives when both passes converged, its forward-backward error
// is at most the median error and its NCC score is at least the median
// score. When the median forward-backward error exceeds FBThreshold the
// whole set is rejected.
func forwardBackward(prev, next []level, from []geom.Point, weights []float64, p Params) ([]geom.Point, []geom.Point, []float64) {
	to, okF := lucasKanade(prev, next, from, p)
	back, okB := lucasKanade(next, prev, to, p)

	var (
		keptFrom, keptTo []geom.Point
		keptW, fb, score []float64
	)
	for i := range from {
		if !okF[i] || !okB[i] {
			continue
		}
		keptFrom = append(keptFrom, from[i])
		keptTo = append(keptTo, to[i])
		keptW = append(keptW, weights[i])
		fb = append(fb, from[i].Dist(back[i]))
		score = append(score, ncc(prev[0].img, next[0].img, from[i], to[i], p.NCCWindow))
	}
	if len(keptFrom) == 0 {
		return nil, nil, nil
	}
	medFB := median(fb)
	if medFB > p.FBThreshold {
		return nil, nil, nil
	}
	medNCC := median(score)

	n := 0
	for i := range keptFrom {
		if fb[i] <= medFB && score[i] >= medNCC {
			keptFrom[n], keptTo[n], keptW[n] = keptFrom[i], keptTo[i], keptW[i]
			n++
		}
	}
	return keptFrom[:n], keptTo[:n], keptW[:n]
}

// scaleRatio combines the pairwise distance ratios cur/prev into one
// estimate: the mean of their weighted mean (pair (i, j) weighted by the
// weight of i) and their median. Coincident pairs are skipped; with no
// usable pair the ratio is 1.
func scaleRatio(from, to []geom.Point, weights []float64) float64 {
	var ratios, ws []float64
	for i := range from {
		for j := i + 1; j < len(from); j++ {
			d0 := from[i].Dist(from[j])
			if d0 < 1e-9 {
				continue
			}
			ratios = append(ratios, to[i].Dist(to[j])/d0)
			ws = append(ws, weights[i])
		}
	}
	if len(ratios) == 0 {
		return 1
	}
	mean := 1.0
	if floats.Sum(ws) > 0 {
		mean = stat.Mean(ratios, ws)
	}
	return (mean + median(ratios)) / 2
}

// median returns the lower median of v without modifying it.
func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	return stat.Quantile(0.5, stat.Empirical, s, nil)
}
