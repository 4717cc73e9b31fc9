package flow

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/monitoring"
	"github.com/banshee-data/skcf/internal/raster"
)

func init() {
	monitoring.SetLogger(nil)
}

type blob struct{ x, y, s, a float64 }

// texture is a smooth random field of Gaussian blobs, so both corners and
// sub-pixel flow are well defined.
type texture []blob

func newTexture(seed int64, n int, extent float64) texture {
	rng := rand.New(rand.NewSource(seed))
	t := make(texture, n)
	for i := range t {
		t[i] = blob{
			x: (rng.Float64() - 0.5) * extent,
			y: (rng.Float64() - 0.5) * extent,
			s: 2 + 2*rng.Float64(),
			a: 40 + 60*rng.Float64(),
		}
	}
	return t
}

func (t texture) at(x, y float64) float64 {
	v := 20.0
	for _, b := range t {
		dx, dy := x-b.x, y-b.y
		v += b.a * math.Exp(-(dx*dx+dy*dy)/(2*b.s*b.s))
	}
	return v
}

// render samples the texture on a w×h grid whose centre maps to texture
// coordinate offset, magnified by zoom.
func (t texture) render(w, h int, offset geom.Point, zoom float64) *raster.Image {
	img := raster.New(w, h, 1)
	cx, cy := float64(w)/2, float64(h)/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tx := (float64(x)-cx)/zoom + offset.X
			ty := (float64(y)-cy)/zoom + offset.Y
			img.Pix[y*w+x] = float32(t.at(tx, ty))
		}
	}
	return img
}

func TestLucasKanadeRecoversTranslation(t *testing.T) {
	t.Parallel()

	tex := newTexture(1, 40, 80)
	prev := tex.render(80, 80, geom.Pt(0, 0), 1)
	next := tex.render(80, 80, geom.Pt(-2.5, 1.25), 1) // content moves +2.5, -1.25

	p := DefaultParams()
	from := grid(25, 55, 5)
	to, ok := lucasKanade(pyramid(prev, 0, p.Window), pyramid(next, 0, p.Window), from, p)
	dx, dy := medianMotion(t, from, to, ok)
	assert.InDelta(t, 2.5, dx, 0.1)
	assert.InDelta(t, -1.25, dy, 0.1)
}

func grid(lo, hi, step int) []geom.Point {
	var out []geom.Point
	for y := lo; y <= hi; y += step {
		for x := lo; x <= hi; x += step {
			out = append(out, geom.Pt(float64(x), float64(y)))
		}
	}
	return out
}

func medianMotion(t *testing.T, from, to []geom.Point, ok []bool) (float64, float64) {
	t.Helper()
	var dx, dy []float64
	for i := range from {
		if ok[i] {
			dx = append(dx, to[i].X-from[i].X)
			dy = append(dy, to[i].Y-from[i].Y)
		}
	}
	require.NotEmpty(t, dx, "no point tracked")
	return median(dx), median(dy)
}

func TestLucasKanadePyramid(t *testing.T) {
	t.Parallel()

	tex := newTexture(2, 60, 120)
	prev := tex.render(120, 120, geom.Pt(0, 0), 1)
	next := tex.render(120, 120, geom.Pt(-6, -4), 1)

	p := DefaultParams()
	p.Levels = 2
	from := grid(40, 80, 5)
	to, ok := lucasKanade(pyramid(prev, p.Levels, p.Window), pyramid(next, p.Levels, p.Window), from, p)
	dx, dy := medianMotion(t, from, to, ok)
	assert.InDelta(t, 6, dx, 0.3)
	assert.InDelta(t, 4, dy, 0.3)
}

func TestLucasKanadeRejectsFlatRegions(t *testing.T) {
	flat := raster.New(40, 40, 1)
	for i := range flat.Pix {
		flat.Pix[i] = 100
	}
	p := DefaultParams()
	lv := pyramid(flat, 0, p.Window)
	_, ok := lucasKanade(lv, lv, []geom.Point{{X: 20, Y: 20}}, p)
	assert.False(t, ok[0])
}

func TestGoodFeaturesInsideROI(t *testing.T) {
	t.Parallel()

	tex := newTexture(3, 40, 80)
	img := tex.render(80, 80, geom.Pt(0, 0), 1)
	p := DefaultParams()
	roi := image.Rect(20, 20, 60, 60)

	pts := goodFeatures(img, roi, p)
	require.NotEmpty(t, pts)
	assert.LessOrEqual(t, len(pts), p.MaxCorners)
	for i, a := range pts {
		assert.True(t, a.X >= 20 && a.X <= 60 && a.Y >= 20 && a.Y <= 60, "corner %v outside roi", a)
		for _, b := range pts[i+1:] {
			assert.GreaterOrEqual(t, a.Dist(b), p.CornerMinDistance)
		}
	}

	p.MaxCorners = 3
	assert.Len(t, goodFeatures(img, roi, p), 3)
}

func TestNCC(t *testing.T) {
	tex := newTexture(4, 20, 40)
	a := tex.render(40, 40, geom.Pt(0, 0), 1)
	assert.InDelta(t, 1, ncc(a, a, geom.Pt(20, 20), geom.Pt(20, 20), 10), 1e-9)
	assert.Less(t, ncc(a, a, geom.Pt(10, 10), geom.Pt(30, 28), 10), 1.0)
	assert.Zero(t, ncc(raster.New(20, 20, 1), a, geom.Pt(10, 10), geom.Pt(10, 10), 10))
}

func TestScaleRatio(t *testing.T) {
	from := []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}}
	to := make([]geom.Point, len(from))
	for i, p := range from {
		to[i] = p.Mul(1.2).Add(geom.Pt(3, -1))
	}
	w := []float64{1, 1, 1, 1}
	assert.InDelta(t, 1.2, scaleRatio(from, to, w), 1e-9)

	assert.Equal(t, 1.0, scaleRatio(from[:1], to[:1], w[:1]))
	// Coincident points contribute nothing.
	dup := []geom.Point{{X: 1, Y: 1}, {X: 1, Y: 1}}
	assert.Equal(t, 1.0, scaleRatio(dup, dup, []float64{1, 1}))
}

func TestMedianIsLower(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 3.0, median([]float64{5, 3, 1}))
	v := []float64{3, 1, 2}
	median(v)
	assert.Equal(t, []float64{3, 1, 2}, v, "input must not be reordered")
}

func TestSeedPointsRespectWeight(t *testing.T) {
	t.Parallel()

	tex := newTexture(5, 40, 100)
	patch := tex.render(100, 100, geom.Pt(0, 0), 1)
	p := DefaultParams()

	pts, ws := seedPoints(patch, geom.Size{W: 40, H: 40}, p)
	require.NotEmpty(t, pts)
	require.Len(t, ws, len(pts))
	for i, pt := range pts {
		assert.GreaterOrEqual(t, ws[i], p.WeightThreshold)
		assert.True(t, pt.X >= 30 && pt.X <= 70 && pt.Y >= 30 && pt.Y <= 70, "%v outside target", pt)
	}

	again, _ := seedPoints(patch, geom.Size{W: 40, H: 40}, p)
	assert.Equal(t, pts, again, "seeding is deterministic")
}

func TestEstimatorUnseeded(t *testing.T) {
	e := New(DefaultParams())
	assert.Equal(t, 1.0, e.Estimate(raster.New(10, 10, 1), geom.Pt(0, 0)))
	assert.Empty(t, e.Points())
}

func TestEstimatorStatic(t *testing.T) {
	t.Parallel()

	tex := newTexture(6, 50, 100)
	patch := tex.render(100, 100, geom.Pt(0, 0), 1)

	e := New(DefaultParams())
	e.Observe(patch, geom.Size{W: 40, H: 40})
	require.NotEmpty(t, e.Points())

	for i := 0; i < 3; i++ {
		ratio := e.Estimate(patch, geom.Pt(0, 0))
		assert.InDelta(t, 1, ratio, 1e-3)
		e.Observe(patch, geom.Size{W: 40, H: 40})
		assert.NotEmpty(t, e.Points(), "frame %d", i)
	}
}

func TestEstimatorDetectsGrowth(t *testing.T) {
	t.Parallel()

	tex := newTexture(7, 80, 100)
	prev := tex.render(100, 100, geom.Pt(0, 0), 1)
	next := tex.render(100, 100, geom.Pt(0, 0), 1.05)

	e := New(DefaultParams())
	e.Observe(prev, geom.Size{W: 40, H: 40})
	ratio := e.Estimate(next, geom.Pt(0, 0))
	assert.InDelta(t, 1.05, ratio, 0.02)
	assert.Equal(t, ratio, e.Scale())
}

func TestEstimatorCarriesPointsAcrossShift(t *testing.T) {
	t.Parallel()

	tex := newTexture(8, 60, 100)
	prev := tex.render(100, 100, geom.Pt(0, 0), 1)
	next := tex.render(100, 100, geom.Pt(-3, 0), 1) // target moved +3 px

	e := New(DefaultParams())
	e.Observe(prev, geom.Size{W: 40, H: 40})
	before := e.Points()

	ratio := e.Estimate(next, geom.Pt(3, 0))
	assert.InDelta(t, 1, ratio, 0.01)

	// After re-centring on the shift the survivors sit where they started.
	after := e.Points()
	require.NotEmpty(t, after)
	for _, q := range after {
		nearest := math.Inf(1)
		for _, p := range before {
			nearest = math.Min(nearest, p.Dist(q))
		}
		assert.Less(t, nearest, 0.3)
	}
}

func TestEstimatorDiscardsDisagreeingScale(t *testing.T) {
	t.Parallel()

	tex := newTexture(9, 60, 100)
	prev := tex.render(100, 100, geom.Pt(0, 0), 1)
	next := tex.render(100, 100, geom.Pt(0, 0), 1.05)

	e := New(DefaultParams())
	e.Observe(prev, geom.Size{W: 40, H: 40})
	// A 20 px claimed shift contradicts the observed near-zero motion.
	assert.Equal(t, 1.0, e.Estimate(next, geom.Pt(20, 0)))
}

func TestEstimatorReset(t *testing.T) {
	tex := newTexture(10, 40, 100)
	patch := tex.render(100, 100, geom.Pt(0, 0), 1)
	e := New(DefaultParams())
	e.Observe(patch, geom.Size{W: 40, H: 40})
	require.NotEmpty(t, e.Points())
	e.Reset()
	assert.Empty(t, e.Points())
	assert.Equal(t, 1.0, e.Scale())
}

func TestEstimatorPointSetExhausted(t *testing.T) {
	t.Parallel()

	tex := newTexture(11, 60, 100)
	patch := tex.render(100, 100, geom.Pt(0, 0), 1)
	flat := raster.New(100, 100, 1)
	for i := range flat.Pix {
		flat.Pix[i] = 100
	}

	e := New(DefaultParams())
	e.Observe(patch, geom.Size{W: 40, H: 40})
	require.NotEmpty(t, e.Points())

	assert.Equal(t, 1.0, e.Estimate(flat, geom.Pt(0, 0)))
	assert.Empty(t, e.Points())
	assert.Empty(t, e.Weights())

	// Once exhausted, later frames neither re-seed nor contribute scale.
	e.Observe(patch, geom.Size{W: 40, H: 40})
	assert.Empty(t, e.Points())
	grown := tex.render(100, 100, geom.Pt(0, 0), 1.05)
	assert.Equal(t, 1.0, e.Estimate(grown, geom.Pt(0, 0)))
	assert.Equal(t, 1.0, e.Scale())
	assert.Empty(t, e.Points())
}
