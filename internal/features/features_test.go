package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/raster"
	"github.com/banshee-data/skcf/internal/spectrum"
)

func TestHannWindow(t *testing.T) {
	t.Parallel()

	w := HannWindow(geom.Dim{W: 9, H: 5})
	require.Equal(t, 9, w.W)
	require.Equal(t, 5, w.H)

	assert.InDelta(t, 0, w.At(0, 0), 1e-12)
	assert.InDelta(t, 0, w.At(8, 4), 1e-12)
	assert.InDelta(t, 1, w.At(4, 2), 1e-12, "centre weight")
	for x := 0; x < 9; x++ {
		assert.InDelta(t, w.At(x, 1), w.At(8-x, 1), 1e-12, "symmetric at x=%d", x)
	}

	one := HannWindow(geom.Dim{W: 1, H: 1})
	assert.Equal(t, 1.0, one.At(0, 0))
}

func TestSizeAdaptedWindowWidensWithTarget(t *testing.T) {
	t.Parallel()

	grid := geom.Dim{W: 32, H: 32}
	small := SizeAdaptedWindow(grid, geom.Size{W: 8, H: 8})
	large := SizeAdaptedWindow(grid, geom.Size{W: 24, H: 24})

	// Same peak, but the larger target keeps more weight near the border.
	assert.Greater(t, large.At(4, 16), small.At(4, 16))
	assert.Greater(t, large.At(16, 4), small.At(16, 4))
}

func TestGaussianLabelsPeakAtOrigin(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		dim   geom.Dim
		sigma float64
	}{
		{"square", geom.Dim{W: 16, H: 16}, 2},
		{"odd", geom.Dim{W: 15, H: 9}, 1.3},
		{"narrow", geom.Dim{W: 40, H: 3}, 0.1},
		{"wide", geom.Dim{W: 7, H: 7}, 50},
		{"single", geom.Dim{W: 1, H: 1}, 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			y := GaussianLabels(tc.dim, tc.sigma)
			x0, y0, v := y.ArgMax()
			assert.Equal(t, 0, x0)
			assert.Equal(t, 0, y0)
			assert.InDelta(t, 1, v, 1e-12)
		})
	}
}

func TestGaussianLabelsWrap(t *testing.T) {
	t.Parallel()

	y := GaussianLabels(geom.Dim{W: 10, H: 10}, 2)
	// A shift of -1 sits in the last column and must match +1.
	assert.InDelta(t, y.At(1, 0), y.At(9, 0), 1e-12)
	assert.InDelta(t, y.At(0, 2), y.At(0, 8), 1e-12)

	// On odd axes index n-k is the shift -k, as detection reads it.
	odd := GaussianLabels(geom.Dim{W: 5, H: 7}, 1)
	for k := 1; k <= 2; k++ {
		assert.InDelta(t, odd.At(k, 0), odd.At(5-k, 0), 1e-12, "x shift %d", k)
	}
	for k := 1; k <= 3; k++ {
		assert.InDelta(t, odd.At(0, k), odd.At(0, 7-k), 1e-12, "y shift %d", k)
	}
}

func stripes(w, h, period int) *raster.Image {
	img := raster.New(w, h, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/period)%2 == 0 {
				img.Set(x, y, 0, 255)
				img.Set(x, y, 1, 128)
			}
			img.Set(x, y, 2, float32(y))
		}
	}
	return img
}

func TestExtractColourLawsAreZeroMean(t *testing.T) {
	t.Parallel()

	img := stripes(24, 16, 3)
	for _, law := range []Law{Gray, RGB, HSV, HLS} {
		law := law
		t.Run(law.String(), func(t *testing.T) {
			t.Parallel()
			planes := Extract(img, law, 1, 9, nil)
			require.Len(t, planes, law.Channels(9))
			for i, p := range planes {
				assert.Equal(t, img.Dim(), p.Dim())
				var sum float64
				for _, v := range p.Data {
					sum += v
				}
				assert.InDelta(t, 0, sum/float64(len(p.Data)), 1e-9, "channel %d mean", i)
			}
		})
	}
}

func TestExtractAppliesTaper(t *testing.T) {
	t.Parallel()

	img := stripes(12, 12, 2)
	taper := spectrum.NewPlane(img.Dim())
	taper.Set(5, 5, 1)

	planes := Extract(img, RGB, 1, 9, taper)
	for _, p := range planes {
		for i, v := range p.Data {
			if i == 5*12+5 {
				continue
			}
			assert.Zero(t, v)
		}
	}
}

func TestHueSplitScalesHue(t *testing.T) {
	t.Parallel()

	img := raster.New(1, 1, 3)
	img.Set(0, 0, 1, 1) // pure green in [0,1]

	hsv := hueSplit(img, HSV)
	assert.InDelta(t, 1.0/3, hsv[0].Data[0], 1e-9)
	assert.InDelta(t, 1, hsv[1].Data[0], 1e-9)
	assert.InDelta(t, 1, hsv[2].Data[0], 1e-9)

	hls := hueSplit(img, HLS)
	assert.InDelta(t, 1.0/3, hls[0].Data[0], 1e-9)
	assert.InDelta(t, 0.5, hls[1].Data[0], 1e-9, "lightness")
	assert.InDelta(t, 1, hls[2].Data[0], 1e-9, "saturation")
}

func TestFHOGShape(t *testing.T) {
	t.Parallel()

	img := stripes(40, 24, 5)
	planes := Extract(img, FHOG, 4, 9, nil)
	require.Len(t, planes, 31)
	for _, p := range planes {
		assert.Equal(t, geom.Dim{W: 10, H: 6}, p.Dim())
	}
	assert.Equal(t, geom.Dim{W: 10, H: 6}, FHOG.Grid(img.Dim(), 4))
}

func TestFHOGFlatImageIsZero(t *testing.T) {
	t.Parallel()

	img := raster.New(16, 16, 1)
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	for _, p := range FHOGPlanes(scaled(img), 4, 9) {
		for _, v := range p.Data {
			assert.Zero(t, v)
		}
	}
}

func TestFHOGRespondsToEdges(t *testing.T) {
	t.Parallel()

	img := raster.New(32, 32, 1)
	for y := 0; y < 32; y++ {
		for x := 16; x < 32; x++ {
			img.Set(x, y, 0, 1)
		}
	}
	planes := FHOGPlanes(img, 4, 9)
	require.Len(t, planes, 32)

	var energy float64
	for _, p := range planes[:27] {
		for _, v := range p.Data {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 2*fhogClip+1e-12)
			energy += v
		}
	}
	assert.Greater(t, energy, 0.0)
	for _, v := range planes[31].Data {
		assert.Zero(t, v, "trailing channel")
	}
	// A vertical edge has horizontal gradient: orientation bin 0.
	assert.Greater(t, planes[0].At(4, 4)+planes[3*9-9].At(4, 4), 0.0)
}

func TestGradientsOrientation(t *testing.T) {
	t.Parallel()

	img := raster.New(3, 3, 1)
	for y := 0; y < 3; y++ {
		img.Set(2, y, 0, 2)
	}
	mag, ori := gradients(img)
	assert.InDelta(t, 1, mag[4], 1e-12)
	assert.InDelta(t, 0, ori[4], 1e-12)

	img = raster.New(3, 3, 1)
	for x := 0; x < 3; x++ {
		img.Set(x, 0, 0, 2)
	}
	_, ori = gradients(img)
	assert.InDelta(t, 3*math.Pi/2, ori[4], 1e-12, "gradient pointing up")
}

func TestLawString(t *testing.T) {
	assert.Equal(t, "FHOG", FHOG.String())
	assert.Equal(t, "G", Gray.String())
	assert.Equal(t, "Law(42)", Law(42).String())
}
