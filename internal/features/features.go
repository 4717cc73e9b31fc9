// Package features turns an image patch into tapered real-valued channel
// planes for the correlation filters.
//
// Colour laws (Gray, RGB, HSV, HLS) work at pixel resolution: samples are
// scaled to [0,1], each channel has its mean removed, and every plane is
// multiplied by the caller's taper. The FHOG law works on a cell grid
// (patch size / cell size) and is tapered without mean removal.
package features

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/raster"
	"github.com/banshee-data/skcf/internal/spectrum"
)

// Law selects the feature representation.
type Law int

const (
	Gray Law = iota
	RGB
	FHOG
	HLS
	HSV
)

var lawNames = map[Law]string{
	Gray: "G",
	RGB:  "RGB",
	FHOG: "FHOG",
	HLS:  "HLS",
	HSV:  "HSV",
}

// String returns the short tag used in tracker descriptions.
func (l Law) String() string {
	if s, ok := lawNames[l]; ok {
		return s
	}
	return fmt.Sprintf("Law(%d)", int(l))
}

// Channels returns the number of planes Extract yields for the law.
func (l Law) Channels(orientations int) int {
	switch l {
	case Gray:
		return 1
	case FHOG:
		return FHOGChannels(orientations)
	default:
		return 3
	}
}

// Grid returns the plane size Extract yields for a patch of size patch.
func (l Law) Grid(patch geom.Dim, cellSize int) geom.Dim {
	if l == FHOG {
		return geom.Dim{W: patch.W / cellSize, H: patch.H / cellSize}
	}
	return patch
}

// Extract computes the feature planes of patch and multiplies each by
// taper, which must match the law's grid for this patch.
func Extract(patch *raster.Image, law Law, cellSize, orientations int, taper *spectrum.Plane) []*spectrum.Plane {
	var planes []*spectrum.Plane
	switch law {
	case FHOG:
		gray := scaled(patch.Gray())
		planes = FHOGPlanes(gray, cellSize, orientations)
		planes = planes[:len(planes)-1]
	case Gray:
		planes = split(scaled(patch.Gray()))
		centre(planes)
	case RGB:
		planes = split(scaled(patch.RGB()))
		centre(planes)
	case HSV, HLS:
		planes = hueSplit(scaled(patch.RGB()), law)
		centre(planes)
	default:
		panic(fmt.Sprintf("features: unknown law %d", int(law)))
	}
	if taper != nil {
		for _, p := range planes {
			p.MulInPlace(taper)
		}
	}
	return planes
}

// scaled returns a copy of m with samples mapped from [0,255] to [0,1].
func scaled(m *raster.Image) *raster.Image {
	out := m.Clone()
	for i, v := range out.Pix {
		out.Pix[i] = v / 255
	}
	return out
}

func split(m *raster.Image) []*spectrum.Plane {
	planes := make([]*spectrum.Plane, m.C)
	for c := range planes {
		planes[c] = spectrum.NewPlane(m.Dim())
	}
	for i := 0; i < m.W*m.H; i++ {
		for c, p := range planes {
			p.Data[i] = float64(m.Pix[i*m.C+c])
		}
	}
	return planes
}

// hueSplit converts an RGB image in [0,1] into hue/saturation/value (HSV)
// or hue/lightness/saturation (HLS) planes, hue scaled to [0,1).
func hueSplit(m *raster.Image, law Law) []*spectrum.Plane {
	planes := make([]*spectrum.Plane, 3)
	for c := range planes {
		planes[c] = spectrum.NewPlane(m.Dim())
	}
	for i := 0; i < m.W*m.H; i++ {
		px := m.Pix[i*3 : i*3+3]
		col := colorful.Color{R: float64(px[0]), G: float64(px[1]), B: float64(px[2])}
		if law == HSV {
			h, s, v := col.Hsv()
			planes[0].Data[i], planes[1].Data[i], planes[2].Data[i] = h/360, s, v
		} else {
			h, s, l := col.Hsl()
			planes[0].Data[i], planes[1].Data[i], planes[2].Data[i] = h/360, l, s
		}
	}
	return planes
}

// centre subtracts each plane's mean.
func centre(planes []*spectrum.Plane) {
	for _, p := range planes {
		if len(p.Data) == 0 {
			continue
		}
		mean := stat.Mean(p.Data, nil)
		floats.AddConst(-mean, p.Data)
	}
}
