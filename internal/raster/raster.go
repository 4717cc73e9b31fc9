// Package raster provides the owned pixel buffer the tracker works on.
//
// Frames arrive as image.Image from whatever decoder the caller uses; they
// are converted once into an Image (interleaved float32 samples in [0,255])
// so patch extraction, colour conversion and gradient computation can index
// the samples directly.
package raster

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/banshee-data/skcf/internal/geom"
)

// Image is a row-major, channel-interleaved raster with 1 (gray) or 3 (RGB)
// channels. Samples are in [0,255].
type Image struct {
	W, H, C int
	Pix     []float32
}

// New allocates a zeroed image.
func New(w, h, c int) *Image {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Image{W: w, H: h, C: c, Pix: make([]float32, w*h*c)}
}

// Empty reports whether the image has no pixels.
func (m *Image) Empty() bool {
	return m == nil || m.W == 0 || m.H == 0
}

// Dim returns the image extent.
func (m *Image) Dim() geom.Dim { return geom.Dim{W: m.W, H: m.H} }

// At returns sample c at (x, y). Coordinates must be inside the image.
func (m *Image) At(x, y, c int) float32 {
	return m.Pix[(y*m.W+x)*m.C+c]
}

// Set stores sample c at (x, y).
func (m *Image) Set(x, y, c int, v float32) {
	m.Pix[(y*m.W+x)*m.C+c] = v
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := &Image{W: m.W, H: m.H, C: m.C, Pix: make([]float32, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// FromImage converts any image.Image into an Image. Gray images keep one
// channel, everything else becomes RGB.
func FromImage(src image.Image) *Image {
	if src == nil {
		return New(0, 0, 1)
	}
	b := src.Bounds()
	switch s := src.(type) {
	case *image.Gray:
		out := New(b.Dx(), b.Dy(), 1)
		for y := 0; y < out.H; y++ {
			row := s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < out.W; x++ {
				out.Pix[y*out.W+x] = float32(row[x])
			}
		}
		return out
	case *image.RGBA:
		return fromRGBA(s)
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return fromRGBA(rgba)
}

func fromRGBA(s *image.RGBA) *Image {
	b := s.Bounds()
	out := New(b.Dx(), b.Dy(), 3)
	for y := 0; y < out.H; y++ {
		row := s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < out.W; x++ {
			i := (y*out.W + x) * 3
			out.Pix[i] = float32(row[x*4])
			out.Pix[i+1] = float32(row[x*4+1])
			out.Pix[i+2] = float32(row[x*4+2])
		}
	}
	return out
}

// Gray returns a single channel luma image (ITU-R BT.601 weights). A gray
// input is returned as a copy.
func (m *Image) Gray() *Image {
	if m.C == 1 {
		return m.Clone()
	}
	out := New(m.W, m.H, 1)
	for i := 0; i < m.W*m.H; i++ {
		r, g, b := m.Pix[i*m.C], m.Pix[i*m.C+1], m.Pix[i*m.C+2]
		out.Pix[i] = 0.299*r + 0.587*g + 0.114*b
	}
	return out
}

// RGB returns a three channel copy, replicating gray samples when needed.
func (m *Image) RGB() *Image {
	if m.C == 3 {
		return m.Clone()
	}
	out := New(m.W, m.H, 3)
	for i := 0; i < m.W*m.H; i++ {
		v := m.Pix[i*m.C]
		out.Pix[i*3], out.Pix[i*3+1], out.Pix[i*3+2] = v, v, v
	}
	return out
}

// PatchOrigin returns the integer top-left corner of a window of size sz
// centred at center, matching Patch.
func PatchOrigin(center geom.Point, sz geom.Dim) image.Point {
	return image.Point{
		X: int(math.Round(center.X - math.Floor(float64(sz.W)/2))),
		Y: int(math.Round(center.Y - math.Floor(float64(sz.H)/2))),
	}
}

// Patch extracts a window of size sz centred at center. Pixels outside the
// image replicate the nearest border pixel, so a window partly or entirely
// off the frame still yields a fully defined patch.
func (m *Image) Patch(center geom.Point, sz geom.Dim) *Image {
	out := New(sz.W, sz.H, m.C)
	if m.Empty() {
		return out
	}
	o := PatchOrigin(center, sz)
	for y := 0; y < sz.H; y++ {
		sy := clamp(o.Y+y, 0, m.H-1)
		for x := 0; x < sz.W; x++ {
			sx := clamp(o.X+x, 0, m.W-1)
			copy(out.Pix[(y*sz.W+x)*m.C:(y*sz.W+x+1)*m.C], m.Pix[(sy*m.W+sx)*m.C:(sy*m.W+sx+1)*m.C])
		}
	}
	return out
}

// Bilinear samples channel 0 at a sub-pixel position with border
// replication.
func (m *Image) Bilinear(x, y float64) float64 {
	if m.Empty() {
		return 0
	}
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	ax := x - x0
	ay := y - y0
	ix, iy := int(x0), int(y0)
	p00 := float64(m.at0(ix, iy))
	p10 := float64(m.at0(ix+1, iy))
	p01 := float64(m.at0(ix, iy+1))
	p11 := float64(m.at0(ix+1, iy+1))
	return (1-ay)*((1-ax)*p00+ax*p10) + ay*((1-ax)*p01+ax*p11)
}

func (m *Image) at0(x, y int) float32 {
	x = clamp(x, 0, m.W-1)
	y = clamp(y, 0, m.H-1)
	return m.Pix[(y*m.W+x)*m.C]
}

// FillRect sets every channel inside r (clipped to the image) to v.
func (m *Image) FillRect(r image.Rectangle, v float32) {
	r = r.Intersect(image.Rect(0, 0, m.W, m.H))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			for c := 0; c < m.C; c++ {
				m.Set(x, y, c, v)
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ToImage converts m back to an 8-bit image, replicating gray into RGB.
func (m *Image) ToImage() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.W, m.H))
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			i := out.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				out.Pix[i+c] = uint8(clamp(int(math.Round(float64(m.At(x, y, min(c, m.C-1))))), 0, 255))
			}
			out.Pix[i+3] = 255
		}
	}
	return out
}
