package features

import (
	"math"

	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/spectrum"
)

// HannWindow returns the separable 2-D cosine taper of size sz:
//
//	w(i) = 0.5·(1 - cos(2πi/(n-1)))
//
// An axis of length one gets weight 1.
func HannWindow(sz geom.Dim) *spectrum.Plane {
	return separable(hann1D(sz.W), hann1D(sz.H))
}

func hann1D(n int) []float64 {
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

// GaussianWindow returns a separable Gaussian taper of size sz centred on
// the window. sigmaW and sigmaH are fractions of the half-width and
// half-height, so a target filling the whole window (sigma 1) gets a wide
// taper and a small target a narrow one.
func GaussianWindow(sz geom.Dim, sigmaW, sigmaH float64) *spectrum.Plane {
	return separable(gauss1D(sz.W, sigmaW), gauss1D(sz.H, sigmaH))
}

func gauss1D(n int, sigma float64) []float64 {
	out := make([]float64, n)
	half := float64(n-1) / 2
	if half == 0 || sigma <= 0 {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i := range out {
		e := (float64(i) - half) / (sigma * half)
		out[i] = math.Exp(-0.5 * e * e)
	}
	return out
}

// SizeAdaptedWindow builds the training taper for a target of size target
// (in cells, already clamped to the grid) inside a grid of size grid.
func SizeAdaptedWindow(grid geom.Dim, target geom.Size) *spectrum.Plane {
	return GaussianWindow(grid, target.W/float64(grid.W), target.H/float64(grid.H))
}

func separable(cols, rows []float64) *spectrum.Plane {
	p := spectrum.NewPlane(geom.Dim{W: len(cols), H: len(rows)})
	for y, r := range rows {
		for x, c := range cols {
			p.Data[y*p.W+x] = r * c
		}
	}
	return p
}

// GaussianLabels returns the regression target for every cyclic shift of a
// grid of size sz: a separable Gaussian of bandwidth sigma with its peak
// (1.0) at index (0,0), decaying with shift distance and wrapping around at
// the borders so index n-1 stands for a shift of -1. Indices above n/2 are
// negative shifts, the same convention detection uses to read the response.
func GaussianLabels(sz geom.Dim, sigma float64) *spectrum.Plane {
	return separable(labels1D(sz.W, sigma), labels1D(sz.H, sigma))
}

func labels1D(n int, sigma float64) []float64 {
	out := make([]float64, n)
	if sigma <= 0 {
		out[0] = 1
		return out
	}
	k := -1 / (2 * sigma * sigma)
	for i := range out {
		d := float64(i)
		if i > n/2 {
			d = float64(i - n)
		}
		out[i] = math.Exp(k * d * d)
	}
	return out
}
