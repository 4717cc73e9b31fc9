// Package kcf implements the kernelized correlation filter trackers (KCF
// with Gaussian or polynomial kernel, DCF with the linear kernel) and their
// optical-flow scale extension.
//
// A Tracker keeps the target centre and size, a fixed extraction window
// chosen when the area is set, and a frequency-domain model: the averaged
// feature spectra and the dual ridge-regression coefficients. Each frame it
// detects the translation by correlating the new patch with the model,
// optionally rescales the target, and retrains at the new position.
package kcf

import (
	"image"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/skcf/internal/features"
	"github.com/banshee-data/skcf/internal/flow"
	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/kernel"
	"github.com/banshee-data/skcf/internal/monitoring"
	"github.com/banshee-data/skcf/internal/raster"
	"github.com/banshee-data/skcf/internal/spectrum"
)

// Target is the tracker's view of the object.
type Target struct {
	Center    geom.Point
	Size      geom.Size // never larger than Window
	Window    geom.Dim  // extraction window, fixed by SetArea
	Initiated bool      // false until the first training pass
}

// Tracker is one correlation-filter tracker instance. It is not safe for
// concurrent use.
type Tracker struct {
	ID     string
	Config TrackerConfig

	target Target
	cell   int
	grid   geom.Dim

	fft  *spectrum.FFT2
	kern *kernel.Evaluator
	hann *spectrum.Plane

	modelX     []*spectrum.Spectrum
	modelAlpha *spectrum.Spectrum

	flow *flow.Estimator
}

// NewTracker returns an uninitialised tracker.
func NewTracker(config TrackerConfig) *Tracker {
	return &Tracker{
		ID:     uuid.New().String(),
		Config: config,
		cell:   config.cellSize(),
		flow:   flow.New(config.Flow),
	}
}

// New returns a tracker with the published defaults for method.
func New(m Method) *Tracker {
	return NewTracker(DefaultTrackerConfig(m))
}

// GetDescription returns the variant tag, e.g. "KCF(G)_FHOG_S".
func (t *Tracker) GetDescription() string {
	return t.Config.Method.Description()
}

// GetTarget returns a copy of the current target state.
func (t *Tracker) GetTarget() Target { return t.target }

// SetArea starts tracking the region r. The window is fixed here as
// floor(size * (1 + padding)), at least two cells per axis; the model is
// cleared and no detection happens until the next frame has been trained
// on. Degenerate regions are raised to one pixel.
func (t *Tracker) SetArea(r geom.Rect) {
	size := geom.Size{W: math.Max(r.Size.W, 1), H: math.Max(r.Size.H, 1)}
	pad := 1 + t.Config.Padding
	window := geom.Dim{
		W: maxInt(int(math.Floor(size.W*pad)), 2*t.cell),
		H: maxInt(int(math.Floor(size.H*pad)), 2*t.cell),
	}
	t.target = Target{
		Center: r.Center,
		Size:   size.ClampTo(window),
		Window: window,
	}
	t.grid = t.Config.Method.Feature.Grid(window, t.cell)

	t.fft = spectrum.NewFFT2(t.grid, t.Config.Packing)
	t.kern = kernel.New(t.Config.kernelParams(), t.grid, t.Config.Packing)
	t.hann = features.HannWindow(t.grid)
	t.modelX = nil
	t.modelAlpha = nil
	t.flow.Reset()

	monitoring.Logf("kcf %s [%s]: area set centre=(%.1f,%.1f) size=%.1fx%.1f window=%dx%d",
		t.ID, t.GetDescription(), r.Center.X, r.Center.Y, size.W, size.H, window.W, window.H)
}

// Initialize sets the area from an axis-aligned region and trains on frame.
func (t *Tracker) Initialize(frame image.Image, region image.Rectangle) {
	t.InitializeImage(raster.FromImage(frame), region)
}

// InitializeImage is Initialize for an already converted frame.
func (t *Tracker) InitializeImage(img *raster.Image, region image.Rectangle) {
	t.SetArea(geom.RectFromImage(region))
	t.ProcessImage(img)
}

// ProcessFrame advances tracking by one frame.
func (t *Tracker) ProcessFrame(frame image.Image) {
	t.ProcessImage(raster.FromImage(frame))
}

// ProcessImage advances tracking by one already converted frame. Empty
// frames, or frames before SetArea, are ignored.
//
// Algorithm:
//  1. When trained, extract a Hann-tapered patch at the current centre,
//     correlate it with the model and move the centre to the response peak.
//  2. With scale estimation, rescale the size by the flow ratio, clamped
//     to the window.
//  3. Retrain on a patch at the new centre tapered by the size-adapted
//     Gaussian, and blend the result into the model.
func (t *Tracker) ProcessImage(img *raster.Image) {
	if img.Empty() || t.fft == nil {
		return
	}

	if t.target.Initiated {
		patch := img.Patch(t.target.Center, t.target.Window)
		zf := t.fft.ForwardAll(t.extract(patch, t.hann))
		cells := t.detect(zf)
		shift := cells.Mul(float64(t.cell))
		t.target.Center = t.target.Center.Add(shift)

		if t.Config.Method.Scale {
			t.rescale(t.flow.Estimate(patch, shift))
		}
	}

	t.train(img)
}

// extract computes the feature planes of patch under an explicit taper:
// Hann for detection, the size-adapted Gaussian for training.
func (t *Tracker) extract(patch *raster.Image, taper *spectrum.Plane) []*spectrum.Plane {
	return features.Extract(patch, t.Config.Method.Feature, t.cell, t.Config.Orientations, taper)
}

// detect returns the cyclic shift, in cells, at which the model responds
// most strongly to zf.
func (t *Tracker) detect(zf []*spectrum.Spectrum) geom.Point {
	kzf := t.kern.Correlate(zf, t.modelX)
	resp := t.fft.Inverse(spectrum.Mul(t.modelAlpha, kzf))
	x, y, _ := resp.ArgMax()
	if x > resp.W/2 {
		x -= resp.W
	}
	if y > resp.H/2 {
		y -= resp.H
	}
	return geom.Pt(float64(x), float64(y))
}

// rescale applies a scale ratio to the target size, clamped to the window.
func (t *Tracker) rescale(ratio float64) {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return
	}
	t.target.Size = t.target.Size.Scale(ratio).ClampTo(t.target.Window)
}

// tentativeSize is the target size in cells, limited to the grid.
func (t *Tracker) tentativeSize() geom.Size {
	c := float64(t.cell)
	return geom.Size{W: t.target.Size.W / c, H: t.target.Size.H / c}.ClampTo(t.grid)
}

func (t *Tracker) train(img *raster.Image) {
	sz := t.target.Size
	sigma := math.Sqrt(sz.W*sz.H) * t.Config.OutputSigmaFactor / float64(t.cell)
	yf := t.fft.Forward(features.GaussianLabels(t.grid, sigma))

	patch := img.Patch(t.target.Center, t.target.Window)
	if t.Config.Method.Scale {
		t.flow.Observe(patch, sz)
	}
	taper := features.SizeAdaptedWindow(t.grid, t.tentativeSize())
	xf := t.fft.ForwardAll(t.extract(patch, taper))
	kf := t.kern.AutoCorrelate(xf)
	alphaf := spectrum.DivideKernel(yf, kf, t.Config.Lambda)

	if !t.target.Initiated {
		t.modelX = xf
		t.modelAlpha = alphaf
		t.target.Initiated = true
		return
	}
	rate := t.Config.InterpFactor
	forChannels(len(xf), t.Config.Workers, func(c int) {
		spectrum.Blend(t.modelX[c], xf[c], rate)
	})
	spectrum.Blend(t.modelAlpha, alphaf, rate)
}

// GetTrackedArea returns the four corners of the current target rectangle
// in clockwise order starting at the top-left.
func (t *Tracker) GetTrackedArea() geom.Quad {
	return geom.Quad(geom.Rect{Center: t.target.Center, Size: t.target.Size}.Corners())
}

// GetTrackedPoints returns the scale estimator's points in image
// coordinates; empty when scale estimation is off.
func (t *Tracker) GetTrackedPoints() []geom.Point {
	if !t.Config.Method.Scale {
		return nil
	}
	o := raster.PatchOrigin(t.target.Center, t.target.Window)
	origin := geom.Pt(float64(o.X), float64(o.Y))
	pts := t.flow.Points()
	for i := range pts {
		pts[i] = pts[i].Add(origin)
	}
	return pts
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
