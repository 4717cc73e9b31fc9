package kcf

import (
	"runtime"

	"github.com/banshee-data/skcf/internal/features"
	"github.com/banshee-data/skcf/internal/flow"
	"github.com/banshee-data/skcf/internal/kernel"
	"github.com/banshee-data/skcf/internal/spectrum"
)

// TrackerConfig is the immutable configuration of one tracker instance.
type TrackerConfig struct {
	Method            Method
	Padding           float64 // window = size * (1 + Padding)
	Lambda            float64 // ridge regularisation
	OutputSigmaFactor float64 // label bandwidth relative to target size
	KernelSigma       float64 // Gaussian kernel bandwidth
	PolyA             float64 // polynomial kernel offset
	PolyB             float64 // polynomial kernel exponent
	InterpFactor      float64 // online learning rate
	CellSize          int     // pixels per feature cell
	Orientations      int     // FHOG orientation bins
	Packing           spectrum.Packing
	Workers           int // channel fan-out for kernel evaluation and blending
	Flow              flow.Params
}

// DefaultTrackerConfig returns the published settings for a method. FHOG
// uses 4-pixel cells and a slower learning rate than the pixel-level
// colour features.
func DefaultTrackerConfig(m Method) TrackerConfig {
	c := TrackerConfig{
		Method:            m,
		Padding:           1.5,
		Lambda:            1e-4,
		OutputSigmaFactor: 0.1,
		KernelSigma:       0.2,
		PolyA:             1,
		PolyB:             7,
		InterpFactor:      0.075,
		CellSize:          1,
		Orientations:      9,
		Packing:           spectrum.Packed,
		Workers:           runtime.GOMAXPROCS(0),
		Flow:              flow.DefaultParams(),
	}
	if m.Feature == features.FHOG {
		c.KernelSigma = 0.5
		c.PolyB = 9
		c.InterpFactor = 0.02
		c.CellSize = 4
	}
	return c
}

func (c TrackerConfig) kernelParams() kernel.Params {
	return kernel.Params{
		Law:     c.Method.Kernel,
		Sigma:   c.KernelSigma,
		PolyA:   c.PolyA,
		PolyB:   c.PolyB,
		Workers: c.Workers,
	}
}

// cellSize is the effective cell size; only FHOG bins pixels into cells.
func (c TrackerConfig) cellSize() int {
	if c.Method.Feature != features.FHOG || c.CellSize < 1 {
		return 1
	}
	return c.CellSize
}
