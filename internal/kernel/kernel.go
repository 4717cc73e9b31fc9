// Package kernel evaluates the correlation kernels of the trackers over all
// cyclic shifts at once.
//
// Inputs are per-channel spectra. The channel loop is the only parallel
// part: each worker sums the cross-power spectra of its share of channels
// into a private accumulator, and the partial sums are merged under a lock
// once the worker is done. The Gaussian and polynomial laws then take one
// inverse transform, apply the law per shift, and transform back, so every
// result is returned in the frequency domain.
package kernel

import (
	"fmt"
	"math"
	"sync"

	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/spectrum"
)

// Law selects the kernel function.
type Law int

const (
	Gaussian Law = iota
	Polynomial
	Linear
)

// String returns the tag used in tracker descriptions.
func (l Law) String() string {
	switch l {
	case Gaussian:
		return "G"
	case Polynomial:
		return "P"
	case Linear:
		return "L"
	}
	return fmt.Sprintf("Law(%d)", int(l))
}

// Params configures an Evaluator.
type Params struct {
	Law     Law
	Sigma   float64 // Gaussian bandwidth
	PolyA   float64 // polynomial offset
	PolyB   float64 // polynomial exponent
	Workers int     // channel fan-out; <= 1 runs inline
}

// Evaluator computes kernel responses on a fixed grid and packing. It owns
// a transform and is not safe for concurrent use.
type Evaluator struct {
	params Params
	grid   geom.Dim
	fft    *spectrum.FFT2
}

// New returns an Evaluator for spectra of the given grid and packing.
func New(p Params, grid geom.Dim, packing spectrum.Packing) *Evaluator {
	return &Evaluator{params: p, grid: grid, fft: spectrum.NewFFT2(grid, packing)}
}

// Params returns the evaluator configuration.
func (e *Evaluator) Params() Params { return e.params }

// Correlate returns k(x, y) for every cyclic shift of x against y, in the
// frequency domain. x and y must have the same channel count.
func (e *Evaluator) Correlate(x, y []*spectrum.Spectrum) *spectrum.Spectrum {
	if len(x) != len(y) {
		panic(fmt.Sprintf("kernel: channel mismatch %d != %d", len(x), len(y)))
	}
	return e.evaluate(x, y, false)
}

// AutoCorrelate returns k(x, x). The cross-power of x with itself is
// computed once and both energies share one reduction.
func (e *Evaluator) AutoCorrelate(x []*spectrum.Spectrum) *spectrum.Spectrum {
	return e.evaluate(x, x, true)
}

func (e *Evaluator) evaluate(x, y []*spectrum.Spectrum, auto bool) *spectrum.Spectrum {
	needEnergy := e.params.Law == Gaussian
	acc := e.reduce(x, y, auto, needEnergy)
	n := float64(e.grid.Len() * len(x))

	switch e.params.Law {
	case Linear:
		spectrum.ScaleInPlace(acc.cross, 1/n)
		return acc.cross
	case Polynomial:
		corr := e.fft.Inverse(acc.cross)
		for i, v := range corr.Data {
			corr.Data[i] = math.Pow(v/n+e.params.PolyA, e.params.PolyB)
		}
		return e.fft.Forward(corr)
	case Gaussian:
		corr := e.fft.Inverse(acc.cross)
		xx, yy := acc.xx, acc.yy
		if auto {
			yy = xx
		}
		s2 := e.params.Sigma * e.params.Sigma * n
		for i, v := range corr.Data {
			d := (xx + yy - 2*v) / s2
			if d < 0 {
				d = 0
			}
			corr.Data[i] = math.Exp(-d)
		}
		return e.fft.Forward(corr)
	}
	panic(fmt.Sprintf("kernel: unknown law %d", int(e.params.Law)))
}

// partial is one worker's share of the channel reduction.
type partial struct {
	cross  *spectrum.Spectrum
	xx, yy float64
}

func (p *partial) merge(q *partial) {
	spectrum.AddInPlace(p.cross, q.cross)
	p.xx += q.xx
	p.yy += q.yy
}

// reduce sums the per-channel cross-power spectra, and optionally the
// spatial energies (Parseval: spectral energy / plane size), across
// channels.
func (e *Evaluator) reduce(x, y []*spectrum.Spectrum, auto, energy bool) *partial {
	plane := float64(e.grid.Len())
	work := func(lo, hi int) *partial {
		p := &partial{cross: spectrum.NewSpectrum(e.grid, e.fft.Packing())}
		for c := lo; c < hi; c++ {
			spectrum.AddInPlace(p.cross, spectrum.MulConj(x[c], y[c]))
			if !energy {
				continue
			}
			p.xx += spectrum.Energy(x[c]) / plane
			if !auto {
				p.yy += spectrum.Energy(y[c]) / plane
			}
		}
		return p
	}

	workers := e.params.Workers
	if workers > len(x) {
		workers = len(x)
	}
	if workers <= 1 {
		return work(0, len(x))
	}

	total := &partial{cross: spectrum.NewSpectrum(e.grid, e.fft.Packing())}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	chunk := (len(x) + workers - 1) / workers
	for lo := 0; lo < len(x); lo += chunk {
		hi := lo + chunk
		if hi > len(x) {
			hi = len(x)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			p := work(lo, hi)
			mu.Lock()
			total.merge(p)
			mu.Unlock()
		}(lo, hi)
	}
	wg.Wait()
	return total
}
