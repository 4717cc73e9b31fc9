package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/skcf/internal/geom"
)

// Packing selects the storage layout of a Spectrum.
type Packing int

const (
	// Packed stores the W/2+1 non-redundant columns of a real plane's spectrum.
	Packed Packing = iota
	// Full stores every W columns.
	Full
)

func (p Packing) String() string {
	switch p {
	case Packed:
		return "packed"
	case Full:
		return "full"
	}
	return fmt.Sprintf("Packing(%d)", int(p))
}

// ParsePacking maps "packed" and "full" onto a Packing.
func ParsePacking(s string) (Packing, error) {
	switch s {
	case "", "packed":
		return Packed, nil
	case "full":
		return Full, nil
	}
	return Packed, fmt.Errorf("unknown spectrum packing %q", s)
}

// Cols returns the number of stored columns for a plane of width w.
func (p Packing) Cols(w int) int {
	if p == Packed {
		return w/2 + 1
	}
	return w
}

// Plane is a real-valued row-major 2-D array.
type Plane struct {
	W, H int
	Data []float64
}

// NewPlane allocates a zeroed plane.
func NewPlane(d geom.Dim) *Plane {
	return &Plane{W: d.W, H: d.H, Data: make([]float64, d.Len())}
}

// Dim returns the plane extent.
func (p *Plane) Dim() geom.Dim { return geom.Dim{W: p.W, H: p.H} }

// At returns the value at column x, row y.
func (p *Plane) At(x, y int) float64 { return p.Data[y*p.W+x] }

// Set stores v at column x, row y.
func (p *Plane) Set(x, y int, v float64) { p.Data[y*p.W+x] = v }

// Clone returns a deep copy.
func (p *Plane) Clone() *Plane {
	return &Plane{W: p.W, H: p.H, Data: append([]float64(nil), p.Data...)}
}

// MulInPlace multiplies p element-wise by q. The planes must share a size.
func (p *Plane) MulInPlace(q *Plane) {
	floats.Mul(p.Data, q.Data)
}

// AddInPlace adds q element-wise into p.
func (p *Plane) AddInPlace(q *Plane) {
	floats.Add(p.Data, q.Data)
}

// ArgMax returns the column and row of the largest value (first on ties)
// and the value itself.
func (p *Plane) ArgMax() (x, y int, v float64) {
	i := floats.MaxIdx(p.Data)
	return i % p.W, i / p.W, p.Data[i]
}

// Spectrum is the frequency-domain representation of a Plane.
type Spectrum struct {
	W, H    int // size of the spatial plane
	Cols    int // stored columns per row
	Packing Packing
	Data    []complex128 // H rows of Cols coefficients
}

// NewSpectrum allocates a zeroed spectrum for planes of size d.
func NewSpectrum(d geom.Dim, p Packing) *Spectrum {
	cols := p.Cols(d.W)
	return &Spectrum{W: d.W, H: d.H, Cols: cols, Packing: p, Data: make([]complex128, d.H*cols)}
}

// Dim returns the extent of the spatial plane the spectrum describes.
func (s *Spectrum) Dim() geom.Dim { return geom.Dim{W: s.W, H: s.H} }

// Clone returns a deep copy.
func (s *Spectrum) Clone() *Spectrum {
	out := *s
	out.Data = append([]complex128(nil), s.Data...)
	return &out
}

// FFT2 performs 2-D transforms for one plane size and packing. It holds
// per-size work buffers and is not safe for concurrent use; give each
// goroutine its own.
type FFT2 struct {
	w, h    int
	packing Packing

	row  *fourier.FFT     // real row transform (Packed)
	rowC *fourier.CmplxFFT // complex row transform (Full)
	col  *fourier.CmplxFFT

	rowBuf  []complex128
	colBuf  []complex128
	realBuf []float64
}

// NewFFT2 prepares transforms for planes of size d.
func NewFFT2(d geom.Dim, p Packing) *FFT2 {
	f := &FFT2{
		w:       d.W,
		h:       d.H,
		packing: p,
		col:     fourier.NewCmplxFFT(d.H),
		rowBuf:  make([]complex128, d.W),
		colBuf:  make([]complex128, d.H),
		realBuf: make([]float64, d.W),
	}
	if p == Packed {
		f.row = fourier.NewFFT(d.W)
	} else {
		f.rowC = fourier.NewCmplxFFT(d.W)
	}
	return f
}

// Packing returns the layout produced by Forward.
func (f *FFT2) Packing() Packing { return f.packing }

// Forward transforms p into the frequency domain.
func (f *FFT2) Forward(p *Plane) *Spectrum {
	s := NewSpectrum(p.Dim(), f.packing)
	cols := s.Cols
	for y := 0; y < f.h; y++ {
		src := p.Data[y*f.w : (y+1)*f.w]
		dst := s.Data[y*cols : (y+1)*cols]
		if f.packing == Packed {
			f.row.Coefficients(dst, src)
			continue
		}
		for x, v := range src {
			f.rowBuf[x] = complex(v, 0)
		}
		f.rowC.Coefficients(dst, f.rowBuf)
	}
	f.columns(s, true)
	return s
}

// Inverse transforms s back into a real plane, scaled by 1/(W·H). For Full
// spectra the imaginary part of the result is discarded.
func (f *FFT2) Inverse(s *Spectrum) *Plane {
	work := s.Clone()
	f.columns(work, false)
	out := NewPlane(s.Dim())
	scale := 1 / float64(f.w*f.h)
	cols := work.Cols
	for y := 0; y < f.h; y++ {
		coeff := work.Data[y*cols : (y+1)*cols]
		dst := out.Data[y*f.w : (y+1)*f.w]
		if f.packing == Packed {
			f.row.Sequence(dst, coeff)
		} else {
			f.rowC.Sequence(f.rowBuf, coeff)
			for x, v := range f.rowBuf {
				dst[x] = real(v)
			}
		}
		floats.Scale(scale, dst)
	}
	return out
}

func (f *FFT2) columns(s *Spectrum, forward bool) {
	cols := s.Cols
	for x := 0; x < cols; x++ {
		for y := 0; y < f.h; y++ {
			f.colBuf[y] = s.Data[y*cols+x]
		}
		if forward {
			f.col.Coefficients(f.colBuf, f.colBuf)
		} else {
			f.col.Sequence(f.colBuf, f.colBuf)
		}
		for y := 0; y < f.h; y++ {
			s.Data[y*cols+x] = f.colBuf[y]
		}
	}
}

// ForwardAll transforms every plane.
func (f *FFT2) ForwardAll(planes []*Plane) []*Spectrum {
	out := make([]*Spectrum, len(planes))
	for i, p := range planes {
		out[i] = f.Forward(p)
	}
	return out
}

// Mul returns a·b element-wise.
func Mul(a, b *Spectrum) *Spectrum {
	out := NewSpectrum(a.Dim(), a.Packing)
	for i := range out.Data {
		out.Data[i] = a.Data[i] * b.Data[i]
	}
	return out
}

// MulConj returns a·conj(b) element-wise, the cross-power spectrum whose
// inverse is the cyclic cross-correlation of the two planes.
func MulConj(a, b *Spectrum) *Spectrum {
	out := NewSpectrum(a.Dim(), a.Packing)
	for i := range out.Data {
		out.Data[i] = a.Data[i] * cmplx.Conj(b.Data[i])
	}
	return out
}

// AddInPlace accumulates b into a.
func AddInPlace(a, b *Spectrum) {
	for i := range a.Data {
		a.Data[i] += b.Data[i]
	}
}

// ScaleInPlace multiplies every coefficient by k.
func ScaleInPlace(a *Spectrum, k float64) {
	c := complex(k, 0)
	for i := range a.Data {
		a.Data[i] *= c
	}
}

// Blend sets model = (1-rate)·model + rate·next in place.
func Blend(model, next *Spectrum, rate float64) {
	keep := complex(1-rate, 0)
	take := complex(rate, 0)
	for i := range model.Data {
		model.Data[i] = keep*model.Data[i] + take*next.Data[i]
	}
}

// DivideKernel returns a/(b+lambda) element-wise, the closed-form ridge
// regression solution. b must be a kernel auto-correlation spectrum; it is
// not a general complex division.
//
// Kernel spectra are real and non-negative in exact arithmetic, so the real
// part of b is floored at zero before lambda is added. The denominator is
// therefore at least lambda² and the result is finite for finite inputs and
// lambda > 0.
func DivideKernel(a, b *Spectrum, lambda float64) *Spectrum {
	out := NewSpectrum(a.Dim(), a.Packing)
	for i := range out.Data {
		c := math.Max(real(b.Data[i]), 0) + lambda
		d := imag(b.Data[i])
		den := c*c + d*d
		ar, ai := real(a.Data[i]), imag(a.Data[i])
		out.Data[i] = complex((ar*c+ai*d)/den, (ai*c-ar*d)/den)
	}
	return out
}

// Energy returns the sum of |s|² over the whole (implied) spectrum. For a
// spectrum of a real plane x this equals W·H·Σx² (Parseval).
func Energy(s *Spectrum) float64 {
	var total float64
	for y := 0; y < s.H; y++ {
		row := s.Data[y*s.Cols : (y+1)*s.Cols]
		for x, v := range row {
			e := real(v)*real(v) + imag(v)*imag(v)
			total += e * float64(multiplicity(s, x))
		}
	}
	return total
}

// multiplicity is how many columns of the full spectrum a stored column
// stands for.
func multiplicity(s *Spectrum, x int) int {
	if s.Packing == Full {
		return 1
	}
	if x == 0 || (s.W%2 == 0 && x == s.W/2) {
		return 1
	}
	return 2
}
