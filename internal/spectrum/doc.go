// Package spectrum owns the spectral primitives of the correlation filters:
// the forward and inverse 2-D Fourier transform of a real plane and the
// element-wise operations on spectra (multiply, conjugate multiply,
// regularised divide, energy, blending). The regularised divide only
// accepts kernel auto-correlation spectra, whose real part is non-negative.
//
// Two packings are supported and must be used consistently by every
// consumer of a tracker instance:
//
//   - Packed: the Hermitian half-spectrum of a real plane, H rows of W/2+1
//     complex coefficients (row real FFT followed by column complex FFTs).
//   - Full: the complete H×W complex spectrum.
//
// Element-wise operations are identical for both packings; only the
// transforms and Energy need to know which half of the spectrum is implied.
//
// Transforms are unnormalised on the way in and scaled by 1/(W·H) on the
// way back, so Inverse(Forward(p)) == p.
package spectrum
