package flow

import (
	"math"

	"github.com/banshee-data/skcf/internal/geom"
)

// lucasKanade tracks every point in from (coordinates in the base level of
// prev) into next. It returns the tracked positions and, per point, whether
// tracking succeeded.
//
// Algorithm (per point, coarse to fine):
//  1. Scale the point and the running estimate to the level.
//  2. Accumulate the structure tensor of prev over the window; give up on
//     the point when its smaller eigenvalue is below MinEigen.
//  3. Iterate Newton steps on the windowed intensity difference until the
//     step is shorter than Epsilon or the iteration cap is hit.
//  4. Propagate the estimate to the next finer level.
func lucasKanade(prev, next []level, from []geom.Point, p Params) ([]geom.Point, []bool) {
	to := make([]geom.Point, len(from))
	ok := make([]bool, len(from))
	top := len(prev) - 1
	if len(next)-1 < top {
		top = len(next) - 1
	}
	for i, pt := range from {
		ok[i] = true
		scale := math.Ldexp(1, -top)
		guess := pt.Mul(scale)
		for l := top; l >= 0; l-- {
			scale = math.Ldexp(1, -l)
			q, good := trackLevel(prev[l], next[l], pt.Mul(scale), guess, p)
			if !good {
				if l == 0 {
					ok[i] = false
				}
				// keep the propagated guess on coarse failures
				q = guess
			}
			if l > 0 {
				guess = q.Mul(2)
			} else {
				guess = q
			}
		}
		to[i] = guess
	}
	return to, ok
}

func trackLevel(prev, next level, pt, guess geom.Point, p Params) (geom.Point, bool) {
	half := float64(p.Window-1) / 2
	w, h := float64(prev.img.W), float64(prev.img.H)
	if pt.X < -half || pt.Y < -half || pt.X >= w+half || pt.Y >= h+half {
		return guess, false
	}

	n := p.Window * p.Window
	iv := make([]float64, n)
	gx := make([]float64, n)
	gy := make([]float64, n)
	var a11, a12, a22 float64
	k := 0
	for wy := 0; wy < p.Window; wy++ {
		for wx := 0; wx < p.Window; wx++ {
			x := pt.X - half + float64(wx)
			y := pt.Y - half + float64(wy)
			iv[k] = prev.img.Bilinear(x, y)
			gx[k] = prev.dx.Bilinear(x, y)
			gy[k] = prev.dy.Bilinear(x, y)
			a11 += gx[k] * gx[k]
			a12 += gx[k] * gy[k]
			a22 += gy[k] * gy[k]
			k++
		}
	}
	det := a11*a22 - a12*a12
	minEig := (a11 + a22 - math.Sqrt((a11-a22)*(a11-a22)+4*a12*a12)) / (2 * float64(n))
	if minEig < p.MinEigen || det < 1e-12 {
		return guess, false
	}

	q := guess
	eps2 := p.Epsilon * p.Epsilon
	nw, nh := float64(next.img.W), float64(next.img.H)
	var prevDelta geom.Point
	for it := 0; it < p.Iterations; it++ {
		if q.X < -half || q.Y < -half || q.X >= nw+half || q.Y >= nh+half {
			return q, false
		}
		var b1, b2 float64
		k = 0
		for wy := 0; wy < p.Window; wy++ {
			for wx := 0; wx < p.Window; wx++ {
				diff := next.img.Bilinear(q.X-half+float64(wx), q.Y-half+float64(wy)) - iv[k]
				b1 += diff * gx[k]
				b2 += diff * gy[k]
				k++
			}
		}
		delta := geom.Point{
			X: (a12*b2 - a22*b1) / det,
			Y: (a12*b1 - a11*b2) / det,
		}
		q = q.Add(delta)
		if delta.X*delta.X+delta.Y*delta.Y <= eps2 {
			break
		}
		// Damp a two-step oscillation.
		if it > 0 && math.Abs(delta.X+prevDelta.X) < 0.01 && math.Abs(delta.Y+prevDelta.Y) < 0.01 {
			q = q.Sub(delta.Mul(0.5))
			break
		}
		prevDelta = delta
	}
	return q, true
}
