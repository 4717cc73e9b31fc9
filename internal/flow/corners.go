package flow

import (
	"image"
	"math"
	"sort"

	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/raster"
)

type corner struct {
	x, y int
	eig  float64
}

// goodFeatures finds Shi-Tomasi corners of img inside roi (inclusive of its
// Max edge, clipped to the image), strongest first.
//
// Algorithm:
//  1. Sobel derivatives, structure tensor summed over a block×block
//     neighbourhood, smaller eigenvalue per pixel.
//  2. Keep 3×3 local maxima at or above quality × the strongest response.
//  3. Accept greedily by strength, skipping candidates closer than
//     minDistance to an accepted corner, until maxCorners are taken.
func goodFeatures(img *raster.Image, roi image.Rectangle, p Params) []geom.Point {
	w, h := img.W, img.H
	roi = image.Rect(roi.Min.X, roi.Min.Y, roi.Max.X+1, roi.Max.Y+1).Intersect(image.Rect(0, 0, w, h))
	if roi.Empty() || p.MaxCorners <= 0 {
		return nil
	}
	eig := minEigenImage(img, p.CornerBlock)

	var maxEig float64
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			maxEig = math.Max(maxEig, eig[y*w+x])
		}
	}
	if maxEig <= 0 {
		return nil
	}
	thresh := p.CornerQuality * maxEig

	var cands []corner
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			v := eig[y*w+x]
			if v < thresh || !localMax(eig, w, h, x, y) {
				continue
			}
			cands = append(cands, corner{x: x, y: y, eig: v})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].eig > cands[j].eig })

	minD2 := p.CornerMinDistance * p.CornerMinDistance
	var out []geom.Point
	for _, c := range cands {
		pt := geom.Pt(float64(c.x), float64(c.y))
		near := false
		for _, q := range out {
			d := pt.Sub(q)
			if d.X*d.X+d.Y*d.Y < minD2 {
				near = true
				break
			}
		}
		if near {
			continue
		}
		out = append(out, pt)
		if len(out) == p.MaxCorners {
			break
		}
	}
	return out
}

func localMax(eig []float64, w, h, x, y int) bool {
	v := eig[y*w+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			if eig[ny*w+nx] > v {
				return false
			}
		}
	}
	return true
}

// minEigenImage returns, per pixel, the smaller eigenvalue of the gradient
// structure tensor summed over a block×block box.
func minEigenImage(img *raster.Image, block int) []float64 {
	w, h := img.W, img.H
	at := func(x, y int) float64 {
		return float64(img.Pix[clampInt(y, 0, h-1)*w+clampInt(x, 0, w-1)])
	}
	xx := make([]float64, w*h)
	xy := make([]float64, w*h)
	yy := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := (at(x+1, y-1) - at(x-1, y-1)) + 2*(at(x+1, y)-at(x-1, y)) + (at(x+1, y+1) - at(x-1, y+1))
			gy := (at(x-1, y+1) - at(x-1, y-1)) + 2*(at(x, y+1)-at(x, y-1)) + (at(x+1, y+1) - at(x+1, y-1))
			i := y*w + x
			xx[i], xy[i], yy[i] = gx*gx, gx*gy, gy*gy
		}
	}
	if block < 1 {
		block = 1
	}
	r := block / 2
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var a, b, c float64
			for by := y - r; by < y-r+block; by++ {
				for bx := x - r; bx < x-r+block; bx++ {
					j := clampInt(by, 0, h-1)*w + clampInt(bx, 0, w-1)
					a += xx[j]
					b += xy[j]
					c += yy[j]
				}
			}
			out[y*w+x] = (a+c)/2 - math.Sqrt((a-c)*(a-c)/4+b*b)
		}
	}
	return out
}
