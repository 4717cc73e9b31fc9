package features

import (
	"math"

	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/raster"
	"github.com/banshee-data/skcf/internal/spectrum"
)

const (
	// fhogClip bounds every normalised histogram value.
	fhogClip = 0.2
	// fhogTextureWeight scales the four texture channels (≈1/sqrt(18)).
	fhogTextureWeight = 0.2357
)

// FHOGChannels returns the channel count FHOG produces for the given
// number of orientations once the trailing zero channel is dropped:
// 2n contrast-sensitive, n contrast-insensitive and 4 texture channels.
func FHOGChannels(orientations int) int {
	return 3*orientations + 4
}

// gradients computes per-pixel gradient magnitude and full orientation in
// [0, 2π) of a single channel image using central differences (one-sided
// at the borders).
func gradients(img *raster.Image) (mag, ori []float64) {
	w, h := img.W, img.H
	mag = make([]float64, w*h)
	ori = make([]float64, w*h)
	gx := make([]float64, w)
	for y := 0; y < h; y++ {
		row := img.Pix[y*w : (y+1)*w]
		up, down, dy := y-1, y+1, 0.5
		switch {
		case h == 1:
			up, down, dy = y, y, 0
		case y == 0:
			up, dy = y, 1
		case y == h-1:
			down, dy = y, 1
		}
		rowUp := img.Pix[up*w : (up+1)*w]
		rowDown := img.Pix[down*w : (down+1)*w]
		rowGradX(row, gx)
		out := mag[y*w : (y+1)*w]
		outO := ori[y*w : (y+1)*w]
		for x := range out {
			gy := float64(rowDown[x]-rowUp[x]) * dy
			m := math.Hypot(gx[x], gy)
			out[x] = m
			o := math.Atan2(gy, gx[x])
			if o < 0 {
				o += 2 * math.Pi
			}
			outO[x] = o
		}
	}
	return mag, ori
}

// rowGradX writes the horizontal derivative of row into gx.
func rowGradX(row []float32, gx []float64) {
	n := len(row)
	if n == 1 {
		gx[0] = 0
		return
	}
	gx[0] = float64(row[1] - row[0])
	gx[n-1] = float64(row[n-1] - row[n-2])
	for x := 1; x < n-1; x++ {
		gx[x] = float64(row[x+1]-row[x-1]) * 0.5
	}
}

// gradientHistogram bins gradient magnitude into 2·orientations
// contrast-sensitive orientation bins per cell×cell block. Orientation is
// hard-assigned; every pixel is spread bilinearly over the four nearest
// cell centres. Only the cell-aligned region of the image contributes.
func gradientHistogram(mag, ori []float64, w, h, cell, orientations int) (hist [][]float64, grid geom.Dim) {
	hb, wb := h/cell, w/cell
	grid = geom.Dim{W: wb, H: hb}
	bins := 2 * orientations
	hist = make([][]float64, bins)
	for i := range hist {
		hist[i] = make([]float64, hb*wb)
	}
	if hb == 0 || wb == 0 {
		return hist, grid
	}
	inv := 1 / float64(cell)
	norm := inv * inv
	oMult := float64(bins) / (2 * math.Pi)

	for y := 0; y < hb*cell; y++ {
		yb := (float64(y)+0.5)*inv - 0.5
		yb0 := int(math.Floor(yb))
		yd := yb - float64(yb0)
		for x := 0; x < wb*cell; x++ {
			m := mag[y*w+x] * norm
			if m == 0 {
				continue
			}
			o := int(ori[y*w+x]*oMult + 0.5)
			if o >= bins {
				o = 0
			}
			xb := (float64(x)+0.5)*inv - 0.5
			xb0 := int(math.Floor(xb))
			xd := xb - float64(xb0)
			hc := hist[o]
			addCell(hc, wb, hb, xb0, yb0, (1-xd)*(1-yd)*m)
			addCell(hc, wb, hb, xb0, yb0+1, (1-xd)*yd*m)
			addCell(hc, wb, hb, xb0+1, yb0, xd*(1-yd)*m)
			addCell(hc, wb, hb, xb0+1, yb0+1, xd*yd*m)
		}
	}
	return hist, grid
}

func addCell(h []float64, wb, hb, x, y int, v float64) {
	if x < 0 || y < 0 || x >= wb || y >= hb {
		return
	}
	h[y*wb+x] += v
}

// blockNorms returns, on a (wb+1)×(hb+1) padded grid, the inverse L2 norm
// of every 2×2 block of cell energies. Entry (x+1, y+1) belongs to the
// block whose top-left cell is (x, y); the border entries replicate their
// inner neighbours.
func blockNorms(insensitive [][]float64, grid geom.Dim, cell int) (norms []float64, stride int) {
	wb, hb := grid.W, grid.H
	stride = wb + 1
	energy := make([]float64, wb*hb)
	for _, ch := range insensitive {
		for i, v := range ch {
			energy[i] += v * v
		}
	}
	c4 := float64(cell * cell * cell * cell)
	eps := 1e-4 / 4 / c4
	norms = make([]float64, (wb+1)*(hb+1))
	at := func(x, y int) *float64 { return &norms[y*stride+x] }
	for y := 0; y < hb-1; y++ {
		for x := 0; x < wb-1; x++ {
			s := energy[y*wb+x] + energy[y*wb+x+1] + energy[(y+1)*wb+x] + energy[(y+1)*wb+x+1]
			*at(x+1, y+1) = 1 / math.Sqrt(s+eps)
		}
	}
	// Replicate into the border ring, columns first then rows, so the
	// corners pick up their diagonal neighbours.
	for y := 1; y < hb; y++ {
		*at(0, y) = *at(1, y)
		*at(wb, y) = *at(wb-1, y)
	}
	for x := 0; x <= wb; x++ {
		*at(x, 0) = *at(x, 1)
		*at(x, hb) = *at(x, hb-1)
	}
	if wb == 1 || hb == 1 {
		// No complete block exists; fall back to the cell's own energy.
		for y := 0; y <= hb; y++ {
			for x := 0; x <= wb; x++ {
				cx, cy := minInt(x, wb-1), minInt(y, hb-1)
				*at(x, y) = 1 / math.Sqrt(energy[cy*wb+cx]+eps)
			}
		}
	}
	return norms, stride
}

// FHOGPlanes computes the Felzenszwalb variant of the histogram of oriented
// gradients on a gray image with samples in [0,1]. The result has
// 3·orientations+5 planes of size (h/cell)×(w/cell); the last plane is the
// all-zero channel kept for layout compatibility.
func FHOGPlanes(gray *raster.Image, cell, orientations int) []*spectrum.Plane {
	mag, ori := gradients(gray)
	sensitive, grid := gradientHistogram(mag, ori, gray.W, gray.H, cell, orientations)
	n := orientations
	nb := grid.Len()

	insensitive := make([][]float64, n)
	for o := 0; o < n; o++ {
		ch := make([]float64, nb)
		for i := range ch {
			ch[i] = sensitive[o][i] + sensitive[o+n][i]
		}
		insensitive[o] = ch
	}

	out := make([]*spectrum.Plane, 3*n+5)
	for i := range out {
		out[i] = spectrum.NewPlane(grid)
	}
	if nb == 0 {
		return out
	}
	norms, stride := blockNorms(insensitive, grid, cell)

	// The four blocks around cell (x, y) sit at padded offsets
	// (x+1,y+1), (x+1,y), (x,y+1) and (x,y).
	blocks := [4][2]int{{1, 1}, {1, 0}, {0, 1}, {0, 0}}
	clipped := func(v float64, x, y, b int) float64 {
		t := v * norms[(y+blocks[b][1])*stride+x+blocks[b][0]]
		return math.Min(t, fhogClip)
	}

	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			i := y*grid.W + x
			for o := 0; o < 2*n; o++ {
				v := sensitive[o][i]
				var sum float64
				for b := range blocks {
					t := clipped(v, x, y, b)
					sum += 0.5 * t
					out[3*n+b].Data[i] += fhogTextureWeight * t
				}
				out[o].Data[i] = sum
			}
			for o := 0; o < n; o++ {
				v := insensitive[o][i]
				var sum float64
				for b := range blocks {
					sum += 0.5 * clipped(v, x, y, b)
				}
				out[2*n+o].Data[i] = sum
			}
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
