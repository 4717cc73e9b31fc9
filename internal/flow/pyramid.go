package flow

import (
	"github.com/banshee-data/skcf/internal/raster"
)

// level is one pyramid level: the image and its Scharr derivatives.
type level struct {
	img, dx, dy *raster.Image
}

// pyramid builds levels+1 images, each half the size of the one below.
// Building stops early once a level would be smaller than the LK window.
func pyramid(img *raster.Image, levels, window int) []level {
	out := []level{newLevel(img)}
	cur := img
	for l := 0; l < levels; l++ {
		if cur.W/2 < window || cur.H/2 < window {
			break
		}
		cur = pyrDown(cur)
		out = append(out, newLevel(cur))
	}
	return out
}

func newLevel(img *raster.Image) level {
	dx, dy := scharr(img)
	return level{img: img, dx: dx, dy: dy}
}

// scharr returns the horizontal and vertical derivatives of a single
// channel image using the 3×3 Scharr operator normalised to intensity per
// pixel, with replicated borders.
func scharr(img *raster.Image) (dx, dy *raster.Image) {
	w, h := img.W, img.H
	dx = raster.New(w, h, 1)
	dy = raster.New(w, h, 1)
	at := func(x, y int) float32 {
		return img.Pix[clampInt(y, 0, h-1)*w+clampInt(x, 0, w-1)]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := 3*(at(x+1, y-1)-at(x-1, y-1)) + 10*(at(x+1, y)-at(x-1, y)) + 3*(at(x+1, y+1)-at(x-1, y+1))
			gy := 3*(at(x-1, y+1)-at(x-1, y-1)) + 10*(at(x, y+1)-at(x, y-1)) + 3*(at(x+1, y+1)-at(x+1, y-1))
			dx.Pix[y*w+x] = gx / 32
			dy.Pix[y*w+x] = gy / 32
		}
	}
	return dx, dy
}

// pyrDown blurs with the 5-tap binomial kernel and drops every other row
// and column.
func pyrDown(img *raster.Image) *raster.Image {
	w, h := img.W, img.H
	k := [5]float32{1, 4, 6, 4, 1}
	tmp := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var s float32
			for i, kv := range k {
				s += kv * img.Pix[y*w+clampInt(x+i-2, 0, w-1)]
			}
			tmp[y*w+x] = s / 16
		}
	}
	ow, oh := (w+1)/2, (h+1)/2
	out := raster.New(ow, oh, 1)
	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			var s float32
			for i, kv := range k {
				s += kv * tmp[clampInt(2*y+i-2, 0, h-1)*w+2*x]
			}
			out.Pix[y*ow+x] = s / 16
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
