package flow

import (
	"math"

	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/raster"
)

// ncc returns the normalised cross-correlation (not mean-centred) between
// the size×size windows of a and b centred on pa and pb, sampled
// bilinearly. Flat black windows score 0.
func ncc(a, b *raster.Image, pa, pb geom.Point, size int) float64 {
	off := float64(size-1) / 2
	var ab, aa, bb float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			va := a.Bilinear(pa.X-off+float64(x), pa.Y-off+float64(y))
			vb := b.Bilinear(pb.X-off+float64(x), pb.Y-off+float64(y))
			ab += va * vb
			aa += va * va
			bb += vb * vb
		}
	}
	den := math.Sqrt(aa * bb)
	if den == 0 {
		return 0
	}
	return ab / den
}
