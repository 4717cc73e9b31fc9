// Package synth renders deterministic synthetic sequences with known
// ground truth: a single object moving and scaling over a plain or noisy
// background. Tests and the benchmark use them in place of real video.
package synth

import (
	"image"
	"math"
	"math/rand"

	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/raster"
)

// Config describes one sequence.
type Config struct {
	Name          string
	Width, Height int
	Frames        int
	Start         image.Rectangle // object in frame 0
	Velocity      geom.Point      // pixels per frame
	Growth        float64         // size factor per frame; 0 or 1 keeps the size
	Textured      bool            // patterned object instead of a flat bright one
	Noise         float64         // per-pixel Gaussian noise sigma
	Seed          int64
}

// Sequence is a rendered Config: one frame and one ground-truth rectangle
// per index.
type Sequence struct {
	Name   string
	Frames []*raster.Image
	Truth  []geom.Rect
}

// Generate renders c.
func Generate(c Config) Sequence {
	growth := c.Growth
	if growth == 0 {
		growth = 1
	}
	rng := rand.New(rand.NewSource(c.Seed))
	start := geom.RectFromImage(c.Start)
	seq := Sequence{Name: c.Name}
	for i := 0; i < c.Frames; i++ {
		k := math.Pow(growth, float64(i))
		r := geom.Rect{
			Center: start.Center.Add(c.Velocity.Mul(float64(i))),
			Size:   start.Size.Scale(k),
		}
		img := raster.New(c.Width, c.Height, 3)
		draw(img, r, start.Size, c.Textured)
		if c.Noise > 0 {
			addNoise(img, rng, c.Noise)
		}
		seq.Frames = append(seq.Frames, img)
		seq.Truth = append(seq.Truth, r)
	}
	return seq
}

// Square returns a w×h black RGB frame with a white square covering r,
// the classic correlation-filter smoke test.
func Square(w, h int, r image.Rectangle) *raster.Image {
	img := raster.New(w, h, 3)
	img.FillRect(r, 255)
	return img
}

const background = 30

// draw paints the object r into img. base is the frame-0 size; texture
// coordinates are normalised to it so the pattern scales with the object.
func draw(img *raster.Image, r geom.Rect, base geom.Size, textured bool) {
	for i := range img.Pix {
		img.Pix[i] = background
	}
	tl := r.TopLeft()
	x0 := int(math.Max(0, math.Floor(tl.X)))
	y0 := int(math.Max(0, math.Floor(tl.Y)))
	x1 := int(math.Min(float64(img.W), math.Ceil(tl.X+r.Size.W)))
	y1 := int(math.Min(float64(img.H), math.Ceil(tl.Y+r.Size.H)))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			if px < tl.X || py < tl.Y || px >= tl.X+r.Size.W || py >= tl.Y+r.Size.H {
				continue
			}
			if !textured {
				for c := 0; c < img.C; c++ {
					img.Set(x, y, c, 255)
				}
				continue
			}
			// Object coordinates in frame-0 pixels.
			u := (px - r.Center.X) * base.W / r.Size.W
			v := (py - r.Center.Y) * base.H / r.Size.H
			img.Set(x, y, 0, pattern(u, v, 0))
			img.Set(x, y, 1, pattern(u, v, 1))
			img.Set(x, y, 2, pattern(u, v, 2))
		}
	}
}

// pattern is a smooth blob lattice with a per-channel phase, giving both
// corners for the point detector and colour contrast for colour features.
func pattern(u, v float64, channel int) float32 {
	const period = 12.0
	phase := float64(channel) * period / 3
	su := math.Sin(2 * math.Pi * (u + phase) / period)
	sv := math.Sin(2 * math.Pi * v / period)
	checker := 0.5 + 0.5*su*sv
	ring := 0.5 + 0.5*math.Cos(math.Hypot(u, v)*2*math.Pi/(2*period))
	return float32(70 + 120*checker + 60*ring)
}

func addNoise(img *raster.Image, rng *rand.Rand, sigma float64) {
	for i, v := range img.Pix {
		n := float64(v) + rng.NormFloat64()*sigma
		img.Pix[i] = float32(math.Max(0, math.Min(255, n)))
	}
}

// Standard returns the benchmark sequences: static, translating, growing,
// shrinking and noisy variants on a 320×240 frame.
func Standard() []Config {
	start := image.Rect(130, 90, 180, 140)
	return []Config{
		{Name: "static", Width: 320, Height: 240, Frames: 30, Start: start, Textured: true, Seed: 1},
		{Name: "translate", Width: 320, Height: 240, Frames: 40, Start: start, Velocity: geom.Pt(2, 1), Textured: true, Seed: 2},
		{Name: "grow", Width: 320, Height: 240, Frames: 40, Start: start, Growth: 1.01, Textured: true, Seed: 3},
		{Name: "shrink", Width: 320, Height: 240, Frames: 40, Start: start, Growth: 0.99, Velocity: geom.Pt(-1, 0), Textured: true, Seed: 4},
		{Name: "noisy", Width: 320, Height: 240, Frames: 40, Start: start, Velocity: geom.Pt(1, 1), Textured: true, Noise: 8, Seed: 5},
		{Name: "square", Width: 200, Height: 200, Frames: 20, Start: image.Rect(80, 80, 120, 120), Velocity: geom.Pt(1, 0), Seed: 6},
	}
}
