package synth

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/skcf/internal/geom"
)

func TestGenerateTruthFollowsMotion(t *testing.T) {
	t.Parallel()

	seq := Generate(Config{
		Name: "t", Width: 100, Height: 80, Frames: 5,
		Start: image.Rect(20, 20, 40, 30), Velocity: geom.Pt(2, -1), Growth: 1.1,
	})
	require.Len(t, seq.Frames, 5)
	require.Len(t, seq.Truth, 5)

	assert.Equal(t, geom.Pt(30, 25), seq.Truth[0].Center)
	assert.Equal(t, geom.Pt(38, 21), seq.Truth[4].Center)
	assert.InDelta(t, 20*1.1*1.1, seq.Truth[2].Size.W, 1e-9)

	f := seq.Frames[0]
	assert.Equal(t, float32(255), f.At(30, 25, 0), "object")
	assert.Equal(t, float32(background), f.At(5, 5, 0), "background")
}

func TestGenerateIsDeterministic(t *testing.T) {
	c := Standard()[4]
	c.Frames = 2
	a, b := Generate(c), Generate(c)
	assert.Equal(t, a.Frames[1].Pix, b.Frames[1].Pix)
}

func TestTexturedObjectHasContrast(t *testing.T) {
	seq := Generate(Config{Width: 60, Height: 60, Frames: 1, Start: image.Rect(10, 10, 50, 50), Textured: true})
	f := seq.Frames[0]
	lo, hi := float32(255), float32(0)
	for y := 10; y < 50; y++ {
		for x := 10; x < 50; x++ {
			v := f.At(x, y, 1)
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	assert.Greater(t, hi-lo, float32(100))
}

func TestSquare(t *testing.T) {
	img := Square(200, 200, image.Rect(80, 80, 120, 120))
	assert.Equal(t, float32(255), img.At(80, 80, 2))
	assert.Equal(t, float32(0), img.At(79, 80, 2))
	assert.Equal(t, float32(0), img.At(120, 119, 0))
}
