package geom

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectCorners(t *testing.T) {
	t.Parallel()

	r := RectFromImage(image.Rect(10, 20, 50, 40))
	assert.Equal(t, Point{30, 30}, r.Center)
	assert.Equal(t, Size{40, 20}, r.Size)
	assert.Equal(t, Point{10, 20}, r.TopLeft())

	c := r.Corners()
	assert.Equal(t, [4]Point{{10, 20}, {50, 20}, {50, 40}, {10, 40}}, c)
	assert.Equal(t, r.Center, Quad(c).Centroid())
}

func TestSizeClamp(t *testing.T) {
	t.Parallel()

	s := Size{W: 120, H: 30}.ClampTo(Dim{W: 100, H: 100})
	assert.Equal(t, Size{W: 100, H: 30}, s)
	assert.Equal(t, Dim{W: 1, H: 3}, Dim{W: 3, H: 13}.Div(4))
}

func TestClipConvex(t *testing.T) {
	t.Parallel()

	a := Polygon{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	b := Polygon{{5, 5}, {5, 15}, {15, 15}, {15, 5}} // opposite orientation

	inter := a.ClipConvex(b)
	assert.InDelta(t, 25, inter.Area(), 1e-9)
	c := inter.Centroid()
	assert.InDelta(t, 7.5, c.X, 1e-9)
	assert.InDelta(t, 7.5, c.Y, 1e-9)

	far := Polygon{{20, 20}, {30, 20}, {30, 30}, {20, 30}}
	assert.Zero(t, a.ClipConvex(far).Area())
	assert.Nil(t, a.ClipConvex(Polygon{{0, 0}, {1, 1}}))
}

func TestPolygonDegenerateCentroid(t *testing.T) {
	p := Polygon{{0, 0}, {2, 0}, {4, 0}}
	assert.Equal(t, Point{2, 0}, p.Centroid())
	assert.Zero(t, p.Area())
}

func TestPointOps(t *testing.T) {
	p := Pt(3, 4)
	assert.Equal(t, 5.0, p.Norm())
	assert.Equal(t, Pt(6, 8), p.Mul(2))
	assert.Equal(t, 5.0, p.Dist(Pt(0, 0)))
	assert.Equal(t, Pt(4, 5), p.Add(Pt(1, 1)))
}

func TestQuadBounds(t *testing.T) {
	t.Parallel()

	q := Quad(RectFromImage(image.Rect(10, 20, 50, 40)).Corners())
	assert.Equal(t, image.Rect(10, 20, 50, 40), q.Bounds())

	diamond := Quad{{X: 5, Y: 0.5}, {X: 9.2, Y: 4}, {X: 5, Y: 8}, {X: 0.7, Y: 4}}
	assert.Equal(t, image.Rect(0, 0, 10, 8), diamond.Bounds())
}
