// Package geom holds the small geometric value types shared by the tracker
// packages: floating point points and sizes, integer window sizes and the
// (unrotated) target rectangle described by a centre and a size.
package geom

import (
	"image"
	"math"
)

// Point is a 2-D position in image coordinates (x right, y down).
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Mul returns p scaled by k.
func (p Point) Mul(k float64) Point { return Point{p.X * k, p.Y * k} }

// Norm returns the Euclidean length of p.
func (p Point) Norm() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return p.Sub(q).Norm() }

// Size is a floating point extent.
type Size struct {
	W float64
	H float64
}

// Area returns W*H.
func (s Size) Area() float64 { return s.W * s.H }

// Scale returns s with both dimensions multiplied by k.
func (s Size) Scale(k float64) Size { return Size{s.W * k, s.H * k} }

// ClampTo returns s with each dimension limited to the matching dimension of max.
func (s Size) ClampTo(max Dim) Size {
	return Size{math.Min(s.W, float64(max.W)), math.Min(s.H, float64(max.H))}
}

// Dim is an integer extent, used for windows and planes.
type Dim struct {
	W int
	H int
}

// Len returns the element count W*H.
func (d Dim) Len() int { return d.W * d.H }

// Div returns d divided by k on both axes, never less than one.
func (d Dim) Div(k int) Dim {
	if k < 1 {
		k = 1
	}
	return Dim{maxInt(d.W/k, 1), maxInt(d.H/k, 1)}
}

// Rect is an axis-aligned target region given by its centre and size.
// Angle is kept at zero by the correlation filters; the field exists so a
// rotated region can be passed through the tracker contract unchanged.
type Rect struct {
	Center Point
	Size   Size
	Angle  float64 // degrees, unused by the axis-aligned trackers
}

// RectFromImage converts an integer top-left/size rectangle into a Rect
// centred on the rectangle.
func RectFromImage(r image.Rectangle) Rect {
	w := float64(r.Dx())
	h := float64(r.Dy())
	return Rect{
		Center: Point{float64(r.Min.X) + w/2, float64(r.Min.Y) + h/2},
		Size:   Size{w, h},
	}
}

// TopLeft returns the top-left corner of the rectangle.
func (r Rect) TopLeft() Point {
	return Point{r.Center.X - r.Size.W/2, r.Center.Y - r.Size.H/2}
}

// Corners returns the four corners in clockwise order starting at the
// top-left: top-left, top-right, bottom-right, bottom-left.
func (r Rect) Corners() [4]Point {
	hw, hh := r.Size.W/2, r.Size.H/2
	cx, cy := r.Center.X, r.Center.Y
	return [4]Point{
		{cx - hw, cy - hh},
		{cx + hw, cy - hh},
		{cx + hw, cy + hh},
		{cx - hw, cy + hh},
	}
}

// Quad is a quadrilateral in clockwise order, top-left first.
type Quad [4]Point

// Centroid returns the area centroid of the quadrilateral. Degenerate
// (zero area) quads fall back to the vertex mean.
func (q Quad) Centroid() Point {
	return Polygon(q[:]).Centroid()
}

// Bounds returns the smallest integer rectangle containing q.
func (q Quad) Bounds() image.Rectangle {
	minX, minY := q[0].X, q[0].Y
	maxX, maxY := minX, minY
	for _, p := range q[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// Polygon is a simple polygon given by its vertices in order.
type Polygon []Point

// Area returns the unsigned area using the shoelace formula.
func (p Polygon) Area() float64 {
	return math.Abs(p.signedArea())
}

func (p Polygon) signedArea() float64 {
	n := len(p)
	if n < 3 {
		return 0
	}
	var s float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		s += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return s / 2
}

// Centroid returns the area centroid, or the vertex mean for degenerate polygons.
func (p Polygon) Centroid() Point {
	n := len(p)
	if n == 0 {
		return Point{}
	}
	a := p.signedArea()
	if math.Abs(a) < 1e-12 {
		var c Point
		for _, v := range p {
			c = c.Add(v)
		}
		return c.Mul(1 / float64(n))
	}
	var cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := p[i].X*p[j].Y - p[j].X*p[i].Y
		cx += (p[i].X + p[j].X) * cross
		cy += (p[i].Y + p[j].Y) * cross
	}
	return Point{cx / (6 * a), cy / (6 * a)}
}

// ClipConvex returns the intersection of p with the convex polygon clip
// (Sutherland–Hodgman). Both polygons may be in either orientation.
func (p Polygon) ClipConvex(clip Polygon) Polygon {
	if len(p) < 3 || len(clip) < 3 {
		return nil
	}
	// Normalise the clip polygon to counter-clockwise in the maths sense
	// (positive signed area) so "inside" is always to the left of an edge.
	c := clip
	if c.signedArea() < 0 {
		c = make(Polygon, len(clip))
		for i := range clip {
			c[i] = clip[len(clip)-1-i]
		}
	}
	out := append(Polygon(nil), p...)
	for i := range c {
		a, b := c[i], c[(i+1)%len(c)]
		in := out
		out = nil
		if len(in) == 0 {
			break
		}
		prev := in[len(in)-1]
		for _, cur := range in {
			curIn := side(a, b, cur) >= 0
			prevIn := side(a, b, prev) >= 0
			switch {
			case curIn && prevIn:
				out = append(out, cur)
			case curIn && !prevIn:
				out = append(out, intersect(prev, cur, a, b), cur)
			case !curIn && prevIn:
				out = append(out, intersect(prev, cur, a, b))
			}
			prev = cur
		}
	}
	return out
}

func side(a, b, p Point) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

func intersect(p, q, a, b Point) Point {
	d1 := side(a, b, p)
	d2 := side(a, b, q)
	t := d1 / (d1 - d2)
	return Point{p.X + t*(q.X-p.X), p.Y + t*(q.Y-p.Y)}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
