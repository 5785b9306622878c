// Package geometry provides the rigid-motion and polygon primitives the
// nesting engine is built on: points, simple polygons (exterior ring
// only), and 3x3 affine transforms composed as rotation about a
// polygon's centroid, then translation, left-multiplied into a
// running matrix.
package geometry

import "math"

// TOL is the tolerance used throughout the engine for near-equality
// comparisons of floating point coordinates and areas.
const TOL = 1e-9

// Point is a 2-D coordinate.
type Point struct {
	X, Y float64
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// AlmostEqual reports whether a and b differ by less than tolerance.
func AlmostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

// Polygon is a simple polygon described by its exterior ring only, open
// (the first vertex is not repeated at the end). Vertex 0 is the
// reference point used by NFP/IFP calculations.
type Polygon struct {
	Exterior []Point
}

// NewPolygon builds a Polygon from a slice of vertices, copying the slice
// so the caller's backing array can't alias engine-owned state.
func NewPolygon(pts []Point) Polygon {
	cp := make([]Point, len(pts))
	copy(cp, pts)
	return Polygon{Exterior: cp}
}

// Ref returns the polygon's reference vertex (its first exterior point).
func (p Polygon) Ref() Point {
	if len(p.Exterior) == 0 {
		return Point{}
	}
	return p.Exterior[0]
}

// Empty reports whether the polygon has no vertices.
func (p Polygon) Empty() bool { return len(p.Exterior) == 0 }

// Bounds returns the axis-aligned bounding box (minX, minY, maxX, maxY).
func (p Polygon) Bounds() (minX, minY, maxX, maxY float64) {
	if len(p.Exterior) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = p.Exterior[0].X, p.Exterior[0].Y
	maxX, maxY = minX, minY
	for _, v := range p.Exterior[1:] {
		minX = math.Min(minX, v.X)
		minY = math.Min(minY, v.Y)
		maxX = math.Max(maxX, v.X)
		maxY = math.Max(maxY, v.Y)
	}
	return
}

// Width returns the bounding box width.
func (p Polygon) Width() float64 {
	minX, _, maxX, _ := p.Bounds()
	return maxX - minX
}

// Height returns the bounding box height.
func (p Polygon) Height() float64 {
	_, minY, _, maxY := p.Bounds()
	return maxY - minY
}

// Area returns the polygon's unsigned area via the shoelace formula.
func (p Polygon) Area() float64 {
	n := len(p.Exterior)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p.Exterior[i].X*p.Exterior[j].Y - p.Exterior[j].X*p.Exterior[i].Y
	}
	return math.Abs(sum) / 2
}

// Centroid returns the polygon's area centroid. Falls back to the
// vertex average for degenerate (near-zero-area) polygons.
func (p Polygon) Centroid() Point {
	n := len(p.Exterior)
	if n == 0 {
		return Point{}
	}
	var cx, cy, area float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := p.Exterior[i].X*p.Exterior[j].Y - p.Exterior[j].X*p.Exterior[i].Y
		cx += (p.Exterior[i].X + p.Exterior[j].X) * cross
		cy += (p.Exterior[i].Y + p.Exterior[j].Y) * cross
		area += cross
	}
	area /= 2
	if math.Abs(area) < TOL {
		var sx, sy float64
		for _, v := range p.Exterior {
			sx += v.X
			sy += v.Y
		}
		return Point{sx / float64(n), sy / float64(n)}
	}
	return Point{cx / (6 * area), cy / (6 * area)}
}

// Clone returns a deep copy of the polygon.
func (p Polygon) Clone() Polygon {
	return NewPolygon(p.Exterior)
}

// Matrix is a row-major 3x3 affine transform:
//
//	[a b c]   [x]
//	[d e f] * [y]
//	[0 0 1]   [1]
type Matrix [3][3]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Mul returns m * other (m applied after other, i.e. left-multiply).
func (m Matrix) Mul(other Matrix) Matrix {
	var r Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += m[i][k] * other[k][j]
			}
			r[i][j] = s
		}
	}
	return r
}

// Apply transforms a point by the matrix.
func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2],
	}
}

// ApplyPolygon returns a new polygon with every vertex transformed by m.
func (m Matrix) ApplyPolygon(p Polygon) Polygon {
	out := make([]Point, len(p.Exterior))
	for i, v := range p.Exterior {
		out[i] = m.Apply(v)
	}
	return Polygon{Exterior: out}
}

// RotationMatrix returns the affine transform that rotates by degDeg
// degrees counter-clockwise about center.
func RotationMatrix(degDeg float64, center Point) Matrix {
	if degDeg == 0 {
		return Identity()
	}
	rad := degDeg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	xOff := center.X - center.X*cos + center.Y*sin
	yOff := center.Y - center.X*sin - center.Y*cos
	return Matrix{
		{cos, -sin, xOff},
		{sin, cos, yOff},
		{0, 0, 1},
	}
}

// TranslationMatrix returns the affine transform that translates by (dx, dy).
func TranslationMatrix(dx, dy float64) Matrix {
	return Matrix{
		{1, 0, dx},
		{0, 1, dy},
		{0, 0, 1},
	}
}

// NormalizeDegrees canonicalizes an angle to [0, 360).
func NormalizeDegrees(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}
