package geometry

import (
	polyclip "github.com/akavel/polyclip-go"
)

// Kind tags the shape of a boolean-operation result: a single polygon,
// a set of disjoint polygons, or nothing. Every consumer switches on
// Kind explicitly rather than relying on a runtime type hierarchy.
type Kind int

const (
	KindEmpty Kind = iota
	KindPolygon
	KindMultiPolygon
)

// Geom is a tagged-union boolean-operation result: zero or more
// disjoint polygon rings (holes are not modeled — the engine never
// produces or consumes them).
type Geom struct {
	Kind     Kind
	Polygons []Polygon
}

func toPolyclip(p Polygon) polyclip.Polygon {
	c := make(polyclip.Contour, len(p.Exterior))
	for i, v := range p.Exterior {
		c[i] = polyclip.Point{X: v.X, Y: v.Y}
	}
	return polyclip.Polygon{c}
}

func fromPolyclip(pc polyclip.Polygon) Geom {
	if len(pc) == 0 {
		return Geom{Kind: KindEmpty}
	}
	polys := make([]Polygon, 0, len(pc))
	for _, contour := range pc {
		if len(contour) < 3 {
			continue
		}
		pts := make([]Point, len(contour))
		for i, v := range contour {
			pts[i] = Point{X: v.X, Y: v.Y}
		}
		polys = append(polys, Polygon{Exterior: pts})
	}
	if len(polys) == 0 {
		return Geom{Kind: KindEmpty}
	}
	kind := KindPolygon
	if len(polys) > 1 {
		kind = KindMultiPolygon
	}
	return Geom{Kind: kind, Polygons: polys}
}

// Union returns the set union of a and b. Geometry operations on
// pathological (self-intersecting, near-degenerate) rings can panic
// inside the clipping library; the caller (internal/placement) recovers
// from that and treats the attempted placement as not placeable rather
// than letting one bad ring take down the run.
func Union(a, b Geom) Geom {
	if a.Kind == KindEmpty {
		return b
	}
	if b.Kind == KindEmpty {
		return a
	}
	result := polyclip.Polygon{}
	for _, p := range a.Polygons {
		result = result.Construct(polyclip.UNION, toPolyclip(p))
	}
	for _, p := range b.Polygons {
		result = result.Construct(polyclip.UNION, toPolyclip(p))
	}
	return fromPolyclip(result)
}

// UnionAll folds Union across geoms, short-circuiting on an empty slice.
func UnionAll(geoms []Geom) Geom {
	var acc Geom
	for _, g := range geoms {
		acc = Union(acc, g)
	}
	return acc
}

// FromPolygon wraps a single polygon as a Geom.
func FromPolygon(p Polygon) Geom {
	if p.Empty() {
		return Geom{Kind: KindEmpty}
	}
	return Geom{Kind: KindPolygon, Polygons: []Polygon{p}}
}

// IntersectBoundary computes "boundary(full) ∩ region" for an
// axis-aligned rectangular region (the inner-fit polygon is always
// one): every boundary segment of full is clipped to region's bounding
// rectangle, and the surviving segment endpoints are the candidate
// placement points — original boundary vertices that fall inside
// region, plus every crossing point with region's edge. Clipping
// segments directly (rather than intersecting filled areas) keeps the
// degenerate cases alive: a region rectangle of zero width or height
// collapses to a line segment with zero area but a perfectly good
// point set.
func IntersectBoundary(full Geom, region Polygon) []Point {
	if full.Kind == KindEmpty || region.Empty() {
		return nil
	}
	minX, minY, maxX, maxY := region.Bounds()
	var pts []Point
	for _, p := range full.Polygons {
		n := len(p.Exterior)
		for i := 0; i < n; i++ {
			a := p.Exterior[i]
			b := p.Exterior[(i+1)%n]
			if q0, q1, ok := clipSegment(a, b, minX, minY, maxX, maxY); ok {
				pts = append(pts, q0, q1)
			}
		}
	}
	return pts
}

// clipSegment clips segment ab to the axis-aligned rectangle via
// Liang-Barsky. ok is false when the segment misses the rectangle
// entirely.
func clipSegment(a, b Point, minX, minY, maxX, maxY float64) (Point, Point, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	t0, t1 := 0.0, 1.0

	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return false
			}
			if r < t1 {
				t1 = r
			}
		}
		return true
	}

	if !clip(-dx, a.X-minX) || !clip(dx, maxX-a.X) || !clip(-dy, a.Y-minY) || !clip(dy, maxY-a.Y) {
		return Point{}, Point{}, false
	}
	return Point{X: a.X + t0*dx, Y: a.Y + t0*dy},
		Point{X: a.X + t1*dx, Y: a.Y + t1*dy}, true
}
