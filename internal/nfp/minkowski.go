// Package nfp implements the Minkowski engine: construction of no-fit
// polygons (NFP) and inner-fit polygons (IFP) from convex-hull
// approximations.
package nfp

import "github.com/polynest/nester/internal/geometry"

// NFP computes the no-fit polygon of B against A: the locus of
// placements of B's reference vertex such that B touches but does not
// penetrate A. A is assumed to be at its original orientation
// (rotation 0); B may be pre-rotated by the caller to the desired
// relative angle before this call, so the cache keys only on the
// relative angle rather than both absolute rotations.
//
// This is a Minkowski-difference approximation: it is exact for convex
// A and B, and an over-restriction otherwise (the caller compensates
// by always feeding convex-hull polygons in).
func NFP(a, b geometry.Polygon) geometry.Polygon {
	negA := negate(a)
	hull := geometry.MinkowskiSum(negA, b)

	ref := b.Ref()
	// Translate the hull so that B's reference vertex maps to the
	// origin of the sum: affine [-1,0,0,-1, ref.x, ref.y] applied to
	// the hull, i.e. point-reflect through the origin then shift by ref.
	out := make([]geometry.Point, len(hull.Exterior))
	for i, v := range hull.Exterior {
		out[i] = geometry.Point{X: -v.X + ref.X, Y: -v.Y + ref.Y}
	}
	return geometry.Polygon{Exterior: out}
}

func negate(p geometry.Polygon) geometry.Polygon {
	out := make([]geometry.Point, len(p.Exterior))
	for i, v := range p.Exterior {
		out[i] = geometry.Point{X: -v.X, Y: -v.Y}
	}
	return geometry.Polygon{Exterior: out}
}

// IFP computes the inner-fit polygon of b inside the axis-aligned
// rectangle bin: the locus of placements of b's reference vertex such
// that b lies entirely inside bin. Returns (Polygon{}, false) when b
// cannot fit inside bin at its current orientation (its bounding box
// exceeds the bin's in either dimension).
func IFP(bin, b geometry.Polygon) (geometry.Polygon, bool) {
	binMinX, binMinY, binMaxX, binMaxY := bin.Bounds()
	bMinX, bMinY, bMaxX, bMaxY := b.Bounds()

	binW, binH := binMaxX-binMinX, binMaxY-binMinY
	bW, bH := bMaxX-bMinX, bMaxY-bMinY

	if bW > binW || bH > binH {
		return geometry.Polygon{}, false
	}

	ref := b.Ref()
	offX0 := ref.X - bMinX
	offY0 := ref.Y - bMinY
	offX1 := ref.X - bMaxX
	offY1 := ref.Y - bMaxY

	lo := geometry.Point{X: binMinX + offX0, Y: binMinY + offY0}
	hi := geometry.Point{X: binMaxX + offX1, Y: binMaxY + offY1}

	ifp := geometry.NewPolygon([]geometry.Point{
		{X: lo.X, Y: lo.Y},
		{X: lo.X, Y: hi.Y},
		{X: hi.X, Y: hi.Y},
		{X: hi.X, Y: lo.Y},
	})
	return ifp, true
}
