// Package placement implements the bottom-left-fill style greedy
// packer: FitShape, the mutable placement carrier, and
// Nest, the single-pass bin packer that consumes a pre-filled NFP/IFP
// cache and produces placements.
package placement

import (
	"sync/atomic"

	"github.com/polynest/nester/internal/geometry"
)

var instanceCounter int64

// nextInstanceID returns a process-wide unique instance id.
func nextInstanceID() int64 {
	return atomic.AddInt64(&instanceCounter, 1)
}

// FitShape is the mutable placement carrier for one shape instance.
// ShapeID identifies the underlying geometry for caching purposes;
// InstanceID is unique per FitShape and is used only to deduplicate
// shapes within a permutation (crossover/mutation).
type FitShape struct {
	ShapeID         int
	InstanceID      int64
	OriginalPolygon geometry.Polygon
	RotationDeg     float64
	Polygon         geometry.Polygon
	Transformation  geometry.Matrix
	BinIndex        int
	Placed          bool
}

// NewFitShape wraps polygon as an unplaced, unrotated FitShape with
// shapeID as its caching identity.
func NewFitShape(shapeID int, polygon geometry.Polygon) *FitShape {
	return &FitShape{
		ShapeID:         shapeID,
		InstanceID:      nextInstanceID(),
		OriginalPolygon: polygon,
		Polygon:         polygon.Clone(),
		Transformation:  geometry.Identity(),
	}
}

// CanonicalRotation returns RotationDeg normalized to [0, 360), the form
// used in every NFP cache key. The canonicalized
// value is never written back into RotationDeg: the transformation
// matrix must keep reflecting the full accumulated rotation.
func (f *FitShape) CanonicalRotation() float64 {
	return geometry.NormalizeDegrees(f.RotationDeg)
}

// Rotate applies an additional rotation (in degrees) about the
// polygon's current centroid, composing into both Transformation and
// Polygon.
func (f *FitShape) Rotate(deg float64) {
	if deg == 0 {
		return
	}
	f.RotationDeg += deg
	center := f.Polygon.Centroid()
	m := geometry.RotationMatrix(deg, center)
	f.Transformation = m.Mul(f.Transformation)
	f.Polygon = m.ApplyPolygon(f.Polygon)
}

// Translate applies a translation, composing into both Transformation
// and Polygon.
func (f *FitShape) Translate(dx, dy float64) {
	m := geometry.TranslationMatrix(dx, dy)
	f.Transformation = m.Mul(f.Transformation)
	f.Polygon = m.ApplyPolygon(f.Polygon)
}

// Clone deep-copies the FitShape so mutations on the copy never alias
// the original's pose. InstanceID is preserved: clones of the same FitShape
// across Solutions still identify "the same slot" for crossover
// bookkeeping.
func (f *FitShape) Clone() *FitShape {
	cp := *f
	cp.OriginalPolygon = f.OriginalPolygon.Clone()
	cp.Polygon = f.Polygon.Clone()
	return &cp
}

// Reset clears placement state before a fresh nest() pass, leaving
// pose (rotation/translation) untouched — only order and rotation are
// subject to GA search, placement is recomputed every time.
func (f *FitShape) Reset() {
	f.Placed = false
	f.BinIndex = 0
}

// Bin is the axis-aligned rectangular container, always shape_id 0,
// never rotated.
type Bin struct {
	Width, Height float64
	Polygon       geometry.Polygon
}

// NewBin builds a [0,W]x[0,H] bin polygon.
func NewBin(width, height float64) Bin {
	poly := geometry.NewPolygon([]geometry.Point{
		{X: 0, Y: 0},
		{X: 0, Y: height},
		{X: width, Y: height},
		{X: width, Y: 0},
	})
	return Bin{Width: width, Height: height, Polygon: poly}
}

// Area returns the bin's area.
func (b Bin) Area() float64 { return b.Width * b.Height }
