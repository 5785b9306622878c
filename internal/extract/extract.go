// Package extract implements the shape extraction adapter: given an image path
// and an outset distance, returns a simple polygon approximating the
// image's opaque outline. The core nesting engine only ever consumes
// the resulting (shape_id, polygon) pair; it is oblivious to how the
// polygon was derived.
package extract

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/dgraph-io/ristretto"
	"github.com/polynest/nester/internal/geometry"
)

// ShapeExtractor turns an image path into a polygon outline. Core
// callers depend only on this interface, never on the concrete
// decoder.
type ShapeExtractor interface {
	Extract(ctx context.Context, path string, outset int) (geometry.Polygon, error)
}

// ImageExtractor decodes raster images with the standard library,
// builds an alpha-opacity mask, takes the convex hull of the opaque
// pixels (the downstream NFP engine works on convex-hull
// approximations anyway, so a concave contour trace would buy
// nothing), then grows the hull outward by outset pixels via a
// Minkowski sum with a regular polygon disc.
//
// Results are cached by (path, outset) in an eviction-tolerant
// ristretto cache: unlike the NFP cache, losing an entry here just
// costs a re-decode, never correctness.
type ImageExtractor struct {
	cache *ristretto.Cache
}

// discSegments is the polygon approximation density used for the
// outset buffer; we approximate the exact offset curve with a 24-gon
// disc.
const discSegments = 24

// NewImageExtractor builds an ImageExtractor with a bounded in-memory
// cache, sized for a modest number of distinct (path, outset) pairs
// per session.
func NewImageExtractor() (*ImageExtractor, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 26, // cost is counted in polygon vertices
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: building cache: %w", err)
	}
	return &ImageExtractor{cache: cache}, nil
}

func cacheKey(path string, outset int) string {
	return fmt.Sprintf("%s#%d", path, outset)
}

// Extract returns the outline polygon for path, outset by outset
// pixels, using the cache when available.
func (e *ImageExtractor) Extract(ctx context.Context, path string, outset int) (geometry.Polygon, error) {
	key := cacheKey(path, outset)
	if cached, ok := e.cache.Get(key); ok {
		return cached.(geometry.Polygon), nil
	}

	poly, err := e.decodeAndOutset(path, outset)
	if err != nil {
		return geometry.Polygon{}, err
	}

	e.cache.Set(key, poly, int64(len(poly.Exterior)))
	e.cache.Wait()
	return poly, nil
}

func (e *ImageExtractor) decodeAndOutset(path string, outset int) (geometry.Polygon, error) {
	f, err := os.Open(path)
	if err != nil {
		return geometry.Polygon{}, fmt.Errorf("extract: opening %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return geometry.Polygon{}, fmt.Errorf("extract: decoding %s: %w", path, err)
	}

	hull, err := opaqueHull(img)
	if err != nil {
		return geometry.Polygon{}, fmt.Errorf("extract: %s: %w", path, err)
	}

	if outset <= 0 {
		return hull, nil
	}
	disc := geometry.RegularPolygon(float64(outset), discSegments)
	return geometry.MinkowskiSum(hull, disc), nil
}

// opaqueHull walks every pixel, collects the corners of the
// non-transparent ones as unit squares (image/y-axis flipped to match
// the pixel-space conventions used downstream), and returns their
// convex hull.
func opaqueHull(img image.Image) (geometry.Polygon, error) {
	bounds := img.Bounds()
	height := bounds.Dy()

	var pts []geometry.Point
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			px := float64(x - bounds.Min.X)
			py := float64(height - 1 - (y - bounds.Min.Y))
			pts = append(pts,
				geometry.Point{X: px, Y: py},
				geometry.Point{X: px + 1, Y: py},
				geometry.Point{X: px, Y: py + 1},
				geometry.Point{X: px + 1, Y: py + 1},
			)
		}
	}
	if len(pts) == 0 {
		return geometry.Polygon{}, fmt.Errorf("image has no opaque pixels")
	}
	return geometry.ConvexHull(pts), nil
}
