// Package pdfexport renders a nesting Layout to a one-page-per-bin PDF
// showing placed outlines. It is an external collaborator, not part of
// the core's contract — it only ever consumes session.Layout.
//
// Rendering goes through a raster intermediate: each bin is rasterized
// to a PNG page, then pdfcpu's image-import pipeline assembles the
// pages into one document.
package pdfexport

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/polynest/nester/internal/geometry"
	"github.com/polynest/nester/internal/session"
)

// pixelsPerUnit upsamples bin coordinates into a crisper raster page;
// bins are typically specified in low-DPI pixel units already, so a
// small supersample keeps outlines from looking jagged at print size.
const pixelsPerUnit = 2

var (
	bgColor     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	shapeColors = []color.RGBA{
		{R: 31, G: 119, B: 180, A: 255},
		{R: 255, G: 127, B: 14, A: 255},
		{R: 44, G: 160, B: 44, A: 255},
		{R: 214, G: 39, B: 40, A: 255},
		{R: 148, G: 103, B: 189, A: 255},
		{R: 140, G: 86, B: 75, A: 255},
	}
)

// RenderBin rasterizes one bin's placements into an RGBA image sized
// binWidth x binHeight (in source pixel units) at pixelsPerUnit
// supersampling. originalByShapeID supplies each shape's rotation-0
// polygon so the bin's Transformation can be replayed onto it.
func RenderBin(binWidth, binHeight float64, bin []session.PlacedShape, originalByShapeID map[int]geometry.Polygon) (*image.RGBA, error) {
	w := int(math.Ceil(binWidth)) * pixelsPerUnit
	h := int(math.Ceil(binHeight)) * pixelsPerUnit
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("pdfexport: bin dimensions must be positive, got %gx%g", binWidth, binHeight)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bgColor}, image.Point{}, draw.Src)

	for i, placed := range bin {
		original, ok := originalByShapeID[placed.ShapeID]
		if !ok {
			return nil, fmt.Errorf("pdfexport: no source polygon for shape_id %d", placed.ShapeID)
		}
		poly := placed.Transformation.ApplyPolygon(original)
		drawOutline(img, poly, shapeColors[i%len(shapeColors)], h)
	}

	return img, nil
}

// drawOutline plots the polygon's closed exterior ring with Bresenham
// line segments. bin-space Y grows upward; image-space Y grows downward, so rows are flipped here
// to match the extractor's own FLIP_TOP_BOTTOM convention
// (internal/extract.opaqueHull).
func drawOutline(img *image.RGBA, poly geometry.Polygon, c color.RGBA, imgHeight int) {
	n := len(poly.Exterior)
	if n < 2 {
		return
	}
	toPixel := func(p geometry.Point) (int, int) {
		x := int(math.Round(p.X * pixelsPerUnit))
		y := imgHeight - int(math.Round(p.Y*pixelsPerUnit))
		return x, y
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		x0, y0 := toPixel(poly.Exterior[i])
		x1, y1 := toPixel(poly.Exterior[j])
		drawLine(img, x0, y0, x1, y1, c)
	}
}

// drawLine is a standard Bresenham rasterizer, clipped to img's bounds.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	bounds := img.Bounds()
	for {
		if image.Pt(x0, y0).In(bounds) {
			img.SetRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
