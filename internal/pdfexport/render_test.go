package pdfexport

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polynest/nester/internal/geometry"
	"github.com/polynest/nester/internal/session"
)

func square(side float64) geometry.Polygon {
	return geometry.NewPolygon([]geometry.Point{
		{X: 0, Y: 0}, {X: 0, Y: side}, {X: side, Y: side}, {X: side, Y: 0},
	})
}

func TestRenderBinDrawsWithinBounds(t *testing.T) {
	bin := []session.PlacedShape{
		{ShapeID: 1, Transformation: geometry.TranslationMatrix(10, 10)},
	}
	originals := map[int]geometry.Polygon{1: square(50)}

	img, err := RenderBin(100, 100, bin, originals)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	var sawNonBackground bool
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.RGBAAt(x, y) != color.RGBA(bgColor) {
				sawNonBackground = true
			}
		}
	}
	assert.True(t, sawNonBackground, "expected at least one outline pixel drawn")
}

func TestRenderBinRejectsNonPositiveDimensions(t *testing.T) {
	_, err := RenderBin(0, 100, nil, nil)
	assert.Error(t, err)
}

func TestRenderBinMissingShapeErrors(t *testing.T) {
	bin := []session.PlacedShape{{ShapeID: 42}}
	_, err := RenderBin(100, 100, bin, map[int]geometry.Polygon{})
	assert.Error(t, err)
}
