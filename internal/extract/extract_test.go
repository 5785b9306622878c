package extract

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, opaqueMinX, opaqueMinY, opaqueMaxX, opaqueMaxY, size int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x >= opaqueMinX && x < opaqueMaxX && y >= opaqueMinY && y < opaqueMaxY {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{})
			}
		}
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "sticker.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestExtractOpaqueSquare(t *testing.T) {
	path := writeTestPNG(t, 2, 2, 8, 8, 10)
	extractor, err := NewImageExtractor()
	require.NoError(t, err)

	poly, err := extractor.Extract(context.Background(), path, 0)
	require.NoError(t, err)
	assert.InDelta(t, 36, poly.Area(), 1e-6)
}

func TestExtractAppliesOutset(t *testing.T) {
	path := writeTestPNG(t, 2, 2, 8, 8, 10)
	extractor, err := NewImageExtractor()
	require.NoError(t, err)

	without, err := extractor.Extract(context.Background(), path, 0)
	require.NoError(t, err)
	withOutset, err := extractor.Extract(context.Background(), path, 3)
	require.NoError(t, err)

	assert.Greater(t, withOutset.Area(), without.Area())
}

func TestExtractCachesByPathAndOutset(t *testing.T) {
	path := writeTestPNG(t, 0, 0, 4, 4, 4)
	extractor, err := NewImageExtractor()
	require.NoError(t, err)

	first, err := extractor.Extract(context.Background(), path, 1)
	require.NoError(t, err)
	second, err := extractor.Extract(context.Background(), path, 1)
	require.NoError(t, err)
	assert.Equal(t, first.Area(), second.Area())
}

func TestExtractRejectsFullyTransparentImage(t *testing.T) {
	path := writeTestPNG(t, 0, 0, 0, 0, 5)
	extractor, err := NewImageExtractor()
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), path, 0)
	assert.Error(t, err)
}
