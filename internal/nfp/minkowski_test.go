package nfp

import (
	"testing"

	"github.com/polynest/nester/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rect(x, y, w, h float64) geometry.Polygon {
	return geometry.NewPolygon([]geometry.Point{
		{X: x, Y: y}, {X: x, Y: y + h}, {X: x + w, Y: y + h}, {X: x + w, Y: y},
	})
}

func TestIFPRejectsOversizedShape(t *testing.T) {
	bin := rect(0, 0, 300, 300)
	big := rect(0, 0, 500, 500)
	_, ok := IFP(bin, big)
	assert.False(t, ok)
}

func TestIFPOfSquareInLargerBin(t *testing.T) {
	bin := rect(0, 0, 300, 300)
	shape := rect(0, 0, 100, 100)
	ifp, ok := IFP(bin, shape)
	require.True(t, ok)
	minX, minY, maxX, maxY := ifp.Bounds()
	assert.InDelta(t, 0, minX, geometry.TOL)
	assert.InDelta(t, 0, minY, geometry.TOL)
	assert.InDelta(t, 200, maxX, geometry.TOL)
	assert.InDelta(t, 200, maxY, geometry.TOL)
}

func TestNFPOfTwoSquaresIsBiggerSquare(t *testing.T) {
	a := rect(0, 0, 100, 100)
	b := rect(0, 0, 50, 50)
	n := NFP(a, b)
	// NFP of B's reference vertex locus around A should span
	// [-50,100] x [-50,100] relative to A's own frame (B's ref is at
	// its own min corner, so sliding B's ref along the hull boundary of
	// (-A ⊕ B) traces exactly a (150x150) square anchored so that the
	// all-touching position (B's ref at A's min corner translated by
	// B's own extent) lands at the origin.
	assert.InDelta(t, 150*150, n.Area(), 1e-6)
}
