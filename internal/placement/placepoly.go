package placement

import "github.com/polynest/nester/internal/geometry"

// PlacePoly returns the offset in valid that minimizes the bounding box
// of placed ∪ {candidate shifted by that offset}, weighting width
// double to bias compaction toward the x axis ("gravity"). Ties within
// geometry.TOL are broken by preferring the smaller shift.X. Returns
// ok=false when valid contributed no candidate point.
func PlacePoly(valid []geometry.Point, placed []*FitShape, candidate *FitShape) (geometry.Point, bool) {
	if len(valid) == 0 {
		return geometry.Point{}, false
	}

	ref := candidate.Polygon.Ref()
	placedPolys := make([]geometry.Polygon, len(placed))
	for i, p := range placed {
		placedPolys[i] = p.Polygon
	}

	var (
		best      geometry.Point
		bestScore float64
		have      bool
	)

	for _, v := range valid {
		shift := v.Sub(ref)
		translated := translate(candidate.Polygon, shift)

		minX, minY, maxX, maxY := unionBounds(placedPolys, translated)
		score := 2*(maxX-minX) + (maxY - minY)

		switch {
		case !have:
			best, bestScore, have = shift, score, true
		case score < bestScore-geometry.TOL:
			best, bestScore = shift, score
		case geometry.AlmostEqual(score, bestScore, geometry.TOL) && shift.X < best.X:
			best, bestScore = shift, score
		}
	}

	return best, have
}

func translate(p geometry.Polygon, shift geometry.Point) geometry.Polygon {
	return geometry.TranslationMatrix(shift.X, shift.Y).ApplyPolygon(p)
}

// unionBounds returns the bounding box of polys plus the extra polygon,
// without constructing an actual union geometry — only the bounding
// box of the combined point set is needed here.
func unionBounds(polys []geometry.Polygon, extra geometry.Polygon) (minX, minY, maxX, maxY float64) {
	first := true
	consider := func(p geometry.Polygon) {
		if p.Empty() {
			return
		}
		pMinX, pMinY, pMaxX, pMaxY := p.Bounds()
		if first {
			minX, minY, maxX, maxY = pMinX, pMinY, pMaxX, pMaxY
			first = false
			return
		}
		if pMinX < minX {
			minX = pMinX
		}
		if pMinY < minY {
			minY = pMinY
		}
		if pMaxX > maxX {
			maxX = pMaxX
		}
		if pMaxY > maxY {
			maxY = pMaxY
		}
	}
	for _, p := range polys {
		consider(p)
	}
	consider(extra)
	return
}
