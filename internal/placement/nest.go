package placement

import (
	"github.com/polynest/nester/internal/geometry"
	"github.com/polynest/nester/internal/nfp"
	"github.com/polynest/nester/internal/nfpcache"
)

// Result is the outcome of one Nest call: a fitness score (lower is
// better) and the bins produced, each a slice of the FitShapes placed
// in it, in placement order.
type Result struct {
	Fitness float64
	Bins    [][]*FitShape
}

// Nest places shapes into bin in the given order, opening additional
// bins on demand. Preconditions: for every shape and the bin, cache
// already holds the IFP entry, and for every ordered pair (i<j) in
// shapes, cache holds the pairwise NFP at their current relative
// rotation. Violating this precondition surfaces as
// nfpcache.ErrCacheMiss, a fatal internal error.
func Nest(bin Bin, shapes []*FitShape, cache *nfpcache.Cache) (Result, error) {
	for _, s := range shapes {
		s.Reset()
	}

	toPlace := append([]*FitShape(nil), shapes...)
	binIndex := 0
	var bins [][]*FitShape
	var fitness float64

outer:
	for len(toPlace) > 0 {
		var placed []*FitShape

		var ifp0 geometry.Polygon
		found := false
		for len(toPlace) > 0 && !found {
			head := toPlace[0]
			entry, err := binEntry(cache, head)
			if err != nil {
				return Result{}, err
			}
			if entry.Valid {
				ifp0 = entry.Polygon
				found = true
				continue
			}
			toPlace = toPlace[1:]
		}

		if !found {
			// Every remaining shape has no valid bin IFP: none of them
			// can ever seed a bin, so no further bin is opened and the
			// remaining shapes stay unplaced.
			break outer
		}

		{
			head := toPlace[0]
			ref := head.Polygon.Ref()
			var best geometry.Point
			haveBest := false
			for _, v := range ifp0.Exterior {
				shift := v.Sub(ref)
				if !haveBest || shift.X < best.X {
					best = shift
					haveBest = true
				}
			}
			head.Translate(best.X, best.Y)
			head.Placed = true
			head.BinIndex = binIndex
			placed = append(placed, head)
		}

		for i := 1; i < len(toPlace); i++ {
			candidate := toPlace[i]

			entry, err := binEntry(cache, candidate)
			if err != nil {
				return Result{}, err
			}
			if !entry.Valid {
				continue
			}
			ifpC := entry.Polygon

			validPts, ok, err := validPlacements(cache, placed, candidate, ifpC)
			if err != nil {
				return Result{}, err
			}
			if !ok || len(validPts) == 0 {
				continue
			}

			shift, ok := PlacePoly(validPts, placed, candidate)
			if !ok {
				continue
			}
			candidate.Translate(shift.X, shift.Y)
			candidate.Placed = true
			candidate.BinIndex = binIndex
			placed = append(placed, candidate)
		}

		toPlace = removeAll(toPlace, placed)

		if len(placed) > 0 {
			polys := make([]geometry.Polygon, len(placed))
			for i, p := range placed {
				polys[i] = p.Polygon
			}
			minX, _, maxX, _ := unionBounds(polys, geometry.Polygon{})
			width := maxX - minX
			fitness += width / bin.Area()
		}

		bins = append(bins, placed)
		binIndex++
	}

	unplaced := 0
	for _, s := range shapes {
		if !s.Placed {
			unplaced++
		}
	}
	fitness += float64(unplaced)*2 + float64(binIndex)

	return Result{Fitness: fitness, Bins: bins}, nil
}

func binEntry(cache *nfpcache.Cache, s *FitShape) (nfpcache.Entry, error) {
	key := nfpcache.NewKey(nfpcache.BinShapeID, s.ShapeID, s.CanonicalRotation())
	return cache.MustGet(key)
}

// validPlacements builds the union of NFP(p, candidate) over already
// placed shapes p (each transformed into p's current pose), intersects
// its boundary with candidate's IFP, and returns the resulting
// candidate placement points. Geometry failures (self-intersection on
// union, etc.) are recovered and reported as ok=false rather than
// propagated; a missing cache entry is returned as err.
func validPlacements(cache *nfpcache.Cache, placed []*FitShape, candidate *FitShape, ifpC geometry.Polygon) (pts []geometry.Point, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			pts, ok, err = nil, false, nil
		}
	}()

	if len(placed) == 0 {
		return nil, false, nil
	}

	var full geometry.Geom
	for _, p := range placed {
		key := nfpcache.NewKey(p.ShapeID, candidate.ShapeID, candidate.RotationDeg-p.RotationDeg)
		entry, getErr := cache.MustGet(key)
		if getErr != nil {
			return nil, false, getErr
		}
		transformed := p.Transformation.ApplyPolygon(entry.Polygon)
		full = geometry.Union(full, geometry.FromPolygon(transformed))
	}

	return geometry.IntersectBoundary(full, ifpC), true, nil
}

func removeAll(list []*FitShape, remove []*FitShape) []*FitShape {
	if len(remove) == 0 {
		return list
	}
	skip := make(map[int64]struct{}, len(remove))
	for _, r := range remove {
		skip[r.InstanceID] = struct{}{}
	}
	out := list[:0:0]
	for _, s := range list {
		if _, drop := skip[s.InstanceID]; drop {
			continue
		}
		out = append(out, s)
	}
	return out
}

// NFPBetween is a thin wrapper around internal/nfp.NFP so callers
// needn't import both placement and nfp to build shape-pair entries.
// internal/ga's cache population calls nfp.NFP directly.
func NFPBetween(a, b geometry.Polygon) geometry.Polygon {
	return nfp.NFP(a, b)
}
