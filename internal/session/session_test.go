package session

import (
	"context"
	"testing"

	"github.com/polynest/nester/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	polygons map[string]geometry.Polygon
}

func (f *fakeExtractor) Extract(_ context.Context, path string, _ int) (geometry.Polygon, error) {
	return f.polygons[path], nil
}

func square(w, h float64) geometry.Polygon {
	return geometry.NewPolygon([]geometry.Point{
		{X: 0, Y: 0}, {X: 0, Y: h}, {X: w, Y: h}, {X: w, Y: 0},
	})
}

func TestRunNestProducesLayout(t *testing.T) {
	extractor := &fakeExtractor{polygons: map[string]geometry.Polygon{
		"sticker.png": square(100, 100),
	}}

	layout, err := RunNest(context.Background(), extractor,
		[]ShapeInput{{ShapeID: 1, Path: "sticker.png", Count: 1}},
		BinSize{WidthPx: 300, HeightPx: 300},
		Params{NumGenerations: 1, PopulationSize: 2, MutationRate: 10, Rotations: 1, NWorkers: 2, Seed: 1},
		nil,
	)
	require.NoError(t, err)
	require.Len(t, layout.Bins, 1)
	require.Len(t, layout.Bins[0], 1)
	assert.Equal(t, "sticker.png", layout.Bins[0][0].Path)
}

func TestRunNestConservesRequestedCounts(t *testing.T) {
	extractor := &fakeExtractor{polygons: map[string]geometry.Polygon{
		"small.png": square(50, 50),
		"big.png":   square(400, 400), // can never fit the bin
	}}

	layout, err := RunNest(context.Background(), extractor,
		[]ShapeInput{
			{ShapeID: 1, Path: "small.png", Count: 3},
			{ShapeID: 2, Path: "big.png", Count: 1},
		},
		BinSize{WidthPx: 300, HeightPx: 300},
		Params{NumGenerations: 2, PopulationSize: 4, MutationRate: 10, Rotations: 1, NWorkers: 2, Seed: 5},
		nil,
	)
	require.NoError(t, err)

	placedByID := map[int]int{}
	for _, bin := range layout.Bins {
		for _, p := range bin {
			placedByID[p.ShapeID]++
		}
	}
	assert.Equal(t, 3, placedByID[1])
	assert.Equal(t, 0, placedByID[2])
	// The oversized shape shows up only as the unplaced penalty.
	assert.GreaterOrEqual(t, layout.Fitness, 2.0)
}

func TestRunNestRejectsEmptyShapeList(t *testing.T) {
	_, err := RunNest(context.Background(), &fakeExtractor{}, nil, BinSize{WidthPx: 1, HeightPx: 1}, Params{
		NumGenerations: 1, PopulationSize: 2, MutationRate: 10, Rotations: 1, NWorkers: 1,
	}, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunNestRejectsNonPositiveBin(t *testing.T) {
	_, err := RunNest(context.Background(), &fakeExtractor{}, []ShapeInput{{ShapeID: 1, Path: "x", Count: 1}},
		BinSize{WidthPx: 0, HeightPx: 10}, Params{
			NumGenerations: 1, PopulationSize: 2, MutationRate: 10, Rotations: 1, NWorkers: 1,
		}, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunNestRejectsBadParams(t *testing.T) {
	base := []ShapeInput{{ShapeID: 1, Path: "x", Count: 1}}
	bin := BinSize{WidthPx: 100, HeightPx: 100}

	cases := []Params{
		{NumGenerations: 0, PopulationSize: 2, MutationRate: 10, Rotations: 1, NWorkers: 1},
		{NumGenerations: 1, PopulationSize: 1, MutationRate: 10, Rotations: 1, NWorkers: 1},
		{NumGenerations: 1, PopulationSize: 2, MutationRate: 0, Rotations: 1, NWorkers: 1},
		{NumGenerations: 1, PopulationSize: 2, MutationRate: 10, Rotations: 0, NWorkers: 1},
		{NumGenerations: 1, PopulationSize: 2, MutationRate: 10, Rotations: 1, NWorkers: 0},
	}
	for _, p := range cases {
		_, err := RunNest(context.Background(), &fakeExtractor{}, base, bin, p, nil)
		require.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestRunNestRejectsDuplicateShapeID(t *testing.T) {
	inputs := []ShapeInput{
		{ShapeID: 1, Path: "a", Count: 1},
		{ShapeID: 1, Path: "b", Count: 1},
	}
	_, err := RunNest(context.Background(), &fakeExtractor{}, inputs, BinSize{WidthPx: 10, HeightPx: 10}, Params{
		NumGenerations: 1, PopulationSize: 2, MutationRate: 10, Rotations: 1, NWorkers: 1,
	}, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}
