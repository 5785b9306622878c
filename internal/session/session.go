// Package session implements run_nest, the sole public entry point of
// the nesting core. It wires shape extraction, the GA, and the
// placement engine behind one call, acquiring and releasing the
// worker pool for its own lifetime.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/polynest/nester/internal/extract"
	"github.com/polynest/nester/internal/ga"
	"github.com/polynest/nester/internal/geometry"
	"github.com/polynest/nester/internal/placement"
	"github.com/polynest/nester/internal/workerpool"
)

// ErrInvalidInput is returned for malformed requests, before any GA
// work starts.
var ErrInvalidInput = errors.New("session: invalid input")

// ErrInternal wraps otherwise-unclassified fatal failures.
var ErrInternal = errors.New("session: internal error")

// ShapeInput describes one requested shape.
type ShapeInput struct {
	ShapeID      int
	Path         string
	Count        int
	RotationSeed *float64 // optional pre-rotation applied before the GA runs
}

// BinSize is the bin's width and height in pixels.
type BinSize struct {
	WidthPx, HeightPx float64
}

// Params bundles the GA's tunable knobs plus the extractor's outset
// distance.
type Params struct {
	NumGenerations int
	PopulationSize int
	MutationRate   int
	Rotations      int
	NWorkers       int
	OutsetDistance int
	Seed           int64
}

// ProgressFunc is invoked at stage boundaries and per completed
// generation.
type ProgressFunc func(stage string, index, total int)

// PlacedShape is one shape's final pose within a bin.
type PlacedShape struct {
	ShapeID        int
	Path           string
	Transformation geometry.Matrix
}

// Layout is run_nest's return value.
type Layout struct {
	Fitness float64
	Bins    [][]PlacedShape
}

func validate(inputs []ShapeInput, bin BinSize, params Params) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: no shapes requested", ErrInvalidInput)
	}
	if bin.WidthPx <= 0 || bin.HeightPx <= 0 {
		return fmt.Errorf("%w: bin dimensions must be positive", ErrInvalidInput)
	}
	if params.NumGenerations < 1 {
		return fmt.Errorf("%w: num_generations must be >= 1", ErrInvalidInput)
	}
	if params.PopulationSize < 2 {
		return fmt.Errorf("%w: population_size must be >= 2", ErrInvalidInput)
	}
	if params.MutationRate < 1 || params.MutationRate > 100 {
		return fmt.Errorf("%w: mutation_rate must be in [1,100]", ErrInvalidInput)
	}
	if params.Rotations < 1 || params.Rotations > 360 {
		return fmt.Errorf("%w: rotations must be in [1,360]", ErrInvalidInput)
	}
	if params.NWorkers < 1 {
		return fmt.Errorf("%w: n_workers must be >= 1", ErrInvalidInput)
	}
	seen := map[int]struct{}{}
	for _, in := range inputs {
		if in.ShapeID < 1 {
			return fmt.Errorf("%w: shape_id must be >= 1", ErrInvalidInput)
		}
		if _, dup := seen[in.ShapeID]; dup {
			return fmt.Errorf("%w: duplicate shape_id %d", ErrInvalidInput, in.ShapeID)
		}
		seen[in.ShapeID] = struct{}{}
		if in.Count < 1 {
			return fmt.Errorf("%w: count for shape_id %d must be >= 1", ErrInvalidInput, in.ShapeID)
		}
		if in.Path == "" {
			return fmt.Errorf("%w: shape_id %d has no path", ErrInvalidInput, in.ShapeID)
		}
	}
	return nil
}

// RunNest extracts every requested shape, runs the genetic algorithm
// over the resulting FitShapes, and returns the best Layout found.
func RunNest(ctx context.Context, extractor extract.ShapeExtractor, inputs []ShapeInput, bin BinSize, params Params, progress ProgressFunc) (Layout, error) {
	if err := validate(inputs, bin, params); err != nil {
		return Layout{}, err
	}

	pool := workerpool.New(params.NWorkers)
	defer pool.Close()

	pathByShapeID := make(map[int]string, len(inputs))
	shapes := make([]*placement.FitShape, 0)

	for i, in := range inputs {
		pathByShapeID[in.ShapeID] = in.Path
		if progress != nil {
			progress("extract", i, len(inputs))
		}
		polygon, err := extractor.Extract(ctx, in.Path, params.OutsetDistance)
		if err != nil {
			return Layout{}, fmt.Errorf("%w: extracting shape_id %d: %v", ErrInvalidInput, in.ShapeID, err)
		}
		for c := 0; c < in.Count; c++ {
			fs := placement.NewFitShape(in.ShapeID, polygon)
			if in.RotationSeed != nil {
				fs.Rotate(*in.RotationSeed)
			}
			shapes = append(shapes, fs)
		}
	}

	binPoly := placement.NewBin(bin.WidthPx, bin.HeightPx)
	fitter := ga.NewFitter(binPoly, ga.Params{
		Generations:    params.NumGenerations,
		PopulationSize: params.PopulationSize,
		MutationRate:   params.MutationRate,
		Rotations:      params.Rotations,
		NWorkers:       params.NWorkers,
		Seed:           params.Seed,
	}, pool)

	best, err := fitter.Run(ctx, shapes, func(stage string, index, total int) {
		if progress != nil {
			progress(stage, index, total)
		}
	})
	if err != nil {
		return Layout{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return toLayout(best, pathByShapeID), nil
}

func toLayout(best *ga.Solution, pathByShapeID map[int]string) Layout {
	layout := Layout{Fitness: best.Fitness, Bins: make([][]PlacedShape, len(best.Fitted))}
	for i, bin := range best.Fitted {
		placed := make([]PlacedShape, 0, len(bin))
		for _, s := range bin {
			placed = append(placed, PlacedShape{
				ShapeID:        s.ShapeID,
				Path:           pathByShapeID[s.ShapeID],
				Transformation: s.Transformation,
			})
		}
		layout.Bins[i] = placed
	}
	return layout
}
