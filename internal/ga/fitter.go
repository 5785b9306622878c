package ga

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/polynest/nester/internal/geometry"
	"github.com/polynest/nester/internal/nfp"
	"github.com/polynest/nester/internal/nfpcache"
	"github.com/polynest/nester/internal/placement"
	"github.com/polynest/nester/internal/workerpool"
)

// Params bundles the GA's tunable knobs.
type Params struct {
	Generations    int
	PopulationSize int
	MutationRate   int // 1..100
	Rotations      int // 1..360
	NWorkers       int
	Seed           int64
}

// ProgressFunc is invoked at stage boundaries and per completed
// generation. stage is one of "nfp",
// "evaluate", "generation".
type ProgressFunc func(stage string, index, total int)

// Fitter drives Fitter_GA for one bin and one set of
// input shapes, for the lifetime of a single session.
type Fitter struct {
	Bin    placement.Bin
	Params Params
	Cache  *nfpcache.Cache
	Pool   *workerpool.Pool

	rng        *rand.Rand
	originalBy map[int]geometry.Polygon
}

// NewFitter constructs a Fitter bound to one worker pool, which is
// owned and released by the caller, and a fresh NFP cache of its own.
func NewFitter(bin placement.Bin, params Params, pool *workerpool.Pool) *Fitter {
	return &Fitter{
		Bin:    bin,
		Params: params,
		Cache:  nfpcache.New(),
		Pool:   pool,
		rng:    rand.New(rand.NewSource(params.Seed)),
	}
}

// Run executes the full generational loop and returns the best
// Solution found.
func (f *Fitter) Run(ctx context.Context, shapes []*placement.FitShape, progress ProgressFunc) (*Solution, error) {
	f.originalBy = make(map[int]geometry.Polygon, len(shapes))
	for _, s := range shapes {
		if _, ok := f.originalBy[s.ShapeID]; !ok {
			f.originalBy[s.ShapeID] = s.OriginalPolygon
		}
	}

	population := f.seedPopulation(shapes)

	for gen := 0; gen < f.Params.Generations; gen++ {
		if err := f.calcNFPs(ctx, population); err != nil {
			return nil, fmt.Errorf("ga: nfp precompute: %w", err)
		}
		if progress != nil {
			progress("nfp", gen, f.Params.Generations)
		}

		if err := f.evaluate(ctx, population); err != nil {
			return nil, fmt.Errorf("ga: evaluate: %w", err)
		}
		if progress != nil {
			progress("evaluate", gen, f.Params.Generations)
		}

		if gen < f.Params.Generations-1 {
			population = f.newGeneration(population)
		}
		if progress != nil {
			progress("generation", gen, f.Params.Generations)
		}
	}

	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Fitness < population[j].Fitness
	})
	return population[0], nil
}

// seedPopulation builds the initial population: solution 0 is the unmutated area-descending seed
// order; the rest are mutated copies of it.
func (f *Fitter) seedPopulation(shapes []*placement.FitShape) []*Solution {
	order := SeedOrder(shapes)
	population := make([]*Solution, 0, f.Params.PopulationSize)
	population = append(population, NewSolution(order, f.Params.MutationRate, f.Params.Rotations))
	for i := 1; i < f.Params.PopulationSize; i++ {
		mutant := NewSolution(order, f.Params.MutationRate, f.Params.Rotations)
		mutant.Mutate(f.rng)
		population = append(population, mutant)
	}
	return population
}

// calcNFPs gathers every (bin, shape, rot) and (shapeA, shapeB, Δrot)
// key referenced by the current population and fills the shared
// cache, deduplicating against keys already present.
func (f *Fitter) calcNFPs(ctx context.Context, population []*Solution) error {
	var keys []nfpcache.Key
	for _, sol := range population {
		for i, s := range sol.Shapes {
			keys = append(keys, nfpcache.NewKey(nfpcache.BinShapeID, s.ShapeID, s.CanonicalRotation()))
			for j := 0; j < i; j++ {
				a := sol.Shapes[j]
				keys = append(keys, nfpcache.NewKey(a.ShapeID, s.ShapeID, s.RotationDeg-a.RotationDeg))
			}
		}
	}

	return f.Cache.Fill(ctx, f.Pool, keys, f.computeEntry)
}

// computeEntry recomputes a single cache entry from its key: bin
// entries rotate the shape's original polygon in place; shape-pair
// entries hold A at rotation 0 and rotate B by the key's stored delta,
// so the cache only needs to key on the relative angle.
func (f *Fitter) computeEntry(k nfpcache.Key) nfpcache.Entry {
	if k.IDA == nfpcache.BinShapeID {
		origB := f.originalBy[k.IDB]
		rotatedB := rotateAbout(origB, k.RelRotation)
		ifp, ok := nfp.IFP(f.Bin.Polygon, rotatedB)
		return nfpcache.Entry{Polygon: ifp, Valid: ok}
	}

	origA := f.originalBy[k.IDA]
	origB := f.originalBy[k.IDB]
	rotatedB := rotateAbout(origB, k.RelRotation)
	return nfpcache.Entry{Polygon: nfp.NFP(origA, rotatedB), Valid: true}
}

func rotateAbout(p geometry.Polygon, deg float64) geometry.Polygon {
	if deg == 0 {
		return p
	}
	m := geometry.RotationMatrix(deg, p.Centroid())
	return m.ApplyPolygon(p)
}

// evaluate partitions the population into up to min(nWorkers, ⌊P/5⌋)
// chunks (nWorkers when ⌊P/5⌋ is 0) and calls placement.Nest on every Solution lacking a fit
//. Solutions that already carry a fit from an
// earlier generation (the untouched elite) are left alone.
func (f *Fitter) evaluate(ctx context.Context, population []*Solution) error {
	chunks := f.Pool.Size()
	if byFive := f.Params.PopulationSize / 5; byFive > 0 && byFive < chunks {
		chunks = byFive
	}

	return workerpool.RunBatchN(ctx, f.Pool, chunks, population, func(_ context.Context, chunk []*Solution) error {
		for _, sol := range chunk {
			if sol.HasFitted {
				continue
			}
			result, err := placement.Nest(f.Bin, sol.Shapes, f.Cache)
			if err != nil {
				return err
			}
			sol.Fitness = result.Fitness
			sol.Fitted = result.Bins
			sol.HasFitted = true
		}
		return nil
	})
}

// newGeneration sorts by ascending fitness, carries the best forward
// unchanged (elitism), and fills the remainder via rank-weighted
// selection, crossover and mutation.
func (f *Fitter) newGeneration(population []*Solution) []*Solution {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Fitness < population[j].Fitness
	})

	next := make([]*Solution, 0, len(population))
	next = append(next, population[0])

	for len(next) < len(population) {
		male, female := f.selectParents(population)
		child1, child2 := f.mate(male, female)
		next = append(next, child1.Mutate(f.rng))
		if len(next) < len(population) {
			next = append(next, child2.Mutate(f.rng))
		}
	}
	return next
}

// selectParents draws two distinct solutions with selection weight
// w_i = 1/(rank_i+1), normalized, without replacement between the two
// draws.
func (f *Fitter) selectParents(population []*Solution) (*Solution, *Solution) {
	weights := make([]float64, len(population))
	var sum float64
	for i := range population {
		weights[i] = 1.0 / float64(i+1)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}

	first := weightedDraw(weights, f.rng)
	weights[first] = 0
	var remaining float64
	for _, w := range weights {
		remaining += w
	}
	for i := range weights {
		weights[i] /= remaining
	}
	second := weightedDraw(weights, f.rng)

	return population[first], population[second]
}

func weightedDraw(weights []float64, rng *rand.Rand) int {
	r := rng.Float64()
	var acc float64
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}

// mate performs single-point order crossover. Each child is a freshly owned Solution; Shape order
// inherits from the cut parent, then fills in the other parent's
// shapes (by instance identity) not yet present.
func (f *Fitter) mate(male, female *Solution) (*Solution, *Solution) {
	if len(male.Shapes) == 1 {
		// Copies of both parents, with no fit, so they are re-fit; the
		// parents themselves (possibly the elite) stay untouched.
		return NewSolution(male.Shapes, male.MutationRate, male.Rotations),
			NewSolution(female.Shapes, female.MutationRate, female.Rotations)
	}

	cut := 1 + f.rng.Intn(len(male.Shapes)-1)

	child1 := orderCrossover(male.Shapes, female.Shapes, cut)
	child2 := orderCrossover(female.Shapes, male.Shapes, cut)

	return NewSolution(child1, male.MutationRate, male.Rotations),
		NewSolution(child2, female.MutationRate, female.Rotations)
}

func orderCrossover(head, tail []*placement.FitShape, cut int) []*placement.FitShape {
	child := make([]*placement.FitShape, 0, len(head))
	seen := make(map[int64]struct{}, len(head))
	for i := 0; i < cut; i++ {
		child = append(child, head[i])
		seen[head[i].InstanceID] = struct{}{}
	}
	for _, s := range tail {
		if _, ok := seen[s.InstanceID]; !ok {
			child = append(child, s)
		}
	}
	return child
}
