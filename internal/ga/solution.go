// Package ga implements Fitter_GA: a population of
// candidate shape orderings and rotations searched via elitist,
// rank-weighted selection, order crossover, and swap/rotation
// mutation, driving the placement engine toward lower fitness.
package ga

import (
	"math/rand"
	"sort"

	"github.com/polynest/nester/internal/placement"
)

// Solution is one candidate ordering-and-rotation assignment. Shapes are deep-copied on construction so mutating
// one Solution never aliases another's pose.
type Solution struct {
	Shapes       []*placement.FitShape
	MutationRate int
	Rotations    int

	Fitness   float64
	Fitted    [][]*placement.FitShape
	HasFitted bool
}

// NewSolution deep-copies order into a freshly owned Solution.
func NewSolution(order []*placement.FitShape, mutationRate, rotations int) *Solution {
	shapes := make([]*placement.FitShape, len(order))
	for i, s := range order {
		shapes[i] = s.Clone()
	}
	return &Solution{Shapes: shapes, MutationRate: mutationRate, Rotations: rotations}
}

// RotationAngles returns the allowed discrete angles {k·360/R : k ∈
// [0,R)} for a solution's rotation discretization R.
func RotationAngles(rotations int) []float64 {
	angles := make([]float64, rotations)
	step := 360.0 / float64(rotations)
	for k := 0; k < rotations; k++ {
		angles[k] = step * float64(k)
	}
	return angles
}

func (s *Solution) randomAngle(rng *rand.Rand) float64 {
	angles := RotationAngles(s.Rotations)
	return angles[rng.Intn(len(angles))]
}

// Mutate applies order-swap and rotation mutation. Any mutation
// invalidates a previously computed fit.
func (s *Solution) Mutate(rng *rand.Rand) *Solution {
	p := 0.01 * float64(s.MutationRate)
	mutated := false
	for i := range s.Shapes {
		if i+1 < len(s.Shapes) && rng.Float64() < p {
			s.Shapes[i], s.Shapes[i+1] = s.Shapes[i+1], s.Shapes[i]
			mutated = true
		}
		if rng.Float64() < p {
			s.Shapes[i].Rotate(s.randomAngle(rng))
			mutated = true
		}
	}
	if mutated {
		s.HasFitted = false
		s.Fitted = nil
	}
	return s
}

// SeedOrder returns a copy of shapes sorted by descending polygon
// area, the GA's initial-order heuristic.
func SeedOrder(shapes []*placement.FitShape) []*placement.FitShape {
	order := make([]*placement.FitShape, len(shapes))
	copy(order, shapes)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Polygon.Area() > order[j].Polygon.Area()
	})
	return order
}
