// Package api is the optional HTTP front end: a gin router exposing POST /nest and GET /nest/{id}, guarded by
// JWT bearer auth and a per-client token-bucket rate limiter, with
// progress published over Redis pub/sub so replicas can stream progress
// without holding the request open. None of this is part of the core's
// contract — api only ever calls session.RunNest.
package api

import (
	"time"

	"github.com/polynest/nester/internal/geometry"
	"github.com/polynest/nester/internal/session"
)

// ShapeSpec is the wire form of session.ShapeInput.
type ShapeSpec struct {
	ShapeID      int      `json:"shape_id" binding:"required,min=1"`
	Path         string   `json:"path" binding:"required"`
	Count        int      `json:"count" binding:"required,min=1"`
	RotationSeed *float64 `json:"rotation_seed,omitempty"`
}

// BinSpec is the wire form of session.BinSize.
type BinSpec struct {
	WidthPx  float64 `json:"width_px" binding:"required,gt=0"`
	HeightPx float64 `json:"height_px" binding:"required,gt=0"`
}

// ParamsSpec is the wire form of session.Params (minus OutsetDistance,
// which travels alongside it at the top level).
type ParamsSpec struct {
	NumGenerations int   `json:"num_generations" binding:"required,min=1"`
	PopulationSize int   `json:"population_size" binding:"required,min=2"`
	MutationRate   int   `json:"mutation_rate" binding:"required,min=1,max=100"`
	Rotations      int   `json:"rotations" binding:"required,min=1,max=360"`
	NWorkers       int   `json:"n_workers" binding:"required,min=1"`
	Seed           int64 `json:"seed"`
}

// NestRequest is the POST /nest request body.
type NestRequest struct {
	Shapes         []ShapeSpec `json:"shapes" binding:"required,min=1,dive"`
	Bin            BinSpec     `json:"bin" binding:"required"`
	Params         ParamsSpec  `json:"params" binding:"required"`
	OutsetDistance int         `json:"outset_distance"`
}

// PlacementSpec is the wire form of session.PlacedShape.
type PlacementSpec struct {
	ShapeID        int             `json:"shape_id"`
	Path           string          `json:"path"`
	Transformation geometry.Matrix `json:"transformation"`
}

// NestResponse is the wire form of session.Layout.
type NestResponse struct {
	Fitness float64           `json:"fitness"`
	Bins    [][]PlacementSpec `json:"bins"`
}

// JobStatus is the lifecycle state of one queued nesting run.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job tracks one accepted POST /nest request through to completion.
type Job struct {
	ID        string       `json:"id"`
	Status    JobStatus    `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Result    NestResponse `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
}

func toSessionInputs(req NestRequest) []session.ShapeInput {
	out := make([]session.ShapeInput, 0, len(req.Shapes))
	for _, s := range req.Shapes {
		out = append(out, session.ShapeInput{
			ShapeID:      s.ShapeID,
			Path:         s.Path,
			Count:        s.Count,
			RotationSeed: s.RotationSeed,
		})
	}
	return out
}

func toNestResponse(layout session.Layout) NestResponse {
	resp := NestResponse{Fitness: layout.Fitness, Bins: make([][]PlacementSpec, len(layout.Bins))}
	for i, bin := range layout.Bins {
		placements := make([]PlacementSpec, 0, len(bin))
		for _, p := range bin {
			placements = append(placements, PlacementSpec{
				ShapeID:        p.ShapeID,
				Path:           p.Path,
				Transformation: p.Transformation,
			})
		}
		resp.Bins[i] = placements
	}
	return resp
}
