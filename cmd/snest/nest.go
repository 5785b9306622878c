package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/polynest/nester/internal/config"
	"github.com/polynest/nester/internal/extract"
	"github.com/polynest/nester/internal/geometry"
	"github.com/polynest/nester/internal/history"
	"github.com/polynest/nester/internal/logging"
	"github.com/polynest/nester/internal/pdfexport"
	"github.com/polynest/nester/internal/session"
)

// shapeFile is the on-disk YAML form of the requested shapes list.
type shapeFile struct {
	Shapes []shapeEntry `yaml:"shapes"`
}

type shapeEntry struct {
	ShapeID      int      `yaml:"shape_id"`
	Path         string   `yaml:"path"`
	Count        int      `yaml:"count"`
	RotationSeed *float64 `yaml:"rotation_seed,omitempty"`
}

func loadShapeFile(path string) ([]session.ShapeInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shapes file %s: %w", path, err)
	}
	var parsed shapeFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing shapes file %s: %w", path, err)
	}
	inputs := make([]session.ShapeInput, 0, len(parsed.Shapes))
	for _, s := range parsed.Shapes {
		inputs = append(inputs, session.ShapeInput{
			ShapeID:      s.ShapeID,
			Path:         s.Path,
			Count:        s.Count,
			RotationSeed: s.RotationSeed,
		})
	}
	return inputs, nil
}

func newNestCmd() *cobra.Command {
	var (
		shapesPath string
		generations,
		population,
		mutation,
		rotations,
		workers int
		seed       int64
		pdfOut     string
		historyDSN string
	)

	cmd := &cobra.Command{
		Use:   "nest",
		Short: "Pack shapes into bins with the genetic nesting engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if generations > 0 {
				cfg.Algorithm.NumGenerations = generations
			}
			if population > 0 {
				cfg.Algorithm.PopulationSize = population
			}
			if mutation > 0 {
				cfg.Algorithm.MutationRate = mutation
			}
			if rotations > 0 {
				cfg.Algorithm.Rotations = rotations
			}
			if workers > 0 {
				cfg.Algorithm.NWorkers = workers
			}
			if seed != 0 {
				cfg.Algorithm.Seed = seed
			}

			logger := logging.New(cfg.Server.LogLevel)

			inputs, err := loadShapeFile(shapesPath)
			if err != nil {
				return err
			}

			extractor, err := extract.NewImageExtractor()
			if err != nil {
				return err
			}

			widthPx, heightPx := cfg.BinPixels()
			params := session.Params{
				NumGenerations: cfg.Algorithm.NumGenerations,
				PopulationSize: cfg.Algorithm.PopulationSize,
				MutationRate:   cfg.Algorithm.MutationRate,
				Rotations:      cfg.Algorithm.Rotations,
				NWorkers:       cfg.Algorithm.NWorkers,
				OutsetDistance: cfg.OutsetDistance(),
				Seed:           cfg.Algorithm.Seed,
			}

			start := time.Now()
			layout, runErr := session.RunNest(cmd.Context(), extractor, inputs, session.BinSize{WidthPx: widthPx, HeightPx: heightPx}, params,
				func(stage string, index, total int) {
					logger.Info("progress", "stage", stage, "index", index, "total", total)
				})
			elapsed := time.Since(start)

			if historyDSN != "" {
				if recErr := recordHistory(cmd.Context(), historyDSN, start, elapsed, layout, runErr); recErr != nil {
					logger.Warn("failed to record run history", "err", recErr)
				}
			}

			if runErr != nil {
				return runErr
			}

			logger.Info("nest complete", "fitness", layout.Fitness, "bins", len(layout.Bins), "elapsed", elapsed)

			if pdfOut != "" {
				originals, err := originalPolygonsByShapeID(cmd.Context(), extractor, inputs, cfg.OutsetDistance())
				if err != nil {
					return err
				}
				if err := pdfexport.Export(layout, widthPx, heightPx, originals, pdfOut); err != nil {
					return err
				}
				logger.Info("wrote PDF export", "path", pdfOut)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&shapesPath, "shapes", "", "path to a YAML file listing requested shapes (required)")
	cmd.Flags().IntVar(&generations, "generations", 0, "override num_generations")
	cmd.Flags().IntVar(&population, "population", 0, "override population_size")
	cmd.Flags().IntVar(&mutation, "mutation", 0, "override mutation_rate")
	cmd.Flags().IntVar(&rotations, "rotations", 0, "override rotations")
	cmd.Flags().IntVar(&workers, "workers", 0, "override n_workers")
	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed for deterministic runs")
	cmd.Flags().StringVar(&pdfOut, "pdf", "", "write a rendered PDF of the layout to this path")
	cmd.Flags().StringVar(&historyDSN, "history-dsn", "", "Postgres DSN to record this run in run_history")
	cmd.MarkFlagRequired("shapes")

	return cmd
}

// originalPolygonsByShapeID re-extracts (from cache, where possible)
// each distinct shape's rotation-0 polygon for pdfexport, which needs
// the source geometry alongside the layout's transformations.
func originalPolygonsByShapeID(ctx context.Context, extractor extract.ShapeExtractor, inputs []session.ShapeInput, outset int) (map[int]geometry.Polygon, error) {
	out := make(map[int]geometry.Polygon, len(inputs))
	for _, in := range inputs {
		if _, ok := out[in.ShapeID]; ok {
			continue
		}
		poly, err := extractor.Extract(ctx, in.Path, outset)
		if err != nil {
			return nil, err
		}
		out[in.ShapeID] = poly
	}
	return out, nil
}

func recordHistory(ctx context.Context, dsn string, start time.Time, elapsed time.Duration, layout session.Layout, runErr error) error {
	store, err := history.Open(ctx, history.Config{DSN: dsn})
	if err != nil {
		return err
	}
	defer store.Close()

	rec := history.Record{
		ID:          uuid.New(),
		RequestedAt: start,
		DurationMS:  elapsed.Milliseconds(),
	}
	if runErr == nil {
		fitness := layout.Fitness
		bins := len(layout.Bins)
		rec.Fitness = &fitness
		rec.BinsUsed = &bins
	} else {
		msg := runErr.Error()
		rec.Error = &msg
	}
	return store.Record(ctx, rec)
}
