package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polynest/nester/internal/extract"
	"github.com/polynest/nester/internal/history"
	"github.com/polynest/nester/internal/logging"
	"github.com/polynest/nester/internal/metrics"
	"github.com/polynest/nester/internal/session"
)

// JobStore tracks in-flight and completed jobs for GET /nest/{id}. It
// is process-local: a production deployment with multiple replicas
// relies on Redis progress events for cross-replica visibility and
// routes GET /nest/{id} back to whichever replica owns the job, which
// this package leaves to the deployment's load balancer.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore returns an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

func (s *JobStore) put(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

// Get returns the job for id, if any.
func (s *JobStore) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

func (s *JobStore) update(id string, mutate func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		mutate(j)
		j.UpdatedAt = time.Now()
	}
}

// Server wires the HTTP front end to the core session API and its
// optional collaborators.
type Server struct {
	Extractor extract.ShapeExtractor
	Jobs      *JobStore
	Progress  *RedisProgressPublisher // optional
	History   *history.Store          // optional
	Metrics   *metrics.Metrics        // optional
	Logger    *logging.Logger
	AssetRoot string // requests may only reference paths under this root
	JWTSecret []byte
	RateRPS   float64
	RateBurst int
}

// Router builds the gin.Engine for this server.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	limiter := NewRateLimiter(s.RateRPS, s.RateBurst)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	protected := r.Group("/")
	protected.Use(limiter.Middleware())
	protected.Use(JWTAuth(s.JWTSecret))
	protected.POST("/nest", s.handlePostNest)
	protected.GET("/nest/:id", s.handleGetNest)

	return r
}

// resolveAssetPath resolves a request-supplied path relative to
// AssetRoot and rejects any path that would escape it.
func (s *Server) resolveAssetPath(requested string) (string, error) {
	cleanRoot := filepath.Clean(s.AssetRoot)
	joined := filepath.Join(cleanRoot, requested)
	rel, err := filepath.Rel(cleanRoot, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes asset root", requested)
	}
	return joined, nil
}

func (s *Server) handlePostNest(c *gin.Context) {
	var req NestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for i, shape := range req.Shapes {
		resolved, err := s.resolveAssetPath(shape.Path)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.Shapes[i].Path = resolved
	}

	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.Jobs.put(job)

	go s.runJob(context.Background(), job.ID, req)

	c.JSON(http.StatusAccepted, gin.H{"id": job.ID, "status": job.Status})
}

func (s *Server) handleGetNest(c *gin.Context) {
	id := c.Param("id")
	job, ok := s.Jobs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) runJob(ctx context.Context, jobID string, req NestRequest) {
	start := time.Now()
	s.Jobs.update(jobID, func(j *Job) { j.Status = JobRunning })
	if s.Metrics != nil {
		s.Metrics.ObserveSessionStart()
	}

	genStart := time.Now()
	progress := func(stage string, index, total int) {
		if stage == "generation" && s.Metrics != nil {
			s.Metrics.ObserveGeneration(time.Since(genStart))
			genStart = time.Now()
		}
		if s.Progress == nil {
			return
		}
		if err := s.Progress.Publish(ctx, jobID, ProgressEvent{Stage: stage, Index: index, Total: total}); err != nil && s.Logger != nil {
			s.Logger.Warn("failed to publish progress", "job_id", jobID, "err", err)
		}
	}

	params := session.Params{
		NumGenerations: req.Params.NumGenerations,
		PopulationSize: req.Params.PopulationSize,
		MutationRate:   req.Params.MutationRate,
		Rotations:      req.Params.Rotations,
		NWorkers:       req.Params.NWorkers,
		OutsetDistance: req.OutsetDistance,
		Seed:           req.Params.Seed,
	}
	bin := session.BinSize{WidthPx: req.Bin.WidthPx, HeightPx: req.Bin.HeightPx}

	layout, err := session.RunNest(ctx, s.Extractor, toSessionInputs(req), bin, params, progress)
	elapsed := time.Since(start)

	if s.Metrics != nil {
		unplaced := 0
		if err == nil {
			unplaced = countUnplaced(req, layout)
		}
		s.Metrics.ObserveSessionEnd(err, unplaced, layout.Fitness, elapsed)
	}

	if s.History != nil {
		rec := history.Record{
			ID:          uuid.MustParse(jobID),
			RequestedAt: start,
			DurationMS:  elapsed.Milliseconds(),
		}
		if err == nil {
			fitness := layout.Fitness
			bins := len(layout.Bins)
			rec.Fitness = &fitness
			rec.BinsUsed = &bins
		} else {
			msg := err.Error()
			rec.Error = &msg
		}
		if recErr := s.History.Record(ctx, rec); recErr != nil && s.Logger != nil {
			s.Logger.Warn("failed to record run history", "job_id", jobID, "err", recErr)
		}
	}

	if err != nil {
		s.Jobs.update(jobID, func(j *Job) {
			j.Status = JobFailed
			j.Error = err.Error()
		})
		return
	}

	s.Jobs.update(jobID, func(j *Job) {
		j.Status = JobDone
		j.Result = toNestResponse(layout)
	})
}

func countUnplaced(req NestRequest, layout session.Layout) int {
	requested := 0
	for _, s := range req.Shapes {
		requested += s.Count
	}
	placed := 0
	for _, bin := range layout.Bins {
		placed += len(bin)
	}
	if requested > placed {
		return requested - placed
	}
	return 0
}
