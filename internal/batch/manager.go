package batch

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/sentiment"
	"ytanalyzer/internal/services"
)

// Status is the lifecycle state of a batch.
type Status string

const (
	StatusStarting  Status = "starting"
	StatusRunning   Status = "running"
	StatusStopping  Status = "stopping"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the batch has finished.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped || s == StatusFailed
}

// Job is a snapshot of one batch.
type Job struct {
	ID              string     `json:"batch_id"`
	Status          Status     `json:"status"`
	Size            int        `json:"size"`
	All             bool       `json:"all"`
	Resume          bool       `json:"resume"`
	Fast            bool       `json:"fast"`
	TotalVideos     int        `json:"total_videos"`
	ProcessedVideos int        `json:"processed_videos"`
	FailedVideos    int        `json:"failed_videos"`
	SkippedVideos   int        `json:"skipped_videos"`
	CommentsScraped int        `json:"comments_scraped"`
	QuotaUsed       int        `json:"quota_used"`
	QuotaExceeded   bool       `json:"quota_exceeded"`
	StartedAt       time.Time  `json:"started_at"`
	StoppedAt       *time.Time `json:"stopped_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Error           string     `json:"error,omitempty"`
	ElapsedSeconds  float64    `json:"elapsed_seconds"`
	ProcessingRate  float64    `json:"processing_rate"`
}

// Options selects the videos and comment budget of a batch.
type Options struct {
	// Size caps the number of most recent videos; zero means every video.
	Size   int
	Resume bool
	// Massive raises the per-video budget to the configured massive count.
	Massive bool
}

// VideoSource lists candidate videos, newest first.
type VideoSource interface {
	VideoIDsByRecency(ctx context.Context, limit int) ([]string, error)
}

// Runner scrapes a list of videos.
type Runner interface {
	Run(ctx context.Context, videoIDs []string, opts sentiment.RunOptions) (sentiment.RunReport, error)
}

// Manager owns the batch table.
type Manager struct {
	videos  VideoSource
	runner  Runner
	logger  *slog.Logger
	fast    int
	massive int
	now     func() time.Time

	mu   sync.Mutex
	jobs map[string]*Job
	done map[string]chan struct{}
}

// NewManager builds a Manager using the configured comment budgets.
func NewManager(cfg *config.Config, videos VideoSource, runner Runner, logger *slog.Logger) *Manager {
	m := &Manager{
		videos:  videos,
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "batch"),
		fast:    20,
		massive: 1000,
		now:     time.Now,
		jobs:    make(map[string]*Job),
		done:    make(map[string]chan struct{}),
	}
	if cfg != nil {
		if cfg.Scraper.CommentsPerVideo > 0 {
			m.fast = cfg.Scraper.CommentsPerVideo
		}
		if cfg.Scraper.MassiveComments > 0 {
			m.massive = cfg.Scraper.MassiveComments
		}
	}
	return m
}

// Start registers a batch and runs it in the background. The batch outlives
// ctx; use Stop to end it.
func (m *Manager) Start(ctx context.Context, opts Options) (Job, error) {
	if opts.Size < 0 {
		return Job{}, services.Wrap(services.ErrValidation, "batch", "start", "size must not be negative", nil)
	}
	m.mu.Lock()
	for _, job := range m.jobs {
		if !job.Status.Terminal() {
			m.mu.Unlock()
			return Job{}, services.Wrap(services.ErrConflict, "batch", "start", "batch "+job.ID+" is still "+string(job.Status), nil)
		}
	}
	id := m.newID()
	job := &Job{
		ID:        id,
		Status:    StatusStarting,
		Size:      opts.Size,
		All:       opts.Size == 0,
		Resume:    opts.Resume,
		Fast:      !opts.Massive,
		StartedAt: m.now().UTC(),
	}
	done := make(chan struct{})
	m.jobs[id] = job
	m.done[id] = done
	snapshot := *job
	m.mu.Unlock()

	runCtx := services.WithBatchID(context.WithoutCancel(ctx), id)
	go m.run(runCtx, id, opts, done)
	return snapshot, nil
}

func (m *Manager) newID() string {
	for {
		id := uuid.NewString()[:8]
		if _, exists := m.jobs[id]; !exists {
			return id
		}
	}
}

func (m *Manager) run(ctx context.Context, id string, opts Options, done chan struct{}) {
	defer close(done)
	logger := logging.WithContext(ctx, m.logger)

	ids, err := m.videos.VideoIDsByRecency(ctx, opts.Size)
	if err != nil {
		m.finish(id, sentiment.RunReport{}, err)
		logging.ErrorWithContext(logger, "batch could not list videos", "batch_failed", logging.Error(err))
		return
	}

	target := m.fast
	if opts.Massive {
		target = m.massive
	}
	if !m.update(id, func(job *Job) {
		job.TotalVideos = len(ids)
		if job.Status == StatusStarting {
			job.Status = StatusRunning
		}
	}) {
		m.finish(id, sentiment.RunReport{Requested: len(ids)}, nil)
		return
	}
	logger.Info("batch started",
		logging.Int("videos", len(ids)),
		logging.Int("target", target),
		logging.Bool("resume", opts.Resume),
	)

	report, err := m.runner.Run(ctx, ids, sentiment.RunOptions{
		Target: target,
		Resume: opts.Resume,
		Stop:   func() bool { return m.stopped(id) },
		OnVideo: func(result sentiment.VideoResult) {
			m.update(id, func(job *Job) {
				job.ProcessedVideos++
				if result.Err != nil {
					job.FailedVideos++
				}
				job.CommentsScraped += result.Fetched
				job.QuotaUsed += result.QuotaUsed
				job.refreshRate(m.now())
			})
		},
	})
	job := m.finish(id, report, err)
	attrs := []logging.Attr{
		logging.String("status", string(job.Status)),
		logging.Int("processed_videos", job.ProcessedVideos),
		logging.Int("comments_scraped", job.CommentsScraped),
		logging.Int("quota_used", job.QuotaUsed),
		logging.Float64("elapsed_seconds", job.ElapsedSeconds),
	}
	if job.Status == StatusFailed {
		logging.ErrorWithContext(logger, "batch failed", "batch_failed", append(attrs, logging.String("error", job.Error))...)
		return
	}
	logger.Info("batch finished", logging.Args(attrs...)...)
}

func (m *Manager) finish(id string, report sentiment.RunReport, err error) Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	now := m.now().UTC()
	job.SkippedVideos = report.Skipped
	job.QuotaExceeded = report.QuotaExceeded
	switch {
	case job.Status == StatusStopping:
		job.Status = StatusStopped
	case err != nil:
		job.Status = StatusFailed
		job.Error = services.Describe(err)
	default:
		job.Status = StatusCompleted
	}
	job.FinishedAt = &now
	job.refreshRate(now)
	return *job
}

func (j *Job) refreshRate(now time.Time) {
	elapsed := now.Sub(j.StartedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	j.ElapsedSeconds = elapsed
	if elapsed > 0 {
		j.ProcessingRate = float64(j.ProcessedVideos) / elapsed
	}
}

// update applies fn under the lock. It reports false once a stop has been
// requested.
func (m *Manager) update(id string, fn func(*Job)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return job.Status != StatusStopping
}

func (m *Manager) stopped(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	return !ok || job.Status == StatusStopping
}

// Stop asks the batch to stop. The job stays stopping while the worker
// finishes the videos in flight, and becomes stopped when it exits. Stopping
// a finished or stopping batch is a no-op.
func (m *Manager) Stop(id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, notFound(id)
	}
	if !job.Status.Terminal() && job.Status != StatusStopping {
		now := m.now().UTC()
		job.Status = StatusStopping
		job.StoppedAt = &now
		m.logger.Info("batch stop requested", logging.BatchID(id))
	}
	return *job, nil
}

// Status returns a snapshot of the batch.
func (m *Manager) Status(id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, notFound(id)
	}
	snapshot := *job
	if !snapshot.Status.Terminal() {
		snapshot.refreshRate(m.now())
	}
	return snapshot, nil
}

// List returns every batch, newest first.
func (m *Manager) List() []Job {
	m.mu.Lock()
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	m.mu.Unlock()
	slices.SortFunc(jobs, func(a, b Job) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return jobs
}

// Wait blocks until the batch worker exits or ctx ends.
func (m *Manager) Wait(ctx context.Context, id string) (Job, error) {
	m.mu.Lock()
	done, ok := m.done[id]
	m.mu.Unlock()
	if !ok {
		return Job{}, notFound(id)
	}
	select {
	case <-done:
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
	return m.Status(id)
}

func notFound(id string) error {
	return services.Wrap(services.ErrNotFound, "batch", "lookup", "unknown batch "+id, nil)
}
