// Package cache keeps per-job artifacts produced by the filter pipeline and
// the application workflow.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/metrics"
	"github.com/spigell/vettavista/internal/models"
)

// FilterResultTTL is the age after which a filter result is discarded.
const FilterResultTTL = 7 * 24 * time.Hour

const (
	nsInfo        = "info"
	nsAnalysis    = "analysis"
	nsResume      = "resume"
	nsCoverLetter = "cover_letter"
	nsFilter      = "filter_result"
)

// JobCache stores job info, analysis, customized resume, cover letter and
// filter results keyed by job id. Values are copied on the way in and out.
type JobCache struct {
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu          sync.RWMutex
	info        map[string]models.JobDetailedInfo
	analysis    map[string]*models.JobAnalysis
	resumes     map[string]*models.Resume
	coverLetter map[string]string
	results     map[string]models.JobStatusResponse

	// serialises AnalysisOrCompute per job
	computeMu sync.Mutex
	computing map[string]*sync.Mutex
}

type Option func(*JobCache)

// WithClock overrides the wall clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *JobCache) { c.now = now }
}

// WithTTL overrides FilterResultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *JobCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func New(logger *zap.Logger, opts ...Option) *JobCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &JobCache{
		logger:    logger,
		ttl:       FilterResultTTL,
		now:       time.Now,
		computing: make(map[string]*sync.Mutex),
	}
	c.reset()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *JobCache) reset() {
	c.info = make(map[string]models.JobDetailedInfo)
	c.analysis = make(map[string]*models.JobAnalysis)
	c.resumes = make(map[string]*models.Resume)
	c.coverLetter = make(map[string]string)
	c.results = make(map[string]models.JobStatusResponse)
}

// Clear drops every namespace.
func (c *JobCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.logger.Info("job cache cleared")
}

func (c *JobCache) SetJobInfo(info models.JobDetailedInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info[info.JobID] = info
}

func (c *JobCache) JobInfo(jobID string) (models.JobDetailedInfo, bool) {
	c.mu.RLock()
	info, ok := c.info[jobID]
	c.mu.RUnlock()
	observe(nsInfo, ok)
	return info, ok
}

func (c *JobCache) SetAnalysis(jobID string, analysis *models.JobAnalysis) {
	if analysis == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analysis[jobID] = analysis.Clone()
}

func (c *JobCache) Analysis(jobID string) (*models.JobAnalysis, bool) {
	c.mu.RLock()
	a, ok := c.analysis[jobID]
	c.mu.RUnlock()
	observe(nsAnalysis, ok)
	return a.Clone(), ok
}

// AnalysisOrCompute returns the cached analysis of jobID or stores the result
// of compute. Concurrent callers for the same job wait for a single compute.
func (c *JobCache) AnalysisOrCompute(ctx context.Context, jobID string, compute func(context.Context) (*models.JobAnalysis, error)) (*models.JobAnalysis, error) {
	lock := c.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()

	if a, ok := c.Analysis(jobID); ok {
		return a, nil
	}

	a, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	c.SetAnalysis(jobID, a)
	return a.Clone(), nil
}

func (c *JobCache) jobLock(jobID string) *sync.Mutex {
	c.computeMu.Lock()
	defer c.computeMu.Unlock()
	lock, ok := c.computing[jobID]
	if !ok {
		lock = &sync.Mutex{}
		c.computing[jobID] = lock
	}
	return lock
}

func (c *JobCache) SetResume(jobID string, resume *models.Resume) {
	if resume == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumes[jobID] = resume.Clone()
}

func (c *JobCache) Resume(jobID string) (*models.Resume, bool) {
	c.mu.RLock()
	r, ok := c.resumes[jobID]
	c.mu.RUnlock()
	observe(nsResume, ok)
	return r.Clone(), ok
}

func (c *JobCache) SetCoverLetter(jobID, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coverLetter[jobID] = body
}

func (c *JobCache) CoverLetter(jobID string) (string, bool) {
	c.mu.RLock()
	body, ok := c.coverLetter[jobID]
	c.mu.RUnlock()
	observe(nsCoverLetter, ok)
	return body, ok
}

// SetFilterResult stores result unless its status is error. It reports
// whether the result was stored.
func (c *JobCache) SetFilterResult(jobID string, result models.JobStatusResponse) bool {
	if result.Status == models.StatusError {
		c.logger.Debug("not caching error result", zap.String("job_id", jobID))
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[jobID] = result.Clone()
	return true
}

// FilterResult returns the cached result of jobID if it is of filterType and
// younger than the TTL. Expired entries are removed.
func (c *JobCache) FilterResult(jobID string, filterType models.FilterType) (models.JobStatusResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.results[jobID]
	if !ok {
		observe(nsFilter, false)
		return models.JobStatusResponse{}, false
	}

	if c.now().Sub(result.Time()) > c.ttl {
		delete(c.results, jobID)
		c.logger.Debug("filter result expired", zap.String("job_id", jobID))
		metrics.CacheLookups.WithLabelValues(nsFilter, "expired").Inc()
		return models.JobStatusResponse{}, false
	}

	if result.FilterType != filterType {
		observe(nsFilter, false)
		return models.JobStatusResponse{}, false
	}

	observe(nsFilter, true)
	return result.Clone(), true
}

func observe(namespace string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	metrics.CacheLookups.WithLabelValues(namespace, outcome).Inc()
}
