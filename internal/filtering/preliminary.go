package filtering

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/apperr"
	"github.com/spigell/vettavista/internal/logger"
	"github.com/spigell/vettavista/internal/models"
)

// Preliminary screens job summaries by title, company and rating without
// calling any external model.
type Preliminary struct {
	*base
}

// NewPreliminary builds the preliminary stage. Checks whose lookup is not
// configured are disabled.
func NewPreliminary(deps Deps, cfg Config) *Preliminary {
	b := newBase(deps, cfg, string(models.FilterPreliminary))
	b.checks = []Check{
		&badWordsCheck{base: b},
		&blacklistCheck{store: deps.Blacklist},
		&rejectedCheck{store: deps.History},
		&titleLanguageCheck{base: b, detector: deps.Languages},
		&ratingCheck{},
	}
	disableMissing(b.checks, deps)
	return &Preliminary{base: b}
}

// Filter returns one response per job in input order. A job without an id
// fails the whole request.
func (p *Preliminary) Filter(ctx context.Context, jobs []models.JobInfo) ([]models.JobStatusResponse, error) {
	for _, job := range jobs {
		if missing := job.MissingFields(); len(missing) > 0 {
			return nil, apperr.Validation("missing required fields: %v", missing)
		}
	}

	cfg := p.config()
	results := make([]models.JobStatusResponse, 0, len(jobs))
	step := Step{Initial: len(jobs)}

	for _, job := range jobs {
		started := time.Now()
		result, skipped := p.filterOne(ctx, job, cfg)
		if skipped {
			step.Dropped++
		}
		p.record(result, started)
		results = append(results, result)
	}

	step.Left = step.Initial - step.Dropped
	p.logger.Info("filter step",
		zap.Int("initial", step.Initial),
		zap.Int("dropped", step.Dropped),
		zap.Int("left", step.Left),
	)
	return results, nil
}

func (p *Preliminary) filterOne(ctx context.Context, job models.JobInfo, cfg Config) (models.JobStatusResponse, bool) {
	if cached, ok := p.cachedResult(job.JobID, models.FilterPreliminary); ok {
		return cached, false
	}

	post := &posting{JobDetailedInfo: models.JobDetailedInfo{JobInfo: job}}
	reason, err := p.skip(ctx, post)
	if err != nil {
		p.logger.Error("preliminary checks failed", append(logger.JobFields(job.JobID, job.Title, job.Company), zap.Error(err))...)
		return models.NewResponse(models.StatusError, models.FilterPreliminary, p.now(), "Error in preliminary checks: "+err.Error()), false
	}
	if reason != "" {
		return models.NewResponse(skipStatus(reason), models.FilterPreliminary, p.now(), reason), true
	}

	score, err := p.titles.Match(ctx, job.Title)
	if err != nil {
		p.logger.Error("title matching failed", append(logger.JobFields(job.JobID, job.Title, job.Company), zap.Error(err))...)
		return models.NewResponse(models.StatusError, models.FilterPreliminary, p.now(), "Error in title matching: "+err.Error()), false
	}

	var result models.JobStatusResponse
	switch {
	case score > cfg.HighThreshold:
		result = models.NewResponse(models.StatusLikelyMatch, models.FilterPreliminary, p.now(), "Title matches well")
	case score > cfg.LowThreshold:
		result = models.NewResponse(models.StatusPossibleMatch, models.FilterPreliminary, p.now(), "Title somewhat matches")
	default:
		result = models.NewResponse(models.StatusNotLikely, models.FilterPreliminary, p.now(), "Title does not match well")
	}
	result = result.WithTitleScore(score)

	p.logger.Debug("title scored",
		append(logger.JobFields(job.JobID, job.Title, job.Company),
			zap.Float64("title_score", score),
			zap.String("status", string(result.Status)),
		)...,
	)
	p.cacheResult(job.JobID, result)
	return result, false
}

func disableMissing(checks []Check, deps Deps) {
	if deps.Blacklist == nil {
		DisableByName(checks, "blacklist", "blacklist store is not configured")
	}
	if deps.History == nil {
		DisableByName(checks, "previously_rejected", "history store is not configured")
	}
	if deps.Languages == nil {
		DisableByName(checks, "title_language", "language detector is not configured")
		DisableByName(checks, "post_language", "language detector is not configured")
	}
}
