package filtering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/ai"
	"github.com/spigell/vettavista/internal/language"
	"github.com/spigell/vettavista/internal/logger"
	"github.com/spigell/vettavista/internal/models"
)

const (
	highRiskScore       = 75
	mediumRiskScore     = 65
	highRiskReasons     = 3
	mediumRiskReasons   = 2
	visaUnsupportedText = "Job does not provide visa support"
)

// Detailed evaluates a full posting: skip checks, title score, extracted
// requirements, experience and skills.
type Detailed struct {
	*base
	extractor ai.Extractor
	skills    SkillEvaluator
}

// NewDetailed builds the detailed stage.
func NewDetailed(deps Deps, cfg Config, extractor ai.Extractor, skills SkillEvaluator) *Detailed {
	b := newBase(deps, cfg, string(models.FilterDetailed))
	b.checks = []Check{
		&descriptionCheck{},
		&blacklistCheck{store: deps.Blacklist},
		&rejectedCheck{store: deps.History},
		&postLanguageCheck{base: b, detector: deps.Languages},
	}
	disableMissing(b.checks, deps)
	return &Detailed{base: b, extractor: extractor, skills: skills}
}

// Filter never fails: errors become a response with status error, which is
// never cached.
func (d *Detailed) Filter(ctx context.Context, job models.JobDetailedInfo) models.JobStatusResponse {
	started := time.Now()
	result := d.filter(ctx, job)
	d.record(result, started)
	return result
}

func (d *Detailed) filter(ctx context.Context, job models.JobDetailedInfo) models.JobStatusResponse {
	log := logger.WithFields(d.logger, logger.JobFields(job.JobID, job.Title, job.Company)...)
	d.cache.SetJobInfo(job)

	if cached, ok := d.cachedResult(job.JobID, models.FilterDetailed); ok {
		return cached
	}

	cfg := d.config()
	post := &posting{JobDetailedInfo: job}

	reason, err := d.skip(ctx, post)
	if err != nil {
		return d.failed(log, err, nil)
	}
	if reason != "" {
		result := models.NewResponse(models.StatusConfirmedNoMatch, models.FilterDetailed, d.now(), reason).WithMatch(false)
		d.cacheResult(job.JobID, result)
		return result
	}
	postLanguage := post.postLanguage
	if postLanguage == "" {
		postLanguage = language.Fallback
	}

	score, err := d.titles.Match(ctx, job.Title)
	if err != nil {
		return d.failed(log, fmt.Errorf("title matching: %w", err), nil)
	}

	analysis, err := d.cache.AnalysisOrCompute(ctx, job.JobID, func(ctx context.Context) (*models.JobAnalysis, error) {
		log.Info("no cached analysis, performing extraction", zap.String("post_language", postLanguage))
		return d.extractor.Extract(ctx, job.Description, postLanguage)
	})
	if err != nil {
		return d.failed(log, err, &score)
	}

	if status, reason := riskGate(analysis); status != "" {
		result := models.NewResponse(status, models.FilterDetailed, d.now(), reason).WithMatch(false).WithTitleScore(score)
		d.cacheResult(job.JobID, result)
		return result
	}

	reason, err = d.experienceGate(ctx, job, analysis.Experience, cfg)
	if err != nil {
		return d.failed(log, err, &score)
	}
	if reason != "" {
		result := models.NewResponse(models.StatusConfirmedNoMatch, models.FilterDetailed, d.now(), reason).WithMatch(false).WithTitleScore(score)
		d.cacheResult(job.JobID, result)
		return result
	}

	match, reasons, err := d.skills.Evaluate(ctx, analysis.Skills)
	if err != nil {
		return d.failed(log, fmt.Errorf("skill matching: %w", err), &score)
	}

	status := models.StatusConfirmedNoMatch
	switch {
	case match && score > cfg.HighThreshold:
		status = models.StatusConfirmedMatch
	case match && score > cfg.LowThreshold:
		status = models.StatusPossibleMatch
	}

	result := models.NewResponse(status, models.FilterDetailed, d.now(), reasons...).WithMatch(match).WithTitleScore(score)
	log.Info("detailed filter complete",
		zap.String("status", string(status)),
		zap.Float64("title_score", score),
		zap.Bool("skills_match", match),
	)
	d.cacheResult(job.JobID, result)
	return result
}

func (d *Detailed) failed(log *zap.Logger, err error, score *float64) models.JobStatusResponse {
	log.Error("error in detailed analysis", zap.Error(err))
	result := models.NewResponse(models.StatusError, models.FilterDetailed, d.now(), "Error in analysis: "+err.Error()).WithMatch(false)
	if score != nil {
		result = result.WithTitleScore(*score)
	}
	return result
}

// riskGate rejects postings without visa support or with high red flag
// scores. An empty status means the posting passes.
func riskGate(analysis *models.JobAnalysis) (models.JobStatus, string) {
	if analysis.VisaSupport == models.VisaUnsupported {
		return models.StatusConfirmedNoMatch, visaUnsupportedText
	}

	flags := analysis.RedFlags
	switch {
	case flags.Score >= highRiskScore:
		return models.StatusConfirmedNoMatch, "High risk: " + strings.Join(firstN(flags.Reasons, highRiskReasons), "; ")
	case flags.Score >= mediumRiskScore:
		return models.StatusNotLikely, "Medium-high risk: " + strings.Join(firstN(flags.Reasons, mediumRiskReasons), "; ")
	}
	return "", ""
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
