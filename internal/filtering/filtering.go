// Package filtering implements the two stage job matching pipeline: a cheap
// preliminary stage over job summaries and a detailed stage that relies on
// structured extraction of the full posting.
package filtering

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/cache"
	"github.com/spigell/vettavista/internal/config"
	"github.com/spigell/vettavista/internal/logger"
	"github.com/spigell/vettavista/internal/metrics"
	"github.com/spigell/vettavista/internal/models"
)

// TitleScorer scores job titles against the preferred titles and compares
// two titles directly.
type TitleScorer interface {
	Match(ctx context.Context, title string) (float64, error)
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// SkillEvaluator decides whether the candidate covers the extracted skills.
type SkillEvaluator interface {
	Evaluate(ctx context.Context, skills models.SkillSet) (bool, []string, error)
}

// LanguageDetector never fails; it falls back to a default language.
type LanguageDetector interface {
	Detect(text string, k int) (string, float64)
}

type BlacklistLookup interface {
	IsBlacklisted(company string) (bool, error)
}

type RejectionLookup interface {
	IsRejected(jobID string) (bool, error)
}

// Config contains the settings consumed by both stages.
type Config struct {
	HighThreshold         float64
	LowThreshold          float64
	ExperienceMargin      float64
	TitleSimilarity       float64
	BadWords              []string
	LangDetectRemoveWords []string
	Languages             []string
	Experience            []models.ExperienceEntry
	DidMasters            bool
}

// ConfigFromSettings extracts the filter configuration from the settings.
func ConfigFromSettings(s *config.Settings) Config {
	if s == nil {
		s = config.Default()
	}
	return Config{
		HighThreshold:         s.Filter.HighThreshold,
		LowThreshold:          s.Filter.LowThreshold,
		ExperienceMargin:      s.Filter.ExperienceMargin,
		TitleSimilarity:       s.Filter.TitleSimilarity,
		BadWords:              append([]string{}, s.Search.BadWords...),
		LangDetectRemoveWords: append([]string{}, s.Search.LangDetectRemoveWords...),
		Languages:             s.Languages(),
		Experience:            append([]models.ExperienceEntry{}, s.Profile.Resume.Experience...),
		DidMasters:            s.Profile.Resume.DidMasters,
	}
}

// Deps aggregates dependencies shared across both stages.
type Deps struct {
	Cache     *cache.JobCache
	Blacklist BlacklistLookup
	History   RejectionLookup
	Titles    TitleScorer
	Languages LanguageDetector
	Logger    *zap.Logger
}

// Step describes the result of one filter run.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a check.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// statusProvider is implemented by checks that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// DisableByName marks a check with the provided name as disabled while keeping it in the list.
func DisableByName(checks []Check, name, reason string) {
	for _, c := range checks {
		if c.Name() == name {
			c.Disable(reason)
		}
	}
}

// Describe returns status entries for the provided checks.
func Describe(checks []Check) []Status {
	statuses := make([]Status, 0, len(checks))
	for _, c := range checks {
		if reporter, ok := c.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    c.Name(),
			Enabled: c.IsEnabled(),
		})
	}
	return statuses
}

// base holds what both stages share: the cache, the skip checks and the
// hot reloadable configuration.
type base struct {
	cache  *cache.JobCache
	titles TitleScorer
	logger *zap.Logger
	now    func() time.Time
	checks []Check

	mu          sync.RWMutex
	cfg         Config
	badWords    *regexp.Regexp
	removeWords *regexp.Regexp
}

func newBase(deps Deps, cfg Config, name string) *base {
	if deps.Cache == nil {
		deps.Cache = cache.New(deps.Logger)
	}
	b := &base{
		cache:  deps.Cache,
		titles: deps.Titles,
		logger: logger.WithFields(deps.Logger, zap.String("filter", name)),
		now:    time.Now,
	}
	b.SetConfig(cfg)
	return b
}

// SetConfig replaces the configuration. It is safe to call while filtering.
func (b *base) SetConfig(cfg Config) {
	badWords := wordsPattern(cfg.BadWords, true)
	removeWords := wordsPattern(cfg.LangDetectRemoveWords, false)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg
	b.badWords = badWords
	b.removeWords = removeWords
}

func (b *base) config() Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg
}

func (b *base) patterns() (*regexp.Regexp, *regexp.Regexp) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.badWords, b.removeWords
}

// Checks reports the state of the skip checks of this stage.
func (b *base) Checks() []Status {
	return Describe(b.checks)
}

func (b *base) cachedResult(jobID string, filterType models.FilterType) (models.JobStatusResponse, bool) {
	result, ok := b.cache.FilterResult(jobID, filterType)
	if ok {
		b.logger.Debug("cache hit", zap.String(logger.FieldJobID, jobID), zap.String("status", string(result.Status)))
	}
	return result, ok
}

func (b *base) cacheResult(jobID string, result models.JobStatusResponse) {
	if b.cache.SetFilterResult(jobID, result) {
		b.logger.Debug("cached filter result", zap.String(logger.FieldJobID, jobID), zap.String("status", string(result.Status)))
	}
}

// skip runs the enabled checks in order and returns the first skip reason.
func (b *base) skip(ctx context.Context, p *posting) (string, error) {
	for _, c := range b.checks {
		if !c.IsEnabled() {
			continue
		}
		reason, err := c.Apply(ctx, p)
		if err != nil {
			return "", fmt.Errorf("%s: %w", c.Name(), err)
		}
		if reason != "" {
			b.logger.Info("skipping job",
				append(logger.JobFields(p.JobID, p.Title, p.Company),
					zap.String("check", c.Name()),
					zap.String("reason", reason),
				)...,
			)
			return reason, nil
		}
	}
	return "", nil
}

func (b *base) record(result models.JobStatusResponse, started time.Time) {
	metrics.FilterResults.WithLabelValues(string(result.FilterType), string(result.Status)).Inc()
	metrics.FilterDuration.WithLabelValues(string(result.FilterType)).Observe(time.Since(started).Seconds())
}

// wordsPattern builds an alternation of the quoted words, optionally bounded
// by word boundaries. Empty input yields nil.
func wordsPattern(words []string, bounded bool) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	expr := strings.Join(quoted, "|")
	if bounded {
		expr = `\b(` + expr + `)\b`
	}
	return regexp.MustCompile(`(?i)` + expr)
}
