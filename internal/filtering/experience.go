package filtering

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/models"
)

const (
	mastersBonus              = 2.0
	defaultRelevantSimilarity = 0.85
	daysPerYear               = 365.25
)

var experienceRe = regexp.MustCompile(`(?i)(?:(?:minimum|min\.?|at least|>\s*)\s*)?(\d+(?:\.\d+)?)\s*(?:\+|\s*-\s*\d+)?\s*(?:years?|yrs?|y(?:ea)?rs?\.?\s+(?:of\s+)?exp(?:erience)?|months?|mo\.?)`)

// ExperienceFromText returns the smallest experience requirement mentioned in
// text, in years. Month values are converted.
func ExperienceFromText(text string) (float64, bool) {
	found := false
	minimum := 0.0
	for _, m := range experienceRe.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(m[0]), "month") {
			value /= 12
		}
		if !found || value < minimum {
			minimum = value
			found = true
		}
	}
	return minimum, found
}

// RequiredExperience prefers the extracted requirement and falls back to the
// description text when none was stated.
func RequiredExperience(description string, extracted models.ExperienceRequirement, log *zap.Logger) float64 {
	fromText, ok := ExperienceFromText(description)

	if extracted.Stated() {
		years := extracted.TotalYears()
		if ok && math.Abs(years-fromText) > 1 && log != nil {
			log.Warn("experience requirement extractors disagree, using extracted value",
				zap.Float64("extracted", years),
				zap.Float64("regex", fromText),
			)
		}
		return years
	}
	if ok {
		if log != nil {
			log.Info("using regex fallback for experience extraction", zap.Float64("years", fromText))
		}
		return fromText
	}
	return 0
}

// relevantExperience sums the durations of resume entries whose title is
// similar enough to the job title, rounded to one decimal.
func (d *Detailed) relevantExperience(ctx context.Context, jobTitle string, cfg Config) (float64, error) {
	threshold := cfg.TitleSimilarity
	if threshold <= 0 {
		threshold = defaultRelevantSimilarity
	}

	now := d.now()
	total := 0.0
	for _, entry := range cfg.Experience {
		similarity, err := d.titles.Similarity(ctx, jobTitle, entry.Title)
		if err != nil {
			return 0, fmt.Errorf("compare titles: %w", err)
		}
		if similarity < threshold {
			d.logger.Debug("skipping experience",
				zap.String("experience_title", entry.Title),
				zap.Float64("similarity", similarity),
			)
			continue
		}

		start, end, err := entry.Period(now)
		if err != nil {
			d.logger.Warn("ignoring experience with invalid dates", zap.Error(err))
			continue
		}
		days := math.Floor(end.Sub(start).Hours() / 24)
		years := days / daysPerYear
		total += years
		d.logger.Debug("including experience",
			zap.String("experience_title", entry.Title),
			zap.Float64("similarity", similarity),
			zap.Float64("years", years),
		)
	}
	return math.Round(total*10) / 10, nil
}

// experienceGate returns a skip reason when the required experience exceeds
// the relevant experience plus bonus and margin.
func (d *Detailed) experienceGate(ctx context.Context, job models.JobDetailedInfo, requirement models.ExperienceRequirement, cfg Config) (string, error) {
	relevant, err := d.relevantExperience(ctx, job.Title, cfg)
	if err != nil {
		return "", err
	}

	required := RequiredExperience(job.Description, requirement, d.logger)
	if required <= 0 {
		return "", nil
	}

	bonus := 0.0
	if cfg.DidMasters && strings.Contains(strings.ToLower(job.Description), "master") {
		bonus = mastersBonus
	}

	if required > relevant+bonus+cfg.ExperienceMargin {
		return fmt.Sprintf("Required experience (%.1f years) exceeds relevant experience (%.1f + %.1f years)",
			required, relevant, cfg.ExperienceMargin), nil
	}
	return "", nil
}
