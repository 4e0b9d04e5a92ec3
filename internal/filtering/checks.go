package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/language"
	"github.com/spigell/vettavista/internal/models"
)

const (
	titleLanguageConfidence = 0.25

	poorRating       = 3.5
	lowRating        = 3.9
	lowRatingReviews = 15
)

// posting is the job under evaluation. Checks may record what they learned
// for later steps.
type posting struct {
	models.JobDetailedInfo
	postLanguage string
}

// Check is a single skip rule. Apply returns a non-empty reason when the job
// should be skipped.
type Check interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, p *posting) (string, error)
}

type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type badWordsCheck struct {
	toggle
	base *base
}

func (c *badWordsCheck) Name() string { return "bad_words" }

func (c *badWordsCheck) Apply(_ context.Context, p *posting) (string, error) {
	re, _ := c.base.patterns()
	if re == nil {
		return "", nil
	}
	if word := re.FindString(strings.ToLower(p.Title)); word != "" {
		return "Title contains excluded word: " + word, nil
	}
	return "", nil
}

func (c *badWordsCheck) Status() Status {
	return Status{
		Name:    c.Name(),
		Enabled: c.IsEnabled(),
		Reason:  c.reason,
		Details: map[string]string{"words": strings.Join(c.base.config().BadWords, ",")},
	}
}

type blacklistCheck struct {
	toggle
	store BlacklistLookup
}

func (c *blacklistCheck) Name() string { return "blacklist" }

func (c *blacklistCheck) Apply(_ context.Context, p *posting) (string, error) {
	blacklisted, err := c.store.IsBlacklisted(p.Company)
	if err != nil {
		return "", fmt.Errorf("lookup company %q: %w", p.Company, err)
	}
	if blacklisted {
		return fmt.Sprintf("Company %s is blacklisted", p.Company), nil
	}
	return "", nil
}

func (c *blacklistCheck) Status() Status {
	return Status{Name: c.Name(), Enabled: c.IsEnabled(), Reason: c.reason}
}

type rejectedCheck struct {
	toggle
	store RejectionLookup
}

func (c *rejectedCheck) Name() string { return "previously_rejected" }

func (c *rejectedCheck) Apply(_ context.Context, p *posting) (string, error) {
	rejected, err := c.store.IsRejected(p.JobID)
	if err != nil {
		return "", fmt.Errorf("lookup job %q: %w", p.JobID, err)
	}
	if rejected {
		return fmt.Sprintf("Job %s was previously rejected", p.JobID), nil
	}
	return "", nil
}

func (c *rejectedCheck) Status() Status {
	return Status{Name: c.Name(), Enabled: c.IsEnabled(), Reason: c.reason}
}

// titleLanguageCheck only acts on confident detections since titles are short.
type titleLanguageCheck struct {
	toggle
	base     *base
	detector LanguageDetector
}

func (c *titleLanguageCheck) Name() string { return "title_language" }

func (c *titleLanguageCheck) Apply(_ context.Context, p *posting) (string, error) {
	title := strings.ToLower(p.Title)
	if strings.TrimSpace(title) == "" {
		return "", nil
	}
	if _, remove := c.base.patterns(); remove != nil {
		title = remove.ReplaceAllString(title, "")
	}

	lang, confidence := c.detector.Detect(title, 0)
	if lang == "" || confidence <= titleLanguageConfidence {
		c.base.logger.Debug("language detection confidence too low, skipping language check",
			zap.String("title", p.Title),
			zap.Float64("confidence", confidence),
		)
		return "", nil
	}

	if !language.Contains(c.base.config().Languages, lang) {
		return fmt.Sprintf("Job posting language (%s) not in user's languages", lang), nil
	}
	return "", nil
}

func (c *titleLanguageCheck) Status() Status {
	return Status{
		Name:    c.Name(),
		Enabled: c.IsEnabled(),
		Reason:  c.reason,
		Details: map[string]string{"languages": strings.Join(c.base.config().Languages, ",")},
	}
}

type ratingCheck struct {
	toggle
}

func (c *ratingCheck) Name() string { return "rating" }

func (c *ratingCheck) Apply(_ context.Context, p *posting) (string, error) {
	r := p.GlassdoorRating
	if !r.IsValid {
		return "", nil
	}
	rating := strconv.FormatFloat(r.Rating, 'f', -1, 64)
	switch {
	case r.Rating < poorRating:
		return fmt.Sprintf("Company has poor rating (%s★)", rating), nil
	case r.Rating < lowRating && r.ReviewCount >= lowRatingReviews:
		return fmt.Sprintf("Company has low rating (%s★) with %d reviews", rating, r.ReviewCount), nil
	}
	return "", nil
}

type descriptionCheck struct {
	toggle
}

func (c *descriptionCheck) Name() string { return "description" }

func (c *descriptionCheck) Apply(_ context.Context, p *posting) (string, error) {
	if strings.TrimSpace(p.Description) == "" {
		return "Error getting job description", nil
	}
	return "", nil
}

// postLanguageCheck detects the language of the description and records it
// on the posting for extraction.
type postLanguageCheck struct {
	toggle
	base     *base
	detector LanguageDetector
}

func (c *postLanguageCheck) Name() string { return "post_language" }

func (c *postLanguageCheck) Apply(_ context.Context, p *posting) (string, error) {
	lang, confidence := c.detector.Detect(p.Description, 0)
	if lang == "" {
		lang = language.Fallback
		c.base.logger.Warn("failed to detect job post language, defaulting to english", zap.String("job_id", p.JobID))
	} else {
		c.base.logger.Debug("job post language detected", zap.String("language", lang), zap.Float64("confidence", confidence))
	}
	p.postLanguage = strings.ToUpper(lang)

	if !language.Contains(c.base.config().Languages, p.postLanguage) {
		return "Missing job post language", nil
	}
	return "", nil
}

// skipStatus maps a preliminary skip reason to the status reported for it.
func skipStatus(reason string) models.JobStatus {
	for _, marker := range []string{"Job posting language", "poor rating", "excluded word"} {
		if strings.Contains(reason, marker) {
			return models.StatusConfirmedNoMatch
		}
	}
	return models.StatusNotLikely
}
