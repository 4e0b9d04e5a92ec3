package matching

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/embedding"
)

const minTitleScore = 0.1

type preferredTitle struct {
	title  string
	vec    []float32
	domain Domain
	level  int
}

// TitleMatcher scores a job title against the candidate's preferred titles.
// Scores are embedding cosine similarity reduced by domain and seniority
// penalties, floored at 0.1.
type TitleMatcher struct {
	embedder  embedding.Embedder
	cacheSize int
	logger    *zap.Logger

	mu         sync.Mutex
	titles     []string
	preferred  []preferredTitle
	prototypes map[Domain][]float32
	scores     map[string]float64
}

// NewTitleMatcher creates a matcher. cacheSize bounds the score memo; once it
// is full new scores are computed but not stored.
func NewTitleMatcher(embedder embedding.Embedder, preferredTitles []string, cacheSize int, logger *zap.Logger) *TitleMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TitleMatcher{
		embedder:  embedder,
		cacheSize: cacheSize,
		logger:    logger,
		titles:    cleanTitles(preferredTitles),
		scores:    make(map[string]float64),
	}
}

// SetPreferredTitles replaces the preferred titles and drops memoised scores.
func (m *TitleMatcher) SetPreferredTitles(titles []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles = cleanTitles(titles)
	m.preferred = nil
	m.scores = make(map[string]float64)
}

// Match returns the best adjusted score of title against the preferred titles.
func (m *TitleMatcher) Match(ctx context.Context, title string) (float64, error) {
	m.mu.Lock()
	if score, ok := m.scores[title]; ok {
		m.mu.Unlock()
		return score, nil
	}
	m.mu.Unlock()

	preferred, err := m.preferredTitles(ctx)
	if err != nil {
		return 0, err
	}
	if len(preferred) == 0 {
		m.logger.Warn("no preferred titles configured; title score is 0", zap.String("title", title))
		return 0, nil
	}

	vecs, err := m.embedder.Embed(ctx, []string{title})
	if err != nil {
		return 0, fmt.Errorf("embed title: %w", err)
	}
	domain, err := m.classify(ctx, title, vecs[0])
	if err != nil {
		return 0, err
	}
	level := SeniorityLevel(title)

	best := math.Inf(-1)
	for _, p := range preferred {
		similarity := embedding.Cosine(vecs[0], p.vec)
		adjusted := similarity - DomainPenalty(domain, p.domain) - SeniorityPenalty(level, p.level)
		adjusted = math.Max(minTitleScore, adjusted)
		if adjusted > best {
			best = adjusted
		}
	}

	m.logger.Debug("title scored",
		zap.String("title", title),
		zap.String("domain", string(domain)),
		zap.Int("seniority", level),
		zap.Float64("score", best),
	)

	m.mu.Lock()
	if len(m.scores) < m.cacheSize {
		m.scores[title] = best
	}
	m.mu.Unlock()

	return best, nil
}

// Classify returns the domain of title.
func (m *TitleMatcher) Classify(ctx context.Context, title string) (Domain, error) {
	return m.classify(ctx, title, nil)
}

// Similarity is the plain embedding cosine of two titles.
func (m *TitleMatcher) Similarity(ctx context.Context, a, b string) (float64, error) {
	return embedding.Similarity(ctx, m.embedder, a, b)
}

func (m *TitleMatcher) classify(ctx context.Context, title string, vec []float32) (Domain, error) {
	lower := strings.ToLower(title)
	if isGeneralRole(lower) {
		return DomainGeneral, nil
	}
	if d, ok := keywordDomain(lower); ok {
		return d, nil
	}

	prototypes, err := m.domainPrototypes(ctx)
	if err != nil {
		return "", err
	}
	if vec == nil {
		vecs, err := m.embedder.Embed(ctx, []string{title})
		if err != nil {
			return "", fmt.Errorf("embed title: %w", err)
		}
		vec = vecs[0]
	}

	best, bestScore := DomainGeneral, math.Inf(-1)
	for _, d := range prototypeDomains() {
		if score := embedding.Cosine(vec, prototypes[d]); score > bestScore {
			best, bestScore = d, score
		}
	}
	if bestScore < minDomainSimilarity {
		return DomainGeneral, nil
	}
	return best, nil
}

func (m *TitleMatcher) preferredTitles(ctx context.Context) ([]preferredTitle, error) {
	m.mu.Lock()
	titles := m.titles
	ready := m.preferred
	m.mu.Unlock()

	if ready != nil || len(titles) == 0 {
		return ready, nil
	}

	vecs, err := m.embedder.Embed(ctx, titles)
	if err != nil {
		return nil, fmt.Errorf("embed preferred titles: %w", err)
	}

	preferred := make([]preferredTitle, len(titles))
	for i, title := range titles {
		domain, err := m.classify(ctx, title, vecs[i])
		if err != nil {
			return nil, err
		}
		preferred[i] = preferredTitle{title: title, vec: vecs[i], domain: domain, level: SeniorityLevel(title)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sameTitles(m.titles, titles) {
		m.preferred = preferred
	}
	return preferred, nil
}

func (m *TitleMatcher) domainPrototypes(ctx context.Context) (map[Domain][]float32, error) {
	m.mu.Lock()
	ready := m.prototypes
	m.mu.Unlock()
	if ready != nil {
		return ready, nil
	}

	prototypes := make(map[Domain][]float32, len(domainPrototypes))
	for _, d := range prototypeDomains() {
		vecs, err := m.embedder.Embed(ctx, domainPrototypes[d])
		if err != nil {
			return nil, fmt.Errorf("embed %s prototypes: %w", d, err)
		}
		mean, err := embedding.Mean(vecs)
		if err != nil {
			return nil, fmt.Errorf("average %s prototypes: %w", d, err)
		}
		prototypes[d] = mean
	}

	m.mu.Lock()
	m.prototypes = prototypes
	m.mu.Unlock()
	return prototypes, nil
}

func cleanTitles(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func sameTitles(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
