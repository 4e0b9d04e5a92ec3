package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/spigell/vettavista/internal/embedding"
	"github.com/spigell/vettavista/internal/models"
)

const (
	fuzzyThreshold    = 85.0
	semanticThreshold = 0.85

	MethodFuzzy    = "fuzzy"
	MethodSemantic = "semantic"
)

// SkillMatch pairs a required skill with the closest candidate skill.
type SkillMatch struct {
	Required  string
	Candidate string
	Method    string
	Score     float64
}

type skillPair struct{ a, b string }

func skillPairOf(a, b string) skillPair {
	a, b = normalizeSkill(a), normalizeSkill(b)
	if a > b {
		a, b = b, a
	}
	return skillPair{a, b}
}

// SkillMatcher decides whether the candidate covers a posting's required
// skills and languages.
type SkillMatcher struct {
	embedder embedding.Embedder
	minRatio float64
	logger   *zap.Logger

	mu        sync.RWMutex
	candidate []string
	languages map[string]struct{}
	skip      map[string]string
	pairs     map[skillPair]float64
}

// NewSkillMatcher builds a matcher over the resume skills. The "languages"
// category provides the spoken languages.
func NewSkillMatcher(embedder embedding.Embedder, resumeSkills map[string][]string, skip []string, minRatio float64, logger *zap.Logger) *SkillMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SkillMatcher{
		embedder: embedder,
		minRatio: minRatio,
		logger:   logger,
		pairs:    make(map[skillPair]float64),
	}
	m.SetCandidateSkills(resumeSkills, skip)
	return m
}

// SetCandidateSkills replaces the candidate profile and the skip list.
func (m *SkillMatcher) SetCandidateSkills(resumeSkills map[string][]string, skip []string) {
	candidate := make([]string, 0)
	seen := make(map[string]struct{})
	languages := make(map[string]struct{})

	categories := make([]string, 0, len(resumeSkills))
	for c := range resumeSkills {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		isLanguage := strings.EqualFold(category, "languages") || strings.EqualFold(category, "language")
		for _, skill := range resumeSkills[category] {
			skill = strings.TrimSpace(norm.NFKC.String(skill))
			if skill == "" {
				continue
			}
			if isLanguage {
				languages[strings.ToUpper(skill)] = struct{}{}
				continue
			}
			key := strings.ToLower(skill)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			candidate = append(candidate, skill)
		}
	}

	skipSet := make(map[string]string, len(skip))
	for _, s := range skip {
		if s = strings.TrimSpace(s); s != "" {
			skipSet[strings.ToLower(s)] = s
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidate = candidate
	m.languages = languages
	m.skip = skipSet
	m.pairs = make(map[skillPair]float64)
}

// Evaluate returns whether the candidate matches and the reasons behind it.
func (m *SkillMatcher) Evaluate(ctx context.Context, skills models.SkillSet) (bool, []string, error) {
	m.mu.RLock()
	candidate := m.candidate
	languages := m.languages
	skip := m.skip
	m.mu.RUnlock()

	var missingLangs []string
	for _, lang := range skills.Languages.Required {
		upper := strings.ToUpper(strings.TrimSpace(lang))
		if upper == "" {
			continue
		}
		if _, ok := languages[upper]; !ok {
			missingLangs = append(missingLangs, upper)
		}
	}
	if len(missingLangs) > 0 {
		sort.Strings(missingLangs)
		return false, []string{"Missing required languages: " + strings.Join(missingLangs, ", ")}, nil
	}

	required := RequiredSkills(skills)
	if len(required) == 0 {
		return false, []string{"No required skills found in job description"}, nil
	}

	for _, r := range required {
		if _, ok := skip[strings.ToLower(r)]; ok {
			return false, []string{"Job required skills is blacklisted: " + r}, nil
		}
	}

	matches, err := m.match(ctx, required, candidate)
	if err != nil {
		return false, nil, err
	}

	var matched, missing []string
	for _, r := range required {
		if sm, ok := matches[r]; ok {
			matched = append(matched, fmt.Sprintf("%s ~ %s (%s: %.1f%%)", sm.Required, sm.Candidate, sm.Method, sm.Score))
			continue
		}
		missing = append(missing, r)
	}

	var reasons []string
	if len(matched) > 0 {
		reasons = append(reasons, "Matching skills: "+strings.Join(matched, ", "))
	}
	if len(missing) > 0 {
		reasons = append(reasons, "Missing skills: "+strings.Join(missing, ", "))
	}

	ratio := float64(len(matches)) / float64(len(required))
	m.logger.Debug("skills evaluated",
		zap.Int("required", len(required)),
		zap.Int("matched", len(matches)),
		zap.Float64("ratio", ratio),
	)

	return ratio >= m.minRatio, reasons, nil
}

func (m *SkillMatcher) match(ctx context.Context, required, candidate []string) (map[string]SkillMatch, error) {
	matches := make(map[string]SkillMatch)
	var unmatched []string

	for _, r := range required {
		best := SkillMatch{Required: r}
		for _, c := range candidate {
			score := m.fuzzy(r, c)
			if score >= fuzzyThreshold && score > best.Score {
				best = SkillMatch{Required: r, Candidate: c, Method: MethodFuzzy, Score: score}
			}
		}
		if best.Candidate != "" {
			matches[r] = best
			continue
		}
		unmatched = append(unmatched, r)
	}

	if len(unmatched) == 0 || len(candidate) == 0 {
		return matches, nil
	}

	texts := append(append([]string{}, unmatched...), candidate...)
	vecs, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed skills: %w", err)
	}

	for i, r := range unmatched {
		best := SkillMatch{Required: r}
		for j, c := range candidate {
			sim := embedding.Cosine(vecs[i], vecs[len(unmatched)+j])
			if sim >= semanticThreshold && sim*100 > best.Score {
				best = SkillMatch{Required: r, Candidate: c, Method: MethodSemantic, Score: sim * 100}
			}
		}
		if best.Candidate != "" {
			matches[r] = best
		}
	}

	return matches, nil
}

func (m *SkillMatcher) fuzzy(a, b string) float64 {
	key := skillPairOf(a, b)

	m.mu.RLock()
	score, ok := m.pairs[key]
	m.mu.RUnlock()
	if ok {
		return score
	}

	score = FuzzyRatio(a, b)
	m.mu.Lock()
	m.pairs[key] = score
	m.mu.Unlock()
	return score
}

// RequiredSkills flattens every category except soft skills, de-duplicated
// case-insensitively with the first spelling kept.
func RequiredSkills(skills models.SkillSet) []string {
	categories := make([]string, 0, len(skills.Categories))
	for _, c := range models.SkillCategories {
		if _, ok := skills.Categories[c]; ok {
			categories = append(categories, c)
		}
	}
	var extra []string
	for c := range skills.Categories {
		known := false
		for _, k := range models.SkillCategories {
			if c == k {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	categories = append(categories, extra...)

	seen := make(map[string]struct{})
	var out []string
	for _, c := range categories {
		if strings.EqualFold(c, models.CategorySoftSkills) {
			continue
		}
		for _, s := range skills.Categories[c] {
			s = strings.TrimSpace(norm.NFKC.String(s))
			if s == "" {
				continue
			}
			key := strings.ToLower(s)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
