package ai

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/models"
)

// RecommendedSkillsCategory is the pseudo category carrying skills the model
// suggests the candidate should add.
const RecommendedSkillsCategory = "Recommended Skills"

type rawAchievement struct {
	Text           string   `mapstructure:"text"`
	IsCritical     *bool    `mapstructure:"is_critical"`
	Domain         *string  `mapstructure:"domain"`
	RelevanceScore *float64 `mapstructure:"relevance_score"`
}

// CleanResumeSkills keeps non-empty categories of a skills response. Skills
// already on the resume keep their original capitalization.
func CleanResumeSkills(data map[string]any, original map[string][]string) map[string][]string {
	known := make(map[string]string)
	for _, items := range original {
		for _, s := range items {
			s = strings.TrimSpace(s)
			known[strings.ToLower(s)] = s
		}
	}

	out := make(map[string][]string)
	for category, v := range data {
		var skills []string
		for _, s := range stringList(v) {
			if orig, ok := known[strings.ToLower(s)]; ok {
				s = orig
			}
			skills = append(skills, s)
		}
		if len(skills) > 0 {
			out[category] = skills
		}
	}
	if len(out) == 0 {
		out[RecommendedSkillsCategory] = []string{}
	}
	return out
}

// CleanExperience maps optimized experience entries back onto the originals
// by exp_id. Entries with unknown ids are dropped.
func CleanExperience(data map[string]any, originals []models.ExperienceEntry, logger *zap.Logger) []models.ExperienceEntry {
	byID := make(map[string]models.ExperienceEntry, len(originals))
	for _, e := range originals {
		if e.ID != "" {
			byID[e.ID] = e
		}
	}

	items, ok := data["optimized_experience"].([]any)
	if !ok {
		logger.Error("optimized_experience is not a list")
		return []models.ExperienceEntry{}
	}

	out := make([]models.ExperienceEntry, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			logger.Error("invalid experience entry", zap.Any("entry", item))
			continue
		}
		id := coerceString(entry["exp_id"])
		original, ok := byID[id]
		if !ok {
			logger.Error("invalid or missing exp_id", zap.String("exp_id", id))
			continue
		}
		details, ok := achievements(entry, []string{"text", "is_critical", "domain", "relevance_score"}, logger)
		if !ok {
			logger.Error("invalid achievements", zap.String("exp_id", id))
			continue
		}
		if len(details) < 2 {
			logger.Warn("less than 2 achievements for experience", zap.String("exp_id", id))
		}
		original.Details = details
		out = append(out, original)
	}
	return out
}

// CleanProjects maps optimized projects back onto the originals by proj_id.
func CleanProjects(data map[string]any, originals []models.ProjectEntry, logger *zap.Logger) []models.ProjectEntry {
	byID := make(map[string]models.ProjectEntry, len(originals))
	for _, p := range originals {
		if p.ID != "" {
			byID[p.ID] = p
		}
	}

	items, ok := data["optimized_projects"].([]any)
	if !ok {
		logger.Error("optimized_projects is not a list")
		return []models.ProjectEntry{}
	}

	out := make([]models.ProjectEntry, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			logger.Error("invalid project entry", zap.Any("entry", item))
			continue
		}
		id := coerceString(entry["proj_id"])
		original, ok := byID[id]
		if !ok {
			logger.Error("invalid or missing proj_id", zap.String("proj_id", id))
			continue
		}
		details, ok := achievements(entry, []string{"text", "domain"}, logger)
		if !ok {
			logger.Error("invalid project details", zap.String("proj_id", id))
			continue
		}
		original.Details = details
		out = append(out, original)
	}
	return out
}

// achievements returns the texts of entry["achievements"] items that carry
// every required key.
func achievements(entry map[string]any, required []string, logger *zap.Logger) ([]string, bool) {
	items, ok := entry["achievements"].([]any)
	if !ok {
		return nil, false
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		complete := true
		for _, key := range required {
			if _, ok := fields[key]; !ok {
				complete = false
				break
			}
		}
		if !complete {
			logger.Error("missing required fields in achievement", zap.Any("achievement", fields))
			continue
		}
		if _, ok := fields["text"].(string); !ok {
			continue
		}
		var a rawAchievement
		if err := mapstructure.Decode(fields, &a); err != nil {
			logger.Debug("skipping undecodable achievement", zap.Error(err))
			continue
		}
		if text := strings.TrimSpace(a.Text); text != "" {
			out = append(out, text)
		}
	}
	return out, true
}
