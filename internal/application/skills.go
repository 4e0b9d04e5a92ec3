package application

import (
	"strings"

	"github.com/spigell/vettavista/internal/ai"
	"github.com/spigell/vettavista/internal/models"
)

// splitSkills removes the language categories from the customized resume and
// takes out the recommended skills suggested by the model.
func splitSkills(r *models.Resume) (*models.Resume, []string) {
	out := r.Clone()
	if out == nil {
		return nil, nil
	}
	recommended := []string{}
	for category, skills := range out.Skills {
		switch strings.ToLower(category) {
		case "language", "languages":
			delete(out.Skills, category)
		case strings.ToLower(ai.RecommendedSkillsCategory):
			recommended = append(recommended, skills...)
			delete(out.Skills, category)
		}
	}
	return out, recommended
}
