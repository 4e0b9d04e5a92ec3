package models

import "time"

// Skill categories produced by extraction.
const (
	CategoryProgrammingLanguages = "programming languages"
	CategoryFrameworks           = "frameworks"
	CategoryMobileDevelopment    = "mobile development"
	CategoryOtherTechnical       = "other technical"
	CategorySoftSkills           = "soft skills"
)

// SkillCategories is the fixed category order used for extraction output.
var SkillCategories = []string{
	CategoryProgrammingLanguages,
	CategoryFrameworks,
	CategoryMobileDevelopment,
	CategoryOtherTechnical,
	CategorySoftSkills,
}

type VisaSupport string

const (
	VisaSupported   VisaSupport = "SUPPORTED"
	VisaUnsupported VisaSupport = "UNSUPPORTED"
	VisaUnknown     VisaSupport = "UNKNOWN"
)

type LanguageRequirements struct {
	Required  []string `json:"required" mapstructure:"required"`
	Preferred []string `json:"preferred" mapstructure:"preferred"`
}

type SkillSet struct {
	Categories map[string][]string  `json:"categories"`
	Languages  LanguageRequirements `json:"languages"`
}

// ExperienceRequirement is the stated experience of a posting. Negative Years
// means the posting does not state one.
type ExperienceRequirement struct {
	Years     float64 `json:"years" mapstructure:"years"`
	Months    float64 `json:"months" mapstructure:"months"`
	IsMinimum bool    `json:"is_minimum" mapstructure:"is_minimum"`
	Context   string  `json:"context" mapstructure:"context"`
}

// Stated reports whether the requirement carries a usable value.
func (e ExperienceRequirement) Stated() bool {
	return e.Years >= 0
}

// TotalYears folds months into years. Negative months are ignored.
func (e ExperienceRequirement) TotalYears() float64 {
	total := e.Years
	if e.Months >= 0 {
		total += e.Months / 12
	}
	return total
}

type RedFlags struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// JobAnalysis is the structured extraction result of a job description.
type JobAnalysis struct {
	Skills       SkillSet              `json:"skills"`
	Experience   ExperienceRequirement `json:"experience"`
	RedFlags     RedFlags              `json:"red_flags"`
	VisaSupport  VisaSupport           `json:"visa_support"`
	PostLanguage string                `json:"post_language"`
	Timestamp    time.Time             `json:"timestamp"`
}

// Clone returns a deep copy.
func (a *JobAnalysis) Clone() *JobAnalysis {
	if a == nil {
		return nil
	}
	out := *a
	out.Skills = a.Skills.Clone()
	out.RedFlags.Reasons = append([]string{}, a.RedFlags.Reasons...)
	return &out
}

// Clone returns a deep copy.
func (s SkillSet) Clone() SkillSet {
	out := SkillSet{Categories: make(map[string][]string, len(s.Categories))}
	for k, v := range s.Categories {
		out.Categories[k] = append([]string{}, v...)
	}
	out.Languages.Required = append([]string{}, s.Languages.Required...)
	out.Languages.Preferred = append([]string{}, s.Languages.Preferred...)
	return out
}

// Empty reports whether no skill or language was extracted.
func (s SkillSet) Empty() bool {
	for _, v := range s.Categories {
		if len(v) > 0 {
			return false
		}
	}
	return len(s.Languages.Required) == 0 && len(s.Languages.Preferred) == 0
}
