package ai

import (
	"fmt"
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/models"
)

const extractionSchema = `{
  "type": "object",
  "required": ["skills", "experience"],
  "properties": {
    "skills": {"type": "object"},
    "experience": {
      "type": "object",
      "required": ["years", "months", "is_minimum", "context"],
      "properties": {
        "years": {"type": ["number", "string", "null"]},
        "months": {"type": ["number", "string", "null"]},
        "is_minimum": {"type": ["boolean", "null"]},
        "context": {"type": ["string", "null"]}
      }
    },
    "red_flags": {"type": ["object", "null"]},
    "supports_visa": {"type": ["string", "null"]}
  }
}`

var extractionSchemaLoader = gojsonschema.NewStringLoader(extractionSchema)

type rawExperience struct {
	Years     *float64 `mapstructure:"years"`
	Months    *float64 `mapstructure:"months"`
	IsMinimum *bool    `mapstructure:"is_minimum"`
	Context   *string  `mapstructure:"context"`
}

// ParseExtraction validates an extraction response and normalises it into a
// JobAnalysis. Structural failures wrap ErrMalformedResponse.
func ParseExtraction(raw, postLanguage string, logger *zap.Logger) (*models.JobAnalysis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := DecodeObject(raw)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(extractionSchemaLoader, data); err != nil {
		return nil, err
	}

	skills := CleanSkills(data["skills"], logger)
	if skills.Empty() {
		return nil, fmt.Errorf("%w: no skills extracted", ErrMalformedResponse)
	}
	applyPostLanguage(&skills, postLanguage, logger)

	experience, err := decodeExperience(data["experience"])
	if err != nil {
		return nil, err
	}

	return &models.JobAnalysis{
		Skills:       skills,
		Experience:   experience,
		RedFlags:     cleanRedFlags(data["red_flags"], logger),
		VisaSupport:  cleanVisa(data["supports_visa"], logger),
		PostLanguage: postLanguage,
	}, nil
}

func validateSchema(schema gojsonschema.JSONLoader, data any) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("%w: schema validation: %v", ErrMalformedResponse, err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(problems, "; "))
}

// CleanSkills keeps the known categories, trimmed and de-duplicated
// case-insensitively. Missing categories are empty. Languages are upper-cased.
func CleanSkills(v any, logger *zap.Logger) models.SkillSet {
	out := models.SkillSet{Categories: make(map[string][]string, len(models.SkillCategories))}
	for _, c := range models.SkillCategories {
		out.Categories[c] = []string{}
	}

	raw, ok := v.(map[string]any)
	if !ok {
		logger.Error("skills data is not an object")
		return out
	}

	for _, c := range models.SkillCategories {
		seen := make(map[string]struct{})
		for _, skill := range stringList(raw[c]) {
			key := strings.ToLower(skill)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out.Categories[c] = append(out.Categories[c], skill)
		}
	}

	if langs, ok := raw["languages"].(map[string]any); ok {
		out.Languages.Required = upper(stringList(langs["required"]))
		out.Languages.Preferred = upper(stringList(langs["preferred"]))
	}
	return out
}

func upper(in []string) []string {
	for i := range in {
		in[i] = strings.ToUpper(in[i])
	}
	return in
}

func applyPostLanguage(skills *models.SkillSet, postLanguage string, logger *zap.Logger) {
	if len(skills.Languages.Required) == 0 {
		if postLanguage != "" {
			skills.Languages.Required = []string{strings.ToUpper(postLanguage)}
		}
		logger.Info("no explicit language requirements, using post language", zap.String("language", postLanguage))
		return
	}
	for _, l := range skills.Languages.Required {
		if strings.EqualFold(l, postLanguage) {
			return
		}
	}
	logger.Info("post language differs from required languages",
		zap.String("language", postLanguage),
		zap.Strings("required", skills.Languages.Required),
	)
}

func decodeExperience(v any) (models.ExperienceRequirement, error) {
	var raw rawExperience
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return models.ExperienceRequirement{}, fmt.Errorf("build experience decoder: %w", err)
	}
	if err := decoder.Decode(v); err != nil {
		return models.ExperienceRequirement{}, fmt.Errorf("%w: experience: %v", ErrMalformedResponse, err)
	}

	out := models.ExperienceRequirement{Years: -1}
	if raw.Years != nil {
		out.Years = *raw.Years
	}
	if raw.Months != nil {
		out.Months = *raw.Months
	}
	if raw.IsMinimum != nil {
		out.IsMinimum = *raw.IsMinimum
	}
	if raw.Context != nil {
		out.Context = strings.TrimSpace(*raw.Context)
	}
	return out, nil
}

func cleanRedFlags(v any, logger *zap.Logger) models.RedFlags {
	out := models.RedFlags{Reasons: []string{}}
	raw, ok := v.(map[string]any)
	if !ok {
		logger.Error("red flags data is not an object")
		return out
	}

	score := coerceFloat(raw["score"])
	if _, isString := raw["score"].(string); isString || math.IsNaN(score) || score < 0 || score > 100 {
		logger.Error("invalid red flags score", zap.Any("score", raw["score"]))
	} else {
		out.Score = int(score)
	}

	if _, ok := raw["reasons"].([]any); !ok && raw["reasons"] != nil {
		logger.Error("invalid red flags reasons", zap.Any("reasons", raw["reasons"]))
	}
	out.Reasons = append(out.Reasons, stringList(raw["reasons"])...)
	return out
}

func cleanVisa(v any, logger *zap.Logger) models.VisaSupport {
	status := models.VisaSupport(strings.ToUpper(coerceString(v)))
	switch status {
	case models.VisaSupported, models.VisaUnsupported, models.VisaUnknown:
		return status
	case "":
		return models.VisaUnknown
	}
	logger.Error("invalid visa support status", zap.Any("status", v))
	return models.VisaUnknown
}
