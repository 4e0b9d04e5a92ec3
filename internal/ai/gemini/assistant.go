package gemini

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/ai"
	"github.com/spigell/vettavista/internal/models"
)

//go:embed prompts/*.md
var prompts embed.FS

const (
	systemExtract     = "You are a precise job requirements analyzer. Analyse each aspect of a posting independently and answer with valid JSON in the requested format."
	systemResume      = "You are a professional resume consultant with international experience. Highlight the qualifications most relevant to the target role without inventing anything. Keep the conversation context and respect the cultural context and technical domain of each entry."
	systemCoverLetter = "You are a cover letter specialist. Write technically grounded, natural prose that connects the candidate's experience with the role and the company's culture."
)

type conversationRunner interface {
	Converse(ctx context.Context, operation, system string, fn func(context.Context, Conversation) error) error
}

func prompt(name string, replacements ...string) string {
	raw, err := prompts.ReadFile("prompts/" + name + ".md")
	if err != nil {
		panic(fmt.Sprintf("missing prompt %s: %v", name, err))
	}
	return strings.NewReplacer(replacements...).Replace(string(raw))
}

// Extractor implements ai.Extractor.
type Extractor struct {
	runner conversationRunner
	logger *zap.Logger
	now    func() time.Time
}

func NewExtractor(runner conversationRunner, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{runner: runner, logger: logger, now: time.Now}
}

func (e *Extractor) Extract(ctx context.Context, description, postLanguage string) (*models.JobAnalysis, error) {
	message := prompt("extract", "{{JOB_DESCRIPTION}}", description)

	var analysis *models.JobAnalysis
	err := e.runner.Converse(ctx, "extract", systemExtract, func(ctx context.Context, c Conversation) error {
		raw, err := c.Send(ctx, message)
		if err != nil {
			return err
		}
		parsed, err := ai.ParseExtraction(raw, postLanguage, e.logger)
		if err != nil {
			return err
		}
		analysis = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("extract job requirements: %w", err)
	}

	analysis.Timestamp = e.now()
	e.logger.Info("extracted job requirements",
		zap.Int("red_flags_score", analysis.RedFlags.Score),
		zap.String("visa_support", string(analysis.VisaSupport)),
		zap.Float64("experience_years", analysis.Experience.Years),
	)
	return analysis, nil
}

// ResumeCustomizer implements ai.ResumeCustomizer as a four turn chat:
// context, skills, experience and projects.
type ResumeCustomizer struct {
	runner conversationRunner
	logger *zap.Logger
}

func NewResumeCustomizer(runner conversationRunner, logger *zap.Logger) *ResumeCustomizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResumeCustomizer{runner: runner, logger: logger}
}

type resumePayload struct {
	Skills     map[string][]string      `json:"skills"`
	Experience []models.ExperienceEntry `json:"experience"`
	Projects   []models.ProjectEntry    `json:"projects"`
}

type analysisPayload struct {
	Skills     models.SkillSet              `json:"skills"`
	Experience models.ExperienceRequirement `json:"experience"`
}

func (r *ResumeCustomizer) CustomizeResume(ctx context.Context, job models.JobDetailedInfo, original *models.Resume, analysis *models.JobAnalysis) (*models.Resume, error) {
	if original == nil {
		return nil, fmt.Errorf("resume is required")
	}
	if analysis == nil {
		analysis = &models.JobAnalysis{}
	}

	resumeJSON, err := json.MarshalIndent(resumePayload{
		Skills:     original.Skills,
		Experience: original.Experience,
		Projects:   original.Projects,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resume payload: %w", err)
	}
	analysisJSON, err := json.MarshalIndent(analysisPayload{Skills: analysis.Skills, Experience: analysis.Experience}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal analysis payload: %w", err)
	}

	intro := prompt("resume_init",
		"{{JOB_DESCRIPTION}}", job.Description,
		"{{RESUME_JSON}}", string(resumeJSON),
		"{{JOB_ANALYSIS}}", string(analysisJSON),
		"{{CULTURAL_CONTEXT}}", ai.CulturalContext(job),
	)

	var customized *models.Resume
	err = r.runner.Converse(ctx, "customize_resume", systemResume, func(ctx context.Context, c Conversation) error {
		if _, err := c.Send(ctx, intro); err != nil {
			return err
		}

		skillsData, err := sendJSON(ctx, c, prompt("resume_skills"))
		if err != nil {
			return fmt.Errorf("skills: %w", err)
		}
		experienceData, err := sendJSON(ctx, c, prompt("resume_experience"))
		if err != nil {
			return fmt.Errorf("experience: %w", err)
		}
		projectsData, err := sendJSON(ctx, c, prompt("resume_projects"))
		if err != nil {
			return fmt.Errorf("projects: %w", err)
		}

		out := original.Clone()
		out.Skills = ai.CleanResumeSkills(skillsData, original.Skills)
		out.Experience = ai.CleanExperience(experienceData, original.Experience, r.logger)
		out.Projects = ai.CleanProjects(projectsData, original.Projects, r.logger)
		customized = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("customize resume: %w", err)
	}

	r.logger.Info("resume customization complete",
		zap.Int("experience_entries", len(customized.Experience)),
		zap.Int("projects", len(customized.Projects)),
	)
	return customized, nil
}

func sendJSON(ctx context.Context, c Conversation, message string) (map[string]any, error) {
	raw, err := c.Send(ctx, message)
	if err != nil {
		return nil, err
	}
	return ai.DecodeObject(raw)
}

// CoverLetterWriter implements ai.CoverLetterWriter.
type CoverLetterWriter struct {
	runner conversationRunner
	logger *zap.Logger
	now    func() time.Time
}

func NewCoverLetterWriter(runner conversationRunner, logger *zap.Logger) *CoverLetterWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoverLetterWriter{runner: runner, logger: logger, now: time.Now}
}

func (w *CoverLetterWriter) WriteCoverLetter(ctx context.Context, resumeLatex string, job models.JobDetailedInfo, template string) (string, error) {
	message := prompt("cover_letter",
		"{{CURRENT_DATE}}", w.now().Format("January 2006"),
		"{{COVER_LETTER_TEMPLATE}}", template,
		"{{RESUME_CONTENT}}", resumeLatex,
		"{{JOB_DESCRIPTION}}", job.Description,
	)

	var body string
	err := w.runner.Converse(ctx, "cover_letter", systemCoverLetter, func(ctx context.Context, c Conversation) error {
		text, err := c.Send(ctx, message)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return ai.ErrEmptyResponse
		}
		body = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("write cover letter: %w", err)
	}

	w.logger.Info("generated cover letter", zap.Int("length", len(body)))
	return body, nil
}
