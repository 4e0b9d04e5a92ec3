package ai

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/vettavista/internal/models"
)

const validExtraction = "```json\n" + `{
  "skills": {
    "programming languages": ["Go", " go ", "Python", ""],
    "frameworks": ["React"],
    "soft skills": ["Communication"],
    "languages": {"required": ["german"], "preferred": ["english"]}
  },
  "experience": {"years": 5, "months": 6, "is_minimum": true, "context": " 5+ years "},
  "red_flags": {"score": 40, "reasons": ["Unpaid overtime", 3, ""]},
  "supports_visa": "supported"
}` + "\n```"

func TestParseExtraction(t *testing.T) {
	t.Parallel()

	analysis, err := ParseExtraction(validExtraction, "ENGLISH", nil)
	if err != nil {
		t.Fatalf("ParseExtraction() error = %v", err)
	}

	if got := analysis.Skills.Categories[models.CategoryProgrammingLanguages]; !reflect.DeepEqual(got, []string{"Go", "Python"}) {
		t.Fatalf("unexpected programming languages: %v", got)
	}
	if got := analysis.Skills.Categories[models.CategoryMobileDevelopment]; got == nil || len(got) != 0 {
		t.Fatalf("missing categories should be empty, got %v", got)
	}
	if !reflect.DeepEqual(analysis.Skills.Languages.Required, []string{"GERMAN"}) {
		t.Fatalf("unexpected required languages: %v", analysis.Skills.Languages.Required)
	}
	if analysis.Experience.Years != 5 || analysis.Experience.Months != 6 || !analysis.Experience.IsMinimum || analysis.Experience.Context != "5+ years" {
		t.Fatalf("unexpected experience: %+v", analysis.Experience)
	}
	if analysis.RedFlags.Score != 40 || !reflect.DeepEqual(analysis.RedFlags.Reasons, []string{"Unpaid overtime"}) {
		t.Fatalf("unexpected red flags: %+v", analysis.RedFlags)
	}
	if analysis.VisaSupport != models.VisaSupported {
		t.Fatalf("unexpected visa support: %s", analysis.VisaSupport)
	}
	if analysis.PostLanguage != "ENGLISH" {
		t.Fatalf("unexpected post language: %s", analysis.PostLanguage)
	}
}

func TestParseExtractionDefaults(t *testing.T) {
	t.Parallel()

	raw := `{
	  "skills": {"frameworks": ["Django"]},
	  "experience": {"years": null, "months": null, "is_minimum": false, "context": null},
	  "red_flags": {"score": 140, "reasons": "none"},
	  "supports_visa": "maybe"
	}`

	analysis, err := ParseExtraction(raw, "DUTCH", nil)
	if err != nil {
		t.Fatalf("ParseExtraction() error = %v", err)
	}
	if !reflect.DeepEqual(analysis.Skills.Languages.Required, []string{"DUTCH"}) {
		t.Fatalf("required languages should default to the post language, got %v", analysis.Skills.Languages.Required)
	}
	if analysis.Experience.Stated() {
		t.Fatalf("null years should be unstated, got %+v", analysis.Experience)
	}
	if analysis.RedFlags.Score != 0 || len(analysis.RedFlags.Reasons) != 0 {
		t.Fatalf("invalid red flags should reset, got %+v", analysis.RedFlags)
	}
	if analysis.VisaSupport != models.VisaUnknown {
		t.Fatalf("unknown visa value should map to UNKNOWN, got %s", analysis.VisaSupport)
	}
}

func TestParseExtractionMalformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "I could not analyse this posting"},
		{name: "missing experience", raw: `{"skills": {"frameworks": ["Go"]}}`},
		{name: "missing experience keys", raw: `{"skills": {"frameworks": ["Go"]}, "experience": {"years": 3}}`},
		{name: "no skills", raw: `{"skills": {}, "experience": {"years": 1, "months": 0, "is_minimum": true, "context": ""}}`},
		{name: "bad years", raw: `{"skills": {"frameworks": ["Go"]}, "experience": {"years": "many", "months": 0, "is_minimum": true, "context": ""}}`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseExtraction(tc.raw, "ENGLISH", nil)
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
			if !Retryable(err) {
				t.Fatalf("malformed responses should be retryable")
			}
		})
	}
}

func TestCleanResumeSkillsKeepsOriginalCapitalization(t *testing.T) {
	t.Parallel()

	original := map[string][]string{"Backend": {"PostgreSQL", "Go"}}
	data := map[string]any{
		"Databases":               []any{"postgresql", " Redis "},
		"Languages":               []any{"go"},
		"Empty":                   []any{""},
		RecommendedSkillsCategory: []any{"Kafka"},
	}

	got := CleanResumeSkills(data, original)
	want := map[string][]string{
		"Databases":               {"PostgreSQL", "Redis"},
		"Languages":               {"Go"},
		RecommendedSkillsCategory: {"Kafka"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CleanResumeSkills() = %v, want %v", got, want)
	}
}

func TestCleanExperienceCorrelatesByID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	originals := []models.ExperienceEntry{
		{ID: "0", Title: "Engineer", Organization: "Acme", Start: "2020-01", End: "Present", Details: []string{"old"}},
		{ID: "1", Title: "Intern", Organization: "Globex", Start: "2019-01", End: "2019-12"},
	}
	data := map[string]any{
		"optimized_experience": []any{
			map[string]any{
				"exp_id": "1",
				"achievements": []any{
					map[string]any{"text": " Built CI ", "is_critical": true, "domain": "devops", "relevance_score": 0.8},
					map[string]any{"text": "Missing keys"},
				},
			},
			map[string]any{"exp_id": "7", "achievements": []any{}},
			map[string]any{
				"exp_id": "0",
				"achievements": []any{
					map[string]any{"text": "Led migration", "is_critical": true, "domain": "backend", "relevance_score": 1},
					map[string]any{"text": "Cut costs", "is_critical": false, "domain": "backend", "relevance_score": 0.5},
				},
			},
		},
	}

	got := CleanExperience(data, originals, logger)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ID != "1" || got[0].Organization != "Globex" || !reflect.DeepEqual(got[0].Details, []string{"Built CI"}) {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	if got[1].ID != "0" || got[1].Title != "Engineer" || !reflect.DeepEqual(got[1].Details, []string{"Led migration", "Cut costs"}) {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}
	if logs.FilterMessage("invalid or missing exp_id").Len() != 1 {
		t.Fatalf("expected unknown exp_id to be logged")
	}
	if originals[0].Details[0] != "old" {
		t.Fatalf("originals must not be modified")
	}
}

func TestCleanProjects(t *testing.T) {
	t.Parallel()

	originals := []models.ProjectEntry{{ID: "0", Name: "vettavista"}}
	data := map[string]any{
		"optimized_projects": []any{
			map[string]any{"proj_id": "0", "achievements": []any{map[string]any{"text": "Matching pipeline", "domain": "backend"}}},
			map[string]any{"proj_id": "", "achievements": []any{}},
		},
	}

	got := CleanProjects(data, originals, zap.NewNop())
	if len(got) != 1 || got[0].Name != "vettavista" || !reflect.DeepEqual(got[0].Details, []string{"Matching pipeline"}) {
		t.Fatalf("unexpected projects: %+v", got)
	}

	if got := CleanProjects(map[string]any{}, originals, zap.NewNop()); len(got) != 0 {
		t.Fatalf("expected no projects when list is missing, got %+v", got)
	}
}

func TestParseEmployeeCount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in       string
		min, max int
	}{
		{"201-500 employees", 201, 500},
		{"10,001+ employees", 10001, math.MaxInt32},
		{"500 employees", 500, 500},
		{"", 0, 0},
		{"lots", 0, 0},
		{"1-10 of 20-50", 0, 0},
	}

	for _, tc := range cases {
		min, max := ParseEmployeeCount(tc.in)
		if min != tc.min || max != tc.max {
			t.Fatalf("ParseEmployeeCount(%q) = (%d, %d), want (%d, %d)", tc.in, min, max, tc.min, tc.max)
		}
	}
}

func TestCompanyType(t *testing.T) {
	t.Parallel()

	cases := map[int]string{
		0:     "Unknown Size",
		1:     "Early-stage Startup",
		50:    "Early-stage Startup",
		51:    "Growing Startup",
		201:   "Mid-size Company",
		1001:  "Large Company",
		5001:  "Enterprise",
		10001: "Enterprise",
	}
	for n, want := range cases {
		if got := CompanyType(n); got != want {
			t.Fatalf("CompanyType(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestCulturalContext(t *testing.T) {
	t.Parallel()

	job := models.JobDetailedInfo{
		JobInfo:     models.JobInfo{Location: "Berlin, Germany"},
		CompanySize: "11-50 employees",
	}
	got := CulturalContext(job)
	for _, want := range []string{"Location: Germany", "Early-stage Startup (11-50 employees)", "Working language: German", "Direct access to leadership"} {
		if !strings.Contains(got, want) {
			t.Fatalf("cultural context missing %q:\n%s", want, got)
		}
	}

	job = models.JobDetailedInfo{JobInfo: models.JobInfo{Location: "Remote"}, CompanySize: "1,001-5,000 employees"}
	got = CulturalContext(job)
	for _, want := range []string{"Location: Remote", "Large Company", "Working language: English", "Structured hierarchy"} {
		if !strings.Contains(got, want) {
			t.Fatalf("cultural context missing %q:\n%s", want, got)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"```json\n{\"a\":1}\n```":           `{"a":1}`,
		"Here you go:\n```\n{\"a\":1}\n```": `{"a":1}`,
		`{"a":1}`:                           `{"a":1}`,
	}
	for in, want := range cases {
		if got := ExtractJSON(in); got != want {
			t.Fatalf("ExtractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}
