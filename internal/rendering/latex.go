package rendering

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spigell/vettavista/internal/models"
)

const coverLetterDateLayout = "January 02, 2006"

//go:embed templates/resume.tex.tmpl templates/cover_letter.tex.tmpl templates/resume.cls
var templateFS embed.FS

var templates = template.Must(template.New("latex").
	Delims("<<", ">>").
	Funcs(template.FuncMap{"escape": EscapeLaTeX}).
	ParseFS(templateFS, "templates/*.tmpl"))

type link struct {
	URL   string
	Label string
}

type header struct {
	Name     string
	City     string
	Email    string
	LinkedIn *link
	Website  *link
}

type skillRow struct {
	Category string
	Items    string
}

type educationRow struct {
	models.Education
	Years string
}

type resumeData struct {
	header
	Skills     []skillRow
	Experience []models.ExperienceEntry
	Projects   []models.ProjectEntry
	Educations []educationRow
}

type coverLetterData struct {
	header
	Body string
}

func newHeader(p models.Personals, r *models.Resume) header {
	h := header{
		Name:  p.FullName(),
		City:  p.CurrentCity,
		Email: p.Email,
	}
	if r == nil {
		return h
	}
	if r.LinkedIn != "" {
		parts := strings.Split(strings.TrimRight(r.LinkedIn, "/"), "/")
		h.LinkedIn = &link{URL: escapeURL(r.LinkedIn), Label: "linkedin.com/in/" + parts[len(parts)-1]}
	}
	if r.Website != "" {
		label := strings.TrimPrefix(strings.TrimPrefix(r.Website, "https://"), "http://")
		h.Website = &link{URL: escapeURL(r.Website), Label: label}
	}
	return h
}

// escapeURL escapes the characters hyperref does not accept verbatim in an
// \href target.
func escapeURL(u string) string {
	return strings.NewReplacer("%", `\%`, "#", `\#`).Replace(u)
}

// ResumeLaTeX renders the resume document for the candidate.
func ResumeLaTeX(p models.Personals, r *models.Resume) (string, error) {
	if r == nil {
		return "", &TemplateError{Message: "resume is empty"}
	}

	data := resumeData{
		header:     newHeader(p, r),
		Skills:     skillRows(r.Skills),
		Experience: r.Experience,
		Projects:   r.Projects,
	}
	for _, e := range r.Educations {
		data.Educations = append(data.Educations, educationRow{Education: e, Years: educationYears(e)})
	}

	return execute("resume.tex.tmpl", data)
}

// CoverLetterLaTeX renders text, escaped, under the candidate letterhead.
func CoverLetterLaTeX(p models.Personals, r *models.Resume, text string) (string, error) {
	return execute("cover_letter.tex.tmpl", coverLetterData{
		header: newHeader(p, r),
		Body:   EscapeText(text),
	})
}

// CoverLetterText wraps a generated body with date, greeting and signature.
func CoverLetterText(company, body, fullName string, date time.Time) string {
	return fmt.Sprintf("Date: %s\n\nDear Hiring Team at %s,\n\n%s\n\nSincerely,\n\n%s",
		date.Format(coverLetterDateLayout), company, strings.TrimSpace(body), fullName)
}

func execute(name string, data any) (string, error) {
	var out strings.Builder
	if err := templates.ExecuteTemplate(&out, name, data); err != nil {
		return "", &TemplateError{Message: "failed to execute " + name, Cause: err}
	}
	return out.String(), nil
}

// skillRows orders the extraction categories first, then the remaining ones
// alphabetically.
func skillRows(skills map[string][]string) []skillRow {
	rank := make(map[string]int, len(models.SkillCategories))
	for i, c := range models.SkillCategories {
		rank[c] = i
	}

	categories := make([]string, 0, len(skills))
	for c, items := range skills {
		if len(items) > 0 {
			categories = append(categories, c)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		ri, iKnown := rank[strings.ToLower(categories[i])]
		rj, jKnown := rank[strings.ToLower(categories[j])]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		}
		return categories[i] < categories[j]
	})

	title := cases.Title(language.English)
	rows := make([]skillRow, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, skillRow{
			Category: title.String(strings.ReplaceAll(c, "_", " ")),
			Items:    strings.Join(skills[c], ", "),
		})
	}
	return rows
}

func educationYears(e models.Education) string {
	year := func(s string) string {
		if t, err := models.ParseMonth(s); err == nil {
			return fmt.Sprint(t.Year())
		}
		return strings.TrimSpace(s)
	}
	start, end := year(e.Start), year(e.Graduation)
	if start == "" {
		return end
	}
	return start + " - " + end
}
