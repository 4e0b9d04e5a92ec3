package models

import (
	"fmt"
	"strings"
	"time"
)

// PresentLabel marks an experience entry that has not ended.
const PresentLabel = "Present"

const monthLayout = "2006-01"

type Personals struct {
	FirstName   string `mapstructure:"first-name" json:"first_name"`
	MiddleName  string `mapstructure:"middle-name" json:"middle_name"`
	LastName    string `mapstructure:"last-name" json:"last_name"`
	Email       string `mapstructure:"email" json:"email"`
	Phone       string `mapstructure:"phone" json:"phone"`
	CurrentCity string `mapstructure:"current-city" json:"current_city"`
	Street      string `mapstructure:"street" json:"street"`
	State       string `mapstructure:"state" json:"state"`
	Zipcode     string `mapstructure:"zipcode" json:"zipcode"`
	Country     string `mapstructure:"country" json:"country"`
}

// FullName joins first, middle and last name.
func (p Personals) FullName() string {
	return strings.Join(strings.Fields(p.FirstName+" "+p.MiddleName+" "+p.LastName), " ")
}

// FileSlug is the lower-cased first_last used in output file names.
func (p Personals) FileSlug() string {
	return strings.ToLower(strings.TrimSpace(p.FirstName) + "_" + strings.TrimSpace(p.LastName))
}

type ExperienceEntry struct {
	ID           string   `mapstructure:"-" json:"exp_id,omitempty"`
	Title        string   `mapstructure:"title" json:"title"`
	Organization string   `mapstructure:"organization" json:"organization"`
	Location     string   `mapstructure:"location" json:"location"`
	Start        string   `mapstructure:"start" json:"start"`
	End          string   `mapstructure:"end" json:"end"`
	Details      []string `mapstructure:"details" json:"details"`
}

// Period parses Start and End. End "Present" resolves to now.
func (e ExperienceEntry) Period(now time.Time) (time.Time, time.Time, error) {
	start, err := ParseMonth(e.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("experience %q start: %w", e.Title, err)
	}
	if IsPresent(e.End) {
		return start, now, nil
	}
	end, err := ParseMonth(e.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("experience %q end: %w", e.Title, err)
	}
	return start, end, nil
}

type ProjectEntry struct {
	ID      string   `mapstructure:"-" json:"proj_id,omitempty"`
	Name    string   `mapstructure:"name" json:"name"`
	Details []string `mapstructure:"details" json:"details"`
}

type Education struct {
	Degree     string `mapstructure:"degree" json:"degree"`
	University string `mapstructure:"university" json:"university"`
	Extra      string `mapstructure:"extra" json:"extra"`
	Start      string `mapstructure:"start" json:"start"`
	Graduation string `mapstructure:"graduation" json:"graduation"`
}

// Resume is the candidate profile. Skills may hold a "languages" category with
// the spoken languages of the candidate.
type Resume struct {
	Website             string              `mapstructure:"website" json:"website"`
	LinkedIn            string              `mapstructure:"linkedin" json:"linkedin"`
	Skills              map[string][]string `mapstructure:"skills" json:"skills"`
	Experience          []ExperienceEntry   `mapstructure:"experience" json:"experience"`
	Projects            []ProjectEntry      `mapstructure:"projects" json:"projects"`
	HighestDegree       string              `mapstructure:"highest-degree" json:"highest_degree"`
	Educations          []Education         `mapstructure:"educations" json:"educations"`
	DidMasters          bool                `mapstructure:"did-masters" json:"did_masters"`
	CoverLetterTemplate string              `mapstructure:"cover-letter-template" json:"cover_letter_template"`
}

// SpokenLanguages returns the upper-cased "languages" skill category.
func (r *Resume) SpokenLanguages() []string {
	if r == nil {
		return nil
	}
	var out []string
	for category, items := range r.Skills {
		if !strings.EqualFold(category, "languages") {
			continue
		}
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, strings.ToUpper(item))
			}
		}
	}
	return out
}

// Clone returns a deep copy.
func (r *Resume) Clone() *Resume {
	if r == nil {
		return nil
	}
	out := *r
	out.Skills = make(map[string][]string, len(r.Skills))
	for k, v := range r.Skills {
		out.Skills[k] = append([]string{}, v...)
	}
	out.Experience = make([]ExperienceEntry, len(r.Experience))
	for i, e := range r.Experience {
		e.Details = append([]string{}, e.Details...)
		out.Experience[i] = e
	}
	out.Projects = make([]ProjectEntry, len(r.Projects))
	for i, p := range r.Projects {
		p.Details = append([]string{}, p.Details...)
		out.Projects[i] = p
	}
	out.Educations = append([]Education{}, r.Educations...)
	return &out
}

// WithIDs returns a copy whose experience and project entries carry their
// index as ID.
func (r *Resume) WithIDs() *Resume {
	out := r.Clone()
	if out == nil {
		return nil
	}
	for i := range out.Experience {
		out.Experience[i].ID = fmt.Sprint(i)
	}
	for i := range out.Projects {
		out.Projects[i].ID = fmt.Sprint(i)
	}
	return out
}

// IsPresent reports whether a date label means "ongoing".
func IsPresent(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), PresentLabel)
}

// ParseMonth parses "YYYY-MM" or "YYYY-MM-DD".
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(monthLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return t, nil
}
