package models

import (
	"testing"
	"time"
)

func TestResumeWithIDsCopies(t *testing.T) {
	original := &Resume{
		Skills:     map[string][]string{"languages": {"English", " german "}},
		Experience: []ExperienceEntry{{Title: "Dev", Details: []string{"a"}}, {Title: "Lead"}},
		Projects:   []ProjectEntry{{Name: "p"}},
	}

	withIDs := original.WithIDs()
	if withIDs.Experience[1].ID != "1" || withIDs.Projects[0].ID != "0" {
		t.Fatalf("unexpected ids: %+v %+v", withIDs.Experience, withIDs.Projects)
	}
	if original.Experience[0].ID != "" {
		t.Fatalf("expected original to stay untouched")
	}

	withIDs.Experience[0].Details[0] = "changed"
	if original.Experience[0].Details[0] != "a" {
		t.Fatalf("expected deep copy of details")
	}

	langs := original.SpokenLanguages()
	if len(langs) != 2 || langs[0] != "ENGLISH" || langs[1] != "GERMAN" {
		t.Fatalf("unexpected languages: %v", langs)
	}
}

func TestExperiencePeriod(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		entry   ExperienceEntry
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{
			name:  "present resolves to now",
			entry: ExperienceEntry{Start: "2020-01", End: "Present"},
			start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   now,
		},
		{
			name:  "closed range",
			entry: ExperienceEntry{Start: "2019-03", End: "2021-03-15"},
			start: time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "invalid start",
			entry:   ExperienceEntry{Start: "soon", End: "Present"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			start, end, err := tt.entry.Period(now)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !start.Equal(tt.start) || !end.Equal(tt.end) {
				t.Fatalf("unexpected period %v - %v", start, end)
			}
		})
	}
}

func TestResponseTimestampRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	resp := NewResponse(StatusLikelyMatch, FilterPreliminary, now, "ok").WithTitleScore(0.9).WithMatch(true)

	if got := resp.Time(); got.Sub(now).Abs() > time.Millisecond {
		t.Fatalf("unexpected time %v", got)
	}

	clone := resp.Clone()
	*clone.TitleScore = 0.1
	clone.Reasons[0] = "changed"
	if *resp.TitleScore != 0.9 || resp.Reasons[0] != "ok" {
		t.Fatalf("clone shares state with original")
	}
}

func TestPersonalsNames(t *testing.T) {
	p := Personals{FirstName: "Jane", LastName: "Doe"}
	if p.FullName() != "Jane Doe" {
		t.Fatalf("unexpected full name %q", p.FullName())
	}
	if p.FileSlug() != "jane_doe" {
		t.Fatalf("unexpected slug %q", p.FileSlug())
	}
}
