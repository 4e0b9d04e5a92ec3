package models

import "time"

// DateLayout is the ISO timestamp format stored in CSV records.
const DateLayout = "2006-01-02T15:04:05.000000"

type ApplicationStatus string

const (
	ApplicationNew           ApplicationStatus = "new"
	ApplicationApplied       ApplicationStatus = "applied"
	ApplicationRejected      ApplicationStatus = "rejected"
	ApplicationInProgress    ApplicationStatus = "in_progress"
	ApplicationOffer         ApplicationStatus = "offer"
	ApplicationAccepted      ApplicationStatus = "accepted"
	ApplicationDeclined      ApplicationStatus = "declined"
	ApplicationNotInterested ApplicationStatus = "not_interested"
	ApplicationNoResponse    ApplicationStatus = "no_response"
)

// ValidApplicationStatus reports whether s is a known status.
func ValidApplicationStatus(s ApplicationStatus) bool {
	switch s {
	case ApplicationNew, ApplicationApplied, ApplicationRejected, ApplicationInProgress,
		ApplicationOffer, ApplicationAccepted, ApplicationDeclined, ApplicationNotInterested,
		ApplicationNoResponse:
		return true
	}
	return false
}

// HistoryEntry is one row of the job history file.
type HistoryEntry struct {
	JobID             string            `json:"job_id" validate:"required"`
	Title             string            `json:"title"`
	Company           string            `json:"company"`
	Location          string            `json:"location"`
	URL               string            `json:"url"`
	MatchStatus       JobStatus         `json:"match_status"`
	ApplicationStatus ApplicationStatus `json:"application_status"`
	RejectionReason   string            `json:"rejection_reason"`
	SkipReason        string            `json:"skip_reason"`
	UserNotes         string            `json:"user_notes"`
	DateCreated       string            `json:"date_created"`
	DateUpdated       string            `json:"date_updated"`
	DateApplied       string            `json:"date_applied"`
	DateRejected      string            `json:"date_rejected"`
	ResumePath        string            `json:"resume_path"`
	CoverLetterPath   string            `json:"cover_letter_path"`
}

// HistoryColumns is the CSV header of the history file.
var HistoryColumns = []string{
	"job_id", "title", "company", "location", "url", "match_status", "application_status",
	"rejection_reason", "skip_reason", "user_notes", "date_created", "date_updated",
	"date_applied", "date_rejected", "resume_path", "cover_letter_path",
}

// Record converts the entry to a CSV row keyed by column.
func (h HistoryEntry) Record() map[string]string {
	return map[string]string{
		"job_id":             h.JobID,
		"title":              h.Title,
		"company":            h.Company,
		"location":           h.Location,
		"url":                h.URL,
		"match_status":       string(h.MatchStatus),
		"application_status": string(h.ApplicationStatus),
		"rejection_reason":   h.RejectionReason,
		"skip_reason":        h.SkipReason,
		"user_notes":         h.UserNotes,
		"date_created":       h.DateCreated,
		"date_updated":       h.DateUpdated,
		"date_applied":       h.DateApplied,
		"date_rejected":      h.DateRejected,
		"resume_path":        h.ResumePath,
		"cover_letter_path":  h.CoverLetterPath,
	}
}

// HistoryFromRecord is the inverse of Record.
func HistoryFromRecord(r map[string]string) HistoryEntry {
	return HistoryEntry{
		JobID:             r["job_id"],
		Title:             r["title"],
		Company:           r["company"],
		Location:          r["location"],
		URL:               r["url"],
		MatchStatus:       JobStatus(r["match_status"]),
		ApplicationStatus: ApplicationStatus(r["application_status"]),
		RejectionReason:   r["rejection_reason"],
		SkipReason:        r["skip_reason"],
		UserNotes:         r["user_notes"],
		DateCreated:       r["date_created"],
		DateUpdated:       r["date_updated"],
		DateApplied:       r["date_applied"],
		DateRejected:      r["date_rejected"],
		ResumePath:        r["resume_path"],
		CoverLetterPath:   r["cover_letter_path"],
	}
}

// BlacklistEntry is one row of the blacklist file.
type BlacklistEntry struct {
	Company     string `json:"company" validate:"required"`
	Reason      string `json:"reason"`
	Notes       string `json:"notes"`
	DateCreated string `json:"date_created"`
	DateUpdated string `json:"date_updated"`
}

// BlacklistColumns is the CSV header of the blacklist file.
var BlacklistColumns = []string{"company", "reason", "notes", "date_created", "date_updated"}

func (b BlacklistEntry) Record() map[string]string {
	return map[string]string{
		"company":      b.Company,
		"reason":       b.Reason,
		"notes":        b.Notes,
		"date_created": b.DateCreated,
		"date_updated": b.DateUpdated,
	}
}

func BlacklistFromRecord(r map[string]string) BlacklistEntry {
	return BlacklistEntry{
		Company:     r["company"],
		Reason:      r["reason"],
		Notes:       r["notes"],
		DateCreated: r["date_created"],
		DateUpdated: r["date_updated"],
	}
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a stored timestamp in local time. Dates written without fractional
// seconds are accepted too.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range []string{DateLayout, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
