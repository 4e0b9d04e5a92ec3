package models

import "time"

type JobStatus string

const (
	StatusUnknown          JobStatus = "unknown"
	StatusLikelyMatch      JobStatus = "likely_match"
	StatusPossibleMatch    JobStatus = "possible_match"
	StatusNotLikely        JobStatus = "not_likely"
	StatusConfirmedMatch   JobStatus = "confirmed_match"
	StatusConfirmedNoMatch JobStatus = "confirmed_no_match"
	StatusError            JobStatus = "error"
)

type FilterType string

const (
	FilterPreliminary FilterType = "preliminary"
	FilterDetailed    FilterType = "detailed"
)

// JobStatusResponse is the verdict for one posting. Timestamp is unix seconds
// and drives cache expiry.
type JobStatusResponse struct {
	Status     JobStatus  `json:"status"`
	Match      *bool      `json:"match,omitempty"`
	Reasons    []string   `json:"reasons"`
	TitleScore *float64   `json:"title_score,omitempty"`
	FilterType FilterType `json:"filter_type"`
	Timestamp  float64    `json:"timestamp"`
}

// NewResponse builds a response stamped with now.
func NewResponse(status JobStatus, filterType FilterType, now time.Time, reasons ...string) JobStatusResponse {
	if reasons == nil {
		reasons = []string{}
	}
	return JobStatusResponse{
		Status:     status,
		Reasons:    reasons,
		FilterType: filterType,
		Timestamp:  float64(now.UnixNano()) / float64(time.Second),
	}
}

// WithMatch sets the match flag.
func (r JobStatusResponse) WithMatch(match bool) JobStatusResponse {
	r.Match = &match
	return r
}

// WithTitleScore sets the title score.
func (r JobStatusResponse) WithTitleScore(score float64) JobStatusResponse {
	r.TitleScore = &score
	return r
}

// Time returns Timestamp as time.Time.
func (r JobStatusResponse) Time() time.Time {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// Clone returns a deep copy.
func (r JobStatusResponse) Clone() JobStatusResponse {
	out := r
	out.Reasons = append([]string{}, r.Reasons...)
	if r.Match != nil {
		m := *r.Match
		out.Match = &m
	}
	if r.TitleScore != nil {
		s := *r.TitleScore
		out.TitleScore = &s
	}
	return out
}
