// Package models holds the data types shared by the filter pipeline, the
// application workflow and persistence.
package models

import "strings"

// GlassdoorRating is the employer rating attached to a posting by the client.
type GlassdoorRating struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
	IsValid     bool    `json:"isValid"`
}

// JobInfo is the summary of a posting used by the preliminary stage.
type JobInfo struct {
	JobID           string          `json:"jobId" validate:"required"`
	Title           string          `json:"title"`
	Company         string          `json:"company"`
	Location        string          `json:"location"`
	GlassdoorRating GlassdoorRating `json:"glassdoorRating"`
}

// JobDetailedInfo extends JobInfo with the full posting body.
type JobDetailedInfo struct {
	JobInfo
	Description  string `json:"description"`
	URL          string `json:"url"`
	Requirements string `json:"requirements"`
	AboutCompany string `json:"aboutCompany"`
	CompanySize  string `json:"companySize"`
}

// MissingFields lists required fields that are empty.
func (j JobInfo) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(j.JobID) == "" {
		missing = append(missing, "jobId")
	}
	return missing
}

// Country returns the last comma separated part of the location.
func (j JobInfo) Country() string {
	parts := strings.Split(j.Location, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}
