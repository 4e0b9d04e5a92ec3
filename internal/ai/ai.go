// Package ai defines the language model capabilities used by the filter
// pipeline and the application workflow, and validates their responses.
package ai

import (
	"context"
	"errors"

	"github.com/spigell/vettavista/internal/models"
)

var (
	// ErrTransient marks rate limiting or overload of the provider.
	ErrTransient = errors.New("transient provider error")
	// ErrMalformedResponse marks a response that failed structural validation.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrEmptyResponse marks a response without text.
	ErrEmptyResponse = errors.New("empty model response")
)

// Extractor turns a job description into a structured analysis.
type Extractor interface {
	Extract(ctx context.Context, description, postLanguage string) (*models.JobAnalysis, error)
}

// ResumeCustomizer tailors the resume to a posting. The original resume must
// carry experience and project IDs so the result can be correlated back.
type ResumeCustomizer interface {
	CustomizeResume(ctx context.Context, job models.JobDetailedInfo, original *models.Resume, analysis *models.JobAnalysis) (*models.Resume, error)
}

// CoverLetterWriter produces the body of a cover letter, without greeting or
// signature.
type CoverLetterWriter interface {
	WriteCoverLetter(ctx context.Context, resumeLatex string, job models.JobDetailedInfo, template string) (string, error)
}

// Retryable reports whether err is worth repeating the call for.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrEmptyResponse)
}
