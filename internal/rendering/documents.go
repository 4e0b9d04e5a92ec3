package rendering

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/config"
	"github.com/spigell/vettavista/internal/models"
)

// Profile is what the documents need to know about the candidate.
type Profile struct {
	Personals         models.Personals
	Resume            *models.Resume
	ResumeEngine      string
	CoverLetterEngine string
}

// ProfileFromSettings extracts the rendering profile from s.
func ProfileFromSettings(s *config.Settings) Profile {
	r := s.Profile.Resume
	return Profile{
		Personals:         s.Profile.Personals,
		Resume:            r.Clone(),
		ResumeEngine:      s.Latex.ResumeEngine,
		CoverLetterEngine: s.Latex.CoverLetterEngine,
	}
}

// Documents renders resumes and cover letters for the configured candidate.
type Documents struct {
	compiler *Compiler
	logger   *zap.Logger

	mu      sync.RWMutex
	profile Profile
}

func NewDocuments(compiler *Compiler, profile Profile, logger *zap.Logger) *Documents {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Documents{compiler: compiler, logger: logger}
	d.SetProfile(profile)
	return d
}

// SetProfile replaces the candidate profile. Empty engines fall back to
// pdflatex for resumes and xelatex for cover letters.
func (d *Documents) SetProfile(p Profile) {
	if p.ResumeEngine == "" {
		p.ResumeEngine = PDFLaTeX
	}
	if p.CoverLetterEngine == "" {
		p.CoverLetterEngine = XeLaTeX
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile = p
}

func (d *Documents) current() Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.profile
}

// ResumeLaTeX renders r under the candidate header.
func (d *Documents) ResumeLaTeX(r *models.Resume) (string, error) {
	return ResumeLaTeX(d.current().Personals, r)
}

// CoverLetterText wraps body for company, signed with the candidate name.
func (d *Documents) CoverLetterText(company, body string, date time.Time) string {
	return CoverLetterText(company, body, d.current().Personals.FullName(), date)
}

// RenderResume compiles resume LaTeX and returns the PDF path.
func (d *Documents) RenderResume(ctx context.Context, name, latex string) (string, error) {
	return d.compiler.Compile(ctx, d.current().ResumeEngine, name, latex)
}

// RenderCoverLetter typesets the plain text letter and returns the PDF path.
func (d *Documents) RenderCoverLetter(ctx context.Context, name, text string) (string, error) {
	p := d.current()
	latex, err := CoverLetterLaTeX(p.Personals, p.Resume, text)
	if err != nil {
		return "", err
	}
	return d.compiler.Compile(ctx, p.CoverLetterEngine, name, latex)
}

// Preview returns the PDF at path as base64.
func (d *Documents) Preview(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read preview %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
