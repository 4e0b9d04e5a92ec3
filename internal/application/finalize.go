package application

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/vettavista/internal/apperr"
	"github.com/spigell/vettavista/internal/datasync"
	"github.com/spigell/vettavista/internal/logger"
	"github.com/spigell/vettavista/internal/models"
)

// FinalizeApplication renders both documents, stores them under the output
// directory and records the application in the history.
func (s *Service) FinalizeApplication(ctx context.Context, sessionID, content string) (err error) {
	defer func() { observe("finalize", err) }()

	task, err := s.task(sessionID)
	if err != nil {
		return err
	}
	job, ok := s.cache.JobInfo(task.JobID)
	if !ok {
		return apperr.Validation("No job info found for job %s", task.JobID)
	}
	log := logger.WithSession(s.logger, sessionID, task.JobID)

	task.Lock()
	if task.CurrentPhase != models.PhaseCoverLetter {
		task.Unlock()
		return apperr.Validation("Can only finalize from cover letter phase")
	}
	if task.ResumeData == nil || task.CoverLetterData == nil {
		task.Unlock()
		log.Error("missing resume or cover letter data, nothing to finalize")
		return nil
	}
	task.CoverLetterData.Customized = content
	resumeLatex := task.ResumeData.Customized
	task.Status = models.ProcessingProcessing
	task.Unlock()

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	resumePath, coverLetterPath, err := s.storeDocuments(ctx, sessionID, job.JobID, resumeLatex, content)
	if err != nil {
		log.Error("error finalizing application", zap.Error(err))
		task.Fail(err)
		return err
	}

	entry := models.HistoryEntry{
		JobID:             job.JobID,
		Title:             job.Title,
		Company:           job.Company,
		Location:          job.Location,
		URL:               job.URL,
		MatchStatus:       s.matchStatus(job.JobID),
		ApplicationStatus: models.ApplicationApplied,
		DateApplied:       models.FormatDate(s.now()),
		ResumePath:        resumePath,
		CoverLetterPath:   coverLetterPath,
	}
	if err := s.history.Upsert(entry); err != nil {
		err = fmt.Errorf("record application: %w", err)
		log.Error("error finalizing application", zap.Error(err))
		task.Fail(err)
		return err
	}

	task.Lock()
	task.Status = models.ProcessingCompleted
	task.CurrentPhase = models.PhaseFinalized
	task.Unlock()

	s.broadcastHistory(ctx, log)

	dir := filepath.Dir(resumePath)
	if err := s.openDirectory(dir); err != nil {
		log.Warn("failed to open output directory", zap.String("dir", dir), zap.Error(err))
	}

	log.Info("application finalized",
		zap.String("resume_path", resumePath),
		zap.String("cover_letter_path", coverLetterPath),
	)
	return nil
}

// storeDocuments compiles the resume and the cover letter in parallel and
// copies the PDFs to <output>/<job id>/.
func (s *Service) storeDocuments(ctx context.Context, sessionID, jobID, resumeLatex, letter string) (string, string, error) {
	cfg := s.config()

	var resumePDF, letterPDF string
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resumePDF, err = s.documents.RenderResume(gCtx, "resume_"+sessionID, resumeLatex)
		return err
	})
	g.Go(func() error {
		var err error
		letterPDF, err = s.documents.RenderCoverLetter(gCtx, "cover_letter_"+sessionID, letter)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}

	dir := filepath.Join(cfg.OutputDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output directory: %w", err)
	}

	slug := cfg.Personals.FileSlug()
	resumePath := filepath.Join(dir, "resume_"+slug+".pdf")
	letterPath := filepath.Join(dir, "cover_letter_"+slug+".pdf")
	if err := copyFile(resumePDF, resumePath); err != nil {
		return "", "", err
	}
	if err := copyFile(letterPDF, letterPath); err != nil {
		return "", "", err
	}
	return resumePath, letterPath, nil
}

func (s *Service) matchStatus(jobID string) models.JobStatus {
	for _, ft := range []models.FilterType{models.FilterDetailed, models.FilterPreliminary} {
		if result, ok := s.cache.FilterResult(jobID, ft); ok {
			return result.Status
		}
	}
	return models.StatusUnknown
}

func (s *Service) broadcastHistory(ctx context.Context, log *zap.Logger) {
	if s.broadcaster == nil {
		return
	}
	history, err := s.history.Search("", "", datasync.HistoryDays)
	if err != nil {
		log.Error("failed to load history for sync", zap.Error(err))
		return
	}
	if history == nil {
		history = []models.HistoryEntry{}
	}
	if err := s.broadcaster.BroadcastUpdate(ctx, map[string]any{"history": history}); err != nil {
		log.Error("failed to broadcast history update", zap.Error(err))
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
