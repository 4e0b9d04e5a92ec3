// Package application drives an application session from the customized
// resume through the cover letter to the finalized documents.
package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/spigell/vettavista/internal/ai"
	"github.com/spigell/vettavista/internal/apperr"
	"github.com/spigell/vettavista/internal/cache"
	"github.com/spigell/vettavista/internal/config"
	"github.com/spigell/vettavista/internal/editor"
	"github.com/spigell/vettavista/internal/logger"
	"github.com/spigell/vettavista/internal/metrics"
	"github.com/spigell/vettavista/internal/models"
)

// MaxParallelOperations bounds the concurrently running apply, cover letter
// and finalize operations.
const MaxParallelOperations = 2

// Editor is the session registry the service drives.
type Editor interface {
	AddTask(task *models.ActiveTask)
	Task(sessionID string) (*models.ActiveTask, bool)
	CreateSession(sessionID, originalLatex, customizedLatex string) error
	Broadcast(msg editor.ServerMessage) (int, error)
}

// Documents renders the application documents.
type Documents interface {
	ResumeLaTeX(r *models.Resume) (string, error)
	CoverLetterText(company, body string, date time.Time) string
	RenderResume(ctx context.Context, name, latex string) (string, error)
	RenderCoverLetter(ctx context.Context, name, text string) (string, error)
}

// HistoryStore records finalized applications.
type HistoryStore interface {
	Upsert(entry models.HistoryEntry) error
	Search(query string, status models.ApplicationStatus, days int) ([]models.HistoryEntry, error)
}

// Broadcaster pushes data to the sync clients.
type Broadcaster interface {
	BroadcastUpdate(ctx context.Context, data any) error
}

// Config is the reloadable part of the service configuration.
type Config struct {
	OutputDir string
	Personals models.Personals
	Resume    *models.Resume
}

// ConfigFromSettings extracts the service configuration from s.
func ConfigFromSettings(s *config.Settings) Config {
	r := s.Profile.Resume
	return Config{
		OutputDir: s.OutputDir,
		Personals: s.Profile.Personals,
		Resume:    r.Clone(),
	}
}

type Deps struct {
	Cache       *cache.JobCache
	Editor      Editor
	Documents   Documents
	History     HistoryStore
	Broadcaster Broadcaster
	Customizer  ai.ResumeCustomizer
	Writer      ai.CoverLetterWriter
	Logger      *zap.Logger
}

// ApplyResult is returned when a session was created.
type ApplyResult struct {
	SessionID string `json:"session_id"`
	EditorURL string `json:"editor_url"`
}

// PhaseResult is returned by phase transitions.
type PhaseResult struct {
	SessionID string                  `json:"session_id"`
	Phase     models.ApplicationPhase `json:"phase"`
}

type Service struct {
	cache       *cache.JobCache
	editor      Editor
	documents   Documents
	history     HistoryStore
	broadcaster Broadcaster
	customizer  ai.ResumeCustomizer
	writer      ai.CoverLetterWriter
	logger      *zap.Logger
	sem         *semaphore.Weighted

	now           func() time.Time
	newID         func() string
	openDirectory func(dir string) error

	mu  sync.RWMutex
	cfg Config
}

func NewService(deps Deps, cfg Config) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(deps.Logger)
	}
	return &Service{
		cache:         deps.Cache,
		editor:        deps.Editor,
		documents:     deps.Documents,
		history:       deps.History,
		broadcaster:   deps.Broadcaster,
		customizer:    deps.Customizer,
		writer:        deps.Writer,
		logger:        deps.Logger,
		sem:           semaphore.NewWeighted(MaxParallelOperations),
		now:           time.Now,
		newID:         uuid.NewString,
		openDirectory: openDirectory,
		cfg:           cfg,
	}
}

// SetConfig replaces the configuration for subsequent operations.
func (s *Service) SetConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func (s *Service) config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.sem.Release(1) }, nil
}

func (s *Service) task(sessionID string) (*models.ActiveTask, error) {
	task, ok := s.editor.Task(sessionID)
	if !ok {
		return nil, apperr.Validation("No task found for session: %s", sessionID)
	}
	return task, nil
}

func observe(operation string, err error) {
	metrics.ApplicationOperations.WithLabelValues(operation, metrics.Result(err)).Inc()
}

// HandleApply creates a session for jobID with a customized resume ready for
// editing.
func (s *Service) HandleApply(ctx context.Context, jobID string, applyType models.ApplyType) (result ApplyResult, err error) {
	defer func() { observe("apply", err) }()

	task := models.NewActiveTask(s.newID(), jobID, applyType, s.now())
	s.editor.AddTask(task)
	task.SetStatus(models.ProcessingProcessing)

	log := logger.WithSession(s.logger, task.SessionID, jobID)
	log.Info("starting application process")

	release, err := s.acquire(ctx)
	if err != nil {
		task.Fail(err)
		return ApplyResult{}, err
	}
	defer release()

	if err := s.prepareResume(ctx, task); err != nil {
		log.Error("error in resume phase", zap.Error(err))
		task.Fail(err)
		return ApplyResult{}, err
	}

	task.SetStatus(models.ProcessingPending)
	log.Info("successfully customized resume")
	return ApplyResult{
		SessionID: task.SessionID,
		EditorURL: "/editor?session=" + task.SessionID,
	}, nil
}

func (s *Service) prepareResume(ctx context.Context, task *models.ActiveTask) error {
	cfg := s.config()

	job, ok := s.cache.JobInfo(task.JobID)
	if !ok {
		return apperr.Validation("No cached job info found for job_id: %s", task.JobID)
	}

	customized, err := s.customizedResume(ctx, job, cfg.Resume)
	if err != nil {
		return err
	}
	filtered, recommended := splitSkills(customized)

	originalLatex, err := s.documents.ResumeLaTeX(cfg.Resume)
	if err != nil {
		return fmt.Errorf("render original resume: %w", err)
	}
	customizedLatex, err := s.documents.ResumeLaTeX(filtered)
	if err != nil {
		return fmt.Errorf("render customized resume: %w", err)
	}

	task.Lock()
	task.RecommendedSkills = recommended
	task.Unlock()

	return s.editor.CreateSession(task.SessionID, originalLatex, customizedLatex)
}

func (s *Service) customizedResume(ctx context.Context, job models.JobDetailedInfo, original *models.Resume) (*models.Resume, error) {
	if cached, ok := s.cache.Resume(job.JobID); ok {
		s.logger.Info("using cached resume", zap.String(logger.FieldJobID, job.JobID))
		return cached, nil
	}

	analysis, _ := s.cache.Analysis(job.JobID)
	customized, err := s.customizer.CustomizeResume(ctx, job, original.WithIDs(), analysis)
	if err != nil {
		return nil, fmt.Errorf("customize resume: %w", err)
	}
	s.cache.SetResume(job.JobID, customized)
	return customized, nil
}

// StartCoverLetterPhase moves the session to the cover letter phase with the
// user's edited letter, the cached one or a newly generated one.
func (s *Service) StartCoverLetterPhase(ctx context.Context, sessionID string) (result PhaseResult, err error) {
	defer func() { observe("cover_letter", err) }()

	task, err := s.task(sessionID)
	if err != nil {
		return PhaseResult{}, err
	}
	log := logger.WithSession(s.logger, sessionID, task.JobID)
	log.Info("starting cover letter phase")

	release, err := s.acquire(ctx)
	if err != nil {
		return PhaseResult{}, err
	}
	defer release()

	task.SetStatus(models.ProcessingProcessing)

	letter, err := s.coverLetter(ctx, task)
	if err != nil {
		log.Error("error starting cover letter phase", zap.Error(err))
		task.Fail(err)
		return PhaseResult{}, err
	}

	template := s.coverLetterTemplate()
	task.Lock()
	task.CoverLetterData = &models.CustomizedContent{Original: template, Customized: letter}
	task.Unlock()

	if _, err := s.editor.Broadcast(editor.ServerMessage{
		Type:      editor.MessagePhaseChange,
		Phase:     models.PhaseCoverLetter,
		PhaseData: &editor.PhaseData{Original: template, Customized: letter},
	}); err != nil {
		log.Error("error starting cover letter phase", zap.Error(err))
		task.Fail(err)
		return PhaseResult{}, err
	}

	task.Lock()
	task.CurrentPhase = models.PhaseCoverLetter
	task.Status = models.ProcessingProcessing
	task.Unlock()

	log.Info("successfully started cover letter phase")
	return PhaseResult{SessionID: sessionID, Phase: models.PhaseCoverLetter}, nil
}

func (s *Service) coverLetterTemplate() string {
	if r := s.config().Resume; r != nil {
		return r.CoverLetterTemplate
	}
	return ""
}

func (s *Service) coverLetter(ctx context.Context, task *models.ActiveTask) (string, error) {
	snapshot := task.Snapshot()
	if snapshot.CoverLetterData != nil && snapshot.CoverLetterData.Customized != "" {
		s.logger.Info("using user-customized cover letter", zap.String(logger.FieldJobID, task.JobID))
		return snapshot.CoverLetterData.Customized, nil
	}

	job, ok := s.cache.JobInfo(task.JobID)
	if !ok {
		return "", apperr.Validation("No cached job info found for job_id: %s", task.JobID)
	}

	body, ok := s.cache.CoverLetter(task.JobID)
	if ok {
		s.logger.Info("using cached cover letter", zap.String(logger.FieldJobID, task.JobID))
	} else {
		if snapshot.ResumeData == nil {
			return "", apperr.Validation("No resume data available")
		}
		s.logger.Info("generating new cover letter", zap.String(logger.FieldJobID, task.JobID))

		var err error
		body, err = s.writer.WriteCoverLetter(ctx, snapshot.ResumeData.Customized, job, s.coverLetterTemplate())
		if err != nil {
			return "", fmt.Errorf("write cover letter: %w", err)
		}
		s.cache.SetCoverLetter(task.JobID, body)
	}

	return s.documents.CoverLetterText(job.Company, body, s.now()), nil
}

// BackToResumePhase returns a session in the cover letter phase to the
// resume phase with its content unchanged.
func (s *Service) BackToResumePhase(_ context.Context, sessionID string) (result PhaseResult, err error) {
	defer func() { observe("back_to_resume", err) }()

	task, err := s.task(sessionID)
	if err != nil {
		return PhaseResult{}, err
	}
	log := logger.WithSession(s.logger, sessionID, task.JobID)
	log.Info("returning to resume phase")

	task.Lock()
	if task.CurrentPhase != models.PhaseCoverLetter {
		task.Unlock()
		return PhaseResult{}, apperr.Validation("Can only return to resume phase from cover letter phase")
	}
	task.CurrentPhase = models.PhaseResume
	var data *editor.PhaseData
	if task.ResumeData != nil {
		data = &editor.PhaseData{Original: task.ResumeData.Original, Customized: task.ResumeData.Customized}
	}
	task.Unlock()

	if data == nil {
		err := apperr.Validation("No resume data available")
		log.Error("error returning to resume phase", zap.Error(err))
		task.Fail(err)
		return PhaseResult{}, err
	}

	if _, err := s.editor.Broadcast(editor.ServerMessage{
		Type:      editor.MessagePhaseChange,
		Phase:     models.PhaseResume,
		PhaseData: data,
	}); err != nil {
		log.Error("error returning to resume phase", zap.Error(err))
		task.Fail(err)
		return PhaseResult{}, err
	}

	log.Info("successfully returned to resume phase")
	return PhaseResult{SessionID: sessionID, Phase: models.PhaseResume}, nil
}
