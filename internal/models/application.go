package models

import (
	"sync"
	"time"
)

type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingProcessing ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

type ApplyType string

const (
	ApplyEasy     ApplyType = "easy_apply"
	ApplyExternal ApplyType = "external"
)

type ApplicationPhase string

const (
	PhaseResume      ApplicationPhase = "resume"
	PhaseCoverLetter ApplicationPhase = "cover_letter"
	PhaseFinalized   ApplicationPhase = "finalized"
)

// CustomizedContent pairs the generated original with the user's edit.
type CustomizedContent struct {
	Original   string `json:"original"`
	Customized string `json:"customized"`
}

// ActiveTask is the state of one application session. Callers hold the
// embedded mutex while reading or mutating fields.
type ActiveTask struct {
	sync.Mutex

	SessionID         string
	JobID             string
	ApplyType         ApplyType
	Status            ProcessingStatus
	CurrentPhase      ApplicationPhase
	ResumeData        *CustomizedContent
	CoverLetterData   *CustomizedContent
	RecommendedSkills []string
	PreviewData       string
	Error             string
	CreatedAt         time.Time
}

// NewActiveTask creates a task in the resume phase.
func NewActiveTask(sessionID, jobID string, applyType ApplyType, now time.Time) *ActiveTask {
	return &ActiveTask{
		SessionID:    sessionID,
		JobID:        jobID,
		ApplyType:    applyType,
		Status:       ProcessingPending,
		CurrentPhase: PhaseResume,
		CreatedAt:    now,
	}
}

// SetStatus updates the processing status under the task lock.
func (t *ActiveTask) SetStatus(status ProcessingStatus) {
	t.Lock()
	defer t.Unlock()
	t.Status = status
}

// Fail marks the task failed and records err.
func (t *ActiveTask) Fail(err error) {
	t.Lock()
	defer t.Unlock()
	t.Status = ProcessingFailed
	if err != nil {
		t.Error = err.Error()
	}
}

// TaskSnapshot is a lock-free copy of an ActiveTask.
type TaskSnapshot struct {
	SessionID         string
	JobID             string
	ApplyType         ApplyType
	Status            ProcessingStatus
	CurrentPhase      ApplicationPhase
	ResumeData        *CustomizedContent
	CoverLetterData   *CustomizedContent
	RecommendedSkills []string
	PreviewData       string
	Error             string
}

// Snapshot copies the task state under its lock.
func (t *ActiveTask) Snapshot() TaskSnapshot {
	t.Lock()
	defer t.Unlock()
	s := TaskSnapshot{
		SessionID:         t.SessionID,
		JobID:             t.JobID,
		ApplyType:         t.ApplyType,
		Status:            t.Status,
		CurrentPhase:      t.CurrentPhase,
		RecommendedSkills: append([]string{}, t.RecommendedSkills...),
		PreviewData:       t.PreviewData,
		Error:             t.Error,
	}
	if t.ResumeData != nil {
		c := *t.ResumeData
		s.ResumeData = &c
	}
	if t.CoverLetterData != nil {
		c := *t.CoverLetterData
		s.CoverLetterData = &c
	}
	return s
}
