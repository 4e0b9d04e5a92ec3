package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spigell/vettavista/internal/api/response"
	"github.com/spigell/vettavista/internal/application"
	"github.com/spigell/vettavista/internal/models"
)

type Applications interface {
	HandleApply(ctx context.Context, jobID string, applyType models.ApplyType) (application.ApplyResult, error)
	StartCoverLetterPhase(ctx context.Context, sessionID string) (application.PhaseResult, error)
	BackToResumePhase(ctx context.Context, sessionID string) (application.PhaseResult, error)
	FinalizeApplication(ctx context.Context, sessionID, content string) error
}

type applyRequest struct {
	ApplyType models.ApplyType `json:"apply_type" validate:"required,oneof=easy_apply external"`
}

type finalizeRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Content   string `json:"content"`
}

// NewApplyHandler returns the handler for POST /api/apply/{jobID}.
func NewApplyHandler(svc Applications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req applyRequest
		if !decode(w, r, &req) {
			return
		}
		result, err := svc.HandleApply(r.Context(), chi.URLParam(r, "jobID"), req.ApplyType)
		if err != nil {
			response.FromError(w, err)
			return
		}
		response.JSON(w, result)
	}
}

// NewCoverLetterHandler returns the handler for
// POST /api/apply/cover-letter/{sessionID}.
func NewCoverLetterHandler(svc Applications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.StartCoverLetterPhase(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			response.FromError(w, err)
			return
		}
		response.Accepted(w, result)
	}
}

// NewBackToResumeHandler returns the handler for
// POST /api/editor/back-to-resume/{sessionID}.
func NewBackToResumeHandler(svc Applications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.BackToResumePhase(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			response.FromError(w, err)
			return
		}
		response.JSON(w, result)
	}
}

// NewFinalizeHandler returns the handler for POST /api/editor/finalize.
func NewFinalizeHandler(svc Applications) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req finalizeRequest
		if !decode(w, r, &req) {
			return
		}
		if err := svc.FinalizeApplication(r.Context(), req.SessionID, req.Content); err != nil {
			response.FromError(w, err)
			return
		}
		response.NoContent(w)
	}
}
