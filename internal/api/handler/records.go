package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/api/response"
	"github.com/spigell/vettavista/internal/models"
)

// DefaultHistoryDays is the search window when the request names none.
const DefaultHistoryDays = 30

type Blacklist interface {
	Add(company, reason, notes string) error
	Remove(company string) error
	All() ([]models.BlacklistEntry, error)
}

type History interface {
	Upsert(entry models.HistoryEntry) error
	Search(query string, status models.ApplicationStatus, days int) ([]models.HistoryEntry, error)
}

// Broadcaster pushes changed records to the sync clients.
type Broadcaster interface {
	BroadcastUpdate(ctx context.Context, data any) error
}

type blacklistRequest struct {
	Company string `json:"company" validate:"required"`
	Reason  string `json:"reason"`
	Notes   string `json:"notes"`
}

type historyRequest struct {
	JobID             string                   `json:"jobId" validate:"required"`
	Title             string                   `json:"title" validate:"required"`
	Company           string                   `json:"company" validate:"required"`
	Location          string                   `json:"location"`
	URL               string                   `json:"url"`
	MatchStatus       models.JobStatus         `json:"match_status"`
	ApplicationStatus models.ApplicationStatus `json:"application_status"`
	UserNotes         string                   `json:"user_notes"`
	DateApplied       string                   `json:"date_applied"`
}

// tracked lists the statuses worth keeping in the history.
func tracked(s models.ApplicationStatus) bool {
	switch s {
	case models.ApplicationApplied, models.ApplicationInProgress, models.ApplicationOffer,
		models.ApplicationAccepted, models.ApplicationDeclined:
		return true
	}
	return false
}

// NewListBlacklistHandler returns the handler for GET /api/blacklist.
func NewListBlacklistHandler(store Blacklist) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		entries, err := store.All()
		if err != nil {
			response.FromError(w, err)
			return
		}
		response.JSON(w, map[string]any{"blacklist": entries})
	}
}

// NewAddBlacklistHandler returns the handler for POST /api/blacklist.
func NewAddBlacklistHandler(store Blacklist, sync Broadcaster, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req blacklistRequest
		if !decode(w, r, &req) {
			return
		}
		if err := store.Add(req.Company, req.Reason, req.Notes); err != nil {
			response.FromError(w, err)
			return
		}
		broadcastBlacklist(r.Context(), store, sync, log)
		response.NoContent(w)
	}
}

// NewRemoveBlacklistHandler returns the handler for
// DELETE /api/blacklist/{company}.
func NewRemoveBlacklistHandler(store Blacklist, sync Broadcaster, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Remove(chi.URLParam(r, "company")); err != nil {
			response.FromError(w, err)
			return
		}
		broadcastBlacklist(r.Context(), store, sync, log)
		response.NoContent(w)
	}
}

func broadcastBlacklist(ctx context.Context, store Blacklist, sync Broadcaster, log *zap.Logger) {
	entries, err := store.All()
	if err != nil {
		log.Error("failed to load blacklist for sync", zap.Error(err))
		return
	}
	if err := sync.BroadcastUpdate(ctx, map[string]any{"blacklist": entries}); err != nil {
		log.Error("failed to broadcast blacklist update", zap.Error(err))
	}
}

// NewSearchHistoryHandler returns the handler for
// GET /api/job-history?query=&status=&days=.
func NewSearchHistoryHandler(store History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		days := DefaultHistoryDays
		if raw := q.Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "days must be a non-negative integer", nil)
				return
			}
			days = n
		}
		status := models.ApplicationStatus(q.Get("status"))
		if status != "" && !models.ValidApplicationStatus(status) {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "unknown application status: "+string(status), nil)
			return
		}

		entries, err := store.Search(q.Get("query"), status, days)
		if err != nil {
			response.FromError(w, err)
			return
		}
		if entries == nil {
			entries = []models.HistoryEntry{}
		}
		response.JSON(w, map[string]any{"history": entries})
	}
}

// NewUpsertHistoryHandler returns the handler for POST /api/job-history.
// Only applications in an active status are stored.
func NewUpsertHistoryHandler(store History, sync Broadcaster, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req historyRequest
		if !decode(w, r, &req) {
			return
		}
		if !tracked(req.ApplicationStatus) {
			response.JSON(w, map[string]bool{"stored": false})
			return
		}

		entry := models.HistoryEntry{
			JobID:             req.JobID,
			Title:             req.Title,
			Company:           req.Company,
			Location:          req.Location,
			URL:               req.URL,
			MatchStatus:       req.MatchStatus,
			ApplicationStatus: req.ApplicationStatus,
			UserNotes:         req.UserNotes,
			DateApplied:       req.DateApplied,
		}
		if entry.DateApplied == "" && entry.ApplicationStatus == models.ApplicationApplied {
			entry.DateApplied = models.FormatDate(time.Now())
		}
		if err := store.Upsert(entry); err != nil {
			response.FromError(w, err)
			return
		}

		history, err := store.Search("", "", DefaultHistoryDays)
		if err != nil {
			log.Error("failed to load history for sync", zap.Error(err))
		} else if err := sync.BroadcastUpdate(r.Context(), map[string]any{"history": history}); err != nil {
			log.Error("failed to broadcast history update", zap.Error(err))
		}
		response.JSON(w, map[string]bool{"stored": true})
	}
}
