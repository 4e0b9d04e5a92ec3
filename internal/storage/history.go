package storage

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/models"
)

// History stores every job the user acted on.
type History struct {
	table  *table
	logger *zap.Logger
}

func NewHistory(path string, logger *zap.Logger) (*History, error) {
	t, err := newTable(path, "job_id", models.HistoryColumns, logger)
	if err != nil {
		return nil, err
	}
	return &History{table: t, logger: t.logger}, nil
}

// Upsert writes entry, merging into an existing row with the same job id.
func (h *History) Upsert(entry models.HistoryEntry) error {
	return h.table.Set(entry.JobID, entry.Record())
}

func (h *History) Get(jobID string) (models.HistoryEntry, bool, error) {
	rec, ok, err := h.table.Get(jobID)
	if err != nil || !ok {
		return models.HistoryEntry{}, false, err
	}
	return models.HistoryFromRecord(rec), true, nil
}

// UpdateStatus sets the application status and stamps the matching date
// column. Unknown jobs are ignored.
func (h *History) UpdateStatus(jobID string, status models.ApplicationStatus, notes string) error {
	entry, ok, err := h.Get(jobID)
	if err != nil || !ok {
		return err
	}

	now := models.FormatDate(h.table.now())
	entry.ApplicationStatus = status
	switch status {
	case models.ApplicationApplied:
		entry.DateApplied = now
	case models.ApplicationRejected:
		entry.DateRejected = now
	}
	if notes != "" {
		entry.UserNotes = notes
	}
	return h.table.Set(jobID, entry.Record())
}

func (h *History) AddRejection(jobID, reason string) error {
	entry, ok, err := h.Get(jobID)
	if err != nil || !ok {
		return err
	}
	entry.ApplicationStatus = models.ApplicationRejected
	entry.RejectionReason = reason
	entry.DateRejected = models.FormatDate(h.table.now())
	return h.table.Set(jobID, entry.Record())
}

func (h *History) IsRejected(jobID string) (bool, error) {
	entry, ok, err := h.Get(jobID)
	if err != nil || !ok {
		return false, err
	}
	return entry.ApplicationStatus == models.ApplicationRejected, nil
}

func (h *History) UpdateNotes(jobID, notes string) error {
	entry, ok, err := h.Get(jobID)
	if err != nil || !ok {
		return err
	}
	entry.UserNotes = notes
	return h.table.Set(jobID, entry.Record())
}

// Search filters by status, by date_applied within the last days (when days
// > 0) and by a case-insensitive query over title, company and location.
func (h *History) Search(query string, status models.ApplicationStatus, days int) ([]models.HistoryEntry, error) {
	filter := Record{}
	if status != "" {
		filter["application_status"] = string(status)
	}
	records, err := h.table.Query(filter)
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if days > 0 {
		cutoff = h.table.now().Add(-time.Duration(days) * 24 * time.Hour)
	}
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]models.HistoryEntry, 0, len(records))
	for _, rec := range records {
		entry := models.HistoryFromRecord(rec)
		if !cutoff.IsZero() {
			applied, ok := models.ParseDate(entry.DateApplied)
			if !ok || !applied.After(cutoff) {
				continue
			}
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(entry.Title), query) &&
			!strings.Contains(strings.ToLower(entry.Company), query) &&
			!strings.Contains(strings.ToLower(entry.Location), query) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (h *History) StartBackups(ctx context.Context, interval time.Duration) {
	h.table.StartBackups(ctx, interval)
}
