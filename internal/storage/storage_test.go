package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/vettavista/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTableCreatesFileWithHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "blacklist.csv")
	_, err := NewBlacklist(path, nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(models.BlacklistColumns, ",")+"\n", string(raw))
}

func TestBlacklist(t *testing.T) {
	t.Parallel()

	b, err := NewBlacklist(filepath.Join(t.TempDir(), "blacklist.csv"), nil)
	require.NoError(t, err)

	ok, err := b.IsBlacklisted("Acme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Add("Acme", "spam", "recruiters, again"))
	require.NoError(t, b.Add("Globex", "", ""))

	ok, err = b.IsBlacklisted("Acme")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.IsBlacklisted("acme")
	require.NoError(t, err)
	assert.False(t, ok, "lookup is exact")

	require.NoError(t, b.UpdateNotes("Acme", "updated"))
	entry, ok, err := b.Get("Acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "spam", entry.Reason)
	assert.Equal(t, "updated", entry.Notes)
	assert.NotEmpty(t, entry.DateCreated)
	assert.NotEmpty(t, entry.DateUpdated)

	require.NoError(t, b.Remove("Acme"))
	all, err := b.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Globex", all[0].Company)
}

func TestHistoryUpsertKeepsCreatedDate(t *testing.T) {
	t.Parallel()

	h, err := NewHistory(filepath.Join(t.TempDir(), "history.csv"), nil)
	require.NoError(t, err)

	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)
	h.table.now = fixedClock(created)
	require.NoError(t, h.Upsert(models.HistoryEntry{JobID: "1", Title: "Go Developer", Company: "Acme"}))

	h.table.now = fixedClock(created.Add(time.Hour))
	require.NoError(t, h.Upsert(models.HistoryEntry{JobID: "1", Title: "Senior Go Developer", Company: "Acme"}))

	entry, ok, err := h.Get("1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Senior Go Developer", entry.Title)
	assert.Equal(t, models.FormatDate(created), entry.DateCreated)
	assert.Equal(t, models.FormatDate(created.Add(time.Hour)), entry.DateUpdated)
}

func TestHistoryStatusTransitions(t *testing.T) {
	t.Parallel()

	h, err := NewHistory(filepath.Join(t.TempDir(), "history.csv"), nil)
	require.NoError(t, err)

	now := time.Date(2024, 2, 1, 9, 30, 0, 0, time.Local)
	h.table.now = fixedClock(now)

	require.NoError(t, h.Upsert(models.HistoryEntry{JobID: "1", ApplicationStatus: models.ApplicationNew}))

	require.NoError(t, h.UpdateStatus("1", models.ApplicationApplied, "sent"))
	entry, _, err := h.Get("1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApplied, entry.ApplicationStatus)
	assert.Equal(t, models.FormatDate(now), entry.DateApplied)
	assert.Equal(t, "sent", entry.UserNotes)

	rejected, err := h.IsRejected("1")
	require.NoError(t, err)
	assert.False(t, rejected)

	require.NoError(t, h.AddRejection("1", "position filled"))
	rejected, err = h.IsRejected("1")
	require.NoError(t, err)
	assert.True(t, rejected)

	entry, _, err = h.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "position filled", entry.RejectionReason)
	assert.Equal(t, models.FormatDate(now), entry.DateRejected)

	require.NoError(t, h.UpdateStatus("missing", models.ApplicationApplied, ""))
	_, ok, err := h.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistorySearch(t *testing.T) {
	t.Parallel()

	h, err := NewHistory(filepath.Join(t.TempDir(), "history.csv"), nil)
	require.NoError(t, err)

	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.Local)
	h.table.now = fixedClock(now)

	entries := []models.HistoryEntry{
		{JobID: "1", Title: "Go Developer", Company: "Acme", Location: "Berlin, Germany",
			ApplicationStatus: models.ApplicationApplied, DateApplied: models.FormatDate(now.AddDate(0, 0, -1))},
		{JobID: "2", Title: "Frontend Engineer", Company: "Globex", Location: "Remote",
			ApplicationStatus: models.ApplicationApplied, DateApplied: models.FormatDate(now.AddDate(0, 0, -40))},
		{JobID: "3", Title: "Data Engineer", Company: "Initech", Location: "Berlin, Germany",
			ApplicationStatus: models.ApplicationRejected, DateApplied: models.FormatDate(now.AddDate(0, 0, -2))},
		{JobID: "4", Title: "Backend Engineer", Company: "Umbrella", ApplicationStatus: models.ApplicationNew},
	}
	for _, e := range entries {
		require.NoError(t, h.Upsert(e))
	}

	ids := func(es []models.HistoryEntry) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.JobID)
		}
		return out
	}

	got, err := h.Search("", "", 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(got))

	got, err = h.Search("berlin", models.ApplicationApplied, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))

	got, err = h.Search("UMBRELLA", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, ids(got))

	got, err = h.Search("", "", 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestBackupKeepsTwoNewest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.csv")
	h, err := NewHistory(path, nil)
	require.NoError(t, err)

	start := time.Date(2024, 4, 1, 8, 0, 0, 0, time.Local)
	for i := 0; i < 4; i++ {
		h.table.now = fixedClock(start.Add(time.Duration(i) * time.Minute))
		require.NoError(t, h.table.backup())
	}

	backups, err := filepath.Glob(path + ".*.bak")
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, path+".20240401_080200.bak", backups[0])
	assert.Equal(t, path+".20240401_080300.bak", backups[1])
}
