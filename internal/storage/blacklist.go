package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/models"
)

// Blacklist stores companies the user never wants to see again.
type Blacklist struct {
	table *table
}

func NewBlacklist(path string, logger *zap.Logger) (*Blacklist, error) {
	t, err := newTable(path, "company", models.BlacklistColumns, logger)
	if err != nil {
		return nil, err
	}
	return &Blacklist{table: t}, nil
}

func (b *Blacklist) Add(company, reason, notes string) error {
	entry := models.BlacklistEntry{Company: company, Reason: reason, Notes: notes}
	return b.table.Set(company, entry.Record())
}

func (b *Blacklist) Remove(company string) error {
	return b.table.Delete(company)
}

func (b *Blacklist) IsBlacklisted(company string) (bool, error) {
	_, ok, err := b.table.Get(company)
	return ok, err
}

func (b *Blacklist) Get(company string) (models.BlacklistEntry, bool, error) {
	rec, ok, err := b.table.Get(company)
	if err != nil || !ok {
		return models.BlacklistEntry{}, false, err
	}
	return models.BlacklistFromRecord(rec), true, nil
}

// UpdateNotes replaces the notes of a listed company. Unknown companies are
// ignored.
func (b *Blacklist) UpdateNotes(company, notes string) error {
	entry, ok, err := b.Get(company)
	if err != nil || !ok {
		return err
	}
	entry.Notes = notes
	return b.table.Set(company, entry.Record())
}

func (b *Blacklist) All() ([]models.BlacklistEntry, error) {
	records, err := b.table.All()
	if err != nil {
		return nil, err
	}
	out := make([]models.BlacklistEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, models.BlacklistFromRecord(rec))
	}
	return out, nil
}

func (b *Blacklist) StartBackups(ctx context.Context, interval time.Duration) {
	b.table.StartBackups(ctx, interval)
}
