// Package storage persists the blacklist and the job history as CSV files.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/models"
)

// Record is one CSV row keyed by column name.
type Record map[string]string

// table is a CSV file with a header row and a unique key column. Every
// operation reads or rewrites the whole file.
type table struct {
	path    string
	key     string
	columns []string
	logger  *zap.Logger
	now     func() time.Time

	mu sync.Mutex
}

func newTable(path, key string, columns []string, logger *zap.Logger) (*table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &table{
		path:    path,
		key:     key,
		columns: columns,
		logger:  logger.With(zap.String("file", path)),
		now:     time.Now,
	}
	if err := t.ensure(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *table) ensure() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	if _, err := os.Stat(t.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", t.path, err)
	}
	if err := t.write(nil); err != nil {
		return err
	}
	t.logger.Info("created new csv file")
	return nil
}

func (t *table) read() ([]Record, error) {
	file, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", t.path, err)
	}

	var out []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", t.path, err)
		}
		rec := make(Record, len(t.columns))
		for _, c := range t.columns {
			rec[c] = ""
		}
		for i, name := range header {
			if i < len(row) {
				rec[name] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (t *table) write(records []Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.columns); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(t.columns))
	for _, rec := range records {
		for i, c := range t.columns {
			row[i] = rec[c]
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("replace %s: %w", t.path, err)
	}
	return nil
}

// Get returns the row whose key column equals key.
func (t *table) Get(key string) (Record, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, err := t.read()
	if err != nil {
		return nil, false, err
	}
	for _, rec := range records {
		if rec[t.key] == key {
			return rec, true, nil
		}
	}
	return nil, false, nil
}

// Set inserts or updates the row for key. date_updated is always stamped and
// date_created is filled on insert when empty.
func (t *table) Set(key string, value Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, err := t.read()
	if err != nil {
		return err
	}

	stamp := models.FormatDate(t.now())
	value[t.key] = key
	value["date_updated"] = stamp

	for _, rec := range records {
		if rec[t.key] != key {
			continue
		}
		for _, c := range t.columns {
			v, ok := value[c]
			if !ok || (c == "date_created" && v == "") {
				continue
			}
			rec[c] = v
		}
		return t.write(records)
	}

	if value["date_created"] == "" {
		value["date_created"] = stamp
	}
	rec := make(Record, len(t.columns))
	for _, c := range t.columns {
		rec[c] = value[c]
	}
	return t.write(append(records, rec))
}

func (t *table) Delete(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, err := t.read()
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, rec := range records {
		if rec[t.key] != key {
			kept = append(kept, rec)
		}
	}
	return t.write(kept)
}

// Query returns rows whose columns equal every filter value. Unknown columns
// are ignored.
func (t *table) Query(filter Record) ([]Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, err := t.read()
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, rec := range records {
		if matches(rec, filter, t.columns) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (t *table) All() ([]Record, error) {
	return t.Query(nil)
}

func matches(rec, filter Record, columns []string) bool {
	for col, want := range filter {
		known := false
		for _, c := range columns {
			if c == col {
				known = true
				break
			}
		}
		if known && rec[col] != want {
			return false
		}
	}
	return true
}
