package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

const (
	backupsToKeep   = 2
	backupLayout    = "20060102_150405"
	backupRetryWait = time.Hour
)

// StartBackups copies the file every interval until ctx is done. The first
// copy is taken immediately.
func (t *table) StartBackups(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		t.logger.Info("backups disabled")
		return
	}

	go func() {
		t.logger.Info("started backup scheduler", zap.Duration("interval", interval))
		for {
			wait := interval
			if err := t.backup(); err != nil {
				t.logger.Error("failed to create backup", zap.Error(err))
				wait = backupRetryWait
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				t.logger.Info("stopped backup scheduler")
				return
			case <-timer.C:
			}
		}
	}()
}

func (t *table) backup() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	src, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", t.path, err)
	}
	defer src.Close()

	target := fmt.Sprintf("%s.%s.bak", t.path, t.now().Format(backupLayout))
	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	t.logger.Info("created backup", zap.String("backup", target))

	backups, err := filepath.Glob(t.path + ".*.bak")
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	sort.Strings(backups)
	if len(backups) <= backupsToKeep {
		return nil
	}
	for _, old := range backups[:len(backups)-backupsToKeep] {
		if err := os.Remove(old); err != nil {
			return fmt.Errorf("remove old backup: %w", err)
		}
		t.logger.Info("removed old backup", zap.String("backup", old))
	}
	return nil
}
