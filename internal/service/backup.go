package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"sequel-tracker/internal/timeutil"
)

const (
	backupPrefix     = "sequel_tracker_backup_"
	backupSuffix     = ".db"
	backupTimeLayout = "2006-01-02_150405.000"
	keepBackups      = 4
)

// BackupService writes consistent snapshots of the SQLite database into a
// backup directory and prunes all but the newest few.
type BackupService struct {
	db        Snapshotter
	backupDir string
	keep      int
	logger    *zap.Logger
}

// NewBackupService creates a new BackupService
func NewBackupService(db Snapshotter, backupDir string, logger *zap.Logger) *BackupService {
	return &BackupService{
		db:        db,
		backupDir: backupDir,
		keep:      keepBackups,
		logger:    logger,
	}
}

// Backup snapshots the database and returns the snapshot path
func (b *BackupService) Backup() (string, error) {
	if err := os.MkdirAll(b.backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(b.backupDir, backupPrefix+timeutil.Now().Format(backupTimeLayout)+backupSuffix)
	if err := b.db.SnapshotTo(path); err != nil {
		return "", fmt.Errorf("failed to snapshot database: %w", err)
	}
	b.logger.Info("database backed up", zap.String("path", path))

	if err := b.prune(); err != nil {
		b.logger.Warn("failed to prune old backups", zap.Error(err))
	}
	return path, nil
}

// LastBackup returns when the newest backup was taken, read from its file
// name. ok is false when no backup exists.
func (b *BackupService) LastBackup() (at time.Time, ok bool, err error) {
	backups, err := b.listBackups()
	if err != nil || len(backups) == 0 {
		return time.Time{}, false, err
	}
	at, err = backupTime(backups[len(backups)-1])
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

func (b *BackupService) prune() error {
	backups, err := b.listBackups()
	if err != nil {
		return err
	}
	for len(backups) > b.keep {
		if err := os.Remove(backups[0]); err != nil {
			return fmt.Errorf("failed to delete old backup %s: %w", backups[0], err)
		}
		backups = backups[1:]
	}
	return nil
}

// listBackups returns backup paths oldest first
func (b *BackupService) listBackups() ([]string, error) {
	entries, err := os.ReadDir(b.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		if _, err := backupTime(name); err != nil {
			continue
		}
		backups = append(backups, filepath.Join(b.backupDir, name))
	}
	sort.Strings(backups)
	return backups, nil
}

func backupTime(path string) (time.Time, error) {
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), backupPrefix), backupSuffix)
	return time.ParseInLocation(backupTimeLayout, name, time.UTC)
}
